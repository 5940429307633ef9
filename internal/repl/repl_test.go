package repl

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestEvalExpression(t *testing.T) {
	color.NoColor = true
	var out bytes.Buffer
	r := New(nil, &out, "test")

	r.eval(`{"kind":"number","value":42}`)

	got := out.String()
	if !strings.Contains(got, "42") {
		t.Errorf("output lost the value: %q", got)
	}
	if !strings.Contains(got, "number") {
		t.Errorf("output lost the type: %q", got)
	}
}

func TestEvalReportsErrors(t *testing.T) {
	color.NoColor = true
	var out bytes.Buffer
	r := New(nil, &out, "test")

	r.eval(`{"kind":"ident","name":"nowhere"}`)

	if !strings.Contains(out.String(), "RES002") {
		t.Errorf("expected a resolution report, got %q", out.String())
	}
}

func TestEvalRejectsMalformedInput(t *testing.T) {
	color.NoColor = true
	var out bytes.Buffer
	r := New(nil, &out, "test")

	r.eval(`not json`)

	if !strings.Contains(out.String(), "parse:") {
		t.Errorf("expected a parse error, got %q", out.String())
	}
}

func TestUnknownCommand(t *testing.T) {
	color.NoColor = true
	var out bytes.Buffer
	r := New(nil, &out, "test")

	if quit := r.command(":nonsense"); quit {
		t.Error("unknown command should not quit")
	}
	if !strings.Contains(out.String(), "unknown command") {
		t.Errorf("got %q", out.String())
	}
	if quit := r.command(":quit"); !quit {
		t.Error(":quit should quit")
	}
}
