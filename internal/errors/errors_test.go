package errors

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestRegistryConsistency(t *testing.T) {
	for code, info := range Registry {
		if info.Code != code {
			t.Errorf("registry entry %s carries code %s", code, info.Code)
		}
		if info.Phase == "" || info.Description == "" {
			t.Errorf("registry entry %s is incomplete: %+v", code, info)
		}
	}
}

func TestPhasePredicates(t *testing.T) {
	if !IsResolveError(RES001) {
		t.Error("RES001 should be a resolve error")
	}
	if !IsTypeError(TC001) || !IsTypeError(KND001) || !IsTypeError(ROW002) {
		t.Error("TC/KND/ROW codes should be type errors")
	}
	if !IsDispatchError(INS002) {
		t.Error("INS002 should be a dispatch error")
	}
	if IsTypeError("NOPE") {
		t.Error("unknown codes should not classify")
	}
}

func TestReportWrapsAsError(t *testing.T) {
	rep := New(TC001, "type mismatch: number vs string", nil).WithDef("f")
	err := Wrap(rep)

	if got := err.Error(); !strings.Contains(got, TC001) {
		t.Errorf("error string %q lacks the code", got)
	}
	back, ok := AsReport(err)
	if !ok || back != rep {
		t.Fatal("AsReport failed to recover the report")
	}
	if back.Phase != "typecheck" {
		t.Errorf("phase = %q, want typecheck", back.Phase)
	}

	wrapped := errorsJoin(err)
	if _, ok := AsReport(wrapped); !ok {
		t.Error("AsReport should see through wrapping")
	}
}

func errorsJoin(err error) error {
	return &wrapper{err}
}

type wrapper struct{ inner error }

func (w *wrapper) Error() string { return "wrapped: " + w.inner.Error() }
func (w *wrapper) Unwrap() error { return w.inner }

func TestAsReportOnPlainError(t *testing.T) {
	if _, ok := AsReport(errors.New("plain")); ok {
		t.Error("plain errors carry no report")
	}
}

func TestReportJSON(t *testing.T) {
	rep := New(ROW002, "labels differ", nil).WithData("missing", []string{"a"})
	out, err := rep.ToJSON(true)
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if decoded["schema"] != SchemaVersion {
		t.Errorf("schema = %v", decoded["schema"])
	}
	if decoded["code"] != ROW002 {
		t.Errorf("code = %v", decoded["code"])
	}
}

func TestBagCollectsAndTracksDefs(t *testing.T) {
	bag := NewBag()
	if !bag.Empty() {
		t.Fatal("new bag should be empty")
	}
	bag.Add(New(TC001, "first", nil).WithDef("f"))
	bag.Add(New(ROW002, "second", nil).WithDef("g"))
	bag.Add(New(TC002, "third", nil).WithDef("f"))
	bag.AddError(errors.New("untyped failure"))

	if bag.Len() != 4 {
		t.Errorf("Len = %d, want 4", bag.Len())
	}
	defs := bag.FailedDefs()
	if len(defs) != 2 || defs[0] != "f" || defs[1] != "g" {
		t.Errorf("FailedDefs = %v", defs)
	}
	if !strings.Contains(bag.String(), "second") {
		t.Error("String should include every report")
	}
	if _, err := bag.ToJSON(true); err != nil {
		t.Errorf("ToJSON: %v", err)
	}
}
