package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kirraObj-s-archives/rowscript/internal/linked"
	"github.com/kirraObj-s-archives/rowscript/internal/manifest"
)

// utilSrc and mainSrc form a minimal whole-program surface tree: a
// record projection wrapped in a function, plus an imported helper.
const utilSrc = `{
	"path": "util",
	"defs": [
		{
			"kind": "fn",
			"name": "helper",
			"params": [{"name": "a", "type": {"kind": "named", "name": "number"}}],
			"ret": {"kind": "named", "name": "number"},
			"body": [{"kind": "return", "value": {"kind": "ident", "name": "a"}}]
		}
	]
}`

const mainSrc = `{
	"path": "main",
	"imports": [{"kind": "names", "path": ["util"], "names": ["helper"]}],
	"defs": [
		{
			"kind": "fn",
			"name": "f",
			"ret": {"kind": "named", "name": "number"},
			"body": [
				{"kind": "return", "value": {
					"kind": "proj",
					"expr": {"kind": "record", "fields": [
						{"label": "n", "value": {"kind": "call",
							"fn": {"kind": "ident", "name": "helper"},
							"args": [{"kind": "number", "value": 42}]}}
					]},
					"label": "n"
				}}
			]
		}
	]
}`

func TestCompileSources(t *testing.T) {
	result, err := CompileSources(map[string][]byte{
		"util": []byte(utilSrc),
		"main": []byte(mainSrc),
	})
	if err != nil {
		t.Fatalf("CompileSources: %v", err)
	}
	if !result.OK() {
		t.Fatalf("unexpected reports:\n%s", result.Reports)
	}
	def := result.Module.Def("f")
	if def == nil {
		t.Fatal("f missing from the module")
	}
	if def.Type.String() != "number" {
		t.Errorf("type of f = %s", def.Type)
	}
	if !strings.Contains(def.Body.String(), "util::helper") {
		t.Errorf("f should call the imported helper: %s", def.Body)
	}
}

func TestCompileReportsBatch(t *testing.T) {
	bad := `{
		"path": "main",
		"defs": [
			{"kind": "fn", "name": "a", "ret": {"kind": "named", "name": "number"},
			 "body": [{"kind": "return", "value": {"kind": "string", "value": "x"}}]},
			{"kind": "fn", "name": "b", "ret": {"kind": "named", "name": "number"},
			 "body": [{"kind": "return", "value": {"kind": "ident", "name": "ghost"}}]}
		]
	}`
	result, err := CompileSources(map[string][]byte{"main": []byte(bad)})
	if err != nil {
		t.Fatalf("CompileSources: %v", err)
	}
	if result.OK() {
		t.Fatal("expected reports")
	}
	// Both definitions report; elaboration continues past failures.
	defs := result.Reports.FailedDefs()
	if len(defs) < 2 {
		t.Errorf("expected failures in both definitions, got %v:\n%s", defs, result.Reports)
	}
}

func TestCompileProjectLoadsDeclaredRoots(t *testing.T) {
	dir := t.TempDir()
	vendorDir := filepath.Join(dir, "vendor", "acme", "json")
	if err := os.MkdirAll(vendorDir, 0o755); err != nil {
		t.Fatal(err)
	}
	// The vendor module carries no path of its own; its identity comes
	// from the declared root: @acme/json::util.
	if err := os.WriteFile(filepath.Join(vendorDir, "util.json"), []byte(`{
		"defs": [
			{"kind": "fn", "name": "helper",
			 "params": [{"name": "a", "type": {"kind": "named", "name": "number"}}],
			 "ret": {"kind": "named", "name": "number"},
			 "body": [{"kind": "return", "value": {"kind": "ident", "name": "a"}}]}
		]
	}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "main.json"), []byte(`{
		"path": "main",
		"imports": [{"kind": "names", "path": ["@acme/json", "util"], "names": ["helper"]}],
		"defs": [
			{"kind": "fn", "name": "f",
			 "ret": {"kind": "named", "name": "number"},
			 "body": [{"kind": "return", "value": {"kind": "call",
				"fn": {"kind": "ident", "name": "helper"},
				"args": [{"kind": "number", "value": 7}]}}]}
		]
	}`), 0o644); err != nil {
		t.Fatal(err)
	}

	m := &manifest.Manifest{
		Schema: manifest.SchemaVersion,
		Root:   dir,
		Vendor: map[string]string{"@acme/json": vendorDir},
		Entry:  []string{"main.json"},
	}
	result, err := CompileProject(m)
	if err != nil {
		t.Fatalf("CompileProject: %v", err)
	}
	if !result.OK() {
		t.Fatalf("unexpected reports:\n%s", result.Reports)
	}
	def := result.Module.Def("f")
	if def == nil {
		t.Fatal("f missing from the module")
	}
	if !strings.Contains(def.Body.String(), "@acme/json::util::helper") {
		t.Errorf("f should call the vendor helper: %s", def.Body)
	}
}

func TestCompileFilesAndEmit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.json")
	if err := os.WriteFile(path, []byte(`{
		"path": "main",
		"defs": [
			{"kind": "const", "name": "answer", "value": {"kind": "number", "value": 42}}
		]
	}`), 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := CompileFiles([]string{path})
	if err != nil {
		t.Fatalf("CompileFiles: %v", err)
	}
	if !result.OK() {
		t.Fatalf("unexpected reports:\n%s", result.Reports)
	}

	out, err := result.Module.ToJSON(true)
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	var decoded struct {
		Schema string `json:"schema"`
		Defs   []struct {
			Name string `json:"name"`
			Type string `json:"type"`
		} `json:"defs"`
	}
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("emitted module is not JSON: %v", err)
	}
	if decoded.Schema != linked.SchemaVersion {
		t.Errorf("schema = %q", decoded.Schema)
	}
	found := false
	for _, d := range decoded.Defs {
		if d.Name == "answer" && d.Type == "number" {
			found = true
		}
	}
	if !found {
		t.Errorf("answer missing from emitted defs: %s", out)
	}
}
