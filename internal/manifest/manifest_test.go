package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadValidManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rowscript.yaml")
	src := `schema: rowscript.manifest/v1
root: ./src
std:
  stdio: ./vendor/std/stdio
vendor:
  "@acme/json": ./vendor/acme/json
entry:
  - main.json
`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Root != "./src" {
		t.Errorf("root = %q", m.Root)
	}
	if diff := cmp.Diff([]string{"stdio"}, m.StdPackages()); diff != "" {
		t.Errorf("std packages (-want +got):\n%s", diff)
	}
	if m.Vendor["@acme/json"] != "./vendor/acme/json" {
		t.Errorf("vendor = %v", m.Vendor)
	}
	if len(m.Entry) != 1 || m.Entry[0] != "main.json" {
		t.Errorf("entry = %v", m.Entry)
	}
}

func TestValidateRejectsBadManifests(t *testing.T) {
	tests := []struct {
		name string
		m    Manifest
	}{
		{"wrong schema", Manifest{Schema: "other/v9", Root: "."}},
		{"missing root", Manifest{Schema: SchemaVersion}},
		{"vendor without at", Manifest{Schema: SchemaVersion, Root: ".", Vendor: map[string]string{"acme": "."}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.m.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rowscript.yaml")

	m := Default(dir)
	m.Entry = []string{"main.json"}
	if err := m.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	back, err := Load(path)
	if err != nil {
		t.Fatalf("Load after Save: %v", err)
	}
	if back.Root != dir || len(back.Entry) != 1 {
		t.Errorf("round trip lost data: %+v", back)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing manifest")
	}
}
