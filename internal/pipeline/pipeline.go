// Package pipeline drives a whole compilation: decode surface files,
// resolve names, elaborate definitions in dependency order, finalize,
// and emit the typed module.
package pipeline

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kirraObj-s-archives/rowscript/internal/ast"
	"github.com/kirraObj-s-archives/rowscript/internal/elab"
	rerr "github.com/kirraObj-s-archives/rowscript/internal/errors"
	"github.com/kirraObj-s-archives/rowscript/internal/linked"
	"github.com/kirraObj-s-archives/rowscript/internal/manifest"
	"github.com/kirraObj-s-archives/rowscript/internal/resolve"
)

// Result is the output of one compilation.
type Result struct {
	Module  *linked.Module
	Reports *rerr.Bag
	Files   []*ast.File
}

// OK reports whether the compilation produced no reports.
func (r *Result) OK() bool {
	return r.Reports.Empty()
}

// Compile runs the elaboration pipeline over already-decoded files.
// Each file's Path is its module identity.
func Compile(files []*ast.File) *Result {
	res := resolve.Resolve(files)
	module, bag := elab.Check(res)
	return &Result{Module: module, Reports: bag, Files: files}
}

// CompileSources decodes and compiles a set of surface trees keyed by
// module identity.
func CompileSources(sources map[string][]byte) (*Result, error) {
	var files []*ast.File
	// Deterministic module order: sort the identities.
	ids := make([]string, 0, len(sources))
	for id := range sources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		f, err := ast.DecodeFile(sources[id])
		if err != nil {
			return nil, fmt.Errorf("module %s: %w", id, err)
		}
		f.Path = id
		files = append(files, f)
	}
	return Compile(files), nil
}

// CompileFiles reads parser-emitted surface files from disk. The
// module identity is the file base name without extension unless the
// tree itself declares a path.
func CompileFiles(paths []string) (*Result, error) {
	sources := make(map[string][]byte)
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		id := moduleIdentity(p, data)
		if _, dup := sources[id]; dup {
			return nil, fmt.Errorf("duplicate module %s", id)
		}
		sources[id] = data
	}
	return CompileSources(sources)
}

// CompileProject compiles the entry modules of a manifest. The
// declared std and vendor roots are loaded first, under their package
// name (`stdio::fs`, `@acme/json::util`), so qualified imports of
// those modules resolve.
func CompileProject(m *manifest.Manifest) (*Result, error) {
	if len(m.Entry) == 0 {
		return nil, fmt.Errorf("manifest lists no entry modules")
	}

	sources := make(map[string][]byte)
	for _, pkg := range m.StdPackages() {
		if err := loadRoot(sources, pkg, m.Std[pkg]); err != nil {
			return nil, fmt.Errorf("std package %s: %w", pkg, err)
		}
	}
	vendors := make([]string, 0, len(m.Vendor))
	for pkg := range m.Vendor {
		vendors = append(vendors, pkg)
	}
	sort.Strings(vendors)
	for _, pkg := range vendors {
		if err := loadRoot(sources, pkg, m.Vendor[pkg]); err != nil {
			return nil, fmt.Errorf("vendor package %s: %w", pkg, err)
		}
	}

	for _, entry := range m.Entry {
		path := filepath.Join(m.Root, entry)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		id := moduleIdentity(path, data)
		if _, dup := sources[id]; dup {
			return nil, fmt.Errorf("duplicate module %s", id)
		}
		sources[id] = data
	}
	return CompileSources(sources)
}

// loadRoot reads every surface file under an import root. A file
// sub/mod.json under package pkg becomes module pkg::sub::mod.
func loadRoot(sources map[string][]byte, pkg, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = strings.TrimSuffix(rel, filepath.Ext(rel))
		id := pkg + "::" + strings.ReplaceAll(rel, string(filepath.Separator), "::")
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if _, dup := sources[id]; dup {
			return fmt.Errorf("duplicate module %s", id)
		}
		sources[id] = data
		return nil
	})
}

func moduleIdentity(path string, data []byte) string {
	if f, err := ast.DecodeFile(data); err == nil && f.Path != "" {
		return f.Path
	}
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return base[:len(base)-len(ext)]
}
