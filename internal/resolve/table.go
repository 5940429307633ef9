// Package resolve maps every identifier occurrence in the surface tree
// to a stable resolved target: a global definition, a local binding, a
// parameter, a builtin, or an overloaded interface method. It also
// orders definitions for elaboration.
package resolve

import (
	"fmt"
	"strings"

	"github.com/kirraObj-s-archives/rowscript/internal/ast"
	"github.com/kirraObj-s-archives/rowscript/internal/core"
)

// Category classifies a global definition.
type Category int

const (
	CatFunc Category = iota
	CatType
	CatInterface
	CatImpl
	CatConst
	CatBuiltin
)

func (c Category) String() string {
	switch c {
	case CatFunc:
		return "function"
	case CatType:
		return "type"
	case CatInterface:
		return "interface"
	case CatImpl:
		return "implementation"
	case CatConst:
		return "constant"
	default:
		return "builtin"
	}
}

// Global is one entry of the definition table.
type Global struct {
	ID     core.GlobalID
	Name   string
	Module string // module identity, "" for builtins
	Cat    Category
	Def    ast.Def // nil for builtins
}

// QualName returns the display name used in core Refs and reports.
func (g *Global) QualName() string {
	if g.Module == "" {
		return g.Name
	}
	return g.Module + "::" + g.Name
}

// Builtin global IDs. These are reserved names with fixed signatures;
// surface programs may reference but never define them.
const (
	BuiltinNumber core.GlobalID = iota
	BuiltinString
	BuiltinBigint
	BuiltinBoolean
	BuiltinUnit
	BuiltinUnionify
	BuiltinNumberAdd
	BuiltinNumberSub
	BuiltinStringAdd
	builtinCount
)

var builtinNames = map[string]core.GlobalID{
	"number":         BuiltinNumber,
	"string":         BuiltinString,
	"bigint":         BuiltinBigint,
	"boolean":        BuiltinBoolean,
	"unit":           BuiltinUnit,
	"unionify":       BuiltinUnionify,
	"number#__add__": BuiltinNumberAdd,
	"number#__sub__": BuiltinNumberSub,
	"string#__add__": BuiltinStringAdd,
}

// IsBuiltinName reports whether the name is reserved.
func IsBuiltinName(name string) bool {
	_, ok := builtinNames[name]
	return ok
}

// Table is the global definition table of one module set.
type Table struct {
	globals []*Global // declaration order, builtins first
	// byName indexes the globals by name, then module, for lookup.
	byName map[string]map[string]*Global // name -> module -> global
}

// NewTable creates a table preloaded with the builtins at their fixed
// IDs.
func NewTable() *Table {
	t := &Table{byName: make(map[string]map[string]*Global)}
	ordered := make([]*Global, builtinCount)
	for name, id := range builtinNames {
		ordered[id] = &Global{ID: id, Name: name, Cat: CatBuiltin}
	}
	for _, g := range ordered {
		t.globals = append(t.globals, g)
		t.index(g)
	}
	return t
}

func (t *Table) index(g *Global) {
	mods, ok := t.byName[g.Name]
	if !ok {
		mods = make(map[string]*Global)
		t.byName[g.Name] = mods
	}
	mods[g.Module] = g
}

func (t *Table) insert(g *Global) {
	g.ID = core.GlobalID(len(t.globals))
	t.globals = append(t.globals, g)
	t.index(g)
}

// Add registers a definition under a module. Duplicate names within a
// module and redefinition of builtins are errors, except for
// implementations, which skip both checks. name defaults to the
// definition's own; the resolver overrides it for anonymous consts.
func (t *Table) Add(module string, cat Category, def ast.Def, name string) (*Global, error) {
	if name == "" {
		name = def.DefName()
	}
	if cat != CatImpl {
		if IsBuiltinName(name) {
			return nil, fmt.Errorf("%s is a reserved builtin name", name)
		}
		if mods, ok := t.byName[name]; ok {
			if _, dup := mods[module]; dup {
				return nil, fmt.Errorf("duplicate definition %s in module %s", name, module)
			}
		}
	}
	g := &Global{Name: name, Module: module, Cat: cat, Def: def}
	t.insert(g)
	return g, nil
}

// Get returns the global with the given ID.
func (t *Table) Get(id core.GlobalID) *Global {
	if int(id) < 0 || int(id) >= len(t.globals) {
		return nil
	}
	return t.globals[id]
}

// LookupIn finds a name within one module.
func (t *Table) LookupIn(module, name string) (*Global, bool) {
	mods, ok := t.byName[name]
	if !ok {
		return nil, false
	}
	g, ok := mods[module]
	return g, ok
}

// Builtin looks up a reserved name.
func (t *Table) Builtin(name string) (*Global, bool) {
	id, ok := builtinNames[name]
	if !ok {
		return nil, false
	}
	return t.globals[id], true
}

// All returns all globals in declaration order (builtins first).
func (t *Table) All() []*Global {
	return t.globals
}

// Implementations returns the implementation globals in declaration
// order; the dispatch search order is fixed to this.
func (t *Table) Implementations() []*Global {
	var impls []*Global
	for _, g := range t.globals {
		if g.Cat == CatImpl {
			impls = append(impls, g)
		}
	}
	return impls
}

// ModulePath joins qualifier segments into a module identity.
func ModulePath(segments []string) string {
	return strings.Join(segments, "::")
}
