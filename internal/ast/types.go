package ast

import (
	"fmt"
	"strings"
)

// Surface type nodes. Rows appear only inside record and variant types;
// a bare row variable reference is written `'r`.

// NamedType is a (possibly qualified) type reference with optional
// arguments: `number`, `Foo`, `std::io::Handle`, `F<T>`.
type NamedType struct {
	Segments []string // empty for unqualified names
	Name     string
	Args     []Type
	Pos      Pos
}

func (t *NamedType) String() string {
	name := t.Name
	if len(t.Segments) > 0 {
		name = strings.Join(t.Segments, "::") + "::" + name
	}
	if len(t.Args) == 0 {
		return name
	}
	args := make([]string, len(t.Args))
	for i, a := range t.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s<%s>", name, strings.Join(args, ", "))
}
func (t *NamedType) Position() Pos { return t.Pos }
func (t *NamedType) typeNode()     {}

// FuncType is `(a: T, ...) -> U`.
type FuncType struct {
	Params []Param
	Ret    Type
	Pos    Pos
}

func (t *FuncType) String() string {
	parts := make([]string, len(t.Params))
	for i, p := range t.Params {
		if p.Type != nil {
			parts[i] = fmt.Sprintf("%s: %s", p.Name, p.Type)
		} else {
			parts[i] = p.Name
		}
	}
	return fmt.Sprintf("(%s) -> %s", strings.Join(parts, ", "), t.Ret)
}
func (t *FuncType) Position() Pos { return t.Pos }
func (t *FuncType) typeNode()     {}

// TypeField is one `label: T` entry of a record or variant type.
type TypeField struct {
	Label string
	Type  Type // nil for payload-less variant cases
}

// RecordType is `{ l: T, ... }`, optionally extended: `{ l: T, 'r }`
// or the bare `{ 'r }`.
type RecordType struct {
	Fields []TypeField
	Row    string // row variable name without the quote, "" if closed
	Pos    Pos
}

func (t *RecordType) String() string {
	parts := make([]string, 0, len(t.Fields)+1)
	for _, f := range t.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Label, f.Type))
	}
	if t.Row != "" {
		parts = append(parts, "'"+t.Row)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
func (t *RecordType) Position() Pos { return t.Pos }
func (t *RecordType) typeNode()     {}

// VariantType is `[ L | L: T | 'r ]`.
type VariantType struct {
	Cases []TypeField
	Row   string // trailing row variable, "" if closed
	Pos   Pos
}

func (t *VariantType) String() string {
	parts := make([]string, 0, len(t.Cases)+1)
	for _, c := range t.Cases {
		if c.Type == nil {
			parts = append(parts, c.Label)
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", c.Label, c.Type))
		}
	}
	if t.Row != "" {
		parts = append(parts, "'"+t.Row)
	}
	return "[" + strings.Join(parts, " | ") + "]"
}
func (t *VariantType) Position() Pos { return t.Pos }
func (t *VariantType) typeNode()     {}

// RowRef is a bare row variable in type-argument position: `f<'r>(..)`.
type RowRef struct {
	Name string
	Pos  Pos
}

func (t *RowRef) String() string { return "'" + t.Name }
func (t *RowRef) Position() Pos  { return t.Pos }
func (t *RowRef) typeNode()      {}

// HoleType is `?` in type position.
type HoleType struct {
	Pos Pos
}

func (t *HoleType) String() string { return "?" }
func (t *HoleType) Position() Pos  { return t.Pos }
func (t *HoleType) typeNode()      {}
