package ast

import (
	"fmt"
	"strings"
)

// Kind is the surface kind language: `type -> type -> ... -> type`.
// Arity 0 is the kind `type` itself. Row parameters are not kinded;
// they are marked by the `'` prefix on the parameter name.
type Kind struct {
	Arity int
}

func (k Kind) String() string {
	if k.Arity == 0 {
		return "type"
	}
	return strings.Repeat("type -> ", k.Arity) + "type"
}

// ImplicitParam is one angle-bracket parameter of a definition. A name
// starting with `'` binds a row variable; otherwise the parameter is a
// (possibly higher-kinded) type.
type ImplicitParam struct {
	Name string
	Kind Kind
	Pos  Pos
}

// IsRow reports whether the parameter ranges over rows.
func (p ImplicitParam) IsRow() bool {
	return strings.HasPrefix(p.Name, "'")
}

// Predicate is one `where Interface<T, ...>` clause.
type Predicate struct {
	Interface *QualIdent // qualified or bare interface name
	Args      []Type
	Pos       Pos
}

func (p Predicate) String() string {
	args := make([]string, len(p.Args))
	for i, a := range p.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s<%s>", p.Interface.Name, strings.Join(args, ", "))
}

// FnDef is a function definition or postulate (no body).
type FnDef struct {
	Name      string
	Implicits []ImplicitParam
	Params    []Param
	Ret       Type // nil to infer
	Where     []Predicate
	Body      *Block // nil for postulates
	Pos       Pos
}

func (d *FnDef) String() string {
	if d.Body == nil {
		return fmt.Sprintf("function %s(...)", d.Name)
	}
	return fmt.Sprintf("function %s(...) %s", d.Name, d.Body)
}
func (d *FnDef) Position() Pos   { return d.Pos }
func (d *FnDef) DefName() string { return d.Name }
func (d *FnDef) defNode()        {}

// TypeDef is a type alias or a type postulate.
type TypeDef struct {
	Name      string
	Implicits []ImplicitParam
	Body      Type // nil for postulates
	Pos       Pos
}

func (d *TypeDef) String() string {
	if d.Body == nil {
		return fmt.Sprintf("type %s", d.Name)
	}
	return fmt.Sprintf("type %s = %s", d.Name, d.Body)
}
func (d *TypeDef) Position() Pos   { return d.Pos }
func (d *TypeDef) DefName() string { return d.Name }
func (d *TypeDef) defNode()        {}

// ClassDef is the `class` sugar: a record type plus a constructor plus
// free-standing methods taking an explicit `this`. The elaborator
// desugars it before checking.
type ClassDef struct {
	Name      string
	Implicits []ImplicitParam
	Fields    []Param  // init block: field name and type
	Methods   []*FnDef // methods without the implicit this
	Pos       Pos
}

func (d *ClassDef) String() string  { return fmt.Sprintf("class %s", d.Name) }
func (d *ClassDef) Position() Pos   { return d.Pos }
func (d *ClassDef) DefName() string { return d.Name }
func (d *ClassDef) defNode()        {}

// MethodSig is one method signature inside an interface. Methods may
// carry their own implicit parameters (`map<A,B>(...)`).
type MethodSig struct {
	Name      string
	Implicits []ImplicitParam
	Params    []Param
	Ret       Type
	Pos       Pos
}

// InterfaceDef is `interface I for T<...> { sigs }`. Carrier is the
// single instance parameter; its kind admits higher-kinded carriers.
type InterfaceDef struct {
	Name      string
	Carrier   ImplicitParam
	Implicits []ImplicitParam
	Methods   []MethodSig
	Pos       Pos
}

func (d *InterfaceDef) String() string  { return fmt.Sprintf("interface %s for %s", d.Name, d.Carrier.Name) }
func (d *InterfaceDef) Position() Pos   { return d.Pos }
func (d *InterfaceDef) DefName() string { return d.Name }
func (d *InterfaceDef) defNode()        {}

// ImplementsDef is `implements I for C { bodies }`.
type ImplementsDef struct {
	Interface *QualIdent
	Carrier   Type
	Methods   []*FnDef
	Pos       Pos
}

func (d *ImplementsDef) String() string {
	return fmt.Sprintf("implements %s for %s", d.Interface.Name, d.Carrier)
}
func (d *ImplementsDef) Position() Pos { return d.Pos }

// DefName returns a stable synthetic name; implementations are looked
// up by (interface, carrier), never by name.
func (d *ImplementsDef) DefName() string {
	return fmt.Sprintf("%s for %s", d.Interface.Name, d.Carrier)
}
func (d *ImplementsDef) defNode() {}

// ConstDef is a top-level `const` binding, optionally named (an
// unnamed const is evaluated for its implementations at load time).
type ConstDef struct {
	Name  string // "" when anonymous
	Type  Type   // nil to infer
	Value Expr
	Pos   Pos
}

func (d *ConstDef) String() string {
	if d.Name == "" {
		return fmt.Sprintf("const _ = %s", d.Value)
	}
	return fmt.Sprintf("const %s = %s", d.Name, d.Value)
}
func (d *ConstDef) Position() Pos   { return d.Pos }
func (d *ConstDef) DefName() string { return d.Name }
func (d *ConstDef) defNode()        {}
