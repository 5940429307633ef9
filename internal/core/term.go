// Package core defines the core calculus the elaborator targets: a
// small dependent term language with a universe, row-typed records and
// variants, metavariables, and unresolved overloaded references.
//
// Binding uses globally unique local identifiers issued by the
// elaborator, so substitution never captures: a binder is never reused
// under itself. Every constructor that introduces a Local relies on
// that invariant.
package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kirraObj-s-archives/rowscript/internal/ast"
)

// GlobalID identifies a resolved top-level definition.
type GlobalID int

// Local is a bound local or parameter. ID is unique per elaboration;
// Name is kept for printing only.
type Local struct {
	Name string
	ID   int
}

func (l Local) String() string {
	if l.Name == "" {
		return fmt.Sprintf("_%d", l.ID)
	}
	return l.Name
}

// TermNode carries the optional source position shared by all nodes.
type TermNode struct {
	Src ast.Pos
}

// Pos returns the source position (zero value when synthetic).
func (n TermNode) Pos() ast.Pos { return n.Src }

// Term is the core term algebra.
type Term interface {
	Pos() ast.Pos
	String() string
	term()
}

// Var is a bound local or parameter occurrence.
type Var struct {
	TermNode
	Local Local
}

func (t *Var) term()          {}
func (t *Var) String() string { return t.Local.String() }

// Ref is a reference to a resolved global definition.
type Ref struct {
	TermNode
	ID   GlobalID
	Name string // qualified display name
}

func (t *Ref) term()          {}
func (t *Ref) String() string { return t.Name }

// Lam is a lambda abstraction.
type Lam struct {
	TermNode
	Param Local
	Body  Term
}

func (t *Lam) term() {}
func (t *Lam) String() string {
	return fmt.Sprintf("(%s) => %s", t.Param, t.Body)
}

// App is application. Explicit and implicit applications are uniform;
// the elaborator decides which arguments to insert.
type App struct {
	TermNode
	Fn  Term
	Arg Term
}

func (t *App) term() {}
func (t *App) String() string {
	return fmt.Sprintf("%s(%s)", t.Fn, t.Arg)
}

// Pi is the dependent function type. Implicit marks angle-bracket
// parameters inserted by the elaborator at application sites.
type Pi struct {
	TermNode
	Param    Local
	ParamTy  Term
	Body     Term
	Implicit bool
}

func (t *Pi) term() {}
func (t *Pi) String() string {
	if t.Implicit {
		return fmt.Sprintf("<%s: %s> -> %s", t.Param, t.ParamTy, t.Body)
	}
	return fmt.Sprintf("(%s: %s) -> %s", t.Param, t.ParamTy, t.Body)
}

// Univ is the universe `type`.
type Univ struct {
	TermNode
}

func (t *Univ) term()          {}
func (t *Univ) String() string { return "type" }

// RowUniv classifies rows; it is the annotation of implicit row
// parameters, never a user-visible type.
type RowUniv struct {
	TermNode
}

func (t *RowUniv) term()          {}
func (t *RowUniv) String() string { return "row" }

// RecTy is the record type former over a row.
type RecTy struct {
	TermNode
	Row Row
}

func (t *RecTy) term()          {}
func (t *RecTy) String() string { return "{" + rowBody(t.Row, ", ") + "}" }

// VarTy is the variant (sum) type former over a row.
type VarTy struct {
	TermNode
	Row Row
}

func (t *VarTy) term()          {}
func (t *VarTy) String() string { return "[" + rowBody(t.Row, " | ") + "]" }

// TermField is one labelled component of a record literal.
type TermField struct {
	Label string
	Value Term
}

// RecLit is record introduction. Fields are kept label-sorted so
// printing and structural comparison are deterministic.
type RecLit struct {
	TermNode
	Fields []TermField
}

func (t *RecLit) term() {}
func (t *RecLit) String() string {
	parts := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		parts[i] = fmt.Sprintf("%s: %s", f.Label, f.Value)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// SortFields sorts record literal fields by label in place.
func (t *RecLit) SortFields() {
	sort.Slice(t.Fields, func(i, j int) bool { return t.Fields[i].Label < t.Fields[j].Label })
}

// Field returns the value at a label, or nil.
func (t *RecLit) Field(label string) Term {
	for _, f := range t.Fields {
		if f.Label == label {
			return f.Value
		}
	}
	return nil
}

// RecProj is field access.
type RecProj struct {
	TermNode
	Rec   Term
	Label string
}

func (t *RecProj) term()          {}
func (t *RecProj) String() string { return fmt.Sprintf("%s.%s", t.Rec, t.Label) }

// RecConcat is row-level record composition `a ... b`.
type RecConcat struct {
	TermNode
	Left  Term
	Right Term
}

func (t *RecConcat) term()          {}
func (t *RecConcat) String() string { return fmt.Sprintf("%s ... %s", t.Left, t.Right) }

// RecCast widens a record to a supertype row `{...e}`.
type RecCast struct {
	TermNode
	Expr Term
}

func (t *RecCast) term()          {}
func (t *RecCast) String() string { return fmt.Sprintf("{...%s}", t.Expr) }

// VarIntro is variant construction.
type VarIntro struct {
	TermNode
	Label   string
	Payload Term // nil when the case carries no payload
}

func (t *VarIntro) term() {}
func (t *VarIntro) String() string {
	if t.Payload == nil {
		return t.Label
	}
	return fmt.Sprintf("%s(%s)", t.Label, t.Payload)
}

// VarCast widens a variant `[...e]`; unionify narrows through the same
// node with the direction decided by the checked type.
type VarCast struct {
	TermNode
	Expr Term
}

func (t *VarCast) term()          {}
func (t *VarCast) String() string { return fmt.Sprintf("[...%s]", t.Expr) }

// SwitchCase is one arm of a Switch. Binder is meaningful only when
// HasPayload is set.
type SwitchCase struct {
	Label      string
	HasPayload bool
	Binder     Local
	Body       Term
}

// Switch is the variant eliminator.
type Switch struct {
	TermNode
	Scrutinee Term
	Cases     []SwitchCase
}

func (t *Switch) term() {}
func (t *Switch) String() string {
	parts := make([]string, len(t.Cases))
	for i, c := range t.Cases {
		if c.HasPayload {
			parts[i] = fmt.Sprintf("case %s(%s): %s", c.Label, c.Binder, c.Body)
		} else {
			parts[i] = fmt.Sprintf("case %s: %s", c.Label, c.Body)
		}
	}
	return fmt.Sprintf("switch (%s) { %s }", t.Scrutinee, strings.Join(parts, "; "))
}

// Case returns the arm with the given label, or nil.
func (t *Switch) Case(label string) *SwitchCase {
	for i := range t.Cases {
		if t.Cases[i].Label == label {
			return &t.Cases[i]
		}
	}
	return nil
}

// Meta is a unification metavariable.
type Meta struct {
	TermNode
	ID int
}

func (t *Meta) term()          {}
func (t *Meta) String() string { return fmt.Sprintf("?%d", t.ID) }

// Hole is the user hole `?`. It exists only between parsing and
// elaboration entry, where it becomes a fresh Meta.
type Hole struct {
	TermNode
}

func (t *Hole) term()          {}
func (t *Hole) String() string { return "?" }

// OvRef is an unresolved interface-method reference. Carrier is the
// type (or constructor) in the interface's instance position; the
// dispatcher rewrites the node to a Ref once an implementation is
// chosen, or defers it as a predicate.
type OvRef struct {
	TermNode
	Interface     GlobalID
	InterfaceName string
	Method        string
	Carrier       Term
	KindArgs      []Term
}

func (t *OvRef) term() {}
func (t *OvRef) String() string {
	return fmt.Sprintf("%s::%s@%s", t.InterfaceName, t.Method, t.Carrier)
}

// PrimKind classifies primitive values.
type PrimKind int

const (
	PrimString PrimKind = iota
	PrimNumber
	PrimBigint
	PrimBool
	PrimUnit
)

// Prim is a primitive value: string, number, bigint (decimal string),
// boolean, or unit.
type Prim struct {
	TermNode
	Kind  PrimKind
	Value any
}

func (t *Prim) term() {}
func (t *Prim) String() string {
	switch t.Kind {
	case PrimString:
		return fmt.Sprintf("%q", t.Value)
	case PrimUnit:
		return "()"
	case PrimBigint:
		return fmt.Sprintf("%vn", t.Value)
	default:
		return fmt.Sprintf("%v", t.Value)
	}
}

// If is the boolean branch. It stays its own node through elaboration
// and is not rewritten into a Switch; Whnf reduces it once the
// condition is a boolean literal.
type If struct {
	TermNode
	Cond Term
	Then Term
	Else Term
}

func (t *If) term() {}
func (t *If) String() string {
	return fmt.Sprintf("if (%s) { %s } else { %s }", t.Cond, t.Then, t.Else)
}

// RowTerm wraps a row value in term position, so applications can pass
// row arguments through the same App spine as type arguments.
type RowTerm struct {
	TermNode
	Row Row
}

func (t *RowTerm) term()          {}
func (t *RowTerm) String() string { return "'(" + rowBody(t.Row, ", ") + ")" }
