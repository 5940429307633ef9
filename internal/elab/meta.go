// Package elab implements the elaborator: bidirectional checking of
// surface definitions into core terms, unification with a flat meta
// store, row constraint solving, and interface dispatch with deferred
// predicates.
package elab

import (
	"fmt"

	"github.com/kirraObj-s-archives/rowscript/internal/ast"
	"github.com/kirraObj-s-archives/rowscript/internal/core"
)

// metaEntry is one metavariable. Solution is nil while unsolved.
type metaEntry struct {
	Solution core.Term
	Ty       core.Term // expected type, when known
	Src      ast.Pos
}

// rowEntry is one row variable in the arena. Rigid variables are bound
// by implicit parameters and never solved; flexible ones are inserted
// by the elaborator and solvable.
type rowEntry struct {
	Name     string
	Flexible bool
	Solution core.Row
	Src      ast.Pos
}

// Store is the flat meta store plus the row-variable arena. It grows
// monotonically per definition and is kept alive for zonking; a new
// Store starts an independent compilation.
type Store struct {
	metas []metaEntry
	rows  []rowEntry

	// trail records assignments for speculative unification (instance
	// matching tries candidates and rolls back the losers).
	trail []trailEntry

	// unfold resolves transparent globals (type aliases); set by the
	// Checker once signatures exist.
	unfold func(core.GlobalID) (core.Term, bool)
}

type trailEntry struct {
	row bool
	id  int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// FreshMeta allocates a metavariable with an optional expected type.
func (s *Store) FreshMeta(ty core.Term, src ast.Pos) *core.Meta {
	id := len(s.metas)
	s.metas = append(s.metas, metaEntry{Ty: ty, Src: src})
	return &core.Meta{TermNode: core.TermNode{Src: src}, ID: id}
}

// FreshRow allocates a flexible row variable.
func (s *Store) FreshRow(src ast.Pos) *core.RowVar {
	id := len(s.rows)
	s.rows = append(s.rows, rowEntry{Flexible: true, Src: src})
	return &core.RowVar{ID: id}
}

// RigidRow allocates a rigid row variable for an implicit parameter.
func (s *Store) RigidRow(name string, src ast.Pos) *core.RowVar {
	id := len(s.rows)
	s.rows = append(s.rows, rowEntry{Name: name, Src: src})
	return &core.RowVar{Name: name, ID: id}
}

// IsFlexible reports whether a row variable is solvable.
func (s *Store) IsFlexible(id int) bool {
	return id >= 0 && id < len(s.rows) && s.rows[id].Flexible
}

// SolveMeta implements core.Env.
func (s *Store) SolveMeta(id int) (core.Term, bool) {
	if id < 0 || id >= len(s.metas) || s.metas[id].Solution == nil {
		return nil, false
	}
	return s.metas[id].Solution, true
}

// SolveRow implements core.RowLookup.
func (s *Store) SolveRow(id int) (core.Row, bool) {
	if id < 0 || id >= len(s.rows) || s.rows[id].Solution == nil {
		return nil, false
	}
	return s.rows[id].Solution, true
}

// Unfold implements core.Env.
func (s *Store) Unfold(id core.GlobalID) (core.Term, bool) {
	if s.unfold == nil {
		return nil, false
	}
	return s.unfold(id)
}

// AssignMeta records a solution. The caller has already run the occurs
// check; double assignment is a solver bug.
func (s *Store) AssignMeta(id int, t core.Term) {
	if s.metas[id].Solution != nil {
		panic(fmt.Sprintf("meta ?%d assigned twice", id))
	}
	s.metas[id].Solution = t
	s.trail = append(s.trail, trailEntry{id: id})
}

// AssignRow records a row solution for a flexible variable.
func (s *Store) AssignRow(id int, r core.Row) {
	if !s.rows[id].Flexible {
		panic(fmt.Sprintf("rigid row variable '%s assigned", s.rows[id].Name))
	}
	if s.rows[id].Solution != nil {
		panic(fmt.Sprintf("row variable ρ%d assigned twice", id))
	}
	s.rows[id].Solution = r
	s.trail = append(s.trail, trailEntry{row: true, id: id})
}

// Mark returns a snapshot position for speculative unification.
func (s *Store) Mark() int {
	return len(s.trail)
}

// Rollback undoes every assignment made after the mark.
func (s *Store) Rollback(mark int) {
	for i := len(s.trail) - 1; i >= mark; i-- {
		e := s.trail[i]
		if e.row {
			s.rows[e.id].Solution = nil
		} else {
			s.metas[e.id].Solution = nil
		}
	}
	s.trail = s.trail[:mark]
}

// MetaCount returns the number of allocated metas.
func (s *Store) MetaCount() int { return len(s.metas) }

// MetaSrc returns the source position a meta was created at.
func (s *Store) MetaSrc(id int) ast.Pos { return s.metas[id].Src }

// occursMeta reports whether meta id occurs in t (after resolving
// solved metas and rows).
func (s *Store) occursMeta(id int, t core.Term) bool {
	switch term := t.(type) {
	case nil:
		return false
	case *core.Meta:
		if sol, ok := s.SolveMeta(term.ID); ok {
			return s.occursMeta(id, sol)
		}
		return term.ID == id
	case *core.Var, *core.Ref, *core.Univ, *core.RowUniv, *core.Prim, *core.Hole:
		return false
	case *core.Lam:
		return s.occursMeta(id, term.Body)
	case *core.App:
		return s.occursMeta(id, term.Fn) || s.occursMeta(id, term.Arg)
	case *core.Pi:
		return s.occursMeta(id, term.ParamTy) || s.occursMeta(id, term.Body)
	case *core.RecTy:
		return s.occursRowMeta(id, term.Row)
	case *core.VarTy:
		return s.occursRowMeta(id, term.Row)
	case *core.RecLit:
		for _, f := range term.Fields {
			if s.occursMeta(id, f.Value) {
				return true
			}
		}
		return false
	case *core.RecProj:
		return s.occursMeta(id, term.Rec)
	case *core.RecConcat:
		return s.occursMeta(id, term.Left) || s.occursMeta(id, term.Right)
	case *core.RecCast:
		return s.occursMeta(id, term.Expr)
	case *core.VarIntro:
		return s.occursMeta(id, term.Payload)
	case *core.VarCast:
		return s.occursMeta(id, term.Expr)
	case *core.Switch:
		if s.occursMeta(id, term.Scrutinee) {
			return true
		}
		for _, c := range term.Cases {
			if s.occursMeta(id, c.Body) {
				return true
			}
		}
		return false
	case *core.OvRef:
		if s.occursMeta(id, term.Carrier) {
			return true
		}
		for _, a := range term.KindArgs {
			if s.occursMeta(id, a) {
				return true
			}
		}
		return false
	case *core.If:
		return s.occursMeta(id, term.Cond) || s.occursMeta(id, term.Then) || s.occursMeta(id, term.Else)
	case *core.RowTerm:
		return s.occursRowMeta(id, term.Row)
	default:
		return false
	}
}

func (s *Store) occursRowMeta(id int, r core.Row) bool {
	switch row := r.(type) {
	case nil, *core.RowEmpty:
		return false
	case *core.RowVar:
		if sol, ok := s.SolveRow(row.ID); ok {
			return s.occursRowMeta(id, sol)
		}
		return false
	case *core.RowLit:
		for _, l := range row.Labels {
			if s.occursMeta(id, l.Ty) {
				return true
			}
		}
		return false
	case *core.RowConcat:
		return s.occursRowMeta(id, row.Left) || s.occursRowMeta(id, row.Right)
	default:
		return false
	}
}

// occursRow reports whether row variable id occurs in r.
func (s *Store) occursRow(id int, r core.Row) bool {
	switch row := r.(type) {
	case nil, *core.RowEmpty:
		return false
	case *core.RowVar:
		if sol, ok := s.SolveRow(row.ID); ok {
			return s.occursRow(id, sol)
		}
		return row.ID == id
	case *core.RowLit:
		for _, l := range row.Labels {
			if s.termHasRow(id, l.Ty) {
				return true
			}
		}
		return false
	case *core.RowConcat:
		return s.occursRow(id, row.Left) || s.occursRow(id, row.Right)
	default:
		return false
	}
}

func (s *Store) termHasRow(id int, t core.Term) bool {
	switch term := t.(type) {
	case nil:
		return false
	case *core.RecTy:
		return s.occursRow(id, term.Row)
	case *core.VarTy:
		return s.occursRow(id, term.Row)
	case *core.RowTerm:
		return s.occursRow(id, term.Row)
	case *core.Meta:
		if sol, ok := s.SolveMeta(term.ID); ok {
			return s.termHasRow(id, sol)
		}
		return false
	case *core.App:
		return s.termHasRow(id, term.Fn) || s.termHasRow(id, term.Arg)
	case *core.Pi:
		return s.termHasRow(id, term.ParamTy) || s.termHasRow(id, term.Body)
	case *core.Lam:
		return s.termHasRow(id, term.Body)
	default:
		return false
	}
}
