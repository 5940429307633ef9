package elab

import (
	"fmt"

	"github.com/kirraObj-s-archives/rowscript/internal/ast"
	"github.com/kirraObj-s-archives/rowscript/internal/core"
	rerr "github.com/kirraObj-s-archives/rowscript/internal/errors"
)

// unify solves t1 = t2 in the pattern fragment, mutating the meta
// store. Both sides are weak-head normalised first; solved metas and
// transparent aliases disappear before heads are compared.
func (c *Checker) unify(t1, t2 core.Term, src ast.Pos) error {
	t1 = core.Whnf(t1, c.store)
	t2 = core.Whnf(t2, c.store)

	// Metas first: solve or link.
	if m1, ok := t1.(*core.Meta); ok {
		if m2, ok2 := t2.(*core.Meta); ok2 && m1.ID == m2.ID {
			return nil
		}
		return c.solveMeta(m1, t2, src)
	}
	if m2, ok := t2.(*core.Meta); ok {
		return c.solveMeta(m2, t1, src)
	}

	switch a := t1.(type) {
	case *core.Var:
		if b, ok := t2.(*core.Var); ok && a.Local.ID == b.Local.ID {
			return nil
		}
	case *core.Ref:
		if b, ok := t2.(*core.Ref); ok && a.ID == b.ID {
			return nil
		}
	case *core.Univ:
		if _, ok := t2.(*core.Univ); ok {
			return nil
		}
	case *core.RowUniv:
		if _, ok := t2.(*core.RowUniv); ok {
			return nil
		}
	case *core.Prim:
		if b, ok := t2.(*core.Prim); ok && a.Kind == b.Kind && a.Value == b.Value {
			return nil
		}
	case *core.Pi:
		if b, ok := t2.(*core.Pi); ok && a.Implicit == b.Implicit {
			if err := c.unify(a.ParamTy, b.ParamTy, src); err != nil {
				return err
			}
			// Compare bodies at a shared variable.
			v := &core.Var{Local: a.Param}
			body2 := core.Bind1(b.Param, v).Term(b.Body)
			return c.unify(a.Body, body2, src)
		}
	case *core.Lam:
		if b, ok := t2.(*core.Lam); ok {
			v := &core.Var{Local: a.Param}
			body2 := core.Bind1(b.Param, v).Term(b.Body)
			return c.unify(a.Body, body2, src)
		}
	case *core.App:
		if b, ok := t2.(*core.App); ok {
			if err := c.unify(a.Fn, b.Fn, src); err != nil {
				return err
			}
			return c.unify(a.Arg, b.Arg, src)
		}
	case *core.RecTy:
		if b, ok := t2.(*core.RecTy); ok {
			return c.unifyRows(a.Row, b.Row, src)
		}
	case *core.VarTy:
		if b, ok := t2.(*core.VarTy); ok {
			return c.unifyRows(a.Row, b.Row, src)
		}
	case *core.RecLit:
		if b, ok := t2.(*core.RecLit); ok && len(a.Fields) == len(b.Fields) {
			for _, f := range a.Fields {
				other := b.Field(f.Label)
				if other == nil {
					return c.mismatch(t1, t2, src)
				}
				if err := c.unify(f.Value, other, src); err != nil {
					return err
				}
			}
			return nil
		}
	case *core.VarIntro:
		if b, ok := t2.(*core.VarIntro); ok && a.Label == b.Label {
			if a.Payload == nil && b.Payload == nil {
				return nil
			}
			if a.Payload != nil && b.Payload != nil {
				return c.unify(a.Payload, b.Payload, src)
			}
		}
	case *core.RecProj:
		if b, ok := t2.(*core.RecProj); ok && a.Label == b.Label {
			return c.unify(a.Rec, b.Rec, src)
		}
	case *core.RowTerm:
		if b, ok := t2.(*core.RowTerm); ok {
			return c.unifyRows(a.Row, b.Row, src)
		}
	case *core.OvRef:
		if b, ok := t2.(*core.OvRef); ok && a.Interface == b.Interface && a.Method == b.Method {
			return c.unify(a.Carrier, b.Carrier, src)
		}
	}

	// Heads that are still neutral on either side (stuck projections,
	// switches over neutral scrutinees, unresolved overloads) cannot be
	// decided yet.
	if isNeutral(t1) || isNeutral(t2) {
		return stuck("cannot decide %s = %s", t1, t2)
	}
	return c.mismatch(t1, t2, src)
}

// solveMeta assigns m := t after the occurs check.
func (c *Checker) solveMeta(m *core.Meta, t core.Term, src ast.Pos) error {
	if c.store.occursMeta(m.ID, t) {
		rep := rerr.New(rerr.TC002,
			fmt.Sprintf("metavariable ?%d occurs in its own solution %s", m.ID, t),
			&ast.Span{Start: src, End: src})
		if c.currentDef != "" {
			rep = rep.WithDef(c.currentDef)
		}
		return rerr.Wrap(rep)
	}
	c.store.AssignMeta(m.ID, t)
	return nil
}

func (c *Checker) mismatch(t1, t2 core.Term, src ast.Pos) error {
	rep := rerr.New(rerr.TC001,
		fmt.Sprintf("type mismatch: %s vs %s", t1, t2),
		&ast.Span{Start: src, End: src})
	if c.currentDef != "" {
		rep = rep.WithDef(c.currentDef)
	}
	return rerr.Wrap(rep)
}

// isNeutral reports whether the weak-head normal term is a stuck
// eliminator or unresolved overload. A bare rigid variable is not
// neutral: two distinct rigids are a definite mismatch, but an
// application blocked on one may still reduce after instantiation.
func isNeutral(t core.Term) bool {
	switch term := t.(type) {
	case *core.OvRef:
		return true
	case *core.App:
		return neutralHead(term.Fn)
	case *core.RecProj:
		return neutralHead(term.Rec)
	case *core.Switch:
		return neutralHead(term.Scrutinee)
	case *core.If:
		return neutralHead(term.Cond)
	default:
		return false
	}
}

func neutralHead(t core.Term) bool {
	if _, ok := t.(*core.Var); ok {
		return true
	}
	return isNeutral(t)
}
