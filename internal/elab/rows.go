package elab

import (
	"fmt"

	"github.com/kirraObj-s-archives/rowscript/internal/ast"
	"github.com/kirraObj-s-archives/rowscript/internal/core"
	rerr "github.com/kirraObj-s-archives/rowscript/internal/errors"
)

// Row constraint solving. Failures come in two flavours: definite
// (incompatible literal labels or types) and stuck (not enough
// information yet). Stuck constraints are recorded by the caller and
// retried once more metas are solved; survivors join the definition's
// predicate set when they only mention its own rigid row parameters.

// stuckError marks a constraint that cannot be decided yet.
type stuckError struct {
	msg string
}

func (e *stuckError) Error() string { return e.msg }

// IsStuck reports whether an error is a stuck constraint rather than a
// definite failure.
func IsStuck(err error) bool {
	_, ok := err.(*stuckError)
	return ok
}

func stuck(format string, args ...any) error {
	return &stuckError{msg: fmt.Sprintf(format, args...)}
}

// RowConstraint is one deferred row obligation.
type RowConstraint struct {
	// Op is "=" or "<:" with Left op Right.
	Op    string
	Left  core.Row
	Right core.Row
	Src   ast.Pos
}

func (rc RowConstraint) String() string {
	return fmt.Sprintf("%s %s %s", rc.Left, rc.Op, rc.Right)
}

// unifyRows solves r1 = r2, mutating the store. The rows are first
// canonicalised (solved variables expanded, literal fragments merged
// and sorted), shared labels are stripped with their types unified,
// common variables cancelled, and the remainders matched against the
// flexible tails.
func (c *Checker) unifyRows(r1, r2 core.Row, src ast.Pos) error {
	nf1, err := core.Canon(r1, c.store)
	if err != nil {
		return c.rowFail(rerr.ROW001, err.Error(), src)
	}
	nf2, err := core.Canon(r2, c.store)
	if err != nil {
		return c.rowFail(rerr.ROW001, err.Error(), src)
	}

	only1, only2, err := c.stripShared(nf1, nf2, src)
	if err != nil {
		return err
	}
	vars1, vars2 := cancelVars(nf1.Vars, nf2.Vars)

	switch {
	case len(vars1) == 0 && len(vars2) == 0:
		if len(only1) > 0 || len(only2) > 0 {
			return c.rowFail(rerr.ROW002,
				fmt.Sprintf("rows differ: {%s} vs {%s}", labelNames(only1), labelNames(only2)), src)
		}
		return nil

	case len(vars2) == 0:
		// All of r2 is literal; r1's tail must supply only2 and only1
		// must be empty.
		if len(only1) > 0 {
			return c.rowFail(rerr.ROW002,
				fmt.Sprintf("labels {%s} not present in closed row", labelNames(only1)), src)
		}
		return c.solveTail(vars1, core.NF{Labels: only2}, src)

	case len(vars1) == 0:
		if len(only2) > 0 {
			return c.rowFail(rerr.ROW002,
				fmt.Sprintf("labels {%s} not present in closed row", labelNames(only2)), src)
		}
		return c.solveTail(vars2, core.NF{Labels: only1}, src)

	default:
		// Both sides keep variables. With a single flexible variable on
		// each side the principal unifier routes each remainder through
		// a fresh shared rest variable.
		f1, ok1 := c.loneFlexible(vars1)
		f2, ok2 := c.loneFlexible(vars2)
		if ok1 && ok2 {
			rest := c.store.FreshRow(src)
			c.store.AssignRow(f1.ID, core.NF{Labels: only2, Vars: []core.RowVar{*rest}}.Row())
			c.store.AssignRow(f2.ID, core.NF{Labels: only1, Vars: []core.RowVar{*rest}}.Row())
			return nil
		}
		if ok1 && len(only1) == 0 {
			return c.solveTail(vars1, core.NF{Labels: only2, Vars: vars2}, src)
		}
		if ok2 && len(only2) == 0 {
			return c.solveTail(vars2, core.NF{Labels: only1, Vars: vars1}, src)
		}
		return stuck("cannot solve row equation %s = %s", nf1, nf2)
	}
}

// stripShared unifies the types of labels present on both sides and
// returns each side's remaining labels.
func (c *Checker) stripShared(nf1, nf2 core.NF, src ast.Pos) (only1, only2 []core.Label, err error) {
	for _, l := range nf1.Labels {
		other, ok := nf2.Label(l.Name)
		if !ok {
			only1 = append(only1, l)
			continue
		}
		if l.Ty == nil && other == nil {
			continue
		}
		if l.Ty == nil || other == nil {
			return nil, nil, c.rowFail(rerr.ROW003,
				fmt.Sprintf("label %s is a payload case on one side only", l.Name), src)
		}
		if uerr := c.unify(l.Ty, other, src); uerr != nil {
			if IsStuck(uerr) {
				return nil, nil, uerr
			}
			return nil, nil, c.rowFail(rerr.ROW003,
				fmt.Sprintf("label %s: %s", l.Name, uerr), src)
		}
	}
	for _, l := range nf2.Labels {
		if _, ok := nf1.Label(l.Name); !ok {
			only2 = append(only2, l)
		}
	}
	return only1, only2, nil
}

// cancelVars removes variables common to both multisets.
func cancelVars(v1, v2 []core.RowVar) (out1, out2 []core.RowVar) {
	used := make(map[int]bool)
	for _, v := range v1 {
		found := false
		for j, w := range v2 {
			if !used[j] && w.ID == v.ID {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			out1 = append(out1, v)
		}
	}
	for j, w := range v2 {
		if !used[j] {
			out2 = append(out2, w)
		}
	}
	return out1, out2
}

// loneFlexible returns the single flexible variable when vars is
// exactly one solvable variable.
func (c *Checker) loneFlexible(vars []core.RowVar) (core.RowVar, bool) {
	if len(vars) == 1 && c.store.IsFlexible(vars[0].ID) {
		return vars[0], true
	}
	return core.RowVar{}, false
}

// solveTail assigns the remainder to the tail, which must be a single
// flexible variable; anything else is stuck (rigid variables cannot be
// solved, and multiple tails admit many unifiers).
func (c *Checker) solveTail(vars []core.RowVar, remainder core.NF, src ast.Pos) error {
	if v, ok := c.loneFlexible(vars); ok {
		row := remainder.Row()
		if c.store.occursRow(v.ID, row) {
			return c.rowFail(rerr.ROW003,
				fmt.Sprintf("row variable %s occurs in its own solution", v.String()), src)
		}
		c.store.AssignRow(v.ID, row)
		return nil
	}
	if remainder.Empty() && len(vars) == 0 {
		return nil
	}
	return stuck("row tail %v cannot absorb {%s}", vars, labelNames(remainder.Labels))
}

// subRow solves sub <: sup by introducing a fresh rest variable for
// "the rest of sup" and reducing to an equation: sub + rest = sup.
func (c *Checker) subRow(sub, sup core.Row, src ast.Pos) error {
	rest := c.store.FreshRow(src)
	return c.unifyRows(&core.RowConcat{Left: sub, Right: rest}, sup, src)
}

// concatRows forms r1 + r2, rejecting overlapping literal labels.
func (c *Checker) concatRows(r1, r2 core.Row, src ast.Pos) (core.Row, error) {
	nf1, err := core.Canon(r1, c.store)
	if err != nil {
		return nil, c.rowFail(rerr.ROW001, err.Error(), src)
	}
	nf2, err := core.Canon(r2, c.store)
	if err != nil {
		return nil, c.rowFail(rerr.ROW001, err.Error(), src)
	}
	for _, l := range nf1.Labels {
		if _, ok := nf2.Label(l.Name); ok {
			return nil, c.rowFail(rerr.ROW001,
				fmt.Sprintf("label %s on both sides of a concatenation", l.Name), src)
		}
	}
	return &core.RowConcat{Left: nf1.Row(), Right: nf2.Row()}, nil
}

func (c *Checker) rowFail(code, msg string, src ast.Pos) error {
	rep := rerr.New(code, msg, &ast.Span{Start: src, End: src})
	if c.currentDef != "" {
		rep = rep.WithDef(c.currentDef)
	}
	return rerr.Wrap(rep)
}

func labelNames(labels []core.Label) string {
	out := ""
	for i, l := range labels {
		if i > 0 {
			out += ", "
		}
		out += l.Name
	}
	return out
}
