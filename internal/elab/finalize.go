package elab

import (
	"fmt"

	"github.com/kirraObj-s-archives/rowscript/internal/core"
	rerr "github.com/kirraObj-s-archives/rowscript/internal/errors"
)

// Zonking and the final pass. zonk applies the accumulated meta and
// row substitution throughout a term; finalize then sweeps the emitted
// module for anything the per-definition settlement missed.

// zonk deeply applies the current substitution. Rows are
// re-canonicalised so the output is deterministic.
func (c *Checker) zonk(t core.Term) core.Term {
	if t == nil {
		return nil
	}
	switch term := t.(type) {
	case *core.Meta:
		if sol, ok := c.store.SolveMeta(term.ID); ok {
			return c.zonk(sol)
		}
		return term
	case *core.Var, *core.Ref, *core.Univ, *core.RowUniv, *core.Prim, *core.Hole:
		return term
	case *core.Lam:
		return &core.Lam{TermNode: term.TermNode, Param: term.Param, Body: c.zonk(term.Body)}
	case *core.App:
		return &core.App{TermNode: term.TermNode, Fn: c.zonk(term.Fn), Arg: c.zonk(term.Arg)}
	case *core.Pi:
		return &core.Pi{TermNode: term.TermNode, Param: term.Param,
			ParamTy: c.zonk(term.ParamTy), Body: c.zonk(term.Body), Implicit: term.Implicit}
	case *core.RecTy:
		return &core.RecTy{TermNode: term.TermNode, Row: c.zonkRow(term.Row)}
	case *core.VarTy:
		return &core.VarTy{TermNode: term.TermNode, Row: c.zonkRow(term.Row)}
	case *core.RecLit:
		out := &core.RecLit{TermNode: term.TermNode}
		for _, f := range term.Fields {
			out.Fields = append(out.Fields, core.TermField{Label: f.Label, Value: c.zonk(f.Value)})
		}
		return out
	case *core.RecProj:
		return &core.RecProj{TermNode: term.TermNode, Rec: c.zonk(term.Rec), Label: term.Label}
	case *core.RecConcat:
		return &core.RecConcat{TermNode: term.TermNode, Left: c.zonk(term.Left), Right: c.zonk(term.Right)}
	case *core.RecCast:
		return &core.RecCast{TermNode: term.TermNode, Expr: c.zonk(term.Expr)}
	case *core.VarIntro:
		return &core.VarIntro{TermNode: term.TermNode, Label: term.Label, Payload: c.zonk(term.Payload)}
	case *core.VarCast:
		return &core.VarCast{TermNode: term.TermNode, Expr: c.zonk(term.Expr)}
	case *core.Switch:
		out := &core.Switch{TermNode: term.TermNode, Scrutinee: c.zonk(term.Scrutinee)}
		for _, cs := range term.Cases {
			out.Cases = append(out.Cases, core.SwitchCase{
				Label:      cs.Label,
				HasPayload: cs.HasPayload,
				Binder:     cs.Binder,
				Body:       c.zonk(cs.Body),
			})
		}
		return out
	case *core.OvRef:
		out := &core.OvRef{TermNode: term.TermNode, Interface: term.Interface,
			InterfaceName: term.InterfaceName, Method: term.Method, Carrier: c.zonk(term.Carrier)}
		for _, a := range term.KindArgs {
			out.KindArgs = append(out.KindArgs, c.zonk(a))
		}
		return out
	case *core.If:
		return &core.If{TermNode: term.TermNode,
			Cond: c.zonk(term.Cond), Then: c.zonk(term.Then), Else: c.zonk(term.Else)}
	case *core.RowTerm:
		return &core.RowTerm{TermNode: term.TermNode, Row: c.zonkRow(term.Row)}
	default:
		return term
	}
}

// zonkRow expands solved row variables and restores the canonical
// sorted form.
func (c *Checker) zonkRow(r core.Row) core.Row {
	nf, err := core.Canon(r, c.store)
	if err != nil {
		// A duplicate label at this point was already reported where it
		// arose; keep the raw row for printing.
		return r
	}
	for i := range nf.Labels {
		nf.Labels[i].Ty = c.zonk(nf.Labels[i].Ty)
	}
	return nf.Row()
}

// finalize runs after all definitions have been processed. Call-site
// predicates are discharged now that every implementation is
// registered, overloaded references are rewritten, every stored term
// gets the final substitution, and any remaining metavariable or
// unresolved overloaded reference in a definition that had not already
// failed is reported.
func (c *Checker) finalize() {
	c.settleObligations()

	// Reports filed during settlement mark their definitions failed.
	for _, name := range c.bag.FailedDefs() {
		for _, g := range c.res.Table.All() {
			if g.Name == name {
				c.failed[g.ID] = true
			}
		}
	}

	for _, p := range c.pending {
		def := &c.module.Defs[p.index]
		if c.failed[p.global.ID] {
			def.Body = c.zonk(def.Body)
			def.Type = c.zonk(def.Type)
			continue
		}
		c.currentDef = def.Name
		c.preds = p.preds

		before := c.bag.Len()
		def.Body = c.resolveOvRefs(c.zonk(def.Body))
		def.Type = c.zonk(def.Type)
		if c.bag.Len() > before {
			c.failed[p.global.ID] = true
		} else {
			c.sweep(def.Body, def.Type)
			if c.bag.Len() > before {
				c.failed[p.global.ID] = true
			}
		}

		c.preds = nil
		c.currentDef = ""
	}
}

// sweep reports leftover metas and concrete-carrier overloads in
// zonked terms. One report per definition per kind keeps the batch
// readable.
func (c *Checker) sweep(terms ...core.Term) {
	var metaSeen, ovSeen bool
	var walk func(core.Term)
	walkRow := func(r core.Row) {
		if r == nil {
			return
		}
		if nf, err := core.Canon(r, c.store); err == nil {
			for _, l := range nf.Labels {
				walk(l.Ty)
			}
		}
	}
	walk = func(t core.Term) {
		switch term := t.(type) {
		case nil:
			return
		case *core.Meta:
			if _, solved := c.store.SolveMeta(term.ID); !solved && !metaSeen {
				metaSeen = true
				c.report(rerr.FIN001,
					fmt.Sprintf("unresolved metavariable ?%d", term.ID), c.store.MetaSrc(term.ID))
			}
		case *core.OvRef:
			if !ovSeen {
				ovSeen = true
				c.report(rerr.FIN002,
					fmt.Sprintf("undischarged reference %s::%s", term.InterfaceName, term.Method), term.Pos())
			}
		case *core.Lam:
			walk(term.Body)
		case *core.App:
			walk(term.Fn)
			walk(term.Arg)
		case *core.Pi:
			walk(term.ParamTy)
			walk(term.Body)
		case *core.RecTy:
			walkRow(term.Row)
		case *core.VarTy:
			walkRow(term.Row)
		case *core.RecLit:
			for _, f := range term.Fields {
				walk(f.Value)
			}
		case *core.RecProj:
			walk(term.Rec)
		case *core.RecConcat:
			walk(term.Left)
			walk(term.Right)
		case *core.RecCast:
			walk(term.Expr)
		case *core.VarIntro:
			walk(term.Payload)
		case *core.VarCast:
			walk(term.Expr)
		case *core.Switch:
			walk(term.Scrutinee)
			for _, cs := range term.Cases {
				walk(cs.Body)
			}
		case *core.If:
			walk(term.Cond)
			walk(term.Then)
			walk(term.Else)
		case *core.RowTerm:
			walkRow(term.Row)
		}
	}
	for _, t := range terms {
		walk(t)
	}
}
