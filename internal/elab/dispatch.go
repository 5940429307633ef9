package elab

import (
	"fmt"

	"github.com/kirraObj-s-archives/rowscript/internal/ast"
	"github.com/kirraObj-s-archives/rowscript/internal/core"
	rerr "github.com/kirraObj-s-archives/rowscript/internal/errors"
)

// Predicate and overload resolution. An interface-method reference
// carries its carrier; when the carrier normalises to something
// concrete the reference is rewritten to a projection out of the
// unique matching implementation's dictionary. A carrier that is still
// an implicit parameter of the enclosing definition defers to that
// definition's own predicate set; a metavariable carrier waits until
// the definition's unification problems are settled.

// carrierHead names the head constructor of a carrier, the
// registration key of the emitted module. Aliases keep their name:
// only metas are resolved, nothing is unfolded.
func carrierHead(t core.Term, env core.Env) string {
	switch term := t.(type) {
	case *core.Ref:
		return term.Name
	case *core.App:
		return carrierHead(term.Fn, env)
	case *core.Meta:
		if env != nil {
			if sol, ok := env.SolveMeta(term.ID); ok {
				return carrierHead(sol, env)
			}
		}
		return "?"
	case *core.RecTy:
		return "{}"
	case *core.VarTy:
		return "[]"
	case *core.Pi:
		return "->"
	case *core.Lam:
		return carrierHead(term.Body, env)
	case *core.Var:
		return "'" + term.Local.String()
	default:
		return "?"
	}
}

// matchImpls returns the implementations of an interface whose carrier
// unifies with the given carrier, searched in declaration order. Trial
// unifications roll back; the caller re-unifies the winner.
func (c *Checker) matchImpls(iface core.GlobalID, carrier core.Term, src ast.Pos) []*ImplInfo {
	var matched []*ImplInfo
	for _, impl := range c.impls[iface] {
		mark := c.store.Mark()
		err := c.unify(carrier, impl.Carrier, src)
		c.store.Rollback(mark)
		if err == nil {
			matched = append(matched, impl)
		}
	}
	return matched
}

// wherePred finds a predicate of the current definition covering the
// carrier.
func (c *Checker) wherePred(iface core.GlobalID, carrier core.Term) *Pred {
	carrier = core.Whnf(carrier, c.store)
	for i := range c.preds {
		if c.preds[i].Iface != iface {
			continue
		}
		if core.Equal(c.preds[i].Carrier, carrier, c.store) {
			return &c.preds[i]
		}
	}
	return nil
}

// dischargePred attempts to produce the dictionary for a predicate.
// It returns (dict, true) when decided, (nil, false) when the carrier
// is still undetermined.
func (c *Checker) dischargePred(p Pred, src ast.Pos) (core.Term, bool, error) {
	carrier := core.Whnf(p.Carrier, c.store)

	switch carrier.(type) {
	case *core.Meta:
		return nil, false, nil
	case *core.Var:
		if local := c.wherePred(p.Iface, carrier); local != nil {
			return &core.Var{Local: local.Dict}, true, nil
		}
		return nil, true, c.typeErr(rerr.INS001,
			fmt.Sprintf("no instance for %s<%s>: the enclosing definition declares no such predicate", p.Name, carrier), src)
	}

	matched := c.matchImpls(p.Iface, carrier, src)
	switch len(matched) {
	case 1:
		// Keep the winner's unification (instantiates generics).
		if err := c.unify(carrier, matched[0].Carrier, src); err != nil {
			return nil, true, err
		}
		return &core.Ref{ID: matched[0].Global.ID, Name: matched[0].Global.QualName()}, true, nil
	case 0:
		return nil, true, c.typeErr(rerr.INS001,
			fmt.Sprintf("no instance for %s<%s>", p.Name, carrier), src)
	default:
		names := ""
		for i, m := range matched {
			if i > 0 {
				names += ", "
			}
			names += m.Global.QualName()
		}
		return nil, true, c.typeErr(rerr.INS002,
			fmt.Sprintf("ambiguous instance for %s<%s>: %s", p.Name, carrier, names), src)
	}
}

// settleObligations resolves the accumulated call-site predicates once
// every definition (and so every implementation) is registered. Each
// obligation's dictionary meta is solved to the chosen implementation
// or forwarded predicate binder. Runs in the finalizer.
func (c *Checker) settleObligations() {
	pending := c.allObligations
	c.allObligations = nil
	for {
		var next []obligation
		progress := false
		for _, ob := range pending {
			c.preds = ob.Preds
			c.currentDef = ob.Def
			dict, decided, err := c.dischargePred(ob.Pred, ob.Src)
			if err != nil {
				c.fail(err, ob.Src)
				continue
			}
			if !decided {
				next = append(next, ob)
				continue
			}
			progress = true
			if _, solved := c.store.SolveMeta(ob.DictMeta.ID); !solved {
				c.store.AssignMeta(ob.DictMeta.ID, dict)
			}
		}
		if len(next) == 0 {
			break
		}
		if !progress {
			for _, ob := range next {
				c.preds = ob.Preds
				c.currentDef = ob.Def
				c.report(rerr.FIN001,
					fmt.Sprintf("predicate %s has an undetermined carrier", ob.Pred), ob.Src)
			}
			break
		}
		pending = next
	}
	c.preds = nil
	c.currentDef = ""
}

// resolveOvRefs rewrites overloaded references in a fully zonked term.
// A carrier that is a where-bound parameter becomes a projection out of
// the predicate's dictionary binder; a concrete carrier is dispatched
// against the implementation table; anything still undetermined is
// reported.
func (c *Checker) resolveOvRefs(t core.Term) core.Term {
	if t == nil {
		return nil
	}
	switch term := t.(type) {
	case *core.OvRef:
		carrier := core.Whnf(term.Carrier, c.store)
		switch carrier.(type) {
		case *core.Meta:
			c.report(rerr.FIN001,
				fmt.Sprintf("cannot resolve %s::%s: carrier is undetermined", term.InterfaceName, term.Method), term.Pos())
			return term
		case *core.Var:
			if local := c.wherePred(term.Interface, carrier); local != nil {
				return &core.RecProj{
					TermNode: term.TermNode,
					Rec:      &core.Var{Local: local.Dict},
					Label:    term.Method,
				}
			}
			c.report(rerr.INS001,
				fmt.Sprintf("no instance for %s<%s> and no matching where clause", term.InterfaceName, carrier), term.Pos())
			return term
		}
		matched := c.matchImpls(term.Interface, carrier, term.Pos())
		switch len(matched) {
		case 1:
			if err := c.unify(carrier, matched[0].Carrier, term.Pos()); err != nil {
				c.fail(err, term.Pos())
				return term
			}
			return &core.RecProj{
				TermNode: term.TermNode,
				Rec:      &core.Ref{ID: matched[0].Global.ID, Name: matched[0].Global.QualName()},
				Label:    term.Method,
			}
		case 0:
			c.report(rerr.INS001,
				fmt.Sprintf("no instance for %s<%s>", term.InterfaceName, carrier), term.Pos())
			return term
		default:
			names := ""
			for i, m := range matched {
				if i > 0 {
					names += ", "
				}
				names += m.Global.QualName()
			}
			c.report(rerr.INS002,
				fmt.Sprintf("ambiguous instance for %s<%s>: %s", term.InterfaceName, carrier, names), term.Pos())
			return term
		}

	case *core.Lam:
		return &core.Lam{TermNode: term.TermNode, Param: term.Param, Body: c.resolveOvRefs(term.Body)}
	case *core.App:
		return &core.App{TermNode: term.TermNode, Fn: c.resolveOvRefs(term.Fn), Arg: c.resolveOvRefs(term.Arg)}
	case *core.Pi:
		return &core.Pi{TermNode: term.TermNode, Param: term.Param,
			ParamTy: c.resolveOvRefs(term.ParamTy), Body: c.resolveOvRefs(term.Body), Implicit: term.Implicit}
	case *core.RecLit:
		out := &core.RecLit{TermNode: term.TermNode}
		for _, f := range term.Fields {
			out.Fields = append(out.Fields, core.TermField{Label: f.Label, Value: c.resolveOvRefs(f.Value)})
		}
		return out
	case *core.RecProj:
		return &core.RecProj{TermNode: term.TermNode, Rec: c.resolveOvRefs(term.Rec), Label: term.Label}
	case *core.RecConcat:
		return &core.RecConcat{TermNode: term.TermNode, Left: c.resolveOvRefs(term.Left), Right: c.resolveOvRefs(term.Right)}
	case *core.RecCast:
		return &core.RecCast{TermNode: term.TermNode, Expr: c.resolveOvRefs(term.Expr)}
	case *core.VarIntro:
		return &core.VarIntro{TermNode: term.TermNode, Label: term.Label, Payload: c.resolveOvRefs(term.Payload)}
	case *core.VarCast:
		return &core.VarCast{TermNode: term.TermNode, Expr: c.resolveOvRefs(term.Expr)}
	case *core.Switch:
		out := &core.Switch{TermNode: term.TermNode, Scrutinee: c.resolveOvRefs(term.Scrutinee)}
		for _, cs := range term.Cases {
			out.Cases = append(out.Cases, core.SwitchCase{
				Label:      cs.Label,
				HasPayload: cs.HasPayload,
				Binder:     cs.Binder,
				Body:       c.resolveOvRefs(cs.Body),
			})
		}
		return out
	case *core.If:
		return &core.If{TermNode: term.TermNode,
			Cond: c.resolveOvRefs(term.Cond),
			Then: c.resolveOvRefs(term.Then),
			Else: c.resolveOvRefs(term.Else)}
	default:
		return t
	}
}
