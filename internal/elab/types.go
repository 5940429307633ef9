package elab

import (
	"fmt"

	"github.com/kirraObj-s-archives/rowscript/internal/ast"
	"github.com/kirraObj-s-archives/rowscript/internal/core"
	rerr "github.com/kirraObj-s-archives/rowscript/internal/errors"
	"github.com/kirraObj-s-archives/rowscript/internal/resolve"
)

// elabType converts a surface type into a core term with its kind.
// Errors are wrapped reports; unknown names were already reported by
// the resolver and elaborate into metas to limit cascades.
func (c *Checker) elabType(t ast.Type) (core.Term, core.Kind, error) {
	switch ty := t.(type) {
	case *ast.NamedType:
		return c.namedType(ty)

	case *ast.FuncType:
		mark := c.mark()
		defer c.popTo(mark)
		type pp struct {
			local core.Local
			ty    core.Term
		}
		var params []pp
		for _, p := range ty.Params {
			if p.Type == nil {
				return nil, core.KindType, c.typeErr(rerr.TC003,
					fmt.Sprintf("parameter %s needs a type", p.Name), ty.Pos)
			}
			pt, _, err := c.elabType(p.Type)
			if err != nil {
				return nil, core.KindType, err
			}
			local := c.fresh(p.Name)
			params = append(params, pp{local, pt})
			c.bind(binding{name: p.Name, local: local, ty: pt})
		}
		ret, _, err := c.elabType(ty.Ret)
		if err != nil {
			return nil, core.KindType, err
		}
		out := ret
		for i := len(params) - 1; i >= 0; i-- {
			out = &core.Pi{Param: params[i].local, ParamTy: params[i].ty, Body: out}
		}
		if len(params) == 0 {
			// Zero-parameter function type: a unit-domain Pi.
			out = &core.Pi{Param: c.fresh(""), ParamTy: c.builtinTy(resolve.BuiltinUnit), Body: ret}
		}
		return out, core.KindType, nil

	case *ast.RecordType:
		row, err := c.rowOf(ty.Fields, ty.Row, true, ty.Pos)
		if err != nil {
			return nil, core.KindType, err
		}
		return &core.RecTy{TermNode: core.TermNode{Src: ty.Pos}, Row: row}, core.KindType, nil

	case *ast.VariantType:
		row, err := c.rowOf(ty.Cases, ty.Row, false, ty.Pos)
		if err != nil {
			return nil, core.KindType, err
		}
		return &core.VarTy{TermNode: core.TermNode{Src: ty.Pos}, Row: row}, core.KindType, nil

	case *ast.RowRef:
		if b, ok := c.lookupScope("'" + ty.Name); ok && b.isRow {
			return &core.RowTerm{Row: &core.RowVar{Name: ty.Name, ID: b.rowID}}, core.KindRow, nil
		}
		// Already reported by the resolver; degrade to a fresh row.
		return &core.RowTerm{Row: c.store.FreshRow(ty.Pos)}, core.KindRow, nil

	case *ast.HoleType:
		return c.store.FreshMeta(&core.Univ{}, ty.Pos), core.KindType, nil
	}
	return nil, core.KindType, c.typeErr("INTERNAL", fmt.Sprintf("unknown type form %T", t), t.Position())
}

// rowOf elaborates record fields or variant cases into a row,
// appending the named row variable when present. payloadRequired
// distinguishes records (every label typed) from variants.
func (c *Checker) rowOf(fields []ast.TypeField, rowName string, payloadRequired bool, src ast.Pos) (core.Row, error) {
	var labels []core.Label
	seen := make(map[string]bool)
	for _, f := range fields {
		if seen[f.Label] {
			return nil, c.typeErr(rerr.ROW001, fmt.Sprintf("duplicate label %s", f.Label), src)
		}
		seen[f.Label] = true
		var lt core.Term
		if f.Type != nil {
			t, _, err := c.elabType(f.Type)
			if err != nil {
				return nil, err
			}
			lt = t
		} else if payloadRequired {
			return nil, c.typeErr(rerr.TC003, fmt.Sprintf("field %s needs a type", f.Label), src)
		}
		labels = append(labels, core.Label{Name: f.Label, Ty: lt})
	}
	var row core.Row = &core.RowLit{Labels: labels}
	if len(labels) == 0 {
		row = &core.RowEmpty{}
	}
	if rowName != "" {
		var tail core.Row
		if b, ok := c.lookupScope("'" + rowName); ok && b.isRow {
			tail = &core.RowVar{Name: rowName, ID: b.rowID}
		} else {
			tail = c.store.FreshRow(src)
		}
		row = &core.RowConcat{Left: row, Right: tail}
	}
	return row, nil
}

// namedType elaborates a (possibly applied) type reference.
func (c *Checker) namedType(ty *ast.NamedType) (core.Term, core.Kind, error) {
	// Scope first: implicit type parameters shadow globals.
	if b, ok := c.lookupScope(ty.Name); ok && len(ty.Segments) == 0 {
		if !b.isType {
			return nil, core.KindType, c.typeErr(rerr.KND001,
				fmt.Sprintf("%s is a value, not a type", ty.Name), ty.Pos)
		}
		return c.applyTypeArgs(&core.Var{TermNode: core.TermNode{Src: ty.Pos}, Local: b.local}, b.kind, ty)
	}

	target, ok := c.res.Target(ty)
	if !ok {
		// Unresolved; degrade to a meta.
		return c.store.FreshMeta(&core.Univ{}, ty.Pos), core.KindType, nil
	}
	switch target.Kind {
	case resolve.TargetBuiltin:
		if len(ty.Args) > 0 {
			return nil, core.KindType, c.typeErr(rerr.KND002,
				fmt.Sprintf("%s takes no type arguments", ty.Name), ty.Pos)
		}
		return c.builtinTy(target.Global.ID), core.KindType, nil
	case resolve.TargetGlobal:
		g := target.Global
		switch g.Cat {
		case resolve.CatType:
			sig, ok := c.sigs[g.ID]
			if !ok {
				return nil, core.KindType, c.depErr(g, ty.Pos)
			}
			ref := &core.Ref{TermNode: core.TermNode{Src: ty.Pos}, ID: g.ID, Name: g.QualName()}
			return c.applyTypeArgs(ref, sig.Kind, ty)
		case resolve.CatInterface:
			return nil, core.KindType, c.typeErr(rerr.KND001,
				fmt.Sprintf("interface %s is not a type", g.Name), ty.Pos)
		default:
			return nil, core.KindType, c.typeErr(rerr.KND001,
				fmt.Sprintf("%s is a %s, not a type", g.Name, g.Cat), ty.Pos)
		}
	case resolve.TargetUnknown:
		return c.store.FreshMeta(&core.Univ{}, ty.Pos), core.KindType, nil
	default:
		return nil, core.KindType, c.typeErr(rerr.KND001,
			fmt.Sprintf("%s cannot be used as a type", ty.Name), ty.Pos)
	}
}

// applyTypeArgs applies surface type arguments to a constructor head,
// checking arity against its kind.
func (c *Checker) applyTypeArgs(head core.Term, kind core.Kind, ty *ast.NamedType) (core.Term, core.Kind, error) {
	if kind.Row {
		return nil, core.KindType, c.typeErr(rerr.KND001,
			fmt.Sprintf("row parameter %s cannot head a type application", ty.Name), ty.Pos)
	}
	if len(ty.Args) > kind.Arity {
		return nil, core.KindType, c.typeErr(rerr.KND002,
			fmt.Sprintf("%s has kind %s but is applied to %d arguments", ty.Name, kind, len(ty.Args)), ty.Pos)
	}
	out := head
	for _, a := range ty.Args {
		at, ak, err := c.elabType(a)
		if err != nil {
			return nil, core.KindType, err
		}
		if !ak.Equal(core.KindType) {
			return nil, core.KindType, c.typeErr(rerr.KND001,
				fmt.Sprintf("type argument %s has kind %s, want type", a, ak), ty.Pos)
		}
		out = &core.App{Fn: out, Arg: at}
	}
	return out, core.KindArrow(kind.Arity - len(ty.Args)), nil
}

// termKind computes the kind of an elaborated type term.
func (c *Checker) termKind(t core.Term) core.Kind {
	switch term := core.Whnf(t, c.store).(type) {
	case *core.Var:
		for i := len(c.scopes) - 1; i >= 0; i-- {
			if c.scopes[i].isType && c.scopes[i].local.ID == term.Local.ID {
				return c.scopes[i].kind
			}
		}
		return core.KindType
	case *core.Ref:
		if sig, ok := c.sigs[term.ID]; ok && sig.Cat == resolve.CatType {
			return sig.Kind
		}
		return core.KindType
	case *core.App:
		k := c.termKind(term.Fn)
		if k.Arity > 0 {
			return core.KindArrow(k.Arity - 1)
		}
		return core.KindType
	case *core.RowTerm:
		return core.KindRow
	default:
		return core.KindType
	}
}

// builtinTy builds a reference to a builtin type global.
func (c *Checker) builtinTy(id core.GlobalID) core.Term {
	g := c.res.Table.Get(id)
	return &core.Ref{ID: id, Name: g.Name}
}

func (c *Checker) typeErr(code, msg string, src ast.Pos) error {
	rep := rerr.New(code, msg, &ast.Span{Start: src, End: src})
	if c.currentDef != "" {
		rep = rep.WithDef(c.currentDef)
	}
	return rerr.Wrap(rep)
}

func (c *Checker) depErr(g *resolve.Global, src ast.Pos) error {
	return c.typeErr(rerr.DEP002,
		fmt.Sprintf("%s failed to elaborate and is opaque here", g.QualName()), src)
}
