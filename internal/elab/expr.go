package elab

import (
	"fmt"

	"github.com/kirraObj-s-archives/rowscript/internal/ast"
	"github.com/kirraObj-s-archives/rowscript/internal/core"
	rerr "github.com/kirraObj-s-archives/rowscript/internal/errors"
	"github.com/kirraObj-s-archives/rowscript/internal/resolve"
)

// Bidirectional elaboration: check pushes an expected type into the
// term, infer synthesises one. The two recurse into each other; the
// default check case is infer-then-unify.

// wantRowEq posts a row equation, deferring stuck constraints for the
// end-of-definition retry.
func (c *Checker) wantRowEq(r1, r2 core.Row, src ast.Pos) error {
	err := c.unifyRows(r1, r2, src)
	if err != nil && IsStuck(err) {
		c.rowDeferred = append(c.rowDeferred, RowConstraint{Op: "=", Left: r1, Right: r2, Src: src})
		return nil
	}
	return err
}

// wantSubRow posts sub <: sup the same way.
func (c *Checker) wantSubRow(sub, sup core.Row, src ast.Pos) error {
	err := c.subRow(sub, sup, src)
	if err != nil && IsStuck(err) {
		c.rowDeferred = append(c.rowDeferred, RowConstraint{Op: "<:", Left: sub, Right: sup, Src: src})
		return nil
	}
	return err
}

// recRowOf forces a term's type to be a record type and returns its
// row.
func (c *Checker) recRowOf(ty core.Term, src ast.Pos) (core.Row, error) {
	if rt, ok := core.Whnf(ty, c.store).(*core.RecTy); ok {
		return rt.Row, nil
	}
	row := c.store.FreshRow(src)
	if err := c.unify(ty, &core.RecTy{Row: row}, src); err != nil {
		return nil, err
	}
	return row, nil
}

// varRowOf is the variant counterpart.
func (c *Checker) varRowOf(ty core.Term, src ast.Pos) (core.Row, error) {
	if vt, ok := core.Whnf(ty, c.store).(*core.VarTy); ok {
		return vt.Row, nil
	}
	row := c.store.FreshRow(src)
	if err := c.unify(ty, &core.VarTy{Row: row}, src); err != nil {
		return nil, err
	}
	return row, nil
}

// ---------------------------------------------------------------------------
// check
// ---------------------------------------------------------------------------

func (c *Checker) check(e ast.Expr, expected core.Term) (core.Term, error) {
	switch ex := e.(type) {
	case *ast.Hole:
		return c.store.FreshMeta(expected, ex.Pos), nil

	case *ast.Lambda:
		return c.checkLambda(ex, expected)

	case *ast.Block:
		return c.checkBlock(ex, expected)

	case *ast.RecordLit:
		return c.checkRecordLit(ex, expected)

	case *ast.RecordCast:
		// Records widen by forgetting labels: the target row must be
		// contained in the value's row (the dual of variant widening).
		sup, err := c.recRowOf(expected, ex.Pos)
		if err != nil {
			return nil, err
		}
		inner, innerTy, err := c.infer(ex.Expr)
		if err != nil {
			return nil, err
		}
		row, err := c.recRowOf(innerTy, ex.Pos)
		if err != nil {
			return nil, err
		}
		if err := c.wantSubRow(sup, row, ex.Pos); err != nil {
			return nil, err
		}
		return &core.RecCast{TermNode: core.TermNode{Src: ex.Pos}, Expr: inner}, nil

	case *ast.VariantCast:
		sup, err := c.varRowOf(expected, ex.Pos)
		if err != nil {
			return nil, err
		}
		inner, innerTy, err := c.infer(ex.Expr)
		if err != nil {
			return nil, err
		}
		row, err := c.varRowOf(innerTy, ex.Pos)
		if err != nil {
			return nil, err
		}
		if err := c.wantSubRow(row, sup, ex.Pos); err != nil {
			return nil, err
		}
		return &core.VarCast{TermNode: core.TermNode{Src: ex.Pos}, Expr: inner}, nil

	case *ast.VariantLit:
		return c.checkVariantLit(ex, expected)

	case *ast.Switch:
		term, _, err := c.switchExpr(ex, expected)
		return term, err

	case *ast.If:
		cond, err := c.check(ex.Cond, c.builtinTy(resolve.BuiltinBoolean))
		if err != nil {
			return nil, err
		}
		then, err := c.check(ex.Then, expected)
		if err != nil {
			return nil, err
		}
		els, err := c.check(ex.Else, expected)
		if err != nil {
			return nil, err
		}
		return &core.If{TermNode: core.TermNode{Src: ex.Pos}, Cond: cond, Then: then, Else: els}, nil

	case *ast.Call:
		term, ty, err := c.call(ex, expected)
		if err != nil {
			return nil, err
		}
		if ty != nil {
			if err := c.unify(ty, expected, ex.Pos); err != nil {
				return nil, err
			}
		}
		return term, nil

	default:
		term, ty, err := c.infer(e)
		if err != nil {
			return nil, err
		}
		if err := c.unify(ty, expected, e.Position()); err != nil {
			return nil, err
		}
		return term, nil
	}
}

func (c *Checker) checkLambda(ex *ast.Lambda, expected core.Term) (core.Term, error) {
	mark := c.mark()
	defer c.popTo(mark)

	var locals []core.Local
	rest := expected
	for _, p := range ex.Params {
		pi, ok := core.Whnf(rest, c.store).(*core.Pi)
		if !ok {
			// Push a function shape through a meta.
			paramTy := c.store.FreshMeta(&core.Univ{}, p.Pos)
			retTy := c.store.FreshMeta(&core.Univ{}, p.Pos)
			pi = &core.Pi{Param: c.fresh(p.Name), ParamTy: paramTy, Body: retTy}
			if err := c.unify(rest, pi, p.Pos); err != nil {
				return nil, err
			}
		}
		paramTy := pi.ParamTy
		if p.Type != nil {
			annot, _, err := c.elabType(p.Type)
			if err != nil {
				return nil, err
			}
			if err := c.unify(annot, paramTy, p.Pos); err != nil {
				return nil, err
			}
		}
		local := c.fresh(p.Name)
		locals = append(locals, local)
		c.bind(binding{name: p.Name, local: local, ty: paramTy})
		rest = core.Bind1(pi.Param, &core.Var{Local: local}).Term(pi.Body)
	}

	body, err := c.check(ex.Body, rest)
	if err != nil {
		return nil, err
	}
	out := body
	for i := len(locals) - 1; i >= 0; i-- {
		out = &core.Lam{TermNode: core.TermNode{Src: ex.Pos}, Param: locals[i], Body: out}
	}
	return out, nil
}

// checkRecordLit elaborates a record literal against an expected record
// type. Fields present in the known part of the expected row check
// against their types; the literal's full row is then equated with the
// expected row, which fills open tails and rejects label mismatches.
func (c *Checker) checkRecordLit(ex *ast.RecordLit, expected core.Term) (core.Term, error) {
	row, err := c.recRowOf(expected, ex.Pos)
	if err != nil {
		return nil, err
	}
	nf, cerr := core.Canon(row, c.store)
	if cerr != nil {
		return nil, c.rowFail(rerr.ROW001, cerr.Error(), ex.Pos)
	}

	lit := &core.RecLit{TermNode: core.TermNode{Src: ex.Pos}}
	var labels []core.Label
	for _, f := range ex.Fields {
		var value core.Term
		var fieldTy core.Term
		if want, ok := nf.Label(f.Label); ok {
			value, err = c.check(f.Value, want)
			fieldTy = want
		} else {
			value, fieldTy, err = c.infer(f.Value)
		}
		if err != nil {
			return nil, err
		}
		lit.Fields = append(lit.Fields, core.TermField{Label: f.Label, Value: value})
		labels = append(labels, core.Label{Name: f.Label, Ty: fieldTy})
	}
	lit.SortFields()
	if err := c.wantRowEq(&core.RowLit{Labels: labels}, row, ex.Pos); err != nil {
		return nil, err
	}
	return lit, nil
}

func (c *Checker) checkVariantLit(ex *ast.VariantLit, expected core.Term) (core.Term, error) {
	row, err := c.varRowOf(expected, ex.Pos)
	if err != nil {
		return nil, err
	}
	nf, cerr := core.Canon(row, c.store)
	if cerr != nil {
		return nil, c.rowFail(rerr.ROW001, cerr.Error(), ex.Pos)
	}

	var payload core.Term
	var payloadTy core.Term
	if want, ok := nf.Label(ex.Label); ok {
		if (want == nil) != (ex.Payload == nil) {
			return nil, c.rowFail(rerr.ROW003,
				fmt.Sprintf("case %s payload mismatch", ex.Label), ex.Pos)
		}
		if ex.Payload != nil {
			payload, err = c.check(ex.Payload, want)
			if err != nil {
				return nil, err
			}
			payloadTy = want
		}
	} else {
		if ex.Payload != nil {
			payload, payloadTy, err = c.infer(ex.Payload)
			if err != nil {
				return nil, err
			}
		}
		if err := c.wantSubRow(&core.RowLit{Labels: []core.Label{{Name: ex.Label, Ty: payloadTy}}}, row, ex.Pos); err != nil {
			return nil, err
		}
	}
	return &core.VarIntro{TermNode: core.TermNode{Src: ex.Pos}, Label: ex.Label, Payload: payload}, nil
}

// ---------------------------------------------------------------------------
// infer
// ---------------------------------------------------------------------------

func (c *Checker) infer(e ast.Expr) (core.Term, core.Term, error) {
	switch ex := e.(type) {
	case *ast.Ident:
		return c.identRef(ex, ex.Name, nil)

	case *ast.QualIdent:
		return c.identRef(ex, ex.Name, nil)

	case *ast.Lit:
		return c.literal(ex)

	case *ast.Hole:
		ty := c.store.FreshMeta(&core.Univ{}, ex.Pos)
		return c.store.FreshMeta(ty, ex.Pos), ty, nil

	case *ast.RecordLit:
		lit := &core.RecLit{TermNode: core.TermNode{Src: ex.Pos}}
		var labels []core.Label
		for _, f := range ex.Fields {
			value, ty, err := c.infer(f.Value)
			if err != nil {
				return nil, nil, err
			}
			lit.Fields = append(lit.Fields, core.TermField{Label: f.Label, Value: value})
			labels = append(labels, core.Label{Name: f.Label, Ty: ty})
		}
		lit.SortFields()
		return lit, &core.RecTy{Row: &core.RowLit{Labels: labels}}, nil

	case *ast.RecordConcat:
		left, leftTy, err := c.infer(ex.Left)
		if err != nil {
			return nil, nil, err
		}
		right, rightTy, err := c.infer(ex.Right)
		if err != nil {
			return nil, nil, err
		}
		leftRow, err := c.recRowOf(leftTy, ex.Pos)
		if err != nil {
			return nil, nil, err
		}
		rightRow, err := c.recRowOf(rightTy, ex.Pos)
		if err != nil {
			return nil, nil, err
		}
		row, err := c.concatRows(leftRow, rightRow, ex.Pos)
		if err != nil {
			return nil, nil, err
		}
		term := &core.RecConcat{TermNode: core.TermNode{Src: ex.Pos}, Left: left, Right: right}
		return term, &core.RecTy{Row: row}, nil

	case *ast.RecordCast:
		// Without a checked target the cast is the identity on the row;
		// a later check against a narrower record discharges the
		// containment there.
		inner, innerTy, err := c.infer(ex.Expr)
		if err != nil {
			return nil, nil, err
		}
		row, err := c.recRowOf(innerTy, ex.Pos)
		if err != nil {
			return nil, nil, err
		}
		term := &core.RecCast{TermNode: core.TermNode{Src: ex.Pos}, Expr: inner}
		return term, &core.RecTy{Row: row}, nil

	case *ast.VariantCast:
		inner, innerTy, err := c.infer(ex.Expr)
		if err != nil {
			return nil, nil, err
		}
		row, err := c.varRowOf(innerTy, ex.Pos)
		if err != nil {
			return nil, nil, err
		}
		wide := &core.RowConcat{Left: row, Right: c.store.FreshRow(ex.Pos)}
		term := &core.VarCast{TermNode: core.TermNode{Src: ex.Pos}, Expr: inner}
		return term, &core.VarTy{Row: wide}, nil

	case *ast.VariantLit:
		var payload core.Term
		var payloadTy core.Term
		if ex.Payload != nil {
			var err error
			payload, payloadTy, err = c.infer(ex.Payload)
			if err != nil {
				return nil, nil, err
			}
		}
		row := &core.RowConcat{
			Left:  &core.RowLit{Labels: []core.Label{{Name: ex.Label, Ty: payloadTy}}},
			Right: c.store.FreshRow(ex.Pos),
		}
		term := &core.VarIntro{TermNode: core.TermNode{Src: ex.Pos}, Label: ex.Label, Payload: payload}
		return term, &core.VarTy{Row: row}, nil

	case *ast.Proj:
		return c.projection(ex)

	case *ast.Switch:
		return c.switchExpr(ex, nil)

	case *ast.Lambda:
		mark := c.mark()
		defer c.popTo(mark)
		type pp struct {
			local core.Local
			ty    core.Term
		}
		var params []pp
		for _, p := range ex.Params {
			var ty core.Term
			if p.Type != nil {
				t, _, err := c.elabType(p.Type)
				if err != nil {
					return nil, nil, err
				}
				ty = t
			} else {
				ty = c.store.FreshMeta(&core.Univ{}, p.Pos)
			}
			local := c.fresh(p.Name)
			params = append(params, pp{local, ty})
			c.bind(binding{name: p.Name, local: local, ty: ty})
		}
		body, bodyTy, err := c.infer(ex.Body)
		if err != nil {
			return nil, nil, err
		}
		term := body
		ty := bodyTy
		for i := len(params) - 1; i >= 0; i-- {
			term = &core.Lam{TermNode: core.TermNode{Src: ex.Pos}, Param: params[i].local, Body: term}
			ty = &core.Pi{Param: params[i].local, ParamTy: params[i].ty, Body: ty}
		}
		return term, ty, nil

	case *ast.Call:
		return c.call(ex, nil)

	case *ast.Pipe:
		return c.infer(desugarPipe(ex))

	case *ast.New:
		return c.newExpr(ex)

	case *ast.If:
		cond, err := c.check(ex.Cond, c.builtinTy(resolve.BuiltinBoolean))
		if err != nil {
			return nil, nil, err
		}
		then, thenTy, err := c.infer(ex.Then)
		if err != nil {
			return nil, nil, err
		}
		els, err := c.check(ex.Else, thenTy)
		if err != nil {
			return nil, nil, err
		}
		term := &core.If{TermNode: core.TermNode{Src: ex.Pos}, Cond: cond, Then: then, Else: els}
		return term, thenTy, nil

	case *ast.BinOp:
		return c.binOp(ex)

	case *ast.Block:
		ty := c.store.FreshMeta(&core.Univ{}, ex.Pos)
		term, err := c.checkBlock(ex, ty)
		if err != nil {
			return nil, nil, err
		}
		return term, ty, nil
	}
	return nil, nil, c.typeErr("INTERNAL", fmt.Sprintf("unknown expression form %T", e), e.Position())
}

func desugarPipe(ex *ast.Pipe) *ast.Call {
	if call, ok := ex.Call.(*ast.Call); ok {
		return &ast.Call{
			Fn:       call.Fn,
			TypeArgs: call.TypeArgs,
			Args:     append([]ast.Expr{ex.Value}, call.Args...),
			Pos:      ex.Pos,
		}
	}
	return &ast.Call{Fn: ex.Call, Args: []ast.Expr{ex.Value}, Pos: ex.Pos}
}

func (c *Checker) literal(ex *ast.Lit) (core.Term, core.Term, error) {
	node := core.TermNode{Src: ex.Pos}
	switch ex.Kind {
	case ast.StringLit:
		return &core.Prim{TermNode: node, Kind: core.PrimString, Value: ex.Value}, c.builtinTy(resolve.BuiltinString), nil
	case ast.NumberLit:
		return &core.Prim{TermNode: node, Kind: core.PrimNumber, Value: ex.Value}, c.builtinTy(resolve.BuiltinNumber), nil
	case ast.BigintLit:
		return &core.Prim{TermNode: node, Kind: core.PrimBigint, Value: ex.Value}, c.builtinTy(resolve.BuiltinBigint), nil
	case ast.BoolLit:
		return &core.Prim{TermNode: node, Kind: core.PrimBool, Value: ex.Value}, c.builtinTy(resolve.BuiltinBoolean), nil
	default:
		return &core.Prim{TermNode: node, Kind: core.PrimUnit}, c.builtinTy(resolve.BuiltinUnit), nil
	}
}

// projection infers `e.l` as record field access, extending open rows
// as needed.
func (c *Checker) projection(ex *ast.Proj) (core.Term, core.Term, error) {
	rec, recTy, err := c.infer(ex.Expr)
	if err != nil {
		return nil, nil, err
	}
	fieldTy, err := c.projectField(recTy, ex.Label, ex.Pos)
	if err != nil {
		return nil, nil, err
	}
	term := &core.RecProj{TermNode: core.TermNode{Src: ex.Pos}, Rec: rec, Label: ex.Label}
	return term, fieldTy, nil
}

// projectField returns the type of label within a record type, posting
// the row constraint that makes it present.
func (c *Checker) projectField(recTy core.Term, label string, src ast.Pos) (core.Term, error) {
	row, err := c.recRowOf(recTy, src)
	if err != nil {
		return nil, err
	}
	nf, cerr := core.Canon(row, c.store)
	if cerr != nil {
		return nil, c.rowFail(rerr.ROW001, cerr.Error(), src)
	}
	if ty, ok := nf.Label(label); ok {
		return ty, nil
	}
	if nf.Closed() {
		return nil, c.rowFail(rerr.ROW002,
			fmt.Sprintf("record {%s} has no field %s", nf, label), src)
	}
	fieldTy := c.store.FreshMeta(&core.Univ{}, src)
	sub := &core.RowLit{Labels: []core.Label{{Name: label, Ty: fieldTy}}}
	if err := c.wantSubRow(sub, row, src); err != nil {
		return nil, err
	}
	return fieldTy, nil
}

// ---------------------------------------------------------------------------
// switch
// ---------------------------------------------------------------------------

// switchExpr elaborates a switch. The scrutinee's variant row must be
// the exact union of the case labels; missing or extra cases are
// exhaustiveness errors.
func (c *Checker) switchExpr(ex *ast.Switch, expected core.Term) (core.Term, core.Term, error) {
	scrut, scrutTy, err := c.infer(ex.Scrutinee)
	if err != nil {
		return nil, nil, err
	}
	row, err := c.varRowOf(scrutTy, ex.Pos)
	if err != nil {
		return nil, nil, err
	}

	seen := make(map[string]bool)
	for _, cs := range ex.Cases {
		if seen[cs.Label] {
			return nil, nil, c.typeErr(rerr.EXH002,
				fmt.Sprintf("duplicate case %s", cs.Label), cs.Pos)
		}
		seen[cs.Label] = true
	}

	nf, cerr := core.Canon(row, c.store)
	if cerr != nil {
		return nil, nil, c.rowFail(rerr.ROW001, cerr.Error(), ex.Pos)
	}
	payloadTys := make(map[string]core.Term)
	if nf.Closed() {
		// Exact-union check against the known row.
		var missing, extra []string
		for _, l := range nf.Labels {
			if !seen[l.Name] {
				missing = append(missing, l.Name)
			}
			payloadTys[l.Name] = l.Ty
		}
		for _, cs := range ex.Cases {
			if _, ok := nf.Label(cs.Label); !ok {
				extra = append(extra, cs.Label)
			}
		}
		if len(missing) > 0 {
			return nil, nil, c.typeErr(rerr.EXH001,
				fmt.Sprintf("switch does not cover cases: %v", missing), ex.Pos)
		}
		if len(extra) > 0 {
			return nil, nil, c.typeErr(rerr.EXH002,
				fmt.Sprintf("switch has cases outside the variant: %v", extra), ex.Pos)
		}
	} else {
		// Unknown row: the switch itself determines it, closed.
		var labels []core.Label
		for _, cs := range ex.Cases {
			var ty core.Term
			if cs.Binder != "" {
				ty = c.store.FreshMeta(&core.Univ{}, cs.Pos)
			}
			payloadTys[cs.Label] = ty
			labels = append(labels, core.Label{Name: cs.Label, Ty: ty})
		}
		if err := c.wantRowEq(row, &core.RowLit{Labels: labels}, ex.Pos); err != nil {
			return nil, nil, err
		}
	}

	resultTy := expected
	term := &core.Switch{TermNode: core.TermNode{Src: ex.Pos}, Scrutinee: scrut}
	for _, cs := range ex.Cases {
		mark := c.mark()
		sc := core.SwitchCase{Label: cs.Label}
		payloadTy := payloadTys[cs.Label]
		if cs.Binder != "" {
			if payloadTy == nil {
				c.popTo(mark)
				return nil, nil, c.rowFail(rerr.ROW003,
					fmt.Sprintf("case %s carries no payload", cs.Label), cs.Pos)
			}
			local := c.fresh(cs.Binder)
			sc.HasPayload = true
			sc.Binder = local
			c.bind(binding{name: cs.Binder, local: local, ty: payloadTy})
		} else if payloadTy != nil {
			c.popTo(mark)
			return nil, nil, c.rowFail(rerr.ROW003,
				fmt.Sprintf("case %s must bind its payload", cs.Label), cs.Pos)
		}

		var body core.Term
		var err error
		if resultTy == nil {
			var bodyTy core.Term
			body, bodyTy, err = c.infer(cs.Body)
			resultTy = bodyTy
		} else {
			body, err = c.check(cs.Body, resultTy)
		}
		c.popTo(mark)
		if err != nil {
			return nil, nil, err
		}
		sc.Body = body
		term.Cases = append(term.Cases, sc)
	}
	if resultTy == nil {
		resultTy = c.builtinTy(resolve.BuiltinUnit)
	}
	return term, resultTy, nil
}

// ---------------------------------------------------------------------------
// blocks
// ---------------------------------------------------------------------------

// checkBlock elaborates a statement block against an expected type.
// Let bindings become immediate beta redexes; a return statement sets
// the result, and a block without one results in unit.
func (c *Checker) checkBlock(b *ast.Block, expected core.Term) (core.Term, error) {
	mark := c.mark()
	defer c.popTo(mark)

	type letBinding struct {
		local core.Local
		value core.Term
	}
	var lets []letBinding

	wrap := func(result core.Term) core.Term {
		for i := len(lets) - 1; i >= 0; i-- {
			result = &core.App{
				Fn:  &core.Lam{Param: lets[i].local, Body: result},
				Arg: lets[i].value,
			}
		}
		return result
	}

	for _, s := range b.Stmts {
		switch stmt := s.(type) {
		case *ast.Let:
			var value core.Term
			var ty core.Term
			var err error
			if stmt.Type != nil {
				ty, _, err = c.elabType(stmt.Type)
				if err != nil {
					return nil, err
				}
				value, err = c.check(stmt.Value, ty)
			} else {
				value, ty, err = c.infer(stmt.Value)
			}
			if err != nil {
				return nil, err
			}
			local := c.fresh(stmt.Name)
			c.bind(binding{name: stmt.Name, local: local, ty: ty})
			lets = append(lets, letBinding{local: local, value: value})

		case *ast.Return:
			var result core.Term
			var err error
			if stmt.Value == nil {
				result = &core.Prim{Kind: core.PrimUnit}
				if err := c.unify(expected, c.builtinTy(resolve.BuiltinUnit), stmt.Pos); err != nil {
					return nil, err
				}
			} else {
				result, err = c.check(stmt.Value, expected)
				if err != nil {
					return nil, err
				}
			}
			// Statements after a return are unreachable and ignored.
			return wrap(result), nil

		case *ast.ExprStmt:
			value, _, err := c.infer(stmt.Expr)
			if err != nil {
				return nil, err
			}
			lets = append(lets, letBinding{local: c.fresh(""), value: value})
		}
	}

	if err := c.unify(expected, c.builtinTy(resolve.BuiltinUnit), b.Pos); err != nil {
		return nil, err
	}
	return wrap(&core.Prim{Kind: core.PrimUnit}), nil
}

// ---------------------------------------------------------------------------
// operators
// ---------------------------------------------------------------------------

var magicNames = map[string]string{
	"+": "__add__",
	"-": "__sub__",
}

// binOp lowers `a + b` / `a - b` by the inferred type of a: numbers
// and strings hit the builtin host operations, everything else goes
// through an interface declaring the magic method.
func (c *Checker) binOp(ex *ast.BinOp) (core.Term, core.Term, error) {
	magic, ok := magicNames[ex.Op]
	if !ok {
		return nil, nil, c.typeErr(rerr.TC005,
			fmt.Sprintf("operator %s has no elaboration", ex.Op), ex.Pos)
	}
	left, leftTy, err := c.infer(ex.Left)
	if err != nil {
		return nil, nil, err
	}

	if ref, ok := core.Whnf(leftTy, c.store).(*core.Ref); ok {
		var builtin core.GlobalID = -1
		switch {
		case ref.ID == resolve.BuiltinNumber && ex.Op == "+":
			builtin = resolve.BuiltinNumberAdd
		case ref.ID == resolve.BuiltinNumber && ex.Op == "-":
			builtin = resolve.BuiltinNumberSub
		case ref.ID == resolve.BuiltinString && ex.Op == "+":
			builtin = resolve.BuiltinStringAdd
		}
		if builtin >= 0 {
			right, err := c.check(ex.Right, leftTy)
			if err != nil {
				return nil, nil, err
			}
			g := c.res.Table.Get(builtin)
			fn := &core.Ref{TermNode: core.TermNode{Src: ex.Pos}, ID: builtin, Name: g.Name}
			term := &core.App{Fn: &core.App{Fn: fn, Arg: left}, Arg: right}
			return term, leftTy, nil
		}
	}

	// User-defined carrier: find the interface declaring the magic
	// method, in declaration order.
	for _, g := range c.res.Table.All() {
		if g.Cat != resolve.CatInterface {
			continue
		}
		iface, ok := c.ifaces[g.ID]
		if !ok {
			continue
		}
		m := iface.Method(magic)
		if m == nil {
			continue
		}
		ov := &core.OvRef{
			TermNode:      core.TermNode{Src: ex.Pos},
			Interface:     g.ID,
			InterfaceName: g.Name,
			Method:        magic,
			Carrier:       leftTy,
		}
		methodTy := core.Bind1(iface.Carrier, leftTy).Term(m.Ty)
		term, ty, err := c.applySpine(ov, methodTy, []ast.Expr{ex.Left, ex.Right}, ex.Pos, left)
		if err != nil {
			return nil, nil, err
		}
		return term, ty, nil
	}
	return nil, nil, c.typeErr(rerr.INS001,
		fmt.Sprintf("no interface declares %s for %s", magic, leftTy), ex.Pos)
}
