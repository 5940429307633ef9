package elab

import (
	"fmt"
	"strings"

	"github.com/kirraObj-s-archives/rowscript/internal/ast"
	"github.com/kirraObj-s-archives/rowscript/internal/core"
	rerr "github.com/kirraObj-s-archives/rowscript/internal/errors"
	"github.com/kirraObj-s-archives/rowscript/internal/resolve"
)

// Application elaboration. Global references instantiate their
// implicit telescope (fresh metas for types, fresh row variables for
// row-kinded positions) and discharge their predicates as implicit
// dictionary arguments; explicit arguments are checked against their
// parameter types.

// instantiation is the result of instantiating a global's signature.
type instantiation struct {
	term   core.Term
	params []core.Term
	ret    core.Term
}

// typeArgQueue matches explicit angle-bracket arguments to implicit
// parameters, positionally or by name.
type typeArgQueue struct {
	args []ast.TypeArg
	next int
}

func (q *typeArgQueue) take(name string) (ast.Type, bool) {
	trimmed := strings.TrimPrefix(name, "'")
	for i := range q.args {
		if q.args[i].Name != "" && q.args[i].Name == trimmed {
			t := q.args[i].Type
			q.args[i].Name = "\x00used"
			return t, true
		}
	}
	for q.next < len(q.args) {
		a := q.args[q.next]
		q.next++
		if a.Name == "" {
			return a.Type, true
		}
	}
	return nil, false
}

// instantiateGlobal builds the application head for a function global:
// Ref applied to its implicit arguments and dictionary arguments, with
// the parameter and return types instantiated.
func (c *Checker) instantiateGlobal(g *resolve.Global, typeArgs []ast.TypeArg, src ast.Pos) (*instantiation, error) {
	sig, ok := c.sigs[g.ID]
	if !ok {
		return nil, c.depErr(g, src)
	}
	queue := &typeArgQueue{args: append([]ast.TypeArg(nil), typeArgs...)}
	subst := core.NewSubst()
	term := core.Term(&core.Ref{TermNode: core.TermNode{Src: src}, ID: g.ID, Name: g.QualName()})

	for _, imp := range sig.Implicits {
		arg, explicit := queue.take(imp.Name)
		var instTerm core.Term
		if imp.Kind.Row {
			var row core.Row
			if explicit {
				t, kind, err := c.elabType(arg)
				if err != nil {
					return nil, err
				}
				rt, ok := t.(*core.RowTerm)
				if !ok || !kind.Equal(core.KindRow) {
					return nil, c.typeErr(rerr.KND001,
						fmt.Sprintf("argument for %s must be a row", imp.Name), src)
				}
				row = rt.Row
			} else {
				row = c.store.FreshRow(src)
			}
			subst.Rows[imp.RowID] = row
			instTerm = &core.RowTerm{Row: row}
		} else {
			if explicit {
				t, kind, err := c.elabType(arg)
				if err != nil {
					return nil, err
				}
				if !kind.Equal(imp.Kind) {
					return nil, c.typeErr(rerr.KND001,
						fmt.Sprintf("argument for %s has kind %s, want %s", imp.Name, kind, imp.Kind), src)
				}
				instTerm = t
			} else {
				instTerm = c.store.FreshMeta(imp.Kind.Term(c.fresh), src)
			}
			subst.Terms[imp.Local.ID] = instTerm
		}
		term = &core.App{Fn: term, Arg: instTerm}
	}

	// Predicates become implicit dictionary arguments: each is a fresh
	// dictionary metavariable, recorded as an obligation that the
	// finalizer discharges once the carrier is known.
	for _, p := range sig.Preds {
		inst := Pred{
			Iface:   p.Iface,
			Name:    p.Name,
			Carrier: subst.Term(p.Carrier),
			Dict:    p.Dict,
		}
		for _, a := range p.Args {
			inst.Args = append(inst.Args, subst.Term(a))
		}
		dictMeta := c.store.FreshMeta(c.dictType(inst), src)
		c.obligations = append(c.obligations, obligation{Pred: inst, DictMeta: dictMeta, Src: src})
		term = &core.App{Fn: term, Arg: dictMeta}
	}

	out := &instantiation{term: term}
	for _, p := range sig.Params {
		out.params = append(out.params, subst.Term(p.Ty))
	}
	if sig.IsFunc() {
		out.ret = subst.Term(sig.Ret)
	} else {
		out.ret = subst.Term(sig.Type)
	}
	return out, nil
}

// methodRef builds an OvRef head for an interface method. The first
// explicit type argument binds the carrier; the rest bind the
// interface's extra implicits and the method's own implicits.
func (c *Checker) methodRef(iface *IfaceInfo, name string, typeArgs []ast.TypeArg, src ast.Pos) (core.Term, []core.Term, core.Term, error) {
	m := iface.Method(name)
	if m == nil {
		return nil, nil, nil, c.typeErr(rerr.RES002,
			fmt.Sprintf("interface %s has no method %s", iface.Global.Name, name), src)
	}
	queue := &typeArgQueue{args: append([]ast.TypeArg(nil), typeArgs...)}
	subst := core.NewSubst()

	var carrier core.Term
	var kindArgs []core.Term
	if arg, ok := queue.take(iface.Carrier.Name); ok {
		t, kind, err := c.elabType(arg)
		if err != nil {
			return nil, nil, nil, err
		}
		if !kind.Equal(iface.CarrierKind) {
			return nil, nil, nil, c.typeErr(rerr.KND001,
				fmt.Sprintf("carrier %s has kind %s, want %s", t, kind, iface.CarrierKind), src)
		}
		carrier = t
	} else {
		carrier = c.store.FreshMeta(iface.CarrierKind.Term(c.fresh), src)
	}
	subst.Terms[iface.Carrier.ID] = carrier

	bindImp := func(imp Implicit) core.Term {
		arg, explicit := queue.take(imp.Name)
		if imp.Kind.Row {
			var row core.Row
			if explicit {
				if t, kind, err := c.elabType(arg); err == nil && kind.Equal(core.KindRow) {
					row = t.(*core.RowTerm).Row
				}
			}
			if row == nil {
				row = c.store.FreshRow(src)
			}
			subst.Rows[imp.RowID] = row
			return nil
		}
		var instTerm core.Term
		if explicit {
			if t, _, err := c.elabType(arg); err == nil {
				instTerm = t
			}
		}
		if instTerm == nil {
			instTerm = c.store.FreshMeta(imp.Kind.Term(c.fresh), src)
		}
		subst.Terms[imp.Local.ID] = instTerm
		return instTerm
	}

	var applied []core.Term
	for _, imp := range iface.Implicits {
		if t := bindImp(imp); t != nil {
			applied = append(applied, t)
			kindArgs = append(kindArgs, t)
		}
	}
	for _, imp := range m.Implicits {
		if t := bindImp(imp); t != nil {
			applied = append(applied, t)
			kindArgs = append(kindArgs, t)
		}
	}

	term := core.Term(&core.OvRef{
		TermNode:      core.TermNode{Src: src},
		Interface:     iface.Global.ID,
		InterfaceName: iface.Global.Name,
		Method:        name,
		Carrier:       carrier,
		KindArgs:      kindArgs,
	})
	for _, a := range applied {
		term = &core.App{Fn: term, Arg: a}
	}
	methodTy := subst.Term(m.Ty)
	return term, nil, methodTy, nil
}

// identRef infers an identifier occurrence, optionally with explicit
// type arguments from an enclosing call.
func (c *Checker) identRef(n ast.Node, name string, typeArgs []ast.TypeArg) (core.Term, core.Term, error) {
	src := n.Position()
	// Only bare identifiers see the local scope; qualified references
	// go straight to their resolved global.
	if _, bare := n.(*ast.Ident); bare {
		if b, ok := c.lookupScope(name); ok {
			if b.isRow {
				return &core.RowTerm{Row: &core.RowVar{Name: b.name, ID: b.rowID}}, &core.RowUniv{}, nil
			}
			return &core.Var{TermNode: core.TermNode{Src: src}, Local: b.local}, b.ty, nil
		}
	}

	target, ok := c.res.Target(n)
	if !ok {
		return nil, nil, c.typeErr(rerr.RES002, fmt.Sprintf("unknown name %s", name), src)
	}
	switch target.Kind {
	case resolve.TargetLocal, resolve.TargetParam:
		// The resolver saw a binding the checker did not; a desugaring
		// bug, not a user error.
		return nil, nil, c.typeErr("INTERNAL", fmt.Sprintf("unbound local %s", name), src)

	case resolve.TargetGlobal:
		g := target.Global
		switch g.Cat {
		case resolve.CatFunc:
			inst, err := c.instantiateGlobal(g, typeArgs, src)
			if err != nil {
				return nil, nil, err
			}
			return inst.term, piOf(c, inst), nil
		case resolve.CatConst:
			sig, ok := c.sigs[g.ID]
			if !ok {
				return nil, nil, c.depErr(g, src)
			}
			return &core.Ref{TermNode: core.TermNode{Src: src}, ID: g.ID, Name: g.QualName()}, sig.Type, nil
		case resolve.CatType:
			sig, ok := c.sigs[g.ID]
			if !ok {
				return nil, nil, c.depErr(g, src)
			}
			return &core.Ref{TermNode: core.TermNode{Src: src}, ID: g.ID, Name: g.QualName()}, sig.Type, nil
		default:
			return nil, nil, c.typeErr(rerr.TC003,
				fmt.Sprintf("%s (%s) cannot appear in a term", g.Name, g.Cat), src)
		}

	case resolve.TargetBuiltin:
		return c.builtinRef(target.Global, src)

	case resolve.TargetMethod:
		iface, ok := c.ifaces[target.Global.ID]
		if !ok {
			return nil, nil, c.depErr(target.Global, src)
		}
		term, _, methodTy, err := c.methodRef(iface, target.Method, typeArgs, src)
		if err != nil {
			return nil, nil, err
		}
		return term, methodTy, nil

	default:
		return nil, nil, c.typeErr(rerr.RES002, fmt.Sprintf("unknown name %s", name), src)
	}
}

// piOf rebuilds the remaining function type of an instantiation.
func piOf(c *Checker, inst *instantiation) core.Term {
	out := inst.ret
	for i := len(inst.params) - 1; i >= 0; i-- {
		out = &core.Pi{Param: c.fresh(""), ParamTy: inst.params[i], Body: out}
	}
	return out
}

// builtinRef types the reserved names usable in terms.
func (c *Checker) builtinRef(g *resolve.Global, src ast.Pos) (core.Term, core.Term, error) {
	num := c.builtinTy(resolve.BuiltinNumber)
	str := c.builtinTy(resolve.BuiltinString)
	ref := &core.Ref{TermNode: core.TermNode{Src: src}, ID: g.ID, Name: g.Name}
	binop := func(ty core.Term) core.Term {
		return &core.Pi{Param: c.fresh("a"), ParamTy: ty,
			Body: &core.Pi{Param: c.fresh("b"), ParamTy: ty, Body: ty}}
	}
	switch g.ID {
	case resolve.BuiltinNumber, resolve.BuiltinString, resolve.BuiltinBigint,
		resolve.BuiltinBoolean, resolve.BuiltinUnit:
		return ref, &core.Univ{}, nil
	case resolve.BuiltinNumberAdd, resolve.BuiltinNumberSub:
		return ref, binop(num), nil
	case resolve.BuiltinStringAdd:
		return ref, binop(str), nil
	case resolve.BuiltinUnionify:
		return nil, nil, c.typeErr(rerr.TC005, "unionify must be applied directly", src)
	}
	return nil, nil, c.typeErr("INTERNAL", fmt.Sprintf("unknown builtin %s", g.Name), src)
}

// ---------------------------------------------------------------------------
// call
// ---------------------------------------------------------------------------

// call elaborates an application. expected is non-nil in check mode
// and steers unionify and other row-directed forms.
func (c *Checker) call(ex *ast.Call, expected core.Term) (core.Term, core.Term, error) {
	// unionify is a builtin form, not a function value.
	if c.isUnionify(ex.Fn) {
		return c.unionify(ex, expected)
	}

	// Method call: projection first, UFCS second.
	if proj, ok := ex.Fn.(*ast.Proj); ok {
		return c.methodCall(ex, proj, expected)
	}

	// Direct global or method reference: instantiate with the explicit
	// type arguments.
	switch fn := ex.Fn.(type) {
	case *ast.Ident:
		if _, inScope := c.lookupScope(fn.Name); !inScope {
			if target, ok := c.res.Target(fn); ok {
				if target.Kind == resolve.TargetGlobal && target.Global.Cat == resolve.CatFunc {
					inst, err := c.instantiateGlobal(target.Global, ex.TypeArgs, ex.Pos)
					if err != nil {
						return nil, nil, err
					}
					return c.applyInstantiation(inst, ex.Args, ex.Pos)
				}
				if target.Kind == resolve.TargetMethod {
					iface, ok := c.ifaces[target.Global.ID]
					if !ok {
						return nil, nil, c.depErr(target.Global, ex.Pos)
					}
					term, _, methodTy, err := c.methodRef(iface, target.Method, ex.TypeArgs, ex.Pos)
					if err != nil {
						return nil, nil, err
					}
					return c.applySpine(term, methodTy, ex.Args, ex.Pos, nil)
				}
			}
		}
	case *ast.QualIdent:
		if target, ok := c.res.Target(fn); ok && target.Kind == resolve.TargetGlobal &&
			target.Global.Cat == resolve.CatFunc {
			inst, err := c.instantiateGlobal(target.Global, ex.TypeArgs, ex.Pos)
			if err != nil {
				return nil, nil, err
			}
			return c.applyInstantiation(inst, ex.Args, ex.Pos)
		}
	}

	// General case: infer the callee and walk its Pi telescope.
	fnTerm, fnTy, err := c.infer(ex.Fn)
	if err != nil {
		return nil, nil, err
	}
	if len(ex.TypeArgs) > 0 {
		return nil, nil, c.typeErr(rerr.TC005,
			"type arguments require a function or method reference", ex.Pos)
	}
	return c.applySpine(fnTerm, fnTy, ex.Args, ex.Pos, nil)
}

func (c *Checker) isUnionify(fn ast.Expr) bool {
	id, ok := fn.(*ast.Ident)
	if !ok {
		return false
	}
	if _, shadowed := c.lookupScope(id.Name); shadowed {
		return false
	}
	target, ok := c.res.Target(id)
	return ok && target.Kind == resolve.TargetBuiltin && target.Global.ID == resolve.BuiltinUnionify
}

// unionify narrows a variant into the declared variant type of the
// checked position by discharging a subrow constraint.
func (c *Checker) unionify(ex *ast.Call, expected core.Term) (core.Term, core.Term, error) {
	if len(ex.Args) != 1 {
		return nil, nil, c.typeErr(rerr.TC005, "unionify takes exactly one argument", ex.Pos)
	}
	inner, innerTy, err := c.infer(ex.Args[0])
	if err != nil {
		return nil, nil, err
	}
	row, err := c.varRowOf(innerTy, ex.Pos)
	if err != nil {
		return nil, nil, err
	}
	term := &core.VarCast{TermNode: core.TermNode{Src: ex.Pos}, Expr: inner}

	if expected != nil {
		sup, err := c.varRowOf(expected, ex.Pos)
		if err != nil {
			return nil, nil, err
		}
		if err := c.wantSubRow(row, sup, ex.Pos); err != nil {
			return nil, nil, err
		}
		return term, expected, nil
	}
	wide := &core.RowConcat{Left: row, Right: c.store.FreshRow(ex.Pos)}
	return term, &core.VarTy{Row: wide}, nil
}

// methodCall elaborates `o.m(args)`: record projection when m is a
// field of function type, UFCS otherwise.
func (c *Checker) methodCall(ex *ast.Call, proj *ast.Proj, expected core.Term) (core.Term, core.Term, error) {
	recv, recvTy, err := c.infer(proj.Expr)
	if err != nil {
		return nil, nil, err
	}

	// Projection applies when the receiver is known to be a record
	// with the field present.
	if rt, ok := core.Whnf(recvTy, c.store).(*core.RecTy); ok {
		if nf, cerr := core.Canon(rt.Row, c.store); cerr == nil {
			if fieldTy, ok := nf.Label(proj.Label); ok {
				head := &core.RecProj{TermNode: core.TermNode{Src: proj.Pos}, Rec: recv, Label: proj.Label}
				if len(ex.TypeArgs) > 0 {
					return nil, nil, c.typeErr(rerr.TC005,
						"type arguments require a function or method reference", ex.Pos)
				}
				return c.applySpine(head, fieldTy, ex.Args, ex.Pos, nil)
			}
		}
	}

	// UFCS: the label as a free function or interface method with the
	// receiver prepended.
	target, ok := c.res.Target(proj)
	if !ok {
		return nil, nil, c.typeErr(rerr.TC004,
			fmt.Sprintf("%s is neither a field of %s nor a known function", proj.Label, recvTy), proj.Pos)
	}
	switch target.Kind {
	case resolve.TargetGlobal:
		inst, err := c.instantiateGlobal(target.Global, ex.TypeArgs, ex.Pos)
		if err != nil {
			return nil, nil, err
		}
		return c.applyInstantiationRecv(inst, recv, recvTy, ex.Args, ex.Pos)
	case resolve.TargetMethod:
		iface, ok := c.ifaces[target.Global.ID]
		if !ok {
			return nil, nil, c.depErr(target.Global, ex.Pos)
		}
		term, _, methodTy, err := c.methodRef(iface, target.Method, ex.TypeArgs, ex.Pos)
		if err != nil {
			return nil, nil, err
		}
		return c.applySpine(term, methodTy, ex.Args, ex.Pos, recvArg{term: recv, ty: recvTy})
	case resolve.TargetBuiltin:
		head, headTy, err := c.builtinRef(target.Global, proj.Pos)
		if err != nil {
			return nil, nil, err
		}
		return c.applySpine(head, headTy, ex.Args, ex.Pos, recvArg{term: recv, ty: recvTy})
	default:
		return nil, nil, c.typeErr(rerr.TC004,
			fmt.Sprintf("%s is neither a field nor a function", proj.Label), proj.Pos)
	}
}

// applyInstantiation checks explicit arguments against an instantiated
// signature.
func (c *Checker) applyInstantiation(inst *instantiation, args []ast.Expr, src ast.Pos) (core.Term, core.Term, error) {
	return c.applyInstantiationRecv(inst, nil, nil, args, src)
}

// applyInstantiationRecv prepends an already-elaborated receiver
// argument (UFCS) before the surface arguments.
func (c *Checker) applyInstantiationRecv(inst *instantiation, recv core.Term, recvTy core.Term, args []ast.Expr, src ast.Pos) (core.Term, core.Term, error) {
	term := inst.term
	idx := 0
	if recv != nil {
		if len(inst.params) == 0 {
			return nil, nil, c.typeErr(rerr.TC005, "function takes no arguments", src)
		}
		if err := c.unify(recvTy, inst.params[0], src); err != nil {
			return nil, nil, err
		}
		term = &core.App{Fn: term, Arg: recv}
		idx = 1
	}
	for _, a := range args {
		if idx >= len(inst.params) {
			return nil, nil, c.typeErr(rerr.TC005, "too many arguments", src)
		}
		checked, err := c.check(a, inst.params[idx])
		if err != nil {
			return nil, nil, err
		}
		term = &core.App{Fn: term, Arg: checked}
		idx++
	}
	if idx < len(inst.params) {
		// Partial application: the remaining telescope is the type.
		out := inst.ret
		for i := len(inst.params) - 1; i >= idx; i-- {
			out = &core.Pi{Param: c.fresh(""), ParamTy: inst.params[i], Body: out}
		}
		return term, out, nil
	}
	return term, inst.ret, nil
}

// recvArg is an already-elaborated first argument for applySpine.
type recvArg struct {
	term core.Term
	ty   core.Term
}

// applySpine applies surface arguments along a Pi telescope. first may
// be a recvArg (UFCS receiver) or a pre-elaborated core.Term paired
// with a leading surface argument to skip (operator lowering).
func (c *Checker) applySpine(fn core.Term, fnTy core.Term, args []ast.Expr, src ast.Pos, first any) (core.Term, core.Term, error) {
	term := fn
	ty := fnTy

	consume := func(argTerm core.Term, argTy core.Term, surface ast.Expr) error {
		pi, ok := core.Whnf(ty, c.store).(*core.Pi)
		if !ok {
			// Push a function shape through a meta.
			m, isMeta := core.Whnf(ty, c.store).(*core.Meta)
			if !isMeta {
				return c.typeErr(rerr.TC005, fmt.Sprintf("%s is not a function", ty), src)
			}
			paramTy := c.store.FreshMeta(&core.Univ{}, src)
			retTy := c.store.FreshMeta(&core.Univ{}, src)
			pi = &core.Pi{Param: c.fresh(""), ParamTy: paramTy, Body: retTy}
			if err := c.solveMeta(m, pi, src); err != nil {
				return err
			}
		}
		var checked core.Term
		var err error
		if argTerm != nil {
			checked = argTerm
			if err := c.unify(argTy, pi.ParamTy, src); err != nil {
				return err
			}
		} else {
			checked, err = c.check(surface, pi.ParamTy)
			if err != nil {
				return err
			}
		}
		term = &core.App{Fn: term, Arg: checked}
		ty = core.Bind1(pi.Param, checked).Term(pi.Body)
		return nil
	}

	switch f := first.(type) {
	case recvArg:
		if err := consume(f.term, f.ty, nil); err != nil {
			return nil, nil, err
		}
	case core.Term:
		if f != nil {
			// Operator lowering pre-elaborated the first surface arg.
			if len(args) == 0 {
				return nil, nil, c.typeErr(rerr.TC005, "missing operand", src)
			}
			pi, ok := core.Whnf(ty, c.store).(*core.Pi)
			if !ok {
				return nil, nil, c.typeErr(rerr.TC005, fmt.Sprintf("%s is not a function", ty), src)
			}
			term = &core.App{Fn: term, Arg: f}
			ty = core.Bind1(pi.Param, f).Term(pi.Body)
			args = args[1:]
		}
	}

	for _, a := range args {
		if err := consume(nil, nil, a); err != nil {
			return nil, nil, err
		}
	}
	return term, ty, nil
}

// newExpr elaborates `new T<...>(args)` into the class's record value.
func (c *Checker) newExpr(ex *ast.New) (core.Term, core.Term, error) {
	named, ok := ex.Type.(*ast.NamedType)
	if !ok {
		return nil, nil, c.typeErr(rerr.TC005, "new requires a class type", ex.Pos)
	}
	target, ok := c.res.Target(named)
	if !ok || target.Global == nil {
		return nil, nil, c.typeErr(rerr.RES002, fmt.Sprintf("unknown class %s", named.Name), ex.Pos)
	}
	info, isClass := c.classes[target.Global.ID]
	if !isClass {
		return nil, nil, c.typeErr(rerr.TC005,
			fmt.Sprintf("%s is not a class", named.Name), ex.Pos)
	}

	ty, _, err := c.elabType(named)
	if err != nil {
		return nil, nil, err
	}

	// Field types may mention the class implicits; recover the
	// instantiation by unifying the alias body with the written type.
	if len(ex.Args) != len(info.Fields) {
		return nil, nil, c.typeErr(rerr.TC005,
			fmt.Sprintf("%s has %d fields, got %d arguments", named.Name, len(info.Fields), len(ex.Args)), ex.Pos)
	}
	fieldRow, err := c.recRowOf(ty, ex.Pos)
	if err != nil {
		return nil, nil, err
	}
	nf, cerr := core.Canon(fieldRow, c.store)
	if cerr != nil {
		return nil, nil, c.rowFail(rerr.ROW001, cerr.Error(), ex.Pos)
	}
	lit := &core.RecLit{TermNode: core.TermNode{Src: ex.Pos}}
	for i, f := range info.Fields {
		want, ok := nf.Label(f.Name)
		if !ok {
			return nil, nil, c.rowFail(rerr.ROW002,
				fmt.Sprintf("class %s lost field %s", named.Name, f.Name), ex.Pos)
		}
		value, err := c.check(ex.Args[i], want)
		if err != nil {
			return nil, nil, err
		}
		lit.Fields = append(lit.Fields, core.TermField{Label: f.Name, Value: value})
	}
	lit.SortFields()
	return lit, ty, nil
}
