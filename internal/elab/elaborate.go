package elab

import (
	"fmt"

	"github.com/kirraObj-s-archives/rowscript/internal/ast"
	"github.com/kirraObj-s-archives/rowscript/internal/core"
	rerr "github.com/kirraObj-s-archives/rowscript/internal/errors"
	"github.com/kirraObj-s-archives/rowscript/internal/linked"
	"github.com/kirraObj-s-archives/rowscript/internal/resolve"
)

// Implicit is one angle-bracket parameter of an elaborated signature.
// Type parameters bind a Local; row parameters bind a rigid row
// variable (RowID).
type Implicit struct {
	Name  string
	Kind  core.Kind
	Local core.Local
	RowID int // valid when Kind.Row
}

// Pred is one `where` obligation of a signature. Dict is the implicit
// dictionary parameter discharged at call sites.
type Pred struct {
	Iface   core.GlobalID
	Name    string // interface display name
	Carrier core.Term
	Args    []core.Term
	Dict    core.Local
}

func (p Pred) String() string {
	return fmt.Sprintf("%s<%s>", p.Name, p.Carrier)
}

// ParamSig is one explicit parameter of a function signature.
type ParamSig struct {
	Name string
	Ty   core.Term
}

// Sig is the elaborated signature of a global.
type Sig struct {
	Cat       resolve.Category
	Implicits []Implicit
	Preds     []Pred
	Params    []ParamSig
	Ret       core.Term
	// Type is the standalone type for non-function globals (Univ for
	// type constants of kind `type`, the value type for consts).
	Type core.Term
	Kind core.Kind // for type globals
	// RowPreds are stuck row constraints legitimately left on the
	// signature, mentioning only the definition's own row parameters.
	RowPreds []RowConstraint
}

// IsFunc reports whether the signature has a function telescope.
func (s *Sig) IsFunc() bool {
	return s.Ret != nil
}

// IfaceMethod is one method signature of an interface; Ty mentions the
// carrier local and the method's own implicit locals.
type IfaceMethod struct {
	Name      string
	Implicits []Implicit
	Ty        core.Term
}

// IfaceInfo is the elaborated form of an interface definition.
type IfaceInfo struct {
	Global      *resolve.Global
	Carrier     core.Local
	CarrierKind core.Kind
	Implicits   []Implicit
	Methods     []IfaceMethod
}

// Method returns the method with the given name.
func (i *IfaceInfo) Method(name string) *IfaceMethod {
	for j := range i.Methods {
		if i.Methods[j].Name == name {
			return &i.Methods[j]
		}
	}
	return nil
}

// ImplInfo is one registered implementation.
type ImplInfo struct {
	Global  *resolve.Global
	Iface   core.GlobalID
	Carrier core.Term
	Head    string
}

// ClassInfo records the desugared shape of a class: its record fields
// feed `new` expressions.
type ClassInfo struct {
	Global *resolve.Global
	Fields []ParamSig
}

// binding is one scope entry during elaboration.
type binding struct {
	name   string
	local  core.Local
	ty     core.Term
	isType bool
	kind   core.Kind
	isRow  bool
	rowID  int
}

// obligation is a predicate discharge deferred to the finalizer: the
// dictionary argument was emitted as DictMeta and must be solved to a
// concrete implementation or a forwarded caller dictionary. Preds
// snapshots the enclosing definition's where clauses, and Def its
// name, since implementations may be declared after their use sites.
type obligation struct {
	Pred     Pred
	DictMeta *core.Meta
	Src      ast.Pos
	Preds    []Pred
	Def      string
}

// pendingDef is an emitted definition awaiting overload resolution in
// the finalizer.
type pendingDef struct {
	index  int // into module.Defs
	global *resolve.Global
	preds  []Pred
}

// Checker elaborates definitions in dependency order. It owns the meta
// store and the predicate set; it is single-threaded and never
// suspends.
type Checker struct {
	res   *resolve.Resolution
	store *Store
	bag   *rerr.Bag

	sigs    map[core.GlobalID]*Sig
	ifaces  map[core.GlobalID]*IfaceInfo
	impls   map[core.GlobalID][]*ImplInfo
	aliases map[core.GlobalID]core.Term
	classes map[core.GlobalID]*ClassInfo
	classOf map[*ast.FnDef]*ast.ClassDef
	failed  map[core.GlobalID]bool

	module *linked.Module

	// deferred work for the finalizer
	allObligations []obligation
	pending        []pendingDef

	// per-definition state
	currentDef  string
	scopes      []binding
	preds       []Pred
	rowDeferred []RowConstraint
	obligations []obligation
	nextID      int
}

// NewChecker creates a checker over a resolution with a fresh store.
func NewChecker(res *resolve.Resolution, store *Store) *Checker {
	c := &Checker{
		res:     res,
		store:   store,
		bag:     rerr.NewBag(),
		sigs:    make(map[core.GlobalID]*Sig),
		ifaces:  make(map[core.GlobalID]*IfaceInfo),
		impls:   make(map[core.GlobalID][]*ImplInfo),
		aliases: make(map[core.GlobalID]core.Term),
		classes: make(map[core.GlobalID]*ClassInfo),
		classOf: make(map[*ast.FnDef]*ast.ClassDef),
		failed:  make(map[core.GlobalID]bool),
		module:  &linked.Module{},
	}
	store.unfold = func(id core.GlobalID) (core.Term, bool) {
		body, ok := c.aliases[id]
		return body, ok
	}
	c.registerBuiltinSigs()
	for _, g := range res.Table.All() {
		if cls, ok := g.Def.(*ast.ClassDef); ok {
			for _, m := range cls.Methods {
				c.classOf[m] = cls
			}
		}
	}
	// Definitions that failed resolution stay opaque.
	for _, name := range res.Errors.FailedDefs() {
		for _, g := range res.Table.All() {
			if g.Name == name {
				c.failed[g.ID] = true
			}
		}
	}
	return c
}

// Check elaborates a resolved program and returns the emitted module
// plus the batch of reports (resolution reports included). Types and
// interfaces go first: operator lowering and where clauses may name an
// interface a value definition never references directly, so reference
// edges alone do not order them. Both passes preserve the resolver's
// topological order.
func Check(res *resolve.Resolution) (*linked.Module, *rerr.Bag) {
	c := NewChecker(res, NewStore())
	for _, g := range res.Order {
		if g.Cat == resolve.CatType || g.Cat == resolve.CatInterface {
			c.definition(g)
		}
	}
	for _, g := range res.Order {
		if g.Cat != resolve.CatType && g.Cat != resolve.CatInterface {
			c.definition(g)
		}
	}
	c.finalize()
	for _, r := range res.Errors.Reports() {
		c.bag.Add(r)
	}
	return c.module, c.bag
}

// fresh allocates a unique local.
func (c *Checker) fresh(name string) core.Local {
	c.nextID++
	return core.Local{Name: name, ID: c.nextID}
}

// ---------------------------------------------------------------------------
// Scope
// ---------------------------------------------------------------------------

func (c *Checker) mark() int { return len(c.scopes) }

func (c *Checker) popTo(mark int) { c.scopes = c.scopes[:mark] }

func (c *Checker) bind(b binding) { c.scopes = append(c.scopes, b) }

func (c *Checker) lookupScope(name string) (*binding, bool) {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if c.scopes[i].name == name {
			return &c.scopes[i], true
		}
	}
	return nil, false
}

// ---------------------------------------------------------------------------
// Definition dispatch
// ---------------------------------------------------------------------------

func (c *Checker) definition(g *resolve.Global) {
	if c.failed[g.ID] {
		return
	}
	c.currentDef = g.Name
	c.scopes = c.scopes[:0]
	c.preds = nil
	c.rowDeferred = nil
	c.obligations = nil

	before := c.bag.Len()
	switch d := g.Def.(type) {
	case *ast.FnDef:
		if cls, ok := c.classOf[d]; ok {
			c.fnDefinition(g, d, cls)
		} else {
			c.fnDefinition(g, d, nil)
		}
	case *ast.TypeDef:
		c.typeDefinition(g, d)
	case *ast.ClassDef:
		c.classDefinition(g, d)
	case *ast.InterfaceDef:
		c.ifaceDefinition(g, d)
	case *ast.ImplementsDef:
		c.implDefinition(g, d)
	case *ast.ConstDef:
		c.constDefinition(g, d)
	}
	if c.bag.Len() > before {
		c.failed[g.ID] = true
	}
	c.currentDef = ""
}

// report files a report against the current definition.
func (c *Checker) report(code, msg string, src ast.Pos) {
	rep := rerr.New(code, msg, &ast.Span{Start: src, End: src})
	if c.currentDef != "" {
		rep = rep.WithDef(c.currentDef)
	}
	c.bag.Add(rep)
}

// fail converts an error into a report unless it is already one.
func (c *Checker) fail(err error, src ast.Pos) {
	if err == nil {
		return
	}
	if rep, ok := rerr.AsReport(err); ok {
		if rep.Def == "" && c.currentDef != "" {
			rep.Def = c.currentDef
		}
		c.bag.Add(rep)
		return
	}
	if IsStuck(err) {
		c.report(rerr.ROW004, err.Error(), src)
		return
	}
	c.report("INTERNAL", err.Error(), src)
}

// ---------------------------------------------------------------------------
// Functions
// ---------------------------------------------------------------------------

// bindImplicits elaborates an implicit parameter list into scope and
// returns the signature entries.
func (c *Checker) bindImplicits(params []ast.ImplicitParam) []Implicit {
	var out []Implicit
	for _, p := range params {
		if p.IsRow() {
			rv := c.store.RigidRow(p.Name[1:], p.Pos)
			imp := Implicit{Name: p.Name, Kind: core.KindRow, RowID: rv.ID}
			c.bind(binding{name: p.Name, isRow: true, rowID: rv.ID})
			out = append(out, imp)
			continue
		}
		kind := core.KindArrow(p.Kind.Arity)
		local := c.fresh(p.Name)
		imp := Implicit{Name: p.Name, Kind: kind, Local: local}
		c.bind(binding{name: p.Name, local: local, isType: true, kind: kind, ty: kind.Term(c.fresh)})
		out = append(out, imp)
	}
	return out
}

// bindPreds elaborates the where clauses into the predicate set.
func (c *Checker) bindPreds(where []ast.Predicate) []Pred {
	var out []Pred
	for _, w := range where {
		target, ok := c.res.Target(w.Interface)
		if !ok || target.Global == nil || target.Global.Cat != resolve.CatInterface {
			c.report(rerr.RES002,
				fmt.Sprintf("%s is not an interface", w.Interface.Name), w.Pos)
			continue
		}
		iface, ok := c.ifaces[target.Global.ID]
		if !ok {
			c.report(rerr.DEP002,
				fmt.Sprintf("interface %s failed to elaborate", w.Interface.Name), w.Pos)
			continue
		}
		if len(w.Args) == 0 {
			c.report(rerr.KND002,
				fmt.Sprintf("%s needs a carrier argument", w.Interface.Name), w.Pos)
			continue
		}
		var args []core.Term
		for _, a := range w.Args {
			t, _, err := c.elabType(a)
			if err != nil {
				c.fail(err, w.Pos)
				continue
			}
			args = append(args, t)
		}
		if len(args) == 0 {
			continue
		}
		if kind := c.termKind(args[0]); !kind.Equal(iface.CarrierKind) {
			c.report(rerr.KND001,
				fmt.Sprintf("%s expects a carrier of kind %s, got %s",
					target.Global.Name, iface.CarrierKind, kind), w.Pos)
			continue
		}
		out = append(out, Pred{
			Iface:   target.Global.ID,
			Name:    target.Global.Name,
			Carrier: args[0],
			Args:    args[1:],
			Dict:    c.fresh("dict_" + target.Global.Name),
		})
	}
	return out
}

func (c *Checker) fnDefinition(g *resolve.Global, d *ast.FnDef, cls *ast.ClassDef) {
	base := c.mark()
	defer c.popTo(base)

	sig := &Sig{Cat: resolve.CatFunc}
	if cls != nil {
		sig.Implicits = c.bindImplicits(cls.Implicits)
	}
	sig.Implicits = append(sig.Implicits, c.bindImplicits(d.Implicits)...)
	c.preds = c.bindPreds(d.Where)
	sig.Preds = c.preds

	var paramLocals []core.Local
	if cls != nil {
		// Desugared method: explicit this parameter first.
		thisTy := c.classRef(cls)
		local := c.fresh("this")
		sig.Params = append(sig.Params, ParamSig{Name: "this", Ty: thisTy})
		c.bind(binding{name: "this", local: local, ty: thisTy})
		paramLocals = append(paramLocals, local)
	}
	for _, p := range d.Params {
		var ty core.Term
		if p.Type != nil {
			t, _, err := c.elabType(p.Type)
			if err != nil {
				c.fail(err, p.Pos)
				ty = c.store.FreshMeta(&core.Univ{}, p.Pos)
			} else {
				ty = t
			}
		} else {
			ty = c.store.FreshMeta(&core.Univ{}, p.Pos)
		}
		local := c.fresh(p.Name)
		sig.Params = append(sig.Params, ParamSig{Name: p.Name, Ty: ty})
		c.bind(binding{name: p.Name, local: local, ty: ty})
		paramLocals = append(paramLocals, local)
	}

	if d.Ret != nil {
		t, _, err := c.elabType(d.Ret)
		if err != nil {
			c.fail(err, d.Pos)
			t = c.store.FreshMeta(&core.Univ{}, d.Pos)
		}
		sig.Ret = t
	} else {
		sig.Ret = c.store.FreshMeta(&core.Univ{}, d.Pos)
	}

	// Publish the signature before the body so recursion through a
	// postulated forward declaration checks against it.
	c.sigs[g.ID] = sig

	var body core.Term
	if d.Body != nil {
		var err error
		body, err = c.checkBlock(d.Body, sig.Ret)
		if err != nil {
			c.fail(err, d.Pos)
		}
	}

	// The emitted body is self-contained: lambdas over the implicit
	// parameters, the predicate dictionaries, then the explicit
	// parameters.
	if body != nil {
		for i := len(paramLocals) - 1; i >= 0; i-- {
			body = &core.Lam{Param: paramLocals[i], Body: body}
		}
		for i := len(sig.Preds) - 1; i >= 0; i-- {
			body = &core.Lam{Param: sig.Preds[i].Dict, Body: body}
		}
		for i := len(sig.Implicits) - 1; i >= 0; i-- {
			if !sig.Implicits[i].Kind.Row {
				body = &core.Lam{Param: sig.Implicits[i].Local, Body: body}
			}
		}
	}

	c.settleDefinition(sig, d.Pos)
	sig.Ret = c.zonk(sig.Ret)
	for i := range sig.Params {
		sig.Params[i].Ty = c.zonk(sig.Params[i].Ty)
	}

	c.emitDef(g, sig, body)
}

func (c *Checker) constDefinition(g *resolve.Global, d *ast.ConstDef) {
	base := c.mark()
	defer c.popTo(base)

	var value core.Term
	var ty core.Term
	var err error
	if d.Type != nil {
		ty, _, err = c.elabType(d.Type)
		if err != nil {
			c.fail(err, d.Pos)
			return
		}
		value, err = c.check(d.Value, ty)
	} else {
		value, ty, err = c.infer(d.Value)
	}
	if err != nil {
		c.fail(err, d.Pos)
		return
	}
	sig := &Sig{Cat: resolve.CatConst, Type: c.zonk(ty)}
	c.sigs[g.ID] = sig
	c.settleDefinition(sig, d.Pos)
	c.emitDef(g, sig, value)
}

// ---------------------------------------------------------------------------
// Types, classes, interfaces, implementations
// ---------------------------------------------------------------------------

func (c *Checker) typeDefinition(g *resolve.Global, d *ast.TypeDef) {
	base := c.mark()
	defer c.popTo(base)

	for _, p := range d.Implicits {
		if p.IsRow() {
			c.report(rerr.KND001,
				fmt.Sprintf("type %s: type definitions take type parameters only", d.Name), p.Pos)
			return
		}
	}
	implicits := c.bindImplicits(d.Implicits)
	sig := &Sig{Cat: resolve.CatType, Implicits: implicits, Kind: core.KindArrow(len(d.Implicits))}
	sig.Type = sig.Kind.Term(c.fresh)
	c.sigs[g.ID] = sig

	if d.Body == nil {
		// Postulate: opaque constant of its kind.
		c.emitDef(g, sig, nil)
		return
	}
	body, _, err := c.elabType(d.Body)
	if err != nil {
		c.fail(err, d.Pos)
		return
	}
	// Aliases are transparent: wrap in lambdas over the implicit
	// parameters so application reduces during normalisation.
	wrapped := body
	for i := len(implicits) - 1; i >= 0; i-- {
		wrapped = &core.Lam{Param: implicits[i].Local, Body: wrapped}
	}
	c.aliases[g.ID] = wrapped
	c.settleDefinition(sig, d.Pos)
	c.emitDef(g, sig, c.zonk(wrapped))
}

// classRef builds the reference type for a class, applied to its
// implicit parameters when bound in scope.
func (c *Checker) classRef(cls *ast.ClassDef) core.Term {
	var ref core.Term
	for _, cand := range c.res.Table.All() {
		if cand.Def == ast.Def(cls) {
			ref = &core.Ref{ID: cand.ID, Name: cand.QualName()}
			break
		}
	}
	if ref == nil {
		return c.store.FreshMeta(&core.Univ{}, cls.Pos)
	}
	for _, p := range cls.Implicits {
		if b, ok := c.lookupScope(p.Name); ok {
			if b.isRow {
				ref = &core.App{Fn: ref, Arg: &core.RowTerm{Row: &core.RowVar{Name: b.name, ID: b.rowID}}}
			} else {
				ref = &core.App{Fn: ref, Arg: &core.Var{Local: b.local}}
			}
		}
	}
	return ref
}

func (c *Checker) classDefinition(g *resolve.Global, d *ast.ClassDef) {
	base := c.mark()
	defer c.popTo(base)

	for _, p := range d.Implicits {
		if p.IsRow() {
			c.report(rerr.KND001,
				fmt.Sprintf("class %s: type definitions take type parameters only", d.Name), p.Pos)
			return
		}
	}
	implicits := c.bindImplicits(d.Implicits)
	sig := &Sig{Cat: resolve.CatType, Implicits: implicits, Kind: core.KindArrow(len(d.Implicits))}
	sig.Type = sig.Kind.Term(c.fresh)
	c.sigs[g.ID] = sig

	// The class desugars to a record type alias over its init fields;
	// the constructor (`new`) and the free-standing methods are
	// elaborated from the same info.
	info := &ClassInfo{Global: g}
	var labels []core.Label
	for _, f := range d.Fields {
		if f.Type == nil {
			c.report(rerr.TC003, fmt.Sprintf("field %s needs a type", f.Name), f.Pos)
			continue
		}
		ty, _, err := c.elabType(f.Type)
		if err != nil {
			c.fail(err, f.Pos)
			continue
		}
		info.Fields = append(info.Fields, ParamSig{Name: f.Name, Ty: ty})
		labels = append(labels, core.Label{Name: f.Name, Ty: ty})
	}
	c.classes[g.ID] = info

	body := core.Term(&core.RecTy{Row: &core.RowLit{Labels: labels}})
	for i := len(implicits) - 1; i >= 0; i-- {
		body = &core.Lam{Param: implicits[i].Local, Body: body}
	}
	c.aliases[g.ID] = body
	c.settleDefinition(sig, d.Pos)
	c.emitDef(g, sig, c.zonk(body))
}

func (c *Checker) ifaceDefinition(g *resolve.Global, d *ast.InterfaceDef) {
	base := c.mark()
	defer c.popTo(base)

	info := &IfaceInfo{Global: g, CarrierKind: core.KindArrow(d.Carrier.Kind.Arity)}
	info.Carrier = c.fresh(d.Carrier.Name)
	c.bind(binding{
		name:   d.Carrier.Name,
		local:  info.Carrier,
		isType: true,
		kind:   info.CarrierKind,
		ty:     info.CarrierKind.Term(c.fresh),
	})
	info.Implicits = c.bindImplicits(d.Implicits)

	for _, m := range d.Methods {
		methodMark := c.mark()
		implicits := c.bindImplicits(m.Implicits)
		ty, err := c.methodPi(m)
		c.popTo(methodMark)
		if err != nil {
			c.fail(err, m.Pos)
			continue
		}
		info.Methods = append(info.Methods, IfaceMethod{Name: m.Name, Implicits: implicits, Ty: ty})
	}
	c.ifaces[g.ID] = info
	sig := &Sig{Cat: resolve.CatInterface, Type: &core.Univ{}}
	c.sigs[g.ID] = sig
	c.emitDef(g, sig, nil)
}

// methodPi elaborates one interface method signature into a Pi
// telescope over its explicit parameters.
func (c *Checker) methodPi(m ast.MethodSig) (core.Term, error) {
	mark := c.mark()
	defer c.popTo(mark)

	type pp struct {
		local core.Local
		ty    core.Term
	}
	var params []pp
	for _, p := range m.Params {
		if p.Type == nil {
			return nil, fmt.Errorf("method %s: parameter %s needs a type", m.Name, p.Name)
		}
		ty, _, err := c.elabType(p.Type)
		if err != nil {
			return nil, err
		}
		local := c.fresh(p.Name)
		params = append(params, pp{local, ty})
		c.bind(binding{name: p.Name, local: local, ty: ty})
	}
	var ret core.Term
	if m.Ret != nil {
		t, _, err := c.elabType(m.Ret)
		if err != nil {
			return nil, err
		}
		ret = t
	} else {
		ret = c.builtinTy(resolve.BuiltinUnit)
	}
	out := ret
	for i := len(params) - 1; i >= 0; i-- {
		out = &core.Pi{Param: params[i].local, ParamTy: params[i].ty, Body: out}
	}
	return out, nil
}

func (c *Checker) implDefinition(g *resolve.Global, d *ast.ImplementsDef) {
	base := c.mark()
	defer c.popTo(base)

	target, ok := c.res.Target(d.Interface)
	if !ok || target.Global == nil || target.Global.Cat != resolve.CatInterface {
		c.report(rerr.RES002, fmt.Sprintf("%s is not an interface", d.Interface.Name), d.Pos)
		return
	}
	iface, ok := c.ifaces[target.Global.ID]
	if !ok {
		c.report(rerr.DEP002, fmt.Sprintf("interface %s failed to elaborate", d.Interface.Name), d.Pos)
		return
	}

	carrier, kind, err := c.elabType(d.Carrier)
	if err != nil {
		c.fail(err, d.Pos)
		return
	}
	if !kind.Equal(iface.CarrierKind) {
		c.report(rerr.KND001,
			fmt.Sprintf("carrier %s has kind %s, interface %s wants %s",
				carrier, kind, iface.Global.Name, iface.CarrierKind), d.Pos)
		return
	}

	// Coherence: one implementation per (interface, carrier head), in
	// declaration order.
	head := carrierHead(carrier, c.store)
	for _, prev := range c.impls[iface.Global.ID] {
		if prev.Head == head {
			c.report(rerr.INS003,
				fmt.Sprintf("overlapping implementation of %s for %s", iface.Global.Name, head), d.Pos)
			return
		}
	}

	// Each method body is checked against the interface signature with
	// the carrier instantiated.
	var fields []core.TermField
	var rowLabels []core.Label
	for _, m := range d.Methods {
		sig := iface.Method(m.Name)
		if sig == nil {
			c.report(rerr.RES002,
				fmt.Sprintf("interface %s has no method %s", iface.Global.Name, m.Name), m.Pos)
			continue
		}
		expected := core.Bind1(iface.Carrier, carrier).Term(sig.Ty)
		bodyTerm, err := c.checkFnAgainst(m, sig.Implicits, expected)
		if err != nil {
			c.fail(err, m.Pos)
			continue
		}
		fields = append(fields, core.TermField{Label: m.Name, Value: bodyTerm})
		rowLabels = append(rowLabels, core.Label{Name: m.Name, Ty: expected})
	}
	for _, sig := range iface.Methods {
		found := false
		for _, f := range fields {
			if f.Label == sig.Name {
				found = true
				break
			}
		}
		if !found {
			c.report(rerr.RES002,
				fmt.Sprintf("implementation of %s is missing method %s", iface.Global.Name, sig.Name), d.Pos)
		}
	}

	dict := &core.RecLit{Fields: fields}
	dict.SortFields()
	sig := &Sig{Cat: resolve.CatImpl, Type: &core.RecTy{Row: &core.RowLit{Labels: rowLabels}}}
	c.sigs[g.ID] = sig
	c.settleDefinition(sig, d.Pos)

	info := &ImplInfo{Global: g, Iface: iface.Global.ID, Carrier: c.zonk(carrier), Head: head}
	c.impls[iface.Global.ID] = append(c.impls[iface.Global.ID], info)
	c.emitImpl(g, iface, info, dict)
}

// checkFnAgainst checks a surface function body against an expected Pi
// type, binding its implicit parameters to the method's implicit
// telescope.
func (c *Checker) checkFnAgainst(d *ast.FnDef, implicits []Implicit, expected core.Term) (core.Term, error) {
	mark := c.mark()
	defer c.popTo(mark)

	// The implementation re-declares the method's implicit parameters
	// under its own names; bind them positionally and rename the
	// interface-side implicits in the expected type to match.
	rename := core.NewSubst()
	var lamParams []core.Local
	for i, p := range d.Implicits {
		if i >= len(implicits) {
			return nil, fmt.Errorf("method %s declares too many implicit parameters", d.Name)
		}
		if p.IsRow() {
			rv := c.store.RigidRow(p.Name[1:], p.Pos)
			c.bind(binding{name: p.Name, isRow: true, rowID: rv.ID})
			if implicits[i].Kind.Row {
				rename.Rows[implicits[i].RowID] = rv
			}
			continue
		}
		local := c.fresh(p.Name)
		kind := core.KindArrow(p.Kind.Arity)
		c.bind(binding{name: p.Name, local: local, isType: true, kind: kind, ty: kind.Term(c.fresh)})
		rename.Terms[implicits[i].Local.ID] = &core.Var{Local: local}
		lamParams = append(lamParams, local)
	}
	expected = rename.Term(expected)

	lam := ast.Expr(d.Body)
	if len(d.Params) > 0 {
		lam = &ast.Lambda{Params: d.Params, Body: d.Body, Pos: d.Pos}
	}
	body, err := c.check(lam, expected)
	if err != nil {
		return nil, err
	}
	for i := len(lamParams) - 1; i >= 0; i-- {
		body = &core.Lam{Param: lamParams[i], Body: body}
	}
	return body, nil
}

// ---------------------------------------------------------------------------
// Per-definition settlement and emission
// ---------------------------------------------------------------------------

// settleDefinition retries deferred row constraints now that the
// definition's unification problems are all posted, and hands its
// predicate obligations on to the finalizer. Row constraints that still mention only the definition's own
// rigid row parameters stay on the signature; everything else is an
// error.
func (c *Checker) settleDefinition(sig *Sig, src ast.Pos) {
	remaining := c.rowDeferred
	c.rowDeferred = nil
	for _, rc := range remaining {
		var err error
		if rc.Op == "<:" {
			err = c.subRow(rc.Left, rc.Right, rc.Src)
		} else {
			err = c.unifyRows(rc.Left, rc.Right, rc.Src)
		}
		if err == nil {
			continue
		}
		if IsStuck(err) && c.rigidOnly(rc) {
			sig.RowPreds = append(sig.RowPreds, rc)
			continue
		}
		c.fail(err, rc.Src)
	}

	// Predicate obligations wait for the finalizer: the matching
	// implementation may be declared after this definition.
	for _, ob := range c.obligations {
		ob.Preds = c.preds
		ob.Def = c.currentDef
		c.allObligations = append(c.allObligations, ob)
	}
	c.obligations = nil
}

// rigidOnly reports whether a deferred constraint mentions no flexible
// variables, i.e. it genuinely ranges over the signature's own row
// parameters.
func (c *Checker) rigidOnly(rc RowConstraint) bool {
	for _, r := range []core.Row{rc.Left, rc.Right} {
		nf, err := core.Canon(r, c.store)
		if err != nil {
			return false
		}
		for _, v := range nf.Vars {
			if c.store.IsFlexible(v.ID) {
				return false
			}
		}
	}
	return true
}

func (c *Checker) emitDef(g *resolve.Global, sig *Sig, body core.Term) {
	def := linked.Def{
		Name:   g.Name,
		Module: g.Module,
		Cat:    g.Cat.String(),
		Body:   body,
		Type:   c.sigType(sig),
	}
	for _, p := range sig.Preds {
		def.Preds = append(def.Preds, p.String())
	}
	for _, rc := range sig.RowPreds {
		def.Preds = append(def.Preds, rc.String())
	}
	c.module.Defs = append(c.module.Defs, def)
	c.pending = append(c.pending, pendingDef{index: len(c.module.Defs) - 1, global: g, preds: c.preds})
}

func (c *Checker) emitImpl(g *resolve.Global, iface *IfaceInfo, info *ImplInfo, dict core.Term) {
	c.module.Defs = append(c.module.Defs, linked.Def{
		Name:   g.Name,
		Module: g.Module,
		Cat:    g.Cat.String(),
		Body:   dict,
		Type:   c.sigType(c.sigs[g.ID]),
	})
	c.pending = append(c.pending, pendingDef{index: len(c.module.Defs) - 1, global: g, preds: c.preds})
	c.module.Impls = append(c.module.Impls, linked.Impl{
		Interface:   iface.Global.Name,
		CarrierHead: info.Head,
		Name:        g.QualName(),
	})
}

// sigType rebuilds the full Pi type of a signature for emission.
func (c *Checker) sigType(sig *Sig) core.Term {
	if !sig.IsFunc() {
		return c.zonk(sig.Type)
	}
	out := c.zonk(sig.Ret)
	for i := len(sig.Params) - 1; i >= 0; i-- {
		out = &core.Pi{
			Param:   c.fresh(sig.Params[i].Name),
			ParamTy: c.zonk(sig.Params[i].Ty),
			Body:    out,
		}
	}
	for i := len(sig.Preds) - 1; i >= 0; i-- {
		p := sig.Preds[i]
		out = &core.Pi{
			Param:    p.Dict,
			ParamTy:  c.dictType(p),
			Body:     out,
			Implicit: true,
		}
	}
	for i := len(sig.Implicits) - 1; i >= 0; i-- {
		imp := sig.Implicits[i]
		var paramTy core.Term
		if imp.Kind.Row {
			paramTy = &core.RowUniv{}
		} else {
			paramTy = imp.Kind.Term(c.fresh)
		}
		local := imp.Local
		if imp.Kind.Row {
			local = c.fresh(imp.Name)
		}
		out = &core.Pi{Param: local, ParamTy: paramTy, Body: out, Implicit: true}
	}
	return out
}

// dictType is the record-of-methods type of a predicate's dictionary.
func (c *Checker) dictType(p Pred) core.Term {
	iface, ok := c.ifaces[p.Iface]
	if !ok {
		return &core.Univ{}
	}
	var labels []core.Label
	for _, m := range iface.Methods {
		labels = append(labels, core.Label{
			Name: m.Name,
			Ty:   core.Bind1(iface.Carrier, p.Carrier).Term(m.Ty),
		})
	}
	return &core.RecTy{Row: &core.RowLit{Labels: labels}}
}
