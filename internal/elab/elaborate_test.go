package elab

import (
	"strings"
	"testing"

	"github.com/kirraObj-s-archives/rowscript/internal/ast"
	rerr "github.com/kirraObj-s-archives/rowscript/internal/errors"
	"github.com/kirraObj-s-archives/rowscript/internal/linked"
	"github.com/kirraObj-s-archives/rowscript/internal/resolve"
)

// Surface tree builders. Tests construct trees directly; the JSON wire
// format is covered in the ast package.

func named(name string, args ...ast.Type) *ast.NamedType {
	return &ast.NamedType{Name: name, Args: args}
}

func num(v float64) *ast.Lit  { return &ast.Lit{Kind: ast.NumberLit, Value: v} }
func str(v string) *ast.Lit   { return &ast.Lit{Kind: ast.StringLit, Value: v} }
func id(name string) *ast.Ident { return &ast.Ident{Name: name} }

func record(fields ...ast.Field) *ast.RecordLit { return &ast.RecordLit{Fields: fields} }
func fld(label string, v ast.Expr) ast.Field    { return ast.Field{Label: label, Value: v} }

func proj(e ast.Expr, label string) *ast.Proj { return &ast.Proj{Expr: e, Label: label} }

func call(fn ast.Expr, args ...ast.Expr) *ast.Call { return &ast.Call{Fn: fn, Args: args} }

func ret(e ast.Expr) *ast.Return { return &ast.Return{Value: e} }

func body(stmts ...ast.Stmt) *ast.Block { return &ast.Block{Stmts: stmts} }

func fn(name string, ret ast.Type, b *ast.Block, params ...ast.Param) *ast.FnDef {
	return &ast.FnDef{Name: name, Params: params, Ret: ret, Body: b}
}

func param(name string, ty ast.Type) ast.Param { return ast.Param{Name: name, Type: ty} }

func alias(name string, ty ast.Type) *ast.TypeDef { return &ast.TypeDef{Name: name, Body: ty} }

func recordTy(fields ...ast.TypeField) *ast.RecordType { return &ast.RecordType{Fields: fields} }

func variantTy(cases ...ast.TypeField) *ast.VariantType { return &ast.VariantType{Cases: cases} }

func tfld(label string, ty ast.Type) ast.TypeField { return ast.TypeField{Label: label, Type: ty} }

func compile(t *testing.T, defs ...ast.Def) (*linked.Module, *rerr.Bag) {
	t.Helper()
	res := resolve.Resolve([]*ast.File{{Path: "main", Defs: defs}})
	return Check(res)
}

func mustCompile(t *testing.T, defs ...ast.Def) *linked.Module {
	t.Helper()
	module, bag := compile(t, defs...)
	if !bag.Empty() {
		t.Fatalf("unexpected reports:\n%s", bag)
	}
	return module
}

func hasCode(bag *rerr.Bag, code string) bool {
	for _, r := range bag.Reports() {
		if r.Code == code {
			return true
		}
	}
	return false
}

// Shared fixtures for the interface scenarios.

func fooAlias() *ast.TypeDef {
	return alias("Foo", recordTy(tfld("n", named("number"))))
}

func natLike() *ast.InterfaceDef {
	return &ast.InterfaceDef{
		Name:    "NatLike",
		Carrier: ast.ImplicitParam{Name: "T"},
		Methods: []ast.MethodSig{{
			Name: "add",
			Params: []ast.Param{
				param("a", named("T")),
				param("b", named("T")),
			},
			Ret: named("T"),
		}},
	}
}

func natLikeForFoo() *ast.ImplementsDef {
	return &ast.ImplementsDef{
		Interface: &ast.QualIdent{Name: "NatLike"},
		Carrier:   named("Foo"),
		Methods: []*ast.FnDef{
			fn("add", named("Foo"),
				body(ret(record(fld("n", &ast.BinOp{Op: "+", Left: proj(id("a"), "n"), Right: proj(id("b"), "n")})))),
				param("a", named("Foo")), param("b", named("Foo"))),
		},
	}
}

// A record field projection elaborates with its field type.
func TestRecordFieldType(t *testing.T) {
	module := mustCompile(t,
		fn("f", named("number"), body(ret(proj(record(fld("n", num(42))), "n")))),
	)
	def := module.Def("f")
	if def == nil {
		t.Fatal("f not emitted")
	}
	if got := def.Type.String(); got != "number" {
		t.Errorf("type of f = %q, want number", got)
	}
	if !strings.Contains(def.Body.String(), ".n") {
		t.Errorf("body lost the projection: %s", def.Body)
	}
}

// An interface method with a concrete carrier rewrites to the
// implementation.
func TestInterfaceImmediateDispatch(t *testing.T) {
	module := mustCompile(t,
		fooAlias(), natLike(), natLikeForFoo(),
		fn("f", named("number"),
			body(ret(proj(call(id("add"), record(fld("n", num(42))), record(fld("n", num(69)))), "n")))),
	)
	def := module.Def("f")
	if def == nil {
		t.Fatal("f not emitted")
	}
	got := def.Body.String()
	if !strings.Contains(got, "NatLike for Foo") || !strings.Contains(got, ".add") {
		t.Errorf("add did not rewrite to the implementation: %s", got)
	}
	if len(module.Impls) != 1 {
		t.Fatalf("impls = %v", module.Impls)
	}
	if module.Impls[0].Interface != "NatLike" || module.Impls[0].CarrierHead != "main::Foo" {
		t.Errorf("registration = %+v", module.Impls[0])
	}
}

// A polymorphic function keeps the predicate; the call site
// discharges it.
func TestInterfaceStuckPredicate(t *testing.T) {
	f0 := &ast.FnDef{
		Name:      "f0",
		Implicits: []ast.ImplicitParam{{Name: "T"}},
		Params:    []ast.Param{param("a", named("T"))},
		Ret:       named("T"),
		Where: []ast.Predicate{{
			Interface: &ast.QualIdent{Name: "NatLike"},
			Args:      []ast.Type{named("T")},
		}},
		Body: body(ret(call(id("add"), id("a"), id("a")))),
	}
	f1 := fn("f1", named("number"),
		body(ret(proj(call(id("f0"), record(fld("n", num(42)))), "n"))))

	module := mustCompile(t, fooAlias(), natLike(), natLikeForFoo(), f0, f1)

	d0 := module.Def("f0")
	if d0 == nil {
		t.Fatal("f0 not emitted")
	}
	if len(d0.Preds) != 1 || d0.Preds[0] != "NatLike<T>" {
		t.Errorf("f0 predicates = %v", d0.Preds)
	}
	if !strings.Contains(d0.Body.String(), "dict_NatLike.add") {
		t.Errorf("f0 body should reference the dictionary: %s", d0.Body)
	}

	d1 := module.Def("f1")
	if d1 == nil {
		t.Fatal("f1 not emitted")
	}
	if !strings.Contains(d1.Body.String(), "NatLike for Foo") {
		t.Errorf("f1 should discharge the predicate with the Foo implementation: %s", d1.Body)
	}
	if len(d1.Preds) != 0 {
		t.Errorf("f1 should carry no predicates: %v", d1.Preds)
	}
}

// A higher-kinded interface dispatches via the explicit type
// argument.
func TestHigherKindedInterface(t *testing.T) {
	functor := &ast.InterfaceDef{
		Name:    "Functor",
		Carrier: ast.ImplicitParam{Name: "F", Kind: ast.Kind{Arity: 1}},
		Methods: []ast.MethodSig{{
			Name:      "map",
			Implicits: []ast.ImplicitParam{{Name: "A"}, {Name: "B"}},
			Params: []ast.Param{
				param("f", &ast.FuncType{Params: []ast.Param{param("a", named("A"))}, Ret: named("B")}),
				param("x", named("F", named("A"))),
			},
			Ret: named("F", named("B")),
		}},
	}
	fooCtor := &ast.TypeDef{
		Name:      "Foo",
		Implicits: []ast.ImplicitParam{{Name: "T"}},
		Body:      recordTy(tfld("n", named("number"))),
	}
	impl := &ast.ImplementsDef{
		Interface: &ast.QualIdent{Name: "Functor"},
		Carrier:   named("Foo"),
		Methods: []*ast.FnDef{{
			Name:      "map",
			Implicits: []ast.ImplicitParam{{Name: "A"}, {Name: "B"}},
			Params: []ast.Param{
				param("f", &ast.FuncType{Params: []ast.Param{param("a", named("A"))}, Ret: named("B")}),
				param("x", named("Foo", named("A"))),
			},
			Body: body(ret(record(fld("n", proj(id("x"), "n"))))),
		}},
	}
	numToStr := &ast.FnDef{
		Name:   "numToStr",
		Params: []ast.Param{param("a", named("number"))},
		Ret:    named("string"),
	}
	g := fn("g", named("number"),
		body(ret(proj(
			&ast.Call{
				Fn:       id("map"),
				TypeArgs: []ast.TypeArg{{Type: named("Foo")}},
				Args:     []ast.Expr{id("numToStr"), record(fld("n", num(42)))},
			},
			"n"))))

	module := mustCompile(t, functor, fooCtor, impl, numToStr, g)

	d := module.Def("g")
	if d == nil {
		t.Fatal("g not emitted")
	}
	if !strings.Contains(d.Body.String(), "Functor for Foo") {
		t.Errorf("map did not dispatch to Foo's Functor: %s", d.Body)
	}
	if module.Impls[0].CarrierHead != "main::Foo" {
		t.Errorf("carrier head = %q", module.Impls[0].CarrierHead)
	}
}

// Variant widening via cast and narrowing via unionify.
func TestVariantWideningAndNarrowing(t *testing.T) {
	f0 := fn("f0",
		variantTy(tfld("None", nil), tfld("Some", named("number"))),
		body(ret(&ast.VariantLit{Label: "Some", Payload: num(42)})))
	f1 := fn("f1",
		variantTy(tfld("None", nil), tfld("Some", named("number")), tfld("More", named("string"))),
		body(ret(&ast.VariantCast{Expr: call(id("f0"))})))

	writeOptions := alias("WriteOptions",
		variantTy(tfld("WritePath", recordTy(tfld("path", named("string"))))))
	write := &ast.FnDef{
		Name:   "write",
		Params: []ast.Param{param("o", named("WriteOptions"))},
		Ret:    named("unit"),
	}
	f4 := fn("f4", nil, body(
		&ast.Let{Name: "a", Type: named("WriteOptions"),
			Value: &ast.VariantLit{Label: "WritePath", Payload: record(fld("path", str("foo.txt")))}},
		ret(call(id("write"), call(id("unionify"), id("a")))),
	))

	module := mustCompile(t, f0, f1, writeOptions, write, f4)

	if d := module.Def("f1"); !strings.Contains(d.Body.String(), "[...") {
		t.Errorf("f1 should widen through a variant cast: %s", d.Body)
	}
	d4 := module.Def("f4")
	if d4 == nil {
		t.Fatal("f4 not emitted")
	}
	if !strings.Contains(d4.Body.String(), "main::write") {
		t.Errorf("f4 lost the call to write: %s", d4.Body)
	}
	if !strings.Contains(d4.Type.String(), "unit") {
		t.Errorf("f4 should return unit: %s", d4.Type)
	}
}

// A switch must cover the variant row exactly.
func TestSwitchExhaustiveness(t *testing.T) {
	f0 := fn("f0",
		variantTy(tfld("None", nil), tfld("Some", named("number"))),
		body(ret(&ast.VariantLit{Label: "Some", Payload: num(42)})))

	full := fn("f", named("number"), body(ret(&ast.Switch{
		Scrutinee: call(id("f0")),
		Cases: []ast.Case{
			{Label: "None", Body: num(69)},
			{Label: "Some", Binder: "n", Body: id("n")},
		},
	})))
	module := mustCompile(t, f0, full)
	if d := module.Def("f"); !strings.Contains(d.Body.String(), "switch") {
		t.Errorf("switch lost in elaboration: %s", d.Body)
	}

	missing := fn("g", named("number"), body(ret(&ast.Switch{
		Scrutinee: call(id("f0")),
		Cases: []ast.Case{
			{Label: "Some", Binder: "n", Body: id("n")},
		},
	})))
	_, bag := compile(t, f0, missing)
	if !hasCode(bag, rerr.EXH001) {
		t.Errorf("expected EXH001 for a missing case, got:\n%s", bag)
	}

	extra := fn("h", named("number"), body(ret(&ast.Switch{
		Scrutinee: call(id("f0")),
		Cases: []ast.Case{
			{Label: "None", Body: num(69)},
			{Label: "Some", Binder: "n", Body: id("n")},
			{Label: "Other", Body: num(1)},
		},
	})))
	_, bag = compile(t, f0, extra)
	if !hasCode(bag, rerr.EXH002) {
		t.Errorf("expected EXH002 for an extra case, got:\n%s", bag)
	}
}

func TestNoInstanceReported(t *testing.T) {
	_, bag := compile(t,
		fooAlias(), natLike(), natLikeForFoo(),
		fn("f", nil, body(ret(call(id("add"), record(fld("m", num(1))), record(fld("m", num(2))))))),
	)
	if !hasCode(bag, rerr.INS001) {
		t.Errorf("expected INS001, got:\n%s", bag)
	}
}

func TestAmbiguousInstanceReported(t *testing.T) {
	// Bar is a distinct alias with the same underlying record, so both
	// implementations unify with the inferred carrier.
	bar := alias("Bar", recordTy(tfld("n", named("number"))))
	implBar := &ast.ImplementsDef{
		Interface: &ast.QualIdent{Name: "NatLike"},
		Carrier:   named("Bar"),
		Methods: []*ast.FnDef{
			fn("add", named("Bar"),
				body(ret(record(fld("n", proj(id("a"), "n"))))),
				param("a", named("Bar")), param("b", named("Bar"))),
		},
	}
	_, bag := compile(t,
		fooAlias(), bar, natLike(), natLikeForFoo(), implBar,
		fn("f", named("number"),
			body(ret(proj(call(id("add"), record(fld("n", num(1))), record(fld("n", num(2)))), "n")))),
	)
	if !hasCode(bag, rerr.INS002) {
		t.Errorf("expected INS002, got:\n%s", bag)
	}
}

func TestPredicateWithoutWhereClause(t *testing.T) {
	f := &ast.FnDef{
		Name:      "f",
		Implicits: []ast.ImplicitParam{{Name: "T"}},
		Params:    []ast.Param{param("a", named("T"))},
		Ret:       named("T"),
		Body:      body(ret(call(id("add"), id("a"), id("a")))),
	}
	_, bag := compile(t, fooAlias(), natLike(), natLikeForFoo(), f)
	if !hasCode(bag, rerr.INS001) {
		t.Errorf("expected INS001 for a rigid carrier without a where clause, got:\n%s", bag)
	}
}

func TestOverlappingImplementationRejected(t *testing.T) {
	_, bag := compile(t, fooAlias(), natLike(), natLikeForFoo(), natLikeForFoo())
	if !hasCode(bag, rerr.INS003) {
		t.Errorf("expected INS003, got:\n%s", bag)
	}
}

func TestOperatorLoweringOnNumbers(t *testing.T) {
	module := mustCompile(t,
		fn("f", named("number"),
			body(ret(&ast.BinOp{Op: "+", Left: num(1), Right: num(2)}))),
	)
	if d := module.Def("f"); !strings.Contains(d.Body.String(), "number#__add__") {
		t.Errorf("+ on numbers should lower to the builtin: %s", d.Body)
	}
}

func TestOperatorLoweringViaInterface(t *testing.T) {
	magic := &ast.InterfaceDef{
		Name:    "AddLike",
		Carrier: ast.ImplicitParam{Name: "T"},
		Methods: []ast.MethodSig{{
			Name:   "__add__",
			Params: []ast.Param{param("a", named("T")), param("b", named("T"))},
			Ret:    named("T"),
		}},
	}
	impl := &ast.ImplementsDef{
		Interface: &ast.QualIdent{Name: "AddLike"},
		Carrier:   named("Foo"),
		Methods: []*ast.FnDef{
			fn("__add__", named("Foo"),
				body(ret(record(fld("n", &ast.BinOp{Op: "+", Left: proj(id("a"), "n"), Right: proj(id("b"), "n")})))),
				param("a", named("Foo")), param("b", named("Foo"))),
		},
	}
	f := fn("f", named("Foo"),
		body(
			&ast.Let{Name: "x", Type: named("Foo"), Value: record(fld("n", num(1)))},
			ret(&ast.BinOp{Op: "+", Left: id("x"), Right: id("x")})),
	)
	module := mustCompile(t, fooAlias(), magic, impl, f)
	if d := module.Def("f"); !strings.Contains(d.Body.String(), "AddLike for Foo") {
		t.Errorf("+ on Foo should dispatch through AddLike: %s", d.Body)
	}
}

func TestPipeDesugarsToCall(t *testing.T) {
	inc := fn("inc", named("number"),
		body(ret(&ast.BinOp{Op: "+", Left: id("a"), Right: num(1)})),
		param("a", named("number")))
	f := fn("f", named("number"),
		body(ret(&ast.Pipe{Value: num(41), Call: call(id("inc"))})))

	module := mustCompile(t, inc, f)
	if d := module.Def("f"); !strings.Contains(d.Body.String(), "main::inc(41)") {
		t.Errorf("pipe should become a call with the value prepended: %s", d.Body)
	}
}

func TestClassDesugars(t *testing.T) {
	cls := &ast.ClassDef{
		Name:   "Point",
		Fields: []ast.Param{param("x", named("number")), param("y", named("number"))},
		Methods: []*ast.FnDef{
			fn("norm1", named("number"),
				body(ret(&ast.BinOp{Op: "+", Left: proj(id("this"), "x"), Right: proj(id("this"), "y")}))),
		},
	}
	f := fn("f", named("number"), body(
		&ast.Let{Name: "p", Value: &ast.New{Type: named("Point"), Args: []ast.Expr{num(3), num(4)}}},
		ret(call(proj(id("p"), "norm1"))),
	))

	module := mustCompile(t, cls, f)
	if module.Def("Point") == nil {
		t.Fatal("class type not emitted")
	}
	d := module.Def("norm1")
	if d == nil {
		t.Fatal("class method not emitted as a free-standing function")
	}
	if !strings.Contains(d.Type.String(), "this") {
		t.Errorf("method should take an explicit this: %s", d.Type)
	}
	if df := module.Def("f"); !strings.Contains(df.Body.String(), "main::norm1") {
		t.Errorf("UFCS call should target the method function: %s", df.Body)
	}
}

func TestHoleBecomesUnresolvedMeta(t *testing.T) {
	f := fn("f", nil, body(ret(&ast.Hole{})))
	_, bag := compile(t, f)
	if !hasCode(bag, rerr.FIN001) {
		t.Errorf("expected FIN001 for an unconstrained hole, got:\n%s", bag)
	}
}

func TestHoleSolvedByContext(t *testing.T) {
	f := fn("f", named("number"), body(
		&ast.Let{Name: "x", Type: named("number"), Value: &ast.Hole{}},
		ret(num(1)),
	))
	_, bag := compile(t, f)
	// The hole's type is pinned by the annotation; the hole itself has
	// no solution and must still be reported.
	if !hasCode(bag, rerr.FIN001) {
		t.Errorf("expected FIN001, got:\n%s", bag)
	}
}

func TestObjectConcatDisjoint(t *testing.T) {
	f := fn("f", named("number"), body(ret(proj(
		&ast.RecordConcat{
			Left:  record(fld("a", num(1))),
			Right: record(fld("b", num(2))),
		}, "b"))))
	module := mustCompile(t, f)
	if d := module.Def("f"); d.Type.String() != "number" {
		t.Errorf("type = %s", d.Type)
	}

	overlap := fn("g", nil, body(ret(&ast.RecordConcat{
		Left:  record(fld("a", num(1))),
		Right: record(fld("a", num(2))),
	})))
	_, bag := compile(t, overlap)
	if !hasCode(bag, rerr.ROW001) {
		t.Errorf("expected ROW001 for overlapping concat, got:\n%s", bag)
	}
}

func TestRecordCastWidens(t *testing.T) {
	wide := fn("wide", recordTy(tfld("a", named("number"))),
		body(ret(&ast.RecordCast{Expr: record(fld("a", num(1)), fld("b", num(2)))})))
	module := mustCompile(t, wide)
	if d := module.Def("wide"); !strings.Contains(d.Body.String(), "{...") {
		t.Errorf("cast lost: %s", d.Body)
	}
}

func TestTypeMismatchReported(t *testing.T) {
	f := fn("f", named("number"), body(ret(str("not a number"))))
	_, bag := compile(t, f)
	if !hasCode(bag, rerr.TC001) {
		t.Errorf("expected TC001, got:\n%s", bag)
	}
}

func TestFailedDefinitionIsOpaqueDownstream(t *testing.T) {
	// bad's body fails, but its declared signature stays usable so the
	// failure does not cascade into uses.
	bad := fn("bad", named("number"), body(ret(str("oops"))))
	uses := fn("uses", named("number"), body(ret(call(id("bad")))))
	_, bag := compile(t, bad, uses)
	if !hasCode(bag, rerr.TC001) {
		t.Fatalf("expected the original failure, got:\n%s", bag)
	}
	for _, r := range bag.Reports() {
		if r.Def == "uses" {
			t.Errorf("failure cascaded into uses: %s: %s", r.Code, r.Message)
		}
	}
}

func TestDeterministicElaboration(t *testing.T) {
	defs := func() []ast.Def {
		return []ast.Def{
			fooAlias(), natLike(), natLikeForFoo(),
			fn("f", named("number"),
				body(ret(proj(call(id("add"), record(fld("n", num(42))), record(fld("n", num(69)))), "n")))),
		}
	}
	first := mustCompile(t, defs()...)
	second := mustCompile(t, defs()...)

	a, err := first.ToJSON(true)
	if err != nil {
		t.Fatal(err)
	}
	b, err := second.ToJSON(true)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("elaboration is not deterministic:\n%s\nvs\n%s", a, b)
	}
}
