package resolve

import (
	"testing"

	"github.com/kirraObj-s-archives/rowscript/internal/ast"
	rerr "github.com/kirraObj-s-archives/rowscript/internal/errors"
)

func numTy() ast.Type { return &ast.NamedType{Name: "number"} }

func fnDef(name string, body ...ast.Stmt) *ast.FnDef {
	return &ast.FnDef{Name: name, Ret: numTy(), Body: &ast.Block{Stmts: body}}
}

func retIdent(name string) ast.Stmt {
	return &ast.Return{Value: &ast.Ident{Name: name}}
}

func file(path string, defs ...ast.Def) *ast.File {
	return &ast.File{Path: path, Defs: defs}
}

func hasCode(bag *rerr.Bag, code string) bool {
	for _, r := range bag.Reports() {
		if r.Code == code {
			return true
		}
	}
	return false
}

func TestResolveLocalShadowsGlobal(t *testing.T) {
	// let a = ...; return a  -- the local wins over the global const a.
	f := fnDef("f",
		&ast.Let{Name: "a", Value: &ast.Lit{Kind: ast.NumberLit, Value: 1.0}},
		retIdent("a"),
	)
	konst := &ast.ConstDef{Name: "a", Value: &ast.Lit{Kind: ast.NumberLit, Value: 2.0}}

	res := Resolve([]*ast.File{file("main", konst, f)})
	if !res.Errors.Empty() {
		t.Fatalf("unexpected errors: %s", res.Errors)
	}

	ret := f.Body.Stmts[1].(*ast.Return)
	target, ok := res.Target(ret.Value.(*ast.Ident))
	if !ok {
		t.Fatal("return identifier untagged")
	}
	if target.Kind != TargetLocal {
		t.Errorf("target = %v, want local", target.Kind)
	}
}

func TestResolveUnknownName(t *testing.T) {
	f := fnDef("f", retIdent("nowhere"))
	res := Resolve([]*ast.File{file("main", f)})
	if !hasCode(res.Errors, rerr.RES002) {
		t.Errorf("expected RES002, got: %s", res.Errors)
	}
}

func TestResolveBuiltinReference(t *testing.T) {
	f := fnDef("f", retIdent("unionify"))
	res := Resolve([]*ast.File{file("main", f)})
	target, ok := res.Target(f.Body.Stmts[0].(*ast.Return).Value.(*ast.Ident))
	if !ok || target.Kind != TargetBuiltin {
		t.Fatalf("unionify should resolve as builtin, got %+v", target)
	}
	if target.Global.ID != BuiltinUnionify {
		t.Errorf("wrong builtin id %d", target.Global.ID)
	}
}

func TestResolveReservedDefinitionName(t *testing.T) {
	bad := fnDef("unionify", retIdent("unionify"))
	res := Resolve([]*ast.File{file("main", bad)})
	if !hasCode(res.Errors, rerr.RES005) {
		t.Errorf("expected RES005, got: %s", res.Errors)
	}
}

func TestResolveDuplicateDefinition(t *testing.T) {
	res := Resolve([]*ast.File{file("main", fnDef("f", retIdent("f")), fnDef("f", retIdent("f")))})
	if !hasCode(res.Errors, rerr.RES004) {
		t.Errorf("expected RES004, got: %s", res.Errors)
	}
}

func TestResolveImportedName(t *testing.T) {
	util := file("util", fnDef("helper", &ast.Return{Value: &ast.Lit{Kind: ast.NumberLit, Value: 1.0}}))
	main := &ast.File{
		Path: "main",
		Imports: []*ast.ImportDecl{
			{Kind: ast.ImportNames, Path: []string{"util"}, Names: []string{"helper"}},
		},
		Defs: []ast.Def{fnDef("f", retIdent("helper"))},
	}

	res := Resolve([]*ast.File{util, main})
	if !res.Errors.Empty() {
		t.Fatalf("unexpected errors: %s", res.Errors)
	}
	f := main.Defs[0].(*ast.FnDef)
	target, ok := res.Target(f.Body.Stmts[0].(*ast.Return).Value.(*ast.Ident))
	if !ok || target.Kind != TargetGlobal {
		t.Fatalf("helper should resolve as global, got %+v", target)
	}
	if target.Global.Module != "util" {
		t.Errorf("resolved to module %q", target.Global.Module)
	}
}

func TestResolveUnknownQualifier(t *testing.T) {
	main := &ast.File{
		Path: "main",
		Imports: []*ast.ImportDecl{
			{Kind: ast.ImportModule, Path: []string{"missing"}},
		},
	}
	res := Resolve([]*ast.File{main})
	if !hasCode(res.Errors, rerr.RES001) {
		t.Errorf("expected RES001, got: %s", res.Errors)
	}
}

func TestResolveInterfaceMethodTagged(t *testing.T) {
	iface := &ast.InterfaceDef{
		Name:    "NatLike",
		Carrier: ast.ImplicitParam{Name: "T"},
		Methods: []ast.MethodSig{{
			Name:   "add",
			Params: []ast.Param{{Name: "a", Type: &ast.NamedType{Name: "T"}}},
			Ret:    &ast.NamedType{Name: "T"},
		}},
	}
	f := fnDef("f", retIdent("add"))

	res := Resolve([]*ast.File{file("main", iface, f)})
	if !res.Errors.Empty() {
		t.Fatalf("unexpected errors: %s", res.Errors)
	}
	target, ok := res.Target(f.Body.Stmts[0].(*ast.Return).Value.(*ast.Ident))
	if !ok || target.Kind != TargetMethod {
		t.Fatalf("add should be tagged overloaded, got %+v", target)
	}
	if target.Method != "add" || target.Global.Name != "NatLike" {
		t.Errorf("wrong method target: %+v", target)
	}
}

func TestResolveOrderRespectsDependencies(t *testing.T) {
	// g references f, so f elaborates first regardless of file order.
	g := fnDef("g", retIdent("f"))
	f := fnDef("f", &ast.Return{Value: &ast.Lit{Kind: ast.NumberLit, Value: 1.0}})

	res := Resolve([]*ast.File{file("main", g, f)})
	if !res.Errors.Empty() {
		t.Fatalf("unexpected errors: %s", res.Errors)
	}
	var names []string
	for _, gl := range res.Order {
		names = append(names, gl.Name)
	}
	if len(names) != 2 || names[0] != "f" || names[1] != "g" {
		t.Errorf("order = %v, want [f g]", names)
	}
}

func TestResolveCycleReported(t *testing.T) {
	a := fnDef("a", retIdent("b"))
	b := fnDef("b", retIdent("a"))

	res := Resolve([]*ast.File{file("main", a, b)})
	if !hasCode(res.Errors, rerr.DEP001) {
		t.Errorf("expected DEP001, got: %s", res.Errors)
	}
	for _, g := range res.Order {
		if g.Name == "a" || g.Name == "b" {
			t.Errorf("cycle member %s should be excluded from the order", g.Name)
		}
	}
}

func TestResolveRejectsBadStmt(t *testing.T) {
	f := &ast.FnDef{
		Name: "f",
		Body: &ast.Block{Stmts: []ast.Stmt{&ast.BadStmt{Form: "try"}}},
	}
	res := Resolve([]*ast.File{file("main", f)})
	if !hasCode(res.Errors, rerr.RES006) {
		t.Errorf("expected RES006, got: %s", res.Errors)
	}
}
