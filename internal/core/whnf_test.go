package core

import "testing"

func TestWhnfBeta(t *testing.T) {
	x := Local{Name: "x", ID: 1}
	lam := &Lam{Param: x, Body: &Var{Local: x}}
	arg := &Prim{Kind: PrimNumber, Value: 42.0}

	got := Whnf(&App{Fn: lam, Arg: arg}, nil)
	prim, ok := got.(*Prim)
	if !ok || prim.Value != 42.0 {
		t.Fatalf("beta reduction produced %s", got)
	}
}

func TestWhnfProjection(t *testing.T) {
	lit := &RecLit{Fields: []TermField{
		{Label: "n", Value: &Prim{Kind: PrimNumber, Value: 1.0}},
		{Label: "s", Value: &Prim{Kind: PrimString, Value: "x"}},
	}}
	got := Whnf(&RecProj{Rec: lit, Label: "s"}, nil)
	prim, ok := got.(*Prim)
	if !ok || prim.Value != "x" {
		t.Fatalf("projection produced %s", got)
	}
}

func TestWhnfProjectionThroughCast(t *testing.T) {
	lit := &RecLit{Fields: []TermField{{Label: "n", Value: &Prim{Kind: PrimNumber, Value: 3.0}}}}
	got := Whnf(&RecProj{Rec: &RecCast{Expr: lit}, Label: "n"}, nil)
	prim, ok := got.(*Prim)
	if !ok || prim.Value != 3.0 {
		t.Fatalf("projection through cast produced %s", got)
	}
}

func TestWhnfSwitch(t *testing.T) {
	n := Local{Name: "n", ID: 5}
	sw := &Switch{
		Scrutinee: &VarIntro{Label: "Some", Payload: &Prim{Kind: PrimNumber, Value: 7.0}},
		Cases: []SwitchCase{
			{Label: "None", Body: &Prim{Kind: PrimNumber, Value: 0.0}},
			{Label: "Some", HasPayload: true, Binder: n, Body: &Var{Local: n}},
		},
	}
	got := Whnf(sw, nil)
	prim, ok := got.(*Prim)
	if !ok || prim.Value != 7.0 {
		t.Fatalf("switch reduction produced %s", got)
	}
}

func TestWhnfSwitchThroughVariantCast(t *testing.T) {
	sw := &Switch{
		Scrutinee: &VarCast{Expr: &VarIntro{Label: "None"}},
		Cases: []SwitchCase{
			{Label: "None", Body: &Prim{Kind: PrimNumber, Value: 69.0}},
		},
	}
	got := Whnf(sw, nil)
	prim, ok := got.(*Prim)
	if !ok || prim.Value != 69.0 {
		t.Fatalf("switch through cast produced %s", got)
	}
}

func TestWhnfIf(t *testing.T) {
	tt := &Prim{Kind: PrimNumber, Value: 1.0}
	ff := &Prim{Kind: PrimNumber, Value: 2.0}

	got := Whnf(&If{Cond: &Prim{Kind: PrimBool, Value: true}, Then: tt, Else: ff}, nil)
	if got.(*Prim).Value != 1.0 {
		t.Errorf("if true took the wrong branch: %s", got)
	}
	got = Whnf(&If{Cond: &Prim{Kind: PrimBool, Value: false}, Then: tt, Else: ff}, nil)
	if got.(*Prim).Value != 2.0 {
		t.Errorf("if false took the wrong branch: %s", got)
	}
}

func TestWhnfRecConcatMerges(t *testing.T) {
	left := &RecLit{Fields: []TermField{{Label: "a", Value: &Prim{Kind: PrimNumber, Value: 1.0}}}}
	right := &RecLit{Fields: []TermField{{Label: "b", Value: &Prim{Kind: PrimNumber, Value: 2.0}}}}

	got := Whnf(&RecConcat{Left: left, Right: right}, nil)
	lit, ok := got.(*RecLit)
	if !ok || len(lit.Fields) != 2 {
		t.Fatalf("concat did not merge: %s", got)
	}
	if lit.Fields[0].Label != "a" || lit.Fields[1].Label != "b" {
		t.Errorf("merged fields out of order: %s", lit)
	}
}

func TestWhnfRecConcatStuckOnOverlap(t *testing.T) {
	left := &RecLit{Fields: []TermField{{Label: "a", Value: &Prim{Kind: PrimNumber, Value: 1.0}}}}
	right := &RecLit{Fields: []TermField{{Label: "a", Value: &Prim{Kind: PrimNumber, Value: 2.0}}}}

	got := Whnf(&RecConcat{Left: left, Right: right}, nil)
	if _, ok := got.(*RecConcat); !ok {
		t.Fatalf("overlapping concat should stay stuck, got %s", got)
	}
}

func TestEqualAlpha(t *testing.T) {
	x := Local{Name: "x", ID: 1}
	y := Local{Name: "y", ID: 2}
	idX := &Lam{Param: x, Body: &Var{Local: x}}
	idY := &Lam{Param: y, Body: &Var{Local: y}}

	if !Equal(idX, idY, nil) {
		t.Error("alpha-equivalent lambdas compared unequal")
	}
}

func TestEqualRowsModuloOrder(t *testing.T) {
	a := &RecTy{Row: &RowLit{Labels: []Label{{Name: "a", Ty: num()}, {Name: "b", Ty: str()}}}}
	b := &RecTy{Row: &RowLit{Labels: []Label{{Name: "b", Ty: str()}, {Name: "a", Ty: num()}}}}

	if !Equal(a, b, nil) {
		t.Error("row types differing only in label order compared unequal")
	}
}

func TestEqualDistinguishesRows(t *testing.T) {
	a := &RecTy{Row: &RowLit{Labels: []Label{{Name: "a", Ty: num()}}}}
	b := &RecTy{Row: &RowLit{Labels: []Label{{Name: "a", Ty: str()}}}}

	if Equal(a, b, nil) {
		t.Error("rows with different label types compared equal")
	}
}
