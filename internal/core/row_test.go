package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func num() Term { return &Ref{ID: 0, Name: "number"} }
func str() Term { return &Ref{ID: 1, Name: "string"} }

func TestCanonSortsAndFlattens(t *testing.T) {
	row := &RowConcat{
		Left: &RowConcat{
			Left:  &RowLit{Labels: []Label{{Name: "b", Ty: num()}}},
			Right: &RowVar{Name: "r", ID: 7},
		},
		Right: &RowLit{Labels: []Label{{Name: "a", Ty: str()}}},
	}

	nf, err := Canon(row, nil)
	if err != nil {
		t.Fatalf("Canon failed: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, nf.LabelNames()); diff != "" {
		t.Errorf("label order mismatch (-want +got):\n%s", diff)
	}
	if len(nf.Vars) != 1 || nf.Vars[0].ID != 7 {
		t.Errorf("expected single row variable 7, got %v", nf.Vars)
	}
}

func TestCanonIdempotent(t *testing.T) {
	row := &RowConcat{
		Left:  &RowVar{ID: 2},
		Right: &RowLit{Labels: []Label{{Name: "z", Ty: num()}, {Name: "a", Ty: num()}}},
	}
	once, err := Canon(row, nil)
	if err != nil {
		t.Fatalf("Canon failed: %v", err)
	}
	twice, err := Canon(once.Row(), nil)
	if err != nil {
		t.Fatalf("Canon of canonical row failed: %v", err)
	}
	if once.String() != twice.String() {
		t.Errorf("canon not idempotent: %q vs %q", once, twice)
	}
}

func TestCanonCommutativeConcat(t *testing.T) {
	a := &RowLit{Labels: []Label{{Name: "x", Ty: num()}}}
	b := &RowLit{Labels: []Label{{Name: "y", Ty: str()}}}

	ab, err := Canon(&RowConcat{Left: a, Right: b}, nil)
	if err != nil {
		t.Fatalf("Canon a+b: %v", err)
	}
	ba, err := Canon(&RowConcat{Left: b, Right: a}, nil)
	if err != nil {
		t.Fatalf("Canon b+a: %v", err)
	}
	if ab.String() != ba.String() {
		t.Errorf("concatenation not commutative under canon: %q vs %q", ab, ba)
	}
}

func TestCanonRejectsDuplicateLabels(t *testing.T) {
	row := &RowConcat{
		Left:  &RowLit{Labels: []Label{{Name: "x", Ty: num()}}},
		Right: &RowLit{Labels: []Label{{Name: "x", Ty: str()}}},
	}
	if _, err := Canon(row, nil); err == nil {
		t.Fatal("expected duplicate label error")
	}
}

func TestNFLabelLookup(t *testing.T) {
	nf, err := Canon(&RowLit{Labels: []Label{{Name: "n", Ty: num()}}}, nil)
	if err != nil {
		t.Fatalf("Canon: %v", err)
	}
	if ty, ok := nf.Label("n"); !ok || ty == nil {
		t.Error("expected label n with a type")
	}
	if _, ok := nf.Label("m"); ok {
		t.Error("did not expect label m")
	}
	if !nf.Closed() {
		t.Error("literal row should be closed")
	}
}
