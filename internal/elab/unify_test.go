package elab

import (
	"testing"

	"github.com/kirraObj-s-archives/rowscript/internal/ast"
	"github.com/kirraObj-s-archives/rowscript/internal/core"
	rerr "github.com/kirraObj-s-archives/rowscript/internal/errors"
	"github.com/kirraObj-s-archives/rowscript/internal/resolve"
)

// newChecker builds a checker over an empty program, enough for the
// solver units.
func newChecker() *Checker {
	return NewChecker(resolve.Resolve(nil), NewStore())
}

func numRef(c *Checker) core.Term { return c.builtinTy(resolve.BuiltinNumber) }
func strRef(c *Checker) core.Term { return c.builtinTy(resolve.BuiltinString) }

var nowhere ast.Pos

func TestUnifySolvesMeta(t *testing.T) {
	c := newChecker()
	m := c.store.FreshMeta(&core.Univ{}, nowhere)

	if err := c.unify(m, numRef(c), nowhere); err != nil {
		t.Fatalf("unify: %v", err)
	}
	got := core.Whnf(m, c.store)
	if ref, ok := got.(*core.Ref); !ok || ref.ID != resolve.BuiltinNumber {
		t.Errorf("meta solved to %s", got)
	}
}

func TestUnifyLinksMetas(t *testing.T) {
	c := newChecker()
	m1 := c.store.FreshMeta(&core.Univ{}, nowhere)
	m2 := c.store.FreshMeta(&core.Univ{}, nowhere)

	if err := c.unify(m1, m2, nowhere); err != nil {
		t.Fatalf("unify: %v", err)
	}
	if err := c.unify(m2, numRef(c), nowhere); err != nil {
		t.Fatalf("unify after link: %v", err)
	}
	if !core.Equal(m1, numRef(c), c.store) {
		t.Errorf("linked meta did not propagate: %s", core.Whnf(m1, c.store))
	}
}

func TestUnifyOccursCheck(t *testing.T) {
	c := newChecker()
	m := c.store.FreshMeta(&core.Univ{}, nowhere)
	row := &core.RowLit{Labels: []core.Label{{Name: "x", Ty: m}}}

	err := c.unify(m, &core.RecTy{Row: row}, nowhere)
	if err == nil {
		t.Fatal("expected occurs check failure")
	}
	rep, ok := rerr.AsReport(err)
	if !ok || rep.Code != rerr.TC002 {
		t.Errorf("expected TC002, got %v", err)
	}
}

func TestUnifyMismatch(t *testing.T) {
	c := newChecker()
	err := c.unify(numRef(c), strRef(c), nowhere)
	rep, ok := rerr.AsReport(err)
	if !ok || rep.Code != rerr.TC001 {
		t.Errorf("expected TC001, got %v", err)
	}
}

func TestUnifyPi(t *testing.T) {
	c := newChecker()
	m := c.store.FreshMeta(&core.Univ{}, nowhere)
	a := &core.Pi{Param: c.fresh("x"), ParamTy: numRef(c), Body: m}
	b := &core.Pi{Param: c.fresh("y"), ParamTy: numRef(c), Body: strRef(c)}

	if err := c.unify(a, b, nowhere); err != nil {
		t.Fatalf("unify: %v", err)
	}
	if !core.Equal(m, strRef(c), c.store) {
		t.Errorf("codomain meta solved to %s", core.Whnf(m, c.store))
	}
}

func TestUnifySoundness(t *testing.T) {
	// After a successful unify, zonked sides are definitionally equal.
	c := newChecker()
	m1 := c.store.FreshMeta(&core.Univ{}, nowhere)
	m2 := c.store.FreshMeta(&core.Univ{}, nowhere)
	left := &core.RecTy{Row: &core.RowLit{Labels: []core.Label{{Name: "a", Ty: m1}, {Name: "b", Ty: strRef(c)}}}}
	right := &core.RecTy{Row: &core.RowLit{Labels: []core.Label{{Name: "a", Ty: numRef(c)}, {Name: "b", Ty: m2}}}}

	if err := c.unify(left, right, nowhere); err != nil {
		t.Fatalf("unify: %v", err)
	}
	if !core.Equal(c.zonk(left), c.zonk(right), c.store) {
		t.Errorf("zonked sides differ: %s vs %s", c.zonk(left), c.zonk(right))
	}
}

// ---------------------------------------------------------------------------
// Row solver
// ---------------------------------------------------------------------------

func rowOfLabels(labels ...core.Label) core.Row {
	return &core.RowLit{Labels: labels}
}

func TestRowEqualityClosed(t *testing.T) {
	c := newChecker()
	r1 := rowOfLabels(core.Label{Name: "a", Ty: numRef(c)})
	r2 := rowOfLabels(core.Label{Name: "a", Ty: numRef(c)})
	if err := c.unifyRows(r1, r2, nowhere); err != nil {
		t.Fatalf("equal closed rows should unify: %v", err)
	}

	r3 := rowOfLabels(core.Label{Name: "b", Ty: numRef(c)})
	err := c.unifyRows(r1, r3, nowhere)
	if err == nil || IsStuck(err) {
		t.Fatalf("different closed rows must fail definitely, got %v", err)
	}
	rep, _ := rerr.AsReport(err)
	if rep == nil || rep.Code != rerr.ROW002 {
		t.Errorf("expected ROW002, got %v", err)
	}
}

func TestRowSolvesFlexibleTail(t *testing.T) {
	c := newChecker()
	tail := c.store.FreshRow(nowhere)
	open := &core.RowConcat{Left: rowOfLabels(core.Label{Name: "a", Ty: numRef(c)}), Right: tail}
	closed := rowOfLabels(
		core.Label{Name: "a", Ty: numRef(c)},
		core.Label{Name: "b", Ty: strRef(c)},
	)

	if err := c.unifyRows(open, closed, nowhere); err != nil {
		t.Fatalf("unifyRows: %v", err)
	}
	nf, err := core.Canon(tail, c.store)
	if err != nil {
		t.Fatal(err)
	}
	if len(nf.Labels) != 1 || nf.Labels[0].Name != "b" || !nf.Closed() {
		t.Errorf("tail solved to %s", nf)
	}
}

func TestRowSymmetry(t *testing.T) {
	// unify_row(r1,r2) succeeds iff unify_row(r2,r1) succeeds.
	build := func() (*Checker, core.Row, core.Row) {
		c := newChecker()
		tail := c.store.FreshRow(nowhere)
		open := &core.RowConcat{Left: rowOfLabels(core.Label{Name: "a", Ty: numRef(c)}), Right: tail}
		closed := rowOfLabels(core.Label{Name: "a", Ty: numRef(c)}, core.Label{Name: "b", Ty: strRef(c)})
		return c, open, closed
	}

	c1, open1, closed1 := build()
	err1 := c1.unifyRows(open1, closed1, nowhere)
	c2, open2, closed2 := build()
	err2 := c2.unifyRows(closed2, open2, nowhere)
	if (err1 == nil) != (err2 == nil) {
		t.Errorf("row unification is not symmetric: %v vs %v", err1, err2)
	}
}

func TestRowFreshRestForTwoOpenRows(t *testing.T) {
	c := newChecker()
	t1 := c.store.FreshRow(nowhere)
	t2 := c.store.FreshRow(nowhere)
	r1 := &core.RowConcat{Left: rowOfLabels(core.Label{Name: "a", Ty: numRef(c)}), Right: t1}
	r2 := &core.RowConcat{Left: rowOfLabels(core.Label{Name: "b", Ty: strRef(c)}), Right: t2}

	if err := c.unifyRows(r1, r2, nowhere); err != nil {
		t.Fatalf("unifyRows: %v", err)
	}
	// t1 absorbed b, t2 absorbed a, both share a fresh rest.
	nf1, _ := core.Canon(t1, c.store)
	nf2, _ := core.Canon(t2, c.store)
	if _, ok := nf1.Label("b"); !ok {
		t.Errorf("t1 = %s, want to contain b", nf1)
	}
	if _, ok := nf2.Label("a"); !ok {
		t.Errorf("t2 = %s, want to contain a", nf2)
	}
	if len(nf1.Vars) != 1 || len(nf2.Vars) != 1 || nf1.Vars[0].ID != nf2.Vars[0].ID {
		t.Errorf("open rows should share one rest variable: %s / %s", nf1, nf2)
	}
}

func TestRowRigidIsStuck(t *testing.T) {
	c := newChecker()
	rigid := c.store.RigidRow("r", nowhere)
	open := &core.RowConcat{Left: rowOfLabels(core.Label{Name: "a", Ty: numRef(c)}), Right: rigid}
	closed := rowOfLabels(core.Label{Name: "a", Ty: numRef(c)}, core.Label{Name: "b", Ty: strRef(c)})

	err := c.unifyRows(open, closed, nowhere)
	if err == nil || !IsStuck(err) {
		t.Errorf("rigid tail should be stuck, got %v", err)
	}
}

func TestSubRow(t *testing.T) {
	c := newChecker()
	sub := rowOfLabels(core.Label{Name: "a", Ty: numRef(c)})
	sup := rowOfLabels(core.Label{Name: "a", Ty: numRef(c)}, core.Label{Name: "b", Ty: strRef(c)})

	if err := c.subRow(sub, sup, nowhere); err != nil {
		t.Fatalf("subRow: %v", err)
	}

	missing := rowOfLabels(core.Label{Name: "z", Ty: numRef(c)})
	if err := c.subRow(missing, sup, nowhere); err == nil || IsStuck(err) {
		t.Errorf("label outside the super row must fail definitely, got %v", err)
	}
}

func TestConcatRejectsOverlap(t *testing.T) {
	c := newChecker()
	r1 := rowOfLabels(core.Label{Name: "a", Ty: numRef(c)})
	r2 := rowOfLabels(core.Label{Name: "a", Ty: strRef(c)})

	_, err := c.concatRows(r1, r2, nowhere)
	rep, _ := rerr.AsReport(err)
	if rep == nil || rep.Code != rerr.ROW001 {
		t.Errorf("expected ROW001, got %v", err)
	}
}

func TestSpeculativeRollback(t *testing.T) {
	c := newChecker()
	m := c.store.FreshMeta(&core.Univ{}, nowhere)

	mark := c.store.Mark()
	if err := c.unify(m, numRef(c), nowhere); err != nil {
		t.Fatal(err)
	}
	c.store.Rollback(mark)

	if _, solved := c.store.SolveMeta(m.ID); solved {
		t.Fatal("rollback should unassign the meta")
	}
	if err := c.unify(m, strRef(c), nowhere); err != nil {
		t.Errorf("meta should be solvable again after rollback: %v", err)
	}
}
