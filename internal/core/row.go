package core

import (
	"fmt"
	"sort"
	"strings"
)

// Rows are an orthogonal sub-language: a finite mapping from labels to
// types, possibly extended by row variables. Concatenation is
// commutative and associative; NF is the canonical form the solver
// works on.

// Row is the row expression algebra.
type Row interface {
	String() string
	row()
}

// RowEmpty is the empty row.
type RowEmpty struct{}

func (r *RowEmpty) row()           {}
func (r *RowEmpty) String() string { return "" }

// RowVar is a row variable. Flexible variables (inserted by the
// elaborator) are solvable; rigid ones are bound by a definition's
// implicit parameters. The arena knows which is which.
type RowVar struct {
	Name string
	ID   int
}

func (r *RowVar) row() {}
func (r *RowVar) String() string {
	if r.Name == "" {
		return fmt.Sprintf("'ρ%d", r.ID)
	}
	return "'" + r.Name
}

// Label is one labelled component of a row.
type Label struct {
	Name string
	Ty   Term // nil for payload-less variant cases
}

func (l Label) String() string {
	if l.Ty == nil {
		return l.Name
	}
	return fmt.Sprintf("%s: %s", l.Name, l.Ty)
}

// RowLit is an unordered finite label-to-type mapping. Labels must be
// unique; NF construction enforces it.
type RowLit struct {
	Labels []Label
}

func (r *RowLit) row() {}
func (r *RowLit) String() string {
	parts := make([]string, len(r.Labels))
	for i, l := range r.Labels {
		parts[i] = l.String()
	}
	return strings.Join(parts, ", ")
}

// RowConcat is row concatenation; disjoint union when solved.
type RowConcat struct {
	Left  Row
	Right Row
}

func (r *RowConcat) row() {}
func (r *RowConcat) String() string {
	return r.Left.String() + " + " + r.Right.String()
}

// NF is the canonical row form: a label-sorted literal fragment plus a
// sorted multiset of row variables. canon(canon(r)) == canon(r).
type NF struct {
	Labels []Label
	Vars   []RowVar
}

// Closed reports whether the row has no variable tail.
func (nf NF) Closed() bool { return len(nf.Vars) == 0 }

// Empty reports whether the row is the empty row.
func (nf NF) Empty() bool { return len(nf.Labels) == 0 && len(nf.Vars) == 0 }

// Label returns the type at a label and whether it is present.
func (nf NF) Label(name string) (Term, bool) {
	for _, l := range nf.Labels {
		if l.Name == name {
			return l.Ty, true
		}
	}
	return nil, false
}

// LabelNames returns the sorted label names.
func (nf NF) LabelNames() []string {
	names := make([]string, len(nf.Labels))
	for i, l := range nf.Labels {
		names[i] = l.Name
	}
	return names
}

// Row rebuilds the canonical Row value: sorted literal fragment
// followed by a trailing concatenation of variables.
func (nf NF) Row() Row {
	var out Row
	if len(nf.Labels) > 0 {
		out = &RowLit{Labels: nf.Labels}
	}
	for i := range nf.Vars {
		v := nf.Vars[i]
		if out == nil {
			out = &v
		} else {
			out = &RowConcat{Left: out, Right: &v}
		}
	}
	if out == nil {
		return &RowEmpty{}
	}
	return out
}

func (nf NF) String() string { return nf.Row().String() }

// RowLookup resolves solved row variables during canonicalisation.
type RowLookup interface {
	SolveRow(id int) (Row, bool)
}

// Canon rewrites a row to NF: concatenation fragments are flattened,
// solved variables expanded, labels sorted, variables multiset-sorted.
// Duplicate labels are a definite error.
func Canon(r Row, lookup RowLookup) (NF, error) {
	var nf NF
	if err := canonInto(r, lookup, &nf); err != nil {
		return NF{}, err
	}
	sort.Slice(nf.Labels, func(i, j int) bool { return nf.Labels[i].Name < nf.Labels[j].Name })
	sort.Slice(nf.Vars, func(i, j int) bool { return nf.Vars[i].ID < nf.Vars[j].ID })
	for i := 1; i < len(nf.Labels); i++ {
		if nf.Labels[i].Name == nf.Labels[i-1].Name {
			return NF{}, fmt.Errorf("duplicate label %s", nf.Labels[i].Name)
		}
	}
	return nf, nil
}

func canonInto(r Row, lookup RowLookup, nf *NF) error {
	switch row := r.(type) {
	case *RowEmpty:
		return nil
	case *RowLit:
		nf.Labels = append(nf.Labels, row.Labels...)
		return nil
	case *RowVar:
		if lookup != nil {
			if solved, ok := lookup.SolveRow(row.ID); ok {
				return canonInto(solved, lookup, nf)
			}
		}
		nf.Vars = append(nf.Vars, *row)
		return nil
	case *RowConcat:
		if err := canonInto(row.Left, lookup, nf); err != nil {
			return err
		}
		return canonInto(row.Right, lookup, nf)
	default:
		return fmt.Errorf("unknown row form %T", r)
	}
}

// rowBody prints a row with the given label separator, used by the
// record and variant type formers.
func rowBody(r Row, sep string) string {
	switch row := r.(type) {
	case *RowEmpty:
		return ""
	case *RowLit:
		parts := make([]string, len(row.Labels))
		for i, l := range row.Labels {
			parts[i] = l.String()
		}
		return strings.Join(parts, sep)
	case *RowVar:
		return row.String()
	case *RowConcat:
		left := rowBody(row.Left, sep)
		right := rowBody(row.Right, sep)
		if left == "" {
			return right
		}
		if right == "" {
			return left
		}
		return left + sep + right
	default:
		return r.String()
	}
}
