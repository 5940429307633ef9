package core

// Subst maps local IDs to terms and row-variable IDs to rows. Locals
// have globally unique IDs, so application never captures: a binder is
// simply never a key of the substitution it is traversed under.
type Subst struct {
	Terms map[int]Term
	Rows  map[int]Row
}

// NewSubst creates an empty substitution.
func NewSubst() *Subst {
	return &Subst{Terms: make(map[int]Term), Rows: make(map[int]Row)}
}

// Bind1 creates a single-binding substitution, the common case of beta
// reduction.
func Bind1(l Local, value Term) *Subst {
	return &Subst{Terms: map[int]Term{l.ID: value}}
}

// Empty reports whether the substitution binds nothing.
func (s *Subst) Empty() bool {
	return len(s.Terms) == 0 && len(s.Rows) == 0
}

// Term applies the substitution to a term.
func (s *Subst) Term(t Term) Term {
	if t == nil || s.Empty() {
		return t
	}
	switch term := t.(type) {
	case *Var:
		if v, ok := s.Terms[term.Local.ID]; ok {
			return v
		}
		return term
	case *Ref, *Univ, *RowUniv, *Meta, *Hole, *Prim:
		return term
	case *Lam:
		return &Lam{TermNode: term.TermNode, Param: term.Param, Body: s.Term(term.Body)}
	case *App:
		return &App{TermNode: term.TermNode, Fn: s.Term(term.Fn), Arg: s.Term(term.Arg)}
	case *Pi:
		return &Pi{
			TermNode: term.TermNode,
			Param:    term.Param,
			ParamTy:  s.Term(term.ParamTy),
			Body:     s.Term(term.Body),
			Implicit: term.Implicit,
		}
	case *RecTy:
		return &RecTy{TermNode: term.TermNode, Row: s.Row(term.Row)}
	case *VarTy:
		return &VarTy{TermNode: term.TermNode, Row: s.Row(term.Row)}
	case *RecLit:
		fields := make([]TermField, len(term.Fields))
		for i, f := range term.Fields {
			fields[i] = TermField{Label: f.Label, Value: s.Term(f.Value)}
		}
		return &RecLit{TermNode: term.TermNode, Fields: fields}
	case *RecProj:
		return &RecProj{TermNode: term.TermNode, Rec: s.Term(term.Rec), Label: term.Label}
	case *RecConcat:
		return &RecConcat{TermNode: term.TermNode, Left: s.Term(term.Left), Right: s.Term(term.Right)}
	case *RecCast:
		return &RecCast{TermNode: term.TermNode, Expr: s.Term(term.Expr)}
	case *VarIntro:
		return &VarIntro{TermNode: term.TermNode, Label: term.Label, Payload: s.Term(term.Payload)}
	case *VarCast:
		return &VarCast{TermNode: term.TermNode, Expr: s.Term(term.Expr)}
	case *Switch:
		cases := make([]SwitchCase, len(term.Cases))
		for i, c := range term.Cases {
			cases[i] = SwitchCase{
				Label:      c.Label,
				HasPayload: c.HasPayload,
				Binder:     c.Binder,
				Body:       s.Term(c.Body),
			}
		}
		return &Switch{TermNode: term.TermNode, Scrutinee: s.Term(term.Scrutinee), Cases: cases}
	case *OvRef:
		kindArgs := make([]Term, len(term.KindArgs))
		for i, a := range term.KindArgs {
			kindArgs[i] = s.Term(a)
		}
		return &OvRef{
			TermNode:      term.TermNode,
			Interface:     term.Interface,
			InterfaceName: term.InterfaceName,
			Method:        term.Method,
			Carrier:       s.Term(term.Carrier),
			KindArgs:      kindArgs,
		}
	case *If:
		return &If{
			TermNode: term.TermNode,
			Cond:     s.Term(term.Cond),
			Then:     s.Term(term.Then),
			Else:     s.Term(term.Else),
		}
	case *RowTerm:
		return &RowTerm{TermNode: term.TermNode, Row: s.Row(term.Row)}
	default:
		return term
	}
}

// Row applies the substitution to a row.
func (s *Subst) Row(r Row) Row {
	if r == nil || s.Empty() {
		return r
	}
	switch row := r.(type) {
	case *RowEmpty:
		return row
	case *RowVar:
		if v, ok := s.Rows[row.ID]; ok {
			return v
		}
		return row
	case *RowLit:
		labels := make([]Label, len(row.Labels))
		for i, l := range row.Labels {
			labels[i] = Label{Name: l.Name, Ty: s.Term(l.Ty)}
		}
		return &RowLit{Labels: labels}
	case *RowConcat:
		return &RowConcat{Left: s.Row(row.Left), Right: s.Row(row.Right)}
	default:
		return row
	}
}
