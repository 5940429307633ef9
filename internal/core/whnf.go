package core

// Env resolves the three sources of indirection during normalisation:
// assigned metavariables, solved row variables, and transparent global
// definitions (type aliases). The elaborator's meta store implements
// it; a nil Env normalises purely syntactically.
type Env interface {
	RowLookup
	SolveMeta(id int) (Term, bool)
	Unfold(id GlobalID) (Term, bool)
}

// Whnf reduces a term to weak-head normal form. Reduction rules:
//
//	(Lam x. b) a                  -> b[a/x]
//	RecProj(RecLit(ls), l)        -> ls[l]
//	Switch(VarIntro(l, p), cs)    -> body of the matching case
//	If(true, t, _) / If(false, _, e)
//	RecConcat(RecLit a, RecLit b) -> RecLit(a ∪ b), labels disjoint
//	Meta with a solution          -> the solution
//	Ref to a transparent def      -> its body
//
// A stuck App, RecProj, Switch, If or RecConcat comes back rebuilt
// around its head subterm in whnf (the same node when nothing changed);
// other stuck terms are returned unchanged.
func Whnf(t Term, env Env) Term {
	for {
		switch term := t.(type) {
		case *Meta:
			if env != nil {
				if sol, ok := env.SolveMeta(term.ID); ok {
					t = sol
					continue
				}
			}
			return t

		case *Ref:
			if env != nil {
				if body, ok := env.Unfold(term.ID); ok {
					t = body
					continue
				}
			}
			return t

		case *App:
			fn := Whnf(term.Fn, env)
			if lam, ok := fn.(*Lam); ok {
				t = Bind1(lam.Param, term.Arg).Term(lam.Body)
				continue
			}
			if fn == term.Fn {
				return term
			}
			return &App{TermNode: term.TermNode, Fn: fn, Arg: term.Arg}

		case *RecProj:
			rec := Whnf(term.Rec, env)
			switch r := rec.(type) {
			case *RecLit:
				if v := r.Field(term.Label); v != nil {
					t = v
					continue
				}
				// Missing field is a typing bug upstream; stay stuck.
				return term
			case *RecCast:
				// Projection sees through widening.
				t = &RecProj{TermNode: term.TermNode, Rec: r.Expr, Label: term.Label}
				continue
			}
			if rec == term.Rec {
				return term
			}
			return &RecProj{TermNode: term.TermNode, Rec: rec, Label: term.Label}

		case *Switch:
			scrut := Whnf(term.Scrutinee, env)
			if intro, ok := variantHead(scrut); ok {
				if c := term.Case(intro.Label); c != nil {
					if c.HasPayload {
						t = Bind1(c.Binder, intro.Payload).Term(c.Body)
					} else {
						t = c.Body
					}
					continue
				}
				return term
			}
			if scrut == term.Scrutinee {
				return term
			}
			return &Switch{TermNode: term.TermNode, Scrutinee: scrut, Cases: term.Cases}

		case *If:
			cond := Whnf(term.Cond, env)
			if prim, ok := cond.(*Prim); ok && prim.Kind == PrimBool {
				if prim.Value == true {
					t = term.Then
				} else {
					t = term.Else
				}
				continue
			}
			if cond == term.Cond {
				return term
			}
			return &If{TermNode: term.TermNode, Cond: cond, Then: term.Then, Else: term.Else}

		case *RecConcat:
			left := Whnf(term.Left, env)
			right := Whnf(term.Right, env)
			ll, lok := left.(*RecLit)
			rl, rok := right.(*RecLit)
			if lok && rok && disjointFields(ll, rl) {
				merged := &RecLit{TermNode: term.TermNode}
				merged.Fields = append(merged.Fields, ll.Fields...)
				merged.Fields = append(merged.Fields, rl.Fields...)
				merged.SortFields()
				return merged
			}
			if left == term.Left && right == term.Right {
				return term
			}
			return &RecConcat{TermNode: term.TermNode, Left: left, Right: right}

		default:
			return t
		}
	}
}

// variantHead looks through variant casts for the introduction head.
func variantHead(t Term) (*VarIntro, bool) {
	for {
		switch term := t.(type) {
		case *VarIntro:
			return term, true
		case *VarCast:
			t = term.Expr
		default:
			return nil, false
		}
	}
}

func disjointFields(a, b *RecLit) bool {
	for _, f := range b.Fields {
		if a.Field(f.Label) != nil {
			return false
		}
	}
	return true
}
