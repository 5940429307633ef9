package core

import "strings"

// Kind is the restricted kind language: `type -> type -> ... -> type`
// with Arity argument positions (Arity 0 is `type`), plus the row kind
// for quote-prefixed parameters. There is no polymorphism over kinds.
type Kind struct {
	Arity int
	Row   bool
}

// KindType is the kind of proper types.
var KindType = Kind{}

// KindRow is the kind of rows.
var KindRow = Kind{Row: true}

// KindArrow is the kind of an Arity-parameter type constructor.
func KindArrow(arity int) Kind {
	return Kind{Arity: arity}
}

func (k Kind) String() string {
	if k.Row {
		return "row"
	}
	if k.Arity == 0 {
		return "type"
	}
	return strings.Repeat("type -> ", k.Arity) + "type"
}

// Equal reports kind equality; there is no subkinding.
func (k Kind) Equal(other Kind) bool {
	return k == other
}

// Term renders the kind as the core type classifying its inhabitants:
// Univ for `type`, a Pi telescope of Univ for arrow kinds, RowUniv for
// rows. Fresh locals are supplied by the caller's counter.
func (k Kind) Term(fresh func(name string) Local) Term {
	if k.Row {
		return &RowUniv{}
	}
	var out Term = &Univ{}
	for i := 0; i < k.Arity; i++ {
		out = &Pi{Param: fresh(""), ParamTy: &Univ{}, Body: out}
	}
	return out
}
