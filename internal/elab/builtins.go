package elab

import (
	"github.com/kirraObj-s-archives/rowscript/internal/core"
	"github.com/kirraObj-s-archives/rowscript/internal/resolve"
)

// registerBuiltinSigs seeds signatures for the reserved names so they
// behave like ordinary globals wherever the checker consults sigs.
// Their term-level types are produced by builtinRef; the entries here
// cover type-position uses and kind queries.
func (c *Checker) registerBuiltinSigs() {
	for _, id := range []core.GlobalID{
		resolve.BuiltinNumber,
		resolve.BuiltinString,
		resolve.BuiltinBigint,
		resolve.BuiltinBoolean,
		resolve.BuiltinUnit,
	} {
		c.sigs[id] = &Sig{Cat: resolve.CatType, Kind: core.KindType, Type: &core.Univ{}}
	}

	num := c.builtinTy(resolve.BuiltinNumber)
	str := c.builtinTy(resolve.BuiltinString)
	binop := func(ty core.Term) *Sig {
		return &Sig{
			Cat:    resolve.CatFunc,
			Params: []ParamSig{{Name: "a", Ty: ty}, {Name: "b", Ty: ty}},
			Ret:    ty,
		}
	}
	c.sigs[resolve.BuiltinNumberAdd] = binop(num)
	c.sigs[resolve.BuiltinNumberSub] = binop(num)
	c.sigs[resolve.BuiltinStringAdd] = binop(str)
}
