package solver

import (
	"testing"

	"github.com/cottand/tsolve/solver/types"
)

func newTestSession(t *testing.T, opts ...Option) (*Session, *types.Interner) {
	t.Helper()
	s := NewSession(opts...)
	t.Cleanup(s.Close)
	return s, s.Interner()
}

func withConfig(edit func(c *Config)) Option {
	c := DefaultConfig()
	edit(&c)
	return WithConfig(c)
}

func prop(name string, typ types.TypeId) types.Property {
	return types.Property{Name: name, Read: typ}
}

func optProp(name string, typ types.TypeId) types.Property {
	return types.Property{Name: name, Read: typ, Optional: true}
}

func fn(ret types.TypeId, params ...types.TypeId) types.Signature {
	sig := types.Signature{Return: ret}
	for i, p := range params {
		sig.Params = append(sig.Params, types.Param{Name: string(rune('a' + i)), Type: p})
	}
	return sig
}

// declare allocates a symbol and returns it with a reference to it, so a
// definition body can refer to itself.
func declare(s *Session, name string) (types.SymbolId, types.TypeId) {
	sym := s.DeclareSymbol(name)
	return sym, s.Interner().Ref(sym)
}

func define(s *Session, name string, kind DefKind, body types.TypeId, params ...types.TypeId) types.TypeId {
	sym, ref := declare(s, name)
	s.Define(sym, Definition{Kind: kind, TypeParams: params, Body: body})
	return ref
}

func typeParam(s *Session, name string, constraint, def types.TypeId) types.TypeId {
	return s.Interner().TypeParam(name, s.DeclareSymbol(name), constraint, def, false)
}
