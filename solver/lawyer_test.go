package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cottand/tsolve/solver/types"
)

func TestDefaultRuleOrder(t *testing.T) {
	assert.Equal(t, []string{
		"identity", "any", "non-strict-null", "unknown-target", "never-source", "error-marker",
		"unknown-source", "enum", "private-brand", "weak-type", "excess-property", "empty-object-target",
	}, NewLawyer(DefaultRules()...).Rules())
}

// each case is a pair the sound judge and the lawyer disagree on, or one
// where a rule pins down the answer
func TestLawyerRules(t *testing.T) {
	s, in := newTestSession(t)

	eSym, fSym := s.DeclareSymbol("E"), s.DeclareSymbol("F")
	e0 := in.EnumMember(s.DeclareSymbol("E.A"), eSym, in.LiteralNumber(0))
	e1 := in.EnumMember(s.DeclareSymbol("E.B"), eSym, in.LiteralNumber(1))
	enumE := in.Enum(eSym, e0, e1)
	f0 := in.EnumMember(s.DeclareSymbol("F.X"), fSym, in.LiteralNumber(0))
	enumF := in.Enum(fSym, f0)
	sSym := s.DeclareSymbol("S")
	enumS := in.Enum(sSym, in.EnumMember(s.DeclareSymbol("S.A"), sSym, in.LiteralString("a")))

	aSym, bSym := s.DeclareSymbol("A"), s.DeclareSymbol("B")
	private := func(class types.SymbolId) types.TypeId {
		return in.Object(types.ObjectShape{Symbol: class, Props: []types.Property{
			{Name: "x", Read: types.Number, Visibility: types.Private, Parent: class},
		}})
	}
	classA, classB := private(aSym), private(bSym)
	// SubA inherits the private member of A
	subA := in.Object(types.ObjectShape{Symbol: s.DeclareSymbol("SubA"), Props: []types.Property{
		{Name: "x", Read: types.Number, Visibility: types.Private, Parent: aSym},
		{Name: "y", Read: types.String},
	}})

	method := func(param types.TypeId) types.TypeId {
		sig := fn(types.Void, param)
		sig.IsMethod = true
		return in.Function(sig)
	}
	narrow, wide := types.String, in.Union(types.String, types.Number)

	tests := []struct {
		name     string
		src, tgt types.TypeId
		ctx      AssignContext
		sound    bool
		assign   bool
		rule     string
	}{
		{"any source", types.Any, types.String, AssignContext{}, false, true, "any"},
		{"any to never", types.Any, types.Never, AssignContext{}, false, false, "any"},
		{"unknown target", in.ObjectOf(prop("a", types.Number)), types.Unknown, AssignContext{}, true, true, "unknown-target"},
		{"never source", types.Never, types.String, AssignContext{}, true, true, "never-source"},
		{"error source", types.Error, types.String, AssignContext{}, false, false, "error-marker"},
		{"error target", types.String, types.Error, AssignContext{}, false, false, "error-marker"},
		{"unknown source", types.Unknown, in.ObjectOf(), AssignContext{}, false, false, "unknown-source"},
		{"number to numeric enum", types.Number, enumE, AssignContext{}, false, true, "enum"},
		{"member value to member", in.LiteralNumber(0), e0, AssignContext{}, false, true, "enum"},
		{"other value to member", in.LiteralNumber(1), e0, AssignContext{}, false, false, "enum"},
		{"member to own enum", e0, enumE, AssignContext{}, true, true, "enum"},
		{"member to sibling", e0, e1, AssignContext{}, false, false, "enum"},
		{"member to foreign enum", e0, enumF, AssignContext{}, false, false, "enum"},
		{"string to string enum", in.LiteralString("a"), enumS, AssignContext{}, false, false, "enum"},
		{"member to its value type", e0, types.Number, AssignContext{}, true, true, "judge"},
		{"foreign private member", classA, classB, AssignContext{}, true, false, "private-brand"},
		{"inherited private member", subA, classA, AssignContext{}, true, true, "judge"},
		{
			"weak target without common property",
			in.ObjectOf(prop("c", types.Number)), in.ObjectOf(optProp("a", types.Number)), AssignContext{},
			true, false, "weak-type",
		},
		{
			"weak target with common property",
			in.ObjectOf(prop("a", types.Number), prop("c", types.Number)), in.ObjectOf(optProp("a", types.Number)), AssignContext{},
			true, true, "judge",
		},
		{
			"excess property in fresh literal",
			in.FreshObject(prop("a", in.LiteralNumber(1)), prop("b", in.LiteralNumber(2))), in.ObjectOf(prop("a", types.Number)), AssignContext{Fresh: true},
			true, false, "excess-property",
		},
		{
			"excess property in stored value",
			in.FreshObject(prop("a", in.LiteralNumber(1)), prop("b", in.LiteralNumber(2))), in.ObjectOf(prop("a", types.Number)), AssignContext{},
			true, true, "judge",
		},
		{
			"union target knows every member's properties",
			in.FreshObject(prop("a", in.LiteralNumber(1)), prop("b", types.String)),
			in.Union(in.ObjectOf(prop("a", types.Number)), in.ObjectOf(prop("b", types.String))),
			AssignContext{Fresh: true},
			true, true, "judge",
		},
		{"primitive to empty object", types.String, in.ObjectOf(), AssignContext{}, false, true, "empty-object-target"},
		{"null to empty object", types.Null, in.ObjectOf(), AssignContext{}, false, false, "empty-object-target"},
		{"covariant arrays", in.Array(in.LiteralString("a")), in.Array(types.String), AssignContext{}, false, true, "judge"},
		{"bivariant methods", method(narrow), method(wide), AssignContext{}, false, true, "judge"},
		{
			"strict function parameters",
			in.Function(fn(types.Void, narrow)), in.Function(fn(types.Void, wide)), AssignContext{},
			false, false, "judge",
		},
		{"void return accepts anything", in.Function(fn(types.Number)), in.Function(fn(types.Void)), AssignContext{}, false, true, "judge"},
		{
			"nested rule decides the failure",
			in.ObjectOf(prop("p", types.Unknown)), in.ObjectOf(prop("p", types.String)), AssignContext{},
			false, false, "unknown-source",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.sound, s.IsSubtype(tt.src, tt.tgt, SoundPolicy()), "sound judge")
			assert.Equal(t, tt.assign, s.IsAssignable(tt.src, tt.tgt, tt.ctx), "assignability")

			ex := s.Explain(tt.src, tt.tgt, tt.ctx)
			assert.Equal(t, outcomeOf(tt.assign), ex.Outcome)
			assert.Equal(t, tt.rule, ex.Rule)
		})
	}
}

func TestNonStrictNullChecks(t *testing.T) {
	strict, _ := newTestSession(t)
	loose, _ := newTestSession(t, withConfig(func(c *Config) { c.StrictNullChecks = false }))

	for _, src := range []types.TypeId{types.Null, types.Undefined} {
		assert.False(t, strict.IsAssignable(src, types.String, AssignContext{}))
		assert.True(t, loose.IsAssignable(src, types.String, AssignContext{}))
		assert.Equal(t, "non-strict-null", loose.Explain(src, types.String, AssignContext{}).Rule)
	}
}

func TestNonStrictFunctionTypes(t *testing.T) {
	s, in := newTestSession(t, withConfig(func(c *Config) { c.StrictFunctionTypes = false }))
	narrow := in.Function(fn(types.Void, types.String))
	wide := in.Function(fn(types.Void, in.Union(types.String, types.Number)))

	assert.True(t, s.IsAssignable(narrow, wide, AssignContext{}))
	assert.False(t, s.IsSubtype(narrow, wide, SoundPolicy()))
}

// assignability results are cached apart from subtyping results for the
// same pair
func TestLawyerAndJudgeCachesAreSeparate(t *testing.T) {
	s, in := newTestSession(t)
	src, tgt := in.Array(in.LiteralString("a")), in.Array(types.String)

	assert.False(t, s.IsSubtype(src, tgt, SoundPolicy()))
	assert.True(t, s.IsAssignable(src, tgt, AssignContext{}))
	assert.False(t, s.IsSubtype(src, tgt, SoundPolicy()))
}
