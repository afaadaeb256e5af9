package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cottand/tsolve/solver/tserr"
	"github.com/cottand/tsolve/solver/types"
)

func hasFailure(s *Session, code tserr.ErrCode) bool {
	for _, err := range s.Failures() {
		if err.Code() == code {
			return true
		}
	}
	return false
}

func TestSubtypeIsReflexive(t *testing.T) {
	s, in := newTestSession(t)
	_, list := declare(s, "List")
	ids := []types.TypeId{
		types.Any, types.Unknown, types.Never, types.String, types.Void, types.Error,
		in.LiteralString("a"),
		in.Union(types.String, types.Number),
		in.Array(types.Number),
		in.TupleOf(types.String, types.Boolean),
		in.ObjectOf(prop("a", types.Number), optProp("b", types.String)),
		in.Function(fn(types.Void, types.String)),
		list,
	}
	for _, id := range ids {
		t.Run(in.Format(id), func(t *testing.T) {
			assert.True(t, s.IsSubtype(id, id, SoundPolicy()))
			assert.True(t, s.IsAssignable(id, id, AssignContext{}))
		})
	}
}

func TestSubtype(t *testing.T) {
	s, in := newTestSession(t)
	a, b := in.LiteralString("a"), in.LiteralString("b")
	objA := in.ObjectOf(prop("a", types.Number))
	objB := in.ObjectOf(prop("b", types.String))
	objAB := in.ObjectOf(prop("a", types.Number), prop("b", types.String))

	tests := []struct {
		name     string
		src, tgt types.TypeId
		want     bool
	}{
		{"literal to base", a, types.String, true},
		{"base to literal", types.String, a, false},
		{"never to anything", types.Never, types.Number, true},
		{"anything to unknown", types.Number, types.Unknown, true},
		{"any is not a sound subtype", types.Any, types.String, false},
		{"anything to any", types.String, types.Any, true},
		{"undefined to void", types.Undefined, types.Void, true},
		{"null under strict null checks", types.Null, types.String, false},
		{"union source", in.Union(a, b), types.String, true},
		{"union target", types.String, in.Union(types.String, types.Number), true},
		{"union not covered", in.Union(types.String, types.Number), types.String, false},
		{"intersection source", in.Intersection(objA, objB), objA, true},
		{"intersection target", objAB, in.Intersection(objA, objB), true},
		{"width subtyping", objAB, objA, true},
		{"missing property", objA, objAB, false},
		{"optional to required", in.ObjectOf(optProp("a", types.Number)), objA, false},
		{"required to optional", objA, in.ObjectOf(optProp("a", types.Number)), true},
		{"object to object intrinsic", objA, types.Object, true},
		{"primitive to object intrinsic", types.Number, types.Object, false},
		{"mutable arrays are invariant", in.Array(a), in.Array(types.String), false},
		{"readonly arrays are covariant", in.Array(a), in.Readonly(in.Array(types.String)), true},
		{"readonly to mutable", in.Readonly(in.Array(types.String)), in.Array(types.String), false},
		{"tuple to readonly array", in.TupleOf(types.Number, types.String), in.Readonly(in.Array(in.Union(types.Number, types.String))), true},
		{"tuple arity", in.TupleOf(types.Number), in.TupleOf(types.Number, types.Number), false},
		{"optional tuple element", in.TupleOf(types.Number), in.Tuple(types.TupleElem{Type: types.Number}, types.TupleElem{Type: types.Number, Optional: true}), true},
		{
			"parameters are contravariant",
			in.Function(fn(types.Void, in.Union(types.String, types.Number))), in.Function(fn(types.Void, types.String)),
			true,
		},
		{
			"parameters are not covariant",
			in.Function(fn(types.Void, types.String)), in.Function(fn(types.Void, in.Union(types.String, types.Number))),
			false,
		},
		{"fewer parameters", in.Function(fn(types.Number)), in.Function(fn(types.Number, types.String)), true},
		{"more required parameters", in.Function(fn(types.Number, types.String)), in.Function(fn(types.Number)), false},
		{"returns are covariant", in.Function(fn(a)), in.Function(fn(types.String)), true},
		{"void return is not top for the sound judge", in.Function(fn(types.Number)), in.Function(fn(types.Void)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.IsSubtype(tt.src, tt.tgt, SoundPolicy()))
		})
	}
}

func TestRecursiveInterfacesAreRelatedCoinductively(t *testing.T) {
	s, in := newTestSession(t)
	listSym, list := declare(s, "List")
	s.Define(listSym, Definition{Kind: DefInterface, Body: in.ObjectOf(
		prop("next", list),
		prop("value", types.Number),
	)})
	wideSym, wide := declare(s, "WideList")
	s.Define(wideSym, Definition{Kind: DefInterface, Body: in.ObjectOf(
		prop("next", wide),
		prop("value", in.Union(types.Number, types.String)),
	)})

	assert.Equal(t, Related, s.CheckSubtype(list, wide, SoundPolicy()))
	assert.Equal(t, NotRelated, s.CheckSubtype(wide, list, SoundPolicy()))
	assert.Positive(t, s.Stats().CycleHits)
}

func TestMutuallyRecursiveAliases(t *testing.T) {
	s, in := newTestSession(t)
	treeSym, tree := declare(s, "Tree")
	forestSym, forest := declare(s, "Forest")
	s.Define(treeSym, Definition{Kind: DefAlias, Body: in.ObjectOf(prop("children", forest), prop("label", types.String))})
	s.Define(forestSym, Definition{Kind: DefAlias, Body: in.Array(tree)})

	leaf := in.ObjectOf(prop("children", in.Array(tree)), prop("label", in.LiteralString("root")))
	assert.True(t, s.IsAssignable(leaf, tree, AssignContext{}))
	assert.False(t, s.IsAssignable(in.ObjectOf(prop("label", types.String)), tree, AssignContext{}))
}

func TestApplicationsUseMeasuredVariance(t *testing.T) {
	s, in := newTestSession(t)
	tp := typeParam(s, "T", types.NoType, types.NoType)
	boxSym, box := declare(s, "Box")
	s.Define(boxSym, Definition{Kind: DefInterface, TypeParams: []types.TypeId{tp}, Body: in.ObjectOf(prop("value", tp))})

	narrow := in.Application(box, in.LiteralString("a"))
	wide := in.Application(box, types.String)
	assert.True(t, s.IsSubtype(narrow, wide, SoundPolicy()))
	assert.False(t, s.IsSubtype(wide, narrow, SoundPolicy()))

	v, ok := s.variances.Get(varianceKey{Def: boxSym, Mode: SoundPolicy().withDefaults().bits()})
	require.True(t, ok)
	assert.Equal(t, []Variance{Covariant}, v)
}

func TestOpaqueReferencesRelateByIdentity(t *testing.T) {
	s, _ := newTestSession(t)
	_, a := declare(s, "A")
	_, b := declare(s, "B")
	assert.False(t, s.IsSubtype(a, b, SoundPolicy()))
	assert.True(t, s.IsSubtype(a, a, SoundPolicy()))
}

func TestFuelExhaustionIsNotAFailure(t *testing.T) {
	s, in := newTestSession(t, withConfig(func(c *Config) { c.Fuel = 5 }))
	src, tgt := nested(in, in.LiteralString("a"), 20), nested(in, types.String, 20)

	assert.Equal(t, RecursionLimitExceeded, s.CheckSubtype(src, tgt, SoundPolicy()))
	assert.False(t, s.IsSubtype(src, tgt, SoundPolicy()))
	assert.True(t, hasFailure(s, tserr.RecursionLimitExceededCode))

	roomy, in2 := newTestSession(t)
	assert.Equal(t, Related, roomy.CheckSubtype(nested(in2, in2.LiteralString("a"), 20), nested(in2, types.String, 20), SoundPolicy()))
}

// nested wraps leaf in depth levels of {x: ...}.
func nested(in *types.Interner, leaf types.TypeId, depth int) types.TypeId {
	id := leaf
	for range depth {
		id = in.ObjectOf(prop("x", id))
	}
	return id
}

func TestJudgeCache(t *testing.T) {
	s, in := newTestSession(t)
	src := in.ObjectOf(prop("a", in.LiteralNumber(1)), prop("b", types.String))
	tgt := in.ObjectOf(prop("a", types.Number))

	first := s.CheckSubtype(src, tgt, SoundPolicy())
	hits := s.Stats().JudgeCacheHits
	second := s.CheckSubtype(src, tgt, SoundPolicy())

	assert.Equal(t, Related, first)
	assert.Equal(t, first, second)
	assert.Greater(t, s.Stats().JudgeCacheHits, hits)
}
