package solver

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cottand/tsolve/solver/types"
)

func TestDogArrayIsAnimalArray(t *testing.T) {
	s, in := newTestSession(t)
	animal := define(s, "Animal", DefInterface, in.ObjectOf(prop("name", types.String)))
	dog := define(s, "Dog", DefInterface, in.ObjectOf(prop("name", types.String), prop("bark", in.Function(fn(types.Void)))))

	require.True(t, s.IsSubtype(dog, animal, SoundPolicy()))
	assert.True(t, s.IsAssignable(in.Array(dog), in.Array(animal), AssignContext{}))
	assert.True(t, s.IsSubtype(in.Array(dog), in.Array(animal), LawyerPolicy(s.Config())))
	assert.False(t, s.IsSubtype(in.Array(dog), in.Array(animal), SoundPolicy()))
	assert.False(t, s.IsAssignable(in.Array(animal), in.Array(dog), AssignContext{}))
}

func TestLiteralPropertyIsSubtypeOfBase(t *testing.T) {
	s, in := newTestSession(t)
	src := in.ObjectOf(prop("x", in.LiteralNumber(1)))
	tgt := in.ObjectOf(prop("x", types.Number))
	assert.True(t, s.IsSubtype(src, tgt, SoundPolicy()))
	assert.False(t, s.IsSubtype(tgt, src, SoundPolicy()))
}

func TestIdentityCallWidensLiteral(t *testing.T) {
	s, in := newTestSession(t)
	tp := typeParam(s, "T", types.NoType, types.NoType)
	identity := in.Function(generic(fn(tp, tp), tp))

	ret, res := s.InferCall(identity, []types.TypeId{in.LiteralString("hello")}, types.NoType)
	assert.Empty(t, res.Errors)
	assert.Equal(t, types.String, bound(t, res, tp))
	assert.Equal(t, in.Function(fn(types.String, types.String)), ret)
}

func TestPartialAlias(t *testing.T) {
	s, in := newTestSession(t)
	tp := typeParam(s, "T", types.NoType, types.NoType)
	k := typeParam(s, "K", types.NoType, types.NoType)
	partial := define(s, "Partial", DefAlias, in.Mapped(types.MappedKey{
		Param:      k,
		Constraint: in.KeyOf(tp),
		Template:   in.IndexAccess(tp, k),
		Optional:   types.ModAdd,
	}), tp)

	app, err := s.Instantiate(partial, in.ObjectOf(prop("a", types.Number), prop("b", types.String)))
	require.NoError(t, err)
	got := s.Evaluate(app)
	assert.Equal(t, in.ObjectOf(optProp("a", types.Number), optProp("b", types.String)), got, s.Format(got))
	assert.True(t, s.IsAssignable(in.ObjectOf(), app, AssignContext{}))
}

func TestNullableLinkedListIsReflexive(t *testing.T) {
	s, in := newTestSession(t)
	lSym, l := declare(s, "L")
	s.Define(lSym, Definition{Kind: DefAlias, Body: in.ObjectOf(
		prop("v", types.Number),
		prop("n", in.Union(l, types.Null)),
	)})

	assert.Equal(t, Related, s.CheckSubtype(l, l, SoundPolicy()))
	assert.Equal(t, Related, s.CheckSubtype(s.Evaluate(l), l, SoundPolicy()))
	assert.True(t, s.IsAssignable(l, s.Evaluate(l), AssignContext{}))
}

func TestInstantiateIsHashConsed(t *testing.T) {
	s, in := newTestSession(t)
	tp := typeParam(s, "T", types.NoType, types.NoType)
	box := define(s, "Box", DefInterface, in.ObjectOf(prop("value", tp)), tp)

	first, err := s.Instantiate(box, types.Number)
	require.NoError(t, err)
	second, err := s.Instantiate(box, types.Number)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	other, err := s.Instantiate(box, types.String)
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestConstraintRejectsArgument(t *testing.T) {
	s, in := newTestSession(t)
	tp := typeParam(s, "T", types.Number, types.NoType)
	identity := in.Function(generic(fn(tp, tp), tp))

	_, err := s.Instantiate(identity, types.String)
	assert.Error(t, err)
}

// Queries running in parallel on one session must agree with the same
// queries run one after the other on a fresh session.
func TestConcurrentQueriesAgreeWithSequential(t *testing.T) {
	type query struct {
		src, tgt types.TypeId
		eval     types.TypeId
	}
	build := func(s *Session) []query {
		in := s.Interner()
		tp := typeParam(s, "T", types.NoType, types.NoType)
		k := typeParam(s, "K", types.NoType, types.NoType)
		partial := in.Mapped(types.MappedKey{Param: k, Constraint: in.KeyOf(tp), Template: in.IndexAccess(tp, k), Optional: types.ModAdd})
		var qs []query
		for i := range 40 {
			name := in.LiteralString(fmt.Sprintf("k%d", i%7))
			obj := in.ObjectOf(prop("a", in.LiteralNumber(float64(i))), prop("b", name))
			qs = append(qs, query{
				src:  obj,
				tgt:  in.ObjectOf(prop("a", types.Number), optProp("b", types.String)),
				eval: s.Substitute(partial, NewSubstitution().Bind(tp, obj)),
			}, query{
				src:  in.Array(name),
				tgt:  in.Array(in.Union(name, types.Number)),
				eval: in.Template(types.TemplateSpan{Type: in.Union(name, in.LiteralString("x"))}, types.TemplateSpan{Text: "-"}),
			})
		}
		return qs
	}
	type answer struct {
		assignable bool
		subtype    Outcome
		evaluated  string
	}
	ask := func(s *Session, q query) answer {
		return answer{
			assignable: s.IsAssignable(q.src, q.tgt, AssignContext{}),
			subtype:    s.CheckSubtype(q.src, q.tgt, SoundPolicy()),
			evaluated:  s.Format(s.Evaluate(q.eval)),
		}
	}

	seq, _ := newTestSession(t)
	var want []answer
	for _, q := range build(seq) {
		want = append(want, ask(seq, q))
	}

	par, _ := newTestSession(t)
	qs := build(par)
	got := make([][]answer, 8)
	var wg sync.WaitGroup
	for w := range got {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// each worker walks the queries from a different offset
			for i := range qs {
				got[w] = append(got[w], ask(par, qs[(i+w*5)%len(qs)]))
			}
		}()
	}
	wg.Wait()

	for w, answers := range got {
		for i, a := range answers {
			assert.Equal(t, want[(i+w*5)%len(qs)], a, "worker %d query %d", w, i)
		}
	}
	assert.Empty(t, par.Failures())
}

func TestWidenAndRegular(t *testing.T) {
	s, in := newTestSession(t)
	one := in.LiteralNumber(1)
	literal := in.FreshObject(prop("n", one), types.Property{Name: "r", Read: in.LiteralString("x"), Readonly: true})

	assert.Equal(t, types.Number, s.Widen(one, AssignContext{}))
	assert.Equal(t, one, s.Widen(one, AssignContext{Const: true}))
	assert.Equal(t, in.ObjectOf(prop("n", types.Number), types.Property{Name: "r", Read: in.LiteralString("x"), Readonly: true}),
		s.Widen(literal, AssignContext{}))
	assert.Equal(t, in.ObjectOf(prop("n", one), types.Property{Name: "r", Read: in.LiteralString("x"), Readonly: true}),
		s.Regular(literal))
}

func TestGlobalsFeedApparentTypes(t *testing.T) {
	s, in := newTestSession(t)
	_, ok := s.PropertyOf(types.String, "length")
	assert.False(t, ok)

	sym := s.DeclareSymbol("String")
	s.Define(sym, Definition{Kind: DefInterface, Body: in.ObjectOf(prop("length", types.Number))})
	s.SetGlobal("String", sym)

	p, ok := s.PropertyOf(in.LiteralString("abc"), "length")
	require.True(t, ok)
	assert.Equal(t, types.Number, p.Read)
	assert.True(t, s.IsAssignable(types.String, in.ObjectOf(prop("length", types.Number)), AssignContext{}))
}
