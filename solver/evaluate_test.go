package solver

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cottand/tsolve/solver/tserr"
	"github.com/cottand/tsolve/solver/types"
)

func TestConditionalDefersUntilInstantiated(t *testing.T) {
	s, in := newTestSession(t)
	tp := typeParam(s, "T", types.NoType, types.NoType)
	yes, no := in.LiteralString("yes"), in.LiteralString("no")
	cond := in.Conditional(tp, types.String, yes, no)

	assert.Equal(t, Unevaluated, s.EvaluationState(cond))
	assert.Equal(t, cond, s.Evaluate(cond))
	assert.Equal(t, Deferred, s.EvaluationState(cond))

	tests := []struct {
		name string
		arg  types.TypeId
		want types.TypeId
	}{
		{"true branch", types.String, yes},
		{"literal takes the true branch", in.LiteralString("a"), yes},
		{"false branch", types.Number, no},
		{"distributes over unions", in.Union(types.String, types.Number), in.Union(yes, no)},
		{"distributes over boolean members", in.Union(types.Boolean, in.LiteralString("a")), in.Union(yes, no)},
		{"distributes over an alias of a union", define(s, "StrOrNum", DefAlias, in.Union(types.String, types.Number)), in.Union(yes, no)},
		{"never distributes to never", types.Never, types.Never},
		{"any takes both branches", types.Any, in.Union(yes, no)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst := s.Substitute(cond, NewSubstitution().Bind(tp, tt.arg))
			got := s.Evaluate(inst)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, s.Evaluate(got))
		})
	}
}

func TestConditionalDistributesMembersIntoBranches(t *testing.T) {
	s, in := newTestSession(t)
	tp := typeParam(s, "T", types.NoType, types.NoType)
	y, n := in.LiteralString("y"), in.LiteralString("n")
	isTrue := in.Conditional(tp, types.True, y, n)
	arr := in.Conditional(tp, types.Any, in.Array(tp), types.Never)
	strOrNum := define(s, "StrOrNum", DefAlias, in.Union(types.String, types.Number))
	v := typeParam(s, "V", types.NoType, types.NoType)
	id := define(s, "Id", DefAlias, v, v)
	arrays := in.Union(in.Array(types.String), in.Array(types.Number))

	tests := []struct {
		name string
		cond types.TypeId
		arg  types.TypeId
		want types.TypeId
	}{
		{"boolean is true or false", isTrue, types.Boolean, in.Union(y, n)},
		{"true alone", isTrue, types.True, y},
		{"boolean member of a union", arr, in.Union(types.Boolean, types.String), in.Union(in.Array(types.True), in.Array(types.False), in.Array(types.String))},
		{"bare union", arr, in.Union(types.String, types.Number), arrays},
		{"alias of a union", arr, strOrNum, arrays},
		{"application resolving to a union", arr, in.Application(id, in.Union(types.String, types.Number)), arrays},
		{"application of an alias of a union", arr, in.Application(id, strOrNum), arrays},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Evaluate(s.Substitute(tt.cond, NewSubstitution().Bind(tp, tt.arg)))
			assert.Equal(t, tt.want, got, "got %s", s.Format(got))
		})
	}

	t.Run("instantiated through a generic alias", func(t *testing.T) {
		arrAlias := define(s, "Arr", DefAlias, arr, tp)
		viaAlias, err := s.Instantiate(arrAlias, strOrNum)
		require.NoError(t, err)
		direct, err := s.Instantiate(arrAlias, in.Union(types.String, types.Number))
		require.NoError(t, err)
		assert.Equal(t, arrays, s.Evaluate(viaAlias), "got %s", s.Format(s.Evaluate(viaAlias)))
		assert.Equal(t, s.Evaluate(direct), s.Evaluate(viaAlias))
	})
}

func TestWrappedCheckDoesNotDistribute(t *testing.T) {
	s, in := newTestSession(t)
	tp := typeParam(s, "T", types.NoType, types.NoType)
	yes, no := in.LiteralString("yes"), in.LiteralString("no")
	cond := in.Conditional(in.TupleOf(tp), in.TupleOf(types.String), yes, no)

	assert.Equal(t, no, s.Evaluate(s.Substitute(cond, NewSubstitution().Bind(tp, in.Union(types.String, types.Number)))))
	assert.Equal(t, yes, s.Evaluate(s.Substitute(cond, NewSubstitution().Bind(tp, in.LiteralString("a")))))
}

func TestConditionalInfer(t *testing.T) {
	s, in := newTestSession(t)
	tp := typeParam(s, "T", types.NoType, types.NoType)
	u := in.Infer("U", s.DeclareSymbol("U"))
	r := in.Infer("R", s.DeclareSymbol("R"))
	head := in.Infer("H", s.DeclareSymbol("H"))
	tail := in.Infer("Rest", s.DeclareSymbol("Rest"))

	elementType := in.Conditional(tp, in.Array(u), u, types.Never)
	returnType := in.Conditional(tp, in.Function(types.Signature{
		Params: []types.Param{{Name: "args", Type: in.Array(types.Any), Rest: true}},
		Return: r,
	}), r, types.Never)
	split := in.Conditional(tp, in.Template(
		types.TemplateSpan{Type: head},
		types.TemplateSpan{Text: "-"},
		types.TemplateSpan{Type: tail},
	), in.TupleOf(head, tail), types.Never)

	tests := []struct {
		name      string
		cond, arg types.TypeId
		want      types.TypeId
	}{
		{"array element", elementType, in.Array(types.Number), types.Number},
		{"not an array", elementType, types.String, types.Never},
		{"distributed array element", elementType, in.Union(in.Array(types.Number), in.Array(types.String)), in.Union(types.Number, types.String)},
		{"return type", returnType, in.Function(fn(types.String, types.Number)), types.String},
		{"template split", split, in.LiteralString("a-b-c"), in.TupleOf(in.LiteralString("a"), in.LiteralString("b-c"))},
		{"template mismatch", split, in.LiteralString("abc"), types.Never},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Evaluate(s.Substitute(tt.cond, NewSubstitution().Bind(tp, tt.arg)))
			assert.Equal(t, tt.want, got, s.Format(got))
		})
	}
}

func TestMappedTypes(t *testing.T) {
	s, in := newTestSession(t)
	tp := typeParam(s, "T", types.NoType, types.NoType)
	k := typeParam(s, "K", types.NoType, types.NoType)
	homomorphic := func(optional, readonly types.Modifier) types.TypeId {
		return in.Mapped(types.MappedKey{
			Param:      k,
			Constraint: in.KeyOf(tp),
			Template:   in.IndexAccess(tp, k),
			Optional:   optional,
			Readonly:   readonly,
		})
	}
	partial := homomorphic(types.ModAdd, types.ModPreserve)
	required := homomorphic(types.ModRemove, types.ModPreserve)
	readonly := homomorphic(types.ModPreserve, types.ModAdd)
	omitA := in.Mapped(types.MappedKey{
		Param:      k,
		Constraint: in.KeyOf(tp),
		NameType:   in.Conditional(k, in.LiteralString("a"), types.Never, k),
		Template:   in.IndexAccess(tp, k),
	})
	flags := in.Mapped(types.MappedKey{Param: k, Constraint: in.KeyOf(tp), Template: types.Boolean})

	obj := in.ObjectOf(prop("a", types.Number), optProp("b", types.String))

	tests := []struct {
		name        string
		mapped, arg types.TypeId
		want        types.TypeId
	}{
		{"partial", partial, obj, in.ObjectOf(optProp("a", types.Number), optProp("b", types.String))},
		{"required", required, obj, in.ObjectOf(prop("a", types.Number), prop("b", types.String))},
		{"readonly", readonly, obj, in.ObjectOf(
			types.Property{Name: "a", Read: types.Number, Readonly: true},
			types.Property{Name: "b", Read: types.String, Optional: true, Readonly: true},
		)},
		{"renaming to never deletes", omitA, obj, in.ObjectOf(optProp("b", types.String))},
		{"arrays map their elements", flags, in.Array(types.String), in.Array(types.Boolean)},
		{"tuples map their elements", flags, in.TupleOf(types.String, types.Number), in.TupleOf(types.Boolean, types.Boolean)},
		{"primitives map to themselves", flags, types.Number, types.Number},
		{"unions map member-wise", flags, in.Union(in.ObjectOf(prop("a", types.Number)), in.ObjectOf(prop("b", types.Number))),
			in.Union(in.ObjectOf(prop("a", types.Boolean)), in.ObjectOf(prop("b", types.Boolean)))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Evaluate(s.Substitute(tt.mapped, NewSubstitution().Bind(tp, tt.arg)))
			assert.Equal(t, tt.want, got, s.Format(got))
		})
	}

	t.Run("deferred over a parameter", func(t *testing.T) {
		assert.Equal(t, partial, s.Evaluate(partial))
		assert.Equal(t, Deferred, s.EvaluationState(partial))
	})
}

func TestMappedOverKeyUnion(t *testing.T) {
	s, in := newTestSession(t)
	k := typeParam(s, "K", types.NoType, types.NoType)
	a, b := in.LiteralString("a"), in.LiteralString("b")

	record := in.Mapped(types.MappedKey{Param: k, Constraint: in.Union(a, b), Template: k})
	assert.Equal(t, in.ObjectOf(prop("a", a), prop("b", b)), s.Evaluate(record))

	dict := in.Mapped(types.MappedKey{Param: k, Constraint: types.String, Template: types.Number})
	assert.Equal(t, in.Object(types.ObjectShape{StringIndex: types.IndexSignature{Value: types.Number}}), s.Evaluate(dict))
}

func TestMappedKeyCap(t *testing.T) {
	s, in := newTestSession(t, withConfig(func(c *Config) { c.MappedKeyCap = 2 }))
	k := typeParam(s, "K", types.NoType, types.NoType)
	keys := in.Union(in.LiteralString("a"), in.LiteralString("b"), in.LiteralString("c"))
	mapped := in.Mapped(types.MappedKey{Param: k, Constraint: keys, Template: types.Number})

	assert.Equal(t, mapped, s.Evaluate(mapped))
	assert.True(t, hasFailure(s, tserr.RecursionLimitExceededCode))
}

func TestKeyOf(t *testing.T) {
	s, in := newTestSession(t)
	a, b, c := in.LiteralString("a"), in.LiteralString("b"), in.LiteralString("c")
	objAB := in.ObjectOf(prop("a", types.Number), prop("b", types.Number))
	objBC := in.ObjectOf(prop("b", types.Number), prop("c", types.Number))

	tests := []struct {
		name    string
		operand types.TypeId
		want    types.TypeId
	}{
		{"object", objAB, in.Union(a, b)},
		{"union keeps common keys", in.Union(objAB, objBC), b},
		{"intersection keeps all keys", in.Intersection(objAB, objBC), in.Union(a, b, c)},
		{"any", types.Any, in.Union(types.String, types.Number, types.Symbol)},
		{"unknown", types.Unknown, types.Never},
		{"string index", in.Object(types.ObjectShape{StringIndex: types.IndexSignature{Value: types.Number}}), in.Union(types.String, types.Number)},
		{"number index", in.Object(types.ObjectShape{NumberIndex: types.IndexSignature{Value: types.Number}}), types.Number},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Evaluate(in.KeyOf(tt.operand))
			assert.Equal(t, tt.want, got, s.Format(got))
		})
	}

	tp := typeParam(s, "T", types.NoType, types.NoType)
	assert.Equal(t, in.KeyOf(tp), s.Evaluate(in.KeyOf(tp)))
}

func TestIndexedAccess(t *testing.T) {
	obj := func(in *types.Interner) types.TypeId {
		return in.ObjectOf(prop("a", types.Number), optProp("b", types.String))
	}
	s, in := newTestSession(t)
	o := obj(in)

	tests := []struct {
		name        string
		object, idx types.TypeId
		want        types.TypeId
	}{
		{"property", o, in.LiteralString("a"), types.Number},
		{"optional property", o, in.LiteralString("b"), in.Union(types.String, types.Undefined)},
		{"union index", o, in.Union(in.LiteralString("a"), in.LiteralString("b")), in.Union(types.Number, types.String, types.Undefined)},
		{"missing property", o, in.LiteralString("z"), types.Error},
		{"string index", in.Object(types.ObjectShape{StringIndex: types.IndexSignature{Value: types.Boolean}}), types.String, types.Boolean},
		{"number through string index", in.Object(types.ObjectShape{StringIndex: types.IndexSignature{Value: types.Boolean}}), types.Number, types.Boolean},
		{"any object", types.Any, in.LiteralString("a"), types.Any},
		{"never index", o, types.Never, types.Never},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Evaluate(in.IndexAccess(tt.object, tt.idx))
			assert.Equal(t, tt.want, got, s.Format(got))
		})
	}

	t.Run("exact optional property types", func(t *testing.T) {
		exact, in := newTestSession(t, withConfig(func(c *Config) { c.ExactOptionalPropertyTypes = true }))
		assert.Equal(t, types.String, exact.Evaluate(in.IndexAccess(obj(in), in.LiteralString("b"))))
	})
}

func TestTemplateLiterals(t *testing.T) {
	s, in := newTestSession(t)
	ab := in.Union(in.LiteralString("a"), in.LiteralString("b"))
	xy := in.Union(in.LiteralString("x"), in.LiteralString("y"))

	product := in.Template(types.TemplateSpan{Type: ab}, types.TemplateSpan{Text: "-"}, types.TemplateSpan{Type: xy})
	assert.Equal(t, in.Union(
		in.LiteralString("a-x"), in.LiteralString("a-y"),
		in.LiteralString("b-x"), in.LiteralString("b-y"),
	), s.Evaluate(product))

	flag := in.Template(types.TemplateSpan{Text: "is"}, types.TemplateSpan{Type: types.Boolean})
	assert.Equal(t, in.Union(in.LiteralString("isfalse"), in.LiteralString("istrue")), s.Evaluate(flag))

	open := in.Template(types.TemplateSpan{Text: "id-"}, types.TemplateSpan{Type: types.String})
	assert.Equal(t, open, s.Evaluate(open))
	assert.True(t, s.IsSubtype(in.LiteralString("id-42"), open, SoundPolicy()))
	assert.False(t, s.IsSubtype(in.LiteralString("name-42"), open, SoundPolicy()))
}

func TestTemplateCardinalityCap(t *testing.T) {
	s, in := newTestSession(t, withConfig(func(c *Config) { c.TemplateCardinalityCap = 10 }))
	digits := func(prefix string) types.TypeId {
		var ids []types.TypeId
		for i := range 4 {
			ids = append(ids, in.LiteralString(fmt.Sprintf("%s%d", prefix, i)))
		}
		return in.Union(ids...)
	}
	wide := in.Template(types.TemplateSpan{Type: digits("a")}, types.TemplateSpan{Type: digits("b")})
	assert.Equal(t, types.String, s.Evaluate(wide))

	narrow := in.Template(types.TemplateSpan{Type: digits("a")}, types.TemplateSpan{Text: "!"})
	assert.Equal(t, in.Union(
		in.LiteralString("a0!"), in.LiteralString("a1!"), in.LiteralString("a2!"), in.LiteralString("a3!"),
	), s.Evaluate(narrow))
}

func TestStringIntrinsics(t *testing.T) {
	s, in := newTestSession(t)
	lit := in.LiteralString

	tests := []struct {
		name string
		op   types.StringOp
		arg  types.TypeId
		want types.TypeId
	}{
		{"uppercase", types.OpUppercase, in.Union(lit("abc"), lit("x")), in.Union(lit("ABC"), lit("X"))},
		{"lowercase", types.OpLowercase, lit("ÀB"), lit("àb")},
		{"capitalize", types.OpCapitalize, lit("hello world"), lit("Hello world")},
		{"uncapitalize", types.OpUncapitalize, lit("Hello"), lit("hello")},
		{"capitalize empty", types.OpCapitalize, lit(""), lit("")},
		{"string stays symbolic", types.OpUppercase, types.String, in.StringIntrinsic(types.OpUppercase, types.String)},
		{"non-string is an error", types.OpUppercase, in.LiteralNumber(1), types.Error},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Evaluate(in.StringIntrinsic(tt.op, tt.arg))
			assert.Equal(t, tt.want, got, s.Format(got))
		})
	}
}

// aliasChain defines A0 = string and Ai = A(i-1), returning the last one.
func aliasChain(s *Session, n int) types.TypeId {
	prev := types.String
	for i := range n {
		prev = define(s, fmt.Sprintf("A%d", i), DefAlias, prev)
	}
	return prev
}

func TestLongAliasChain(t *testing.T) {
	t.Run("degrades past the expansion limit", func(t *testing.T) {
		s, _ := newTestSession(t)
		top := aliasChain(s, 10_000)
		require.NotPanics(t, func() {
			assert.Equal(t, top, s.Evaluate(top))
		})
		assert.True(t, hasFailure(s, tserr.RecursionLimitExceededCode))
		assert.NotEqual(t, Related, s.CheckSubtype(top, types.String, SoundPolicy()))
	})
	t.Run("resolves with a raised limit", func(t *testing.T) {
		s, _ := newTestSession(t, withConfig(func(c *Config) { c.MaxExpansionDepth = 20_000 }))
		top := aliasChain(s, 10_000)
		assert.Equal(t, types.String, s.Evaluate(top))
		assert.True(t, s.IsAssignable(top, types.String, AssignContext{}))
		assert.Empty(t, s.Failures())
	})
}

func TestCyclicAliasesTerminate(t *testing.T) {
	s, in := newTestSession(t)
	aSym, a := declare(s, "A")
	bSym, b := declare(s, "B")
	s.Define(aSym, Definition{Kind: DefAlias, Body: b})
	s.Define(bSym, Definition{Kind: DefAlias, Body: a})

	tp := typeParam(s, "T", types.NoType, types.NoType)
	loopSym, loop := declare(s, "Loop")
	s.Define(loopSym, Definition{Kind: DefAlias, TypeParams: []types.TypeId{tp}, Body: in.Conditional(
		tp, types.Any, in.Application(loop, tp), types.Never,
	)})

	require.NotPanics(t, func() {
		s.Evaluate(a)
		s.Evaluate(in.Application(loop, types.String))
		s.IsAssignable(a, types.String, AssignContext{})
	})
}

func TestEvaluationIsMemoized(t *testing.T) {
	s, in := newTestSession(t)
	id := in.KeyOf(in.ObjectOf(prop("a", types.Number)))

	first := s.Evaluate(id)
	hits := s.Stats().MemoHits
	assert.Equal(t, first, s.Evaluate(id))
	assert.Greater(t, s.Stats().MemoHits, hits)
	assert.Equal(t, Evaluated, s.EvaluationState(id))
}
