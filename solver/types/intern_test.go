package types

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInternIsHashConsed(t *testing.T) {
	in := NewInterner(8)
	sym := in.NewSymbol("Box")

	build := func() []TypeId {
		x := Property{Name: "x", Read: Number}
		y := Property{Name: "y", Read: String, Optional: true}
		return []TypeId{
			in.Array(Number),
			in.TupleOf(Number, String),
			in.ObjectOf(y, x),
			in.Function(Signature{Params: []Param{{Name: "a", Type: Number}}, Return: String}),
			in.Application(in.Ref(sym), Number),
			in.Union(String, Number, Null),
			in.LiteralString("hello"),
			in.LiteralNumber(42),
		}
	}
	first, second := build(), build()
	assert.Equal(t, first, second)

	// property order does not matter
	assert.Equal(t,
		in.ObjectOf(Property{Name: "a", Read: Number}, Property{Name: "b", Read: String}),
		in.ObjectOf(Property{Name: "b", Read: String}, Property{Name: "a", Read: Number}))
}

func TestReservedHandles(t *testing.T) {
	in := NewInterner(4)
	assert.Equal(t, Any, in.Intern(IntrinsicKey{IntrinsicAny}))
	assert.Equal(t, True, in.LiteralBool(true))
	assert.Equal(t, True, in.Literal(BooleanLiteral(true)))
	assert.Equal(t, EmptyString, in.LiteralString(""))
	assert.Equal(t, KindIntrinsic, in.KindOf(String))
	assert.Equal(t, KindLiteral, in.KindOf(False))

	id, ok := IntrinsicByName("bigint")
	require.True(t, ok)
	assert.Equal(t, BigInt, id)
}

func TestNumberLiteralIdentity(t *testing.T) {
	in := NewInterner(4)
	assert.Equal(t, in.LiteralNumber(0), in.LiteralNumber(math.Copysign(0, -1)))
	assert.Equal(t, in.LiteralNumber(math.NaN()), in.LiteralNumber(math.NaN()))
	assert.NotEqual(t, in.LiteralNumber(1), in.LiteralNumber(2))
	assert.NotEqual(t, in.LiteralNumber(1), in.LiteralString("1"))
}

func TestLookupRoundTrips(t *testing.T) {
	in := NewInterner(2)
	arr := in.Array(String)
	assert.Equal(t, ArrayKey{Elem: String}, in.Lookup(arr))

	obj := in.ObjectOf(Property{Name: "v", Read: Number, Write: Number})
	shape := in.Shape(in.Lookup(obj).(ObjectKey).Shape)
	require.Len(t, shape.Props, 1)
	assert.Equal(t, NoType, shape.Props[0].Write, "identical write type is normalised away")
	assert.Equal(t, Number, shape.Props[0].WriteType())
}

func TestLookupUnknownHandleDegrades(t *testing.T) {
	if debugMode {
		t.Skip("inconsistencies panic in debug builds")
	}
	in := NewInterner(2)
	var reported []string
	in.OnInconsistency = func(msg string) { reported = append(reported, msg) }

	assert.Equal(t, reservedKeys[Error], in.Lookup(TypeId(1_000_000)))
	assert.Len(t, reported, 1)
}

func TestInternConcurrent(t *testing.T) {
	in := NewInterner(DefaultShards)
	const workers = 16
	const perWorker = 500

	results := make([][]TypeId, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			ids := make([]TypeId, perWorker)
			for i := 0; i < perWorker; i++ {
				lit := in.LiteralNumber(float64(i))
				ids[i] = in.Array(in.Union(lit, Null))
			}
			results[w] = ids
		}(w)
	}
	wg.Wait()

	for w := 1; w < workers; w++ {
		assert.Equal(t, results[0], results[w])
	}
	for i, id := range results[0] {
		elem := in.Lookup(id).(ArrayKey).Elem
		members := in.List(in.Lookup(elem).(UnionKey).Members)
		assert.Contains(t, members, in.LiteralNumber(float64(i)))
	}
}

func TestChunkedVecLocate(t *testing.T) {
	tests := []struct {
		index  uint32
		bucket int
		offset uint32
	}{
		{0, 0, 0},
		{31, 0, 31},
		{32, 1, 0},
		{95, 1, 63},
		{96, 2, 0},
	}
	for _, tt := range tests {
		b, off := locate(tt.index)
		assert.Equal(t, tt.bucket, b, "bucket of %d", tt.index)
		assert.Equal(t, tt.offset, off, "offset of %d", tt.index)
	}

	var v chunkedVec[int]
	for i := 0; i < 1000; i++ {
		assert.Equal(t, uint32(i), v.push(i*2))
	}
	got, ok := v.get(999)
	assert.True(t, ok)
	assert.Equal(t, 1998, got)
	_, ok = v.get(5000)
	assert.False(t, ok)
}

func TestShardedMap(t *testing.T) {
	m := NewShardedMap[TypeId, string](8, HashId)
	m.Put(Number, "n")
	v, loaded := m.LoadOrStore(Number, "other")
	assert.True(t, loaded)
	assert.Equal(t, "n", v)
	_, loaded = m.LoadOrStore(String, "s")
	assert.False(t, loaded)
	assert.Equal(t, 2, m.Len())
	m.Delete(Number)
	_, ok := m.Get(Number)
	assert.False(t, ok)
}

func TestParamInfo(t *testing.T) {
	in := NewInterner(4)
	sym := in.NewSymbol("T")
	tp := in.TypeParam("T", sym, Number, NoType, false)
	assert.Equal(t, Number, in.ParamInfo(tp).Constraint)

	free := in.TypeParam("U", in.NewSymbol("U"), NoType, NoType, false)
	assert.Equal(t, Unknown, in.ParamInfo(free).Constraint)
	assert.Equal(t, "U", in.SymbolName(in.Lookup(free).(TypeParamKey).Symbol))
}

func TestFreeParams(t *testing.T) {
	in := NewInterner(4)
	tp := in.TypeParam("T", in.NewSymbol("T"), NoType, NoType, false)
	u := in.TypeParam("U", in.NewSymbol("U"), NoType, NoType, false)

	assert.Equal(t, []TypeId{tp}, in.FreeParams(in.Array(tp)))
	assert.False(t, in.HasFreeParams(in.Array(Number)))

	generic := in.Function(Signature{TypeParams: []TypeId{tp}, Params: []Param{{Name: "x", Type: tp}}, Return: u})
	assert.Equal(t, []TypeId{u}, in.FreeParams(generic), "own type parameters are bound")

	x := in.Infer("X", in.NewSymbol("X"))
	cond := in.Conditional(tp, in.Array(x), x, Never)
	assert.Equal(t, []TypeId{tp}, in.FreeParams(cond), "infer placeholders are bound by the conditional")
	assert.Equal(t, []TypeId{x}, in.InferPlaceholders(in.Array(x)))

	k := in.TypeParam("K", in.NewSymbol("K"), NoType, NoType, false)
	mapped := in.Mapped(MappedKey{Param: k, Constraint: in.KeyOf(u), Template: in.IndexAccess(u, k)})
	assert.Equal(t, []TypeId{u}, in.FreeParams(mapped))
}
