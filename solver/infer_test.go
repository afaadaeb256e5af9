package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cottand/tsolve/solver/tserr"
	"github.com/cottand/tsolve/solver/types"
)

func generic(sig types.Signature, params ...types.TypeId) types.Signature {
	sig.TypeParams = params
	return sig
}

func bound(t *testing.T, res InferenceResult, param types.TypeId) types.TypeId {
	t.Helper()
	got, ok := res.Subst.Lookup(param)
	require.True(t, ok, "parameter not bound")
	return got
}

func errorCodes(res InferenceResult) []tserr.ErrCode {
	var codes []tserr.ErrCode
	for _, err := range res.Errors {
		codes = append(codes, err.Code())
	}
	return codes
}

// wrap<A extends any[], R>(fn: (...args: A) => R): (...args: A) => R
// applied to add(a: number, b: number): number
func TestInferRestParameterAsTuple(t *testing.T) {
	s, in := newTestSession(t)
	a := typeParam(s, "A", in.Array(types.Any), types.NoType)
	r := typeParam(s, "R", types.NoType, types.NoType)
	inner := in.Function(types.Signature{Params: []types.Param{{Name: "args", Type: a, Rest: true}}, Return: r})
	wrap := in.Function(types.Signature{
		TypeParams: []types.TypeId{a, r},
		Params:     []types.Param{{Name: "fn", Type: inner}},
		Return:     inner,
	})
	add := in.Function(fn(types.Number, types.Number, types.Number))

	out, res := s.InferCall(wrap, []types.TypeId{add}, types.NoType)
	assert.Empty(t, res.Errors)
	assert.Equal(t, in.TupleOf(types.Number, types.Number), bound(t, res, a))
	assert.Equal(t, types.Number, bound(t, res, r))

	want := in.Function(types.Signature{
		Params: []types.Param{{Name: "fn", Type: in.Function(types.Signature{
			Params: []types.Param{{Name: "args", Type: in.TupleOf(types.Number, types.Number), Rest: true}},
			Return: types.Number,
		})}},
		Return: in.Function(types.Signature{
			Params: []types.Param{{Name: "args", Type: in.TupleOf(types.Number, types.Number), Rest: true}},
			Return: types.Number,
		}),
	})
	assert.Equal(t, want, out)
}

func TestInferCall(t *testing.T) {
	s, in := newTestSession(t)
	tParam := typeParam(s, "T", types.NoType, types.NoType)
	tConst := in.TypeParam("C", s.DeclareSymbol("C"), types.NoType, types.NoType, true)
	tString := typeParam(s, "S", types.String, types.NoType)
	tDefault := typeParam(s, "D", types.NoType, types.Boolean)

	tests := []struct {
		name       string
		sig        types.Signature
		param      types.TypeId
		args       []types.TypeId
		contextual types.TypeId
		want       types.TypeId
		errs       []tserr.ErrCode
	}{
		{
			name: "literal argument is widened", param: tParam,
			sig:  generic(fn(tParam, tParam), tParam),
			args: []types.TypeId{in.LiteralString("a")},
			want: types.String,
		},
		{
			name: "const parameter keeps literal", param: tConst,
			sig:  generic(fn(tConst, tConst), tConst),
			args: []types.TypeId{in.LiteralString("a")},
			want: in.LiteralString("a"),
		},
		{
			name: "primitive constraint keeps literal", param: tString,
			sig:  generic(fn(tString, tString), tString),
			args: []types.TypeId{in.LiteralString("a")},
			want: in.LiteralString("a"),
		},
		{
			name: "candidates are folded to a common supertype", param: tParam,
			sig:  generic(fn(types.Void, tParam, tParam), tParam),
			args: []types.TypeId{in.LiteralNumber(1), in.LiteralNumber(2)},
			want: types.Number,
		},
		{
			name: "incomparable candidates leave the parameter unresolved", param: tParam,
			sig:  generic(fn(types.Void, tParam, tParam), tParam),
			args: []types.TypeId{in.LiteralString("a"), in.LiteralNumber(1)},
			want: types.Unknown,
			errs: []tserr.ErrCode{tserr.UnresolvedInferenceVariableCode},
		},
		{
			name: "no candidate falls back to the default", param: tDefault,
			sig:  generic(fn(tDefault), tDefault),
			want: types.Boolean,
			errs: []tserr.ErrCode{tserr.UnresolvedInferenceVariableCode},
		},
		{
			name: "no candidate falls back to the constraint", param: tString,
			sig:  generic(fn(tString), tString),
			want: types.String,
			errs: []tserr.ErrCode{tserr.UnresolvedInferenceVariableCode},
		},
		{
			name: "constraint violation binds the constraint", param: tString,
			sig:  generic(fn(types.Void, tString), tString),
			args: []types.TypeId{types.Number},
			want: types.String,
			errs: []tserr.ErrCode{tserr.ConstraintViolationCode},
		},
		{
			name: "contextual return type", param: tParam,
			sig:        generic(fn(tParam), tParam),
			contextual: types.String,
			want:       types.String,
		},
		{
			name: "arguments rank above the contextual type", param: tParam,
			sig:        generic(fn(tParam, tParam), tParam),
			args:       []types.TypeId{in.LiteralNumber(1)},
			contextual: types.String,
			want:       types.Number,
		},
		{
			name: "callback parameters give upper bounds", param: tParam,
			sig:  generic(fn(types.Void, in.Function(fn(types.Void, tParam))), tParam),
			args: []types.TypeId{in.Function(fn(types.Void, types.String))},
			want: types.String,
		},
		{
			name: "fixed union members are matched off", param: tParam,
			sig:  generic(fn(types.Void, in.Union(tParam, types.Undefined)), tParam),
			args: []types.TypeId{in.Union(types.String, types.Undefined)},
			want: types.String,
		},
		{
			name: "object properties", param: tParam,
			sig:  generic(fn(types.Void, in.ObjectOf(prop("value", tParam))), tParam),
			args: []types.TypeId{in.ObjectOf(prop("value", types.Number))},
			want: types.Number,
		},
		{
			name: "array elements", param: tParam,
			sig:  generic(fn(types.Void, in.Array(tParam)), tParam),
			args: []types.TypeId{in.TupleOf(types.Number, in.LiteralNumber(2))},
			want: types.Number,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, res := s.InferCall(in.Function(tt.sig), tt.args, tt.contextual)
			assert.Equal(t, tt.want, bound(t, res, tt.param))
			assert.Equal(t, tt.errs, errorCodes(res))
		})
	}
}

func TestInferFromSites(t *testing.T) {
	s, in := newTestSession(t)
	k := typeParam(s, "K", types.NoType, types.NoType)
	v := typeParam(s, "V", types.NoType, types.NoType)
	pair := in.TupleOf(k, v)

	res := s.Infer([]types.TypeId{k, v}, []InferenceSite{
		{Target: pair, Source: in.TupleOf(types.String, types.Boolean), Variance: Covariant},
	}, nil)
	assert.Empty(t, res.Errors)
	assert.Equal(t, types.String, bound(t, res, k))
	assert.Equal(t, types.Boolean, bound(t, res, v))

	// a contravariant site alone gives the common subtype
	res = s.Infer([]types.TypeId{k}, []InferenceSite{
		{Target: k, Source: in.Union(types.String, types.Number), Variance: Contravariant},
		{Target: k, Source: types.String, Variance: Contravariant},
	}, nil)
	assert.Equal(t, types.String, bound(t, res, k))

	res = s.Infer([]types.TypeId{k}, nil, &InferenceSite{Target: in.Array(k), Source: in.Array(types.Number)})
	assert.Equal(t, types.Number, bound(t, res, k))
}

func TestInferReportsToSession(t *testing.T) {
	s, in := newTestSession(t)
	tp := typeParam(s, "T", types.NoType, types.NoType)
	_, res := s.InferCall(in.Function(generic(fn(tp), tp)), nil, types.NoType)
	require.Len(t, res.Errors, 1)
	assert.True(t, hasFailure(s, tserr.UnresolvedInferenceVariableCode))
	assert.Positive(t, s.Stats().Inferences)
}
