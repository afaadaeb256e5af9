package solver

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cottand/tsolve/solver/tserr"
	"github.com/cottand/tsolve/solver/types"
)

func TestInstantiateKeepsIdentity(t *testing.T) {
	s, in := newTestSession(t)
	tp := typeParam(s, "T", types.String, types.NoType)
	box := define(s, "Box", DefInterface, in.ObjectOf(prop("value", tp)), tp)

	id, err := s.Instantiate(box, in.LiteralString("a"))
	require.NoError(t, err)
	assert.Equal(t, in.Application(box, in.LiteralString("a")), id)
	assert.True(t, s.Classify(id).IsApplication)
	// interfaces are not unfolded by evaluation
	assert.Equal(t, id, s.Evaluate(id))
	assert.True(t, s.IsAssignable(in.ObjectOf(prop("value", in.LiteralString("a"))), id, AssignContext{}))
}

func TestInstantiateErrors(t *testing.T) {
	s, in := newTestSession(t)
	tp := typeParam(s, "T", types.String, types.NoType)
	box := define(s, "Box", DefInterface, in.ObjectOf(prop("value", tp)), tp)

	t.Run("constraint violation", func(t *testing.T) {
		id, err := s.Instantiate(box, types.Number)
		assert.Equal(t, types.Error, id)
		var cv tserr.ConstraintViolation
		require.True(t, errors.As(err, &cv))
		assert.Equal(t, "T", cv.ParamName)
		assert.Equal(t, "string", cv.ConstraintText)
		assert.Equal(t, "number", cv.ArgText)
	})
	t.Run("too few arguments", func(t *testing.T) {
		_, err := s.Instantiate(box)
		var wc tserr.WrongArgumentCount
		require.True(t, errors.As(err, &wc))
		assert.Equal(t, 1, wc.Min)
		assert.Equal(t, 1, wc.Max)
		assert.Equal(t, 0, wc.Got)
		assert.Equal(t, "Box", wc.GenericName)
	})
	t.Run("too many arguments", func(t *testing.T) {
		_, err := s.Instantiate(box, types.String, types.String)
		var wc tserr.WrongArgumentCount
		require.True(t, errors.As(err, &wc))
		assert.Equal(t, 2, wc.Got)
	})
	t.Run("undefined reference", func(t *testing.T) {
		_, missing := declare(s, "Missing")
		_, err := s.Instantiate(missing, types.String)
		var ii tserr.InternalInconsistency
		assert.True(t, errors.As(err, &ii))
	})
}

func TestInstantiateFillsDefaults(t *testing.T) {
	s, in := newTestSession(t)
	a := typeParam(s, "A", types.NoType, types.NoType)
	b := typeParam(s, "B", types.NoType, in.Array(a))
	pair := define(s, "Pair", DefAlias, in.TupleOf(a, b), a, b)

	id, err := s.Instantiate(pair, types.Number)
	require.NoError(t, err)
	assert.Equal(t, in.Application(pair, types.Number, in.Array(types.Number)), id)
	assert.Equal(t, in.TupleOf(types.Number, in.Array(types.Number)), s.Evaluate(id))

	// an explicit argument wins over the default
	id, err = s.Instantiate(pair, types.Number, types.String)
	require.NoError(t, err)
	assert.Equal(t, in.TupleOf(types.Number, types.String), s.Evaluate(id))
}

func TestConstraintsSeeEarlierArguments(t *testing.T) {
	s, in := newTestSession(t)
	a := typeParam(s, "A", types.NoType, types.NoType)
	b := typeParam(s, "B", a, types.NoType)
	narrowing := define(s, "Narrowing", DefAlias, in.TupleOf(a, b), a, b)

	_, err := s.Instantiate(narrowing, types.String, in.LiteralString("x"))
	assert.NoError(t, err)

	_, err = s.Instantiate(narrowing, in.LiteralString("x"), types.String)
	var cv tserr.ConstraintViolation
	require.True(t, errors.As(err, &cv))
	assert.Equal(t, "B", cv.ParamName)
	assert.Equal(t, `"x"`, cv.ConstraintText)
}

func TestInstantiateGenericFunction(t *testing.T) {
	s, in := newTestSession(t)
	tp := typeParam(s, "T", types.NoType, types.NoType)
	sig := fn(tp, tp)
	sig.TypeParams = []types.TypeId{tp}
	identity := in.Function(sig)

	id, err := s.Instantiate(identity, types.Number)
	require.NoError(t, err)
	assert.True(t, s.IsAssignable(id, in.Function(fn(types.Number, types.Number)), AssignContext{}))
	assert.False(t, s.IsAssignable(id, in.Function(fn(types.String, types.String)), AssignContext{}))
}

func TestGenericSignatureIsInstantiatedAgainstTarget(t *testing.T) {
	s, in := newTestSession(t)
	tp := typeParam(s, "T", types.NoType, types.NoType)
	sig := fn(tp, tp)
	sig.TypeParams = []types.TypeId{tp}
	identity := in.Function(sig)

	assert.True(t, s.IsAssignable(identity, in.Function(fn(types.Number, types.Number)), AssignContext{}))
	assert.True(t, s.IsSubtype(identity, in.Function(fn(types.String, types.String)), SoundPolicy()))
	assert.False(t, s.IsAssignable(identity, in.Function(fn(types.Number, types.String)), AssignContext{}))
}
