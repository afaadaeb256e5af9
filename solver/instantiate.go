package solver

import (
	"fmt"

	"github.com/cottand/tsolve/internal/log"
	"github.com/cottand/tsolve/solver/tserr"
	"github.com/cottand/tsolve/solver/types"
)

var genericsLogger = log.DefaultLogger.With("section", "solver.generics")

// Instantiate applies args to generic, which is either a reference to a
// generic declaration or a generic function type. Missing trailing arguments
// are filled from parameter defaults. Every argument must be assignable to
// its (substituted) constraint.
//
// The result is an Application node over the completed argument list; it
// keeps the declaration's identity and is only expanded on demand.
func (s *Session) Instantiate(generic types.TypeId, args ...types.TypeId) (types.TypeId, error) {
	q := s.newQuery()
	id, err := q.instantiate(generic, args)
	if err != nil {
		genericsLogger.Debug("instantiation failed", "generic", types.Slog(s.in, generic), "err", err)
		return types.Error, err
	}
	genericsLogger.Debug("instantiated", "generic", types.Slog(s.in, generic), "result", types.Slog(s.in, id))
	return id, nil
}

func (q *query) instantiate(generic types.TypeId, args []types.TypeId) (types.TypeId, error) {
	params, name, err := q.genericParams(generic)
	if err != nil {
		return types.NoType, err
	}
	required := requiredParams(q.in, params)
	if len(args) < required || len(args) > len(params) {
		return types.NoType, tserr.New(tserr.WrongArgumentCount{
			Generic:     generic,
			GenericName: name,
			Min:         required,
			Max:         len(params),
			Got:         len(args),
		})
	}
	if len(params) == 0 {
		return generic, nil
	}
	if !q.fuel.enter() {
		q.exhausted("instantiation")
		return types.NoType, tserr.New(tserr.RecursionLimitExceeded{Site: "instantiation", Fuel: q.fuel.remaining, Depth: q.fuel.depth})
	}
	defer q.fuel.leave()

	full, _ := q.fillDefaults(params, args)
	sub := bindAll(params, full)
	for i, p := range params {
		constraint := q.constraintOf(p)
		if constraint == types.Unknown {
			continue
		}
		bound := q.substitute(constraint, sub)
		if !q.isAssignable(full[i], bound) {
			return types.NoType, q.constraintViolation(p, bound, full[i])
		}
	}
	q.s.counters.instantiations.Add(1)
	return q.in.Application(generic, full...), nil
}

// genericParams returns the type parameters of a generic declaration or
// function, and a name for diagnostics.
func (q *query) genericParams(generic types.TypeId) ([]types.TypeId, string, error) {
	switch k := q.in.Lookup(generic).(type) {
	case types.RefKey:
		def, ok := q.s.defs.defs.Get(k.Symbol)
		if !ok {
			return nil, "", tserr.New(tserr.InternalInconsistency{
				Message: fmt.Sprintf("instantiating %s, which has no definition", q.in.SymbolName(k.Symbol)),
			})
		}
		return def.TypeParams, def.Name, nil
	case types.FunctionKey:
		return q.in.Signature(k.Sig).TypeParams, q.in.Format(generic), nil
	}
	return nil, q.in.Format(generic), nil
}

// requiredParams counts the leading parameters without a default.
func requiredParams(in *types.Interner, params []types.TypeId) int {
	for i, p := range params {
		if in.ParamInfo(p).Default != types.NoType {
			return i
		}
	}
	return len(params)
}

func (q *query) constraintViolation(param, constraint, arg types.TypeId) tserr.SolverError {
	name := q.in.Format(param)
	if k, ok := q.in.Lookup(param).(types.TypeParamKey); ok {
		name = k.Name
	}
	return tserr.New(tserr.ConstraintViolation{
		Param:          param,
		Constraint:     constraint,
		Arg:            arg,
		ParamName:      name,
		ConstraintText: q.in.Format(constraint),
		ArgText:        q.in.Format(arg),
	})
}

// instantiateFor instantiates the generic signature s in the context of the
// non-generic signature t, inferring s's type parameters from t's parameters
// and return type.
func (q *query) instantiateFor(s, t types.Signature) types.Signature {
	c := q.newCollector(s.TypeParams)
	c.arguments(s, paramTypes(t), restType(t), Covariant, PriorityArgument)
	c.infer(s.Return, t.Return, Covariant, PriorityContextual)
	res := c.resolveAll()
	s.TypeParams = nil
	return q.substituteSignature(s, res.Subst)
}

// paramTypes lists the types of the non-rest parameters of sig.
func paramTypes(sig types.Signature) []types.TypeId {
	out := make([]types.TypeId, 0, len(sig.Params))
	for _, p := range sig.Params {
		if !p.Rest {
			out = append(out, p.Type)
		}
	}
	return out
}

func restType(sig types.Signature) types.TypeId {
	if r, ok := sig.RestParam(); ok {
		return r.Type
	}
	return types.NoType
}
