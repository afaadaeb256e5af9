package solver

import (
	"sync/atomic"

	"github.com/cottand/tsolve/internal/log"
	"github.com/cottand/tsolve/solver/types"
)

var evalLogger = log.DefaultLogger.With("section", "solver.evaluator")

// EvaluationState is where a lazy node stands in the session's memo.
type EvaluationState uint8

const (
	Unevaluated EvaluationState = iota
	// Evaluating means some query is evaluating the node right now.
	Evaluating
	Evaluated
	// Deferred means evaluation returned the node unchanged because its
	// inputs still mention unresolved type parameters.
	Deferred
)

func (e EvaluationState) String() string {
	switch e {
	case Evaluating:
		return "evaluating"
	case Evaluated:
		return "evaluated"
	case Deferred:
		return "deferred"
	}
	return "unevaluated"
}

type evalEntry struct {
	Result   types.TypeId
	Deferred bool
}

// Evaluate reduces id to its simplest form: aliases are expanded and
// conditional, mapped, keyof, indexed access, template literal and string
// intrinsic nodes are computed. Other nodes are returned unchanged.
// Evaluation is idempotent and memoized for the lifetime of the session.
func (s *Session) Evaluate(id types.TypeId) types.TypeId {
	out := s.newQuery().evaluate(id)
	evalLogger.Debug("evaluated", "type", types.Slog(s.in, id), "result", types.Slog(s.in, out))
	return out
}

func (s *Session) EvaluationState(id types.TypeId) EvaluationState {
	if e, ok := s.evalMemo.Get(id); ok {
		if e.Deferred {
			return Deferred
		}
		return Evaluated
	}
	if n, ok := s.inflight.Get(id); ok && n.Load() > 0 {
		return Evaluating
	}
	return Unevaluated
}

func (q *query) evaluate(id types.TypeId) types.TypeId {
	if id == types.NoType || id.IsReserved() {
		return id
	}
	switch q.in.KindOf(id) {
	case types.KindUnion, types.KindIntersection:
		return q.evaluateMembers(id)
	}
	if !q.in.KindOf(id).IsDerived() && !q.isAlias(id) {
		return id
	}
	if e, ok := q.s.evalMemo.Get(id); ok {
		q.s.counters.memoHits.Add(1)
		return e.Result
	}
	if q.evaluating.Contains(id) {
		q.cycles++
		return id
	}
	if !q.fuel.consume() || !q.fuel.enter() {
		q.exhausted("evaluation")
		return id
	}
	q.evaluating.Insert(id)
	n, _ := q.s.inflight.LoadOrStore(id, new(atomic.Int32))
	n.Add(1)
	mark, cycles := q.fuel.exhausted, q.cycles

	out := q.evaluateImpl(id)

	n.Add(-1)
	q.evaluating.Remove(id)
	q.fuel.leave()
	q.s.counters.evaluations.Add(1)
	if q.degraded(mark) {
		return id
	}
	deferred := q.in.KindOf(out).IsDerived() && q.in.HasFreeParams(out)
	if deferred {
		q.s.counters.deferred.Add(1)
	}
	if q.cycles == cycles {
		q.s.evalMemo.Put(id, evalEntry{Result: out, Deferred: deferred})
	}
	return out
}

func (q *query) evaluateImpl(id types.TypeId) types.TypeId {
	switch k := q.in.Lookup(id).(type) {
	case types.RefKey, types.ApplicationKey:
		r, ok := q.resolve(id)
		if !ok || r == id {
			return id
		}
		return q.evaluate(r)
	case types.ConditionalKey:
		return q.evalConditional(id, k)
	case types.MappedKey:
		return q.evalMapped(id, k)
	case types.KeyOfKey:
		return q.evalKeyOf(id, k)
	case types.IndexAccessKey:
		return q.evalIndexAccess(id, k)
	case types.TemplateLiteralKey:
		return q.evalTemplate(id, k)
	case types.StringIntrinsicKey:
		return q.evalStringIntrinsic(id, k)
	}
	return id
}

// evaluateMembers evaluates each member of a union or intersection and
// normalizes the result again.
func (q *query) evaluateMembers(id types.TypeId) types.TypeId {
	var members []types.TypeId
	isUnion := false
	switch k := q.in.Lookup(id).(type) {
	case types.UnionKey:
		members, isUnion = q.in.List(k.Members), true
	case types.IntersectionKey:
		members = q.in.List(k.Members)
	}
	out := make([]types.TypeId, len(members))
	changed := false
	for i, m := range members {
		out[i] = q.evaluate(m)
		changed = changed || out[i] != m
	}
	switch {
	case !changed:
		return id
	case isUnion:
		return q.in.Union(out...)
	}
	return q.in.Intersection(out...)
}

// unresolved reports whether an evaluated operand still depends on type
// parameters in a way that blocks evaluation.
func (q *query) unresolved(id types.TypeId) bool {
	switch k := q.in.Lookup(id).(type) {
	case types.TypeParamKey, types.InferKey:
		return true
	case types.ReadonlyKey:
		return q.unresolved(k.Inner)
	case types.UnionKey:
		for _, m := range q.in.List(k.Members) {
			if q.unresolved(m) {
				return true
			}
		}
		return false
	case types.IntersectionKey:
		for _, m := range q.in.List(k.Members) {
			if q.unresolved(m) {
				return true
			}
		}
		return false
	}
	return q.in.KindOf(id).IsDerived() && q.in.HasFreeParams(id)
}

// members lists the members of a union, or id itself.
func (q *query) members(id types.TypeId) []types.TypeId {
	if u, ok := q.in.Lookup(id).(types.UnionKey); ok {
		return q.in.List(u.Members)
	}
	return []types.TypeId{id}
}
