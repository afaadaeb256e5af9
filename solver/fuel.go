package solver

import (
	"github.com/hashicorp/go-set/v3"

	"github.com/cottand/tsolve/solver/tserr"
	"github.com/cottand/tsolve/solver/types"
)

// Fuel is the step and depth budget shared by every component working on
// one query. It is not safe for concurrent use; each query owns one.
type Fuel struct {
	remaining int
	depth     int
	maxDepth  int
	exhausted int
}

func newFuel(cfg Config) *Fuel {
	return &Fuel{remaining: cfg.Fuel, maxDepth: cfg.MaxDepth}
}

// consume takes one step. It reports false once the budget is spent.
func (f *Fuel) consume() bool {
	if f.remaining <= 0 {
		f.exhausted++
		return false
	}
	f.remaining--
	return true
}

// enter descends one level. It reports false when the depth limit is hit,
// in which case leave must not be called.
func (f *Fuel) enter() bool {
	if f.depth >= f.maxDepth {
		f.exhausted++
		return false
	}
	f.depth++
	return true
}

func (f *Fuel) leave() { f.depth-- }

// Remaining is the number of steps left.
func (f *Fuel) Remaining() int { return f.remaining }

// Exhausted reports how many times the budget or depth limit was hit.
func (f *Fuel) Exhausted() int { return f.exhausted }

// query is the state of one top-level request. Nested work (a judge call
// made by the evaluator, an evaluation made by the judge) shares it, so the
// whole request is bounded by a single Fuel.
type query struct {
	s    *Session
	in   *types.Interner
	fuel *Fuel

	// evaluating holds lazy nodes under evaluation in this query.
	evaluating *set.Set[types.TypeId]
	// measuring holds definitions whose variance is being measured.
	measuring *set.Set[types.SymbolId]
	// cycles counts evaluations cut short by a cycle; results that depend
	// on one are not memoized.
	cycles int

	errs *tserr.Errors
}

func (s *Session) newQuery() *query {
	return &query{
		s:          s,
		in:         s.in,
		fuel:       newFuel(s.cfg),
		evaluating: set.New[types.TypeId](0),
		measuring:  set.New[types.SymbolId](0),
	}
}

// exhausted records a fuel or depth exhaustion at site.
func (q *query) exhausted(site string) {
	q.s.counters.fuelExhaustions.Add(1)
	if q.errs.Has(tserr.RecursionLimitExceededCode) {
		return
	}
	err := tserr.New(tserr.RecursionLimitExceeded{Site: site, Fuel: q.fuel.remaining, Depth: q.fuel.depth})
	q.errs = q.errs.With(err)
	q.s.report(err)
}

// degraded reports whether any guard fired since mark was taken.
func (q *query) degraded(mark int) bool {
	return q.fuel.exhausted > mark
}
