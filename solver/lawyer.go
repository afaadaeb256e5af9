package solver

import (
	"github.com/cottand/tsolve/internal/log"
	"github.com/cottand/tsolve/solver/types"
)

var lawyerLogger = log.DefaultLogger.With("section", "solver.lawyer")

// Verdict is what a compatibility rule says about one pair.
type Verdict uint8

const (
	// Defer leaves the decision to later rules and finally to the judge.
	Defer Verdict = iota
	Allow
	Reject
)

func (v Verdict) String() string {
	switch v {
	case Allow:
		return "allow"
	case Reject:
		return "reject"
	}
	return "defer"
}

// Rule is one deliberate deviation from sound subtyping. Apply must be a
// pure function of its arguments and the context.
type Rule struct {
	Name  string
	Apply func(c *RuleContext, src, tgt types.TypeId) Verdict
}

// Lawyer is an ordered catalogue of compatibility rules wrapped around the
// judge. The first rule that does not defer decides the pair; when all
// defer, the judge decides under LawyerPolicy. Rules run again for every
// pair the judge recurses into.
type Lawyer struct {
	rules []Rule
}

func NewLawyer(rules ...Rule) *Lawyer {
	return &Lawyer{rules: rules}
}

// Rules returns the rule names in priority order.
func (l *Lawyer) Rules() []string {
	names := make([]string, len(l.rules))
	for i, r := range l.rules {
		names[i] = r.Name
	}
	return names
}

func (l *Lawyer) apply(c *RuleContext, s, t types.TypeId) (string, Verdict) {
	for _, rule := range l.rules {
		if v := rule.Apply(c, s, t); v != Defer {
			lawyerLogger.Debug("rule fired", "rule", rule.Name, "verdict", v,
				"src", types.Slog(c.r.in, s), "tgt", types.Slog(c.r.in, t))
			return rule.Name, v
		}
	}
	return "", Defer
}

// RuleContext is what a rule may consult while deciding.
type RuleContext struct {
	r *relation
}

func (c *RuleContext) Interner() *types.Interner { return c.r.in }
func (c *RuleContext) Config() Config            { return c.r.q.s.cfg }

// Related runs the full assignability relation on a nested pair.
func (c *RuleContext) Related(src, tgt types.TypeId) bool {
	return c.r.rec(src, tgt)
}

// Resolve evaluates id and unfolds references to their structure.
func (c *RuleContext) Resolve(id types.TypeId) types.TypeId {
	q := c.r.q
	for i := 0; i < q.s.cfg.MaxExpansionDepth; i++ {
		next := q.evaluate(id)
		if e, ok := q.expand(next); ok {
			next = e
		}
		if next == id {
			return id
		}
		id = next
	}
	return id
}

// Shape returns the object members of id after resolving it. Primitives
// have no shape here.
func (c *RuleContext) Shape(id types.TypeId) (types.ObjectShape, bool) {
	id = c.Resolve(id)
	switch c.r.in.KindOf(id) {
	case types.KindObject, types.KindCallable, types.KindFunction:
		parts, ok := c.r.q.partsOf(id)
		return parts.shape, ok
	}
	return types.ObjectShape{}, false
}

// Constraint returns the constraint of a type parameter.
func (c *RuleContext) Constraint(param types.TypeId) types.TypeId {
	return c.r.q.constraintOf(param)
}

// IsAssignable reports whether a value of type src may be assigned to a
// location of type tgt, applying the session's compatibility rules on top
// of the judge.
func (s *Session) IsAssignable(src, tgt types.TypeId, ctx AssignContext) bool {
	return s.CheckAssignable(src, tgt, ctx) == Related
}

func (s *Session) CheckAssignable(src, tgt types.TypeId, ctx AssignContext) Outcome {
	q := s.newQuery()
	out := q.newRelation(LawyerPolicy(s.cfg), s.lawyer).check(q.assignSource(src, ctx), tgt)
	lawyerLogger.Debug("assignable", "src", types.Slog(s.in, src), "tgt", types.Slog(s.in, tgt), "outcome", out)
	return out
}

// Explanation names what decided an assignability query: a rule name, or
// "judge" when every rule deferred.
type Explanation struct {
	Outcome Outcome
	Rule    string
}

func (s *Session) Explain(src, tgt types.TypeId, ctx AssignContext) Explanation {
	q := s.newQuery()
	r := q.newRelation(LawyerPolicy(s.cfg), s.lawyer)
	r.explain = true
	out := r.check(q.assignSource(src, ctx), tgt)
	rule := r.decidedBy
	if rule == "" && out != Related {
		rule = r.rejectedBy
	}
	if rule == "" {
		rule = "judge"
	}
	return Explanation{Outcome: out, Rule: rule}
}

// isAssignable is assignability from inside another query, sharing its fuel.
func (q *query) isAssignable(src, tgt types.TypeId) bool {
	return q.newRelation(LawyerPolicy(q.s.cfg), q.s.lawyer).rec(src, tgt)
}

// assignSource applies the freshness of the assignment context.
func (q *query) assignSource(src types.TypeId, ctx AssignContext) types.TypeId {
	if !ctx.Fresh {
		return q.regular(src)
	}
	if o, ok := q.in.Lookup(src).(types.ObjectKey); ok {
		shape := q.in.Shape(o.Shape)
		if !shape.Fresh {
			shape.Fresh = true
			return q.in.Object(shape)
		}
	}
	return src
}
