package solver

import (
	"github.com/cottand/tsolve/solver/types"
)

// evalConditional picks a branch of check extends ext ? t : f. It defers
// while the check type or the extends clause mention unresolved
// parameters, distributes a distributive conditional over a union check
// type, and binds infer placeholders by matching the extends clause
// against the check type.
func (q *query) evalConditional(id types.TypeId, k types.ConditionalKey) types.TypeId {
	in := q.in
	check := q.evaluate(k.Check)
	if k.Distributive {
		if check == types.Never {
			return types.Never
		}
		if members, ok := in.DistributionMembers(check); ok && !q.unresolved(check) {
			out := make([]types.TypeId, len(members))
			for i, m := range members {
				out[i] = q.evaluate(q.distributeTo(k, m))
			}
			return in.Union(out...)
		}
	}
	if q.unresolved(check) || q.extendsUnresolved(k.Extends) {
		return id
	}

	infers := in.InferPlaceholders(k.Extends)
	if check == types.Any && k.Extends != types.Any && k.Extends != types.Unknown {
		sub := NewSubstitution()
		for _, p := range infers {
			sub = sub.Bind(p, types.Unknown)
		}
		return in.Union(q.evaluate(q.substitute(k.True, sub)), q.evaluate(k.False))
	}

	mark := q.fuel.exhausted
	sub, extends := NewSubstitution(), k.Extends
	if len(infers) > 0 {
		c := q.newCollector(infers)
		c.literal = true
		c.infer(k.Extends, check, Covariant, PriorityArgument)
		sub = c.resolveAll().Subst
		extends = q.evaluate(q.substitute(k.Extends, sub))
	}
	taken := q.isAssignable(check, extends)
	if q.degraded(mark) {
		return id
	}
	if taken {
		return q.evaluate(q.substitute(k.True, sub))
	}
	return q.evaluate(k.False)
}

// distributeTo specializes a distributive conditional to one member of its
// check type.
func (q *query) distributeTo(k types.ConditionalKey, member types.TypeId) types.TypeId {
	return q.in.Intern(types.ConditionalKey{Check: member, Extends: k.Extends, True: k.True, False: k.False})
}

// extendsUnresolved reports whether the extends clause mentions a type
// parameter other than its own infer placeholders.
func (q *query) extendsUnresolved(ext types.TypeId) bool {
	for _, p := range q.in.FreeParams(ext) {
		if q.in.KindOf(p) != types.KindInfer {
			return true
		}
	}
	return false
}
