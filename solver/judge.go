package solver

import (
	"math"

	"github.com/cottand/tsolve/internal/log"
	"github.com/cottand/tsolve/solver/types"
)

var judgeLogger = log.DefaultLogger.With("section", "solver.judge")

// Outcome is the three-valued result of a subtype query.
type Outcome uint8

const (
	NotRelated Outcome = iota
	Related
	// RecursionLimitExceeded means the query ran out of fuel or depth before
	// it could be decided. Callers should treat it as "not proven".
	RecursionLimitExceeded
)

func (o Outcome) String() string {
	switch o {
	case Related:
		return "related"
	case RecursionLimitExceeded:
		return "recursion-limit"
	}
	return "not-related"
}

func outcomeOf(ok bool) Outcome {
	if ok {
		return Related
	}
	return NotRelated
}

type judgeKey struct {
	Src, Tgt types.TypeId
	Mode     uint16
}

func (k judgeKey) hash() uint64 {
	return types.HashPair(k.Src, k.Tgt) ^ uint64(k.Mode)*0x9e3779b97f4a7c15
}

// lawyerMode marks judge cache entries computed with compatibility rules.
const lawyerMode uint16 = 1 << 15

const noAssumption = math.MaxInt

// assumption is a source and target pair in flight on the judge stack.
type assumption struct{ source, target types.TypeId }

// relation is the state of one subtype or assignability query: the
// coinductive assumption stack and the policy it runs under. With a nil
// lawyer it is the sound structural judge.
type relation struct {
	q      *query
	in     *types.Interner
	policy VariancePolicy
	mode   uint16
	lawyer *Lawyer

	// assumptions maps in-flight pairs to the depth they were pushed at.
	assumptions map[assumption]int
	depth       int
	// lowest is the shallowest assumption the current subtree relied on.
	lowest int

	// explain disables the cache for the outermost pair so that the
	// deciding rule is observed.
	explain    bool
	decidedBy  string
	rejectedBy string
}

func (q *query) newRelation(policy VariancePolicy, lawyer *Lawyer) *relation {
	policy = policy.withDefaults()
	mode := policy.bits()
	if lawyer != nil {
		mode |= lawyerMode
	}
	return &relation{
		q:           q,
		in:          q.in,
		policy:      policy,
		mode:        mode,
		lawyer:      lawyer,
		assumptions: make(map[assumption]int),
		lowest:      noAssumption,
	}
}

// IsSubtype reports whether src is a structural subtype of tgt under policy.
// Running out of fuel counts as false; use CheckSubtype to tell the two apart.
func (s *Session) IsSubtype(src, tgt types.TypeId, policy VariancePolicy) bool {
	return s.CheckSubtype(src, tgt, policy) == Related
}

func (s *Session) CheckSubtype(src, tgt types.TypeId, policy VariancePolicy) Outcome {
	q := s.newQuery()
	out := q.newRelation(policy, nil).check(src, tgt)
	judgeLogger.Debug("subtype", "src", types.Slog(s.in, src), "tgt", types.Slog(s.in, tgt), "outcome", out)
	return out
}

func (r *relation) check(s, t types.TypeId) Outcome {
	r.q.s.counters.judgeQueries.Add(1)
	mark := r.q.fuel.exhausted
	ok := r.rec(s, t)
	switch {
	case ok:
		return Related
	case r.q.degraded(mark):
		return RecursionLimitExceeded
	}
	return NotRelated
}

// rec relates s to t. It handles the cache, the coinductive assumption
// stack and the fuel and depth guards; recImpl does the actual work.
func (r *relation) rec(s, t types.TypeId) bool {
	if s == t && r.lawyer == nil {
		return true
	}
	key := judgeKey{Src: s, Tgt: t, Mode: r.mode}
	if !(r.explain && r.depth == 0) {
		if out, ok := r.q.s.judgeCache.Get(key); ok {
			r.q.s.counters.judgeCacheHits.Add(1)
			return out == Related
		}
	}
	pair := assumption{s, t}
	if d, ok := r.assumptions[pair]; ok {
		r.q.s.counters.cycleHits.Add(1)
		r.lowest = min(r.lowest, d)
		return true
	}
	if !r.q.fuel.consume() {
		r.q.exhausted("judge")
		return false
	}
	if !r.q.fuel.enter() {
		r.q.exhausted("judge")
		return false
	}
	r.depth++
	r.assumptions[pair] = r.depth
	outer := r.lowest
	r.lowest = noAssumption
	mark := r.q.fuel.exhausted

	ok := r.recImpl(s, t)

	delete(r.assumptions, pair)
	// a success that leaned on an enclosing assumption is only valid
	// while that assumption is in flight
	dependent := r.lowest < r.depth
	if !r.q.degraded(mark) && (!ok || !dependent) {
		r.q.s.judgeCache.Put(key, outcomeOf(ok))
	}
	if dependent {
		r.lowest = min(outer, r.lowest)
	} else {
		r.lowest = outer
	}
	r.depth--
	r.q.fuel.leave()
	return ok
}

func (r *relation) recImpl(s, t types.TypeId) bool {
	if r.lawyer != nil {
		name, v := r.lawyer.apply(&RuleContext{r: r}, s, t)
		switch v {
		case Allow:
			r.note(name, true)
			return true
		case Reject:
			r.note(name, false)
			return false
		}
		// excess properties are checked against the whole target only
		s = r.q.stale(s)
	}
	return r.structural(s, t)
}

func (r *relation) note(rule string, allowed bool) {
	if r.depth == 1 && r.decidedBy == "" {
		r.decidedBy = rule
	}
	if !allowed && r.rejectedBy == "" {
		r.rejectedBy = rule
	}
}

// structural is the sound judge. The order of the cases matters: unions
// and intersections are split before anything looks at shapes, and aliases
// and derived forms are evaluated first.
func (r *relation) structural(s, t types.TypeId) bool {
	switch {
	case s == t, t == types.Unknown, t == types.Any, s == types.Never:
		return true
	case s == types.Any, s == types.Unknown, s == types.Error, t == types.Error:
		return false
	}
	if s2, t2 := r.q.evaluate(s), r.q.evaluate(t); s2 != s || t2 != t {
		return r.rec(s2, t2)
	}

	in := r.in
	sk, tk := in.Lookup(s), in.Lookup(t)

	if s == types.Boolean && tk.Kind() == types.KindUnion {
		return r.rec(types.True, t) && r.rec(types.False, t)
	}
	if u, ok := sk.(types.UnionKey); ok {
		for _, m := range in.List(u.Members) {
			if !r.rec(m, t) {
				return false
			}
		}
		return true
	}
	if x, ok := tk.(types.IntersectionKey); ok {
		for _, m := range in.List(x.Members) {
			if !r.rec(s, m) {
				return false
			}
		}
		return true
	}
	if u, ok := tk.(types.UnionKey); ok {
		for _, m := range in.List(u.Members) {
			if r.rec(s, m) {
				return true
			}
		}
		return false
	}
	if x, ok := sk.(types.IntersectionKey); ok {
		for _, m := range in.List(x.Members) {
			if r.rec(m, t) {
				return true
			}
		}
		if merged := r.q.apparent(s); merged != s {
			return r.rec(merged, t)
		}
		return false
	}

	if ro, ok := sk.(types.ReadonlyKey); ok && in.KindOf(ro.Inner) == types.KindTypeParam {
		return r.rec(in.Readonly(r.q.constraintOf(ro.Inner)), t)
	}
	switch sk.Kind() {
	case types.KindTypeParam, types.KindInfer:
		c := r.q.constraintOf(s)
		if c == types.Unknown {
			return false
		}
		return r.rec(c, t)
	}
	switch tk.Kind() {
	case types.KindTypeParam, types.KindInfer:
		return false
	}

	if isDeferred(sk) || isDeferred(tk) {
		return r.deferred(s, t, sk, tk)
	}
	if isStringPattern(tk) {
		return r.stringPattern(s, t, sk, tk)
	}
	if ok, handled := r.enums(s, t, sk, tk); handled {
		return ok
	}
	if ok, handled := r.nominal(s, t, sk, tk); handled {
		return ok
	}
	if isPrimitive(sk) {
		return r.primitive(s, t, sk, tk)
	}
	if ok, handled := r.intrinsicTarget(s, t, sk, tk); handled {
		return ok
	}
	if sv, ok := r.arrayish(sk); ok {
		if tv, ok := r.arrayish(tk); ok {
			return r.arrays(sv, tv)
		}
	}
	if isObjectLike(tk) {
		return r.objects(s, t)
	}
	return false
}

func isDeferred(k types.Key) bool {
	switch k.Kind() {
	case types.KindConditional, types.KindMapped, types.KindIndexAccess, types.KindKeyOf:
		return true
	}
	return false
}

func isStringPattern(k types.Key) bool {
	switch k.Kind() {
	case types.KindTemplateLiteral, types.KindStringIntrinsic:
		return true
	}
	return false
}

func isPrimitive(k types.Key) bool {
	switch k := k.(type) {
	case types.IntrinsicKey:
		return k.Intrinsic != types.IntrinsicObject && k.Intrinsic != types.IntrinsicFunction
	case types.LiteralKey, types.UniqueSymbolKey, types.TemplateLiteralKey, types.StringIntrinsicKey:
		return true
	}
	return false
}

func isObjectLike(k types.Key) bool {
	switch k.Kind() {
	case types.KindObject, types.KindCallable, types.KindFunction:
		return true
	}
	return false
}

// primitive relates a primitive source to any target. Object targets are
// reached through the apparent type, which only exists when the matching
// global (String, Number, ...) was declared.
func (r *relation) primitive(s, t types.TypeId, sk, tk types.Key) bool {
	switch tk.(type) {
	case types.IntrinsicKey:
		switch sk := sk.(type) {
		case types.IntrinsicKey:
			return s == types.Undefined && t == types.Void
		case types.LiteralKey:
			return sk.Value.Base() == t
		case types.UniqueSymbolKey:
			return t == types.Symbol
		case types.TemplateLiteralKey, types.StringIntrinsicKey:
			return t == types.String
		}
		return false
	}
	if !isObjectLike(tk) {
		return false
	}
	if app := r.q.apparent(s); app != s {
		return r.rec(app, t)
	}
	return false
}

// intrinsicTarget handles the object and Function intrinsics as targets,
// and as sources against object types.
func (r *relation) intrinsicTarget(s, t types.TypeId, sk, tk types.Key) (ok, handled bool) {
	switch t {
	case types.Object:
		switch sk.Kind() {
		case types.KindObject, types.KindCallable, types.KindFunction, types.KindArray, types.KindTuple, types.KindReadonly:
			return true, true
		}
		return s == types.Function, true
	case types.Function:
		switch sk := sk.(type) {
		case types.FunctionKey:
			return true, true
		case types.CallableKey:
			c := r.in.CallableShape(sk.Shape)
			return len(c.Calls)+len(c.Constructs) > 0, true
		}
		return false, true
	}
	if _, ok := tk.(types.IntrinsicKey); ok {
		return false, true
	}
	if s == types.Object || s == types.Function {
		if !isObjectLike(tk) {
			return false, true
		}
		return r.rec(r.q.apparent(s), t), true
	}
	return false, false
}

// enums compares enum types and members nominally: a member is related to
// its own enum, and an enum relates to other types through its value.
func (r *relation) enums(s, t types.TypeId, sk, tk types.Key) (ok, handled bool) {
	te, tIsEnum := tk.(types.EnumKey)
	if se, ok := sk.(types.EnumKey); ok {
		if tIsEnum && !te.IsMember() && se.Parent == te.Def {
			return true, true
		}
		return r.rec(se.Value, t), true
	}
	if tIsEnum {
		if te.IsMember() {
			return false, true
		}
		return r.rec(s, te.Value), true
	}
	return false, false
}

// nominal handles Refs and Applications of interfaces and classes. Two
// applications of the same definition are first compared by the measured
// variance of its parameters; otherwise, or when that fails, both sides are
// expanded structurally.
func (r *relation) nominal(s, t types.TypeId, sk, tk types.Key) (ok, handled bool) {
	sa, sApp := sk.(types.ApplicationKey)
	ta, tApp := tk.(types.ApplicationKey)
	if sApp && tApp && sa.Base == ta.Base {
		if sym, def, found := r.q.refDefinition(sa.Base); found && len(def.TypeParams) > 0 {
			if v := r.variancesOf(sym, def); v != nil {
				sArgs, _ := r.q.fillDefaults(def.TypeParams, r.in.List(sa.Args))
				tArgs, _ := r.q.fillDefaults(def.TypeParams, r.in.List(ta.Args))
				if r.argsRelated(v, sArgs, tArgs) {
					return true, true
				}
			}
		}
	}
	s2, t2 := s, t
	switch sk.Kind() {
	case types.KindRef, types.KindApplication:
		if e, ok := r.q.expand(s); ok {
			s2 = e
		}
	}
	switch tk.Kind() {
	case types.KindRef, types.KindApplication:
		if e, ok := r.q.expand(t); ok {
			t2 = e
		}
	}
	if s2 != s || t2 != t {
		return r.rec(s2, t2), true
	}
	if sk.Kind() == types.KindRef || sk.Kind() == types.KindApplication ||
		tk.Kind() == types.KindRef || tk.Kind() == types.KindApplication {
		// opaque references relate only by identity
		return false, true
	}
	return false, false
}

// deferred relates types whose evaluation is blocked on free parameters,
// using sound approximations: a deferred source by an upper bound, a
// deferred target by a lower bound.
func (r *relation) deferred(s, t types.TypeId, sk, tk types.Key) bool {
	in := r.in
	switch sk := sk.(type) {
	case types.KeyOfKey:
		return r.rec(in.Union(types.String, types.Number, types.Symbol), t)
	case types.ConditionalKey:
		return r.rec(sk.True, t) && r.rec(sk.False, t)
	case types.IndexAccessKey:
		if in.KindOf(sk.Object) == types.KindTypeParam {
			bound := r.q.evaluate(in.IndexAccess(r.q.constraintOf(sk.Object), sk.Index))
			if bound != types.Error && !isDeferred(in.Lookup(bound)) {
				return r.rec(bound, t)
			}
		}
		return false
	case types.MappedKey:
		if o, ok := tk.(types.ObjectKey); ok {
			shape := in.Shape(o.Shape)
			return len(shape.Props) == 0 && !shape.StringIndex.Present() && !shape.NumberIndex.Present()
		}
		return t == types.Object
	}
	switch tk := tk.(type) {
	case types.KeyOfKey:
		if in.KindOf(tk.Operand) != types.KindTypeParam {
			return false
		}
		keys := r.q.evaluate(in.KeyOf(r.q.constraintOf(tk.Operand)))
		if isDeferred(in.Lookup(keys)) {
			return false
		}
		return r.rec(s, keys)
	case types.ConditionalKey:
		return r.rec(s, tk.True) && r.rec(s, tk.False)
	}
	return false
}
