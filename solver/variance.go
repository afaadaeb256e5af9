package solver

import (
	"github.com/cottand/tsolve/solver/types"
)

// Variance is how a position relates component subtyping to the subtyping
// of the enclosing type.
type Variance uint8

const (
	Covariant Variance = iota + 1
	Contravariant
	Invariant
	Bivariant
	// Independent marks a type parameter that does not affect its definition.
	Independent
)

func (v Variance) String() string {
	switch v {
	case Covariant:
		return "covariant"
	case Contravariant:
		return "contravariant"
	case Invariant:
		return "invariant"
	case Bivariant:
		return "bivariant"
	case Independent:
		return "independent"
	}
	return "unset"
}

// Flip is the variance of a position nested inside a contravariant one.
func (v Variance) Flip() Variance {
	switch v {
	case Covariant:
		return Contravariant
	case Contravariant:
		return Covariant
	}
	return v
}

// VariancePolicy decides how the judge compares the components whose
// variance is a matter of policy rather than structure. Readonly arrays and
// tuples are always covariant.
type VariancePolicy struct {
	ArrayElements  Variance
	FunctionParams Variance
	MethodParams   Variance
	// VoidReturnIsTop lets any return type satisfy a void-returning target.
	VoidReturnIsTop bool
}

// SoundPolicy is the policy under which the judge is sound: mutable arrays
// are invariant and parameters contravariant.
func SoundPolicy() VariancePolicy {
	return VariancePolicy{
		ArrayElements:  Invariant,
		FunctionParams: Contravariant,
		MethodParams:   Contravariant,
	}
}

// LawyerPolicy is the policy assignability uses: covariant mutable arrays,
// bivariant method parameters, and bivariant function parameters unless
// StrictFunctionTypes is set.
func LawyerPolicy(cfg Config) VariancePolicy {
	p := VariancePolicy{
		ArrayElements:   Covariant,
		FunctionParams:  Contravariant,
		MethodParams:    Bivariant,
		VoidReturnIsTop: true,
	}
	if !cfg.StrictFunctionTypes {
		p.FunctionParams = Bivariant
	}
	return p
}

func (p VariancePolicy) withDefaults() VariancePolicy {
	if p.ArrayElements == 0 {
		p.ArrayElements = Invariant
	}
	if p.FunctionParams == 0 {
		p.FunctionParams = Contravariant
	}
	if p.MethodParams == 0 {
		p.MethodParams = p.FunctionParams
	}
	return p
}

// bits packs the policy into the low bits of a judge cache key.
func (p VariancePolicy) bits() uint16 {
	b := uint16(p.ArrayElements) | uint16(p.FunctionParams)<<3 | uint16(p.MethodParams)<<6
	if p.VoidReturnIsTop {
		b |= 1 << 9
	}
	return b
}

type varianceKey struct {
	Def  types.SymbolId
	Mode uint16
}

func (k varianceKey) hash() uint64 {
	return types.HashPair(types.TypeId(k.Def), types.TypeId(k.Mode))
}

// variancesOf measures, for each type parameter of def, how the definition
// varies with it. Results are memoized per session; a measurement that hit a
// resource limit is discarded and nil is returned.
func (r *relation) variancesOf(sym types.SymbolId, def Definition) []Variance {
	key := varianceKey{Def: sym, Mode: r.mode}
	if v, ok := r.q.s.variances.Get(key); ok {
		return v
	}
	if r.q.measuring.Contains(sym) {
		return nil
	}
	r.q.measuring.Insert(sym)
	defer r.q.measuring.Remove(sym)

	sub, super := r.q.s.varianceMarkers()
	mark := r.q.fuel.exhausted
	out := make([]Variance, len(def.TypeParams))
	for i, p := range def.TypeParams {
		withArg := func(arg types.TypeId) types.TypeId {
			return r.q.substitute(def.Body, NewSubstitution().Bind(p, arg))
		}
		lo, hi := withArg(sub), withArg(super)
		// measured structurally without the variance shortcut for sym
		m := r.q.newRelation(r.policy, nil)
		co := m.rec(lo, hi)
		contra := m.rec(hi, lo)
		switch {
		case co && contra:
			out[i] = Independent
		case co:
			out[i] = Covariant
		case contra:
			out[i] = Contravariant
		default:
			out[i] = Invariant
		}
	}
	if r.q.degraded(mark) {
		return nil
	}
	logger.Debug("measured variance", "def", r.in.SymbolName(sym), "variances", out)
	r.q.s.variances.Put(key, out)
	return out
}

// varianceMarkers returns two object types where sub is a strict subtype of super.
func (s *Session) varianceMarkers() (sub, super types.TypeId) {
	s.markersOnce.Do(func() {
		marker := s.in.NewSymbol("variance marker")
		s.markerSuper = s.in.Object(types.ObjectShape{Symbol: marker, Props: []types.Property{
			{Name: "__variance_super", Read: types.Unknown},
		}})
		s.markerSub = s.in.Object(types.ObjectShape{Symbol: marker, Props: []types.Property{
			{Name: "__variance_super", Read: types.Unknown},
			{Name: "__variance_sub", Read: types.Unknown},
		}})
	})
	return s.markerSub, s.markerSuper
}

// argsRelated compares the arguments of two applications of the same
// definition according to its measured variances.
func (r *relation) argsRelated(variances []Variance, src, tgt []types.TypeId) bool {
	if len(src) != len(tgt) || len(variances) != len(src) {
		return false
	}
	for i := range src {
		if !r.related(src[i], tgt[i], variances[i]) {
			return false
		}
	}
	return true
}

// related compares s and t in a position of variance v.
func (r *relation) related(s, t types.TypeId, v Variance) bool {
	switch v {
	case Covariant:
		return r.rec(s, t)
	case Contravariant:
		return r.rec(t, s)
	case Bivariant:
		return r.rec(s, t) || r.rec(t, s)
	case Independent:
		return true
	}
	return r.rec(s, t) && r.rec(t, s)
}
