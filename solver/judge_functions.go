package solver

import (
	"github.com/cottand/tsolve/solver/types"
)

// signatureSets requires every target signature to be matched by some
// source signature.
func (r *relation) signatureSets(src, tgt []types.SignatureId) bool {
	for _, t := range tgt {
		ts := r.in.Signature(t)
		matched := false
		for _, s := range src {
			if r.signature(r.in.Signature(s), ts) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// signature relates two call or construct signatures: parameters by the
// policy's parameter variance, this contravariantly and returns
// covariantly. A generic source is first instantiated against the target.
func (r *relation) signature(s, t types.Signature) bool {
	if s.IsConstructor != t.IsConstructor {
		return false
	}
	if len(s.TypeParams) > 0 {
		s = r.q.instantiateFor(s, t)
	}
	if _, rest := t.RestParam(); !rest && s.MinArgs() > len(t.Params) {
		return false
	}
	v := r.policy.FunctionParams
	if s.IsMethod || t.IsMethod {
		v = r.policy.MethodParams
	}
	if !r.params(s, t, v) {
		return false
	}
	if s.This != types.NoType && t.This != types.NoType && !r.rec(t.This, s.This) {
		return false
	}
	if t.Return == types.Void && r.policy.VoidReturnIsTop {
		return true
	}
	return r.rec(s.Return, t.Return)
}

func (r *relation) params(s, t types.Signature, v Variance) bool {
	n := max(len(s.Params), len(t.Params))
	for i := 0; i < n; i++ {
		sp, sOk := r.paramAt(s, i)
		tp, tOk := r.paramAt(t, i)
		if sOk && tOk {
			if !r.related(sp, tp, v) {
				return false
			}
			continue
		}
		// a rest parameter that is not an array spreads a tuple or a
		// variadic parameter; compare what is left as a whole
		if r.spreads(s, i) || r.spreads(t, i) {
			st, sOk := r.restFrom(s, i)
			tt, tOk := r.restFrom(t, i)
			return !sOk || !tOk || r.related(st, tt, v)
		}
	}
	return true
}

func (r *relation) spreads(sig types.Signature, i int) bool {
	if _, ok := sig.RestParam(); !ok || i < len(sig.Params)-1 {
		return false
	}
	_, isArray := r.paramAt(sig, i)
	return !isArray
}

// paramAt is the type of argument i as seen by sig. It fails past the end
// of the parameter list and inside non-array rest parameters.
func (r *relation) paramAt(sig types.Signature, i int) (types.TypeId, bool) {
	rest, hasRest := sig.RestParam()
	fixed := len(sig.Params)
	if hasRest {
		fixed--
	}
	if i < fixed {
		return sig.Params[i].Type, true
	}
	if !hasRest {
		return types.NoType, false
	}
	v, ok := r.arrayish(r.in.Lookup(rest.Type))
	switch {
	case !ok:
		return types.NoType, false
	case !v.isTuple:
		return v.elem, true
	}
	fixedElems, restElem := splitRest(v.elems)
	if j := i - fixed; j < len(fixedElems) {
		return fixedElems[j].Type, true
	}
	if restElem != nil {
		return r.restElem(*restElem)
	}
	return types.NoType, false
}

// restFrom packs the parameters of sig from position i onwards into a
// single tuple, or returns the rest parameter's type when it starts at i.
func (r *relation) restFrom(sig types.Signature, i int) (types.TypeId, bool) {
	rest, hasRest := sig.RestParam()
	fixed := len(sig.Params)
	if hasRest {
		fixed--
	}
	if hasRest && i == fixed {
		return rest.Type, true
	}
	if i > fixed {
		return types.NoType, false
	}
	elems := make([]types.TupleElem, 0, len(sig.Params)-i)
	for _, p := range sig.Params[i:] {
		elems = append(elems, types.TupleElem{Type: p.Type, Optional: p.Optional, Rest: p.Rest})
	}
	return r.in.Tuple(elems...), true
}
