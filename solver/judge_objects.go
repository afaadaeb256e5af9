package solver

import (
	"strconv"

	"github.com/cottand/tsolve/solver/types"
)

// arrayView is an array or tuple, possibly behind a readonly wrapper.
type arrayView struct {
	elem     types.TypeId
	elems    []types.TupleElem
	isTuple  bool
	readonly bool
}

func (r *relation) arrayish(k types.Key) (arrayView, bool) {
	switch k := k.(type) {
	case types.ArrayKey:
		return arrayView{elem: k.Elem}, true
	case types.TupleKey:
		return arrayView{elems: r.in.TupleElems(k.Elems), isTuple: true}, true
	case types.ReadonlyKey:
		v, ok := r.arrayish(r.in.Lookup(k.Inner))
		v.readonly = true
		return v, ok
	}
	return arrayView{}, false
}

// restElem is the element type spread by a rest element, if it is an array.
func (r *relation) restElem(e types.TupleElem) (types.TypeId, bool) {
	if v, ok := r.arrayish(r.in.Lookup(e.Type)); ok && !v.isTuple {
		return v.elem, true
	}
	return types.NoType, false
}

func splitRest(elems []types.TupleElem) ([]types.TupleElem, *types.TupleElem) {
	if n := len(elems); n > 0 && elems[n-1].Rest {
		return elems[:n-1], &elems[n-1]
	}
	return elems, nil
}

func (r *relation) arrays(s, t arrayView) bool {
	if s.readonly && !t.readonly {
		return false
	}
	v := r.policy.ArrayElements
	if t.readonly {
		v = Covariant
	}
	switch {
	case !t.isTuple && !s.isTuple:
		return r.related(s.elem, t.elem, v)
	case !t.isTuple:
		for _, e := range s.elems {
			et := e.Type
			if e.Rest {
				var ok bool
				if et, ok = r.restElem(e); !ok {
					return r.related(e.Type, r.in.Array(t.elem), v)
				}
			}
			if !r.related(et, t.elem, v) {
				return false
			}
		}
		return true
	case !s.isTuple:
		fixed, rest := splitRest(t.elems)
		if len(fixed) > 0 || rest == nil {
			return false
		}
		return r.related(r.in.Array(s.elem), rest.Type, v)
	}
	return r.tuples(s.elems, t.elems, v)
}

func (r *relation) tuples(s, t []types.TupleElem, v Variance) bool {
	sFixed, sRest := splitRest(s)
	tFixed, tRest := splitRest(t)
	if sRest != nil && tRest == nil {
		return false
	}
	required := 0
	for _, e := range tFixed {
		if !e.Optional {
			required++
		}
	}
	if len(sFixed) < required && sRest == nil {
		return false
	}
	if tRest == nil && len(sFixed) > len(tFixed) {
		return false
	}
	for i, se := range sFixed {
		if i < len(tFixed) {
			te := tFixed[i]
			if se.Optional && !te.Optional {
				return false
			}
			if !r.related(se.Type, te.Type, v) {
				return false
			}
			continue
		}
		elem, ok := r.restElem(*tRest)
		if !ok {
			return r.related(r.in.Tuple(sFixed[i:]...), tRest.Type, v)
		}
		if !r.related(se.Type, elem, v) {
			return false
		}
	}
	if sRest == nil {
		return true
	}
	// the source rest covers the remaining fixed target slots
	sElem, sOk := r.restElem(*sRest)
	for _, te := range tFixed[min(len(sFixed), len(tFixed)):] {
		if !te.Optional || !sOk || !r.related(sElem, te.Type, v) {
			return false
		}
	}
	return r.related(sRest.Type, tRest.Type, v)
}

// objects relates anything with members to an object, function or
// callable target: signatures first, then properties and index signatures.
func (r *relation) objects(s, t types.TypeId) bool {
	tp, ok := r.q.partsOf(t)
	if !ok {
		return false
	}
	sp, ok := r.q.partsOf(s)
	if !ok {
		return false
	}
	if !r.signatureSets(sp.calls, tp.calls) || !r.signatureSets(sp.constructs, tp.constructs) {
		return false
	}
	return r.props(sp.shape, tp.shape) && r.indexes(sp.shape, tp.shape)
}

func (r *relation) props(s, t types.ObjectShape) bool {
	for _, tp := range t.Props {
		sp, ok := s.Prop(tp.Name)
		if !ok {
			if !tp.Optional {
				return false
			}
			if idx, ok := indexFor(s, tp.Name); ok && !r.rec(idx.Value, tp.Read) {
				return false
			}
			continue
		}
		if sp.Optional && !tp.Optional {
			return false
		}
		if !r.rec(sp.Read, tp.Read) {
			return false
		}
		if !tp.Readonly && (tp.HasDivergentWrite() || sp.HasDivergentWrite()) {
			if !r.rec(tp.WriteType(), sp.WriteType()) {
				return false
			}
		}
	}
	return true
}

func (r *relation) indexes(s, t types.ObjectShape) bool {
	if t.StringIndex.Present() {
		want := t.StringIndex.Value
		for _, p := range s.Props {
			if !r.rec(p.Read, want) {
				return false
			}
		}
		if s.StringIndex.Present() && !r.rec(s.StringIndex.Value, want) {
			return false
		}
		if s.NumberIndex.Present() && !r.rec(s.NumberIndex.Value, want) {
			return false
		}
	}
	if t.NumberIndex.Present() {
		want := t.NumberIndex.Value
		for _, p := range s.Props {
			if isNumericName(p.Name) && !r.rec(p.Read, want) {
				return false
			}
		}
		if s.NumberIndex.Present() && !r.rec(s.NumberIndex.Value, want) {
			return false
		}
		if !s.NumberIndex.Present() && s.StringIndex.Present() && !r.rec(s.StringIndex.Value, want) {
			return false
		}
	}
	return true
}

// indexFor returns the index signature that covers a property name.
func indexFor(s types.ObjectShape, name string) (types.IndexSignature, bool) {
	if isNumericName(name) && s.NumberIndex.Present() {
		return s.NumberIndex, true
	}
	if s.StringIndex.Present() {
		return s.StringIndex, true
	}
	return types.IndexSignature{}, false
}

// isNumericName reports whether name is the canonical text of a number,
// such as a tuple index.
func isNumericName(name string) bool {
	f, err := strconv.ParseFloat(name, 64)
	if err != nil {
		return false
	}
	return strconv.FormatFloat(f, 'f', -1, 64) == name
}
