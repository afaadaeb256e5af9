package solver

import (
	"slices"

	"github.com/hashicorp/go-set/v3"

	"github.com/cottand/tsolve/solver/types"
)

// keySet is the keys of one type: literal property keys plus the index
// signatures that admit whole key domains.
type keySet struct {
	names       *set.Set[types.TypeId]
	stringIndex bool
	numberIndex bool
}

func newKeySet() keySet {
	return keySet{names: set.New[types.TypeId](0)}
}

// admits reports whether key is a key of ks, directly or through an index.
func (ks keySet) admits(in *types.Interner, key types.TypeId) bool {
	if ks.names.Contains(key) || ks.stringIndex {
		return true
	}
	lit, ok := in.Lookup(key).(types.LiteralKey)
	return ok && ks.numberIndex && (lit.Value.Kind == types.LitNumber || isNumericName(lit.Value.Text))
}

func (ks keySet) union(in *types.Interner) types.TypeId {
	out := ks.names.Slice()
	if ks.stringIndex {
		out = append(out, types.String, types.Number)
	}
	if ks.numberIndex {
		out = append(out, types.Number)
	}
	return in.Union(out...)
}

// evalKeyOf computes keyof. The keys of a union are the keys common to all
// members; the keys of an intersection are those of any member.
func (q *query) evalKeyOf(id types.TypeId, k types.KeyOfKey) types.TypeId {
	operand := q.evaluate(k.Operand)
	if q.unresolved(operand) {
		if m, ok := q.in.Lookup(operand).(types.MappedKey); ok && m.NameType == types.NoType {
			return m.Constraint
		}
		return id
	}
	ks, ok := q.keysOf(operand, 0)
	if !ok {
		return id
	}
	return ks.union(q.in)
}

func (q *query) keysOf(id types.TypeId, depth int) (keySet, bool) {
	if depth > q.s.cfg.MaxDepth {
		q.fuel.exhausted++
		q.exhausted("keyof")
		return keySet{}, false
	}
	in := q.in
	id = q.evaluate(id)
	switch id {
	case types.Any, types.Never:
		ks := newKeySet()
		ks.names.Insert(types.Symbol)
		ks.stringIndex = true
		return ks, true
	case types.Unknown, types.Null, types.Undefined, types.Void:
		return newKeySet(), true
	}
	switch k := in.Lookup(id).(type) {
	case types.UnionKey:
		members := in.List(k.Members)
		sets := make([]keySet, len(members))
		for i, m := range members {
			ks, ok := q.keysOf(m, depth+1)
			if !ok {
				return keySet{}, false
			}
			sets[i] = ks
		}
		out := newKeySet()
		out.stringIndex, out.numberIndex = true, true
		candidates := set.New[types.TypeId](0)
		for _, ks := range sets {
			out.stringIndex = out.stringIndex && ks.stringIndex
			out.numberIndex = out.numberIndex && (ks.numberIndex || ks.stringIndex)
			candidates.InsertSlice(ks.names.Slice())
		}
		for key := range candidates.Items() {
			if !slices.ContainsFunc(sets, func(ks keySet) bool { return !ks.admits(in, key) }) {
				out.names.Insert(key)
			}
		}
		return out, true
	case types.IntersectionKey:
		out := newKeySet()
		for _, m := range in.List(k.Members) {
			ks, ok := q.keysOf(m, depth+1)
			if !ok {
				return keySet{}, false
			}
			out.names.InsertSlice(ks.names.Slice())
			out.stringIndex = out.stringIndex || ks.stringIndex
			out.numberIndex = out.numberIndex || ks.numberIndex
		}
		return out, true
	case types.TypeParamKey, types.InferKey:
		return keySet{}, false
	}
	if q.unresolved(id) {
		return keySet{}, false
	}
	parts, ok := q.partsOf(id)
	if !ok {
		return newKeySet(), true
	}
	out := newKeySet()
	for _, p := range parts.shape.Props {
		out.names.Insert(in.LiteralString(p.Name))
	}
	out.stringIndex = parts.shape.StringIndex.Present()
	out.numberIndex = parts.shape.NumberIndex.Present()
	return out, true
}

// evalIndexAccess computes T[K], distributing over unions in both the
// object and the index. Reading an optional property includes undefined,
// and a missing property is the error type.
func (q *query) evalIndexAccess(id types.TypeId, k types.IndexAccessKey) types.TypeId {
	obj, idx := q.evaluate(k.Object), q.evaluate(k.Index)
	if q.unresolved(obj) || q.unresolved(idx) {
		return id
	}
	objs, idxs := q.members(obj), q.members(idx)
	if len(objs)*len(idxs) > q.s.cfg.TemplateCardinalityCap {
		q.fuel.exhausted++
		q.exhausted("indexed access")
		return id
	}
	out := make([]types.TypeId, 0, len(objs)*len(idxs))
	for _, o := range objs {
		for _, i := range idxs {
			out = append(out, q.indexOne(o, i))
		}
	}
	return q.in.Union(out...)
}

func (q *query) indexOne(obj, idx types.TypeId) types.TypeId {
	in := q.in
	switch {
	case obj == types.Any:
		return types.Any
	case idx == types.Never:
		return types.Never
	case obj == types.Never:
		return types.Never
	}
	if lit, ok := in.Lookup(idx).(types.LiteralKey); ok && (lit.Value.Kind == types.LitString || lit.Value.Kind == types.LitNumber) {
		p, ok := q.propertyOf(obj, lit.Value.Value())
		if !ok {
			return types.Error
		}
		if p.Optional && !q.s.cfg.ExactOptionalPropertyTypes {
			return in.Union(p.Read, types.Undefined)
		}
		return p.Read
	}
	if e, ok := in.Lookup(idx).(types.EnumKey); ok && e.IsMember() {
		return q.indexOne(obj, e.Value)
	}
	parts, ok := q.partsOf(obj)
	if !ok {
		return types.Error
	}
	shape := parts.shape
	switch idx {
	case types.String:
		if shape.StringIndex.Present() {
			return shape.StringIndex.Value
		}
	case types.Number:
		if shape.NumberIndex.Present() {
			return shape.NumberIndex.Value
		}
		if shape.StringIndex.Present() {
			return shape.StringIndex.Value
		}
	}
	return types.Error
}

// keyName renders a literal key as a property name.
func keyName(in *types.Interner, key types.TypeId) (string, bool) {
	lit, ok := in.Lookup(key).(types.LiteralKey)
	if !ok {
		return "", false
	}
	switch lit.Value.Kind {
	case types.LitString, types.LitNumber:
		return lit.Value.Value(), true
	}
	return "", false
}
