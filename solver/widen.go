package solver

import (
	"github.com/cottand/tsolve/solver/types"
)

// AssignContext describes the assignment an assignability query comes from.
type AssignContext struct {
	// Fresh marks the source as a directly written object literal, which
	// makes it subject to excess property checks.
	Fresh bool
	// Const marks a const or literal context, where literal types are not widened.
	Const bool
}

// Widen returns the type a mutable location infers from a value of type id:
// literals become their primitive, and fresh object literals become regular
// objects with their mutable properties widened. In a const context only
// freshness is removed.
func (s *Session) Widen(id types.TypeId, ctx AssignContext) types.TypeId {
	return s.newQuery().widen(id, ctx.Const)
}

// Regular strips object literal freshness from id and everything in it.
func (s *Session) Regular(id types.TypeId) types.TypeId {
	return s.newQuery().regular(id)
}

func (q *query) widen(id types.TypeId, keepLiterals bool) types.TypeId {
	in := q.in
	switch k := in.Lookup(id).(type) {
	case types.LiteralKey:
		if keepLiterals {
			return id
		}
		return k.Value.Base()
	case types.UniqueSymbolKey:
		if keepLiterals {
			return id
		}
		return types.Symbol
	case types.EnumKey:
		if keepLiterals || !k.IsMember() {
			return id
		}
		if def, ok := q.s.defs.defs.Get(k.Parent); ok && def.Body != types.NoType {
			return def.Body
		}
		return id
	case types.UnionKey:
		members := in.List(k.Members)
		out := make([]types.TypeId, len(members))
		for i, m := range members {
			out[i] = q.widen(m, keepLiterals)
		}
		return in.Union(out...)
	case types.ObjectKey:
		shape := in.Shape(k.Shape)
		if !shape.Fresh {
			return id
		}
		props := make([]types.Property, len(shape.Props))
		for i, p := range shape.Props {
			if !p.Readonly {
				p.Read = q.widen(p.Read, keepLiterals)
				if p.Write != types.NoType {
					p.Write = q.widen(p.Write, keepLiterals)
				}
			} else {
				p.Read = q.regular(p.Read)
			}
			props[i] = p
		}
		shape.Props = props
		shape.Fresh = false
		return in.Object(shape)
	}
	return id
}

// stale strips freshness from id itself. Nested object literals stay fresh.
func (q *query) stale(id types.TypeId) types.TypeId {
	o, ok := q.in.Lookup(id).(types.ObjectKey)
	if !ok {
		return id
	}
	shape := q.in.Shape(o.Shape)
	if !shape.Fresh {
		return id
	}
	shape.Fresh = false
	return q.in.Object(shape)
}

func (q *query) regular(id types.TypeId) types.TypeId {
	in := q.in
	switch k := in.Lookup(id).(type) {
	case types.ObjectKey:
		shape := in.Shape(k.Shape)
		props := make([]types.Property, len(shape.Props))
		changed := shape.Fresh
		for i, p := range shape.Props {
			r := q.regular(p.Read)
			changed = changed || r != p.Read
			p.Read = r
			props[i] = p
		}
		if !changed {
			return id
		}
		shape.Props = props
		shape.Fresh = false
		return in.Object(shape)
	case types.UnionKey:
		members := in.List(k.Members)
		out := make([]types.TypeId, len(members))
		for i, m := range members {
			out[i] = q.regular(m)
		}
		return in.Union(out...)
	case types.ArrayKey:
		return in.Array(q.regular(k.Elem))
	case types.TupleKey:
		elems := in.TupleElems(k.Elems)
		out := make([]types.TupleElem, len(elems))
		for i, e := range elems {
			e.Type = q.regular(e.Type)
			out[i] = e
		}
		return in.Tuple(out...)
	}
	return id
}
