package solver

import (
	"slices"
	"strconv"

	"github.com/cottand/tsolve/solver/types"
)

// Apparent returns the structural projection of id used for member lookup.
// It never changes what id itself is: an Application stays an Application,
// only its apparent type is an object.
func (s *Session) Apparent(id types.TypeId) types.TypeId {
	return s.newQuery().apparent(id)
}

// PropertyOf looks up a member of id's apparent type, falling back to index
// signatures. On a union the property must exist on every member, and its
// type is the union of theirs.
func (s *Session) PropertyOf(id types.TypeId, name string) (types.Property, bool) {
	return s.newQuery().propertyOf(id, name)
}

func (q *query) apparent(id types.TypeId) types.TypeId {
	return q.apparentAt(id, 0)
}

func (q *query) apparentAt(id types.TypeId, hops int) types.TypeId {
	if hops >= q.s.cfg.MaxExpansionDepth {
		q.fuel.exhausted++
		q.exhausted("apparent type")
		return id
	}
	next := func(n types.TypeId) types.TypeId {
		if n == id {
			return id
		}
		return q.apparentAt(n, hops+1)
	}
	in := q.in
	switch k := in.Lookup(id).(type) {
	case types.RefKey, types.ApplicationKey:
		if e, ok := q.expand(id); ok {
			return next(e)
		}
	case types.IntrinsicKey:
		switch id {
		case types.String, types.Number, types.Boolean, types.BigInt, types.Symbol:
			if g, ok := q.globalType(globalName(k.Intrinsic)); ok {
				return next(g)
			}
		case types.Object, types.Function:
			if g, ok := q.globalType(globalName(k.Intrinsic)); ok {
				return next(g)
			}
			return in.ObjectOf()
		}
	case types.LiteralKey:
		return next(k.Value.Base())
	case types.UniqueSymbolKey:
		return next(types.Symbol)
	case types.TemplateLiteralKey, types.StringIntrinsicKey:
		return next(types.String)
	case types.EnumKey:
		return next(k.Value)
	case types.TypeParamKey:
		c := q.constraintOf(id)
		if c == types.Unknown {
			return in.ObjectOf()
		}
		return next(c)
	case types.ArrayKey:
		return q.arrayApparent(k.Elem, false)
	case types.TupleKey:
		return q.tupleApparent(in.TupleElems(k.Elems), false)
	case types.ReadonlyKey:
		switch inner := in.Lookup(k.Inner).(type) {
		case types.ArrayKey:
			return q.arrayApparent(inner.Elem, true)
		case types.TupleKey:
			return q.tupleApparent(in.TupleElems(inner.Elems), true)
		case types.TypeParamKey:
			return next(in.Readonly(q.constraintOf(k.Inner)))
		}
	case types.IntersectionKey:
		return q.mergeIntersection(in.List(k.Members), hops)
	default:
		if k.Kind().IsDerived() {
			return next(q.evaluate(id))
		}
	}
	return id
}

func globalName(i types.Intrinsic) string {
	switch i {
	case types.IntrinsicString:
		return "String"
	case types.IntrinsicNumber:
		return "Number"
	case types.IntrinsicBoolean:
		return "Boolean"
	case types.IntrinsicBigInt:
		return "BigInt"
	case types.IntrinsicSymbol:
		return "Symbol"
	case types.IntrinsicObject:
		return "Object"
	case types.IntrinsicFunction:
		return "Function"
	}
	return ""
}

// globalType returns the reference to a registered global, instantiated
// with args when it is generic.
func (q *query) globalType(name string, args ...types.TypeId) (types.TypeId, bool) {
	sym, ok := q.s.global(name)
	if !ok {
		return types.NoType, false
	}
	return q.in.Application(q.in.Ref(sym), args...), true
}

func (q *query) arrayApparent(elem types.TypeId, readonly bool) types.TypeId {
	name := "Array"
	if readonly {
		name = "ReadonlyArray"
	}
	if g, ok := q.globalType(name, elem); ok {
		if e, ok := q.expand(g); ok {
			return e
		}
	}
	if readonly {
		if g, ok := q.globalType("Array", elem); ok {
			if e, ok := q.expand(g); ok {
				return q.readonlyShape(e)
			}
		}
	}
	return q.in.Object(types.ObjectShape{
		Props:       []types.Property{{Name: "length", Read: types.Number, Readonly: readonly}},
		NumberIndex: types.IndexSignature{Value: elem, Readonly: readonly},
	})
}

func (q *query) tupleApparent(elems []types.TupleElem, readonly bool) types.TypeId {
	in := q.in
	fixed, rest := splitRest(elems)
	props := make([]types.Property, 0, len(fixed)+1)
	values := make([]types.TypeId, 0, len(elems))
	length := in.LiteralNumber(float64(len(fixed)))
	for i, e := range fixed {
		props = append(props, types.Property{Name: strconv.Itoa(i), Read: e.Type, Optional: e.Optional, Readonly: readonly})
		values = append(values, e.Type)
		if e.Optional {
			length = types.Number
		}
	}
	if rest != nil {
		length = types.Number
		if a, ok := in.Lookup(rest.Type).(types.ArrayKey); ok {
			values = append(values, a.Elem)
		} else {
			values = append(values, types.Unknown)
		}
	}
	props = append(props, types.Property{Name: "length", Read: length, Readonly: readonly})
	shape := types.ObjectShape{
		Props:       props,
		NumberIndex: types.IndexSignature{Value: in.Union(values...), Readonly: readonly},
	}
	if base, ok := q.partsOf(q.arrayApparent(in.Union(values...), readonly)); ok {
		shape = mergeMissing(shape, base.shape)
	}
	return in.Object(shape)
}

func (q *query) readonlyShape(id types.TypeId) types.TypeId {
	parts, ok := q.partsOf(id)
	if !ok {
		return id
	}
	shape := parts.shape
	props := slices.Clone(shape.Props)
	for i := range props {
		props[i].Readonly = true
	}
	shape.Props = props
	shape.StringIndex.Readonly = shape.StringIndex.Present()
	shape.NumberIndex.Readonly = shape.NumberIndex.Present()
	return q.in.Object(shape)
}

// mergeIntersection builds one object type holding the members of every
// part. Properties present on several parts get the intersection of their
// types.
func (q *query) mergeIntersection(members []types.TypeId, hops int) types.TypeId {
	in := q.in
	byName := make(map[string]types.Property)
	var order []string
	var calls, constructs []types.SignatureId
	var strIdx, numIdx []types.TypeId
	var sym types.SymbolId
	for _, m := range members {
		parts, ok := q.partsOf(q.apparentAt(m, hops+1))
		if !ok {
			continue
		}
		calls = append(calls, parts.calls...)
		constructs = append(constructs, parts.constructs...)
		if parts.shape.StringIndex.Present() {
			strIdx = append(strIdx, parts.shape.StringIndex.Value)
		}
		if parts.shape.NumberIndex.Present() {
			numIdx = append(numIdx, parts.shape.NumberIndex.Value)
		}
		if sym == types.NoSymbol {
			sym = parts.shape.Symbol
		}
		for _, p := range parts.shape.Props {
			prev, seen := byName[p.Name]
			if !seen {
				byName[p.Name] = p
				order = append(order, p.Name)
				continue
			}
			prev.Read = in.Intersection(prev.Read, p.Read)
			if prev.Write != types.NoType || p.Write != types.NoType {
				prev.Write = in.Intersection(prev.WriteType(), p.WriteType())
			}
			prev.Optional = prev.Optional && p.Optional
			prev.Readonly = prev.Readonly && p.Readonly
			byName[p.Name] = prev
		}
	}
	props := make([]types.Property, 0, len(order))
	for _, name := range order {
		props = append(props, byName[name])
	}
	index := func(vals []types.TypeId) types.IndexSignature {
		if len(vals) == 0 {
			return types.IndexSignature{}
		}
		return types.IndexSignature{Value: in.Intersection(vals...)}
	}
	return in.Callable(types.CallableShape{
		Calls:       calls,
		Constructs:  constructs,
		Props:       props,
		StringIndex: index(strIdx),
		NumberIndex: index(numIdx),
		Symbol:      sym,
	})
}

// objectParts is the member view of an object-like type.
type objectParts struct {
	shape             types.ObjectShape
	calls, constructs []types.SignatureId
}

// partsOf returns the members and signatures of id, going through the
// apparent type for anything that is not already an object, function or
// callable. Functions also see the members of the global Function.
func (q *query) partsOf(id types.TypeId) (objectParts, bool) {
	in := q.in
	switch k := in.Lookup(id).(type) {
	case types.ObjectKey:
		return objectParts{shape: in.Shape(k.Shape)}, true
	case types.FunctionKey:
		parts := objectParts{shape: q.functionMembers()}
		if in.Signature(k.Sig).IsConstructor {
			parts.constructs = []types.SignatureId{k.Sig}
		} else {
			parts.calls = []types.SignatureId{k.Sig}
		}
		return parts, true
	case types.CallableKey:
		c := in.CallableShape(k.Shape)
		return objectParts{
			shape:      mergeMissing(c.Members(), q.functionMembers()),
			calls:      c.Calls,
			constructs: c.Constructs,
		}, true
	}
	if app := q.apparent(id); app != id {
		return q.partsOf(app)
	}
	return objectParts{}, false
}

func (q *query) functionMembers() types.ObjectShape {
	g, ok := q.globalType("Function")
	if !ok {
		return types.ObjectShape{}
	}
	e, ok := q.expand(g)
	if !ok {
		return types.ObjectShape{}
	}
	if o, ok := q.in.Lookup(e).(types.ObjectKey); ok {
		return q.in.Shape(o.Shape)
	}
	return types.ObjectShape{}
}

// mergeMissing adds the properties and index signatures of extra that own
// does not declare.
func mergeMissing(own, extra types.ObjectShape) types.ObjectShape {
	if len(extra.Props) == 0 && !extra.StringIndex.Present() && !extra.NumberIndex.Present() {
		return own
	}
	props := slices.Clone(own.Props)
	for _, p := range extra.Props {
		if _, ok := own.Prop(p.Name); !ok {
			props = append(props, p)
		}
	}
	slices.SortFunc(props, func(a, b types.Property) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	own.Props = props
	if !own.StringIndex.Present() {
		own.StringIndex = extra.StringIndex
	}
	if !own.NumberIndex.Present() {
		own.NumberIndex = extra.NumberIndex
	}
	return own
}

func (q *query) propertyOf(id types.TypeId, name string) (types.Property, bool) {
	id = q.evaluate(id)
	if u, ok := q.in.Lookup(id).(types.UnionKey); ok {
		var reads []types.TypeId
		out := types.Property{Name: name}
		for _, m := range q.in.List(u.Members) {
			p, ok := q.propertyOf(m, name)
			if !ok {
				return types.Property{}, false
			}
			reads = append(reads, p.Read)
			out.Optional = out.Optional || p.Optional
			out.Readonly = out.Readonly || p.Readonly
		}
		out.Read = q.in.Union(reads...)
		return out, true
	}
	parts, ok := q.partsOf(id)
	if !ok {
		return types.Property{}, false
	}
	if p, ok := parts.shape.Prop(name); ok {
		return p, true
	}
	if idx, ok := indexFor(parts.shape, name); ok {
		return types.Property{Name: name, Read: idx.Value, Readonly: idx.Readonly}, true
	}
	return types.Property{}, false
}

// constraintOf is the declared constraint of a type parameter, or unknown.
func (q *query) constraintOf(param types.TypeId) types.TypeId {
	return q.in.ParamInfo(param).Constraint
}
