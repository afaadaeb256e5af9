package solver

import (
	"slices"
	"strconv"

	"github.com/cottand/tsolve/solver/types"
)

// evalMapped computes {[P in C as N]: T}. Keys come from the evaluated
// constraint; an `as` clause renames them, and renaming to never deletes
// the key. A homomorphic mapped type, whose constraint is keyof X, keeps
// the modifiers of X's properties and maps primitives, arrays and tuples
// element-wise.
func (q *query) evalMapped(id types.TypeId, k types.MappedKey) types.TypeId {
	in := q.in
	var source types.ObjectShape
	homomorphic := false
	if ko, ok := in.Lookup(k.Constraint).(types.KeyOfKey); ok {
		operand := q.evaluate(ko.Operand)
		if q.unresolved(operand) {
			return id
		}
		if out, done := q.mapStructure(k, operand); done {
			return out
		}
		if parts, ok := q.partsOf(operand); ok {
			source, homomorphic = parts.shape, true
		}
	}
	keys := q.evaluate(k.Constraint)
	if q.unresolved(keys) {
		return id
	}
	members := q.members(keys)
	if len(members) > q.s.cfg.MappedKeyCap {
		q.fuel.exhausted++
		q.exhausted("mapped type")
		return id
	}

	byName := make(map[string]types.Property)
	var stringIndex, numberIndex types.IndexSignature
	for _, key := range members {
		if key == types.Never {
			continue
		}
		sub := NewSubstitution().Bind(k.Param, key)
		names := []types.TypeId{key}
		if k.NameType != types.NoType {
			names = q.members(q.evaluate(q.substitute(k.NameType, sub)))
		}
		value := q.evaluate(q.substitute(k.Template, sub))
		var from types.Property
		hasFrom := false
		if homomorphic {
			if name, ok := keyName(in, key); ok {
				from, hasFrom = source.Prop(name)
			}
		}
		for _, n := range names {
			switch n {
			case types.Never:
				continue
			case types.String:
				stringIndex = types.IndexSignature{Value: in.Union(stringIndex.Value, value), Readonly: k.Readonly == types.ModAdd}
				continue
			case types.Number:
				numberIndex = types.IndexSignature{Value: in.Union(numberIndex.Value, value), Readonly: k.Readonly == types.ModAdd}
				continue
			}
			name, ok := keyName(in, n)
			if !ok {
				continue
			}
			p := types.Property{
				Name:     name,
				Read:     value,
				Optional: applyModifier(k.Optional, hasFrom && from.Optional),
				Readonly: applyModifier(k.Readonly, hasFrom && from.Readonly),
			}
			// an optional property already admits undefined
			removed := k.Optional == types.ModRemove && hasFrom && from.Optional
			if removed || p.Optional && !q.s.cfg.ExactOptionalPropertyTypes {
				if r := q.withoutUndefined(p.Read); r != types.Never {
					p.Read = r
				}
			}
			if prev, ok := byName[name]; ok {
				p.Read = in.Union(prev.Read, p.Read)
			}
			byName[name] = p
		}
	}
	props := make([]types.Property, 0, len(byName))
	for _, p := range byName {
		props = append(props, p)
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
	return in.Object(types.ObjectShape{Props: props, StringIndex: stringIndex, NumberIndex: numberIndex})
}

// mapStructure handles the homomorphic cases that are not plain objects:
// primitives map to themselves, arrays and tuples map their elements.
func (q *query) mapStructure(k types.MappedKey, operand types.TypeId) (types.TypeId, bool) {
	in := q.in
	readonly := false
	inner := operand
	if r, ok := in.Lookup(operand).(types.ReadonlyKey); ok {
		readonly, inner = true, r.Inner
	}
	wrap := func(id types.TypeId) types.TypeId {
		if applyModifier(k.Readonly, readonly) {
			return in.Readonly(id)
		}
		return id
	}
	element := func(key types.TypeId) types.TypeId {
		return q.evaluate(q.substitute(k.Template, NewSubstitution().Bind(k.Param, key)))
	}
	switch ik := in.Lookup(inner).(type) {
	case types.ArrayKey:
		return wrap(in.Array(element(types.Number))), true
	case types.TupleKey:
		elems := slices.Clone(in.TupleElems(ik.Elems))
		for i, e := range elems {
			if e.Rest {
				elems[i].Type = in.Array(element(types.Number))
				continue
			}
			elems[i].Type = element(in.LiteralString(strconv.Itoa(i)))
			elems[i].Optional = applyModifier(k.Optional, e.Optional)
			if k.Optional == types.ModRemove && e.Optional {
				elems[i].Type = q.withoutUndefined(elems[i].Type)
			}
		}
		return wrap(in.Tuple(elems...)), true
	}
	if isPrimitive(in.Lookup(operand)) || operand == types.Null || operand == types.Undefined {
		return operand, true
	}
	return types.NoType, false
}

func applyModifier(m types.Modifier, current bool) bool {
	switch m {
	case types.ModAdd:
		return true
	case types.ModRemove:
		return false
	}
	return current
}

func (q *query) withoutUndefined(id types.TypeId) types.TypeId {
	members := q.members(id)
	out := make([]types.TypeId, 0, len(members))
	for _, m := range members {
		if m != types.Undefined {
			out = append(out, m)
		}
	}
	return q.in.Union(out...)
}
