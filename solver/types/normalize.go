package types

import (
	"slices"
)

// maxDistributedIntersection caps how many union members an intersection
// may be distributed into before it is kept as written.
const maxDistributedIntersection = 256

// Union builds the canonical union of members: nested unions are flattened,
// duplicates and never are dropped, any/unknown/error absorb everything,
// literals are absorbed by their primitive and true|false becomes boolean.
func (in *Interner) Union(members ...TypeId) TypeId {
	flat := make([]TypeId, 0, len(members))
	var hasAny, hasUnknown bool
	for _, m := range members {
		if m == NoType {
			continue
		}
		if u, ok := in.Lookup(m).(UnionKey); ok {
			flat = append(flat, in.List(u.Members)...)
			continue
		}
		flat = append(flat, m)
	}
	for _, m := range flat {
		switch m {
		case Error:
			return Error
		case Any:
			hasAny = true
		case Unknown:
			hasUnknown = true
		}
	}
	if hasAny {
		return Any
	}
	if hasUnknown {
		return Unknown
	}

	slices.Sort(flat)
	flat = slices.Compact(flat)
	present := func(id TypeId) bool {
		_, ok := slices.BinarySearch(flat, id)
		return ok
	}
	hasTrue, hasFalse := present(True), present(False)
	out := flat[:0:0]
	for _, m := range flat {
		if m == Never {
			continue
		}
		if hasTrue && hasFalse && (m == True || m == False) {
			continue
		}
		if base, ok := in.absorbingBase(m); ok && present(base) {
			continue
		}
		out = append(out, m)
	}
	if hasTrue && hasFalse && !present(Boolean) {
		out = append(out, Boolean)
		slices.Sort(out)
	}

	switch len(out) {
	case 0:
		return Never
	case 1:
		return out[0]
	}
	return in.Intern(UnionKey{Members: in.InternList(out)})
}

// DistributionMembers returns the members a distributive conditional is
// applied to when its checked type is id. Unions are split into their
// members and boolean into true and false; ok is false for any other type.
func (in *Interner) DistributionMembers(id TypeId) (members []TypeId, ok bool) {
	var flat []TypeId
	switch k := in.Lookup(id).(type) {
	case UnionKey:
		flat = in.List(k.Members)
	default:
		if id != Boolean {
			return nil, false
		}
		flat = []TypeId{Boolean}
	}
	members = make([]TypeId, 0, len(flat)+1)
	for _, m := range flat {
		if m == Boolean {
			members = append(members, True, False)
			continue
		}
		members = append(members, m)
	}
	return members, true
}

// absorbingBase returns the primitive that makes id redundant in a union.
func (in *Interner) absorbingBase(id TypeId) (TypeId, bool) {
	switch k := in.Lookup(id).(type) {
	case LiteralKey:
		return k.Value.Base(), true
	case UniqueSymbolKey:
		return Symbol, true
	case TemplateLiteralKey, StringIntrinsicKey:
		return String, true
	}
	return NoType, false
}

// Intersection builds the canonical intersection of members: nested
// intersections are flattened, never and any absorb, unknown is dropped,
// disjoint primitives produce never and unions are distributed over.
func (in *Interner) Intersection(members ...TypeId) TypeId {
	flat := make([]TypeId, 0, len(members))
	for _, m := range members {
		if m == NoType {
			continue
		}
		if x, ok := in.Lookup(m).(IntersectionKey); ok {
			flat = append(flat, in.List(x.Members)...)
			continue
		}
		flat = append(flat, m)
	}
	if slices.Contains(flat, Never) {
		return Never
	}
	if slices.Contains(flat, Error) {
		return Error
	}
	if slices.Contains(flat, Any) {
		return Any
	}
	flat = slices.DeleteFunc(flat, func(id TypeId) bool { return id == Unknown })
	slices.Sort(flat)
	flat = slices.Compact(flat)

	if in.disjointPrimitives(flat) {
		return Never
	}
	flat = in.dropAbsorbedPrimitives(flat)

	if distributed, ok := in.distributeIntersection(flat); ok {
		return distributed
	}

	switch len(flat) {
	case 0:
		return Unknown
	case 1:
		return flat[0]
	}
	return in.Intern(IntersectionKey{Members: in.InternList(flat)})
}

// primitiveDomain returns the value domain a unit or primitive type belongs to.
func (in *Interner) primitiveDomain(id TypeId) (TypeId, bool) {
	switch id {
	case String, Number, BigInt, Boolean, Symbol, Null, Undefined:
		return id, true
	case Void:
		return Undefined, true
	}
	switch k := in.Lookup(id).(type) {
	case LiteralKey:
		return k.Value.Base(), true
	case UniqueSymbolKey:
		return Symbol, true
	}
	return NoType, false
}

func (in *Interner) disjointPrimitives(members []TypeId) bool {
	var domain TypeId
	var unit TypeId
	for _, m := range members {
		d, ok := in.primitiveDomain(m)
		if !ok {
			continue
		}
		if domain != NoType && d != domain {
			return true
		}
		domain = d
		if m != d && m != Void {
			if unit != NoType && unit != m {
				return true
			}
			unit = m
		}
	}
	return false
}

func (in *Interner) dropAbsorbedPrimitives(members []TypeId) []TypeId {
	hasUnit := false
	for _, m := range members {
		if d, ok := in.primitiveDomain(m); ok && d != m && m != Void {
			hasUnit = true
		}
	}
	if !hasUnit {
		return members
	}
	return slices.DeleteFunc(members, func(m TypeId) bool {
		d, ok := in.primitiveDomain(m)
		return ok && d == m
	})
}

// distributeIntersection rewrites A & (B | C) into (A & B) | (A & C).
func (in *Interner) distributeIntersection(members []TypeId) (TypeId, bool) {
	idx := -1
	for i, m := range members {
		if in.KindOf(m) == KindUnion {
			idx = i
			break
		}
	}
	if idx < 0 {
		return NoType, false
	}
	alts := in.List(in.Lookup(members[idx]).(UnionKey).Members)
	product := len(alts)
	for _, m := range members[idx+1:] {
		if u, ok := in.Lookup(m).(UnionKey); ok {
			product *= len(in.List(u.Members))
			if product > maxDistributedIntersection {
				return NoType, false
			}
		}
	}
	rest := slices.Delete(slices.Clone(members), idx, idx+1)
	out := make([]TypeId, 0, len(alts))
	for _, alt := range alts {
		out = append(out, in.Intersection(append(slices.Clone(rest), alt)...))
	}
	return in.Union(out...), true
}
