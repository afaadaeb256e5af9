package solver

import (
	"github.com/hashicorp/go-set/v3"

	"github.com/cottand/tsolve/solver/types"
)

// DefaultRules is the standard catalogue in priority order.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "identity", Apply: identityRule},
		{Name: "any", Apply: anyRule},
		{Name: "non-strict-null", Apply: nonStrictNullRule},
		{Name: "unknown-target", Apply: unknownTargetRule},
		{Name: "never-source", Apply: neverSourceRule},
		{Name: "error-marker", Apply: errorMarkerRule},
		{Name: "unknown-source", Apply: unknownSourceRule},
		{Name: "enum", Apply: enumRule},
		{Name: "private-brand", Apply: privateBrandRule},
		{Name: "weak-type", Apply: weakTypeRule},
		{Name: "excess-property", Apply: excessPropertyRule},
		{Name: "empty-object-target", Apply: emptyObjectTargetRule},
	}
}

func identityRule(_ *RuleContext, s, t types.TypeId) Verdict {
	if s == t {
		return Allow
	}
	return Defer
}

// anyRule makes any assignable both ways, except any to never.
func anyRule(_ *RuleContext, s, t types.TypeId) Verdict {
	switch {
	case s == types.Any && t == types.Never:
		return Reject
	case s == types.Any, t == types.Any:
		return Allow
	}
	return Defer
}

func nonStrictNullRule(c *RuleContext, s, _ types.TypeId) Verdict {
	if !c.Config().StrictNullChecks && (s == types.Null || s == types.Undefined) {
		return Allow
	}
	return Defer
}

func unknownTargetRule(_ *RuleContext, _, t types.TypeId) Verdict {
	if t == types.Unknown {
		return Allow
	}
	return Defer
}

func neverSourceRule(_ *RuleContext, s, _ types.TypeId) Verdict {
	if s == types.Never {
		return Allow
	}
	return Defer
}

// errorMarkerRule keeps the failure marker from being assignable anywhere
// but to itself, so one unresolved type cannot hide further errors.
func errorMarkerRule(_ *RuleContext, s, t types.TypeId) Verdict {
	if s == types.Error || t == types.Error {
		return Reject
	}
	return Defer
}

func unknownSourceRule(_ *RuleContext, s, _ types.TypeId) Verdict {
	if s == types.Unknown {
		return Reject
	}
	return Defer
}

// enumRule treats enums nominally. Numbers are assignable to numeric enum
// types, string-like values are never assignable to string enums, and a
// member is assignable to its own enum but not to a sibling member.
func enumRule(c *RuleContext, s, t types.TypeId) Verdict {
	in := c.Interner()
	te, tIsEnum := in.Lookup(c.Resolve(t)).(types.EnumKey)
	if !tIsEnum {
		return Defer
	}
	src := c.Resolve(s)
	if u, ok := in.Lookup(src).(types.UnionKey); ok {
		for _, m := range in.List(u.Members) {
			if me, ok := in.Lookup(m).(types.EnumKey); ok && me.Parent != te.Parent {
				return Reject
			}
		}
		return Defer
	}
	if se, ok := in.Lookup(src).(types.EnumKey); ok {
		switch {
		case se.Parent != te.Parent:
			return Reject
		case se.IsMember() && !te.IsMember():
			return Allow
		case se.IsMember() && te.IsMember():
			return Reject
		}
		return Defer
	}
	if isNumericEnum(in, te) {
		if src != types.Number && !isLiteralOf(in, src, types.LitNumber) {
			return Defer
		}
		switch {
		case !te.IsMember(), src == te.Value:
			return Allow
		}
		return Reject
	}
	if isStringLike(in, src) {
		return Reject
	}
	return Defer
}

func isNumericEnum(in *types.Interner, e types.EnumKey) bool {
	if e.IsMember() {
		return isLiteralOf(in, e.Value, types.LitNumber)
	}
	members := []types.TypeId{e.Value}
	if u, ok := in.Lookup(e.Value).(types.UnionKey); ok {
		members = in.List(u.Members)
	}
	for _, m := range members {
		if me, ok := in.Lookup(m).(types.EnumKey); ok && isLiteralOf(in, me.Value, types.LitNumber) {
			return true
		}
	}
	return false
}

func isLiteralOf(in *types.Interner, id types.TypeId, kind types.LiteralKind) bool {
	lit, ok := in.Lookup(id).(types.LiteralKey)
	return ok && lit.Value.Kind == kind
}

func isStringLike(in *types.Interner, id types.TypeId) bool {
	if id == types.String || isLiteralOf(in, id, types.LitString) {
		return true
	}
	switch in.KindOf(id) {
	case types.KindTemplateLiteral, types.KindStringIntrinsic:
		return true
	}
	return false
}

// privateBrandRule compares classes with private or protected members
// nominally: such a member must come from the same declaration on both
// sides, and may not be matched by a public one.
func privateBrandRule(c *RuleContext, s, t types.TypeId) Verdict {
	if s == t {
		return Defer
	}
	in := c.Interner()
	src, tgt := c.Resolve(s), c.Resolve(t)
	switch tk := in.Lookup(tgt).(type) {
	case types.UnionKey:
		for _, m := range in.List(tk.Members) {
			if privateBrandRule(c, src, m) != Reject {
				return Defer
			}
		}
		return Reject
	case types.IntersectionKey:
		for _, m := range in.List(tk.Members) {
			if privateBrandRule(c, src, m) == Reject {
				return Reject
			}
		}
		return Defer
	}
	switch sk := in.Lookup(src).(type) {
	case types.UnionKey:
		for _, m := range in.List(sk.Members) {
			if privateBrandRule(c, m, tgt) == Reject {
				return Reject
			}
		}
		return Defer
	case types.IntersectionKey:
		for _, m := range in.List(sk.Members) {
			if privateBrandRule(c, m, tgt) != Reject {
				return Defer
			}
		}
		return Reject
	}
	ss, ok := c.Shape(src)
	if !ok {
		return Defer
	}
	ts, ok := c.Shape(tgt)
	if !ok {
		return Defer
	}
	for _, tp := range ts.Props {
		if tp.Visibility == types.Public {
			continue
		}
		sp, ok := ss.Prop(tp.Name)
		if !ok || sp.Parent != tp.Parent {
			return Reject
		}
	}
	for _, sp := range ss.Props {
		if sp.Visibility == types.Public {
			continue
		}
		if tp, ok := ts.Prop(sp.Name); ok && tp.Visibility == types.Public {
			return Reject
		}
	}
	return Defer
}

// weakTypeRule rejects a source that shares no property with a target
// whose properties are all optional, and the same for a union target with
// a weak member.
func weakTypeRule(c *RuleContext, s, t types.TypeId) Verdict {
	in := c.Interner()
	tgt := c.Resolve(t)
	if u, ok := in.Lookup(tgt).(types.UnionKey); ok {
		if violatesWeakUnion(c, s, in.List(u.Members)) {
			return Reject
		}
		return Defer
	}
	ts, ok := c.Shape(tgt)
	if !ok || !ts.IsWeak() || in.KindOf(tgt) != types.KindObject {
		return Defer
	}
	if lacksCommonProperty(c, s, []types.ObjectShape{ts}) {
		return Reject
	}
	return Defer
}

func violatesWeakUnion(c *RuleContext, s types.TypeId, members []types.TypeId) bool {
	var shapes []types.ObjectShape
	weak := false
	for _, m := range members {
		shape, ok := c.Shape(m)
		if !ok {
			continue
		}
		if len(shape.Props) == 0 || shape.StringIndex.Present() || shape.NumberIndex.Present() {
			return false
		}
		weak = weak || shape.IsWeak()
		shapes = append(shapes, shape)
	}
	return weak && lacksCommonProperty(c, s, shapes)
}

// lacksCommonProperty reports whether the object source s has properties
// but none of them appears in any of the target shapes.
func lacksCommonProperty(c *RuleContext, s types.TypeId, targets []types.ObjectShape) bool {
	in := c.Interner()
	src := c.Resolve(s)
	switch sk := in.Lookup(src).(type) {
	case types.UnionKey:
		for _, m := range in.List(sk.Members) {
			if !lacksCommonProperty(c, m, targets) {
				return false
			}
		}
		return true
	case types.TypeParamKey:
		constraint := c.Constraint(src)
		if constraint == types.Unknown {
			return false
		}
		return lacksCommonProperty(c, constraint, targets)
	}
	if in.KindOf(src) != types.KindObject {
		return false
	}
	ss, ok := c.Shape(src)
	if !ok || len(ss.Props) == 0 || ss.StringIndex.Present() || ss.NumberIndex.Present() {
		return false
	}
	for _, ts := range targets {
		for _, p := range ss.Props {
			if _, ok := ts.Prop(p.Name); ok {
				return false
			}
		}
	}
	return true
}

// excessPropertyRule rejects an object literal that names a property the
// target does not know about. A property is known when any member of a
// union or intersection target declares it.
func excessPropertyRule(c *RuleContext, s, t types.TypeId) Verdict {
	in := c.Interner()
	o, ok := in.Lookup(s).(types.ObjectKey)
	if !ok {
		return Defer
	}
	src := in.Shape(o.Shape)
	if !src.Fresh || len(src.Props) == 0 {
		return Defer
	}
	known, open := knownProperties(c, t, 0)
	if open || known.Size() == 0 {
		return Defer
	}
	for _, p := range src.Props {
		if !known.Contains(p.Name) {
			return Reject
		}
	}
	return Defer
}

// knownProperties collects the property names of t. open is set when t
// accepts arbitrary names (an index signature, or a non-object member).
func knownProperties(c *RuleContext, t types.TypeId, depth int) (names *set.Set[string], open bool) {
	names = set.New[string](0)
	if depth > c.Config().MaxDepth {
		return names, true
	}
	in := c.Interner()
	tgt := c.Resolve(t)
	var members []types.TypeId
	switch k := in.Lookup(tgt).(type) {
	case types.UnionKey:
		members = in.List(k.Members)
	case types.IntersectionKey:
		members = in.List(k.Members)
	}
	if members != nil {
		for _, m := range members {
			sub, subOpen := knownProperties(c, m, depth+1)
			if subOpen {
				return names, true
			}
			for n := range sub.Items() {
				names.Insert(n)
			}
		}
		return names, false
	}
	switch in.KindOf(tgt) {
	case types.KindObject, types.KindCallable:
	default:
		return names, true
	}
	shape, ok := c.Shape(tgt)
	if !ok || shape.StringIndex.Present() || shape.NumberIndex.Present() {
		return names, true
	}
	for _, p := range shape.Props {
		names.Insert(p.Name)
	}
	return names, false
}

// emptyObjectTargetRule lets every non-nullish value be assigned to the
// empty object type, primitives included.
func emptyObjectTargetRule(c *RuleContext, s, t types.TypeId) Verdict {
	in := c.Interner()
	o, ok := in.Lookup(c.Resolve(t)).(types.ObjectKey)
	if !ok {
		return Defer
	}
	shape := in.Shape(o.Shape)
	if len(shape.Props) > 0 || shape.StringIndex.Present() || shape.NumberIndex.Present() {
		return Defer
	}
	if nonNullish(c, s, 0) {
		return Allow
	}
	return Reject
}

func nonNullish(c *RuleContext, s types.TypeId, depth int) bool {
	if depth > c.Config().MaxDepth {
		return false
	}
	in := c.Interner()
	src := c.Resolve(s)
	switch src {
	case types.Null, types.Undefined, types.Void, types.Unknown, types.Error:
		return false
	}
	switch k := in.Lookup(src).(type) {
	case types.UnionKey:
		for _, m := range in.List(k.Members) {
			if !nonNullish(c, m, depth+1) {
				return false
			}
		}
		return true
	case types.IntersectionKey:
		for _, m := range in.List(k.Members) {
			if nonNullish(c, m, depth+1) {
				return true
			}
		}
		return false
	case types.TypeParamKey:
		constraint := c.Constraint(src)
		return constraint != types.Unknown && nonNullish(c, constraint, depth+1)
	}
	return true
}
