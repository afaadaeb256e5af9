package solver

import (
	"github.com/benbjohnson/immutable"

	"github.com/cottand/tsolve/solver/types"
)

type typeIdHasher struct{}

func (typeIdHasher) Hash(k types.TypeId) uint32   { return uint32(types.HashId(k)) }
func (typeIdHasher) Equal(a, b types.TypeId) bool { return a == b }

// Substitution maps type parameters (and infer placeholders) to types. It is
// persistent: Bind and Without return new substitutions and leave the
// receiver untouched, so scopes can shadow parameters cheaply. The zero value
// is the empty substitution.
type Substitution struct {
	m *immutable.Map[types.TypeId, types.TypeId]
}

func NewSubstitution() Substitution {
	return Substitution{m: immutable.NewMap[types.TypeId, types.TypeId](typeIdHasher{})}
}

func (s Substitution) Bind(param, to types.TypeId) Substitution {
	if s.m == nil {
		s = NewSubstitution()
	}
	return Substitution{m: s.m.Set(param, to)}
}

func (s Substitution) Lookup(param types.TypeId) (types.TypeId, bool) {
	if s.m == nil {
		return types.NoType, false
	}
	return s.m.Get(param)
}

// Without removes params, used when entering a scope that rebinds them.
func (s Substitution) Without(params ...types.TypeId) Substitution {
	if s.m == nil {
		return s
	}
	m := s.m
	for _, p := range params {
		m = m.Delete(p)
	}
	return Substitution{m: m}
}

func (s Substitution) Len() int {
	if s.m == nil {
		return 0
	}
	return s.m.Len()
}

// Each calls fn for every binding, in no particular order.
func (s Substitution) Each(fn func(param, to types.TypeId)) {
	if s.m == nil {
		return
	}
	itr := s.m.Iterator()
	for !itr.Done() {
		k, v, _ := itr.Next()
		fn(k, v)
	}
}

func bindAll(params, args []types.TypeId) Substitution {
	sub := NewSubstitution()
	for i, p := range params {
		if i < len(args) {
			sub = sub.Bind(p, args[i])
		}
	}
	return sub
}

// Substitute replaces the parameters bound in sub throughout id.
func (s *Session) Substitute(id types.TypeId, sub Substitution) types.TypeId {
	return s.newQuery().substitute(id, sub)
}

type substituter struct {
	q    *query
	in   *types.Interner
	sub  Substitution
	memo map[types.TypeId]types.TypeId
}

func (q *query) substitute(id types.TypeId, sub Substitution) types.TypeId {
	if sub.Len() == 0 {
		return id
	}
	return q.newSubstituter(sub).apply(id)
}

func (q *query) substituteSignature(sig types.Signature, sub Substitution) types.Signature {
	if sub.Len() == 0 {
		return sig
	}
	return q.newSubstituter(sub).signature(sig)
}

func (q *query) newSubstituter(sub Substitution) *substituter {
	return &substituter{q: q, in: q.in, sub: sub, memo: make(map[types.TypeId]types.TypeId)}
}

// scoped returns a substituter with params unbound.
func (st *substituter) scoped(params ...types.TypeId) *substituter {
	bound := false
	for _, p := range params {
		if _, ok := st.sub.Lookup(p); ok {
			bound = true
			break
		}
	}
	if !bound {
		return st
	}
	return st.q.newSubstituter(st.sub.Without(params...))
}

// touches reports whether any free parameter of id is bound.
func (st *substituter) touches(id types.TypeId) bool {
	for _, p := range st.in.FreeParams(id) {
		if _, ok := st.sub.Lookup(p); ok {
			return true
		}
	}
	return false
}

func (st *substituter) apply(id types.TypeId) types.TypeId {
	if id == types.NoType || !st.touches(id) {
		return id
	}
	if out, ok := st.memo[id]; ok {
		return out
	}
	out := st.rebuild(id)
	st.memo[id] = out
	return out
}

func (st *substituter) list(ids []types.TypeId) []types.TypeId {
	out := make([]types.TypeId, len(ids))
	for i, id := range ids {
		out[i] = st.apply(id)
	}
	return out
}

func (st *substituter) rebuild(id types.TypeId) types.TypeId {
	in := st.in
	switch k := in.Lookup(id).(type) {
	case types.TypeParamKey, types.InferKey:
		to, _ := st.sub.Lookup(id)
		return to
	case types.ArrayKey:
		return in.Array(st.apply(k.Elem))
	case types.TupleKey:
		return st.tuple(in.TupleElems(k.Elems))
	case types.ReadonlyKey:
		return in.Readonly(st.apply(k.Inner))
	case types.ObjectKey:
		return in.Object(st.shape(in.Shape(k.Shape)))
	case types.FunctionKey:
		return in.Function(st.signature(in.Signature(k.Sig)))
	case types.CallableKey:
		c := in.CallableShape(k.Shape)
		c.Calls = st.signatures(c.Calls)
		c.Constructs = st.signatures(c.Constructs)
		members := st.shape(c.Members())
		c.Props, c.StringIndex, c.NumberIndex = members.Props, members.StringIndex, members.NumberIndex
		return in.Callable(c)
	case types.UnionKey:
		return in.Union(st.list(in.List(k.Members))...)
	case types.IntersectionKey:
		return in.Intersection(st.list(in.List(k.Members))...)
	case types.ApplicationKey:
		return in.Application(st.apply(k.Base), st.list(in.List(k.Args))...)
	case types.EnumKey:
		return id
	case types.ConditionalKey:
		return st.conditional(k)
	case types.MappedKey:
		return st.mapped(k)
	case types.IndexAccessKey:
		return in.IndexAccess(st.apply(k.Object), st.apply(k.Index))
	case types.KeyOfKey:
		return in.KeyOf(st.apply(k.Operand))
	case types.TemplateLiteralKey:
		spans := in.TemplateSpans(k.Spans)
		out := make([]types.TemplateSpan, len(spans))
		for i, s := range spans {
			out[i] = types.TemplateSpan{Text: s.Text, Type: st.apply(s.Type)}
		}
		return in.Template(out...)
	case types.StringIntrinsicKey:
		return in.StringIntrinsic(k.Op, st.apply(k.Arg))
	}
	return id
}

func (st *substituter) tuple(elems []types.TupleElem) types.TypeId {
	out := make([]types.TupleElem, 0, len(elems))
	for _, e := range elems {
		t := st.apply(e.Type)
		// a variadic element instantiated with a tuple is spread in place
		if e.Rest {
			if inner, ok := st.in.Lookup(t).(types.TupleKey); ok {
				out = append(out, st.in.TupleElems(inner.Elems)...)
				continue
			}
		}
		out = append(out, types.TupleElem{Type: t, Optional: e.Optional, Rest: e.Rest})
	}
	return st.in.Tuple(out...)
}

func (st *substituter) shape(s types.ObjectShape) types.ObjectShape {
	props := make([]types.Property, len(s.Props))
	for i, p := range s.Props {
		p.Read = st.apply(p.Read)
		p.Write = st.apply(p.Write)
		props[i] = p
	}
	s.Props = props
	s.StringIndex.Value = st.apply(s.StringIndex.Value)
	s.NumberIndex.Value = st.apply(s.NumberIndex.Value)
	return s
}

func (st *substituter) signature(sig types.Signature) types.Signature {
	inner := st.scoped(sig.TypeParams...)
	params := make([]types.Param, len(sig.Params))
	for i, p := range sig.Params {
		p.Type = inner.apply(p.Type)
		params[i] = p
	}
	sig.Params = params
	sig.This = inner.apply(sig.This)
	sig.Return = inner.apply(sig.Return)
	return sig
}

func (st *substituter) signatures(ids []types.SignatureId) []types.SignatureId {
	out := make([]types.SignatureId, len(ids))
	for i, s := range ids {
		out[i] = st.in.InternSignature(st.signature(st.in.Signature(s)))
	}
	return out
}

// conditional distributes a distributive conditional whose checked parameter
// is bound to a union or to boolean, so each branch sees a single member.
// Bindings to aliases and applications are looked through first. A binding
// that resolves to another parameter becomes the checked type, so the
// conditional stays distributive over it.
func (st *substituter) conditional(k types.ConditionalKey) types.TypeId {
	check := types.NoType
	if k.Distributive {
		if to, ok := st.sub.Lookup(k.Check); ok {
			to = st.distributionTarget(to)
			if to == types.Never {
				return types.Never
			}
			if members, ok := st.in.DistributionMembers(to); ok {
				out := make([]types.TypeId, len(members))
				for i, m := range members {
					out[i] = st.q.newSubstituter(st.sub.Bind(k.Check, m)).conditional(k)
				}
				return st.in.Union(out...)
			}
			if st.in.KindOf(to) == types.KindTypeParam {
				check = to
			}
		}
	}
	if check == types.NoType {
		check = st.apply(k.Check)
	}
	inner := st.scoped(st.in.InferPlaceholders(k.Extends)...)
	return st.in.Intern(types.ConditionalKey{
		Check:        check,
		Extends:      inner.apply(k.Extends),
		True:         inner.apply(k.True),
		False:        st.apply(k.False),
		Distributive: k.Distributive,
	})
}

// distributionTarget resolves an alias or application binding to what it
// evaluates to.
func (st *substituter) distributionTarget(to types.TypeId) types.TypeId {
	switch st.in.KindOf(to) {
	case types.KindRef, types.KindApplication:
		return st.q.evaluate(to)
	}
	return to
}

// mapped shadows the key parameter. A homomorphic mapped type over a
// parameter bound to a union is mapped over each member.
func (st *substituter) mapped(k types.MappedKey) types.TypeId {
	if ko, ok := st.in.Lookup(k.Constraint).(types.KeyOfKey); ok && st.in.KindOf(ko.Operand) == types.KindTypeParam {
		if to, ok := st.sub.Lookup(ko.Operand); ok {
			if u, ok := st.in.Lookup(to).(types.UnionKey); ok {
				members := st.in.List(u.Members)
				out := make([]types.TypeId, len(members))
				for i, m := range members {
					out[i] = st.q.newSubstituter(st.sub.Bind(ko.Operand, m)).mapped(k)
				}
				return st.in.Union(out...)
			}
		}
	}
	inner := st.scoped(k.Param)
	return st.in.Mapped(types.MappedKey{
		Param:      k.Param,
		Constraint: st.apply(k.Constraint),
		NameType:   inner.apply(k.NameType),
		Template:   inner.apply(k.Template),
		Optional:   k.Optional,
		Readonly:   k.Readonly,
	})
}
