package types

import (
	"slices"

	"github.com/hashicorp/go-set/v3"
)

// Children returns the type handles directly referenced by id, in a fixed order.
func (in *Interner) Children(id TypeId) []TypeId {
	var out []TypeId
	add := func(ids ...TypeId) {
		for _, c := range ids {
			if c != NoType {
				out = append(out, c)
			}
		}
	}
	addShape := func(s ObjectShape) {
		for _, p := range s.Props {
			add(p.Read, p.Write)
		}
		add(s.StringIndex.Value, s.NumberIndex.Value)
	}
	addSig := func(s Signature) {
		add(s.TypeParams...)
		for _, p := range s.Params {
			add(p.Type)
		}
		add(s.This, s.Return)
	}
	switch k := in.Lookup(id).(type) {
	case ArrayKey:
		add(k.Elem)
	case TupleKey:
		for _, e := range in.TupleElems(k.Elems) {
			add(e.Type)
		}
	case ReadonlyKey:
		add(k.Inner)
	case ObjectKey:
		addShape(in.Shape(k.Shape))
	case FunctionKey:
		addSig(in.Signature(k.Sig))
	case CallableKey:
		c := in.CallableShape(k.Shape)
		for _, s := range c.Calls {
			addSig(in.Signature(s))
		}
		for _, s := range c.Constructs {
			addSig(in.Signature(s))
		}
		addShape(c.Members())
	case UnionKey:
		add(in.List(k.Members)...)
	case IntersectionKey:
		add(in.List(k.Members)...)
	case ApplicationKey:
		add(k.Base)
		add(in.List(k.Args)...)
	case EnumKey:
		add(k.Value)
	case ConditionalKey:
		add(k.Check, k.Extends, k.True, k.False)
	case MappedKey:
		add(k.Param, k.Constraint, k.NameType, k.Template)
	case IndexAccessKey:
		add(k.Object, k.Index)
	case KeyOfKey:
		add(k.Operand)
	case TemplateLiteralKey:
		for _, s := range in.TemplateSpans(k.Spans) {
			add(s.Type)
		}
	case StringIntrinsicKey:
		add(k.Arg)
	}
	return out
}

// FreeParams returns the type parameters and infer placeholders occurring in
// id that are not bound inside it, sorted by handle. Results are memoized.
func (in *Interner) FreeParams(id TypeId) []TypeId {
	if id.IsReserved() || id == NoType {
		return nil
	}
	if free, ok := in.freeMemo.Get(id); ok {
		return free
	}
	acc := set.New[TypeId](0)
	switch k := in.Lookup(id).(type) {
	case TypeParamKey, InferKey:
		acc.Insert(id)
	case FunctionKey:
		in.sigFree(in.Signature(k.Sig), acc)
	case CallableKey:
		c := in.CallableShape(k.Shape)
		for _, s := range slices.Concat(c.Calls, c.Constructs) {
			in.sigFree(in.Signature(s), acc)
		}
		in.childrenFree(shapeChildren(c.Members()), acc)
	case MappedKey:
		inner := set.New[TypeId](0)
		in.childrenFree([]TypeId{k.NameType, k.Template}, inner)
		inner.Remove(k.Param)
		acc.InsertSlice(inner.Slice())
		in.childrenFree([]TypeId{k.Constraint}, acc)
	case ConditionalKey:
		infers := set.From(in.InferPlaceholders(k.Extends))
		in.childrenFree([]TypeId{k.Check, k.False}, acc)
		bound := set.New[TypeId](0)
		in.childrenFree([]TypeId{k.Extends, k.True}, bound)
		for v := range bound.Items() {
			if !infers.Contains(v) {
				acc.Insert(v)
			}
		}
	default:
		in.childrenFree(in.Children(id), acc)
	}
	free := acc.Slice()
	slices.Sort(free)
	free, _ = in.freeMemo.LoadOrStore(id, free)
	return free
}

// HasFreeParams reports whether id mentions an unbound type parameter or
// infer placeholder.
func (in *Interner) HasFreeParams(id TypeId) bool {
	return len(in.FreeParams(id)) > 0
}

func (in *Interner) childrenFree(ids []TypeId, acc *set.Set[TypeId]) {
	for _, c := range ids {
		if c != NoType {
			acc.InsertSlice(in.FreeParams(c))
		}
	}
}

func (in *Interner) sigFree(sig Signature, acc *set.Set[TypeId]) {
	inner := set.New[TypeId](0)
	for _, p := range sig.Params {
		in.childrenFree([]TypeId{p.Type}, inner)
	}
	in.childrenFree([]TypeId{sig.This, sig.Return}, inner)
	for _, tp := range sig.TypeParams {
		inner.Remove(tp)
	}
	acc.InsertSlice(inner.Slice())
}

// shapeChildren lists the types referenced by an object shape.
func shapeChildren(s ObjectShape) []TypeId {
	var out []TypeId
	for _, p := range s.Props {
		out = append(out, p.Read)
		if p.Write != NoType {
			out = append(out, p.Write)
		}
	}
	return append(out, s.StringIndex.Value, s.NumberIndex.Value)
}

// InferPlaceholders returns the infer placeholders declared in an extends clause.
func (in *Interner) InferPlaceholders(id TypeId) []TypeId {
	var out []TypeId
	for _, v := range in.FreeParams(id) {
		if in.KindOf(v) == KindInfer {
			out = append(out, v)
		}
	}
	return out
}
