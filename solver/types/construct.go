package types

import "strings"

func (in *Interner) Literal(l Literal) TypeId { return in.Intern(LiteralKey{Value: l}) }

func (in *Interner) LiteralString(s string) TypeId { return in.Literal(StringLiteral(s)) }

func (in *Interner) LiteralNumber(f float64) TypeId { return in.Literal(NumberLiteral(f)) }

func (in *Interner) LiteralBigInt(decimal string) TypeId { return in.Literal(BigIntLiteral(decimal)) }

func (in *Interner) LiteralBool(b bool) TypeId {
	if b {
		return True
	}
	return False
}

func (in *Interner) Array(elem TypeId) TypeId { return in.Intern(ArrayKey{Elem: elem}) }

func (in *Interner) Tuple(elems ...TupleElem) TypeId {
	return in.Intern(TupleKey{Elems: in.InternTuple(elems)})
}

// TupleOf builds a tuple of required elements.
func (in *Interner) TupleOf(ids ...TypeId) TypeId {
	elems := make([]TupleElem, len(ids))
	for i, id := range ids {
		elems[i] = TupleElem{Type: id}
	}
	return in.Tuple(elems...)
}

func (in *Interner) Object(shape ObjectShape) TypeId {
	return in.Intern(ObjectKey{Shape: in.InternShape(shape)})
}

// FreshObject builds the type of an object literal, subject to excess property checks.
func (in *Interner) FreshObject(props ...Property) TypeId {
	return in.Object(ObjectShape{Props: props, Fresh: true})
}

// ObjectOf builds a plain object type from properties.
func (in *Interner) ObjectOf(props ...Property) TypeId {
	return in.Object(ObjectShape{Props: props})
}

func (in *Interner) Function(sig Signature) TypeId {
	return in.Intern(FunctionKey{Sig: in.InternSignature(sig)})
}

// Callable builds an object type with signatures. A shape with a single call
// signature and no members is the same type as the plain function.
func (in *Interner) Callable(c CallableShape) TypeId {
	if len(c.Calls) == 1 && len(c.Constructs) == 0 && len(c.Props) == 0 &&
		!c.StringIndex.Present() && !c.NumberIndex.Present() && c.Symbol == NoSymbol {
		return in.Intern(FunctionKey{Sig: c.Calls[0]})
	}
	if len(c.Calls) == 0 && len(c.Constructs) == 0 {
		return in.Object(c.Members())
	}
	return in.Intern(CallableKey{Shape: in.InternCallable(c)})
}

// TypeParam interns a type parameter and records its bounds. A NoType
// constraint means unconstrained.
func (in *Interner) TypeParam(name string, sym SymbolId, constraint, def TypeId, isConst bool) TypeId {
	id := in.Intern(TypeParamKey{Name: name, Symbol: sym, Const: isConst})
	if constraint != NoType || def != NoType {
		in.SetParamInfo(id, ParamInfo{Constraint: constraint, Default: def})
	}
	return id
}

func (in *Interner) Infer(name string, sym SymbolId) TypeId {
	return in.Intern(InferKey{Name: name, Symbol: sym})
}

func (in *Interner) Ref(sym SymbolId) TypeId { return in.Intern(RefKey{Symbol: sym}) }

// Application builds base<args>. With no arguments it is base itself.
func (in *Interner) Application(base TypeId, args ...TypeId) TypeId {
	if len(args) == 0 {
		return base
	}
	return in.Intern(ApplicationKey{Base: base, Args: in.InternList(args)})
}

// Readonly wraps an array or tuple. Other types are returned unchanged.
func (in *Interner) Readonly(inner TypeId) TypeId {
	switch in.KindOf(inner) {
	case KindArray, KindTuple, KindTypeParam:
		return in.Intern(ReadonlyKey{Inner: inner})
	}
	return inner
}

func (in *Interner) UniqueSymbol(sym SymbolId) TypeId { return in.Intern(UniqueSymbolKey{Symbol: sym}) }

// Enum builds an enum type whose value is the union of its member types.
func (in *Interner) Enum(def SymbolId, members ...TypeId) TypeId {
	return in.Intern(EnumKey{Def: def, Parent: def, Value: in.Union(members...)})
}

// EnumMember builds a member of enum parent carrying a literal value.
func (in *Interner) EnumMember(def, parent SymbolId, value TypeId) TypeId {
	return in.Intern(EnumKey{Def: def, Parent: parent, Value: value})
}

// Conditional builds check extends ext ? t : f. It distributes over unions
// when check is a bare type parameter.
func (in *Interner) Conditional(check, ext, t, f TypeId) TypeId {
	return in.Intern(ConditionalKey{
		Check: check, Extends: ext, True: t, False: f,
		Distributive: in.KindOf(check) == KindTypeParam,
	})
}

func (in *Interner) Mapped(k MappedKey) TypeId { return in.Intern(k) }

func (in *Interner) IndexAccess(object, index TypeId) TypeId {
	return in.Intern(IndexAccessKey{Object: object, Index: index})
}

func (in *Interner) KeyOf(operand TypeId) TypeId { return in.Intern(KeyOfKey{Operand: operand}) }

// TemplateLiteral builds a template literal type. Literal interpolations are
// folded into the text, and a template with no remaining holes is a string
// literal.
func (in *Interner) TemplateLiteral(spans ...TemplateSpan) TemplateId {
	var out []TemplateSpan
	var text strings.Builder
	flush := func() {
		if text.Len() > 0 {
			out = append(out, TemplateSpan{Text: text.String()})
			text.Reset()
		}
	}
	for _, s := range spans {
		if s.IsText() {
			text.WriteString(s.Text)
			continue
		}
		if lit, ok := in.Lookup(s.Type).(LiteralKey); ok {
			text.WriteString(lit.Value.Value())
			continue
		}
		flush()
		out = append(out, s)
	}
	flush()
	return in.InternTemplate(out)
}

// Template builds the type for spans, collapsing to a literal, string or
// never where possible.
func (in *Interner) Template(spans ...TemplateSpan) TypeId {
	id := in.TemplateLiteral(spans...)
	canon := in.TemplateSpans(id)
	switch {
	case len(canon) == 0:
		return EmptyString
	case len(canon) == 1 && canon[0].IsText():
		return in.LiteralString(canon[0].Text)
	case len(canon) == 1 && canon[0].Type == String:
		return String
	}
	for _, s := range canon {
		if s.Type == Never {
			return Never
		}
	}
	return in.Intern(TemplateLiteralKey{Spans: id})
}

func (in *Interner) StringIntrinsic(op StringOp, arg TypeId) TypeId {
	return in.Intern(StringIntrinsicKey{Op: op, Arg: arg})
}
