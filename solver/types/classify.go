package types

// Classification gathers the facets callers commonly ask about a type, so that
// they never need to match on keys themselves. It reflects the canonical node
// only: an Application is reported as such even when its apparent type is an
// object.
type Classification struct {
	Kind      Kind
	Intrinsic Intrinsic

	IsPrimitive     bool
	IsLiteral       bool
	IsUnit          bool
	IsUnion         bool
	IsIntersection  bool
	IsObject        bool
	IsArray         bool
	IsTuple         bool
	IsReadonly      bool
	IsCallable      bool
	IsConstructable bool
	IsApplication   bool
	IsTypeParam     bool
	IsDerived       bool
	IsEnum          bool
	IsNominal       bool
	IsComposite     bool
	IsFresh         bool
}

// Classify computes the Classification of id without evaluating it.
func (in *Interner) Classify(id TypeId) Classification {
	k := in.Lookup(id)
	c := Classification{Kind: k.Kind(), IsDerived: k.Kind().IsDerived()}
	switch k := k.(type) {
	case IntrinsicKey:
		c.Intrinsic = k.Intrinsic
		switch k.Intrinsic {
		case IntrinsicBoolean, IntrinsicNumber, IntrinsicString, IntrinsicBigInt, IntrinsicSymbol:
			c.IsPrimitive = true
		case IntrinsicNull, IntrinsicUndefined, IntrinsicVoid:
			c.IsPrimitive = true
			c.IsUnit = true
		case IntrinsicFunction:
			c.IsCallable = true
		}
	case LiteralKey:
		c.IsPrimitive, c.IsLiteral, c.IsUnit = true, true, true
	case UniqueSymbolKey:
		c.IsPrimitive, c.IsUnit = true, true
	case ArrayKey:
		c.IsArray, c.IsComposite = true, true
	case TupleKey:
		c.IsTuple, c.IsComposite = true, true
	case ReadonlyKey:
		inner := in.Classify(k.Inner)
		c.IsArray, c.IsTuple, c.IsComposite = inner.IsArray, inner.IsTuple, inner.IsComposite
		c.IsTypeParam = inner.IsTypeParam
		c.IsReadonly = true
	case ObjectKey:
		shape := in.Shape(k.Shape)
		c.IsObject, c.IsComposite = true, true
		c.IsFresh = shape.Fresh
		c.IsNominal = shape.Symbol != NoSymbol && shape.HasBrand()
	case FunctionKey:
		sig := in.Signature(k.Sig)
		c.IsComposite = true
		if sig.IsConstructor {
			c.IsConstructable = true
		} else {
			c.IsCallable = true
		}
	case CallableKey:
		shape := in.CallableShape(k.Shape)
		c.IsObject, c.IsComposite = true, true
		c.IsCallable = len(shape.Calls) > 0
		c.IsConstructable = len(shape.Constructs) > 0
		c.IsNominal = shape.Symbol != NoSymbol && shape.Members().HasBrand()
	case UnionKey:
		c.IsUnion, c.IsComposite = true, true
	case IntersectionKey:
		c.IsIntersection, c.IsComposite = true, true
	case ApplicationKey:
		c.IsApplication, c.IsComposite = true, true
	case TypeParamKey, InferKey:
		c.IsTypeParam = true
	case EnumKey:
		c.IsEnum, c.IsNominal = true, true
		c.IsUnit = k.IsMember()
		c.IsLiteral = k.IsMember()
	}
	return c
}
