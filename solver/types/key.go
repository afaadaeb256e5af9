package types

import (
	"math"
	"strconv"
)

// Key is the tagged union of all type shapes. Every variant is a comparable
// struct whose collection payloads are interned separately, so a Key can be
// used directly as a map key for hash-consing.
type Key interface {
	Kind() Kind
	hash() uint64
}

var (
	_ Key = IntrinsicKey{}
	_ Key = LiteralKey{}
	_ Key = ArrayKey{}
	_ Key = TupleKey{}
	_ Key = ObjectKey{}
	_ Key = UnionKey{}
	_ Key = IntersectionKey{}
	_ Key = FunctionKey{}
	_ Key = CallableKey{}
	_ Key = TypeParamKey{}
	_ Key = InferKey{}
	_ Key = RefKey{}
	_ Key = ApplicationKey{}
	_ Key = ReadonlyKey{}
	_ Key = UniqueSymbolKey{}
	_ Key = EnumKey{}
	_ Key = ConditionalKey{}
	_ Key = MappedKey{}
	_ Key = IndexAccessKey{}
	_ Key = KeyOfKey{}
	_ Key = TemplateLiteralKey{}
	_ Key = StringIntrinsicKey{}
)

const (
	fnvOffset uint64 = 14695981039346656037
	fnvPrime  uint64 = 1099511628211
)

// mix is an FNV-1a step over a whole word.
func mix(h uint64, v uint64) uint64 {
	for i := 0; i < 8; i++ {
		h ^= v & 0xff
		h *= fnvPrime
		v >>= 8
	}
	return h
}

func mixString(h uint64, s string) uint64 {
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= fnvPrime
	}
	return mix(h, uint64(len(s)))
}

func mixBool(h uint64, b bool) uint64 {
	if b {
		return mix(h, 1)
	}
	return mix(h, 0)
}

type IntrinsicKey struct{ Intrinsic Intrinsic }

func (IntrinsicKey) Kind() Kind     { return KindIntrinsic }
func (k IntrinsicKey) hash() uint64 { return mix(mix(fnvOffset, uint64(KindIntrinsic)), uint64(k.Intrinsic)) }

// LiteralKind is the value domain of a literal type.
type LiteralKind uint8

const (
	LitString LiteralKind = iota + 1
	LitNumber
	LitBigInt
	LitBoolean
)

// Literal is a literal value. Numbers are stored as IEEE bits so that NaN and
// -0 have a stable identity.
type Literal struct {
	Kind LiteralKind
	Text string
	Bits uint64
}

func StringLiteral(s string) Literal { return Literal{Kind: LitString, Text: s} }

func NumberLiteral(f float64) Literal {
	if f == 0 {
		f = 0 // -0 and 0 are the same literal type
	}
	if math.IsNaN(f) {
		f = math.NaN()
	}
	return Literal{Kind: LitNumber, Bits: math.Float64bits(f)}
}

func BigIntLiteral(decimal string) Literal { return Literal{Kind: LitBigInt, Text: decimal} }

func BooleanLiteral(b bool) Literal {
	if b {
		return Literal{Kind: LitBoolean, Bits: 1}
	}
	return Literal{Kind: LitBoolean}
}

func (l Literal) Number() float64 { return math.Float64frombits(l.Bits) }
func (l Literal) Bool() bool      { return l.Bits != 0 }

// Base is the primitive that the literal widens to.
func (l Literal) Base() TypeId {
	switch l.Kind {
	case LitString:
		return String
	case LitNumber:
		return Number
	case LitBigInt:
		return BigInt
	case LitBoolean:
		return Boolean
	}
	return Error
}

// Value returns the value as it appears when interpolated into a template literal.
func (l Literal) Value() string {
	switch l.Kind {
	case LitString:
		return l.Text
	case LitNumber:
		return formatNumber(l.Number())
	case LitBigInt:
		return l.Text
	case LitBoolean:
		return strconv.FormatBool(l.Bool())
	}
	return ""
}

func (l Literal) String() string {
	switch l.Kind {
	case LitString:
		return strconv.Quote(l.Text)
	case LitBigInt:
		return l.Text + "n"
	}
	return l.Value()
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	if math.Abs(f) < 1e21 && f == math.Trunc(f) {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

type LiteralKey struct{ Value Literal }

func (LiteralKey) Kind() Kind { return KindLiteral }
func (k LiteralKey) hash() uint64 {
	h := mix(mix(fnvOffset, uint64(KindLiteral)), uint64(k.Value.Kind))
	return mix(mixString(h, k.Value.Text), k.Value.Bits)
}

type ArrayKey struct{ Elem TypeId }

func (ArrayKey) Kind() Kind     { return KindArray }
func (k ArrayKey) hash() uint64 { return mix(mix(fnvOffset, uint64(KindArray)), uint64(k.Elem)) }

type TupleKey struct{ Elems TupleId }

func (TupleKey) Kind() Kind     { return KindTuple }
func (k TupleKey) hash() uint64 { return mix(mix(fnvOffset, uint64(KindTuple)), uint64(k.Elems)) }

type ObjectKey struct{ Shape ShapeId }

func (ObjectKey) Kind() Kind     { return KindObject }
func (k ObjectKey) hash() uint64 { return mix(mix(fnvOffset, uint64(KindObject)), uint64(k.Shape)) }

type UnionKey struct{ Members ListId }

func (UnionKey) Kind() Kind     { return KindUnion }
func (k UnionKey) hash() uint64 { return mix(mix(fnvOffset, uint64(KindUnion)), uint64(k.Members)) }

type IntersectionKey struct{ Members ListId }

func (IntersectionKey) Kind() Kind { return KindIntersection }
func (k IntersectionKey) hash() uint64 {
	return mix(mix(fnvOffset, uint64(KindIntersection)), uint64(k.Members))
}

type FunctionKey struct{ Sig SignatureId }

func (FunctionKey) Kind() Kind     { return KindFunction }
func (k FunctionKey) hash() uint64 { return mix(mix(fnvOffset, uint64(KindFunction)), uint64(k.Sig)) }

type CallableKey struct{ Shape CallableId }

func (CallableKey) Kind() Kind     { return KindCallable }
func (k CallableKey) hash() uint64 { return mix(mix(fnvOffset, uint64(KindCallable)), uint64(k.Shape)) }

// TypeParamKey identifies a type parameter. Its constraint and default are
// kept beside the key (see Interner.ParamInfo) so that a constraint may
// mention the parameter itself.
type TypeParamKey struct {
	Name   string
	Symbol SymbolId
	Const  bool
}

func (TypeParamKey) Kind() Kind { return KindTypeParam }
func (k TypeParamKey) hash() uint64 {
	h := mixString(mix(fnvOffset, uint64(KindTypeParam)), k.Name)
	return mixBool(mix(h, uint64(k.Symbol)), k.Const)
}

// InferKey is an `infer X` placeholder inside the extends clause of a conditional type.
type InferKey struct {
	Name   string
	Symbol SymbolId
}

func (InferKey) Kind() Kind { return KindInfer }
func (k InferKey) hash() uint64 {
	return mix(mixString(mix(fnvOffset, uint64(KindInfer)), k.Name), uint64(k.Symbol))
}

// RefKey is a reference to a named declaration resolved through the definition store.
type RefKey struct{ Symbol SymbolId }

func (RefKey) Kind() Kind     { return KindRef }
func (k RefKey) hash() uint64 { return mix(mix(fnvOffset, uint64(KindRef)), uint64(k.Symbol)) }

// ApplicationKey is a generic instance Base<Args>. It is never rewritten into
// its structural form.
type ApplicationKey struct {
	Base TypeId
	Args ListId
}

func (ApplicationKey) Kind() Kind { return KindApplication }
func (k ApplicationKey) hash() uint64 {
	return mix(mix(mix(fnvOffset, uint64(KindApplication)), uint64(k.Base)), uint64(k.Args))
}

type ReadonlyKey struct{ Inner TypeId }

func (ReadonlyKey) Kind() Kind     { return KindReadonly }
func (k ReadonlyKey) hash() uint64 { return mix(mix(fnvOffset, uint64(KindReadonly)), uint64(k.Inner)) }

type UniqueSymbolKey struct{ Symbol SymbolId }

func (UniqueSymbolKey) Kind() Kind { return KindUniqueSymbol }
func (k UniqueSymbolKey) hash() uint64 {
	return mix(mix(fnvOffset, uint64(KindUniqueSymbol)), uint64(k.Symbol))
}

// EnumKey is either an enum type (Def == Parent, Value is the union of its
// members) or an enum member (Parent is the enum, Value is a literal).
type EnumKey struct {
	Def    SymbolId
	Parent SymbolId
	Value  TypeId
}

func (EnumKey) Kind() Kind { return KindEnum }
func (k EnumKey) hash() uint64 {
	h := mix(mix(fnvOffset, uint64(KindEnum)), uint64(k.Def))
	return mix(mix(h, uint64(k.Parent)), uint64(k.Value))
}

// IsMember reports whether the key denotes a single enum member.
func (k EnumKey) IsMember() bool { return k.Def != k.Parent }

type ConditionalKey struct {
	Check, Extends, True, False TypeId
	// Distributive is set when Check was a bare type parameter at construction.
	Distributive bool
}

func (ConditionalKey) Kind() Kind { return KindConditional }
func (k ConditionalKey) hash() uint64 {
	h := mix(mix(fnvOffset, uint64(KindConditional)), uint64(k.Check))
	h = mix(mix(h, uint64(k.Extends)), uint64(k.True))
	return mixBool(mix(h, uint64(k.False)), k.Distributive)
}

// Modifier is a mapped-type `?` or `readonly` modifier.
type Modifier uint8

const (
	ModPreserve Modifier = iota
	ModAdd
	ModRemove
)

type MappedKey struct {
	// Param is the type parameter bound to each key.
	Param      TypeId
	Constraint TypeId
	// NameType is the `as` clause, NoType when absent.
	NameType TypeId
	Template TypeId
	Optional Modifier
	Readonly Modifier
}

func (MappedKey) Kind() Kind { return KindMapped }
func (k MappedKey) hash() uint64 {
	h := mix(mix(fnvOffset, uint64(KindMapped)), uint64(k.Param))
	h = mix(mix(h, uint64(k.Constraint)), uint64(k.NameType))
	h = mix(h, uint64(k.Template))
	return mix(mix(h, uint64(k.Optional)), uint64(k.Readonly))
}

type IndexAccessKey struct{ Object, Index TypeId }

func (IndexAccessKey) Kind() Kind { return KindIndexAccess }
func (k IndexAccessKey) hash() uint64 {
	return mix(mix(mix(fnvOffset, uint64(KindIndexAccess)), uint64(k.Object)), uint64(k.Index))
}

type KeyOfKey struct{ Operand TypeId }

func (KeyOfKey) Kind() Kind     { return KindKeyOf }
func (k KeyOfKey) hash() uint64 { return mix(mix(fnvOffset, uint64(KindKeyOf)), uint64(k.Operand)) }

type TemplateLiteralKey struct{ Spans TemplateId }

func (TemplateLiteralKey) Kind() Kind { return KindTemplateLiteral }
func (k TemplateLiteralKey) hash() uint64 {
	return mix(mix(fnvOffset, uint64(KindTemplateLiteral)), uint64(k.Spans))
}

// StringOp is one of the string manipulation intrinsics.
type StringOp uint8

const (
	OpUppercase StringOp = iota + 1
	OpLowercase
	OpCapitalize
	OpUncapitalize
)

var stringOpNames = [...]string{
	OpUppercase:    "Uppercase",
	OpLowercase:    "Lowercase",
	OpCapitalize:   "Capitalize",
	OpUncapitalize: "Uncapitalize",
}

func (o StringOp) String() string {
	if int(o) < len(stringOpNames) {
		return stringOpNames[o]
	}
	return "StringOp(?)"
}

// StringOpByName resolves "Uppercase" and friends.
func StringOpByName(name string) (StringOp, bool) {
	for i, n := range stringOpNames {
		if n != "" && n == name {
			return StringOp(i), true
		}
	}
	return 0, false
}

type StringIntrinsicKey struct {
	Op  StringOp
	Arg TypeId
}

func (StringIntrinsicKey) Kind() Kind { return KindStringIntrinsic }
func (k StringIntrinsicKey) hash() uint64 {
	return mix(mix(mix(fnvOffset, uint64(KindStringIntrinsic)), uint64(k.Op)), uint64(k.Arg))
}
