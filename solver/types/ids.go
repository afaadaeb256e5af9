package types

import "fmt"

// TypeId is an interned handle to a canonical type. Two TypeIds are equal
// if and only if the types they denote are structurally identical.
type TypeId uint32

// NoType marks the absence of a type (e.g. a missing default or constraint).
const NoType TypeId = 0

// Reserved handles. These are the same for every Interner.
const (
	Any TypeId = iota + 1
	Unknown
	Never
	Void
	Null
	Undefined
	Boolean
	Number
	String
	BigInt
	Symbol
	Object
	Function
	// Error is the failure marker. A union containing it collapses to it.
	Error
	True
	False
	EmptyString

	reservedCount
)

// SymbolId identifies a declaration supplied by the binder.
type SymbolId uint32

const NoSymbol SymbolId = 0

// ListId identifies an interned list of TypeIds. 0 is the empty list.
type ListId uint32

// ShapeId identifies an interned ObjectShape.
type ShapeId uint32

// SignatureId identifies an interned Signature.
type SignatureId uint32

// SignatureListId identifies an interned list of signatures. 0 is the empty list.
type SignatureListId uint32

// CallableId identifies an interned CallableShape.
type CallableId uint32

// TupleId identifies an interned list of tuple elements. 0 is the empty tuple.
type TupleId uint32

// TemplateId identifies an interned list of template literal spans.
type TemplateId uint32

// Kind is the tag of a Key.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindIntrinsic
	KindLiteral
	KindArray
	KindTuple
	KindObject
	KindUnion
	KindIntersection
	KindFunction
	KindCallable
	KindTypeParam
	KindInfer
	KindRef
	KindApplication
	KindReadonly
	KindUniqueSymbol
	KindEnum
	KindConditional
	KindMapped
	KindIndexAccess
	KindKeyOf
	KindTemplateLiteral
	KindStringIntrinsic
)

var kindNames = [...]string{
	KindInvalid:         "invalid",
	KindIntrinsic:       "intrinsic",
	KindLiteral:         "literal",
	KindArray:           "array",
	KindTuple:           "tuple",
	KindObject:          "object",
	KindUnion:           "union",
	KindIntersection:    "intersection",
	KindFunction:        "function",
	KindCallable:        "callable",
	KindTypeParam:       "type-parameter",
	KindInfer:           "infer",
	KindRef:             "ref",
	KindApplication:     "application",
	KindReadonly:        "readonly",
	KindUniqueSymbol:    "unique-symbol",
	KindEnum:            "enum",
	KindConditional:     "conditional",
	KindMapped:          "mapped",
	KindIndexAccess:     "indexed-access",
	KindKeyOf:           "keyof",
	KindTemplateLiteral: "template-literal",
	KindStringIntrinsic: "string-intrinsic",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// IsDerived reports whether values of this kind are lazily evaluated type expressions.
func (k Kind) IsDerived() bool {
	switch k {
	case KindConditional, KindMapped, KindIndexAccess, KindKeyOf, KindTemplateLiteral, KindStringIntrinsic:
		return true
	}
	return false
}

// Intrinsic enumerates the built-in primitive and marker types.
type Intrinsic uint8

const (
	IntrinsicAny Intrinsic = iota + 1
	IntrinsicUnknown
	IntrinsicNever
	IntrinsicVoid
	IntrinsicNull
	IntrinsicUndefined
	IntrinsicBoolean
	IntrinsicNumber
	IntrinsicString
	IntrinsicBigInt
	IntrinsicSymbol
	IntrinsicObject
	IntrinsicFunction
	IntrinsicError
)

var intrinsicNames = [...]string{
	IntrinsicAny:       "any",
	IntrinsicUnknown:   "unknown",
	IntrinsicNever:     "never",
	IntrinsicVoid:      "void",
	IntrinsicNull:      "null",
	IntrinsicUndefined: "undefined",
	IntrinsicBoolean:   "boolean",
	IntrinsicNumber:    "number",
	IntrinsicString:    "string",
	IntrinsicBigInt:    "bigint",
	IntrinsicSymbol:    "symbol",
	IntrinsicObject:    "object",
	IntrinsicFunction:  "Function",
	IntrinsicError:     "error",
}

func (i Intrinsic) String() string {
	if int(i) < len(intrinsicNames) && intrinsicNames[i] != "" {
		return intrinsicNames[i]
	}
	return fmt.Sprintf("Intrinsic(%d)", i)
}

// TypeId returns the reserved handle for the intrinsic.
func (i Intrinsic) TypeId() TypeId {
	return TypeId(i)
}

// IntrinsicByName resolves a keyword such as "string" to its reserved handle.
func IntrinsicByName(name string) (TypeId, bool) {
	for i, n := range intrinsicNames {
		if n != "" && n == name {
			return TypeId(i), true
		}
	}
	return NoType, false
}

// IsReserved reports whether id is one of the fixed handles shared by every Interner.
func (id TypeId) IsReserved() bool {
	return id != NoType && id < reservedCount
}

// IsIntrinsic reports whether id denotes an intrinsic type.
func (id TypeId) IsIntrinsic() bool {
	return id >= Any && id <= Error
}
