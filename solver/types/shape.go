package types

import (
	"encoding/binary"
	"slices"
	"strings"
)

// Visibility of a class member. Private and protected members make a class
// compare nominally.
type Visibility uint8

const (
	Public Visibility = iota
	Private
	Protected
)

func (v Visibility) String() string {
	switch v {
	case Private:
		return "private"
	case Protected:
		return "protected"
	}
	return "public"
}

// Property is a named member of an object or callable shape. Read and Write
// are tracked independently so accessors with divergent types can be modelled;
// a zero Write means "same as Read".
type Property struct {
	Name       string
	Read       TypeId
	Write      TypeId
	Optional   bool
	Readonly   bool
	Method     bool
	Visibility Visibility
	// Parent is the declaring class, used for brand comparison.
	Parent SymbolId
}

// WriteType returns the type accepted on assignment to the property.
func (p Property) WriteType() TypeId {
	if p.Write == NoType {
		return p.Read
	}
	return p.Write
}

// HasDivergentWrite reports whether the property's setter accepts a type
// different from what its getter returns.
func (p Property) HasDivergentWrite() bool {
	return p.Write != NoType && p.Write != p.Read
}

// IndexSignature is a string or number index signature. A zero Value means absent.
type IndexSignature struct {
	Value    TypeId
	Readonly bool
}

func (s IndexSignature) Present() bool { return s.Value != NoType }

// ObjectShape is the canonical representation of an object type: a property
// list sorted by name with unique names, plus optional index signatures.
type ObjectShape struct {
	Props       []Property
	StringIndex IndexSignature
	NumberIndex IndexSignature
	// Symbol gives class instance types a nominal identity.
	Symbol SymbolId
	// Fresh marks an object literal that has not yet been widened into storage.
	Fresh bool
}

// Prop looks up a property by name using binary search over the sorted list.
func (s ObjectShape) Prop(name string) (Property, bool) {
	i, ok := slices.BinarySearchFunc(s.Props, name, func(p Property, n string) int {
		return strings.Compare(p.Name, n)
	})
	if !ok {
		return Property{}, false
	}
	return s.Props[i], true
}

// IsWeak reports whether every property is optional, there is at least one
// property, and there are no index signatures.
func (s ObjectShape) IsWeak() bool {
	if len(s.Props) == 0 || s.StringIndex.Present() || s.NumberIndex.Present() {
		return false
	}
	for _, p := range s.Props {
		if !p.Optional {
			return false
		}
	}
	return true
}

// HasBrand reports whether the shape declares any private or protected member.
func (s ObjectShape) HasBrand() bool {
	for _, p := range s.Props {
		if p.Visibility != Public {
			return true
		}
	}
	return false
}

// canonical sorts properties by name. On duplicate names the last one wins.
func (s ObjectShape) canonical() ObjectShape {
	props := make([]Property, 0, len(s.Props))
	seen := make(map[string]int, len(s.Props))
	for _, p := range s.Props {
		if p.Write == p.Read {
			p.Write = NoType
		}
		if i, ok := seen[p.Name]; ok {
			props[i] = p
			continue
		}
		seen[p.Name] = len(props)
		props = append(props, p)
	}
	slices.SortFunc(props, func(a, b Property) int { return strings.Compare(a.Name, b.Name) })
	s.Props = props
	return s
}

func (s ObjectShape) fingerprint() string {
	b := make([]byte, 0, 16+len(s.Props)*24)
	b = appendProps(b, s.Props)
	b = binary.AppendUvarint(b, uint64(s.StringIndex.Value))
	b = appendBool(b, s.StringIndex.Readonly)
	b = binary.AppendUvarint(b, uint64(s.NumberIndex.Value))
	b = appendBool(b, s.NumberIndex.Readonly)
	b = binary.AppendUvarint(b, uint64(s.Symbol))
	b = appendBool(b, s.Fresh)
	return string(b)
}

func appendProps(b []byte, props []Property) []byte {
	b = binary.AppendUvarint(b, uint64(len(props)))
	for _, p := range props {
		b = appendString(b, p.Name)
		b = binary.AppendUvarint(b, uint64(p.Read))
		b = binary.AppendUvarint(b, uint64(p.Write))
		b = append(b, flags(p.Optional, p.Readonly, p.Method), byte(p.Visibility))
		b = binary.AppendUvarint(b, uint64(p.Parent))
	}
	return b
}

func appendString(b []byte, s string) []byte {
	b = binary.AppendUvarint(b, uint64(len(s)))
	return append(b, s...)
}

func appendBool(b []byte, v bool) []byte {
	if v {
		return append(b, 1)
	}
	return append(b, 0)
}

func flags(bits ...bool) byte {
	var f byte
	for i, b := range bits {
		if b {
			f |= 1 << i
		}
	}
	return f
}

// Param is a function parameter.
type Param struct {
	Name     string
	Type     TypeId
	Optional bool
	Rest     bool
}

// Signature is a call or construct signature with its own type parameters.
type Signature struct {
	TypeParams []TypeId
	Params     []Param
	// This is the declared `this` type, NoType when absent.
	This          TypeId
	Return        TypeId
	IsMethod      bool
	IsConstructor bool
}

// RestParam returns the rest parameter if the last parameter is one.
func (s Signature) RestParam() (Param, bool) {
	if n := len(s.Params); n > 0 && s.Params[n-1].Rest {
		return s.Params[n-1], true
	}
	return Param{}, false
}

// MinArgs is the number of required leading parameters.
func (s Signature) MinArgs() int {
	n := 0
	for i, p := range s.Params {
		if p.Optional || p.Rest {
			break
		}
		n = i + 1
	}
	return n
}

func (s Signature) fingerprint() string {
	b := make([]byte, 0, 32+len(s.Params)*12)
	b = binary.AppendUvarint(b, uint64(len(s.TypeParams)))
	for _, tp := range s.TypeParams {
		b = binary.AppendUvarint(b, uint64(tp))
	}
	b = binary.AppendUvarint(b, uint64(len(s.Params)))
	for _, p := range s.Params {
		b = appendString(b, p.Name)
		b = binary.AppendUvarint(b, uint64(p.Type))
		b = append(b, flags(p.Optional, p.Rest))
	}
	b = binary.AppendUvarint(b, uint64(s.This))
	b = binary.AppendUvarint(b, uint64(s.Return))
	b = append(b, flags(s.IsMethod, s.IsConstructor))
	return string(b)
}

// CallableShape is an object type with call and/or construct signatures
// (overloads), plus ordinary members.
type CallableShape struct {
	Calls       []SignatureId
	Constructs  []SignatureId
	Props       []Property
	StringIndex IndexSignature
	NumberIndex IndexSignature
	Symbol      SymbolId
}

func (c CallableShape) canonical() CallableShape {
	shape := ObjectShape{Props: c.Props}.canonical()
	c.Props = shape.Props
	return c
}

func (c CallableShape) fingerprint() string {
	b := make([]byte, 0, 32)
	b = binary.AppendUvarint(b, uint64(len(c.Calls)))
	for _, s := range c.Calls {
		b = binary.AppendUvarint(b, uint64(s))
	}
	b = binary.AppendUvarint(b, uint64(len(c.Constructs)))
	for _, s := range c.Constructs {
		b = binary.AppendUvarint(b, uint64(s))
	}
	b = appendProps(b, c.Props)
	b = binary.AppendUvarint(b, uint64(c.StringIndex.Value))
	b = appendBool(b, c.StringIndex.Readonly)
	b = binary.AppendUvarint(b, uint64(c.NumberIndex.Value))
	b = appendBool(b, c.NumberIndex.Readonly)
	b = binary.AppendUvarint(b, uint64(c.Symbol))
	return string(b)
}

// Members returns the callable's members as an ObjectShape for structural lookups.
func (c CallableShape) Members() ObjectShape {
	return ObjectShape{Props: c.Props, StringIndex: c.StringIndex, NumberIndex: c.NumberIndex, Symbol: c.Symbol}
}

// TupleElem is one element of a tuple type.
type TupleElem struct {
	Type     TypeId
	Optional bool
	// Rest marks a `...T[]` or `...T` element; Type is then the spread type.
	Rest bool
}

func tupleFingerprint(elems []TupleElem) string {
	b := make([]byte, 0, len(elems)*6)
	for _, e := range elems {
		b = binary.AppendUvarint(b, uint64(e.Type))
		b = append(b, flags(e.Optional, e.Rest))
	}
	return string(b)
}

// TemplateSpan is one piece of a template literal type: either literal text
// (Type == NoType) or an interpolated type.
type TemplateSpan struct {
	Text string
	Type TypeId
}

func (s TemplateSpan) IsText() bool { return s.Type == NoType }

func templateFingerprint(spans []TemplateSpan) string {
	b := make([]byte, 0, len(spans)*8)
	for _, s := range spans {
		b = appendString(b, s.Text)
		b = binary.AppendUvarint(b, uint64(s.Type))
	}
	return string(b)
}

func listFingerprint(ids []TypeId) string {
	b := make([]byte, 0, len(ids)*3)
	for _, id := range ids {
		b = binary.AppendUvarint(b, uint64(id))
	}
	return string(b)
}

func signatureListFingerprint(ids []SignatureId) string {
	b := make([]byte, 0, len(ids)*3)
	for _, id := range ids {
		b = binary.AppendUvarint(b, uint64(id))
	}
	return string(b)
}
