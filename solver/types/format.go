package types

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
)

const maxFormatDepth = 24

// Format renders id in source-like syntax. Union members are ordered by their
// rendering, nullish members last, so output is stable across sessions.
func (in *Interner) Format(id TypeId) string {
	var b strings.Builder
	p := printer{in: in, b: &b}
	p.write(id, 0)
	return b.String()
}

type printer struct {
	in *Interner
	b  *strings.Builder
}

func (p printer) str(s string) { p.b.WriteString(s) }

// needsParens reports whether id must be parenthesised as an array element
// or union member.
func (p printer) needsParens(id TypeId) bool {
	switch p.in.KindOf(id) {
	case KindUnion, KindIntersection, KindFunction, KindConditional:
		return true
	}
	return false
}

func (p printer) writeWrapped(id TypeId, depth int) {
	if p.needsParens(id) {
		p.str("(")
		p.write(id, depth)
		p.str(")")
		return
	}
	p.write(id, depth)
}

func (p printer) write(id TypeId, depth int) {
	if id == NoType {
		p.str("<none>")
		return
	}
	if depth > maxFormatDepth {
		p.str("...")
		return
	}
	depth++
	switch k := p.in.Lookup(id).(type) {
	case IntrinsicKey:
		p.str(k.Intrinsic.String())
	case LiteralKey:
		p.str(k.Value.String())
	case ArrayKey:
		p.writeWrapped(k.Elem, depth)
		p.str("[]")
	case TupleKey:
		p.str("[")
		for i, e := range p.in.TupleElems(k.Elems) {
			if i > 0 {
				p.str(", ")
			}
			if e.Rest {
				p.str("...")
			}
			p.write(e.Type, depth)
			if e.Optional {
				p.str("?")
			}
		}
		p.str("]")
	case ReadonlyKey:
		p.str("readonly ")
		p.write(k.Inner, depth)
	case ObjectKey:
		p.writeMembers(nil, nil, p.in.Shape(k.Shape), depth)
	case FunctionKey:
		p.writeSignature(p.in.Signature(k.Sig), " => ", depth)
	case CallableKey:
		shape := p.in.CallableShape(k.Shape)
		p.writeMembers(shape.Calls, shape.Constructs, shape.Members(), depth)
	case UnionKey:
		p.writeJoined(p.in.List(k.Members), " | ", depth, true)
	case IntersectionKey:
		p.writeJoined(p.in.List(k.Members), " & ", depth, false)
	case TypeParamKey:
		p.str(k.Name)
	case InferKey:
		p.str("infer ")
		p.str(k.Name)
	case RefKey:
		p.str(p.in.SymbolName(k.Symbol))
	case ApplicationKey:
		p.write(k.Base, depth)
		p.str("<")
		p.writeJoined(p.in.List(k.Args), ", ", depth, false)
		p.str(">")
	case UniqueSymbolKey:
		p.str("unique symbol ")
		p.str(p.in.SymbolName(k.Symbol))
	case EnumKey:
		if k.IsMember() {
			p.str(p.in.SymbolName(k.Parent))
			p.str(".")
		}
		p.str(p.in.SymbolName(k.Def))
	case ConditionalKey:
		p.writeWrapped(k.Check, depth)
		p.str(" extends ")
		p.write(k.Extends, depth)
		p.str(" ? ")
		p.write(k.True, depth)
		p.str(" : ")
		p.write(k.False, depth)
	case MappedKey:
		p.writeMapped(k, depth)
	case IndexAccessKey:
		p.writeWrapped(k.Object, depth)
		p.str("[")
		p.write(k.Index, depth)
		p.str("]")
	case KeyOfKey:
		p.str("keyof ")
		p.writeWrapped(k.Operand, depth)
	case TemplateLiteralKey:
		p.str("`")
		for _, s := range p.in.TemplateSpans(k.Spans) {
			if s.IsText() {
				p.str(s.Text)
				continue
			}
			p.str("${")
			p.write(s.Type, depth)
			p.str("}")
		}
		p.str("`")
	case StringIntrinsicKey:
		p.str(k.Op.String())
		p.str("<")
		p.write(k.Arg, depth)
		p.str(">")
	default:
		p.str(fmt.Sprintf("<%v>", k))
	}
}

func nullishRank(id TypeId) int {
	switch id {
	case Null:
		return 1
	case Undefined:
		return 2
	}
	return 0
}

func (p printer) writeJoined(ids []TypeId, sep string, depth int, sorted bool) {
	type part struct {
		id   TypeId
		text string
	}
	parts := make([]part, len(ids))
	for i, id := range ids {
		var b strings.Builder
		sub := printer{in: p.in, b: &b}
		if sep == ", " {
			sub.write(id, depth)
		} else {
			sub.writeWrapped(id, depth)
		}
		parts[i] = part{id, b.String()}
	}
	if sorted {
		slices.SortStableFunc(parts, func(a, b part) int {
			if c := cmp.Compare(nullishRank(a.id), nullishRank(b.id)); c != 0 {
				return c
			}
			return strings.Compare(a.text, b.text)
		})
	}
	for i, part := range parts {
		if i > 0 {
			p.str(sep)
		}
		p.str(part.text)
	}
}

func (p printer) writeSignature(sig Signature, arrow string, depth int) {
	if sig.IsConstructor {
		p.str("new ")
	}
	if len(sig.TypeParams) > 0 {
		p.str("<")
		for i, tp := range sig.TypeParams {
			if i > 0 {
				p.str(", ")
			}
			p.write(tp, depth)
			if info, ok := p.in.params.Get(tp); ok && info.Constraint != NoType {
				p.str(" extends ")
				p.write(info.Constraint, depth)
			}
		}
		p.str(">")
	}
	p.str("(")
	n := 0
	if sig.This != NoType {
		p.str("this: ")
		p.write(sig.This, depth)
		n++
	}
	for _, param := range sig.Params {
		if n > 0 {
			p.str(", ")
		}
		n++
		if param.Rest {
			p.str("...")
		}
		name := param.Name
		if name == "" {
			name = "arg" + strconv.Itoa(n-1)
		}
		p.str(name)
		if param.Optional {
			p.str("?")
		}
		p.str(": ")
		p.write(param.Type, depth)
	}
	p.str(")")
	p.str(arrow)
	p.write(sig.Return, depth)
}

func (p printer) writeMembers(calls, constructs []SignatureId, shape ObjectShape, depth int) {
	var members []string
	sub := func(f func(printer)) string {
		var b strings.Builder
		f(printer{in: p.in, b: &b})
		return b.String()
	}
	for _, s := range calls {
		members = append(members, sub(func(q printer) { q.writeSignature(p.in.Signature(s), ": ", depth) }))
	}
	for _, s := range constructs {
		members = append(members, sub(func(q printer) { q.writeSignature(p.in.Signature(s), ": ", depth) }))
	}
	for _, prop := range shape.Props {
		members = append(members, sub(func(q printer) {
			switch prop.Visibility {
			case Private, Protected:
				q.str(prop.Visibility.String())
				q.str(" ")
			}
			if prop.Readonly {
				q.str("readonly ")
			}
			q.str(prop.Name)
			if prop.Optional {
				q.str("?")
			}
			q.str(": ")
			q.write(prop.Read, depth)
		}))
	}
	index := func(name string, sig IndexSignature) {
		if !sig.Present() {
			return
		}
		members = append(members, sub(func(q printer) {
			if sig.Readonly {
				q.str("readonly ")
			}
			q.str("[x: " + name + "]: ")
			q.write(sig.Value, depth)
		}))
	}
	index("string", shape.StringIndex)
	index("number", shape.NumberIndex)
	if len(members) == 0 {
		p.str("{}")
		return
	}
	p.str("{ ")
	p.str(strings.Join(members, "; "))
	p.str(" }")
}

func modifierPrefix(m Modifier) string {
	if m == ModRemove {
		return "-"
	}
	return ""
}

func (p printer) writeMapped(k MappedKey, depth int) {
	p.str("{ ")
	if k.Readonly != ModPreserve {
		p.str(modifierPrefix(k.Readonly))
		p.str("readonly ")
	}
	p.str("[")
	p.write(k.Param, depth)
	p.str(" in ")
	p.write(k.Constraint, depth)
	if k.NameType != NoType {
		p.str(" as ")
		p.write(k.NameType, depth)
	}
	p.str("]")
	if k.Optional != ModPreserve {
		p.str(modifierPrefix(k.Optional))
		p.str("?")
	}
	p.str(": ")
	p.write(k.Template, depth)
	p.str(" }")
}

type slogType struct {
	in *Interner
	id TypeId
}

func (s slogType) LogValue() slog.Value {
	return slog.StringValue(s.in.Format(s.id))
}

// Slog defers formatting of id until a log record is actually emitted.
func Slog(in *Interner, id TypeId) slog.LogValuer {
	return slogType{in: in, id: id}
}
