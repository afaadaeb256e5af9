package scenario

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cottand/tsolve/solver/types"
	"github.com/cottand/tsolve/util"
)

type scope = map[string]types.TypeId

// parser lowers type expressions straight to interned types. The first
// error sticks: afterwards every production returns types.Error and the
// token stream reads as exhausted.
type parser struct {
	env    *Env
	in     *types.Interner
	toks   []token
	pos    int
	err    error
	scopes *util.Stack[scope]
	// infers collects `infer X` declarations of the extends clause being parsed
	infers scope
}

func (e *Env) newParser(toks []token) *parser {
	return &parser{env: e, in: e.in, toks: toks, scopes: &util.Stack[scope]{}}
}

func (p *parser) peek() token {
	if p.err != nil {
		return token{kind: tokEOF}
	}
	return p.toks[p.pos]
}

func (p *parser) peekAt(n int) token {
	if p.err != nil || p.pos+n >= len(p.toks) {
		return token{kind: tokEOF}
	}
	return p.toks[p.pos+n]
}

func (p *parser) next() token {
	t := p.peek()
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) atEOF() bool { return p.peek().kind == tokEOF }

// is reports whether the next token is the punctuation or keyword text.
func (p *parser) is(text string) bool {
	return isText(p.peek(), text)
}

func isText(t token, text string) bool {
	return (t.kind == tokPunct || t.kind == tokIdent) && t.text == text
}

func (p *parser) accept(text string) bool {
	if p.is(text) {
		p.next()
		return true
	}
	return false
}

func (p *parser) expect(text string) {
	if !p.accept(text) {
		p.failf("expected '%s', found %s", text, p.peek())
	}
}

func (p *parser) ident() string {
	t := p.next()
	if t.kind != tokIdent {
		p.failAt(t.pos, fmt.Sprintf("expected identifier, found %s", t))
		return ""
	}
	return t.text
}

func (p *parser) failf(format string, args ...any) types.TypeId {
	return p.failAt(p.peek().pos, fmt.Sprintf(format, args...))
}

func (p *parser) failAt(pos int, msg string) types.TypeId {
	if p.err == nil {
		p.err = SyntaxError{Pos: pos, Msg: msg}
	}
	return types.Error
}

func (p *parser) lookup(name string) (types.TypeId, bool) {
	for s := range p.scopes.TopDown() {
		if id, ok := s[name]; ok {
			return id, true
		}
	}
	return types.NoType, false
}

func (p *parser) parseType() types.TypeId {
	check := p.parseUnion()
	if !p.is("extends") {
		return check
	}
	p.next()
	outer := p.infers
	p.infers = scope{}
	ext := p.parseUnion()
	p.scopes.Push(p.infers)
	p.infers = outer
	p.expect("?")
	whenTrue := p.parseType()
	p.scopes.Pop()
	p.expect(":")
	whenFalse := p.parseType()
	return p.in.Conditional(check, ext, whenTrue, whenFalse)
}

func (p *parser) parseUnion() types.TypeId {
	p.accept("|")
	members := []types.TypeId{p.parseIntersection()}
	for p.accept("|") {
		members = append(members, p.parseIntersection())
	}
	if len(members) == 1 {
		return members[0]
	}
	return p.in.Union(members...)
}

func (p *parser) parseIntersection() types.TypeId {
	p.accept("&")
	members := []types.TypeId{p.parsePrefix()}
	for p.accept("&") {
		members = append(members, p.parsePrefix())
	}
	if len(members) == 1 {
		return members[0]
	}
	return p.in.Intersection(members...)
}

func (p *parser) parsePrefix() types.TypeId {
	switch {
	case p.accept("keyof"):
		return p.in.KeyOf(p.parsePrefix())
	case p.is("readonly"):
		pos := p.next().pos
		inner := p.parsePrefix()
		switch p.in.KindOf(inner) {
		case types.KindArray, types.KindTuple, types.KindTypeParam:
			return p.in.Readonly(inner)
		}
		return p.failAt(pos, "readonly applies to array and tuple types only")
	case p.is("infer"):
		return p.parseInfer()
	}
	return p.parsePostfix()
}

func (p *parser) parseInfer() types.TypeId {
	pos := p.next().pos
	name := p.ident()
	if p.infers == nil {
		return p.failAt(pos, "infer is only allowed in the extends clause of a conditional type")
	}
	if id, ok := p.infers[name]; ok {
		return id
	}
	id := p.in.Infer(name, p.env.s.DeclareSymbol(name))
	p.infers[name] = id
	return id
}

func (p *parser) parsePostfix() types.TypeId {
	t := p.parsePrimary()
	for p.is("[") {
		p.next()
		if p.accept("]") {
			t = p.in.Array(t)
			continue
		}
		index := p.parseType()
		p.expect("]")
		t = p.in.IndexAccess(t, index)
	}
	return t
}

func (p *parser) parsePrimary() types.TypeId {
	tok := p.peek()
	switch tok.kind {
	case tokString:
		p.next()
		return p.in.LiteralString(tok.text)
	case tokNumber:
		p.next()
		return p.number(tok, false)
	case tokTemplate:
		p.next()
		return p.template(tok)
	case tokEOF:
		return p.failf("expected a type, found %s", tok)
	}
	switch {
	case p.is("-") && p.peekAt(1).kind == tokNumber:
		p.next()
		return p.number(p.next(), true)
	case p.is("("):
		if p.functionAhead() {
			return p.parseFunction(false)
		}
		p.next()
		t := p.parseType()
		p.expect(")")
		return t
	case p.is("<"):
		return p.parseFunction(false)
	case p.is("new") && (isText(p.peekAt(1), "(") || isText(p.peekAt(1), "<")):
		p.next()
		return p.parseFunction(true)
	case p.is("{"):
		return p.parseObject()
	case p.is("["):
		return p.parseTuple()
	case tok.kind == tokIdent:
		return p.parseReference()
	}
	return p.failf("expected a type, found %s", tok)
}

func (p *parser) number(tok token, negative bool) types.TypeId {
	text := strings.ReplaceAll(tok.text, "_", "")
	if strings.HasSuffix(text, "n") {
		text = strings.TrimSuffix(text, "n")
		if negative {
			text = "-" + text
		}
		return p.in.LiteralBigInt(text)
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return p.failAt(tok.pos, fmt.Sprintf("invalid number %s", tok.text))
	}
	if negative {
		f = -f
	}
	return p.in.LiteralNumber(f)
}

func (p *parser) template(tok token) types.TypeId {
	var spans []types.TemplateSpan
	for i, piece := range tok.template {
		if i%2 == 0 {
			if piece != "" {
				spans = append(spans, types.TemplateSpan{Text: piece})
			}
			continue
		}
		toks, err := lex(piece)
		if err != nil {
			return p.failAt(tok.pos, err.Error())
		}
		sub := &parser{env: p.env, in: p.in, toks: toks, scopes: p.scopes, infers: p.infers}
		hole := sub.parseType()
		if sub.err == nil && !sub.atEOF() {
			sub.failf("unexpected %s in template hole", sub.peek())
		}
		if sub.err != nil {
			return p.failAt(tok.pos, sub.err.Error())
		}
		spans = append(spans, types.TemplateSpan{Type: hole})
	}
	return p.in.Template(spans...)
}

// functionAhead reports whether the parenthesis at the cursor opens a
// parameter list, that is whether its match is followed by an arrow.
func (p *parser) functionAhead() bool {
	depth := 0
	for i := p.pos; i < len(p.toks); i++ {
		switch t := p.toks[i]; {
		case isText(t, "("):
			depth++
		case isText(t, ")"):
			depth--
			if depth == 0 {
				return i+1 < len(p.toks) && isText(p.toks[i+1], "=>")
			}
		case t.kind == tokEOF:
			return false
		}
	}
	return false
}

// parseTypeParams reads a type parameter list and pushes a scope holding
// it. The caller pops the scope once the parameters go out of scope.
func (p *parser) parseTypeParams() []types.TypeId {
	p.expect("<")
	s := scope{}
	p.scopes.Push(s)
	var params []types.TypeId
	for !p.is(">") && !p.atEOF() {
		isConst := p.accept("const")
		name := p.ident()
		id := p.in.TypeParam(name, p.env.s.DeclareSymbol(name), types.NoType, types.NoType, isConst)
		s[name] = id
		params = append(params, id)
		var info types.ParamInfo
		if p.accept("extends") {
			info.Constraint = p.parseType()
		}
		if p.accept("=") {
			info.Default = p.parseType()
		}
		if info != (types.ParamInfo{}) {
			p.in.SetParamInfo(id, info)
		}
		if !p.accept(",") {
			break
		}
	}
	p.expect(">")
	return params
}

func (p *parser) parseTypeArgs() []types.TypeId {
	p.expect("<")
	var args []types.TypeId
	for !p.is(">") && !p.atEOF() {
		args = append(args, p.parseType())
		if !p.accept(",") {
			break
		}
	}
	p.expect(">")
	return args
}

// parseSignature reads `<T>(params)` followed by sep and the return type.
func (p *parser) parseSignature(sep string) types.Signature {
	var sig types.Signature
	if p.is("<") {
		sig.TypeParams = p.parseTypeParams()
		defer p.scopes.Pop()
	}
	p.expect("(")
	for !p.is(")") && !p.atEOF() {
		rest := p.accept("...")
		name := p.ident()
		optional := p.accept("?")
		typ := types.Any
		if p.accept(":") {
			typ = p.parseType()
		}
		if name == "this" {
			sig.This = typ
		} else {
			sig.Params = append(sig.Params, types.Param{Name: name, Type: typ, Optional: optional, Rest: rest})
		}
		if !p.accept(",") {
			break
		}
	}
	p.expect(")")
	p.expect(sep)
	sig.Return = p.parseType()
	return sig
}

func (p *parser) parseFunction(constructor bool) types.TypeId {
	sig := p.parseSignature("=>")
	sig.IsConstructor = constructor
	return p.in.Function(sig)
}

func (p *parser) parseTuple() types.TypeId {
	p.expect("[")
	var elems []types.TupleElem
	for !p.is("]") && !p.atEOF() {
		var e types.TupleElem
		e.Rest = p.accept("...")
		// labels carry no meaning beyond their optional marker
		if p.peek().kind == tokIdent && isText(p.peekAt(1), ":") {
			p.next()
			p.next()
		} else if p.peek().kind == tokIdent && isText(p.peekAt(1), "?") && isText(p.peekAt(2), ":") {
			p.next()
			p.next()
			p.next()
			e.Optional = true
		}
		e.Type = p.parseType()
		if p.accept("?") {
			e.Optional = true
		}
		elems = append(elems, e)
		if !p.accept(",") {
			break
		}
	}
	p.expect("]")
	return p.in.Tuple(elems...)
}

func (p *parser) parseReference() types.TypeId {
	tok := p.next()
	name := tok.text
	switch name {
	case "true":
		return types.True
	case "false":
		return types.False
	}
	if p.accept(".") {
		member := p.ident()
		enum, ok := p.env.enums[name]
		if !ok {
			return p.failAt(tok.pos, fmt.Sprintf("unknown enum %s", name))
		}
		id, ok := enum.members[member]
		if !ok {
			return p.failAt(tok.pos, fmt.Sprintf("enum %s has no member %s", name, member))
		}
		return id
	}
	var args []types.TypeId
	if p.is("<") {
		args = p.parseTypeArgs()
	}
	arity := func(n int) bool {
		if len(args) != n {
			p.failAt(tok.pos, fmt.Sprintf("%s takes %d type argument(s), got %d", name, n, len(args)))
			return false
		}
		return true
	}

	if id, ok := p.lookup(name); ok {
		if len(args) > 0 {
			return p.failAt(tok.pos, fmt.Sprintf("type parameter %s takes no type arguments", name))
		}
		return id
	}
	if enum, ok := p.env.enums[name]; ok {
		return enum.typ
	}
	if id, ok := types.IntrinsicByName(name); ok && len(args) == 0 {
		return id
	}
	if op, ok := types.StringOpByName(name); ok {
		if !arity(1) {
			return types.Error
		}
		return p.in.StringIntrinsic(op, args[0])
	}
	switch name {
	case "Array":
		if !arity(1) {
			return types.Error
		}
		return p.in.Array(args[0])
	case "ReadonlyArray":
		if !arity(1) {
			return types.Error
		}
		return p.in.Readonly(p.in.Array(args[0]))
	}
	if sym, ok := p.env.names[name]; ok {
		return p.in.Application(p.in.Ref(sym), args...)
	}
	return p.failAt(tok.pos, fmt.Sprintf("unknown type %s", name))
}

func (p *parser) parseObject() types.TypeId {
	if p.mappedAhead() {
		return p.parseMapped()
	}
	c := p.parseMembers(types.NoSymbol)
	return p.in.Callable(c)
}

// mappedAhead reports whether the brace at the cursor opens a mapped type:
// `{ [K in`, optionally with a readonly modifier.
func (p *parser) mappedAhead() bool {
	i := 1
	if isText(p.peekAt(i), "+") || isText(p.peekAt(i), "-") {
		i++
	}
	if isText(p.peekAt(i), "readonly") {
		i++
	}
	return isText(p.peekAt(i), "[") && p.peekAt(i+1).kind == tokIdent && isText(p.peekAt(i+2), "in")
}

func (p *parser) parseMapped() types.TypeId {
	p.expect("{")
	k := types.MappedKey{}
	switch {
	case p.accept("+"):
		p.expect("readonly")
		k.Readonly = types.ModAdd
	case p.accept("-"):
		p.expect("readonly")
		k.Readonly = types.ModRemove
	case p.accept("readonly"):
		k.Readonly = types.ModAdd
	}
	p.expect("[")
	name := p.ident()
	p.expect("in")
	k.Constraint = p.parseType()
	k.Param = p.in.TypeParam(name, p.env.s.DeclareSymbol(name), types.NoType, types.NoType, false)
	p.scopes.Push(scope{name: k.Param})
	defer p.scopes.Pop()
	if p.accept("as") {
		k.NameType = p.parseType()
	}
	p.expect("]")
	switch {
	case p.accept("?"), p.accept("+?"):
		k.Optional = types.ModAdd
	case p.accept("-?"):
		k.Optional = types.ModRemove
	}
	p.expect(":")
	k.Template = p.parseType()
	p.accept(";")
	p.expect("}")
	return p.in.Mapped(k)
}

// parseMembers reads a braced member list. Members of a class carry its
// symbol as the declaring parent of their private and protected members.
func (p *parser) parseMembers(class types.SymbolId) types.CallableShape {
	var c types.CallableShape
	p.expect("{")
	for !p.is("}") && !p.atEOF() {
		if p.accept(";") || p.accept(",") {
			continue
		}
		p.parseMember(&c, class)
	}
	p.expect("}")
	return c
}

func (p *parser) parseMember(c *types.CallableShape, class types.SymbolId) {
	switch {
	case p.is("(") || p.is("<"):
		c.Calls = append(c.Calls, p.in.InternSignature(p.parseSignature(":")))
		return
	case p.is("new") && (isText(p.peekAt(1), "(") || isText(p.peekAt(1), "<")):
		p.next()
		sig := p.parseSignature(":")
		sig.IsConstructor = true
		c.Constructs = append(c.Constructs, p.in.InternSignature(sig))
		return
	}

	var prop types.Property
	for p.modifierAhead() {
		switch p.next().text {
		case "readonly":
			prop.Readonly = true
		case "private":
			prop.Visibility = types.Private
		case "protected":
			prop.Visibility = types.Protected
		}
	}
	if p.is("[") && p.peekAt(1).kind == tokIdent && isText(p.peekAt(2), ":") {
		p.next()
		p.next()
		p.next()
		keyPos := p.peek().pos
		key := p.ident()
		p.expect("]")
		p.expect(":")
		sig := types.IndexSignature{Value: p.parseType(), Readonly: prop.Readonly}
		switch key {
		case "string":
			c.StringIndex = sig
		case "number":
			c.NumberIndex = sig
		default:
			p.failAt(keyPos, "index signature keys must be string or number")
		}
		return
	}

	tok := p.next()
	switch tok.kind {
	case tokIdent, tokString, tokNumber:
		prop.Name = tok.text
	default:
		p.failAt(tok.pos, fmt.Sprintf("expected a member name, found %s", tok))
		return
	}
	prop.Optional = p.accept("?")
	if prop.Visibility != types.Public {
		prop.Parent = class
	}
	if p.is("(") || p.is("<") {
		sig := p.parseSignature(":")
		sig.IsMethod = true
		prop.Method = true
		prop.Read = p.in.Function(sig)
	} else {
		p.expect(":")
		prop.Read = p.parseType()
	}
	c.Props = append(c.Props, prop)
}

// modifierAhead reports whether the next token is a member modifier rather
// than a member that happens to be named like one.
func (p *parser) modifierAhead() bool {
	switch p.peek().text {
	case "readonly", "private", "protected", "public":
	default:
		return false
	}
	if p.peek().kind != tokIdent {
		return false
	}
	next := p.peekAt(1)
	return next.kind == tokIdent || next.kind == tokString || isText(next, "[")
}
