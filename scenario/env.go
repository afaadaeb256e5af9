package scenario

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/cottand/tsolve/internal/log"
	"github.com/cottand/tsolve/solver"
	"github.com/cottand/tsolve/solver/types"
)

var logger = log.DefaultLogger.With("section", "scenario")

// prelude declares the utility types every scenario can use.
const prelude = `
type Partial<T> = { [K in keyof T]?: T[K] };
type Required<T> = { [K in keyof T]-?: T[K] };
type Readonly<T> = { readonly [K in keyof T]: T[K] };
type Pick<T, K extends keyof T> = { [P in K]: T[P] };
type Record<K extends string | number | symbol, T> = { [P in K]: T };
type Exclude<T, U> = T extends U ? never : T;
type Extract<T, U> = T extends U ? T : never;
type Omit<T, K extends string | number | symbol> = { [P in keyof T as P extends K ? never : P]: T[P] };
type NonNullable<T> = T extends null | undefined ? never : T;
type ReturnType<T extends (...args: any[]) => any> = T extends (...args: any[]) => infer R ? R : any;
type Parameters<T extends (...args: any[]) => any> = T extends (...args: infer P) => any ? P : never;
type ElementType<T> = T extends (infer E)[] ? E : never;
`

type enumDecl struct {
	typ     types.TypeId
	members map[string]types.TypeId
}

// Env binds declarations written in a TypeScript-like surface syntax into a
// solver.Session, and lowers type expressions that refer to them.
type Env struct {
	s     *solver.Session
	in    *types.Interner
	names map[string]types.SymbolId
	enums map[string]enumDecl
}

// NewEnv returns an Env over s with the prelude declared.
func NewEnv(s *solver.Session) (*Env, error) {
	e := &Env{
		s:     s,
		in:    s.Interner(),
		names: make(map[string]types.SymbolId),
		enums: make(map[string]enumDecl),
	}
	if err := e.Declare(prelude); err != nil {
		return nil, errors.Wrap(err, "prelude")
	}
	return e, nil
}

func (e *Env) Session() *solver.Session { return e.s }

// ParseType lowers a single type expression.
func (e *Env) ParseType(src string) (types.TypeId, error) {
	toks, err := lex(src)
	if err != nil {
		return types.Error, err
	}
	p := e.newParser(toks)
	id := p.parseType()
	if p.err == nil && !p.atEOF() {
		p.failf("unexpected %s after type", p.peek())
	}
	if p.err != nil {
		return types.Error, p.err
	}
	return id, nil
}

// Declare binds every declaration in src. Declarations may refer to each
// other in any order, except that a base of an interface or class must be
// declared before the declaration extending it.
func (e *Env) Declare(src string) error {
	toks, err := lex(src)
	if err != nil {
		return err
	}
	if err := e.declareNames(toks); err != nil {
		return err
	}
	p := e.newParser(toks)
	for !p.atEOF() {
		p.parseDeclaration()
	}
	return p.err
}

var declKeywords = map[string]bool{"type": true, "interface": true, "class": true, "enum": true}

// declareNames allocates a symbol for every top-level declaration, and binds
// enums completely since their members can be named from anywhere.
func (e *Env) declareNames(toks []token) error {
	depth := 0
	for i := 0; i+1 < len(toks); i++ {
		t := toks[i]
		switch {
		case isText(t, "{"), isText(t, "("), isText(t, "["):
			depth++
		case isText(t, "}"), isText(t, ")"), isText(t, "]"):
			depth--
		case depth == 0 && t.kind == tokIdent && declKeywords[t.text] && toks[i+1].kind == tokIdent:
			name := toks[i+1].text
			if _, ok := e.names[name]; ok {
				return SyntaxError{Pos: toks[i+1].pos, Msg: fmt.Sprintf("%s is declared twice", name)}
			}
			if _, ok := e.enums[name]; ok {
				return SyntaxError{Pos: toks[i+1].pos, Msg: fmt.Sprintf("%s is declared twice", name)}
			}
			if t.text == "enum" {
				p := e.newParser(toks)
				p.pos = i + 1
				e.parseEnum(p)
				if p.err != nil {
					return p.err
				}
				continue
			}
			e.names[name] = e.s.DeclareSymbol(name)
		}
	}
	return nil
}

func (p *parser) parseDeclaration() {
	p.accept("export")
	p.accept("declare")
	p.accept("const")
	tok := p.next()
	switch {
	case isText(tok, "type"):
		p.parseAlias()
	case isText(tok, "interface"):
		p.parseInterface()
	case isText(tok, "class"):
		p.parseClass()
	case isText(tok, "enum"):
		p.skipEnum()
	case isText(tok, ";"):
	default:
		p.failAt(tok.pos, fmt.Sprintf("expected a declaration, found %s", tok))
	}
}

func (p *parser) parseAlias() {
	name := p.ident()
	sym := p.env.names[name]
	var params []types.TypeId
	if p.is("<") {
		params = p.parseTypeParams()
		defer p.scopes.Pop()
	}
	p.expect("=")
	body := p.parseType()
	p.accept(";")
	if p.err == nil {
		p.env.s.Define(sym, solver.Definition{Kind: solver.DefAlias, TypeParams: params, Body: body})
	}
}

func (p *parser) parseInterface() {
	name := p.ident()
	sym := p.env.names[name]
	var params []types.TypeId
	if p.is("<") {
		params = p.parseTypeParams()
		defer p.scopes.Pop()
	}
	var bases []types.TypeId
	if p.accept("extends") {
		bases = append(bases, p.parsePostfix())
		for p.accept(",") {
			bases = append(bases, p.parsePostfix())
		}
	}
	own := p.parseMembers(types.NoSymbol)
	body := p.inherit(name, bases, own)
	if p.err == nil {
		p.env.s.Define(sym, solver.Definition{Kind: solver.DefInterface, TypeParams: params, Body: body})
	}
}

func (p *parser) parseClass() {
	name := p.ident()
	sym := p.env.names[name]
	var params []types.TypeId
	if p.is("<") {
		params = p.parseTypeParams()
		defer p.scopes.Pop()
	}
	var bases []types.TypeId
	if p.accept("extends") {
		bases = append(bases, p.parsePostfix())
	}
	if p.accept("implements") {
		// implemented interfaces constrain the body but add nothing to it
		p.parsePostfix()
		for p.accept(",") {
			p.parsePostfix()
		}
	}
	own := p.parseMembers(sym)
	own.Symbol = sym
	body := p.inherit(name, bases, own)
	if p.err == nil {
		p.env.s.Define(sym, solver.Definition{Kind: solver.DefClass, TypeParams: params, Body: body})
	}
}

// inherit copies the members of bases under the own members of a
// declaration; own members win on a name clash.
func (p *parser) inherit(name string, bases []types.TypeId, own types.CallableShape) types.TypeId {
	if len(bases) == 0 || p.err != nil {
		return p.in.Callable(own)
	}
	var props []types.Property
	for _, base := range bases {
		app := p.env.s.Apparent(base)
		var shape types.ObjectShape
		switch k := p.in.Lookup(app).(type) {
		case types.ObjectKey:
			shape = p.in.Shape(k.Shape)
		case types.CallableKey:
			cs := p.in.CallableShape(k.Shape)
			shape = cs.Members()
			own.Calls = append(cs.Calls, own.Calls...)
			own.Constructs = append(cs.Constructs, own.Constructs...)
		default:
			p.failf("%s cannot extend %s: it is not an object type or is declared later", name, p.env.s.Format(base))
			return types.Error
		}
		props = append(props, shape.Props...)
		if !own.StringIndex.Present() {
			own.StringIndex = shape.StringIndex
		}
		if !own.NumberIndex.Present() {
			own.NumberIndex = shape.NumberIndex
		}
	}
	own.Props = append(props, own.Props...)
	return p.in.Callable(own)
}

// parseEnum binds `enum E { A, B = 5, C = "c" }`. Numeric members without
// an initializer continue from the previous numeric member.
func (e *Env) parseEnum(p *parser) {
	name := p.ident()
	sym := e.s.DeclareSymbol(name)
	decl := enumDecl{members: make(map[string]types.TypeId)}
	var members []types.TypeId
	next := 0.0
	p.expect("{")
	for !p.is("}") && !p.atEOF() {
		member := p.ident()
		value := e.in.LiteralNumber(next)
		if p.accept("=") {
			tok := p.peek()
			switch {
			case tok.kind == tokString:
				p.next()
				value = e.in.LiteralString(tok.text)
			case tok.kind == tokNumber, isText(tok, "-"):
				negative := p.accept("-")
				value = p.number(p.next(), negative)
				if lit, ok := e.in.Lookup(value).(types.LiteralKey); ok && lit.Value.Kind == types.LitNumber {
					next = lit.Value.Number()
				}
			default:
				p.failf("enum initializers must be string or number literals")
				return
			}
		}
		next++
		id := e.in.EnumMember(e.s.DeclareSymbol(member), sym, value)
		decl.members[member] = id
		members = append(members, id)
		if !p.accept(",") {
			break
		}
	}
	p.expect("}")
	decl.typ = e.in.Enum(sym, members...)
	e.enums[name] = decl
	e.s.Define(sym, solver.Definition{Kind: solver.DefEnum, Body: decl.typ})
	logger.Debug("declared enum", "enum", name, "type", types.Slog(e.in, decl.typ))
}

func (p *parser) skipEnum() {
	p.ident()
	for !p.atEOF() && !p.accept("}") {
		p.next()
	}
}
