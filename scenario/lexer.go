package scenario

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokTemplate
	tokPunct
)

type token struct {
	kind tokenKind
	text string
	pos  int
	// template holds the raw pieces of a template literal: even indices are
	// text, odd indices are the sources of interpolated types
	template []string
}

func (t token) String() string {
	switch t.kind {
	case tokEOF:
		return "end of input"
	case tokString:
		return fmt.Sprintf("%q", t.text)
	case tokTemplate:
		return "template literal"
	}
	return "'" + t.text + "'"
}

// SyntaxError is a lexing or parsing failure at byte offset Pos of a
// declaration block or type expression.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d: %s", e.Pos, e.Msg)
}

// multi-character punctuation, longest first
var puncts = []string{"...", "=>", "-?", "+?", "{", "}", "(", ")", "[", "]", "<", ">", ",", ";", ":", "?", "|", "&", "=", ".", "-", "+"}

func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		r, size := utf8.DecodeRuneInString(src[i:])
		switch {
		case unicode.IsSpace(r):
			i += size
		case strings.HasPrefix(src[i:], "//"):
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case isIdentStart(r):
			start := i
			for i < len(src) {
				r, size := utf8.DecodeRuneInString(src[i:])
				if !isIdentStart(r) && !unicode.IsDigit(r) {
					break
				}
				i += size
			}
			toks = append(toks, token{kind: tokIdent, text: src[start:i], pos: start})
		case unicode.IsDigit(r):
			start := i
			for i < len(src) && (isDigitByte(src[i]) || src[i] == '.' || src[i] == '_' || src[i] == 'n' || src[i] == 'e') {
				i++
			}
			toks = append(toks, token{kind: tokNumber, text: src[start:i], pos: start})
		case r == '"' || r == '\'':
			text, n, err := lexString(src[i:], byte(r))
			if err != nil {
				return nil, SyntaxError{Pos: i, Msg: err.Error()}
			}
			toks = append(toks, token{kind: tokString, text: text, pos: i})
			i += n
		case r == '`':
			pieces, n, err := lexTemplate(src[i:])
			if err != nil {
				return nil, SyntaxError{Pos: i, Msg: err.Error()}
			}
			toks = append(toks, token{kind: tokTemplate, pos: i, template: pieces})
			i += n
		default:
			matched := false
			for _, p := range puncts {
				if strings.HasPrefix(src[i:], p) {
					toks = append(toks, token{kind: tokPunct, text: p, pos: i})
					i += len(p)
					matched = true
					break
				}
			}
			if !matched {
				return nil, SyntaxError{Pos: i, Msg: fmt.Sprintf("unexpected character %q", r)}
			}
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(src)}), nil
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isDigitByte(b byte) bool { return b >= '0' && b <= '9' }

// lexString reads a quoted string starting at src[0] and returns its
// unescaped text and the number of bytes consumed.
func lexString(src string, quote byte) (string, int, error) {
	var b strings.Builder
	for i := 1; i < len(src); i++ {
		switch c := src[i]; c {
		case quote:
			return b.String(), i + 1, nil
		case '\\':
			if i+1 == len(src) {
				return "", 0, fmt.Errorf("unterminated string")
			}
			i++
			switch src[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(src[i])
			}
		case '\n':
			return "", 0, fmt.Errorf("newline in string")
		default:
			b.WriteByte(c)
		}
	}
	return "", 0, fmt.Errorf("unterminated string")
}

// lexTemplate splits a template literal into alternating text and hole
// sources. Holes may nest braces.
func lexTemplate(src string) ([]string, int, error) {
	var pieces []string
	var text strings.Builder
	for i := 1; i < len(src); i++ {
		switch {
		case src[i] == '`':
			return append(pieces, text.String()), i + 1, nil
		case src[i] == '\\' && i+1 < len(src):
			i++
			text.WriteByte(src[i])
		case strings.HasPrefix(src[i:], "${"):
			pieces = append(pieces, text.String())
			text.Reset()
			depth := 1
			start := i + 2
			j := start
			for ; j < len(src) && depth > 0; j++ {
				switch src[j] {
				case '{':
					depth++
				case '}':
					depth--
				}
			}
			if depth > 0 {
				return nil, 0, fmt.Errorf("unterminated template hole")
			}
			pieces = append(pieces, src[start:j-1])
			i = j - 1
		default:
			text.WriteByte(src[i])
		}
	}
	return nil, 0, fmt.Errorf("unterminated template literal")
}
