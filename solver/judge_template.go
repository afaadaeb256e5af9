package solver

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/cottand/tsolve/solver/types"
)

// stringPattern relates a source to a template literal or string intrinsic
// target. A string literal matches a template when its text can be split
// across the holes, trying every split.
func (r *relation) stringPattern(s, t types.TypeId, sk, tk types.Key) bool {
	in := r.in
	switch tk := tk.(type) {
	case types.TemplateLiteralKey:
		spans := in.TemplateSpans(tk.Spans)
		switch sk := sk.(type) {
		case types.LiteralKey:
			if sk.Value.Kind != types.LitString {
				return false
			}
			return r.matchSpans(sk.Value.Text, spans)
		case types.TemplateLiteralKey:
			return r.spansRelated(in.TemplateSpans(sk.Spans), spans)
		}
	case types.StringIntrinsicKey:
		switch sk := sk.(type) {
		case types.LiteralKey:
			if sk.Value.Kind != types.LitString {
				return false
			}
			return applyStringOp(tk.Op, sk.Value.Text) == sk.Value.Text && r.rec(s, tk.Arg)
		case types.StringIntrinsicKey:
			return sk.Op == tk.Op && r.rec(sk.Arg, tk.Arg)
		}
	}
	return false
}

// spansRelated compares two templates hole by hole when their text agrees.
func (r *relation) spansRelated(s, t []types.TemplateSpan) bool {
	if len(s) != len(t) {
		return false
	}
	for i := range s {
		if s[i].IsText() != t[i].IsText() || s[i].Text != t[i].Text {
			return false
		}
		if !s[i].IsText() && !r.rec(s[i].Type, t[i].Type) {
			return false
		}
	}
	return true
}

func (r *relation) matchSpans(text string, spans []types.TemplateSpan) bool {
	if len(spans) == 0 {
		return text == ""
	}
	head := spans[0]
	if head.IsText() {
		rest, ok := strings.CutPrefix(text, head.Text)
		return ok && r.matchSpans(rest, spans[1:])
	}
	for i := 0; i <= len(text); i++ {
		if !r.q.fuel.consume() {
			r.q.exhausted("template match")
			return false
		}
		if r.holeAccepts(head.Type, text[:i]) && r.matchSpans(text[i:], spans[1:]) {
			return true
		}
	}
	return false
}

// holeAccepts reports whether piece is a value of hole when interpolated.
func (r *relation) holeAccepts(hole types.TypeId, piece string) bool {
	switch hole {
	case types.String, types.Any:
		return true
	case types.Number:
		return isNumericText(piece)
	case types.BigInt:
		_, ok := new(big.Int).SetString(piece, 10)
		return ok
	case types.Boolean:
		return piece == "true" || piece == "false"
	case types.Null:
		return piece == "null"
	case types.Undefined:
		return piece == "undefined"
	}
	switch k := r.in.Lookup(hole).(type) {
	case types.LiteralKey:
		return k.Value.Value() == piece
	case types.UnionKey:
		for _, m := range r.in.List(k.Members) {
			if r.holeAccepts(m, piece) {
				return true
			}
		}
		return false
	}
	return r.rec(r.in.LiteralString(piece), hole)
}

// isNumericText reports whether s round-trips through a number, the way a
// `${number}` hole is matched.
func isNumericText(s string) bool {
	if s == "" || strings.TrimSpace(s) != s {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
