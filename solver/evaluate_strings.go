package solver

import (
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/cottand/tsolve/solver/types"
)

// evalTemplate expands a template literal whose holes are unions of
// literals into the union of every combination. Past the cardinality cap
// the result is string.
func (q *query) evalTemplate(id types.TypeId, k types.TemplateLiteralKey) types.TypeId {
	in := q.in
	spans := in.TemplateSpans(k.Spans)
	choices := make([][]string, len(spans))
	evaluated := make([]types.TemplateSpan, len(spans))
	enumerable := true
	total := 1
	for i, s := range spans {
		if s.IsText() {
			choices[i] = []string{s.Text}
			evaluated[i] = s
			continue
		}
		t := q.evaluate(s.Type)
		evaluated[i] = types.TemplateSpan{Type: t}
		if t == types.Never {
			return types.Never
		}
		texts, ok := q.holeTexts(t)
		if !ok {
			enumerable = false
			continue
		}
		choices[i] = texts
		total *= len(texts)
		if total > q.s.cfg.TemplateCardinalityCap {
			evalLogger.Debug("template literal over cardinality cap", "type", types.Slog(in, id), "cap", q.s.cfg.TemplateCardinalityCap)
			return types.String
		}
	}
	if !enumerable {
		return in.Template(evaluated...)
	}
	out := make([]types.TypeId, 0, total)
	var walk func(i int, prefix string)
	walk = func(i int, prefix string) {
		if i == len(choices) {
			out = append(out, in.LiteralString(prefix))
			return
		}
		for _, c := range choices[i] {
			walk(i+1, prefix+c)
		}
	}
	walk(0, "")
	return in.Union(out...)
}

// holeTexts lists the texts a hole can interpolate, if it is a finite set.
func (q *query) holeTexts(hole types.TypeId) ([]string, bool) {
	members := q.members(hole)
	out := make([]string, 0, len(members))
	for _, m := range members {
		switch m {
		case types.Null:
			out = append(out, "null")
			continue
		case types.Undefined:
			out = append(out, "undefined")
			continue
		case types.Boolean:
			out = append(out, "false", "true")
			continue
		}
		switch k := q.in.Lookup(m).(type) {
		case types.LiteralKey:
			out = append(out, k.Value.Value())
		case types.EnumKey:
			texts, ok := q.holeTexts(k.Value)
			if !ok {
				return nil, false
			}
			out = append(out, texts...)
		default:
			return nil, false
		}
	}
	return out, true
}

// evalStringIntrinsic applies Uppercase, Lowercase, Capitalize or
// Uncapitalize, distributing over unions. Applied to string or a pattern
// it stays symbolic.
func (q *query) evalStringIntrinsic(id types.TypeId, k types.StringIntrinsicKey) types.TypeId {
	in := q.in
	arg := q.evaluate(k.Arg)
	if q.unresolved(arg) {
		return id
	}
	switch arg {
	case types.Never:
		return types.Never
	case types.Any:
		return types.Any
	case types.String:
		return in.StringIntrinsic(k.Op, arg)
	}
	switch ak := in.Lookup(arg).(type) {
	case types.UnionKey:
		members := in.List(ak.Members)
		out := make([]types.TypeId, len(members))
		for i, m := range members {
			out[i] = q.evaluate(in.StringIntrinsic(k.Op, m))
		}
		return in.Union(out...)
	case types.LiteralKey:
		if ak.Value.Kind != types.LitString {
			return types.Error
		}
		return in.LiteralString(applyStringOp(k.Op, ak.Value.Text))
	case types.TemplateLiteralKey, types.StringIntrinsicKey:
		return in.StringIntrinsic(k.Op, arg)
	}
	return types.Error
}

// applyStringOp applies op to s. Casers are stateful, so one is built per
// call.
func applyStringOp(op types.StringOp, s string) string {
	switch op {
	case types.OpUppercase:
		return cases.Upper(language.Und).String(s)
	case types.OpLowercase:
		return cases.Lower(language.Und).String(s)
	case types.OpCapitalize:
		r, size := utf8.DecodeRuneInString(s)
		if size == 0 {
			return s
		}
		return cases.Upper(language.Und).String(string(r)) + s[size:]
	case types.OpUncapitalize:
		r, size := utf8.DecodeRuneInString(s)
		if size == 0 {
			return s
		}
		return cases.Lower(language.Und).String(string(r)) + s[size:]
	}
	return s
}
