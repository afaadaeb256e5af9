package solver

import (
	"slices"
	"strconv"
	"strings"

	"github.com/hashicorp/go-set/v3"

	"github.com/cottand/tsolve/solver/tserr"
	"github.com/cottand/tsolve/solver/types"
)

// Priority ranks inference candidates. Lower values are tried first.
type Priority uint8

const (
	// PriorityArgument is for candidates from call arguments.
	PriorityArgument Priority = iota
	// PriorityContextual is for candidates from the contextual return type.
	PriorityContextual
)

// InferenceSite relates a type mentioning the parameters being inferred
// (Target) to a concrete type (Source). Variance is the variance of the
// site: covariant sites, where Source flows into Target, give lower bounds;
// contravariant sites give upper bounds.
type InferenceSite struct {
	Target   types.TypeId
	Source   types.TypeId
	Variance Variance
	Priority Priority
}

// InferenceResult binds every inferred parameter. Errors are non-fatal: a
// parameter that could not be inferred, or whose inference broke its
// constraint, is bound to a fallback and reported here.
type InferenceResult struct {
	Subst  Substitution
	Errors []tserr.SolverError
}

// Infer solves params from sites. contextual, when not nil, is the site
// relating the generic's return type to the type expected at the call; its
// candidates rank below argument candidates.
func (s *Session) Infer(params []types.TypeId, sites []InferenceSite, contextual *InferenceSite) InferenceResult {
	q := s.newQuery()
	c := q.newCollector(params)
	for _, site := range sites {
		c.infer(site.Target, site.Source, site.Variance, site.Priority)
	}
	if contextual != nil {
		c.infer(contextual.Target, contextual.Source, Covariant, PriorityContextual)
	}
	res := c.resolveAll()
	for _, err := range res.Errors {
		s.report(err)
	}
	return res
}

// InferCall infers the type arguments of a call to fn with the given
// argument types and returns fn's signature instantiated with them, as a
// function type. contextual may be NoType.
func (s *Session) InferCall(fn types.TypeId, args []types.TypeId, contextual types.TypeId) (types.TypeId, InferenceResult) {
	q := s.newQuery()
	sig, ok := q.callSignature(fn)
	if !ok || len(sig.TypeParams) == 0 {
		return fn, InferenceResult{Subst: NewSubstitution()}
	}
	c := q.newCollector(sig.TypeParams)
	c.arguments(sig, args, types.NoType, Covariant, PriorityArgument)
	if contextual != types.NoType {
		c.infer(sig.Return, contextual, Covariant, PriorityContextual)
	}
	res := c.resolveAll()
	for _, err := range res.Errors {
		s.report(err)
	}
	sig.TypeParams = nil
	out := s.in.Function(q.substituteSignature(sig, res.Subst))
	genericsLogger.Debug("inferred call", "fn", types.Slog(s.in, fn), "result", types.Slog(s.in, out))
	return out, res
}

// callSignature picks the signature a call resolves against: the function's
// own, or the last call signature of a callable.
func (q *query) callSignature(fn types.TypeId) (types.Signature, bool) {
	id := q.evaluate(fn)
	if e, ok := q.expand(id); ok {
		id = e
	}
	switch k := q.in.Lookup(id).(type) {
	case types.FunctionKey:
		return q.in.Signature(k.Sig), true
	case types.CallableKey:
		c := q.in.CallableShape(k.Shape)
		if n := len(c.Calls); n > 0 {
			return q.in.Signature(c.Calls[n-1]), true
		}
	}
	return types.Signature{}, false
}

type candidate struct {
	typ      types.TypeId
	priority Priority
}

type candidates struct {
	co, contra []candidate
}

type inferVisit struct {
	target, source types.TypeId
	variance       Variance
}

// collector gathers candidates for a fixed set of parameters by walking a
// target type and a source type in parallel.
type collector struct {
	q       *query
	in      *types.Interner
	params  []types.TypeId
	inScope *set.Set[types.TypeId]
	cands   map[types.TypeId]*candidates
	visited *set.Set[inferVisit]
	// literal keeps literal candidates as they are, as infer placeholders do.
	literal bool
}

func (q *query) newCollector(params []types.TypeId) *collector {
	q.s.counters.inferences.Add(1)
	return &collector{
		q:       q,
		in:      q.in,
		params:  params,
		inScope: set.From(params),
		cands:   make(map[types.TypeId]*candidates, len(params)),
		visited: set.New[inferVisit](0),
	}
}

func (c *collector) add(param, source types.TypeId, v Variance, prio Priority) {
	cs := c.cands[param]
	if cs == nil {
		cs = &candidates{}
		c.cands[param] = cs
	}
	cand := candidate{typ: source, priority: prio}
	switch v {
	case Covariant, Bivariant:
		cs.co = append(cs.co, cand)
	case Contravariant:
		cs.contra = append(cs.contra, cand)
	case Invariant:
		cs.co = append(cs.co, cand)
		cs.contra = append(cs.contra, cand)
	}
}

// mentions reports whether target refers to a parameter being inferred.
func (c *collector) mentions(target types.TypeId) bool {
	for _, p := range c.in.FreeParams(target) {
		if c.inScope.Contains(p) {
			return true
		}
	}
	return false
}

func (c *collector) infer(target, source types.TypeId, v Variance, prio Priority) {
	if target == types.NoType || source == types.NoType || v == Independent {
		return
	}
	if c.inScope.Contains(target) {
		c.add(target, source, v, prio)
		return
	}
	if !c.mentions(target) {
		return
	}
	visit := inferVisit{target: target, source: source, variance: v}
	if c.visited.Contains(visit) {
		return
	}
	c.visited.Insert(visit)
	if !c.q.fuel.consume() {
		c.q.exhausted("inference")
		return
	}
	if !c.q.fuel.enter() {
		c.q.exhausted("inference")
		return
	}
	defer c.q.fuel.leave()
	c.inferImpl(target, source, v, prio)
}

func (c *collector) inferImpl(target, source types.TypeId, v Variance, prio Priority) {
	in := c.in
	source = c.q.evaluate(source)
	switch tk := in.Lookup(target).(type) {
	case types.UnionKey:
		c.union(in.List(tk.Members), source, v, prio)
		return
	case types.IntersectionKey:
		for _, m := range in.List(tk.Members) {
			c.infer(m, source, v, prio)
		}
		return
	case types.ConditionalKey:
		c.infer(tk.True, source, v, prio)
		c.infer(tk.False, source, v, prio)
		return
	case types.ApplicationKey:
		if sk, ok := in.Lookup(source).(types.ApplicationKey); ok && sk.Base == tk.Base {
			targs, sargs := in.List(tk.Args), in.List(sk.Args)
			for i := range min(len(targs), len(sargs)) {
				c.infer(targs[i], sargs[i], v, prio)
			}
			return
		}
		if e, ok := c.q.expand(target); ok {
			c.infer(e, c.structural(source), v, prio)
		}
		return
	case types.RefKey:
		if e, ok := c.q.expand(target); ok {
			c.infer(e, c.structural(source), v, prio)
		}
		return
	case types.ReadonlyKey:
		if sk, ok := in.Lookup(source).(types.ReadonlyKey); ok {
			source = sk.Inner
		}
		c.infer(tk.Inner, source, v, prio)
		return
	case types.TemplateLiteralKey:
		c.template(in.TemplateSpans(tk.Spans), source, v, prio)
		return
	case types.MappedKey:
		c.mapped(tk, source, v, prio)
		return
	}
	source = c.structural(source)
	switch tk := in.Lookup(target).(type) {
	case types.ArrayKey:
		if elem, ok := c.elementOf(source); ok {
			c.infer(tk.Elem, elem, v, prio)
		}
	case types.TupleKey:
		c.tuple(in.TupleElems(tk.Elems), source, v, prio)
	case types.FunctionKey:
		if sig, ok := c.q.callSignature(source); ok {
			c.signature(in.Signature(tk.Sig), sig, v, prio)
		}
	case types.ObjectKey, types.CallableKey:
		c.object(target, source, v, prio)
	}
}

// structural unfolds references of the source so it can be matched
// against a structural target.
func (c *collector) structural(source types.TypeId) types.TypeId {
	for range c.q.s.cfg.MaxExpansionDepth {
		switch c.in.KindOf(source) {
		case types.KindRef, types.KindApplication:
			e, ok := c.q.expand(source)
			if !ok {
				return source
			}
			source = c.q.evaluate(e)
		default:
			return source
		}
	}
	return source
}

// union infers to a union target. Source members identical to a fixed
// target member are matched off; what remains goes to the single naked
// parameter, if there is one, and to every other member mentioning a
// parameter.
func (c *collector) union(members []types.TypeId, source types.TypeId, v Variance, prio Priority) {
	var naked []types.TypeId
	var fixed, nested []types.TypeId
	for _, m := range members {
		switch {
		case c.inScope.Contains(m):
			naked = append(naked, m)
		case c.mentions(m):
			nested = append(nested, m)
		default:
			fixed = append(fixed, m)
		}
	}
	sources := []types.TypeId{source}
	if u, ok := c.in.Lookup(source).(types.UnionKey); ok {
		sources = c.in.List(u.Members)
	}
	remaining := make([]types.TypeId, 0, len(sources))
	for _, s := range sources {
		if !slices.Contains(fixed, s) {
			remaining = append(remaining, s)
		}
	}
	if len(remaining) == 0 {
		return
	}
	rest := c.in.Union(remaining...)
	for _, m := range nested {
		c.infer(m, rest, v, prio)
	}
	if len(naked) == 1 {
		c.infer(naked[0], rest, v, prio)
	}
}

// elementOf is the element type of an array-like source.
func (c *collector) elementOf(source types.TypeId) (types.TypeId, bool) {
	in := c.in
	switch k := in.Lookup(source).(type) {
	case types.ArrayKey:
		return k.Elem, true
	case types.ReadonlyKey:
		return c.elementOf(k.Inner)
	case types.TupleKey:
		elems := in.TupleElems(k.Elems)
		out := make([]types.TypeId, 0, len(elems))
		for _, e := range elems {
			if e.Rest {
				if elem, ok := c.elementOf(e.Type); ok {
					out = append(out, elem)
				}
				continue
			}
			out = append(out, e.Type)
		}
		return in.Union(out...), true
	}
	return types.NoType, false
}

func (c *collector) tuple(target []types.TupleElem, source types.TypeId, v Variance, prio Priority) {
	in := c.in
	if r, ok := in.Lookup(source).(types.ReadonlyKey); ok {
		source = r.Inner
	}
	switch sk := in.Lookup(source).(type) {
	case types.ArrayKey:
		for _, e := range target {
			if e.Rest {
				c.infer(e.Type, source, v, prio)
			} else {
				c.infer(e.Type, sk.Elem, v, prio)
			}
		}
	case types.TupleKey:
		src := in.TupleElems(sk.Elems)
		for i, e := range target {
			if e.Rest {
				// a variadic element takes everything that is left
				if i <= len(src) {
					c.infer(e.Type, in.Tuple(src[i:]...), v, prio)
				}
				return
			}
			if i >= len(src) {
				return
			}
			if src[i].Rest {
				if elem, ok := c.elementOf(src[i].Type); ok {
					c.infer(e.Type, elem, v, prio)
				}
				continue
			}
			c.infer(e.Type, src[i].Type, v, prio)
		}
	}
}

// arguments infers from an argument list to the parameters of sig. rest is
// the type of a trailing rest argument, NoType when there is none. A rest
// parameter that is not an array collects all remaining arguments into a
// single tuple candidate.
func (c *collector) arguments(sig types.Signature, args []types.TypeId, rest types.TypeId, v Variance, prio Priority) {
	in := c.in
	fixed := sig.Params
	restParam, hasRest := sig.RestParam()
	if hasRest {
		fixed = fixed[:len(fixed)-1]
	}
	restElem, restIsArray := types.NoType, false
	if rest != types.NoType {
		restElem, restIsArray = c.elementOf(rest)
	}
	for i, p := range fixed {
		switch {
		case i < len(args):
			c.infer(p.Type, args[i], v, prio)
		case restIsArray:
			c.infer(p.Type, restElem, v, prio)
		}
	}
	if !hasRest {
		return
	}
	remaining := args[min(len(fixed), len(args)):]
	if a, ok := in.Lookup(restParam.Type).(types.ArrayKey); ok {
		for _, arg := range remaining {
			c.infer(a.Elem, arg, v, prio)
		}
		if rest != types.NoType {
			c.infer(restParam.Type, rest, v, prio)
		}
		return
	}
	elems := make([]types.TupleElem, 0, len(remaining)+1)
	for _, arg := range remaining {
		elems = append(elems, types.TupleElem{Type: arg})
	}
	if rest != types.NoType {
		elems = append(elems, types.TupleElem{Type: rest, Rest: true})
	}
	c.infer(restParam.Type, in.Tuple(elems...), v, prio)
}

// signature infers from the source signature s to the target signature t.
// Parameters are visited with the variance flipped.
func (c *collector) signature(t, s types.Signature, v Variance, prio Priority) {
	if len(s.TypeParams) > 0 {
		// a generic source is compared through its constraints
		bounds := make([]types.TypeId, len(s.TypeParams))
		for i, p := range s.TypeParams {
			bounds[i] = c.q.constraintOf(p)
		}
		sub := bindAll(s.TypeParams, bounds)
		s.TypeParams = nil
		s = c.q.substituteSignature(s, sub)
	}
	c.arguments(t, paramTypes(s), restType(s), v.Flip(), prio)
	if t.This != types.NoType && s.This != types.NoType {
		c.infer(t.This, s.This, v.Flip(), prio)
	}
	c.infer(t.Return, s.Return, v, prio)
}

func (c *collector) object(target, source types.TypeId, v Variance, prio Priority) {
	tparts, ok := c.q.partsOf(target)
	if !ok {
		return
	}
	sparts, ok := c.q.partsOf(source)
	if !ok {
		return
	}
	for _, tp := range tparts.shape.Props {
		if !c.mentions(tp.Read) && !c.mentions(tp.WriteType()) {
			continue
		}
		if sp, ok := sparts.shape.Prop(tp.Name); ok {
			c.infer(tp.Read, sp.Read, v, prio)
		} else if idx, ok := indexFor(sparts.shape, tp.Name); ok {
			c.infer(tp.Read, idx.Value, v, prio)
		}
	}
	if tparts.shape.StringIndex.Present() {
		if sparts.shape.StringIndex.Present() {
			c.infer(tparts.shape.StringIndex.Value, sparts.shape.StringIndex.Value, v, prio)
		} else if len(sparts.shape.Props) > 0 {
			values := make([]types.TypeId, len(sparts.shape.Props))
			for i, p := range sparts.shape.Props {
				values[i] = p.Read
			}
			c.infer(tparts.shape.StringIndex.Value, c.in.Union(values...), v, prio)
		}
	}
	if tparts.shape.NumberIndex.Present() && sparts.shape.NumberIndex.Present() {
		c.infer(tparts.shape.NumberIndex.Value, sparts.shape.NumberIndex.Value, v, prio)
	}
	c.signatureLists(tparts.calls, sparts.calls, v, prio)
	c.signatureLists(tparts.constructs, sparts.constructs, v, prio)
}

// signatureLists pairs overloads from the end, the way a call resolves
// against the most general overload last.
func (c *collector) signatureLists(t, s []types.SignatureId, v Variance, prio Priority) {
	n := min(len(t), len(s))
	for i := 1; i <= n; i++ {
		c.signature(c.in.Signature(t[len(t)-i]), c.in.Signature(s[len(s)-i]), v, prio)
	}
}

// mapped reverses the two mapped type forms inference understands: a
// homomorphic `{[K in keyof T]: T[K]}` infers T from the source itself, and
// `{[K in P]: X}` infers P from the source keys and X from its values.
func (c *collector) mapped(k types.MappedKey, source types.TypeId, v Variance, prio Priority) {
	in := c.in
	if ko, ok := in.Lookup(k.Constraint).(types.KeyOfKey); ok && c.inScope.Contains(ko.Operand) {
		if ia, ok := in.Lookup(k.Template).(types.IndexAccessKey); ok && ia.Object == ko.Operand && ia.Index == k.Param {
			c.infer(ko.Operand, source, v, prio)
		}
		return
	}
	if !c.inScope.Contains(k.Constraint) {
		return
	}
	parts, ok := c.q.partsOf(c.structural(source))
	if !ok {
		return
	}
	keys := make([]types.TypeId, len(parts.shape.Props))
	values := make([]types.TypeId, len(parts.shape.Props))
	for i, p := range parts.shape.Props {
		keys[i] = in.LiteralString(p.Name)
		values[i] = p.Read
	}
	c.infer(k.Constraint, in.Union(keys...), v, prio)
	c.infer(k.Template, in.Union(values...), v, prio)
}

// template infers the holes of a template literal from a string literal
// source. Each hole takes the shortest text up to the next literal
// segment; the last hole takes the rest.
func (c *collector) template(spans []types.TemplateSpan, source types.TypeId, v Variance, prio Priority) {
	in := c.in
	if st, ok := in.Lookup(source).(types.TemplateLiteralKey); ok {
		src := in.TemplateSpans(st.Spans)
		if len(src) == len(spans) {
			for i := range spans {
				if !spans[i].IsText() && !src[i].IsText() {
					c.infer(spans[i].Type, src[i].Type, v, prio)
				}
			}
		}
		return
	}
	lit, ok := in.Lookup(source).(types.LiteralKey)
	if !ok || lit.Value.Kind != types.LitString {
		return
	}
	pieces, ok := splitTemplate(lit.Value.Text, spans)
	if !ok {
		return
	}
	for i, s := range spans {
		if s.IsText() {
			continue
		}
		c.infer(s.Type, c.holeLiteral(s.Type, pieces[i]), v, prio)
	}
}

// holeLiteral types a matched piece of text for the hole it fills: numeric
// holes see number literals.
func (c *collector) holeLiteral(hole types.TypeId, piece string) types.TypeId {
	if c.inScope.Contains(hole) && c.q.constraintOf(hole) == types.Number {
		if f, err := strconv.ParseFloat(piece, 64); err == nil && isNumericText(piece) {
			return c.in.LiteralNumber(f)
		}
	}
	return c.in.LiteralString(piece)
}

// splitTemplate matches text against spans and returns, for every hole
// position, the text it matched.
func splitTemplate(text string, spans []types.TemplateSpan) (map[int]string, bool) {
	out := make(map[int]string)
	rest := text
	for i := 0; i < len(spans); i++ {
		s := spans[i]
		if s.IsText() {
			var ok bool
			if rest, ok = strings.CutPrefix(rest, s.Text); !ok {
				return nil, false
			}
			continue
		}
		if i == len(spans)-1 {
			out[i] = rest
			rest = ""
			continue
		}
		next := spans[i+1]
		if !next.IsText() {
			if rest == "" {
				return nil, false
			}
			_, size := firstRune(rest)
			out[i], rest = rest[:size], rest[size:]
			continue
		}
		if i+1 == len(spans)-1 {
			// the final literal segment anchors at the end
			if !strings.HasSuffix(rest, next.Text) {
				return nil, false
			}
			out[i] = rest[:len(rest)-len(next.Text)]
			rest = next.Text
			continue
		}
		j := strings.Index(rest, next.Text)
		if j < 0 {
			return nil, false
		}
		out[i], rest = rest[:j], rest[j:]
	}
	return out, rest == ""
}

func firstRune(s string) (rune, int) {
	for _, r := range s {
		return r, len(string(r))
	}
	return 0, 0
}

// resolveAll picks a type for every parameter in declaration order, so that
// constraints and defaults can refer to earlier parameters.
func (c *collector) resolveAll() InferenceResult {
	sub := NewSubstitution()
	var errs []tserr.SolverError
	for _, p := range c.params {
		t, err := c.resolve(p, sub)
		if err != nil {
			errs = append(errs, err)
		}
		sub = sub.Bind(p, t)
	}
	return InferenceResult{Subst: sub, Errors: errs}
}

func (c *collector) resolve(p types.TypeId, sub Substitution) (types.TypeId, tserr.SolverError) {
	q := c.q
	constraint := q.substitute(q.constraintOf(p), sub)
	cs := c.cands[p]
	result, ok := types.NoType, false
	if cs != nil && len(cs.co) > 0 {
		keep := c.keepsLiterals(p, constraint)
		result, ok = c.byTier(cs.co, func(ts []types.TypeId) (types.TypeId, bool) {
			if !keep {
				for i, t := range ts {
					ts[i] = c.widen(t)
				}
			}
			return q.commonSupertype(ts)
		})
	}
	if !ok && cs != nil && len(cs.contra) > 0 {
		result, ok = c.byTier(cs.contra, func(ts []types.TypeId) (types.TypeId, bool) {
			return q.commonSubtype(ts), true
		})
	}
	if !ok {
		fallback := constraint
		if def := q.in.ParamInfo(p).Default; def != types.NoType {
			fallback = q.substitute(def, sub)
		}
		return fallback, tserr.New(tserr.UnresolvedInferenceVariable{
			Param:     p,
			ParamName: paramName(q.in, p),
			Fallback:  fallback,
		})
	}
	if constraint != types.Unknown && !q.isAssignable(result, constraint) {
		return constraint, q.constraintViolation(p, constraint, result)
	}
	return result, nil
}

// byTier tries fold on the candidates of each priority tier in turn until
// one succeeds.
func (c *collector) byTier(cands []candidate, fold func([]types.TypeId) (types.TypeId, bool)) (types.TypeId, bool) {
	tiers := make(map[Priority][]types.TypeId)
	var order []Priority
	for _, cand := range cands {
		if _, ok := tiers[cand.priority]; !ok {
			order = append(order, cand.priority)
		}
		if !slices.Contains(tiers[cand.priority], cand.typ) {
			tiers[cand.priority] = append(tiers[cand.priority], cand.typ)
		}
	}
	slices.Sort(order)
	for _, prio := range order {
		if t, ok := fold(tiers[prio]); ok {
			return t, true
		}
	}
	return types.NoType, false
}

// keepsLiterals reports whether candidates for p keep their literal types:
// p is a const parameter, or its constraint admits primitives.
func (c *collector) keepsLiterals(p, constraint types.TypeId) bool {
	if c.literal {
		return true
	}
	if k, ok := c.in.Lookup(p).(types.TypeParamKey); ok && k.Const {
		return true
	}
	return c.primitiveConstraint(c.q.evaluate(constraint))
}

func (c *collector) primitiveConstraint(id types.TypeId) bool {
	switch c.in.KindOf(id) {
	case types.KindLiteral, types.KindTemplateLiteral, types.KindUniqueSymbol:
		return true
	case types.KindIntrinsic:
		switch id {
		case types.String, types.Number, types.Boolean, types.BigInt, types.Symbol:
			return true
		}
	case types.KindUnion:
		for _, m := range c.in.List(c.in.Lookup(id).(types.UnionKey).Members) {
			if c.primitiveConstraint(m) {
				return true
			}
		}
	}
	return false
}

// widen widens a candidate for a mutable binding, element-wise for tuples
// and arrays.
func (c *collector) widen(id types.TypeId) types.TypeId {
	in := c.in
	switch k := in.Lookup(id).(type) {
	case types.TupleKey:
		elems := slices.Clone(in.TupleElems(k.Elems))
		for i := range elems {
			elems[i].Type = c.widen(elems[i].Type)
		}
		return in.Tuple(elems...)
	case types.ArrayKey:
		return in.Array(c.widen(k.Elem))
	}
	return c.q.widen(id, false)
}

// commonSupertype folds ts into the one candidate every other candidate is
// assignable to. It fails when two candidates are incomparable.
func (q *query) commonSupertype(ts []types.TypeId) (types.TypeId, bool) {
	cur := ts[0]
	for _, t := range ts[1:] {
		switch {
		case q.isAssignable(t, cur):
		case q.isAssignable(cur, t):
			cur = t
		default:
			return types.NoType, false
		}
	}
	return cur, true
}

// commonSubtype is the candidate assignable to every other one, or the
// intersection of all of them.
func (q *query) commonSubtype(ts []types.TypeId) types.TypeId {
	for _, cand := range ts {
		all := true
		for _, t := range ts {
			if !q.isAssignable(cand, t) {
				all = false
				break
			}
		}
		if all {
			return cand
		}
	}
	return q.in.Intersection(ts...)
}

func paramName(in *types.Interner, p types.TypeId) string {
	switch k := in.Lookup(p).(type) {
	case types.TypeParamKey:
		return k.Name
	case types.InferKey:
		return k.Name
	}
	return in.Format(p)
}
