package scenario

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/cottand/tsolve/solver"
	"github.com/cottand/tsolve/solver/tserr"
	"github.com/cottand/tsolve/solver/types"
)

// Answer is the result of one query.
type Answer struct {
	Kind  string
	Input string
	Value string
	// Expect is the expected value, empty when the query states none.
	Expect string
}

func (a Answer) Failed() bool { return a.Expect != "" && a.Expect != a.Value }

type Result struct {
	Name    string
	Answers []Answer
	// Failures are the errors the session recorded while answering, such as
	// exhausted fuel.
	Failures []tserr.SolverError
	Stats    solver.Stats
}

// Failed returns the answers that did not match their expectation.
func (r *Result) Failed() []Answer {
	var failed []Answer
	for _, a := range r.Answers {
		if a.Failed() {
			failed = append(failed, a)
		}
	}
	return failed
}

// Lines renders one line per answer, marking those that missed their
// expectation.
func (r *Result) Lines() []string {
	lines := make([]string, 0, len(r.Answers))
	for _, a := range r.Answers {
		line := fmt.Sprintf("%s %s => %s", a.Kind, a.Input, a.Value)
		if a.Failed() {
			line += fmt.Sprintf("  FAIL expected %s", a.Expect)
		}
		lines = append(lines, line)
	}
	return lines
}

// Run answers every query of sc in a fresh session configured by sc.
// Extra options are applied after the scenario configuration.
func Run(sc *Scenario, opts ...solver.Option) (*Result, error) {
	s := solver.NewSession(append([]solver.Option{solver.WithConfig(sc.Config)}, opts...)...)
	defer s.Close()
	env, err := NewEnv(s)
	if err != nil {
		return nil, err
	}
	if err := env.Declare(sc.Declarations); err != nil {
		return nil, errors.Wrapf(err, "declarations of %s", sc.Name)
	}

	res := &Result{Name: sc.Name}
	for i, q := range sc.Queries {
		a, err := env.answer(q)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: query %d", sc.Name, i+1)
		}
		res.Answers = append(res.Answers, a)
	}
	res.Failures = s.Failures()
	res.Stats = s.Stats()
	logger.Info("scenario done", "scenario", sc.Name, "queries", len(res.Answers), "failed", len(res.Failed()), "stats", res.Stats)
	return res, nil
}

func (e *Env) parseAll(srcs []string) ([]types.TypeId, error) {
	ids := make([]types.TypeId, len(srcs))
	for i, src := range srcs {
		id, err := e.ParseType(src)
		if err != nil {
			return nil, errors.Wrapf(err, "in %q", src)
		}
		ids[i] = id
	}
	return ids, nil
}

func (e *Env) answer(q Query) (Answer, error) {
	kind, err := q.Kind()
	if err != nil {
		return Answer{}, err
	}
	a := Answer{Kind: kind, Expect: q.Expect}
	ctx := solver.AssignContext{Fresh: q.Fresh, Const: q.Const}
	switch kind {
	case KindSubtype:
		ids, err := e.parseAll(q.Subtype)
		if err != nil {
			return a, err
		}
		policy := solver.SoundPolicy()
		a.Input = q.Subtype[0] + " <: " + q.Subtype[1]
		if q.Policy == "lawyer" {
			policy = solver.LawyerPolicy(e.s.Config())
			a.Input += " [lawyer]"
		}
		a.Value = e.s.CheckSubtype(ids[0], ids[1], policy).String()
	case KindAssignable:
		ids, err := e.parseAll(q.Assignable)
		if err != nil {
			return a, err
		}
		a.Input = q.Assignable[0] + " -> " + q.Assignable[1] + contextSuffix(ctx)
		a.Value = e.s.CheckAssignable(ids[0], ids[1], ctx).String()
	case KindExplain:
		ids, err := e.parseAll(q.Explain)
		if err != nil {
			return a, err
		}
		a.Input = q.Explain[0] + " -> " + q.Explain[1] + contextSuffix(ctx)
		ex := e.s.Explain(ids[0], ids[1], ctx)
		a.Value = ex.Outcome.String() + " by " + ex.Rule
	case KindEval:
		id, err := e.ParseType(q.Eval)
		if err != nil {
			return a, errors.Wrapf(err, "in %q", q.Eval)
		}
		a.Input = q.Eval
		a.Value = e.s.Format(e.s.Evaluate(id))
	case KindInstantiate:
		ids, err := e.parseAll(q.Instantiate)
		if err != nil {
			return a, err
		}
		a.Input = q.Instantiate[0] + "<" + strings.Join(q.Instantiate[1:], ", ") + ">"
		id, err := e.s.Instantiate(ids[0], ids[1:]...)
		if err != nil {
			a.Value = formatError(err)
		} else {
			a.Value = e.s.Format(id)
		}
	case KindInfer:
		return e.answerInfer(a, q.Infer)
	}
	return a, nil
}

func contextSuffix(ctx solver.AssignContext) string {
	var flags []string
	if ctx.Fresh {
		flags = append(flags, "fresh")
	}
	if ctx.Const {
		flags = append(flags, "const")
	}
	if len(flags) == 0 {
		return ""
	}
	return " [" + strings.Join(flags, ", ") + "]"
}

func formatError(err error) string {
	var se tserr.SolverError
	if errors.As(err, &se) {
		return "error " + tserr.FormatWithCode(se)
	}
	return "error " + err.Error()
}

// answerInfer renders the inferred arguments in declaration order followed
// by the instantiated signature and any inference errors.
func (e *Env) answerInfer(a Answer, q *InferQuery) (Answer, error) {
	fn, err := e.ParseType(q.Fn)
	if err != nil {
		return a, errors.Wrapf(err, "in %q", q.Fn)
	}
	args, err := e.parseAll(q.Args)
	if err != nil {
		return a, err
	}
	contextual := types.NoType
	a.Input = "(" + q.Fn + ")(" + strings.Join(q.Args, ", ") + ")"
	if q.Contextual != "" {
		if contextual, err = e.ParseType(q.Contextual); err != nil {
			return a, errors.Wrapf(err, "in %q", q.Contextual)
		}
		a.Input += " : " + q.Contextual
	}

	inst, res := e.s.InferCall(fn, args, contextual)
	var params []types.TypeId
	if k, ok := e.in.Lookup(fn).(types.FunctionKey); ok {
		params = e.in.Signature(k.Sig).TypeParams
	}
	var parts []string
	for _, p := range params {
		if to, ok := res.Subst.Lookup(p); ok {
			parts = append(parts, e.s.Format(p)+" = "+e.s.Format(to))
		}
	}
	parts = append(parts, e.s.Format(inst))
	for _, err := range res.Errors {
		parts = append(parts, "error "+tserr.FormatWithCode(err))
	}
	a.Value = strings.Join(parts, "; ")
	return a, nil
}
