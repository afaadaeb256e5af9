//go:build js && wasm

package scenario

import (
	"fmt"
	"strings"
	"syscall/js"

	"github.com/cottand/tsolve/solver"
)

// RunAndShowAnswers runs the scenario YAML in args[0] and returns one line
// per answer, or a message describing why the scenario could not run.
func RunAndShowAnswers(_ js.Value, args []js.Value) (ret any) {
	defer func() {
		if r := recover(); r != nil {
			ret = "solver panicked: " + fmt.Sprint(r)
		}
	}()

	sc, err := Parse([]byte(args[0].String()))
	if err != nil {
		return fmt.Sprintf("the scenario is invalid:\n\n%s", err)
	}
	if sc.Name == "" {
		sc.Name = "playground"
	}
	res, err := Run(sc)
	if err != nil {
		return fmt.Sprintf("the scenario could not run:\n\n%s", err)
	}
	return strings.Join(res.Lines(), "\n")
}

// EvalAndShowType binds the declarations in args[0] and evaluates the type
// expression in args[1].
//
// output: { error: string } | { type: string, kind: string }
func EvalAndShowType(_ js.Value, args []js.Value) (ret any) {
	errorObj := func(err string) any {
		return js.ValueOf(map[string]any{
			"error": err,
		})
	}
	defer func() {
		if r := recover(); r != nil {
			ret = errorObj("solver panicked: " + fmt.Sprint(r))
		}
	}()
	if len(args) != 2 {
		return errorObj(fmt.Sprintf("expected 2 arguments, got %d", len(args)))
	}

	s := solver.NewSession()
	defer s.Close()
	env, err := NewEnv(s)
	if err != nil {
		return errorObj(err.Error())
	}
	if err := env.Declare(args[0].String()); err != nil {
		return errorObj(fmt.Sprintf("the declarations have errors:\n%s", err))
	}
	id, err := env.ParseType(args[1].String())
	if err != nil {
		return errorObj(fmt.Sprintf("the type has errors:\n%s", err))
	}
	evaluated := s.Evaluate(id)
	return js.ValueOf(map[string]any{
		"type": s.Format(evaluated),
		"kind": s.Classify(evaluated).Kind.String(),
	})
}
