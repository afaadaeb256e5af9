//go:build js && wasm

package main

import (
	"syscall/js"

	"github.com/cottand/tsolve/scenario"
)

func main() {
	js.Global().Set("RunAndShowAnswers", js.FuncOf(scenario.RunAndShowAnswers))
	js.Global().Set("EvalAndShowType", js.FuncOf(scenario.EvalAndShowType))

	// wait indefinitely so that Go does not terminate execution
	// and the function remains available
	<-make(chan struct{})
}
