package cmd

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/cottand/tsolve/scenario"
	"github.com/cottand/tsolve/solver"
	"github.com/cottand/tsolve/solver/types"
)

var EvalCmd = &cobra.Command{
	Use:          "eval [-d decls.ts] TYPE...",
	Short:        "Evaluate type expressions, or explain their assignability to a target",
	RunE:         runEval,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
}

var (
	evalDeclsPath  *string
	evalConfigPath *string
	evalTarget     *string
	evalFresh      *bool
)

func init() {
	evalDeclsPath = EvalCmd.Flags().StringP("decls", "d", "", "file of type declarations")
	evalConfigPath = EvalCmd.Flags().StringP("config", "c", "", "solver config (YAML)")
	evalTarget = EvalCmd.Flags().StringP("to", "t", "", "explain whether each type is assignable to this one")
	evalFresh = EvalCmd.Flags().Bool("fresh", false, "treat object types as fresh object literals")
}

func runEval(cmd *cobra.Command, args []string) error {
	c, err := loadConfig(*evalConfigPath)
	if err != nil {
		return err
	}
	s := solver.NewSession(solver.WithConfig(c))
	defer s.Close()
	env, err := scenario.NewEnv(s)
	if err != nil {
		return err
	}
	if *evalDeclsPath != "" {
		decls, err := os.ReadFile(*evalDeclsPath)
		if err != nil {
			return errors.Wrap(err, "could not read declarations")
		}
		if err := env.Declare(string(decls)); err != nil {
			return errors.Wrapf(err, "in %s", *evalDeclsPath)
		}
	}

	target := types.NoType
	if *evalTarget != "" {
		if target, err = env.ParseType(*evalTarget); err != nil {
			return errors.Wrapf(err, "in %q", *evalTarget)
		}
	}
	out := cmd.OutOrStdout()
	for _, src := range args {
		id, err := env.ParseType(src)
		if err != nil {
			return errors.Wrapf(err, "in %q", src)
		}
		if target == types.NoType {
			_, _ = fmt.Fprintf(out, "%s => %s\n", src, s.Format(s.Evaluate(id)))
			continue
		}
		ex := s.Explain(id, target, solver.AssignContext{Fresh: *evalFresh})
		_, _ = fmt.Fprintf(out, "%s -> %s => %s by %s\n", src, *evalTarget, ex.Outcome, ex.Rule)
	}
	for _, f := range s.Failures() {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), f)
	}
	return nil
}
