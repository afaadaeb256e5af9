package cmd

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/cottand/tsolve/scenario"
	"github.com/cottand/tsolve/solver"
)

var CheckCmd = &cobra.Command{
	Use:          "check ./folder|file.yaml...",
	Short:        "Run scenario files and compare the answers against their expectations",
	RunE:         runCheck,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
}

var (
	checkConfigPath *string
	checkQuiet      *bool
)

func init() {
	checkConfigPath = CheckCmd.Flags().StringP("config", "c", "", "solver config (YAML) applied over each scenario's own")
	checkQuiet = CheckCmd.Flags().BoolP("quiet", "q", false, "only print answers that missed their expectation")
}

func runCheck(cmd *cobra.Command, args []string) error {
	var opts []solver.Option
	if *checkConfigPath != "" {
		c, err := loadConfig(*checkConfigPath)
		if err != nil {
			return err
		}
		opts = append(opts, solver.WithConfig(c))
	}

	failed := 0
	for _, target := range args {
		files, fsys, err := scenarioFiles(target)
		if err != nil {
			return err
		}
		for _, name := range files {
			sc, err := scenario.Load(fsys, name)
			if err != nil {
				return err
			}
			res, err := scenario.Run(sc, opts...)
			if err != nil {
				return err
			}
			failed += len(res.Failed())
			printResult(cmd, res)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d answer(s) did not match their expectation", failed)
	}
	return nil
}

func printResult(cmd *cobra.Command, res *scenario.Result) {
	out := cmd.OutOrStdout()
	if !*checkQuiet {
		_, _ = fmt.Fprintf(out, "# %s\n", res.Name)
	}
	for i, line := range res.Lines() {
		if *checkQuiet && !res.Answers[i].Failed() {
			continue
		}
		_, _ = fmt.Fprintln(out, line)
	}
	for _, f := range res.Failures {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", res.Name, f)
	}
}

// scenarioFiles lists the scenario files of target, a single file or a
// folder searched recursively, relative to the returned file system.
func scenarioFiles(target string) ([]string, fs.FS, error) {
	abs, err := filepath.Abs(target)
	if err != nil {
		return nil, nil, errors.Wrap(err, "could not get absolute path of target")
	}
	stat, err := os.Stat(abs)
	if err != nil {
		return nil, nil, errors.Wrap(err, "could not stat target")
	}
	if !stat.IsDir() {
		return []string{filepath.Base(abs)}, os.DirFS(filepath.Dir(abs)), nil
	}
	fsys := os.DirFS(abs)
	var files []string
	err = fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && (path.Ext(p) == ".yaml" || path.Ext(p) == ".yml") {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, nil, errors.Wrapf(err, "could not list scenarios in %s", target)
	}
	return files, fsys, nil
}
