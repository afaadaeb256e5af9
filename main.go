//go:build !( js || wasm)

package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cottand/tsolve/cmd"
	"github.com/cottand/tsolve/internal/log"
)

func main() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tsolve [subcommand]",
	Short: "tsolve\n a structural type solver for TypeScript-like type systems",
	Args:  cobra.MinimumNArgs(1),
	PersistentPreRun: func(*cobra.Command, []string) {
		log.SetLevel(slog.Level(*logLevel))
		if len(*logSections) > 0 {
			log.EnableSections(*logSections...)
		}
	},
	SilenceUsage: true,
}

var (
	logLevel    *int
	logSections *[]string
)

func init() {
	logLevel = rootCmd.PersistentFlags().IntP("log-level", "l", int(slog.LevelError), "log level")
	logSections = rootCmd.PersistentFlags().StringSlice("sections", nil, "log sections to enable, such as solver.judge")
	rootCmd.AddCommand(cmd.CheckCmd)
	rootCmd.AddCommand(cmd.EvalCmd)
}
