// Package cli implements the cobra-based commands of the stencil CLI.
//
// Each subcommand (apply, bootstrap, verify, smoke, disttest) lives in its
// own file within this package. This file defines the root command, the
// global flags, and the error-to-exit-code translation.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tmplkit/stencil/internal/config"
	"github.com/tmplkit/stencil/internal/model"
	"github.com/tmplkit/stencil/internal/ui"
)

// verbose enables detailed progress output on stderr. Bound to a persistent
// flag on the root command so every subcommand inherits it.
var verbose bool

// Version, Commit, and Date are injected from the main package at build
// time via ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// NewRootCommand creates and configures the root cobra command. The root
// command itself performs no action; functionality lives in subcommands.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "stencil",
		Short: "Project template applier and validation toolchain",
		Long: `stencil applies a project template into new or existing project
directories, bootstraps isolated Python environments with the declared
dependencies, and smoke-tests that a freshly applied template actually
produces a working project (apply → commit → run the project's own checks).`,

		// Errors are formatted by Execute; cobra's automatic output would
		// duplicate them.
		SilenceUsage:  true,
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(NewApplyCommand())
	rootCmd.AddCommand(NewBootstrapCommand())
	rootCmd.AddCommand(NewVerifyCommand())
	rootCmd.AddCommand(NewSmokeCommand())
	rootCmd.AddCommand(NewDisttestCommand())

	return rootCmd
}

// Execute runs the root command and maps the resulting error to a process
// exit code. CLIErrors carry their own codes; external command failures in
// the test chain propagate their exact exit status.
func Execute(rootCmd *cobra.Command) {
	err := rootCmd.Execute()
	if err == nil {
		return
	}

	fmt.Fprintf(os.Stderr, "Error: %s\n", err.Error())
	os.Exit(int(model.ExitCodeFromError(err)))
}

// VerboseLog prints a message to stderr only when --verbose is set.
func VerboseLog(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[verbose] "+format+"\n", args...)
	}
}

// loadSettings reads the environment configuration once per command run.
func loadSettings() (config.Settings, error) {
	s, err := config.Load()
	if err != nil {
		return config.Settings{}, model.WrapCLIError(model.ExitGeneralError, "failed to load configuration", err)
	}
	return s, nil
}

// newPrinter builds the stdout printer honoring NO_COLOR.
func newPrinter(s config.Settings) *ui.Printer {
	return ui.NewPrinter(os.Stdout, s.ColorEnabled())
}
