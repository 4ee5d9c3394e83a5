package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tmplkit/stencil/internal/ui"
	"github.com/tmplkit/stencil/internal/venv"
)

// NewBootstrapCommand creates the 'bootstrap' subcommand, which builds a
// virtual environment for a project directory and installs its runtime and
// development requirements.
func NewBootstrapCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "bootstrap [DIR]",
		Short: "Create a virtual environment with the project's dependencies",
		Long: `Bootstrap creates a virtual environment inside DIR (default: the current
directory), upgrades pip, and installs requirements.txt and
dev/requirements.txt when present. Any failing step aborts the run; an
environment left behind by a failed run is never treated as usable and is
rebuilt on the next invocation.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}

			projectDir := "."
			if len(args) == 1 {
				projectDir = args[0]
			}
			projectDir, err = filepath.Abs(projectDir)
			if err != nil {
				return err
			}
			venvDir := filepath.Join(projectDir, settings.VenvDir)

			printer := newPrinter(settings)
			booter := venv.New(settings.PythonBin)
			booter.Out = os.Stdout
			booter.Err = os.Stderr

			if !force && booter.IsReady(venvDir) {
				printer.Banner(ui.ToneGood, "reusing environment at %s", venvDir)
				return nil
			}
			if force {
				if err := os.RemoveAll(venvDir); err != nil {
					return err
				}
			}

			printer.Banner(ui.ToneAction, "creating environment at %s", venvDir)
			if err := booter.Create(cmd.Context(), venvDir, projectDir); err != nil {
				return err
			}
			printer.Banner(ui.ToneGood, "environment ready: %s", venv.PythonBin(venvDir))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false,
		"Rebuild the environment even if a usable one exists")

	return cmd
}
