package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/tmplkit/stencil/internal/apply"
	"github.com/tmplkit/stencil/internal/fetch"
	"github.com/tmplkit/stencil/internal/gitx"
	"github.com/tmplkit/stencil/internal/model"
	"github.com/tmplkit/stencil/internal/ui"
	"github.com/tmplkit/stencil/internal/validate"
)

// smokeUsage is printed verbatim when the argument is missing or extra
// arguments are given. The check runs before anything touches the
// filesystem.
const smokeUsage = "Usage: stencil smoke VENV_PATH"

// NewSmokeCommand creates the 'smoke' subcommand: a single validation run
// against an existing virtual environment, the fast inner loop of 'verify'.
func NewSmokeCommand() *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "smoke VENV_PATH",
		Short: "Run one template validation pass against an existing environment",
		Long: `Smoke applies the template into a throwaway directory, commits it, and
runs the generated project's dev/local-actions.sh against the virtual
environment at VENV_PATH. The environment is not created or modified; use
'bootstrap' to build one first.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return model.NewCLIError(model.ExitGeneralError, smokeUsage)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}

			templateDir, cleanup, err := fetch.Template(cmd.Context(), from)
			if err != nil {
				return err
			}
			defer cleanup()

			printer := newPrinter(settings)
			git := gitx.NewRunner(settings.GitBin)
			driver := validate.New(git, apply.New(printer, nil, git), os.Stdout, os.Stderr)
			driver.Log = VerboseLog

			if err := driver.Run(cmd.Context(), validate.Options{
				TemplateDir: templateDir,
				VenvPath:    args[0],
			}); err != nil {
				return err
			}
			printer.Banner(ui.ToneGood, "smoke test passed")
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", ".",
		"Template source: a local directory or a GitHub/GitLab repository URL")

	return cmd
}
