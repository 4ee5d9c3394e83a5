package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tmplkit/stencil/internal/apply"
	"github.com/tmplkit/stencil/internal/fetch"
	"github.com/tmplkit/stencil/internal/gitx"
	"github.com/tmplkit/stencil/internal/ui"
	"github.com/tmplkit/stencil/internal/validate"
	"github.com/tmplkit/stencil/internal/venv"
)

// NewVerifyCommand creates the 'verify' subcommand, the end-to-end check
// that the template still produces a working project: apply into a scratch
// directory, commit, and run the generated project's own test chain.
func NewVerifyCommand() *cobra.Command {
	var (
		fresh bool
		from  string
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Validate that the applied template produces a working project",
		Long: `Verify applies the template into a throwaway directory, seeds a minimal
source file, commits the result, and runs the generated project's
dev/local-actions.sh. By default a shared virtual environment is built once
and reused across runs; --fresh tells the project's runner to build its
environments from scratch instead.

The scratch directory is removed when the run ends, pass or fail, and the
exit status of a failing test chain is propagated unchanged.`,
		Args: cobra.NoArgs,
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

			opts := validate.Options{TemplateDir: templateDir, FreshEnv: fresh}

			if !fresh {
				venvDir := filepath.Join(templateDir, settings.VenvDir)
				booter := venv.New(settings.PythonBin)
				booter.Out = os.Stdout
				booter.Err = os.Stderr
				if !booter.IsReady(venvDir) {
					printer.Banner(ui.ToneAction, "creating shared environment at %s", venvDir)
					if err := booter.Create(cmd.Context(), venvDir, templateDir); err != nil {
						return err
					}
				}
				opts.VenvPath = venvDir
			}

			if err := driver.Run(cmd.Context(), opts); err != nil {
				return err
			}
			printer.Banner(ui.ToneGood, "template validation passed")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&fresh, "fresh", "f", false,
		"Have the generated project build new environments instead of reusing one")
	cmd.Flags().StringVar(&from, "from", ".",
		"Template source: a local directory or a GitHub/GitLab repository URL")

	return cmd
}
