package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tmplkit/stencil/internal/apply"
	"github.com/tmplkit/stencil/internal/fetch"
	"github.com/tmplkit/stencil/internal/gitx"
	"github.com/tmplkit/stencil/internal/ui"
)

// NewApplyCommand creates the 'apply' subcommand, which copies the template's
// managed files into a target project directory.
func NewApplyCommand() *cobra.Command {
	var (
		ignoreWS    bool
		noGitDiff   bool
		interactive bool
		dryRun      bool
		optional    bool
		from        string
	)

	cmd := &cobra.Command{
		Use:   "apply [flags] TARGETDIR",
		Short: "Apply the template to a project directory",
		Long: `Apply copies each file the template manages into TARGETDIR, reporting
per file whether it was copied, already identical, or differs from the
template version. Differing files are shown as a diff and are never
overwritten unless confirmed in interactive mode.

An empty target (no entries, or only a .git directory) receives the full
file set including optional files, plus an empty requirements.txt so the
project is immediately installable.`,
		Args: cobra.ExactArgs(1),
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
			VerboseLog("using template at %s", templateDir)

			var confirm ui.ConfirmFunc
			if interactive {
				confirm = ui.SurveyConfirm
			}

			printer := newPrinter(settings)
			applier := apply.New(printer, confirm, gitx.NewRunner(settings.GitBin))

			report, err := applier.Run(templateDir, args[0], apply.Options{
				DryRun:      dryRun,
				Interactive: interactive,
				IgnoreWS:    ignoreWS,
				NoGitDiff:   noGitDiff,
				Optional:    optional,
			})
			if err != nil {
				return err
			}

			summary := fmt.Sprintf("%d file(s) copied", report.Copied())
			if dryRun {
				summary = "[DRY RUN] " + summary
			}
			printer.Banner(ui.ToneInfo, "%s", summary)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&ignoreWS, "ignore-all-space", "w", false,
		"Ignore whitespace when comparing and diffing files")
	cmd.Flags().BoolVarP(&noGitDiff, "no-git-diff", "G", false,
		"Use the builtin diff instead of 'git diff --no-index'")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false,
		"Ask before copying or overwriting each file")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false,
		"Report what would change without writing anything")
	cmd.Flags().BoolVarP(&optional, "optional", "o", false,
		"Also copy files the template marks optional")
	cmd.Flags().StringVar(&from, "from", ".",
		"Template source: a local directory or a GitHub/GitLab repository URL")

	return cmd
}
