package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tmplkit/stencil/internal/model"
	"github.com/tmplkit/stencil/internal/sandbox"
	"github.com/tmplkit/stencil/internal/ui"
)

// NewDisttestCommand creates the 'disttest' subcommand, which runs the
// project's isolated distribution test inside a throwaway container so host
// state cannot leak into the packaging check.
func NewDisttestCommand() *cobra.Command {
	var (
		image   string
		cleanup bool
	)

	cmd := &cobra.Command{
		Use:   "disttest [DIR]",
		Short: "Run the isolated distribution test in a container",
		Long: `Disttest mounts DIR (default: the current directory) into a fresh
container and runs its dev/isolated-dist-test.sh, which builds the
distribution and installs it into a pristine interpreter. The container is
removed when the run ends regardless of outcome.

--cleanup removes leftover containers from interrupted earlier runs
instead of starting a new one.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			printer := newPrinter(settings)

			cli, err := sandbox.NewClient()
			if err != nil {
				return err
			}
			defer cli.Close()
			if err := cli.Ping(cmd.Context()); err != nil {
				return err
			}

			if cleanup {
				ids, err := sandbox.ListStale(cmd.Context(), cli)
				if err != nil {
					return err
				}
				if len(ids) == 0 {
					printer.Banner(ui.ToneInfo, "no leftover containers")
					return nil
				}
				if err := sandbox.RemoveStale(cmd.Context(), cli, ids); err != nil {
					return err
				}
				printer.Banner(ui.ToneGood, "removed %d leftover container(s)", len(ids))
				return nil
			}

			projectDir := "."
			if len(args) == 1 {
				projectDir = args[0]
			}
			projectDir, err = filepath.Abs(projectDir)
			if err != nil {
				return err
			}
			if _, err := os.Stat(filepath.Join(projectDir, sandbox.IsolationScript)); err != nil {
				return model.WrapCLIError(model.ExitApplyError,
					"project has no "+sandbox.IsolationScript, err)
			}

			printer.Banner(ui.ToneAction, "running isolated dist test in %s", image)
			status, err := sandbox.RunIsolated(cmd.Context(), cli, sandbox.RunSpec{
				Image:      image,
				ProjectDir: projectDir,
			}, os.Stdout)
			if err != nil {
				return err
			}
			if status != 0 {
				return model.NewCLIError(model.ExitCode(status), "isolated dist test failed")
			}
			printer.Banner(ui.ToneGood, "isolated dist test passed")
			return nil
		},
	}

	cmd.Flags().StringVar(&image, "image", sandbox.DefaultImage,
		"Container image to run the test in")
	cmd.Flags().BoolVar(&cleanup, "cleanup", false,
		"Remove leftover containers from interrupted runs and exit")

	return cmd
}
