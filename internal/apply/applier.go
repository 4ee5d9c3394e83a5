// Package apply materializes a project template into a target directory.
//
// For every file the template's manifest lists, the applier decides whether
// the target already has an identical copy, a diverged copy (shown as a
// diff), or nothing yet (copied, subject to the optional-file policy). An
// empty target — a brand-new project — additionally promotes optional files
// to required and seeds an empty requirements.txt so the generated project's
// tooling has its expected inputs.
//
// All failures are fail-fast: the first filesystem or git error aborts the
// run with no retries and no partial-state recovery.
package apply

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tmplkit/stencil/internal/gitx"
	"github.com/tmplkit/stencil/internal/manifest"
	"github.com/tmplkit/stencil/internal/model"
	"github.com/tmplkit/stencil/internal/ui"
)

// Options control a single template application run. The flags mirror the
// CLI surface one-to-one.
type Options struct {
	// DryRun reports what would be copied without writing anything.
	DryRun bool

	// Interactive prompts before every copy or overwrite.
	Interactive bool

	// IgnoreWS compares and diffs files whitespace-insensitively.
	IgnoreWS bool

	// NoGitDiff skips `git diff --no-index` and always uses the builtin diff.
	NoGitDiff bool

	// Optional treats optional files as required. Forced on when the target
	// directory is empty.
	Optional bool
}

// Applier applies a template tree to target directories.
type Applier struct {
	printer *ui.Printer
	confirm ui.ConfirmFunc
	git     *gitx.Runner
}

// New creates an Applier. confirm is only consulted in interactive runs;
// passing nil disables interactivity regardless of Options.Interactive.
func New(printer *ui.Printer, confirm ui.ConfirmFunc, git *gitx.Runner) *Applier {
	return &Applier{printer: printer, confirm: confirm, git: git}
}

// Run applies the template at templateDir to targetDir and returns a report
// of what happened to every manifest entry.
func (a *Applier) Run(templateDir, targetDir string, opts Options) (*model.Report, error) {
	if err := model.ValidateTargetDir(targetDir); err != nil {
		return nil, model.WrapCLIError(model.ExitUsageError, "invalid target directory", err)
	}

	targetDir, err := filepath.Abs(targetDir)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitApplyError, "failed to resolve target directory", err)
	}
	info, err := os.Stat(targetDir)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitApplyError, "target directory does not exist", err)
	}
	if !info.IsDir() {
		return nil, model.NewCLIError(model.ExitApplyError,
			fmt.Sprintf("not a directory: %s", targetDir))
	}

	wasEmpty, err := targetIsEmpty(targetDir)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitApplyError, "failed to inspect target directory", err)
	}
	if wasEmpty {
		// A brand-new project gets the full template, optional files included.
		opts.Optional = true
	}

	m, err := manifest.Load(templateDir)
	if err != nil {
		return nil, err
	}
	if err := m.Verify(templateDir); err != nil {
		return nil, err
	}

	actions, err := resolve(templateDir, targetDir, m)
	if err != nil {
		return nil, err
	}

	report := &model.Report{TargetDir: targetDir, TargetWasEmpty: wasEmpty}
	for _, action := range actions {
		processed, err := a.processFile(action, opts)
		if err != nil {
			return nil, err
		}
		report.Actions = append(report.Actions, processed)
	}

	if wasEmpty {
		seeded, err := a.seedRequirements(targetDir, opts)
		if err != nil {
			return nil, err
		}
		report.SeededRequirements = seeded
	}

	return report, nil
}

// processFile classifies one resolved template file against the target and
// carries out the resulting action.
func (a *Applier) processFile(action model.FileAction, opts Options) (model.FileAction, error) {
	_, err := os.Stat(action.Dest)
	destExists := err == nil

	switch {
	case destExists:
		equal, err := filesEqual(action.Source, action.Dest, opts.IgnoreWS)
		if err != nil {
			return action, model.WrapCLIError(model.ExitApplyError,
				fmt.Sprintf("failed to compare %s", action.Name), err)
		}
		if equal {
			action.State = model.StateIdentical
			a.printer.Banner(ui.ToneGood, "Identical: %s", action.DisplayName())
			return action, nil
		}

		action.State = model.StateDifferent
		a.printer.Banner(ui.ToneChange, "Different: %s", action.DisplayName())
		if err := a.showDiff(action.Source, action.Dest, opts.IgnoreWS, opts.NoGitDiff); err != nil {
			return action, model.WrapCLIError(model.ExitApplyError,
				fmt.Sprintf("failed to diff %s", action.Name), err)
		}
		if opts.Interactive && a.confirm != nil {
			overwrite, err := a.confirm("Overwrite?")
			if err != nil {
				return action, model.WrapCLIError(model.ExitUserCancelled, "prompt aborted", err)
			}
			if overwrite {
				return a.copyFile(action, opts)
			}
		}
		return action, nil

	case action.Optional && !opts.Optional:
		if opts.Interactive && a.confirm != nil {
			a.printer.Banner(ui.ToneInfo, "Optional: %s", action.Name)
			copyIt, err := a.confirm("Copy?")
			if err != nil {
				return action, model.WrapCLIError(model.ExitUserCancelled, "prompt aborted", err)
			}
			if copyIt {
				return a.copyFile(action, opts)
			}
		} else {
			a.printer.Banner(ui.ToneInfo, "Not copying optional %s", action.Name)
		}
		action.State = model.StateSkipped
		return action, nil

	default:
		if opts.Interactive && a.confirm != nil {
			a.printer.Banner(ui.ToneBad, "Missing: %s", action.DisplayName())
			copyIt, err := a.confirm("Copy?")
			if err != nil {
				return action, model.WrapCLIError(model.ExitUserCancelled, "prompt aborted", err)
			}
			if !copyIt {
				action.State = model.StateMissing
				return action, nil
			}
		}
		return a.copyFile(action, opts)
	}
}

// copyFile copies the template file to its destination, creating parent
// directories as needed and preserving the source file mode — scripts like
// dev/local-actions.sh must stay executable in the applied project.
func (a *Applier) copyFile(action model.FileAction, opts Options) (model.FileAction, error) {
	prefix := ""
	if opts.DryRun {
		prefix = "[DRY RUN] "
	}
	a.printer.Banner(ui.ToneAction, "%sCopying %s to %s", prefix, action.Name, action.Dest)

	if opts.DryRun {
		action.State = model.StateCopied
		return action, nil
	}

	if err := copyPreservingMode(action.Source, action.Dest); err != nil {
		return action, model.WrapCLIError(model.ExitApplyError,
			fmt.Sprintf("failed to copy %s", action.Name), err)
	}
	action.State = model.StateCopied
	return action, nil
}

// seedRequirements creates an empty requirements.txt in a freshly
// initialized target that has none, so dependency installation has a
// manifest to point at from day one. Returns whether the file was created.
func (a *Applier) seedRequirements(targetDir string, opts Options) (bool, error) {
	path := filepath.Join(targetDir, "requirements.txt")
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}

	prefix := ""
	if opts.DryRun {
		prefix = "[DRY RUN] "
	}
	a.printer.Banner(ui.ToneAction, "%sCreating empty requirements.txt", prefix)
	if opts.DryRun {
		return false, nil
	}

	if err := os.WriteFile(path, nil, 0o644); err != nil {
		return false, model.WrapCLIError(model.ExitApplyError, "failed to create requirements.txt", err)
	}
	return true, nil
}

// targetIsEmpty reports whether dir is empty, where a directory whose only
// entry is a .git repository still counts as empty — initializing version
// control before applying the template is a normal workflow.
func targetIsEmpty(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, err
	}
	if len(entries) == 0 {
		return true, nil
	}
	if len(entries) == 1 && entries[0].IsDir() && entries[0].Name() == ".git" {
		return true, nil
	}
	return false, nil
}

func copyPreservingMode(src, dest string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	// An existing destination keeps its old mode through O_TRUNC; align it
	// with the template so executable bits propagate on overwrite too.
	return os.Chmod(dest, info.Mode().Perm())
}
