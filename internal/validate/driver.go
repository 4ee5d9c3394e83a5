// Package validate implements the template smoke test: apply the template
// into a scratch directory, commit the result, and hand control to the
// generated project's own test-matrix runner.
//
// The sequence verifies the one property the template repository actually
// promises — that a freshly applied template produces a working project.
// Each step blocks until its external process exits, and the first non-zero
// status aborts everything that follows. The scratch directory is removed
// and the prior working directory restored on every exit path, success or
// failure, via deferred cleanup.
package validate

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/tmplkit/stencil/internal/apply"
	"github.com/tmplkit/stencil/internal/gitx"
	"github.com/tmplkit/stencil/internal/model"
)

// RunnerScript is the entry point the applied template must provide; the
// driver executes it as the final validation step.
const RunnerScript = "dev/local-actions.sh"

// markerFile is the minimal source file seeded into the applied project so
// its tooling (linters, test discovery) has something to act on.
const markerFile = "smoke_check.py"

const markerContent = `"""Placeholder module created during template validation."""
`

// Options configure a single validation run.
type Options struct {
	// TemplateDir is the template tree to apply.
	TemplateDir string

	// VenvPath is the pre-existing virtual environment handed to the
	// project's test runner. Required unless FreshEnv is set.
	VenvPath string

	// FreshEnv asks the project's test runner to build new environments
	// from scratch instead of reusing VenvPath. Slower; used for thorough
	// pre-release verification.
	FreshEnv bool

	// TempParent overrides where the scratch directory is created.
	// Empty means the system default.
	TempParent string
}

// Driver orchestrates apply → seed → commit → test.
type Driver struct {
	// Git performs the version-control steps.
	Git *gitx.Runner

	// Applier materializes the template.
	Applier *apply.Applier

	// Out and Err receive the test runner's output streams.
	Out io.Writer
	Err io.Writer

	// Log, when non-nil, receives verbose progress messages.
	Log func(format string, args ...interface{})
}

// New creates a Driver with the given collaborators.
func New(git *gitx.Runner, applier *apply.Applier, out, errW io.Writer) *Driver {
	return &Driver{Git: git, Applier: applier, Out: out, Err: errW}
}

// Run executes the full validation chain. The returned error's exit code
// mirrors the first failing step; in particular a failing test-matrix run
// propagates its own exit status.
func (d *Driver) Run(ctx context.Context, opts Options) (err error) {
	if !opts.FreshEnv {
		if opts.VenvPath == "" {
			return model.NewCLIError(model.ExitUsageError, "a venv path is required unless fresh environments are requested")
		}
		info, statErr := os.Stat(opts.VenvPath)
		if statErr != nil || !info.IsDir() {
			return model.WrapCLIError(model.ExitUsageError,
				fmt.Sprintf("venv path %s is not a directory", opts.VenvPath), statErr)
		}
	}

	// Step 1: scratch directory, removed unconditionally on exit. Removal
	// is best-effort; a cleanup failure never masks the run's outcome.
	tmpDir, err := os.MkdirTemp(opts.TempParent, "stencil-validate-")
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to create temp directory", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	// The prior working directory is restored on exit so the invoking
	// shell is never left inside a directory that no longer exists.
	prevWD, err := os.Getwd()
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to read working directory", err)
	}
	defer func() { _ = os.Chdir(prevWD) }()

	// Step 2: apply the template. The scratch directory is empty, so the
	// applier promotes optional files and seeds requirements.txt itself.
	d.logf("Applying template %s to %s", opts.TemplateDir, tmpDir)
	report, err := d.Applier.Run(opts.TemplateDir, tmpDir, apply.Options{Optional: true})
	if err != nil {
		return err
	}

	// The downstream steps depend on these files; fail with a clear message
	// rather than a confusing script-not-found error later.
	for _, required := range []string{"Makefile", RunnerScript} {
		if a := report.Find(required); a == nil || a.State != model.StateCopied {
			return model.NewCLIError(model.ExitApplyError,
				fmt.Sprintf("applied template did not produce %s", required))
		}
	}

	// Step 3: seed a minimal source file so checks that need at least one
	// tracked source file have something to act on.
	if err := os.WriteFile(filepath.Join(tmpDir, markerFile), []byte(markerContent), 0o644); err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to seed marker file", err)
	}

	// Step 4: baseline commit. Several checks in the generated project's
	// tooling require running inside a version-controlled tree and compare
	// against tracked state.
	d.logf("Creating baseline commit")
	if err := d.Git.Init(tmpDir); err != nil {
		return err
	}
	if err := d.Git.ConfigUser(tmpDir, "Stencil Validation", "stencil@localhost"); err != nil {
		return err
	}
	if err := d.Git.AddAll(tmpDir); err != nil {
		return err
	}
	if err := d.Git.Commit(tmpDir, "Initial commit"); err != nil {
		return err
	}
	if !d.Git.HasCommits(tmpDir) {
		return model.NewCLIError(model.ExitGitError, "baseline commit did not produce a HEAD")
	}

	// Step 5: hand off to the applied project's own test-matrix runner.
	return d.runProjectChecks(ctx, tmpDir, opts)
}

// runProjectChecks executes the applied project's dev/local-actions.sh,
// passing either the reusable venv path or the fresh-environments flag.
func (d *Driver) runProjectChecks(ctx context.Context, projectDir string, opts Options) error {
	script := filepath.Join(projectDir, filepath.FromSlash(RunnerScript))
	info, err := os.Stat(script)
	if err != nil {
		return model.WrapCLIError(model.ExitApplyError,
			fmt.Sprintf("applied project has no %s", RunnerScript), err)
	}
	if info.Mode()&0o111 == 0 {
		return model.NewCLIError(model.ExitApplyError,
			fmt.Sprintf("%s is not executable", RunnerScript))
	}

	var args []string
	if opts.FreshEnv {
		args = append(args, "-v")
	} else {
		venvAbs, err := filepath.Abs(opts.VenvPath)
		if err != nil {
			return model.WrapCLIError(model.ExitGeneralError, "failed to resolve venv path", err)
		}
		args = append(args, venvAbs)
	}

	d.logf("Running %s %v", RunnerScript, args)

	// #nosec G204 — the script path comes from the applied template tree
	cmd := exec.CommandContext(ctx, script, args...)
	cmd.Dir = projectDir
	cmd.Stdout = d.Out
	cmd.Stderr = d.Err

	if err := cmd.Run(); err != nil {
		return model.WrapCLIError(model.ExitTestFailed, "project checks failed", err)
	}
	return nil
}

func (d *Driver) logf(format string, args ...interface{}) {
	if d.Log != nil {
		d.Log(format, args...)
	}
}
