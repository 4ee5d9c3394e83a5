// Package gitx wraps the Git CLI commands the stencil workflow needs.
//
// The validation driver initializes a fresh repository in the applied
// project, stages everything, and creates a single baseline commit so the
// project's own tooling sees a clean, tracked tree. The applier additionally
// uses `git diff --no-index` for word-colored diffs between a template file
// and its target counterpart.
//
// Design decisions:
//   - We shell out to `git` rather than using a Go Git library because the
//     applier wants git's own --color-words rendering on the user's terminal,
//     and the validation contract is "whatever git does, verbatim".
//   - The Runner carries the git binary path so tests and alternative
//     installs can substitute it; everything else is per-call parameters.
//   - All git failures are wrapped in model.CLIError with ExitGitError so
//     the CLI layer maps them to the right process exit code.
package gitx

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/tmplkit/stencil/internal/model"
)

// Runner executes git operations by invoking the git CLI.
type Runner struct {
	// Bin is the git executable to invoke. Empty means "git" from PATH.
	Bin string
}

// NewRunner creates a Runner using the given git binary.
// An empty bin falls back to "git" resolved via PATH.
func NewRunner(bin string) *Runner {
	if bin == "" {
		bin = "git"
	}
	return &Runner{Bin: bin}
}

// Init creates a new repository rooted at dir.
func (r *Runner) Init(dir string) error {
	_, err := r.run(dir, "init")
	return err
}

// ConfigUser sets a repo-local committer identity. The validation driver
// calls this before committing so the baseline commit succeeds in
// environments without a global git configuration (e.g. CI).
func (r *Runner) ConfigUser(dir, name, email string) error {
	if _, err := r.run(dir, "config", "user.name", name); err != nil {
		return err
	}
	_, err := r.run(dir, "config", "user.email", email)
	return err
}

// AddAll stages every file under dir.
func (r *Runner) AddAll(dir string) error {
	_, err := r.run(dir, "add", "--all")
	return err
}

// Commit records a commit with the given message. Git itself rejects an
// empty commit here (no --allow-empty), which enforces the "baseline commit
// must be non-empty" contract of the validation driver.
func (r *Runner) Commit(dir, message string) error {
	_, err := r.run(dir, "commit", "-m", message)
	return err
}

// HasCommits reports whether the repository at dir has at least one commit.
// `git rev-parse --verify HEAD` exits non-zero on an unborn branch.
func (r *Runner) HasCommits(dir string) bool {
	_, err := r.run(dir, "rev-parse", "--verify", "HEAD")
	return err == nil
}

// IsRepo reports whether dir is inside a git working tree.
func (r *Runner) IsRepo(dir string) bool {
	gitPath := filepath.Join(dir, ".git")
	if info, err := os.Lstat(gitPath); err == nil && info.IsDir() {
		return true
	}
	_, err := r.run(dir, "rev-parse", "--is-inside-work-tree")
	return err == nil
}

// TrackedFiles returns the paths git tracks at dir, relative to dir.
func (r *Runner) TrackedFiles(dir string) ([]string, error) {
	output, err := r.run(dir, "ls-files")
	if err != nil {
		return nil, err
	}
	output = strings.TrimSpace(output)
	if output == "" {
		return nil, nil
	}
	return strings.Split(output, "\n"), nil
}

// DiffNoIndex renders a word-colored diff between two files outside any
// repository, writing git's output directly to w. Exit status 1 means "files
// differ" and is not an error; any other non-zero status is.
//
// ignoreWS adds --ignore-all-space, mirroring the applier's -w flag.
func (r *Runner) DiffNoIndex(w io.Writer, fromFile, toFile string, ignoreWS bool) error {
	args := []string{"--no-pager", "diff", "--no-index", "--color-words"}
	if ignoreWS {
		args = append(args, "--ignore-all-space")
	}
	args = append(args, "--", fromFile, toFile)

	// #nosec G204 — args are constructed internally, not from user input
	cmd := exec.Command(r.Bin, args...)
	cmd.Stdout = w
	var stderr strings.Builder
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
		// Differences found — that is the expected outcome, not a failure.
		return nil
	}
	return model.WrapCLIError(model.ExitGitError,
		fmt.Sprintf("git diff --no-index failed: %s", strings.TrimSpace(stderr.String())), err)
}

// run executes a git command with the given arguments in the specified
// directory via `git -C dir`. On success it returns stdout; on failure it
// returns a CLIError that includes stderr for diagnostics.
//
// The -C flag is used instead of exec.Cmd.Dir because git handles it before
// anything else, which behaves consistently across all subcommands and
// avoids touching the process working directory.
func (r *Runner) run(dir string, args ...string) (string, error) {
	fullArgs := append([]string{"-C", dir}, args...)

	// #nosec G204 — args are constructed internally, not from user input
	cmd := exec.Command(r.Bin, fullArgs...)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		stderrStr := strings.TrimSpace(stderr.String())
		message := fmt.Sprintf("git %s failed", strings.Join(args, " "))
		if stderrStr != "" {
			message = fmt.Sprintf("%s: %s", message, stderrStr)
		}
		return "", model.WrapCLIError(model.ExitGitError, message, err)
	}

	return stdout.String(), nil
}
