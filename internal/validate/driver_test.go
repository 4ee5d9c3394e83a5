package validate

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmplkit/stencil/internal/apply"
	"github.com/tmplkit/stencil/internal/gitx"
	"github.com/tmplkit/stencil/internal/model"
	"github.com/tmplkit/stencil/internal/ui"
)

// newTestTemplate builds a template whose dev/local-actions.sh records its
// arguments and the applied project's git state into SMOKE_LOG, then exits
// with SMOKE_EXIT (default 0). This lets tests observe exactly what the
// driver handed to the project's own test runner.
func newTestTemplate(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	write := func(rel, content string, mode os.FileMode) {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), mode))
	}

	write("stencil.yaml", `
files:
  - path: Makefile
  - path: dev/local-actions.sh
    optional: true
`, 0o644)
	write("Makefile", "all:\n\ttrue\n", 0o644)
	write("dev/local-actions.sh", `#!/bin/bash
set -euo pipefail
{
  echo "args: $@"
  echo "head: $(git rev-parse --verify HEAD)"
  echo "tracked: $(git ls-files | wc -l)"
} > "$SMOKE_LOG"
exit "${SMOKE_EXIT:-0}"
`, 0o755)
	return dir
}

func newTestDriver() *Driver {
	printer := ui.NewPrinter(io.Discard, false)
	git := gitx.NewRunner("")
	applier := apply.New(printer, nil, git)
	return New(git, applier, io.Discard, io.Discard)
}

// TestRunSuccess covers the full green path: apply, seed, commit, run the
// project's checks with the reusable venv path, exit zero, and remove the
// scratch directory.
func TestRunSuccess(t *testing.T) {
	tmpl := newTestTemplate(t)
	venv := t.TempDir()
	logPath := filepath.Join(t.TempDir(), "smoke.log")
	t.Setenv("SMOKE_LOG", logPath)
	t.Setenv("SMOKE_EXIT", "0")

	tempParent := t.TempDir()
	d := newTestDriver()

	err := d.Run(context.Background(), Options{
		TemplateDir: tmpl,
		VenvPath:    venv,
		TempParent:  tempParent,
	})
	require.NoError(t, err)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	log := string(data)

	// The runner received the absolute venv path.
	assert.Contains(t, log, "args: "+venv)
	// The baseline commit existed and was non-empty when the runner ran.
	assert.Contains(t, log, "head: ")
	assert.NotContains(t, log, "tracked: 0")

	assertScratchRemoved(t, tempParent)
}

// TestRunFreshEnv passes the fresh-environments flag instead of a venv path.
func TestRunFreshEnv(t *testing.T) {
	tmpl := newTestTemplate(t)
	logPath := filepath.Join(t.TempDir(), "smoke.log")
	t.Setenv("SMOKE_LOG", logPath)
	t.Setenv("SMOKE_EXIT", "0")

	d := newTestDriver()
	err := d.Run(context.Background(), Options{TemplateDir: tmpl, FreshEnv: true})
	require.NoError(t, err)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "args: -v")
}

// TestRunPropagatesTestExitCode: a failing test chain surfaces the script's
// own exit status, not a generic failure code.
func TestRunPropagatesTestExitCode(t *testing.T) {
	tmpl := newTestTemplate(t)
	venv := t.TempDir()
	logPath := filepath.Join(t.TempDir(), "smoke.log")
	t.Setenv("SMOKE_LOG", logPath)
	t.Setenv("SMOKE_EXIT", "5")

	tempParent := t.TempDir()
	d := newTestDriver()

	err := d.Run(context.Background(), Options{
		TemplateDir: tmpl,
		VenvPath:    venv,
		TempParent:  tempParent,
	})
	require.Error(t, err)
	assert.Equal(t, model.ExitCode(5), model.ExitCodeFromError(err))

	// Cleanup must run on the failure path too.
	assertScratchRemoved(t, tempParent)
}

// TestRunMissingVenvPath: usage errors happen before any filesystem
// mutation.
func TestRunMissingVenvPath(t *testing.T) {
	tempParent := t.TempDir()
	d := newTestDriver()

	err := d.Run(context.Background(), Options{
		TemplateDir: t.TempDir(),
		TempParent:  tempParent,
	})
	require.Error(t, err)
	assert.Equal(t, model.ExitUsageError, model.ExitCodeFromError(err))
	assertScratchRemoved(t, tempParent)
}

func TestRunVenvPathNotADirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	d := newTestDriver()
	err := d.Run(context.Background(), Options{TemplateDir: t.TempDir(), VenvPath: file})
	require.Error(t, err)
	assert.Equal(t, model.ExitUsageError, model.ExitCodeFromError(err))
}

// TestRunIncompleteTemplate: a template that cannot produce the required
// files aborts before the commit and test steps, and still cleans up.
func TestRunIncompleteTemplate(t *testing.T) {
	tmpl := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpl, "stencil.yaml"),
		[]byte("files:\n  - path: Makefile\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpl, "Makefile"), []byte("all:\n"), 0o644))

	tempParent := t.TempDir()
	d := newTestDriver()

	err := d.Run(context.Background(), Options{
		TemplateDir: tmpl,
		VenvPath:    t.TempDir(),
		TempParent:  tempParent,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), RunnerScript)
	assertScratchRemoved(t, tempParent)
}

// TestRunIdempotent: two runs with the same reusable venv produce the same
// outcome and leave no residue between them.
func TestRunIdempotent(t *testing.T) {
	tmpl := newTestTemplate(t)
	venv := t.TempDir()
	logPath := filepath.Join(t.TempDir(), "smoke.log")
	t.Setenv("SMOKE_LOG", logPath)
	t.Setenv("SMOKE_EXIT", "0")

	tempParent := t.TempDir()
	d := newTestDriver()
	opts := Options{TemplateDir: tmpl, VenvPath: venv, TempParent: tempParent}

	require.NoError(t, d.Run(context.Background(), opts))
	assertScratchRemoved(t, tempParent)
	require.NoError(t, d.Run(context.Background(), opts))
	assertScratchRemoved(t, tempParent)
}

// TestRunRestoresWorkingDirectory verifies the chdir-restore contract.
func TestRunRestoresWorkingDirectory(t *testing.T) {
	tmpl := newTestTemplate(t)
	logPath := filepath.Join(t.TempDir(), "smoke.log")
	t.Setenv("SMOKE_LOG", logPath)
	t.Setenv("SMOKE_EXIT", "0")

	before, err := os.Getwd()
	require.NoError(t, err)

	d := newTestDriver()
	require.NoError(t, d.Run(context.Background(), Options{TemplateDir: tmpl, FreshEnv: true}))

	after, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

// assertScratchRemoved checks the cleanup invariant: no stencil-validate
// scratch directory survives a run.
func assertScratchRemoved(t *testing.T, tempParent string) {
	t.Helper()
	entries, err := os.ReadDir(tempParent)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), "stencil-validate-"),
			"scratch directory %s must not survive the run", e.Name())
	}
}
