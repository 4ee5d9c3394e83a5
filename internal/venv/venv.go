// Package venv creates isolated Python interpreter environments with the
// project's declared dependencies installed.
//
// The bootstrap sequence is fixed: create the environment, upgrade pip
// inside it, then install the runtime and development requirement manifests.
// Every step is fatal on failure — there is no partial-success state. A
// completion marker is written only after the final install succeeds, so an
// environment that died mid-install is never mistaken for a usable one.
package venv

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/tmplkit/stencil/internal/model"
)

// readyMarker is written into the environment directory after the full
// bootstrap chain has completed.
const readyMarker = ".stencil-ready"

// RuntimeRequirements and DevRequirements are the manifest paths looked up
// relative to the project directory, matching the template layout.
const (
	RuntimeRequirements = "requirements.txt"
	DevRequirements     = "dev/requirements.txt"
)

// Bootstrapper builds virtual environments. The interpreter binary is an
// explicit field rather than an ambient default, so callers (and tests)
// decide which Python creates the environment.
type Bootstrapper struct {
	// Python is the interpreter used for `python -m venv`.
	Python string

	// Out and Err receive the underlying commands' output streams. Nil
	// writers discard.
	Out io.Writer
	Err io.Writer
}

// New creates a Bootstrapper for the given interpreter binary.
// An empty binary falls back to "python3" from PATH.
func New(python string) *Bootstrapper {
	if python == "" {
		python = "python3"
	}
	return &Bootstrapper{Python: python}
}

// Create builds a virtual environment at venvDir and installs the
// requirement manifests found in projectDir. Manifests that do not exist
// are skipped; any command failure aborts the chain immediately.
func (b *Bootstrapper) Create(ctx context.Context, venvDir, projectDir string) error {
	venvDir, err := filepath.Abs(venvDir)
	if err != nil {
		return model.WrapCLIError(model.ExitEnvError, "failed to resolve venv path", err)
	}

	if err := b.run(ctx, projectDir, b.Python, "-m", "venv", venvDir); err != nil {
		return err
	}

	py := PythonBin(venvDir)
	if _, err := os.Stat(py); err != nil {
		return model.WrapCLIError(model.ExitEnvError,
			fmt.Sprintf("venv created but interpreter missing at %s", py), err)
	}

	// pip upgrades itself first so requirement resolution runs on a current
	// installer regardless of how stale the system interpreter's bundled
	// pip is.
	if err := b.run(ctx, projectDir, py, "-m", "pip", "install", "--upgrade", "pip"); err != nil {
		return err
	}

	for _, rel := range []string{RuntimeRequirements, DevRequirements} {
		manifest := filepath.Join(projectDir, filepath.FromSlash(rel))
		if _, err := os.Stat(manifest); os.IsNotExist(err) {
			continue
		}
		if err := b.run(ctx, projectDir, py, "-m", "pip", "install", "-r", manifest); err != nil {
			return err
		}
	}

	stamp := fmt.Sprintf("created %s\n", time.Now().UTC().Format(time.RFC3339))
	if err := os.WriteFile(filepath.Join(venvDir, readyMarker), []byte(stamp), 0o644); err != nil {
		return model.WrapCLIError(model.ExitEnvError, "failed to write completion marker", err)
	}
	return nil
}

// IsReady reports whether venvDir holds a fully bootstrapped environment:
// the venv metadata, its interpreter, and the completion marker must all be
// present. An environment whose bootstrap died mid-install lacks the marker
// and is reported as not ready.
func (b *Bootstrapper) IsReady(venvDir string) bool {
	if _, err := os.Stat(filepath.Join(venvDir, "pyvenv.cfg")); err != nil {
		return false
	}
	if _, err := os.Stat(PythonBin(venvDir)); err != nil {
		return false
	}
	_, err := os.Stat(filepath.Join(venvDir, readyMarker))
	return err == nil
}

// PythonBin returns the interpreter path inside a virtual environment.
func PythonBin(venvDir string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(venvDir, "Scripts", "python.exe")
	}
	return filepath.Join(venvDir, "bin", "python")
}

// run executes one bootstrap command, streaming its output, and wraps any
// failure as a fatal environment error.
func (b *Bootstrapper) run(ctx context.Context, dir, bin string, args ...string) error {
	// #nosec G204 — args are constructed internally, not from user input
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
	cmd.Stdout = b.Out
	cmd.Stderr = b.Err

	if err := cmd.Run(); err != nil {
		return model.WrapCLIError(model.ExitEnvError,
			fmt.Sprintf("%s %s failed", filepath.Base(bin), strings.Join(args, " ")), err)
	}
	return nil
}
