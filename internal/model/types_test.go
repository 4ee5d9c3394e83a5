package model

import (
	"errors"
	"fmt"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFileStateValidation verifies IsValid and ParseFileState for both the
// predefined states and arbitrary junk input.
func TestFileStateValidation(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  FileState
		valid bool
	}{
		{"missing", "missing", StateMissing, true},
		{"identical", "identical", StateIdentical, true},
		{"different", "different", StateDifferent, true},
		{"skipped", "skipped", StateSkipped, true},
		{"copied", "copied", StateCopied, true},
		{"uppercase is normalized", "MISSING", StateMissing, true},
		{"unknown state", "exploded", "", false},
		{"empty string", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFileState(tt.input)
			if tt.valid {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
				assert.True(t, got.IsValid())
			} else {
				assert.Error(t, err)
			}
		})
	}
}

// TestFileActionDisplayName checks the "(optional)" marker formatting.
func TestFileActionDisplayName(t *testing.T) {
	required := FileAction{Name: "Makefile"}
	assert.Equal(t, "Makefile", required.DisplayName())

	optional := FileAction{Name: "tests/__init__.py", Optional: true}
	assert.Equal(t, "tests/__init__.py (optional)", optional.DisplayName())
}

// TestReportCopiedAndFind exercises the report accessors the validation
// driver relies on to confirm the expected files were materialized.
func TestReportCopiedAndFind(t *testing.T) {
	r := &Report{
		TargetDir: "/tmp/x",
		Actions: []FileAction{
			{Name: "Makefile", State: StateCopied},
			{Name: "pyproject.toml", State: StateIdentical},
			{Name: "dev/local-actions.sh", State: StateCopied, Optional: true},
		},
	}

	assert.Equal(t, 2, r.Copied())

	found := r.Find("dev/local-actions.sh")
	require.NotNil(t, found)
	assert.Equal(t, StateCopied, found.State)

	assert.Nil(t, r.Find("no/such/file"))
}

func TestValidateTargetDir(t *testing.T) {
	assert.NoError(t, ValidateTargetDir("/tmp/project"))
	assert.NoError(t, ValidateTargetDir("relative/dir"))
	assert.Error(t, ValidateTargetDir(""))
	assert.Error(t, ValidateTargetDir("   "))
	assert.Error(t, ValidateTargetDir("--not-a-dir"))
}

// TestCLIErrorWrapping verifies the error interface, message formatting,
// and errors.Is/As traversal through Unwrap.
func TestCLIErrorWrapping(t *testing.T) {
	underlying := errors.New("disk full")
	err := WrapCLIError(ExitApplyError, "failed to copy Makefile", underlying)

	assert.Equal(t, "failed to copy Makefile: disk full", err.Error())
	assert.True(t, errors.Is(err, underlying))

	plain := NewCLIError(ExitGitError, "not a git repository")
	assert.Equal(t, "not a git repository", plain.Error())
	assert.Nil(t, plain.Unwrap())
}

// TestExitCodeFromError covers the exit-code propagation rules: CLIError
// codes win, except that a test-chain failure prefers the external command's
// own exit status.
func TestExitCodeFromError(t *testing.T) {
	t.Run("nil error is success", func(t *testing.T) {
		assert.Equal(t, ExitSuccess, ExitCodeFromError(nil))
	})

	t.Run("plain error is general failure", func(t *testing.T) {
		assert.Equal(t, ExitGeneralError, ExitCodeFromError(errors.New("boom")))
	})

	t.Run("cli error carries its code", func(t *testing.T) {
		err := NewCLIError(ExitEnvError, "pip install failed")
		assert.Equal(t, ExitEnvError, ExitCodeFromError(err))
	})

	t.Run("wrapped cli error found through chain", func(t *testing.T) {
		err := fmt.Errorf("verify: %w", NewCLIError(ExitGitError, "commit failed"))
		assert.Equal(t, ExitGitError, ExitCodeFromError(err))
	})

	t.Run("test failure propagates command status", func(t *testing.T) {
		// Run a real command that exits 3 so we get a genuine *exec.ExitError.
		cmd := exec.Command("sh", "-c", "exit 3")
		runErr := cmd.Run()
		require.Error(t, runErr)

		err := WrapCLIError(ExitTestFailed, "test matrix failed", runErr)
		assert.Equal(t, ExitCode(3), ExitCodeFromError(err))
	})

	t.Run("bare exit error propagates status", func(t *testing.T) {
		cmd := exec.Command("sh", "-c", "exit 7")
		runErr := cmd.Run()
		require.Error(t, runErr)
		assert.Equal(t, ExitCode(7), ExitCodeFromError(runErr))
	})
}
