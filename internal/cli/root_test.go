// Package cli — root_test.go verifies command registration, flag wiring,
// and error-to-exit-code translation without invoking any subprocesses.
package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmplkit/stencil/internal/model"
)

// TestRootCommandRegistersSubcommands verifies that every user-facing
// command is reachable from the root.
func TestRootCommandRegistersSubcommands(t *testing.T) {
	rootCmd := NewRootCommand()

	want := []string{"apply", "bootstrap", "verify", "smoke", "disttest"}
	var got []string
	for _, c := range rootCmd.Commands() {
		got = append(got, c.Name())
	}
	for _, name := range want {
		assert.Contains(t, got, name)
	}
}

// TestRootCommandSilencesCobraOutput verifies that cobra's own error and
// usage printing is disabled; Execute owns error formatting.
func TestRootCommandSilencesCobraOutput(t *testing.T) {
	rootCmd := NewRootCommand()
	assert.True(t, rootCmd.SilenceUsage)
	assert.True(t, rootCmd.SilenceErrors)
}

// TestSmokeCommandRejectsMissingArgument verifies that invoking smoke
// without a venv path fails with a usage message and exit code 1, before
// anything touches the filesystem.
func TestSmokeCommandRejectsMissingArgument(t *testing.T) {
	for _, args := range [][]string{
		{"smoke"},
		{"smoke", "one", "two"},
	} {
		rootCmd := NewRootCommand()
		rootCmd.SetArgs(args)
		rootCmd.SetOut(&bytes.Buffer{})
		rootCmd.SetErr(&bytes.Buffer{})

		err := rootCmd.Execute()
		require.Error(t, err)

		var cliErr *model.CLIError
		require.ErrorAs(t, err, &cliErr)
		assert.Equal(t, model.ExitGeneralError, cliErr.Code)
		assert.Equal(t, smokeUsage, cliErr.Message)
	}
}

// TestApplyCommandFlags verifies the apply flag surface, including the
// short forms used throughout the documentation.
func TestApplyCommandFlags(t *testing.T) {
	cmd := NewApplyCommand()

	for flag, short := range map[string]string{
		"ignore-all-space": "w",
		"no-git-diff":      "G",
		"interactive":      "i",
		"dry-run":          "n",
		"optional":         "o",
	} {
		f := cmd.Flags().Lookup(flag)
		require.NotNil(t, f, "missing flag %q", flag)
		assert.Equal(t, short, f.Shorthand, "flag %q", flag)
		assert.Equal(t, "false", f.DefValue, "flag %q", flag)
	}

	from := cmd.Flags().Lookup("from")
	require.NotNil(t, from)
	assert.Equal(t, ".", from.DefValue)
}

// TestVerifyCommandFlags verifies that --fresh defaults to reusing the
// shared environment.
func TestVerifyCommandFlags(t *testing.T) {
	cmd := NewVerifyCommand()

	fresh := cmd.Flags().Lookup("fresh")
	require.NotNil(t, fresh)
	assert.Equal(t, "f", fresh.Shorthand)
	assert.Equal(t, "false", fresh.DefValue)
}

// TestDisttestCommandFlags verifies the container image default.
func TestDisttestCommandFlags(t *testing.T) {
	cmd := NewDisttestCommand()

	image := cmd.Flags().Lookup("image")
	require.NotNil(t, image)
	assert.Contains(t, image.DefValue, "python")
}
