// Package model defines the domain types shared across the stencil CLI.
//
// The types here describe the template application workflow: which files a
// template provides, what state each file is in relative to a target project,
// and how errors map to process exit codes. They carry no behavior beyond
// validation and formatting; all I/O lives in the packages that consume them.
package model

import (
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// FileState describes the relationship between a template file and its
// counterpart in the target project directory. The applier classifies every
// manifest entry into one of these states before deciding what to do with it.
//
//	Missing   → file does not exist in the target
//	Identical → target file is byte-identical to the template
//	Different → target file exists but differs from the template
//	Skipped   → optional file deliberately not copied
//	Copied    → file was written to the target during this run
type FileState string

const (
	// StateMissing indicates the target has no counterpart for the template file.
	StateMissing FileState = "missing"

	// StateIdentical indicates the target file matches the template byte-for-byte
	// (or modulo whitespace, when whitespace-insensitive comparison is requested).
	StateIdentical FileState = "identical"

	// StateDifferent indicates the target file exists with differing content.
	StateDifferent FileState = "different"

	// StateSkipped indicates an optional file was not copied because optional
	// files were not requested and the target was not empty.
	StateSkipped FileState = "skipped"

	// StateCopied indicates the file was written to the target during this run.
	StateCopied FileState = "copied"
)

// String returns the string representation of FileState.
func (s FileState) String() string {
	return string(s)
}

// IsValid checks whether the FileState value is one of the predefined states.
func (s FileState) IsValid() bool {
	switch s {
	case StateMissing, StateIdentical, StateDifferent, StateSkipped, StateCopied:
		return true
	default:
		return false
	}
}

// ParseFileState converts a string to a FileState.
// Returns an error if the string does not match any valid state.
func ParseFileState(s string) (FileState, error) {
	state := FileState(strings.ToLower(s))
	if !state.IsValid() {
		return "", fmt.Errorf("invalid file state: %q (valid: missing, identical, different, skipped, copied)", s)
	}
	return state, nil
}

// FileAction is a fully resolved template file: where it comes from in the
// template tree, where it lands in the target, and what the applier decided
// about it. The Name field keeps the manifest-relative path for display even
// when alt-name resolution redirected Dest elsewhere in the target tree.
type FileAction struct {
	// Name is the manifest-relative path of the file (e.g. "dev/requirements.txt").
	Name string `json:"name"`

	// Source is the absolute path of the file inside the template tree.
	Source string `json:"source"`

	// Dest is the absolute path the file maps to in the target directory.
	// May differ from Name when an alternative file name was located.
	Dest string `json:"dest"`

	// Optional marks files the template does not require in every project.
	Optional bool `json:"optional"`

	// State is the classification the applier assigned to this file.
	State FileState `json:"state"`
}

// DisplayName returns the manifest path with an "(optional)" marker when
// applicable, matching the banner format of the apply output.
func (a FileAction) DisplayName() string {
	if a.Optional {
		return a.Name + " (optional)"
	}
	return a.Name
}

// Report summarizes a template application run. The applier returns it so
// the CLI layer can print counts and the validation driver can assert that
// the expected files were materialized.
type Report struct {
	// TargetDir is the absolute path of the directory the template was applied to.
	TargetDir string `json:"targetDir"`

	// TargetWasEmpty records whether the target was empty (or contained only
	// a .git directory) before the run. An empty target promotes optional
	// files to required and seeds an empty requirements.txt.
	TargetWasEmpty bool `json:"targetWasEmpty"`

	// Actions lists every manifest entry with its final state, in manifest order.
	Actions []FileAction `json:"actions"`

	// SeededRequirements is true when an empty requirements.txt was created
	// because the target started out empty and had none.
	SeededRequirements bool `json:"seededRequirements,omitempty"`
}

// Copied returns the number of files written during the run.
func (r *Report) Copied() int {
	n := 0
	for _, a := range r.Actions {
		if a.State == StateCopied {
			n++
		}
	}
	return n
}

// Find returns the action for the given manifest path, or nil if the
// manifest has no such entry.
func (r *Report) Find(name string) *FileAction {
	for i := range r.Actions {
		if r.Actions[i].Name == name {
			return &r.Actions[i]
		}
	}
	return nil
}

// ValidateTargetDir rejects target paths that are empty or clearly unusable
// before any filesystem mutation happens. It does not check existence; the
// applier resolves and stats the path itself.
func ValidateTargetDir(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("target directory must not be empty")
	}
	if !filepath.IsAbs(path) && strings.HasPrefix(path, "-") {
		return fmt.Errorf("invalid target directory %q", path)
	}
	return nil
}

// ExitCode defines the CLI exit codes. These let shell scripts and CI systems
// distinguish failure classes programmatically; the validation chain in
// particular propagates the exit status of the applied project's own test
// runner through these codes.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitUsageError indicates invalid or missing command-line arguments.
	ExitUsageError ExitCode = 2

	// ExitGitError indicates a Git operation (init, add, commit, diff) failed.
	ExitGitError ExitCode = 3

	// ExitApplyError indicates the template could not be applied to the target.
	ExitApplyError ExitCode = 4

	// ExitEnvError indicates virtual environment creation or dependency
	// installation failed. An environment that failed mid-install is never
	// treated as usable.
	ExitEnvError ExitCode = 5

	// ExitTestFailed indicates the applied project's own test chain reported
	// a failure.
	ExitTestFailed ExitCode = 6

	// ExitDockerNotRunning indicates the Docker daemon is not accessible
	// (isolated dist test only).
	ExitDockerNotRunning ExitCode = 7

	// ExitUserCancelled indicates the user declined an interactive prompt
	// in a context where proceeding makes no sense.
	ExitUserCancelled ExitCode = 8
)

// CLIError is an error type that carries an exit code, allowing the CLI
// layer to translate domain errors into appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}

// ExitCodeFromError inspects an error chain and returns the process exit
// code it implies. CLIError values carry their own code; a wrapped
// exec.ExitError yields the external command's status so that a failing
// test-matrix run propagates its exact exit code through the CLI. Everything
// else maps to ExitGeneralError, and nil maps to ExitSuccess.
func ExitCodeFromError(err error) ExitCode {
	if err == nil {
		return ExitSuccess
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		// A CLIError wrapping an external command failure still prefers the
		// command's own exit status for test-runner failures, because the
		// validation contract is "exit code mirrors the chain".
		if cliErr.Code == ExitTestFailed {
			var exitErr *exec.ExitError
			if errors.As(cliErr.Err, &exitErr) && exitErr.ExitCode() > 0 {
				return ExitCode(exitErr.ExitCode())
			}
		}
		return cliErr.Code
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
		return ExitCode(exitErr.ExitCode())
	}

	return ExitGeneralError
}
