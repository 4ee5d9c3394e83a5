// Package ui renders user-facing output for the stencil CLI: the banner
// lines that frame each file action, colored diff lines for the builtin
// diff fallback, and interactive confirmation prompts.
//
// Styling is built on lipgloss, which degrades to plain text automatically
// on non-TTY writers; NO_COLOR additionally forces plain output regardless
// of terminal capabilities.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/charmbracelet/lipgloss"
)

// Tone selects the banner color, mapping one-to-one to the message classes
// of the apply workflow.
type Tone int

const (
	// ToneInfo is used for neutral progress messages (cyan).
	ToneInfo Tone = iota
	// ToneGood is used for "identical" results (green).
	ToneGood
	// ToneChange is used for "different" results that come with a diff (magenta).
	ToneChange
	// ToneAction is used for copy/create actions (yellow).
	ToneAction
	// ToneBad is used for missing files and failures (red).
	ToneBad
)

var toneStyles = map[Tone]lipgloss.Style{
	ToneInfo:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),
	ToneGood:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2")),
	ToneChange: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5")),
	ToneAction: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3")),
	ToneBad:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1")),
}

var (
	diffHeaderStyle = lipgloss.NewStyle().Bold(true)
	diffHunkStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	diffDelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	diffAddStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
)

// ConfirmFunc asks the user a yes/no question. The applier takes one as a
// parameter so tests can script answers without a terminal.
type ConfirmFunc func(message string) (bool, error)

// Printer writes styled messages to a single output writer.
type Printer struct {
	out   io.Writer
	color bool
}

// NewPrinter creates a Printer. When color is false every style collapses
// to plain text.
func NewPrinter(out io.Writer, color bool) *Printer {
	return &Printer{out: out, color: color}
}

// Out returns the underlying writer, e.g. for streaming a git diff through
// the same destination as the banners.
func (p *Printer) Out() io.Writer {
	return p.out
}

// Banner prints a framed message line in the given tone:
//
//	##### Different: Makefile #####
func (p *Printer) Banner(tone Tone, format string, args ...interface{}) {
	msg := fmt.Sprintf("##### %s #####", fmt.Sprintf(format, args...))
	if p.color {
		msg = toneStyles[tone].Render(msg)
	}
	fmt.Fprintln(p.out, msg)
}

// DiffLine prints one line of a unified diff with conventional coloring:
// file headers bold, hunk markers cyan, deletions red, additions green.
func (p *Printer) DiffLine(line string) {
	styled := line
	if p.color {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			styled = diffHeaderStyle.Render(line)
		case strings.HasPrefix(line, "@@"):
			styled = diffHunkStyle.Render(line)
		case strings.HasPrefix(line, "-"):
			styled = diffDelStyle.Render(line)
		case strings.HasPrefix(line, "+"):
			styled = diffAddStyle.Render(line)
		}
	}
	fmt.Fprintln(p.out, styled)
}

// SurveyConfirm is the interactive ConfirmFunc used by the real CLI.
// It renders a [y/N] prompt on the controlling terminal; the default
// answer is "no", matching the conservative behavior of the applier.
func SurveyConfirm(message string) (bool, error) {
	answer := false
	prompt := &survey.Confirm{Message: message, Default: false}
	if err := survey.AskOne(prompt, &answer); err != nil {
		return false, err
	}
	return answer, nil
}
