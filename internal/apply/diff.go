package apply

import (
	"fmt"
	"os"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// showDiff renders the difference between a template file and its target
// counterpart. Git's own `diff --no-index --color-words` is preferred since
// its word-level coloring is far easier to scan; when git is unavailable or
// explicitly disabled (-G), a builtin line diff is printed instead.
func (a *Applier) showDiff(fromFile, toFile string, ignoreWS, noGit bool) error {
	if !noGit {
		if err := a.git.DiffNoIndex(a.printer.Out(), fromFile, toFile, ignoreWS); err == nil {
			return nil
		}
		// git failed (not installed, or refused the invocation) — fall back.
	}
	return a.builtinDiff(fromFile, toFile, ignoreWS)
}

// builtinDiff prints a line-oriented diff computed with go-diff. Line-level
// granularity is obtained through the chars round-trip, which makes DiffMain
// treat each distinct line as a single token.
func (a *Applier) builtinDiff(fromFile, toFile string, ignoreWS bool) error {
	fromData, err := os.ReadFile(fromFile)
	if err != nil {
		return err
	}
	toData, err := os.ReadFile(toFile)
	if err != nil {
		return err
	}

	fromText := string(fromData)
	toText := string(toData)
	if ignoreWS {
		fromText = collapseWhitespace(fromText)
		toText = collapseWhitespace(toText)
	}

	dmp := diffmatchpatch.New()
	fromChars, toChars, lineIndex := dmp.DiffLinesToChars(fromText, toText)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(fromChars, toChars, false), lineIndex)

	a.printer.DiffLine(fmt.Sprintf("--- %s", fromFile))
	a.printer.DiffLine(fmt.Sprintf("+++ %s", toFile))

	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		for _, line := range splitDiffLines(d.Text) {
			a.printer.DiffLine(prefix + line)
		}
	}
	return nil
}

// splitDiffLines splits a diff chunk into its lines, dropping the trailing
// empty element a terminal newline produces.
func splitDiffLines(text string) []string {
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	return lines
}
