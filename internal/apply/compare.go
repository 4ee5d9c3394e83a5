package apply

import (
	"bytes"
	"os"
	"regexp"
	"strings"
)

var wsRun = regexp.MustCompile(`\s+`)

// filesEqual reports whether two files have identical content. With
// ignoreWS, each file is whitespace-normalized first, so formatting-only
// drift between a template and a project counts as identical.
func filesEqual(a, b string, ignoreWS bool) (bool, error) {
	dataA, err := os.ReadFile(a)
	if err != nil {
		return false, err
	}
	dataB, err := os.ReadFile(b)
	if err != nil {
		return false, err
	}
	if !ignoreWS {
		return bytes.Equal(dataA, dataB), nil
	}
	return collapseWhitespace(string(dataA)) == collapseWhitespace(string(dataB)), nil
}

// collapseWhitespace normalizes text for whitespace-insensitive comparison:
// runs of blank lines become a single empty line, and within each remaining
// line leading/trailing whitespace is stripped and interior runs collapse
// to one space.
func collapseWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	var out []string
	wasBlank := false
	for _, line := range lines {
		isBlank := strings.TrimSpace(line) == ""
		if isBlank {
			if !wasBlank {
				out = append(out, "")
			}
		} else {
			out = append(out, wsRun.ReplaceAllString(strings.TrimSpace(line), " "))
		}
		wasBlank = isBlank
	}
	return strings.Join(out, "\n")
}
