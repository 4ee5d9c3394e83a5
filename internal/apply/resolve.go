package apply

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/tmplkit/stencil/internal/manifest"
	"github.com/tmplkit/stencil/internal/model"
)

// resolve maps every manifest entry to a concrete source and destination
// path. For entries with alternative-name search enabled, the target tree is
// searched recursively when the file is absent at the manifest path; a
// project may keep its dev requirements as e.g. requirements-dev.txt at the
// repository root, and the template file must then be compared against that
// file instead of creating a second copy at the manifest location.
func resolve(templateDir, targetDir string, m *manifest.Manifest) ([]model.FileAction, error) {
	actions := make([]model.FileAction, 0, len(m.Entries))

	for _, entry := range m.Entries {
		src := filepath.Join(templateDir, filepath.FromSlash(entry.Path))
		dest := filepath.Join(targetDir, filepath.FromSlash(entry.Path))

		if _, err := os.Stat(dest); os.IsNotExist(err) && entry.SearchAlts {
			found, err := searchAlternatives(targetDir, entry)
			if err != nil {
				return nil, err
			}
			if found != "" {
				dest = found
			}
		}

		// A destination that exists but is not a regular file cannot be
		// compared or overwritten; abort before mutating anything.
		if info, err := os.Stat(dest); err == nil && !info.Mode().IsRegular() {
			return nil, model.NewCLIError(model.ExitApplyError,
				fmt.Sprintf("not a file: %s", dest))
		}

		actions = append(actions, model.FileAction{
			Name:     entry.Path,
			Source:   src,
			Dest:     dest,
			Optional: entry.Optional,
		})
	}

	return actions, nil
}

// searchAlternatives walks the target tree looking for files whose base name
// matches the entry's accepted names. Exactly zero or one candidate is
// acceptable; more than one makes the mapping ambiguous and is an error.
// The .git directory is never descended into.
func searchAlternatives(targetDir string, entry manifest.FileEntry) (string, error) {
	names := make(map[string]bool)
	for _, n := range entry.SearchNames() {
		names[n] = true
	}

	var matches []string
	err := filepath.WalkDir(targetDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if names[d.Name()] {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return "", model.WrapCLIError(model.ExitApplyError,
			fmt.Sprintf("failed to search for alternatives of %s", entry.Path), err)
	}

	switch len(matches) {
	case 0:
		return "", nil
	case 1:
		return matches[0], nil
	default:
		return "", model.NewCLIError(model.ExitApplyError,
			fmt.Sprintf("found more than one alternative for %s: %v", entry.Path, matches))
	}
}
