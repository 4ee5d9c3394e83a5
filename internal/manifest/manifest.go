// Package manifest defines which files a project template provides and how
// each one maps into a target project.
//
// A template may ship an explicit stencil.yaml listing its files; templates
// without one get the built-in default list, which matches the layout of the
// Python project template this tool grew out of (Makefile, pyproject.toml,
// editor config, dev scripts, CI workflow).
//
// The .vscode JSON files in a template are JSONC — JSON with comments — so
// they are validated via github.com/tidwall/jsonc, which strips comments and
// trailing commas before a standard JSON validity check.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/tmplkit/stencil/internal/model"
)

// ManifestName is the file a template may place in its root to override the
// built-in file list.
const ManifestName = "stencil.yaml"

// FileEntry describes one file the template provides.
type FileEntry struct {
	// Path is the file's location relative to both the template root and
	// the target project root.
	Path string

	// SearchAlts enables recursive search in the target for a file that
	// should be treated as this entry's counterpart: the entry's own base
	// name plus every name in AltNames. When false, the counterpart is
	// looked up at Path only. Finding more than one candidate is an error
	// because the mapping would be ambiguous.
	SearchAlts bool

	// AltNames lists additional base names accepted as this entry's
	// counterpart during recursive search.
	AltNames []string

	// Optional files are copied only into empty targets, on explicit
	// request, or interactively.
	Optional bool
}

// Manifest is the ordered set of files a template provides. Order matters:
// files are processed and reported in manifest order.
type Manifest struct {
	Entries []FileEntry
}

// Default returns the built-in manifest used when a template ships no
// stencil.yaml. The list mirrors the original Python project template.
func Default() *Manifest {
	return &Manifest{Entries: []FileEntry{
		{Path: ".vscode/extensions.json"},
		{Path: ".vscode/settings.json"},
		{Path: "dev/requirements.txt", SearchAlts: true, AltNames: []string{"requirements-dev.txt"}},
		{Path: ".gitignore"},
		{Path: "Makefile"},
		{Path: "pyproject.toml"},
		{Path: "tests/__init__.py", Optional: true},
		{Path: "tests/test_dummy.py", Optional: true},
		{Path: ".github/workflows/tests.yml", Optional: true},
		{Path: "dev/local-actions.sh", Optional: true},
		{Path: "dev/isolated-dist-test.sh", Optional: true},
	}}
}

// rawEntry is the YAML wire form of FileEntry. AltNames is a pointer so a
// present-but-empty `alt_names: []` (search for the same base name only) can
// be distinguished from an absent key (no search at all).
type rawEntry struct {
	Path     string    `yaml:"path"`
	AltNames *[]string `yaml:"alt_names"`
	Optional bool      `yaml:"optional"`
}

type rawManifest struct {
	Files []rawEntry `yaml:"files"`
}

// Load reads the template's manifest. If templateDir has no stencil.yaml,
// the built-in Default list is returned.
func Load(templateDir string) (*Manifest, error) {
	path := filepath.Join(templateDir, ManifestName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, model.WrapCLIError(model.ExitApplyError, "failed to read template manifest", err)
	}
	return Parse(data)
}

// Parse decodes a stencil.yaml document and validates it.
func Parse(data []byte) (*Manifest, error) {
	var raw rawManifest
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, model.WrapCLIError(model.ExitApplyError, "invalid template manifest", err)
	}
	if len(raw.Files) == 0 {
		return nil, model.NewCLIError(model.ExitApplyError, "template manifest lists no files")
	}

	m := &Manifest{Entries: make([]FileEntry, 0, len(raw.Files))}
	seen := make(map[string]bool, len(raw.Files))
	for _, r := range raw.Files {
		p := filepath.ToSlash(strings.TrimSpace(r.Path))
		if p == "" {
			return nil, model.NewCLIError(model.ExitApplyError, "template manifest entry with empty path")
		}
		if strings.HasPrefix(p, "/") || strings.Contains(p, "..") {
			return nil, model.NewCLIError(model.ExitApplyError,
				fmt.Sprintf("template manifest path %q must be relative and stay inside the tree", p))
		}
		if seen[p] {
			return nil, model.NewCLIError(model.ExitApplyError,
				fmt.Sprintf("template manifest lists %q twice", p))
		}
		seen[p] = true

		entry := FileEntry{Path: p, Optional: r.Optional}
		if r.AltNames != nil {
			entry.SearchAlts = true
			entry.AltNames = *r.AltNames
		}
		m.Entries = append(m.Entries, entry)
	}
	return m, nil
}

// Verify checks that every manifest entry exists in the template tree and
// that JSON entries parse as JSONC. It is run before any target mutation so
// a broken template aborts the apply up front.
func (m *Manifest) Verify(templateDir string) error {
	for _, e := range m.Entries {
		src := filepath.Join(templateDir, filepath.FromSlash(e.Path))
		info, err := os.Stat(src)
		if err != nil {
			return model.WrapCLIError(model.ExitApplyError,
				fmt.Sprintf("template is missing %s", e.Path), err)
		}
		if info.IsDir() {
			return model.NewCLIError(model.ExitApplyError,
				fmt.Sprintf("template entry %s is a directory, not a file", e.Path))
		}
		if strings.HasSuffix(e.Path, ".json") {
			if err := validateJSONC(src); err != nil {
				return model.WrapCLIError(model.ExitApplyError,
					fmt.Sprintf("template file %s is not valid JSONC", e.Path), err)
			}
		}
	}
	return nil
}

// SearchNames returns the base names accepted as a counterpart for the
// entry during recursive search: the entry's own base name first, then the
// alternatives, deduplicated in order.
func (e FileEntry) SearchNames() []string {
	names := []string{filepath.Base(filepath.FromSlash(e.Path))}
	seen := map[string]bool{names[0]: true}
	for _, alt := range e.AltNames {
		if !seen[alt] {
			names = append(names, alt)
			seen[alt] = true
		}
	}
	return names
}

// validateJSONC strips comments and trailing commas, then checks the result
// is syntactically valid JSON.
func validateJSONC(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if !json.Valid(jsonc.ToJSON(data)) {
		return fmt.Errorf("malformed JSON after comment stripping")
	}
	return nil
}
