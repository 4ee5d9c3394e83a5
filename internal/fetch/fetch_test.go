package fetch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGitURL(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		owner    string
		repo     string
		platform string
		wantErr  bool
	}{
		{"github https", "https://github.com/acme/py-template", "acme", "py-template", "github", false},
		{"github https .git", "https://github.com/acme/py-template.git", "acme", "py-template", "github", false},
		{"github ssh", "git@github.com:acme/py-template.git", "acme", "py-template", "github", false},
		{"gitlab https", "https://gitlab.com/acme/py-template", "acme", "py-template", "gitlab", false},
		{"gitlab ssh", "git@gitlab.com:acme/py-template.git", "acme", "py-template", "gitlab", false},
		{"trailing slash", "https://github.com/acme/py-template/", "acme", "py-template", "github", false},
		{"local path", "./templates/python", "", "", "", true},
		{"absolute path", "/home/me/template", "", "", "", true},
		{"random host", "https://example.com/acme/repo", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := ParseGitURL(tt.source)
			if tt.wantErr {
				assert.Error(t, err)
				assert.False(t, IsRemote(tt.source))
				return
			}
			require.NoError(t, err)
			assert.True(t, IsRemote(tt.source))
			assert.Equal(t, tt.owner, info.Owner)
			assert.Equal(t, tt.repo, info.Repo)
			assert.Equal(t, tt.platform, info.Platform)
		})
	}
}

func TestNormalizeGitURL(t *testing.T) {
	got, err := NormalizeGitURL("git@github.com:acme/py-template.git")
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/acme/py-template.git", got)

	got, err = NormalizeGitURL("https://gitlab.com/acme/py-template")
	require.NoError(t, err)
	assert.Equal(t, "https://gitlab.com/acme/py-template.git", got)

	_, err = NormalizeGitURL("not-a-url")
	assert.Error(t, err)
}

// TestTemplateLocal resolves a local directory in place with a no-op cleanup.
func TestTemplateLocal(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "Makefile"), []byte("all:\n"), 0o644))

	dir, cleanup, err := Template(context.Background(), src)
	require.NoError(t, err)
	defer cleanup()

	abs, _ := filepath.Abs(src)
	assert.Equal(t, abs, dir)

	// Local sources must survive cleanup untouched.
	cleanup()
	assert.FileExists(t, filepath.Join(src, "Makefile"))
}

func TestTemplateLocalMissing(t *testing.T) {
	_, _, err := Template(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestTemplateLocalFileNotDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "template.tar")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, _, err := Template(context.Background(), file)
	assert.Error(t, err)
}
