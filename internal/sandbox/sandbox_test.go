package sandbox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildLabels(t *testing.T) {
	labels := BuildLabels("/home/me/proj")

	assert.Equal(t, ManagedByValue, labels[LabelManagedBy])
	assert.Equal(t, "/home/me/proj", labels[LabelProject])
}

func TestContainerName(t *testing.T) {
	tests := []struct {
		name       string
		projectDir string
		wantBase   string
	}{
		{"simple", "/tmp/myproj", "stencil-disttest-myproj-"},
		{"uppercase folded", "/tmp/MyProj", "stencil-disttest-myproj-"},
		{"invalid chars replaced", "/tmp/my proj_v2", "stencil-disttest-my-proj-v2-"},
		{"all invalid falls back", "/tmp/___", "stencil-disttest-project-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ContainerName(tt.projectDir)
			assert.True(t, strings.HasPrefix(got, tt.wantBase),
				"got %q, want prefix %q", got, tt.wantBase)
			// Docker container names: [a-zA-Z0-9][a-zA-Z0-9_.-]*
			for _, r := range got {
				valid := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-'
				assert.True(t, valid, "invalid rune %q in container name %q", r, got)
			}
		})
	}
}

func TestDefaultImageIsPython(t *testing.T) {
	// The isolation script expects a Python toolchain in the image.
	assert.Contains(t, DefaultImage, "python")
}
