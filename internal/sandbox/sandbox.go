package sandbox

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/tmplkit/stencil/internal/model"
)

// Labels attached to every sandbox container. The managed-by label is the
// filter key for finding stale sandboxes; the project label records which
// project directory a sandbox was testing.
const (
	LabelManagedBy = "stencil.managed-by"
	LabelProject   = "stencil.project"

	// ManagedByValue is the value identifying containers created by this tool.
	ManagedByValue = "stencil"
)

// DefaultImage is the container image used when none is specified. A slim
// Python image is all the isolation script needs; it installs everything
// else itself.
const DefaultImage = "python:3.12-slim"

// IsolationScript is the entry point executed inside the container. The
// applied template provides it; it builds the distribution and installs it
// into a clean environment before running the tests.
const IsolationScript = "dev/isolated-dist-test.sh"

// workDir is where the project is mounted inside the container.
const workDir = "/work"

// RunSpec describes one isolated test run.
type RunSpec struct {
	// Image is the container image; empty means DefaultImage.
	Image string

	// ProjectDir is the host path of the applied project to mount.
	ProjectDir string
}

// ContainerName derives a stable, Docker-safe container name from the
// project directory's base name.
func ContainerName(projectDir string) string {
	base := strings.ToLower(filepath.Base(projectDir))
	var b strings.Builder
	for _, r := range base {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		} else {
			b.WriteRune('-')
		}
	}
	name := strings.Trim(b.String(), "-")
	if name == "" {
		name = "project"
	}
	return fmt.Sprintf("stencil-disttest-%s-%d", name, time.Now().Unix())
}

// BuildLabels constructs the label set for a sandbox container.
func BuildLabels(projectDir string) map[string]string {
	return map[string]string{
		LabelManagedBy: ManagedByValue,
		LabelProject:   projectDir,
	}
}

// RunIsolated executes the project's isolation script inside a disposable
// container and returns the script's exit code. The container is removed
// (force) on every exit path; its output is streamed to out.
func RunIsolated(ctx context.Context, cli *Client, spec RunSpec, out io.Writer) (int, error) {
	image := spec.Image
	if image == "" {
		image = DefaultImage
	}
	projectDir, err := filepath.Abs(spec.ProjectDir)
	if err != nil {
		return -1, model.WrapCLIError(model.ExitGeneralError, "failed to resolve project directory", err)
	}

	cfg := &container.Config{
		Image:      image,
		WorkingDir: workDir,
		Cmd:        []string{"bash", IsolationScript},
		Labels:     BuildLabels(projectDir),
	}
	hostCfg := &container.HostConfig{
		Binds: []string{projectDir + ":" + workDir},
	}

	created, err := cli.Inner().ContainerCreate(ctx, cfg, hostCfg, nil, nil, ContainerName(projectDir))
	if err != nil {
		return -1, model.WrapCLIError(model.ExitDockerNotRunning, "failed to create sandbox container", err)
	}
	// Removal must happen on every path, including cancellation, so the
	// cleanup uses its own context.
	defer func() {
		removeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = cli.Inner().ContainerRemove(removeCtx, created.ID, container.RemoveOptions{Force: true})
	}()

	if err := cli.Inner().ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return -1, model.WrapCLIError(model.ExitDockerNotRunning, "failed to start sandbox container", err)
	}

	// Stream the container's output while waiting for it to stop. Docker
	// multiplexes stdout/stderr into one stream; stdcopy demultiplexes it.
	logs, err := cli.Inner().ContainerLogs(ctx, created.ID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
	})
	if err == nil {
		defer func() { _ = logs.Close() }()
		go func() { _, _ = stdcopy.StdCopy(out, out, logs) }()
	}

	waitCh, errCh := cli.Inner().ContainerWait(ctx, created.ID, container.WaitConditionNotRunning)
	select {
	case resp := <-waitCh:
		if resp.Error != nil {
			return -1, model.NewCLIError(model.ExitDockerNotRunning,
				fmt.Sprintf("sandbox wait failed: %s", resp.Error.Message))
		}
		return int(resp.StatusCode), nil
	case err := <-errCh:
		return -1, model.WrapCLIError(model.ExitDockerNotRunning, "sandbox container wait failed", err)
	case <-ctx.Done():
		return -1, model.WrapCLIError(model.ExitGeneralError, "isolated test cancelled", ctx.Err())
	}
}

// ListStale returns the IDs of sandbox containers left behind by earlier
// runs, identified by the managed-by label. Stopped containers are included
// since a crashed run leaves its container in "exited".
func ListStale(ctx context.Context, cli *Client) ([]string, error) {
	filterArgs := filters.NewArgs(filters.Arg("label", LabelManagedBy+"="+ManagedByValue))

	containers, err := cli.Inner().ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filterArgs,
	})
	if err != nil {
		return nil, model.WrapCLIError(model.ExitDockerNotRunning, "failed to list sandbox containers", err)
	}

	ids := make([]string, 0, len(containers))
	for _, c := range containers {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

// RemoveStale force-removes the given sandbox containers. Best-effort: the
// first failure is returned but does not stop the remaining removals.
func RemoveStale(ctx context.Context, cli *Client, ids []string) error {
	var firstErr error
	for _, id := range ids {
		err := cli.Inner().ContainerRemove(ctx, id, container.RemoveOptions{Force: true})
		if err != nil && firstErr == nil {
			firstErr = model.WrapCLIError(model.ExitDockerNotRunning,
				fmt.Sprintf("failed to remove sandbox container %q", id), err)
		}
	}
	return firstErr
}
