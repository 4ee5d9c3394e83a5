// Package fetch resolves a template source argument into a local directory.
//
// A source is either a local path, used in place after validation, or a
// GitHub/GitLab repository URL, shallow-cloned into a scratch directory
// with go-git. Remote templates let a team keep one canonical template
// repository and apply it without checking it out first.
package fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/tmplkit/stencil/internal/model"
)

// URL forms accepted as remote template sources.
var (
	// HTTPS: https://github.com/user/repo or https://github.com/user/repo.git
	githubHTTPSPattern = regexp.MustCompile(`^https?://github\.com/([^/]+)/([^/]+?)(?:\.git)?/?$`)
	// SSH: git@github.com:user/repo.git
	githubSSHPattern = regexp.MustCompile(`^git@github\.com:([^/]+)/([^/]+?)(?:\.git)?$`)
	// HTTPS: https://gitlab.com/user/repo or https://gitlab.com/user/repo.git
	gitlabHTTPSPattern = regexp.MustCompile(`^https?://gitlab\.com/([^/]+)/([^/]+?)(?:\.git)?/?$`)
	// SSH: git@gitlab.com:user/repo.git
	gitlabSSHPattern = regexp.MustCompile(`^git@gitlab\.com:([^/]+)/([^/]+?)(?:\.git)?$`)
)

// RepoInfo is a parsed remote template reference.
type RepoInfo struct {
	Owner    string
	Repo     string
	Platform string // "github" or "gitlab"
}

// IsRemote reports whether source looks like a supported repository URL
// rather than a local path.
func IsRemote(source string) bool {
	_, err := ParseGitURL(source)
	return err == nil
}

// ParseGitURL extracts owner, repository, and platform from a supported
// repository URL.
func ParseGitURL(source string) (RepoInfo, error) {
	for _, c := range []struct {
		re       *regexp.Regexp
		platform string
	}{
		{githubHTTPSPattern, "github"},
		{githubSSHPattern, "github"},
		{gitlabHTTPSPattern, "gitlab"},
		{gitlabSSHPattern, "gitlab"},
	} {
		if m := c.re.FindStringSubmatch(source); m != nil {
			return RepoInfo{Owner: m[1], Repo: m[2], Platform: c.platform}, nil
		}
	}
	return RepoInfo{}, fmt.Errorf("unsupported repository URL: %s", source)
}

// NormalizeGitURL converts any supported URL form to the canonical HTTPS
// clone URL, so SSH-form arguments work without SSH credentials.
func NormalizeGitURL(source string) (string, error) {
	info, err := ParseGitURL(source)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("https://%s.com/%s/%s.git", info.Platform, info.Owner, info.Repo), nil
}

// Template resolves source into a template directory on disk. The returned
// cleanup function removes any scratch clone and must be called once the
// template has been applied; for local sources it is a no-op.
func Template(ctx context.Context, source string) (dir string, cleanup func(), err error) {
	noop := func() {}

	if !IsRemote(source) {
		abs, err := filepath.Abs(source)
		if err != nil {
			return "", noop, model.WrapCLIError(model.ExitApplyError, "failed to resolve template path", err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return "", noop, model.WrapCLIError(model.ExitApplyError,
				fmt.Sprintf("template directory %s does not exist", abs), err)
		}
		if !info.IsDir() {
			return "", noop, model.NewCLIError(model.ExitApplyError,
				fmt.Sprintf("template source %s is not a directory", abs))
		}
		return abs, noop, nil
	}

	cloneURL, err := NormalizeGitURL(source)
	if err != nil {
		return "", noop, model.WrapCLIError(model.ExitApplyError, "invalid template URL", err)
	}

	scratch, err := os.MkdirTemp("", "stencil-template-")
	if err != nil {
		return "", noop, model.WrapCLIError(model.ExitGeneralError, "failed to create clone directory", err)
	}
	cleanup = func() { _ = os.RemoveAll(scratch) }

	// Shallow, single-branch clone: the template's HEAD is all that is
	// applied; history would only slow things down.
	_, err = git.PlainCloneContext(ctx, scratch, false, &git.CloneOptions{
		URL:           cloneURL,
		Depth:         1,
		SingleBranch:  true,
		ReferenceName: plumbing.HEAD,
	})
	if err != nil {
		cleanup()
		return "", noop, model.WrapCLIError(model.ExitApplyError,
			fmt.Sprintf("failed to clone template %s", cloneURL), err)
	}

	return scratch, cleanup, nil
}
