package fetch

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/flappy-build/flappy/manifest"
)

// gitVCS is the thin shell-out wrapper the gitFetcher drives, adapted
// from the teacher's internal/vcs gitVCS: only sync (fetch and check out
// one ref) and headCommit (read HEAD) are kept; tag listing is dropped
// since nothing in the dependency pipeline needs a tag list.
type gitVCS struct {
	git string
}

func newGitVCS() *gitVCS {
	return &gitVCS{git: "git"}
}

func (g *gitVCS) sync(ctx context.Context, remote, ref, dir string) error {
	if err := g.ensureInit(ctx, dir); err != nil {
		return err
	}
	if ref == "" {
		ref = "HEAD"
	}
	if err := g.run(ctx, dir, "fetch", "--depth", "1", remote, ref); err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	if err := g.run(ctx, dir, "checkout", "FETCH_HEAD"); err != nil {
		return fmt.Errorf("checkout %s: %w", ref, err)
	}
	return nil
}

func (g *gitVCS) ensureInit(ctx context.Context, dir string) error {
	if _, err := os.Stat(filepath.Join(dir, ".git")); os.IsNotExist(err) {
		return g.run(ctx, dir, "init")
	}
	return nil
}

func (g *gitVCS) headCommit(ctx context.Context, dir string) (string, error) {
	out, err := g.output(ctx, dir, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (g *gitVCS) run(ctx context.Context, dir string, args ...string) error {
	_, err := g.output(ctx, dir, args...)
	return err
}

func (g *gitVCS) output(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, g.git, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%s", msg)
		}
		return "", err
	}
	return stdout.String(), nil
}

// gitFetcher implements Fetcher for manifest.SourceGit.
type gitFetcher struct{}

func (f *gitFetcher) Fetch(ctx context.Context, src manifest.Source, dir string) (string, error) {
	vcs := newGitVCS()
	if err := vcs.sync(ctx, src.URL, src.Tag, dir); err != nil {
		return "", err
	}
	return vcs.headCommit(ctx, dir)
}
