// Package fetch materializes a manifest.Dependency's Source onto local
// disk and returns the directory it now lives in, keyed by a cache key
// built from the dependency's name, version, URL hash and build
// configuration, so that every build asking for the same name and
// Source under the same configuration shares one copy on disk (spec
// §4.2).
package fetch

import (
	"context"
	"os"
	"path/filepath"

	"github.com/flappy-build/flappy/internal/env"
	"github.com/flappy-build/flappy/internal/ferrors"
	"github.com/flappy-build/flappy/internal/lockfile"
	"github.com/flappy-build/flappy/manifest"
)

// Fetcher materializes one Source kind.
type Fetcher interface {
	// Fetch ensures dir holds src's content, creating or updating it as
	// needed, and returns the resolved identifier recorded in
	// DependencyMetadata.Resolved: the 40-char commit SHA for Git, the
	// fnv1a32 hash of the URL for Http.
	Fetch(ctx context.Context, src manifest.Source, dir string) (resolved string, err error)
}

// Options configures a Resolver.
type Options struct {
	// CacheRoot overrides the default cache directory (internal/env.CacheRoot);
	// used by tests to avoid touching the real user cache.
	CacheRoot string

	Profile  string
	Arch     string
	Compiler string
}

// Resolver fetches dependency sources into the shared content-addressed
// cache, one directory per distinct name/Source/profile/arch/compiler
// combination, guarded by an inter-process lock so concurrent flappy
// invocations never race on the same cache entry.
type Resolver struct {
	opts Options
	git  Fetcher
	http Fetcher
}

// New returns a Resolver. An empty CacheRoot means autodetect.
func New(opts Options) *Resolver {
	return &Resolver{
		opts: opts,
		git:  &gitFetcher{},
		http: &httpFetcher{},
	}
}

// Fetch returns the local directory holding name's source, fetching it
// first if the cache entry is missing. An existing entry is returned
// as is; it is never re-fetched or checked for staleness.
func (r *Resolver) Fetch(ctx context.Context, name string, src manifest.Source) (dir string, resolved string, err error) {
	if src.Kind == manifest.SourceLocal {
		if _, err := os.Stat(src.Path); err != nil {
			return "", "", &ferrors.FetchError{Name: name, Op: "stat", Err: err}
		}
		return src.Path, "local", nil
	}

	root, err := r.cacheRoot()
	if err != nil {
		return "", "", &ferrors.FetchError{Name: name, Op: "cache-root", Err: err}
	}

	key := cacheKey(name, src, r.opts.Profile, r.opts.Arch, r.opts.Compiler)
	dir = filepath.Join(root, key)

	unlock, err := lockfile.MutexAt(dir + ".lock").Lock()
	if err != nil {
		return "", "", &ferrors.FetchError{Name: name, Op: "lock", Err: err}
	}
	defer unlock()

	if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
		// Cache hit. Re-running a git fetcher here would still be correct
		// (Sync is idempotent) but costs a network round trip on every
		// invocation, so a present directory short-circuits resolution;
		// Git callers that truly need freshness pass a tag, which already
		// pins the content.
		return dir, readResolved(dir), nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", &ferrors.FetchError{Name: name, Op: "mkdir", Err: err}
	}

	f := r.fetcherFor(src)
	resolved, err = f.Fetch(ctx, src, dir)
	if err != nil {
		os.RemoveAll(dir)
		return "", "", &ferrors.FetchError{Name: name, Op: "fetch", Err: err}
	}
	writeResolved(dir, resolved)

	return dir, resolved, nil
}

func (r *Resolver) fetcherFor(src manifest.Source) Fetcher {
	if src.Kind == manifest.SourceGit {
		return r.git
	}
	return r.http
}

func (r *Resolver) cacheRoot() (string, error) {
	if r.opts.CacheRoot != "" {
		return r.opts.CacheRoot, nil
	}
	return env.CacheRoot()
}

const resolvedFile = ".flappy_resolved"

func readResolved(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, resolvedFile))
	if err != nil {
		return ""
	}
	return string(data)
}

func writeResolved(dir, resolved string) {
	if resolved == "" {
		return
	}
	_ = os.WriteFile(filepath.Join(dir, resolvedFile), []byte(resolved), 0o644)
}
