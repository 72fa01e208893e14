// Package ferrors defines the typed error taxonomy that the core surfaces
// to its callers. Every fatal condition produced by the manifest resolver,
// the graph engine, the fetcher, the dependency builder, or the main build
// orchestrator is one of these types, so a caller can use errors.As to
// branch on failure kind without parsing message text.
package ferrors

import "fmt"

// ManifestError reports a problem with the project manifest itself: missing
// file, TOML syntax error, or a dependency entry that names zero or more
// than one source. It also wraps a ConfigError raised while resolving the
// manifest.
type ManifestError struct {
	File string
	Err  error
}

func (e *ManifestError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("manifest %s: %v", e.File, e.Err)
	}
	return fmt.Sprintf("manifest: %v", e.Err)
}

func (e *ManifestError) Unwrap() error { return e.Err }

// ConfigError reports a requested profile that does not exist, or a
// platform with no matching configuration and no way to ask the user.
type ConfigError struct {
	Profile string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Profile != "" {
		return fmt.Sprintf("config: profile %q: %v", e.Profile, e.Err)
	}
	return fmt.Sprintf("config: %v", e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// CycleError reports a dependency cycle discovered during graph resolution.
// Path lists the ancestor chain from the root to the node that closed the
// cycle, inclusive of the repeated name.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %v", e.Path)
}

// ConflictError reports two transitive paths resolving the same dependency
// name to different sources, which the strict first-win policy forbids.
type ConflictError struct {
	Name   string
	First  fmt.Stringer
	Second fmt.Stringer
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("dependency %q: conflicting sources %s vs %s", e.Name, e.First, e.Second)
}

// GraphError wraps a graph-walk failure (a fetch or nested-manifest error,
// or a bridge to an unknown dependency) with the name of the dependency
// being visited when it occurred. The graph engine returns CycleError and
// ConflictError directly, not wrapped in a GraphError.
type GraphError struct {
	Name string
	Err  error
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("graph: resolving %q: %v", e.Name, e.Err)
}

func (e *GraphError) Unwrap() error { return e.Err }

// FetchError reports a failure to materialize a dependency's source tree:
// git clone/checkout failure, HTTP transport failure, or a permission
// error writing into the cache.
type FetchError struct {
	Name string
	Op   string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %q (%s): %v", e.Name, e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// BuildError reports a compiler, linker, or external build-system child
// process exiting non-zero, or a toolchain bootstrap failure (no vswhere
// or vcvarsall located). Stderr carries the captured diagnostic output.
type BuildError struct {
	File     string
	Command  string
	Stderr   string
	ExitCode int
	Err      error
}

func (e *BuildError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("build %s: %v (exit %d): %s", e.File, e.Err, e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("build: %v (exit %d): %s", e.Err, e.ExitCode, e.Stderr)
}

func (e *BuildError) Unwrap() error { return e.Err }

// IoError reports a filesystem operation failure: directory creation, file
// copy, or link creation. Link creation is a convenience and the caller
// should treat it as a warning, not abort the build.
type IoError struct {
	Op   string
	Path string
	Err  error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("io %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IoError) Unwrap() error { return e.Err }
