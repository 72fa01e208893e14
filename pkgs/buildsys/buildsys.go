// Package buildsys defines the shared shape of an external meta-build
// driver (CMake, Autotools). depbuild selects one of these per
// dependency when the dependency ships its own build system rather
// than a custom build_cmd (spec §4.4 priority 3).
package buildsys

import "context"

// Dep is the subset of a built dependency's metadata an external
// build system needs primed into its environment: where its headers
// and libraries live. It intentionally carries no more than that —
// buildsys has no notion of a manifest.Dependency or depbuild.Metadata,
// so either can adapt to it without an import cycle.
type Dep struct {
	IncludeDir string
	LibDir     string
}

// BuildSystem captures shared capabilities of build helpers (CMake, Autotools, etc).
// It keeps the common lifecycle and dependency/env setup; implementations add their own extras.
type BuildSystem interface {
	// Use injects a built dependency into the environment.
	Use(dep Dep)

	// Basic paths.
	Source(dir string)
	InstallDir(dir string)

	// Environment helper.
	Env(key, val string)

	// Lifecycle.
	Configure(ctx context.Context, args ...string) error
	Build(ctx context.Context, args ...string) error
	Install(ctx context.Context, args ...string) error

	// Where artifacts land.
	OutputDir() string
}
