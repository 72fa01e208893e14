// Package depbuild builds one resolved dependency into a Metadata the
// main build orchestrator and sibling dependencies can link against
// (spec §4.4). It picks one of four strategies per dependency, in
// priority order: a custom build command, a nested flappy.toml
// (recursive self-invocation), an external meta-build system (CMake or
// Autotools), or a headers-only fallback.
package depbuild

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/flappy-build/flappy/internal/ferrors"
	"github.com/flappy-build/flappy/manifest"
)

// Metadata is what a built dependency exposes to whatever consumes it:
// the main project's build, or a sibling dependency that bridges it.
type Metadata struct {
	Name        string
	Dir         string
	IncludeDirs []string
	LibDirs     []string
	Libs        []string

	// Resolved is the dependency's resolved identifier from fetch: the
	// Git commit SHA, the URL hash for Http, or "local" for Local.
	Resolved string
}

// Builder builds one manifest.Dependency, given the directory its
// source was fetched into and the already-built Metadata of any
// dependencies it bridges (via ExtraDependencies).
type Builder struct {
	// Compiler selects the toolchain-native variables (INCLUDE/LIB or
	// CPATH/LIBRARY_PATH) that buildEnv injects (spec §4.4 "environment
	// injection"). Arch is recorded but no build step reads it.
	Arch     string
	Compiler string
}

// Build selects a strategy for dep and runs it, returning the
// resulting Metadata. resolved is the dependency's resolved identifier
// (commit SHA, URL hash, or "local") from fetch, used to key the
// .flappy_build_state incremental-skip hash. siblingMeta supplies the
// already-built metadata of every name in dep.ExtraDependencies, keyed
// by name.
func (b *Builder) Build(ctx context.Context, dep manifest.Dependency, sourceDir, resolved string, siblingMeta map[string]Metadata) (Metadata, error) {
	env := b.buildEnv(dep, siblingMeta)

	switch {
	case dep.BuildCmd != "":
		upToDate, err := buildStateUpToDate(sourceDir, resolved, dep.BuildCmd, dep.Defines)
		if err != nil {
			return Metadata{}, err
		}
		if !upToDate {
			if err := b.runCustomCommand(ctx, dep, sourceDir, env); err != nil {
				return Metadata{}, err
			}
			if err := writeBuildState(sourceDir, resolved, dep.BuildCmd, dep.Defines); err != nil {
				return Metadata{}, err
			}
		}
	case hasFile(sourceDir, "flappy.toml"):
		if err := b.buildNested(ctx, dep, sourceDir, env); err != nil {
			return Metadata{}, err
		}
	case hasFile(sourceDir, "CMakeLists.txt"):
		if err := b.buildCMake(ctx, dep, sourceDir, siblingMeta); err != nil {
			return Metadata{}, err
		}
	case hasFile(sourceDir, "configure") || hasFile(sourceDir, "configure.ac") || hasFile(sourceDir, "Makefile.am"):
		if err := b.buildAutotools(ctx, dep, sourceDir, siblingMeta); err != nil {
			return Metadata{}, err
		}
	default:
		// Headers-only fallback: nothing to build, the dependency is
		// consumed by include path alone (spec §4.4 priority 4).
	}

	return b.metadata(dep, sourceDir), nil
}

func (b *Builder) runCustomCommand(ctx context.Context, dep manifest.Dependency, dir string, env []string) error {
	cmd := exec.CommandContext(ctx, "sh", "-c", dep.BuildCmd)
	cmd.Dir = dir
	cmd.Env = env
	out, err := cmd.CombinedOutput()
	if err != nil {
		return &ferrors.BuildError{File: dir, Command: dep.BuildCmd, Stderr: string(out), ExitCode: exitCode(err), Err: err}
	}
	return nil
}

// buildNested recursively invokes the child project's own build. The
// parent has already resolved and built this dependency's transitive
// graph (spec §4.3's native-sub-dependency recursion), so the child is
// told to skip dependency processing entirely via --no-deps and just
// compile its own sources against the environment the parent already
// injected (spec §4.4 priority 2).
func (b *Builder) buildNested(ctx context.Context, dep manifest.Dependency, dir string, env []string) error {
	exe, err := os.Executable()
	if err != nil {
		exe = "flappy"
	}
	cmd := exec.CommandContext(ctx, exe, "build", "--no-deps")
	cmd.Dir = dir
	cmd.Env = env
	out, err := cmd.CombinedOutput()
	if err != nil {
		return &ferrors.BuildError{File: dir, Command: exe + " build --no-deps", Stderr: string(out), ExitCode: exitCode(err), Err: err}
	}
	return nil
}

// metadata computes include/lib dirs for dep after its build step, in
// priority order: explicit manifest overrides, then standard
// locations (include/, then lib/ or build/lib/) under dir, then dir
// itself as the include dir. No recursive scan of dir is made, and no
// library files are listed: Libs is only what the manifest declares
// (spec §4.4's "DependencyMetadata computation").
func (b *Builder) metadata(dep manifest.Dependency, dir string) Metadata {
	m := Metadata{Name: dep.Name, Dir: dir, Libs: dep.Libs}

	m.IncludeDirs = dep.IncludeDirs
	if len(m.IncludeDirs) == 0 {
		if std := filepath.Join(dir, "include"); isDir(std) {
			m.IncludeDirs = []string{std}
		} else if glob := globHeaderDirs(dir); len(glob) > 0 {
			m.IncludeDirs = glob
		} else {
			m.IncludeDirs = []string{dir}
		}
	}

	m.LibDirs = dep.LibDirs
	if len(m.LibDirs) == 0 {
		for _, candidate := range []string{filepath.Join(dir, "lib"), filepath.Join(dir, "build", "lib")} {
			if isDir(candidate) {
				m.LibDirs = []string{candidate}
				break
			}
		}
	}

	return m
}

// globHeaderDirs returns [dir] when dir itself directly holds a *.h or
// *.hpp file, for a library that ships headers at its root rather than
// under include/. Subdirectories are not searched.
func globHeaderDirs(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var found []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".h") || strings.HasSuffix(name, ".hpp") {
			found = append(found, dir)
			break
		}
	}
	return found
}

func hasFile(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

func exitCode(err error) int {
	if ee, ok := err.(*exec.ExitError); ok {
		return ee.ExitCode()
	}
	return -1
}
