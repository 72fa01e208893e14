// Package autotools drives an external ./configure && make-based
// dependency build, one of depbuild's four strategies (spec §4.4
// priority 3).
package autotools

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/flappy-build/flappy/pkgs/buildsys"
)

// AutoTools wraps common Autotools build steps with chainable configuration.
type AutoTools struct {
	SourceDir  string
	buildDir   string
	installDir string
	env        map[string]string
}

var _ buildsys.BuildSystem = (*AutoTools)(nil)

// New creates an AutoTools helper. Autotools builds in-tree by
// convention, so buildDir is SourceDir itself; workDir/install is used
// as the install prefix.
func New(sourceDir, workDir string) *AutoTools {
	return &AutoTools{
		SourceDir:  sourceDir,
		buildDir:   sourceDir,
		installDir: filepath.Join(workDir, "install"),
		env:        map[string]string{},
	}
}

func (a *AutoTools) Source(dir string) {
	a.SourceDir = dir
}

func (a *AutoTools) InstallDir(dir string) {
	a.installDir = dir
}

func (a *AutoTools) Env(key, value string) {
	a.env[key] = value
}

// Use primes CPPFLAGS/LDFLAGS (or INCLUDE/LIB on Windows) from dep, the
// convention every Autotools ./configure script honors for locating
// headers and libraries it does not know about natively.
func (a *AutoTools) Use(dep buildsys.Dep) {
	if runtime.GOOS == "windows" {
		if dep.IncludeDir != "" {
			prependEnv(a.env, "INCLUDE", dep.IncludeDir)
		}
		if dep.LibDir != "" {
			prependEnv(a.env, "LIB", dep.LibDir)
		}
	} else {
		if dep.IncludeDir != "" {
			appendFlag(a.env, "CPPFLAGS", "-I"+dep.IncludeDir)
		}
		if dep.LibDir != "" {
			appendFlag(a.env, "LDFLAGS", "-L"+dep.LibDir)
		}
	}
}

// Configure runs ./configure with standard flags.
func (a *AutoTools) Configure(ctx context.Context, args ...string) error {
	if err := os.MkdirAll(a.buildDir, 0o755); err != nil {
		return err
	}

	configArgs := []string{}
	if a.installDir != "" {
		configArgs = append(configArgs, "--prefix="+a.installDir)
	}
	configArgs = append(configArgs, args...)

	return run(ctx, filepath.Join(a.SourceDir, "configure"), configArgs, a.env, a.buildDir)
}

// Build runs make (or provided args) in the build directory.
func (a *AutoTools) Build(ctx context.Context, args ...string) error {
	if len(args) == 0 {
		return run(ctx, "make", nil, a.env, a.buildDir)
	}
	return run(ctx, args[0], args[1:], a.env, a.buildDir)
}

// Install runs make install (or provided args) in the build directory.
func (a *AutoTools) Install(ctx context.Context, args ...string) error {
	if len(args) == 0 {
		return run(ctx, "make", []string{"install"}, a.env, a.buildDir)
	}
	return run(ctx, args[0], args[1:], a.env, a.buildDir)
}

// OutputDir returns the install dir if set, otherwise the build dir.
func (a *AutoTools) OutputDir() string {
	if a.installDir != "" {
		return a.installDir
	}
	return a.buildDir
}

func run(ctx context.Context, bin string, args []string, env map[string]string, workdir string) error {
	cmd := exec.CommandContext(ctx, bin, args...)
	if workdir != "" {
		cmd.Dir = workdir
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if len(env) > 0 {
		cmd.Env = mergeEnv(os.Environ(), env)
	}
	return cmd.Run()
}

func mergeEnv(base []string, override map[string]string) []string {
	envMap := make(map[string]string, len(base))
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok {
			envMap[k] = v
		}
	}
	for k, v := range override {
		envMap[k] = v
	}
	keys := make([]string, 0, len(envMap))
	for k := range envMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+envMap[k])
	}
	return out
}

func prependEnv(env map[string]string, key, value string) {
	sep := ":"
	if runtime.GOOS == "windows" {
		sep = ";"
	}
	if current, ok := env[key]; ok && current != "" {
		env[key] = value + sep + current
	} else {
		env[key] = value
	}
}

func appendFlag(env map[string]string, key, flag string) {
	if current, ok := env[key]; ok && current != "" {
		env[key] = strings.TrimSpace(current + " " + flag)
	} else {
		env[key] = flag
	}
}
