// Package cmake drives an external CMakeLists.txt-based dependency
// build, one of depbuild's four strategies (spec §4.4 priority 3).
package cmake

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

type defineValue struct {
	value    string
	typeName string
}

// CMake wraps common CMake build steps with chainable configuration.
type CMake struct {
	SourceDir  string
	buildDir   string
	installDir string
	generator  string
	buildType  string
	toolchain  string
	Defines    map[string]defineValue
	env        map[string]string
}

var _ buildsys.BuildSystem = (*CMake)(nil)

// New creates a CMake helper rooted at sourceDir, with its build
// output and install prefix under workDir.
func New(sourceDir, workDir string) *CMake {
	return &CMake{
		SourceDir:  sourceDir,
		buildDir:   filepath.Join(workDir, "build"),
		installDir: filepath.Join(workDir, "install"),
		Defines:    map[string]defineValue{},
		env:        map[string]string{},
	}
}

func (c *CMake) Source(dir string) {
	c.SourceDir = dir
}

func (c *CMake) InstallDir(dir string) {
	c.installDir = dir
}

func (c *CMake) Generator(name string) *CMake {
	c.generator = name
	return c
}

func (c *CMake) BuildType(name string) *CMake {
	c.buildType = name
	return c
}

func (c *CMake) Toolchain(path string) *CMake {
	c.toolchain = path
	return c
}

func (c *CMake) Define(key, value string) *CMake {
	c.Defines[key] = defineValue{value: value, typeName: "STRING"}
	return c
}

func (c *CMake) DefineBool(key string, value bool) *CMake {
	v := "OFF"
	if value {
		v = "ON"
	}
	c.Defines[key] = defineValue{value: v, typeName: "BOOL"}
	return c
}

func (c *CMake) Env(key, value string) {
	c.env[key] = value
}

// Use primes CMAKE_INCLUDE_PATH/CMAKE_LIBRARY_PATH from dep, plus the
// platform-native compiler variables (INCLUDE/LIB on Windows,
// CPPFLAGS/LDFLAGS elsewhere) for targets that bypass CMake's own
// find_package machinery.
func (c *CMake) Use(dep buildsys.Dep) {
	if dep.IncludeDir != "" {
		prependEnv(c.env, "CMAKE_INCLUDE_PATH", dep.IncludeDir)
	}
	if dep.LibDir != "" {
		prependEnv(c.env, "CMAKE_LIBRARY_PATH", dep.LibDir)
	}

	if runtime.GOOS == "windows" {
		if dep.IncludeDir != "" {
			prependEnv(c.env, "INCLUDE", dep.IncludeDir)
		}
		if dep.LibDir != "" {
			prependEnv(c.env, "LIB", dep.LibDir)
		}
	} else {
		if dep.IncludeDir != "" {
			appendFlag(c.env, "CPPFLAGS", "-I"+dep.IncludeDir)
		}
		if dep.LibDir != "" {
			appendFlag(c.env, "LDFLAGS", "-L"+dep.LibDir)
		}
	}
}

func (c *CMake) Configure(ctx context.Context, args ...string) error {
	if err := os.MkdirAll(c.buildDir, 0o755); err != nil {
		return err
	}
	cmakeArgs := []string{"-S", c.SourceDir, "-B", c.buildDir}
	if c.generator != "" {
		cmakeArgs = append(cmakeArgs, "-G", c.generator)
	}
	if c.installDir != "" {
		c.Define("CMAKE_INSTALL_PREFIX", c.installDir)
	}
	if c.toolchain != "" {
		c.Define("CMAKE_TOOLCHAIN_FILE", c.toolchain)
	}
	if c.buildType != "" {
		c.Define("CMAKE_BUILD_TYPE", c.buildType)
	}
	cmakeArgs = append(cmakeArgs, c.definesArgs()...)
	cmakeArgs = append(cmakeArgs, args...)
	return run(ctx, "cmake", cmakeArgs, c.env, "")
}

func (c *CMake) Build(ctx context.Context, args ...string) error {
	cmdArgs := []string{"--build", c.buildDir}
	if c.buildType != "" {
		cmdArgs = append(cmdArgs, "--config", c.buildType)
	}
	cmdArgs = append(cmdArgs, args...)
	return run(ctx, "cmake", cmdArgs, c.env, "")
}

func (c *CMake) Install(ctx context.Context, args ...string) error {
	cmdArgs := []string{"--install", c.buildDir}
	if c.installDir != "" {
		cmdArgs = append(cmdArgs, "--prefix", c.installDir)
	}
	cmdArgs = append(cmdArgs, args...)
	return run(ctx, "cmake", cmdArgs, c.env, "")
}

// OutputDir returns the install dir if set, otherwise the build dir.
func (c *CMake) OutputDir() string {
	if c.installDir != "" {
		return c.installDir
	}
	return c.buildDir
}

func (c *CMake) definesArgs() []string {
	if len(c.Defines) == 0 {
		return nil
	}
	keys := make([]string, 0, len(c.Defines))
	for k := range c.Defines {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]string, 0, len(keys))
	for _, k := range keys {
		def := c.Defines[k]
		args = append(args, "-D"+k+":"+def.typeName+"="+def.value)
	}
	return args
}

func run(ctx context.Context, bin string, args []string, env map[string]string, dir string) error {
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
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
