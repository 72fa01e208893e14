package depbuild

import (
	"os"
	"runtime"
	"strings"

	"github.com/flappy-build/flappy/manifest"
	"github.com/flappy-build/flappy/toolchain"
)

// buildEnv composes the child-process environment for a custom
// build_cmd or a nested flappy build: the current process's own
// environment, one FLAPPY_DEP_<NAME>_INCLUDE/LIB pair per bridged
// sibling (spec §4.4), and a toolchain-native prepend of the same
// directories (INCLUDE/LIB on MSVC, CPATH/LIBRARY_PATH on GCC/Clang).
// CMake and Autotools builds do not use it; they are primed through
// their drivers' Use method instead.
func (b *Builder) buildEnv(dep manifest.Dependency, siblingMeta map[string]Metadata) []string {
	env := envMap(os.Environ())

	var includeDirs, libDirs []string
	for _, name := range dep.ExtraDependencies {
		meta, ok := siblingMeta[name]
		if !ok {
			continue
		}
		upper := strings.ToUpper(sanitizeEnvName(name))
		if len(meta.IncludeDirs) > 0 {
			env["FLAPPY_DEP_"+upper+"_INCLUDE"] = strings.Join(meta.IncludeDirs, pathListSep())
			includeDirs = append(includeDirs, meta.IncludeDirs...)
		}
		if len(meta.LibDirs) > 0 {
			env["FLAPPY_DEP_"+upper+"_LIB"] = strings.Join(meta.LibDirs, pathListSep())
			libDirs = append(libDirs, meta.LibDirs...)
		}
	}

	family := toolchain.Classify(b.Compiler)
	if family == toolchain.MSVC {
		prependPathEnv(env, "INCLUDE", includeDirs)
		prependPathEnv(env, "LIB", libDirs)
	} else {
		prependPathEnv(env, "CPATH", includeDirs)
		prependPathEnv(env, "LIBRARY_PATH", libDirs)
	}

	return mapToEnviron(env)
}

func sanitizeEnvName(name string) string {
	r := strings.NewReplacer("-", "_", ".", "_", "/", "_")
	return r.Replace(name)
}

func pathListSep() string {
	if runtime.GOOS == "windows" {
		return ";"
	}
	return ":"
}

func prependPathEnv(env map[string]string, key string, dirs []string) {
	if len(dirs) == 0 {
		return
	}
	addition := strings.Join(dirs, pathListSep())
	if current, ok := env[key]; ok && current != "" {
		env[key] = addition + pathListSep() + current
	} else {
		env[key] = addition
	}
}

func envMap(environ []string) map[string]string {
	m := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			m[k] = v
		}
	}
	return m
}

func mapToEnviron(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k, v := range m {
		out = append(out, k+"="+v)
	}
	return out
}
