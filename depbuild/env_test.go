package depbuild

import (
	"strings"
	"testing"

	"github.com/flappy-build/flappy/manifest"
)

func TestBuildEnv_InjectsPerDependencyVars(t *testing.T) {
	b := &Builder{Compiler: "g++"}
	dep := manifest.Dependency{Name: "curl", ExtraDependencies: []string{"openssl"}}
	siblings := map[string]Metadata{
		"openssl": {IncludeDirs: []string{"/cache/openssl/include"}, LibDirs: []string{"/cache/openssl/lib"}},
	}

	env := b.buildEnv(dep, siblings)

	wantInclude := "FLAPPY_DEP_OPENSSL_INCLUDE=/cache/openssl/include"
	wantLib := "FLAPPY_DEP_OPENSSL_LIB=/cache/openssl/lib"
	if !containsEntry(env, wantInclude) {
		t.Errorf("env missing %q, got %v", wantInclude, env)
	}
	if !containsEntry(env, wantLib) {
		t.Errorf("env missing %q, got %v", wantLib, env)
	}
}

func TestBuildEnv_GCCUsesCPathLibraryPath(t *testing.T) {
	b := &Builder{Compiler: "clang++"}
	dep := manifest.Dependency{Name: "app", ExtraDependencies: []string{"zlib"}}
	siblings := map[string]Metadata{
		"zlib": {IncludeDirs: []string{"/cache/zlib/include"}, LibDirs: []string{"/cache/zlib/lib"}},
	}

	env := b.buildEnv(dep, siblings)
	if !hasPrefixedEntry(env, "CPATH=", "/cache/zlib/include") {
		t.Errorf("CPATH not set from sibling include dir: %v", env)
	}
	if !hasPrefixedEntry(env, "LIBRARY_PATH=", "/cache/zlib/lib") {
		t.Errorf("LIBRARY_PATH not set from sibling lib dir: %v", env)
	}
}

func TestBuildEnv_MSVCUsesIncludeLib(t *testing.T) {
	b := &Builder{Compiler: "cl.exe"}
	dep := manifest.Dependency{Name: "app", ExtraDependencies: []string{"zlib"}}
	siblings := map[string]Metadata{
		"zlib": {IncludeDirs: []string{`C:\cache\zlib\include`}, LibDirs: []string{`C:\cache\zlib\lib`}},
	}

	env := b.buildEnv(dep, siblings)
	if !hasPrefixedEntry(env, "INCLUDE=", `C:\cache\zlib\include`) {
		t.Errorf("INCLUDE not set: %v", env)
	}
	if !hasPrefixedEntry(env, "LIB=", `C:\cache\zlib\lib`) {
		t.Errorf("LIB not set: %v", env)
	}
}

func containsEntry(env []string, want string) bool {
	for _, e := range env {
		if e == want {
			return true
		}
	}
	return false
}

func hasPrefixedEntry(env []string, prefix, contains string) bool {
	for _, e := range env {
		if strings.HasPrefix(e, prefix) && strings.Contains(e, contains) {
			return true
		}
	}
	return false
}
