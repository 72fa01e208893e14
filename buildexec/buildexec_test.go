package buildexec

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/flappy-build/flappy/manifest"
	"github.com/flappy-build/flappy/toolchain"
)

func joinArgsBE(args []string) string {
	return strings.Join(args, " ")
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDiscoverSources_CFindsOnlyDotC(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "main.c"), "int main(){return 0;}")
	writeFile(t, filepath.Join(root, "src", "util.h"), "void f();")
	writeFile(t, filepath.Join(root, "obj", "stale.c"), "// should be skipped")

	got, err := DiscoverSources(root, manifest.LangC)
	if err != nil {
		t.Fatalf("DiscoverSources: %v", err)
	}
	if len(got) != 1 || filepath.Base(got[0]) != "main.c" {
		t.Errorf("got %v, want just main.c", got)
	}
}

func TestDiscoverSources_CPPExtensions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "a.cc"), "")
	writeFile(t, filepath.Join(root, "src", "b.cpp"), "")
	writeFile(t, filepath.Join(root, "src", "c.txt"), "")

	got, err := DiscoverSources(root, manifest.LangCPP)
	if err != nil {
		t.Fatalf("DiscoverSources: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %v, want 2 cpp sources", got)
	}
}

func TestDiscoverSources_ScopedToSrcDir(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "main.cpp"), "")
	writeFile(t, filepath.Join(root, "vendor", "leaked.cpp"), "")

	got, err := DiscoverSources(root, manifest.LangCPP)
	if err != nil {
		t.Fatalf("DiscoverSources: %v", err)
	}
	if len(got) != 1 || filepath.Base(got[0]) != "main.cpp" {
		t.Errorf("got %v, want just src/main.cpp", got)
	}
}

func TestDiscoverSources_MissingSrcDirIsEmpty(t *testing.T) {
	root := t.TempDir()
	got, err := DiscoverSources(root, manifest.LangCPP)
	if err != nil {
		t.Fatalf("DiscoverSources: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %v, want none", got)
	}
}

func TestDiscoverSources_ModuleUnitsOrderedFirst(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "main.cpp"), "")
	writeFile(t, filepath.Join(root, "src", "mod.ixx"), "")
	writeFile(t, filepath.Join(root, "src", "other.cppm"), "")

	got, err := DiscoverSources(root, manifest.LangCPP)
	if err != nil {
		t.Fatalf("DiscoverSources: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %v, want 3 sources", got)
	}
	if !isModuleUnit(got[0]) || !isModuleUnit(got[1]) {
		t.Errorf("got %v, want module units (.ixx/.cppm) first", got)
	}
	if isModuleUnit(got[2]) {
		t.Errorf("got %v, want the implementation unit last", got)
	}
}

func TestIsStale_MissingObjectIsStale(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.c")
	writeFile(t, src, "")

	stale, err := isStale(src, filepath.Join(dir, "a.o"))
	if err != nil {
		t.Fatalf("isStale: %v", err)
	}
	if !stale {
		t.Error("expected stale when object is missing")
	}
}

func TestIsStale_NewerObjectIsFresh(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.c")
	obj := filepath.Join(dir, "a.o")
	writeFile(t, src, "")
	now := time.Now()
	if err := os.Chtimes(src, now, now); err != nil {
		t.Fatal(err)
	}
	writeFile(t, obj, "")
	later := now.Add(time.Hour)
	if err := os.Chtimes(obj, later, later); err != nil {
		t.Fatal(err)
	}

	stale, err := isStale(src, obj)
	if err != nil {
		t.Fatalf("isStale: %v", err)
	}
	if stale {
		t.Error("expected fresh when object is newer than source")
	}
}

func TestIsStale_OlderObjectIsStale(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.c")
	obj := filepath.Join(dir, "a.o")
	writeFile(t, obj, "")
	now := time.Now()
	if err := os.Chtimes(obj, now, now); err != nil {
		t.Fatal(err)
	}
	later := now.Add(time.Hour)
	writeFile(t, src, "")
	if err := os.Chtimes(src, later, later); err != nil {
		t.Fatal(err)
	}

	stale, err := isStale(src, obj)
	if err != nil {
		t.Fatalf("isStale: %v", err)
	}
	if !stale {
		t.Error("expected stale when source is newer than object")
	}
}

func TestPlanCompileJobs_MirrorsSourceTree(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src", "nested", "a.c")
	writeFile(t, src, "")

	o := &Orchestrator{
		Root:  root,
		Build: manifest.Build{Arch: "x86_64", Output: "app"},
		Tool:  toolchain.New("gcc"),
	}

	jobs, err := o.planCompileJobs([]string{src})
	if err != nil {
		t.Fatalf("planCompileJobs: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("got %d jobs, want 1", len(jobs))
	}
	want := filepath.Join(root, "obj", "x86_64", "debug", "src", "nested", "a.c") + ".o"
	if jobs[0].Object != want {
		t.Errorf("Object = %q, want %q", jobs[0].Object, want)
	}
	if !jobs[0].Recompile {
		t.Error("expected Recompile true when object does not exist")
	}
}

func TestPlanCompileJobs_ProfileFromOrchestratorField(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "a.c")
	writeFile(t, src, "")

	// The output name itself says nothing about the profile; only the
	// Profile field (wired from manifest.Options.Mode) does.
	o := &Orchestrator{
		Root:    root,
		Build:   manifest.Build{Output: "app-debug-build"},
		Tool:    toolchain.New("gcc"),
		Profile: "release",
	}

	jobs, err := o.planCompileJobs([]string{src})
	if err != nil {
		t.Fatalf("planCompileJobs: %v", err)
	}
	if filepath.Base(filepath.Dir(jobs[0].Object)) != "release" {
		t.Errorf("Object = %q, want a release profile segment", jobs[0].Object)
	}
	if !strings.Contains(joinArgsBE(jobs[0].Args), "-O3") {
		t.Errorf("Args = %v, want release flags", jobs[0].Args)
	}
}

func TestCompileAll_SkipsWhenNothingStale(t *testing.T) {
	root := t.TempDir()
	o := &Orchestrator{Root: root, Tool: toolchain.New("gcc")}
	jobs := []CompileJob{{Source: "a.c", Object: "a.o", Recompile: false}}

	if err := o.compileAll(context.Background(), jobs); err != nil {
		t.Fatalf("compileAll should be a no-op: %v", err)
	}
}

func TestPlatformArtifactName(t *testing.T) {
	if got := platformArtifactName("app", manifest.OutputExe, toolchain.Unknown); got == "" {
		t.Error("expected non-empty exe name")
	}
}

func TestPlatformArtifactName_StaticKeyedOnFamilyNotHostOS(t *testing.T) {
	if got := platformArtifactName("mathlib", manifest.OutputStatic, toolchain.MSVC); got != "mathlib.lib" {
		t.Errorf("MSVC family static name = %q, want mathlib.lib", got)
	}
	if got := platformArtifactName("mathlib", manifest.OutputStatic, toolchain.GCC); got != "libmathlib.a" {
		t.Errorf("GCC family static name = %q, want libmathlib.a", got)
	}
	if got := platformArtifactName("mathlib", manifest.OutputStatic, toolchain.Clang); got != "libmathlib.a" {
		t.Errorf("Clang family static name = %q, want libmathlib.a", got)
	}
}

func TestIsRuntimeArtifact(t *testing.T) {
	cases := map[string]bool{
		"libfoo.so":   true,
		"foo.dll":     true,
		"libfoo.dylib": true,
		"foo.a":       false,
		"foo.h":       false,
	}
	for name, want := range cases {
		if got := isRuntimeArtifact(name); got != want {
			t.Errorf("isRuntimeArtifact(%q) = %v, want %v", name, got, want)
		}
	}
}
