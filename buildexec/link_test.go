package buildexec

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/flappy-build/flappy/internal/logx"
	"github.com/flappy-build/flappy/manifest"
	"github.com/flappy-build/flappy/toolchain"
)

func TestLinkUpToDate_MissingOutputForcesLink(t *testing.T) {
	dir := t.TempDir()
	obj := filepath.Join(dir, "a.o")
	writeFile(t, obj, "")

	upToDate, err := linkUpToDate(filepath.Join(dir, "missing"), []string{obj})
	if err != nil {
		t.Fatalf("linkUpToDate: %v", err)
	}
	if upToDate {
		t.Error("expected a missing output to force a link")
	}
}

func TestLinkUpToDate_NewerOutputSkipsLink(t *testing.T) {
	dir := t.TempDir()
	obj := filepath.Join(dir, "a.o")
	output := filepath.Join(dir, "app")
	writeFile(t, obj, "")
	now := time.Now()
	if err := os.Chtimes(obj, now, now); err != nil {
		t.Fatal(err)
	}
	writeFile(t, output, "")
	later := now.Add(time.Hour)
	if err := os.Chtimes(output, later, later); err != nil {
		t.Fatal(err)
	}

	upToDate, err := linkUpToDate(output, []string{obj})
	if err != nil {
		t.Fatalf("linkUpToDate: %v", err)
	}
	if !upToDate {
		t.Error("expected output newer than every object to skip the link")
	}
}

func TestLinkUpToDate_NewerObjectForcesLink(t *testing.T) {
	dir := t.TempDir()
	obj := filepath.Join(dir, "a.o")
	output := filepath.Join(dir, "app")
	writeFile(t, output, "")
	now := time.Now()
	if err := os.Chtimes(output, now, now); err != nil {
		t.Fatal(err)
	}
	writeFile(t, obj, "")
	later := now.Add(time.Hour)
	if err := os.Chtimes(obj, later, later); err != nil {
		t.Fatal(err)
	}

	upToDate, err := linkUpToDate(output, []string{obj})
	if err != nil {
		t.Fatalf("linkUpToDate: %v", err)
	}
	if upToDate {
		t.Error("expected an object newer than the output to force a relink")
	}
}

func TestLink_SkipsArchiveWhenUpToDate(t *testing.T) {
	root := t.TempDir()
	obj := filepath.Join(root, "obj", "x64", "debug", "a.o")
	writeFile(t, obj, "")
	now := time.Now()
	if err := os.Chtimes(obj, now, now); err != nil {
		t.Fatal(err)
	}

	o := &Orchestrator{
		Root:  root,
		Build: manifest.Build{Output: "mathlib", Type: manifest.OutputStatic},
		Tool:  toolchain.New("gcc"),
		Log:   logx.Default(),
	}
	outDir := filepath.Join(root, "bin")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		t.Fatal(err)
	}
	output := filepath.Join(outDir, platformArtifactName("mathlib", manifest.OutputStatic, toolchain.GCC))
	writeFile(t, output, "")
	later := now.Add(time.Hour)
	if err := os.Chtimes(output, later, later); err != nil {
		t.Fatal(err)
	}

	got, err := o.link(context.Background(), []CompileJob{{Object: obj}})
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	if got != output {
		t.Errorf("link returned %q, want %q", got, output)
	}
}
