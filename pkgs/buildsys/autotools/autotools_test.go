package autotools

import (
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/flappy-build/flappy/pkgs/buildsys"
)

func TestUseSetsEnv(t *testing.T) {
	tempDir := t.TempDir()
	includeDir := filepath.Join(tempDir, "include")
	libDir := filepath.Join(tempDir, "lib")

	a := New("src", t.TempDir())
	a.Use(buildsys.Dep{IncludeDir: includeDir, LibDir: libDir})

	if runtime.GOOS == "windows" {
		if got := a.env["INCLUDE"]; got != includeDir {
			t.Errorf("INCLUDE = %q, want %q", got, includeDir)
		}
		if got := a.env["LIB"]; got != libDir {
			t.Errorf("LIB = %q, want %q", got, libDir)
		}
	} else {
		if got := a.env["CPPFLAGS"]; strings.TrimSpace(got) != "-I"+includeDir {
			t.Errorf("CPPFLAGS = %q, want %q", got, "-I"+includeDir)
		}
		if got := a.env["LDFLAGS"]; strings.TrimSpace(got) != "-L"+libDir {
			t.Errorf("LDFLAGS = %q, want %q", got, "-L"+libDir)
		}
	}
}

func TestOutputDirPrefersInstall(t *testing.T) {
	a := New("src", "work")
	if got, want := a.OutputDir(), filepath.Join("work", "install"); got != want {
		t.Fatalf("default OutputDir = %q, want %q", got, want)
	}
	a.InstallDir("custom-install")
	if got := a.OutputDir(); got != "custom-install" {
		t.Fatalf("OutputDir after InstallDir = %q, want %q", got, "custom-install")
	}
}
