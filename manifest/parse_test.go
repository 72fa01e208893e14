package manifest

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/flappy-build/flappy/internal/ferrors"
)

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "flappy.toml"), Options{})
	if err == nil {
		t.Fatal("expected error for missing manifest")
	}
	var merr *ferrors.ManifestError
	if !errors.As(err, &merr) {
		t.Fatalf("error = %T, want *ferrors.ManifestError", err)
	}
}

func TestParse_InvalidTOML(t *testing.T) {
	_, err := Parse([]byte("not = [valid"), "flappy.toml", Options{})
	if err == nil {
		t.Fatal("expected error for malformed TOML")
	}
	var merr *ferrors.ManifestError
	if !errors.As(err, &merr) {
		t.Fatalf("error = %T, want *ferrors.ManifestError", err)
	}
}

func TestParse_PackageAndTest(t *testing.T) {
	data := []byte(`
[package]
name = "hello"
version = "1.0.0"
authors = ["a", "b"]

[test]
sources = ["tests/main_test.cc"]
output = "hello_tests"
`)
	m, err := Parse(data, "flappy.toml", Options{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if m.Package.Name != "hello" || m.Package.Version != "1.0.0" {
		t.Errorf("Package = %+v", m.Package)
	}
	if m.Test == nil || m.Test.Output != "hello_tests" {
		t.Errorf("Test = %+v", m.Test)
	}
}

func TestParse_NoDependenciesTable(t *testing.T) {
	m, err := Parse([]byte(`[package]
name = "hello"
`), "flappy.toml", Options{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(m.Dependencies) != 0 {
		t.Errorf("Dependencies = %v, want none", m.Dependencies)
	}
}
