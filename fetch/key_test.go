package fetch

import (
	"testing"

	"github.com/flappy-build/flappy/manifest"
)

func TestCacheKey_Deterministic(t *testing.T) {
	src := manifest.Source{Kind: manifest.SourceGit, URL: "https://example.com/a.git", Tag: "v1.0.0"}
	a := cacheKey("a", src, "release", "x86_64", "/usr/bin/clang++")
	b := cacheKey("a", src, "release", "x86_64", "/usr/bin/clang++")
	if a != b {
		t.Fatalf("cacheKey not deterministic: %q != %q", a, b)
	}
}

func TestCacheKey_DiffersByProfile(t *testing.T) {
	src := manifest.Source{Kind: manifest.SourceGit, URL: "https://example.com/a.git"}
	a := cacheKey("a", src, "debug", "x86_64", "g++")
	b := cacheKey("a", src, "release", "x86_64", "g++")
	if a == b {
		t.Fatalf("cacheKey should differ across profiles, both = %q", a)
	}
}

func TestCacheKey_SanitizesCompilerPath(t *testing.T) {
	key := cacheKey("a", manifest.Source{URL: "x"}, "", "", `C:\Program Files\LLVM\bin\clang.exe`)
	for _, bad := range []string{"\\", ":"} {
		if containsByte(key, bad) {
			t.Fatalf("cacheKey %q still contains %q", key, bad)
		}
	}
}

func containsByte(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}
