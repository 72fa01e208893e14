package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/flappy-build/flappy/internal/ferrors"
	"github.com/flappy-build/flappy/manifest"
)

func gitSrc(url string) manifest.Source {
	return manifest.Source{Kind: manifest.SourceGit, URL: url}
}

// noopFetch never touches disk — these tests exercise graph shape, not
// fetching, so every node "fetches" to an empty directory.
var noopFetch = FetcherFunc(func(ctx context.Context, name string, src manifest.Source) (string, string, error) {
	return "", "", nil
})

func TestResolve_Bridging(t *testing.T) {
	deps := map[string]manifest.Dependency{
		"openssl": {Name: "openssl", Source: gitSrc("https://example.com/openssl.git")},
		"curl": {
			Name:              "curl",
			Source:            gitSrc("https://example.com/curl.git"),
			ExtraDependencies: []string{"openssl"},
		},
	}
	lookup := func(name string) (manifest.Dependency, bool) {
		d, ok := deps[name]
		return d, ok
	}

	roots := []manifest.Dependency{deps["curl"]}
	rootNodes, order, err := Resolve(context.Background(), roots, lookup, noopFetch, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(rootNodes) != 1 || len(rootNodes[0].Children) != 1 {
		t.Fatalf("rootNodes = %+v", rootNodes)
	}
	if rootNodes[0].Children[0].Name != "openssl" {
		t.Errorf("bridged child = %q, want openssl", rootNodes[0].Children[0].Name)
	}
	// Build order is leaf-first: openssl must precede curl.
	if len(order) != 2 || order[0].Name != "openssl" || order[1].Name != "curl" {
		t.Errorf("order = %v, want [openssl curl]", names(order))
	}
}

func TestResolve_DiamondSharesOneNode(t *testing.T) {
	deps := map[string]manifest.Dependency{
		"zlib": {Name: "zlib", Source: gitSrc("https://example.com/zlib.git")},
		"png":  {Name: "png", Source: gitSrc("https://example.com/png.git"), ExtraDependencies: []string{"zlib"}},
		"jpeg": {Name: "jpeg", Source: gitSrc("https://example.com/jpeg.git"), ExtraDependencies: []string{"zlib"}},
	}
	lookup := func(name string) (manifest.Dependency, bool) {
		d, ok := deps[name]
		return d, ok
	}

	roots := []manifest.Dependency{deps["png"], deps["jpeg"]}
	_, order, err := Resolve(context.Background(), roots, lookup, noopFetch, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	count := 0
	for _, n := range order {
		if n.Name == "zlib" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("zlib appears %d times in build order, want 1", count)
	}
}

func TestResolve_Cycle(t *testing.T) {
	deps := map[string]manifest.Dependency{
		"a": {Name: "a", Source: gitSrc("https://example.com/a.git"), ExtraDependencies: []string{"b"}},
		"b": {Name: "b", Source: gitSrc("https://example.com/b.git"), ExtraDependencies: []string{"a"}},
	}
	lookup := func(name string) (manifest.Dependency, bool) {
		d, ok := deps[name]
		return d, ok
	}

	_, _, err := Resolve(context.Background(), []manifest.Dependency{deps["a"]}, lookup, noopFetch, nil)
	var cycleErr *ferrors.CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("err = %v, want *ferrors.CycleError", err)
	}
}

func TestResolve_Conflict(t *testing.T) {
	deps := map[string]manifest.Dependency{
		"a": {Name: "shared", Source: gitSrc("https://example.com/a.git"), ExtraDependencies: nil},
	}
	lookup := func(name string) (manifest.Dependency, bool) {
		d, ok := deps[name]
		return d, ok
	}

	roots := []manifest.Dependency{
		{Name: "shared", Source: gitSrc("https://example.com/a.git")},
		{Name: "shared", Source: gitSrc("https://example.com/different.git")},
	}
	_, _, err := Resolve(context.Background(), roots, lookup, noopFetch, nil)
	var conflictErr *ferrors.ConflictError
	if !errors.As(err, &conflictErr) {
		t.Fatalf("err = %v, want *ferrors.ConflictError", err)
	}
}

func TestResolve_UnknownBridgeTarget(t *testing.T) {
	lookup := func(name string) (manifest.Dependency, bool) { return manifest.Dependency{}, false }
	roots := []manifest.Dependency{
		{Name: "a", Source: gitSrc("https://example.com/a.git"), ExtraDependencies: []string{"missing"}},
	}
	_, _, err := Resolve(context.Background(), roots, lookup, noopFetch, nil)
	var graphErr *ferrors.GraphError
	if !errors.As(err, &graphErr) {
		t.Fatalf("err = %v, want *ferrors.GraphError", err)
	}
}

func TestResolve_NativeSubDependency(t *testing.T) {
	// "app" has no lookup entries at all: zlib is only reachable through
	// png's own nested manifest, exercising the native-sub-dependency
	// path rather than bridging.
	zlib := manifest.Dependency{Name: "zlib", Source: gitSrc("https://example.com/zlib.git")}
	png := manifest.Dependency{Name: "png", Source: gitSrc("https://example.com/png.git")}

	lookup := func(name string) (manifest.Dependency, bool) { return manifest.Dependency{}, false }
	loadManifest := func(dir string) (*manifest.Manifest, bool, error) {
		if dir == "png-dir" {
			return &manifest.Manifest{Dependencies: []manifest.Dependency{zlib}}, true, nil
		}
		return nil, false, nil
	}
	fetch := FetcherFunc(func(ctx context.Context, name string, src manifest.Source) (string, string, error) {
		if name == "png" {
			return "png-dir", "abc123", nil
		}
		return "", "", nil
	})

	_, order, err := Resolve(context.Background(), []manifest.Dependency{png}, lookup, fetch, loadManifest)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(order) != 2 || order[0].Name != "zlib" || order[1].Name != "png" {
		t.Errorf("order = %v, want [zlib png]", names(order))
	}
}

func names(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Name
	}
	return out
}
