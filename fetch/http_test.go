package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/flappy-build/flappy/manifest"
)

func TestHTTPFetcher_ResolvedIsURLHash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("header content\n"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	src := manifest.Source{Kind: manifest.SourceHTTP, URL: srv.URL + "/lib.h"}

	f := &httpFetcher{}
	resolved, err := f.Fetch(context.Background(), src, dir)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	want := strconv.FormatUint(uint64(fnv1a32(src.URL)), 16)
	if resolved != want {
		t.Errorf("resolved = %q, want %q (fnv1a32 of the URL)", resolved, want)
	}
}
