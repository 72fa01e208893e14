package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"

	"github.com/flappy-build/flappy/manifest"
)

// httpFetcher implements Fetcher for manifest.SourceHTTP by downloading
// a single file into dir. It does not unpack archives: spec §4.2 scopes
// Http sources to "a single file" (headers, a prebuilt static library,
// etc.); dependencies that need archive extraction use Git or a local
// path pointing at an already-unpacked tree.
type httpFetcher struct{}

func (f *httpFetcher) Fetch(ctx context.Context, src manifest.Source, dir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return "", err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("GET %s: %s", src.URL, resp.Status)
	}

	name := path.Base(src.URL)
	if name == "" || name == "." || name == "/" {
		name = "download"
	}
	dst := filepath.Join(dir, name)

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(dst)
		return "", err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return "", err
	}

	// resolved has no commit to key off for an Http source, so it's the
	// URL's fnv1a32 hash instead (spec §4.2), the same hash cacheKey uses
	// to keep the on-disk cache dir name short.
	return strconv.FormatUint(uint64(fnv1a32(src.URL)), 16), nil
}
