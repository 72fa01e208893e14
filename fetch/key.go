package fetch

import (
	"hash/fnv"
	"strconv"
	"strings"

	"github.com/flappy-build/flappy/manifest"
)

// cacheKey builds the cache directory name for one dependency source
// under one build configuration: <name>@<version>_<urlhash>_<profile>_
// <arch>_<compiler>. version is the Git tag, or "HEAD" for any source
// without a tag (an Http source included). The URL is hashed with fnv1a32
// rather than embedded verbatim so the directory name stays short and
// filesystem-safe regardless of the scheme or path characters in the
// remote (grounded on bootstrap/glob.go's use of hash/fnv for a similar
// short-stable-key purpose).
func cacheKey(name string, src manifest.Source, profile, arch, compiler string) string {
	version := src.Tag
	if version == "" {
		version = "HEAD"
	}

	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('@')
	b.WriteString(version)
	b.WriteByte('_')
	b.WriteString(strconv.FormatUint(uint64(fnv1a32(src.URL)), 16))
	b.WriteByte('_')
	b.WriteString(orDefault(profile, "default"))
	b.WriteByte('_')
	b.WriteString(orDefault(arch, "native"))
	b.WriteByte('_')
	b.WriteString(safeCompilerName(compiler))
	return b.String()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// safeCompilerName strips path separators so a compiler given as an
// absolute path (e.g. "/usr/bin/clang++") does not produce nested
// directories in the cache key.
func safeCompilerName(compiler string) string {
	if compiler == "" {
		return "default"
	}
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_")
	return r.Replace(compiler)
}

func fnv1a32(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}
