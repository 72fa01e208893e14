package depbuild

import (
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"

	"github.com/flappy-build/flappy/internal/ferrors"
)

// buildStateFile records the hash a dependency's custom build_cmd last
// ran with, so a later Build call can skip re-running it when nothing
// that would change its output has changed (spec §3 invariants, §4.4
// priority 1).
const buildStateFile = ".flappy_build_state"

// buildStateHash hashes (resolved, buildCmd, defines) with fnv1a32,
// grounded on bootstrap/glob.go's use of hash/fnv for the same kind of
// short-stable-key purpose fetch/key.go's cacheKey already relies on.
func buildStateHash(resolved, buildCmd string, defines []string) string {
	h := fnv.New32a()
	h.Write([]byte(resolved))
	h.Write([]byte{0})
	h.Write([]byte(buildCmd))
	for _, d := range defines {
		h.Write([]byte{0})
		h.Write([]byte(d))
	}
	return fmt.Sprintf("%08x", h.Sum32())
}

// buildStateUpToDate reports whether dir's .flappy_build_state already
// records the hash for (resolved, buildCmd, defines), meaning the
// custom build command can be skipped.
func buildStateUpToDate(dir, resolved, buildCmd string, defines []string) (bool, error) {
	data, err := os.ReadFile(filepath.Join(dir, buildStateFile))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, &ferrors.IoError{Op: "read", Path: dir, Err: err}
	}
	return strings.TrimSpace(string(data)) == buildStateHash(resolved, buildCmd, defines), nil
}

// writeBuildState records the hash for (resolved, buildCmd, defines)
// after a successful custom-command build.
func writeBuildState(dir, resolved, buildCmd string, defines []string) error {
	hash := buildStateHash(resolved, buildCmd, defines)
	if err := os.WriteFile(filepath.Join(dir, buildStateFile), []byte(hash), 0o644); err != nil {
		return &ferrors.IoError{Op: "write", Path: dir, Err: err}
	}
	return nil
}
