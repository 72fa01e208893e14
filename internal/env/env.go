// Package env resolves the handful of process-wide locations the core
// needs: the global dependency cache root and the platform name used by
// the manifest resolver's platform override layer. It is one of the few
// places the core is allowed to hold implicit global state (see spec §9
// design notes: cache root, logging sink, toolchain classification table).
package env

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Platform returns the manifest-resolver platform tag for the current
// host: "windows", "linux", or "macos".
func Platform() string {
	switch runtime.GOOS {
	case "windows":
		return "windows"
	case "darwin":
		return "macos"
	default:
		return "linux"
	}
}

// CacheRoot returns the global dependency cache root directory, creating
// it if necessary:
//
//	Windows: %APPDATA%/flappy/cache
//	else:    $XDG_CACHE_HOME/flappy/cache, or $HOME/.cache/flappy/cache
func CacheRoot() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("APPDATA")
		if base == "" {
			return "", fmt.Errorf("env: APPDATA is not set")
		}
	default:
		if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
			base = xdg
		} else {
			home := os.Getenv("HOME")
			if home == "" {
				return "", fmt.Errorf("env: neither XDG_CACHE_HOME nor HOME is set")
			}
			base = filepath.Join(home, ".cache")
		}
	}

	root := filepath.Join(base, "flappy", "cache")
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", err
	}
	return root, nil
}

// ProgramFilesX86 returns the 32-bit Program Files directory used to
// locate vswhere.exe on Windows. Empty if the environment variable is
// unset (e.g. when running on a non-Windows host or in a test sandbox).
func ProgramFilesX86() string {
	return os.Getenv("PROGRAMFILES(X86)")
}
