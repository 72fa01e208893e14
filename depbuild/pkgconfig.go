package depbuild

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// PkgConfigPackages scans meta's lib dirs for lib/pkgconfig/*.pc files
// and returns the package names pkg-config would recognize, so a
// diagnostic caller can query --libs/--cflags for them. Optional and
// off the default build path (spec §9's pkg-config supplement).
func PkgConfigPackages(meta Metadata) []string {
	var names []string
	for _, libDir := range meta.LibDirs {
		pkgconfigDir := filepath.Join(libDir, "pkgconfig")
		entries, err := os.ReadDir(pkgconfigDir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if strings.HasSuffix(e.Name(), ".pc") {
				names = append(names, strings.TrimSuffix(e.Name(), ".pc"))
			}
		}
	}
	return names
}

// PrintPkgConfigInfo runs `pkg-config --libs --cflags` for every
// package PkgConfigPackages finds under meta, printing each result.
// Failures are swallowed per-package: pkg-config may simply not be
// installed, which should never fail a build over a diagnostic.
func PrintPkgConfigInfo(ctx context.Context, meta Metadata) {
	names := PkgConfigPackages(meta)
	if len(names) == 0 {
		return
	}

	var pkgconfigDir string
	for _, libDir := range meta.LibDirs {
		candidate := filepath.Join(libDir, "pkgconfig")
		if _, err := os.Stat(candidate); err == nil {
			pkgconfigDir = candidate
			break
		}
	}

	pkgConfigPath := pkgconfigDir
	if existing := os.Getenv("PKG_CONFIG_PATH"); existing != "" {
		pkgConfigPath = pkgconfigDir + string(os.PathListSeparator) + existing
	}

	for _, name := range names {
		cmd := exec.CommandContext(ctx, "pkg-config", "--libs", "--cflags", name)
		cmd.Env = append(os.Environ(), "PKG_CONFIG_PATH="+pkgConfigPath)
		out, err := cmd.Output()
		if err != nil {
			continue
		}
		if result := strings.TrimSpace(string(out)); result != "" {
			fmt.Printf("%s: %s\n", name, result)
		}
	}
}
