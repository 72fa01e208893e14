package toolchain

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// DevEnv is the set of environment variables vcvarsall.bat exports
// (INCLUDE, LIB, LIBPATH, PATH) that a subsequent cl.exe invocation
// needs; a bare cl.exe on PATH is not enough without them.
type DevEnv struct {
	Vars map[string]string
}

// vswhereSearch locates vswhere.exe at its fixed, documented install
// location under Program Files (x86); vswhere does not ship on PATH.
func vswhereSearch(programFilesX86 string) string {
	if programFilesX86 == "" {
		return ""
	}
	return filepath.Join(programFilesX86, "Microsoft Visual Studio", "Installer", "vswhere.exe")
}

// findVCVarsAll shells out to vswhere to find the newest Visual Studio
// installation, then locates its vcvarsall.bat.
func findVCVarsAll(ctx context.Context, programFilesX86 string) (string, error) {
	vswhere := vswhereSearch(programFilesX86)
	if _, err := os.Stat(vswhere); err != nil {
		return "", fmt.Errorf("vswhere.exe not found at %s: %w", vswhere, err)
	}

	out, err := output(ctx, vswhere, "-latest", "-products", "*",
		"-requires", "Microsoft.VisualStudio.Component.VC.Tools.x86.x64",
		"-property", "installationPath")
	if err != nil {
		return "", fmt.Errorf("vswhere: %w", err)
	}

	installPath := strings.TrimSpace(out)
	if installPath == "" {
		return "", fmt.Errorf("vswhere found no Visual Studio installation with the VC.Tools component")
	}

	vcvarsall := filepath.Join(installPath, "VC", "Auxiliary", "Build", "vcvarsall.bat")
	if _, err := os.Stat(vcvarsall); err != nil {
		return "", fmt.Errorf("vcvarsall.bat not found under %s: %w", installPath, err)
	}
	return vcvarsall, nil
}

// LoadDevEnv runs vcvarsall.bat for arch ("x64", "x86", "arm64") and
// captures the environment it leaves behind, by chaining a `set` dump
// after it in the same cmd.exe invocation (vcvarsall.bat only mutates
// the environment of its own process, which cmd.exe's `&&` lets us
// observe from the parent shell).
func LoadDevEnv(ctx context.Context, programFilesX86, arch string) (DevEnv, error) {
	vcvarsall, err := findVCVarsAll(ctx, programFilesX86)
	if err != nil {
		return DevEnv{}, err
	}

	script := fmt.Sprintf(`call "%s" %s >nul && set`, vcvarsall, arch)
	out, err := output(ctx, "cmd.exe", "/c", script)
	if err != nil {
		return DevEnv{}, fmt.Errorf("vcvarsall %s: %w", arch, err)
	}

	return DevEnv{Vars: parseSetOutput(out)}, nil
}

// parseSetOutput parses cmd.exe `set`'s KEY=VALUE-per-line output. Only
// the variables vcvarsall.bat itself sets or extends are of interest
// to a caller (INCLUDE, LIB, LIBPATH, PATH); the caller decides which
// to merge into its own process environment.
func parseSetOutput(out string) map[string]string {
	vars := make(map[string]string)
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		vars[k] = v
	}
	return vars
}

// Environ merges env's INCLUDE/LIB/LIBPATH/PATH onto base (as returned
// by os.Environ), giving vcvarsall's values precedence, and returns
// the KEY=VALUE slice exec.Cmd.Env expects.
func (env DevEnv) Environ(base []string) []string {
	wanted := map[string]bool{"INCLUDE": true, "LIB": true, "LIBPATH": true, "PATH": true}

	merged := make(map[string]string, len(base))
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok {
			merged[strings.ToUpper(k)] = v
		}
	}
	for k, v := range env.Vars {
		if wanted[strings.ToUpper(k)] {
			merged[strings.ToUpper(k)] = v
		}
	}

	out := make([]string, 0, len(merged))
	for k, v := range merged {
		out = append(out, k+"="+v)
	}
	return out
}

func output(ctx context.Context, bin string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%s", msg)
		}
		return "", err
	}
	return stdout.String(), nil
}
