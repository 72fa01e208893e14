package buildexec

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/flappy-build/flappy/internal/ferrors"
	"github.com/flappy-build/flappy/manifest"
	"github.com/flappy-build/flappy/toolchain"
)

// link produces the Build's declared output: an executable, a static
// archive, or a shared library, named per the host platform's
// convention (spec §4.5/§4.7). The link/archive step itself is skipped
// when the output already exists and is newer than every object file
// (spec §4.5 step 3).
func (o *Orchestrator) link(ctx context.Context, jobs []CompileJob) (string, error) {
	objs := make([]string, 0, len(jobs))
	for _, j := range jobs {
		objs = append(objs, j.Object)
	}

	outDir := filepath.Join(o.Root, o.objSubdir(), "..", "bin")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", &ferrors.IoError{Op: "mkdir", Path: outDir, Err: err}
	}

	name := o.Build.Output
	if name == "" {
		name = filepath.Base(o.Root)
	}

	outType := o.Build.Type
	if outType == "" {
		outType = manifest.OutputExe
	}

	output := filepath.Join(outDir, platformArtifactName(name, outType, o.Tool.Family))

	upToDate, err := linkUpToDate(output, objs)
	if err != nil {
		return "", &ferrors.IoError{Op: "stat", Path: output, Err: err}
	}
	if upToDate {
		o.Log.Info("Skipping link", output)
		if err := o.copyRuntimeArtifacts(outDir); err != nil {
			return "", err
		}
		return output, nil
	}

	o.Log.Info("Linking", output, "type", string(outType))

	devEnv, err := o.devEnviron(ctx)
	if err != nil {
		return "", &ferrors.BuildError{File: output, Command: o.Tool.Compiler, Err: fmt.Errorf("toolchain bootstrap: %w", err)}
	}

	switch outType {
	case manifest.OutputStatic:
		prog, args := o.Tool.ArchiveArgs(objs, output)
		if out, err := runTool(ctx, prog, args, devEnv); err != nil {
			return "", &ferrors.BuildError{File: output, Command: prog, Stderr: toolchain.ScrubBanner(out), Err: err}
		}
	case manifest.OutputShared:
		args := o.Tool.LinkArgs(objs, output, true, o.LibDirs, o.Libs, o.Build.Flags)
		if out, err := runTool(ctx, o.Tool.Compiler, args, devEnv); err != nil {
			return "", &ferrors.BuildError{File: output, Command: o.Tool.Compiler, Stderr: toolchain.ScrubBanner(out), Err: err}
		}
	default:
		args := o.Tool.LinkArgs(objs, output, false, o.LibDirs, o.Libs, o.Build.Flags)
		if out, err := runTool(ctx, o.Tool.Compiler, args, devEnv); err != nil {
			return "", &ferrors.BuildError{File: output, Command: o.Tool.Compiler, Stderr: toolchain.ScrubBanner(out), Err: err}
		}
	}

	if err := o.copyRuntimeArtifacts(outDir); err != nil {
		return "", err
	}

	return output, nil
}

// linkUpToDate reports whether output exists and its mtime exceeds
// every object's mtime (an object with the same mtime as the output
// forces a relink), in which case the link/archive step can be
// skipped outright (spec §4.5 step 3). A missing object forces a
// relink rather than erroring, since that's always resolved by running
// the linker again.
func linkUpToDate(output string, objs []string) (bool, error) {
	outInfo, err := os.Stat(output)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	for _, obj := range objs {
		objInfo, err := os.Stat(obj)
		if err != nil {
			return false, nil
		}
		if !objInfo.ModTime().Before(outInfo.ModTime()) {
			return false, nil
		}
	}
	return true, nil
}

// platformArtifactName applies the host's file-naming convention to a
// logical output name: lib<name>.a / <name>.lib for static archives,
// lib<name>.so / <name>.dll / lib<name>.dylib for shared libraries,
// and <name>(.exe) for executables. The static-archive suffix is keyed
// on the compiler family (.lib on MSVC, .a otherwise), not the host OS:
// clang-cl on Windows still produces MSVC-style archives, and a
// cross-targeting GCC toolchain run from Windows still produces a .a.
func platformArtifactName(name string, t manifest.OutputType, family toolchain.Family) string {
	switch t {
	case manifest.OutputStatic:
		if family == toolchain.MSVC {
			return name + ".lib"
		}
		return "lib" + name + ".a"
	case manifest.OutputShared:
		switch runtime.GOOS {
		case "windows":
			return name + ".dll"
		case "darwin":
			return "lib" + name + ".dylib"
		default:
			return "lib" + name + ".so"
		}
	default:
		if runtime.GOOS == "windows" {
			return name + ".exe"
		}
		return name
	}
}

// copyRuntimeArtifacts copies every dependency-provided shared library
// next to the freshly linked binary, so a dynamically linked
// executable can actually run from outDir without LD_LIBRARY_PATH
// gymnastics (spec §4.5's runtime-artifact copy step).
func (o *Orchestrator) copyRuntimeArtifacts(outDir string) error {
	for _, dir := range o.LibDirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue // dependency lib dirs are best-effort; a missing one isn't fatal here
		}
		for _, e := range entries {
			if e.IsDir() || !isRuntimeArtifact(e.Name()) {
				continue
			}
			if err := copyFile(filepath.Join(dir, e.Name()), filepath.Join(outDir, e.Name())); err != nil {
				return &ferrors.IoError{Op: "copy", Path: e.Name(), Err: err}
			}
		}
	}
	return nil
}

func isRuntimeArtifact(name string) bool {
	for _, suffix := range []string{".dll", ".so", ".dylib"} {
		if len(name) > len(suffix) && name[len(name)-len(suffix):] == suffix {
			return true
		}
	}
	return false
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

// runTool runs prog with args, returning its combined stderr/stdout
// for diagnostics regardless of success or failure. A nil env inherits
// the current process's environment; a non-nil one (the MSVC developer
// environment) replaces it outright, per exec.Cmd.Env's convention.
func runTool(ctx context.Context, prog string, args []string, env []string) (string, error) {
	cmd := exec.CommandContext(ctx, prog, args...)
	if env != nil {
		cmd.Env = env
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("%s: %w", prog, err)
	}
	return string(out), nil
}
