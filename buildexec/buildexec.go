// Package buildexec drives the project's own incremental compile/link
// pipeline: source discovery, per-translation-unit compilation with
// mtime-based incremental skip, parallel compile fan-out, and a final
// link or archive step (spec §4.5). It is the one genuinely concurrent
// region of the core (spec §5).
package buildexec

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/flappy-build/flappy/internal/env"
	"github.com/flappy-build/flappy/internal/ferrors"
	"github.com/flappy-build/flappy/internal/logx"
	"github.com/flappy-build/flappy/internal/work"
	"github.com/flappy-build/flappy/manifest"
	"github.com/flappy-build/flappy/toolchain"
)

// sourceExts lists recognized translation-unit extensions per language.
// c++'s set includes .c (a mixed C/C++ project may still feed a .c file
// through the C++ compiler) plus the two module-interface extensions,
// .ixx and .cppm, which DiscoverSources orders ahead of every
// implementation unit (spec §4.5 step 1, §5's ordering guarantee).
var sourceExts = map[manifest.Language][]string{
	manifest.LangC:   {".c"},
	manifest.LangCPP: {".cpp", ".cc", ".cxx", ".c", ".ixx", ".cppm"},
}

// Result is what one Orchestrator.Run call produced.
type Result struct {
	Output       string
	CompiledDirs []string // object directories touched, for compiledb collection
	Objects      []CompileJob
}

// CompileJob is one source file mapped to its object output, and
// whether it was actually recompiled this run.
type CompileJob struct {
	Source    string
	Object    string
	Recompile bool

	// Args is the full compile command line, compiler name first.
	// Populated whether or not the job was actually recompiled, so a
	// fully cached build can still regenerate compile_commands.json.
	Args []string
}

// Orchestrator builds one Build target: the main project or its
// [test] variant, sharing the same compile/link machinery with a
// distinct object subdirectory (spec §4.5 last paragraph).
type Orchestrator struct {
	Root  string // project root, where flappy.toml lives
	Build manifest.Build
	Tool  toolchain.Toolchain
	Log   *logx.Logger

	// Profile is the resolved Debug/Release mode ("debug" or
	// "release"), threaded from manifest.Options.Mode — not guessed
	// from Build.Output (spec §4.5 step 2).
	Profile string

	// IncludeDirs/LibDirs/Libs come from the dependency graph's built
	// metadata, already flattened in build order.
	IncludeDirs []string
	LibDirs     []string
	Libs        []string

	// ObjSubdir distinguishes the main build's object tree from the
	// test build's (e.g. "obj" vs "obj/test"), per spec §4.5.
	ObjSubdir string

	// Parallelism bounds the compile fan-out; zero means
	// runtime.NumCPU().
	Parallelism int

	devEnvOnce sync.Once
	devEnv     []string
	devEnvErr  error
}

// Run compiles every stale translation unit among sources (as found by
// DiscoverSources or listed by the caller) and links or archives the
// result.
func (o *Orchestrator) Run(ctx context.Context, sources []string) (Result, error) {
	if o.Log == nil {
		o.Log = logx.Default()
	}

	jobs, err := o.planCompileJobs(sources)
	if err != nil {
		return Result{}, err
	}

	// Interface/module translation units complete before any
	// implementation unit begins (spec §5's ordering guarantee), so the
	// fan-out runs in two phases rather than one mixed pool.
	modules, impls := partitionModuleUnits(jobs)
	if err := o.compileAll(ctx, modules); err != nil {
		return Result{}, err
	}
	if err := o.compileAll(ctx, impls); err != nil {
		return Result{}, err
	}

	output, err := o.link(ctx, jobs)
	if err != nil {
		return Result{}, err
	}

	dirs := map[string]bool{}
	for _, j := range jobs {
		dirs[filepath.Dir(j.Object)] = true
	}
	var dirList []string
	for d := range dirs {
		dirList = append(dirList, d)
	}

	return Result{Output: output, Objects: jobs, CompiledDirs: dirList}, nil
}

// resolveArch returns Build.Arch unchanged when the manifest pins one;
// otherwise it maps the host's native arch to "x86", "x64" or "arm64"
// (any other GOARCH is returned as is).
func resolveArch(buildArch string) string {
	if buildArch != "" {
		return buildArch
	}
	switch runtime.GOARCH {
	case "386":
		return "x86"
	case "amd64":
		return "x64"
	case "arm64":
		return "arm64"
	default:
		return runtime.GOARCH
	}
}

// resolveProfile normalizes Profile to "debug" or "release", debug
// being the default when unset.
func (o *Orchestrator) resolveProfile() string {
	if o.Profile == "release" {
		return "release"
	}
	return "debug"
}

// planCompileJobs maps each source to its object path under
// <root>/<ObjSubdir>/<arch>/<profile>/... (mirroring the source tree
// shape per spec §3's invariant) and marks it stale if the object is
// missing or older than the source.
func (o *Orchestrator) planCompileJobs(sources []string) ([]CompileJob, error) {
	arch := resolveArch(o.Build.Arch)
	profile := o.resolveProfile()

	objRoot := filepath.Join(o.Root, o.objSubdir(), arch, profile)

	jobs := make([]CompileJob, 0, len(sources))
	for _, src := range sources {
		rel, err := filepath.Rel(o.Root, src)
		if err != nil {
			rel = filepath.Base(src)
		}
		obj := filepath.Join(objRoot, rel) + o.Tool.ObjectSuffix()

		stale, err := isStale(src, obj)
		if err != nil {
			return nil, &ferrors.IoError{Op: "stat", Path: src, Err: err}
		}
		args := append([]string{o.Tool.Compiler}, o.Tool.CompileArgs(src, obj, o.Build.Standard, profile, arch, o.Build.Defines, o.Build.Flags, o.IncludeDirs)...)
		jobs = append(jobs, CompileJob{Source: src, Object: obj, Recompile: stale, Args: args})
	}
	return jobs, nil
}

// PlanOnly computes the compile jobs (and their full argument lists)
// without compiling or linking anything, for collaborators that only
// need the command lines — compiledb generation in particular.
func (o *Orchestrator) PlanOnly(sources []string) ([]CompileJob, error) {
	return o.planCompileJobs(sources)
}

func (o *Orchestrator) objSubdir() string {
	if o.ObjSubdir != "" {
		return o.ObjSubdir
	}
	return "obj"
}

// isStale reports whether src needs recompiling: its object is
// missing, or older than src's last modification (spec §4.5
// incremental rule).
func isStale(src, obj string) (bool, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false, err
	}
	objInfo, err := os.Stat(obj)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return srcInfo.ModTime().After(objInfo.ModTime()), nil
}

// partitionModuleUnits splits jobs into module-interface units (.ixx,
// .cppm) and implementation units, each preserving relative order, so
// the caller can compile the former to completion before starting the
// latter.
func partitionModuleUnits(jobs []CompileJob) (modules, impls []CompileJob) {
	for _, j := range jobs {
		if isModuleUnit(j.Source) {
			modules = append(modules, j)
		} else {
			impls = append(impls, j)
		}
	}
	return modules, impls
}

func isModuleUnit(path string) bool {
	return strings.HasSuffix(path, ".ixx") || strings.HasSuffix(path, ".cppm")
}

// compileAll runs every stale job through the toolchain, in parallel
// bounded by Parallelism (spec §5's one concurrent region), adapted
// from internal/work.Pool.
func (o *Orchestrator) compileAll(ctx context.Context, jobs []CompileJob) error {
	var stale []CompileJob
	for _, j := range jobs {
		if j.Recompile {
			stale = append(stale, j)
		}
	}
	if len(stale) == 0 {
		return nil
	}

	n := o.Parallelism
	if n < 1 {
		n = runtime.NumCPU()
	}

	pool := work.New(stale)
	return pool.Run(n, func(job CompileJob) error {
		return o.compileOne(ctx, job)
	})
}

func (o *Orchestrator) compileOne(ctx context.Context, job CompileJob) error {
	if err := os.MkdirAll(filepath.Dir(job.Object), 0o755); err != nil {
		return &ferrors.IoError{Op: "mkdir", Path: filepath.Dir(job.Object), Err: err}
	}

	o.Log.Info("Compiling", job.Source)

	devEnv, err := o.devEnviron(ctx)
	if err != nil {
		return &ferrors.BuildError{File: job.Source, Command: o.Tool.Compiler, Err: fmt.Errorf("toolchain bootstrap: %w", err)}
	}

	args := o.Tool.CompileArgs(job.Source, job.Object, o.Build.Standard, o.resolveProfile(), resolveArch(o.Build.Arch), o.Build.Defines, o.Build.Flags, o.IncludeDirs)
	out, err := runTool(ctx, o.Tool.Compiler, args, devEnv)
	if err != nil {
		return &ferrors.BuildError{File: job.Source, Command: o.Tool.Compiler, Stderr: toolchain.ScrubBanner(out), Err: err}
	}
	return nil
}

// devEnviron returns the environment a compile/link/archive invocation
// should run under: nil (inherit) for every non-MSVC family, or the
// vswhere→vcvarsall developer environment for MSVC, captured once per
// Orchestrator and reused for every subsequent invocation rather than
// re-running vcvarsall.bat per file (spec §4.7/§9's CommandTransformer
// design note).
func (o *Orchestrator) devEnviron(ctx context.Context) ([]string, error) {
	o.devEnvOnce.Do(func() {
		if o.Tool.Family != toolchain.MSVC {
			return
		}
		dev, err := toolchain.LoadDevEnv(ctx, env.ProgramFilesX86(), resolveArch(o.Build.Arch))
		if err != nil {
			o.devEnvErr = err
			return
		}
		o.devEnv = dev.Environ(os.Environ())
	})
	return o.devEnv, o.devEnvErr
}

// DiscoverSources walks <root>/src looking for files with a recognized
// extension for lang, returning module-interface units (.ixx, .cppm)
// ahead of implementation units (spec §4.5 step 1, §5's ordering
// guarantee). A missing src/ directory yields zero sources rather than
// an error.
func DiscoverSources(root string, lang manifest.Language) ([]string, error) {
	exts := sourceExts[lang]
	if len(exts) == 0 {
		exts = sourceExts[manifest.LangCPP]
	}

	srcRoot := filepath.Join(root, "src")
	if _, err := os.Stat(srcRoot); os.IsNotExist(err) {
		return nil, nil
	}

	var found []string
	err := filepath.Walk(srcRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if info.Name() == "obj" || strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		for _, ext := range exts {
			if strings.HasSuffix(path, ext) {
				found = append(found, path)
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, &ferrors.IoError{Op: "walk", Path: srcRoot, Err: err}
	}

	sort.SliceStable(found, func(i, j int) bool {
		return isModuleUnit(found[i]) && !isModuleUnit(found[j])
	})
	return found, nil
}
