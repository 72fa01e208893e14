package internal

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/flappy-build/flappy/buildexec"
	"github.com/flappy-build/flappy/depbuild"
	"github.com/flappy-build/flappy/fetch"
	"github.com/flappy-build/flappy/graph"
	"github.com/flappy-build/flappy/internal/env"
	"github.com/flappy-build/flappy/internal/logx"
	"github.com/flappy-build/flappy/manifest"
	"github.com/flappy-build/flappy/toolchain"
)

// resolveTimeout bounds each dependency's fetch (dependency builds run
// without a deadline), grounded on
// internal/modules/load.go's context.WithTimeout(ctx, 10*time.Minute)
// default (spec §5).
const resolveTimeout = 10 * time.Minute

// project is everything a build or graph/compiledb command needs
// after loading flappy.toml and building every dependency in the
// graph once.
type project struct {
	manifest *manifest.Manifest
	order    []*graph.Node
	meta     map[string]depbuild.Metadata
	tool     toolchain.Toolchain
	mode     string
}

// loadProject loads flappy.toml and, unless skipDeps is set, walks and
// builds its full dependency graph. skipDeps is set on a nested build
// (flappy build --no-deps): the parent invocation already resolved and
// built this project's dependencies, so the child only needs to
// compile its own sources (spec §4.4 priority 2).
func loadProject(profile, mode, platform string, skipDeps bool) (*project, error) {
	opts := manifest.Options{Profile: profile, Mode: manifest.Profile(mode), Platform: platform}
	if opts.Mode == "" {
		opts.Mode = manifest.Debug
	}
	if opts.Platform == "" {
		opts.Platform = env.Platform()
	}

	m, err := manifest.Load("flappy.toml", opts)
	if err != nil {
		return nil, err
	}

	tool := toolchain.New(m.Build.Compiler)
	proj := &project{manifest: m, tool: tool, mode: string(opts.Mode), meta: map[string]depbuild.Metadata{}}

	if skipDeps {
		return proj, nil
	}

	lookup := func(name string) (depDep manifest.Dependency, ok bool) {
		for _, d := range m.Dependencies {
			if d.Name == name {
				return d, true
			}
		}
		return manifest.Dependency{}, false
	}

	resolver := fetch.New(fetch.Options{Profile: string(opts.Mode), Arch: m.Build.Arch, Compiler: m.Build.Compiler})
	fetcher := graph.FetcherFunc(func(ctx context.Context, name string, src manifest.Source) (string, string, error) {
		ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
		defer cancel()
		return resolver.Fetch(ctx, name, src)
	})
	loadNestedManifest := func(dir string) (*manifest.Manifest, bool, error) {
		path := filepath.Join(dir, "flappy.toml")
		if _, err := os.Stat(path); err != nil {
			return nil, false, nil
		}
		nm, err := manifest.Load(path, opts)
		if err != nil {
			return nil, false, err
		}
		return nm, true, nil
	}

	_, order, err := graph.Resolve(context.Background(), m.Dependencies, lookup, fetcher, loadNestedManifest)
	if err != nil {
		return nil, err
	}

	builder := &depbuild.Builder{Arch: m.Build.Arch, Compiler: m.Build.Compiler}
	meta := make(map[string]depbuild.Metadata, len(order))
	for _, node := range order {
		dm, err := builder.Build(context.Background(), node.Dep, node.Dir, node.Resolved, meta)
		if err != nil {
			return nil, err
		}
		dm.Resolved = node.Resolved
		meta[node.Name] = dm
	}

	proj.order = order
	proj.meta = meta
	return proj, nil
}

// includeLibDirs flattens every built dependency's directories in
// build order, so the main project's compile/link step sees its
// whole transitive closure.
func (p *project) includeLibDirs() (includeDirs, libDirs, libs []string) {
	for _, node := range p.order {
		dm := p.meta[node.Name]
		includeDirs = append(includeDirs, dm.IncludeDirs...)
		libDirs = append(libDirs, dm.LibDirs...)
		libs = append(libs, dm.Libs...)
		libs = append(libs, node.Name)
	}
	return includeDirs, libDirs, libs
}

func (p *project) orchestrator(log *logx.Logger, objSubdir string) *buildexec.Orchestrator {
	includeDirs, libDirs, libs := p.includeLibDirs()
	return &buildexec.Orchestrator{
		Root:        ".",
		Build:       p.manifest.Build,
		Tool:        p.tool,
		Log:         log,
		Profile:     p.mode,
		IncludeDirs: includeDirs,
		LibDirs:     libDirs,
		Libs:        libs,
		ObjSubdir:   objSubdir,
	}
}

func sourceLanguage(m *manifest.Manifest) manifest.Language {
	if m.Build.Language != "" {
		return m.Build.Language
	}
	return manifest.LangCPP
}
