package depbuild

import (
	"context"
	"path/filepath"

	"github.com/flappy-build/flappy/internal/ferrors"
	"github.com/flappy-build/flappy/manifest"
	"github.com/flappy-build/flappy/pkgs/buildsys"
	"github.com/flappy-build/flappy/pkgs/buildsys/autotools"
	"github.com/flappy-build/flappy/pkgs/buildsys/cmake"
)

func (b *Builder) buildCMake(ctx context.Context, dep manifest.Dependency, sourceDir string, siblingMeta map[string]Metadata) error {
	c := cmake.New(sourceDir, filepath.Join(sourceDir, ".flappy-build"))
	for _, name := range dep.ExtraDependencies {
		if meta, ok := siblingMeta[name]; ok {
			c.Use(buildsysDep(meta))
		}
	}
	return runBuildSystem(ctx, c, sourceDir)
}

func (b *Builder) buildAutotools(ctx context.Context, dep manifest.Dependency, sourceDir string, siblingMeta map[string]Metadata) error {
	a := autotools.New(sourceDir, filepath.Join(sourceDir, ".flappy-build"))
	for _, name := range dep.ExtraDependencies {
		if meta, ok := siblingMeta[name]; ok {
			a.Use(buildsysDep(meta))
		}
	}
	return runBuildSystem(ctx, a, sourceDir)
}

// runBuildSystem drives the Configure/Build/Install lifecycle common
// to both meta-build drivers; their differing argument conventions
// live in each package, not here.
func runBuildSystem(ctx context.Context, sys buildsys.BuildSystem, sourceDir string) error {
	if err := sys.Configure(ctx); err != nil {
		return &ferrors.BuildError{File: sourceDir, Command: "configure", Err: err}
	}
	if err := sys.Build(ctx); err != nil {
		return &ferrors.BuildError{File: sourceDir, Command: "build", Err: err}
	}
	if err := sys.Install(ctx); err != nil {
		return &ferrors.BuildError{File: sourceDir, Command: "install", Err: err}
	}
	return nil
}

func buildsysDep(meta Metadata) buildsys.Dep {
	dep := buildsys.Dep{}
	if len(meta.IncludeDirs) > 0 {
		dep.IncludeDir = meta.IncludeDirs[0]
	}
	if len(meta.LibDirs) > 0 {
		dep.LibDir = meta.LibDirs[0]
	}
	return dep
}
