package internal

import (
	"context"
	"fmt"

	"github.com/flappy-build/flappy/buildexec"
	"github.com/flappy-build/flappy/depbuild"
	"github.com/flappy-build/flappy/internal/logx"
	"github.com/spf13/cobra"
)

var (
	buildProfile  string
	buildMode     string
	buildPlatform string
	buildVerbose  bool
	buildNoDeps   bool
)

var buildCmd = &cobra.Command{
	Use:   "build [-- run-args...]",
	Short: "Build the current project and its dependencies",
	RunE:  runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildProfile, "profile", "", "named [build.<profile>] table to apply")
	buildCmd.Flags().StringVar(&buildMode, "mode", "debug", "debug or release")
	buildCmd.Flags().StringVar(&buildPlatform, "platform", "", "override detected host platform")
	buildCmd.Flags().BoolVarP(&buildVerbose, "verbose", "v", false, "print pkg-config --libs --cflags output for each built dependency")
	buildCmd.Flags().BoolVar(&buildNoDeps, "no-deps", false, "skip dependency resolution (set by a parent build recursing into a nested flappy.toml)")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	log := logx.Default()

	p, err := loadProject(buildProfile, buildMode, buildPlatform, buildNoDeps)
	if err != nil {
		return err
	}

	sources, err := buildexec.DiscoverSources(".", sourceLanguage(p.manifest))
	if err != nil {
		return err
	}

	orch := p.orchestrator(log, "obj")
	result, err := orch.Run(context.Background(), sources)
	if err != nil {
		return err
	}

	log.Info("Built", result.Output)

	if buildVerbose {
		ctx := context.Background()
		for _, node := range p.order {
			depbuild.PrintPkgConfigInfo(ctx, p.meta[node.Name])
		}
	}

	if p.manifest.Test != nil {
		if err := runTests(p, log); err != nil {
			return err
		}
	}

	return nil
}

func runTests(p *project, log *logx.Logger) error {
	test := p.manifest.Test
	orch := p.orchestrator(log, "obj/test")
	orch.Build.Output = test.Output
	orch.Build.Defines = append(orch.Build.Defines, test.Defines...)
	orch.Build.Flags = append(orch.Build.Flags, test.Flags...)
	orch.Build.Type = "exe"

	// Auto-link the main static library so the test binary can call
	// into it without the manifest repeating the dependency list.
	orch.Libs = append(orch.Libs, p.manifest.Package.Name)

	sources := test.Sources
	if len(sources) == 0 {
		var err error
		sources, err = buildexec.DiscoverSources(".", sourceLanguage(p.manifest))
		if err != nil {
			return err
		}
	}

	result, err := orch.Run(context.Background(), sources)
	if err != nil {
		return fmt.Errorf("building tests: %w", err)
	}
	log.Info("Built tests", result.Output)
	return nil
}
