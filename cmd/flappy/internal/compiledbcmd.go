package internal

import (
	"path/filepath"

	"github.com/flappy-build/flappy/buildexec"
	"github.com/flappy-build/flappy/compiledb"
	"github.com/flappy-build/flappy/internal/logx"
	"github.com/spf13/cobra"
)

var compiledbOut string

var compiledbCmd = &cobra.Command{
	Use:   "compiledb",
	Short: "Generate compile_commands.json for the current project",
	RunE:  runCompiledb,
}

func init() {
	compiledbCmd.Flags().StringVar(&compiledbOut, "out", "compile_commands.json", "output path")
	compiledbCmd.Flags().StringVar(&buildProfile, "profile", "", "named [build.<profile>] table to apply")
	compiledbCmd.Flags().StringVar(&buildMode, "mode", "debug", "debug or release")
	compiledbCmd.Flags().StringVar(&buildPlatform, "platform", "", "override detected host platform")
	rootCmd.AddCommand(compiledbCmd)
}

func runCompiledb(cmd *cobra.Command, args []string) error {
	log := logx.Default()

	p, err := loadProject(buildProfile, buildMode, buildPlatform, false)
	if err != nil {
		return err
	}

	sources, err := buildexec.DiscoverSources(".", sourceLanguage(p.manifest))
	if err != nil {
		return err
	}

	orch := p.orchestrator(log, "obj")
	jobs, err := orch.PlanOnly(sources)
	if err != nil {
		return err
	}

	dir, err := filepath.Abs(".")
	if err != nil {
		return err
	}

	cdbJobs := make([]compiledb.Job, 0, len(jobs))
	for _, j := range jobs {
		cdbJobs = append(cdbJobs, compiledb.Job{Source: j.Source, Object: j.Object, Args: j.Args})
	}

	entries := compiledb.Collect(dir, cdbJobs)
	if err := compiledb.WriteFile(compiledbOut, entries); err != nil {
		return err
	}

	log.Info("Wrote", compiledbOut, "entries", len(entries))
	return nil
}
