// Package internal is the cobra-based cmd/flappy surface: a thin
// wrapper over the core packages (manifest, graph, fetch, depbuild,
// buildexec, compiledb, toolchain). It exists to invoke the core, not
// to reproduce a wizard/scaffolding UX (spec §1 Non-goals), and is
// grounded on the teacher's cmd/llar/internal layout (root.go +
// one file per subcommand, each registering itself from init()).
package internal

import (
	"log"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "flappy",
	Short: "flappy is a Cargo-style build system and package manager for C/C++",
}

// Execute adds all child commands to the root command and runs it.
// Called by main.main(); only needs to happen once.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
