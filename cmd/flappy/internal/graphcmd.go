package internal

import (
	"fmt"

	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the resolved dependency build order",
	RunE:  runGraph,
}

func init() {
	graphCmd.Flags().StringVar(&buildProfile, "profile", "", "named [build.<profile>] table to apply")
	graphCmd.Flags().StringVar(&buildMode, "mode", "debug", "debug or release")
	graphCmd.Flags().StringVar(&buildPlatform, "platform", "", "override detected host platform")
	rootCmd.AddCommand(graphCmd)
}

func runGraph(cmd *cobra.Command, args []string) error {
	p, err := loadProject(buildProfile, buildMode, buildPlatform, false)
	if err != nil {
		return err
	}

	for _, node := range p.order {
		dm := p.meta[node.Name]
		fmt.Printf("%s\t%s\n", node.Name, node.Dep.Source.String())
		for _, inc := range dm.IncludeDirs {
			fmt.Printf("  include: %s\n", inc)
		}
		for _, lib := range dm.LibDirs {
			fmt.Printf("  lib:     %s\n", lib)
		}
	}
	return nil
}
