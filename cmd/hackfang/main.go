// Package main provides the entry point for the hackfang CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/hackfang/cmd/hackfang/commands"
	"github.com/Sumatoshi-tech/hackfang/pkg/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hackfang",
		Short: "Hackfang - fleet batch orchestrator",
		Long: `Hackfang continuously preps and exploits remote servers by dispatching
timed hack/grow/weaken batches across a pool of runner hosts.

Commands:
  run       Run the orchestrator loop
  targets   Show the scored target admission list`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewTargetsCommand())
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "hackfang %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
