/*
Package main is the entry point for stractl, the offline command line for
the search term report analyzer.

Usage:

	stractl [command]

Available Commands:

	analyze     Classify a report and write the Excel and bulk exports
	filter      Filter report rows with a plain-English request
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AngelCh415/ppc-searchterm-analyzer/internal/cli"
)

// Set via ldflags.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "stractl",
		Short: "Analyze Amazon Sponsored Products search term reports",
		Long: `stractl classifies an Amazon Sponsored Products Search Term Report into
Wasted Adspend, Inefficient Adspend, Scaling Opportunity and Harvesting
Opportunity, writes the Excel report and the bulk negation file, and
filters rows from a plain-English request.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(cli.NewAnalyzeCmd())
	rootCmd.AddCommand(cli.NewFilterCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
