// Package main provides the astdiff CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/astdiff/pkg/report"
	"github.com/Sumatoshi-tech/astdiff/pkg/version"
)

// globalFlags holds the persistent flags shared by all commands.
type globalFlags struct {
	configPath string
	format     string
	verbose    bool
	noColor    bool
}

func main() {
	version.InitBinaryVersion()

	err := newRootCommand().Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "astdiff",
		Short: "Structural AST diff of source files and projects",
		Long: `astdiff compares syntax trees instead of lines. It maps the nodes of the
before and after trees, derives a minimal edit script of inserts, deletes,
updates and moves, and reports the roots of every changed region.

Commands:
  diff      Compare two files
  project   Compare two directory trees file by file
  commits   Compare the files changed between two git revisions
  mcp       Serve the diff tools over the Model Context Protocol
  version   Show version information`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default is ./.astdiff.yaml or $HOME/.astdiff.yaml)")
	rootCmd.PersistentFlags().StringVarP(&flags.format, "format", "f", string(report.FormatText), "output format (text, json, yaml, html)")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&flags.noColor, "no-color", false, "disable colored text output")

	rootCmd.AddCommand(newDiffCommand(flags))
	rootCmd.AddCommand(newProjectCommand(flags))
	rootCmd.AddCommand(newCommitsCommand(flags))
	rootCmd.AddCommand(newMCPCommand(flags))
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String("astdiff"))
		},
	}
}
