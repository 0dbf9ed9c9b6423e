package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "codescribe",
	Short: "Generate documentation for codebases and code from documentation",
	Long: `codescribe documents codebases with an LLM and generates programs from
documented projects. Uploaded or local source trees are chunked, embedded
and indexed so the agents can ground their output in the project's own
documentation.`,
	SilenceUsage: true,
}

// Execute runs the root command. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (YAML; environment variables override it)")
}
