package main

import (
	"github.com/spf13/cobra"
)

var (
	docsCodebaseDir string
	docsOutputDir   string
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Generate Markdown documentation for a codebase",
	Long: `Docs walks the codebase directory, documents every supported source
file with the configured model and writes one docs.md per directory under
the output directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireDir("codebase-dir", docsCodebaseDir); err != nil {
			return err
		}

		app, err := buildApp()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		defer app.shutdown(ctx)

		return app.runDocumentation(ctx, docsCodebaseDir, docsOutputDir)
	},
}

func init() {
	docsCmd.Flags().StringVar(&docsCodebaseDir, "codebase-dir", "", "directory containing the source code to document")
	docsCmd.Flags().StringVar(&docsOutputDir, "output-dir", "generated_docs", "directory to write the documentation to")
	_ = docsCmd.MarkFlagRequired("codebase-dir")
	rootCmd.AddCommand(docsCmd)
}
