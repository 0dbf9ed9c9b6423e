package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	codeDocsDir          string
	codeExamplesDir      string
	codeProblemStatement string
	codeOutputDir        string
)

var codeCmd = &cobra.Command{
	Use:   "code",
	Short: "Generate a program from documentation and a problem statement",
	Long: `Code indexes the documentation directory (and optional examples
directory) into the vector store, then runs a retrieval-augmented
generation loop that executes each candidate in the sandbox and refines
it until it passes or the refinement budget runs out. The final program
is written to generated_code.py in the output directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireDir("docs-dir", codeDocsDir); err != nil {
			return err
		}
		if codeExamplesDir != "" {
			if err := requireDir("examples-dir", codeExamplesDir); err != nil {
				return err
			}
		}
		if codeProblemStatement == "" {
			return fmt.Errorf("--problem-statement is required")
		}

		app, err := buildApp()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		defer app.shutdown(ctx)

		return app.runCodeGeneration(ctx, codeDocsDir, codeExamplesDir, codeProblemStatement, codeOutputDir)
	},
}

func init() {
	codeCmd.Flags().StringVar(&codeDocsDir, "docs-dir", "", "directory containing the documentation to retrieve from")
	codeCmd.Flags().StringVar(&codeExamplesDir, "examples-dir", "", "optional directory of example programs to index as well")
	codeCmd.Flags().StringVar(&codeProblemStatement, "problem-statement", "", "description of the program to generate")
	codeCmd.Flags().StringVar(&codeOutputDir, "output-dir", "generated_code", "directory to write the generated program to")
	_ = codeCmd.MarkFlagRequired("docs-dir")
	_ = codeCmd.MarkFlagRequired("problem-statement")
	rootCmd.AddCommand(codeCmd)
}
