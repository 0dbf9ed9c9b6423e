package rag

import (
	"path/filepath"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

var (
	defaultSeparators = []string{"\n\n", "\n", " ", ""}

	pythonSeparators = []string{"\nclass ", "\ndef ", "\n\t", "\n\n", "\n", " ", ""}

	cStyleSeparators = []string{
		"\nfunction ", "\nclass ", "\ninterface ",
		"\npublic ", "\nprivate ", "\nprotected ",
		"\nfunc", "\ntype",
		"\n\n", "\n", " ", "",
	}

	markdownSeparators = []string{
		"\n# ", "\n## ", "\n### ", "\n#### ", "\n##### ", "\n###### ",
		"\n\n", "\n", " ", "",
	}
)

// fileTypes maps source file extensions to a splitter-friendly type name
var fileTypes = map[string]string{
	".py":   "python",
	".rb":   "ruby",
	".java": "java",
	".cs":   "csharp",
	".rs":   "rust",
	".ts":   "typescript",
	".js":   "javascript",
	".go":   "go",
	".md":   "markdown",
}

// FileType returns the type name for a path, or "" if the extension is not
// a supported source or documentation format.
func FileType(path string) string {
	return fileTypes[strings.ToLower(filepath.Ext(path))]
}

// SupportedFile reports whether path is a file the loader should ingest
func SupportedFile(path string) bool {
	return FileType(path) != ""
}

// NewSplitter returns a recursive character splitter tuned for the given
// file type. Code files split preferentially on definition boundaries so a
// chunk tends to hold whole functions.
func NewSplitter(fileType string, chunkSize, chunkOverlap int) textsplitter.TextSplitter {
	separators := defaultSeparators
	switch fileType {
	case "markdown":
		separators = markdownSeparators
	case "python", "ruby":
		separators = pythonSeparators
	case "java", "csharp", "rust", "typescript", "javascript", "go":
		separators = cStyleSeparators
	}

	return textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
		textsplitter.WithSeparators(separators),
	)
}
