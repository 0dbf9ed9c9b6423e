package rag

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/codescribe-ai/codescribe/pkg/interfaces"
)

// Loader reads source trees and turns their files into chunked documents
type Loader struct {
	chunkSize    int
	chunkOverlap int
}

// LoaderOption configures a Loader
type LoaderOption func(*Loader)

// WithChunkSize sets the maximum chunk size in characters
func WithChunkSize(size int) LoaderOption {
	return func(l *Loader) {
		l.chunkSize = size
	}
}

// WithChunkOverlap sets the overlap between adjacent chunks
func WithChunkOverlap(overlap int) LoaderOption {
	return func(l *Loader) {
		l.chunkOverlap = overlap
	}
}

// NewLoader creates a loader with the default chunking parameters
func NewLoader(options ...LoaderOption) *Loader {
	loader := &Loader{
		chunkSize:    1000,
		chunkOverlap: 100,
	}

	for _, option := range options {
		option(loader)
	}

	return loader
}

// LoadFile splits a single file into documents. The returned chunk IDs are
// derived from the relative path so re-indexing is stable. Empty files
// produce no documents.
func (l *Loader) LoadFile(path, relPath string) ([]interfaces.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", relPath, err)
	}

	return l.Split(string(data), relPath)
}

// Split chunks content for the given relative source path
func (l *Loader) Split(content, relPath string) ([]interfaces.Document, error) {
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	fileType := FileType(relPath)
	splitter := NewSplitter(fileType, l.chunkSize, l.chunkOverlap)

	chunks, err := splitter.SplitText(content)
	if err != nil {
		return nil, fmt.Errorf("failed to split %s: %w", relPath, err)
	}

	docs := make([]interfaces.Document, 0, len(chunks))
	for i, chunk := range chunks {
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		docs = append(docs, interfaces.Document{
			ID:      fmt.Sprintf("%s#%d", filepath.ToSlash(relPath), i),
			Content: chunk,
			Metadata: map[string]interface{}{
				"source":    filepath.ToSlash(relPath),
				"filename":  filepath.Base(relPath),
				"file_type": fileType,
				"chunk":     i + 1,
			},
		})
	}

	return docs, nil
}

// LoadDirectory walks root and loads every supported file beneath it.
// Hidden directories and the usual dependency directories are skipped.
func (l *Loader) LoadDirectory(root string) ([]interfaces.Document, error) {
	var docs []interfaces.Document

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		name := d.Name()
		if d.IsDir() {
			if path != root && (strings.HasPrefix(name, ".") || skipDir(name)) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || !SupportedFile(path) {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		fileDocs, err := l.LoadFile(path, relPath)
		if err != nil {
			return err
		}
		docs = append(docs, fileDocs...)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	return docs, nil
}

func skipDir(name string) bool {
	switch name {
	case "node_modules", "vendor", "venv", "__pycache__", "target", "dist", "build":
		return true
	}
	return false
}
