package symbols

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Index holds the symbols of a source tree, keyed for fast lookup by name.
// It is safe for concurrent reads after Build.
type Index struct {
	mu      sync.RWMutex
	byName  map[string][]Symbol
	byFile  map[string][]Symbol
	sources map[string][]string
	parser  *Parser
}

// NewIndex creates an empty symbol index
func NewIndex() *Index {
	return &Index{
		byName:  make(map[string][]Symbol),
		byFile:  make(map[string][]Symbol),
		sources: make(map[string][]string),
		parser:  NewParser(),
	}
}

// Build walks root and indexes every Python file beneath it
func (idx *Index) Build(ctx context.Context, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || name == "__pycache__" || name == "venv") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".py" {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", relPath, err)
		}

		return idx.AddFile(ctx, filepath.ToSlash(relPath), content)
	})
}

// AddFile parses content and replaces the index entries for relPath
func (idx *Index) AddFile(ctx context.Context, relPath string, content []byte) error {
	symbols, err := idx.parser.Parse(ctx, relPath, content)
	if err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, old := range idx.byFile[relPath] {
		idx.removeByNameLocked(old)
	}

	idx.byFile[relPath] = symbols
	idx.sources[relPath] = strings.Split(string(content), "\n")
	for _, sym := range symbols {
		idx.byName[sym.Name] = append(idx.byName[sym.Name], sym)
	}

	return nil
}

// Source returns the text spanning the given 1-based inclusive line range
// of an indexed file.
func (idx *Index) Source(relPath string, startLine, endLine int) (string, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	lines, ok := idx.sources[relPath]
	if !ok || startLine < 1 || startLine > len(lines) {
		return "", false
	}
	if endLine > len(lines) {
		endLine = len(lines)
	}

	return strings.Join(lines[startLine-1:endLine], "\n"), true
}

func (idx *Index) removeByNameLocked(sym Symbol) {
	entries := idx.byName[sym.Name]
	kept := entries[:0]
	for _, entry := range entries {
		if entry.File != sym.File || entry.StartLine != sym.StartLine {
			kept = append(kept, entry)
		}
	}
	if len(kept) == 0 {
		delete(idx.byName, sym.Name)
	} else {
		idx.byName[sym.Name] = kept
	}
}

// Lookup returns all definitions with the given name, ordered by file then line
func (idx *Index) Lookup(name string) []Symbol {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	entries := append([]Symbol(nil), idx.byName[name]...)
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].File != entries[j].File {
			return entries[i].File < entries[j].File
		}
		return entries[i].StartLine < entries[j].StartLine
	})

	return entries
}

// LookupAt returns the definition of name nearest to the given position.
// When the position falls inside a definition with that name it wins;
// otherwise definitions in the same file are preferred over other files.
func (idx *Index) LookupAt(name, file string, line int) (Symbol, bool) {
	entries := idx.Lookup(name)
	if len(entries) == 0 {
		return Symbol{}, false
	}

	for _, entry := range entries {
		if entry.File == file && line >= entry.StartLine && line <= entry.EndLine {
			return entry, true
		}
	}
	for _, entry := range entries {
		if entry.File == file {
			return entry, true
		}
	}

	return entries[0], true
}

// Symbols returns all indexed symbols for a file
func (idx *Index) Symbols(relPath string) []Symbol {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return append([]Symbol(nil), idx.byFile[relPath]...)
}

// Files returns the indexed file paths in sorted order
func (idx *Index) Files() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	files := make([]string, 0, len(idx.byFile))
	for file := range idx.byFile {
		files = append(files, file)
	}
	sort.Strings(files)

	return files
}
