// Package archive packs and unpacks the upload formats the service
// accepts: zip, tar, tar.gz, tgz and bare gz.
package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Supported reports whether filename has an accepted archive extension
func Supported(filename string) bool {
	name := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(name, ".zip"),
		strings.HasSuffix(name, ".tar"),
		strings.HasSuffix(name, ".tar.gz"),
		strings.HasSuffix(name, ".tgz"),
		strings.HasSuffix(name, ".gz"):
		return true
	}
	return false
}

// Unpack extracts the archive at path into destDir. Entries that would
// escape destDir are rejected.
func Unpack(path, destDir string) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("failed to create extraction directory: %w", err)
	}

	name := strings.ToLower(path)
	switch {
	case strings.HasSuffix(name, ".zip"):
		return unpackZip(path, destDir)
	case strings.HasSuffix(name, ".tar"):
		return unpackTar(path, destDir, false)
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return unpackTar(path, destDir, true)
	case strings.HasSuffix(name, ".gz"):
		return unpackGzip(path, destDir)
	}
	return fmt.Errorf("unsupported archive format: %s", filepath.Base(path))
}

// PackZip zips the contents of srcDir into a zip file at zipPath. Paths
// inside the archive are relative to srcDir.
func PackZip(srcDir, zipPath string) error {
	out, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	defer out.Close()

	writer := zip.NewWriter(out)

	err = filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}

		entry, err := writer.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}

		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()

		_, err = io.Copy(entry, file)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to pack %s: %w", srcDir, err)
	}

	return writer.Close()
}

// safeJoin resolves name under destDir and rejects traversal outside it.
func safeJoin(destDir, name string) (string, error) {
	target := filepath.Join(destDir, filepath.FromSlash(name))
	if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry %q escapes extraction directory", name)
	}
	return target, nil
}

func unpackZip(path, destDir string) error {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("failed to open zip: %w", err)
	}
	defer reader.Close()

	for _, entry := range reader.File {
		target, err := safeJoin(destDir, entry.Name)
		if err != nil {
			return err
		}

		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}

		if err := writeEntry(target, func() (io.ReadCloser, error) { return entry.Open() }); err != nil {
			return err
		}
	}

	return nil
}

func unpackTar(path, destDir string, compressed bool) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open tar: %w", err)
	}
	defer file.Close()

	var source io.Reader = file
	if compressed {
		gz, err := gzip.NewReader(file)
		if err != nil {
			return fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer gz.Close()
		source = gz
	}

	reader := tar.NewReader(source)
	for {
		header, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read tar entry: %w", err)
		}

		target, err := safeJoin(destDir, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			out, err := os.Create(target)
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, reader); err != nil {
				out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return err
			}
		}
	}
}

// unpackGzip handles a bare gzipped file: the decompressed content keeps
// the upload's name without the .gz suffix.
func unpackGzip(path, destDir string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open gzip file: %w", err)
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("failed to open gzip stream: %w", err)
	}
	defer gz.Close()

	name := strings.TrimSuffix(filepath.Base(path), ".gz")
	target, err := safeJoin(destDir, name)
	if err != nil {
		return err
	}

	out, err := os.Create(target)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, gz)
	return err
}

func writeEntry(target string, open func() (io.ReadCloser, error)) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	source, err := open()
	if err != nil {
		return err
	}
	defer source.Close()

	out, err := os.Create(target)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, source)
	return err
}
