package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()

	out, err := os.Create(path)
	require.NoError(t, err)
	defer out.Close()

	writer := zip.NewWriter(out)
	for name, content := range entries {
		entry, err := writer.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
}

func writeTarGz(t *testing.T, path string, entries map[string]string) {
	t.Helper()

	out, err := os.Create(path)
	require.NoError(t, err)
	defer out.Close()

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)
	for name, content := range entries {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Typeflag: tar.TypeReg,
			Mode:     0o644,
			Size:     int64(len(content)),
		}))
		_, err = tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("project.zip"))
	assert.True(t, Supported("project.tar"))
	assert.True(t, Supported("project.tar.gz"))
	assert.True(t, Supported("project.TGZ"))
	assert.True(t, Supported("single.py.gz"))
	assert.False(t, Supported("project.rar"))
	assert.False(t, Supported("main.py"))
}

func TestUnpackZip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "src.zip")
	writeZip(t, path, map[string]string{
		"main.py":       "print('hi')",
		"pkg/helper.py": "def help(): pass",
	})

	dest := filepath.Join(dir, "out")
	require.NoError(t, Unpack(path, dest))

	content, err := os.ReadFile(filepath.Join(dest, "pkg", "helper.py"))
	require.NoError(t, err)
	assert.Equal(t, "def help(): pass", string(content))
}

func TestUnpackTarGz(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "src.tar.gz")
	writeTarGz(t, path, map[string]string{"a/b.py": "x = 1"})

	dest := filepath.Join(dir, "out")
	require.NoError(t, Unpack(path, dest))

	content, err := os.ReadFile(filepath.Join(dest, "a", "b.py"))
	require.NoError(t, err)
	assert.Equal(t, "x = 1", string(content))
}

func TestUnpackBareGzip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.py.gz")

	out, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(out)
	_, err = gz.Write([]byte("print('solo')"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, out.Close())

	dest := filepath.Join(dir, "out")
	require.NoError(t, Unpack(path, dest))

	content, err := os.ReadFile(filepath.Join(dest, "main.py"))
	require.NoError(t, err)
	assert.Equal(t, "print('solo')", string(content))
}

func TestUnpackRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "evil.tar.gz")
	writeTarGz(t, path, map[string]string{"../escape.py": "pwned"})

	err := Unpack(path, filepath.Join(dir, "out"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes extraction directory")
}

func TestUnpackRejectsUnknownFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "src.rar")
	require.NoError(t, os.WriteFile(path, []byte("junk"), 0o644))

	err := Unpack(path, filepath.Join(dir, "out"))
	require.Error(t, err)
}

func TestPackZipRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "top.md"), []byte("# docs"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "nested", "deep.md"), []byte("deep"), 0o644))

	zipPath := filepath.Join(dir, "out.zip")
	require.NoError(t, PackZip(src, zipPath))

	dest := filepath.Join(dir, "unpacked")
	require.NoError(t, Unpack(zipPath, dest))

	content, err := os.ReadFile(filepath.Join(dest, "nested", "deep.md"))
	require.NoError(t, err)
	assert.Equal(t, "deep", string(content))
}
