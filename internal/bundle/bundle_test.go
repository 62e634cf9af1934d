package bundle

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/pdf2txt/internal/model"
)

// makeBundle creates an offline_packages tree under dir with the given
// archive names in wheels/.
func makeBundle(t *testing.T, dir string, archives ...string) string {
	t.Helper()

	root := filepath.Join(dir, bundleDirName)
	wheels := filepath.Join(root, wheelDirName)
	require.NoError(t, os.MkdirAll(wheels, 0o755))

	for _, name := range archives {
		require.NoError(t, os.WriteFile(filepath.Join(wheels, name), []byte("x"), 0o644))
	}
	return root
}

// TestResolve_LayoutA verifies discovery when the bundle sits next to the
// binary.
func TestResolve_LayoutA(t *testing.T) {
	dir := t.TempDir()
	root := makeBundle(t, dir, "numpy-1.whl", "pymupdf-1.whl")

	b, err := Resolve(dir)
	require.NoError(t, err)

	assert.Equal(t, root, b.Root)
	assert.Equal(t, filepath.Join(root, wheelDirName), b.WheelDir)
	assert.Equal(t, dir, b.ProjectRoot)
	assert.Equal(t, 2, b.ArchiveCount)
	assert.False(t, b.HasManifest())
}

// TestResolve_LayoutB verifies discovery when the binary lives in a
// scripts/ directory one level below the bundle.
func TestResolve_LayoutB(t *testing.T) {
	dir := t.TempDir()
	root := makeBundle(t, dir, "numpy-1.whl")

	scripts := filepath.Join(dir, scriptsDirName)
	require.NoError(t, os.MkdirAll(scripts, 0o755))

	b, err := Resolve(scripts)
	require.NoError(t, err)

	assert.Equal(t, root, b.Root)
	assert.Equal(t, dir, b.ProjectRoot)
}

// TestResolve_PrefersLayoutA checks that a bundle inside scripts/ wins
// over one in the parent when both exist.
func TestResolve_PrefersLayoutA(t *testing.T) {
	dir := t.TempDir()
	makeBundle(t, dir, "outer.whl")

	scripts := filepath.Join(dir, scriptsDirName)
	innerRoot := makeBundle(t, scripts, "inner.whl")

	b, err := Resolve(scripts)
	require.NoError(t, err)
	assert.Equal(t, innerRoot, b.Root)
}

// TestResolve_Manifest verifies that an existing requirements.txt is
// recorded on the resolved bundle.
func TestResolve_Manifest(t *testing.T) {
	dir := t.TempDir()
	root := makeBundle(t, dir, "numpy-1.whl")
	require.NoError(t, os.WriteFile(filepath.Join(root, manifestName), []byte("numpy==1.0\n"), 0o644))

	b, err := Resolve(dir)
	require.NoError(t, err)
	assert.True(t, b.HasManifest())
	assert.Equal(t, filepath.Join(root, manifestName), b.ManifestPath)
}

// TestResolve_NotFound verifies the fatal error when no layout matches.
func TestResolve_NotFound(t *testing.T) {
	_, err := Resolve(t.TempDir())
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitBundleNotFound, cliErr.Code)
}

// TestCountArchives verifies archive counting ignores non-archives and
// subdirectories.
func TestCountArchives(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.whl"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.tar.gz"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), nil, 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested.whl"), 0o755))

	assert.Equal(t, 2, CountArchives(dir))
	assert.Equal(t, 0, CountArchives(filepath.Join(dir, "missing")))
}

// TestListArchives verifies enumeration for the no-manifest fallback.
func TestListArchives(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.whl"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.tar.gz"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), nil, 0o644))

	names, err := ListArchives(dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.tar.gz", "b.whl"}, names)

	_, err = ListArchives(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

// TestIsArchive verifies suffix matching, including case insensitivity.
func TestIsArchive(t *testing.T) {
	assert.True(t, IsArchive("numpy-1.26.whl"))
	assert.True(t, IsArchive("pkg-0.1.tar.gz"))
	assert.True(t, IsArchive("PKG-0.1.WHL"))
	assert.False(t, IsArchive("archive.zip"))
	assert.False(t, IsArchive("requirements.txt"))
}
