package provision

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/pdf2txt/internal/model"
)

// makeBundle sets up a source directory and project root for provisioning.
func makeBundle(t *testing.T) *model.Bundle {
	t.Helper()

	src := t.TempDir()
	project := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(src, "compare.py"), []byte("print()"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(src, "extractors"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "extractors", "base.py"), []byte("pass"), 0o644))

	return &model.Bundle{SourceDir: src, ProjectRoot: project}
}

// TestRun_CopiesFreshDestination verifies files and directories are
// copied when absent from the project root.
func TestRun_CopiesFreshDestination(t *testing.T) {
	b := makeBundle(t)

	res, err := Run(b, []string{"compare.py"}, []string{"extractors"})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"compare.py", "extractors"}, res.Copied)
	assert.Empty(t, res.Skipped)
	assert.Empty(t, res.Missing)

	data, err := os.ReadFile(filepath.Join(b.ProjectRoot, "compare.py"))
	require.NoError(t, err)
	assert.Equal(t, "print()", string(data))

	nested, err := os.ReadFile(filepath.Join(b.ProjectRoot, "extractors", "base.py"))
	require.NoError(t, err)
	assert.Equal(t, "pass", string(nested))
}

// TestRun_NeverOverwrites verifies existing destinations are left alone,
// making a re-run a pure no-op.
func TestRun_NeverOverwrites(t *testing.T) {
	b := makeBundle(t)

	// Pre-existing, operator-edited copy.
	edited := "print('edited')"
	require.NoError(t, os.WriteFile(filepath.Join(b.ProjectRoot, "compare.py"), []byte(edited), 0o644))

	res, err := Run(b, []string{"compare.py"}, []string{"extractors"})
	require.NoError(t, err)

	assert.Equal(t, []string{"compare.py"}, res.Skipped)
	assert.Equal(t, []string{"extractors"}, res.Copied)

	data, err := os.ReadFile(filepath.Join(b.ProjectRoot, "compare.py"))
	require.NoError(t, err)
	assert.Equal(t, edited, string(data))
}

// TestRun_Idempotent verifies a second run skips everything.
func TestRun_Idempotent(t *testing.T) {
	b := makeBundle(t)

	_, err := Run(b, []string{"compare.py"}, []string{"extractors"})
	require.NoError(t, err)

	res, err := Run(b, []string{"compare.py"}, []string{"extractors"})
	require.NoError(t, err)

	assert.Empty(t, res.Copied)
	assert.ElementsMatch(t, []string{"compare.py", "extractors"}, res.Skipped)
}

// TestRun_MissingSourceEntries verifies configured entries absent from
// the bundle are reported, not fatal.
func TestRun_MissingSourceEntries(t *testing.T) {
	b := makeBundle(t)

	res, err := Run(b, []string{"compare.py", "README.md"}, []string{"extractors", "utils"})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"compare.py", "extractors"}, res.Copied)
	assert.ElementsMatch(t, []string{"README.md", "utils"}, res.Missing)
}
