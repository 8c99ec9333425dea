package language

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeAliasFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestNormalizer_LoadAndNormalize(t *testing.T) {
	dir := t.TempDir()
	writeAliasFile(t, dir, "go.yaml", `
canonical: "go"
aliases:
  - "golang"
  - "Go"
`)
	writeAliasFile(t, dir, "typescript.yaml", `
canonical: "typescript"
aliases:
  - "ts"
  - "tsx"
`)

	n, err := NewNormalizer(dir)
	require.NoError(t, err)

	assert.Equal(t, "go", n.Normalize("golang"))
	assert.Equal(t, "go", n.Normalize("GOLANG"))
	assert.Equal(t, "go", n.Normalize("go"))
	assert.Equal(t, "typescript", n.Normalize("tsx"))

	// Unconfigured languages pass through lowercased.
	assert.Equal(t, "rust", n.Normalize("Rust"))
}

func TestNormalizer_EmptyMapsToUnknown(t *testing.T) {
	n, err := NewNormalizer(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, Unknown, n.Normalize(""))
	assert.Equal(t, Unknown, n.Normalize("   "))
}

func TestNormalizer_MissingDirIsValid(t *testing.T) {
	n, err := NewNormalizer(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Equal(t, 0, n.Count())
	assert.Equal(t, "go", n.Normalize("go"))
}

func TestNormalizer_ConflictingAliasFails(t *testing.T) {
	dir := t.TempDir()
	writeAliasFile(t, dir, "a.yaml", `
canonical: "go"
aliases: ["g"]
`)
	writeAliasFile(t, dir, "b.yaml", `
canonical: "groovy"
aliases: ["g"]
`)

	_, err := NewNormalizer(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maps to both")
}

func TestNormalizer_MalformedFileFails(t *testing.T) {
	dir := t.TempDir()
	writeAliasFile(t, dir, "bad.yaml", "canonical: [not: valid")

	_, err := NewNormalizer(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing alias file")
}

func TestNormalizer_SkipsNonYAMLAndEmptyFiles(t *testing.T) {
	dir := t.TempDir()
	writeAliasFile(t, dir, "readme.txt", "not yaml")
	writeAliasFile(t, dir, "empty.yaml", "# just a comment\n")
	writeAliasFile(t, dir, "go.yaml", `
canonical: "go"
aliases: ["golang"]
`)

	n, err := NewNormalizer(dir)
	require.NoError(t, err)
	assert.Equal(t, "go", n.Normalize("golang"))
}
