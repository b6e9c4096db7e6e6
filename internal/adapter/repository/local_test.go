package repository

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, path, content string) {
	t.Helper()
	full := filepath.Join(root, path)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestCollector_WalksDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "pkg/stats/mean.go", "package stats\n")
	writeFile(t, root, "scripts/run.py", "import os\n")

	files, err := NewCollector(root).Collect(nil)
	require.NoError(t, err)
	require.Len(t, files, 3)

	// Sorted by path, with language detected.
	assert.Equal(t, "main.go", files[0].Path)
	assert.Equal(t, "go", files[0].Language)
	assert.Equal(t, "pkg/stats/mean.go", files[1].Path)
	assert.Equal(t, "scripts/run.py", files[2].Path)
	assert.Equal(t, "python", files[2].Language)
	assert.NotEmpty(t, files[0].ContentHash)
}

func TestCollector_SkipsVendorAndVCS(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, ".git/config", "[core]\n")
	writeFile(t, root, "vendor/dep/dep.go", "package dep\n")
	writeFile(t, root, "node_modules/lib/index.js", "module.exports = {}\n")

	files, err := NewCollector(root).Collect(nil)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "main.go", files[0].Path)
}

func TestCollector_SkipsBinaryAndOversized(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "logo.png", "\x89PNG")

	big := make([]byte, defaultMaxFileSize+1)
	require.NoError(t, os.WriteFile(filepath.Join(root, "huge.go"), big, 0o644))

	files, err := NewCollector(root).Collect(nil)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "main.go", files[0].Path)
}

func TestCollector_ExplicitPaths(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a\n")
	writeFile(t, root, "b.go", "package b\n")

	files, err := NewCollector(root).Collect([]string{"a.go"})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a.go", files[0].Path)
}

func TestCollector_DeduplicatesOverlappingPaths(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "sub/a.go", "package a\n")

	files, err := NewCollector(root).Collect([]string{"sub", "sub/a.go"})
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestCollector_RejectsTraversal(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a\n")

	_, err := NewCollector(filepath.Join(root, "missing-subdir")).Collect([]string{"../a.go"})
	require.Error(t, err)
}

func TestCollector_MissingPathFails(t *testing.T) {
	root := t.TempDir()
	_, err := NewCollector(root).Collect([]string{"nope.go"})
	require.Error(t, err)
}
