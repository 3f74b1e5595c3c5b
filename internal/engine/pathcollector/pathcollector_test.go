package pathcollector_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toastbuild/toast/internal/engine/pathcollector"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCollect_FileContentAndRelPath(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "main.go"), "package main")

	entries, err := pathcollector.Collect(root, []string{"src"}, nil)
	require.NoError(t, err)
	require.Len(t, entries, 2) // dir "src" + file "src/main.go"

	var file *pathcollector.Entry
	for i := range entries {
		if entries[i].Kind == pathcollector.KindFile {
			file = &entries[i]
		}
	}
	require.NotNil(t, file)
	assert.Equal(t, "src/main.go", file.RelPath.String())
	assert.Equal(t, []byte("package main"), file.Content)
}

func TestCollect_ExcludedPathOmitted(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "main.go"), "package main")
	writeFile(t, filepath.Join(root, "src", "main_test.go"), "package main_test")

	entries, err := pathcollector.Collect(root, []string{"src"}, []string{"src/main_test.go"})
	require.NoError(t, err)

	for _, e := range entries {
		assert.NotEqual(t, "src/main_test.go", e.RelPath.String())
	}
}

func TestCollect_ExcludedDirectoryPrunesSubtree(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "vendor", "pkg.go"), "package pkg")
	writeFile(t, filepath.Join(root, "src", "main.go"), "package main")

	entries, err := pathcollector.Collect(root, []string{"src"}, []string{"src/vendor"})
	require.NoError(t, err)

	for _, e := range entries {
		assert.NotContains(t, e.RelPath.String(), "vendor")
	}
}

func TestCollect_DeterministicOrdering(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.txt"), "b")
	writeFile(t, filepath.Join(root, "a.txt"), "a")

	first, err := pathcollector.Collect(root, []string{"a.txt", "b.txt"}, nil)
	require.NoError(t, err)
	second, err := pathcollector.Collect(root, []string{"b.txt", "a.txt"}, nil)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].RelPath.String(), second[i].RelPath.String())
	}
	assert.Equal(t, "a.txt", first[0].RelPath.String())
	assert.Equal(t, "b.txt", first[1].RelPath.String())
}

func TestCollect_DanglingSymlinkRecordedNotErrored(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Symlink(filepath.Join(root, "missing"), filepath.Join(root, "link")))

	entries, err := pathcollector.Collect(root, []string{"link"}, nil)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, pathcollector.KindSymlink, entries[0].Kind)
}

func TestCollect_MissingIncludeIsEmpty(t *testing.T) {
	root := t.TempDir()
	entries, err := pathcollector.Collect(root, []string{"nope"}, nil)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
