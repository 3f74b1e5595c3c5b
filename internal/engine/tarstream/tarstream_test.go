package tarstream_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toastbuild/toast/internal/engine/pathcollector"
	"github.com/toastbuild/toast/internal/engine/tarstream"
)

func TestBuildFromEntries_RoundTripsFilesDirsAndSymlinks(t *testing.T) {
	entries, err := pathcollector.Collect(t.TempDir(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, entries) // sanity: empty root, empty includes

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "main.go"), []byte("package main"), 0o644))
	require.NoError(t, os.Symlink("main.go", filepath.Join(root, "src", "link.go")))

	collected, err := pathcollector.Collect(root, []string{"src"}, nil)
	require.NoError(t, err)
	require.NotEmpty(t, collected)

	var buf bytes.Buffer
	require.NoError(t, tarstream.BuildFromEntries(&buf, collected))

	dest := t.TempDir()
	require.NoError(t, tarstream.Extract(&buf, dest))

	data, err := os.ReadFile(filepath.Join(dest, "src", "main.go"))
	require.NoError(t, err)
	assert.Equal(t, "package main", string(data))

	target, err := os.Readlink(filepath.Join(dest, "src", "link.go"))
	require.NoError(t, err)
	assert.Equal(t, "main.go", target)

	info, err := os.Stat(filepath.Join(dest, "src"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestBuildFromEntries_PreservesContentBytesExactly(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.out"), []byte("hello world"), 0o644))
	collected, err := pathcollector.Collect(root, []string{"a.out"}, nil)
	require.NoError(t, err)
	require.Len(t, collected, 1)

	var buf bytes.Buffer
	require.NoError(t, tarstream.BuildFromEntries(&buf, collected))

	dest := t.TempDir()
	require.NoError(t, tarstream.Extract(&buf, dest))

	data, err := os.ReadFile(filepath.Join(dest, "a.out"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
}

func TestAtomicMove_SameFilesystemRenamesFile(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "src", "a.out")
	dst := filepath.Join(base, "dst", "a.out")
	require.NoError(t, os.MkdirAll(filepath.Dir(src), 0o755))
	require.NoError(t, os.WriteFile(src, []byte("result"), 0o644))

	require.NoError(t, tarstream.AtomicMove(src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "result", string(data))
	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err))
}

func TestAtomicMove_DirectoryTreeMovesRecursively(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "src")
	dst := filepath.Join(base, "dst")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "nested", "f.txt"), []byte("x"), 0o644))

	require.NoError(t, tarstream.AtomicMove(src, dst))

	data, err := os.ReadFile(filepath.Join(dst, "nested", "f.txt"))
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}
