package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocal(t *testing.T) (*LocalBackend, string) {
	t.Helper()
	root := t.TempDir()
	b, err := NewLocalBackend(root)
	require.NoError(t, err)
	return b, root
}

func TestLocalListDirsFirstSorted(t *testing.T) {
	b, root := newLocal(t)
	writeLocalFile(t, root, "zebra.txt", "z")
	writeLocalFile(t, root, "apple.txt", "a")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "yard"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "barn"), 0o755))

	result, err := b.List(context.Background(), "/", ListOptions{})
	require.NoError(t, err)
	require.Len(t, result.Items, 4)
	assert.Equal(t, "barn", result.Items[0].Name)
	assert.Equal(t, "yard", result.Items[1].Name)
	assert.Equal(t, "apple.txt", result.Items[2].Name)
	assert.Equal(t, "zebra.txt", result.Items[3].Name)
}

func TestLocalListFilters(t *testing.T) {
	b, root := newLocal(t)
	writeLocalFile(t, root, "photo.png", "p")
	writeLocalFile(t, root, "notes.txt", "n")

	result, err := b.List(context.Background(), "/", ListOptions{FileType: "image"})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "photo.png", result.Items[0].Name)

	result, err = b.List(context.Background(), "/", ListOptions{Search: "NOTE"})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "notes.txt", result.Items[0].Name)
}

func TestLocalListMissingDir(t *testing.T) {
	b, _ := newLocal(t)
	_, err := b.List(context.Background(), "/nowhere", ListOptions{})
	assert.ErrorIs(t, err, ErrPathNotFound)
}

func TestLocalWriteRejectsOverwrite(t *testing.T) {
	b, _ := newLocal(t)
	ctx := context.Background()
	require.NoError(t, b.Write(ctx, "/", "a.txt", strings.NewReader("1"), 1, "text/plain"))
	err := b.Write(ctx, "/", "a.txt", strings.NewReader("2"), 1, "text/plain")
	assert.ErrorIs(t, err, ErrDestinationExists)
}

func TestLocalRootEscapeRejected(t *testing.T) {
	b, _ := newLocal(t)
	_, err := b.Stat(context.Background(), "/../outside")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestLocalRename(t *testing.T) {
	b, root := newLocal(t)
	ctx := context.Background()
	writeLocalFile(t, root, "a.txt", "a")

	assert.ErrorIs(t, b.Rename(ctx, "/missing", "/x"), ErrPathNotFound)

	writeLocalFile(t, root, "b.txt", "b")
	assert.ErrorIs(t, b.Rename(ctx, "/a.txt", "/b.txt"), ErrDestinationExists)

	require.NoError(t, b.Rename(ctx, "/a.txt", "/sub/a2.txt"))
	_, err := os.Stat(filepath.Join(root, "sub", "a2.txt"))
	assert.NoError(t, err)
}

func TestLocalCopyKeepsSource(t *testing.T) {
	b, root := newLocal(t)
	writeLocalFile(t, root, "src/a.txt", "a")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "dst"), 0o755))

	results := b.Copy(context.Background(), []string{"/src"}, "/dst")
	require.Len(t, results, 1)
	assert.Equal(t, OpStatusSuccess, results[0].Status)

	_, err := os.Stat(filepath.Join(root, "src", "a.txt"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, "dst", "src", "a.txt"))
	assert.NoError(t, err)
}

func TestLocalMovePerItemResults(t *testing.T) {
	b, root := newLocal(t)
	writeLocalFile(t, root, "a.txt", "a")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "dst"), 0o755))
	writeLocalFile(t, root, "dst/taken.txt", "t")
	writeLocalFile(t, root, "taken.txt", "t2")

	results := b.Move(context.Background(), []string{"/a.txt", "/missing.txt", "/taken.txt"}, "/dst")
	require.Len(t, results, 3)
	assert.Equal(t, OpStatusSuccess, results[0].Status)
	assert.Equal(t, OpStatusFailure, results[1].Status)
	assert.Equal(t, OpStatusFailure, results[2].Status) // 目标已有同名项

	_, err := os.Stat(filepath.Join(root, "dst", "a.txt"))
	assert.NoError(t, err)
	// 失败项的源文件保持原样
	_, err = os.Stat(filepath.Join(root, "taken.txt"))
	assert.NoError(t, err)
}

func TestLocalDeleteRecursiveAndMissing(t *testing.T) {
	b, root := newLocal(t)
	writeLocalFile(t, root, "dir/deep/a.txt", "a")

	results := b.Delete(context.Background(), []string{"/dir", "/missing"})
	require.Len(t, results, 2)
	assert.Equal(t, OpStatusSuccess, results[0].Status)
	assert.Equal(t, OpStatusFailure, results[1].Status)

	_, err := os.Stat(filepath.Join(root, "dir"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalResolveURL(t *testing.T) {
	b, root := newLocal(t)
	ctx := context.Background()
	writeLocalFile(t, root, "a.txt", "hello")

	resolved, err := b.ResolveURL(ctx, "/a.txt", true)
	require.NoError(t, err)
	assert.Equal(t, URLModeStream, resolved.Mode)
	assert.Equal(t, "a.txt", resolved.FileName)
	assert.Equal(t, "text/plain", resolved.MimeType)

	_, err = b.ResolveURL(ctx, "/missing.txt", false)
	assert.ErrorIs(t, err, ErrPathNotFound)
}

func TestLocalMkDir(t *testing.T) {
	b, root := newLocal(t)
	ctx := context.Background()
	require.NoError(t, b.MkDir(ctx, "/", "docs"))
	info, err := os.Stat(filepath.Join(root, "docs"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	assert.ErrorIs(t, b.MkDir(ctx, "/", "docs"), ErrDestinationExists)
}
