package cache_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dchecker/datachecker/internal/cache"
)

func TestFetchOrInsertCachesFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	c := cache.New()
	s1, err := c.FetchOrInsert(path)
	require.NoError(t, err)
	assert.Equal(t, cache.KindFile, s1.Kind)
	assert.Equal(t, int64(5), s1.Size)

	s2, err := c.FetchOrInsert(path)
	require.NoError(t, err)
	assert.Equal(t, s1, s2)
	assert.Equal(t, 1, c.Len())
}

func TestFetchOrInsertIdempotentStatCount(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	var calls int
	c := cache.NewWithStat(func(p string) (os.FileInfo, error) {
		calls++
		return os.Lstat(p)
	})

	_, err := c.FetchOrInsert(path)
	require.NoError(t, err)
	_, err = c.FetchOrInsert(path)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, c.StatCalls())
}

func TestFetchOrInsertDirectory(t *testing.T) {
	dir := t.TempDir()
	c := cache.New()
	s, err := c.FetchOrInsert(dir)
	require.NoError(t, err)
	assert.Equal(t, cache.KindDir, s.Kind)
}

func TestIterFilesAndDirsFilterByKind(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(filePath, []byte("x"), 0o644))
	subdir := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(subdir, 0o755))

	c := cache.New()
	_, err := c.FetchOrInsert(filePath)
	require.NoError(t, err)
	_, err = c.FetchOrInsert(subdir)
	require.NoError(t, err)

	var files, dirs []string
	c.IterFiles(func(p string, _ cache.Stat) { files = append(files, p) })
	c.IterDirs(func(p string, _ cache.Stat) { dirs = append(dirs, p) })

	assert.Equal(t, []string{filePath}, files)
	assert.Equal(t, []string{subdir}, dirs)
}

func TestFetchOrInsertMissing(t *testing.T) {
	c := cache.New()
	_, err := c.FetchOrInsert("/nonexistent/path/for/datachecker/test")
	assert.Error(t, err)
}
