package linkcheck_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stretchr/testify/assert"

	"github.com/dchecker/datachecker/internal/linkcheck"
)

func TestResolveWorkingSymlink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target.txt")
	require.NoError(t, os.WriteFile(target, []byte("hi"), 0o644))

	link := filepath.Join(dir, "link")
	require.NoError(t, os.Symlink(target, link))

	assert.Equal(t, linkcheck.OutcomeResolved, linkcheck.Resolve(link))
}

func TestResolveBrokenSymlink(t *testing.T) {
	dir := t.TempDir()
	link := filepath.Join(dir, "link")
	require.NoError(t, os.Symlink(filepath.Join(dir, "missing.txt"), link))

	assert.Equal(t, linkcheck.OutcomeBroken, linkcheck.Resolve(link))
}

func TestResolveNonexistentPath(t *testing.T) {
	assert.Equal(t, linkcheck.OutcomeBroken, linkcheck.Resolve("/definitely/not/a/real/path"))
}
