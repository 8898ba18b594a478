package checks_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dchecker/datachecker/internal/cache"
	"github.com/dchecker/datachecker/internal/checks"
	"github.com/dchecker/datachecker/internal/tempdata"
)

func TestIsEmpty(t *testing.T) {
	assert.True(t, checks.IsEmpty(checks.Entry{Stat: cache.Stat{Kind: cache.KindFile, Size: 0}}))
	assert.False(t, checks.IsEmpty(checks.Entry{Stat: cache.Stat{Kind: cache.KindFile, Size: 1}}))
	assert.False(t, checks.IsEmpty(checks.Entry{Stat: cache.Stat{Kind: cache.KindDir, Size: 0}}))
}

func TestIsLargeFile(t *testing.T) {
	th := checks.Thresholds{LargeFileSize: 1000}
	assert.True(t, checks.IsLargeFile(checks.Entry{Stat: cache.Stat{Kind: cache.KindFile, Size: 1001}}, th))
	assert.False(t, checks.IsLargeFile(checks.Entry{Stat: cache.Stat{Kind: cache.KindFile, Size: 999}}, th))
	assert.False(t, checks.IsLargeFile(checks.Entry{Stat: cache.Stat{Kind: cache.KindFile, Size: 5000}}, checks.Thresholds{}))
}

func TestIsStaleAccess(t *testing.T) {
	now := time.Now().UnixNano()
	th := checks.Thresholds{LastAccessTimeNs: int64(time.Hour)}
	stale := checks.Entry{Stat: cache.Stat{Kind: cache.KindFile, AccTimeNs: now - int64(2*time.Hour)}}
	fresh := checks.Entry{Stat: cache.Stat{Kind: cache.KindFile, AccTimeNs: now - int64(time.Minute)}}
	assert.True(t, checks.IsStaleAccess(stale, th, now))
	assert.False(t, checks.IsStaleAccess(fresh, th, now))
}

func TestHasWrongDates(t *testing.T) {
	now := time.Now().UnixNano()
	future := checks.Entry{Stat: cache.Stat{ModTimeNs: now + int64(time.Hour)}}
	normal := checks.Entry{Stat: cache.Stat{ModTimeNs: now - int64(time.Hour)}}
	assert.True(t, checks.HasWrongDates(future, now))
	assert.False(t, checks.HasWrongDates(normal, now))
}

func TestNameTooLong(t *testing.T) {
	th := checks.Thresholds{MaxDirFileNameSize: 5}
	short := checks.Entry{AbsPath: "/a/hi.md"}
	long := checks.Entry{AbsPath: "/a/much_too_long_name.txt"}
	assert.False(t, checks.NameTooLong(short, th))
	assert.True(t, checks.NameTooLong(long, th))
}

func TestPathTooLong(t *testing.T) {
	th := checks.Thresholds{MaxFullPathSize: 10}
	assert.True(t, checks.PathTooLong(checks.Entry{AbsPath: "/very/long/path/indeed.txt"}, th))
	assert.False(t, checks.PathTooLong(checks.Entry{AbsPath: "/ok.txt"}, th))
}

func TestHasUnportableChars(t *testing.T) {
	assert.True(t, checks.HasUnportableChars(checks.Entry{AbsPath: "/a/weird:name.txt"}))
	assert.True(t, checks.HasUnportableChars(checks.Entry{AbsPath: "/a/quest?ion.txt"}))
	assert.False(t, checks.HasUnportableChars(checks.Entry{AbsPath: "/a/normal-name.txt"}))
}

func TestHasDuplicateRunChars(t *testing.T) {
	th := checks.Thresholds{DuplicateRunLength: 4}
	assert.True(t, checks.HasDuplicateRunChars(checks.Entry{AbsPath: "/a/aaaa.txt"}, th))
	assert.False(t, checks.HasDuplicateRunChars(checks.Entry{AbsPath: "/a/aaa.txt"}, th))
	assert.False(t, checks.HasDuplicateRunChars(checks.Entry{AbsPath: "/a/aaaa.txt"}, checks.Thresholds{}))
}

func TestHasDuplicateExtension(t *testing.T) {
	assert.True(t, checks.HasDuplicateExtension(checks.Entry{AbsPath: "/a/x.tar.tar"}))
	assert.False(t, checks.HasDuplicateExtension(checks.Entry{AbsPath: "/a/x.tar.gz"}))
}

func TestIsLegacyAndTemporary(t *testing.T) {
	e := checks.Entry{AbsPath: "/a/clip.mov", RelPath: "clip.mov"}
	assert.True(t, checks.IsLegacyExtension(e, tempdata.DefaultLegacyTable))

	tmp := checks.Entry{AbsPath: "/a/Thumbs.db", RelPath: "Thumbs.db"}
	assert.True(t, checks.IsTemporary(tmp, tempdata.DefaultTemporaryTable))
}

func TestIsCompressed(t *testing.T) {
	e := checks.Entry{AbsPath: "/a/archive.zip", RelPath: "archive.zip"}
	assert.True(t, checks.IsCompressed(e, tempdata.DefaultCompressedTable))

	notCompressed := checks.Entry{AbsPath: "/a/notes.txt", RelPath: "notes.txt"}
	assert.False(t, checks.IsCompressed(notCompressed, tempdata.DefaultCompressedTable))
}

func TestCountDirItems(t *testing.T) {
	dir := t.TempDir()
	th := checks.Thresholds{MaxItemsDirectory: 2}

	dc, err := checks.CountDirItems(dir, th)
	require.NoError(t, err)
	assert.True(t, dc.Empty)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), nil, 0o644))
	dc, err = checks.CountDirItems(dir, th)
	require.NoError(t, err)
	assert.True(t, dc.OneItem)

	for _, name := range []string{"b", "c"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	dc, err = checks.CountDirItems(dir, th)
	require.NoError(t, err)
	assert.True(t, dc.TooMany)
	assert.Equal(t, 3, dc.NumItems)
}

func TestCountDirItemsMissingDirIsError(t *testing.T) {
	_, err := checks.CountDirItems("/nonexistent/dir", checks.Thresholds{})
	assert.Error(t, err)
}

func TestCheckJSONValidAndInvalid(t *testing.T) {
	dir := t.TempDir()
	valid := filepath.Join(dir, "good.json")
	require.NoError(t, os.WriteFile(valid, []byte(`{"a":1}`), 0o644))
	res, err := checks.CheckJSON(checks.Entry{AbsPath: valid})
	require.NoError(t, err)
	assert.Equal(t, checks.JSONValid, res)

	invalid := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(invalid, []byte(`{not json`), 0o644))
	res, err = checks.CheckJSON(checks.Entry{AbsPath: invalid})
	require.NoError(t, err)
	assert.Equal(t, checks.JSONInvalid, res)
}

func TestCheckJSONNotApplicableForOtherExtensions(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("hello"), 0o644))
	res, err := checks.CheckJSON(checks.Entry{AbsPath: txt})
	require.NoError(t, err)
	assert.Equal(t, checks.JSONNotApplicable, res)
}
