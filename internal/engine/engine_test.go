package engine_test

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dchecker/datachecker/internal/config"
	"github.com/dchecker/datachecker/internal/engine"
	"github.com/dchecker/datachecker/internal/report"
)

func noopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))
}

func TestNewResolvesMaxJobsAndBuildsScanner(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.MaxJobs = 0

	var buf bytes.Buffer
	e, err := engine.New(dir, cfg, report.New(&buf, false), noopLogger())
	require.NoError(t, err)
	assert.NotNil(t, e)
}

func TestNewRejectsInvalidBase64Pattern(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.PatternBase64Bytes = []string{"not-valid-base64!!"}

	var buf bytes.Buffer
	_, err := engine.New(dir, cfg, report.New(&buf, false), noopLogger())
	assert.Error(t, err)
}

func TestRunEmptyFilesCheckFlagsZeroByteFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.txt"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "full.txt"), []byte("hi"), 0o644))

	cfg := config.Default()
	cfg.Checks = config.Checks{EmptyFiles: true}

	var buf bytes.Buffer
	e, err := engine.New(dir, cfg, report.New(&buf, false), noopLogger())
	require.NoError(t, err)

	require.NoError(t, e.Run(context.Background(), ""))

	out := buf.String()
	assert.Contains(t, out, "empty.txt")
	assert.NotContains(t, out, "full.txt flagged")
}

func TestRunDuplicatesFindsIdenticalFiles(t *testing.T) {
	dir := t.TempDir()
	content := []byte("duplicate payload data")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.bin"), content, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.bin"), content, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.bin"), []byte("different"), 0o644))

	cfg := config.Default()
	cfg.Checks = config.Checks{Duplicates: true}
	cfg.DuplicateFilesParallel = false

	var buf bytes.Buffer
	e, err := engine.New(dir, cfg, report.New(&buf, false), noopLogger())
	require.NoError(t, err)

	require.NoError(t, e.Run(context.Background(), ""))

	snap := e.Stats.Snapshot()
	assert.Equal(t, int64(1), snap.DuplicateClusters)
	assert.Equal(t, int64(len(content)), snap.DuplicateWastedByte)
}

func TestRunOnlySingleCheckSkipsOthers(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Thumbs.db"), nil, 0o644))

	cfg := config.Default()
	cfg.Checks = config.Checks{} // everything off; "only" should still run

	var buf bytes.Buffer
	e, err := engine.New(dir, cfg, report.New(&buf, false), noopLogger())
	require.NoError(t, err)

	require.NoError(t, e.Run(context.Background(), "temporary"))

	out := buf.String()
	assert.Contains(t, out, "== temporary ==")
	assert.NotContains(t, out, "== empty_files ==")
}

func TestRunLinksFlagsBrokenSymlink(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Symlink(filepath.Join(dir, "missing"), filepath.Join(dir, "link")))

	cfg := config.Default()
	cfg.Checks = config.Checks{Links: true}

	var buf bytes.Buffer
	e, err := engine.New(dir, cfg, report.New(&buf, false), noopLogger())
	require.NoError(t, err)

	require.NoError(t, e.Run(context.Background(), ""))

	assert.Contains(t, buf.String(), "broken link")
}

func TestRunIntegrityCreatesSidecar(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "data.bin")
	require.NoError(t, os.WriteFile(target, []byte("payload"), 0o644))
	require.NoError(t, os.WriteFile(target+".blake3", nil, 0o644))

	cfg := config.Default()
	cfg.Checks = config.Checks{Integrity: true}
	cfg.IntegrityFilesParallel = false

	var buf bytes.Buffer
	e, err := engine.New(dir, cfg, report.New(&buf, false), noopLogger())
	require.NoError(t, err)

	require.NoError(t, e.Run(context.Background(), ""))

	snap := e.Stats.Snapshot()
	assert.Equal(t, int64(1), snap.IntegrityCreated)

	data, err := os.ReadFile(target + ".blake3")
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestRunMagicNumbersFlagsMismatch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fake.png"), []byte("not a png"), 0o644))

	cfg := config.Default()
	cfg.Checks = config.Checks{MagicNumbers: true}

	var buf bytes.Buffer
	e, err := engine.New(dir, cfg, report.New(&buf, false), noopLogger())
	require.NoError(t, err)

	require.NoError(t, e.Run(context.Background(), ""))

	assert.Contains(t, buf.String(), "magic-mismatch")
}

func TestRunConfidentialFlagsMatch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "secrets.txt"), []byte("api_key=supersecret"), 0o644))

	cfg := config.Default()
	cfg.Checks = config.Checks{Confidential: true}
	cfg.Patterns = []string{"supersecret"}

	var buf bytes.Buffer
	e, err := engine.New(dir, cfg, report.New(&buf, false), noopLogger())
	require.NoError(t, err)

	require.NoError(t, e.Run(context.Background(), ""))

	assert.Contains(t, buf.String(), "confidential pattern")
}

func TestRunNoExtensionInfersType(t *testing.T) {
	dir := t.TempDir()
	pngBytes := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mystery"), pngBytes, 0o644))

	cfg := config.Default()
	cfg.Checks = config.Checks{NoExtension: true}

	var buf bytes.Buffer
	e, err := engine.New(dir, cfg, report.New(&buf, false), noopLogger())
	require.NoError(t, err)

	require.NoError(t, e.Run(context.Background(), ""))

	assert.Contains(t, buf.String(), "inferred png")
}

func TestRunLastAccessSingleCheckDoesNotFlagFreshFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fresh.txt"), []byte("hi"), 0o644))

	cfg := config.Default()
	cfg.Checks = config.Checks{} // single-check run below still must enable last_access
	cfg.LastAccessTime = int64(365 * 24 * time.Hour)
	cfg.EnableCache = false // mirrors cmd/datachecker's single-check invocation, per spec §6

	var buf bytes.Buffer
	e, err := engine.New(dir, cfg, report.New(&buf, false), noopLogger())
	require.NoError(t, err)
	require.Nil(t, e.Cache, "single-check invocations force EnableCache=false, exercising the fresh-walk path")

	require.NoError(t, e.Run(context.Background(), "last_access"))

	out := buf.String()
	assert.Contains(t, out, "== last_access ==")
	assert.NotContains(t, out, "fresh.txt", "a just-written file's real access time must not be seen as zero and flagged stale")
}

func TestRunWrongDatesSingleCheckIgnoresPlausibleFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "normal.txt"), []byte("hi"), 0o644))

	cfg := config.Default()
	cfg.Checks = config.Checks{}
	cfg.EnableCache = false // mirrors cmd/datachecker's single-check invocation, per spec §6

	var buf bytes.Buffer
	e, err := engine.New(dir, cfg, report.New(&buf, false), noopLogger())
	require.NoError(t, err)
	require.Nil(t, e.Cache)

	require.NoError(t, e.Run(context.Background(), "wrong_dates"))

	out := buf.String()
	assert.Contains(t, out, "== wrong_dates ==")
	assert.NotContains(t, out, "normal.txt", "a real access/create time must not read as the epoch and be flagged as a future date")
}

func TestRunPopulatesCacheOnceAndReusesIt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hi"), 0o644))

	cfg := config.Default()
	cfg.Checks = config.Checks{EmptyFiles: true, LargeFiles: true}
	cfg.EnableCache = true

	var buf bytes.Buffer
	e, err := engine.New(dir, cfg, report.New(&buf, false), noopLogger())
	require.NoError(t, err)

	require.NoError(t, e.Run(context.Background(), ""))

	assert.Equal(t, 1, e.Cache.Len())
}
