// Package checks implements the per-entry cheap predicates spec §1
// describes only via their contract with the walker: empty, large
// file, last-access, wrong dates, name/path size, unportable
// characters, duplicate characters, directory item counts, JSON parse,
// and legacy-extension lookup. Each is a pure function over an Entry
// and a threshold, grounded on the teacher's internal/filter package's
// shape of small, independent, composable path/size predicates
// (internal/filter/size.go, internal/filter/filter.go) generalized
// from copy-inclusion filtering to quality-report predicates.
package checks

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dchecker/datachecker/internal/cache"
	"github.com/dchecker/datachecker/internal/scanerr"
	"github.com/dchecker/datachecker/internal/tempdata"
)

// Entry is the minimal per-entry view these checks need: the walker's
// Entry carries more (kind, relative path), but every predicate here
// operates on an absolute path plus its cached stat.
type Entry struct {
	AbsPath string
	RelPath string
	Stat    cache.Stat
}

func baseName(e Entry) string { return filepath.Base(e.AbsPath) }

// Thresholds mirrors the numeric ScanConfig fields spec §3 names.
type Thresholds struct {
	LargeFileSize      int64
	LastAccessTimeNs   int64 // files not accessed within this many ns of now are flagged
	MaxItemsDirectory  int
	MaxDirFileNameSize int
	MaxFullPathSize    int
	DuplicateRunLength int // minimum consecutive-identical-rune run to flag; 0 disables
}

// IsEmpty reports whether a regular file has zero size.
func IsEmpty(e Entry) bool {
	return e.Stat.Kind == cache.KindFile && e.Stat.Size == 0
}

// IsLargeFile reports whether a regular file exceeds the configured
// large-file threshold. A zero threshold disables the check.
func IsLargeFile(e Entry, t Thresholds) bool {
	return t.LargeFileSize > 0 && e.Stat.Kind == cache.KindFile && e.Stat.Size > t.LargeFileSize
}

// IsStaleAccess reports whether a file's last-access time is older than
// t.LastAccessTimeNs relative to nowNs. nowNs is a parameter (rather
// than sampled internally) so the check is deterministic in tests.
func IsStaleAccess(e Entry, t Thresholds, nowNs int64) bool {
	if t.LastAccessTimeNs <= 0 || e.Stat.Kind != cache.KindFile {
		return false
	}
	return nowNs-e.Stat.AccTimeNs > t.LastAccessTimeNs
}

// Now returns the current time in nanoseconds, the nowNs IsStaleAccess
// and HasWrongDates expect. Exposed so dispatcher code has one place
// to sample it once per check run rather than once per entry.
func Now() int64 { return time.Now().UnixNano() }

// HasWrongDates reports whether any of a file's recorded timestamps lie
// in the future relative to nowNs — a data-quality signal (clock skew,
// tampering, or a bad archive/restore) rather than a filesystem error.
func HasWrongDates(e Entry, nowNs int64) bool {
	return e.Stat.ModTimeNs > nowNs || e.Stat.AccTimeNs > nowNs || e.Stat.CreateTimeNs > nowNs
}

// NameTooLong reports whether the entry's base name exceeds
// MaxDirFileNameSize, checked under both byte length and rune count so
// the result does not depend on which interpretation the host chose
// (spec §8: "Unicode paths longer than MAX_DIR_FILE_NAME_SIZE are
// reported ... independently of byte/character interpretation").
func NameTooLong(e Entry, t Thresholds) bool {
	if t.MaxDirFileNameSize <= 0 {
		return false
	}
	name := baseName(e)
	return len(name) > t.MaxDirFileNameSize || utf8.RuneCountInString(name) > t.MaxDirFileNameSize
}

// PathTooLong reports whether the entry's absolute path exceeds
// MaxFullPathSize bytes.
func PathTooLong(e Entry, t Thresholds) bool {
	return t.MaxFullPathSize > 0 && len(e.AbsPath) > t.MaxFullPathSize
}

// unportableChars is the set of characters that are invalid or
// ambiguous in at least one mainstream filesystem (Windows' reserved
// set, plus the control-character range every OS rejects).
const unportableChars = "<>:\"/\\|?*"

// HasUnportableChars reports whether the entry's base name contains a
// character that is invalid on at least one mainstream filesystem.
func HasUnportableChars(e Entry) bool {
	name := baseName(e)
	if strings.ContainsAny(name, unportableChars) {
		return true
	}
	for _, r := range name {
		if r < 0x20 {
			return true
		}
	}
	return false
}

// HasDuplicateRunChars reports whether the base name contains a run of
// t.DuplicateRunLength or more identical consecutive runes (e.g.
// "aaaa.txt"), a common signature of corrupted or auto-generated names.
func HasDuplicateRunChars(e Entry, t Thresholds) bool {
	if t.DuplicateRunLength <= 0 {
		return false
	}
	name := baseName(e)
	var prev rune
	run := 0
	for i, r := range name {
		if i > 0 && r == prev {
			run++
		} else {
			run = 1
		}
		prev = r
		if run >= t.DuplicateRunLength {
			return true
		}
	}
	return false
}

// HasDuplicateExtension delegates to tempdata.HasDuplicateExtension
// (spec §9 open question: "x.tar.tar"-style repeated extensions).
func HasDuplicateExtension(e Entry) bool {
	return tempdata.HasDuplicateExtension(baseName(e))
}

// IsLegacyExtension reports whether the entry's extension appears in
// the supplied legacy-extension table.
func IsLegacyExtension(e Entry, table tempdata.Table) bool {
	return table.Match(e.RelPath, baseName(e))
}

// IsTemporary reports whether the entry matches the supplied
// temporary-file table.
func IsTemporary(e Entry, table tempdata.Table) bool {
	return table.Match(e.RelPath, baseName(e))
}

// IsCompressed reports whether the entry's extension names a known
// archive or compression container (the "compressed" check of spec
// §4.5).
func IsCompressed(e Entry, table tempdata.Table) bool {
	return table.Match(e.RelPath, baseName(e))
}

// DirCount classifies a directory's immediate (non-recursive) item
// count against the many/empty/one-item thresholds.
type DirCount struct {
	Empty    bool
	OneItem  bool
	TooMany  bool
	NumItems int
}

// CountDirItems reads absDir's immediate children and classifies the
// count. A read failure is reported to the caller rather than silently
// treated as empty.
func CountDirItems(absDir string, t Thresholds) (DirCount, error) {
	entries, err := os.ReadDir(absDir)
	if err != nil {
		return DirCount{}, scanerr.New(scanerr.KindReadError, absDir, err)
	}
	n := len(entries)
	return DirCount{
		Empty:    n == 0,
		OneItem:  n == 1,
		TooMany:  t.MaxItemsDirectory > 0 && n > t.MaxItemsDirectory,
		NumItems: n,
	}, nil
}

// JSONParseResult is the outcome of attempting to parse a candidate
// JSON file.
type JSONParseResult int

const (
	JSONValid JSONParseResult = iota
	JSONInvalid
	JSONTooLarge
	JSONNotApplicable // extension isn't .json; no report
)

// maxJSONBytes bounds how much of a candidate file is read before
// giving up and reporting StreamTooLong (spec §7: "StreamTooLong (JSON
// read exceeds memory cap) -> Report and skip the file").
const maxJSONBytes = 64 << 20 // 64 MiB

// CheckJSON attempts to parse e as JSON if its extension is "json".
func CheckJSON(e Entry) (JSONParseResult, error) {
	if !strings.EqualFold(filepath.Ext(baseName(e)), ".json") {
		return JSONNotApplicable, nil
	}

	f, err := os.Open(e.AbsPath)
	if err != nil {
		return JSONInvalid, wrapOpenErr(e.AbsPath, err)
	}
	defer f.Close()

	limited := io.LimitReader(f, maxJSONBytes+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return JSONInvalid, scanerr.New(scanerr.KindReadError, e.AbsPath, err)
	}
	if len(data) > maxJSONBytes {
		return JSONTooLarge, scanerr.New(scanerr.KindStreamTooLong, e.AbsPath, fmt.Errorf("exceeds %d byte cap", maxJSONBytes))
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return JSONInvalid, nil
	}
	return JSONValid, nil
}

func wrapOpenErr(path string, err error) error {
	if os.IsNotExist(err) {
		return scanerr.New(scanerr.KindFileNotFound, path, err)
	}
	if os.IsPermission(err) {
		return scanerr.New(scanerr.KindAccessDenied, path, err)
	}
	return scanerr.New(scanerr.KindReadError, path, err)
}
