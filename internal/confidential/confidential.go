// Package confidential implements the confidential-content scanner
// (spec §4.8, component C8): one Aho-Corasick matcher built from
// literal patterns plus base64-decoded byte patterns, streamed against
// every regular file in fixed-size chunks, reporting on first hit.
// Grounded on the teacher's internal/engine/hash.go open-and-stream
// loop, generalized from hashing to pattern-matching over the same
// chunked-read discipline.
package confidential

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"

	"github.com/dchecker/datachecker/internal/matcher"
	"github.com/dchecker/datachecker/internal/scanerr"
)

// DefaultBufferSize is used when the caller's BUFFER_SIZE is unset.
const DefaultBufferSize = 1 << 20 // 1 MiB

// Scanner holds a built matcher ready to stream files against.
type Scanner struct {
	m          *matcher.Matcher
	bufferSize int
}

// Build constructs a Scanner from literal patterns and base64-encoded
// byte patterns (spec §4.8). Invalid base64 is a fatal configuration
// error, reported before any scan begins — the caller should surface
// this before touching the filesystem.
func Build(patterns []string, base64Patterns []string, bufferSize int) (*Scanner, error) {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	all := make([][]byte, 0, len(patterns)+len(base64Patterns))
	for _, p := range patterns {
		all = append(all, []byte(p))
	}
	for _, b := range base64Patterns {
		decoded, err := base64.StdEncoding.DecodeString(b)
		if err != nil {
			return nil, scanerr.New(scanerr.KindInvalidPatternEncoding, "", fmt.Errorf("decode PATTERN_BASE64_BYTES entry %q: %w", b, err))
		}
		all = append(all, decoded)
	}

	return &Scanner{m: matcher.New(all), bufferSize: bufferSize}, nil
}

// Empty reports whether the scanner has no patterns to match, in which
// case every Scan call trivially reports no match.
func (s *Scanner) Empty() bool { return s.m.Empty() }

// Scan streams path in bufferSize-sized chunks through the matcher's
// streaming state, stopping at the first hit (spec §4.8: "on the first
// found=true, report the file path ... and stop reading it"). Only
// regular files should be passed in; callers are expected to have
// already filtered directories and non-regular entries via the walker.
func (s *Scanner) Scan(path string) (found bool, err error) {
	if s.m.Empty() {
		return false, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return false, wrapOpenErr(path, err)
	}
	defer f.Close()

	var state matcher.State
	state.Reset()

	buf := make([]byte, s.bufferSize)
	for {
		n, readErr := f.Read(buf)
		if n > 0 && s.m.Feed(&state, buf[:n]) {
			return true, nil
		}
		if readErr == io.EOF {
			return false, nil
		}
		if readErr != nil {
			return false, scanerr.New(scanerr.KindReadError, path, readErr)
		}
	}
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
