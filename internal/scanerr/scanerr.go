// Package scanerr defines the error kinds the scan engine recognizes and
// the recovery policy attached to each (see spec §7).
package scanerr

import "errors"

// Kind identifies a recognized error category. Per-entry kinds are
// reported and the check continues; top-level kinds abort the run.
type Kind int

const (
	// KindUnknown wraps an error the engine has no specific policy for.
	KindUnknown Kind = iota
	// KindAccessDenied is a per-entry permission failure.
	KindAccessDenied
	// KindFileBusy is a per-entry failure because the file is locked
	// or otherwise in use.
	KindFileBusy
	// KindFileNotFound means a hash sidecar's target is missing.
	KindFileNotFound
	// KindStreamTooLong means a JSON parse read exceeded the memory cap.
	KindStreamTooLong
	// KindReadError covers short reads and other I/O read failures.
	KindReadError
	// KindInvalidPatternEncoding means a PATTERN_BASE64_BYTES entry
	// did not decode; fatal, reported before the scan begins.
	KindInvalidPatternEncoding
	// KindConfigInvalid means the config file failed to parse;
	// recovery is falling back to built-in defaults.
	KindConfigInvalid
)

// Error is a scan engine error tagged with a recognized Kind.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return e.Err.Error()
	}
	return e.Path + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err as a scan error of the given kind for the given path.
func New(kind Kind, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}

// Is reports whether err is a scanerr.Error of the given kind.
func Is(err error, kind Kind) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind == kind
	}
	return false
}
