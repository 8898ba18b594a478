// Package digest implements the streaming hash wrapper (spec §4.3,
// component C3): a uniform chunked-hashing interface over the family of
// digest algorithms spec.md names, yielding raw digest bytes. Grounded
// on the teacher's internal/engine/hash.go (open, stream fixed-size
// chunks through a hash.Hash, emit the digest), generalized from
// BLAKE3-only to the full algorithm-tag table.
package digest

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/blake2s"
	"golang.org/x/crypto/sha3"

	"github.com/dchecker/datachecker/internal/scanerr"
)

// DefaultChunkSize is used when the caller's BUFFER_SIZE is unset.
const DefaultChunkSize = 1 << 20 // 1 MiB

// newHasher builds a fresh hash.Hash for the given lowercase algorithm
// tag, or reports that the tag is unrecognized.
func newHasher(algorithm string) (hash.Hash, error) {
	switch strings.ToLower(algorithm) {
	case "ascon256":
		return newAsconHash256(), nil
	case "md5":
		return md5.New(), nil
	case "sha1":
		return sha1.New(), nil
	case "sha-224":
		return sha256.New224(), nil
	case "sha-256":
		return sha256.New(), nil
	case "sha-256t192":
		return newTruncated(sha256.New(), 24), nil
	case "sha-384":
		return sha512.New384(), nil
	case "sha-512":
		return sha512.New(), nil
	case "sha-512_224", "sha-512t224":
		return sha512.New512_224(), nil
	case "sha-512_256", "sha-512t256":
		return sha512.New512_256(), nil
	case "sha3-224":
		return sha3.New224(), nil
	case "sha3-256":
		return sha3.New256(), nil
	case "sha3-384":
		return sha3.New384(), nil
	case "sha3-512":
		return sha3.New512(), nil
	case "blake3":
		return blake3.New(), nil
	case "blake2b-128":
		return newBlake2b(16), nil
	case "blake2b-160":
		return newBlake2b(20), nil
	case "blake2b-256":
		return newBlake2b(32), nil
	case "blake2b-384":
		return newBlake2b(48), nil
	case "blake2b-512":
		return newBlake2b(64), nil
	case "blake2s-128":
		return newBlake2s(16), nil
	case "blake2s-160":
		return newBlake2s(20), nil
	case "blake2s-224":
		return newBlake2s(28), nil
	case "blake2s-256":
		return newBlake2s(32), nil
	default:
		return nil, fmt.Errorf("digest: unrecognized algorithm %q", algorithm)
	}
}

func newBlake2b(size int) hash.Hash {
	h, err := blake2b.New(size, nil)
	if err != nil {
		// Only unreachable sizes (>64 or <1) would fail; every call
		// site here passes a constant in range.
		panic("digest: invalid blake2b size")
	}
	return h
}

func newBlake2s(size int) hash.Hash {
	h, err := blake2s.New(size, nil)
	if err != nil {
		panic("digest: invalid blake2s size")
	}
	return h
}

// truncated wraps a hash.Hash and truncates Sum to n bytes, used for
// algorithm tags that aren't full-width NIST functions (e.g. the
// 192-bit truncated SHA-256 variant some vendor tools ship as
// "sha-256t192").
type truncated struct {
	hash.Hash
	n int
}

func newTruncated(h hash.Hash, n int) hash.Hash { return &truncated{Hash: h, n: n} }

func (t *truncated) Sum(b []byte) []byte {
	full := t.Hash.Sum(nil)
	return append(b, full[:t.n]...)
}
func (t *truncated) Size() int { return t.n }

// Size returns the digest length in bytes for a recognized algorithm tag.
func Size(algorithm string) (int, error) {
	h, err := newHasher(algorithm)
	if err != nil {
		return 0, err
	}
	return h.Size(), nil
}

// Supported reports whether algorithm names a recognized hash tag.
func Supported(algorithm string) bool {
	_, err := newHasher(algorithm)
	return err == nil
}

// Of streams path through algorithm in chunkSize-sized reads and
// returns the raw digest bytes. Recognized failures are wrapped as
// scanerr FileNotFound/AccessDenied/FileBusy/ReadError per spec §4.3.
func Of(algorithm, path string, chunkSize int) ([]byte, error) {
	h, err := newHasher(algorithm)
	if err != nil {
		return nil, err
	}

	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, wrapOpenErr(path, err)
	}
	defer f.Close()

	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return nil, scanerr.New(scanerr.KindReadError, path, err)
	}

	return h.Sum(nil), nil
}

// HexOf is Of followed by lowercase hex encoding, the on-disk sidecar
// representation (spec §3 HashSidecar, §6).
func HexOf(algorithm, path string, chunkSize int) (string, error) {
	d, err := Of(algorithm, path, chunkSize)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(d), nil
}

func wrapOpenErr(path string, err error) error {
	var errno syscall.Errno
	busy := errors.As(err, &errno) && (errno == syscall.EBUSY || errno == syscall.ETXTBSY)
	switch {
	case busy:
		return scanerr.New(scanerr.KindFileBusy, path, err)
	case os.IsNotExist(err):
		return scanerr.New(scanerr.KindFileNotFound, path, err)
	case os.IsPermission(err):
		return scanerr.New(scanerr.KindAccessDenied, path, err)
	default:
		return scanerr.New(scanerr.KindReadError, path, err)
	}
}
