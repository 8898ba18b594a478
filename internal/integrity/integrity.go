// Package integrity implements the sidecar hash-file verifier (spec
// §4.7, component C7): for each sidecar whose extension names a
// recognized algorithm, either populate an empty sidecar or verify a
// populated one against the target file's recomputed digest. The
// atomic-write half (temp file in the sidecar's directory, rename into
// place) is grounded on the teacher's internal/engine/worker.go
// copyRegularFile tmp-name-then-rename sequence; the parallel fan-out
// (semaphore permits, mutex only around shared state, per-file failures
// that don't abort the pool) is grounded on worker.go's Run/processTask
// split and verify.go's channel-of-tasks pattern, generalized to the
// counting semaphore spec §5 mandates.
package integrity

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/dchecker/datachecker/internal/digest"
	"github.com/dchecker/datachecker/internal/scanerr"
)

// Outcome is the terminal classification of one sidecar after a run.
type Outcome int

const (
	OutcomeCreated Outcome = iota
	OutcomeVerified
	OutcomeMismatch
	OutcomeReadError
	OutcomeTargetNotFound
	OutcomeUnrecognized
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeVerified:
		return "verified"
	case OutcomeMismatch:
		return "mismatch"
	case OutcomeReadError:
		return "read-error"
	case OutcomeTargetNotFound:
		return "target-not-found"
	default:
		return "unrecognized"
	}
}

// Result is the outcome of processing one candidate sidecar path.
type Result struct {
	Sidecar   string
	Target    string
	Algorithm string
	Outcome   Outcome
	Err       error
}

// sidecarAliases maps the conventional hyphen-free sidecar extension
// spelling (spec §3: "e.g. .sha256, .blake3, .ascon256, .md5, …") to
// digest's internal hyphenated algorithm tag, for the SHA-2/SHA-3
// families where the two spellings diverge. Tags that already match
// their extension verbatim (md5, sha1, blake3, ascon256, the
// blake2b-*/blake2s-* family) need no entry.
var sidecarAliases = map[string]string{
	"sha224":     "sha-224",
	"sha256":     "sha-256",
	"sha256t192": "sha-256t192",
	"sha384":     "sha-384",
	"sha512":     "sha-512",
	"sha512224":  "sha-512_224",
	"sha512256":  "sha-512_256",
	"sha512t224": "sha-512t224",
	"sha512t256": "sha-512t256",
	"sha3224":    "sha3-224",
	"sha3256":    "sha3-256",
	"sha3384":    "sha3-384",
	"sha3512":    "sha3-512",
}

// Recognize splits a candidate path into (target, algorithm, ok) by
// stripping its extension and checking it, case-insensitively, against
// the recognized digest algorithm tags (spec §4.7: "its extension names
// the algorithm; the target is the sidecar path with that extension
// stripped").
func Recognize(path string) (target, algorithm string, ok bool) {
	ext := filepath.Ext(path)
	if ext == "" {
		return "", "", false
	}
	alg := strings.ToLower(strings.TrimPrefix(ext, "."))
	if canonical, aliased := sidecarAliases[alg]; aliased {
		alg = canonical
	}
	if !digest.Supported(alg) {
		return "", "", false
	}
	return strings.TrimSuffix(path, ext), alg, true
}

// Config controls buffer size and (for the parallel pipeline) worker
// concurrency; mirrors dupfind.Config's resolution rules.
type Config struct {
	BufferSize int
	MaxJobs    int
}

func (c Config) resolved() Config {
	if c.BufferSize <= 0 {
		c.BufferSize = digest.DefaultChunkSize
	}
	if c.MaxJobs <= 0 {
		c.MaxJobs = runtime.NumCPU()
	}
	if c.MaxJobs < 1 {
		c.MaxJobs = 1
	}
	return c
}

// onErr is invoked (never fatally) when a sidecar fails to process in
// the parallel pipeline; the result is still recorded in the returned
// slice, same as the sequential path (spec §4.7: "failures are logged
// per file and do not abort").
type onErr func(sidecarPath string, err error)

// RunOne processes a single sidecar path per the spec §4.7 state
// machine. Unrecognized extensions yield OutcomeUnrecognized with a nil
// error — the caller is expected to have already filtered the walk to
// candidate sidecar paths, but RunOne re-derives recognition so it can
// be called directly in tests or tooling.
func RunOne(sidecarPath string, cfg Config) Result {
	cfg = cfg.resolved()
	target, alg, ok := Recognize(sidecarPath)
	res := Result{Sidecar: sidecarPath, Target: target, Algorithm: alg}
	if !ok {
		res.Outcome = OutcomeUnrecognized
		return res
	}

	if _, err := os.Stat(target); err != nil {
		res.Outcome = OutcomeTargetNotFound
		res.Err = scanerr.New(scanerr.KindFileNotFound, target, err)
		return res
	}

	content, err := os.ReadFile(sidecarPath)
	if err != nil {
		res.Outcome = OutcomeReadError
		res.Err = scanerr.New(scanerr.KindReadError, sidecarPath, err)
		return res
	}

	digestLen, err := digest.Size(alg)
	if err != nil {
		res.Outcome = OutcomeReadError
		res.Err = scanerr.New(scanerr.KindReadError, sidecarPath, err)
		return res
	}
	hexLen := 2 * digestLen

	switch {
	case len(content) == 0:
		return populate(res, target, alg, sidecarPath, cfg)
	case len(content) == hexLen:
		return verify(res, content, target, alg, cfg)
	default:
		res.Outcome = OutcomeReadError
		res.Err = scanerr.New(scanerr.KindReadError, sidecarPath,
			fmt.Errorf("sidecar length %d, want 0 or %d", len(content), hexLen))
		return res
	}
}

func populate(res Result, target, alg, sidecarPath string, cfg Config) Result {
	hexDigest, err := digest.HexOf(alg, target, cfg.BufferSize)
	if err != nil {
		res.Outcome = OutcomeReadError
		res.Err = scanerr.New(scanerr.KindReadError, target, err)
		return res
	}
	if err := atomicWrite(sidecarPath, []byte(hexDigest)); err != nil {
		res.Outcome = OutcomeReadError
		res.Err = scanerr.New(scanerr.KindReadError, sidecarPath, err)
		return res
	}
	res.Outcome = OutcomeCreated
	return res
}

func verify(res Result, content []byte, target, alg string, cfg Config) Result {
	want, err := hex.DecodeString(string(content))
	if err != nil {
		res.Outcome = OutcomeReadError
		res.Err = scanerr.New(scanerr.KindReadError, res.Sidecar, fmt.Errorf("sidecar is not valid hex: %w", err))
		return res
	}
	got, err := digest.Of(alg, target, cfg.BufferSize)
	if err != nil {
		res.Outcome = OutcomeReadError
		res.Err = scanerr.New(scanerr.KindReadError, target, err)
		return res
	}
	if hex.EncodeToString(want) != hex.EncodeToString(got) {
		res.Outcome = OutcomeMismatch
		return res
	}
	res.Outcome = OutcomeVerified
	return res
}

// atomicWrite creates a temp file alongside path, writes data, and
// renames it into place — never truncating or rewriting path in place
// (spec §4.7: a populated or mismatched sidecar is never rewritten; a
// created one is written exactly once, atomically).
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	tmpName := fmt.Sprintf(".%s.%s.datachecker-tmp", base, uuid.New().String()[:8])
	tmpPath := filepath.Join(dir, tmpName)

	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write tmp %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename %s -> %s: %w", tmpPath, path, err)
	}
	return nil
}

// RunSingleThreaded processes sidecars one at a time, in order.
func RunSingleThreaded(sidecarPaths []string, cfg Config) []Result {
	cfg = cfg.resolved()
	results := make([]Result, 0, len(sidecarPaths))
	for _, p := range sidecarPaths {
		results = append(results, RunOne(p, cfg))
	}
	return results
}

// RunParallel fans out to cfg.MaxJobs goroutines bounded by a counting
// semaphore (spec §5: the same pool discipline as duplicate hashing —
// acquire before submit, release on the worker's terminal step, mutex
// only around the shared results slice). A worker's failure is reported
// via onErr and does not abort siblings or the pool.
func RunParallel(ctx context.Context, sidecarPaths []string, cfg Config, report onErr) ([]Result, error) {
	cfg = cfg.resolved()
	sem := semaphore.NewWeighted(int64(cfg.MaxJobs))

	results := make([]Result, len(sidecarPaths))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i, p := range sidecarPaths {
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return nil, fmt.Errorf("acquire integrity permit: %w", err)
		}
		wg.Add(1)
		go func(idx int, sidecarPath string) {
			defer wg.Done()
			defer sem.Release(1)

			res := RunOne(sidecarPath, cfg)

			mu.Lock()
			results[idx] = res
			mu.Unlock()

			if res.Err != nil && report != nil {
				report(sidecarPath, res.Err)
			}
		}(i, p)
	}
	wg.Wait()
	return results, nil
}
