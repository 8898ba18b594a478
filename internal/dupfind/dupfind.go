// Package dupfind implements the duplicate-file detector (spec §4.6,
// component C6): a single-threaded size->content pipeline and a
// parallel size->hash->content pipeline, sharing the byte-by-byte
// clustering stage. The worker-pool/semaphore shape (acquire a permit
// before spawning, release on completion, mutex only around the shared
// map update) is grounded on the teacher's internal/engine/worker.go
// Run/processTask split and internal/engine/verify.go's fan-out-to-N
// goroutines-over-a-channel pattern.
package dupfind

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/dchecker/datachecker/internal/digest"
)

// FileMeta is one candidate for duplicate detection: an absolute path
// and its size in bytes.
type FileMeta struct {
	AbsPath string
	Size    int64
}

// Cluster is a maximal set of mutually byte-identical files (head
// first, per spec §4.6 step 5).
type Cluster struct {
	Size    int64
	Members []string
}

// Result is the outcome of a duplicate-detection run.
type Result struct {
	Clusters    []Cluster
	WastedBytes int64
}

// Config controls buffer size and (for the parallel pipeline) worker
// concurrency.
type Config struct {
	BufferSize int // per-file read buffer; halved for paired comparison
	MaxJobs    int // 0 means detect CPU count, per spec §3 MAX_JOBS
}

func (c Config) resolved() Config {
	if c.BufferSize <= 0 {
		c.BufferSize = 1 << 20
	}
	if c.MaxJobs <= 0 {
		c.MaxJobs = runtime.NumCPU()
		if c.MaxJobs < 1 {
			c.MaxJobs = 1
		}
	}
	return c
}

// onHashErr is called (never fatally) when a worker fails to hash a
// candidate file in the parallel pipeline; the offending file is simply
// absent from the resulting buckets (spec §4.6 concurrency contract).
type onHashErr func(path string, err error)

// RunSingleThreaded implements the single-threaded pipeline of spec
// §4.6: group by size, prune singletons, cluster each surviving group
// by byte-identity one group at a time.
func RunSingleThreaded(files []FileMeta, cfg Config) (Result, error) {
	cfg = cfg.resolved()
	sizeGroups := groupBySize(files)

	var result Result
	for _, paths := range sizeGroups {
		if len(paths) < 2 {
			continue
		}
		clusters, err := clusterByContent(paths, cfg.BufferSize)
		if err != nil {
			return result, err
		}
		accumulate(&result, clusters)
	}
	return result, nil
}

// RunParallel implements the parallel pipeline of spec §4.6: between
// the size-grouping and the byte-by-byte clustering, insert a hash
// stage that fans out one BLAKE3 worker per path (bounded by a counting
// semaphore of MaxJobs permits) and prunes digest buckets of cardinality
// one before clustering.
func RunParallel(ctx context.Context, files []FileMeta, cfg Config, onErr onHashErr) (Result, error) {
	cfg = cfg.resolved()
	sizeGroups := groupBySize(files)

	var result Result
	for _, paths := range sizeGroups {
		if len(paths) < 2 {
			continue
		}
		buckets, err := hashStage(ctx, paths, cfg, onErr)
		if err != nil {
			return result, err
		}
		for _, bucket := range buckets {
			if len(bucket) < 2 {
				continue
			}
			clusters, err := clusterByContent(bucket, cfg.BufferSize)
			if err != nil {
				return result, err
			}
			accumulate(&result, clusters)
		}
	}
	return result, nil
}

func groupBySize(files []FileMeta) map[int64][]string {
	groups := make(map[int64][]string)
	for _, f := range files {
		if f.Size == 0 {
			continue // zero-byte files excluded from duplicate detection (spec §8)
		}
		groups[f.Size] = append(groups[f.Size], f.AbsPath)
	}
	return groups
}

// hashStage computes a 32-byte BLAKE3 digest per path, bounded by a
// semaphore of cfg.MaxJobs permits; the mutex guards only the shared
// bucket map, hashing itself is lock-free (spec §4.6, §5).
func hashStage(ctx context.Context, paths []string, cfg Config, onErr onHashErr) (map[[32]byte][]string, error) {
	sem := semaphore.NewWeighted(int64(cfg.MaxJobs))
	buckets := make(map[[32]byte][]string)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, p := range paths {
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return nil, fmt.Errorf("acquire hash permit: %w", err)
		}
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			defer sem.Release(1)

			sum, err := digest.Of("blake3", path, cfg.BufferSize)
			if err != nil {
				if onErr != nil {
					onErr(path, err)
				}
				return
			}
			var key [32]byte
			copy(key[:], sum)

			mu.Lock()
			buckets[key] = append(buckets[key], path)
			mu.Unlock()
		}(p)
	}
	wg.Wait()
	return buckets, nil
}

// clusterByContent performs stage 3's incremental clustering (spec
// §4.6): for each path, compare against each existing cluster's head;
// append on the first byte-equal head, else seed a new cluster.
// Transitivity of byte-equality justifies comparing only against heads.
func clusterByContent(paths []string, bufSize int) ([]Cluster, error) {
	var clusters []Cluster
	size, err := fileSize(paths[0])
	if err != nil {
		return nil, err
	}

	for _, p := range paths {
		placed := false
		for i := range clusters {
			eq, err := byteEqual(clusters[i].Members[0], p, bufSize)
			if err != nil {
				return nil, err
			}
			if eq {
				clusters[i].Members = append(clusters[i].Members, p)
				placed = true
				break
			}
		}
		if !placed {
			clusters = append(clusters, Cluster{Size: size, Members: []string{p}})
		}
	}

	out := clusters[:0]
	for _, c := range clusters {
		if len(c.Members) >= 2 {
			out = append(out, c)
		}
	}
	return out, nil
}

func accumulate(result *Result, clusters []Cluster) {
	for _, c := range clusters {
		result.Clusters = append(result.Clusters, c)
		// Wasted bytes = one size per redundant copy, i.e. every
		// member past the cluster head (spec §8 scenario S1: a trio
		// of 7-byte duplicates wastes 14 bytes, not 21).
		result.WastedBytes += c.Size * int64(len(c.Members)-1)
	}
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// byteEqual compares two files assumed pre-filtered to identical size,
// using a paired buffer split in half (spec §4.6): one half per reader,
// read up to half-buffer bytes from each per step; mismatched lengths
// or content mean not-equal; both reaching EOF with equal content means
// equal.
func byteEqual(pathA, pathB string, bufSize int) (bool, error) {
	half := bufSize / 2
	if half < 4096 {
		half = 4096
	}

	fa, err := os.Open(pathA)
	if err != nil {
		return false, err
	}
	defer fa.Close()
	fb, err := os.Open(pathB)
	if err != nil {
		return false, err
	}
	defer fb.Close()

	bufA := make([]byte, half)
	bufB := make([]byte, half)

	for {
		na, erra := io.ReadFull(fa, bufA)
		nb, errb := io.ReadFull(fb, bufB)

		if na != nb {
			return false, nil
		}
		if na > 0 && string(bufA[:na]) != string(bufB[:nb]) {
			return false, nil
		}

		aDone := erra == io.EOF || erra == io.ErrUnexpectedEOF
		bDone := errb == io.EOF || errb == io.ErrUnexpectedEOF

		if aDone != bDone {
			return false, nil
		}
		if aDone && bDone {
			return true, nil
		}
		if erra != nil && !aDone {
			return false, erra
		}
		if errb != nil && !bDone {
			return false, errb
		}
	}
}
