// Package stats implements the scan run's counters, generalized from
// the teacher's lock-free atomic-counter Collector (throughput ring
// buffer and ETA dropped: DataChecker's checks run to completion and
// print line-based results rather than a streaming transfer, so there
// is nothing to sample a rolling speed from — see DESIGN.md).
package stats

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks scan-run statistics using lock-free atomic counters
// for the fixed totals, plus a named counter per check (spec §4.5) for
// how many entries each check flagged.
type Collector struct {
	entriesExamined atomic.Int64
	bytesExamined   atomic.Int64
	entriesFailed   atomic.Int64
	startTime       time.Time

	duplicateClusters   atomic.Int64
	duplicateWastedByte atomic.Int64
	integrityCreated    atomic.Int64
	integrityVerified   atomic.Int64
	integrityMismatch   atomic.Int64

	mu         sync.Mutex
	checkHits  map[string]int64
}

// NewCollector creates a Collector with startTime set to now.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now(), checkHits: make(map[string]int64)}
}

// AddEntriesExamined atomically increments the total entries seen.
func (c *Collector) AddEntriesExamined(n int64) { c.entriesExamined.Add(n) }

// AddBytesExamined atomically increments the total bytes read.
func (c *Collector) AddBytesExamined(n int64) { c.bytesExamined.Add(n) }

// AddEntriesFailed atomically increments the count of entries a check
// could not complete (scanerr-reported, per-entry recoverable errors).
func (c *Collector) AddEntriesFailed(n int64) { c.entriesFailed.Add(n) }

// AddDuplicateCluster records one content-identical cluster and its
// wasted-byte total (spec §8's (n-1)*size formula).
func (c *Collector) AddDuplicateCluster(wastedBytes int64) {
	c.duplicateClusters.Add(1)
	c.duplicateWastedByte.Add(wastedBytes)
}

// AddIntegrityOutcome tallies one of the three non-error sidecar
// outcomes from spec §4.7.
func (c *Collector) AddIntegrityOutcome(created, verified, mismatch bool) {
	if created {
		c.integrityCreated.Add(1)
	}
	if verified {
		c.integrityVerified.Add(1)
	}
	if mismatch {
		c.integrityMismatch.Add(1)
	}
}

// AddCheckHit increments the flagged-entry count for the named check
// (e.g. "temporary", "magic_numbers", "unportable_chars").
func (c *Collector) AddCheckHit(check string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checkHits[check]++
}

// CheckHits returns a point-in-time copy of every check's flagged
// count.
func (c *Collector) CheckHits() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int64, len(c.checkHits))
	for k, v := range c.checkHits {
		out[k] = v
	}
	return out
}

// Snapshot is a point-in-time read of the fixed counters.
type Snapshot struct {
	EntriesExamined     int64
	BytesExamined       int64
	EntriesFailed       int64
	DuplicateClusters   int64
	DuplicateWastedByte int64
	IntegrityCreated    int64
	IntegrityVerified   int64
	IntegrityMismatch   int64
	Elapsed             time.Duration
}

// Snapshot returns a consistent point-in-time read of the fixed
// counters; use CheckHits separately for the per-check breakdown.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		EntriesExamined:     c.entriesExamined.Load(),
		BytesExamined:       c.bytesExamined.Load(),
		EntriesFailed:       c.entriesFailed.Load(),
		DuplicateClusters:   c.duplicateClusters.Load(),
		DuplicateWastedByte: c.duplicateWastedByte.Load(),
		IntegrityCreated:    c.integrityCreated.Load(),
		IntegrityVerified:   c.integrityVerified.Load(),
		IntegrityMismatch:   c.integrityMismatch.Load(),
		Elapsed:             c.Elapsed(),
	}
}

// Elapsed returns time since collector creation.
func (c *Collector) Elapsed() time.Duration {
	return time.Since(c.startTime)
}

func (s Snapshot) String() string {
	return fmt.Sprintf(
		"examined=%d bytes=%d failed=%d dup_clusters=%d wasted=%d integrity(created=%d verified=%d mismatch=%d)",
		s.EntriesExamined, s.BytesExamined, s.EntriesFailed,
		s.DuplicateClusters, s.DuplicateWastedByte,
		s.IntegrityCreated, s.IntegrityVerified, s.IntegrityMismatch,
	)
}

// FormatBytes returns a human-readable byte count, kept nearly
// verbatim from the teacher's internal/stats helper — beam already
// carries this exact formatting concern, so reporter output doesn't
// need a second byte-humanizing dependency.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
