//go:build !linux && !darwin

package cache

import "os"

// extraTimes has no portable fallback; callers treat the zero values as
// "unknown" rather than failing the scan.
func extraTimes(info os.FileInfo) (accessNs, createNs int64, ok bool) {
	return 0, 0, false
}
