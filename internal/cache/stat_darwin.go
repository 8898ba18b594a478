//go:build darwin

package cache

import (
	"os"
	"syscall"
)

// extraTimes pulls access/create time (ns since epoch) out of the BSD
// stat struct, mirroring the teacher's stat_darwin.go split.
func extraTimes(info os.FileInfo) (accessNs, createNs int64, ok bool) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, 0, false
	}
	return st.Atimespec.Sec*1e9 + st.Atimespec.Nsec, st.Birthtimespec.Sec*1e9 + st.Birthtimespec.Nsec, true
}
