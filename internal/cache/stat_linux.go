//go:build linux

package cache

import (
	"os"
	"syscall"
)

// extraTimes pulls access/create time (ns since epoch) out of the
// platform stat struct, mirroring the teacher's stat_linux.go split for
// atimeFromStat. Linux has no true creation time in struct stat; Ctim
// (inode change time) stands in, matching common du/fsck tooling.
func extraTimes(info os.FileInfo) (accessNs, createNs int64, ok bool) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, 0, false
	}
	return st.Atim.Sec*1e9 + st.Atim.Nsec, st.Ctim.Sec*1e9 + st.Ctim.Nsec, true
}
