package walker

import (
	"errors"
	"syscall"
)

// isBusy reports whether err indicates the target is locked or
// otherwise in use (spec §7 FileBusy), e.g. EBUSY/ETXTBSY.
func isBusy(err error) bool {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EBUSY || errno == syscall.ETXTBSY
	}
	return false
}
