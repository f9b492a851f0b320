//go:build linux && arm

package v4l2

import "syscall"

// fdSet marks fd in the set. FdSet.Bits is a [32]int32 on 32-bit ARM Linux.
func fdSet(fds *syscall.FdSet, fd int) {
	fds.Bits[fd/32] |= 1 << (uint(fd) % 32)
}
