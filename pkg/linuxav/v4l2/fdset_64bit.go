//go:build linux && (amd64 || arm64)

package v4l2

import "syscall"

// fdSet marks fd in the set. FdSet.Bits is a [16]int64 on 64-bit Linux.
func fdSet(fds *syscall.FdSet, fd int) {
	fds.Bits[fd/64] |= 1 << (uint(fd) % 64)
}
