//go:build darwin
// +build darwin

package mmap

import (
	"syscall"
	"unsafe"
)

func mmap(fd int, offset int64, length int, prot int, flags int) ([]byte, error) {
	return syscall.Mmap(fd, offset, length, prot, flags)
}

func munmap(b []byte) error {
	return syscall.Munmap(b)
}

func madvise(b []byte, advice int) error {
	// macOS has no syscall.Madvise wrapper; invoke the syscall directly.
	_, _, err := syscall.Syscall(syscall.SYS_MADVISE, uintptr(unsafe.Pointer(&b[0])), uintptr(len(b)), uintptr(advice))
	if err != 0 {
		return err
	}
	return nil
}

const (
	protRead  = syscall.PROT_READ
	mapShared = syscall.MAP_SHARED

	madvSequential = 2 // MADV_SEQUENTIAL
)
