//go:build linux

package platform

import (
	"syscall"
	"unsafe"
)

func setsockopt(fd, level, name int, v unsafe.Pointer, l int) error {
	if _, _, errno := syscall.Syscall6(syscall.SYS_SETSOCKOPT, uintptr(fd), uintptr(level), uintptr(name), uintptr(v), uintptr(l), 0); errno != 0 {
		return error(errno)
	}
	return nil
}
