//go:build darwin

package sysinfo

import "golang.org/x/sys/unix"

// TotalRAM returns the total physical RAM in bytes.
func TotalRAM() (uint64, error) {
	return unix.SysctlUint64("hw.memsize")
}
