//go:build !darwin && !linux

package sysinfo

import "fmt"

// TotalRAM is unsupported on this platform.
func TotalRAM() (uint64, error) {
	return 0, fmt.Errorf("unsupported platform for RAM detection")
}
