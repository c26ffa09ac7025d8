// Package sysinfo derives memory budgets from the host's physical RAM.
package sysinfo

import (
	"runtime"

	"github.com/pspoerri/rasterprefetch/internal/logger"
)

// minLimit is the smallest budget MemoryLimit will return.
const minLimit = 64 << 20

// MemoryLimit returns fraction of total RAM minus the memory the Go runtime
// already holds. It returns 0 (no limit) when fraction is not in (0, 1], RAM
// detection fails or the result would be below 64 MiB.
func MemoryLimit(fraction float64) int64 {
	if fraction <= 0 || fraction > 1 {
		return 0
	}
	total, err := TotalRAM()
	if err != nil {
		logger.Warn("cannot detect system RAM, prefetch budget disabled", "error", err)
		return 0
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	limit := int64(float64(total)*fraction) - int64(m.Sys)
	if limit < minLimit {
		logger.Warn("computed prefetch budget too small, disabled",
			"limit_mb", float64(limit)/(1<<20), "ram_gb", float64(total)/(1<<30))
		return 0
	}
	logger.Debug("prefetch budget from system RAM",
		"limit_mb", float64(limit)/(1<<20),
		"fraction", fraction,
		"ram_gb", float64(total)/(1<<30))
	return limit
}
