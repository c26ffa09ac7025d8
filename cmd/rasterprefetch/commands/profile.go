package commands

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/pspoerri/rasterprefetch/internal/logger"
)

// startProfiling starts a CPU profile and arranges for a heap profile; the
// returned function stops the former and writes the latter.
func startProfiling(cpuPath, memPath string) (func() error, error) {
	var cpuFile *os.File
	if cpuPath != "" {
		f, err := os.Create(cpuPath)
		if err != nil {
			return nil, fmt.Errorf("creating CPU profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return nil, fmt.Errorf("starting CPU profile: %w", err)
		}
		cpuFile = f
		logger.Debug("CPU profiling enabled", "path", cpuPath)
	}

	return func() error {
		if cpuFile != nil {
			pprof.StopCPUProfile()
			if err := cpuFile.Close(); err != nil {
				return fmt.Errorf("closing CPU profile: %w", err)
			}
		}
		if memPath == "" {
			return nil
		}
		f, err := os.Create(memPath)
		if err != nil {
			return fmt.Errorf("creating memory profile: %w", err)
		}
		defer f.Close()
		runtime.GC() // get up-to-date statistics
		if err := pprof.WriteHeapProfile(f); err != nil {
			return fmt.Errorf("writing memory profile: %w", err)
		}
		logger.Debug("memory profile written", "path", memPath)
		return nil
	}, nil
}
