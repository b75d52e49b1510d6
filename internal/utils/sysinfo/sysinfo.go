// Package sysinfo sizes the scan executor's worker pool and batch size to
// the host's CPU and memory budget.
package sysinfo

import (
	"log"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// PoolConfig is the resolved worker-pool sizing for one scan.
type PoolConfig struct {
	Workers   int
	BatchSize int
}

// Monitor caches host sizing for a short window so every extractor call
// doesn't re-probe /proc.
type Monitor struct {
	cacheDuration time.Duration
	cached        *PoolConfig
	cachedFor     [2]int // requestedWorkers, defaultBatchSize of cached
	cachedAt      time.Time
}

// NewMonitor returns a Monitor that refreshes its cached reading every
// 30 seconds.
func NewMonitor() *Monitor {
	return &Monitor{cacheDuration: 30 * time.Second}
}

// OptimalPoolConfig returns a worker count and batch size appropriate for
// the host's current resources. requestedWorkers overrides the CPU-based
// default when positive (e.g. an operator-configured worker count);
// defaultBatchSize is returned unchanged unless memory is scarce enough
// to warrant shrinking it.
func (m *Monitor) OptimalPoolConfig(requestedWorkers, defaultBatchSize int) PoolConfig {
	args := [2]int{requestedWorkers, defaultBatchSize}
	if m.cached != nil && m.cachedFor == args && time.Since(m.cachedAt) < m.cacheDuration {
		return *m.cached
	}

	cfg := m.computePoolConfig(requestedWorkers, defaultBatchSize)
	m.cached = &cfg
	m.cachedFor = args
	m.cachedAt = time.Now()
	return cfg
}

func (m *Monitor) computePoolConfig(requestedWorkers, defaultBatchSize int) PoolConfig {
	workers := requestedWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
		if logical, err := cpu.Counts(true); err == nil && logical > 0 {
			workers = logical
		}
		if workers > 8 {
			workers = 8
		}
		if workers < 1 {
			workers = 1
		}
	}

	batchSize := defaultBatchSize
	if vm, err := mem.VirtualMemory(); err == nil {
		availableMB := int64(vm.Available) / 1024 / 1024
		switch {
		case availableMB > 4096:
			// plenty of headroom, keep the configured/default batch size
		case availableMB > 1024:
			batchSize = min(batchSize, 25)
		default:
			batchSize = min(batchSize, 10)
			if workers > 2 {
				workers = 2
			}
		}
	} else {
		log.Printf("[sysinfo] memory probe failed, keeping configured sizing: %v", err)
	}

	return PoolConfig{Workers: workers, BatchSize: batchSize}
}
