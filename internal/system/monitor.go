// Package system samples host load so the status endpoint can report it.
package system

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
)

const defaultInterval = 5 * time.Second

// Stats is one snapshot of host metrics. Disk figures describe the volume
// holding completed artifacts.
type Stats struct {
	CPUPercent      float64   `json:"cpu_percent"`
	MemoryPercent   float64   `json:"memory_percent"`
	LoadAverage     float64   `json:"load_average"`
	DiskTotalBytes  uint64    `json:"disk_total_bytes"`
	DiskFreeBytes   uint64    `json:"disk_free_bytes"`
	DiskUsedPercent float64   `json:"disk_used_percent"`
	GatheredAt      time.Time `json:"gathered_at"`
}

// Monitor periodically refreshes host metrics in the background.
type Monitor struct {
	mu       sync.RWMutex
	logger   hclog.Logger
	diskPath string
	interval time.Duration
	stats    Stats

	cancel context.CancelFunc
	done   chan struct{}
}

// NewMonitor creates a monitor reporting disk usage for diskPath.
func NewMonitor(diskPath string, logger hclog.Logger) *Monitor {
	return &Monitor{
		logger:   logger,
		diskPath: diskPath,
		interval: defaultInterval,
	}
}

// Start launches the background refresh loop. The first sample is taken
// synchronously so early status requests see real numbers.
func (m *Monitor) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})

	m.refresh(ctx)

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.refresh(ctx)
			}
		}
	}()
}

// Stop halts the refresh loop.
func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
		<-m.done
	}
}

// Stats returns the most recent snapshot.
func (m *Monitor) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

// refresh gathers one snapshot. Individual probe failures are logged and
// leave the previous value in place rather than failing the whole sample.
func (m *Monitor) refresh(ctx context.Context) {
	m.mu.Lock()
	stats := m.stats
	m.mu.Unlock()

	if cpuPercents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(cpuPercents) > 0 {
		stats.CPUPercent = cpuPercents[0]
	} else if err != nil {
		m.logger.Debug("failed to sample cpu usage", "error", err)
	}

	if memStats, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		stats.MemoryPercent = memStats.UsedPercent
	} else {
		m.logger.Debug("failed to sample memory usage", "error", err)
	}

	if loadStats, err := load.AvgWithContext(ctx); err == nil {
		stats.LoadAverage = loadStats.Load1
	} else {
		m.logger.Debug("failed to sample load average", "error", err)
	}

	if usage, err := disk.UsageWithContext(ctx, m.diskPath); err == nil {
		stats.DiskTotalBytes = usage.Total
		stats.DiskFreeBytes = usage.Free
		stats.DiskUsedPercent = usage.UsedPercent
	} else {
		m.logger.Debug("failed to sample disk usage", "path", m.diskPath, "error", err)
	}

	stats.GatheredAt = time.Now()

	m.mu.Lock()
	m.stats = stats
	m.mu.Unlock()
}
