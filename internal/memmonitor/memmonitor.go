// Package memmonitor reports process and system memory usage and raises
// threshold-based warnings, degrading gracefully when the OS facility is
// unavailable. Grounded on original_source's utils/memory_monitor.py,
// reimplemented over gopsutil rather than psutil — the library's Go
// counterpart, used elsewhere in the pack (other_examples'
// riskiwah-nothingtodo main.go) for host/process introspection.
package memmonitor

import (
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Info is a snapshot of process and system memory usage.
type Info struct {
	ProcessRSSMB      float64
	ProcessVMSMB      float64
	ProcessPercent    float32
	SystemTotalMB     float64
	SystemAvailableMB float64
	SystemUsedMB      float64
	SystemPercent     float64
	Unavailable       bool // true when the OS facility could not be queried
}

// Monitor tracks memory usage against warning/critical thresholds
// (percent of total system memory), matching the original's defaults of
// 80%/90% unless overridden by config (C16).
type Monitor struct {
	warningThreshold  float64
	criticalThreshold float64
	proc              *process.Process
}

// New constructs a Monitor for the current process. If the process
// handle cannot be obtained (sandboxed environment, missing /proc),
// subsequent calls to Check report Info.Unavailable rather than erroring.
func New(warningThresholdPercent, criticalThresholdPercent float64) *Monitor {
	m := &Monitor{warningThreshold: warningThresholdPercent, criticalThreshold: criticalThresholdPercent}
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		m.proc = p
	}
	return m
}

// Snapshot reads current process and system memory usage.
func (m *Monitor) Snapshot() Info {
	if m.proc == nil {
		return Info{Unavailable: true}
	}
	memInfo, err := m.proc.MemoryInfo()
	if err != nil {
		return Info{Unavailable: true}
	}
	procPercent, err := m.proc.MemoryPercent()
	if err != nil {
		procPercent = 0
	}
	vm, err := mem.VirtualMemory()
	if err != nil {
		return Info{Unavailable: true}
	}
	const mb = 1024 * 1024
	return Info{
		ProcessRSSMB:      float64(memInfo.RSS) / mb,
		ProcessVMSMB:      float64(memInfo.VMS) / mb,
		ProcessPercent:    procPercent,
		SystemTotalMB:     float64(vm.Total) / mb,
		SystemAvailableMB: float64(vm.Available) / mb,
		SystemUsedMB:      float64(vm.Used) / mb,
		SystemPercent:     vm.UsedPercent,
	}
}

// Check reports whether a warning should be raised and a formatted
// message, matching the severity bands of the original: critical at or
// above criticalThreshold, warning at or above warningThreshold.
func (m *Monitor) Check() (bool, string) {
	info := m.Snapshot()
	if info.Unavailable {
		return false, ""
	}
	switch {
	case info.SystemPercent >= m.criticalThreshold:
		return true, fmt.Sprintf("memory usage critical: system %.1f%%, process %.1fMB", info.SystemPercent, info.ProcessRSSMB)
	case info.SystemPercent >= m.warningThreshold:
		return true, fmt.Sprintf("memory usage elevated: system %.1f%%, process %.1fMB", info.SystemPercent, info.ProcessRSSMB)
	default:
		return false, ""
	}
}

// CacheMemoryEstimate estimates memory consumed by named caches given
// their entry counts and an average per-entry size, and the share of
// total process RSS they represent.
func (m *Monitor) CacheMemoryEstimate(cacheSizes map[string]int, avgEntryKB float64) map[string]float64 {
	estimates := make(map[string]float64, len(cacheSizes)+1)
	var total float64
	for name, count := range cacheSizes {
		sizeMB := float64(count) * avgEntryKB / 1024
		estimates[name] = sizeMB
		total += sizeMB
	}
	estimates["total"] = total

	info := m.Snapshot()
	if !info.Unavailable && info.ProcessRSSMB > 0 {
		estimates["cache_percent_of_process"] = total / info.ProcessRSSMB * 100
	}
	return estimates
}

// FormatMemorySize renders a megabyte quantity as MB or GB, matching the
// original's display thresholds.
func FormatMemorySize(sizeMB float64) string {
	if sizeMB < 1024 {
		return fmt.Sprintf("%.1fMB", sizeMB)
	}
	return fmt.Sprintf("%.1fGB", sizeMB/1024)
}
