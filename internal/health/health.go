// Package health reports process self-health for the admin surface's
// /healthz route (SPEC_FULL §2.1): uptime, CPU, and memory, grounded on
// aristath-sentinel/internal/server/system_handlers.go's getSystemStats
// (gopsutil's cpu.Percent + mem.VirtualMemory).
package health

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Report is a point-in-time self-health snapshot.
type Report struct {
	UptimeSeconds    float64 `json:"uptimeSeconds"`
	CPUPercent       float64 `json:"cpuPercent"`
	MemUsedPercent   float64 `json:"memUsedPercent"`
	MemUsedBytes     uint64  `json:"memUsedBytes"`
	MemTotalBytes    uint64  `json:"memTotalBytes"`
}

// Reporter samples process and host health on demand.
type Reporter struct {
	startedAt time.Time
	// sampleWindow bounds how long cpu.PercentWithContext blocks collecting
	// a CPU sample; kept short so a /healthz request never stalls noticeably.
	sampleWindow time.Duration
}

// New builds a Reporter whose uptime clock starts now.
func New() *Reporter {
	return &Reporter{startedAt: time.Now(), sampleWindow: 100 * time.Millisecond}
}

// Report samples current process/host health. CPU and memory sampling
// failures degrade to zero values rather than failing the whole report —
// a health check must never itself become a reason to report unhealthy.
func (r *Reporter) Report(ctx context.Context) Report {
	report := Report{UptimeSeconds: time.Since(r.startedAt).Seconds()}

	if percents, err := cpu.PercentWithContext(ctx, r.sampleWindow, false); err == nil && len(percents) > 0 {
		report.CPUPercent = percents[0]
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		report.MemUsedPercent = vm.UsedPercent
		report.MemUsedBytes = vm.Used
		report.MemTotalBytes = vm.Total
	}

	return report
}
