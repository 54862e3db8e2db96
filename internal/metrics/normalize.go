// Package metrics turns raw engine counters into normalized utilization
// figures.
package metrics

import (
	"math"
	"strings"

	"dockwatch/internal/docker"
	"dockwatch/internal/models"
)

const bytesPerMB = 1048576.0

// Normalize derives one sample from a stats payload. The payload carries
// both the current and the previous counter snapshot, so no state is kept
// between calls. Malformed or partial payloads degrade to zero-valued
// fields, never an error.
func Normalize(id string, s docker.Stats) models.NormalizedSample {
	var cpuPct float64
	if s.CPUStats.SystemCPUUsage > s.PreCPUStats.SystemCPUUsage &&
		s.CPUStats.CPUUsage.TotalUsage > s.PreCPUStats.CPUUsage.TotalUsage {
		sysDelta := float64(s.CPUStats.SystemCPUUsage - s.PreCPUStats.SystemCPUUsage)
		cpuDelta := float64(s.CPUStats.CPUUsage.TotalUsage - s.PreCPUStats.CPUUsage.TotalUsage)
		cpus := float64(s.CPUStats.OnlineCPUs)
		if cpus == 0 {
			cpus = float64(len(s.CPUStats.CPUUsage.PercpuUsage))
			if cpus == 0 {
				cpus = 1
			}
		}
		cpuPct = (cpuDelta / sysDelta) * cpus * 100
	}

	var memPct float64
	if s.MemoryStats.Limit > 0 {
		memPct = (float64(s.MemoryStats.Usage) / float64(s.MemoryStats.Limit)) * 100
	}

	var rx, tx uint64
	for _, n := range s.Networks {
		rx += n.RxBytes
		tx += n.TxBytes
	}

	var read, write uint64
	for _, entry := range s.BlkioStats.IoServiceBytesRecursive {
		// cgroup v1 reports "Read"/"Write", v2 reports "read"/"write".
		op := strings.ToLower(entry.Op)
		switch {
		case strings.Contains(op, "read"):
			read += entry.Value
		case strings.Contains(op, "write"):
			write += entry.Value
		}
	}

	return models.NormalizedSample{
		ContainerID:   id,
		CPUPercent:    cpuPct,
		MemPercent:    memPct,
		MemUsedBytes:  int64(s.MemoryStats.Usage),
		MemLimitBytes: int64(s.MemoryStats.Limit),
		NetRXBytes:    int64(rx),
		NetTXBytes:    int64(tx),
		BlkReadBytes:  int64(read),
		BlkWriteBytes: int64(write),
	}
}

// ToMB converts a cumulative byte counter to megabytes for display.
func ToMB(bytes int64) float64 {
	return Round2(float64(bytes) / bytesPerMB)
}

// Round2 rounds to two decimal places at the presentation boundary.
// Internal comparisons always use the unrounded value.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
