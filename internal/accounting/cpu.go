// Package accounting implements the pure CPU/memory normalization
// functions the policy evaluator uses to turn a raw container stats
// snapshot into comparable percentages.
package accounting

// CPUStats mirrors the subset of the Docker Engine API's cpu_stats /
// precpu_stats objects this package needs. A field the API omitted is
// left at zero; OnlineCPUs and PerCPUUsageLen treat zero as "absent".
type CPUStats struct {
	TotalUsage      uint64
	SystemUsage     uint64
	OnlineCPUs      uint32
	PerCPUUsageLen  int
}

// Sample is one /containers/{id}/stats?stream=false snapshot, reduced
// to the fields the accounting formulas need.
type Sample struct {
	CPU        CPUStats
	PreCPU     CPUStats
	MemUsage   uint64
	MemLimit   uint64
}

// CPURawPercent implements the canonical docker-stats CPU formula:
//
//	cpu_delta = total_usage - precpu.total_usage
//	sys_delta = system_cpu_usage - precpu.system_cpu_usage
//	if cpu_delta > 0 and sys_delta > 0: (cpu_delta/sys_delta) * online_cpus * 100
//	else: 0
//
// online_cpus falls back to len(percpu_usage), then to 1, matching
// cpu_percent_v151 in the original implementation.
func CPURawPercent(s Sample) float64 {
	cpuDelta := float64(s.CPU.TotalUsage) - float64(s.PreCPU.TotalUsage)
	sysDelta := float64(s.CPU.SystemUsage) - float64(s.PreCPU.SystemUsage)
	if cpuDelta <= 0 || sysDelta <= 0 {
		return 0
	}
	online := onlineCPUs(s.CPU)
	return (cpuDelta / sysDelta) * float64(online) * 100.0
}

func onlineCPUs(c CPUStats) uint32 {
	if c.OnlineCPUs > 0 {
		return c.OnlineCPUs
	}
	if c.PerCPUUsageLen > 0 {
		return uint32(c.PerCPUUsageLen)
	}
	return 1
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// NormalizeCPUPercent expresses raw CPU% as a fraction of the
// container's effective CPU limit, so thresholds are meaningful per
// replica regardless of how many cores a task is allowed to use.
// A limitCPUs <= 0 means "no effective limit known": the raw percent
// is returned, clamped to [0, 100] (spec's Open Question, resolved in
// DESIGN.md to preserve the original's behavior without endorsement).
func NormalizeCPUPercent(rawPercent, limitCPUs float64) float64 {
	if limitCPUs <= 0 {
		return clamp(rawPercent, 0, 100)
	}
	const epsilon = 1e-9
	return clamp(rawPercent/maxFloat(limitCPUs, epsilon), 0, 100)
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
