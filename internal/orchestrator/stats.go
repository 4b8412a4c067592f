package orchestrator

import (
	"context"
	"encoding/json"

	"github.com/payperplay/autoscaler/internal/accounting"
)

// rawStatsJSON mirrors the wire shape of GET /containers/{id}/stats -
// decoded independently of the SDK's own (frequently renamed) stats
// response struct, matching spec.md §4.1's framing of C1 as a typed
// wrapper over the documented JSON endpoints rather than an adapter
// bound to one SDK release's internal type names.
type rawStatsJSON struct {
	CPUStats struct {
		CPUUsage struct {
			TotalUsage   uint64   `json:"total_usage"`
			PercpuUsage  []uint64 `json:"percpu_usage"`
		} `json:"cpu_usage"`
		SystemUsage uint64 `json:"system_cpu_usage"`
		OnlineCPUs  uint32 `json:"online_cpus"`
	} `json:"cpu_stats"`
	PrecpuStats struct {
		CPUUsage struct {
			TotalUsage uint64 `json:"total_usage"`
		} `json:"cpu_usage"`
		SystemUsage uint64 `json:"system_cpu_usage"`
	} `json:"precpu_stats"`
	MemoryStats struct {
		Usage uint64 `json:"usage"`
		Limit uint64 `json:"limit"`
	} `json:"memory_stats"`
}

// ContainerStatsOnce fetches a single stats snapshot
// (stream=false, the one-shot form that still populates precpu_stats).
func (c *Client) ContainerStatsOnce(ctx context.Context, containerID string) (accounting.Sample, error) {
	resp, err := c.sdk.ContainerStats(ctx, containerID, false)
	if err != nil {
		return accounting.Sample{}, wrapTransport("ContainerStats", err)
	}
	defer resp.Body.Close()

	var raw rawStatsJSON
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return accounting.Sample{}, wrapTransport("ContainerStats.decode", err)
	}

	return accounting.Sample{
		CPU: accounting.CPUStats{
			TotalUsage:     raw.CPUStats.CPUUsage.TotalUsage,
			SystemUsage:    raw.CPUStats.SystemUsage,
			OnlineCPUs:     raw.CPUStats.OnlineCPUs,
			PerCPUUsageLen: len(raw.CPUStats.CPUUsage.PercpuUsage),
		},
		PreCPU: accounting.CPUStats{
			TotalUsage:  raw.PrecpuStats.CPUUsage.TotalUsage,
			SystemUsage: raw.PrecpuStats.SystemUsage,
		},
		MemUsage: raw.MemoryStats.Usage,
		MemLimit: raw.MemoryStats.Limit,
	}, nil
}
