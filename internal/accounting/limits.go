package accounting

import (
	"strconv"
	"strings"
)

// ServiceLimits carries the service-level CPU limit, if the task
// template declares one.
type ServiceLimits struct {
	NanoCPUs int64 // Spec.TaskTemplate.Resources.Limits.NanoCPUs; 0 if unset
}

// ContainerLimits carries the container-level CPU limit fields, in
// the priority order effective_cpu_limit resolves them.
type ContainerLimits struct {
	NanoCPUs  int64  // HostConfig.NanoCpus; 0 if unset
	CPUQuota  int64  // HostConfig.CpuQuota; <=0 if unset
	CPUPeriod int64  // HostConfig.CpuPeriod; 0 if unset
	CPUSet    string // HostConfig.CpusetCpus, e.g. "0-2,4"
}

// EffectiveCPULimit resolves the number of CPUs a container is
// entitled to, in the order: service-level NanoCPUs, container
// HostConfig NanoCpus, CpuQuota/CpuPeriod, CpusetCpus range count,
// online_cpus fallback. A 0 result means "no effective limit known".
func EffectiveCPULimit(svc ServiceLimits, ctr ContainerLimits, onlineCPUs uint32) float64 {
	if svc.NanoCPUs > 0 {
		return float64(svc.NanoCPUs) / 1e9
	}
	if ctr.NanoCPUs > 0 {
		return float64(ctr.NanoCPUs) / 1e9
	}
	if ctr.CPUQuota > 0 && ctr.CPUPeriod > 0 {
		return float64(ctr.CPUQuota) / float64(ctr.CPUPeriod)
	}
	if n := ParseCPUSet(ctr.CPUSet); n > 0 {
		return float64(n)
	}
	return float64(onlineCPUs)
}

// ParseCPUSet interprets a cpuset string like "0-2,4" and returns the
// number of distinct CPUs it names. Malformed segments are skipped,
// not fatal; an empty string yields 0. Order and whitespace don't
// matter - the result is the size of the deduplicated set.
func ParseCPUSet(cpuset string) int {
	if cpuset == "" {
		return 0
	}
	cpus := make(map[int]struct{})
	for _, part := range strings.Split(cpuset, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.Contains(part, "-") {
			bounds := strings.SplitN(part, "-", 2)
			if len(bounds) != 2 {
				continue
			}
			a, errA := strconv.Atoi(strings.TrimSpace(bounds[0]))
			b, errB := strconv.Atoi(strings.TrimSpace(bounds[1]))
			if errA != nil || errB != nil {
				continue
			}
			lo, hi := a, b
			if lo > hi {
				lo, hi = hi, lo
			}
			for x := lo; x <= hi; x++ {
				cpus[x] = struct{}{}
			}
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			continue
		}
		cpus[n] = struct{}{}
	}
	return len(cpus)
}
