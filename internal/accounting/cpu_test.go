package accounting

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestCPURawPercent_NonPositiveDeltaYieldsZero(t *testing.T) {
	cases := []struct {
		name string
		s    Sample
	}{
		{"zero cpu delta", Sample{
			CPU:    CPUStats{TotalUsage: 100, SystemUsage: 500},
			PreCPU: CPUStats{TotalUsage: 100, SystemUsage: 400},
		}},
		{"negative cpu delta", Sample{
			CPU:    CPUStats{TotalUsage: 50, SystemUsage: 500},
			PreCPU: CPUStats{TotalUsage: 100, SystemUsage: 400},
		}},
		{"zero sys delta", Sample{
			CPU:    CPUStats{TotalUsage: 200, SystemUsage: 400},
			PreCPU: CPUStats{TotalUsage: 100, SystemUsage: 400},
		}},
		{"negative sys delta", Sample{
			CPU:    CPUStats{TotalUsage: 200, SystemUsage: 300},
			PreCPU: CPUStats{TotalUsage: 100, SystemUsage: 400},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, CPURawPercent(tc.s), 0.0)
		})
	}
}

func TestCPURawPercent_CanonicalFormula(t *testing.T) {
	s := Sample{
		CPU:    CPUStats{TotalUsage: 300, SystemUsage: 1000, OnlineCPUs: 4},
		PreCPU: CPUStats{TotalUsage: 100, SystemUsage: 600},
	}
	want := (200.0 / 400.0) * 4 * 100.0
	assert.Equal(t, CPURawPercent(s), want)
}

func TestCPURawPercent_OnlineCPUsFallback(t *testing.T) {
	s := Sample{
		CPU:    CPUStats{TotalUsage: 300, SystemUsage: 1000, PerCPUUsageLen: 2},
		PreCPU: CPUStats{TotalUsage: 100, SystemUsage: 600},
	}
	want := (200.0 / 400.0) * 2 * 100.0
	assert.Equal(t, CPURawPercent(s), want)

	s.CPU.PerCPUUsageLen = 0
	want = (200.0 / 400.0) * 1 * 100.0
	assert.Equal(t, CPURawPercent(s), want)
}

func TestNormalizeCPUPercent_ClampsRawWhenNoLimit(t *testing.T) {
	assert.Equal(t, NormalizeCPUPercent(150, 0), 100.0)
	assert.Equal(t, NormalizeCPUPercent(-5, 0), 0.0)
}

func TestNormalizeCPUPercent_DividesByLimit(t *testing.T) {
	assert.Equal(t, NormalizeCPUPercent(150, 2), 75.0)
	assert.Equal(t, NormalizeCPUPercent(400, 2), 100.0)
}

func TestParseCPUSet(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"0-2,4", 4},
		{" 0 - 2 , 4 ", 4},
		{"4,0-2", 4},
		{"0,1,2,3", 4},
		{"x-y", 0},
		{"0-2,garbage,4", 4},
	}
	for _, tc := range cases {
		got := ParseCPUSet(tc.in)
		assert.Equal(t, got, tc.want, "input %q", tc.in)
	}
}

func TestEffectiveCPULimit_PriorityOrder(t *testing.T) {
	// service-level wins over everything
	got := EffectiveCPULimit(
		ServiceLimits{NanoCPUs: 2_000_000_000},
		ContainerLimits{NanoCPUs: 4_000_000_000},
		8,
	)
	assert.Equal(t, got, 2.0)

	// container NanoCpus wins over quota/period and cpuset
	got = EffectiveCPULimit(
		ServiceLimits{},
		ContainerLimits{NanoCPUs: 1_500_000_000, CPUQuota: 400000, CPUPeriod: 100000},
		8,
	)
	assert.Equal(t, got, 1.5)

	// quota/period wins over cpuset
	got = EffectiveCPULimit(
		ServiceLimits{},
		ContainerLimits{CPUQuota: 150000, CPUPeriod: 100000, CPUSet: "0-3"},
		8,
	)
	assert.Equal(t, got, 1.5)

	// cpuset wins over online fallback
	got = EffectiveCPULimit(ServiceLimits{}, ContainerLimits{CPUSet: "0-2"}, 8)
	assert.Equal(t, got, 3.0)

	// nothing known -> online cpus
	got = EffectiveCPULimit(ServiceLimits{}, ContainerLimits{}, 8)
	assert.Equal(t, got, 8.0)
}
