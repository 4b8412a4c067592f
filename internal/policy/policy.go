package policy

import "time"

// Defaults carries the process-wide fallback values a ServicePolicy
// falls back to when a service doesn't override them via labels: the
// env-configured pieces from pkg/config plus the label prefix itself.
type Defaults struct {
	LabelPrefix          string
	DefaultMinReplicas   int
	DefaultMaxReplicas   int
	DefaultCooldown      time.Duration
	NotifyEnabledDefault bool
	NotifyRecipients     []string
}

// ServicePolicy is the decoded, defaulted label set for one service.
type ServicePolicy struct {
	Enabled bool

	CPUMax float64
	CPUMin float64
	MemMax float64
	MemMin float64

	MinReplicas int
	MaxReplicas int

	Cooldown time.Duration

	ScaleDownEnabled bool
	PreStopCmd       string
	PreStopTimeout   time.Duration
	StopTimeout      time.Duration

	NotifyEnabled    bool
	NotifyRecipients []string
}

// FromLabels decodes a ServicePolicy from a service's label map,
// applying defaults where a label is absent or malformed.
func FromLabels(labels map[string]string, d Defaults) ServicePolicy {
	p := d.LabelPrefix

	cooldownSeconds := labelInt(labels, p, "cooldown", int(d.DefaultCooldown.Seconds()))
	preStopTimeout := labelInt(labels, p, "pre_stop.timeout", 600)
	stopTimeout := labelInt(labels, p, "stop.timeout", 30)

	return ServicePolicy{
		Enabled: labelBool(labels, p, "enable", false),

		CPUMax: labelFloat(labels, p, "cpu.max", 80),
		CPUMin: labelFloat(labels, p, "cpu.min", 20),
		MemMax: labelFloat(labels, p, "mem.max", 80),
		MemMin: labelFloat(labels, p, "mem.min", 20),

		MinReplicas: labelInt(labels, p, "min", d.DefaultMinReplicas),
		MaxReplicas: labelInt(labels, p, "max", d.DefaultMaxReplicas),

		Cooldown: time.Duration(cooldownSeconds) * time.Second,

		ScaleDownEnabled: labelBool(labels, p, "scale_down.enable", true),
		PreStopCmd:       labelString(labels, p, "pre_stop.cmd", ""),
		PreStopTimeout:   time.Duration(preStopTimeout) * time.Second,
		StopTimeout:      time.Duration(stopTimeout) * time.Second,

		NotifyEnabled:    labelBool(labels, p, "notify.email.enable", d.NotifyEnabledDefault),
		NotifyRecipients: labelCSV(labels, p, "notify.email.to", d.NotifyRecipients),
	}
}
