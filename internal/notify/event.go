package notify

import "time"

// Kind distinguishes a batched scaling notification from an
// immediate error event.
type Kind string

const (
	KindEvent Kind = "event"
	KindError Kind = "error"
)

// Action identifies what happened to a service.
type Action string

const (
	ActionScaleUp           Action = "scale_up"
	ActionScaleDown         Action = "scale_down"
	ActionReplicasBelowMin  Action = "replicas_below_min"
	ActionReconcile         Action = "reconcile"
	ActionStartup           Action = "startup"
	ActionGracefulScaleDown Action = "graceful_scale_down"
)

// Event is one scaling notification, batched unless Kind is
// KindError.
type Event struct {
	TS         time.Time
	ServiceName string
	ServiceID  string
	Action     Action
	Old        int
	New        int
	CPUPercent float64
	MemPercent float64
	Reason     string
	Recipients []string
	Kind       Kind
}
