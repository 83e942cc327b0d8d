package constants

// ItemStatus is the lifecycle of one file inside a run. Transitions only move forward.
type ItemStatus string

const (
	ItemStatusPending   ItemStatus = "pending"
	ItemStatusInFlight  ItemStatus = "in_flight"
	ItemStatusSucceeded ItemStatus = "succeeded"
	ItemStatusFailed    ItemStatus = "failed"
)

// Terminal reports whether no further transition is possible.
func (s ItemStatus) Terminal() bool {
	return s == ItemStatusSucceeded || s == ItemStatusFailed
}

func (s ItemStatus) rank() int {
	switch s {
	case ItemStatusPending:
		return 0
	case ItemStatusInFlight:
		return 1
	case ItemStatusSucceeded, ItemStatusFailed:
		return 2
	default:
		return -1
	}
}

// CanTransition reports whether moving from s to next keeps the status monotonic.
func (s ItemStatus) CanTransition(next ItemStatus) bool {
	return next.rank() > s.rank() && s.rank() >= 0
}

// RunState is the engine state machine.
type RunState string

const (
	RunStateIdle      RunState = "idle"
	RunStateRunning   RunState = "running"
	RunStateCompleted RunState = "completed"
	RunStateAborted   RunState = "aborted"
)
