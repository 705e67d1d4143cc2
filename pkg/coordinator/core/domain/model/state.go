package model

import (
	"fmt"
	"time"

	"github.com/pressflow/pacer/pkg/coordinator/support/util/exception"
)

// CoordinatorState names a phase of the coordinator's tick state machine.
type CoordinatorState string

const (
	StateIdle          CoordinatorState = "IDLE"
	StateAnalyzing     CoordinatorState = "ANALYZING"
	StateDispatching   CoordinatorState = "DISPATCHING"
	StateMonitoring    CoordinatorState = "MONITORING"
	StateErrorRecovery CoordinatorState = "ERROR_RECOVERY"
	StateCooldown      CoordinatorState = "COOLDOWN"
	StateCompleted     CoordinatorState = "COMPLETED"
)

// String returns the string representation of the CoordinatorState.
func (s CoordinatorState) String() string {
	return string(s)
}

// isValidCoordinatorTransition checks the allowed edge set of the state machine.
// Any state may fall into ERROR_RECOVERY on an unhandled fault; every other edge
// is explicit. Edges outside this set are rejected by construction: the only way
// to obtain a CoordinatorStateEntry is NewStateEntry, which consults this table.
func isValidCoordinatorTransition(current, next CoordinatorState) bool {
	if next == StateErrorRecovery {
		return true
	}
	switch current {
	case StateIdle:
		return next == StateAnalyzing
	case StateAnalyzing:
		return next == StateDispatching || next == StateIdle
	case StateDispatching:
		return next == StateMonitoring
	case StateMonitoring:
		return next == StateIdle
	case StateErrorRecovery:
		return next == StateCooldown
	case StateCooldown:
		return next == StateIdle
	case StateCompleted:
		return false
	default:
		return false
	}
}

// CoordinatorStateEntry is one append-only row of the coordinator's transition
// log. Entries are written once per transition and never updated.
type CoordinatorStateEntry struct {
	ID            string
	State         CoordinatorState
	PreviousState CoordinatorState
	EnteredAt     time.Time
	// PreviousDuration is how long the previous state lasted, computed at
	// transition time.
	PreviousDuration time.Duration
	// Details carries free-form diagnostic payload for the transition.
	Details    ExecutionContext
	CreateTime time.Time
}

// NewStateEntry validates the edge and constructs the transition entry.
// It is the sole constructor for CoordinatorStateEntry; an invalid edge such as
// COMPLETED -> DISPATCHING cannot produce an entry.
func NewStateEntry(previous *CoordinatorStateEntry, next CoordinatorState, at time.Time, details ExecutionContext) (*CoordinatorStateEntry, error) {
	prevState := StateIdle
	var prevDuration time.Duration
	if previous != nil {
		prevState = previous.State
		prevDuration = at.Sub(previous.EnteredAt)
	}

	if !isValidCoordinatorTransition(prevState, next) {
		return nil, exception.NewValidationError("state_machine",
			fmt.Sprintf("invalid coordinator state transition: %s -> %s", prevState, next), nil)
	}

	if details == nil {
		details = NewExecutionContext()
	}
	return &CoordinatorStateEntry{
		ID:               NewID(),
		State:            next,
		PreviousState:    prevState,
		EnteredAt:        at,
		PreviousDuration: prevDuration,
		Details:          details,
		CreateTime:       time.Now(),
	}, nil
}

// InFlight reports whether the state belongs to an active tick. Used by the
// single-flight guard to refuse overlapping ticks.
func (s CoordinatorState) InFlight() bool {
	return s == StateAnalyzing || s == StateDispatching
}
