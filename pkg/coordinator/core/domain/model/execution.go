package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pressflow/pacer/pkg/coordinator/support/util/exception"
	"github.com/pressflow/pacer/pkg/coordinator/support/util/logger"
)

// ExecutionStatus represents the state of a dispatched execution record.
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "PENDING"
	ExecutionStatusRunning   ExecutionStatus = "RUNNING"
	ExecutionStatusCompleted ExecutionStatus = "COMPLETED"
	ExecutionStatusFailed    ExecutionStatus = "FAILED"
	ExecutionStatusTimeout   ExecutionStatus = "TIMEOUT"
	ExecutionStatusCancelled ExecutionStatus = "CANCELLED"
)

// String returns the string representation of the ExecutionStatus.
func (s ExecutionStatus) String() string {
	return string(s)
}

// IsTerminal checks if the ExecutionStatus represents a finished state.
func (s ExecutionStatus) IsTerminal() bool {
	switch s {
	case ExecutionStatusCompleted, ExecutionStatusFailed, ExecutionStatusTimeout, ExecutionStatusCancelled:
		return true
	default:
		return false
	}
}

// IsActive checks if the record still counts against the concurrency cap.
func (s ExecutionStatus) IsActive() bool {
	return s == ExecutionStatusPending || s == ExecutionStatusRunning
}

// ResourceFootprint is the per-task resource allocation committed at reservation time.
type ResourceFootprint struct {
	MemoryMB      float64 `json:"memory_mb"`
	ExternalCalls float64 `json:"external_calls"`
	Connections   float64 `json:"connections"`
	Cost          float64 `json:"cost"`
}

// Value implements the `driver.Valuer` interface, converting the footprint to a JSON string.
func (f ResourceFootprint) Value() (driver.Value, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements the `sql.Scanner` interface, converting a JSON string to a ResourceFootprint.
func (f *ResourceFootprint) Scan(value interface{}) error {
	if value == nil {
		*f = ResourceFootprint{}
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported Scan type for ResourceFootprint: %T", value)
	}
	if len(b) == 0 {
		*f = ResourceFootprint{}
		return nil
	}
	if err := json.Unmarshal(b, f); err != nil {
		return fmt.Errorf("failed to unmarshal ResourceFootprint JSON: %w", err)
	}
	return nil
}

// AmountFor returns the footprint component charged against a pool of the given type.
func (f ResourceFootprint) AmountFor(t ResourceType) float64 {
	switch t {
	case ResourceTypeQuota:
		return f.ExternalCalls
	case ResourceTypeBudget:
		return f.Cost
	case ResourceTypeMemory:
		return f.MemoryMB
	case ResourceTypeConnections:
		return f.Connections
	default:
		return 0
	}
}

// Add returns the component-wise sum of two footprints.
func (f ResourceFootprint) Add(other ResourceFootprint) ResourceFootprint {
	return ResourceFootprint{
		MemoryMB:      f.MemoryMB + other.MemoryMB,
		ExternalCalls: f.ExternalCalls + other.ExternalCalls,
		Connections:   f.Connections + other.Connections,
		Cost:          f.Cost + other.Cost,
	}
}

// ExecutionRecord is the durable unit representing one dispatched batch of work.
// It is created in PENDING state by the reservation step and mutated by the
// external executor via status callbacks. Records are never deleted, only archived.
type ExecutionRecord struct {
	ID            string
	Category      string
	Status        ExecutionStatus
	Priority      float64
	ScheduledAt   time.Time
	StartedAt     *time.Time
	CompletedAt   *time.Time
	TimeoutAt     time.Time
	BatchSize     int
	CostEstimate  float64
	CostActual    float64
	Allocation    ResourceFootprint
	RetryCount    int
	MaxRetries    int
	WorkerID      string
	ErrorDetail   string
	InputContext  ExecutionContext
	OutputContext ExecutionContext
	Version       int
	CreateTime    time.Time
	LastUpdated   time.Time
}

// NewExecutionRecord creates a new PENDING ExecutionRecord for one planned task.
func NewExecutionRecord(category string, batchSize int, priority float64, costEstimate float64, allocation ResourceFootprint, scheduledAt time.Time, timeoutAt time.Time, maxRetries int, workerID string) *ExecutionRecord {
	now := time.Now()
	return &ExecutionRecord{
		ID:            NewID(),
		Category:      category,
		Status:        ExecutionStatusPending,
		Priority:      priority,
		ScheduledAt:   scheduledAt,
		TimeoutAt:     timeoutAt,
		BatchSize:     batchSize,
		CostEstimate:  costEstimate,
		Allocation:    allocation,
		MaxRetries:    maxRetries,
		WorkerID:      workerID,
		InputContext:  NewExecutionContext(),
		OutputContext: NewExecutionContext(),
		CreateTime:    now,
		LastUpdated:   now,
	}
}

// isValidExecutionTransition checks if the state transition for an ExecutionRecord is valid.
// Statuses only move forward; terminal states accept no further transitions.
func isValidExecutionTransition(current, next ExecutionStatus) bool {
	switch current {
	case ExecutionStatusPending:
		return next == ExecutionStatusRunning || next == ExecutionStatusFailed ||
			next == ExecutionStatusTimeout || next == ExecutionStatusCancelled
	case ExecutionStatusRunning:
		return next == ExecutionStatusCompleted || next == ExecutionStatusFailed ||
			next == ExecutionStatusTimeout || next == ExecutionStatusCancelled
	case ExecutionStatusCompleted, ExecutionStatusFailed, ExecutionStatusTimeout, ExecutionStatusCancelled:
		return false
	default:
		return false
	}
}

// TransitionTo safely transitions the state of the ExecutionRecord.
// Fields other than Status and LastUpdated must be set separately by the caller.
func (er *ExecutionRecord) TransitionTo(newStatus ExecutionStatus) error {
	if !isValidExecutionTransition(er.Status, newStatus) {
		return exception.NewValidationError("execution_record",
			fmt.Sprintf("ExecutionRecord (ID: %s): invalid state transition: %s -> %s", er.ID, er.Status, newStatus), nil)
	}
	er.Status = newStatus
	er.LastUpdated = time.Now()
	return nil
}

// MarkAsRunning updates the record status to RUNNING and stamps the start time.
func (er *ExecutionRecord) MarkAsRunning(workerID string) error {
	if err := er.TransitionTo(ExecutionStatusRunning); err != nil {
		return err
	}
	now := time.Now()
	er.StartedAt = &now
	er.WorkerID = workerID
	return nil
}

// MarkAsCompleted updates the record status to COMPLETED with the actual cost.
func (er *ExecutionRecord) MarkAsCompleted(costActual float64, output ExecutionContext) error {
	if err := er.TransitionTo(ExecutionStatusCompleted); err != nil {
		return err
	}
	now := time.Now()
	er.CompletedAt = &now
	er.CostActual = costActual
	if output != nil {
		er.OutputContext = output
	}
	return nil
}

// MarkAsFailed updates the record status to FAILED and captures error detail.
func (er *ExecutionRecord) MarkAsFailed(err error) error {
	if terr := er.TransitionTo(ExecutionStatusFailed); terr != nil {
		return terr
	}
	now := time.Now()
	er.CompletedAt = &now
	if err != nil {
		er.ErrorDetail = exception.ExtractErrorMessage(err)
	}
	return nil
}

// MarkAsTimedOut updates the record status to TIMEOUT.
// Called by the monitoring sweep when TimeoutAt has passed without a callback.
func (er *ExecutionRecord) MarkAsTimedOut() error {
	if err := er.TransitionTo(ExecutionStatusTimeout); err != nil {
		return err
	}
	now := time.Now()
	er.CompletedAt = &now
	if er.ErrorDetail == "" {
		er.ErrorDetail = fmt.Sprintf("no executor callback before deadline %s", er.TimeoutAt.Format(time.RFC3339))
	}
	logger.Warnf("ExecutionRecord (ID: %s, category: %s) timed out.", er.ID, er.Category)
	return nil
}

// MarkAsCancelled updates the record status to CANCELLED.
func (er *ExecutionRecord) MarkAsCancelled(reason string) error {
	if err := er.TransitionTo(ExecutionStatusCancelled); err != nil {
		return err
	}
	now := time.Now()
	er.CompletedAt = &now
	er.ErrorDetail = reason
	return nil
}

// Duration returns the wall-clock execution time, or zero when not yet finished.
func (er *ExecutionRecord) Duration() time.Duration {
	if er.StartedAt == nil || er.CompletedAt == nil {
		return 0
	}
	return er.CompletedAt.Sub(*er.StartedAt)
}
