package model

import (
	"fmt"
	"time"

	"github.com/pressflow/pacer/pkg/coordinator/support/util/exception"
)

// QueueStatus represents the state of a work-queue item.
type QueueStatus string

const (
	QueueStatusQueued     QueueStatus = "QUEUED"
	QueueStatusProcessing QueueStatus = "PROCESSING"
	QueueStatusCompleted  QueueStatus = "COMPLETED"
	QueueStatusFailed     QueueStatus = "FAILED"
)

// String returns the string representation of the QueueStatus.
func (s QueueStatus) String() string {
	return string(s)
}

// QueueItem is a claimable unit of backlog work. Items are created by an upstream
// producer, claimed by concurrent workers, and retained after completion for audit.
type QueueItem struct {
	ID       string
	Category string
	Payload  ExecutionContext
	Status   QueueStatus
	// PriorityTier orders claims; lower tiers are claimed first.
	PriorityTier int
	// LockOwner is the worker id holding the claim; empty when unclaimed.
	LockOwner string
	// LockedAt is when the current claim was taken.
	LockedAt *time.Time
	// RetryCount is the number of failed attempts so far.
	RetryCount int
	MaxRetries int
	// NextEligibleAt defers re-claiming after a failure; zero means immediately eligible.
	NextEligibleAt *time.Time
	ErrorDetail    string
	ResultRef      string
	CreateTime     time.Time
	LastUpdated    time.Time
	Version        int
}

// NewQueueItem creates a new QUEUED item for the given category.
func NewQueueItem(category string, priorityTier int, payload ExecutionContext, maxRetries int) *QueueItem {
	now := time.Now()
	if payload == nil {
		payload = NewExecutionContext()
	}
	return &QueueItem{
		ID:           NewID(),
		Category:     category,
		Payload:      payload,
		Status:       QueueStatusQueued,
		PriorityTier: priorityTier,
		MaxRetries:   maxRetries,
		CreateTime:   now,
		LastUpdated:  now,
	}
}

// LockExpired reports whether a PROCESSING item's lock has aged out and the item
// is reclaimable (abandoned-worker recovery).
func (qi *QueueItem) LockExpired(now time.Time, lockDuration time.Duration) bool {
	if qi.Status != QueueStatusProcessing || qi.LockedAt == nil {
		return false
	}
	return now.Sub(*qi.LockedAt) > lockDuration
}

// Eligible reports whether the item may be returned by a Claim call at `now`.
// QUEUED items must be past NextEligibleAt and under the retry budget;
// PROCESSING items are eligible again only once their lock has expired.
func (qi *QueueItem) Eligible(now time.Time, lockDuration time.Duration) bool {
	if qi.RetryCount >= qi.MaxRetries && qi.Status != QueueStatusProcessing {
		return false
	}
	switch qi.Status {
	case QueueStatusQueued:
		return qi.NextEligibleAt == nil || !now.Before(*qi.NextEligibleAt)
	case QueueStatusProcessing:
		return qi.LockExpired(now, lockDuration)
	default:
		return false
	}
}

// Claim marks the item PROCESSING under the given owner at `now`.
func (qi *QueueItem) Claim(owner string, now time.Time) {
	qi.Status = QueueStatusProcessing
	qi.LockOwner = owner
	lockedAt := now
	qi.LockedAt = &lockedAt
	qi.LastUpdated = now
}

// Complete marks the item COMPLETED with a reference to the produced result.
func (qi *QueueItem) Complete(resultRef string) {
	qi.Status = QueueStatusCompleted
	qi.ResultRef = resultRef
	qi.LockOwner = ""
	qi.LockedAt = nil
	qi.LastUpdated = time.Now()
}

// Fail records a failed attempt. Below the retry budget the item returns to
// QUEUED with the supplied eligibility delay; at or above it the item is
// dead-lettered permanently, preserving the error context for manual review.
// COMPLETED and dead-lettered items are terminal and cannot fail again.
func (qi *QueueItem) Fail(errDetail string, nextEligibleAt time.Time) error {
	if qi.Status == QueueStatusCompleted || qi.Status == QueueStatusFailed {
		return exception.NewValidationError("queue_item",
			fmt.Sprintf("cannot record a failure on item %s in terminal status %s", qi.ID, qi.Status), nil)
	}

	qi.RetryCount++
	qi.ErrorDetail = errDetail
	qi.LockOwner = ""
	qi.LockedAt = nil
	qi.LastUpdated = time.Now()

	if qi.RetryCount >= qi.MaxRetries {
		qi.Status = QueueStatusFailed
		qi.NextEligibleAt = nil
		return nil
	}
	qi.Status = QueueStatusQueued
	eligible := nextEligibleAt
	qi.NextEligibleAt = &eligible
	return nil
}

// DeadLettered reports whether the item has exhausted its retries permanently.
func (qi *QueueItem) DeadLettered() bool {
	return qi.Status == QueueStatusFailed
}
