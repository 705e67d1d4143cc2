// Package model_test provides unit tests for the coordinator state machine.
package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	model "github.com/pressflow/pacer/pkg/coordinator/core/domain/model"
	"github.com/pressflow/pacer/pkg/coordinator/support/util/exception"
)

// mustEntry builds a state entry for a valid edge, failing the test otherwise.
func mustEntry(t *testing.T, previous *model.CoordinatorStateEntry, next model.CoordinatorState, at time.Time) *model.CoordinatorStateEntry {
	t.Helper()
	entry, err := model.NewStateEntry(previous, next, at, nil)
	assert.NoError(t, err)
	assert.NotNil(t, entry)
	return entry
}

func TestNewStateEntry_NilPreviousDefaultsToIdle(t *testing.T) {
	now := time.Now()
	entry := mustEntry(t, nil, model.StateAnalyzing, now)

	assert.Equal(t, model.StateIdle, entry.PreviousState)
	assert.Equal(t, model.StateAnalyzing, entry.State)
	assert.Equal(t, time.Duration(0), entry.PreviousDuration)
	assert.NotEmpty(t, entry.ID)
	assert.NotNil(t, entry.Details)
}

func TestNewStateEntry_FullTickCycle(t *testing.T) {
	now := time.Now()
	analyzing := mustEntry(t, nil, model.StateAnalyzing, now)
	dispatching := mustEntry(t, analyzing, model.StateDispatching, now.Add(2*time.Second))
	monitoring := mustEntry(t, dispatching, model.StateMonitoring, now.Add(5*time.Second))
	idle := mustEntry(t, monitoring, model.StateIdle, now.Add(6*time.Second))

	assert.Equal(t, model.StateAnalyzing, dispatching.PreviousState)
	assert.Equal(t, 2*time.Second, dispatching.PreviousDuration)
	assert.Equal(t, 3*time.Second, monitoring.PreviousDuration)
	assert.Equal(t, model.StateIdle, idle.State)
}

func TestNewStateEntry_ErrorRecoveryReachableFromAnywhere(t *testing.T) {
	now := time.Now()
	for _, from := range []model.CoordinatorState{
		model.StateIdle, model.StateAnalyzing, model.StateDispatching,
		model.StateMonitoring, model.StateCooldown, model.StateCompleted,
	} {
		previous := &model.CoordinatorStateEntry{State: from, EnteredAt: now}
		entry, err := model.NewStateEntry(previous, model.StateErrorRecovery, now.Add(time.Second), nil)
		assert.NoError(t, err, "ERROR_RECOVERY must be reachable from %s", from)
		assert.Equal(t, from, entry.PreviousState)
	}
}

func TestNewStateEntry_RecoveryPath(t *testing.T) {
	now := time.Now()
	recovery := mustEntry(t, &model.CoordinatorStateEntry{State: model.StateDispatching, EnteredAt: now}, model.StateErrorRecovery, now)
	cooldown := mustEntry(t, recovery, model.StateCooldown, now.Add(time.Second))
	idle := mustEntry(t, cooldown, model.StateIdle, now.Add(10*time.Minute))

	assert.Equal(t, model.StateCooldown, cooldown.State)
	assert.Equal(t, model.StateIdle, idle.State)
}

func TestNewStateEntry_InvalidEdgesRejected(t *testing.T) {
	now := time.Now()
	invalid := []struct {
		from model.CoordinatorState
		to   model.CoordinatorState
	}{
		{model.StateCompleted, model.StateDispatching},
		{model.StateCompleted, model.StateIdle},
		{model.StateIdle, model.StateDispatching},
		{model.StateIdle, model.StateMonitoring},
		{model.StateAnalyzing, model.StateMonitoring},
		{model.StateDispatching, model.StateIdle},
		{model.StateMonitoring, model.StateDispatching},
		{model.StateCooldown, model.StateAnalyzing},
		{model.StateErrorRecovery, model.StateIdle},
	}
	for _, tc := range invalid {
		previous := &model.CoordinatorStateEntry{State: tc.from, EnteredAt: now}
		entry, err := model.NewStateEntry(previous, tc.to, now.Add(time.Second), nil)
		assert.Error(t, err, "edge %s -> %s must be rejected", tc.from, tc.to)
		assert.Nil(t, entry)
		assert.Equal(t, exception.KindValidation, exception.KindOf(err))
	}
}

func TestCoordinatorState_InFlight(t *testing.T) {
	assert.True(t, model.StateAnalyzing.InFlight())
	assert.True(t, model.StateDispatching.InFlight())
	assert.False(t, model.StateIdle.InFlight())
	assert.False(t, model.StateMonitoring.InFlight())
	assert.False(t, model.StateCooldown.InFlight())
	assert.False(t, model.StateErrorRecovery.InFlight())
}
