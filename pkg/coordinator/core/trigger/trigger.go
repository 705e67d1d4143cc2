package trigger

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	config "github.com/pressflow/pacer/pkg/coordinator/core/config"
	coordinator "github.com/pressflow/pacer/pkg/coordinator/core/coordinator"
	logger "github.com/pressflow/pacer/pkg/coordinator/support/util/logger"
)

// Trigger is the internal recurring timer that invokes one tick per period.
// On shutdown it stops accepting new ticks immediately and lets an in-flight
// tick finish before terminating.
type Trigger struct {
	coordinator *coordinator.Coordinator
	period      time.Duration
	workerID    string
	stop        chan struct{}
	done        chan struct{}
}

// New creates a Trigger over the given coordinator.
func New(coord *coordinator.Coordinator, cfg config.CoordinatorConfig) *Trigger {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "pacer"
	}
	return &Trigger{
		coordinator: coord,
		period:      time.Duration(cfg.TickPeriodSeconds) * time.Second,
		workerID:    fmt.Sprintf("%s-%s", host, uuid.New().String()[:8]),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Start launches the timer loop. The first tick fires after one full period.
func (t *Trigger) Start() {
	go t.loop()
	logger.Infof("Trigger: ticking every %s as worker '%s'.", t.period, t.workerID)
}

// Stop requests shutdown and blocks until any in-flight tick has finished.
func (t *Trigger) Stop(ctx context.Context) error {
	close(t.stop)
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("trigger: shutdown timed out waiting for in-flight tick: %w", ctx.Err())
	}
}

// WorkerID returns the stable worker identity used for ticks from this process.
func (t *Trigger) WorkerID() string {
	return t.workerID
}

func (t *Trigger) loop() {
	defer close(t.done)
	ticker := time.NewTicker(t.period)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case now := <-ticker.C:
			// A fresh context per tick: the tick outlives no one but itself.
			result := t.coordinator.RunTick(context.Background(), t.workerID, now)
			if result.Err != nil {
				logger.Errorf("Trigger: tick failed: %v", result.Err)
			} else if result.Skipped != "" {
				logger.Infof("Trigger: tick skipped (%s).", result.Skipped)
			}
		}
	}
}
