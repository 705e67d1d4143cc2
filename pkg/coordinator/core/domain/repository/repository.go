package repository

// CoordinatorRepository is the interface for persisting coordination metadata.
// It embeds the smaller per-concern repository interfaces to separate concerns.
type CoordinatorRepository interface {
	ExecutionRecordRepository // definition in execution.go
	QueueRepository           // definition in queue.go
	PoolRepository            // definition in pool.go
	StateRepository           // definition in state.go
	MonitoringRepository      // definition in monitoring.go

	// Close releases resources (such as database connections) used by the repository.
	Close() error
}
