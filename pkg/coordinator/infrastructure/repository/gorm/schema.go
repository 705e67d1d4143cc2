package gorm

import (
	"time"

	model "github.com/pressflow/pacer/pkg/coordinator/core/domain/model"
)

// ExecutionRecordEntity is a schema model used for persistence.
type ExecutionRecordEntity struct {
	ID            string `gorm:"primaryKey"`
	Category      string
	Status        model.ExecutionStatus
	Priority      float64
	ScheduledAt   time.Time
	StartedAt     *time.Time
	CompletedAt   *time.Time
	TimeoutAt     time.Time
	BatchSize     int
	CostEstimate  float64
	CostActual    float64
	Allocation    model.ResourceFootprint
	RetryCount    int
	MaxRetries    int
	WorkerID      string
	ErrorDetail   string
	InputContext  model.ExecutionContext
	OutputContext model.ExecutionContext
	Version       int
	CreateTime    time.Time
	LastUpdated   time.Time
}

func (ExecutionRecordEntity) TableName() string {
	return "pacer_execution_record"
}

// QueueItemEntity is a schema model used for persistence.
type QueueItemEntity struct {
	ID             string `gorm:"primaryKey"`
	Category       string
	Payload        model.ExecutionContext
	Status         model.QueueStatus
	PriorityTier   int
	LockOwner      string
	LockedAt       *time.Time
	RetryCount     int
	MaxRetries     int
	NextEligibleAt *time.Time
	ErrorDetail    string
	ResultRef      string
	CreateTime     time.Time
	LastUpdated    time.Time
	Version        int
}

func (QueueItemEntity) TableName() string {
	return "pacer_queue_item"
}

// ResourcePoolEntity is a schema model used for persistence.
type ResourcePoolEntity struct {
	Name              string `gorm:"primaryKey"`
	Type              model.ResourceType
	Used              float64
	Capacity          float64
	SoftLimitPct      float64
	HardLimitPct      float64
	BurstAllowance    float64
	ConsecutiveErrors int
	Available         bool
	Version           int
	LastUpdated       time.Time
}

func (ResourcePoolEntity) TableName() string {
	return "pacer_resource_pool"
}

// StateEntryEntity is a schema model used for persistence.
// Rows are append-only; nothing ever updates them.
type StateEntryEntity struct {
	ID                 string `gorm:"primaryKey"`
	State              model.CoordinatorState
	PreviousState      model.CoordinatorState
	EnteredAt          time.Time
	PreviousDurationMs int64
	Details            model.ExecutionContext
	CreateTime         time.Time
}

func (StateEntryEntity) TableName() string {
	return "pacer_state_log"
}

// AlertEntity is a schema model used for persistence.
type AlertEntity struct {
	ID          string `gorm:"primaryKey"`
	Type        string
	Severity    model.AlertSeverity
	Category    string
	Message     string
	MetricValue float64
	Threshold   float64
	CreatedAt   time.Time
	ResolvedAt  *time.Time
}

func (AlertEntity) TableName() string {
	return "pacer_alert"
}

// RecommendationEntity is a schema model used for persistence.
type RecommendationEntity struct {
	ID        string `gorm:"primaryKey"`
	Category  string
	Action    string
	Reason    string
	CreatedAt time.Time
}

func (RecommendationEntity) TableName() string {
	return "pacer_recommendation"
}

// UsageSampleEntity is a schema model used for persistence.
type UsageSampleEntity struct {
	ID          string `gorm:"primaryKey"`
	PoolName    string
	Used        float64
	Capacity    float64
	Utilization float64
	SampledAt   time.Time
}

func (UsageSampleEntity) TableName() string {
	return "pacer_usage_sample"
}
