package config

// Package config provides structures and utilities for managing the coordinator configuration.

// EmbeddedConfig holds the content of the configuration file, typically passed from main.go.
type EmbeddedConfig []byte

// CoordinatorConfig holds global tunables for the tick pipeline.
type CoordinatorConfig struct {
	// TickPeriodSeconds is the period of the recurring tick trigger.
	TickPeriodSeconds int `yaml:"tick_period_seconds"`
	// DispatchThreshold is the minimum priority score a category needs to be dispatched.
	DispatchThreshold float64 `yaml:"dispatch_threshold"`
	// MaxConcurrentExecutions is the hard cap on records in pending/running state.
	MaxConcurrentExecutions int `yaml:"max_concurrent_executions"`
	// FailureWindowMinutes is the trailing window inspected by the health gate.
	FailureWindowMinutes int `yaml:"failure_window_minutes"`
	// FailureThreshold is the number of failures inside the window that hard-stops a tick.
	FailureThreshold int `yaml:"failure_threshold"`
	// CooldownSeconds is the backoff window after a tick fault before ticks are accepted again.
	CooldownSeconds int `yaml:"cooldown_seconds"`
	// StartOffsetGapSeconds is the fixed gap between planned task start offsets.
	StartOffsetGapSeconds int `yaml:"start_offset_gap_seconds"`
	// WarningBacklogDepth is the queue depth above which the health gate emits a soft warning.
	WarningBacklogDepth int `yaml:"warning_backlog_depth"`
	// WarningMeanLatencySeconds is the mean execution latency above which a soft warning is emitted.
	WarningMeanLatencySeconds int `yaml:"warning_mean_latency_seconds"`
}

// QueueConfig holds work-queue claim and retry tunables.
type QueueConfig struct {
	// LockDurationMinutes is how long a claimed item is presumed owned before being reclaimable.
	LockDurationMinutes int `yaml:"lock_duration_minutes"`
	// MaxRetries is the retry budget before an item is dead-lettered.
	MaxRetries int `yaml:"max_retries"`
	// BackoffScheduleSeconds is the escalating delay per retry attempt.
	// Attempts beyond the schedule reuse the last entry.
	BackoffScheduleSeconds []int `yaml:"backoff_schedule_seconds"`
}

// ResourceConfig holds the capacities of the shared resource pools.
type ResourceConfig struct {
	// DailyBudget is the monetary budget pool capacity.
	DailyBudget float64 `yaml:"daily_budget"`
	// ExternalCallQuota is the third-party call quota pool capacity.
	ExternalCallQuota float64 `yaml:"external_call_quota"`
	// MemoryCeilingMB is the memory pool capacity in megabytes.
	MemoryCeilingMB float64 `yaml:"memory_ceiling_mb"`
	// ConnectionCeiling is the connection slot pool capacity.
	ConnectionCeiling float64 `yaml:"connection_ceiling"`
	// BurstAllowancePct is the fraction of capacity a reservation may exceed it by (e.g., 0.1).
	BurstAllowancePct float64 `yaml:"burst_allowance_pct"`
}

// AlertThresholdConfig holds the threshold rules evaluated by the monitor.
type AlertThresholdConfig struct {
	// MinSuccessRate raises a warning alert when a category's 5m success rate drops below it.
	MinSuccessRate float64 `yaml:"min_success_rate"`
	// MaxErrorCount raises a critical alert when a category's 5m error count exceeds it.
	MaxErrorCount int `yaml:"max_error_count"`
	// MaxMeanDurationSeconds raises a warning alert when a category's 5m mean duration exceeds it.
	MaxMeanDurationSeconds int `yaml:"max_mean_duration_seconds"`
	// MaxHourlyCost raises a warning alert when a category's 1h cost exceeds it.
	MaxHourlyCost float64 `yaml:"max_hourly_cost"`
}

// MonitoringConfig holds monitor and alerting tunables.
type MonitoringConfig struct {
	// AlertThresholds are the per-metric threshold rules.
	AlertThresholds AlertThresholdConfig `yaml:"alert_thresholds"`
	// RecordTimeoutMinutes is the default timeout for dispatched execution records.
	RecordTimeoutMinutes int `yaml:"record_timeout_minutes"`
}

// CategoryConfig holds the static per-category work configuration. Immutable during a tick.
type CategoryConfig struct {
	// BaseIntervalMinutes is the category's base cadence.
	BaseIntervalMinutes int `yaml:"base_interval_minutes"`
	// BasePriority is the category's base priority score.
	BasePriority float64 `yaml:"base_priority"`
	// MaxBatchSize bounds the proposed batch size.
	MaxBatchSize int `yaml:"max_batch_size"`
	// CostPerItem is the estimated monetary cost per generated item.
	CostPerItem float64 `yaml:"cost_per_item"`
	// SuccessFloor is the minimum acceptable predicted success rate.
	SuccessFloor float64 `yaml:"success_floor"`
	// Kind selects the batch heuristic: "generation" (backlog/5) or "lightweight" (backlog).
	Kind string `yaml:"kind"`
	// Aggregates lists categories this one summarizes; the planner orders it after them.
	Aggregates []string `yaml:"aggregates"`
	// MemoryPerItemMB is the static memory footprint multiplier.
	MemoryPerItemMB float64 `yaml:"memory_per_item_mb"`
	// CallsPerItem is the static external-call footprint multiplier.
	CallsPerItem float64 `yaml:"calls_per_item"`
	// SecondsPerItem is the estimated execution duration multiplier.
	SecondsPerItem float64 `yaml:"seconds_per_item"`
	// Pools lists the resource pool names this category consumes.
	Pools []string `yaml:"pools"`
}

// ArchiveConfig holds record-archival tunables.
type ArchiveConfig struct {
	// StorageRef is the name of the storage connection archives are written to.
	StorageRef string `yaml:"storage_ref"`
	// OutputBaseDir is the base directory within the storage target.
	OutputBaseDir string `yaml:"output_base_dir"`
	// RetentionDays is how long terminal records stay in the store before archival.
	RetentionDays int `yaml:"retention_days"`
	// CompressionType is the parquet compression type ("SNAPPY", "GZIP", "NONE").
	CompressionType string `yaml:"compression_type"`
}

// TelemetryConfig holds tracing exporter settings.
type TelemetryConfig struct {
	// Enabled toggles the OTLP trace exporter. When false a no-op tracer is installed.
	Enabled bool `yaml:"enabled"`
	// Endpoint is the OTLP/HTTP collector endpoint (host:port).
	Endpoint string `yaml:"endpoint"`
	// ServiceName identifies this process in emitted traces.
	ServiceName string `yaml:"service_name"`
	// MetricsPort is the port the Prometheus scrape endpoint listens on; 0 disables it.
	MetricsPort int `yaml:"metrics_port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the logging level (e.g., "INFO", "DEBUG").
	Level string `yaml:"level"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	// Timezone is the application timezone used for calendar-aware scheduling (e.g., "UTC").
	Timezone string `yaml:"timezone"`
	// Logging is the logging configuration.
	Logging LoggingConfig `yaml:"logging"`
}

// InfrastructureConfig holds logical dependency settings for infrastructure components.
type InfrastructureConfig struct {
	// CoordinatorDBRef is the name of the DB connection used by the coordinator store.
	CoordinatorDBRef string `yaml:"coordinator_db_ref"`
}

// PacerConfig holds all configuration under the "pacer" top-level key.
type PacerConfig struct {
	// Coordinator contains tick pipeline tunables.
	Coordinator CoordinatorConfig `yaml:"coordinator"`
	// Queue contains work-queue tunables.
	Queue QueueConfig `yaml:"queue"`
	// Resources contains resource pool capacities.
	Resources ResourceConfig `yaml:"resources"`
	// Monitoring contains alert thresholds and timeouts.
	Monitoring MonitoringConfig `yaml:"monitoring"`
	// Categories maps category id to its static work configuration.
	Categories map[string]CategoryConfig `yaml:"categories"`
	// Archive contains record-archival settings.
	Archive ArchiveConfig `yaml:"archive"`
	// Telemetry contains tracing settings.
	Telemetry TelemetryConfig `yaml:"telemetry"`
	// System contains system-wide configurations.
	System SystemConfig `yaml:"system"`
	// Infrastructure contains infrastructure-related configurations.
	Infrastructure InfrastructureConfig `yaml:"infrastructure"`
	// AdapterConfigs holds configurations for database connections, keyed by name.
	AdapterConfigs map[string]interface{} `yaml:"database"`
	// StorageConfigs holds configurations for storage connections, keyed by name.
	StorageConfigs map[string]interface{} `yaml:"storage"`
}

// Config is the root structure for the entire application configuration.
// It is loaded once at startup and treated as immutable afterwards.
type Config struct {
	// Pacer contains the top-level configuration for the coordinator.
	Pacer PacerConfig `yaml:"pacer"`
	// EmbeddedConfig holds configuration loaded from an embedded source, not from YAML.
	EmbeddedConfig EmbeddedConfig `yaml:"-"`
}

// NewConfig returns a new instance of Config with default values.
func NewConfig() *Config {
	cfg := &Config{
		Pacer: PacerConfig{
			Coordinator: CoordinatorConfig{
				TickPeriodSeconds:         300,
				DispatchThreshold:         50,
				MaxConcurrentExecutions:   10,
				FailureWindowMinutes:      30,
				FailureThreshold:          5,
				CooldownSeconds:           600,
				StartOffsetGapSeconds:     30,
				WarningBacklogDepth:       200,
				WarningMeanLatencySeconds: 300,
			},
			Queue: QueueConfig{
				LockDurationMinutes:    30,
				MaxRetries:             3,
				BackoffScheduleSeconds: []int{60, 300, 900},
			},
			Resources: ResourceConfig{
				DailyBudget:       100,
				ExternalCallQuota: 10000,
				MemoryCeilingMB:   4096,
				ConnectionCeiling: 50,
				BurstAllowancePct: 0.1,
			},
			Monitoring: MonitoringConfig{
				AlertThresholds: AlertThresholdConfig{
					MinSuccessRate:         0.8,
					MaxErrorCount:          10,
					MaxMeanDurationSeconds: 600,
					MaxHourlyCost:          20,
				},
				RecordTimeoutMinutes: 60,
			},
			Archive: ArchiveConfig{
				OutputBaseDir:   "executions",
				RetentionDays:   30,
				CompressionType: "SNAPPY",
			},
			Telemetry: TelemetryConfig{
				Enabled:     false,
				ServiceName: "pacer",
			},
			System: SystemConfig{
				Timezone: "UTC",
				Logging:  LoggingConfig{Level: "INFO"},
			},
			Infrastructure: InfrastructureConfig{
				CoordinatorDBRef: "metadata",
			},
		},
	}

	cfg.Pacer.Categories = map[string]CategoryConfig{}
	cfg.Pacer.AdapterConfigs = map[string]interface{}{}
	cfg.Pacer.StorageConfigs = map[string]interface{}{}
	return cfg
}
