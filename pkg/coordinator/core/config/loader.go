package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/pressflow/pacer/pkg/coordinator/support/util/exception"
	"github.com/pressflow/pacer/pkg/coordinator/support/util/logger"

	"go.uber.org/fx"
)

// Package config provides utilities for loading and managing the coordinator
// configuration from embedded YAML and environment variables.

const componentName = "config"

// ConfigParams defines the dependencies for NewConfigProvider.
type ConfigParams struct {
	fx.In
	EmbeddedConfig EmbeddedConfig
	EnvFilePath    string `name:"envFilePath" optional:"true"`
}

// loadConfig loads configuration from the embedded file and environment variables.
// It is intended to be called only once during application startup.
func loadConfig(envFilePath string, embeddedConfig EmbeddedConfig) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Warnf(".env file (%s) not found or could not be loaded: %v", envFilePath, err)
		}
	} else {
		if err := godotenv.Load(); err != nil {
			logger.Debugf(".env file not found or could not be loaded: %v", err)
		}
	}

	cfg := NewConfig()

	// Parse the embedded YAML into a scratch Config, then deep-merge it over the defaults.
	var yamlConfig Config
	if err := yaml.Unmarshal(embeddedConfig, &yamlConfig); err != nil {
		return nil, exception.NewValidationError(componentName, "failed to unmarshal embedded config", err)
	}

	mergeConfig(cfg, &yamlConfig)

	// Environment variables override everything.
	if err := loadStructFromEnv(reflect.ValueOf(cfg).Elem(), ""); err != nil {
		return nil, exception.NewValidationError(componentName, "failed to load config from environment variables", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewConfigProvider is an Fx provider that loads and provides *Config.
func NewConfigProvider(params ConfigParams) (*Config, error) {
	cfg, err := loadConfig(params.EnvFilePath, params.EmbeddedConfig)
	if err != nil {
		return nil, err
	}

	logger.SetLogLevel(cfg.Pacer.System.Logging.Level)
	logger.Infof("Log level set to: %s", cfg.Pacer.System.Logging.Level)

	return cfg, nil
}

// LoadConfig loads configuration from the embedded file and environment variables.
func LoadConfig(envFilePath string, embeddedConfig EmbeddedConfig) (*Config, error) {
	return loadConfig(envFilePath, embeddedConfig)
}

// validate rejects configurations the coordinator cannot operate under.
func validate(cfg *Config) error {
	c := cfg.Pacer.Coordinator
	if c.TickPeriodSeconds <= 0 {
		return exception.NewValidationError(componentName, "tick_period_seconds must be positive", nil)
	}
	if c.MaxConcurrentExecutions <= 0 {
		return exception.NewValidationError(componentName, "max_concurrent_executions must be positive", nil)
	}
	if cfg.Pacer.Queue.MaxRetries < 0 {
		return exception.NewValidationError(componentName, "max_retries cannot be negative", nil)
	}
	if len(cfg.Pacer.Queue.BackoffScheduleSeconds) == 0 {
		return exception.NewValidationError(componentName, "backoff_schedule_seconds must have at least one entry", nil)
	}
	for id, cat := range cfg.Pacer.Categories {
		if cat.BaseIntervalMinutes <= 0 {
			return exception.NewValidationError(componentName, fmt.Sprintf("category '%s': base_interval_minutes must be positive", id), nil)
		}
		if cat.MaxBatchSize <= 0 {
			return exception.NewValidationError(componentName, fmt.Sprintf("category '%s': max_batch_size must be positive", id), nil)
		}
		if cat.SuccessFloor < 0 || cat.SuccessFloor > 1 {
			return exception.NewValidationError(componentName, fmt.Sprintf("category '%s': success_floor must be within [0,1]", id), nil)
		}
	}
	return nil
}

// mergeConfig performs a deep merge from sourceConfig into destConfig.
// Values in sourceConfig overwrite corresponding values in destConfig
// if they are not zero/empty values for their type.
func mergeConfig(destConfig, sourceConfig *Config) {
	mergePacerConfig(&destConfig.Pacer, &sourceConfig.Pacer)
}

func mergePacerConfig(dest, source *PacerConfig) {
	mergeCoordinatorConfig(&dest.Coordinator, &source.Coordinator)
	mergeQueueConfig(&dest.Queue, &source.Queue)
	mergeResourceConfig(&dest.Resources, &source.Resources)
	mergeMonitoringConfig(&dest.Monitoring, &source.Monitoring)
	mergeArchiveConfig(&dest.Archive, &source.Archive)
	mergeTelemetryConfig(&dest.Telemetry, &source.Telemetry)
	mergeSystemConfig(&dest.System, &source.System)

	if source.Infrastructure.CoordinatorDBRef != "" {
		dest.Infrastructure.CoordinatorDBRef = source.Infrastructure.CoordinatorDBRef
	}

	// Categories replace wholesale per key; partial category merges would leave
	// half-default cadences behind.
	if source.Categories != nil {
		if dest.Categories == nil {
			dest.Categories = make(map[string]CategoryConfig)
		}
		for key, value := range source.Categories {
			dest.Categories[key] = value
		}
	}

	if source.AdapterConfigs != nil {
		if dest.AdapterConfigs == nil {
			dest.AdapterConfigs = make(map[string]interface{})
		}
		for key, value := range source.AdapterConfigs {
			dest.AdapterConfigs[key] = value
		}
	}

	if source.StorageConfigs != nil {
		if dest.StorageConfigs == nil {
			dest.StorageConfigs = make(map[string]interface{})
		}
		for key, value := range source.StorageConfigs {
			dest.StorageConfigs[key] = value
		}
	}
}

func mergeCoordinatorConfig(dest, source *CoordinatorConfig) {
	if source.TickPeriodSeconds != 0 {
		dest.TickPeriodSeconds = source.TickPeriodSeconds
	}
	if source.DispatchThreshold != 0 {
		dest.DispatchThreshold = source.DispatchThreshold
	}
	if source.MaxConcurrentExecutions != 0 {
		dest.MaxConcurrentExecutions = source.MaxConcurrentExecutions
	}
	if source.FailureWindowMinutes != 0 {
		dest.FailureWindowMinutes = source.FailureWindowMinutes
	}
	if source.FailureThreshold != 0 {
		dest.FailureThreshold = source.FailureThreshold
	}
	if source.CooldownSeconds != 0 {
		dest.CooldownSeconds = source.CooldownSeconds
	}
	if source.StartOffsetGapSeconds != 0 {
		dest.StartOffsetGapSeconds = source.StartOffsetGapSeconds
	}
	if source.WarningBacklogDepth != 0 {
		dest.WarningBacklogDepth = source.WarningBacklogDepth
	}
	if source.WarningMeanLatencySeconds != 0 {
		dest.WarningMeanLatencySeconds = source.WarningMeanLatencySeconds
	}
}

func mergeQueueConfig(dest, source *QueueConfig) {
	if source.LockDurationMinutes != 0 {
		dest.LockDurationMinutes = source.LockDurationMinutes
	}
	if source.MaxRetries != 0 {
		dest.MaxRetries = source.MaxRetries
	}
	if source.BackoffScheduleSeconds != nil {
		dest.BackoffScheduleSeconds = source.BackoffScheduleSeconds
	}
}

func mergeResourceConfig(dest, source *ResourceConfig) {
	if source.DailyBudget != 0 {
		dest.DailyBudget = source.DailyBudget
	}
	if source.ExternalCallQuota != 0 {
		dest.ExternalCallQuota = source.ExternalCallQuota
	}
	if source.MemoryCeilingMB != 0 {
		dest.MemoryCeilingMB = source.MemoryCeilingMB
	}
	if source.ConnectionCeiling != 0 {
		dest.ConnectionCeiling = source.ConnectionCeiling
	}
	if source.BurstAllowancePct != 0 {
		dest.BurstAllowancePct = source.BurstAllowancePct
	}
}

func mergeMonitoringConfig(dest, source *MonitoringConfig) {
	if source.AlertThresholds.MinSuccessRate != 0 {
		dest.AlertThresholds.MinSuccessRate = source.AlertThresholds.MinSuccessRate
	}
	if source.AlertThresholds.MaxErrorCount != 0 {
		dest.AlertThresholds.MaxErrorCount = source.AlertThresholds.MaxErrorCount
	}
	if source.AlertThresholds.MaxMeanDurationSeconds != 0 {
		dest.AlertThresholds.MaxMeanDurationSeconds = source.AlertThresholds.MaxMeanDurationSeconds
	}
	if source.AlertThresholds.MaxHourlyCost != 0 {
		dest.AlertThresholds.MaxHourlyCost = source.AlertThresholds.MaxHourlyCost
	}
	if source.RecordTimeoutMinutes != 0 {
		dest.RecordTimeoutMinutes = source.RecordTimeoutMinutes
	}
}

func mergeArchiveConfig(dest, source *ArchiveConfig) {
	if source.StorageRef != "" {
		dest.StorageRef = source.StorageRef
	}
	if source.OutputBaseDir != "" {
		dest.OutputBaseDir = source.OutputBaseDir
	}
	if source.RetentionDays != 0 {
		dest.RetentionDays = source.RetentionDays
	}
	if source.CompressionType != "" {
		dest.CompressionType = source.CompressionType
	}
}

func mergeTelemetryConfig(dest, source *TelemetryConfig) {
	if source.Enabled {
		dest.Enabled = true
	}
	if source.Endpoint != "" {
		dest.Endpoint = source.Endpoint
	}
	if source.ServiceName != "" {
		dest.ServiceName = source.ServiceName
	}
}

func mergeSystemConfig(dest, source *SystemConfig) {
	if source.Timezone != "" {
		dest.Timezone = source.Timezone
	}
	if source.Logging.Level != "" {
		dest.Logging.Level = source.Logging.Level
	}
}

// loadStructFromEnv recursively loads configuration values into a struct from
// environment variables, using the "yaml" tag to derive the variable name.
func loadStructFromEnv(val reflect.Value, prefix string) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		yamlTag := fieldType.Tag.Get("yaml")
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		envVarName := strings.ToUpper(prefix + yamlTag)

		if field.Kind() == reflect.Struct {
			if err := loadStructFromEnv(field, envVarName+"_"); err != nil {
				return err
			}
			continue
		}

		envValue, exists := os.LookupEnv(envVarName)
		if !exists && field.Kind() != reflect.Map {
			continue
		}

		if field.Kind() == reflect.Map && field.Type().Key().Kind() == reflect.String && field.Type().Elem().Kind() == reflect.Struct {
			// map[string]struct fields take nested overrides, e.g. PACER_CATEGORIES_CONTENT_MAX_BATCH_SIZE.
			if err := loadMapOfStructsFromEnv(field, envVarName+"_"); err != nil {
				return err
			}
			continue
		}

		if err := setField(field, envValue); err != nil {
			return fmt.Errorf("failed to set field '%s' from env var '%s': %w", fieldType.Name, envVarName, err)
		}
	}
	return nil
}

// loadMapOfStructsFromEnv loads fields of type map[string]struct from environment
// variables, inferring the map key and struct field from the variable name.
func loadMapOfStructsFromEnv(mapField reflect.Value, prefix string) error {
	if mapField.IsNil() {
		mapField.Set(reflect.MakeMap(mapField.Type()))
	}

	elemType := mapField.Type().Elem()

	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, prefix) {
			continue
		}

		keyPartWithValue := strings.TrimPrefix(env, prefix)
		parts := strings.SplitN(keyPartWithValue, "=", 2)
		if len(parts) != 2 {
			continue
		}
		keyAndField := parts[0]
		envValue := parts[1]

		keyAndFieldParts := strings.Split(keyAndField, "_")
		if len(keyAndFieldParts) < 2 {
			continue
		}
		mapKey := strings.ToLower(keyAndFieldParts[0])
		structFieldName := strings.Join(keyAndFieldParts[1:], "_")

		structVal := mapField.MapIndex(reflect.ValueOf(mapKey))
		if !structVal.IsValid() {
			structVal = reflect.New(elemType).Elem()
		} else {
			// Map values are not addressable; copy before mutating.
			copied := reflect.New(elemType).Elem()
			copied.Set(structVal)
			structVal = copied
		}

		if err := setStructFieldFromEnv(structVal, structFieldName, envValue); err != nil {
			return err
		}
		mapField.SetMapIndex(reflect.ValueOf(mapKey), structVal)
	}
	return nil
}

// setStructFieldFromEnv sets the value of a struct field whose yaml tag matches
// fieldName (case-insensitively).
func setStructFieldFromEnv(structVal reflect.Value, fieldName string, value string) error {
	typ := structVal.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := structVal.Field(i)
		fieldType := typ.Field(i)
		yamlTag := fieldType.Tag.Get("yaml")
		if yamlTag == "" || yamlTag == "-" {
			continue
		}

		if strings.EqualFold(yamlTag, fieldName) {
			return setField(field, value)
		}
	}
	return nil
}

// setField sets the value of a reflect.Value field based on its kind.
func setField(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(intValue)
	case reflect.Float64, reflect.Float32:
		floatValue, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(floatValue)
	case reflect.Bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolValue)
	}
	return nil
}
