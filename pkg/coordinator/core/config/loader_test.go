// Package config_test provides unit tests for configuration loading: default
// merging, YAML overrides, environment overrides, and validation.
package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	config "github.com/pressflow/pacer/pkg/coordinator/core/config"
	"github.com/pressflow/pacer/pkg/coordinator/support/util/exception"
)

func TestLoadConfig_DefaultsWhenYAMLIsEmpty(t *testing.T) {
	cfg, err := config.LoadConfig("", config.EmbeddedConfig(""))
	assert.NoError(t, err)

	assert.Equal(t, 300, cfg.Pacer.Coordinator.TickPeriodSeconds)
	assert.Equal(t, 50.0, cfg.Pacer.Coordinator.DispatchThreshold)
	assert.Equal(t, 10, cfg.Pacer.Coordinator.MaxConcurrentExecutions)
	assert.Equal(t, []int{60, 300, 900}, cfg.Pacer.Queue.BackoffScheduleSeconds)
	assert.Equal(t, 100.0, cfg.Pacer.Resources.DailyBudget)
	assert.Equal(t, "UTC", cfg.Pacer.System.Timezone)
	assert.Equal(t, "SNAPPY", cfg.Pacer.Archive.CompressionType)
	assert.Empty(t, cfg.Pacer.Categories)
}

func TestLoadConfig_YAMLOverridesMergeOverDefaults(t *testing.T) {
	yamlConfig := config.EmbeddedConfig(`
pacer:
  coordinator:
    tick_period_seconds: 120
    dispatch_threshold: 65
  categories:
    content:
      base_interval_minutes: 15
      base_priority: 60
      max_batch_size: 8
      cost_per_item: 0.35
      success_floor: 0.85
      kind: generation
`)

	cfg, err := config.LoadConfig("", yamlConfig)
	assert.NoError(t, err)

	assert.Equal(t, 120, cfg.Pacer.Coordinator.TickPeriodSeconds)
	assert.Equal(t, 65.0, cfg.Pacer.Coordinator.DispatchThreshold)
	// Fields absent from the YAML keep their defaults.
	assert.Equal(t, 10, cfg.Pacer.Coordinator.MaxConcurrentExecutions)
	assert.Equal(t, 600, cfg.Pacer.Coordinator.CooldownSeconds)

	cat, ok := cfg.Pacer.Categories["content"]
	assert.True(t, ok)
	assert.Equal(t, 15, cat.BaseIntervalMinutes)
	assert.Equal(t, 8, cat.MaxBatchSize)
	assert.Equal(t, "generation", cat.Kind)
}

func TestLoadConfig_EnvOverridesEverything(t *testing.T) {
	t.Setenv("PACER_COORDINATOR_TICK_PERIOD_SECONDS", "90")
	t.Setenv("PACER_SYSTEM_LOGGING_LEVEL", "DEBUG")
	t.Setenv("PACER_CATEGORIES_CONTENT_MAX_BATCH_SIZE", "12")

	yamlConfig := config.EmbeddedConfig(`
pacer:
  coordinator:
    tick_period_seconds: 120
  categories:
    content:
      base_interval_minutes: 15
      max_batch_size: 8
      success_floor: 0.85
`)

	cfg, err := config.LoadConfig("", yamlConfig)
	assert.NoError(t, err)

	assert.Equal(t, 90, cfg.Pacer.Coordinator.TickPeriodSeconds, "environment beats YAML")
	assert.Equal(t, "DEBUG", cfg.Pacer.System.Logging.Level)

	cat := cfg.Pacer.Categories["content"]
	assert.Equal(t, 12, cat.MaxBatchSize)
	assert.Equal(t, 15, cat.BaseIntervalMinutes, "untouched category fields survive the env override")
}

func TestLoadConfig_ValidationRejectsBrokenConfigs(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{
			name: "category without a batch size",
			yaml: `
pacer:
  categories:
    content:
      base_interval_minutes: 15
`,
		},
		{
			name: "success floor out of range",
			yaml: `
pacer:
  categories:
    content:
      base_interval_minutes: 15
      max_batch_size: 8
      success_floor: 1.5
`,
		},
		{
			name: "empty backoff schedule",
			yaml: `
pacer:
  queue:
    backoff_schedule_seconds: []
`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := config.LoadConfig("", config.EmbeddedConfig(tc.yaml))
			assert.Error(t, err)
			assert.Equal(t, exception.KindValidation, exception.KindOf(err))
		})
	}
}

func TestLoadConfig_NegativeTickPeriodViaEnv(t *testing.T) {
	t.Setenv("PACER_COORDINATOR_TICK_PERIOD_SECONDS", "-5")
	_, err := config.LoadConfig("", config.EmbeddedConfig(""))
	assert.Error(t, err)
	assert.Equal(t, exception.KindValidation, exception.KindOf(err))
}

func TestLoadConfig_UnparsableEnvValue(t *testing.T) {
	t.Setenv("PACER_COORDINATOR_FAILURE_THRESHOLD", "not-a-number")
	_, err := config.LoadConfig("", config.EmbeddedConfig(""))
	assert.Error(t, err)
	assert.Equal(t, exception.KindValidation, exception.KindOf(err))
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	_, err := config.LoadConfig("", config.EmbeddedConfig("pacer: [unclosed"))
	assert.Error(t, err)
	assert.Equal(t, exception.KindValidation, exception.KindOf(err))
}
