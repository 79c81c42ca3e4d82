package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/hackfang/internal/config"
)

func TestNewRunCommand_FlagDefaults(t *testing.T) {
	t.Parallel()

	cmd := NewRunCommand()

	targets, err := cmd.Flags().GetInt("targets")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultMaxTargetsPerTick, targets)

	ignoreHome, err := cmd.Flags().GetBool("ignore-home")
	require.NoError(t, err)
	assert.False(t, ignoreHome)

	formulas, err := cmd.Flags().GetBool("formulas")
	require.NoError(t, err)
	assert.False(t, formulas)

	metricsAddr, err := cmd.Flags().GetString("metrics-addr")
	require.NoError(t, err)
	assert.Empty(t, metricsAddr)
}

func TestRunCommand_ApplyOverrides(t *testing.T) {
	t.Parallel()

	cmd, rc := newRunCommand()
	require.NoError(t, cmd.Flags().Set("targets", "7"))
	require.NoError(t, cmd.Flags().Set("formulas", "true"))

	cfg := &config.Config{
		Orchestrator: config.OrchestratorConfig{
			TickIntervalMS:    config.DefaultTickIntervalMS,
			MaxTargetsPerTick: config.DefaultMaxTargetsPerTick,
		},
	}

	rc.applyOverrides(cmd, cfg)

	assert.Equal(t, 7, cfg.Orchestrator.MaxTargetsPerTick)
	assert.True(t, cfg.Orchestrator.UseFormulas)

	// Untouched flags leave config values alone.
	assert.Equal(t, config.DefaultTickIntervalMS, cfg.Orchestrator.TickIntervalMS)
}

func TestNewTargetsCommand_FlagDefaults(t *testing.T) {
	t.Parallel()

	cmd := NewTargetsCommand()

	limit, err := cmd.Flags().GetInt("limit")
	require.NoError(t, err)
	assert.Zero(t, limit)
}
