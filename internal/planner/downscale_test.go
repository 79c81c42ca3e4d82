package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownscale_FittingPlanReturnedUnchanged(t *testing.T) {
	t.Parallel()

	p := newPlanner(scenarioModel())
	s := scenarioTarget()

	b, ok := p.PlanGHW(s)
	require.True(t, ok)

	out, fits := Downscale(p, s, b, b.RAM+1)
	require.True(t, fits)
	assert.Equal(t, b, out)
}

func TestDownscale_Idempotent(t *testing.T) {
	t.Parallel()

	p := newPlanner(scenarioModel())
	s := scenarioTarget()

	b, ok := p.PlanGHW(s)
	require.True(t, ok)

	once, fits := Downscale(p, s, b, 64)
	require.True(t, fits)

	twice, fits := Downscale(p, s, once, 64)
	require.True(t, fits)
	assert.Equal(t, once, twice)
}

func TestDownscale_NeverIncreasesCounts(t *testing.T) {
	t.Parallel()

	p := newPlanner(scenarioModel())
	s := scenarioTarget()

	b, ok := p.PlanGHW(s)
	require.True(t, ok)

	out, fits := Downscale(p, s, b, 64)
	require.True(t, fits)
	assert.Equal(t, b.Shape, out.Shape)
	assert.LessOrEqual(t, out.Threads.Hack, b.Threads.Hack)
	assert.LessOrEqual(t, out.Threads.Grow, b.Threads.Grow)
	assert.LessOrEqual(t, out.Threads.Weaken, b.Threads.Weaken)
	assert.LessOrEqual(t, out.RAM, 64.0)
}

func TestDownscale_PreservesHackFloor(t *testing.T) {
	t.Parallel()

	p := newPlanner(scenarioModel())
	s := scenarioTarget()

	b, ok := p.PlanGHW(s)
	require.True(t, ok)

	// Barely enough for a couple of threads.
	out, fits := Downscale(p, s, b, 8)
	if !fits {
		return // refusing is allowed when nothing fits
	}

	assert.GreaterOrEqual(t, out.Threads.Hack, 1)
}

func TestDownscale_NothingFits_ReturnsFalse(t *testing.T) {
	t.Parallel()

	p := newPlanner(scenarioModel())
	s := scenarioTarget()

	b, ok := p.PlanGHW(s)
	require.True(t, ok)

	_, fits := Downscale(p, s, b, 0.5)
	assert.False(t, fits)
}

func TestDownscale_PrepWeakenScalesDirectly(t *testing.T) {
	t.Parallel()

	p := newPlanner(scenarioModel())

	s := scenarioTarget()
	s.HackDifficulty = 20

	b, ok := p.PlanPrep(s)
	require.True(t, ok)
	require.Equal(t, 300, b.Threads.Weaken)

	out, fits := Downscale(p, s, b, 100)
	require.True(t, fits)
	assert.Equal(t, ShapePrepWeaken, out.Shape)
	assert.Positive(t, out.Threads.Weaken)
	assert.Less(t, out.Threads.Weaken, 300)
	assert.LessOrEqual(t, out.RAM, 100.0)
}

func TestDownscale_DelaysUntouched(t *testing.T) {
	t.Parallel()

	p := newPlanner(scenarioModel())
	s := scenarioTarget()

	b, ok := p.PlanGHW(s)
	require.True(t, ok)

	out, fits := Downscale(p, s, b, 64)
	require.True(t, fits)
	assert.Equal(t, b.Delays, out.Delays)
	assert.Equal(t, b.Duration, out.Duration)
}
