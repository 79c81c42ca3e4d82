package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// costsController is a minimal HostController stub for cost introspection.
type costsController struct {
	HostController

	rams map[string]float64
}

func (c costsController) ScriptRAM(script string) float64 {
	return c.rams[script]
}

func TestMeasureScriptCosts_Measured(t *testing.T) {
	t.Parallel()

	ctrl := costsController{rams: map[string]float64{
		HackScript:   1.7,
		GrowScript:   1.75,
		WeakenScript: 1.75,
		ShareScript:  4.0,
	}}

	costs, err := MeasureScriptCosts(ctrl)
	require.NoError(t, err)
	assert.InDelta(t, 1.7, costs.Cost(KindHack), 1e-12)
	assert.InDelta(t, 1.75, costs.Cost(KindGrow), 1e-12)
	assert.InDelta(t, 1.75, costs.Cost(KindWeaken), 1e-12)
	assert.InDelta(t, 4.0, costs.Cost(KindShare), 1e-12)
}

func TestMeasureScriptCosts_ZeroCostRefused(t *testing.T) {
	t.Parallel()

	ctrl := costsController{rams: map[string]float64{
		HackScript:   1.7,
		GrowScript:   0,
		WeakenScript: 1.75,
	}}

	_, err := MeasureScriptCosts(ctrl)
	assert.ErrorIs(t, err, ErrZeroScriptRAM)
}

func TestKindForScript(t *testing.T) {
	t.Parallel()

	for _, kind := range []WorkerKind{KindHack, KindGrow, KindWeaken, KindShare} {
		got, ok := KindForScript(ScriptFor(kind))
		require.True(t, ok)
		assert.Equal(t, kind, got)
	}

	_, ok := KindForScript("not-a-worker.js")
	assert.False(t, ok)
}

func TestProcess_Target(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "joesguns", Process{Args: []string{"joesguns", "0"}}.Target())
	assert.Empty(t, Process{}.Target())
}

func TestPlayer_Normalize(t *testing.T) {
	t.Parallel()

	p := Player{HackingLevel: 10}.Normalize()
	assert.Equal(t, 1.0, p.SpeedMult)
	assert.Equal(t, 1.0, p.ChanceMult)
	assert.Equal(t, 1.0, p.MoneyMult)
	assert.Equal(t, 1.0, p.GrowthMult)

	boosted := Player{HackingLevel: 10, MoneyMult: 1.5}.Normalize()
	assert.Equal(t, 1.5, boosted.MoneyMult)
}
