package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func formulaServer() ServerSnapshot {
	return ServerSnapshot{
		Hostname:       "phantasy",
		MoneyAvailable: 1e7,
		MaxMoney:       2.4e7,
		HackDifficulty: 20,
		MinDifficulty:  20,
		Growth:         500,
		RequiredLevel:  100,
	}
}

func formulaPlayer() Player {
	return Player{HackingLevel: 250}
}

func TestFormulaModel_TimeRatios(t *testing.T) {
	t.Parallel()

	m := FormulaModel{}
	s := formulaServer()
	p := formulaPlayer()

	hack := m.HackTime(s, p)
	require.Positive(t, hack)

	assert.Equal(t, time.Duration(3.2*float64(hack)), m.GrowTime(s, p))
	assert.Equal(t, 4*hack, m.WeakenTime(s, p))
}

func TestFormulaModel_HackTimeShrinksWithSkill(t *testing.T) {
	t.Parallel()

	m := FormulaModel{}
	s := formulaServer()

	low := m.HackTime(s, Player{HackingLevel: 150})
	high := m.HackTime(s, Player{HackingLevel: 1000})

	assert.Less(t, high, low)
}

func TestFormulaModel_HackChanceBounds(t *testing.T) {
	t.Parallel()

	m := FormulaModel{}
	s := formulaServer()

	chance := m.HackChance(s, formulaPlayer())
	assert.Greater(t, chance, 0.0)
	assert.LessOrEqual(t, chance, 1.0)

	// Max security makes hacks impossible.
	hardened := s
	hardened.HackDifficulty = 100
	assert.Zero(t, m.HackChance(hardened, formulaPlayer()))
}

func TestFormulaModel_HackPercent_UnderleveledIsZero(t *testing.T) {
	t.Parallel()

	m := FormulaModel{}
	s := formulaServer()

	assert.Zero(t, m.HackPercent(s, Player{HackingLevel: 50}))
	assert.Positive(t, m.HackPercent(s, formulaPlayer()))
}

func TestFormulaModel_GrowPercentMonotonic(t *testing.T) {
	t.Parallel()

	m := FormulaModel{}
	s := formulaServer()
	p := formulaPlayer()

	assert.Equal(t, 1.0, m.GrowPercent(s, 0, p, 1))

	prev := 1.0
	for _, threads := range []int{1, 10, 100, 1000} {
		cur := m.GrowPercent(s, threads, p, 1)
		assert.Greater(t, cur, prev)
		prev = cur
	}
}

func TestFormulaModel_WeakenEffect(t *testing.T) {
	t.Parallel()

	m := FormulaModel{}

	assert.InDelta(t, 0.05, m.WeakenEffect(1, 1), 1e-12)
	assert.InDelta(t, 0.5, m.WeakenEffect(10, 1), 1e-12)

	// Extra cores increase efficiency.
	assert.Greater(t, m.WeakenEffect(10, 8), m.WeakenEffect(10, 1))

	assert.Zero(t, m.WeakenEffect(0, 1))
}

func TestFormulaModel_GrowThreadsReportsNoClosedForm(t *testing.T) {
	t.Parallel()

	m := FormulaModel{}

	_, ok := m.GrowThreads(formulaServer(), formulaPlayer(), 1e7, 1)
	assert.False(t, ok)
}
