package game

import (
	"math"
	"time"

	"github.com/Sumatoshi-tech/hackfang/pkg/mathutil"
)

// Closed-form model constants.
const (
	// skillFactor scales the effective skill term in the chance formula.
	skillFactor = 1.75

	// percentDivisor converts the raw hack power product into a per-thread fraction.
	percentDivisor = 240

	// hackTimeSkillBase flattens the time curve at low skill.
	hackTimeSkillBase = 50

	// hackTimeDifficultyWeight weights security in the time numerator.
	hackTimeDifficultyWeight = 2.5

	// hackTimeBase is the flat term of the time numerator.
	hackTimeBase = 500

	// hackTimeMult converts the time ratio into seconds.
	hackTimeMult = 5

	// growTimeRatio and weakenTimeRatio are fixed multiples of hack time.
	growTimeRatio   = 3.2
	weakenTimeRatio = 4

	// growBaseMax caps the per-thread growth base for very low security.
	growBaseMax = 1.0035

	// growSecurityWeight is the numerator of the per-thread growth base bonus.
	growSecurityWeight = 0.03

	// weakenPerThread is the base security removed by one weaken thread.
	weakenPerThread = 0.05

	// coreBonusStep is the weaken/grow efficiency gain per core beyond the first.
	coreBonusStep = 1.0 / 16.0

	// maxSecurity is the security level at which hacks always fail.
	maxSecurity = 100
)

// FormulaModel is the closed-form hacking model: every estimate is computed
// from the snapshot and player alone, so hypothetical states can be priced.
type FormulaModel struct{}

var _ HackingModel = FormulaModel{}

// coreBonus returns the efficiency multiplier for the given core count.
func coreBonus(cores int) float64 {
	if cores < 1 {
		cores = 1
	}

	return 1 + float64(cores-1)*coreBonusStep
}

// HackTime returns the duration of a single hack operation.
func (FormulaModel) HackTime(s ServerSnapshot, p Player) time.Duration {
	p = p.Normalize()

	skill := float64(p.HackingLevel) + hackTimeSkillBase
	numerator := hackTimeDifficultyWeight*float64(s.RequiredLevel)*s.HackDifficulty + hackTimeBase
	seconds := hackTimeMult * numerator / skill / p.SpeedMult

	return time.Duration(seconds * float64(time.Second))
}

// GrowTime returns the duration of a single grow operation.
func (m FormulaModel) GrowTime(s ServerSnapshot, p Player) time.Duration {
	return time.Duration(growTimeRatio * float64(m.HackTime(s, p)))
}

// WeakenTime returns the duration of a single weaken operation.
func (m FormulaModel) WeakenTime(s ServerSnapshot, p Player) time.Duration {
	return weakenTimeRatio * m.HackTime(s, p)
}

// HackPercent returns the fraction of current money stolen by one thread.
func (FormulaModel) HackPercent(s ServerSnapshot, p Player) float64 {
	p = p.Normalize()

	if p.HackingLevel <= 0 || s.RequiredLevel > p.HackingLevel {
		return 0
	}

	difficultyMult := (maxSecurity - s.HackDifficulty) / maxSecurity
	skillMult := (float64(p.HackingLevel) - float64(s.RequiredLevel-1)) / float64(p.HackingLevel)
	percent := difficultyMult * skillMult * p.MoneyMult / percentDivisor

	return mathutil.ClampFloat(percent, 0, 1)
}

// HackChance returns the per-process success probability.
func (FormulaModel) HackChance(s ServerSnapshot, p Player) float64 {
	p = p.Normalize()

	effectiveSkill := skillFactor * float64(p.HackingLevel)
	if effectiveSkill <= 0 {
		return 0
	}

	skillChance := (effectiveSkill - float64(s.RequiredLevel)) / effectiveSkill
	difficultyMult := (maxSecurity - s.HackDifficulty) / maxSecurity
	chance := skillChance * difficultyMult * p.ChanceMult

	return mathutil.ClampFloat(chance, 0, 1)
}

// GrowPercent returns the money multiplication factor of the given threads.
func (FormulaModel) GrowPercent(s ServerSnapshot, threads int, p Player, cores int) float64 {
	if threads <= 0 {
		return 1
	}

	p = p.Normalize()

	base := 1 + growSecurityWeight/s.HackDifficulty
	if base > growBaseMax {
		base = growBaseMax
	}

	exponent := float64(threads) * (s.Growth / maxSecurity) * p.GrowthMult * coreBonus(cores)

	return math.Pow(base, exponent)
}

// GrowThreads reports no closed-form inverse; callers search over GrowPercent.
func (FormulaModel) GrowThreads(ServerSnapshot, Player, float64, int) (int, bool) {
	return 0, false
}

// WeakenEffect returns the security removed by the given threads and cores.
func (FormulaModel) WeakenEffect(threads, cores int) float64 {
	if threads <= 0 {
		return 0
	}

	return weakenPerThread * float64(threads) * coreBonus(cores)
}
