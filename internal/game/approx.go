package game

import (
	"math"
	"time"

	"github.com/Sumatoshi-tech/hackfang/pkg/mathutil"
)

// ApproxModel adapts the host's per-host approximation surface to the
// HackingModel interface. Estimates are only valid at the host's current
// state; the snapshot's hypothetical fields are ignored by construction.
// It is the default model; the closed-form model is opt-in via --formulas.
type ApproxModel struct {
	Analyzer Analyzer
}

var _ HackingModel = ApproxModel{}

// HackTime returns the host's current hack duration.
func (m ApproxModel) HackTime(s ServerSnapshot, _ Player) time.Duration {
	return m.Analyzer.HackTime(s.Hostname)
}

// GrowTime returns the host's current grow duration.
func (m ApproxModel) GrowTime(s ServerSnapshot, _ Player) time.Duration {
	return m.Analyzer.GrowTime(s.Hostname)
}

// WeakenTime returns the host's current weaken duration.
func (m ApproxModel) WeakenTime(s ServerSnapshot, _ Player) time.Duration {
	return m.Analyzer.WeakenTime(s.Hostname)
}

// HackPercent returns the host's current per-thread steal fraction.
func (m ApproxModel) HackPercent(s ServerSnapshot, _ Player) float64 {
	return m.Analyzer.HackPercent(s.Hostname)
}

// HackChance returns the host's current hack success probability.
func (m ApproxModel) HackChance(s ServerSnapshot, _ Player) float64 {
	return m.Analyzer.HackChance(s.Hostname)
}

// GrowPercent inverts GrowthThreads by proportion: the analyzer reports
// threads-for-multiplier, so multiplier-for-threads is interpolated on the
// exponential curve the host uses internally.
func (m ApproxModel) GrowPercent(s ServerSnapshot, threads int, _ Player, cores int) float64 {
	if threads <= 0 {
		return 1
	}

	// Threads needed to double money give the per-thread log-growth rate.
	const probeMultiplier = 2.0

	probe := m.Analyzer.GrowthThreads(s.Hostname, probeMultiplier, cores)
	if probe <= 0 {
		return 1
	}

	return math.Pow(probeMultiplier, float64(threads)/probe)
}

// GrowThreads returns the host's closed-form thread count for restoring
// targetMoney from the snapshot's current money.
func (m ApproxModel) GrowThreads(s ServerSnapshot, _ Player, targetMoney float64, cores int) (int, bool) {
	if targetMoney <= s.MoneyAvailable {
		return 0, true
	}

	// The analyzer rejects multiplier computation from zero money; seed with
	// one unit the way the host's own scripts do.
	current := math.Max(s.MoneyAvailable, 1)
	multiplier := targetMoney / current

	return mathutil.CeilFrac(m.Analyzer.GrowthThreads(s.Hostname, multiplier, cores)), true
}

// WeakenEffect returns the security removed by the given threads and cores.
func (m ApproxModel) WeakenEffect(threads, cores int) float64 {
	return m.Analyzer.WeakenEffect(threads, cores)
}
