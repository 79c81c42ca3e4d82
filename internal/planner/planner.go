// Package planner composes timed multi-phase batches for prepped and
// unprepped targets: thread counts from closed-form arithmetic, launch delays
// that enforce landing order, and RAM-bounded downscaling.
package planner

import (
	"time"

	"github.com/Sumatoshi-tech/hackfang/internal/game"
	"github.com/Sumatoshi-tech/hackfang/pkg/mathutil"
)

// Planning constants.
const (
	// MoneyFloor is the fraction of max money left behind after a hack.
	MoneyFloor = 0.05

	// MoneyThreshold is the fraction of max money at which a target counts as full.
	MoneyThreshold = 0.90

	// GrowOverbook is the safety factor applied to computed grow threads.
	GrowOverbook = 1.05

	// SecPerHack is the security added per hack thread.
	SecPerHack = 0.002

	// SecPerGrow is the security added per grow thread.
	SecPerGrow = 0.004

	// LandBuffer is the gap between consecutive landings within a batch.
	LandBuffer = 150 * time.Millisecond

	// GHWMaxThreads is the combined-batch total above which the planner
	// falls back to split shapes.
	GHWMaxThreads = 3000

	// HackSplitChunk is the max threads per hack dispatch call when the
	// success chance is below SplitChanceCutoff.
	HackSplitChunk = 100

	// SplitChanceCutoff disables hack splitting and probabilistic overbooking
	// at or above this success chance.
	SplitChanceCutoff = 0.95

	// PrepEpsilon is the security tolerance above minimum that still counts
	// as prepped.
	PrepEpsilon = 1.0

	// OverhackFloor is the post-batch money fraction below which an
	// over-hack incident is recorded.
	OverhackFloor = 0.04

	// LargeGrowThreshold is the grow thread count above which a diagnostic
	// is logged; the batch still dispatches.
	LargeGrowThreshold = 5000

	// growSearchCap bounds the doubling search for grow threads.
	growSearchCap = 1 << 20
)

// Shape tags a batch variant. Downstream code switches on the tag; thread
// counts for kinds absent from a shape are zero by construction.
type Shape int

// Batch shapes.
const (
	// ShapeNone is the zero value; no batch.
	ShapeNone Shape = iota

	// ShapePrepWeaken is a single weaken bringing security to minimum.
	ShapePrepWeaken

	// ShapeHW lands hack first, counter-weaken second.
	ShapeHW

	// ShapeGW lands grow first, counter-weaken second.
	ShapeGW

	// ShapeGHW lands grow, hack, weaken in that order.
	ShapeGHW
)

// String returns the shape name used in logs and snapshots.
func (s Shape) String() string {
	switch s {
	case ShapePrepWeaken:
		return "prep-weaken"
	case ShapeHW:
		return "hw"
	case ShapeGW:
		return "gw"
	case ShapeGHW:
		return "ghw"
	default:
		return "none"
	}
}

// ThreadCounts holds per-kind thread counts of one batch.
type ThreadCounts struct {
	Hack   int
	Grow   int
	Weaken int
}

// Total is the summed thread count.
func (t ThreadCounts) Total() int {
	return t.Hack + t.Grow + t.Weaken
}

// Count returns the threads for a worker kind.
func (t ThreadCounts) Count(kind game.WorkerKind) int {
	switch kind {
	case game.KindHack:
		return t.Hack
	case game.KindGrow:
		return t.Grow
	case game.KindWeaken:
		return t.Weaken
	default:
		return 0
	}
}

// Delays holds per-kind launch delays of one batch.
type Delays struct {
	Hack   time.Duration
	Grow   time.Duration
	Weaken time.Duration
}

// Delay returns the launch delay for a worker kind.
func (d Delays) Delay(kind game.WorkerKind) time.Duration {
	switch kind {
	case game.KindHack:
		return d.Hack
	case game.KindGrow:
		return d.Grow
	case game.KindWeaken:
		return d.Weaken
	default:
		return 0
	}
}

// Batch is one planned unit of work for a single target.
type Batch struct {
	Shape   Shape
	Threads ThreadCounts
	Delays  Delays

	// RAM is the total GB required to launch every thread.
	RAM float64

	// Duration is launch-to-last-landing: the weaken run time.
	Duration time.Duration

	// ExpectedMoney and ExpectedSecurity describe the target after landing.
	ExpectedMoney    float64
	ExpectedSecurity float64

	// HackChance drives dispatch-time hack splitting.
	HackChance float64

	// Run times at planning, retained for recovery estimates and the
	// over-hack timing-margin diagnostic.
	HackTime   time.Duration
	GrowTime   time.Duration
	WeakenTime time.Duration
}

// Planner computes batches from server snapshots via a hacking model.
type Planner struct {
	Model  game.HackingModel
	Costs  game.ScriptCosts
	Player game.Player
}

// ram prices a thread-count set against the measured script costs.
func (p *Planner) ram(t ThreadCounts) float64 {
	return float64(t.Hack)*p.Costs.Hack +
		float64(t.Grow)*p.Costs.Grow +
		float64(t.Weaken)*p.Costs.Weaken
}

// weakenToMin is the thread count removing all security above minimum.
// Planning pessimistically assumes one core; extra cores on the dispatching
// runner only over-weaken, which the next cycle absorbs.
func (p *Planner) weakenToMin(s game.ServerSnapshot) int {
	excess := s.HackDifficulty - s.MinDifficulty
	if excess <= 0 {
		return 0
	}

	perThread := p.Model.WeakenEffect(1, 1)
	if perThread <= 0 {
		return 0
	}

	return mathutil.CeilFrac(excess / perThread)
}

// counterWeaken removes the security a batch's hack and grow threads will add,
// plus any drift already present on the target.
func (p *Planner) counterWeaken(hack, grow int, s game.ServerSnapshot) int {
	added := float64(hack)*SecPerHack + float64(grow)*SecPerGrow
	drift := s.HackDifficulty - s.MinDifficulty
	if drift < 0 {
		drift = 0
	}

	total := added + drift
	if total <= 0 {
		return 0
	}

	perThread := p.Model.WeakenEffect(1, 1)
	if perThread <= 0 {
		return 0
	}

	return mathutil.CeilFrac(total / perThread)
}

// growToFull is the overbooked thread count restoring the target to max money.
// Uses the model's closed form when available, otherwise a doubling-then-
// binary search over GrowPercent for the first sufficient integer.
func (p *Planner) growToFull(s game.ServerSnapshot) int {
	if s.MaxMoney <= 0 || s.MoneyAvailable >= s.MaxMoney {
		return 0
	}

	if threads, ok := p.Model.GrowThreads(s, p.Player, s.MaxMoney, 1); ok {
		return overbook(threads)
	}

	current := s.MoneyAvailable
	if current < 1 {
		current = 1
	}

	needed := s.MaxMoney / current

	// Doubling phase: find an upper bound.
	hi := 1
	for hi < growSearchCap && p.Model.GrowPercent(s, hi, p.Player, 1) < needed {
		hi *= 2
	}

	if p.Model.GrowPercent(s, hi, p.Player, 1) < needed {
		return 0
	}

	// Binary phase: first n with GrowPercent(n) >= needed.
	lo := hi / 2
	for lo < hi {
		mid := (lo + hi) / 2
		if p.Model.GrowPercent(s, mid, p.Player, 1) >= needed {
			hi = mid
		} else {
			lo = mid + 1
		}
	}

	return overbook(hi)
}

func overbook(threads int) int {
	if threads <= 0 {
		return 0
	}

	return mathutil.CeilFrac(float64(threads) * GrowOverbook)
}

// hackToFloor is the thread count stealing money down to the floor. Zero when
// the target is at or below the floor, or when any required input is
// undefined. When the success chance is below the split cutoff the count is
// inflated to cover probabilistic failures.
func (p *Planner) hackToFloor(s game.ServerSnapshot) int {
	floor := MoneyFloor * s.MaxMoney
	if s.MoneyAvailable <= floor {
		return 0
	}

	percent := p.Model.HackPercent(s, p.Player)
	if percent <= 0 {
		return 0
	}

	base := mathutil.CeilFrac((s.MoneyAvailable - floor) / (percent * s.MoneyAvailable))
	if base <= 0 {
		return 0
	}

	chance := p.Model.HackChance(s, p.Player)
	if chance <= 0 {
		return 0
	}

	if chance < SplitChanceCutoff {
		return mathutil.CeilFrac(float64(base) / chance)
	}

	return base
}

// times returns weaken, grow, and hack run times at current security.
func (p *Planner) times(s game.ServerSnapshot) (w, g, h time.Duration) {
	return p.Model.WeakenTime(s, p.Player), p.Model.GrowTime(s, p.Player), p.Model.HackTime(s, p.Player)
}

// delayBefore computes max(0, anchor - gap - runTime).
func delayBefore(anchor, runTime time.Duration, gap time.Duration) time.Duration {
	d := anchor - gap - runTime
	if d < 0 {
		return 0
	}

	return d
}

// PlanPrep emits a prep-weaken batch, or false when security is already
// within tolerance.
func (p *Planner) PlanPrep(s game.ServerSnapshot) (Batch, bool) {
	threads := p.weakenToMin(s)
	if threads == 0 {
		return Batch{}, false
	}

	w, g, h := p.times(s)
	if w <= 0 {
		return Batch{}, false
	}

	t := ThreadCounts{Weaken: threads}

	return Batch{
		Shape:            ShapePrepWeaken,
		Threads:          t,
		RAM:              p.ram(t),
		Duration:         w,
		ExpectedMoney:    s.MoneyAvailable,
		ExpectedSecurity: s.MinDifficulty,
		HackChance:       p.Model.HackChance(s, p.Player),
		HackTime:         h,
		GrowTime:         g,
		WeakenTime:       w,
	}, true
}

// PlanHW emits a hack + counter-weaken batch landing hack first.
func (p *Planner) PlanHW(s game.ServerSnapshot) (Batch, bool) {
	hack := p.hackToFloor(s)
	if hack == 0 {
		return Batch{}, false
	}

	weaken := p.counterWeaken(hack, 0, s)

	w, g, h := p.times(s)
	if w <= 0 {
		return Batch{}, false
	}

	t := ThreadCounts{Hack: hack, Weaken: weaken}

	return Batch{
		Shape:   ShapeHW,
		Threads: t,
		Delays: Delays{
			Hack: delayBefore(w, h, LandBuffer),
		},
		RAM:              p.ram(t),
		Duration:         w,
		ExpectedMoney:    MoneyFloor * s.MaxMoney,
		ExpectedSecurity: s.MinDifficulty,
		HackChance:       p.Model.HackChance(s, p.Player),
		HackTime:         h,
		GrowTime:         g,
		WeakenTime:       w,
	}, true
}

// PlanGW emits a grow + counter-weaken batch landing grow first.
func (p *Planner) PlanGW(s game.ServerSnapshot) (Batch, bool) {
	grow := p.growToFull(s)
	if grow == 0 {
		return Batch{}, false
	}

	weaken := p.counterWeaken(0, grow, s)

	w, g, h := p.times(s)
	if w <= 0 {
		return Batch{}, false
	}

	t := ThreadCounts{Grow: grow, Weaken: weaken}

	return Batch{
		Shape:   ShapeGW,
		Threads: t,
		Delays: Delays{
			Grow: delayBefore(w, g, LandBuffer),
		},
		RAM:              p.ram(t),
		Duration:         w,
		ExpectedMoney:    s.MaxMoney,
		ExpectedSecurity: s.MinDifficulty,
		HackChance:       p.Model.HackChance(s, p.Player),
		HackTime:         h,
		GrowTime:         g,
		WeakenTime:       w,
	}, true
}

// PlanGHW emits the combined batch landing grow, hack, weaken in that order.
// Hack time is estimated at current security; the land buffer absorbs the
// error from hack launching before grow lands.
func (p *Planner) PlanGHW(s game.ServerSnapshot) (Batch, bool) {
	// Hack threads are sized against the post-grow state: full money at
	// current security.
	full := s
	full.MoneyAvailable = s.MaxMoney

	hack := p.hackToFloor(full)
	if hack == 0 {
		return Batch{}, false
	}

	grow := p.growToFull(s)
	weaken := p.counterWeaken(hack, grow, s)

	w, g, h := p.times(s)
	if w <= 0 {
		return Batch{}, false
	}

	t := ThreadCounts{Hack: hack, Grow: grow, Weaken: weaken}

	return Batch{
		Shape:   ShapeGHW,
		Threads: t,
		Delays: Delays{
			Hack: delayBefore(w, h, LandBuffer),
			Grow: delayBefore(w, g, 2*LandBuffer),
		},
		RAM:              p.ram(t),
		Duration:         w,
		ExpectedMoney:    MoneyFloor * s.MaxMoney,
		ExpectedSecurity: s.MinDifficulty,
		HackChance:       p.Model.HackChance(s, p.Player),
		HackTime:         h,
		GrowTime:         g,
		WeakenTime:       w,
	}, true
}

// SelectBatch picks a batch shape for a ready target and fits it into freeRAM,
// downscaling when needed. Returns false when no batch can be formed; the
// target stays ready for retry next tick.
func (p *Planner) SelectBatch(s game.ServerSnapshot, freeRAM float64) (Batch, bool) {
	// Elevated security wins over any income cycle, unless money is
	// simultaneously below the floor (post-hack state: the income batch's
	// counter-weaken includes the drift and repairs security while restoring
	// money).
	elevated := s.HackDifficulty > s.MinDifficulty+PrepEpsilon
	belowFloor := s.MoneyAvailable < MoneyFloor*s.MaxMoney

	if elevated && !belowFloor {
		if b, ok := p.PlanPrep(s); ok {
			return Downscale(p, s, b, freeRAM)
		}

		return Batch{}, false
	}

	// Combined first, split fallback.
	if ghw, ok := p.PlanGHW(s); ok && ghw.Threads.Total() <= GHWMaxThreads {
		if fitted, fits := Downscale(p, s, ghw, freeRAM); fits {
			return fitted, true
		}
	}

	if s.MoneyAvailable < MoneyThreshold*s.MaxMoney {
		if gw, ok := p.PlanGW(s); ok {
			return Downscale(p, s, gw, freeRAM)
		}

		return Batch{}, false
	}

	if hw, ok := p.PlanHW(s); ok {
		return Downscale(p, s, hw, freeRAM)
	}

	return Batch{}, false
}
