// Package target holds the per-target mutable state machine. The orchestrator
// exclusively owns and mutates State; worker processes never touch it.
package target

import (
	"time"

	"github.com/Sumatoshi-tech/hackfang/internal/planner"
)

// StaggerGrace extends the busy window past the estimated batch end, covering
// launch jitter before completion handling runs.
const StaggerGrace = 500 * time.Millisecond

// Phase is a target's position in the prep/cycle state machine.
type Phase int

// Phases. The machine cycles indefinitely; there is no terminal phase.
const (
	Unprepped Phase = iota
	Prepping
	Ready
	HWInflight
	GWInflight
	GHWInflight

	// WeakenAfterHack and WeakenAfterGrow are assigned only by recovery,
	// when live weaken threads are observed with no tracked batch.
	WeakenAfterHack
	WeakenAfterGrow
)

// String returns the phase name used in logs and snapshots.
func (p Phase) String() string {
	switch p {
	case Unprepped:
		return "unprepped"
	case Prepping:
		return "prepping"
	case Ready:
		return "ready"
	case HWInflight:
		return "hw-inflight"
	case GWInflight:
		return "gw-inflight"
	case GHWInflight:
		return "ghw-inflight"
	case WeakenAfterHack:
		return "weaken-after-hack"
	case WeakenAfterGrow:
		return "weaken-after-grow"
	default:
		return "unknown"
	}
}

// Inflight reports whether the phase has income-cycle work in flight,
// including the weaken-only tails adopted by recovery.
func (p Phase) Inflight() bool {
	switch p {
	case HWInflight, GWInflight, GHWInflight, WeakenAfterHack, WeakenAfterGrow:
		return true
	default:
		return false
	}
}

// Cycling reports whether the phase is part of the income cycle rather than prep.
func (p Phase) Cycling() bool {
	switch p {
	case HWInflight, GWInflight, GHWInflight, WeakenAfterHack, WeakenAfterGrow:
		return true
	default:
		return false
	}
}

// PhaseForShape maps a dispatched batch shape to the resulting phase.
func PhaseForShape(shape planner.Shape) Phase {
	switch shape {
	case planner.ShapePrepWeaken:
		return Prepping
	case planner.ShapeHW:
		return HWInflight
	case planner.ShapeGW:
		return GWInflight
	case planner.ShapeGHW:
		return GHWInflight
	default:
		return Unprepped
	}
}

// BatchRecord retains the details of the most recent batch for diagnostics.
// It survives exactly one completion so over-hack incidents can report what
// was actually launched.
type BatchRecord struct {
	Shape        planner.Shape
	Threads      planner.ThreadCounts
	Delays       planner.Delays
	HackTime     time.Duration
	WeakenTime   time.Duration
	MoneyBefore  float64
	Backdoored   bool
	DispatchedAt time.Time
}

// TimingMargin is weaken run time minus hack landing time. A negative margin
// means the hack could land after the weaken, the classic over-hack cause.
func (r BatchRecord) TimingMargin() time.Duration {
	return r.WeakenTime - (r.Delays.Hack + r.HackTime)
}

// State is the mutable per-target record. Lazily created on first
// observation; reset on completion; destroyed only at process exit.
type State struct {
	Hostname string
	Phase    Phase

	// BatchEndTime is the monotonic estimate of the current batch's last
	// landing. Zero means idle.
	BatchEndTime time.Time

	BatchShape        planner.Shape
	BatchThreadsTotal int

	// LastBatch is retained across one completion for diagnostics.
	LastBatch *BatchRecord

	ProfitScore float64
}

// New returns the initial state for a hostname.
func New(hostname string) *State {
	return &State{Hostname: hostname, Phase: Unprepped}
}

// Busy reports whether the planner must skip this target based on the
// estimated batch end. Live worker observation is the authoritative busy
// signal and is applied separately by the orchestrator.
func (s *State) Busy(now time.Time) bool {
	if s.BatchEndTime.IsZero() {
		return false
	}

	return now.Before(s.BatchEndTime.Add(StaggerGrace))
}

// BeginBatch records a dispatched batch and moves to its inflight phase.
func (s *State) BeginBatch(b planner.Batch, moneyBefore float64, backdoored bool, now time.Time) {
	s.Phase = PhaseForShape(b.Shape)
	s.BatchEndTime = now.Add(b.Duration)
	s.BatchShape = b.Shape
	s.BatchThreadsTotal = b.Threads.Total()
	s.LastBatch = &BatchRecord{
		Shape:        b.Shape,
		Threads:      b.Threads,
		Delays:       b.Delays,
		HackTime:     b.HackTime,
		WeakenTime:   b.WeakenTime,
		MoneyBefore:  moneyBefore,
		Backdoored:   backdoored,
		DispatchedAt: now,
	}
}

// AdoptRecovered installs a phase and end-time estimate inferred from live
// workers. Conservative; the next completion re-synchronizes.
func (s *State) AdoptRecovered(phase Phase, endTime time.Time) {
	s.Phase = phase
	s.BatchEndTime = endTime
	s.BatchShape = planner.ShapeNone
	s.BatchThreadsTotal = 0
}

// CompletionDue reports whether the estimated batch end has elapsed.
func (s *State) CompletionDue(now time.Time) bool {
	return !s.BatchEndTime.IsZero() && !now.Before(s.BatchEndTime)
}

// Complete clears the batch and applies the observation-dependent phase
// transition: inflight phases return to Ready; Prepping returns to Ready only
// when security reached tolerance, otherwise back to Unprepped for another
// prep round.
func (s *State) Complete(security, minSecurity float64) {
	prevPhase := s.Phase

	s.BatchEndTime = time.Time{}
	s.BatchShape = planner.ShapeNone
	s.BatchThreadsTotal = 0

	switch {
	case prevPhase.Inflight():
		s.Phase = Ready
	case security <= minSecurity+planner.PrepEpsilon:
		s.Phase = Ready
	default:
		s.Phase = Unprepped
	}
}
