// Package recovery rebuilds per-target state from the live worker process
// list: a census of in-flight threads, phase inference for untracked work,
// and overlap detection before dispatch.
package recovery

import (
	"time"

	"github.com/Sumatoshi-tech/hackfang/internal/game"
	"github.com/Sumatoshi-tech/hackfang/internal/planner"
	"github.com/Sumatoshi-tech/hackfang/internal/target"
)

// Census is the per-target live thread map for one tick, plus fleet-wide
// filler totals. Derived entirely from Ps output.
type Census struct {
	ByTarget     map[string]planner.ThreadCounts
	ShareThreads int
}

// Counts returns the live threads for a target (zero value when none).
func (c Census) Counts(host string) planner.ThreadCounts {
	return c.ByTarget[host]
}

// Live reports whether any worker thread targets the host. This is the
// authoritative busy signal, independent of batch end estimates.
func (c Census) Live(host string) bool {
	return c.ByTarget[host].Total() > 0
}

// Scan sweeps the process lists of all runners and buckets worker threads by
// target.
func Scan(ctrl game.HostController, runners []string) Census {
	census := Census{ByTarget: map[string]planner.ThreadCounts{}}

	for _, runner := range runners {
		for _, proc := range ctrl.Ps(runner) {
			kind, ok := game.KindForScript(proc.Filename)
			if !ok {
				continue
			}

			if kind == game.KindShare {
				census.ShareThreads += proc.Threads

				continue
			}

			host := proc.Target()
			if host == "" {
				continue
			}

			counts := census.ByTarget[host]

			switch kind {
			case game.KindHack:
				counts.Hack += proc.Threads
			case game.KindGrow:
				counts.Grow += proc.Threads
			case game.KindWeaken:
				counts.Weaken += proc.Threads
			}

			census.ByTarget[host] = counts
		}
	}

	return census
}

// InferPhase classifies untracked live threads into a plausible phase.
// Reclassification happens only when the live mix is unambiguous: hack
// present means an HW cycle; grow at elevated security means the tail of a
// prep round; grow at minimum security means a GW cycle; weaken alone at
// minimum security is the counter-weaken tail, attributed post-hack or
// post-grow by money level.
func InferPhase(counts planner.ThreadCounts, s game.ServerSnapshot) target.Phase {
	elevated := s.HackDifficulty > s.MinDifficulty+planner.PrepEpsilon

	switch {
	case counts.Hack > 0:
		return target.HWInflight
	case counts.Grow > 0:
		if elevated {
			return target.Prepping
		}

		return target.GWInflight
	case elevated:
		return target.Prepping
	case s.MoneyAvailable < planner.MoneyThreshold*s.MaxMoney:
		return target.WeakenAfterHack
	default:
		return target.WeakenAfterGrow
	}
}

// EstimateRemaining returns a conservative remaining duration for recovered
// work: the current weaken time, since weaken is the longest operation and
// lands last in every shape. The next completion re-synchronizes.
func EstimateRemaining(model game.HackingModel, s game.ServerSnapshot, p game.Player) time.Duration {
	return model.WeakenTime(s, p)
}

// Apply installs inferred phases on every target whose tracked state is idle
// but whose census entry is nonzero. Returns the adopted hostnames.
// Idempotent per process-list snapshot: targets with a batch end time are
// never touched, so a second application is a no-op.
func Apply(census Census, states map[string]*target.State, observe func(string) game.ServerSnapshot, model game.HackingModel, player game.Player, now time.Time) []string {
	var adopted []string

	for host, counts := range census.ByTarget {
		if counts.Total() == 0 {
			continue
		}

		state, ok := states[host]
		if !ok || !state.BatchEndTime.IsZero() {
			continue
		}

		s := observe(host)
		phase := InferPhase(counts, s)
		state.AdoptRecovered(phase, now.Add(EstimateRemaining(model, s, player)))
		adopted = append(adopted, host)
	}

	return adopted
}
