// Package scoring ranks rooted targets by expected profit and meters how many
// fresh batches each tick may admit.
package scoring

import (
	"sort"

	"github.com/Sumatoshi-tech/hackfang/internal/game"
)

// Admission defaults.
const (
	// DefaultMinGrowth excludes targets whose growth rate makes restoring
	// money slower than it is worth.
	DefaultMinGrowth = 15.0

	// DefaultMaxFreshPerTick caps newly-dispatched targets per tick.
	DefaultMaxFreshPerTick = 3
)

// Scorer evaluates target eligibility and profit scores.
type Scorer struct {
	Model     game.HackingModel
	Player    game.Player
	Blacklist map[string]bool
	MinGrowth float64
}

// Eligible reports whether a rooted host is worth hacking at all.
func (sc *Scorer) Eligible(s game.ServerSnapshot) bool {
	if s.MaxMoney <= 0 {
		return false
	}

	if s.RequiredLevel > sc.Player.HackingLevel {
		return false
	}

	if sc.Blacklist[s.Hostname] {
		return false
	}

	minGrowth := sc.MinGrowth
	if minGrowth <= 0 {
		minGrowth = DefaultMinGrowth
	}

	return s.Growth >= minGrowth
}

// Score is the profit metric: max money, discounted by hack chance, divided
// by how hardened the server is at rest.
func (sc *Scorer) Score(s game.ServerSnapshot) float64 {
	chance := sc.Model.HackChance(s, sc.Player)

	return s.MaxMoney * chance / (s.MinDifficulty + 1)
}

// Scored pairs a snapshot with its score.
type Scored struct {
	Snapshot game.ServerSnapshot
	Score    float64
}

// Rank filters eligible snapshots and sorts them by descending score,
// breaking ties by hostname for determinism.
func (sc *Scorer) Rank(snapshots []game.ServerSnapshot) []Scored {
	var out []Scored

	for _, s := range snapshots {
		if !sc.Eligible(s) {
			continue
		}

		out = append(out, Scored{Snapshot: s, Score: sc.Score(s)})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}

		return out[i].Snapshot.Hostname < out[j].Snapshot.Hostname
	})

	return out
}

// Budget meters batch admission within one tick. Recovery batches (restoring
// a target whose money drifted since last completion) are admitted first and
// never count against the fresh budget.
type Budget struct {
	maxFresh int
	fresh    int
	recovery int
}

// NewBudget returns a budget admitting at most maxFresh fresh batches;
// non-positive means the default cap.
func NewBudget(maxFresh int) *Budget {
	if maxFresh <= 0 {
		maxFresh = DefaultMaxFreshPerTick
	}

	return &Budget{maxFresh: maxFresh}
}

// FreshAvailable reports whether a fresh slot remains without consuming it.
func (b *Budget) FreshAvailable() bool {
	return b.fresh < b.maxFresh
}

// AdmitFresh consumes one fresh slot, reporting false when exhausted.
func (b *Budget) AdmitFresh() bool {
	if b.fresh >= b.maxFresh {
		return false
	}

	b.fresh++

	return true
}

// AdmitRecovery records a recovery dispatch; never refused.
func (b *Budget) AdmitRecovery() {
	b.recovery++
}

// Fresh is the number of fresh batches admitted so far.
func (b *Budget) Fresh() int {
	return b.fresh
}

// Recovery is the number of recovery batches admitted so far.
func (b *Budget) Recovery() int {
	return b.recovery
}
