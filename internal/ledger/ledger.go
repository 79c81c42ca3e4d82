// Package ledger tracks schedulable RAM across the runner fleet and launches
// worker processes against it. The ledger is rebuilt from observation at the
// start of each tick and consumed in place as threads dispatch.
package ledger

import (
	"sort"
	"strconv"
	"time"

	"github.com/Sumatoshi-tech/hackfang/internal/game"
)

// Runner is one host's schedulable RAM entry.
type Runner struct {
	Hostname string
	Cores    int
	Free     float64 // GB
}

// Ledger maps runners to free RAM for one tick.
type Ledger struct {
	ctrl    game.HostController
	costs   game.ScriptCosts
	runners []Runner

	// nextTag disambiguates otherwise-identical hack launches on one runner.
	nextTag int
}

// New returns an empty ledger bound to a controller and measured costs.
func New(ctrl game.HostController, costs game.ScriptCosts) *Ledger {
	return &Ledger{ctrl: ctrl, costs: costs, nextTag: 1}
}

// Rebuild replaces the ledger contents from observed runner state. Runners
// are ordered by descending cores, then descending free RAM, then hostname
// for determinism.
func (l *Ledger) Rebuild(hosts []string) {
	l.runners = l.runners[:0]

	for _, host := range hosts {
		s := l.ctrl.Server(host)

		free := s.MaxRAM - s.UsedRAM
		if free < 0 {
			free = 0
		}

		l.runners = append(l.runners, Runner{Hostname: host, Cores: s.Cores, Free: free})
	}

	sort.SliceStable(l.runners, func(i, j int) bool {
		a, b := l.runners[i], l.runners[j]
		if a.Cores != b.Cores {
			return a.Cores > b.Cores
		}

		if a.Free != b.Free {
			return a.Free > b.Free
		}

		return a.Hostname < b.Hostname
	})
}

// TotalFree sums remaining schedulable RAM.
func (l *Ledger) TotalFree() float64 {
	var total float64
	for _, r := range l.runners {
		total += r.Free
	}

	return total
}

// Runners returns a copy of the current entries in dispatch order.
func (l *Ledger) Runners() []Runner {
	out := make([]Runner, len(l.runners))
	copy(out, l.runners)

	return out
}

// Empty reports whether no runner has schedulable RAM.
func (l *Ledger) Empty() bool {
	for _, r := range l.runners {
		if r.Free > 0 {
			return false
		}
	}

	return true
}

// LaunchResult reports what one Dispatch call actually placed.
type LaunchResult struct {
	Kind      game.WorkerKind
	Requested int
	Launched  int
	Processes int
}

// Short reports whether fewer threads launched than requested.
func (r LaunchResult) Short() bool {
	return r.Launched < r.Requested
}

// splitChance mirrors the planner's split cutoff; kept here so dispatch has
// no planner dependency.
const splitChance = 0.95

// Dispatch launches threads of one worker kind for a target, consuming the
// ledger in place. delay is passed to the worker in milliseconds. When kind
// is hack and hackChance is below the split cutoff, each runner's allocation
// is split into chunks of at most chunk threads, each launched as a distinct
// tagged process so the host does not coalesce them.
//
// Exec returning 0 (a RAM race) zeroes that runner's entry for the rest of
// the tick; the shortfall surfaces in the result.
func (l *Ledger) Dispatch(kind game.WorkerKind, targetHost string, threads int, delay time.Duration, hackChance float64, chunk int) LaunchResult {
	result := LaunchResult{Kind: kind, Requested: threads}
	if threads <= 0 {
		return result
	}

	script := game.ScriptFor(kind)

	cost := l.costs.Cost(kind)
	if cost <= 0 {
		return result
	}

	split := kind == game.KindHack && hackChance < splitChance && chunk > 0
	remaining := threads

	for i := range l.runners {
		if remaining == 0 {
			break
		}

		r := &l.runners[i]

		l.reclaimShare(r)

		k := int(r.Free / cost)
		if k > remaining {
			k = remaining
		}

		if k <= 0 {
			continue
		}

		launched := l.launchOn(r, script, targetHost, k, delay, split, chunk, cost)
		remaining -= launched
		result.Launched += launched

		if launched > 0 {
			result.Processes += processCount(launched, split, chunk)
		}
	}

	return result
}

// launchOn places k threads on one runner, split into tagged chunks when
// requested. Returns the threads actually launched.
func (l *Ledger) launchOn(r *Runner, script, targetHost string, k int, delay time.Duration, split bool, chunk int, cost float64) int {
	delayArg := strconv.FormatInt(delay.Milliseconds(), 10)

	if !split {
		pid := l.ctrl.Exec(script, r.Hostname, k, targetHost, delayArg)
		if pid == 0 {
			r.Free = 0

			return 0
		}

		r.Free -= float64(k) * cost

		return k
	}

	launched := 0

	for launched < k {
		n := chunk
		if k-launched < n {
			n = k - launched
		}

		tag := strconv.Itoa(l.nextTag)
		l.nextTag++

		pid := l.ctrl.Exec(script, r.Hostname, n, targetHost, delayArg, tag)
		if pid == 0 {
			r.Free = 0

			return launched
		}

		r.Free -= float64(n) * cost
		launched += n
	}

	return launched
}

// processCount is the number of processes used for launched threads.
func processCount(launched int, split bool, chunk int) int {
	if !split {
		return 1
	}

	return (launched + chunk - 1) / chunk
}

// reclaimShare kills share filler on a runner when its free RAM cannot place
// even one thread of real work, returning the filler's RAM to the ledger.
// Filler is explicitly killable at any time.
func (l *Ledger) reclaimShare(r *Runner) {
	minCost := l.costs.Hack
	if l.costs.Grow < minCost {
		minCost = l.costs.Grow
	}

	if l.costs.Weaken < minCost {
		minCost = l.costs.Weaken
	}

	if r.Free >= minCost {
		return
	}

	for _, proc := range l.ctrl.Ps(r.Hostname) {
		if proc.Filename != game.ShareScript {
			continue
		}

		if l.ctrl.Kill(proc.PID, r.Hostname) {
			r.Free += float64(proc.Threads) * l.costs.Share
		}
	}
}

// FillShare launches share filler on every runner's leftover RAM and returns
// the total filler threads placed.
func (l *Ledger) FillShare() int {
	if l.costs.Share <= 0 {
		return 0
	}

	total := 0

	for i := range l.runners {
		r := &l.runners[i]

		k := int(r.Free / l.costs.Share)
		if k <= 0 {
			continue
		}

		pid := l.ctrl.Exec(game.ShareScript, r.Hostname, k)
		if pid == 0 {
			r.Free = 0

			continue
		}

		r.Free -= float64(k) * l.costs.Share
		total += k
	}

	return total
}
