package orchestrator

import (
	"context"
	"time"

	"github.com/Sumatoshi-tech/hackfang/internal/game"
	"github.com/Sumatoshi-tech/hackfang/internal/incident"
	"github.com/Sumatoshi-tech/hackfang/internal/planner"
	"github.com/Sumatoshi-tech/hackfang/internal/recovery"
	"github.com/Sumatoshi-tech/hackfang/internal/scoring"
	"github.com/Sumatoshi-tech/hackfang/internal/target"
)

// TickStats summarizes one completed tick.
type TickStats struct {
	Runners           int
	RankedTargets     int
	AdoptedTargets    int
	BatchesDispatched int
	FreshBatches      int
	RecoveryBatches   int
	ThreadsLaunched   int
	ShareThreads      int
	FreeRAM           float64
	Duration          time.Duration
}

// Tick executes the fixed pipeline once: discover, categorize, recover, plan,
// downscale, dispatch, fill, publish. All computation within a tick is
// synchronous and deterministic given observed state.
func (o *Orchestrator) Tick(ctx context.Context) (TickStats, error) {
	started := o.now()

	var stats TickStats

	// Discover and root.
	rooted := o.discover()

	// Categorize into runners and target candidates.
	runners, candidates := o.categorize(rooted)
	stats.Runners = len(runners)

	o.seedWorkers(runners)

	// Recover state from the live process list.
	census := recovery.Scan(o.ctrl, runners)
	ranked := o.scorer.Rank(candidates)
	stats.RankedTargets = len(ranked)

	for _, sc := range ranked {
		o.state(sc.Snapshot.Hostname)
	}

	adopted := recovery.Apply(census, o.states, o.ctrl.Server, o.model, o.planner.Player, started)
	stats.AdoptedTargets = len(adopted)

	for _, host := range adopted {
		o.logger.Info("recovered in-flight target",
			"target", host,
			"phase", o.states[host].Phase.String(),
			"threads", census.Counts(host).Total(),
		)
	}

	o.completeDue(ctx, census, started)

	// Plan and dispatch against a fresh RAM ledger.
	o.ledger.Rebuild(runners)

	if o.ledger.Empty() {
		o.report(ctx, incident.Record{Kind: incident.KindNoRunner})
	} else {
		o.dispatchAll(ctx, ranked, census, started, &stats)
	}

	// Fill leftover RAM with share workers.
	stats.ShareThreads = o.ledger.FillShare()

	// Publish from a post-dispatch process scan so thread totals reflect
	// what actually runs, not what was planned.
	post := recovery.Scan(o.ctrl, runners)
	stats.FreeRAM = o.ledger.TotalFree()
	stats.Duration = o.now().Sub(started)

	if err := o.publish(post, stats); err != nil {
		o.logger.Error("publish snapshot failed", "err", err)
	}

	o.emitTickLog(ctx, stats)
	o.ready.Store(true)

	return stats, nil
}

// discover enumerates reachable hosts and attempts root on unrooted ones.
func (o *Orchestrator) discover() []string {
	var rooted []string

	for _, host := range o.ctrl.Hosts() {
		if o.ctrl.HasRoot(host) || o.ctrl.Root(host) {
			rooted = append(rooted, host)
		}
	}

	return rooted
}

// categorize partitions rooted hosts into the runner pool and target
// candidates. Home provides RAM (unless ignored) but is never a target.
func (o *Orchestrator) categorize(rooted []string) (runners []string, candidates []game.ServerSnapshot) {
	for _, host := range rooted {
		s := o.ctrl.Server(host)

		if s.MaxRAM > 0 && !(o.cfg.Orchestrator.IgnoreHome && host == HomeHostname) {
			runners = append(runners, host)
		}

		if host == HomeHostname {
			continue
		}

		candidates = append(candidates, s)
	}

	return runners, candidates
}

// seedWorkers copies the worker scripts onto runners not yet seeded.
func (o *Orchestrator) seedWorkers(runners []string) {
	for _, host := range runners {
		if host == HomeHostname || o.seeded[host] {
			continue
		}

		if err := o.ctrl.Scp(game.WorkerScripts, host); err != nil {
			o.logger.Warn("seed worker scripts failed", "runner", host, "err", err)

			continue
		}

		o.seeded[host] = true
	}
}

// completeDue applies completion transitions for targets whose estimated end
// has elapsed and whose workers are no longer observed. Live workers are the
// authoritative busy signal and defer completion.
func (o *Orchestrator) completeDue(ctx context.Context, census recovery.Census, now time.Time) {
	for host, st := range o.states {
		if !st.CompletionDue(now) || census.Live(host) {
			continue
		}

		s := o.ctrl.Server(host)

		if st.Phase.Inflight() && s.MoneyAvailable < planner.OverhackFloor*s.MaxMoney {
			o.reportOverhack(ctx, st, s)
		}

		st.Complete(s.HackDifficulty, s.MinDifficulty)
	}
}

// reportOverhack logs the over-hack diagnostic with the retained batch info.
func (o *Orchestrator) reportOverhack(ctx context.Context, st *target.State, s game.ServerSnapshot) {
	details := map[string]any{
		"money":      s.MoneyAvailable,
		"max_money":  s.MaxMoney,
		"backdoored": s.Backdoored,
	}

	if last := st.LastBatch; last != nil {
		details["shape"] = last.Shape.String()
		details["money_before"] = last.MoneyBefore
		details["hack_threads"] = last.Threads.Hack
		details["weaken_threads"] = last.Threads.Weaken
		details["hack_time_ms"] = last.HackTime.Milliseconds()
		details["weaken_time_ms"] = last.WeakenTime.Milliseconds()
		details["margin_ms"] = last.TimingMargin().Milliseconds()
	}

	o.report(ctx, incident.Record{
		Kind:    incident.KindOverHack,
		Target:  st.Hostname,
		Details: details,
	})
}

// dispatchAll walks the ranked targets, recovery batches before fresh ones,
// and dispatches what fits. Recovery batches never consume the fresh budget.
func (o *Orchestrator) dispatchAll(ctx context.Context, ranked []scoring.Scored, census recovery.Census, now time.Time, stats *TickStats) {
	budget := scoring.NewBudget(o.cfg.Orchestrator.MaxTargetsPerTick)

	for _, wantRecovery := range []bool{true, false} {
		for _, sc := range ranked {
			host := sc.Snapshot.Hostname
			st := o.states[host]
			st.ProfitScore = sc.Score

			if isRecoveryBatch(st) != wantRecovery {
				continue
			}

			o.planAndDispatch(ctx, st, sc.Snapshot, census, budget, now, stats)
		}
	}

	stats.FreshBatches = budget.Fresh()
	stats.RecoveryBatches = budget.Recovery()
}

// isRecoveryBatch reports whether dispatching this target restores a
// previously active one rather than opening a new front.
func isRecoveryBatch(st *target.State) bool {
	return st.LastBatch != nil
}

// planAndDispatch plans one batch for a target and launches it, honoring the
// busy rule, the overlap check, and the admission budget.
func (o *Orchestrator) planAndDispatch(ctx context.Context, st *target.State, s game.ServerSnapshot, census recovery.Census, budget *scoring.Budget, now time.Time, stats *TickStats) {
	if st.Busy(now) || st.Phase.Inflight() || st.Phase == target.Prepping {
		return
	}

	if counts := census.Counts(st.Hostname); counts.Total() > 0 {
		// Live workers with an idle tracked state: external tampering or a
		// scheduler gap. Recovery adopts a phase when the mix is readable;
		// here we log and wait rather than stack a second batch.
		o.report(ctx, incident.Record{
			Kind:   incident.KindOverlap,
			Target: st.Hostname,
			Details: map[string]any{
				"hack":   counts.Hack,
				"grow":   counts.Grow,
				"weaken": counts.Weaken,
				"phase":  st.Phase.String(),
			},
		})

		return
	}

	if !isRecoveryBatch(st) && !budget.FreshAvailable() {
		return
	}

	b, ok := o.planner.SelectBatch(s, o.ledger.TotalFree())
	if !ok {
		return
	}

	if b.Threads.Grow > planner.LargeGrowThreshold {
		o.report(ctx, incident.Record{
			Kind:    incident.KindLargeGrow,
			Target:  st.Hostname,
			Details: map[string]any{"grow_threads": b.Threads.Grow},
		})
	}

	launched, short := o.launchBatch(ctx, st.Hostname, b)
	if launched.Total() == 0 {
		return
	}

	if short {
		o.report(ctx, incident.Record{
			Kind:   incident.KindPartialDispatch,
			Target: st.Hostname,
			Details: map[string]any{
				"shape":           b.Shape.String(),
				"planned_hack":    b.Threads.Hack,
				"planned_grow":    b.Threads.Grow,
				"planned_weaken":  b.Threads.Weaken,
				"launched_hack":   launched.Hack,
				"launched_grow":   launched.Grow,
				"launched_weaken": launched.Weaken,
			},
		})
	}

	if isRecoveryBatch(st) {
		budget.AdmitRecovery()
	} else if !budget.AdmitFresh() {
		// Checked before planning; kept as a guard against future reordering.
		return
	}

	// Phase and end time follow what actually landed, even after a partial.
	dispatched := b
	dispatched.Threads = launched
	st.BeginBatch(dispatched, s.MoneyAvailable, s.Backdoored, now)

	stats.BatchesDispatched++
	stats.ThreadsLaunched += launched.Total()

	if o.metrics != nil {
		o.metrics.RecordBatch(ctx, b.Shape.String())
	}

	o.logger.Debug("batch dispatched",
		"target", st.Hostname,
		"shape", b.Shape.String(),
		"hack", launched.Hack,
		"grow", launched.Grow,
		"weaken", launched.Weaken,
		"ram_gb", b.RAM,
		"ends_in_ms", b.Duration.Milliseconds(),
	)
}

// launchBatch dispatches the batch's kinds in launch order: weaken first with
// zero delay, then grow, then hack. Delays enforce landing order regardless
// of launch order; launching within one tick keeps a shared time base.
func (o *Orchestrator) launchBatch(ctx context.Context, host string, b planner.Batch) (planner.ThreadCounts, bool) {
	var launched planner.ThreadCounts

	short := false

	for _, kind := range game.RealKinds {
		n := b.Threads.Count(kind)
		if n == 0 {
			continue
		}

		res := o.ledger.Dispatch(kind, host, n, b.Delays.Delay(kind), b.HackChance, planner.HackSplitChunk)

		switch kind {
		case game.KindHack:
			launched.Hack = res.Launched
		case game.KindGrow:
			launched.Grow = res.Launched
		case game.KindWeaken:
			launched.Weaken = res.Launched
		}

		if res.Short() {
			short = true
		}

		if o.metrics != nil {
			o.metrics.RecordThreads(ctx, kind.String(), res.Launched)
		}
	}

	return launched, short
}
