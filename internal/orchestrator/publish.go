package orchestrator

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Sumatoshi-tech/hackfang/internal/recovery"
	"github.com/Sumatoshi-tech/hackfang/internal/snapshot"
	"github.com/Sumatoshi-tech/hackfang/internal/target"
)

// buildSnapshot assembles the published view from the post-dispatch process
// census and tracked phases.
func (o *Orchestrator) buildSnapshot(post recovery.Census, stats TickStats) snapshot.Snapshot {
	var hackThreads, prepThreads, cycleThreads, realThreads int

	for host, counts := range post.ByTarget {
		total := counts.Total()
		realThreads += total
		hackThreads += counts.Hack

		st, tracked := o.states[host]
		if tracked && st.Phase.Cycling() {
			cycleThreads += total
		} else {
			prepThreads += total
		}
	}

	var prepped, prepping, cycling int

	for _, st := range o.states {
		switch {
		case st.Phase == target.Ready:
			prepped++
		case st.Phase == target.Prepping:
			prepping++
		case st.Phase.Cycling():
			cycling++
		}
	}

	return snapshot.Snapshot{
		Timestamp:       time.Now(),
		ShareThreads:    post.ShareThreads,
		TotalThreads:    realThreads + post.ShareThreads,
		HackingThreads:  hackThreads,
		PrepThreads:     prepThreads,
		CycleThreads:    cycleThreads,
		Saturated:       post.ShareThreads > 0 && realThreads > 0,
		PreppedServers:  prepped,
		PreppingServers: prepping,
		CyclingServers:  cycling,
		FreeRAM:         stats.FreeRAM,
	}
}

// publish writes the artifact and history record.
func (o *Orchestrator) publish(post recovery.Census, stats TickStats) error {
	return o.publisher.Publish(o.buildSnapshot(post, stats))
}

// emitTickLog writes the per-tick summary record and tick metrics.
func (o *Orchestrator) emitTickLog(ctx context.Context, stats TickStats) {
	o.logger.Info("tick",
		"runners", stats.Runners,
		"targets", stats.RankedTargets,
		"adopted", stats.AdoptedTargets,
		"batches", stats.BatchesDispatched,
		"fresh", stats.FreshBatches,
		"recovery", stats.RecoveryBatches,
		"threads", stats.ThreadsLaunched,
		"share", stats.ShareThreads,
		"free_ram_gb", humanize.CommafWithDigits(stats.FreeRAM, 1),
		"took_ms", stats.Duration.Milliseconds(),
	)

	if o.metrics == nil {
		return
	}

	o.metrics.RecordTick(ctx, stats.Duration, stats.FreeRAM)

	phases := map[string]int{}
	for _, st := range o.states {
		phases[st.Phase.String()]++
	}

	for phase, count := range phases {
		o.metrics.RecordTargets(ctx, phase, count)
	}
}
