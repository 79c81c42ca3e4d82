// Package orchestrator runs the cooperative scheduling loop: once per tick it
// discovers hosts, rebuilds state from observation, plans and dispatches
// batches, admits filler, and publishes a snapshot for peer services.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Sumatoshi-tech/hackfang/internal/config"
	"github.com/Sumatoshi-tech/hackfang/internal/game"
	"github.com/Sumatoshi-tech/hackfang/internal/incident"
	"github.com/Sumatoshi-tech/hackfang/internal/ledger"
	"github.com/Sumatoshi-tech/hackfang/internal/observability"
	"github.com/Sumatoshi-tech/hackfang/internal/planner"
	"github.com/Sumatoshi-tech/hackfang/internal/scoring"
	"github.com/Sumatoshi-tech/hackfang/internal/snapshot"
	"github.com/Sumatoshi-tech/hackfang/internal/target"
)

// HomeHostname is the player's own machine, excluded from the runner pool
// with --ignore-home.
const HomeHostname = "home"

// ErrNotReady indicates the orchestrator has not completed its first tick.
var ErrNotReady = errors.New("orchestrator: first tick not completed")

// Orchestrator owns all mutable fleet state. The scheduler loop holds
// exclusive access; peers see only the published snapshot.
type Orchestrator struct {
	ctrl    game.HostController
	model   game.HackingModel
	logger  *slog.Logger
	metrics *observability.FleetMetrics // nil disables
	cfg     *config.Config

	costs     game.ScriptCosts
	planner   *planner.Planner
	ledger    *ledger.Ledger
	scorer    *scoring.Scorer
	incidents *incident.Log
	publisher *snapshot.Publisher

	states map[string]*target.State
	seeded map[string]bool

	// now is the monotonic clock; replaced in tests.
	now func() time.Time

	ready atomic.Bool
}

// New wires an orchestrator. Script RAM costs are measured immediately;
// a zero cost for the hack, grow, or weaken script is a startup error.
func New(ctrl game.HostController, model game.HackingModel, logger *slog.Logger, metrics *observability.FleetMetrics, cfg *config.Config) (*Orchestrator, error) {
	costs, err := game.MeasureScriptCosts(ctrl)
	if err != nil {
		return nil, fmt.Errorf("measure script costs: %w", err)
	}

	player := ctrl.Player()

	blacklist := map[string]bool{}
	for _, host := range cfg.Scoring.Blacklist {
		blacklist[host] = true
	}

	return &Orchestrator{
		ctrl:    ctrl,
		model:   model,
		logger:  logger,
		metrics: metrics,
		cfg:     cfg,
		costs:   costs,
		planner: &planner.Planner{Model: model, Costs: costs, Player: player},
		ledger:  ledger.New(ctrl, costs),
		scorer: &scoring.Scorer{
			Model:     model,
			Player:    player,
			Blacklist: blacklist,
			MinGrowth: cfg.Scoring.MinGrowth,
		},
		incidents: incident.NewLog(incident.DefaultCap),
		publisher: &snapshot.Publisher{
			ArtifactPath: cfg.Snapshot.ArtifactPath,
			HistoryPath:  cfg.Snapshot.HistoryPath,
			HistoryCap:   cfg.Snapshot.HistoryCap,
		},
		states: map[string]*target.State{},
		seeded: map[string]bool{},
		now:    time.Now,
	}, nil
}

// Ready is the readiness check: fails until the first tick has completed.
func (o *Orchestrator) Ready(context.Context) error {
	if !o.ready.Load() {
		return ErrNotReady
	}

	return nil
}

// Incidents exposes the diagnostic ring for the CLI and tests.
func (o *Orchestrator) Incidents() *incident.Log {
	return o.incidents
}

// Run executes the scheduling loop until the context is cancelled. A tick
// failure is logged and the loop continues: a single bad target never stalls
// the fleet.
func (o *Orchestrator) Run(ctx context.Context) error {
	interval := o.cfg.Orchestrator.TickInterval()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		o.safeTick(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// safeTick runs one tick behind a catch-all so a panic in any step returns
// to the tick boundary.
func (o *Orchestrator) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("tick panicked", "panic", r)
		}
	}()

	if _, err := o.Tick(ctx); err != nil {
		o.logger.Error("tick failed", "err", err)
	}
}

// report appends an incident, logs it, and bumps the incident metric.
func (o *Orchestrator) report(ctx context.Context, r incident.Record) {
	r.At = time.Now()
	o.incidents.Add(r)
	o.logger.Warn("incident", "incident", r)

	if o.metrics != nil {
		o.metrics.RecordIncident(ctx, string(r.Kind))
	}
}

// state returns the target's state, lazily creating it on first observation.
func (o *Orchestrator) state(host string) *target.State {
	st, ok := o.states[host]
	if !ok {
		st = target.New(host)
		o.states[host] = st
	}

	return st
}
