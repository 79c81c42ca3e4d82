// Package commands implements the hackfang CLI commands.
package commands

import (
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/hackfang/internal/config"
	"github.com/Sumatoshi-tech/hackfang/internal/game"
	"github.com/Sumatoshi-tech/hackfang/internal/game/bridge"
	"github.com/Sumatoshi-tech/hackfang/internal/observability"
	"github.com/Sumatoshi-tech/hackfang/internal/orchestrator"
)

// metricsReadHeaderTimeout bounds header reads on the scrape endpoint.
const metricsReadHeaderTimeout = 10 * time.Second

// RunCommand holds the run command's flag state.
type RunCommand struct {
	configFile  string
	bridgeAddr  string
	ignoreHome  bool
	useFormulas bool
	maxTargets  int
	tickMS      int
	metricsAddr string
	logJSON     bool
	verbose     bool
}

// NewRunCommand creates the `run` command.
func NewRunCommand() *cobra.Command {
	cmd, _ := newRunCommand()

	return cmd
}

func newRunCommand() (*cobra.Command, *RunCommand) {
	rc := &RunCommand{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the orchestrator loop",
		Long: `Run the batch orchestrator: discover and root hosts, prep and cycle
targets, dispatch worker batches across the runner pool, and publish a
per-tick snapshot for peer services. Exits only on SIGINT/SIGTERM.`,
		RunE: rc.run,
	}

	cmd.Flags().StringVar(&rc.configFile, "config", "", "Configuration file path (default: .hackfang.yaml in CWD or $HOME)")
	cmd.Flags().StringVar(&rc.bridgeAddr, "bridge-addr", bridge.DefaultAddr, "Game bridge address")
	cmd.Flags().BoolVar(&rc.ignoreHome, "ignore-home", false, "Omit the home host from the runner pool")
	cmd.Flags().BoolVar(&rc.useFormulas, "formulas", false, "Use the closed-form hacking model instead of host approximations")
	cmd.Flags().IntVar(&rc.maxTargets, "targets", config.DefaultMaxTargetsPerTick, "Cap on fresh batches per tick (>= 1)")
	cmd.Flags().IntVar(&rc.tickMS, "tick-ms", config.DefaultTickIntervalMS, "Scheduler tick interval in milliseconds")
	cmd.Flags().StringVar(&rc.metricsAddr, "metrics-addr", "", "Serve /metrics, /healthz, /readyz on this address (empty = disabled)")
	cmd.Flags().BoolVar(&rc.logJSON, "log-json", false, "Emit JSON-formatted logs")
	cmd.Flags().BoolVarP(&rc.verbose, "verbose", "v", false, "Enable debug logging")

	return cmd, rc
}

func (rc *RunCommand) run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(rc.configFile)
	if err != nil {
		return err
	}

	rc.applyOverrides(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.LogJSON, cfg.Observability.Verbose)

	ctrl := bridge.New(rc.bridgeAddr)

	var model game.HackingModel
	if cfg.Orchestrator.UseFormulas {
		model = game.FormulaModel{}
	} else {
		model = game.ApproxModel{Analyzer: ctrl}
	}

	var metrics *observability.FleetMetrics

	var scrape http.Handler

	if cfg.Observability.MetricsAddr != "" {
		handler, meter, promErr := observability.PrometheusHandler()
		if promErr != nil {
			return promErr
		}

		metrics, err = observability.NewFleetMetrics(meter)
		if err != nil {
			return err
		}

		scrape = handler
	}

	orch, err := orchestrator.New(ctrl, model, logger, metrics, cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if scrape != nil {
		go serveMetrics(cfg.Observability.MetricsAddr, scrape, orch, logger.With("component", "metrics"))
	}

	logger.Info("orchestrator starting",
		"tick_ms", cfg.Orchestrator.TickIntervalMS,
		"max_targets", cfg.Orchestrator.MaxTargetsPerTick,
		"formulas", cfg.Orchestrator.UseFormulas,
		"ignore_home", cfg.Orchestrator.IgnoreHome,
	)

	runErr := orch.Run(ctx)
	if runErr != nil && ctx.Err() == nil {
		return fmt.Errorf("orchestrator: %w", runErr)
	}

	logger.Info("orchestrator stopped")

	return nil
}

// applyOverrides copies explicitly-set flags over the loaded config.
func (rc *RunCommand) applyOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("ignore-home") {
		cfg.Orchestrator.IgnoreHome = rc.ignoreHome
	}

	if flags.Changed("formulas") {
		cfg.Orchestrator.UseFormulas = rc.useFormulas
	}

	if flags.Changed("targets") {
		cfg.Orchestrator.MaxTargetsPerTick = rc.maxTargets
	}

	if flags.Changed("tick-ms") {
		cfg.Orchestrator.TickIntervalMS = rc.tickMS
	}

	if flags.Changed("metrics-addr") {
		cfg.Observability.MetricsAddr = rc.metricsAddr
	}

	if flags.Changed("log-json") {
		cfg.Observability.LogJSON = rc.logJSON
	}

	if flags.Changed("verbose") {
		cfg.Observability.Verbose = rc.verbose
	}
}

// serveMetrics runs the observability HTTP endpoint until process exit.
func serveMetrics(addr string, scrape http.Handler, orch *orchestrator.Orchestrator, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", scrape)
	mux.Handle("/healthz", observability.HealthHandler())
	mux.Handle("/readyz", observability.ReadyHandler(
		observability.NamedCheck{Name: "first-tick", Check: orch.Ready},
	))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: metricsReadHeaderTimeout,
	}

	if err := server.ListenAndServe(); err != nil {
		logger.Error("metrics server stopped", "err", err)
	}
}
