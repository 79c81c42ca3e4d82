package commands

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/hackfang/internal/config"
	"github.com/Sumatoshi-tech/hackfang/internal/game"
	"github.com/Sumatoshi-tech/hackfang/internal/game/bridge"
	"github.com/Sumatoshi-tech/hackfang/internal/orchestrator"
	"github.com/Sumatoshi-tech/hackfang/internal/scoring"
)

// moneyDisplayDigits controls money formatting in the targets table.
const moneyDisplayDigits = 1

// TargetsCommand holds the targets command's flag state.
type TargetsCommand struct {
	configFile  string
	bridgeAddr  string
	useFormulas bool
	limit       int
	noColor     bool
}

// NewTargetsCommand creates the `targets` command: a one-shot scored listing
// of the current admission order.
func NewTargetsCommand() *cobra.Command {
	tc := &TargetsCommand{}

	cmd := &cobra.Command{
		Use:   "targets",
		Short: "Show the scored target admission list",
		RunE:  tc.run,
	}

	cmd.Flags().StringVar(&tc.configFile, "config", "", "Configuration file path (default: .hackfang.yaml in CWD or $HOME)")
	cmd.Flags().StringVar(&tc.bridgeAddr, "bridge-addr", bridge.DefaultAddr, "Game bridge address")
	cmd.Flags().BoolVar(&tc.useFormulas, "formulas", false, "Use the closed-form hacking model")
	cmd.Flags().IntVar(&tc.limit, "limit", 0, "Show only the top N targets (0 = all)")
	cmd.Flags().BoolVar(&tc.noColor, "no-color", false, "Disable colored output")

	return cmd
}

func (tc *TargetsCommand) run(_ *cobra.Command, _ []string) error {
	if tc.noColor {
		color.NoColor = true //nolint:reassign // intentional override of library global
	}

	cfg, err := config.Load(tc.configFile)
	if err != nil {
		return err
	}

	ctrl := bridge.New(tc.bridgeAddr)

	var model game.HackingModel
	if tc.useFormulas {
		model = game.FormulaModel{}
	} else {
		model = game.ApproxModel{Analyzer: ctrl}
	}

	blacklist := map[string]bool{}
	for _, host := range cfg.Scoring.Blacklist {
		blacklist[host] = true
	}

	scorer := &scoring.Scorer{
		Model:     model,
		Player:    ctrl.Player(),
		Blacklist: blacklist,
		MinGrowth: cfg.Scoring.MinGrowth,
	}

	var candidates []game.ServerSnapshot

	for _, host := range ctrl.Hosts() {
		if host == orchestrator.HomeHostname || !ctrl.HasRoot(host) {
			continue
		}

		candidates = append(candidates, ctrl.Server(host))
	}

	ranked := scorer.Rank(candidates)
	if tc.limit > 0 && len(ranked) > tc.limit {
		ranked = ranked[:tc.limit]
	}

	renderTargets(ranked, scorer, model)

	return nil
}

// renderTargets prints the scored list as a table, highlighting the admission
// window that a default tick would dispatch.
func renderTargets(ranked []scoring.Scored, scorer *scoring.Scorer, model game.HackingModel) {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(os.Stdout)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"#", "Target", "Score", "Max Money", "Min Sec", "Chance", "Growth"})

	admitted := color.New(color.FgGreen)

	for i, sc := range ranked {
		s := sc.Snapshot
		name := s.Hostname

		if i < scoring.DefaultMaxFreshPerTick {
			name = admitted.Sprint(name)
		}

		tbl.AppendRow(table.Row{
			i + 1,
			name,
			fmt.Sprintf("%.3g", sc.Score),
			"$" + humanize.SIWithDigits(s.MaxMoney, moneyDisplayDigits, ""),
			fmt.Sprintf("%.1f", s.MinDifficulty),
			fmt.Sprintf("%.0f%%", model.HackChance(s, scorer.Player)*100),
			fmt.Sprintf("%.0f", s.Growth),
		})
	}

	tbl.AppendFooter(table.Row{"", fmt.Sprintf("Total: %d targets", len(ranked))})
	tbl.Render()
}
