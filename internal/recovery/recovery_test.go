package recovery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/hackfang/internal/game"
	"github.com/Sumatoshi-tech/hackfang/internal/game/gametest"
	"github.com/Sumatoshi-tech/hackfang/internal/planner"
	"github.com/Sumatoshi-tech/hackfang/internal/target"
)

func preppedServer(money, maxMoney float64) game.ServerSnapshot {
	return game.ServerSnapshot{
		Hostname:       "joesguns",
		MoneyAvailable: money,
		MaxMoney:       maxMoney,
		HackDifficulty: 10,
		MinDifficulty:  10,
	}
}

func TestScan_BucketsThreadsByTarget(t *testing.T) {
	t.Parallel()

	fleet := gametest.NewFleet()
	fleet.AddRunner("a", 512, 1)
	fleet.AddRunner("b", 512, 1)

	require.NotZero(t, fleet.Exec(game.GrowScript, "a", 10, "joesguns", "0"))
	require.NotZero(t, fleet.Exec(game.WeakenScript, "b", 2, "joesguns", "0"))
	require.NotZero(t, fleet.Exec(game.HackScript, "b", 5, "n00dles", "100", "1"))
	require.NotZero(t, fleet.Exec(game.ShareScript, "a", 7))

	census := Scan(fleet, []string{"a", "b"})

	joes := census.Counts("joesguns")
	assert.Equal(t, 10, joes.Grow)
	assert.Equal(t, 2, joes.Weaken)
	assert.Zero(t, joes.Hack)

	noodles := census.Counts("n00dles")
	assert.Equal(t, 5, noodles.Hack)

	assert.Equal(t, 7, census.ShareThreads)
	assert.True(t, census.Live("joesguns"))
	assert.False(t, census.Live("phantasy"))
}

func TestScan_IgnoresForeignProcesses(t *testing.T) {
	t.Parallel()

	fleet := gametest.NewFleet()
	fleet.AddRunner("a", 512, 1)
	fleet.ScriptRAMs["other.js"] = 2.0

	require.NotZero(t, fleet.Exec("other.js", "a", 3, "joesguns"))

	census := Scan(fleet, []string{"a"})
	assert.False(t, census.Live("joesguns"))
}

func TestInferPhase(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		counts planner.ThreadCounts
		server game.ServerSnapshot
		want   target.Phase
	}{
		{
			name:   "hack live means HW cycle",
			counts: planner.ThreadCounts{Hack: 5, Weaken: 1},
			server: preppedServer(9e5, 1e6),
			want:   target.HWInflight,
		},
		{
			name:   "grow at min security means GW cycle",
			counts: planner.ThreadCounts{Grow: 10, Weaken: 2},
			server: preppedServer(5e5, 1e6),
			want:   target.GWInflight,
		},
		{
			name:   "grow at elevated security means prep tail",
			counts: planner.ThreadCounts{Grow: 10, Weaken: 2},
			server: elevated(preppedServer(5e5, 1e6)),
			want:   target.Prepping,
		},
		{
			name:   "weaken only at elevated security means prepping",
			counts: planner.ThreadCounts{Weaken: 20},
			server: elevated(preppedServer(5e5, 1e6)),
			want:   target.Prepping,
		},
		{
			name:   "weaken only at min security with low money means post-hack",
			counts: planner.ThreadCounts{Weaken: 4},
			server: preppedServer(6e4, 1e6),
			want:   target.WeakenAfterHack,
		},
		{
			name:   "weaken only at min security with full money means post-grow",
			counts: planner.ThreadCounts{Weaken: 4},
			server: preppedServer(1e6, 1e6),
			want:   target.WeakenAfterGrow,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, InferPhase(tc.counts, tc.server))
		})
	}
}

func elevated(s game.ServerSnapshot) game.ServerSnapshot {
	s.HackDifficulty = s.MinDifficulty + 15

	return s
}

func TestApply_AdoptsUntrackedTargets(t *testing.T) {
	t.Parallel()

	fleet := gametest.NewFleet()
	fleet.AddRunner("runner", 512, 1)
	fleet.Add(&gametest.Host{
		Snapshot:       preppedServer(5e5, 1e6),
		Rooted:         true,
		WeakenDuration: 2500 * time.Millisecond,
	})

	require.NotZero(t, fleet.Exec(game.GrowScript, "runner", 10, "joesguns", "0"))
	require.NotZero(t, fleet.Exec(game.WeakenScript, "runner", 2, "joesguns", "0"))

	census := Scan(fleet, []string{"runner"})
	states := map[string]*target.State{"joesguns": target.New("joesguns")}
	model := game.ApproxModel{Analyzer: fleet}

	now := time.Now()
	adopted := Apply(census, states, fleet.Server, model, game.Player{HackingLevel: 100}, now)

	require.Equal(t, []string{"joesguns"}, adopted)

	st := states["joesguns"]
	assert.Equal(t, target.GWInflight, st.Phase)
	assert.Equal(t, now.Add(2500*time.Millisecond), st.BatchEndTime)
}

func TestApply_Idempotent(t *testing.T) {
	t.Parallel()

	fleet := gametest.NewFleet()
	fleet.AddRunner("runner", 512, 1)
	fleet.Add(&gametest.Host{
		Snapshot:       preppedServer(5e5, 1e6),
		Rooted:         true,
		WeakenDuration: 2500 * time.Millisecond,
	})

	require.NotZero(t, fleet.Exec(game.GrowScript, "runner", 10, "joesguns", "0"))

	census := Scan(fleet, []string{"runner"})
	states := map[string]*target.State{"joesguns": target.New("joesguns")}
	model := game.ApproxModel{Analyzer: fleet}
	player := game.Player{HackingLevel: 100}

	now := time.Now()
	first := Apply(census, states, fleet.Server, model, player, now)
	require.Len(t, first, 1)

	snapshotAfterFirst := *states["joesguns"]

	second := Apply(census, states, fleet.Server, model, player, now.Add(time.Second))
	assert.Empty(t, second)
	assert.Equal(t, snapshotAfterFirst, *states["joesguns"])
}

func TestApply_SkipsTrackedTargets(t *testing.T) {
	t.Parallel()

	fleet := gametest.NewFleet()
	fleet.AddRunner("runner", 512, 1)
	fleet.Add(&gametest.Host{Snapshot: preppedServer(5e5, 1e6), Rooted: true})

	require.NotZero(t, fleet.Exec(game.GrowScript, "runner", 10, "joesguns", "0"))

	census := Scan(fleet, []string{"runner"})

	st := target.New("joesguns")
	st.AdoptRecovered(target.GWInflight, time.Now().Add(time.Second))
	states := map[string]*target.State{"joesguns": st}

	adopted := Apply(census, states, fleet.Server, game.FormulaModel{}, game.Player{HackingLevel: 100}, time.Now())
	assert.Empty(t, adopted)
}
