// Package gametest provides a deterministic in-memory fleet used as the
// HostController and Analyzer implementation in package tests.
package gametest

import (
	"fmt"
	"math"
	"time"

	"github.com/Sumatoshi-tech/hackfang/internal/game"
)

// Default script RAM costs, matching the live worker scripts.
const (
	HackRAM   = 1.70
	GrowRAM   = 1.75
	WeakenRAM = 1.75
	ShareRAM  = 4.00
)

// Host is one scriptable host in the fake fleet.
type Host struct {
	Snapshot game.ServerSnapshot
	Rooted   bool
	Rootable bool
	Procs    []game.Process

	// Analyzer canned values.
	HackDuration   time.Duration
	GrowDuration   time.Duration
	WeakenDuration time.Duration
	HackFraction   float64
	Chance         float64

	// ThreadsPerDouble is the grow threads needed to double money at the
	// host's current security. GrowthThreads scales it logarithmically.
	ThreadsPerDouble float64
}

// Fleet is a scriptable in-memory HostController and Analyzer.
type Fleet struct {
	ByName     map[string]*Host
	Order      []string
	PlayerInfo game.Player
	ScriptRAMs map[string]float64

	// FailExecOn forces Exec to return 0 for the named hosts.
	FailExecOn map[string]bool

	nextPID int
}

var (
	_ game.HostController = (*Fleet)(nil)
	_ game.Analyzer       = (*Fleet)(nil)
)

// NewFleet returns an empty fleet with default script costs and a level-100 player.
func NewFleet() *Fleet {
	return &Fleet{
		ByName: map[string]*Host{},
		PlayerInfo: game.Player{
			HackingLevel: 100,
		},
		ScriptRAMs: map[string]float64{
			game.HackScript:   HackRAM,
			game.GrowScript:   GrowRAM,
			game.WeakenScript: WeakenRAM,
			game.ShareScript:  ShareRAM,
		},
		FailExecOn: map[string]bool{},
		nextPID:    1,
	}
}

// Add registers a host and returns it for further scripting.
func (f *Fleet) Add(h *Host) *Host {
	f.ByName[h.Snapshot.Hostname] = h
	f.Order = append(f.Order, h.Snapshot.Hostname)

	return h
}

// AddRunner registers a rooted zero-money host providing RAM.
func (f *Fleet) AddRunner(name string, ram float64, cores int) *Host {
	return f.Add(&Host{
		Snapshot: game.ServerSnapshot{Hostname: name, MaxRAM: ram, Cores: cores},
		Rooted:   true,
		Rootable: true,
	})
}

// Hosts enumerates registered hostnames in registration order.
func (f *Fleet) Hosts() []string {
	out := make([]string, len(f.Order))
	copy(out, f.Order)

	return out
}

// Root roots the host when it is rootable.
func (f *Fleet) Root(host string) bool {
	h, ok := f.ByName[host]
	if !ok {
		return false
	}

	if h.Rootable {
		h.Rooted = true
	}

	return h.Rooted
}

// HasRoot reports root access.
func (f *Fleet) HasRoot(host string) bool {
	h, ok := f.ByName[host]

	return ok && h.Rooted
}

// Scp is a no-op; the fake fleet has every script everywhere.
func (f *Fleet) Scp([]string, string) error {
	return nil
}

// Ps lists running processes on the host.
func (f *Fleet) Ps(host string) []game.Process {
	h, ok := f.ByName[host]
	if !ok {
		return nil
	}

	out := make([]game.Process, len(h.Procs))
	copy(out, h.Procs)

	return out
}

// Exec launches a process, consuming host RAM. Returns 0 when the host is
// unknown, marked failing, or lacks the RAM.
func (f *Fleet) Exec(script, host string, threads int, args ...string) int {
	h, ok := f.ByName[host]
	if !ok || threads <= 0 || f.FailExecOn[host] {
		return 0
	}

	need := f.ScriptRAMs[script] * float64(threads)
	if h.Snapshot.UsedRAM+need > h.Snapshot.MaxRAM {
		return 0
	}

	pid := f.nextPID
	f.nextPID++

	h.Snapshot.UsedRAM += need
	h.Procs = append(h.Procs, game.Process{
		Filename: script,
		PID:      pid,
		Threads:  threads,
		Args:     args,
	})

	return pid
}

// Kill terminates a process and releases its RAM.
func (f *Fleet) Kill(pid int, host string) bool {
	h, ok := f.ByName[host]
	if !ok {
		return false
	}

	for i, proc := range h.Procs {
		if proc.PID != pid {
			continue
		}

		h.Snapshot.UsedRAM -= f.ScriptRAMs[proc.Filename] * float64(proc.Threads)
		h.Procs = append(h.Procs[:i], h.Procs[i+1:]...)

		return true
	}

	return false
}

// Server observes the host.
func (f *Fleet) Server(host string) game.ServerSnapshot {
	h, ok := f.ByName[host]
	if !ok {
		return game.ServerSnapshot{Hostname: host}
	}

	return h.Snapshot
}

// ScriptRAM reports the configured per-thread cost.
func (f *Fleet) ScriptRAM(script string) float64 {
	return f.ScriptRAMs[script]
}

// Player observes the configured player.
func (f *Fleet) Player() game.Player {
	return f.PlayerInfo
}

// HackTime returns the canned hack duration.
func (f *Fleet) HackTime(host string) time.Duration { return f.must(host).HackDuration }

// GrowTime returns the canned grow duration.
func (f *Fleet) GrowTime(host string) time.Duration { return f.must(host).GrowDuration }

// WeakenTime returns the canned weaken duration.
func (f *Fleet) WeakenTime(host string) time.Duration { return f.must(host).WeakenDuration }

// HackPercent returns the canned per-thread steal fraction.
func (f *Fleet) HackPercent(host string) float64 { return f.must(host).HackFraction }

// HackChance returns the canned success probability.
func (f *Fleet) HackChance(host string) float64 { return f.must(host).Chance }

// GrowthThreads scales ThreadsPerDouble to the requested multiplier on the
// host's exponential growth curve.
func (f *Fleet) GrowthThreads(host string, multiplier float64, _ int) float64 {
	h := f.must(host)
	if multiplier <= 1 || h.ThreadsPerDouble <= 0 {
		return 0
	}

	return h.ThreadsPerDouble * math.Log2(multiplier)
}

// WeakenEffect mirrors the closed-form weaken model, including its per-core bonus.
func (f *Fleet) WeakenEffect(threads, cores int) float64 {
	return game.FormulaModel{}.WeakenEffect(threads, cores)
}

func (f *Fleet) must(host string) *Host {
	h, ok := f.ByName[host]
	if !ok {
		panic(fmt.Sprintf("gametest: unknown host %q", host))
	}

	return h
}
