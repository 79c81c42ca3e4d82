// Package bridge implements the game interfaces over the HTTP bridge exposed
// by the in-game companion script. Every call is one JSON POST; the bridge
// serializes them onto the game's script thread.
package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Sumatoshi-tech/hackfang/internal/game"
)

// DefaultAddr is the companion script's default listen address.
const DefaultAddr = "http://127.0.0.1:9123"

// callTimeout bounds a single bridge round trip. The tick is dominated by
// these calls; a hung bridge must not wedge the loop forever.
const callTimeout = 10 * time.Second

// Client talks to the bridge. It implements game.HostController and
// game.Analyzer.
type Client struct {
	addr   string
	client *http.Client
}

var (
	_ game.HostController = (*Client)(nil)
	_ game.Analyzer       = (*Client)(nil)
)

// New returns a client for the given bridge address; empty means DefaultAddr.
func New(addr string) *Client {
	if addr == "" {
		addr = DefaultAddr
	}

	return &Client{
		addr:   addr,
		client: &http.Client{Timeout: callTimeout},
	}
}

type callRequest struct {
	Method string `json:"method"`
	Args   []any  `json:"args"`
}

type callResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error,omitempty"`
}

// call performs one bridge round trip, decoding the result into out.
func (c *Client) call(out any, method string, args ...any) error {
	body, err := json.Marshal(callRequest{Method: method, Args: args})
	if err != nil {
		return fmt.Errorf("encode %s call: %w", method, err)
	}

	resp, err := c.client.Post(c.addr+"/call", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("bridge %s: %w", method, err)
	}
	defer resp.Body.Close()

	var decoded callResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}

	if decoded.Error != "" {
		return fmt.Errorf("bridge %s: %s", method, decoded.Error)
	}

	if out != nil {
		if err := json.Unmarshal(decoded.Result, out); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
	}

	return nil
}

// mustCall is call with error demotion: the scheduling loop treats every
// bridge failure as an empty observation and retries next tick.
func (c *Client) mustCall(out any, method string, args ...any) {
	_ = c.call(out, method, args...)
}

// Hosts enumerates every reachable hostname.
func (c *Client) Hosts() []string {
	var hosts []string
	c.mustCall(&hosts, "scanAll")

	return hosts
}

// Root attempts escalation on the host.
func (c *Client) Root(host string) bool {
	var ok bool
	c.mustCall(&ok, "root", host)

	return ok
}

// HasRoot reports root access.
func (c *Client) HasRoot(host string) bool {
	var ok bool
	c.mustCall(&ok, "hasRootAccess", host)

	return ok
}

// Scp copies files from home onto dest.
func (c *Client) Scp(files []string, dest string) error {
	var ok bool
	if err := c.call(&ok, "scp", files, dest); err != nil {
		return err
	}

	if !ok {
		return fmt.Errorf("scp to %s refused", dest)
	}

	return nil
}

// Ps lists running processes on the host.
func (c *Client) Ps(host string) []game.Process {
	var raw []struct {
		Filename string   `json:"filename"`
		PID      int      `json:"pid"`
		Threads  int      `json:"threads"`
		Args     []string `json:"args"`
	}

	c.mustCall(&raw, "ps", host)

	procs := make([]game.Process, len(raw))
	for i, p := range raw {
		procs[i] = game.Process{Filename: p.Filename, PID: p.PID, Threads: p.Threads, Args: p.Args}
	}

	return procs
}

// Exec launches a script; 0 means failure.
func (c *Client) Exec(script, host string, threads int, args ...string) int {
	callArgs := []any{script, host, threads}
	for _, a := range args {
		callArgs = append(callArgs, a)
	}

	var pid int
	c.mustCall(&pid, "exec", callArgs...)

	return pid
}

// Kill terminates a process by PID.
func (c *Client) Kill(pid int, host string) bool {
	var ok bool
	c.mustCall(&ok, "kill", pid, host)

	return ok
}

// Server observes a host.
func (c *Client) Server(host string) game.ServerSnapshot {
	var s struct {
		Hostname       string  `json:"hostname"`
		MoneyAvailable float64 `json:"moneyAvailable"`
		MaxMoney       float64 `json:"moneyMax"`
		HackDifficulty float64 `json:"hackDifficulty"`
		MinDifficulty  float64 `json:"minDifficulty"`
		Growth         float64 `json:"serverGrowth"`
		RequiredLevel  int     `json:"requiredHackingSkill"`
		MaxRAM         float64 `json:"maxRam"`
		UsedRAM        float64 `json:"ramUsed"`
		Cores          int     `json:"cpuCores"`
		Backdoored     bool    `json:"backdoorInstalled"`
	}

	c.mustCall(&s, "getServer", host)

	return game.ServerSnapshot{
		Hostname:       host,
		MoneyAvailable: s.MoneyAvailable,
		MaxMoney:       s.MaxMoney,
		HackDifficulty: s.HackDifficulty,
		MinDifficulty:  s.MinDifficulty,
		Growth:         s.Growth,
		RequiredLevel:  s.RequiredLevel,
		MaxRAM:         s.MaxRAM,
		UsedRAM:        s.UsedRAM,
		Cores:          s.Cores,
		Backdoored:     s.Backdoored,
	}
}

// ScriptRAM reports a script's per-thread RAM cost in GB.
func (c *Client) ScriptRAM(script string) float64 {
	var ram float64
	c.mustCall(&ram, "getScriptRam", script)

	return ram
}

// Player observes the acting player.
func (c *Client) Player() game.Player {
	var p struct {
		HackingLevel int     `json:"hacking"`
		SpeedMult    float64 `json:"hackingSpeedMult"`
		ChanceMult   float64 `json:"hackingChanceMult"`
		MoneyMult    float64 `json:"hackingMoneyMult"`
		GrowthMult   float64 `json:"hackingGrowMult"`
	}

	c.mustCall(&p, "getPlayer")

	return game.Player{
		HackingLevel: p.HackingLevel,
		SpeedMult:    p.SpeedMult,
		ChanceMult:   p.ChanceMult,
		MoneyMult:    p.MoneyMult,
		GrowthMult:   p.GrowthMult,
	}.Normalize()
}

// HackTime returns the host's current hack duration.
func (c *Client) HackTime(host string) time.Duration { return c.duration("getHackTime", host) }

// GrowTime returns the host's current grow duration.
func (c *Client) GrowTime(host string) time.Duration { return c.duration("getGrowTime", host) }

// WeakenTime returns the host's current weaken duration.
func (c *Client) WeakenTime(host string) time.Duration { return c.duration("getWeakenTime", host) }

func (c *Client) duration(method, host string) time.Duration {
	var ms float64
	c.mustCall(&ms, method, host)

	return time.Duration(ms * float64(time.Millisecond))
}

// HackPercent returns the per-thread steal fraction at current security.
func (c *Client) HackPercent(host string) float64 {
	var f float64
	c.mustCall(&f, "hackAnalyze", host)

	return f
}

// HackChance returns the current hack success probability.
func (c *Client) HackChance(host string) float64 {
	var f float64
	c.mustCall(&f, "hackAnalyzeChance", host)

	return f
}

// GrowthThreads returns the threads needed for the given money multiplier.
func (c *Client) GrowthThreads(host string, multiplier float64, cores int) float64 {
	var f float64
	c.mustCall(&f, "growthAnalyze", host, multiplier, cores)

	return f
}

// WeakenEffect returns the security removed by threads on a cores-wide runner.
func (c *Client) WeakenEffect(threads, cores int) float64 {
	var f float64
	c.mustCall(&f, "weakenAnalyze", threads, cores)

	return f
}
