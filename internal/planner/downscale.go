package planner

import (
	"math"

	"github.com/Sumatoshi-tech/hackfang/internal/game"
)

// Downscaler constants.
const (
	// downscaleMaxIterations bounds the contraction search.
	downscaleMaxIterations = 20

	// downscaleDecay shrinks the scale factor between iterations.
	downscaleDecay = 0.85
)

// Downscale contracts a batch until it fits freeRAM. The shape and landing
// order are preserved; no thread count ever increases; a batch that had hack
// threads keeps at least one. Returns false when no contraction fits.
func Downscale(p *Planner, s game.ServerSnapshot, b Batch, freeRAM float64) (Batch, bool) {
	if b.RAM <= freeRAM {
		return b, true
	}

	if b.RAM <= 0 {
		return Batch{}, false
	}

	scale := freeRAM / b.RAM

	for range downscaleMaxIterations {
		shrunk, ok := shrinkTo(p, s, b, scale)
		if ok && shrunk.RAM <= freeRAM {
			return shrunk, true
		}

		scale *= downscaleDecay
	}

	return Batch{}, false
}

// shrinkTo proposes a contraction at the given scale, recomputing the weaken
// counter from the drifted hack/grow counts.
func shrinkTo(p *Planner, s game.ServerSnapshot, b Batch, scale float64) (Batch, bool) {
	t := b.Threads

	if t.Grow > 0 {
		t.Grow = int(math.Floor(float64(b.Threads.Grow) * scale))
	}

	if b.Threads.Hack > 0 {
		t.Hack = int(math.Floor(float64(b.Threads.Hack) * scale))
		if t.Hack < 1 {
			t.Hack = 1
		}
	}

	switch b.Shape {
	case ShapePrepWeaken:
		// Prep carries no hack or grow to recompute against; scale the
		// weaken threads directly. Partial prep still makes progress.
		t.Weaken = int(math.Floor(float64(b.Threads.Weaken) * scale))
		if t.Weaken < 1 {
			t.Weaken = 1
		}
	default:
		t.Weaken = p.counterWeaken(t.Hack, t.Grow, s)
	}

	// Never increase any count over the original plan.
	if t.Weaken > b.Threads.Weaken {
		t.Weaken = b.Threads.Weaken
	}

	if b.Threads.Hack > 0 && t.Hack == 0 {
		return Batch{}, false
	}

	if t.Total() == 0 {
		return Batch{}, false
	}

	shrunk := b
	shrunk.Threads = t
	shrunk.RAM = p.ram(t)

	return shrunk, true
}
