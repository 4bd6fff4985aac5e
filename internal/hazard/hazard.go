// Package hazard implements the emulator's pluggable channel hazards: given
// a packet's direction and id, decide whether to drop it and, if not, how
// long to delay it. The set of hazards is closed and selected once at
// startup (spec.md §9 design note), so each variant is a small, separately
// testable type satisfying the same narrow Hazard interface rather than a
// single switch-on-kind struct.
package hazard

import (
	"math/rand"
	"time"

	"github.com/pkg/errors"

	"lossynet/internal/delayqueue"
)

// Direction re-exports delayqueue.Direction so hazard callers never need to
// import delayqueue directly just to name a direction.
type Direction = delayqueue.Direction

const (
	Forward  = delayqueue.Forward
	Backward = delayqueue.Backward
)

// Effect is a hazard's verdict for one packet: drop it, or delay it by
// DelayMS before forwarding.
type Effect struct {
	Drop    bool
	DelayMS int64
}

// Hazard decides the fate of a single packet crossing the emulator.
type Hazard interface {
	// Evaluate consults the hazard's state (and RNG, where applicable) for
	// a packet travelling in dir with the given id, observed at now.
	Evaluate(dir Direction, id uint32, now time.Time) Effect
}

// New constructs the named hazard from its CLI name (spec.md §6) and
// parameters. rng seeds every hazard that draws randomness so tests can be
// deterministic; pass rand.New(rand.NewSource(seed)).
func New(name string, params Params, rng *rand.Rand) (Hazard, error) {
	switch name {
	case "random-loss":
		return NewIndependentLoss(params.P, rng), nil
	case "burst-loss":
		return NewBurstLoss(params.PMark, params.PStart, rng), nil
	case "shallow-buffer":
		return NewShallowBuffer(params.Capacity, params.DrainRate, time.Now), nil
	case "random-jitter":
		return NewJitter(params.MeanMS, params.StdMS, rng), nil
	default:
		return nil, errors.Errorf("hazard: unknown hazard name %q", name)
	}
}

// Params bundles every hazard's possible constructor parameters; only the
// fields relevant to the selected hazard are read.
type Params struct {
	P              float64 // independent-loss
	PMark, PStart  float64 // burst-loss
	Capacity       int     // shallow-buffer
	DrainRate      float64 // shallow-buffer, packets/sec
	MeanMS, StdMS  float64 // random-jitter
}
