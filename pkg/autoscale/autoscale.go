// Package autoscale implements the governor described in spec.md §4.H: it
// derives an output FPS and a decay window from the observed span of a
// run's event timestamps.
package autoscale

import "math"

// MinFPS and MaxFPS bound the derived frame rate.
const (
	MinFPS = 1
	MaxFPS = 120
)

// MinDecaySeconds is the floor applied to the derived decay window, per
// spec.md's "1 day -> 3 FPS, 3h decay" baseline.
const MinDecaySeconds = 3600

// Params is the governor's output.
type Params struct {
	FPS          int
	DecaySeconds int64
}

// Derive computes Params from spanSeconds, the observed (last_seen_t -
// first_seen_t) of a run. If spanSeconds <= 0, auto-scale has nothing to
// act on and the caller's configured defaults should be kept — Derive
// does not get called in that case by pkg/pipeline.
func Derive(spanSeconds int64) Params {
	spanDays := float64(spanSeconds) / 86400.0

	fps := int(math.Round(3 * spanDays))
	if fps < MinFPS {
		fps = MinFPS
	}
	if fps > MaxFPS {
		fps = MaxFPS
	}

	decaySeconds := int64(3 * spanDays * 3600)
	if decaySeconds < MinDecaySeconds {
		decaySeconds = MinDecaySeconds
	}

	return Params{FPS: fps, DecaySeconds: decaySeconds}
}
