// pkg/noise/noise.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package noise adds sensor-appropriate jitter to movement states.
// Without it, entities glide along perfect mathematical curves that
// look synthetic; a correlated random walk on position, speed, and
// heading makes tracks look like real GPS/AIS/radar reports.
package noise

import (
	"math"

	"github.com/davidarule/edge-c2-sim/pkg/movement"
	"github.com/davidarule/edge-c2-sim/pkg/rand"
)

// walkStep scales sigma down for the per-tick random-walk increment;
// the offset itself (not the increment) is what gets clamped to three
// times the domain amplitude.
const walkStep = 0.3

// metersPerDegreeLat is the standard approximation used to convert
// north/east meter offsets back to lat/lon deltas.
const metersPerDegreeLat = 111111.0

// Params holds the per-domain noise amplitudes from spec.md §4.4.
type Params struct {
	PositionM   float64
	SpeedPct    float64
	HeadingDeg  float64
	DecayFactor float64
}

// DefaultDecayFactor sits in the middle of the spec's 0.90-0.95 range.
const DefaultDecayFactor = 0.92

// ParamsForDomain returns the noise amplitudes for a domain string
// ("MARITIME", "AIR", "GROUND_VEHICLE", "PERSONNEL"); unrecognized
// domains fall back to the maritime profile.
func ParamsForDomain(domain string) Params {
	switch domain {
	case "AIR":
		return Params{PositionM: 50.0, SpeedPct: 0.01, HeadingDeg: 1.0, DecayFactor: DefaultDecayFactor}
	case "GROUND_VEHICLE":
		return Params{PositionM: 5.0, SpeedPct: 0.03, HeadingDeg: 1.0, DecayFactor: DefaultDecayFactor}
	case "PERSONNEL":
		return Params{PositionM: 3.0, SpeedPct: 0.05, HeadingDeg: 5.0, DecayFactor: DefaultDecayFactor}
	default: // "MARITIME" and anything unrecognized
		return Params{PositionM: 15.0, SpeedPct: 0.02, HeadingDeg: 2.0, DecayFactor: DefaultDecayFactor}
	}
}

// Generator is a per-entity, never-shared source of correlated
// random-walk noise. It must not be used concurrently from multiple
// goroutines against the same entity.
type Generator struct {
	params Params
	rnd    rand.Rand

	offsetNorthM  float64
	offsetEastM   float64
	speedOffset   float64
	headingOffset float64
}

// New constructs a noise Generator for one entity, seeded
// independently so entities don't share correlated jitter.
func New(params Params, seed uint64) *Generator {
	r := rand.New()
	r.Seed(seed)
	return &Generator{params: params, rnd: r}
}

// Apply perturbs a movement state per spec.md §4.4's five-step
// procedure: accumulate a Gaussian step, clamp to three times the
// domain amplitude, decay toward zero, convert the meter offsets to
// lat/lon, and return a new state (the input is never mutated).
func (g *Generator) Apply(s movement.State) movement.State {
	p := g.params

	g.offsetNorthM = g.decayedWalk(g.offsetNorthM, p.PositionM*walkStep, p.PositionM, p.DecayFactor)
	g.offsetEastM = g.decayedWalk(g.offsetEastM, p.PositionM*walkStep, p.PositionM, p.DecayFactor)
	g.speedOffset = g.decayedWalk(g.speedOffset, p.SpeedPct*walkStep, p.SpeedPct, p.DecayFactor)
	g.headingOffset = g.decayedWalk(g.headingOffset, p.HeadingDeg*walkStep, p.HeadingDeg, p.DecayFactor)

	dlat := g.offsetNorthM / metersPerDegreeLat
	dlon := g.offsetEastM / (metersPerDegreeLat * math.Cos(radians(s.Lat)))

	noisySpeed := s.SpeedKnots * (1 + g.speedOffset)
	if noisySpeed < 0 {
		noisySpeed = 0
	}

	noisyHeading := math.Mod(s.HeadingDeg+g.headingOffset, 360)
	if noisyHeading < 0 {
		noisyHeading += 360
	}
	noisyCourse := math.Mod(s.CourseDeg+g.headingOffset*0.5, 360)
	if noisyCourse < 0 {
		noisyCourse += 360
	}

	return movement.State{
		Lat: s.Lat + dlat, Lon: s.Lon + dlon, AltM: s.AltM,
		HeadingDeg: noisyHeading, SpeedKnots: noisySpeed, CourseDeg: noisyCourse,
		MetadataOverrides: s.MetadataOverrides,
	}
}

// decayedWalk advances a correlated offset by one Gaussian step,
// clamps it to ±3·amplitude, and decays it
// toward zero.
func (g *Generator) decayedWalk(offset, stepSigma, amplitude, decay float64) float64 {
	offset += g.rnd.Gauss(0, stepSigma)
	maxOffset := 3 * amplitude
	if offset > maxOffset {
		offset = maxOffset
	} else if offset < -maxOffset {
		offset = -maxOffset
	}
	return offset * decay
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
