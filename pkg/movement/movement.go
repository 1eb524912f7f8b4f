// pkg/movement/movement.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package movement implements the four movement strategies that drive
// entity position over simulation time: Waypoint, Patrol, Orbit, and
// Intercept. Every strategy is a pure function of sim_time exposing the
// same two-method contract; no inheritance is needed (spec.md §9).
package movement

import "time"

// State is a movement strategy's per-tick kinematic output.
type State struct {
	Lat, Lon, AltM    float64
	HeadingDeg        float64
	SpeedKnots        float64
	CourseDeg         float64
	MetadataOverrides map[string]any
}

// Strategy is the shared contract every movement strategy satisfies.
// Callers must not call State concurrently with itself — strategies are
// stateful and are only ever driven by the single-logical-thread tick
// loop (spec.md §5).
type Strategy interface {
	State(simTime time.Time) State
	IsComplete(simTime time.Time) bool
}

const knotsToMetersPerSecond = 0.514444
