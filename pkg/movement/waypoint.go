// pkg/movement/waypoint.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package movement

import (
	"fmt"
	"sort"
	"time"

	"github.com/davidarule/edge-c2-sim/pkg/geo"
)

// Waypoint is a single point in a movement plan, timed relative to the
// scenario's start.
type Waypoint struct {
	Lat, Lon, AltM    float64
	SpeedKnots        float64
	TimeOffset        time.Duration
	MetadataOverrides map[string]any
}

func (w Waypoint) point() geo.Point { return geo.Point{Lat: w.Lat, Lon: w.Lon} }

// WaypointStrategy moves an entity along a series of time-stamped
// waypoints using great-circle interpolation.
type WaypointStrategy struct {
	waypoints     []Waypoint
	scenarioStart time.Time
}

// NewWaypointStrategy constructs a Waypoint strategy. waypoints is
// sorted by TimeOffset (a copy is taken; the input is not mutated).
func NewWaypointStrategy(waypoints []Waypoint, scenarioStart time.Time) (*WaypointStrategy, error) {
	if len(waypoints) == 0 {
		return nil, fmt.Errorf("movement: at least one waypoint required")
	}
	wps := make([]Waypoint, len(waypoints))
	copy(wps, waypoints)
	sort.Slice(wps, func(i, j int) bool { return wps[i].TimeOffset < wps[j].TimeOffset })
	return &WaypointStrategy{waypoints: wps, scenarioStart: scenarioStart}, nil
}

func (w *WaypointStrategy) State(simTime time.Time) State {
	elapsed := simTime.Sub(w.scenarioStart)
	wps := w.waypoints

	// When every waypoint shares one offset, that instant is the jump to
	// the last waypoint, handled by the branch below.
	if elapsed < wps[0].TimeOffset ||
		(elapsed == wps[0].TimeOffset && wps[0].TimeOffset < wps[len(wps)-1].TimeOffset) {
		wp := wps[0]
		heading := 0.0
		if len(wps) > 1 {
			heading = geo.InitialBearing(wp.point(), wps[1].point())
		}
		return State{Lat: wp.Lat, Lon: wp.Lon, AltM: wp.AltM,
			HeadingDeg: heading, SpeedKnots: 0, CourseDeg: heading,
			MetadataOverrides: wp.MetadataOverrides}
	}

	last := wps[len(wps)-1]
	if elapsed >= last.TimeOffset {
		heading := 0.0
		if len(wps) > 1 {
			heading = geo.InitialBearing(wps[len(wps)-2].point(), last.point())
		}
		return State{Lat: last.Lat, Lon: last.Lon, AltM: last.AltM,
			HeadingDeg: heading, SpeedKnots: 0, CourseDeg: heading,
			MetadataOverrides: last.MetadataOverrides}
	}

	for i := 0; i < len(wps)-1; i++ {
		a, b := wps[i], wps[i+1]
		if a.TimeOffset <= elapsed && elapsed <= b.TimeOffset {
			segDuration := b.TimeOffset - a.TimeOffset
			if segDuration <= 0 {
				heading := geo.InitialBearing(a.point(), b.point())
				return State{Lat: b.Lat, Lon: b.Lon, AltM: b.AltM,
					HeadingDeg: heading, SpeedKnots: b.SpeedKnots, CourseDeg: heading}
			}

			fraction := float64(elapsed-a.TimeOffset) / float64(segDuration)
			pos := geo.Interpolate(a.point(), b.point(), fraction)
			altM := a.AltM + (b.AltM-a.AltM)*fraction
			speed := a.SpeedKnots + (b.SpeedKnots-a.SpeedKnots)*fraction
			heading := geo.InitialBearing(pos, b.point())
			course := geo.InitialBearing(a.point(), b.point())

			return State{Lat: pos.Lat, Lon: pos.Lon, AltM: altM,
				HeadingDeg: heading, SpeedKnots: speed, CourseDeg: course,
				MetadataOverrides: a.MetadataOverrides}
		}
	}

	// Unreachable given the bounds checks above, but keep a safe fallback.
	return State{Lat: last.Lat, Lon: last.Lon, AltM: last.AltM}
}

func (w *WaypointStrategy) IsComplete(simTime time.Time) bool {
	elapsed := simTime.Sub(w.scenarioStart)
	return elapsed >= w.waypoints[len(w.waypoints)-1].TimeOffset
}

// TotalDuration is the time from the first to the last waypoint.
func (w *WaypointStrategy) TotalDuration() time.Duration {
	return w.waypoints[len(w.waypoints)-1].TimeOffset - w.waypoints[0].TimeOffset
}

// Waypoints returns a copy of the strategy's waypoint list.
func (w *WaypointStrategy) Waypoints() []Waypoint {
	out := make([]Waypoint, len(w.waypoints))
	copy(out, w.waypoints)
	return out
}
