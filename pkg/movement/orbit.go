// pkg/movement/orbit.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package movement

import (
	"time"

	"github.com/davidarule/edge-c2-sim/pkg/geo"
)

const (
	// DefaultOrbitRadiusM is used when a scenario doesn't specify one.
	DefaultOrbitRadiusM = 3000.0
	// orbitAngularRateDegPerSec is the clockwise angular rate around the
	// orbit center.
	orbitAngularRateDegPerSec = 3.0
)

// OrbitStrategy loiters an entity on a clockwise circular track around a
// fixed center point, never completing.
type OrbitStrategy struct {
	center     geo.Point
	altM       float64
	radiusM    float64
	speedKnots float64
	startTime  time.Time
	startAngle float64
}

// NewOrbitStrategy constructs an Orbit strategy centered on center. If
// radiusM is <= 0, DefaultOrbitRadiusM is used.
func NewOrbitStrategy(center geo.Point, altM, radiusM, speedKnots float64, startTime time.Time) *OrbitStrategy {
	if radiusM <= 0 {
		radiusM = DefaultOrbitRadiusM
	}
	return &OrbitStrategy{
		center:     center,
		altM:       altM,
		radiusM:    radiusM,
		speedKnots: speedKnots,
		startTime:  startTime,
	}
}

func (o *OrbitStrategy) State(simTime time.Time) State {
	elapsedSec := simTime.Sub(o.startTime).Seconds()
	angle := geo.NormalizeHeading(o.startAngle + elapsedSec*orbitAngularRateDegPerSec)

	pos := geo.Destination(o.center, angle, o.radiusM)
	// Tangent to a clockwise circle: heading leads the radial angle by 90°.
	heading := geo.NormalizeHeading(angle + 90)

	return State{
		Lat:        pos.Lat,
		Lon:        pos.Lon,
		AltM:       o.altM,
		HeadingDeg: heading,
		SpeedKnots: o.speedKnots,
		CourseDeg:  heading,
	}
}

// IsComplete is always false: an orbit loiters indefinitely until the
// controlling entity/event logic replaces its strategy.
func (o *OrbitStrategy) IsComplete(simTime time.Time) bool {
	return false
}
