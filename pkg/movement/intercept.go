// pkg/movement/intercept.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package movement

import (
	"time"

	"github.com/davidarule/edge-c2-sim/pkg/geo"
)

// DefaultInterceptRadiusM is the distance at which a pursuer is
// considered to have reached its target.
const DefaultInterceptRadiusM = 500.0

// minClosingSpeedKnots floors the closing-speed denominator in the
// lead-pursuit time-to-intercept estimate so a near-matched-speed
// tail chase doesn't blow up to an absurd aim point.
const minClosingSpeedKnots = 1.0

// EntityLookup is the read-only handle intercept uses to resolve its
// pursuer and target by id, never by pointer (so it survives the
// target being replaced or the store being rebuilt on reset).
type EntityLookup interface {
	Position(id string) (lat, lon, altM, speedKnots, courseDeg float64, ok bool)
}

// InterceptStrategy drives a pursuer toward a moving target using lead
// pursuit, then either stops at the intercept point (ground/maritime)
// or orbits it (fixed-wing aircraft, which can't hover in place).
type InterceptStrategy struct {
	store            EntityLookup
	pursuerID        string
	targetID         string
	speedKnots       float64
	interceptRadiusM float64
	fixedWing        bool

	lastTick      time.Time
	lastPos       geo.Point
	lastAltM      float64
	haveLastPos   bool
	intercepted   bool
	targetGoneAt  geo.Point
	targetGoneSet bool
	orbit         *OrbitStrategy
}

// NewInterceptStrategy constructs an Intercept strategy. If
// interceptRadiusM is <= 0, DefaultInterceptRadiusM is used.
func NewInterceptStrategy(store EntityLookup, pursuerID, targetID string,
	speedKnots, interceptRadiusM float64, fixedWing bool, startTime time.Time) *InterceptStrategy {
	if interceptRadiusM <= 0 {
		interceptRadiusM = DefaultInterceptRadiusM
	}
	return &InterceptStrategy{
		store:            store,
		pursuerID:        pursuerID,
		targetID:         targetID,
		speedKnots:       speedKnots,
		interceptRadiusM: interceptRadiusM,
		fixedWing:        fixedWing,
		lastTick:         startTime,
	}
}

func (s *InterceptStrategy) isFixedWing() bool { return s.fixedWing }

// State advances the pursuer for one tick, following spec.md §4.3's
// four-step Intercept transition table.
func (s *InterceptStrategy) State(simTime time.Time) State {
	dt := simTime.Sub(s.lastTick).Seconds()
	if dt < 0 {
		dt = 0
	}
	defer func() { s.lastTick = simTime }()

	// Step 1: resolve the pursuer, falling back to the last known
	// position if the store lookup fails on this tick.
	pLat, pLon, pAlt, _, _, ok := s.store.Position(s.pursuerID)
	var pursuer geo.Point
	if ok {
		pursuer = geo.Point{Lat: pLat, Lon: pLon}
		s.lastPos = pursuer
		s.lastAltM = pAlt
		s.haveLastPos = true
	} else if s.haveLastPos {
		pursuer = s.lastPos
		pAlt = s.lastAltM
	}

	// Step 2: target removed from the store.
	tLat, tLon, _, tSpeed, tCourse, targetOK := s.store.Position(s.targetID)
	if !targetOK {
		if s.isFixedWing() {
			if !s.targetGoneSet {
				s.targetGoneAt = pursuer
				s.orbit = NewOrbitStrategy(s.targetGoneAt, pAlt, DefaultOrbitRadiusM, s.speedKnots, simTime)
				s.targetGoneSet = true
			}
			return s.orbit.State(simTime)
		}
		return State{Lat: pursuer.Lat, Lon: pursuer.Lon, AltM: pAlt, SpeedKnots: 0}
	}

	target := geo.Point{Lat: tLat, Lon: tLon}
	d := geo.DistanceM(pursuer, target)

	// Step 3: within intercept radius.
	if d <= s.interceptRadiusM {
		s.intercepted = true
		if s.isFixedWing() {
			if s.orbit == nil {
				s.orbit = NewOrbitStrategy(target, pAlt, DefaultOrbitRadiusM, s.speedKnots, simTime)
			}
			return s.orbit.State(simTime)
		}
		return State{Lat: target.Lat, Lon: target.Lon, AltM: pAlt, SpeedKnots: 0}
	}

	// Step 4: lead-pursuit aim point.
	closingSpeed := s.speedKnots - 0.5*tSpeed
	if closingSpeed < minClosingSpeedKnots {
		closingSpeed = minClosingSpeedKnots
	}
	closingSpeedMPS := closingSpeed * knotsToMetersPerSecond
	timeToIntercept := d / closingSpeedMPS

	targetSpeedMPS := tSpeed * knotsToMetersPerSecond
	aimPoint := geo.Destination(target, tCourse, targetSpeedMPS*timeToIntercept)

	heading := geo.InitialBearing(pursuer, aimPoint)
	advanceM := s.speedKnots * knotsToMetersPerSecond * dt
	if advanceM > d {
		advanceM = d
	}
	newPos := geo.Destination(pursuer, heading, advanceM)

	return State{
		Lat: newPos.Lat, Lon: newPos.Lon, AltM: pAlt,
		HeadingDeg: heading, SpeedKnots: s.speedKnots, CourseDeg: heading,
	}
}

// IsComplete reports true once the pursuer has reached its target,
// unless the pursuer is fixed-wing: a fixed-wing intercept never
// completes because it transitions to an indefinite orbit instead.
func (s *InterceptStrategy) IsComplete(simTime time.Time) bool {
	return s.intercepted && !s.isFixedWing()
}
