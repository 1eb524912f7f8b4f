// pkg/movement/patrol.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package movement

import (
	"time"

	"github.com/davidarule/edge-c2-sim/pkg/geo"
	"github.com/davidarule/edge-c2-sim/pkg/rand"
)

const (
	patrolMinWaypoints             = 5
	patrolMaxWaypoints             = 8
	patrolMaxTurnDeg               = 90.0
	patrolTurnRetries              = 5
	patrolRejectionsWithTerrain    = 1000
	patrolRejectionsWithoutTerrain = 100
)

// TerrainValidator reports whether a candidate waypoint is usable for a
// patrol in the given domain (e.g. "is this water" for a maritime
// patrol).
type TerrainValidator func(lat, lon float64) bool

// PatrolStrategy endlessly wanders an entity between randomly generated
// waypoints inside a polygonal area, pausing at each one for a dwell
// period. It never completes.
type PatrolStrategy struct {
	area          []geo.Point
	bbox          geo.Extent
	rnd           rand.Rand
	altM          float64
	minSpeedKnots float64
	maxSpeedKnots float64
	minDwell      time.Duration
	maxDwell      time.Duration
	validate      TerrainValidator

	inner      *WaypointStrategy
	lastOffset time.Duration
}

// NewPatrolStrategy constructs a Patrol strategy confined to area (a
// closed polygon), with per-leg speed drawn uniformly from
// [minSpeedKnots, maxSpeedKnots] and dwell time drawn uniformly from
// [minDwell, maxDwell]. validate may be nil, in which case only the
// polygon boundary constrains candidate waypoints.
func NewPatrolStrategy(area []geo.Point, altM, minSpeedKnots, maxSpeedKnots float64,
	minDwell, maxDwell time.Duration, seed uint64, validate TerrainValidator,
	startTime time.Time) *PatrolStrategy {
	rnd := rand.New()
	rnd.Seed(seed)
	p := &PatrolStrategy{
		area:          area,
		bbox:          geo.BoundingBox(area),
		rnd:           rnd,
		altM:          altM,
		minSpeedKnots: minSpeedKnots,
		maxSpeedKnots: maxSpeedKnots,
		minDwell:      minDwell,
		maxDwell:      maxDwell,
		validate:      validate,
	}
	p.generateWaypoints(startTime, 0)
	return p
}

// randomPointInArea performs rejection sampling within the area's
// bounding box: up to 1000 tries honoring the terrain validator, then
// 100 tries ignoring it, then falling back to the bounding box center
// as a last resort (spec.md §4.3 Patrol).
func (p *PatrolStrategy) randomPointInArea() geo.Point {
	if pt, ok := p.tryRandomPoint(patrolRejectionsWithTerrain, true); ok {
		return pt
	}
	if pt, ok := p.tryRandomPoint(patrolRejectionsWithoutTerrain, false); ok {
		return pt
	}
	return geo.Point{Lat: (p.bbox.MinLat + p.bbox.MaxLat) / 2, Lon: (p.bbox.MinLon + p.bbox.MaxLon) / 2}
}

func (p *PatrolStrategy) tryRandomPoint(attempts int, honorTerrain bool) (geo.Point, bool) {
	for i := 0; i < attempts; i++ {
		lat := p.bbox.MinLat + p.rnd.Float64()*(p.bbox.MaxLat-p.bbox.MinLat)
		lon := p.bbox.MinLon + p.rnd.Float64()*(p.bbox.MaxLon-p.bbox.MinLon)
		candidate := geo.Point{Lat: lat, Lon: lon}
		if !geo.PointInPolygon(candidate, p.area) {
			continue
		}
		if honorTerrain && p.validate != nil && !p.validate(lat, lon) {
			continue
		}
		return candidate, true
	}
	return geo.Point{}, false
}

func (p *PatrolStrategy) randomSpeed() float64 {
	if p.maxSpeedKnots <= p.minSpeedKnots {
		return p.minSpeedKnots
	}
	return p.minSpeedKnots + p.rnd.Float64()*(p.maxSpeedKnots-p.minSpeedKnots)
}

func (p *PatrolStrategy) randomDwell() time.Duration {
	if p.maxDwell <= p.minDwell {
		return p.minDwell
	}
	span := int64(p.maxDwell - p.minDwell)
	return p.minDwell + time.Duration(p.rnd.Intn(int(span)+1))
}

// generateWaypoints builds a fresh leg of 5-8 waypoints starting at
// startOffset, following spec.md §4.3's exact sequence: rejection-
// sample each waypoint, reject (retry up to 5 times) any turn sharper
// than 90 degrees from the prior leg, interleave a dwell waypoint
// before each waypoint after the first, and accumulate time offsets
// from geodesic travel time plus dwell.
func (p *PatrolStrategy) generateWaypoints(scenarioStart time.Time, startOffset time.Duration) {
	count := patrolMinWaypoints + p.rnd.Intn(patrolMaxWaypoints-patrolMinWaypoints+1)

	var waypoints []Waypoint
	var points []geo.Point
	currentOffset := startOffset
	havePrev := false
	var prevPoint geo.Point

	for i := 0; i < count; i++ {
		candidate := p.randomPointInArea()

		if havePrev && len(points) >= 2 {
			prevBearing := geo.InitialBearing(points[len(points)-2], points[len(points)-1])
			newBearing := geo.InitialBearing(points[len(points)-1], candidate)
			if geo.HeadingDifference(newBearing, prevBearing) > patrolMaxTurnDeg {
				for retry := 0; retry < patrolTurnRetries; retry++ {
					candidate = p.randomPointInArea()
					newBearing = geo.InitialBearing(points[len(points)-1], candidate)
					if geo.HeadingDifference(newBearing, prevBearing) <= patrolMaxTurnDeg {
						break
					}
				}
			}
		}

		speed := p.randomSpeed()

		if i > 0 {
			dwell := p.randomDwell()
			last := points[len(points)-1]
			currentOffset += dwell
			waypoints = append(waypoints, Waypoint{
				Lat: last.Lat, Lon: last.Lon, AltM: p.altM, SpeedKnots: 0, TimeOffset: currentOffset,
			})
		}

		if havePrev {
			legM := geo.DistanceM(prevPoint, candidate)
			speedMPS := speed * knotsToMetersPerSecond
			if speedMPS > 0 {
				currentOffset += time.Duration(legM / speedMPS * float64(time.Second))
			}
		} else {
			currentOffset += time.Second
		}

		waypoints = append(waypoints, Waypoint{
			Lat: candidate.Lat, Lon: candidate.Lon, AltM: p.altM, SpeedKnots: speed, TimeOffset: currentOffset,
		})
		points = append(points, candidate)
		prevPoint = candidate
		havePrev = true
	}

	p.inner, _ = NewWaypointStrategy(waypoints, scenarioStart)
	p.lastOffset = currentOffset
}

func (p *PatrolStrategy) State(simTime time.Time) State {
	if p.inner.IsComplete(simTime) {
		p.generateWaypoints(p.inner.scenarioStart, p.lastOffset)
	}
	return p.inner.State(simTime)
}

// IsComplete always reports false: a patrol regenerates its route
// indefinitely rather than terminating.
func (p *PatrolStrategy) IsComplete(simTime time.Time) bool {
	return false
}
