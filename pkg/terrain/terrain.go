// pkg/terrain/terrain.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package terrain classifies points as land or water against a set of
// polygons supplied by the scenario loader, and repairs waypoints that
// land an entity on the wrong side of the coastline for its domain.
//
// GeoJSON indexing of a real coastline dataset is a boundary concern
// (the scenario loader's job, per spec §1); this package only consumes
// already-parsed polygons, so it has no geodata-format dependency of
// its own.
package terrain

import (
	"math"

	"github.com/davidarule/edge-c2-sim/pkg/geo"
)

const (
	searchRings      = 5
	baseRingPoints   = 8
	defaultRadiusDeg = 0.05
)

// Validator classifies points against a fixed set of land polygons.
// Each polygon is closed implicitly (pkg/geo.PointInPolygon's
// convention); a point is "land" if it falls inside any of them.
type Validator struct {
	landPolygons [][]geo.Point
}

// New constructs a Validator from land polygons. A nil or empty
// landPolygons means the whole world is treated as water.
func New(landPolygons [][]geo.Point) *Validator {
	return &Validator{landPolygons: landPolygons}
}

// IsLand reports whether (lat, lon) falls inside any land polygon.
func (v *Validator) IsLand(lat, lon float64) bool {
	p := geo.Point{Lat: lat, Lon: lon}
	for _, poly := range v.landPolygons {
		if geo.PointInPolygon(p, poly) {
			return true
		}
	}
	return false
}

// IsWater reports the complement of IsLand.
func (v *Validator) IsWater(lat, lon float64) bool {
	return !v.IsLand(lat, lon)
}

// Validate reports whether (lat, lon) is usable terrain for domain.
// AIR is always valid; MARITIME requires water; GROUND_VEHICLE and
// PERSONNEL require land; any other domain is always valid.
func (v *Validator) Validate(lat, lon float64, domain string) bool {
	switch domain {
	case "AIR":
		return true
	case "MARITIME":
		return v.IsWater(lat, lon)
	case "GROUND_VEHICLE", "PERSONNEL":
		return v.IsLand(lat, lon)
	default:
		return true
	}
}

// NearestValid searches concentric rings around (lat, lon) — 5 rings
// of 8*ring points each — for the first point valid for domain,
// stopping at searchRadiusDeg. It reports ok=false if none is found.
func (v *Validator) NearestValid(lat, lon float64, domain string, searchRadiusDeg float64) (validLat, validLon float64, ok bool) {
	if searchRadiusDeg <= 0 {
		searchRadiusDeg = defaultRadiusDeg
	}
	for ring := 1; ring <= searchRings; ring++ {
		radius := searchRadiusDeg * float64(ring) / float64(searchRings)
		steps := baseRingPoints * ring
		for i := 0; i < steps; i++ {
			angle := 2 * math.Pi * float64(i) / float64(steps)
			testLat := lat + radius*math.Sin(angle)
			testLon := lon + radius*math.Cos(angle)
			if v.Validate(testLat, testLon, domain) {
				return testLat, testLon, true
			}
		}
	}
	return 0, 0, false
}

// WaypointPosition is the minimal shape FixWaypoints needs: a plain
// Lat/Lon pair, so this package doesn't import pkg/movement.
type WaypointPosition struct {
	Lat, Lon float64
}

// FixWaypoints validates each waypoint's position against domain and
// replaces any invalid one with its nearest valid point (leaving it
// unchanged if none is found within radius; such an entry is not
// counted). It returns the fixed slice (a copy; the input
// is not mutated) and the number of positions that were changed.
func (v *Validator) FixWaypoints(positions []WaypointPosition, domain string, searchRadiusDeg float64) ([]WaypointPosition, int) {
	if domain == "AIR" || len(positions) == 0 {
		return positions, 0
	}

	fixed := make([]WaypointPosition, len(positions))
	copy(fixed, positions)

	fixCount := 0
	for i, wp := range fixed {
		if v.Validate(wp.Lat, wp.Lon, domain) {
			continue
		}
		if lat, lon, ok := v.NearestValid(wp.Lat, wp.Lon, domain, searchRadiusDeg); ok {
			fixed[i] = WaypointPosition{Lat: lat, Lon: lon}
			fixCount++
		}
	}
	return fixed, fixCount
}
