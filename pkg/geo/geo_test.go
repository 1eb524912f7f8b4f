// pkg/geo/geo_test.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package geo

import (
	"math"
	"testing"
)

func near(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func TestInitialBearing(t *testing.T) {
	// Due north.
	p := Point{Lat: 0, Lon: 0}
	q := Point{Lat: 1, Lon: 0}
	if b := InitialBearing(p, q); !near(b, 0, 1e-6) {
		t.Errorf("expected bearing 0, got %g", b)
	}

	// Due east along the equator.
	q = Point{Lat: 0, Lon: 1}
	if b := InitialBearing(p, q); !near(b, 90, 1e-6) {
		t.Errorf("expected bearing 90, got %g", b)
	}

	// Due south.
	q = Point{Lat: -1, Lon: 0}
	if b := InitialBearing(p, q); !near(b, 180, 1e-6) {
		t.Errorf("expected bearing 180, got %g", b)
	}
}

func TestDistanceM(t *testing.T) {
	// One degree of latitude is approximately 111.2 km.
	p := Point{Lat: 0, Lon: 0}
	q := Point{Lat: 1, Lon: 0}
	d := DistanceM(p, q)
	if d < 110000 || d > 112000 {
		t.Errorf("expected ~111km, got %gm", d)
	}
}

func TestInterpolateEndpoints(t *testing.T) {
	p := Point{Lat: 10, Lon: 20}
	q := Point{Lat: 30, Lon: 40}

	if r := Interpolate(p, q, 0); r != p {
		t.Errorf("fraction 0 should return start point, got %+v", r)
	}
	if r := Interpolate(p, q, 1); r != q {
		t.Errorf("fraction 1 should return end point, got %+v", r)
	}
}

func TestInterpolateMidpoint(t *testing.T) {
	// Symmetric case along the equator: the midpoint should fall exactly
	// between the two longitudes, on the equator.
	p := Point{Lat: 0, Lon: -10}
	q := Point{Lat: 0, Lon: 10}
	r := Interpolate(p, q, 0.5)
	if !near(r.Lat, 0, 1e-9) {
		t.Errorf("expected latitude 0 at midpoint, got %g", r.Lat)
	}
	if !near(r.Lon, 0, 1e-9) {
		t.Errorf("expected longitude 0 at midpoint, got %g", r.Lon)
	}
}

func TestInterpolateCoincident(t *testing.T) {
	p := Point{Lat: 5, Lon: 5}
	r := Interpolate(p, p, 0.5)
	if r != p {
		t.Errorf("interpolating between coincident points should hold position, got %+v", r)
	}
}

func TestDestinationRoundTrip(t *testing.T) {
	p := Point{Lat: 34.05, Lon: -118.25}
	q := Destination(p, 45, 100000)
	if b := InitialBearing(p, q); !near(b, 45, 0.5) {
		t.Errorf("expected bearing ~45, got %g", b)
	}
	if d := DistanceM(p, q); !near(d, 100000, 10) {
		t.Errorf("expected distance ~100000m, got %g", d)
	}
}

func TestNormalizeHeading(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{0, 0}, {360, 0}, {-10, 350}, {720, 0}, {-370, 350},
	}
	for _, c := range cases {
		if got := NormalizeHeading(c.in); !near(got, c.want, 1e-9) {
			t.Errorf("NormalizeHeading(%g) = %g, want %g", c.in, got, c.want)
		}
	}
}

func TestHeadingDifference(t *testing.T) {
	cases := []struct{ a, b, want float64 }{
		{0, 10, 10}, {350, 10, 20}, {0, 180, 180}, {90, 270, 180},
	}
	for _, c := range cases {
		if got := HeadingDifference(c.a, c.b); !near(got, c.want, 1e-9) {
			t.Errorf("HeadingDifference(%g,%g) = %g, want %g", c.a, c.b, got, c.want)
		}
	}
}

func TestPointInPolygon(t *testing.T) {
	square := []Point{
		{Lat: 0, Lon: 0},
		{Lat: 0, Lon: 10},
		{Lat: 10, Lon: 10},
		{Lat: 10, Lon: 0},
	}

	if !PointInPolygon(Point{Lat: 5, Lon: 5}, square) {
		t.Error("expected point inside square to be inside")
	}
	if PointInPolygon(Point{Lat: 15, Lon: 15}, square) {
		t.Error("expected point outside square to be outside")
	}
}

func TestBoundingBox(t *testing.T) {
	pts := []Point{
		{Lat: 1, Lon: 2},
		{Lat: -3, Lon: 5},
		{Lat: 4, Lon: -1},
	}
	e := BoundingBox(pts)
	if e.MinLat != -3 || e.MaxLat != 4 || e.MinLon != -1 || e.MaxLon != 5 {
		t.Errorf("unexpected bounding box: %+v", e)
	}
	if !e.Inside(Point{Lat: 0, Lon: 0}) {
		t.Error("expected origin to be inside bounding box")
	}
	if e.Inside(Point{Lat: 100, Lon: 100}) {
		t.Error("expected far point to be outside bounding box")
	}
}
