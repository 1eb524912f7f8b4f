// pkg/scenario/geodata.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package scenario

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/davidarule/edge-c2-sim/pkg/geo"
)

// Geodata holds the zones, routes, and bases indexed out of a directory
// of GeoJSON files, keyed by the feature properties the reference
// loader looks for (zone_id/area_id, route_id, base_id). GeoJSON
// bit-packing is a named boundary concern (spec.md §1), so this parses
// only the subset of the spec the scenario format actually needs —
// Polygon/MultiPolygon, LineString, and Point geometries — with the
// standard library's encoding/json rather than a full geometry library.
type Geodata struct {
	Zones  map[string][]geo.Point
	Routes map[string][]geo.Point
	Bases  map[string]geo.Point
}

type geoJSONFeatureCollection struct {
	Features []geoJSONFeature `json:"features"`
}

type geoJSONFeature struct {
	Properties map[string]any  `json:"properties"`
	Geometry   geoJSONGeometry `json:"geometry"`
}

type geoJSONGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// LoadGeodata walks dir for *.geojson files and indexes every zone,
// route, and base feature it finds. Files that fail to parse are
// skipped with a warning recorded through the Loader's warnings rather
// than aborting the whole load, matching the reference loader's
// per-file try/except.
func LoadGeodata(dir string, fsys fs.FS, errs *Loader) (Geodata, error) {
	gd := Geodata{
		Zones:  make(map[string][]geo.Point),
		Routes: make(map[string][]geo.Point),
		Bases:  make(map[string]geo.Point),
	}

	err := fs.WalkDir(fsys, dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".geojson") {
			return nil
		}
		data, readErr := fs.ReadFile(fsys, path)
		if readErr != nil {
			if errs != nil {
				errs.warnf("geodata %s: %v", path, readErr)
			}
			return nil
		}
		var fc geoJSONFeatureCollection
		if jsonErr := json.Unmarshal(data, &fc); jsonErr != nil {
			if errs != nil {
				errs.warnf("geodata %s: %v", path, jsonErr)
			}
			return nil
		}
		for _, feat := range fc.Features {
			indexFeature(feat, gd)
		}
		return nil
	})
	if err != nil {
		return gd, fmt.Errorf("scenario: walking geodata dir %q: %w", dir, err)
	}
	return gd, nil
}

func indexFeature(feat geoJSONFeature, gd Geodata) {
	zoneID := stringProp(feat.Properties, "zone_id", "area_id")
	routeID := stringProp(feat.Properties, "route_id")
	baseID := stringProp(feat.Properties, "base_id")

	switch feat.Geometry.Type {
	case "Polygon":
		if zoneID == "" {
			return
		}
		ring, ok := decodePolygonOuterRing(feat.Geometry.Coordinates)
		if ok {
			gd.Zones[zoneID] = ring
		}
	case "MultiPolygon":
		if zoneID == "" {
			return
		}
		ring, ok := decodeMultiPolygonFirstRing(feat.Geometry.Coordinates)
		if ok {
			gd.Zones[zoneID] = ring
		}
	case "LineString":
		if routeID == "" {
			return
		}
		var coords [][2]float64
		if json.Unmarshal(feat.Geometry.Coordinates, &coords) == nil {
			gd.Routes[routeID] = toPoints(coords)
		}
	case "Point":
		if baseID == "" {
			return
		}
		var coord [2]float64
		if json.Unmarshal(feat.Geometry.Coordinates, &coord) == nil {
			gd.Bases[baseID] = geo.Point{Lat: coord[1], Lon: coord[0]}
		}
	}
}

func stringProp(props map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := props[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// decodePolygonOuterRing decodes GeoJSON's [ring][point][lon,lat] shape
// and returns only the outer ring — interior holes don't matter for the
// patrol-area/land-classification use this feeds.
func decodePolygonOuterRing(raw json.RawMessage) ([]geo.Point, bool) {
	var rings [][][2]float64
	if json.Unmarshal(raw, &rings) != nil || len(rings) == 0 {
		return nil, false
	}
	return toPoints(rings[0]), true
}

func decodeMultiPolygonFirstRing(raw json.RawMessage) ([]geo.Point, bool) {
	var polys [][][][2]float64
	if json.Unmarshal(raw, &polys) != nil || len(polys) == 0 || len(polys[0]) == 0 {
		return nil, false
	}
	return toPoints(polys[0][0]), true
}

func toPoints(coords [][2]float64) []geo.Point {
	out := make([]geo.Point, len(coords))
	for i, c := range coords {
		out[i] = geo.Point{Lat: c[1], Lon: c[0]}
	}
	return out
}
