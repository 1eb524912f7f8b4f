package scenario

import (
	"testing"
	"testing/fstest"
)

func TestLoadGeodataIndexesZonesRoutesBases(t *testing.T) {
	fsys := fstest.MapFS{
		"zones.geojson": &fstest.MapFile{Data: []byte(`{
			"type": "FeatureCollection",
			"features": [
				{
					"type": "Feature",
					"properties": {"zone_id": "PATROL_NORTH"},
					"geometry": {
						"type": "Polygon",
						"coordinates": [[[103.8, 1.4], [103.9, 1.4], [103.9, 1.5], [103.8, 1.5], [103.8, 1.4]]]
					}
				},
				{
					"type": "Feature",
					"properties": {"route_id": "SHIPPING_LANE_1"},
					"geometry": {
						"type": "LineString",
						"coordinates": [[103.8, 1.4], [104.0, 1.6]]
					}
				},
				{
					"type": "Feature",
					"properties": {"base_id": "NAVAL_BASE_1"},
					"geometry": {
						"type": "Point",
						"coordinates": [103.85, 1.42]
					}
				}
			]
		}`)},
	}

	gd, err := LoadGeodata(".", fsys, nil)
	if err != nil {
		t.Fatalf("LoadGeodata: %v", err)
	}
	if len(gd.Zones["PATROL_NORTH"]) != 5 {
		t.Errorf("zone ring len = %d, want 5", len(gd.Zones["PATROL_NORTH"]))
	}
	if len(gd.Routes["SHIPPING_LANE_1"]) != 2 {
		t.Errorf("route len = %d, want 2", len(gd.Routes["SHIPPING_LANE_1"]))
	}
	base, ok := gd.Bases["NAVAL_BASE_1"]
	if !ok {
		t.Fatal("expected NAVAL_BASE_1 to be indexed")
	}
	if base.Lat != 1.42 || base.Lon != 103.85 {
		t.Errorf("base = %+v, want lat 1.42 lon 103.85", base)
	}
}

func TestLoadGeodataSkipsUnparsableFile(t *testing.T) {
	fsys := fstest.MapFS{
		"broken.geojson": &fstest.MapFile{Data: []byte(`not json`)},
	}
	gd, err := LoadGeodata(".", fsys, nil)
	if err != nil {
		t.Fatalf("LoadGeodata should not fail outright on a bad file: %v", err)
	}
	if len(gd.Zones) != 0 || len(gd.Routes) != 0 || len(gd.Bases) != 0 {
		t.Error("expected empty geodata from an unparsable file")
	}
}

func TestLoadGeodataIgnoresNonGeoJSONFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"readme.txt": &fstest.MapFile{Data: []byte("not geodata")},
	}
	gd, err := LoadGeodata(".", fsys, nil)
	if err != nil {
		t.Fatalf("LoadGeodata: %v", err)
	}
	if len(gd.Zones)+len(gd.Routes)+len(gd.Bases) != 0 {
		t.Error("expected non-geojson files to be ignored")
	}
}
