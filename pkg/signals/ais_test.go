package signals

import (
	"strings"
	"testing"
	"time"

	"github.com/davidarule/edge-c2-sim/pkg/entity"
)

func testEntity() entity.Entity {
	return entity.Entity{
		ID:         "MMEA-01",
		EntityType: "MMEA_PATROL",
		Callsign:   "Bintang 1",
		Position:   entity.Position{Latitude: 1.45, Longitude: 103.75, AltitudeM: 0},
		HeadingDeg: 90, SpeedKnots: 12, CourseDeg: 90,
		Timestamp: time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC),
		Metadata:  map[string]any{},
	}
}

func TestGenerateMMSIDeterministic(t *testing.T) {
	a := generateMMSI("MMEA-01", "MYS")
	b := generateMMSI("MMEA-01", "MYS")
	if a != b {
		t.Fatalf("expected deterministic MMSI, got %d and %d", a, b)
	}
	if a/1000000 != 533 {
		t.Errorf("expected MYS MID prefix 533, got %d", a/1000000)
	}
}

func TestGenerateMMSIDiffersByCountry(t *testing.T) {
	mys := generateMMSI("X1", "MYS")
	sgp := generateMMSI("X1", "SGP")
	if mys/1000000 == sgp/1000000 {
		t.Errorf("expected different MID prefixes, got %d and %d", mys/1000000, sgp/1000000)
	}
}

func TestEncodePositionReportProducesValidSentence(t *testing.T) {
	enc := NewAISEncoder()
	sentences, err := enc.EncodePositionReport(testEntity())
	if err != nil {
		t.Fatalf("EncodePositionReport: %v", err)
	}
	if len(sentences) != 1 {
		t.Fatalf("expected a single-fragment Type 1 sentence, got %d", len(sentences))
	}
	s := sentences[0]
	if !strings.HasPrefix(s, "!AIVDM,1,1,,A,") {
		t.Errorf("unexpected sentence prefix: %s", s)
	}
	if !strings.Contains(s, "*") {
		t.Errorf("expected checksum delimiter in sentence: %s", s)
	}
}

func TestEncodeStaticDataSplitsAcrossFragments(t *testing.T) {
	enc := NewAISEncoder()
	sentences, err := enc.EncodeStaticData(testEntity())
	if err != nil {
		t.Fatalf("EncodeStaticData: %v", err)
	}
	if len(sentences) != 2 {
		t.Fatalf("expected Type 5 static data to split into 2 fragments, got %d", len(sentences))
	}
	for i, s := range sentences {
		want := "!AIVDM,2," + string(rune('1'+i)) + ",,A,"
		if !strings.HasPrefix(s, want) {
			t.Errorf("fragment %d: expected prefix %q, got %q", i, want, s)
		}
	}
}

func TestEncodeToJSONFields(t *testing.T) {
	enc := NewAISEncoder()
	out, err := enc.EncodeToJSON(testEntity())
	if err != nil {
		t.Fatalf("EncodeToJSON: %v", err)
	}
	payload, ok := out.(map[string]any)
	if !ok {
		t.Fatalf("expected map[string]any, got %T", out)
	}
	if payload["vessel_name"] != "Bintang 1" {
		t.Errorf("expected vessel_name passthrough, got %v", payload["vessel_name"])
	}
	if payload["flag"] != "MYS" {
		t.Errorf("expected default flag MYS, got %v", payload["flag"])
	}
}

func TestVesselShipTypeFromMetadataOverridesDefault(t *testing.T) {
	e := testEntity()
	e.Metadata["vessel_type"] = "tanker"
	if got := vesselShipType(e); got != 80 {
		t.Errorf("expected tanker code 80, got %d", got)
	}
}

func TestVesselShipTypeFallsBackToEntityType(t *testing.T) {
	e := testEntity()
	e.EntityType = "CIVILIAN_FISHING"
	if got := vesselShipType(e); got != 30 {
		t.Errorf("expected fishing code 30 from entity type match, got %d", got)
	}
}

func TestChecksumMatchesKnownSentence(t *testing.T) {
	// Known-good AIVDM checksum from a reference capture.
	body := "AIVDM,1,1,,B,15NPOOPP00o?b=bE`UGl@ATD0000,0"
	if got := checksum(body); got != 0x18 {
		t.Errorf("expected checksum 0x18, got 0x%02X", got)
	}
}

func TestSixBitCodeRoundTripsAlphabet(t *testing.T) {
	for ch := byte('@'); ch <= '_'; ch++ {
		if code := sixBitCode(ch); code != int(ch-'@') {
			t.Errorf("char %q: expected code %d, got %d", ch, ch-'@', code)
		}
	}
}
