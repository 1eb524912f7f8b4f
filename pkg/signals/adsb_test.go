package signals

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/davidarule/edge-c2-sim/pkg/entity"
)

func testAirEntity() entity.Entity {
	return entity.Entity{
		ID:         "RMAF-01",
		EntityType: "RMAF_FIGHTER",
		Callsign:   "Eagle 1",
		Position:   entity.Position{Latitude: 3.1, Longitude: 101.6, AltitudeM: 3000},
		HeadingDeg: 270, SpeedKnots: 350, CourseDeg: 270,
		Timestamp: time.Date(2026, 7, 30, 8, 30, 0, 0, time.UTC),
		Metadata:  map[string]any{},
	}
}

func TestGenerateICAOHexDeterministic(t *testing.T) {
	a := generateICAOHex("RMAF-01", "MYS")
	b := generateICAOHex("RMAF-01", "MYS")
	if a != b {
		t.Fatalf("expected deterministic ICAO hex, got %s and %s", a, b)
	}
	v, err := strconv.ParseUint(a, 16, 32)
	if err != nil {
		t.Fatalf("expected valid hex address, got %q: %v", a, err)
	}
	if v < 0x750000 || v > 0x75FFFF {
		t.Errorf("expected MYS range, got %06X", v)
	}
}

func TestEncodeIdentificationShape(t *testing.T) {
	enc := NewADSBEncoder()
	msg, err := enc.EncodeIdentification(testAirEntity())
	if err != nil {
		t.Fatalf("EncodeIdentification: %v", err)
	}
	if !strings.HasPrefix(msg, "MSG,1,1,1,") {
		t.Errorf("unexpected prefix: %s", msg)
	}
	if !strings.Contains(msg, "Eagle 1") {
		t.Errorf("expected callsign in message: %s", msg)
	}
}

func TestEncodePositionConvertsAltitude(t *testing.T) {
	enc := NewADSBEncoder()
	msg, err := enc.EncodePosition(testAirEntity())
	if err != nil {
		t.Fatalf("EncodePosition: %v", err)
	}
	if !strings.HasPrefix(msg, "MSG,3,1,1,") {
		t.Errorf("unexpected prefix: %s", msg)
	}
	wantAltFt := "9843"
	if !strings.Contains(msg, wantAltFt) {
		t.Errorf("expected altitude %s ft in message, got %s", wantAltFt, msg)
	}
}

func TestEncodeVelocityShape(t *testing.T) {
	enc := NewADSBEncoder()
	msg, err := enc.EncodeVelocity(testAirEntity())
	if err != nil {
		t.Fatalf("EncodeVelocity: %v", err)
	}
	if !strings.HasPrefix(msg, "MSG,4,1,1,") {
		t.Errorf("unexpected prefix: %s", msg)
	}
	if !strings.Contains(msg, "350") {
		t.Errorf("expected speed 350 in message: %s", msg)
	}
}

func TestGenerateSquawkByEntityType(t *testing.T) {
	cases := map[string]string{
		"RMAF_FIGHTER":    "0000",
		"CIVILIAN_LIGHT":  "1200",
		"EMERGENCY_FLARE": "7700",
	}
	for et, want := range cases {
		if got := generateSquawk(et); got != want {
			t.Errorf("entity type %s: expected squawk %s, got %s", et, want, got)
		}
	}
}

func TestEncodeToJSONFieldsAir(t *testing.T) {
	enc := NewADSBEncoder()
	out, err := enc.EncodeToJSON(testAirEntity())
	if err != nil {
		t.Fatalf("EncodeToJSON: %v", err)
	}
	payload, ok := out.(map[string]any)
	if !ok {
		t.Fatalf("expected map[string]any, got %T", out)
	}
	if payload["squawk"] != "0000" {
		t.Errorf("expected military squawk 0000, got %v", payload["squawk"])
	}
	if payload["callsign"] != "Eagle 1" {
		t.Errorf("expected callsign passthrough, got %v", payload["callsign"])
	}
}
