package signals

import (
	"crypto/md5"
	"fmt"
	"strings"
	"time"

	"github.com/davidarule/edge-c2-sim/pkg/entity"
)

// icaoRange is the [base, top] 24-bit ICAO address block assigned to
// a country, used to derive a plausible deterministic address.
type icaoRange struct {
	base, top uint32
}

var icaoRanges = map[string]icaoRange{
	"MYS": {0x750000, 0x75FFFF},
	"VNM": {0x888000, 0x88FFFF},
	"PHL": {0x758000, 0x75FFFF},
	"IDN": {0x8A0000, 0x8AFFFF},
	"SGP": {0x768000, 0x76FFFF},
}

const sbsTimeLayout = "15:04:05.000"
const sbsDateLayout = "2006/01/02"

// ADSBEncoder renders air entity state as SBS (BaseStation) text
// messages, the line-oriented CSV format dump1090 and FlightRadar24
// feeders emit. Unlike AIS, SBS carries no bit-packed payload: each
// message is already plain text, so this encoder is a direct
// field-by-field formatter with no armouring step.
type ADSBEncoder struct{}

// NewADSBEncoder builds an ADS-B encoder. It holds no state.
func NewADSBEncoder() *ADSBEncoder {
	return &ADSBEncoder{}
}

// generateICAOHex derives a deterministic 24-bit ICAO hex address
// from an entity ID, scoped to the given country's assigned block.
func generateICAOHex(entityID, country string) string {
	r, ok := icaoRanges[country]
	if !ok {
		r = icaoRanges["MYS"]
	}
	sum := md5.Sum([]byte(entityID))
	hashInt := uint32(sum[0])<<16 | uint32(sum[1])<<8 | uint32(sum[2])
	rangeSize := r.top - r.base
	icao := r.base + hashInt%rangeSize
	return fmt.Sprintf("%06X", icao)
}

func entityICAOHex(e entity.Entity) string {
	if v, ok := e.Metadata["icao_hex"].(string); ok && v != "" {
		return v
	}
	return generateICAOHex(e.ID, entityCountry(e))
}

// generateSquawk returns a plausible transponder squawk code for an
// entity's type: 7700 for declared emergencies, 0000 for military
// flights, 1200 (VFR) otherwise.
func generateSquawk(entityType string) string {
	et := strings.ToLower(entityType)
	switch {
	case strings.Contains(et, "emergency"):
		return "7700"
	case strings.Contains(et, "military") || strings.Contains(et, "fighter") || strings.Contains(et, "rmaf"):
		return "0000"
	default:
		return "1200"
	}
}

func sbsTimestamp(e entity.Entity) time.Time {
	if e.Timestamp.IsZero() {
		return time.Now().UTC()
	}
	return e.Timestamp
}

// EncodeIdentification produces an SBS MSG,1 (aircraft identification)
// line.
func (a *ADSBEncoder) EncodeIdentification(e entity.Entity) (string, error) {
	icao := entityICAOHex(e)
	now := sbsTimestamp(e)
	dateStr, timeStr := now.Format(sbsDateLayout), now.Format(sbsTimeLayout)
	callsign := e.Callsign
	if len(callsign) > 8 {
		callsign = callsign[:8]
	}
	return fmt.Sprintf(
		"MSG,1,1,1,%s,1,%s,%s,%s,%s,%s,,,,,,,,,,",
		icao, dateStr, timeStr, dateStr, timeStr, callsign,
	), nil
}

// EncodePosition produces an SBS MSG,3 (airborne position) line.
func (a *ADSBEncoder) EncodePosition(e entity.Entity) (string, error) {
	icao := entityICAOHex(e)
	now := sbsTimestamp(e)
	dateStr, timeStr := now.Format(sbsDateLayout), now.Format(sbsTimeLayout)
	altFt := e.Position.AltitudeM * 3.28084
	onGround := 0
	if v, ok := e.Metadata["on_ground"].(bool); ok && v {
		onGround = -1
	}
	return fmt.Sprintf(
		"MSG,3,1,1,%s,1,%s,%s,%s,%s,,%.0f,,,%.6f,%.6f,,,,,,%d",
		icao, dateStr, timeStr, dateStr, timeStr,
		altFt, e.Position.Latitude, e.Position.Longitude, onGround,
	), nil
}

// EncodeVelocity produces an SBS MSG,4 (airborne velocity) line.
func (a *ADSBEncoder) EncodeVelocity(e entity.Entity) (string, error) {
	icao := entityICAOHex(e)
	now := sbsTimestamp(e)
	dateStr, timeStr := now.Format(sbsDateLayout), now.Format(sbsTimeLayout)
	vrate := 0.0
	if v, ok := e.Metadata["vertical_rate_fpm"].(float64); ok {
		vrate = v
	}
	return fmt.Sprintf(
		"MSG,4,1,1,%s,1,%s,%s,%s,%s,,%.0f,,%.1f,,,%.0f,,,,",
		icao, dateStr, timeStr, dateStr, timeStr,
		e.SpeedKnots, e.HeadingDeg, vrate,
	), nil
}

// EncodeToJSON produces a structured fallback payload for consumers
// that want ADS-B fields without parsing SBS text.
func (a *ADSBEncoder) EncodeToJSON(e entity.Entity) (any, error) {
	var ts any
	if !e.Timestamp.IsZero() {
		ts = e.Timestamp.Format(time.RFC3339)
	}
	onGround := false
	if v, ok := e.Metadata["on_ground"].(bool); ok {
		onGround = v
	}
	vrate := 0.0
	if v, ok := e.Metadata["vertical_rate_fpm"].(float64); ok {
		vrate = v
	}
	return map[string]any{
		"icao_hex":          entityICAOHex(e),
		"callsign":          e.Callsign,
		"latitude":          round6(e.Position.Latitude),
		"longitude":         round6(e.Position.Longitude),
		"altitude_ft":       round1(e.Position.AltitudeM * 3.28084),
		"speed_knots":       round1(e.SpeedKnots),
		"heading_deg":       round1(e.HeadingDeg),
		"vertical_rate_fpm": vrate,
		"on_ground":         onGround,
		"squawk":            generateSquawk(e.EntityType),
		"timestamp":         ts,
	}, nil
}
