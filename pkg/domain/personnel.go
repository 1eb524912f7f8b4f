// pkg/domain/personnel.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package domain

import (
	"math"
	"time"

	"github.com/davidarule/edge-c2-sim/pkg/entity"
	"github.com/davidarule/edge-c2-sim/pkg/rand"
)

// MaxPersonnelSpeedKnots is the walking/running speed ceiling for
// foot-mobile entities (~8 km/h).
const MaxPersonnelSpeedKnots = 4.3

// formationRadiusM gives each formation's spread radius in meters.
var formationRadiusM = map[string]float64{
	"patrol":     5.0,
	"checkpoint": 20.0,
	"cordon":     50.0,
	"standby":    5.0,
}

const defaultFormationRadiusM = 10.0

// MemberPosition is one formation member's offset position.
type MemberPosition struct {
	Lat, Lon float64
}

// PersonnelProcessor clamps foot-mobile speed, converts to km/h, and
// computes per-member formation spread for multi-person units.
type PersonnelProcessor struct {
	store *entity.Store
	rnd   rand.Rand
}

// NewPersonnelProcessor constructs a Personnel post-processor, seeded
// for reproducible formation spread sampling.
func NewPersonnelProcessor(store *entity.Store, seed uint64) *PersonnelProcessor {
	r := rand.New()
	r.Seed(seed)
	return &PersonnelProcessor{store: store, rnd: r}
}

// Tick updates formation metadata, clamps speed, and computes member
// positions for every personnel entity.
func (p *PersonnelProcessor) Tick(simTime time.Time) {
	for _, e := range p.store.ByDomain(entity.Personnel) {
		if e.Metadata == nil {
			e.Metadata = make(map[string]any)
		}

		formation, _ := e.Metadata["formation"].(string)
		if formation == "" {
			formation = "standby"
		}
		e.Metadata["formation"] = formation

		unitSize := 1
		switch v := e.Metadata["unit_size"].(type) {
		case int:
			unitSize = v
		case float64:
			unitSize = int(v)
		}

		if unitSize > 1 {
			e.Metadata["member_positions"] = p.generateMemberPositions(e, formation, unitSize)
		}

		if e.SpeedKnots > MaxPersonnelSpeedKnots {
			e.SpeedKnots = MaxPersonnelSpeedKnots
		}
		e.Metadata["speed_kmh"] = e.SpeedKnots * knotsToKMH

		if err := p.store.Update(e); err != nil {
			_ = err
		}
	}
}

// generateMemberPositions spreads unitSize members around the unit's
// anchor position per spec.md §4.6's three formation rules: cordon
// (ring), patrol (single file trailing behind heading), and
// checkpoint/standby (Gaussian spread).
func (p *PersonnelProcessor) generateMemberPositions(e entity.Entity, formation string, unitSize int) []MemberPosition {
	centerLat := e.Position.Latitude
	centerLon := e.Position.Longitude
	radiusM, ok := formationRadiusM[formation]
	if !ok {
		radiusM = defaultFormationRadiusM
	}

	positions := make([]MemberPosition, 0, unitSize)
	for i := 0; i < unitSize; i++ {
		var offsetN, offsetE float64

		switch formation {
		case "cordon":
			angle := 2 * math.Pi * float64(i) / float64(unitSize)
			offsetN = radiusM * math.Cos(angle)
			offsetE = radiusM * math.Sin(angle)
		case "patrol":
			headingRad := e.HeadingDeg * math.Pi / 180
			spacing := radiusM * float64(i)
			offsetN = -spacing * math.Cos(headingRad)
			offsetE = -spacing * math.Sin(headingRad)
		default: // checkpoint, standby
			offsetN = p.rnd.Gauss(0, radiusM/2)
			offsetE = p.rnd.Gauss(0, radiusM/2)
		}

		dlat := offsetN / metersPerDegreeLat
		dlon := offsetE / (metersPerDegreeLat * math.Cos(centerLat*math.Pi/180))

		positions = append(positions, MemberPosition{
			Lat: centerLat + dlat,
			Lon: centerLon + dlon,
		})
	}
	return positions
}
