// pkg/domain/aviation.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package domain

import (
	"strings"
	"time"

	"github.com/davidarule/edge-c2-sim/pkg/entity"
)

const (
	metersToFeet       = 3.28084
	feetToMeters       = 1 / metersToFeet
	fieldElevationFt   = 50.0
	scrambleClimbMult  = 1.3
	hoverSpeedKnotsMax = 5.0
	cruiseBandFt       = 100.0
)

// climbRange is (min, max) feet-per-minute climb rate for an aircraft
// type; descent always uses the min rate.
type climbRange struct{ min, max float64 }

// climbRates and cruiseAltitudes are taken directly from spec.md's
// aviation reference fleet (see SPEC_FULL.md's Domain Stack wiring);
// unrecognized types fall back to the zero-value defaults below.
var climbRates = map[string]climbRange{
	"RMAF_TRANSPORT":  {1500, 2500},
	"RMAF_HELICOPTER": {500, 1500},
	"RMAF_FIGHTER":    {5000, 15000},
	"CIVILIAN_LIGHT":  {500, 1000},
	"MIL_TRANSPORT":   {1000, 2000},
}

var cruiseAltitudesFt = map[string]float64{
	"RMAF_TRANSPORT":  15000,
	"RMAF_HELICOPTER": 3000,
	"RMAF_FIGHTER":    25000,
	"CIVILIAN_LIGHT":  5000,
	"MIL_TRANSPORT":   20000,
}

const (
	defaultClimbMinFpm = 1000.0
	defaultClimbMaxFpm = 2000.0
	defaultCruiseAltFt = 10000.0
)

// ADSBEncoder produces ADS-B wire/JSON output for an air entity. Like
// AISEncoder, bit-packing lives outside the simulation core.
type ADSBEncoder interface {
	EncodePosition(e entity.Entity) (string, error)
	EncodeVelocity(e entity.Entity) (string, error)
	EncodeIdentification(e entity.Entity) (string, error)
	EncodeToJSON(e entity.Entity) (any, error)
}

// AviationProcessor runs the flight-phase state machine and paces
// ADS-B message generation for every entity in the Air domain.
type AviationProcessor struct {
	store   *entity.Store
	encoder ADSBEncoder

	lastTick   time.Time
	haveLast   bool
	recentSBS  []string
	recentJSON []any
}

// NewAviationProcessor constructs an Aviation post-processor. encoder
// may be nil, in which case flight phase still advances but no ADS-B
// messages are generated.
func NewAviationProcessor(store *entity.Store, encoder ADSBEncoder) *AviationProcessor {
	return &AviationProcessor{store: store, encoder: encoder}
}

// Tick advances every air entity's flight phase and altitude, then
// generates ADS-B messages for those with adsb_active.
func (a *AviationProcessor) Tick(simTime time.Time) {
	a.recentSBS = a.recentSBS[:0]
	a.recentJSON = a.recentJSON[:0]

	dtS := 0.0
	if a.haveLast {
		dtS = simTime.Sub(a.lastTick).Seconds()
	}
	a.lastTick = simTime
	a.haveLast = true

	for _, e := range a.store.ByDomain(entity.Air) {
		if e.Metadata == nil {
			e.Metadata = make(map[string]any)
		}
		updateFlightProfile(&e, dtS)

		adsbActive := true
		if v, ok := e.Metadata["adsb_active"].(bool); ok {
			adsbActive = v
		}
		if adsbActive {
			a.generateADSB(e)
		}

		if err := a.store.Update(e); err != nil {
			_ = err
		}
	}
}

func updateFlightProfile(e *entity.Entity, dtS float64) {
	onGround := true
	if v, ok := e.Metadata["on_ground"].(bool); ok {
		onGround = v
	}

	if dtS <= 0 {
		if e.Status == entity.StatusIdle && onGround {
			e.Metadata["flight_phase"] = "parked"
			e.Metadata["vertical_rate_fpm"] = 0.0
		}
		return
	}

	cr, ok := climbRates[e.EntityType]
	if !ok {
		cr = climbRange{defaultClimbMinFpm, defaultClimbMaxFpm}
	}
	cruiseAltFt, ok := cruiseAltitudesFt[e.EntityType]
	if !ok {
		cruiseAltFt = defaultCruiseAltFt
	}

	currentAltFt := e.Position.AltitudeM * metersToFeet
	targetAltFt := cruiseAltFt
	if v, ok := e.Metadata["target_altitude_ft"].(float64); ok {
		targetAltFt = v
	}

	if e.Status == entity.StatusIdle && onGround {
		e.Metadata["flight_phase"] = "parked"
		e.Metadata["vertical_rate_fpm"] = 0.0
		return
	}

	if e.Status == entity.StatusActive || e.Status == entity.StatusResponding || e.Status == entity.StatusIntercepting {
		if onGround && e.SpeedKnots > 0 {
			e.Metadata["on_ground"] = false
			e.Metadata["flight_phase"] = "takeoff"
			onGround = false
		}

		if !onGround {
			altDiff := targetAltFt - currentAltFt

			switch {
			case altDiff > -cruiseBandFt && altDiff < cruiseBandFt:
				e.Metadata["flight_phase"] = "cruise"
				e.Metadata["vertical_rate_fpm"] = 0.0

			case altDiff > 0:
				climbFpm := cr.min
				if e.Status == entity.StatusResponding {
					climbFpm = cr.max
				}
				if scramble, _ := e.Metadata["scramble"].(bool); scramble {
					climbFpm = cr.max * scrambleClimbMult
				}

				altChangeFt := climbFpm * (dtS / 60.0)
				if altChangeFt > altDiff {
					altChangeFt = altDiff
				}
				e.Position.AltitudeM = (currentAltFt + altChangeFt) * feetToMeters

				e.Metadata["flight_phase"] = "climb"
				e.Metadata["vertical_rate_fpm"] = climbFpm

			default:
				descentFpm := cr.min
				altChangeFt := descentFpm * (dtS / 60.0)
				absDiff := -altDiff
				if altChangeFt > absDiff {
					altChangeFt = absDiff
				}
				newAltFt := currentAltFt - altChangeFt

				if newAltFt <= fieldElevationFt {
					newAltFt = fieldElevationFt
					e.Metadata["on_ground"] = true
					e.Metadata["flight_phase"] = "landed"
				} else {
					e.Metadata["flight_phase"] = "descent"
				}

				e.Position.AltitudeM = newAltFt * feetToMeters
				e.Metadata["vertical_rate_fpm"] = -descentFpm
			}
		}
	}

	upper := strings.ToUpper(e.EntityType)
	if (strings.Contains(upper, "HELICOPTER") || strings.Contains(upper, "HELI")) &&
		!onGround && e.SpeedKnots < hoverSpeedKnotsMax {
		e.Metadata["flight_phase"] = "hover"
		e.Metadata["vertical_rate_fpm"] = 0.0
	}
}

func (a *AviationProcessor) generateADSB(e entity.Entity) {
	if a.encoder == nil {
		return
	}
	if s, err := a.encoder.EncodePosition(e); err == nil {
		a.recentSBS = append(a.recentSBS, s)
	}
	if s, err := a.encoder.EncodeVelocity(e); err == nil {
		a.recentSBS = append(a.recentSBS, s)
	}
	if s, err := a.encoder.EncodeIdentification(e); err == nil {
		a.recentSBS = append(a.recentSBS, s)
	}
	if j, err := a.encoder.EncodeToJSON(e); err == nil {
		a.recentJSON = append(a.recentJSON, j)
	}
}

// RecentSBS returns the ADS-B SBS messages generated on the last tick.
func (a *AviationProcessor) RecentSBS() []string {
	out := make([]string, len(a.recentSBS))
	copy(out, a.recentSBS)
	return out
}

// RecentJSON returns the ADS-B JSON payloads generated on the last
// tick.
func (a *AviationProcessor) RecentJSON() []any {
	out := make([]any, len(a.recentJSON))
	copy(out, a.recentJSON)
	return out
}
