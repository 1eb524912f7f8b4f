// pkg/domain/maritime.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package domain

import (
	"strings"
	"time"

	"github.com/davidarule/edge-c2-sim/pkg/entity"
)

// AIS navigation status codes (ITU-R M.1371).
const (
	NavStatusUnderway  = 0
	NavStatusAtAnchor  = 1
	NavStatusMoored    = 5
	NavStatusFishing   = 7
	NavStatusUndefined = 15
)

const (
	aisType5IntervalS    = 360.0
	courseChangeDeg      = 2.0
	fishingSpeedKnotsMax = 3.0
)

// AISEncoder produces AIS wire/JSON output for a maritime entity. The
// concrete implementation (NMEA bit-packing) lives outside the
// simulation core per spec.md §1's boundary-concern scoping; this
// package only calls the interface.
type AISEncoder interface {
	EncodePositionReport(e entity.Entity) ([]string, error)
	EncodeStaticData(e entity.Entity) ([]string, error)
	EncodeToJSON(e entity.Entity) (any, error)
}

// MaritimeProcessor computes AIS nav-status and paces AIS message
// generation for every entity in the Maritime domain.
type MaritimeProcessor struct {
	store   *entity.Store
	encoder AISEncoder

	lastAISTime      map[string]time.Time
	lastAISType5Time map[string]time.Time
	lastHeading      map[string]float64

	recentNMEA []string
	recentJSON []any
}

// NewMaritimeProcessor constructs a Maritime post-processor. encoder
// may be nil, in which case nav-status is still computed but no AIS
// messages are generated.
func NewMaritimeProcessor(store *entity.Store, encoder AISEncoder) *MaritimeProcessor {
	return &MaritimeProcessor{
		store:            store,
		encoder:          encoder,
		lastAISTime:      make(map[string]time.Time),
		lastAISType5Time: make(map[string]time.Time),
		lastHeading:      make(map[string]float64),
	}
}

// Tick updates nav_status metadata and, when due, emits AIS messages
// for every maritime entity.
func (m *MaritimeProcessor) Tick(simTime time.Time) {
	m.recentNMEA = m.recentNMEA[:0]
	m.recentJSON = m.recentJSON[:0]

	for _, e := range m.store.ByDomain(entity.Maritime) {
		navStatus := calculateNavStatus(e)
		if e.Metadata == nil {
			e.Metadata = make(map[string]any)
		}
		e.Metadata["nav_status"] = navStatus

		aisActive := true
		if v, ok := e.Metadata["ais_active"].(bool); ok {
			aisActive = v
		}

		if aisActive {
			m.maybeGenerateAIS(e, simTime, navStatus)
			e.Metadata["last_ais_time"] = simTime
		} else {
			e.Metadata["last_ais_time"] = nil
		}

		m.lastHeading[e.ID] = e.HeadingDeg

		if err := m.store.Update(e); err != nil {
			_ = err // entity may have been removed mid-tick; nothing to fix up here
		}
	}
}

func (m *MaritimeProcessor) maybeGenerateAIS(e entity.Entity, simTime time.Time, navStatus int) {
	prevHeading, ok := m.lastHeading[e.ID]
	if !ok {
		prevHeading = e.HeadingDeg
	}
	headingChange := e.HeadingDeg - prevHeading
	if headingChange < 0 {
		headingChange = -headingChange
	}
	if headingChange > 180 {
		headingChange = 360 - headingChange
	}
	courseChanging := headingChange > courseChangeDeg

	interval := aisInterval(e.SpeedKnots, navStatus, courseChanging)

	if last, ok := m.lastAISTime[e.ID]; !ok || simTime.Sub(last).Seconds() >= interval {
		if m.encoder != nil {
			if nmea, err := m.encoder.EncodePositionReport(e); err == nil {
				m.recentNMEA = append(m.recentNMEA, nmea...)
			}
			if j, err := m.encoder.EncodeToJSON(e); err == nil {
				m.recentJSON = append(m.recentJSON, j)
			}
		}
		m.lastAISTime[e.ID] = simTime
	}

	if last, ok := m.lastAISType5Time[e.ID]; !ok || simTime.Sub(last).Seconds() >= aisType5IntervalS {
		if m.encoder != nil {
			if nmea, err := m.encoder.EncodeStaticData(e); err == nil {
				m.recentNMEA = append(m.recentNMEA, nmea...)
			}
		}
		m.lastAISType5Time[e.ID] = simTime
	}
}

// RecentNMEA returns the AIS NMEA sentences generated on the last tick.
func (m *MaritimeProcessor) RecentNMEA() []string {
	out := make([]string, len(m.recentNMEA))
	copy(out, m.recentNMEA)
	return out
}

// RecentJSON returns the AIS JSON payloads generated on the last tick.
func (m *MaritimeProcessor) RecentJSON() []any {
	out := make([]any, len(m.recentJSON))
	copy(out, m.recentJSON)
	return out
}

func calculateNavStatus(e entity.Entity) int {
	if e.Status == entity.StatusIdle {
		return NavStatusAtAnchor
	}
	if e.SpeedKnots < 0.5 {
		if atPort, _ := e.Metadata["at_port"].(bool); atPort {
			return NavStatusMoored
		}
		return NavStatusAtAnchor
	}
	if strings.Contains(strings.ToLower(e.EntityType), "fishing") && e.SpeedKnots < fishingSpeedKnotsMax {
		return NavStatusFishing
	}
	if active, ok := e.Metadata["ais_active"].(bool); ok && !active {
		return NavStatusUndefined
	}
	return NavStatusUnderway
}

// aisInterval returns the AIS position-report interval, in seconds,
// per spec.md §4.6's IMO-derived table.
func aisInterval(speedKnots float64, navStatus int, courseChanging bool) float64 {
	if navStatus == NavStatusAtAnchor || navStatus == NavStatusMoored {
		return 180.0
	}
	if courseChanging {
		return 3.3
	}
	switch {
	case speedKnots > 23:
		return 2.0
	case speedKnots > 14:
		return 6.0
	case speedKnots > 0:
		return 10.0
	default:
		return 180.0
	}
}
