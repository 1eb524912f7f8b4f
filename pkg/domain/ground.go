// pkg/domain/ground.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package domain

import (
	"time"

	"github.com/davidarule/edge-c2-sim/pkg/entity"
)

// GroundProcessor converts speed to km/h, forces ground vehicles to
// stay at zero altitude, and flags emergency response mode.
type GroundProcessor struct {
	store *entity.Store
}

// NewGroundProcessor constructs a Ground Vehicle post-processor.
func NewGroundProcessor(store *entity.Store) *GroundProcessor {
	return &GroundProcessor{store: store}
}

// Tick updates speed_kmh, altitude, and emergency_mode metadata for
// every ground vehicle entity.
func (g *GroundProcessor) Tick(simTime time.Time) {
	for _, e := range g.store.ByDomain(entity.GroundVehicle) {
		if e.Metadata == nil {
			e.Metadata = make(map[string]any)
		}
		e.Metadata["speed_kmh"] = e.SpeedKnots * knotsToKMH
		e.Position.AltitudeM = 0
		e.Metadata["emergency_mode"] = e.Status == entity.StatusResponding

		if err := g.store.Update(e); err != nil {
			_ = err
		}
	}
}
