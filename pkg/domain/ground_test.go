// pkg/domain/ground_test.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package domain

import (
	"testing"
	"time"

	"github.com/davidarule/edge-c2-sim/pkg/entity"
)

func TestGroundProcessorConvertsSpeedAndZeroesAltitude(t *testing.T) {
	s := entity.NewStore(testLogger())
	s.Upsert(entity.Entity{
		ID: "g1", Domain: entity.GroundVehicle, Agency: entity.RMP,
		Position: entity.Position{Latitude: 5, Longitude: 118, AltitudeM: 50},
		SpeedKnots: 10, Status: entity.StatusResponding,
	})

	g := NewGroundProcessor(s)
	g.Tick(time.Now())

	got, _ := s.Get("g1")
	if got.Position.AltitudeM != 0 {
		t.Errorf("expected altitude forced to 0, got %v", got.Position.AltitudeM)
	}
	wantKMH := 10 * knotsToKMH
	if got.Metadata["speed_kmh"] != wantKMH {
		t.Errorf("expected speed_kmh %v, got %v", wantKMH, got.Metadata["speed_kmh"])
	}
	if got.Metadata["emergency_mode"] != true {
		t.Error("expected emergency_mode true for RESPONDING status")
	}
}

func TestGroundProcessorNonEmergency(t *testing.T) {
	s := entity.NewStore(testLogger())
	s.Upsert(entity.Entity{
		ID: "g1", Domain: entity.GroundVehicle, Agency: entity.RMP,
		SpeedKnots: 5, Status: entity.StatusActive,
	})

	g := NewGroundProcessor(s)
	g.Tick(time.Now())

	got, _ := s.Get("g1")
	if got.Metadata["emergency_mode"] != false {
		t.Error("expected emergency_mode false for ACTIVE status")
	}
}
