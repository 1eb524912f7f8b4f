// pkg/domain/maritime_test.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package domain

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/davidarule/edge-c2-sim/pkg/entity"
	"github.com/davidarule/edge-c2-sim/pkg/log"
)

func testLogger() *log.Logger {
	return &log.Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func newVessel(id string, speed float64, status entity.Status) entity.Entity {
	return entity.Entity{
		ID:         id,
		EntityType: "CIVILIAN_CARGO",
		Domain:     entity.Maritime,
		Agency:     entity.CIVILIAN,
		Position:   entity.Position{Latitude: 5, Longitude: 118},
		SpeedKnots: speed,
		Status:     status,
		Metadata:   map[string]any{},
	}
}

func TestMaritimeNavStatusAnchored(t *testing.T) {
	s := entity.NewStore(testLogger())
	s.Upsert(newVessel("v1", 0, entity.StatusIdle))

	m := NewMaritimeProcessor(s, nil)
	m.Tick(time.Now())

	got, _ := s.Get("v1")
	if got.Metadata["nav_status"] != NavStatusAtAnchor {
		t.Errorf("expected nav_status %d, got %v", NavStatusAtAnchor, got.Metadata["nav_status"])
	}
}

func TestMaritimeNavStatusMoored(t *testing.T) {
	s := entity.NewStore(testLogger())
	v := newVessel("v1", 0, entity.StatusActive)
	v.Metadata["at_port"] = true
	s.Upsert(v)

	m := NewMaritimeProcessor(s, nil)
	m.Tick(time.Now())

	got, _ := s.Get("v1")
	if got.Metadata["nav_status"] != NavStatusMoored {
		t.Errorf("expected nav_status %d, got %v", NavStatusMoored, got.Metadata["nav_status"])
	}
}

func TestMaritimeNavStatusUnderway(t *testing.T) {
	s := entity.NewStore(testLogger())
	s.Upsert(newVessel("v1", 12, entity.StatusActive))

	m := NewMaritimeProcessor(s, nil)
	m.Tick(time.Now())

	got, _ := s.Get("v1")
	if got.Metadata["nav_status"] != NavStatusUnderway {
		t.Errorf("expected nav_status %d, got %v", NavStatusUnderway, got.Metadata["nav_status"])
	}
}

func TestAISIntervalTable(t *testing.T) {
	cases := []struct {
		speed    float64
		nav      int
		changing bool
		want     float64
	}{
		{0, NavStatusAtAnchor, false, 180.0},
		{10, NavStatusUnderway, true, 3.3},
		{25, NavStatusUnderway, false, 2.0},
		{16, NavStatusUnderway, false, 6.0},
		{5, NavStatusUnderway, false, 10.0},
		{0, NavStatusUnderway, false, 180.0},
	}
	for _, c := range cases {
		if got := aisInterval(c.speed, c.nav, c.changing); got != c.want {
			t.Errorf("aisInterval(%v,%v,%v) = %v, want %v", c.speed, c.nav, c.changing, got, c.want)
		}
	}
}
