// pkg/event/event_test.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package event

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/davidarule/edge-c2-sim/pkg/entity"
	"github.com/davidarule/edge-c2-sim/pkg/log"
	"github.com/davidarule/edge-c2-sim/pkg/movement"
)

func testLogger() *log.Logger {
	return &log.Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func makeEntity(id string, lat, lon float64, etype string) entity.Entity {
	return entity.Entity{
		ID: id, EntityType: etype, Domain: entity.Maritime, Agency: entity.MMEA,
		Callsign: id, Position: entity.Position{Latitude: lat, Longitude: lon},
		Status: entity.StatusIdle,
	}
}

func TestEventsFireAtCorrectTime(t *testing.T) {
	start := time.Date(2026, 4, 15, 8, 0, 0, 0, time.UTC)
	s := entity.NewStore(testLogger())
	s.Add(makeEntity("E1", 5, 118, "MMEA_PATROL"))

	events := []Event{
		{TimeOffset: 5 * time.Minute, EventType: "ALERT", Description: "Test alert"},
		{TimeOffset: 10 * time.Minute, EventType: "ORDER", Description: "Test order"},
	}
	eng := New(events, s, nil, start, nil, testLogger())

	if fired := eng.Tick(start.Add(3 * time.Minute)); len(fired) != 0 {
		t.Fatalf("expected no events at t+3min, got %d", len(fired))
	}
	fired := eng.Tick(start.Add(5 * time.Minute))
	if len(fired) != 1 || fired[0].EventType != "ALERT" {
		t.Fatalf("expected ALERT to fire at t+5min, got %+v", fired)
	}
	fired = eng.Tick(start.Add(10 * time.Minute))
	if len(fired) != 1 || fired[0].EventType != "ORDER" {
		t.Fatalf("expected ORDER to fire at t+10min, got %+v", fired)
	}
}

func TestEventsDontRefire(t *testing.T) {
	start := time.Now()
	s := entity.NewStore(testLogger())
	events := []Event{{TimeOffset: 5 * time.Minute, EventType: "ALERT", Description: "Test"}}
	eng := New(events, s, nil, start, nil, testLogger())

	if fired := eng.Tick(start.Add(5 * time.Minute)); len(fired) != 1 {
		t.Fatalf("expected 1 fire, got %d", len(fired))
	}
	if fired := eng.Tick(start.Add(6 * time.Minute)); len(fired) != 0 {
		t.Fatalf("expected no refire, got %d", len(fired))
	}
}

func TestInterceptSwapsMovement(t *testing.T) {
	start := time.Now()
	s := entity.NewStore(testLogger())
	s.Add(makeEntity("MMEA-1", 5, 118, "MMEA_PATROL"))
	s.Add(makeEntity("TARGET-1", 6, 119, "SUSPECT_VESSEL"))

	movements := make(map[string]movement.Strategy)
	events := []Event{{
		TimeOffset: 5 * time.Minute, EventType: "ORDER", Description: "Intercept",
		Target: "MMEA-1", Action: "intercept", InterceptTarget: "TARGET-1",
	}}
	eng := New(events, s, movements, start, nil, testLogger())
	eng.Tick(start.Add(5 * time.Minute))

	if _, ok := movements["MMEA-1"].(*movement.InterceptStrategy); !ok {
		t.Fatalf("expected InterceptStrategy bound for MMEA-1, got %T", movements["MMEA-1"])
	}
	got, _ := s.Get("MMEA-1")
	if got.Status != entity.StatusIntercepting {
		t.Errorf("expected INTERCEPTING status, got %v", got.Status)
	}
}

func TestPursueBehavesLikeIntercept(t *testing.T) {
	start := time.Now()
	s := entity.NewStore(testLogger())
	s.Add(makeEntity("HELI-1", 5, 118, "RMAF_HELICOPTER"))
	s.Add(makeEntity("BAD-1", 4.5, 118.5, "HOSTILE_VESSEL"))

	movements := make(map[string]movement.Strategy)
	events := []Event{{
		TimeOffset: 5 * time.Minute, EventType: "ORDER", Description: "Pursue",
		Target: "HELI-1", Action: "pursue", InterceptTarget: "BAD-1",
	}}
	eng := New(events, s, movements, start, nil, testLogger())
	eng.Tick(start.Add(5 * time.Minute))

	if _, ok := movements["HELI-1"].(*movement.InterceptStrategy); !ok {
		t.Fatalf("expected InterceptStrategy bound for HELI-1, got %T", movements["HELI-1"])
	}
	got, _ := s.Get("HELI-1")
	if got.Status != entity.StatusIntercepting {
		t.Errorf("expected INTERCEPTING status, got %v", got.Status)
	}
}

func TestDeployCreatesWaypointMovement(t *testing.T) {
	start := time.Now()
	s := entity.NewStore(testLogger())
	s.Add(makeEntity("UNIT-1", 5, 118, "MMEA_PATROL"))

	movements := make(map[string]movement.Strategy)
	events := []Event{{
		TimeOffset: 5 * time.Minute, EventType: "ORDER", Description: "Deploy",
		Target: "UNIT-1", Action: "deploy", Destination: &LatLon{Lat: 5.5, Lon: 118.5},
	}}
	eng := New(events, s, movements, start, nil, testLogger())
	eng.Tick(start.Add(5 * time.Minute))

	if _, ok := movements["UNIT-1"].(*movement.WaypointStrategy); !ok {
		t.Fatalf("expected WaypointStrategy bound for UNIT-1, got %T", movements["UNIT-1"])
	}
	got, _ := s.Get("UNIT-1")
	if got.Status != entity.StatusResponding {
		t.Errorf("expected RESPONDING status, got %v", got.Status)
	}
}

func TestMultiTargetEventActivatesAll(t *testing.T) {
	start := time.Now()
	s := entity.NewStore(testLogger())
	s.Add(makeEntity("A", 5, 118, "MMEA_PATROL"))
	s.Add(makeEntity("B", 5, 118, "MMEA_PATROL"))

	events := []Event{{
		TimeOffset: 5 * time.Minute, EventType: "ORDER", Description: "Activate all",
		Targets: []string{"A", "B"}, Action: "activate",
	}}
	eng := New(events, s, nil, start, nil, testLogger())
	eng.Tick(start.Add(5 * time.Minute))

	a, _ := s.Get("A")
	b, _ := s.Get("B")
	if a.Status != entity.StatusActive || b.Status != entity.StatusActive {
		t.Errorf("expected both entities ACTIVE, got %v %v", a.Status, b.Status)
	}
}

func TestLockdownRemovesMovement(t *testing.T) {
	start := time.Now()
	s := entity.NewStore(testLogger())
	s.Add(makeEntity("C1", 5, 118, "MMEA_PATROL"))
	wp, _ := movement.NewWaypointStrategy([]movement.Waypoint{{Lat: 5, Lon: 118}}, start)
	movements := map[string]movement.Strategy{"C1": wp}

	events := []Event{{
		TimeOffset: time.Minute, EventType: "ORDER", Description: "Lockdown",
		Target: "C1", Action: "lockdown",
	}}
	eng := New(events, s, movements, start, nil, testLogger())
	eng.Tick(start.Add(time.Minute))

	if _, ok := movements["C1"]; ok {
		t.Error("expected movement removed after lockdown")
	}
	got, _ := s.Get("C1")
	if got.SpeedKnots != 0 {
		t.Errorf("expected speed zeroed, got %v", got.SpeedKnots)
	}
}

func TestIsComplete(t *testing.T) {
	start := time.Now()
	s := entity.NewStore(testLogger())
	events := []Event{
		{TimeOffset: time.Minute, EventType: "ALERT", Description: "A"},
		{TimeOffset: 2 * time.Minute, EventType: "ALERT", Description: "B"},
	}
	eng := New(events, s, nil, start, nil, testLogger())

	if eng.IsComplete() {
		t.Fatal("expected not complete before any ticks")
	}
	eng.Tick(start.Add(time.Minute))
	if eng.IsComplete() {
		t.Fatal("expected not complete after first event")
	}
	eng.Tick(start.Add(2 * time.Minute))
	if !eng.IsComplete() {
		t.Fatal("expected complete after both events fired")
	}
}

func TestUpcomingEventsWindow(t *testing.T) {
	start := time.Now()
	s := entity.NewStore(testLogger())
	events := []Event{
		{TimeOffset: time.Minute, EventType: "A", Description: "A"},
		{TimeOffset: 5 * time.Minute, EventType: "B", Description: "B"},
	}
	eng := New(events, s, nil, start, nil, testLogger())
	eng.Tick(start.Add(time.Minute))

	upcoming := eng.UpcomingEvents(10 * time.Minute)
	if len(upcoming) != 1 || upcoming[0].EventType != "B" {
		t.Fatalf("expected only B upcoming, got %+v", upcoming)
	}
}

func TestReclassifyChangesEntityType(t *testing.T) {
	start := time.Now()
	s := entity.NewStore(testLogger())
	suspect := makeEntity("HOSTILE-001", 4.9, 119.2, "SUSPECT_VESSEL")
	suspect.SIDC = "SUSP------"
	s.Add(suspect)

	ti := fakeTypeInfo{sidc: map[string]string{"HOSTILE_VESSEL": "SHSP------"}}
	events := []Event{{
		TimeOffset: 10 * time.Minute, EventType: "INCIDENT", Description: "Armed attack",
		Reclassify: &Reclassify{Targets: []string{"HOSTILE-001"}, NewType: "HOSTILE_VESSEL"},
	}}
	eng := New(events, s, nil, start, ti, testLogger())
	eng.Tick(start.Add(10 * time.Minute))

	got, _ := s.Get("HOSTILE-001")
	if got.EntityType != "HOSTILE_VESSEL" {
		t.Errorf("expected reclassified type, got %v", got.EntityType)
	}
	if got.SIDC != "SHSP------" {
		t.Errorf("expected SIDC updated, got %v", got.SIDC)
	}
}

func TestResetAllowsRefire(t *testing.T) {
	start := time.Now()
	s := entity.NewStore(testLogger())
	events := []Event{{TimeOffset: time.Minute, EventType: "ALERT", Description: "A"}}
	eng := New(events, s, nil, start, nil, testLogger())

	eng.Tick(start.Add(time.Minute))
	if !eng.IsComplete() {
		t.Fatal("expected complete before reset")
	}
	eng.Reset()
	if eng.IsComplete() || len(eng.FiredEvents()) != 0 {
		t.Fatal("expected fresh timeline after reset")
	}
	if fired := eng.Tick(start.Add(time.Minute)); len(fired) != 1 {
		t.Fatalf("expected event to refire, got %d", len(fired))
	}
}

type fakeTypeInfo struct {
	sidc map[string]string
}

func (f fakeTypeInfo) MaxSpeedKnots(string) float64 { return 20 }
func (f fakeTypeInfo) IsFixedWing(string) bool      { return false }
func (f fakeTypeInfo) SIDC(t string) string         { return f.sidc[t] }
