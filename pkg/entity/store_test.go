// pkg/entity/store_test.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package entity

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/davidarule/edge-c2-sim/pkg/log"
)

func testLogger() *log.Logger {
	return &log.Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func sampleEntity(id string) Entity {
	return Entity{
		ID:         id,
		EntityType: "CIVILIAN_CARGO",
		Domain:     Maritime,
		Agency:     CIVILIAN,
		Callsign:   "TEST1",
		Position:   Position{Latitude: 5, Longitude: 118},
		Status:     StatusActive,
	}
}

func TestStoreAddGet(t *testing.T) {
	s := NewStore(testLogger())
	e := sampleEntity("e1")
	if err := s.Add(e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok := s.Get("e1")
	if !ok {
		t.Fatal("expected to find e1")
	}
	if got.Callsign != "TEST1" {
		t.Errorf("callsign mismatch: %q", got.Callsign)
	}
}

func TestStoreAddDuplicate(t *testing.T) {
	s := NewStore(testLogger())
	e := sampleEntity("e1")
	if err := s.Add(e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Add(e); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestStoreUpdateMissing(t *testing.T) {
	s := NewStore(testLogger())
	if err := s.Update(sampleEntity("nope")); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreUpsertIdempotent(t *testing.T) {
	s := NewStore(testLogger())
	e := sampleEntity("e1")
	s.Upsert(e)
	s.Upsert(e)
	if s.Count() != 1 {
		t.Errorf("expected count 1 after repeated upsert, got %d", s.Count())
	}
}

func TestStoreByDomainAgency(t *testing.T) {
	s := NewStore(testLogger())
	s.Upsert(sampleEntity("m1"))
	air := sampleEntity("a1")
	air.Domain = Air
	air.Agency = RMAF
	s.Upsert(air)

	if m := s.ByDomain(Maritime); len(m) != 1 {
		t.Errorf("expected 1 maritime entity, got %d", len(m))
	}
	if a := s.ByAgency(RMAF); len(a) != 1 {
		t.Errorf("expected 1 RMAF entity, got %d", len(a))
	}
}

func TestStoreRemove(t *testing.T) {
	s := NewStore(testLogger())
	s.Upsert(sampleEntity("e1"))
	if err := s.Remove("e1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Remove("e1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second remove, got %v", err)
	}
}

func TestStoreListeners(t *testing.T) {
	s := NewStore(testLogger())
	var updates []string
	s.OnUpdate(func(e Entity) { updates = append(updates, e.ID) })

	s.Upsert(sampleEntity("e1"))
	s.Upsert(sampleEntity("e2"))

	if len(updates) != 2 || updates[0] != "e1" || updates[1] != "e2" {
		t.Errorf("unexpected update sequence: %+v", updates)
	}
}

func TestStoreSnapshotIsolation(t *testing.T) {
	s := NewStore(testLogger())
	e := sampleEntity("e1")
	e.Metadata = map[string]any{"k": "v"}
	s.Upsert(e)

	got, _ := s.Get("e1")
	got.Metadata["k"] = "mutated"

	got2, _ := s.Get("e1")
	if got2.Metadata["k"] != "v" {
		t.Error("mutating a returned snapshot's metadata should not affect the stored entity")
	}
}
