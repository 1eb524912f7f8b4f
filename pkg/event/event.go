// pkg/event/event.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package event implements the scenario timeline: a sorted list of
// timed events that, on firing, mutate the movement binding and status
// of their target entities.
package event

import (
	"sort"
	"time"

	"github.com/davidarule/edge-c2-sim/pkg/entity"
	"github.com/davidarule/edge-c2-sim/pkg/geo"
	"github.com/davidarule/edge-c2-sim/pkg/log"
	"github.com/davidarule/edge-c2-sim/pkg/movement"
)

const metersPerNauticalMile = 1852.0

// LatLon is a bare geographic point used by Destination/Position fields,
// independent of entity.Position so this package has no reason to carry
// altitude or timestamp semantics it never touches.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Reclassify swaps an entity's declared type (and, through TypeInfo, its
// SIDC) without touching its movement or status — used when an
// ambiguous contact resolves to a hostile identification.
type Reclassify struct {
	Targets []string `json:"targets"`
	NewType string   `json:"new_type"`
}

// Event is a single timed entry in a scenario's timeline.
type Event struct {
	TimeOffset      time.Duration  `json:"-"`
	EventType       string         `json:"event_type"`
	Description     string         `json:"description"`
	Severity        string         `json:"severity"`
	Target          string         `json:"target,omitempty"`
	Targets         []string       `json:"targets,omitempty"`
	Action          string         `json:"action,omitempty"`
	InterceptTarget string         `json:"intercept_target,omitempty"`
	Destination     *LatLon        `json:"destination,omitempty"`
	Area            string         `json:"area,omitempty"`
	Position        *LatLon        `json:"position,omitempty"`
	AlertAgencies   []string       `json:"alert_agencies,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	Source          string         `json:"source,omitempty"`
	Reclassify      *Reclassify    `json:"reclassify,omitempty"`
}

// TypeInfo resolves entity-type characteristics the engine needs to
// size a new movement strategy, without the event package depending on
// the scenario loader's entity type table directly.
type TypeInfo interface {
	// MaxSpeedKnots returns the type's top speed. Implementations
	// should return a sane default (the engine's own default is 20)
	// for unknown types.
	MaxSpeedKnots(entityType string) float64
	// IsFixedWing reports whether the type is a fixed-wing aircraft,
	// which orbits rather than stops on reaching an intercept target
	// because it can't hover in place. False for rotary-wing, ground,
	// maritime, and personnel types.
	IsFixedWing(entityType string) bool
	// SIDC returns the symbology code associated with a type, for use
	// after a Reclassify action.
	SIDC(entityType string) string
}

const defaultMaxSpeedKnots = 20.0

type defaultTypeInfo struct{}

func (defaultTypeInfo) MaxSpeedKnots(string) float64 { return defaultMaxSpeedKnots }
func (defaultTypeInfo) IsFixedWing(string) bool      { return false }
func (defaultTypeInfo) SIDC(string) string           { return "" }

// storeLookup adapts *entity.Store to movement.EntityLookup so the
// event engine can hand a pursuer's Intercept strategy a read-only
// handle into the store, resolved by id on every tick rather than by
// a pointer that could go stale across a reset.
type storeLookup struct {
	store *entity.Store
}

// NewEntityLookup returns a movement.EntityLookup backed by store. The
// engine uses it for every Intercept strategy that an intercept or
// pursue action constructs.
func NewEntityLookup(store *entity.Store) movement.EntityLookup {
	return storeLookup{store: store}
}

func (l storeLookup) Position(id string) (lat, lon, altM, speedKnots, courseDeg float64, ok bool) {
	e, found := l.store.Get(id)
	if !found {
		return 0, 0, 0, 0, 0, false
	}
	return e.Position.Latitude, e.Position.Longitude, e.Position.AltitudeM, e.SpeedKnots, e.CourseDeg, true
}

// Engine processes a scenario's timed events against a live entity
// store, swapping movement bindings in a caller-supplied, caller-owned
// map. The map is mutated directly (never replaced) so an orchestrator
// holding the same reference sees every change without needing a
// getter — mirroring the shared-mutable-context fix for the reset bug
// this engine is built to avoid repeating: a tick loop that captured
// an *Engine by value across a restart would tick a stale timeline
// whose events had already fired.
type Engine struct {
	events    []Event
	store     *entity.Store
	movements map[string]movement.Strategy
	start     time.Time
	typeInfo  TypeInfo
	lg        *log.Logger

	fired    []Event
	firedSet map[int]bool
}

// New constructs an Engine. events is sorted by TimeOffset (stable, so
// same-offset events preserve their original order); a copy is taken
// and the input slice is not mutated. movements must be the same map
// instance the orchestrator's tick loop reads from — Engine writes
// into it directly. typeInfo may be nil, in which case default speed
// assumptions (20kt max, never fixed-wing, no SIDC lookup) apply.
func New(events []Event, store *entity.Store, movements map[string]movement.Strategy,
	scenarioStart time.Time, typeInfo TypeInfo, lg *log.Logger) *Engine {
	evs := make([]Event, len(events))
	copy(evs, events)
	sort.SliceStable(evs, func(i, j int) bool { return evs[i].TimeOffset < evs[j].TimeOffset })

	if typeInfo == nil {
		typeInfo = defaultTypeInfo{}
	}
	if movements == nil {
		movements = make(map[string]movement.Strategy)
	}

	return &Engine{
		events:    evs,
		store:     store,
		movements: movements,
		start:     scenarioStart,
		typeInfo:  typeInfo,
		lg:        lg,
		firedSet:  make(map[int]bool),
	}
}

// Tick checks every unfired event against simTime, fires any whose
// offset has arrived, and returns the events newly fired this call (in
// timeline order).
func (e *Engine) Tick(simTime time.Time) []Event {
	elapsed := simTime.Sub(e.start)
	var newlyFired []Event

	for i := range e.events {
		if e.firedSet[i] {
			continue
		}
		ev := e.events[i]
		if ev.TimeOffset > elapsed {
			continue
		}
		e.fireEvent(ev, simTime)
		e.fired = append(e.fired, ev)
		e.firedSet[i] = true
		newlyFired = append(newlyFired, ev)
		if e.lg != nil {
			e.lg.Info("scenario event fired", "event_type", ev.EventType, "description", ev.Description)
		}
	}

	return newlyFired
}

func (e *Engine) fireEvent(ev Event, simTime time.Time) {
	if ev.Reclassify != nil {
		e.applyReclassify(*ev.Reclassify)
	}

	if ev.Action == "" {
		return
	}

	targetIDs := make([]string, 0, 1+len(ev.Targets))
	if ev.Target != "" {
		targetIDs = append(targetIDs, ev.Target)
	}
	targetIDs = append(targetIDs, ev.Targets...)

	for _, id := range targetIDs {
		ent, ok := e.store.Get(id)
		if !ok {
			if e.lg != nil {
				e.lg.Warn("event target not found in store", "target", id)
			}
			continue
		}
		e.applyAction(ev, ent, id, simTime)
	}
}

func (e *Engine) applyReclassify(r Reclassify) {
	for _, id := range r.Targets {
		ent, ok := e.store.Get(id)
		if !ok {
			continue
		}
		ent.EntityType = r.NewType
		ent.SIDC = e.typeInfo.SIDC(r.NewType)
		e.store.Upsert(ent)
	}
}

func (e *Engine) applyAction(ev Event, ent entity.Entity, targetID string, simTime time.Time) {
	switch ev.Action {
	case "intercept", "pursue":
		if ev.InterceptTarget == "" {
			if e.lg != nil {
				e.lg.Warn("intercept event missing intercept_target", "target", targetID)
			}
			break
		}
		maxSpeed := e.typeInfo.MaxSpeedKnots(ent.EntityType)
		fixedWing := e.typeInfo.IsFixedWing(ent.EntityType)
		lookup := NewEntityLookup(e.store)
		strat := movement.NewInterceptStrategy(lookup, targetID, ev.InterceptTarget, maxSpeed, 0, fixedWing, simTime)
		e.movements[targetID] = strat
		ent.Status = entity.StatusIntercepting
		ent.SpeedKnots = maxSpeed

	case "deploy", "respond":
		ent.Status = entity.StatusResponding
		if ev.Destination != nil {
			e.setWaypointMovement(ent, targetID, *ev.Destination, deploySpeed(e.typeInfo.MaxSpeedKnots(ent.EntityType)), 30*time.Minute, simTime)
			ent.SpeedKnots = deploySpeed(e.typeInfo.MaxSpeedKnots(ent.EntityType))
		}

	case "search_area", "patrol":
		ent.Status = entity.StatusActive

	case "lockdown", "secure":
		ent.Status = entity.StatusActive
		ent.SpeedKnots = 0
		delete(e.movements, targetID)

	case "activate":
		ent.Status = entity.StatusActive

	case "escort_to_port":
		ent.Status = entity.StatusActive
		const sandakanLat, sandakanLon = 5.84, 118.105
		maxSpeed := e.typeInfo.MaxSpeedKnots(ent.EntityType)
		escortSpeed := maxSpeed * 0.5
		e.setWaypointMovement(ent, targetID, LatLon{Lat: sandakanLat, Lon: sandakanLon}, escortSpeed, time.Hour, simTime)
		ent.SpeedKnots = escortSpeed

	default:
		if e.lg != nil {
			e.lg.Debug("unhandled scenario event action", "action", ev.Action, "target", targetID)
		}
		ent.Status = entity.StatusActive
	}

	e.store.Upsert(ent)
}

// deploySpeed mirrors the ground truth that dismounted personnel/small
// boats move by vehicle transport, not under their own power, once an
// order puts them in transit.
func deploySpeed(maxSpeedKnots float64) float64 {
	if maxSpeedKnots <= 6 {
		return 25
	}
	return maxSpeedKnots * 0.9
}

// setWaypointMovement builds a two-point waypoint plan from ent's
// current position to dest at travelSpeedKnots and installs it as
// ent's movement binding. Travel time is derived from great-circle
// distance; a degenerate (zero speed or zero distance) case falls back
// to a flat degenerateFallback transit so the entity still has
// somewhere to go.
func (e *Engine) setWaypointMovement(ent entity.Entity, targetID string, dest LatLon, travelSpeedKnots float64, degenerateFallback time.Duration, simTime time.Time) {
	origin := geo.Point{Lat: ent.Position.Latitude, Lon: ent.Position.Longitude}
	destPoint := geo.Point{Lat: dest.Lat, Lon: dest.Lon}
	distNM := geo.DistanceM(origin, destPoint) / metersPerNauticalMile

	var travel time.Duration
	if travelSpeedKnots > 0 && distNM > 0 {
		travel = time.Duration(distNM / travelSpeedKnots * float64(time.Hour))
	} else {
		travel = degenerateFallback
	}

	wps := []movement.Waypoint{
		{Lat: origin.Lat, Lon: origin.Lon, AltM: ent.Position.AltitudeM, SpeedKnots: travelSpeedKnots, TimeOffset: 0},
		{Lat: dest.Lat, Lon: dest.Lon, SpeedKnots: 0, TimeOffset: travel},
	}
	strat, err := movement.NewWaypointStrategy(wps, simTime)
	if err != nil {
		return
	}
	e.movements[targetID] = strat
}

// Reset clears every fired event so the timeline can fire again. The
// orchestrator's restart path is expected to build a fresh Engine
// rather than call Reset, but Reset is offered for callers (tests,
// scripted replays) that hold onto one Engine across multiple runs.
func (e *Engine) Reset() {
	e.fired = nil
	e.firedSet = make(map[int]bool)
}

// FiredEvents returns every event that has fired so far, in fire order.
func (e *Engine) FiredEvents() []Event {
	out := make([]Event, len(e.fired))
	copy(out, e.fired)
	return out
}

// UpcomingEvents returns events not yet fired. When window is non-zero
// and at least one event has fired, the result is further restricted
// to events within window of the most recently fired event's offset.
func (e *Engine) UpcomingEvents(window time.Duration) []Event {
	var upcoming []Event
	for i, ev := range e.events {
		if !e.firedSet[i] {
			upcoming = append(upcoming, ev)
		}
	}
	if window > 0 && len(e.fired) > 0 {
		lastOffset := e.fired[len(e.fired)-1].TimeOffset
		filtered := upcoming[:0:0]
		for _, ev := range upcoming {
			if ev.TimeOffset <= lastOffset+window {
				filtered = append(filtered, ev)
			}
		}
		upcoming = filtered
	}
	return upcoming
}

// IsComplete reports whether every event in the timeline has fired.
func (e *Engine) IsComplete() bool {
	return len(e.firedSet) == len(e.events)
}

// TotalEvents returns the number of events in the timeline.
func (e *Engine) TotalEvents() int {
	return len(e.events)
}
