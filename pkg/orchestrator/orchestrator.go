// pkg/orchestrator/orchestrator.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package orchestrator implements the per-tick driver that queries
// every entity's movement strategy, applies sensor noise and terrain
// correction, writes the Entity Store, runs the domain post-processors,
// fires the event timeline, and fans the result out through a
// transport registry.
package orchestrator

import (
	"fmt"
	"hash/fnv"
	"time"

	"github.com/davidarule/edge-c2-sim/pkg/domain"
	"github.com/davidarule/edge-c2-sim/pkg/entity"
	"github.com/davidarule/edge-c2-sim/pkg/event"
	"github.com/davidarule/edge-c2-sim/pkg/log"
	"github.com/davidarule/edge-c2-sim/pkg/movement"
	"github.com/davidarule/edge-c2-sim/pkg/noise"
	"github.com/davidarule/edge-c2-sim/pkg/scenario"
	"github.com/davidarule/edge-c2-sim/pkg/simclock"
	"github.com/davidarule/edge-c2-sim/pkg/terrain"
	"github.com/davidarule/edge-c2-sim/pkg/util"
)

// Registry is the narrow push contract the orchestrator needs from a
// transport fan-out; pkg/transport's Registry satisfies it
// structurally, so this package never imports pkg/transport.
type Registry interface {
	PushEntityUpdate(e entity.Entity)
	PushBulkUpdate(entities []entity.Entity)
	PushEvent(ev event.Event)
}

// progressLogInterval matches spec.md §4.8 step 7 ("every 30th tick").
const progressLogInterval = 30

// minTicksBeforeCompletion guards against a scenario with zero events
// and no waypoints reporting complete on its very first tick.
const minTicksBeforeCompletion = 10

// Command is an admin-triggered mutation that must run inside the tick
// loop rather than concurrently with it (spec.md §5's "write-during-
// read... forbidden" rule for the movements map applies to any command
// that touches orchestrator state). Enqueue delivers one to the loop.
type Command func(*Orchestrator)

// Orchestrator is the C8 Tick Orchestrator. It owns the clock, the
// Entity Store, the shared movements map, and the current event
// engine, and drives one full tick per Tick() call.
type Orchestrator struct {
	loader       *scenario.Loader
	scenarioPath string
	initialStart time.Time

	clock     *simclock.Clock
	store     *entity.Store
	movements map[string]movement.Strategy
	engine    *event.Engine
	typeInfo  event.TypeInfo

	terrainV  *terrain.Validator
	noiseGens map[string]*noise.Generator

	maritime  *domain.MaritimeProcessor
	aviation  *domain.AviationProcessor
	ground    *domain.GroundProcessor
	personnel *domain.PersonnelProcessor

	aisEncoder    domain.AISEncoder
	adsbEncoder   domain.ADSBEncoder
	personnelSeed uint64

	registry Registry
	lg       *log.Logger

	commands chan Command
	tickRate float64

	tickCount int
}

// Options carries the pieces of an Orchestrator that have reasonable
// defaults (nil terrain validator ⇒ no terrain correction, nil
// encoders ⇒ domain post-processors still run but emit no AIS/ADS-B
// messages).
type Options struct {
	TerrainValidator *terrain.Validator
	AISEncoder       domain.AISEncoder
	ADSBEncoder      domain.ADSBEncoder
	TickRateHz       float64
}

// defaultTickRateHz matches spec.md §6's CLI default.
const defaultTickRateHz = 1.0

// New loads scenarioPath via loader and constructs a ready-to-run
// Orchestrator. The clock is constructed but not started; call
// Clock().Start() once the transports are connected.
func New(loader *scenario.Loader, scenarioPath string, typeInfo event.TypeInfo, registry Registry, opts Options, lg *log.Logger) (*Orchestrator, error) {
	st, err := loader.Load(scenarioPath, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("orchestrator: loading %q: %w", scenarioPath, err)
	}

	tickRate := opts.TickRateHz
	if tickRate <= 0 {
		tickRate = defaultTickRateHz
	}

	o := &Orchestrator{
		loader:        loader,
		scenarioPath:  scenarioPath,
		initialStart:  st.StartTime,
		clock:         simclock.New(st.StartTime, 1.0),
		store:         entity.NewStore(lg),
		movements:     st.Movements,
		typeInfo:      typeInfo,
		terrainV:      opts.TerrainValidator,
		noiseGens:     make(map[string]*noise.Generator),
		aisEncoder:    opts.AISEncoder,
		adsbEncoder:   opts.ADSBEncoder,
		personnelSeed: fnvSeed(st.Name),
		registry:      registry,
		lg:            lg,
		commands:      make(chan Command, 64),
		tickRate:      tickRate,
	}

	for _, e := range st.Entities {
		o.store.Upsert(e)
	}
	o.engine = event.New(st.Events, o.store, o.movements, st.StartTime, typeInfo, lg)
	o.rebuildProcessors()

	return o, nil
}

func (o *Orchestrator) rebuildProcessors() {
	o.maritime = domain.NewMaritimeProcessor(o.store, o.aisEncoder)
	o.aviation = domain.NewAviationProcessor(o.store, o.adsbEncoder)
	o.ground = domain.NewGroundProcessor(o.store)
	o.personnel = domain.NewPersonnelProcessor(o.store, o.personnelSeed)
}

func fnvSeed(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

// Clock exposes the orchestrator's clock for callers that start,
// pause, or change its speed (the CLI's --speed flag, an inbound
// set_speed/pause/resume command).
func (o *Orchestrator) Clock() *simclock.Clock { return o.clock }

// Store exposes the Entity Store for callers that need a direct
// snapshot (a REST adapter's GET /entities, the WebSocket adapter's
// on-connect snapshot).
func (o *Orchestrator) Store() *entity.Store { return o.store }

// Enqueue schedules cmd to run at the top of the next Tick call,
// rather than mutating orchestrator state from whatever goroutine
// received the admin command. If the queue is full the command is
// dropped and logged — a backpressure signal that commands are
// arriving faster than ticks can drain them.
func (o *Orchestrator) Enqueue(cmd Command) {
	select {
	case o.commands <- cmd:
	default:
		if o.lg != nil {
			o.lg.Warn("orchestrator command queue full, dropping command")
		}
	}
}

// Restart implements spec.md §4.8's restart sequence: pause and reset
// the clock, reload the scenario to rebuild the store and every
// movement strategy from scratch, rebuild the event engine with an
// empty fired-set, then resume. It is intended to be invoked only via
// Enqueue so it runs inside the tick loop, never concurrently with it.
func (o *Orchestrator) Restart() error {
	o.clock.Pause()
	o.clock.Reset()

	st, err := o.loader.Load(o.scenarioPath, o.initialStart)
	if err != nil {
		return fmt.Errorf("orchestrator: restart reload: %w", err)
	}

	o.store.Clear()
	for _, e := range st.Entities {
		o.store.Upsert(e)
	}

	for k := range o.movements {
		delete(o.movements, k)
	}
	for k, v := range st.Movements {
		o.movements[k] = v
	}

	o.engine = event.New(st.Events, o.store, o.movements, st.StartTime, o.typeInfo, o.lg)
	o.noiseGens = make(map[string]*noise.Generator)
	o.rebuildProcessors()
	o.tickCount = 0

	if resettable, ok := o.registry.(interface{ Reset() }); ok {
		resettable.Reset()
	}

	o.clock.Start()
	return nil
}

// Tick runs one full iteration of the loop body (spec.md §4.8 steps
// 2-8). It reports whether the scenario has reached its completion
// condition. Callers drive the inter-tick sleep (step 9) and the
// not-running check (step 1) themselves — see Run.
func (o *Orchestrator) Tick() (done bool) {
	o.drainCommands()

	if !o.clock.IsRunning() {
		return false
	}

	now := o.clock.SimTime()

	for _, id := range util.SortedMapKeys(o.movements) {
		o.tickEntity(id, o.movements[id], now)
	}

	o.maritime.Tick(now)
	o.aviation.Tick(now)
	o.ground.Tick(now)
	o.personnel.Tick(now)

	for _, fired := range o.engine.Tick(now) {
		o.registry.PushEvent(fired)
	}

	snapshot := o.store.All()
	o.registry.PushBulkUpdate(snapshot)

	o.tickCount++
	if o.tickCount%progressLogInterval == 0 && o.lg != nil {
		o.lg.Info("tick progress", "tick", o.tickCount, "sim_time", now, "entities", len(snapshot))
	}

	return o.isComplete(now)
}

func (o *Orchestrator) drainCommands() {
	for {
		select {
		case cmd := <-o.commands:
			cmd(o)
		default:
			return
		}
	}
}

func (o *Orchestrator) tickEntity(id string, strat movement.Strategy, now time.Time) {
	ent, ok := o.store.Get(id)
	if !ok {
		return
	}

	raw := strat.State(now)
	noisy := o.noiseGenFor(id, ent.Domain).Apply(raw)

	if requiresTerrainCheck(ent.Domain) && !skipTerrainCheck(ent) && o.terrainV != nil {
		if !o.terrainV.Validate(noisy.Lat, noisy.Lon, string(ent.Domain)) {
			if lat, lon, ok := o.terrainV.NearestValid(noisy.Lat, noisy.Lon, string(ent.Domain), 0); ok {
				noisy.Lat, noisy.Lon = lat, lon
			} else if o.lg != nil {
				o.lg.Warn("no valid terrain found near entity", "entity_id", id, "lat", noisy.Lat, "lon", noisy.Lon)
			}
		}
	}

	heading, speed, course := noisy.HeadingDeg, noisy.SpeedKnots, noisy.CourseDeg
	ent.UpdatePosition(noisy.Lat, noisy.Lon, noisy.AltM, &heading, &speed, &course)
	ent.MergeMetadataOverrides(noisy.MetadataOverrides)
	o.store.Upsert(ent)
}

func (o *Orchestrator) noiseGenFor(id string, d entity.Domain) *noise.Generator {
	if g, ok := o.noiseGens[id]; ok {
		return g
	}
	g := noise.New(noise.ParamsForDomain(string(d)), fnvSeed(id))
	o.noiseGens[id] = g
	return g
}

func requiresTerrainCheck(d entity.Domain) bool {
	switch d {
	case entity.Maritime, entity.GroundVehicle, entity.Personnel:
		return true
	default:
		return false
	}
}

func skipTerrainCheck(e entity.Entity) bool {
	if e.Metadata == nil {
		return false
	}
	skip, _ := e.Metadata["skip_terrain_check"].(bool)
	return skip
}

// isComplete implements spec.md §4.8 step 8: the event timeline has
// exhausted every event, at least minTicksBeforeCompletion ticks have
// run, and every Waypoint strategy (the only strategy kind with a
// natural endpoint — Patrol and Orbit are endless by design, and
// Intercept's completion is about convergence, not trip completion)
// has reached its last leg.
func (o *Orchestrator) isComplete(now time.Time) bool {
	if !o.engine.IsComplete() || o.tickCount <= minTicksBeforeCompletion {
		return false
	}
	for _, strat := range o.movements {
		if ws, ok := strat.(*movement.WaypointStrategy); ok {
			if !ws.IsComplete(now) {
				return false
			}
		}
	}
	return true
}

// Run drives the tick loop until either the scenario completes or done
// is closed, sleeping 100ms between checks while the clock is
// paused and 1/tickRate between ticks while running (spec.md §4.8
// steps 1 and 9). It returns normally on completion or cancellation;
// the caller is responsible for telling every transport to disconnect.
func (o *Orchestrator) Run(done <-chan struct{}) {
	pausedSleep := 100 * time.Millisecond
	tickSleep := time.Duration(float64(time.Second) / o.tickRate)

	for {
		select {
		case <-done:
			return
		default:
		}

		wasRunning := o.clock.IsRunning()
		if o.Tick() {
			if o.lg != nil {
				o.lg.Info("scenario complete", "ticks", o.tickCount)
			}
			return
		}

		if wasRunning {
			time.Sleep(tickSleep)
		} else {
			time.Sleep(pausedSleep)
		}
	}
}
