// pkg/scenario/loader.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package scenario parses scenario YAML files into a live set of
// entities, their initial movement strategies, and a timed event
// timeline, against the closed ENTITY_TYPES table and an optional
// geodata index of patrol areas and traffic routes.
package scenario

import (
	"fmt"
	"hash/fnv"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/davidarule/edge-c2-sim/pkg/entity"
	"github.com/davidarule/edge-c2-sim/pkg/event"
	"github.com/davidarule/edge-c2-sim/pkg/geo"
	"github.com/davidarule/edge-c2-sim/pkg/log"
	"github.com/davidarule/edge-c2-sim/pkg/movement"
	"github.com/davidarule/edge-c2-sim/pkg/rand"
	"github.com/davidarule/edge-c2-sim/pkg/util"
)

// DefaultStart is the scenario start time used when a caller doesn't
// supply one.
var DefaultStart = time.Date(2026, 4, 15, 8, 0, 0, 0, time.UTC)

const (
	defaultPatrolDwellMin = 30 * time.Second
	defaultPatrolDwellMax = 120 * time.Second
	defaultSpeedVariation = 0.1
)

// State is a fully parsed scenario: every entity the scenario defines,
// each entity's initial movement binding (absent for standby/hold
// entities), the event timeline, and the scenario's own metadata.
type State struct {
	Name        string
	Description string
	Duration    time.Duration
	CenterLat   float64
	CenterLon   float64
	Zoom        int
	Entities    map[string]entity.Entity
	Movements   map[string]movement.Strategy
	Events      []event.Event
	StartTime   time.Time
}

// Loader parses scenario YAML files against an optional geodata index.
// It also accumulates non-fatal warnings (geodata parse failures,
// unresolved patrol areas/routes) via pkg/util.ErrorLogger so a caller
// can decide whether to surface them.
type Loader struct {
	geodata Geodata
	lg      *log.Logger
	warn    util.ErrorLogger
}

// New constructs a Loader, indexing every *.geojson file under
// geodataDir (if non-empty). Geodata load failures are recorded as
// warnings, not returned as an error — a scenario with no patrol areas
// at all is still loadable, just unable to resolve "patrol_area"/"area"
// references.
func New(geodataDir string, lg *log.Logger) *Loader {
	l := &Loader{lg: lg}
	if geodataDir == "" {
		l.geodata = Geodata{Zones: map[string][]geo.Point{}, Routes: map[string][]geo.Point{}, Bases: map[string]geo.Point{}}
		return l
	}
	gd, err := LoadGeodata(".", os.DirFS(geodataDir), l)
	if err != nil {
		l.warnf("geodata: %v", err)
		gd = Geodata{Zones: map[string][]geo.Point{}, Routes: map[string][]geo.Point{}, Bases: map[string]geo.Point{}}
	}
	l.geodata = gd
	return l
}

func (l *Loader) warnf(format string, args ...any) {
	l.warn.Push("geodata")
	l.warn.ErrorString(format, args...)
	l.warn.Pop()
	if l.lg != nil {
		l.lg.Warn(fmt.Sprintf(format, args...))
	}
}

// Warnings returns every non-fatal warning accumulated since the Loader
// was built: the geodata load and every Load call so far. It is never
// cleared.
func (l *Loader) Warnings() *util.ErrorLogger { return &l.warn }

type yamlRoot struct {
	Scenario yamlScenario `yaml:"scenario"`
}

type yamlScenario struct {
	Name               string                `yaml:"name"`
	Description        string                `yaml:"description"`
	DurationMinutes    float64               `yaml:"duration_minutes"`
	Center             yamlLatLon            `yaml:"center"`
	Zoom               int                   `yaml:"zoom"`
	ScenarioEntities   []yamlScenarioEntity  `yaml:"scenario_entities"`
	BackgroundEntities []yamlBackgroundGroup `yaml:"background_entities"`
	Events             []yamlEvent           `yaml:"events"`
}


type yamlLatLon struct {
	Lat float64 `yaml:"lat"`
	Lon float64 `yaml:"lon"`
}

type yamlPosition struct {
	Lat  float64 `yaml:"lat"`
	Lon  float64 `yaml:"lon"`
	AltM float64 `yaml:"alt_m"`
}

type yamlWaypoint struct {
	Lat      float64        `yaml:"lat"`
	Lon      float64        `yaml:"lon"`
	AltM     float64        `yaml:"alt_m"`
	Speed    float64        `yaml:"speed"`
	Time     string         `yaml:"time"`
	Metadata map[string]any `yaml:"metadata"`
}

type yamlScenarioEntity struct {
	ID              string         `yaml:"id"`
	Type            string         `yaml:"type"`
	Agency          string         `yaml:"agency"`
	Callsign        string         `yaml:"callsign"`
	Behavior        string         `yaml:"behavior"`
	InitialPosition yamlPosition   `yaml:"initial_position"`
	Metadata        map[string]any `yaml:"metadata"`
	Waypoints       []yamlWaypoint `yaml:"waypoints"`
	PatrolArea      string         `yaml:"patrol_area"`
}

type yamlBackgroundGroup struct {
	Type           string         `yaml:"type"`
	Count          int            `yaml:"count"`
	Area           string         `yaml:"area"`
	Route          string         `yaml:"route"`
	SpeedVariation float64        `yaml:"speed_variation"`
	Metadata       map[string]any `yaml:"metadata"`
}

type yamlEvent struct {
	Time            string          `yaml:"time"`
	Type            string          `yaml:"type"`
	Description     string          `yaml:"description"`
	Severity        string          `yaml:"severity"`
	Target          string          `yaml:"target"`
	Targets         []string        `yaml:"targets"`
	Action          string          `yaml:"action"`
	InterceptTarget string          `yaml:"intercept_target"`
	Destination     *yamlLatLon     `yaml:"destination"`
	Area            string          `yaml:"area"`
	Position        *yamlLatLon     `yaml:"position"`
	AlertAgencies   []string        `yaml:"alert_agencies"`
	Source          string          `yaml:"source"`
	Reclassify      *yamlReclassify `yaml:"reclassify"`
}

type yamlReclassify struct {
	Targets []string `yaml:"targets"`
	NewType string   `yaml:"new_type"`
}

// Load reads and parses a scenario YAML file into a complete State. If
// startTime is zero, DefaultStart is used.
func (l *Loader) Load(path string, startTime time.Time) (*State, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scenario: reading %q: %w", path, err)
	}

	var root yamlRoot
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("scenario: parsing %q: %w", path, err)
	}
	sc := root.Scenario

	start := startTime
	if start.IsZero() {
		start = DefaultStart
	}

	entities := make(map[string]entity.Entity)
	movements := make(map[string]movement.Strategy)

	for _, se := range sc.ScenarioEntities {
		ent, mv, err := l.parseScenarioEntity(se, start)
		if err != nil {
			l.warnf("entity %q: %v", se.ID, err)
			continue
		}
		entities[ent.ID] = ent
		if mv != nil {
			movements[ent.ID] = mv
		}
	}

	for _, bg := range sc.BackgroundEntities {
		for _, pair := range l.createBackgroundEntities(bg, start) {
			entities[pair.ent.ID] = pair.ent
			if pair.mv != nil {
				movements[pair.ent.ID] = pair.mv
			}
		}
	}

	events, err := l.parseEvents(sc.Events)
	if err != nil {
		return nil, fmt.Errorf("scenario: parsing events in %q: %w", path, err)
	}

	if l.lg != nil {
		l.lg.Info("loaded scenario", "name", sc.Name, "entities", len(entities), "events", len(events))
	}

	return &State{
		Name:        sc.Name,
		Description: sc.Description,
		Duration:    time.Duration(sc.DurationMinutes * float64(time.Minute)),
		CenterLat:   sc.Center.Lat,
		CenterLon:   sc.Center.Lon,
		Zoom:        zoomOrDefault(sc.Zoom),
		Entities:    entities,
		Movements:   movements,
		Events:      events,
		StartTime:   start,
	}, nil
}

func zoomOrDefault(z int) int {
	if z == 0 {
		return 9
	}
	return z
}

// parseTimeOffset parses "HH:MM" or "HH:MM:SS" into a duration relative
// to scenario start.
func parseTimeOffset(s string) (time.Duration, error) {
	var h, m, sec int
	switch n, err := fmt.Sscanf(s, "%d:%d:%d", &h, &m, &sec); {
	case err == nil && n == 3:
	default:
		sec = 0
		if n2, err2 := fmt.Sscanf(s, "%d:%d", &h, &m); err2 != nil || n2 != 2 {
			return 0, fmt.Errorf("invalid time format: %q", s)
		}
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec)*time.Second, nil
}

func (l *Loader) parseScenarioEntity(se yamlScenarioEntity, start time.Time) (entity.Entity, movement.Strategy, error) {
	td, known := lookup(se.Type)
	domain := entity.Maritime
	agency := entity.CIVILIAN
	sidc := ""
	if known {
		domain, agency, sidc = td.Domain, td.Agency, td.SIDC
	}
	if se.Agency != "" {
		agency = entity.Agency(se.Agency)
	}

	status := entity.StatusActive
	if se.Behavior == "standby" {
		status = entity.StatusIdle
	}

	metadata := map[string]any{}
	for k, v := range se.Metadata {
		metadata[k] = v
	}
	metadata["entity_type_name"] = se.Type

	callsign := se.Callsign
	if callsign == "" {
		callsign = se.ID
	}

	ent := entity.Entity{
		ID:         se.ID,
		EntityType: se.Type,
		Domain:     domain,
		Agency:     agency,
		Callsign:   callsign,
		Position:   entity.Position{Latitude: se.InitialPosition.Lat, Longitude: se.InitialPosition.Lon, AltitudeM: se.InitialPosition.AltM},
		Status:     status,
		SIDC:       sidc,
		Metadata:   metadata,
	}

	var strat movement.Strategy
	switch {
	case len(se.Waypoints) > 0:
		wps := make([]movement.Waypoint, len(se.Waypoints))
		for i, wp := range se.Waypoints {
			off, err := parseTimeOffset(wp.Time)
			if err != nil {
				return ent, nil, fmt.Errorf("waypoint %d: %w", i, err)
			}
			wps[i] = movement.Waypoint{
				Lat: wp.Lat, Lon: wp.Lon, AltM: wp.AltM, SpeedKnots: wp.Speed,
				TimeOffset: off, MetadataOverrides: wp.Metadata,
			}
		}
		ws, err := movement.NewWaypointStrategy(wps, start)
		if err != nil {
			return ent, nil, err
		}
		strat = ws
		ent.SpeedKnots = wps[0].SpeedKnots

	case se.Behavior == "patrol":
		area, ok := l.geodata.Zones[se.PatrolArea]
		if !ok {
			if se.PatrolArea != "" {
				l.warnf("patrol area %q not found for %s", se.PatrolArea, se.ID)
			}
			break
		}
		minSpeed, maxSpeed := defaultMinSpeedKnots, defaultMaxSpeedKnots
		if known {
			minSpeed, maxSpeed = td.MinSpeed, td.MaxSpeed
		}
		seed := fnvSeed(se.ID)
		strat = movement.NewPatrolStrategy(area, se.InitialPosition.AltM, minSpeed, maxSpeed,
			defaultPatrolDwellMin, defaultPatrolDwellMax, seed, nil, start)
		ent.SpeedKnots = (minSpeed + maxSpeed) / 2
	}

	return ent, strat, nil
}

type entMovePair struct {
	ent entity.Entity
	mv  movement.Strategy
}

var cargoNames = []string{"Bintang Laut", "Seri Sabah", "Kota Makmur", "Lautan Mas", "Samudera Jaya", "Pelita Nusantara", "Borneo Star", "Mutiara Timur"}
var tankerNames = []string{"Miri Crude", "Kerteh", "Labuan Palm", "Bintulu Gas"}

func (l *Loader) createBackgroundEntities(bg yamlBackgroundGroup, start time.Time) []entMovePair {
	td, known := lookup(bg.Type)
	minSpeed, maxSpeed := defaultMinSpeedKnots, defaultMaxSpeedKnots
	domain, agency, sidc := entity.Maritime, entity.CIVILIAN, ""
	if known {
		minSpeed, maxSpeed = td.MinSpeed, td.MaxSpeed
		domain, agency, sidc = td.Domain, td.Agency, td.SIDC
	}
	speedVar := bg.SpeedVariation
	if speedVar == 0 {
		speedVar = defaultSpeedVariation
	}
	count := bg.Count
	if count <= 0 {
		count = 1
	}

	metadata := map[string]any{}
	for k, v := range bg.Metadata {
		metadata[k] = v
	}
	metadata["background"] = true
	metadata["entity_type_name"] = bg.Type

	rnd := rand.New()
	rnd.Seed(fnvSeed(bg.Type))

	var out []entMovePair

	switch {
	case bg.Area != "":
		area, ok := l.geodata.Zones[bg.Area]
		if !ok {
			l.warnf("background area %q not found for %s", bg.Area, bg.Type)
			return nil
		}
		for i := 0; i < count; i++ {
			eid := fmt.Sprintf("BG-%s-%03d", bg.Type, i+1)
			callsign := generateCallsign(bg.Type, i, &rnd)
			speed := uniform(&rnd, minSpeed, maxSpeed)
			speed *= 1 + uniform(&rnd, -speedVar, speedVar)

			seed := fnvSeed(eid)
			strat := movement.NewPatrolStrategy(area, 0, minSpeed, maxSpeed,
				defaultPatrolDwellMin, defaultPatrolDwellMax, seed, nil, start)
			st := strat.State(start)

			ent := entity.Entity{
				ID: eid, EntityType: bg.Type, Domain: domain, Agency: agency,
				Callsign: callsign, Position: entity.Position{Latitude: st.Lat, Longitude: st.Lon},
				SpeedKnots: speed, SIDC: sidc, Metadata: copyMeta(metadata),
			}
			out = append(out, entMovePair{ent, strat})
		}

	case bg.Route != "":
		route, ok := l.geodata.Routes[bg.Route]
		if !ok || len(route) < 2 {
			l.warnf("background route %q not found for %s", bg.Route, bg.Type)
			return nil
		}
		for i := 0; i < count; i++ {
			eid := fmt.Sprintf("BG-%s-%03d", bg.Type, i+1)
			callsign := generateCallsign(bg.Type, i, &rnd)
			frac := 0.0
			if count > 1 {
				frac = float64(i) / float64(count-1)
			}
			startIdx := int(frac * float64(len(route)-1))
			remaining := route[startIdx:]

			speed := uniform(&rnd, minSpeed, maxSpeed)
			speed *= 1 + uniform(&rnd, -speedVar, speedVar)

			var wps []movement.Waypoint
			cumulative := time.Duration(0)
			for j, pt := range remaining {
				if j > 0 {
					distNM := geo.DistanceM(remaining[j-1], pt) / metersPerNauticalMile
					if speed > 0 {
						cumulative += time.Duration(distNM / speed * float64(time.Hour))
					}
				}
				wps = append(wps, movement.Waypoint{Lat: pt.Lat, Lon: pt.Lon, SpeedKnots: speed, TimeOffset: cumulative})
			}
			if len(wps) < 1 {
				continue
			}
			ws, err := movement.NewWaypointStrategy(wps, start)
			if err != nil {
				continue
			}
			ent := entity.Entity{
				ID: eid, EntityType: bg.Type, Domain: domain, Agency: agency,
				Callsign: callsign, Position: entity.Position{Latitude: remaining[0].Lat, Longitude: remaining[0].Lon},
				SpeedKnots: speed, SIDC: sidc, Metadata: copyMeta(metadata),
			}
			out = append(out, entMovePair{ent, ws})
		}

	default:
		l.warnf("background group %q has neither area nor route", bg.Type)
	}

	return out
}

func copyMeta(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func uniform(r *rand.Rand, lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}

func generateCallsign(entityType string, index int, r *rand.Rand) string {
	switch {
	case strings.Contains(entityType, "CARGO"):
		return "MV " + cargoNames[r.Intn(len(cargoNames))]
	case strings.Contains(entityType, "FISHING"):
		return fmt.Sprintf("Nelayan %d", 100+r.Intn(900))
	case strings.Contains(entityType, "TANKER"):
		return "MT " + tankerNames[r.Intn(len(tankerNames))]
	case strings.Contains(entityType, "LIGHT"):
		letters := "ABCDEFG"
		return fmt.Sprintf("9M-%c%c%c", letters[r.Intn(len(letters))], letters[r.Intn(len(letters))], letters[r.Intn(len(letters))])
	default:
		return fmt.Sprintf("BG-%03d", index+1)
	}
}

const metersPerNauticalMile = 1852.0

func fnvSeed(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

func (l *Loader) parseEvents(raw []yamlEvent) ([]event.Event, error) {
	out := make([]event.Event, 0, len(raw))
	for i, ev := range raw {
		off, err := parseTimeOffset(ev.Time)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		e := event.Event{
			TimeOffset: off, EventType: orDefault(ev.Type, "INFO"),
			Description: ev.Description, Severity: orDefault(ev.Severity, "INFO"),
			Target: ev.Target, Targets: ev.Targets, Action: ev.Action,
			InterceptTarget: ev.InterceptTarget, Area: ev.Area,
			AlertAgencies: ev.AlertAgencies, Source: ev.Source,
		}
		if ev.Destination != nil {
			e.Destination = &event.LatLon{Lat: ev.Destination.Lat, Lon: ev.Destination.Lon}
		}
		if ev.Position != nil {
			e.Position = &event.LatLon{Lat: ev.Position.Lat, Lon: ev.Position.Lon}
		}
		if ev.Reclassify != nil {
			e.Reclassify = &event.Reclassify{Targets: ev.Reclassify.Targets, NewType: ev.Reclassify.NewType}
		}
		out = append(out, e)
	}
	return out, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
