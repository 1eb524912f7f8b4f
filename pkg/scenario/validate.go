// pkg/scenario/validate.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package scenario

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/davidarule/edge-c2-sim/pkg/util"
)

// Validate parses a scenario file and checks it for structural errors
// without building entities or movement strategies: missing required
// fields, duplicate entity ids, unknown entity types, out-of-range
// waypoint coordinates, unresolved patrol areas/routes, and
// out-of-chronological-order or dangling-reference events. Every error
// found is accumulated — a scenario with five bad waypoints reports all
// five, not just the first.
func (l *Loader) Validate(path string) *util.ErrorLogger {
	var errs util.ErrorLogger

	raw, err := os.ReadFile(path)
	if err != nil {
		errs.ErrorString("reading %q: %v", path, err)
		return &errs
	}
	var root yamlRoot
	if err := yaml.Unmarshal(raw, &root); err != nil {
		errs.ErrorString("YAML syntax error: %v", err)
		return &errs
	}
	sc := root.Scenario

	errs.Push(path)
	defer errs.Pop()

	if sc.Name == "" {
		errs.ErrorString("missing required field: name")
	}
	if sc.DurationMinutes == 0 {
		errs.ErrorString("missing required field: duration_minutes")
	}
	if sc.Center.Lat == 0 && sc.Center.Lon == 0 {
		errs.ErrorString("missing required field: center")
	}

	entityIDs := make(map[string]bool)
	for _, se := range sc.ScenarioEntities {
		if se.ID == "" {
			errs.ErrorString("scenario entity missing 'id'")
			continue
		}
		if entityIDs[se.ID] {
			errs.ErrorString("duplicate entity ID: %s", se.ID)
		}
		entityIDs[se.ID] = true

		if se.Type != "" {
			if _, ok := lookup(se.Type); !ok {
				errs.ErrorString("unknown entity type %q for %s", se.Type, se.ID)
			}
		}
		for j, wp := range se.Waypoints {
			if wp.Lat < -90 || wp.Lat > 90 {
				errs.ErrorString("entity %s waypoint %d: lat %v out of range", se.ID, j, wp.Lat)
			}
			if wp.Lon < -180 || wp.Lon > 180 {
				errs.ErrorString("entity %s waypoint %d: lon %v out of range", se.ID, j, wp.Lon)
			}
		}
		if se.PatrolArea != "" {
			if _, ok := l.geodata.Zones[se.PatrolArea]; !ok {
				errs.ErrorString("entity %s: area %q not found", se.ID, se.PatrolArea)
			}
		}
	}

	for _, bg := range sc.BackgroundEntities {
		if bg.Type != "" {
			if _, ok := lookup(bg.Type); !ok {
				errs.ErrorString("unknown background entity type: %s", bg.Type)
			}
		}
		if bg.Area != "" {
			if _, ok := l.geodata.Zones[bg.Area]; !ok {
				errs.ErrorString("background area %q not found", bg.Area)
			}
		}
		if bg.Route != "" {
			if _, ok := l.geodata.Routes[bg.Route]; !ok {
				errs.ErrorString("background route %q not found", bg.Route)
			}
		}
	}

	var prevOffset int64
	for i, ev := range sc.Events {
		if ev.Time == "" {
			errs.ErrorString("event %d missing 'time'", i)
			continue
		}
		off, err := parseTimeOffset(ev.Time)
		if err != nil {
			errs.ErrorString("event %d: %v", i, err)
			continue
		}
		if int64(off) < prevOffset {
			errs.ErrorString("event at %s is out of chronological order", ev.Time)
		}
		prevOffset = int64(off)

		if ev.Target != "" && !entityIDs[ev.Target] {
			errs.ErrorString("event at %s references entity %q which is not in scenario_entities", ev.Time, ev.Target)
		}
		for _, t := range ev.Targets {
			if !entityIDs[t] {
				errs.ErrorString("event at %s references entity %q which is not in scenario_entities", ev.Time, t)
			}
		}
	}

	return &errs
}
