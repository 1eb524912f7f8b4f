// pkg/scenario/entitytypes.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package scenario

import "github.com/davidarule/edge-c2-sim/pkg/entity"

// TypeDef is the fixed per-type definition every scenario entity type
// resolves to: its domain, default owning agency, achievable speed
// range in knots, default SIDC prefix, and whether it is a fixed-wing
// aircraft (the only types that orbit rather than stop on intercept).
type TypeDef struct {
	Domain    entity.Domain
	Agency    entity.Agency
	MinSpeed  float64
	MaxSpeed  float64
	SIDC      string
	FixedWing bool
}

// EntityTypes is the closed set of entity types a scenario file may
// reference, reproduced verbatim from the reference loader's
// ENTITY_TYPES table. Only RMAF_TRANSPORT, RMAF_MPA, RMAF_FIGHTER, and
// CIVILIAN_LIGHT are fixed-wing; RMAF_HELICOPTER is rotary-wing and
// every maritime/ground/personnel type lands or stops dead, regardless
// of how high its MinSpeed happens to be (MMEA_FAST_INTERCEPT and the
// other maritime interceptors have a non-zero MinSpeed — a cruising
// speed floor, not a stall-speed floor — so MinSpeed must never be
// used to infer FixedWing).
var EntityTypes = map[string]TypeDef{
	"SUSPECT_VESSEL":      {entity.Maritime, entity.CIVILIAN, 0, 35, "SHSP------", false},
	"CIVILIAN_FISHING":    {entity.Maritime, entity.CIVILIAN, 2, 8, "SNSP------", false},
	"CIVILIAN_CARGO":      {entity.Maritime, entity.CIVILIAN, 8, 16, "SNSP------", false},
	"CIVILIAN_TANKER":     {entity.Maritime, entity.CIVILIAN, 8, 14, "SNSP------", false},
	"CIVILIAN_LIGHT":      {entity.Air, entity.CIVILIAN, 80, 140, "SNAP------", true},
	"MMEA_PATROL":         {entity.Maritime, entity.MMEA, 8, 22, "SFSP------", false},
	"MMEA_FAST_INTERCEPT": {entity.Maritime, entity.MMEA, 15, 35, "SFSP------", false},
	"MIL_NAVAL":           {entity.Maritime, entity.MIL, 10, 35, "SFSP------", false},
	"MIL_NAVAL_FIC":       {entity.Maritime, entity.MIL, 15, 35, "SFSP------", false},
	"RMAF_TRANSPORT":      {entity.Air, entity.RMAF, 120, 280, "SFAP------", true},
	"RMAF_MPA":            {entity.Air, entity.RMAF, 120, 280, "SFAP------", true},
	"RMAF_HELICOPTER":     {entity.Air, entity.RMAF, 0, 140, "SFAP------", false},
	"RMAF_FIGHTER":        {entity.Air, entity.RMAF, 200, 550, "SFAP------", true},
	"RMP_PATROL_CAR":      {entity.Maritime, entity.RMP, 10, 30, "SFSP------", false},
	"RMP_OFFICER":         {entity.Personnel, entity.RMP, 0, 4, "SFGP------", false},
	"CI_OFFICER":          {entity.Personnel, entity.CI, 0, 4, "SFGP------", false},
	"CI_IMMIGRATION_TEAM": {entity.Personnel, entity.CI, 0, 4, "SFGP------", false},
	"MIL_VEHICLE":         {entity.GroundVehicle, entity.MIL, 0, 50, "SFGP------", false},
	"MIL_APC":             {entity.GroundVehicle, entity.MIL, 0, 40, "SFGP------", false},
	"MIL_INFANTRY":        {entity.Personnel, entity.MIL, 0, 4, "SFGP------", false},
	"HOSTILE_VESSEL":      {entity.Maritime, entity.CIVILIAN, 0, 35, "SHSP------", false},
	"HOSTILE_PERSONNEL":   {entity.Personnel, entity.CIVILIAN, 0, 6, "SHGP------", false},
	"CIVILIAN_TOURIST":    {entity.Personnel, entity.CIVILIAN, 0, 3, "SNGP------", false},
	"CIVILIAN_BOAT":       {entity.Maritime, entity.CIVILIAN, 3, 15, "SNSP------", false},
	"CIVILIAN_PASSENGER":  {entity.Maritime, entity.CIVILIAN, 5, 20, "SNSP------", false},
	"RMP_TACTICAL_TEAM":   {entity.Personnel, entity.RMP, 0, 6, "SFGP------", false},
	"MIL_INFANTRY_SQUAD":  {entity.Personnel, entity.MIL, 0, 6, "SFGP------", false},
}

const (
	defaultMinSpeedKnots = 5.0
	defaultMaxSpeedKnots = 10.0
)

// lookup returns the type's definition and true, or a zero TypeDef and
// false for an unknown type. Callers apply the conservative default
// (domain MARITIME, agency CIVILIAN, 5-10kt) themselves, so an
// unrecognized type degrades gracefully instead of failing mid-load.
func lookup(entityType string) (TypeDef, bool) {
	td, ok := EntityTypes[entityType]
	return td, ok
}

// MaxSpeedKnots satisfies pkg/event.TypeInfo.
func (TypeTable) MaxSpeedKnots(entityType string) float64 {
	if td, ok := lookup(entityType); ok {
		return td.MaxSpeed
	}
	return defaultMaxSpeedKnots
}

// IsFixedWing satisfies pkg/event.TypeInfo. pkg/movement's Intercept
// strategy uses it to decide whether a pursuer orbits its target on
// arrival (fixed-wing aircraft can't hover) or stops dead (everything
// else, including rotary-wing aircraft). Unknown types default to
// false.
func (TypeTable) IsFixedWing(entityType string) bool {
	td, _ := lookup(entityType)
	return td.FixedWing
}

// SIDC satisfies pkg/event.TypeInfo.
func (TypeTable) SIDC(entityType string) string {
	if td, ok := lookup(entityType); ok {
		return td.SIDC
	}
	return ""
}

// TypeTable is the zero-size receiver that adapts the package-level
// EntityTypes table to pkg/event.TypeInfo.
type TypeTable struct{}
