package scenario

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFixture(t *testing.T, yaml string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestValidateAcceptsWellFormedScenario(t *testing.T) {
	// The fixture's patrol and background areas resolve against the
	// geodata written alongside it.
	path, geodataDir := writeScenarioFixture(t)
	l := New(geodataDir, nil)
	errs := l.Validate(path)
	if errs.HaveErrors() {
		t.Errorf("unexpected validation errors: %s", errs.String())
	}
}

func TestValidateReportsMissingRequiredFields(t *testing.T) {
	path := writeFixture(t, `
scenario:
  scenario_entities: []
`)
	l := New("", nil)
	errs := l.Validate(path)
	if !errs.HaveErrors() {
		t.Fatal("expected errors for missing name/duration/center")
	}
	s := errs.String()
	for _, want := range []string{"name", "duration_minutes", "center"} {
		if !strings.Contains(s, want) {
			t.Errorf("expected error mentioning %q, got: %s", want, s)
		}
	}
}

func TestValidateReportsDuplicateEntityIDs(t *testing.T) {
	path := writeFixture(t, `
scenario:
  name: Dup Test
  duration_minutes: 10
  center:
    lat: 1.0
    lon: 103.0
  scenario_entities:
    - id: A1
      type: MMEA_PATROL
    - id: A1
      type: MMEA_PATROL
`)
	l := New("", nil)
	errs := l.Validate(path)
	if !strings.Contains(errs.String(), "duplicate entity ID") {
		t.Errorf("expected a duplicate entity ID error, got: %s", errs.String())
	}
}

func TestValidateReportsUnknownEntityType(t *testing.T) {
	path := writeFixture(t, `
scenario:
  name: Unknown Type Test
  duration_minutes: 10
  center:
    lat: 1.0
    lon: 103.0
  scenario_entities:
    - id: A1
      type: NOT_A_REAL_TYPE
`)
	l := New("", nil)
	errs := l.Validate(path)
	if !strings.Contains(errs.String(), "unknown entity type") {
		t.Errorf("expected an unknown entity type error, got: %s", errs.String())
	}
}

func TestValidateReportsOutOfRangeWaypoint(t *testing.T) {
	path := writeFixture(t, `
scenario:
  name: Bad Waypoint Test
  duration_minutes: 10
  center:
    lat: 1.0
    lon: 103.0
  scenario_entities:
    - id: A1
      type: MMEA_PATROL
      waypoints:
        - lat: 200
          lon: 103.0
          time: "00:00"
`)
	l := New("", nil)
	errs := l.Validate(path)
	if !strings.Contains(errs.String(), "out of range") {
		t.Errorf("expected an out-of-range waypoint error, got: %s", errs.String())
	}
}

func TestValidateReportsUnresolvedPatrolArea(t *testing.T) {
	path := writeFixture(t, `
scenario:
  name: Missing Area Test
  duration_minutes: 10
  center:
    lat: 1.0
    lon: 103.0
  scenario_entities:
    - id: A1
      type: MMEA_PATROL
      behavior: patrol
      patrol_area: GHOST_ZONE
`)
	l := New("", nil)
	errs := l.Validate(path)
	if !strings.Contains(errs.String(), `area "GHOST_ZONE" not found`) {
		t.Errorf("expected an unresolved area error, got: %s", errs.String())
	}
}

func TestValidateReportsEventTargetingUnknownEntity(t *testing.T) {
	path := writeFixture(t, `
scenario:
  name: Bad Event Target Test
  duration_minutes: 10
  center:
    lat: 1.0
    lon: 103.0
  scenario_entities:
    - id: A1
      type: MMEA_PATROL
  events:
    - time: "00:05"
      type: ALERT
      target: GHOST-ENTITY
`)
	l := New("", nil)
	errs := l.Validate(path)
	if !strings.Contains(errs.String(), `"GHOST-ENTITY"`) {
		t.Errorf("expected an unknown event target error, got: %s", errs.String())
	}
}

func TestValidateReportsOutOfOrderEvents(t *testing.T) {
	path := writeFixture(t, `
scenario:
  name: Out Of Order Events Test
  duration_minutes: 30
  center:
    lat: 1.0
    lon: 103.0
  scenario_entities:
    - id: A1
      type: MMEA_PATROL
  events:
    - time: "00:20"
      type: INFO
    - time: "00:05"
      type: INFO
`)
	l := New("", nil)
	errs := l.Validate(path)
	if !strings.Contains(errs.String(), "chronological order") {
		t.Errorf("expected a chronological order error, got: %s", errs.String())
	}
}

func TestValidateReportsYAMLSyntaxError(t *testing.T) {
	path := writeFixture(t, "scenario:\n  name: [unterminated\n")
	l := New("", nil)
	errs := l.Validate(path)
	if !errs.HaveErrors() {
		t.Fatal("expected a syntax error to be reported")
	}
}
