package orchestrator

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/davidarule/edge-c2-sim/pkg/entity"
	"github.com/davidarule/edge-c2-sim/pkg/event"
	"github.com/davidarule/edge-c2-sim/pkg/scenario"
)

type fakeRegistry struct {
	entityUpdates []entity.Entity
	bulkUpdates   [][]entity.Entity
	events        []event.Event
	resets        int
}

func (f *fakeRegistry) PushEntityUpdate(e entity.Entity) {
	f.entityUpdates = append(f.entityUpdates, e)
}
func (f *fakeRegistry) PushBulkUpdate(es []entity.Entity) { f.bulkUpdates = append(f.bulkUpdates, es) }
func (f *fakeRegistry) PushEvent(ev event.Event)          { f.events = append(f.events, ev) }
func (f *fakeRegistry) Reset()                            { f.resets++ }

const testScenarioYAML = `
scenario:
  name: Orchestrator Smoke Test
  duration_minutes: 30
  center:
    lat: 1.45
    lon: 103.75
  scenario_entities:
    - id: MMEA-01
      type: MMEA_PATROL
      callsign: Bintang 1
      waypoints:
        - lat: 1.40
          lon: 103.70
          speed: 12
          time: "00:00"
        - lat: 1.50
          lon: 103.80
          speed: 14
          time: "00:30"
  events:
    - time: "00:05"
      type: ALERT
      description: test alert
      target: MMEA-01
      action: activate
`

func newTestOrchestrator(t *testing.T) (*Orchestrator, *fakeRegistry) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.yaml")
	if err := os.WriteFile(path, []byte(testScenarioYAML), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	loader := scenario.New("", nil)
	reg := &fakeRegistry{}
	o, err := New(loader, path, scenario.TypeTable{}, reg, Options{}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return o, reg
}

func TestTickNoOpWhileClockNotRunning(t *testing.T) {
	o, reg := newTestOrchestrator(t)
	done := o.Tick()
	if done {
		t.Error("expected tick to report not done while clock is paused")
	}
	if len(reg.bulkUpdates) != 0 {
		t.Error("expected no bulk update pushed while clock is paused")
	}
}

func TestTickAdvancesEntityPosition(t *testing.T) {
	o, reg := newTestOrchestrator(t)
	o.Clock().Start()

	o.Tick()

	if len(reg.bulkUpdates) != 1 {
		t.Fatalf("expected one bulk update, got %d", len(reg.bulkUpdates))
	}
	ent, ok := o.Store().Get("MMEA-01")
	if !ok {
		t.Fatal("expected MMEA-01 in store")
	}
	if ent.Timestamp.IsZero() {
		t.Error("expected entity timestamp to be stamped after a tick")
	}
}

func TestTickFiresScheduledEvent(t *testing.T) {
	o, reg := newTestOrchestrator(t)
	// At 100000x, 10ms of wall time carries sim time well past the
	// event's 00:05 offset.
	o.Clock().SetSpeed(100000)
	o.Clock().Start()
	time.Sleep(10 * time.Millisecond)

	o.Tick()
	if len(reg.events) != 1 {
		t.Fatalf("expected the 00:05 event to fire on the first tick, got %d events", len(reg.events))
	}
}

func TestEnqueueRunsInsideTick(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	o.Clock().Start()

	ran := false
	o.Enqueue(func(*Orchestrator) { ran = true })
	o.Tick()

	if !ran {
		t.Error("expected enqueued command to run during Tick")
	}
}

func TestRestartRebuildsStoreAndResetsEngine(t *testing.T) {
	o, reg := newTestOrchestrator(t)
	o.Clock().Start()
	o.Tick()

	if err := o.Restart(); err != nil {
		t.Fatalf("Restart: %v", err)
	}
	if o.clock.IsRunning() == false {
		t.Error("expected Restart to leave the clock running")
	}
	if reg.resets != 1 {
		t.Errorf("expected registry Reset to be called once, got %d", reg.resets)
	}
	ent, ok := o.Store().Get("MMEA-01")
	if !ok {
		t.Fatal("expected MMEA-01 to survive a restart")
	}
	if ent.Position.Latitude != 1.40 {
		t.Errorf("expected entity reset to its initial waypoint position, got lat=%v", ent.Position.Latitude)
	}
}

func TestIsCompleteRequiresMinimumTicks(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	o.Clock().Start()
	o.tickCount = 1
	if o.isComplete(o.clock.SimTime()) {
		t.Error("expected isComplete to be false before the minimum tick count")
	}
}
