package transport

import (
	"fmt"
	"time"

	"github.com/davidarule/edge-c2-sim/pkg/entity"
	"github.com/davidarule/edge-c2-sim/pkg/event"
	"github.com/davidarule/edge-c2-sim/pkg/util"
)

// ConsoleAdapter prints entity updates and events to stdout, for
// development without any external service. Per-entity updates are
// rate-limited: an entity already printed within minInterval is
// skipped on subsequent ticks.
type ConsoleAdapter struct {
	minInterval time.Duration
	recent      *util.TransientMap[string, struct{}]
}

// NewConsoleAdapter builds a console adapter that prints at most one
// update per entity per minInterval.
func NewConsoleAdapter(minInterval time.Duration) *ConsoleAdapter {
	return &ConsoleAdapter{
		minInterval: minInterval,
		recent:      util.NewTransientMap[string, struct{}](),
	}
}

func (c *ConsoleAdapter) Name() string { return "console" }

func (c *ConsoleAdapter) Connect() error {
	fmt.Println("[CONSOLE] transport adapter connected")
	return nil
}

func (c *ConsoleAdapter) Disconnect() error {
	fmt.Println("[CONSOLE] transport adapter disconnected")
	return nil
}

// Reset clears the per-entity rate-limit state so a freshly restarted
// scenario prints every entity again instead of waiting out whatever
// interval was in effect before the restart.
func (c *ConsoleAdapter) Reset() {
	c.recent = util.NewTransientMap[string, struct{}]()
}

func (c *ConsoleAdapter) PushEntityUpdate(e entity.Entity) error {
	if _, ok := c.recent.Get(e.ID); ok {
		return nil
	}
	c.recent.Add(e.ID, struct{}{}, c.minInterval)

	fmt.Printf("[%s] [%8s] %-20s @ (%8.4f, %9.4f) HDG %5.1f SPD %5.1fkn %s\n",
		e.Timestamp.Format("15:04:05"),
		e.Agency,
		e.Callsign,
		e.Position.Latitude,
		e.Position.Longitude,
		e.HeadingDeg,
		e.SpeedKnots,
		e.Status,
	)
	return nil
}

func (c *ConsoleAdapter) PushBulkUpdate(entities []entity.Entity) error {
	for _, e := range entities {
		if err := c.PushEntityUpdate(e); err != nil {
			return err
		}
	}
	return nil
}

func (c *ConsoleAdapter) PushEvent(ev event.Event) error {
	fmt.Printf("[%s] %s: %s\n", ev.TimeOffset, ev.EventType, ev.Description)
	return nil
}
