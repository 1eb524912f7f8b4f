// Package transport fans simulation output out to external consumers:
// WebSocket-connected COP dashboards, a spec-driven REST API, Cursor on
// Target for TAK clients, and a rate-limited console adapter for
// development. Every adapter implements the same narrow Adapter
// contract so the Registry can treat them uniformly.
package transport

import (
	"fmt"

	"github.com/davidarule/edge-c2-sim/pkg/entity"
	"github.com/davidarule/edge-c2-sim/pkg/event"
	"github.com/davidarule/edge-c2-sim/pkg/log"
	"github.com/davidarule/edge-c2-sim/pkg/util"
)

// Adapter is the protocol-specific delivery contract every transport
// implements. Connect/Disconnect may fail; the Registry logs and
// continues. Push methods returning an error do not stop delivery to
// sibling adapters — the Registry isolates each adapter's failures.
type Adapter interface {
	Name() string
	Connect() error
	Disconnect() error
	PushEntityUpdate(e entity.Entity) error
	PushBulkUpdate(entities []entity.Entity) error
	PushEvent(ev event.Event) error
}

// Resettable is implemented by adapters that hold per-run state (e.g.
// "have I sent a create for this entity yet") that must be cleared on
// scenario restart. Adapters without such state need not implement it.
type Resettable interface {
	Reset()
}

// Registry holds an ordered set of transport adapters and fans every
// push out to all of them, isolating one adapter's failure from the
// rest (spec.md §4.9). It satisfies the orchestrator's Registry
// interface structurally — the orchestrator never imports this package.
type Registry struct {
	mu       util.LoggingMutex
	lg       *log.Logger
	adapters []Adapter
}

// NewRegistry constructs an empty Registry.
func NewRegistry(lg *log.Logger) *Registry {
	return &Registry{lg: lg}
}

// Register adds an adapter. Adapters are connected, pushed to, and
// disconnected in registration order.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock(r.lg)
	r.adapters = append(r.adapters, a)
	r.mu.Unlock(r.lg)

	if r.lg != nil {
		r.lg.Info("registered transport", "name", a.Name())
	}
}

// Names returns the registered adapters' names, in registration order.
func (r *Registry) Names() []string {
	r.mu.Lock(r.lg)
	defer r.mu.Unlock(r.lg)
	names := make([]string, len(r.adapters))
	for i, a := range r.adapters {
		names[i] = a.Name()
	}
	return names
}

// Count returns the number of registered adapters.
func (r *Registry) Count() int {
	r.mu.Lock(r.lg)
	defer r.mu.Unlock(r.lg)
	return len(r.adapters)
}

func (r *Registry) snapshot() []Adapter {
	r.mu.Lock(r.lg)
	defer r.mu.Unlock(r.lg)
	out := make([]Adapter, len(r.adapters))
	copy(out, r.adapters)
	return out
}

// ConnectAll connects every adapter; a failing adapter is logged and
// skipped, the rest still connect.
func (r *Registry) ConnectAll() {
	for _, a := range r.snapshot() {
		if err := a.Connect(); err != nil {
			r.warn(a, "connect", err)
		}
	}
}

// DisconnectAll disconnects every adapter in the same fashion.
func (r *Registry) DisconnectAll() {
	for _, a := range r.snapshot() {
		if err := a.Disconnect(); err != nil {
			r.warn(a, "disconnect", err)
		}
	}
}

// PushEntityUpdate fans a single entity update out to every adapter.
func (r *Registry) PushEntityUpdate(e entity.Entity) {
	for _, a := range r.snapshot() {
		if err := a.PushEntityUpdate(e); err != nil {
			r.warn(a, "entity update", err)
		}
	}
}

// PushBulkUpdate fans a per-tick entity batch out to every adapter.
func (r *Registry) PushBulkUpdate(entities []entity.Entity) {
	if len(entities) == 0 {
		return
	}
	for _, a := range r.snapshot() {
		if err := a.PushBulkUpdate(entities); err != nil {
			r.warn(a, "bulk update", err)
		}
	}
}

// PushEvent fans a fired scenario event out to every adapter.
func (r *Registry) PushEvent(ev event.Event) {
	for _, a := range r.snapshot() {
		if err := a.PushEvent(ev); err != nil {
			r.warn(a, "event push", err)
		}
	}
}

// Reset clears per-run state on every adapter that opts into it. The
// orchestrator calls this on scenario restart if the registry it was
// given implements the optional Reset() interface.
func (r *Registry) Reset() {
	for _, a := range r.snapshot() {
		if resettable, ok := a.(Resettable); ok {
			resettable.Reset()
		}
	}
}

func (r *Registry) warn(a Adapter, op string, err error) {
	if r.lg != nil {
		r.lg.Warn(fmt.Sprintf("transport %s failed", op), "transport", a.Name(), "error", err)
	}
}
