// pkg/simclock/clock.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package simclock maps wall-clock monotonic time to simulation time
// under a configurable speed multiplier, with pause/resume/reset and
// speed changes that never step sim time backward.
package simclock

import (
	"sync"
	"time"
)

// Clock is independently thread-safe; every method may be called from
// any goroutine and state transitions are atomic under an internal
// mutex (spec.md §5's "Clock: methods are independently thread-safe").
type Clock struct {
	mu sync.Mutex

	startTime      time.Time
	speed          float64
	running        bool
	wallStart      time.Time
	accumulatedSim time.Duration
}

// New constructs a Clock whose simulation epoch is startTime, running
// at the given speed multiplier, initially paused.
func New(startTime time.Time, speed float64) *Clock {
	return &Clock{
		startTime: startTime,
		speed:     speed,
	}
}

// Speed returns the current speed multiplier.
func (c *Clock) Speed() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speed
}

// IsRunning reports whether the clock is currently advancing.
func (c *Clock) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// StartTime returns the simulation epoch.
func (c *Clock) StartTime() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startTime
}

// Start begins advancing time if not already running.
func (c *Clock) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	c.running = true
	c.wallStart = time.Now()
}

// Resume is an alias for Start: both set running and reset wallStart
// from a not-running state, per spec.md §4.2's transition table.
func (c *Clock) Resume() {
	c.Start()
}

// Pause folds the current live delta into accumulatedSim and stops the
// clock from advancing further.
func (c *Clock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.accumulatedSim = c.elapsedLocked()
	c.running = false
}

// SetSpeed changes the speed multiplier. If running, the live delta at
// the old speed is folded into accumulatedSim and wallStart is reset
// before the new speed takes effect, so elapsed sim time never steps
// backward across the change.
func (c *Clock) SetSpeed(speed float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		c.accumulatedSim = c.elapsedLocked()
		c.wallStart = time.Now()
	}
	c.speed = speed
}

// Reset stops the clock and zeros accumulated sim time. The caller is
// responsible for calling Start again.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	c.accumulatedSim = 0
}

// Elapsed returns the simulation duration elapsed since StartTime.
func (c *Clock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsedLocked()
}

func (c *Clock) elapsedLocked() time.Duration {
	if !c.running {
		return c.accumulatedSim
	}
	wallElapsed := time.Since(c.wallStart)
	return c.accumulatedSim + time.Duration(float64(wallElapsed)*c.speed)
}

// SimTime returns the current simulation time: StartTime + Elapsed().
func (c *Clock) SimTime() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startTime.Add(c.elapsedLocked())
}
