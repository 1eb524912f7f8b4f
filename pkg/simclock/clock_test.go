// pkg/simclock/clock_test.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package simclock

import (
	"testing"
	"time"
)

func TestClockNotRunningElapsedZero(t *testing.T) {
	c := New(time.Now(), 1.0)
	if e := c.Elapsed(); e != 0 {
		t.Errorf("expected zero elapsed before start, got %v", e)
	}
}

func TestClockSpeedChangeContinuity(t *testing.T) {
	c := New(time.Now(), 1.0)
	c.Start()
	time.Sleep(100 * time.Millisecond)
	c.SetSpeed(10)
	time.Sleep(100 * time.Millisecond)

	e := c.Elapsed()
	if e < time.Second || e > 3*time.Second {
		t.Errorf("expected elapsed in [1s,3s], got %v", e)
	}
}

func TestClockPauseResume(t *testing.T) {
	c := New(time.Now(), 1.0)
	c.Start()
	time.Sleep(50 * time.Millisecond)
	c.Pause()
	atPause := c.Elapsed()

	time.Sleep(100 * time.Millisecond)
	if e := c.Elapsed(); e != atPause {
		t.Errorf("elapsed should be frozen while paused: %v vs %v", e, atPause)
	}

	c.Resume()
	time.Sleep(50 * time.Millisecond)
	if e := c.Elapsed(); e <= atPause {
		t.Errorf("elapsed should strictly increase after resume: %v vs %v", e, atPause)
	}
}

func TestClockMonotonicWhileRunning(t *testing.T) {
	c := New(time.Now(), 5.0)
	c.Start()
	t1 := c.SimTime()
	time.Sleep(10 * time.Millisecond)
	t2 := c.SimTime()
	if t2.Before(t1) {
		t.Errorf("sim_time went backward: %v then %v", t1, t2)
	}
}

func TestClockReset(t *testing.T) {
	c := New(time.Now(), 1.0)
	c.Start()
	time.Sleep(20 * time.Millisecond)
	c.Reset()
	if c.IsRunning() {
		t.Error("expected clock to be stopped after reset")
	}
	if e := c.Elapsed(); e != 0 {
		t.Errorf("expected zero elapsed after reset, got %v", e)
	}
}

func TestClockSetSpeedWhilePaused(t *testing.T) {
	c := New(time.Now(), 1.0)
	c.SetSpeed(20)
	if s := c.Speed(); s != 20 {
		t.Errorf("expected speed 20, got %v", s)
	}
	if e := c.Elapsed(); e != 0 {
		t.Errorf("expected zero elapsed, got %v", e)
	}
}
