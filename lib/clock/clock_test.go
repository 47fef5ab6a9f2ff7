// Copyright 2026 The Synod Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

func TestFakeNowAdvance(t *testing.T) {
	start := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	c := Fake(start)

	if got := c.Now(); !got.Equal(start) {
		t.Errorf("Now() = %v, want %v", got, start)
	}

	c.Advance(90 * time.Second)
	if got := c.Now(); !got.Equal(start.Add(90 * time.Second)) {
		t.Errorf("Now() after Advance = %v, want %v", got, start.Add(90*time.Second))
	}
}

func TestFakeTickerFires(t *testing.T) {
	c := Fake(time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC))
	ticker := c.NewTicker(10 * time.Second)
	defer ticker.Stop()

	c.Advance(10 * time.Second)
	select {
	case <-ticker.C:
	default:
		t.Fatal("ticker did not fire after one interval")
	}

	// Less than one interval: no tick.
	c.Advance(5 * time.Second)
	select {
	case <-ticker.C:
		t.Fatal("ticker fired before interval elapsed")
	default:
	}
}

func TestFakeTickerStopped(t *testing.T) {
	c := Fake(time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC))
	ticker := c.NewTicker(time.Second)
	ticker.Stop()

	c.Advance(5 * time.Second)
	select {
	case <-ticker.C:
		t.Fatal("stopped ticker fired")
	default:
	}
}

func TestWaitForTimers(t *testing.T) {
	c := Fake(time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC))

	done := make(chan struct{})
	go func() {
		c.WaitForTimers(1)
		close(done)
	}()

	ticker := c.NewTicker(time.Second)
	defer ticker.Stop()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("WaitForTimers did not return after ticker registration")
	}
}
