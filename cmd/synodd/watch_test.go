// Copyright 2026 The Synod Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/synod-project/synod/lib/clock"
	"github.com/synod-project/synod/lib/peerstore"
	"github.com/synod-project/synod/lib/schema"
	"github.com/synod-project/synod/lib/unit"
	"github.com/synod-project/synod/lib/workload"
)

// recordingHandler records delivered events and can fail on demand.
type recordingHandler struct {
	mu     sync.Mutex
	events []string
	fail   error
}

func (h *recordingHandler) Handle(ctx context.Context, event Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fail != nil {
		return h.fail
	}
	h.events = append(h.events, event.String())
	return nil
}

func (h *recordingHandler) recorded() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.events...)
}

func (h *recordingHandler) setFail(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fail = err
}

type watcherEnv struct {
	watcher *Watcher
	handler *recordingHandler
	store   *peerstore.Memory
	leader  *fakeLeader
	client  *workload.Fake
	clock   *clock.FakeClock
}

func newTestWatcher(t *testing.T, members ...unit.Unit) *watcherEnv {
	t.Helper()
	if len(members) == 0 {
		members = []unit.Unit{{Name: "matrix/0", App: "matrix"}}
	}
	env := &watcherEnv{
		handler: &recordingHandler{},
		store:   peerstore.NewMemory(members...),
		leader:  &fakeLeader{},
		client:  workload.NewFake(),
		clock:   clock.Fake(time.Unix(1700000000, 0)),
	}
	env.watcher = NewWatcher(env.handler, env.store, env.leader, env.client,
		env.clock, 15*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return env
}

// prime takes the initial snapshot without delivering anything, the
// way Run does before its first tick.
func (env *watcherEnv) prime(ctx context.Context) {
	env.watcher.observe(ctx, true)
}

func (env *watcherEnv) tick(ctx context.Context) {
	env.watcher.observe(ctx, false)
	env.watcher.deliver(ctx)
}

func TestWatcherStableStateEmitsNothing(t *testing.T) {
	env := newTestWatcher(t)
	ctx := context.Background()

	env.prime(ctx)
	env.tick(ctx)
	env.tick(ctx)

	if events := env.handler.recorded(); len(events) != 0 {
		t.Errorf("events = %v, want none for stable state", events)
	}
}

func TestWatcherEmitsLeaderElected(t *testing.T) {
	env := newTestWatcher(t)
	ctx := context.Background()

	env.prime(ctx)
	env.leader.leader = true
	env.tick(ctx)

	events := env.handler.recorded()
	if len(events) != 1 || events[0] != "leader-elected" {
		t.Errorf("events = %v, want [leader-elected]", events)
	}

	// Holding leadership is not a new election.
	env.tick(ctx)
	if events := env.handler.recorded(); len(events) != 1 {
		t.Errorf("events = %v, repeat tick must not re-emit", events)
	}
}

func TestWatcherEmitsDeparture(t *testing.T) {
	env := newTestWatcher(t,
		unit.Unit{Name: "matrix/0", App: "matrix"},
		unit.Unit{Name: "matrix/1", App: "matrix"},
	)
	ctx := context.Background()

	env.prime(ctx)
	env.store.SetMembership(unit.Unit{Name: "matrix/0", App: "matrix"})
	env.tick(ctx)

	events := env.handler.recorded()
	if len(events) != 2 || events[0] != "peer-departed matrix/1" || events[1] != "peer-changed" {
		t.Errorf("events = %v, want departure then membership change", events)
	}
}

func TestWatcherEmitsJoinAsPeerChanged(t *testing.T) {
	env := newTestWatcher(t)
	ctx := context.Background()

	env.prime(ctx)
	env.store.SetMembership(
		unit.Unit{Name: "matrix/0", App: "matrix"},
		unit.Unit{Name: "matrix/1", App: "matrix"},
	)
	env.tick(ctx)

	events := env.handler.recorded()
	if len(events) != 1 || events[0] != "peer-changed" {
		t.Errorf("events = %v, want [peer-changed]", events)
	}
}

func TestWatcherEmitsWorkloadReady(t *testing.T) {
	env := newTestWatcher(t)
	env.client.Connected = false
	ctx := context.Background()

	env.prime(ctx)
	env.client.Connected = true
	env.tick(ctx)

	events := env.handler.recorded()
	if len(events) != 1 || events[0] != "workload-ready" {
		t.Errorf("events = %v, want [workload-ready]", events)
	}
}

func TestWatcherEmitsConfigChangedOnBucketMove(t *testing.T) {
	env := newTestWatcher(t)
	ctx := context.Background()

	env.prime(ctx)
	if err := env.store.Set(ctx, schema.KeyMainUnit, "matrix/1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	env.tick(ctx)

	events := env.handler.recorded()
	if len(events) != 1 || events[0] != "config-changed" {
		t.Errorf("events = %v, want [config-changed]", events)
	}
}

func TestWatcherRedeliversAfterFailure(t *testing.T) {
	env := newTestWatcher(t)
	ctx := context.Background()

	env.prime(ctx)
	env.handler.setFail(errors.New("transient"))
	env.leader.leader = true
	env.tick(ctx)

	if events := env.handler.recorded(); len(events) != 0 {
		t.Fatalf("events = %v, want none while failing", events)
	}

	env.handler.setFail(nil)
	env.tick(ctx)

	events := env.handler.recorded()
	if len(events) != 1 || events[0] != "leader-elected" {
		t.Errorf("events = %v, want redelivered [leader-elected]", events)
	}
}

func TestWatcherRunDeliversInitialEvent(t *testing.T) {
	env := newTestWatcher(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		env.watcher.Run(ctx)
	}()

	// Run delivers the startup ConfigChanged before its first tick.
	env.clock.WaitForTimers(1)
	if events := env.handler.recorded(); len(events) != 1 || events[0] != "config-changed" {
		t.Errorf("events = %v, want startup [config-changed]", events)
	}

	// A leadership gain surfaces on the next tick.
	env.leader.leader = true
	env.clock.Advance(15 * time.Second)

	deadline := time.Now().Add(5 * time.Second)
	for len(env.handler.recorded()) < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for tick delivery, events = %v", env.handler.recorded())
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	<-done

	events := env.handler.recorded()
	if events[1] != "leader-elected" {
		t.Errorf("events = %v, want leader-elected after tick", events)
	}
}
