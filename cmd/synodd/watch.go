// Copyright 2026 The Synod Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/synod-project/synod/lib/clock"
	"github.com/synod-project/synod/lib/leadership"
	"github.com/synod-project/synod/lib/peerstore"
	"github.com/synod-project/synod/lib/schema"
	"github.com/synod-project/synod/lib/unit"
)

// workloadProbe is the client subset the watcher needs.
type workloadProbe interface {
	CanConnect(ctx context.Context) bool
}

// eventHandler consumes lifecycle events. Satisfied by *Reconciler.
type eventHandler interface {
	Handle(ctx context.Context, event Event) error
}

// Watcher polls shared state and translates observed changes into
// lifecycle events for the reconciler. Delivery is strictly ordered
// and single-threaded; an event whose pass fails stays queued and is
// redelivered on the next tick. That redelivery is the only retry in
// the system.
type Watcher struct {
	reconciler eventHandler
	store      peerstore.Store
	leadership leadership.Checker
	client     workloadProbe
	clock      clock.Clock
	interval   time.Duration
	logger     *slog.Logger

	// Last observed snapshot, diffed against each tick.
	members   map[string]unit.Unit
	connected bool
	leader    bool
	mainUnit  string
	keyRef    string

	pending []Event
}

// NewWatcher creates a Watcher polling at interval.
func NewWatcher(reconciler eventHandler, store peerstore.Store, checker leadership.Checker, client workloadProbe, clk clock.Clock, interval time.Duration, logger *slog.Logger) *Watcher {
	return &Watcher{
		reconciler: reconciler,
		store:      store,
		leadership: checker,
		client:     client,
		clock:      clk,
		interval:   interval,
		logger:     logger,
		members:    make(map[string]unit.Unit),
	}
}

// Run delivers an initial ConfigChanged, then polls until ctx is
// cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	w.observe(ctx, true)
	w.enqueue(ConfigChanged{})
	w.deliver(ctx)

	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.observe(ctx, false)
			w.deliver(ctx)
		}
	}
}

// observe diffs current shared state against the last snapshot and
// queues the resulting events. On the initial call it only records the
// snapshot — the startup ConfigChanged covers whatever state already
// exists.
func (w *Watcher) observe(ctx context.Context, initial bool) {
	connected := w.client.CanConnect(ctx)
	if connected && !w.connected && !initial {
		w.enqueue(WorkloadReady{})
	}
	w.connected = connected

	isLeader, err := w.leadership.IsLeader(ctx)
	if err != nil {
		w.logger.Warn("leadership check failed", "error", err)
	} else {
		if isLeader && !w.leader && !initial {
			w.enqueue(LeaderElected{})
		}
		w.leader = isLeader
	}

	w.observeMembership(ctx, initial)
	w.observeBucket(ctx, initial)
}

func (w *Watcher) observeMembership(ctx context.Context, initial bool) {
	members, err := w.store.Membership(ctx)
	if err != nil {
		w.logger.Warn("membership read failed", "error", err)
		return
	}

	current := make(map[string]unit.Unit, len(members))
	for _, member := range members {
		current[member.Name] = member
	}

	if !initial {
		changed := len(current) != len(w.members)
		for name, member := range w.members {
			if _, still := current[name]; !still {
				w.enqueue(PeerDeparted{Unit: member})
				changed = true
			}
		}
		for name := range current {
			if _, was := w.members[name]; !was {
				changed = true
			}
		}
		if changed {
			w.enqueue(PeerChanged{})
		}
	}
	w.members = current
}

// observeBucket watches the coordination entries whose movement must
// trigger a pass even when membership and leadership are stable: the
// main designation (written by another unit's leader) and the signing
// key reference.
func (w *Watcher) observeBucket(ctx context.Context, initial bool) {
	mainUnit, _, err := w.store.Get(ctx, schema.KeyMainUnit)
	if err != nil {
		w.logger.Warn("bucket read failed", "key", schema.KeyMainUnit, "error", err)
		return
	}
	keyRef, _, err := w.store.Get(ctx, schema.KeySigningKeyRef)
	if err != nil {
		w.logger.Warn("bucket read failed", "key", schema.KeySigningKeyRef, "error", err)
		return
	}

	if !initial && (mainUnit != w.mainUnit || keyRef != w.keyRef) {
		w.enqueue(ConfigChanged{})
	}
	w.mainUnit = mainUnit
	w.keyRef = keyRef
}

// enqueue appends event unless an identical event is already pending.
func (w *Watcher) enqueue(event Event) {
	for _, pending := range w.pending {
		if pending.String() == event.String() {
			return
		}
	}
	w.pending = append(w.pending, event)
}

// deliver runs queued events in order. The first failed pass stops
// delivery; the failed event and everything behind it wait for the
// next tick.
func (w *Watcher) deliver(ctx context.Context) {
	for len(w.pending) > 0 {
		event := w.pending[0]
		if err := w.reconciler.Handle(ctx, event); err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("reconciliation failed, will redeliver",
				"event", event.String(), "error", err)
			return
		}
		w.pending = w.pending[1:]
	}
}
