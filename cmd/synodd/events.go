// Copyright 2026 The Synod Authors
// SPDX-License-Identifier: Apache-2.0

package main

import "github.com/synod-project/synod/lib/unit"

// Event is one lifecycle event delivered to the reconciler. The set is
// closed: the watcher translates every observed change into one of
// these five, and the reconciler runs the same convergence pass for
// each — the event only selects which pre-steps apply.
type Event interface {
	event()
	String() string
}

// ConfigChanged fires when operator-facing configuration or a watched
// bucket entry changed.
type ConfigChanged struct{}

func (ConfigChanged) event()         {}
func (ConfigChanged) String() string { return "config-changed" }

// LeaderElected fires when the local unit gains leadership.
type LeaderElected struct{}

func (LeaderElected) event()         {}
func (LeaderElected) String() string { return "leader-elected" }

// PeerDeparted fires once per unit that left the peer group.
type PeerDeparted struct {
	// Unit is the departed unit.
	Unit unit.Unit
}

func (PeerDeparted) event()           {}
func (e PeerDeparted) String() string { return "peer-departed " + e.Unit.Name }

// PeerChanged fires when group membership changed in any way,
// including joins. Departures additionally get a PeerDeparted first.
type PeerChanged struct{}

func (PeerChanged) event()         {}
func (PeerChanged) String() string { return "peer-changed" }

// WorkloadReady fires when the workload supervisor becomes reachable.
type WorkloadReady struct{}

func (WorkloadReady) event()         {}
func (WorkloadReady) String() string { return "workload-ready" }
