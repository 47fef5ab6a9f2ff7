// Copyright 2026 The Synod Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/synod-project/synod/lib/designator"
	"github.com/synod-project/synod/lib/leadership"
	"github.com/synod-project/synod/lib/peerstore"
	"github.com/synod-project/synod/lib/proxy"
	"github.com/synod-project/synod/lib/signingkey"
	"github.com/synod-project/synod/lib/status"
	"github.com/synod-project/synod/lib/topology"
	"github.com/synod-project/synod/lib/unit"
	"github.com/synod-project/synod/lib/workload"
)

// Reconciler converges the local unit with the peer group's shared
// state. Handle runs the full convergence pass for every event; the
// event type only selects shared-state pre-steps. Handle is not safe
// for concurrent use — the watcher delivers events one at a time.
type Reconciler struct {
	store      peerstore.Store
	designator *designator.Designator
	leadership leadership.Checker
	signing    *signingkey.Coordinator
	client     workload.Client
	proxy      *proxy.Companion
	tracker    *status.Tracker

	self         unit.Unit
	serverName   string
	clustered    bool
	plannedUnits int

	lastApplied string

	logger *slog.Logger
}

// Handle runs one reconciliation pass for event. A returned error
// means the pass did not complete; the watcher redelivers the event on
// its next tick. There is no other retry mechanism. Conditions that
// cannot be fixed by redelivery alone report Blocked and consume the
// event: a later event with corrected state clears them.
func (r *Reconciler) Handle(ctx context.Context, event Event) error {
	r.tracker.Begin()
	r.logger.Info("reconciling", "event", event.String(), "unit", r.self)

	isLeader, err := r.leadership.IsLeader(ctx)
	if err != nil {
		return fmt.Errorf("checking leadership: %w", err)
	}

	switch e := event.(type) {
	case LeaderElected:
		if isLeader {
			if err := r.designator.Assert(ctx); err != nil {
				return fmt.Errorf("asserting main designation: %w", err)
			}
		}
	case PeerDeparted:
		if _, err := r.designator.HandleDeparture(ctx, e.Unit.Name, isLeader); err != nil {
			return fmt.Errorf("handling departure of %s: %w", e.Unit, err)
		}
	}

	// Designation runs before the reachability guard so peers can
	// learn the main unit even while this unit's workload is down.
	main, designated, err := r.designator.Main(ctx)
	if err != nil {
		return fmt.Errorf("reading main designation: %w", err)
	}
	if !designated && isLeader {
		if err := r.designator.Assert(ctx); err != nil {
			return fmt.Errorf("asserting main designation: %w", err)
		}
		main, designated = r.self.Name, true
	}
	isMain := designated && main == r.self.Name

	if !r.client.CanConnect(ctx) {
		return r.tracker.Set(ctx, status.Status{
			State:  status.StateNotReady,
			Reason: "workload supervisor not reachable",
		})
	}
	if err := r.tracker.Set(ctx, status.Status{State: status.StateConfiguring}); err != nil {
		return err
	}

	if r.plannedUnits > 1 && !r.clustered {
		return r.tracker.Set(ctx, status.Blocked(
			"%d units planned but no peer coordination backend configured", r.plannedUnits))
	}
	mainAddress, err := r.designator.MainAddress(ctx)
	if err != nil {
		return fmt.Errorf("resolving main address: %w", err)
	}

	keyChanged, err := r.signing.Ensure(ctx, isMain, isLeader)
	if err != nil {
		if errors.Is(err, signingkey.ErrKeyUnavailable) {
			return r.tracker.Set(ctx, status.Blocked("waiting for workload to generate the signing key"))
		}
		return fmt.Errorf("converging signing key: %w", err)
	}

	topo, err := r.buildTopology(ctx, mainAddress)
	if err != nil {
		var malformed *unit.MalformedIdentityError
		if errors.As(err, &malformed) {
			// A peer whose ID cannot be derived would make this
			// unit's topology diverge from its peers'. Refuse the
			// whole pass rather than route around it.
			return r.tracker.Set(ctx, status.Blocked("deriving topology: %v", err))
		}
		return err
	}

	desired, err := workload.Render(workload.Params{
		ServerName:  r.serverName,
		Unit:        r.self,
		IsMain:      isMain,
		MainAddress: mainAddress,
		Topology:    topo,
	})
	if err != nil {
		return r.tracker.Set(ctx, status.Blocked("rendering workload config: %v", err))
	}
	if err := r.apply(ctx, desired, keyChanged); err != nil {
		return r.tracker.Set(ctx, status.Blocked("%v", err))
	}

	if r.proxy != nil {
		if _, err := r.proxy.Converge(ctx, mainAddress); err != nil {
			return fmt.Errorf("converging proxy: %w", err)
		}
	}

	return r.reportHealth(ctx, desired)
}

// buildTopology derives the role map from current membership. A single
// unit yields an empty map and an all-in-one workload.
func (r *Reconciler) buildTopology(ctx context.Context, mainAddress string) (*topology.Map, error) {
	members, err := r.store.Membership(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading membership: %w", err)
	}
	addresses := make([]string, len(members))
	for i, member := range members {
		addresses[i] = member.Address()
	}
	topo, err := topology.Build(mainAddress, addresses)
	if err != nil {
		return nil, fmt.Errorf("building topology: %w", err)
	}
	return topo, nil
}

// apply converges the supervisor to desired. The content digest makes
// steady-state passes cheap: an unchanged configuration is not
// reapplied. A changed signing key forces a process restart even when
// the configuration digest is unchanged, because the key file is not
// part of the rendered set.
func (r *Reconciler) apply(ctx context.Context, desired *workload.Desired, keyChanged bool) error {
	hash, err := desired.Hash()
	if err != nil {
		return fmt.Errorf("hashing workload config: %w", err)
	}

	if hash != r.lastApplied {
		if err := r.client.ApplyConfig(ctx, desired); err != nil {
			return fmt.Errorf("applying workload config: %w", err)
		}
		r.lastApplied = hash
		r.logger.Info("applied workload config", "digest", hash)
		return nil
	}

	if keyChanged {
		for _, process := range desired.Processes {
			if err := r.client.RestartProcess(ctx, process.Name); err != nil {
				return fmt.Errorf("restarting %s after key change: %w", process.Name, err)
			}
		}
		r.logger.Info("restarted workload for new signing key")
	}
	return nil
}
