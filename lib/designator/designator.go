// Copyright 2026 The Synod Authors
// SPDX-License-Identifier: Apache-2.0

// Package designator maintains the single main-unit designation in the
// shared bucket.
//
// The designation is a two-state machine: Unset (no value recorded)
// and Set (a unit name under the fixed main-unit key). Reads never
// need leadership; every write path checks leadership first, because
// the bucket itself does not. There is no deletion — the designation
// only ever moves from one unit to another.
package designator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/synod-project/synod/lib/peerstore"
	"github.com/synod-project/synod/lib/schema"
	"github.com/synod-project/synod/lib/unit"
)

// Designator reads and (while leading) reassigns the main designation.
type Designator struct {
	store  peerstore.Store
	self   unit.Unit
	logger *slog.Logger
}

// New creates a Designator for the local unit.
func New(store peerstore.Store, self unit.Unit, logger *slog.Logger) *Designator {
	return &Designator{store: store, self: self, logger: logger}
}

// Main returns the recorded main unit name. The boolean reports
// whether a designation exists.
func (d *Designator) Main(ctx context.Context) (string, bool, error) {
	name, present, err := d.store.Get(ctx, schema.KeyMainUnit)
	if err != nil {
		return "", false, fmt.Errorf("designator: reading main unit: %w", err)
	}
	return name, present, nil
}

// IsMain reports whether the local unit is the recorded main.
func (d *Designator) IsMain(ctx context.Context) (bool, error) {
	name, present, err := d.Main(ctx)
	if err != nil {
		return false, err
	}
	return present && name == d.self.Name, nil
}

// MainAddress returns the canonical address of the recorded main unit.
// With no designation yet, the local unit's own address is used — the
// same fallback every unit applies, so single-unit deployments and
// pre-bootstrap reconciliations still produce a usable address.
func (d *Designator) MainAddress(ctx context.Context) (string, error) {
	name, present, err := d.Main(ctx)
	if err != nil {
		return "", err
	}
	if !present {
		name = d.self.Name
	}
	return unit.Address(name, d.self.App), nil
}

// Assert unconditionally records the local unit as main. Called on
// every leadership-acquired event: reassertion is idempotent and
// overwrites any prior value, even a healthy one. Caller must hold
// leadership.
func (d *Designator) Assert(ctx context.Context) error {
	current, present, err := d.Main(ctx)
	if err != nil {
		return err
	}
	d.logger.Info("asserting main unit",
		"previous", current,
		"had_previous", present,
		"main", d.self.Name,
	)
	if err := d.store.Set(ctx, schema.KeyMainUnit, d.self.Name); err != nil {
		return fmt.Errorf("designator: recording main unit: %w", err)
	}
	return nil
}

// HandleDeparture reassigns the designation to the local unit when the
// departed unit is the recorded main and the caller holds leadership
// (reported by isLeader, checked by the caller against the external
// primitive). Returns whether a reassignment happened.
func (d *Designator) HandleDeparture(ctx context.Context, departed string, isLeader bool) (bool, error) {
	name, present, err := d.Main(ctx)
	if err != nil {
		return false, err
	}
	if !present || name != departed || !isLeader {
		return false, nil
	}

	d.logger.Info("main unit departed, taking over",
		"departed", departed,
		"main", d.self.Name,
	)
	if err := d.store.Set(ctx, schema.KeyMainUnit, d.self.Name); err != nil {
		return false, fmt.Errorf("designator: reassigning main unit: %w", err)
	}
	return true, nil
}
