// Copyright 2026 The Synod Authors
// SPDX-License-Identifier: Apache-2.0

// Package leadership exposes the externally arbitrated "am I leader"
// capability. Units only observe leadership; acquisition, renewal, and
// the at-most-one-holder guarantee belong to an external
// mutual-exclusion primitive. Nothing here implements election.
package leadership

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/synod-project/synod/lib/schema"
	"github.com/synod-project/synod/messaging"
)

// Checker reports whether the local unit currently holds leadership.
type Checker interface {
	IsLeader(ctx context.Context) (bool, error)
}

// Static is a Checker with a fixed answer. Used in tests and in
// single-unit deployments where the sole unit trivially leads.
type Static bool

func (s Static) IsLeader(ctx context.Context) (bool, error) {
	return bool(s), nil
}

// leaseReader is the subset of *messaging.Session the lease observer
// needs.
type leaseReader interface {
	GetStateEvent(ctx context.Context, roomID, eventType, stateKey string) (json.RawMessage, error)
}

// Lease observes the HA lease state event written by the external
// mutual-exclusion primitive and reports whether the local unit is the
// recorded holder. No lease means no unit leads yet.
type Lease struct {
	session  leaseReader
	roomID   string
	app      string
	unitName string
}

// NewLease creates a lease observer for the given coordination room.
func NewLease(session leaseReader, roomID, app, unitName string) *Lease {
	return &Lease{session: session, roomID: roomID, app: app, unitName: unitName}
}

func (l *Lease) IsLeader(ctx context.Context) (bool, error) {
	raw, err := l.session.GetStateEvent(ctx, l.roomID, schema.EventTypeHALease, l.app)
	if err != nil {
		if messaging.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("leadership: reading lease: %w", err)
	}

	var lease schema.HALeaseContent
	if err := json.Unmarshal(raw, &lease); err != nil {
		return false, fmt.Errorf("leadership: parsing lease: %w", err)
	}
	return lease.Holder == l.unitName, nil
}
