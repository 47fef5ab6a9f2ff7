// Copyright 2026 The Synod Authors
// SPDX-License-Identifier: Apache-2.0

package status

import (
	"context"
	"fmt"
	"time"

	"github.com/synod-project/synod/lib/clock"
	"github.com/synod-project/synod/lib/schema"
	"github.com/synod-project/synod/lib/unit"
)

// statusWriter is the session subset the Matrix sink needs.
type statusWriter interface {
	SendStateEvent(ctx context.Context, roomID, eventType, stateKey string, content any) (string, error)
}

// Matrix publishes unit status as a state event in the coordination
// room, state-keyed by unit name. Since only advances when the state
// itself changes, so repeated reports of the same state are elided.
type Matrix struct {
	session statusWriter
	roomID  string
	self    unit.Unit
	clock   clock.Clock

	last  Status
	since string
}

// NewMatrix creates a Matrix sink for self in roomID. An empty roomID
// means the unit is unclustered; reports become no-ops.
func NewMatrix(session statusWriter, roomID string, self unit.Unit, clk clock.Clock) *Matrix {
	return &Matrix{session: session, roomID: roomID, self: self, clock: clk}
}

var _ Sink = (*Matrix)(nil)

func (m *Matrix) Report(ctx context.Context, status Status) error {
	if m.roomID == "" {
		return nil
	}
	if status == m.last && m.since != "" {
		return nil
	}
	since := m.clock.Now().UTC().Format(time.RFC3339)

	content := schema.UnitStatusContent{
		State:  string(status.State),
		Reason: status.Reason,
		Since:  since,
	}
	if _, err := m.session.SendStateEvent(ctx, m.roomID, schema.EventTypeUnitStatus, m.self.Name, content); err != nil {
		return fmt.Errorf("status: publishing %s for %s: %w", status.State, m.self, err)
	}
	m.last = status
	m.since = since
	return nil
}
