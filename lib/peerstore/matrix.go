// Copyright 2026 The Synod Authors
// SPDX-License-Identifier: Apache-2.0

package peerstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/synod-project/synod/lib/schema"
	"github.com/synod-project/synod/lib/unit"
	"github.com/synod-project/synod/messaging"
)

// roomStore is the subset of *messaging.Session the Matrix store
// needs. Tests substitute a fake.
type roomStore interface {
	GetStateEvent(ctx context.Context, roomID, eventType, stateKey string) (json.RawMessage, error)
	SendStateEvent(ctx context.Context, roomID, eventType, stateKey string, content any) (string, error)
	JoinedMembers(ctx context.Context, roomID string) ([]string, error)
}

// Matrix is a Store backed by state events in the peer group's
// coordination room. Bucket entries are EventTypeBucket state events
// keyed by bucket key; membership is the room's joined unit accounts.
type Matrix struct {
	session roomStore

	// roomID is the coordination room. Empty means no peer group
	// exists yet: reads report absent, writes are no-ops, and the
	// membership is just the local unit.
	roomID string

	// self is the local unit. Always part of the reported membership.
	self unit.Unit
}

// NewMatrix creates a Matrix store. An empty roomID is valid and
// produces the "not yet clustered" degradation described on Store.
func NewMatrix(session roomStore, roomID string, self unit.Unit) *Matrix {
	return &Matrix{session: session, roomID: roomID, self: self}
}

// Get reads a bucket entry from room state. A missing event or an
// event with an empty value reports absent — state events cannot be
// deleted, only overwritten, so empty is the cleared form.
func (m *Matrix) Get(ctx context.Context, key string) (string, bool, error) {
	if m.roomID == "" {
		return "", false, nil
	}

	raw, err := m.session.GetStateEvent(ctx, m.roomID, schema.EventTypeBucket, key)
	if err != nil {
		if messaging.IsNotFound(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("peerstore: reading bucket key %q: %w", key, err)
	}

	var entry schema.BucketEntryContent
	if err := json.Unmarshal(raw, &entry); err != nil {
		return "", false, fmt.Errorf("peerstore: parsing bucket key %q: %w", key, err)
	}
	if entry.Value == "" {
		return "", false, nil
	}
	return entry.Value, true, nil
}

// Set writes a bucket entry as a state event. No-op when unclustered.
func (m *Matrix) Set(ctx context.Context, key, value string) error {
	if m.roomID == "" {
		return nil
	}

	content := schema.BucketEntryContent{Value: value}
	if _, err := m.session.SendStateEvent(ctx, m.roomID, schema.EventTypeBucket, key, content); err != nil {
		return fmt.Errorf("peerstore: writing bucket key %q: %w", key, err)
	}
	return nil
}

// Membership lists the units joined to the coordination room, ordered
// by unit ID. Room members whose localpart does not belong to the
// application (service accounts, operators) are ignored. The local
// unit is always included even when the homeserver's member list lags
// behind its own join.
func (m *Matrix) Membership(ctx context.Context) ([]unit.Unit, error) {
	if m.roomID == "" {
		return []unit.Unit{m.self}, nil
	}

	members, err := m.session.JoinedMembers(ctx, m.roomID)
	if err != nil {
		return nil, fmt.Errorf("peerstore: listing members: %w", err)
	}

	seen := map[string]bool{m.self.Name: true}
	units := []unit.Unit{m.self}
	for _, userID := range members {
		name, ok := unitName(userID, m.self.App)
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		units = append(units, unit.Unit{Name: name, App: m.self.App})
	}

	sort.Slice(units, func(i, j int) bool {
		a, errA := units[i].ID()
		b, errB := units[j].ID()
		if errA != nil || errB != nil {
			// Unparseable names sort by string; topology derivation
			// rejects them later with a fatal error.
			return units[i].Name < units[j].Name
		}
		return a < b
	})
	return units, nil
}

// unitName extracts the unit name from a Matrix user ID, accepting
// only localparts of the form "<app>/<n>".
func unitName(userID, app string) (string, bool) {
	localpart, _, ok := strings.Cut(strings.TrimPrefix(userID, "@"), ":")
	if !ok {
		return "", false
	}
	if !strings.HasPrefix(localpart, app+"/") {
		return "", false
	}
	return localpart, true
}
