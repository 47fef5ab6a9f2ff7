// Copyright 2026 The Synod Authors
// SPDX-License-Identifier: Apache-2.0

package peerstore

import (
	"context"
	"sort"
	"sync"

	"github.com/synod-project/synod/lib/unit"
)

// Memory is an in-process Store. It backs tests and single-unit
// deployments that have no shared coordination backend at all.
type Memory struct {
	mu      sync.Mutex
	entries map[string]string
	units   []unit.Unit

	// Unclustered makes the store behave like a peer group that does
	// not exist yet: reads absent, writes dropped, membership empty.
	Unclustered bool
}

// NewMemory creates a Memory store with the given initial membership.
func NewMemory(units ...unit.Unit) *Memory {
	return &Memory{entries: make(map[string]string), units: units}
}

func (m *Memory) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Unclustered {
		return "", false, nil
	}
	value, ok := m.entries[key]
	if value == "" {
		return "", false, nil
	}
	return value, ok, nil
}

func (m *Memory) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Unclustered {
		return nil
	}
	m.entries[key] = value
	return nil
}

func (m *Memory) Membership(ctx context.Context) ([]unit.Unit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Unclustered {
		return nil, nil
	}
	units := make([]unit.Unit, len(m.units))
	copy(units, m.units)
	sort.Slice(units, func(i, j int) bool {
		a, errA := units[i].ID()
		b, errB := units[j].ID()
		if errA != nil || errB != nil {
			return units[i].Name < units[j].Name
		}
		return a < b
	})
	return units, nil
}

// SetMembership replaces the membership list. Used by tests to model
// units joining and departing.
func (m *Memory) SetMembership(units ...unit.Unit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.units = units
}
