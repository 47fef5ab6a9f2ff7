// Copyright 2026 The Synod Authors
// SPDX-License-Identifier: Apache-2.0

package status

import (
	"context"
	"sync"
)

// Memory records every reported status, in order. Test double.
type Memory struct {
	mu      sync.Mutex
	history []Status
}

// NewMemory creates an empty Memory sink.
func NewMemory() *Memory {
	return &Memory{}
}

var _ Sink = (*Memory)(nil)

func (m *Memory) Report(ctx context.Context, status Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, status)
	return nil
}

// History returns all reported statuses in order.
func (m *Memory) History() []Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Status(nil), m.history...)
}

// Last returns the most recent status, or the zero Status if none.
func (m *Memory) Last() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.history) == 0 {
		return Status{}
	}
	return m.history[len(m.history)-1]
}
