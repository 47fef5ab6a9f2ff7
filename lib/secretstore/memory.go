// Copyright 2026 The Synod Authors
// SPDX-License-Identifier: Apache-2.0

package secretstore

import (
	"context"
	"sync"
)

// Memory is an in-process Store for tests.
type Memory struct {
	mu      sync.Mutex
	secrets map[string][]byte

	// Creates counts Create calls, letting tests assert that no
	// duplicate secret creation happens on retries.
	Creates int
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{secrets: make(map[string][]byte)}
}

func (m *Memory) Create(ctx context.Context, content []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Creates++
	id := SecretID(content)
	m.secrets[id] = append([]byte(nil), content...)
	return id, nil
}

func (m *Memory) Fetch(ctx context.Context, id string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.secrets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), content...), nil
}

// Delete removes a secret, letting tests model a dangling reference.
func (m *Memory) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.secrets, id)
}
