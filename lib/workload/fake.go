// Copyright 2026 The Synod Authors
// SPDX-License-Identifier: Apache-2.0

package workload

import (
	"context"
	"fmt"
	"sync"
)

// Fake is an in-memory Client for tests. It records every applied
// configuration and restart so tests can assert on the sequence of
// control-plane operations.
type Fake struct {
	mu sync.Mutex

	// Connected gates CanConnect. Defaults to true via NewFake.
	Connected bool

	// FailApply, when set, is returned from ApplyConfig.
	FailApply error

	files     map[string][]byte
	processes map[string]ServiceState

	// Applies is every Desired passed to ApplyConfig, in order.
	Applies []*Desired

	// Restarts is every process name passed to RestartProcess, in
	// order.
	Restarts []string
}

// NewFake returns a connected Fake with no files and no processes.
func NewFake() *Fake {
	return &Fake{
		Connected: true,
		files:     make(map[string][]byte),
		processes: make(map[string]ServiceState),
	}
}

var _ Client = (*Fake)(nil)

func (f *Fake) CanConnect(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

func (f *Fake) PushFile(ctx context.Context, path string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[path] = append([]byte(nil), data...)
	return nil
}

func (f *Fake) ReadFile(ctx context.Context, path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[path]
	if !ok {
		return nil, fmt.Errorf("reading %s: %w", path, ErrFileNotFound)
	}
	return append([]byte(nil), data...), nil
}

func (f *Fake) ApplyConfig(ctx context.Context, desired *Desired) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailApply != nil {
		return f.FailApply
	}
	f.Applies = append(f.Applies, desired)
	for _, file := range desired.Files {
		f.files[file.Path] = append([]byte(nil), file.Data...)
	}
	// Wholesale replacement: processes absent from the new desired
	// set are forgotten, new ones start running.
	f.processes = make(map[string]ServiceState, len(desired.Processes))
	for _, process := range desired.Processes {
		f.processes[process.Name] = StateRunning
	}
	return nil
}

func (f *Fake) RestartProcess(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.processes[name]; !ok {
		return fmt.Errorf("restarting %s: unknown process", name)
	}
	f.processes[name] = StateRunning
	f.Restarts = append(f.Restarts, name)
	return nil
}

func (f *Fake) ServiceStatus(ctx context.Context, name string) (ServiceState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, ok := f.processes[name]
	if !ok {
		return StateStopped, nil
	}
	return state, nil
}

// SetFile seeds a workload file without going through PushFile
// bookkeeping. Used by tests that need pre-existing workload state
// (for example a signing key written by the homeserver itself).
func (f *Fake) SetFile(path string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[path] = append([]byte(nil), data...)
}

// DefineProcess seeds a supervised process in the given state.
func (f *Fake) DefineProcess(name string, state ServiceState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processes[name] = state
}
