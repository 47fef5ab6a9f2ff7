// Copyright 2026 The Synod Authors
// SPDX-License-Identifier: Apache-2.0

// Package status reports unit health to operators.
//
// Each unit publishes its own state. Blocked is sticky within a
// reconciliation pass: once a step blocks, later steps cannot paper
// over it with a healthier state — only the next pass, via Begin,
// gets a fresh slate.
package status

import (
	"context"
	"fmt"
)

// State is a unit's coarse health state.
type State string

const (
	// StateNotReady means the workload control plane is unreachable.
	StateNotReady State = "not-ready"

	// StateConfiguring means a reconciliation pass is in progress.
	StateConfiguring State = "configuring"

	// StateBlocked means the unit cannot make progress without
	// operator or peer action. Sticky within a pass.
	StateBlocked State = "blocked"

	// StateActive means the workload is configured and serving.
	StateActive State = "active"
)

// Status is a state with a human-readable reason. Reason is empty for
// StateActive.
type Status struct {
	State  State
	Reason string
}

func (s Status) String() string {
	if s.Reason == "" {
		return string(s.State)
	}
	return fmt.Sprintf("%s: %s", s.State, s.Reason)
}

// Blocked builds a StateBlocked status with a formatted reason.
func Blocked(format string, args ...any) Status {
	return Status{State: StateBlocked, Reason: fmt.Sprintf(format, args...)}
}

// Sink receives status updates.
type Sink interface {
	Report(ctx context.Context, status Status) error
}

// Tracker wraps a Sink with the sticky-Blocked rule.
type Tracker struct {
	sink    Sink
	blocked bool
}

// NewTracker creates a Tracker over sink.
func NewTracker(sink Sink) *Tracker {
	return &Tracker{sink: sink}
}

// Begin starts a fresh reconciliation pass, clearing stickiness.
func (t *Tracker) Begin() {
	t.blocked = false
}

// Set reports status unless a Blocked status was already reported this
// pass. Reporting Blocked makes it stick.
func (t *Tracker) Set(ctx context.Context, status Status) error {
	if t.blocked {
		return nil
	}
	if status.State == StateBlocked {
		t.blocked = true
	}
	return t.sink.Report(ctx, status)
}

// Blocked reports whether this pass has reported a Blocked status.
func (t *Tracker) Blocked() bool {
	return t.blocked
}
