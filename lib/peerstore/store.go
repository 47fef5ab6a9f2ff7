// Copyright 2026 The Synod Authors
// SPDX-License-Identifier: Apache-2.0

package peerstore

import (
	"context"

	"github.com/synod-project/synod/lib/unit"
)

// Store is the shared coordination bucket. Last-writer-wins per key,
// eventually consistent across units.
type Store interface {
	// Get reads a bucket entry. The boolean reports presence: a
	// missing or cleared entry is (value="", present=false, err=nil),
	// never an error.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set writes a bucket entry. Callers must hold leadership — the
	// store does not check. On an unclustered store (no peer group
	// yet) Set is a no-op.
	Set(ctx context.Context, key, value string) error

	// Membership returns the current peer group ordered by unit ID.
	// Every unit computes topology from this list, so the order must
	// be identical regardless of which unit asks.
	Membership(ctx context.Context) ([]unit.Unit, error)
}
