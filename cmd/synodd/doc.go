// Copyright 2026 The Synod Authors
// SPDX-License-Identifier: Apache-2.0

// Command synodd is the per-unit coordination agent for a clustered
// homeserver deployment.
//
// Each unit runs one synodd next to its supervised workload. The agent
// watches the peer group's shared coordination state, keeps exactly
// one unit designated as main, derives the worker topology from group
// membership, converges the shared signing key, and drives the
// workload supervisor to the resulting configuration. All units run
// the same reconciliation logic; leadership only gates writes to the
// shared state.
package main
