// Copyright 2026 The Synod Authors
// SPDX-License-Identifier: Apache-2.0

// Package messaging is a compact Matrix client covering the handful of
// endpoints the coordination core needs: room state reads and writes,
// joined-member listing, and alias resolution.
//
// The shared coordination bucket is Matrix room state — last-writer-wins
// per (event type, state key) pair, eventually consistent across units.
// Nothing here implements retries or backoff: a failed call surfaces to
// the reconciler, which relies on lifecycle event redelivery.
package messaging
