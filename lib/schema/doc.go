// Copyright 2026 The Synod Authors
// SPDX-License-Identifier: Apache-2.0

// Package schema defines the state event types and content structs
// written to the shared coordination room. Every unit reads and (when
// leading) writes these events, so the wire contracts are defined once
// here rather than mirrored across packages.
//
// Bucket keys mirror the names used by earlier deployments of the
// coordination protocol ("main_unit_id", "secret-signing-id") so that
// mixed-version clusters agree on where the designation and the
// signing key reference live.
package schema
