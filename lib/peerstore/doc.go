// Copyright 2026 The Synod Authors
// SPDX-License-Identifier: Apache-2.0

// Package peerstore abstracts the shared, eventually-consistent
// key-value bucket visible to every unit of the peer group.
//
// The bucket has conceptually one writer: by convention only the unit
// currently holding leadership calls Set. The store does not enforce
// this — leadership is an external mutual-exclusion guarantee that
// callers check before writing.
//
// Two production backends exist. Matrix stores bucket entries as room
// state events and derives membership from room joins; Etcd stores
// entries under a cluster prefix and derives membership from a units
// registry, for deployments whose membership source is etcd rather
// than Matrix. Memory is the test double and the single-unit default.
package peerstore
