// Copyright 2026 The Synod Authors
// SPDX-License-Identifier: Apache-2.0

// Package workload is the control-plane client for the supervised
// homeserver processes.
//
// The workload runs under a process supervisor that exposes a Unix
// socket speaking a small CBOR request/response protocol: push and
// read files, apply a desired configuration (file set plus process
// definitions), restart processes, and query service status. The
// protocol carries no retry semantics — an unreachable supervisor
// means the unit reports itself not ready and waits for the next
// lifecycle event.
//
// Rendering lives here too: Render derives the complete desired
// configuration (homeserver YAML, worker config, process definitions)
// from the unit's role and the topology map. Rendering is
// deterministic — identical inputs produce identical bytes on every
// unit, verified by the blake3 digest on Desired.
package workload
