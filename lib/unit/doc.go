// Copyright 2026 The Synod Authors
// SPDX-License-Identifier: Apache-2.0

// Package unit derives stable identity from homeserver unit names.
//
// Units are the cooperating processes of one clustered deployment. A
// unit name has the form "app/N" (orchestrator form) or "app-N", with
// an optional DNS suffix ("app-N.app-endpoints.cluster.local"). The
// trailing integer N is the unit ID, and the canonical address of a
// unit is "<app>-<N>.<app>-endpoints" — the headless-service hostname
// every peer resolves it by.
//
// Every peer recomputes topology from the same membership list, so ID
// extraction must be total over well-formed names and must fail loudly
// on malformed ones rather than guess.
package unit
