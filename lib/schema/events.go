// Copyright 2026 The Synod Authors
// SPDX-License-Identifier: Apache-2.0

package schema

// Coordination event type constants. These events live in the peer
// group's coordination room. State keys are bucket keys: the event
// type carries the value shape, the state key names the slot.
const (
	// EventTypeBucket holds one coordination bucket entry. The state
	// key is the bucket key (e.g. KeyMainUnit), the content is a
	// BucketEntryContent. Writes are performed only by the unit
	// currently holding leadership — a caller convention, not a
	// property the homeserver enforces.
	EventTypeBucket = "io.synod.bucket"

	// EventTypeSealedSecret holds an age-sealed secret body. The state
	// key is the secret ID (blake3 hex of the plaintext). Content is a
	// SealedSecretContent.
	EventTypeSealedSecret = "io.synod.sealed_secret"

	// EventTypeUnitStatus is each unit's reconciliation status,
	// state-keyed by unit name. Content is a UnitStatusContent.
	EventTypeUnitStatus = "io.synod.unit_status"

	// EventTypeHALease is the externally managed leadership lease.
	// Units only observe this event; acquisition and renewal belong to
	// the external mutual-exclusion primitive. State key is the
	// application name. Content is an HALeaseContent.
	EventTypeHALease = "io.synod.ha_lease"
)

// Well-known bucket keys.
const (
	// KeyMainUnit records the single main unit's name. At most one
	// value exists at any time; it is reassigned, never deleted.
	KeyMainUnit = "main_unit_id"

	// KeySigningKeyRef records the secret ID of the cluster signing
	// key. Cleared (set empty) when the reference dangles, so the key
	// is regenerated by whichever unit is then main.
	KeySigningKeyRef = "secret-signing-id"
)

// BucketEntryContent is one entry of the shared coordination bucket.
type BucketEntryContent struct {
	// Value is the entry value. Empty means the entry is absent —
	// Matrix state events cannot be deleted, only overwritten.
	Value string `json:"value"`
}

// SealedSecretContent is an age-sealed secret stored in the
// coordination room. The ciphertext is sealed to every peer recipient
// key, so any unit can recover the plaintext with its own identity.
type SealedSecretContent struct {
	// Ciphertext is the base64-encoded age ciphertext.
	Ciphertext string `json:"ciphertext"`
}

// UnitStatusContent is the per-unit reconciliation status surface.
type UnitStatusContent struct {
	// State is one of "not-ready", "configuring", "blocked", "active".
	State string `json:"state"`

	// Reason carries the human-readable condition for not-ready and
	// blocked states.
	Reason string `json:"reason,omitempty"`

	// Since is the ISO 8601 timestamp of the last state change.
	Since string `json:"since"`
}

// HALeaseContent is the leadership lease as written by the external
// mutual-exclusion primitive. Units treat holder identity as the whole
// truth: at most one unit is named, and the primitive guarantees the
// name only changes between renewals.
type HALeaseContent struct {
	// Holder is the unit name currently holding leadership.
	Holder string `json:"holder"`

	// ExpiresAt is an ISO 8601 timestamp after which the lease is no
	// longer valid. Included for observability; units do not act on it.
	ExpiresAt string `json:"expires_at"`
}
