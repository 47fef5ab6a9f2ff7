// Copyright 2026 The Synod Authors
// SPDX-License-Identifier: Apache-2.0

// Package secretstore stores opaque secret blobs referenced by ID from
// the coordination bucket.
//
// Secrets are content-addressed: the ID is the blake3 hex digest of
// the plaintext, so creating the same content twice yields the same
// reference and fetch verifies integrity for free. The Sealed backend
// age-encrypts each secret to the peer group's recipient keys before
// writing it into the coordination room, so the homeserver never sees
// plaintext.
//
// A fetch of an unknown or undecryptable ID returns ErrNotFound; the
// caller's contract is to discard the dangling reference and let the
// main unit regenerate the secret on a later reconciliation.
package secretstore
