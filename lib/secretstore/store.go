// Copyright 2026 The Synod Authors
// SPDX-License-Identifier: Apache-2.0

package secretstore

import (
	"context"
	"encoding/hex"
	"errors"

	"github.com/zeebo/blake3"
)

// ErrNotFound reports that no secret exists for the given ID, or that
// the stored secret could not be recovered. Callers treat both the
// same way: the reference is dangling and the secret is absent.
var ErrNotFound = errors.New("secretstore: secret not found")

// Store holds opaque secret blobs addressed by content ID.
type Store interface {
	// Create stores content and returns its secret ID. Creating
	// content that already exists returns the existing ID without a
	// second copy.
	Create(ctx context.Context, content []byte) (string, error)

	// Fetch returns the content for a secret ID, or ErrNotFound.
	Fetch(ctx context.Context, id string) ([]byte, error)
}

// SecretID computes the content-addressed ID for a secret: the blake3
// hex digest of the plaintext.
func SecretID(content []byte) string {
	sum := blake3.Sum256(content)
	return hex.EncodeToString(sum[:])
}
