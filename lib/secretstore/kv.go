// Copyright 2026 The Synod Authors
// SPDX-License-Identifier: Apache-2.0

package secretstore

import (
	"context"
	"fmt"
)

// kvSecretPrefix namespaces sealed secrets within the coordination
// bucket keyspace, away from the well-known coordination keys.
const kvSecretPrefix = "secret/"

// kvBucket is the coordination bucket subset the KV store needs.
type kvBucket interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// KV stores age-sealed secrets as coordination bucket entries. Used
// with backends that have no native secret surface (etcd); the bucket
// only ever holds ciphertext.
type KV struct {
	bucket     kvBucket
	recipients []string
	identity   string
}

// NewKV creates a KV store over bucket. Create requires at least one
// recipient; Fetch requires the identity.
func NewKV(bucket kvBucket, recipients []string, identity string) *KV {
	return &KV{bucket: bucket, recipients: recipients, identity: identity}
}

// Create seals content and writes it under its content-addressed ID.
func (s *KV) Create(ctx context.Context, content []byte) (string, error) {
	ciphertext, err := seal(s.recipients, content)
	if err != nil {
		return "", err
	}

	id := SecretID(content)
	if err := s.bucket.Set(ctx, kvSecretPrefix+id, ciphertext); err != nil {
		return "", fmt.Errorf("secretstore: storing sealed secret: %w", err)
	}
	return id, nil
}

// Fetch reads and unseals the secret for an ID, or ErrNotFound.
func (s *KV) Fetch(ctx context.Context, id string) ([]byte, error) {
	ciphertext, ok, err := s.bucket.Get(ctx, kvSecretPrefix+id)
	if err != nil {
		return nil, fmt.Errorf("secretstore: reading sealed secret %s: %w", id, err)
	}
	if !ok {
		return nil, ErrNotFound
	}
	return unseal(s.identity, ciphertext, id)
}
