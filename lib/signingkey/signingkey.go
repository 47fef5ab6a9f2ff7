// Copyright 2026 The Synod Authors
// SPDX-License-Identifier: Apache-2.0

// Package signingkey converges the shared homeserver signing key
// across the peer group.
//
// The homeserver generates its own signing key on first start. In a
// clustered deployment every unit must serve the same key, so the main
// unit captures the generated key into the secret store and publishes
// the secret ID in the coordination bucket. Every unit (main included)
// then configures its workload from the stored secret, writing the key
// file before any configuration that references it is applied.
package signingkey

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/synod-project/synod/lib/schema"
	"github.com/synod-project/synod/lib/secretstore"
	"github.com/synod-project/synod/lib/unit"
	"github.com/synod-project/synod/lib/workload"
)

// ErrKeyUnavailable reports that no shared signing key exists yet and
// the local workload has not generated one either. On the main unit
// this blocks reconciliation: proceeding would let the homeserver mint
// a key that the rest of the group never sees.
//
// Bucket writes (publishing the reference, clearing a dangling one)
// happen only while the caller holds leadership. The store does not
// enforce that precondition itself.
var ErrKeyUnavailable = errors.New("signingkey: signing key not yet available")

// bucket is the subset of the coordination bucket the coordinator
// reads and writes.
type bucket interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// fileClient is the subset of the workload control plane the
// coordinator uses.
type fileClient interface {
	PushFile(ctx context.Context, path string, data []byte) error
	ReadFile(ctx context.Context, path string) ([]byte, error)
}

// Coordinator converges the unit's signing key file with the shared
// secret.
type Coordinator struct {
	bucket     bucket
	secrets    secretstore.Store
	client     fileClient
	self       unit.Unit
	serverName string
	logger     *slog.Logger
}

// Config carries the Coordinator dependencies.
type Config struct {
	Bucket     bucket
	Secrets    secretstore.Store
	Client     fileClient
	Self       unit.Unit
	ServerName string
	Logger     *slog.Logger
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(config Config) *Coordinator {
	return &Coordinator{
		bucket:     config.Bucket,
		secrets:    config.Secrets,
		client:     config.Client,
		self:       config.Self,
		serverName: config.ServerName,
		logger:     config.Logger,
	}
}

// Ensure converges the workload's signing key file with the shared
// secret. Returns true when the file was written, meaning the workload
// must be restarted before the new key takes effect.
//
// Resolution order:
//
//  1. A valid bucket reference wins: every unit writes that key.
//  2. A dangling reference (secret deleted underneath us) is cleared
//     by the main unit while it holds leadership, and treated as
//     absent.
//  3. With no shared key, the main unit captures the key its own
//     workload generated and publishes it — but only while it holds
//     leadership, since the publish writes the shared bucket. If the
//     workload has not generated one yet, Ensure returns
//     ErrKeyUnavailable.
//  4. Everyone else with no shared key does nothing and waits for the
//     main unit's publish to propagate.
func (c *Coordinator) Ensure(ctx context.Context, isMain, isLeader bool) (bool, error) {
	canWrite := isMain && isLeader

	key, err := c.sharedKey(ctx, canWrite)
	if err != nil {
		return false, err
	}

	if key == nil {
		if !canWrite {
			return false, nil
		}
		key, err = c.captureLocalKey(ctx)
		if err != nil {
			return false, err
		}
	}

	return c.writeIfChanged(ctx, key)
}

// sharedKey resolves the bucket reference to key bytes, or nil when no
// usable shared key exists.
func (c *Coordinator) sharedKey(ctx context.Context, canWrite bool) ([]byte, error) {
	ref, ok, err := c.bucket.Get(ctx, schema.KeySigningKeyRef)
	if err != nil {
		return nil, fmt.Errorf("signingkey: reading key reference: %w", err)
	}
	if !ok {
		return nil, nil
	}

	key, err := c.secrets.Fetch(ctx, ref)
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, secretstore.ErrNotFound) {
		return nil, fmt.Errorf("signingkey: fetching secret %s: %w", ref, err)
	}

	c.logger.Warn("signing key reference is dangling", "secret_id", ref)
	if canWrite {
		if err := c.bucket.Set(ctx, schema.KeySigningKeyRef, ""); err != nil {
			return nil, fmt.Errorf("signingkey: clearing dangling reference: %w", err)
		}
	}
	return nil, nil
}

// captureLocalKey reads the key the local workload generated, stores
// it as a shared secret, and publishes the reference.
func (c *Coordinator) captureLocalKey(ctx context.Context) ([]byte, error) {
	path := workload.SigningKeyPath(c.serverName)
	key, err := c.client.ReadFile(ctx, path)
	if err != nil {
		if workload.IsFileNotFound(err) {
			return nil, fmt.Errorf("signingkey: %s absent: %w", path, ErrKeyUnavailable)
		}
		return nil, fmt.Errorf("signingkey: reading %s: %w", path, err)
	}

	id, err := c.secrets.Create(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("signingkey: storing captured key: %w", err)
	}
	if err := c.bucket.Set(ctx, schema.KeySigningKeyRef, id); err != nil {
		return nil, fmt.Errorf("signingkey: publishing key reference: %w", err)
	}
	c.logger.Info("published signing key", "unit", c.self, "secret_id", id)
	return key, nil
}

// writeIfChanged pushes the key file only when the workload's current
// content differs, so a steady-state reconcile does not force a
// restart.
func (c *Coordinator) writeIfChanged(ctx context.Context, key []byte) (bool, error) {
	path := workload.SigningKeyPath(c.serverName)
	current, err := c.client.ReadFile(ctx, path)
	if err == nil && bytes.Equal(current, key) {
		return false, nil
	}
	if err != nil && !workload.IsFileNotFound(err) {
		return false, fmt.Errorf("signingkey: reading current key: %w", err)
	}

	if err := c.client.PushFile(ctx, path, key); err != nil {
		return false, fmt.Errorf("signingkey: writing key file: %w", err)
	}
	c.logger.Info("wrote signing key file", "unit", c.self, "path", path)
	return true, nil
}
