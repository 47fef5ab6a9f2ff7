// Copyright 2026 The Synod Authors
// SPDX-License-Identifier: Apache-2.0

package signingkey

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/synod-project/synod/lib/peerstore"
	"github.com/synod-project/synod/lib/schema"
	"github.com/synod-project/synod/lib/secretstore"
	"github.com/synod-project/synod/lib/unit"
	"github.com/synod-project/synod/lib/workload"
)

const testServerName = "example.com"

type coordinatorEnv struct {
	bucket      *peerstore.Memory
	secrets     *secretstore.Memory
	client      *workload.Fake
	coordinator *Coordinator
}

func newCoordinatorEnv(t *testing.T) *coordinatorEnv {
	t.Helper()
	env := &coordinatorEnv{
		bucket:  peerstore.NewMemory(unit.Unit{Name: "matrix/0", App: "matrix"}),
		secrets: secretstore.NewMemory(),
		client:  workload.NewFake(),
	}
	env.coordinator = NewCoordinator(Config{
		Bucket:     env.bucket,
		Secrets:    env.secrets,
		Client:     env.client,
		Self:       unit.Unit{Name: "matrix/0", App: "matrix"},
		ServerName: testServerName,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return env
}

func keyPath() string {
	return workload.SigningKeyPath(testServerName)
}

func TestEnsureMainCapturesGeneratedKey(t *testing.T) {
	env := newCoordinatorEnv(t)
	generated := []byte("ed25519 a_key AAAA\n")
	env.client.SetFile(keyPath(), generated)

	changed, err := env.coordinator.Ensure(context.Background(), true, true)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if changed {
		t.Error("workload already holds the key, no write expected")
	}

	ref, ok, err := env.bucket.Get(context.Background(), schema.KeySigningKeyRef)
	if err != nil || !ok {
		t.Fatalf("key reference not published: ok=%v err=%v", ok, err)
	}
	stored, err := env.secrets.Fetch(context.Background(), ref)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !bytes.Equal(stored, generated) {
		t.Errorf("stored secret = %q, want %q", stored, generated)
	}
}

func TestEnsureMainBlocksWithoutKeyFile(t *testing.T) {
	env := newCoordinatorEnv(t)

	_, err := env.coordinator.Ensure(context.Background(), true, true)
	if !errors.Is(err, ErrKeyUnavailable) {
		t.Fatalf("err = %v, want ErrKeyUnavailable", err)
	}
	if env.secrets.Creates != 0 {
		t.Errorf("Creates = %d, want 0", env.secrets.Creates)
	}
}

func TestEnsureNonMainWaitsForSharedKey(t *testing.T) {
	env := newCoordinatorEnv(t)

	changed, err := env.coordinator.Ensure(context.Background(), false, true)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if changed {
		t.Error("non-main unit wrote a key with no shared secret")
	}
	if _, err := env.client.ReadFile(context.Background(), keyPath()); !errors.Is(err, workload.ErrFileNotFound) {
		t.Errorf("key file should not exist, got err=%v", err)
	}
}

func TestEnsureNonMainWritesSharedKey(t *testing.T) {
	env := newCoordinatorEnv(t)
	shared := []byte("ed25519 a_key BBBB\n")
	id, err := env.secrets.Create(context.Background(), shared)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := env.bucket.Set(context.Background(), schema.KeySigningKeyRef, id); err != nil {
		t.Fatalf("Set: %v", err)
	}

	changed, err := env.coordinator.Ensure(context.Background(), false, true)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if !changed {
		t.Fatal("expected key file write")
	}
	written, err := env.client.ReadFile(context.Background(), keyPath())
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(written, shared) {
		t.Errorf("written key = %q, want %q", written, shared)
	}
}

func TestEnsureSharedKeyOverridesLocal(t *testing.T) {
	env := newCoordinatorEnv(t)
	shared := []byte("ed25519 a_key SHARED\n")
	id, err := env.secrets.Create(context.Background(), shared)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := env.bucket.Set(context.Background(), schema.KeySigningKeyRef, id); err != nil {
		t.Fatalf("Set: %v", err)
	}
	env.client.SetFile(keyPath(), []byte("ed25519 a_key LOCAL\n"))

	changed, err := env.coordinator.Ensure(context.Background(), true, true)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if !changed {
		t.Fatal("local key differs from shared, expected overwrite")
	}
	written, _ := env.client.ReadFile(context.Background(), keyPath())
	if !bytes.Equal(written, shared) {
		t.Errorf("written key = %q, want shared %q", written, shared)
	}
	if env.secrets.Creates != 1 {
		t.Errorf("Creates = %d, want 1 (shared secret only)", env.secrets.Creates)
	}
}

func TestEnsureIdempotent(t *testing.T) {
	env := newCoordinatorEnv(t)
	env.client.SetFile(keyPath(), []byte("ed25519 a_key AAAA\n"))

	if _, err := env.coordinator.Ensure(context.Background(), true, true); err != nil {
		t.Fatalf("first Ensure: %v", err)
	}
	changed, err := env.coordinator.Ensure(context.Background(), true, true)
	if err != nil {
		t.Fatalf("second Ensure: %v", err)
	}
	if changed {
		t.Error("steady-state Ensure rewrote the key file")
	}
	if env.secrets.Creates != 1 {
		t.Errorf("Creates = %d, want 1 (content-addressed dedupe)", env.secrets.Creates)
	}
}

func TestEnsureDanglingReference(t *testing.T) {
	env := newCoordinatorEnv(t)
	generated := []byte("ed25519 a_key REGEN\n")
	env.client.SetFile(keyPath(), generated)

	id, err := env.secrets.Create(context.Background(), []byte("ed25519 a_key GONE\n"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := env.bucket.Set(context.Background(), schema.KeySigningKeyRef, id); err != nil {
		t.Fatalf("Set: %v", err)
	}
	env.secrets.Delete(id)

	if _, err := env.coordinator.Ensure(context.Background(), true, true); err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	ref, ok, err := env.bucket.Get(context.Background(), schema.KeySigningKeyRef)
	if err != nil || !ok {
		t.Fatalf("reference not republished: ok=%v err=%v", ok, err)
	}
	if ref == id {
		t.Error("dangling reference was not replaced")
	}
	recovered, err := env.secrets.Fetch(context.Background(), ref)
	if err != nil {
		t.Fatalf("Fetch republished secret: %v", err)
	}
	if !bytes.Equal(recovered, generated) {
		t.Errorf("republished secret = %q, want local key %q", recovered, generated)
	}
}

func TestEnsureMainWithoutLeadershipDoesNotPublish(t *testing.T) {
	env := newCoordinatorEnv(t)
	env.client.SetFile(keyPath(), []byte("ed25519 a_key FLAP\n"))

	changed, err := env.coordinator.Ensure(context.Background(), true, false)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if changed {
		t.Error("Ensure changed the key file without leadership")
	}
	if _, ok, _ := env.bucket.Get(context.Background(), schema.KeySigningKeyRef); ok {
		t.Error("reference published to the bucket without leadership")
	}
	if env.secrets.Creates != 0 {
		t.Errorf("Creates = %d, want 0 without leadership", env.secrets.Creates)
	}
}

func TestEnsureDanglingReferenceKeptWithoutLeadership(t *testing.T) {
	env := newCoordinatorEnv(t)
	env.client.SetFile(keyPath(), []byte("ed25519 a_key LOCAL\n"))

	id, err := env.secrets.Create(context.Background(), []byte("ed25519 a_key GONE\n"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := env.bucket.Set(context.Background(), schema.KeySigningKeyRef, id); err != nil {
		t.Fatalf("Set: %v", err)
	}
	env.secrets.Delete(id)

	if _, err := env.coordinator.Ensure(context.Background(), true, false); err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	ref, ok, err := env.bucket.Get(context.Background(), schema.KeySigningKeyRef)
	if err != nil || !ok {
		t.Fatalf("Get reference: ok=%v err=%v", ok, err)
	}
	if ref != id {
		t.Errorf("reference = %q, want the dangling %q left for the leader", ref, id)
	}
}
