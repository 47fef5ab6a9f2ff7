// Copyright 2026 The Synod Authors
// SPDX-License-Identifier: Apache-2.0

package secretstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/synod-project/synod/lib/schema"
	"github.com/synod-project/synod/messaging"
)

// sealedRoomStore is the subset of *messaging.Session the sealed store
// needs. Tests substitute a fake.
type sealedRoomStore interface {
	GetStateEvent(ctx context.Context, roomID, eventType, stateKey string) (json.RawMessage, error)
	SendStateEvent(ctx context.Context, roomID, eventType, stateKey string, content any) (string, error)
}

// Sealed stores secrets as age-sealed state events in the coordination
// room. Ciphertext is sealed to every peer recipient key so that any
// unit can recover the plaintext with its own identity; the room (and
// the homeserver) only ever holds ciphertext.
type Sealed struct {
	session sealedRoomStore
	roomID  string

	// recipients are the age X25519 public keys of all peer units.
	recipients []string

	// identity is this unit's age private key, used for Fetch.
	identity string
}

// NewSealed creates a Sealed store. Create requires at least one
// recipient; Fetch requires the identity.
func NewSealed(session sealedRoomStore, roomID string, recipients []string, identity string) *Sealed {
	return &Sealed{session: session, roomID: roomID, recipients: recipients, identity: identity}
}

// Create seals content to the peer recipients and writes it under its
// content-addressed ID. Re-creating existing content overwrites the
// event with an identical plaintext, which is harmless.
func (s *Sealed) Create(ctx context.Context, content []byte) (string, error) {
	ciphertext, err := seal(s.recipients, content)
	if err != nil {
		return "", err
	}

	id := SecretID(content)
	event := schema.SealedSecretContent{Ciphertext: ciphertext}
	if _, err := s.session.SendStateEvent(ctx, s.roomID, schema.EventTypeSealedSecret, id, event); err != nil {
		return "", fmt.Errorf("secretstore: publishing sealed secret: %w", err)
	}
	return id, nil
}

// Fetch reads and unseals the secret for an ID. A missing event, a
// malformed ciphertext, or content that fails to decrypt all map to
// ErrNotFound — from the caller's perspective the reference dangles
// either way.
func (s *Sealed) Fetch(ctx context.Context, id string) ([]byte, error) {
	raw, err := s.session.GetStateEvent(ctx, s.roomID, schema.EventTypeSealedSecret, id)
	if err != nil {
		if messaging.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("secretstore: reading sealed secret %s: %w", id, err)
	}

	var event schema.SealedSecretContent
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, fmt.Errorf("%w: malformed event: %v", ErrNotFound, err)
	}

	return unseal(s.identity, event.Ciphertext, id)
}
