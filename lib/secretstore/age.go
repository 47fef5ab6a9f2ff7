// Copyright 2026 The Synod Authors
// SPDX-License-Identifier: Apache-2.0

package secretstore

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"

	"filippo.io/age"
)

// seal encrypts content to the given X25519 recipient keys and returns
// the base64-encoded ciphertext.
func seal(recipientKeys []string, content []byte) (string, error) {
	if len(recipientKeys) == 0 {
		return "", fmt.Errorf("secretstore: at least one recipient is required")
	}

	recipients := make([]age.Recipient, 0, len(recipientKeys))
	for _, key := range recipientKeys {
		recipient, err := age.ParseX25519Recipient(key)
		if err != nil {
			return "", fmt.Errorf("secretstore: parsing recipient key %q: %w", key, err)
		}
		recipients = append(recipients, recipient)
	}

	var ciphertext bytes.Buffer
	writer, err := age.Encrypt(&ciphertext, recipients...)
	if err != nil {
		return "", fmt.Errorf("secretstore: creating age encryptor: %w", err)
	}
	if _, err := writer.Write(content); err != nil {
		return "", fmt.Errorf("secretstore: sealing secret: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("secretstore: finalizing seal: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ciphertext.Bytes()), nil
}

// unseal decodes and decrypts a base64 age ciphertext with the unit's
// identity key, then verifies the plaintext against the
// content-addressed id. All recovery failures map to ErrNotFound: a
// secret this unit cannot read is, for the caller, a dangling
// reference.
func unseal(identityKey, encoded, id string) ([]byte, error) {
	identity, err := age.ParseX25519Identity(identityKey)
	if err != nil {
		return nil, fmt.Errorf("secretstore: parsing unit identity: %w", err)
	}

	rawCiphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed ciphertext: %v", ErrNotFound, err)
	}

	reader, err := age.Decrypt(bytes.NewReader(rawCiphertext), identity)
	if err != nil {
		return nil, fmt.Errorf("%w: unsealing failed: %v", ErrNotFound, err)
	}
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: reading unsealed content: %v", ErrNotFound, err)
	}

	// The ID is the content digest; a mismatch means the stored value
	// was overwritten with different content than its key claims.
	if SecretID(content) != id {
		return nil, fmt.Errorf("%w: content digest mismatch for %s", ErrNotFound, id)
	}
	return content, nil
}
