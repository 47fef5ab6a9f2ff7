// Copyright 2026 The Synod Authors
// SPDX-License-Identifier: Apache-2.0

package workload

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"

	"github.com/synod-project/synod/lib/codec"
)

// FileSpec is one file of the desired configuration.
type FileSpec struct {
	// Path is the absolute path inside the workload filesystem.
	Path string `cbor:"path"`

	// Data is the full file content.
	Data []byte `cbor:"data"`
}

// ProcessSpec is one supervised process definition.
type ProcessSpec struct {
	// Name identifies the process to the supervisor.
	Name string `cbor:"name"`

	// Command is the full command line.
	Command string `cbor:"command"`

	// Environment is the process environment. CBOR deterministic
	// encoding sorts the keys, so the map does not perturb the digest.
	Environment map[string]string `cbor:"environment,omitempty"`
}

// Desired is the complete configuration to converge the workload to:
// an ordered file set plus the process definitions. It is recomputed
// from scratch on every reconciliation and applied wholesale — there
// is no partial apply.
type Desired struct {
	Files     []FileSpec    `cbor:"files"`
	Processes []ProcessSpec `cbor:"processes"`
}

// Hash returns the blake3 hex digest of the deterministic CBOR
// encoding. Two Desired values with the same digest render identical
// workload state; the orchestrator uses this to detect and log no-op
// applies.
func (d *Desired) Hash() (string, error) {
	encoded, err := codec.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("workload: encoding desired config: %w", err)
	}
	sum := blake3.Sum256(encoded)
	return hex.EncodeToString(sum[:]), nil
}
