// Copyright 2026 The Synod Authors
// SPDX-License-Identifier: Apache-2.0

// Package topology derives the role→endpoint map for a clustered
// homeserver from the current peer membership.
//
// The map is pure derived state: recomputed on every reconciliation,
// never persisted. Every unit computes it independently from the same
// membership list, and the rendered bytes must be identical across
// units — a divergent map misroutes replication requests. That is why
// an address with no extractable unit ID is a hard error rather than
// a skip, and why entry order is fixed.
package topology

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/synod-project/synod/lib/unit"
)

// Fixed listener ports of the workload processes.
const (
	// PortMain is the main process's replication API port.
	PortMain = 8035

	// PortFederation is the federation/worker replication port.
	PortFederation = 8034
)

// Endpoint is one process's replication listener.
type Endpoint struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
}

// Entry is one role in the topology map.
type Entry struct {
	Role     string
	Endpoint Endpoint
}

// Map is the ordered role→endpoint mapping. Order is main,
// federationsender1, then workers in membership order.
type Map struct {
	entries []Entry
}

// Build derives the topology from the main unit's address and the full
// ordered peer address list (main included). A single-unit group needs
// no internal routing and yields an empty map. Any address without an
// extractable numeric ID fails the whole derivation.
func Build(mainAddress string, addresses []string) (*Map, error) {
	if len(addresses) <= 1 {
		return &Map{}, nil
	}

	m := &Map{entries: []Entry{
		{Role: "main", Endpoint: Endpoint{Host: mainAddress, Port: PortMain}},
		{Role: "federationsender1", Endpoint: Endpoint{Host: mainAddress, Port: PortFederation}},
	}}

	for _, address := range addresses {
		if address == mainAddress {
			continue
		}
		id, err := unit.ParseID(address)
		if err != nil {
			return nil, fmt.Errorf("topology: deriving worker role for %q: %w", address, err)
		}
		m.entries = append(m.entries, Entry{
			Role:     fmt.Sprintf("worker%d", id),
			Endpoint: Endpoint{Host: address, Port: PortFederation},
		})
	}
	return m, nil
}

// Len returns the number of entries.
func (m *Map) Len() int { return len(m.entries) }

// Entries returns the entries in insertion order.
func (m *Map) Entries() []Entry {
	entries := make([]Entry, len(m.entries))
	copy(entries, m.entries)
	return entries
}

// Lookup returns the endpoint for a role.
func (m *Map) Lookup(role string) (Endpoint, bool) {
	for _, e := range m.entries {
		if e.Role == role {
			return e.Endpoint, true
		}
	}
	return Endpoint{}, false
}

// MarshalYAML renders the map as a YAML mapping with entries in
// insertion order. Go maps randomize iteration, so the rendering goes
// through an explicit node to keep the bytes identical across units.
func (m *Map) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, e := range m.entries {
		var endpoint yaml.Node
		if err := endpoint.Encode(e.Endpoint); err != nil {
			return nil, fmt.Errorf("topology: encoding endpoint for %s: %w", e.Role, err)
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: e.Role},
			&endpoint,
		)
	}
	return node, nil
}
