// Copyright 2026 The Synod Authors
// SPDX-License-Identifier: Apache-2.0

package peerstore

import (
	"context"
	"fmt"
	"sort"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/synod-project/synod/lib/unit"
)

// Etcd is a Store backed by an etcd cluster. Bucket entries live under
// /<app>/bucket/<key>; the membership registry under /<app>/units/
// holds one key per unit (value is the unit name), written by each
// unit's Register at startup and removed by the deployment tooling
// when a unit departs.
type Etcd struct {
	client *clientv3.Client
	app    string
	self   unit.Unit
}

// NewEtcd creates an Etcd store scoped to the application prefix.
func NewEtcd(client *clientv3.Client, app string, self unit.Unit) *Etcd {
	return &Etcd{client: client, app: app, self: self}
}

func (e *Etcd) bucketKey(key string) string {
	return "/" + e.app + "/bucket/" + key
}

func (e *Etcd) unitsPrefix() string {
	return "/" + e.app + "/units/"
}

// Get reads a bucket entry. Missing keys and empty values both report
// absent, matching the Matrix backend's cleared-entry convention.
func (e *Etcd) Get(ctx context.Context, key string) (string, bool, error) {
	resp, err := e.client.Get(ctx, e.bucketKey(key))
	if err != nil {
		return "", false, fmt.Errorf("peerstore: reading bucket key %q from etcd: %w", key, err)
	}
	if len(resp.Kvs) == 0 || len(resp.Kvs[0].Value) == 0 {
		return "", false, nil
	}
	return string(resp.Kvs[0].Value), true, nil
}

// Set writes a bucket entry.
func (e *Etcd) Set(ctx context.Context, key, value string) error {
	if _, err := e.client.Put(ctx, e.bucketKey(key), value); err != nil {
		return fmt.Errorf("peerstore: writing bucket key %q to etcd: %w", key, err)
	}
	return nil
}

// Register writes the local unit into the membership registry.
func (e *Etcd) Register(ctx context.Context) error {
	if _, err := e.client.Put(ctx, e.unitsPrefix()+e.self.Name, e.self.Name); err != nil {
		return fmt.Errorf("peerstore: registering %s in etcd: %w", e.self, err)
	}
	return nil
}

// Membership scans the units registry, ordered by unit ID. The local
// unit is always included even before its registry entry lands.
func (e *Etcd) Membership(ctx context.Context) ([]unit.Unit, error) {
	resp, err := e.client.Get(ctx, e.unitsPrefix(), clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("peerstore: listing units from etcd: %w", err)
	}

	seen := map[string]bool{e.self.Name: true}
	units := []unit.Unit{e.self}
	for _, kv := range resp.Kvs {
		name := string(kv.Value)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		units = append(units, unit.Unit{Name: name, App: e.self.App})
	}

	sort.Slice(units, func(i, j int) bool {
		a, errA := units[i].ID()
		b, errB := units[j].ID()
		if errA != nil || errB != nil {
			return units[i].Name < units[j].Name
		}
		return a < b
	})
	return units, nil
}
