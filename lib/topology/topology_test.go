// Copyright 2026 The Synod Authors
// SPDX-License-Identifier: Apache-2.0

package topology

import (
	"bytes"
	"errors"
	"strconv"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/synod-project/synod/lib/unit"
)

func TestBuildSingleUnitEmpty(t *testing.T) {
	m, err := Build("matrix-0.matrix-endpoints", []string{"matrix-0.matrix-endpoints"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if m.Len() != 0 {
		t.Errorf("single-unit topology has %d entries, want 0", m.Len())
	}
}

func TestBuildThreeUnits(t *testing.T) {
	addresses := []string{
		"matrix-0.matrix-endpoints",
		"matrix-1.matrix-endpoints",
		"matrix-2.matrix-endpoints",
	}
	m, err := Build("matrix-0.matrix-endpoints", addresses)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := []Entry{
		{Role: "main", Endpoint: Endpoint{Host: "matrix-0.matrix-endpoints", Port: 8035}},
		{Role: "federationsender1", Endpoint: Endpoint{Host: "matrix-0.matrix-endpoints", Port: 8034}},
		{Role: "worker1", Endpoint: Endpoint{Host: "matrix-1.matrix-endpoints", Port: 8034}},
		{Role: "worker2", Endpoint: Endpoint{Host: "matrix-2.matrix-endpoints", Port: 8034}},
	}
	got := m.Entries()
	if len(got) != len(want) {
		t.Fatalf("got %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestBuildEntryCount(t *testing.T) {
	// K units yield K+1 entries: main, federationsender1, K-1 workers.
	for _, k := range []int{2, 3, 5, 8} {
		addresses := make([]string, 0, k)
		for i := 0; i < k; i++ {
			addresses = append(addresses, unit.Address("app/"+strconv.Itoa(i), "app"))
		}
		m, err := Build(addresses[0], addresses)
		if err != nil {
			t.Fatalf("Build(k=%d): %v", k, err)
		}
		if m.Len() != k+1 {
			t.Errorf("Build(k=%d) has %d entries, want %d", k, m.Len(), k+1)
		}
	}
}

func TestBuildMalformedAddressFatal(t *testing.T) {
	addresses := []string{
		"matrix-0.matrix-endpoints",
		"badaddress.matrix-endpoints",
	}
	_, err := Build("matrix-0.matrix-endpoints", addresses)
	if err == nil {
		t.Fatal("Build accepted an address with no unit ID")
	}
	var malformed *unit.MalformedIdentityError
	if !errors.As(err, &malformed) {
		t.Errorf("error = %v, want *unit.MalformedIdentityError", err)
	}
}

func TestMarshalYAMLDeterministic(t *testing.T) {
	addresses := []string{
		"matrix-0.matrix-endpoints",
		"matrix-1.matrix-endpoints",
		"matrix-2.matrix-endpoints",
	}

	render := func() []byte {
		t.Helper()
		m, err := Build("matrix-0.matrix-endpoints", addresses)
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		data, err := yaml.Marshal(m)
		if err != nil {
			t.Fatalf("yaml.Marshal: %v", err)
		}
		return data
	}

	first := render()
	for i := 0; i < 10; i++ {
		if next := render(); !bytes.Equal(first, next) {
			t.Fatalf("rendering diverged:\n%s\nvs\n%s", first, next)
		}
	}

	// main must render before the workers.
	text := string(first)
	if !(bytes.HasPrefix(first, []byte("main:"))) {
		t.Errorf("rendering does not start with main role:\n%s", text)
	}
}

func TestLookup(t *testing.T) {
	m, err := Build("matrix-0.matrix-endpoints", []string{
		"matrix-0.matrix-endpoints",
		"matrix-1.matrix-endpoints",
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	endpoint, ok := m.Lookup("worker1")
	if !ok {
		t.Fatal("worker1 not found")
	}
	if endpoint.Host != "matrix-1.matrix-endpoints" || endpoint.Port != PortFederation {
		t.Errorf("worker1 endpoint = %+v", endpoint)
	}
	if _, ok := m.Lookup("worker0"); ok {
		t.Error("main unit present as a worker role")
	}
}
