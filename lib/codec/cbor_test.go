// Copyright 2026 The Synod Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"testing"
)

func TestDeterministicMapEncoding(t *testing.T) {
	value := map[string]int{"worker2": 8034, "main": 8035, "federationsender1": 8034}

	first, err := Marshal(value)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for i := 0; i < 20; i++ {
		next, err := Marshal(value)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, next) {
			t.Fatal("map encoding is not deterministic")
		}
	}
}

func TestRoundTrip(t *testing.T) {
	type request struct {
		Action string `cbor:"action"`
		Path   string `cbor:"path,omitempty"`
		Data   []byte `cbor:"data,omitempty"`
	}
	in := request{Action: "push-file", Path: "/data/homeserver.yaml", Data: []byte("server_name: example.test\n")}

	encoded, err := Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var out request
	if err := Unmarshal(encoded, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out.Action != in.Action || out.Path != in.Path || !bytes.Equal(out.Data, in.Data) {
		t.Errorf("round trip mismatch: %+v vs %+v", in, out)
	}
}

func TestAnyMapDecoding(t *testing.T) {
	encoded, err := Marshal(map[string]any{"status": "running"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded any
	if err := Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	m, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("decoded type = %T, want map[string]any", decoded)
	}
	if m["status"] != "running" {
		t.Errorf("status = %v, want running", m["status"])
	}
}
