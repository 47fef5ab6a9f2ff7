// Copyright 2026 The Synod Authors
// SPDX-License-Identifier: Apache-2.0

package unit

import (
	"fmt"
	"strconv"
	"strings"
)

// MalformedIdentityError reports a unit name from which no numeric ID
// could be extracted. Topology derivation treats this as fatal: a name
// the peers cannot agree on would yield divergent topology maps.
type MalformedIdentityError struct {
	// Name is the offending unit name or address.
	Name string
}

func (e *MalformedIdentityError) Error() string {
	return fmt.Sprintf("unit: no numeric ID in name %q", e.Name)
}

// ParseID extracts the numeric unit ID from a unit name or address.
// The ID is the trailing integer after the last "/" or "-" separator
// in the portion of the name before any ".". Both "app/3" and
// "app-3.app-endpoints" yield 3.
func ParseID(name string) (int, error) {
	head, _, _ := strings.Cut(name, ".")

	sep := strings.LastIndexByte(head, '/')
	if sep == -1 {
		sep = strings.LastIndexByte(head, '-')
	}

	id, err := strconv.Atoi(head[sep+1:])
	if err != nil {
		return 0, &MalformedIdentityError{Name: name}
	}
	return id, nil
}

// Address returns the canonical peer address for a unit name within an
// application: "/" becomes "-" and the endpoints suffix is appended.
// "matrix/0" in app "matrix" becomes "matrix-0.matrix-endpoints".
func Address(name, app string) string {
	return strings.ReplaceAll(name, "/", "-") + "." + app + "-endpoints"
}

// Unit is one member of the peer group, identified by its
// orchestrator-assigned name.
type Unit struct {
	// Name is the unit name as reported by membership, e.g. "matrix/0".
	Name string

	// App is the application the unit belongs to.
	App string
}

// ID returns the unit's numeric ID.
func (u Unit) ID() (int, error) {
	return ParseID(u.Name)
}

// Address returns the unit's canonical peer address.
func (u Unit) Address() string {
	return Address(u.Name, u.App)
}

func (u Unit) String() string {
	return u.Name
}
