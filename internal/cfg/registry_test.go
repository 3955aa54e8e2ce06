// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package cfg

import (
	"testing"

	"github.com/thinkgos/edk2term/ifr"
)

func TestRegistryAcquireDedupesByKey(t *testing.T) {
	var guid ifr.GUID
	copy(guid[:], []byte("0123456789ABCDEF"))

	r := New()
	a := &ifr.Storage{Type: ifr.StorageVariable, GUID: guid, Name: "Setup"}
	b := &ifr.Storage{Type: ifr.StorageVariable, GUID: guid, Name: "Setup"}

	got := r.Acquire(a)
	if got != a {
		t.Fatalf("first Acquire: want original storage back, got different pointer")
	}
	if r.Len() != 1 {
		t.Fatalf("want 1 registered storage, got %d", r.Len())
	}

	got2 := r.Acquire(b)
	if got2 != a {
		t.Fatalf("second Acquire: want the first-registered storage shared back, got a different one")
	}
	if r.Len() != 1 {
		t.Fatalf("want still 1 registered storage after dedup, got %d", r.Len())
	}
}

func TestRegistryReleaseFreesOnLastRef(t *testing.T) {
	var guid ifr.GUID
	copy(guid[:], []byte("FEDCBA9876543210"))

	r := New()
	s := &ifr.Storage{Type: ifr.StorageBuffer, GUID: guid, Name: "Buf", HIIHandle: 1}

	r.Acquire(s)
	r.Acquire(s)
	if r.Len() != 1 {
		t.Fatalf("want 1 registered storage, got %d", r.Len())
	}

	r.Release(s)
	if r.Len() != 1 {
		t.Fatalf("want entry to survive one Release of two refs, got len %d", r.Len())
	}
	r.Release(s)
	if r.Len() != 0 {
		t.Fatalf("want entry freed after matching Release count, got len %d", r.Len())
	}
}

func TestRegistryReleaseUnknownIsNoop(t *testing.T) {
	var guid ifr.GUID
	r := New()
	s := &ifr.Storage{Type: ifr.StorageNameValue, GUID: guid, HIIHandle: 7}
	r.Release(s) // never acquired
	if r.Len() != 0 {
		t.Fatalf("want 0 registered storages, got %d", r.Len())
	}
}

func TestRegistryKeyDistinguishesByType(t *testing.T) {
	var guid ifr.GUID
	copy(guid[:], []byte("ABCDEF0123456789"))

	r := New()
	variable := &ifr.Storage{Type: ifr.StorageVariable, GUID: guid, Name: "Same"}
	buffer := &ifr.Storage{Type: ifr.StorageBuffer, GUID: guid, Name: "Same"}

	r.Acquire(variable)
	r.Acquire(buffer)
	if r.Len() != 2 {
		t.Fatalf("want 2 distinct registered storages for different types, got %d", r.Len())
	}
}
