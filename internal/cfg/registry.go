// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

// Package cfg holds the process-wide storage registry the IFR form
// engine uniques its browser-storage descriptors against. Unlike a
// package-level singleton, callers construct and own a Registry
// explicitly - an embedding firmware with two independent browser
// sessions gets two registries.
package cfg

import (
	"sync"

	"github.com/thinkgos/edk2term/ifr"
)

// Registry dedupes ifr.Storage instances by ifr.Key across form-sets
// that share them, reference-counting each entry so the last releaser
// can free it.
type Registry struct {
	mu   sync.Mutex
	rows map[ifr.Key]*entry
}

type entry struct {
	storage *ifr.Storage
	refs    int
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{rows: make(map[ifr.Key]*entry)}
}

// Acquire returns the existing Storage registered under s's uniquing
// key, incrementing its refcount, or registers s itself as the first
// owner and returns it back.
func (sf *Registry) Acquire(s *ifr.Storage) *ifr.Storage {
	sf.mu.Lock()
	defer sf.mu.Unlock()

	key := ifr.StorageKey(s)
	if e, ok := sf.rows[key]; ok {
		e.refs++
		return e.storage
	}
	sf.rows[key] = &entry{storage: s, refs: 1}
	return s
}

// Release decrements the refcount for s's key and frees the entry when
// it reaches zero. It is a no-op if s was never acquired through this
// registry.
func (sf *Registry) Release(s *ifr.Storage) {
	sf.mu.Lock()
	defer sf.mu.Unlock()

	key := ifr.StorageKey(s)
	e, ok := sf.rows[key]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(sf.rows, key)
	}
}

// Len reports the number of distinct storages currently registered.
func (sf *Registry) Len() int {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	return len(sf.rows)
}
