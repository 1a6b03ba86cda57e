// Copyright (c) 2026 Keymaster Team
// Passmaster - terminal credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

// package state holds transient in-memory secrets that live for the length of
// an unlocked session, most importantly the record encryption key.
package state

import (
	"sync"

	"github.com/toeirei/passmaster/internal/security"
)

// KeyCache is a concurrency-safe holder for a single key. It stores its own
// copy so the caller's slice can be wiped independently, and wipes that copy
// on Clear or on replacement.
type KeyCache struct {
	mu    sync.RWMutex
	value security.Secret
}

// Set stores a copy of key, wiping any previous value.
func (c *KeyCache) Set(key security.Secret) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.value.Zero()
	if key == nil {
		c.value = nil
		return
	}
	c.value = key.Clone()
}

// With calls fn with the cached key without copying it. fn must not retain
// the slice, and Set or Clear wait until it returns. With returns false when
// the cache is empty.
func (c *KeyCache) With(fn func(key security.Secret)) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.value.Empty() {
		return false
	}
	fn(c.value)
	return true
}

// Present reports whether a key is cached.
func (c *KeyCache) Present() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.value.Empty()
}

// Clear wipes the cached key.
func (c *KeyCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value.Zero()
	c.value = nil
}
