// Copyright (c) 2026 Keymaster Team
// Passmaster - terminal credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

// Package clock abstracts time so timestamps and cooldowns can be tested.
package clock

import (
	"sync"
	"time"
)

// Clock provides an abstraction over time.Now for testability.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// System is the wall clock.
var System Clock = systemClock{}

var (
	mu           sync.RWMutex
	defaultClock Clock = systemClock{}
)

// Now returns the current time of the package default clock.
func Now() time.Time {
	mu.RLock()
	defer mu.RUnlock()
	return defaultClock.Now()
}

// Default returns the package default clock.
func Default() Clock {
	mu.RLock()
	defer mu.RUnlock()
	return defaultClock
}

// SetClock replaces the package default clock. Tests may set a fake clock.
func SetClock(c Clock) {
	mu.Lock()
	defer mu.Unlock()
	defaultClock = c
}

// ResetClock restores the system clock.
func ResetClock() { SetClock(systemClock{}) }

// Fake is a manually advanced clock.
type Fake struct {
	mu sync.Mutex
	t  time.Time
}

// NewFake returns a fake clock frozen at t.
func NewFake(t time.Time) *Fake { return &Fake{t: t} }

// Now returns the frozen time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

// Advance moves the clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}
