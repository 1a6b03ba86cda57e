// Copyright (c) 2026 Keymaster Team
// Passmaster - terminal credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

package session

import "time"

// Policy is the exponential backoff applied to failed unlock attempts.
type Policy struct {
	// Threshold is the number of consecutive failures tolerated before a
	// cooldown starts.
	Threshold int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// DefaultPolicy allows three attempts, then waits 1s, 2s, 4s... up to 5m.
func DefaultPolicy() Policy {
	return Policy{Threshold: 3, BaseDelay: time.Second, MaxDelay: 5 * time.Minute}
}

// Delay returns the cooldown armed after the given number of consecutive
// failures: zero below Threshold, then BaseDelay doubled per extra failure,
// capped at MaxDelay.
func (p Policy) Delay(failures int) time.Duration {
	if p.Threshold <= 0 || failures < p.Threshold || p.BaseDelay <= 0 {
		return 0
	}
	d := p.BaseDelay
	for i := p.Threshold; i < failures; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}
