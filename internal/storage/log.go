// Copyright (c) 2026 Keymaster Team
// Passmaster - terminal credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

package storage

import (
	"sync/atomic"

	"github.com/toeirei/passmaster/internal/logging"
)

var debugEnabled atomic.Bool

// SetDebug enables or disables storage debug logging. Disabled by default.
func SetDebug(enabled bool) {
	debugEnabled.Store(enabled)
}

func dbLogf(format string, v ...any) {
	if debugEnabled.Load() {
		logging.Debugf("[DB] "+format, v...)
	}
}
