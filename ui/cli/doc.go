// Copyright (c) 2026 Keymaster Team
// Passmaster - terminal credential vault
// This source code is licensed under the MIT license found in the LICENSE file.
//
// Package cli implements the Passmaster command line using Cobra. It loads
// configuration, opens storage, seeds the in-memory vault and hands every
// credential operation to a session controller. Commands stay thin; the
// vault rules live in internal/vault and internal/session.
package cli
