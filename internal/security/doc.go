// Copyright (c) 2026 Keymaster Team
// Passmaster - terminal credential vault
// This source code is licensed under the MIT license found in the LICENSE file.
//
// Package security provides lightweight secret handling helpers used to keep
// sensitive data in redacting wrappers and to zero key material once it is no
// longer needed.
package security
