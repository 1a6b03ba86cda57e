// Copyright (c) 2026 Keymaster Team
// Passmaster - terminal credential vault
// This source code is licensed under the MIT license found in the LICENSE file.
package security

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecretRedactionAndJSON(t *testing.T) {
	s := FromString("supersecret")
	assert.Equal(t, "[SECRET]", fmt.Sprintf("%v", s))
	assert.Equal(t, "[SECRET]", fmt.Sprintf("%#v", s))
	assert.Equal(t, "[SECRET]", fmt.Sprintf("%s", s))

	b, err := json.Marshal(struct {
		Value Secret `json:"value"`
	}{Value: s})
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":"[SECRET]"}`, string(b))
}

func TestSecretZero(t *testing.T) {
	s := FromString("abc123")
	(&s).Zero()
	err := s.Use(func(b []byte) error {
		for i := range b {
			if b[i] != 0 {
				return fmt.Errorf("byte %d not zeroed", i)
			}
		}
		return nil
	})
	require.NoError(t, err)

	// nil receivers are tolerated
	var nilSecret *Secret
	nilSecret.Zero()
	var empty Secret
	empty.Zero()
}

func TestSecretBytesAndCloneAreCopies(t *testing.T) {
	s := Secret([]byte("sensitive"))

	c := s.Bytes()
	c[0] = 'X'
	assert.Equal(t, byte('s'), s[0], "modifying copy affected original")

	clone := s.Clone()
	clone.Zero()
	assert.Equal(t, byte('s'), s[0], "zeroing clone affected original")

	assert.Nil(t, Secret(nil).Clone())
}

func TestFromBytesCopies(t *testing.T) {
	in := []byte("input")
	s := FromBytes(in)
	Wipe(in)
	assert.Equal(t, "input", string(s.Bytes()))
}

func TestSecretEqual(t *testing.T) {
	assert.True(t, FromString("same").Equal(FromString("same")))
	assert.False(t, FromString("same").Equal(FromString("diff")))
	assert.False(t, FromString("short").Equal(FromString("shorter")))
	assert.True(t, Secret(nil).Empty())
}
