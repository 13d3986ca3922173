// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

// package security holds the Secret type used to move sensitive values
// (environment secrets, key passphrases) through the application without
// leaking them into logs, journal entries or JSON output.
package security

import (
	"fmt"
	"io"
)

// Secret wraps a sensitive value. Printing or marshaling a Secret always
// yields the redaction marker; the plaintext is only reachable through
// Reveal or Bytes.
type Secret struct {
	value []byte
}

// Redacted is what a Secret looks like everywhere it is rendered.
const Redacted = "[SECRET]"

// FromString wraps a plaintext value in a Secret.
func FromString(s string) Secret {
	return Secret{value: []byte(s)}
}

// FromBytes wraps a byte slice in a Secret. The slice is copied so the
// caller's buffer can be zeroed independently.
func FromBytes(b []byte) Secret {
	v := make([]byte, len(b))
	copy(v, b)
	return Secret{value: v}
}

// String implements fmt.Stringer and always redacts.
func (s Secret) String() string {
	return Redacted
}

// Format implements fmt.Formatter so every verb redacts, including %#v,
// which would otherwise dump the underlying bytes.
func (s Secret) Format(f fmt.State, c rune) {
	_, _ = io.WriteString(f, Redacted)
}

// MarshalJSON redacts the value in any JSON output.
func (s Secret) MarshalJSON() ([]byte, error) {
	return []byte(`"` + Redacted + `"`), nil
}

// Reveal returns the plaintext. Call sites should be few and deliberate.
func (s Secret) Reveal() string {
	return string(s.value)
}

// Bytes returns the underlying storage. After Zero it reads as zeroes.
func (s Secret) Bytes() []byte {
	return s.value
}

// IsEmpty reports whether the secret holds no value.
func (s Secret) IsEmpty() bool {
	return len(s.value) == 0
}

// Zero wipes the underlying storage in place.
func (s *Secret) Zero() {
	for i := range s.value {
		s.value[i] = 0
	}
}
