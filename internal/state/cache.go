// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

// package state holds transient process-wide state that has to cross UI
// boundaries, such as the SSH key passphrase collected by a prompt in one
// component and consumed by a connection attempt in another.
package state

import "sync"

// PassphraseCache hands the SSH key passphrase from the component that
// prompted for it to the component that dials. Stored as bytes, never a
// string, so Clear can actually wipe it.
var PassphraseCache = &passphraseMailbox{}

type passphraseMailbox struct {
	mu    sync.RWMutex
	value []byte
}

// Set replaces the cached passphrase with a copy of pass. A nil pass
// empties the mailbox.
func (p *passphraseMailbox) Set(pass []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.value = cloneBytes(pass)
}

// Get returns a copy of the cached passphrase, nil when empty. Callers wipe
// their copy after use; wiping one copy cannot disturb another.
func (p *passphraseMailbox) Get() []byte {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return cloneBytes(p.value)
}

// Clear zeroes the cached passphrase and empties the mailbox.
func (p *passphraseMailbox) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.value {
		p.value[i] = 0
	}
	p.value = nil
}

// cloneBytes copies b, preserving nil.
func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
