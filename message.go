// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kmq

// keyReleaser returns a delivered message's keys to the channel.
// Implemented by the channel's shared state.
type keyReleaser[K comparable] interface {
	releaseKeys(keys KeySet[K])
}

// Message is a value paired with the keys it claims.
//
// A message received from a channel is a lease on its keys: while the
// consumer holds it, no other message sharing any of those keys is
// delivered. Call [Message.Release] when done with the payload so
// skipped messages become eligible again. Release is idempotent; a
// message that was never delivered releases nothing.
type Message[K comparable, V any] struct {
	value V
	keys  KeySet[K]
	// rel is installed when the message is removed from the buffer and
	// cleared by Release. It does not count as a handle: holding a
	// delivered message does not keep the channel connected.
	rel keyReleaser[K]
}

// NewMessage returns a message carrying value and claiming keys.
func NewMessage[K comparable, V any](value V, keys KeySet[K]) *Message[K, V] {
	return &Message[K, V]{value: value, keys: keys}
}

// Value returns the payload.
func (m *Message[K, V]) Value() V {
	return m.value
}

// Keys returns the distinct keys the message claims.
func (m *Message[K, V]) Keys() []K {
	return m.keys.Keys()
}

// Release returns the message's keys to the channel, waking the
// receiver if it is waiting for a skipped message to become eligible.
//
// Release is idempotent and a no-op on a message that was never
// delivered. It must not be called concurrently with itself for the
// same message.
func (m *Message[K, V]) Release() {
	if m.rel == nil {
		return
	}
	rel := m.rel
	m.rel = nil
	rel.releaseKeys(m.keys)
}
