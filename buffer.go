// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kmq

// keyedBuffer is the conflict-aware FIFO shared by both channel
// flavors. Implementations keep messages in arrival order, track which
// keys are held by delivered-but-unreleased messages, and skip
// conflicting messages at dequeue time.
//
// Callers serialize all access (the channel's state lock).
type keyedBuffer[K comparable, V any] interface {
	// pushBack appends m. The caller guarantees the buffer is below
	// capacity. If any of m's keys is active with no pending conflict
	// recorded yet, m becomes that key's recorded conflict.
	pushBack(m *Message[K, V])

	// popEligible removes and returns the earliest message none of
	// whose keys is active, marking its keys active. Returns nil when
	// no buffered message is eligible (the buffer may still be
	// non-empty).
	popEligible() *Message[K, V]

	// releaseKeys deactivates every key in keys. If a released key had
	// a recorded conflict, the scan resumes no later than that
	// message's position.
	releaseKeys(keys KeySet[K])

	len() int
}

// noConflict marks a key as active with no pending conflict recorded.
const noConflict = -1

// ringBuffer is the indexable backend: a power-of-2 ring with logical
// positions 0..length-1 relative to head. Removing a message from the
// middle shifts the shorter side of the ring and renumbers the
// positions above the removal point.
//
// active maps each key of a delivered-but-unreleased message to the
// logical position of the earliest buffered message seen to claim it
// since the key became active (by a scan or a push), or noConflict when
// none has been seen. cursor is the logical
// position where the next eligibility scan starts: everything below it
// conflicts with at least one active key.
type ringBuffer[K comparable, V any] struct {
	slots  []*Message[K, V]
	mask   int
	head   int
	length int
	active map[K]int
	cursor int
}

func newRingBuffer[K comparable, V any](capacity int) *ringBuffer[K, V] {
	n := roundToPow2(capacity)
	return &ringBuffer[K, V]{
		slots:  make([]*Message[K, V], n),
		mask:   n - 1,
		active: make(map[K]int),
	}
}

func (b *ringBuffer[K, V]) at(pos int) *Message[K, V] {
	return b.slots[(b.head+pos)&b.mask]
}

func (b *ringBuffer[K, V]) pushBack(m *Message[K, V]) {
	pos := b.length
	b.slots[(b.head+pos)&b.mask] = m
	b.length++
	m.keys.each(func(k K) bool {
		if p, ok := b.active[k]; ok && p == noConflict {
			b.active[k] = pos
		}
		return true
	})
}

func (b *ringBuffer[K, V]) popEligible() *Message[K, V] {
	for pos := b.cursor; pos < b.length; pos++ {
		m := b.at(pos)
		if b.conflicts(m, pos) {
			continue
		}
		b.removeAt(pos)
		m.keys.each(func(k K) bool {
			b.active[k] = noConflict
			return true
		})
		// The removed slot's successor now sits at pos; positions
		// above it shifted down by one.
		b.cursor = pos
		for k, p := range b.active {
			if p > pos {
				b.active[k] = p - 1
			}
		}
		return m
	}
	return nil
}

// conflicts reports whether any of m's keys is active. The earliest
// scanned conflict per key is recorded so a later release can rewind
// the cursor to it.
func (b *ringBuffer[K, V]) conflicts(m *Message[K, V], pos int) bool {
	conflicted := false
	m.keys.each(func(k K) bool {
		if p, ok := b.active[k]; ok {
			conflicted = true
			if p == noConflict || pos < p {
				b.active[k] = pos
			}
		}
		return true
	})
	return conflicted
}

// removeAt deletes the message at logical position pos, shifting
// whichever side of the ring is shorter.
func (b *ringBuffer[K, V]) removeAt(pos int) {
	if pos < b.length-1-pos {
		for i := pos; i > 0; i-- {
			b.slots[(b.head+i)&b.mask] = b.slots[(b.head+i-1)&b.mask]
		}
		b.slots[b.head] = nil
		b.head = (b.head + 1) & b.mask
	} else {
		for i := pos; i < b.length-1; i++ {
			b.slots[(b.head+i)&b.mask] = b.slots[(b.head+i+1)&b.mask]
		}
		b.slots[(b.head+b.length-1)&b.mask] = nil
	}
	b.length--
}

func (b *ringBuffer[K, V]) releaseKeys(keys KeySet[K]) {
	keys.each(func(k K) bool {
		p, ok := b.active[k]
		if !ok {
			return true
		}
		delete(b.active, k)
		if p != noConflict && p < b.cursor {
			b.cursor = p
		}
		return true
	})
}

func (b *ringBuffer[K, V]) len() int {
	return b.length
}
