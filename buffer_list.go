// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kmq

// listBuffer is the linked backend: a doubly-linked sequence whose
// nodes carry monotonically increasing sequence numbers. Mid-removal is
// an O(1) unlink and, unlike the ring backend, recorded conflicts need
// no renumbering — the active index and the cursor hold node handles,
// ordered by sequence number.
//
// An active entry of nil means the key is held with no pending conflict
// recorded. A nil cursor means the scan is exhausted; the next push or
// rewinding release restores it.
type listBuffer[K comparable, V any] struct {
	head, tail *listNode[K, V]
	length     int
	nextSeq    uint64
	active     map[K]*listNode[K, V]
	cursor     *listNode[K, V]
}

type listNode[K comparable, V any] struct {
	msg        *Message[K, V]
	seq        uint64
	prev, next *listNode[K, V]
}

func newListBuffer[K comparable, V any]() *listBuffer[K, V] {
	return &listBuffer[K, V]{active: make(map[K]*listNode[K, V])}
}

func (b *listBuffer[K, V]) pushBack(m *Message[K, V]) {
	n := &listNode[K, V]{msg: m, seq: b.nextSeq}
	b.nextSeq++
	if b.tail == nil {
		b.head, b.tail = n, n
	} else {
		n.prev = b.tail
		b.tail.next = n
		b.tail = n
	}
	b.length++
	if b.cursor == nil {
		b.cursor = n
	}
	m.keys.each(func(k K) bool {
		if p, ok := b.active[k]; ok && p == nil {
			b.active[k] = n
		}
		return true
	})
}

func (b *listBuffer[K, V]) popEligible() *Message[K, V] {
	for n := b.cursor; n != nil; n = n.next {
		if b.conflicts(n) {
			continue
		}
		b.cursor = n.next
		b.unlink(n)
		n.msg.keys.each(func(k K) bool {
			b.active[k] = nil
			return true
		})
		return n.msg
	}
	return nil
}

// conflicts reports whether any of n's keys is active, recording n as
// the pending conflict for keys that have none yet or only a later one.
func (b *listBuffer[K, V]) conflicts(n *listNode[K, V]) bool {
	conflicted := false
	n.msg.keys.each(func(k K) bool {
		if p, ok := b.active[k]; ok {
			conflicted = true
			if p == nil || n.seq < p.seq {
				b.active[k] = n
			}
		}
		return true
	})
	return conflicted
}

func (b *listBuffer[K, V]) unlink(n *listNode[K, V]) {
	if n.prev == nil {
		b.head = n.next
	} else {
		n.prev.next = n.next
	}
	if n.next == nil {
		b.tail = n.prev
	} else {
		n.next.prev = n.prev
	}
	n.prev, n.next = nil, nil
	b.length--
}

func (b *listBuffer[K, V]) releaseKeys(keys KeySet[K]) {
	keys.each(func(k K) bool {
		n, ok := b.active[k]
		if !ok {
			return true
		}
		delete(b.active, k)
		if n != nil && (b.cursor == nil || n.seq < b.cursor.seq) {
			b.cursor = n
		}
		return true
	})
}

func (b *listBuffer[K, V]) len() int {
	return b.length
}
