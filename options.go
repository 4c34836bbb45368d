// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kmq

import "sync"

// Options configures channel creation.
type Options struct {
	// Capacity is the exact bound on buffered messages.
	capacity int

	// Buffer backend selection.
	linked bool
}

// Builder creates channels with fluent configuration.
//
// Example:
//
//	// Blocking channel, default ring buffer
//	tx, rx := kmq.Bounded[string, int](kmq.New(64))
//
//	// Context-aware channel, linked buffer
//	atx, arx := kmq.BoundedAsync[string, int](kmq.New(64).Linked())
type Builder struct {
	opts Options
}

// New creates a channel builder with the given capacity. The capacity
// is an exact bound: a producer committing an enqueue never observes
// more than capacity buffered messages.
//
// Panics if capacity < 1.
func New(capacity int) *Builder {
	if capacity < 1 {
		panic("kmq: capacity must be >= 1")
	}
	return &Builder{opts: Options{capacity: capacity}}
}

// Linked selects the doubly-linked buffer backend: O(1) mid-removal and
// no position renumbering, at the cost of a pointer chase per scanned
// message and a node allocation per enqueue. The default indexable ring
// moves elements on mid-removal but scans contiguously.
//
// The two backends are behaviorally identical.
func (b *Builder) Linked() *Builder {
	b.opts.linked = true
	return b
}

// Bounded creates the blocking flavor: a bounded keyed MPSC channel
// whose Send and Recv block the calling OS thread.
func Bounded[K comparable, V any](b *Builder) (*Sender[K, V], *Receiver[K, V]) {
	s := newShared[K, V](b.opts)
	c := &syncCoord{
		notFull:  sync.NewCond(&s.mu),
		notEmpty: sync.NewCond(&s.mu),
	}
	s.coord = c
	return &Sender[K, V]{s: s, c: c}, &Receiver[K, V]{s: s, c: c}
}

// BoundedAsync creates the context-aware flavor: a bounded keyed MPSC
// channel whose Send and Recv suspend cooperatively and honor context
// cancellation. The two flavors are distinct types and never mix within
// one channel.
func BoundedAsync[K comparable, V any](b *Builder) (*AsyncSender[K, V], *AsyncReceiver[K, V]) {
	s := newShared[K, V](b.opts)
	c := &asyncCoord{}
	s.coord = c
	return &AsyncSender[K, V]{s: s, c: c}, &AsyncReceiver[K, V]{s: s, c: c}
}

// NewBounded creates a blocking channel with the default ring buffer.
// Panics if capacity < 1.
func NewBounded[K comparable, V any](capacity int) (*Sender[K, V], *Receiver[K, V]) {
	return Bounded[K, V](New(capacity))
}

// NewBoundedAsync creates a context-aware channel with the default ring
// buffer. Panics if capacity < 1.
func NewBoundedAsync[K comparable, V any](capacity int) (*AsyncSender[K, V], *AsyncReceiver[K, V]) {
	return BoundedAsync[K, V](New(capacity))
}

func newShared[K comparable, V any](opts Options) *shared[K, V] {
	var buf keyedBuffer[K, V]
	if opts.linked {
		buf = newListBuffer[K, V]()
	} else {
		buf = newRingBuffer[K, V](opts.capacity)
	}
	return &shared[K, V]{
		buf:      buf,
		capacity: opts.capacity,
		senders:  1,
	}
}

// roundToPow2 rounds n up to the next power of 2, with a minimum of 2.
func roundToPow2(n int) int {
	if n < 2 {
		return 2
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}
