// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kmq

import (
	"sync"

	"code.hybscloud.com/atomix"
)

// syncCoord is the blocking coordinator: two condition variables on the
// channel's state mutex. Waits block the calling OS thread; spurious
// wakeups are benign because every waiter rechecks its predicate.
type syncCoord struct {
	notFull  *sync.Cond // space available
	notEmpty *sync.Cond // data available
}

func (c *syncCoord) signalData()  { c.notEmpty.Signal() }
func (c *syncCoord) signalSpace() { c.notFull.Signal() }

func (c *syncCoord) wakeAll() {
	c.notEmpty.Broadcast()
	c.notFull.Broadcast()
}

// Sender is the producing half of a blocking channel. Handles are
// cloneable: each live handle counts as one producer, and the channel
// disconnects when the last one is closed. A single handle may be used
// from multiple goroutines, but each goroutine-owned handle should be a
// Clone so producer accounting matches ownership.
type Sender[K comparable, V any] struct {
	s      *shared[K, V]
	c      *syncCoord
	closed atomix.Bool
}

// Send delivers m to the channel, blocking while the buffer is full.
// Returns ErrDisconnected if the receiver is gone; the message was not
// enqueued and remains usable by the caller. Send never consults active
// keys — conflicting messages enqueue freely and are resolved at
// receive time.
func (t *Sender[K, V]) Send(m *Message[K, V]) error {
	if t.closed.LoadAcquire() {
		panic("kmq: Send on closed Sender")
	}
	s := t.s
	s.mu.Lock()
	for s.buf.len() == s.capacity && !s.disconnected {
		t.c.notFull.Wait()
	}
	if s.disconnected {
		s.mu.Unlock()
		return ErrDisconnected
	}
	s.buf.pushBack(m)
	s.mu.Unlock()
	t.c.signalData()
	return nil
}

// TrySend is the non-blocking Send. Returns ErrWouldBlock when the
// buffer is full.
func (t *Sender[K, V]) TrySend(m *Message[K, V]) error {
	if t.closed.LoadAcquire() {
		panic("kmq: TrySend on closed Sender")
	}
	switch t.s.tryEnqueue(m) {
	case txReady:
		return nil
	case txDown:
		return ErrDisconnected
	default:
		return ErrWouldBlock
	}
}

// Clone returns a new producer handle for the same channel.
func (t *Sender[K, V]) Clone() *Sender[K, V] {
	if t.closed.LoadAcquire() {
		panic("kmq: Clone of closed Sender")
	}
	t.s.addSender()
	return &Sender[K, V]{s: t.s, c: t.c}
}

// Close retires this handle. Closing the last producer handle
// disconnects the channel: the receiver drains the buffer and then
// observes ErrDisconnected. Close is idempotent.
func (t *Sender[K, V]) Close() {
	if !t.closed.CompareAndSwapAcqRel(false, true) {
		return
	}
	t.s.dropSender()
}

// Cap returns the channel's capacity.
func (t *Sender[K, V]) Cap() int { return t.s.capacity }

// Len returns the number of buffered messages.
func (t *Sender[K, V]) Len() int { return t.s.length() }

// Receiver is the consuming half of a blocking channel. It is single:
// the channel delivers to exactly one receiver, and a message's release
// back-reference is installed during delivery, so concurrent receives
// would race on it. Concurrent use panics.
type Receiver[K comparable, V any] struct {
	s      *shared[K, V]
	c      *syncCoord
	closed atomix.Bool
	busy   atomix.Bool
}

// Recv returns the earliest buffered message whose keys are all free,
// blocking while the buffer is empty or every buffered message
// conflicts with a delivered-but-unreleased one. In the latter case the
// wakeup comes from Message.Release.
//
// Returns ErrDisconnected only once all senders are gone and the buffer
// has been drained.
func (r *Receiver[K, V]) Recv() (*Message[K, V], error) {
	if r.closed.LoadAcquire() {
		panic("kmq: Recv on closed Receiver")
	}
	if !r.busy.CompareAndSwapAcqRel(false, true) {
		panic("kmq: concurrent Recv on Receiver")
	}
	defer r.busy.StoreRelease(false)

	s := r.s
	s.mu.Lock()
	for {
		if s.buf.len() == 0 {
			if s.disconnected {
				s.mu.Unlock()
				return nil, ErrDisconnected
			}
			r.c.notEmpty.Wait()
			continue
		}
		m := s.buf.popEligible()
		if m == nil {
			// Non-empty but everything conflicts; a release will
			// signal data.
			r.c.notEmpty.Wait()
			continue
		}
		m.rel = s
		s.mu.Unlock()
		r.c.signalSpace()
		return m, nil
	}
}

// TryRecv is the non-blocking Recv. Returns ErrWouldBlock when the
// buffer is empty or nothing is eligible, and ErrDisconnected once the
// channel is disconnected and drained.
func (r *Receiver[K, V]) TryRecv() (*Message[K, V], error) {
	if r.closed.LoadAcquire() {
		panic("kmq: TryRecv on closed Receiver")
	}
	if !r.busy.CompareAndSwapAcqRel(false, true) {
		panic("kmq: concurrent TryRecv on Receiver")
	}
	defer r.busy.StoreRelease(false)

	m, st := r.s.tryDequeue()
	switch st {
	case txReady:
		return m, nil
	case txDown:
		return nil, ErrDisconnected
	default:
		return nil, ErrWouldBlock
	}
}

// Close retires the receiver and disconnects the channel: blocked and
// future sends return ErrDisconnected, and buffered messages are
// discarded. Messages already delivered stay valid; releasing them
// remains safe. Close is idempotent.
func (r *Receiver[K, V]) Close() {
	if !r.closed.CompareAndSwapAcqRel(false, true) {
		return
	}
	r.s.dropReceiver()
}

// Cap returns the channel's capacity.
func (r *Receiver[K, V]) Cap() int { return r.s.capacity }

// Len returns the number of buffered messages.
func (r *Receiver[K, V]) Len() int { return r.s.length() }
