// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kmq

import (
	"context"

	"code.hybscloud.com/atomix"
)

// asyncCoord is the suspending coordinator: two events providing the
// blocking coordinator's contract without parking an OS thread. Waiters
// select on a notification channel alongside their context.
type asyncCoord struct {
	space event // space available
	data  event // data available
}

func (c *asyncCoord) signalData()  { c.data.notifyOne() }
func (c *asyncCoord) signalSpace() { c.space.notifyOne() }

func (c *asyncCoord) wakeAll() {
	c.data.notifyAll()
	c.space.notifyAll()
}

// AsyncSender is the producing half of a context-aware channel. Same
// cloning and accounting semantics as [Sender].
type AsyncSender[K comparable, V any] struct {
	s      *shared[K, V]
	c      *asyncCoord
	closed atomix.Bool
}

// Send delivers m, suspending while the buffer is full. Cancellation
// returns ctx.Err() with no side effects: the message was not enqueued
// and remains usable by the caller. Once the message is published the
// send has succeeded and cancellation no longer applies.
func (t *AsyncSender[K, V]) Send(ctx context.Context, m *Message[K, V]) error {
	if t.closed.LoadAcquire() {
		panic("kmq: Send on closed AsyncSender")
	}
	for {
		switch t.s.tryEnqueue(m) {
		case txReady:
			return nil
		case txDown:
			return ErrDisconnected
		}
		w := t.c.space.subscribe()
		// Recheck after subscribing: a space signal emitted since the
		// attempt above would otherwise be lost.
		switch t.s.tryEnqueue(m) {
		case txReady:
			t.c.space.cancel(w)
			return nil
		case txDown:
			t.c.space.cancel(w)
			return ErrDisconnected
		}
		select {
		case <-w.ready:
		case <-ctx.Done():
			t.c.space.cancel(w)
			return ctx.Err()
		}
	}
}

// TrySend is the non-suspending Send. Returns ErrWouldBlock when the
// buffer is full.
func (t *AsyncSender[K, V]) TrySend(m *Message[K, V]) error {
	if t.closed.LoadAcquire() {
		panic("kmq: TrySend on closed AsyncSender")
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
func (t *AsyncSender[K, V]) Clone() *AsyncSender[K, V] {
	if t.closed.LoadAcquire() {
		panic("kmq: Clone of closed AsyncSender")
	}
	t.s.addSender()
	return &AsyncSender[K, V]{s: t.s, c: t.c}
}

// Close retires this handle; the last one disconnects the channel.
// Close is idempotent.
func (t *AsyncSender[K, V]) Close() {
	if !t.closed.CompareAndSwapAcqRel(false, true) {
		return
	}
	t.s.dropSender()
}

// Cap returns the channel's capacity.
func (t *AsyncSender[K, V]) Cap() int { return t.s.capacity }

// Len returns the number of buffered messages.
func (t *AsyncSender[K, V]) Len() int { return t.s.length() }

// AsyncReceiver is the consuming half of a context-aware channel.
// Single, like [Receiver]: concurrent receives panic.
type AsyncReceiver[K comparable, V any] struct {
	s      *shared[K, V]
	c      *asyncCoord
	closed atomix.Bool
	busy   atomix.Bool
}

// Recv returns the earliest eligible message, suspending while the
// buffer is empty or everything buffered conflicts with delivered
// messages. Cancellation returns ctx.Err() without consuming anything;
// a wakeup the waiter had already absorbed is forwarded so it is not
// lost.
//
// Returns ErrDisconnected only once all senders are gone and the buffer
// has been drained.
func (r *AsyncReceiver[K, V]) Recv(ctx context.Context) (*Message[K, V], error) {
	if r.closed.LoadAcquire() {
		panic("kmq: Recv on closed AsyncReceiver")
	}
	if !r.busy.CompareAndSwapAcqRel(false, true) {
		panic("kmq: concurrent Recv on AsyncReceiver")
	}
	defer r.busy.StoreRelease(false)

	for {
		m, st := r.s.tryDequeue()
		switch st {
		case txReady:
			return m, nil
		case txDown:
			return nil, ErrDisconnected
		}
		w := r.c.data.subscribe()
		// Recheck after subscribing so a data signal emitted since the
		// attempt above is not lost.
		m, st = r.s.tryDequeue()
		if st == txReady || st == txDown {
			r.c.data.cancel(w)
			if st == txReady {
				return m, nil
			}
			return nil, ErrDisconnected
		}
		select {
		case <-w.ready:
		case <-ctx.Done():
			r.c.data.cancel(w)
			return nil, ctx.Err()
		}
	}
}

// TryRecv is the non-suspending Recv. Returns ErrWouldBlock when the
// buffer is empty or nothing is eligible, and ErrDisconnected once the
// channel is disconnected and drained.
func (r *AsyncReceiver[K, V]) TryRecv() (*Message[K, V], error) {
	if r.closed.LoadAcquire() {
		panic("kmq: TryRecv on closed AsyncReceiver")
	}
	if !r.busy.CompareAndSwapAcqRel(false, true) {
		panic("kmq: concurrent TryRecv on AsyncReceiver")
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

// Close retires the receiver and disconnects the channel. Close is
// idempotent.
func (r *AsyncReceiver[K, V]) Close() {
	if !r.closed.CompareAndSwapAcqRel(false, true) {
		return
	}
	r.s.dropReceiver()
}

// Cap returns the channel's capacity.
func (r *AsyncReceiver[K, V]) Cap() int { return r.s.capacity }

// Len returns the number of buffered messages.
func (r *AsyncReceiver[K, V]) Len() int { return r.s.length() }
