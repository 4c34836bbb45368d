// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kmq

import "sync"

// txStatus is the outcome of one locked attempt at the send or receive
// state machine.
type txStatus int

const (
	txReady   txStatus = iota
	txFull             // buffer at capacity
	txEmpty            // buffer empty, producers still connected
	txBlocked          // buffer non-empty but every message conflicts
	txDown             // disconnected
)

// coordinator is the wait/signal half of a channel flavor. The state
// machine is shared; only the suspension mechanism differs. Signals are
// always emitted after the state lock is released.
type coordinator interface {
	// signalData wakes one waiter on "data available": a message was
	// enqueued, or a key release may have made a skipped message
	// eligible.
	signalData()
	// signalSpace wakes one waiter on "space available".
	signalSpace()
	// wakeAll wakes every waiter on both conditions. Used on
	// disconnect transitions so all suspended producers and the
	// receiver observe closure promptly.
	wakeAll()
}

// shared is the single mutable kernel of a channel: the keyed buffer,
// the producer count, and the disconnected flag, all guarded by one
// mutex. The mutex is never held across a wait, a signal, or consumer
// code.
type shared[K comparable, V any] struct {
	mu           sync.Mutex
	buf          keyedBuffer[K, V]
	capacity     int
	senders      int
	disconnected bool
	coord        coordinator
}

// tryEnqueue attempts one pass of the send state machine. On txReady
// the message is in the buffer and one data waiter has been signaled.
// Active keys are not consulted: conflicts resolve at dequeue time.
func (s *shared[K, V]) tryEnqueue(m *Message[K, V]) txStatus {
	s.mu.Lock()
	if s.disconnected {
		s.mu.Unlock()
		return txDown
	}
	if s.buf.len() == s.capacity {
		s.mu.Unlock()
		return txFull
	}
	s.buf.pushBack(m)
	s.mu.Unlock()
	s.coord.signalData()
	return txReady
}

// tryDequeue attempts one pass of the receive state machine. On txReady
// the returned message carries the release back-reference and one space
// waiter has been signaled. txDown is reported only once the buffer is
// empty; a disconnected channel still drains.
func (s *shared[K, V]) tryDequeue() (*Message[K, V], txStatus) {
	s.mu.Lock()
	if s.buf.len() == 0 {
		down := s.disconnected
		s.mu.Unlock()
		if down {
			return nil, txDown
		}
		return nil, txEmpty
	}
	m := s.buf.popEligible()
	if m == nil {
		s.mu.Unlock()
		return nil, txBlocked
	}
	m.rel = s
	s.mu.Unlock()
	s.coord.signalSpace()
	return m, txReady
}

// releaseKeys implements keyReleaser. It returns a delivered message's
// keys to the buffer and wakes the receiver, which may be waiting for a
// previously skipped message to become eligible.
func (s *shared[K, V]) releaseKeys(keys KeySet[K]) {
	s.mu.Lock()
	s.buf.releaseKeys(keys)
	s.mu.Unlock()
	s.coord.signalData()
}

func (s *shared[K, V]) addSender() {
	s.mu.Lock()
	s.senders++
	s.mu.Unlock()
}

// dropSender retires one producer handle. The last one flips
// disconnected and wakes everyone so the receiver observes closure.
func (s *shared[K, V]) dropSender() {
	s.mu.Lock()
	s.senders--
	last := s.senders == 0
	if last {
		s.disconnected = true
	}
	s.mu.Unlock()
	if last {
		s.coord.wakeAll()
	}
}

// dropReceiver retires the receiver handle. Buffered messages are
// discarded with the channel; suspended producers observe closure.
func (s *shared[K, V]) dropReceiver() {
	s.mu.Lock()
	s.disconnected = true
	s.mu.Unlock()
	s.coord.wakeAll()
}

func (s *shared[K, V]) length() int {
	s.mu.Lock()
	n := s.buf.len()
	s.mu.Unlock()
	return n
}
