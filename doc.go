// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package kmq provides a bounded, keyed multi-producer single-consumer
// channel.
//
// kmq is a FIFO message queue with a twist: every message declares one
// or more keys naming the logical resources it touches, and the channel
// guarantees that at any time at most one in-flight (delivered but not
// yet released) message holds any given key. A buffered message that
// conflicts with an in-flight one is skipped; the receiver gets the
// earliest non-conflicting message instead. Releasing a delivered
// message frees its keys and makes skipped messages eligible again.
//
// # Quick Start
//
//	tx, rx := kmq.NewBounded[string, int](64)
//
//	// Producers (any number, clone per goroutine)
//	go func(tx *kmq.Sender[string, int]) {
//	    defer tx.Close()
//	    tx.Send(kmq.NewMessage(1, kmq.SingleKey("account-7")))
//	}(tx.Clone())
//	tx.Close()
//
//	// The single consumer
//	for {
//	    m, err := rx.Recv()
//	    if err != nil {
//	        break // kmq.ErrDisconnected: all senders gone, buffer drained
//	    }
//	    process(m.Value())
//	    m.Release() // frees m's keys; skipped messages become eligible
//	}
//
// # Keys and Conflicts
//
// A message claims a single key or a set of keys:
//
//	kmq.NewMessage(v, kmq.SingleKey("user-1"))
//	kmq.NewMessage(v, kmq.MultiKey("user-1", "user-2"))
//
// Two messages conflict iff their key sets intersect. Delivery is FIFO
// among eligible messages: order is preserved except where a conflict
// forces a skip, and a skipped message is delivered as soon as its keys
// are free, ahead of anything enqueued after it that is also eligible.
// A delivered message is a lease on its keys — hold it for as long as
// the resource must stay exclusive, then Release it. Sending never
// consults active keys; producers are fully decoupled from consumer
// progress.
//
// # Blocking and Context-Aware Flavors
//
// Two flavors share the same buffer and policy and differ only in how
// they suspend:
//
//	tx, rx := kmq.NewBounded[K, V](cap)       // Send/Recv block the OS thread
//	atx, arx := kmq.NewBoundedAsync[K, V](cap) // Send/Recv take a context
//
// The context-aware flavor parks on notification channels instead of
// condition variables, so a suspended operation is cancellable:
//
//	m, err := arx.Recv(ctx) // err == ctx.Err() on cancellation
//
// A cancelled Send has no side effects — the message was not enqueued
// and remains usable. A Send that already published its message has
// succeeded; cancellation no longer applies. The flavors are distinct
// types and never mix within one channel.
//
// # Backpressure
//
// The buffer is strictly bounded. Send blocks (or suspends) while the
// buffer holds cap messages; TrySend returns [ErrWouldBlock] instead:
//
//	backoff := iox.Backoff{}
//	for kmq.IsWouldBlock(tx.TrySend(m)) {
//	    backoff.Wait()
//	}
//
// # Disconnection
//
// Closing the receiver makes every pending and future send return
// [ErrDisconnected] with the message still owned by the caller. Closing
// the last sender lets the receiver drain the buffer (conflict rules
// still apply) and then observe [ErrDisconnected] forever.
//
// # Buffer Backends
//
// Two behaviorally identical backends are selectable at construction:
//
//	kmq.Bounded[K, V](kmq.New(cap))          // indexable ring (default)
//	kmq.Bounded[K, V](kmq.New(cap).Linked()) // doubly-linked sequence
//
// The ring scans contiguously and shifts elements on mid-removal; the
// linked backend unlinks in O(1) and chases pointers. Both track the
// leftmost pending conflict per active key and rewind the scan cursor
// on release only as far as necessary, so heavily conflicting workloads
// avoid rescanning the whole buffer on every receive.
//
// # Thread Safety
//
//   - Sender/AsyncSender: any number of handles, concurrent sends safe.
//     Clone a handle per producing goroutine so the producer count
//     tracks ownership; Close each clone.
//   - Receiver/AsyncReceiver: single. Concurrent Recv/TryRecv panics —
//     delivery installs the message's release back-reference, which a
//     second receiver would race on.
//   - Message: Release is idempotent but not concurrency-safe for the
//     same message.
//
// # Error Handling
//
// Operations return exactly two sentinels: [ErrDisconnected] (terminal,
// other side gone) and, from the Try variants, [ErrWouldBlock] (retry
// later; sourced from [code.hybscloud.com/iox] for ecosystem
// consistency). Misuse — capacity < 1, operating on a closed handle,
// concurrent receives — panics.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors and
// [code.hybscloud.com/atomix] for handle-state atomics with explicit
// memory ordering.
package kmq
