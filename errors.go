// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kmq

import (
	"errors"

	"code.hybscloud.com/iox"
)

// ErrDisconnected indicates the other side of the channel is gone.
//
// For Send/TrySend: the receiver has been closed. The message was not
// enqueued and remains usable by the caller.
//
// For Recv/TryRecv: every sender has been closed and the buffer has been
// fully drained. The condition is terminal — once returned, every
// subsequent receive returns it again.
var ErrDisconnected = errors.New("kmq: disconnected")

// ErrWouldBlock indicates a non-blocking operation cannot proceed.
//
// For TrySend: the buffer is at capacity (backpressure).
// For TryRecv: the buffer is empty, or every buffered message conflicts
// with a delivered-but-unreleased one.
//
// ErrWouldBlock is a control flow signal, not a failure. The caller
// should retry later (with backoff or yield) rather than propagating
// the error.
//
// This is an alias for [iox.ErrWouldBlock] for ecosystem consistency.
//
// Example:
//
//	backoff := iox.Backoff{}
//	for {
//	    err := tx.TrySend(m)
//	    if err == nil {
//	        backoff.Reset()
//	        break
//	    }
//	    if kmq.IsWouldBlock(err) {
//	        backoff.Wait()
//	        continue
//	    }
//	    return err // receiver gone
//	}
var ErrWouldBlock = iox.ErrWouldBlock

// IsWouldBlock reports whether err indicates the operation would block.
// Delegates to [iox.IsWouldBlock] for wrapped error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsDisconnected reports whether err indicates the other side of the
// channel is gone.
func IsDisconnected(err error) bool {
	return errors.Is(err, ErrDisconnected)
}
