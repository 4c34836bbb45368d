// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kmq_test

import (
	"testing"
	"time"

	"code.hybscloud.com/kmq"
)

// =============================================================================
// Conflict-Aware Delivery
// =============================================================================

// TestConflictBlocksUntilRelease: two messages on the same key; the
// second is delivered only after the first is released.
func TestConflictBlocksUntilRelease(t *testing.T) {
	for _, linked := range []bool{false, true} {
		name := "ring"
		b := kmq.New(2)
		if linked {
			name = "linked"
			b = kmq.New(2).Linked()
		}
		t.Run(name, func(t *testing.T) {
			tx, rx := kmq.Bounded[string, int](b)
			defer rx.Close()
			defer tx.Close()

			if err := tx.Send(newMsg(1, "a")); err != nil {
				t.Fatalf("Send: %v", err)
			}
			if err := tx.Send(newMsg(2, "a")); err != nil {
				t.Fatalf("Send: %v", err)
			}

			m1, err := rx.Recv()
			if err != nil || m1.Value() != 1 {
				t.Fatalf("first Recv: got %v, %v", m1, err)
			}

			// Key "a" is held: the second message is ineligible.
			if _, err := rx.TryRecv(); !kmq.IsWouldBlock(err) {
				t.Fatalf("TryRecv while conflicting: got %v, want ErrWouldBlock", err)
			}

			got := make(chan int, 1)
			go func() {
				m, err := rx.Recv()
				if err != nil {
					got <- -1
					return
				}
				v := m.Value()
				m.Release()
				got <- v
			}()

			// The receiver must stay blocked while m1 is held.
			select {
			case v := <-got:
				t.Fatalf("Recv returned %d before release", v)
			case <-time.After(50 * time.Millisecond):
			}

			m1.Release()
			select {
			case v := <-got:
				if v != 2 {
					t.Fatalf("Recv after release: got %d, want 2", v)
				}
			case <-time.After(2 * time.Second):
				t.Fatal("Recv did not wake after release")
			}
		})
	}
}

// TestConflictSkipsToEligible: a message blocked on an overlapping key
// is skipped and the next eligible one is delivered instead; release
// restores the skipped message ahead of later arrivals.
func TestConflictSkipsToEligible(t *testing.T) {
	tx, rx := kmq.NewBounded[string, int](3)
	defer rx.Close()
	defer tx.Close()

	if err := tx.Send(newMsg(1, "a", "b")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := tx.Send(newMsg(2, "b")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := tx.Send(newMsg(3, "c")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	m1, err := rx.Recv()
	if err != nil || m1.Value() != 1 {
		t.Fatalf("first Recv: got %v, %v", m1, err)
	}
	m3, err := rx.Recv()
	if err != nil || m3.Value() != 3 {
		t.Fatalf("second Recv: got %v, %v (v=2 should be skipped, b is held)", m3, err)
	}

	m1.Release()
	m2, err := rx.Recv()
	if err != nil || m2.Value() != 2 {
		t.Fatalf("Recv after release: got %v, %v", m2, err)
	}
	m2.Release()
	m3.Release()
}

// TestKeyAlternation: producers push keys A,B,A,B; the consumer holds
// one message per key, and no two same-key messages are ever in flight.
func TestKeyAlternation(t *testing.T) {
	tx, rx := kmq.NewBounded[string, int](4)
	defer rx.Close()
	defer tx.Close()

	for i, k := range []string{"a", "b", "a", "b"} {
		if err := tx.Send(newMsg(i, k)); err != nil {
			t.Fatalf("Send(%d): %v", i, err)
		}
	}

	a1, err := rx.Recv()
	if err != nil || a1.Value() != 0 {
		t.Fatalf("Recv: got %v, %v", a1, err)
	}
	b1, err := rx.Recv()
	if err != nil || b1.Value() != 1 {
		t.Fatalf("Recv: got %v, %v", b1, err)
	}

	// Both keys held: nothing eligible.
	if _, err := rx.TryRecv(); !kmq.IsWouldBlock(err) {
		t.Fatalf("TryRecv: got %v, want ErrWouldBlock", err)
	}

	a1.Release()
	a2, err := rx.Recv()
	if err != nil || a2.Value() != 2 {
		t.Fatalf("Recv after releasing a: got %v, %v", a2, err)
	}
	if _, err := rx.TryRecv(); !kmq.IsWouldBlock(err) {
		t.Fatalf("TryRecv: got %v, want ErrWouldBlock (b still held)", err)
	}

	b1.Release()
	b2, err := rx.Recv()
	if err != nil || b2.Value() != 3 {
		t.Fatalf("Recv after releasing b: got %v, %v", b2, err)
	}
	a2.Release()
	b2.Release()
}

// TestMultiKeyBlocksAllOverlaps: a held multi-key message excludes
// messages overlapping on any one of its keys.
func TestMultiKeyBlocksAllOverlaps(t *testing.T) {
	tx, rx := kmq.NewBounded[string, int](4)
	defer rx.Close()
	defer tx.Close()

	if err := tx.Send(newMsg(1, "a", "b", "c")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	for i, k := range []string{"a", "b", "c"} {
		if err := tx.Send(newMsg(2+i, k)); err != nil {
			t.Fatalf("Send(%s): %v", k, err)
		}
	}

	m1, err := rx.Recv()
	if err != nil || m1.Value() != 1 {
		t.Fatalf("Recv: got %v, %v", m1, err)
	}
	if _, err := rx.TryRecv(); !kmq.IsWouldBlock(err) {
		t.Fatalf("TryRecv: got %v, want ErrWouldBlock", err)
	}

	m1.Release()
	for want := 2; want <= 4; want++ {
		m, err := rx.Recv()
		if err != nil || m.Value() != want {
			t.Fatalf("Recv: got %v, %v, want %d", m, err, want)
		}
		m.Release()
	}
}

// TestReleaseIsIdempotent: releasing a delivered message twice must not
// double-free its keys for a later holder.
func TestReleaseIsIdempotent(t *testing.T) {
	tx, rx := kmq.NewBounded[string, int](3)
	defer rx.Close()
	defer tx.Close()

	if err := tx.Send(newMsg(1, "a")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	m1, err := rx.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	m1.Release()
	m1.Release()

	// Deliver another "a" message and check the double release above
	// did not free the key a second time.
	if err := tx.Send(newMsg(2, "a")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := tx.Send(newMsg(3, "a")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	m2, err := rx.Recv()
	if err != nil || m2.Value() != 2 {
		t.Fatalf("Recv: got %v, %v", m2, err)
	}
	m1.Release() // stale handle, must be a no-op
	if _, err := rx.TryRecv(); !kmq.IsWouldBlock(err) {
		t.Fatalf("TryRecv: got %v, want ErrWouldBlock (a held by m2)", err)
	}
	m2.Release()
	m3, err := rx.Recv()
	if err != nil || m3.Value() != 3 {
		t.Fatalf("Recv: got %v, %v", m3, err)
	}
	m3.Release()
}

// TestCursorRewindAcrossBackends drives a skip/release pattern deep
// enough to exercise the cursor rewind on both backends.
func TestCursorRewindAcrossBackends(t *testing.T) {
	for _, linked := range []bool{false, true} {
		name := "ring"
		b := kmq.New(8)
		if linked {
			name = "linked"
			b = kmq.New(8).Linked()
		}
		t.Run(name, func(t *testing.T) {
			tx, rx := kmq.Bounded[string, int](b)
			defer rx.Close()
			defer tx.Close()

			// Hold x, then bury two x-messages between eligible ones.
			if err := tx.Send(newMsg(0, "x")); err != nil {
				t.Fatalf("Send: %v", err)
			}
			hold, err := rx.Recv()
			if err != nil {
				t.Fatalf("Recv: %v", err)
			}

			for i, k := range []string{"x", "p", "x", "q"} {
				if err := tx.Send(newMsg(i+1, k)); err != nil {
					t.Fatalf("Send(%d): %v", i, err)
				}
			}

			// Eligible ones drain around the skipped x-messages.
			m, err := rx.Recv()
			if err != nil || m.Value() != 2 {
				t.Fatalf("Recv: got %v, %v, want 2", m, err)
			}
			m.Release()
			m, err = rx.Recv()
			if err != nil || m.Value() != 4 {
				t.Fatalf("Recv: got %v, %v, want 4", m, err)
			}
			m.Release()

			// Release rewinds the scan to the first skipped x.
			hold.Release()
			m, err = rx.Recv()
			if err != nil || m.Value() != 1 {
				t.Fatalf("Recv: got %v, %v, want 1", m, err)
			}
			m.Release()
			m, err = rx.Recv()
			if err != nil || m.Value() != 3 {
				t.Fatalf("Recv: got %v, %v, want 3", m, err)
			}
			m.Release()
		})
	}
}
