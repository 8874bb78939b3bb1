// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package acts

import (
	"context"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
)

// State is the state of an act's future.
type State uint32

const (
	StateFresh State = iota
	StatePending
	StateAccomplished
	StateTimedOut
	StateFailed
	StateCancelled
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StatePending:
		return "pending"
	case StateAccomplished:
		return "accomplished"
	case StateTimedOut:
		return "timed-out"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	case StateReleased:
		return "released"
	}
	return "unknown"
}

// Terminal reports whether s is one of the four outcomes.
func (s State) Terminal() bool {
	return s >= StateAccomplished && s <= StateCancelled
}

// Result is delivered exactly once to an act's callback.
type Result struct {
	State State
	// Count is the number of bytes transferred.
	Count int64
	// EOF reports that the peer half-closed before or during a read.
	EOF bool
	// Err is nil when the act was accomplished.
	Err error
	// Entry is the act's entry as transferred. Datagram reads carry the
	// source address in Entry.Addr.
	Entry Entry
}

// Callback receives the result of an act.
type Callback func(Result)

// stateWord packs a request generation with its future state. The
// generation changes on every release.
type stateWord struct {
	v atomix.Uint64
}

func pack(gen uint32, s State) uint64 { return uint64(gen)<<32 | uint64(s) }

func unpack(w uint64) (uint32, State) { return uint32(w >> 32), State(uint32(w)) }

func (w *stateWord) load() (uint32, State) { return unpack(w.v.LoadAcquire()) }

// Future is a handle to an act. It stays safe to use after the act's
// request has been recycled: the handle then reports StateReleased.
type Future struct {
	r   *Request
	gen uint32
}

// State returns the act's current state.
func (f Future) State() State {
	if f.r == nil {
		return StateReleased
	}
	gen, s := f.r.state.load()
	if gen != f.gen {
		return StateReleased
	}
	return s
}

// Done reports whether the act reached an outcome.
func (f Future) Done() bool {
	s := f.State()
	return s.Terminal() || s == StateReleased
}

// Cancel asks for the act to be cancelled. It reports whether this call
// decided the outcome. An act already being transferred is not
// interrupted; its bytes so far are reported in the result.
func (f Future) Cancel() bool {
	if f.r == nil {
		return false
	}
	return f.r.cancel(f.gen)
}

// Waiter collects one result for a synchronous caller.
type Waiter struct {
	done atomix.Bool
	res  Result
}

// Callback is the [Callback] to pass to an act.
func (w *Waiter) Callback(res Result) {
	w.res = res
	w.done.StoreRelease(true)
}

// Done reports whether the result has arrived.
func (w *Waiter) Done() bool { return w.done.LoadAcquire() }

// Wait blocks with adaptive backoff until the result arrives or ctx is
// done.
func (w *Waiter) Wait(ctx context.Context) (Result, error) {
	var bo iox.Backoff
	for !w.done.LoadAcquire() {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		bo.Wait()
	}
	return w.res, nil
}
