// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package acts

import (
	"sync"

	"code.hybscloud.com/atomix"

	"code.hybscloud.com/acts/queue"
	"code.hybscloud.com/acts/timer"
)

// actor schedules the acts of one session direction. At most one request
// is current; the rest wait in FIFO order.
//
// Requests are driven, delivered and released only while mu is held. mu
// is only ever taken with TryLock: a caller that misses it leaves a
// signal and the holder drives again before letting go.
type actor struct {
	session *Session
	dir     Direction

	pending queue.Queue[*Request]
	current atomix.Pointer[Request]

	mu      sync.Mutex
	signals atomix.Uint64
	dirty   atomix.Bool
	cause   atomix.Pointer[error]
	reaper  timer.Entry

	legacy legacy
	buf    []byte
}

func (a *actor) init(s *Session, dir Direction) {
	a.session = s
	a.dir = dir
	a.pending.Init()
	a.reaper.Init(timer.TaskFunc(func(uint64) { a.run() }), true)
	_ = s.engine.timers.Register(&a.reaper)
}

// run drives the actor unless another goroutine already is, in which case
// that goroutine drives again.
func (a *actor) run() {
	a.signals.Add(1)
	for {
		if !a.mu.TryLock() {
			return
		}
		seen := a.signals.LoadAcquire()
		a.safeDrive()
		if a.signals.LoadAcquire() == seen {
			return
		}
	}
}

// reap makes the actor observe requests terminated from outside. The
// reaper is a zero-delay timer entry so the wakeup arrives through the
// engine's sweep even when no readiness event ever does.
func (a *actor) reap() {
	a.dirty.StoreRelease(true)
	a.session.engine.timers.Schedule(&a.reaper, 0)
}

// safeDrive drives the actor and releases mu, turning a panic raised by
// the channel into a failure of the current request and a shutdown of
// this direction.
func (a *actor) safeDrive() {
	defer a.mu.Unlock()
	defer func() {
		if v := recover(); v != nil {
			a.panicked(&PanicError{Where: "channel", Value: v})
		}
	}()
	a.drive()
}

func (a *actor) panicked(err error) {
	if r := a.current.LoadAcquire(); r != nil {
		r.fail(err)
	}
	a.shutdown(err)
	a.session.except(err)
	// deliver what the shutdown just failed
	a.signals.Add(1)
}

func (a *actor) drive() {
	a.session.engine.stats.drives.Add(1)
	if a.dirty.Swap(false) {
		a.sweepPending()
	}
	for {
		r := a.currentRequest()
		if r == nil {
			return
		}
		if r.ready(a) == NeedMore {
			return
		}
	}
}

// addRequest queues r and asks for it to be driven.
func (a *actor) addRequest(r *Request) error {
	if err := a.shutdownErr(); err != nil {
		return err
	}
	if _, err := a.pending.Offer(r); err != nil {
		return err
	}
	a.session.wake(a.dir)
	return nil
}

// promote swaps the current slot from old to the head of the pending
// queue, dequeuing the winner and arming its timer under a fresh epoch.
func (a *actor) promote(old *Request) *Request {
	for {
		head, ok := a.pending.Peek()
		if !ok {
			head = nil
		}
		if !a.current.CompareAndSwap(old, head) {
			return a.current.LoadAcquire()
		}
		if head == nil {
			return nil
		}
		if a.pending.Remove(head) {
			a.arm(head)
			return head
		}
		old = head
	}
}

func (a *actor) arm(r *Request) {
	t := a.session.engine.timers
	epoch := a.session.engine.epochs.Add(1)
	r.epoch.StoreRelease(epoch)
	t.Expect(&r.timer, epoch)
	t.Schedule(&r.timer, epoch)
}

// currentRequest returns the request to drive, delivering and releasing
// any current request that already reached an outcome and initiating
// fresh ones.
func (a *actor) currentRequest() *Request {
	r := a.current.LoadAcquire()
	for {
		if r == nil {
			if r = a.promote(nil); r == nil {
				return nil
			}
		}
		_, s := r.state.load()
		switch {
		case s.Terminal():
			next := a.removeRequest(r)
			a.deliver(r, s)
			r = next
			continue
		case s == StateFresh:
			if err := a.shutdownErr(); err != nil {
				r.fail(err)
				continue
			}
			if !r.initiate() {
				continue
			}
		}
		return r
	}
}

// removeRequest takes r off the actor. If r is current the next request
// is promoted and returned; otherwise r is unlinked from the pending
// queue and the current request is returned.
func (a *actor) removeRequest(r *Request) *Request {
	if a.current.LoadAcquire() == r {
		return a.promote(r)
	}
	a.pending.Remove(r)
	return a.current.LoadAcquire()
}

// sweepPending delivers pending requests that were cancelled or failed
// before ever becoming current.
func (a *actor) sweepPending() {
	it := a.pending.Iterator()
	for {
		r, ok := it.Next()
		if !ok {
			return
		}
		if _, s := r.state.load(); s.Terminal() && it.Remove() {
			a.deliver(r, s)
		}
	}
}

// deliver reports r's outcome to its callback and releases r.
func (a *actor) deliver(r *Request, s State) {
	res := r.result(s, a.shutdownErr())
	cb := r.callback
	a.session.engine.count(s)
	a.session.invoke(cb, res)
	a.session.engine.release(r)
}

// shutdown fails every request with cause, or cancels them when cause
// is nil. Later submissions fail with ErrShutdown.
func (a *actor) shutdown(cause error) bool {
	stored := cause
	if stored == nil {
		stored = ErrShutdown
	}
	if !a.cause.CompareAndSwap(nil, &stored) {
		return false
	}
	to := StateFailed
	if cause == nil {
		to = StateCancelled
	}
	if r := a.current.LoadAcquire(); r != nil {
		r.finish(to)
	}
	for r := range a.pending.All() {
		r.finish(to)
	}
	a.dirty.StoreRelease(true)
	return true
}

func (a *actor) shutdownErr() error {
	if p := a.cause.LoadAcquire(); p != nil {
		return *p
	}
	return nil
}

// fault fails r with an unexpected channel error and shuts down this
// half of the session. Read-side channel faults never get here; they end
// the input instead.
func (a *actor) fault(r *Request, err error) {
	r.fail(err)
	if a.shutdown(err) {
		a.session.halfShutdown(a.dir, err)
	}
}

// wants reports whether the actor has acts waiting for readiness. Legacy
// bytes alone do not count: only a read consumes them.
func (a *actor) wants() bool {
	return a.current.LoadAcquire() != nil || !a.pending.Empty()
}

// read fills p from the legacy stack first, then from the channel.
func (a *actor) read(p []byte) (int, error) {
	if n, ok := a.legacy.read(p); ok {
		return n, nil
	}
	if a.session.channels.Readable == nil {
		return 0, ErrNullChannel
	}
	return a.session.channels.Readable.Read(p)
}

func (a *actor) scratch() []byte {
	if a.buf == nil {
		a.buf = make([]byte, a.session.engine.scratchSize)
	}
	return a.buf
}

// legacy is a stack of byte ranges replayed ahead of the channel.
type legacy struct {
	mu    sync.Mutex
	stack [][]byte
}

func (l *legacy) push(p []byte) {
	if len(p) == 0 {
		return
	}
	l.mu.Lock()
	l.stack = append(l.stack, p)
	l.mu.Unlock()
}

func (l *legacy) pop() ([]byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.stack)
	if n == 0 {
		return nil, false
	}
	p := l.stack[n-1]
	l.stack[n-1] = nil
	l.stack = l.stack[:n-1]
	return p, true
}

func (l *legacy) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.stack)
}

// read copies from the top range, popping it once exhausted. ok is false
// when the stack is empty.
func (l *legacy) read(p []byte) (n int, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	top := len(l.stack) - 1
	if top < 0 {
		return 0, false
	}
	n = copy(p, l.stack[top])
	if rest := l.stack[top][n:]; len(rest) > 0 {
		l.stack[top] = rest
	} else {
		l.stack[top] = nil
		l.stack = l.stack[:top]
	}
	return n, true
}
