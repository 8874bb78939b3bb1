// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package acts

import (
	"errors"
	"io"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"

	"code.hybscloud.com/acts/queue"
	"code.hybscloud.com/acts/timer"
)

// Strategy is consulted after every chunk a read transfers. origin is the
// position the act started at, completed the bytes transferred so far and
// chunk the size of the last transfer. It returns the number of bytes to
// extend the region by, or stop to end the act now. A negative grow fails
// the act with ErrInvalidRegion.
type Strategy func(e *Entry, origin, completed int64, chunk int) (grow int64, stop bool)

// Request is one read or write act. Requests are pooled by the engine;
// callers hold them only through a [Future].
type Request struct {
	link  queue.Link[*Request]
	timer timer.Entry
	state stateWord
	epoch atomix.Uint64
	actor atomix.Pointer[actor]

	// owned by the actor lock from submission to release
	dir       Direction
	entry     Entry
	origin    int64
	completed int64
	eof       bool
	err       error
	strategy  Strategy
	callback  Callback
}

// QueueLink implements queue.Linked.
func (r *Request) QueueLink() *queue.Link[*Request] { return &r.link }

func newRequest(e *Engine, dir Direction) *Request {
	r := &Request{dir: dir}
	r.timer.Init(r, false)
	// a fresh entry always registers
	_ = e.timers.Register(&r.timer)
	return r
}

func (r *Request) setup(a *actor, e Entry, cb Callback, timeout time.Duration, st Strategy) {
	r.entry = e
	switch e.Kind {
	case KindFile:
		r.origin = e.Position
	default:
		r.origin = int64(e.Buffer.Position())
	}
	r.completed = 0
	r.eof = false
	r.err = nil
	r.strategy = st
	r.callback = cb
	r.timer.SetTimeout(timeout)
	r.actor.StoreRelease(a)
}

// finish moves a live request to the terminal state to. Only the first
// terminal transition succeeds.
func (r *Request) finish(to State) bool {
	for {
		w := r.state.v.LoadAcquire()
		g, s := unpack(w)
		if s != StateFresh && s != StatePending {
			return false
		}
		if r.state.v.CompareAndSwap(w, pack(g, to)) {
			return true
		}
	}
}

func (r *Request) accomplish() { r.finish(StateAccomplished) }

func (r *Request) fail(err error) {
	r.err = err
	r.finish(StateFailed)
}

// initiate moves a fresh request to pending. It reports false when the
// request is already done, either because it lost a race with a
// terminal transition or because there is nothing to transfer.
func (r *Request) initiate() bool {
	w := r.state.v.LoadAcquire()
	g, s := unpack(w)
	if s != StateFresh {
		return s == StatePending
	}
	if !r.state.v.CompareAndSwap(w, pack(g, StatePending)) {
		return false
	}
	if r.entry.Count == 0 {
		r.accomplish()
		return false
	}
	return true
}

// cancel is Future.Cancel for generation gen.
func (r *Request) cancel(gen uint32) bool {
	for {
		w := r.state.v.LoadAcquire()
		g, s := unpack(w)
		if g != gen || (s != StateFresh && s != StatePending) {
			return false
		}
		if r.state.v.CompareAndSwap(w, pack(g, StateCancelled)) {
			if a := r.actor.LoadAcquire(); a != nil {
				a.reap()
			}
			return true
		}
	}
}

// Expire implements timer.Task. It times the request out when epoch is
// the one minted for its current occupancy of the actor.
func (r *Request) Expire(epoch uint64) {
	w := r.state.v.LoadAcquire()
	g, s := unpack(w)
	if s != StateFresh && s != StatePending {
		return
	}
	if epoch == 0 || r.epoch.LoadAcquire() != epoch {
		return
	}
	if r.state.v.CompareAndSwap(w, pack(g, StateTimedOut)) {
		if a := r.actor.LoadAcquire(); a != nil {
			a.run()
		}
	}
}

// ready drives the request for one readiness pass.
func (r *Request) ready(a *actor) Progress {
	if r.dir == Input {
		return r.inputReady(a)
	}
	return r.outputReady(a)
}

func (r *Request) inputReady(a *actor) Progress {
	ch := &a.session.channels
	e := &r.entry
	if e.Kind == KindDatagram {
		if ch.Datagram == nil {
			return r.noChannel(ch.Readable == nil)
		}
		return r.receive(a, ch.Datagram)
	}
	if ch.Readable == nil && a.legacy.len() == 0 {
		return r.noChannel(ch.Datagram == nil)
	}
	for {
		var dst []byte
		if e.Kind == KindFile {
			want := r.chunk(a)
			if want == 0 {
				r.accomplish()
				return Terminate
			}
			dst = a.scratch()[:want]
		} else {
			dst = e.Buffer.Bytes()
			if len(dst) == 0 {
				r.accomplish()
				return Terminate
			}
		}
		n, err := a.read(dst)
		if n > 0 {
			if e.Kind == KindFile {
				if _, werr := e.File.WriteAt(dst[:n], e.Position+r.completed); werr != nil {
					r.fail(werr)
					return Terminate
				}
			} else {
				e.Buffer.pos += n
			}
			r.completed += int64(n)
			if p, done := r.consult(a, n); done {
				return p
			}
		}
		switch {
		case isProgress(err):
			if n == 0 {
				return NeedMore
			}
		case iox.IsWouldBlock(err):
			return NeedMore
		case errors.Is(err, ErrNullChannel):
			// legacy ranges drained and nothing behind them
			if r.completed == 0 {
				return r.noChannel(ch.Datagram == nil)
			}
			r.accomplish()
			return Terminate
		case isChannelFault(err):
			r.eof = true
			r.accomplish()
			return EndOfInput
		default:
			a.fault(r, err)
			return Terminate
		}
	}
}

// receive reads exactly one datagram.
func (r *Request) receive(a *actor, dc DatagramChannel) Progress {
	b := r.entry.Buffer
	n, addr, err := dc.ReadFrom(b.Bytes())
	switch {
	case iox.IsWouldBlock(err) && n == 0:
		return NeedMore
	case isProgress(err) || iox.IsWouldBlock(err):
	case isChannelFault(err):
		r.eof = true
		r.accomplish()
		return EndOfInput
	default:
		a.fault(r, err)
		return Terminate
	}
	b.pos += n
	r.completed = int64(n)
	r.entry.Addr = addr
	r.accomplish()
	return Terminate
}

func (r *Request) outputReady(a *actor) Progress {
	ch := &a.session.channels
	e := &r.entry
	if e.Kind == KindDatagram {
		if ch.Datagram == nil {
			return r.noChannel(ch.Writable == nil)
		}
		return r.send(a, ch.Datagram)
	}
	if ch.Writable == nil {
		return r.noChannel(ch.Datagram == nil)
	}
	for {
		var src []byte
		if e.Kind == KindFile {
			want := r.chunk(a)
			if want == 0 {
				r.accomplish()
				return Terminate
			}
			buf := a.scratch()[:want]
			m, rerr := e.File.ReadAt(buf, e.Position+r.completed)
			if m == 0 {
				if rerr == nil || errors.Is(rerr, io.EOF) {
					if e.Count == Unbounded {
						r.eof = true
						r.accomplish()
						return Terminate
					}
					rerr = io.ErrUnexpectedEOF
				}
				r.fail(rerr)
				return Terminate
			}
			src = buf[:m]
		} else {
			src = e.Buffer.Bytes()
			if len(src) == 0 {
				r.accomplish()
				return Terminate
			}
		}
		n, err := ch.Writable.Write(src)
		if n > 0 {
			if e.Kind != KindFile {
				e.Buffer.pos += n
			}
			r.completed += int64(n)
		}
		switch {
		case isProgress(err):
			if n == 0 {
				return NeedMore
			}
		case iox.IsWouldBlock(err):
			return NeedMore
		default:
			a.fault(r, err)
			return Terminate
		}
	}
}

// send writes exactly one datagram.
func (r *Request) send(a *actor, dc DatagramChannel) Progress {
	b := r.entry.Buffer
	n, err := dc.WriteTo(b.Bytes(), r.entry.Addr)
	switch {
	case iox.IsWouldBlock(err):
		return NeedMore
	case !isProgress(err):
		a.fault(r, err)
		return Terminate
	}
	b.pos += n
	r.completed = int64(n)
	r.accomplish()
	return Terminate
}

// chunk returns how many bytes the next file region pass may move.
func (r *Request) chunk(a *actor) int {
	want := int64(a.session.engine.scratchSize)
	if c := r.entry.Count; c != Unbounded {
		want = min(want, c-r.completed)
	}
	return int(max(want, 0))
}

func (r *Request) noChannel(null bool) Progress {
	if null {
		r.fail(ErrNullChannel)
		return NullChannel
	}
	r.fail(ErrNoChannel)
	return NoChannel
}

// consult runs the strategy after a chunk. It reports done when the act
// reached an outcome.
func (r *Request) consult(a *actor, chunk int) (Progress, bool) {
	if r.strategy == nil {
		return Continue, false
	}
	grow, stop, perr := r.callStrategy(chunk)
	switch {
	case perr != nil:
		r.fail(perr)
		a.session.except(perr)
		return Terminate, true
	case stop:
		r.accomplish()
		return Terminate, true
	case grow < 0:
		r.fail(ErrInvalidRegion)
		return Terminate, true
	case grow > 0:
		e := &r.entry
		if e.Kind == KindBuffer {
			e.Buffer.extend(int(grow))
		}
		if e.Count != Unbounded {
			e.Count += grow
		}
	}
	return Continue, false
}

func (r *Request) callStrategy(chunk int) (grow int64, stop bool, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{Where: "strategy", Value: v}
		}
	}()
	grow, stop = r.strategy(&r.entry, r.origin, r.completed, chunk)
	return grow, stop, nil
}

// result builds the outcome for terminal state s.
func (r *Request) result(s State, cause error) Result {
	res := Result{State: s, Count: r.completed, EOF: r.eof, Entry: r.entry}
	switch s {
	case StateTimedOut:
		res.Err = ErrTimeout
	case StateCancelled:
		res.Err = ErrCancelled
	case StateFailed:
		res.Err = r.err
		if res.Err == nil {
			res.Err = cause
		}
		if res.Err == nil {
			res.Err = ErrClosed
		}
	}
	return res
}
