// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package acts

import (
	"io"

	"code.hybscloud.com/atomix"
	"github.com/google/uuid"
	"github.com/joeycumines/logiface"
)

// Waker is told when a session direction gains work: a new act, a
// pushed legacy range. Event loops use it to update readiness interest.
type Waker interface {
	Wake(s *Session, dir Direction)
}

// WakerFunc adapts a function to [Waker].
type WakerFunc func(s *Session, dir Direction)

// Wake calls f(s, dir).
func (f WakerFunc) Wake(s *Session, dir Direction) { f(s, dir) }

// inlineWaker drives the direction on the waking goroutine.
type inlineWaker struct{}

func (inlineWaker) Wake(s *Session, dir Direction) { s.HandleSessionReady(dir) }

// Session binds transport channels to an input and an output actor.
// Acts of one direction complete in submission order; the two directions
// are independent.
type Session struct {
	engine      *Engine
	channels    Channels
	input       actor
	output      actor
	serial      Serial
	id          uuid.UUID
	logger      *logiface.Logger[logiface.Event]
	onException ExceptionHandler
	waker       Waker
	closed      atomix.Bool
	effects     [2]effectSlot
}

// NewSession binds ch to a new session. The default waker drives acts
// inline, which suits channels that announce readiness themselves, such
// as [Engine.NewPipe].
func (e *Engine) NewSession(ch Channels, opts ...SessionOption) (*Session, error) {
	if e.closed.LoadAcquire() {
		return nil, ErrEngineClosed
	}
	s := &Session{
		engine:      e,
		channels:    ch,
		serial:      nextSerial(),
		id:          uuid.New(),
		logger:      e.logger,
		onException: e.onException,
		waker:       inlineWaker{},
	}
	for _, o := range opts {
		if o != nil {
			o(s)
		}
	}
	s.input.init(s, Input)
	s.output.init(s, Output)
	e.sessions.Store(s.serial, s)
	e.stats.sessions.Add(1)
	s.logger.Debug().
		Uint64("serial", uint64(s.serial)).
		Str("session", s.id.String()).
		Log("session opened")
	return s, nil
}

// Serial returns the session's engine-wide serial number.
func (s *Session) Serial() Serial { return s.serial }

// ID returns the session's correlation id.
func (s *Session) ID() uuid.UUID { return s.id }

// Engine returns the engine s belongs to.
func (s *Session) Engine() *Engine { return s.engine }

// Channels returns the channels s drives.
func (s *Session) Channels() Channels { return s.channels }

func (s *Session) actor(dir Direction) *actor {
	if dir == Input {
		return &s.input
	}
	return &s.output
}

// Read submits a read into e. cb, which may be nil, receives the result
// exactly once. A malformed region is rejected with ErrInvalidRegion
// before anything is queued; on a shut-down input cb is called before
// Read returns.
func (s *Session) Read(e Entry, cb Callback, opts ...ActOption) (Future, error) {
	return s.submit(Input, e, cb, opts)
}

// Write submits a write from e. See [Session.Read].
func (s *Session) Write(e Entry, cb Callback, opts ...ActOption) (Future, error) {
	return s.submit(Output, e, cb, opts)
}

func (s *Session) submit(dir Direction, e Entry, cb Callback, opts []ActOption) (Future, error) {
	p := actParams{timeout: s.engine.defaultTimeout}
	for _, o := range opts {
		if o != nil {
			o(&p)
		}
	}
	if dir == Output {
		p.strategy = nil
	}
	if err := e.resolve(dir); err != nil {
		return Future{}, err
	}
	a := s.actor(dir)
	r := s.engine.acquire(dir)
	r.setup(a, e, cb, p.timeout, p.strategy)
	gen, _ := r.state.load()
	s.engine.stats.submitted.Add(1)
	if err := a.addRequest(r); err != nil {
		r.fail(err)
		a.deliver(r, StateFailed)
	}
	return Future{r: r, gen: gen}, nil
}

// PushLegacy pushes p onto the input's legacy stack. Reads consume the
// most recently pushed range before anything else, then older ranges,
// then the channel.
func (s *Session) PushLegacy(p []byte) {
	s.input.legacy.push(p)
	s.wake(Input)
}

// PopLegacy removes and returns the unread part of the most recently
// pushed legacy range.
func (s *Session) PopLegacy() ([]byte, bool) {
	return s.input.legacy.pop()
}

// HandleSessionReady drives dir after a readiness event. It never blocks.
func (s *Session) HandleSessionReady(dir Direction) {
	s.actor(dir).run()
}

// Wants reports whether dir has acts waiting for readiness.
func (s *Session) Wants(dir Direction) bool {
	return s.actor(dir).wants()
}

func (s *Session) wake(dir Direction) {
	s.waker.Wake(s, dir)
}

// ShutdownInput ends the input half. Queued reads fail with cause, or are
// cancelled when cause is nil.
func (s *Session) ShutdownInput(cause error) {
	if s.input.shutdown(cause) {
		s.input.run()
	}
}

// ShutdownOutput ends the output half like [Session.ShutdownInput] and
// half-closes the writable channel when it supports CloseWrite.
func (s *Session) ShutdownOutput(cause error) {
	if !s.output.shutdown(cause) {
		return
	}
	s.output.run()
	if cw, ok := s.channels.Writable.(interface{ CloseWrite() error }); ok {
		if err := cw.CloseWrite(); err != nil {
			s.logger.Debug().Err(err).Uint64("serial", uint64(s.serial)).Log("close write failed")
		}
	}
}

// Close shuts down both halves and closes the channels that implement
// io.Closer. Every queued act fails with cause, or is cancelled when cause
// is nil.
func (s *Session) Close(cause error) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.engine.sessions.Delete(s.serial)
	if s.input.shutdown(cause) {
		s.input.run()
	}
	if s.output.shutdown(cause) {
		s.output.run()
	}
	var first error
	seen := make(map[any]bool, 3)
	for _, c := range []any{s.channels.Readable, s.channels.Writable, s.channels.Datagram} {
		cl, ok := c.(io.Closer)
		if !ok || seen[c] {
			continue
		}
		seen[c] = true
		if err := cl.Close(); err != nil && first == nil {
			first = err
		}
	}
	b := s.logger.Debug().Uint64("serial", uint64(s.serial)).Str("session", s.id.String())
	if cause != nil {
		b = b.Err(cause)
	}
	b.Log("session closed")
	return first
}

func (s *Session) halfShutdown(dir Direction, err error) {
	s.logger.Warning().
		Uint64("serial", uint64(s.serial)).
		Str("dir", dir.String()).
		Err(err).
		Log("half shut down after channel fault")
	if s.onException != nil {
		s.onException(s, err)
	}
}

func (s *Session) except(err error) {
	s.logger.Err().
		Uint64("serial", uint64(s.serial)).
		Str("session", s.id.String()).
		Err(err).
		Log("unexpected fault")
	if s.onException != nil {
		s.onException(s, err)
	}
}

func (s *Session) invoke(cb Callback, res Result) {
	if cb == nil {
		return
	}
	defer func() {
		if v := recover(); v != nil {
			s.except(&PanicError{Where: "callback", Value: v})
		}
	}()
	cb(res)
}
