// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package acts

import (
	"time"

	"github.com/joeycumines/logiface"
)

// ExceptionHandler receives unexpected faults: panics recovered from
// callbacks and strategies, and channel errors that shut a half down.
type ExceptionHandler func(s *Session, err error)

// Option configures an [Engine].
type Option func(*Engine)

// WithLogger sets the engine logger. Sessions inherit it.
func WithLogger(l *logiface.Logger[logiface.Event]) Option {
	return func(e *Engine) { e.logger = l }
}

// WithPoolSize bounds each direction's request free-list. Zero disables
// pooling.
func WithPoolSize(n int) Option {
	return func(e *Engine) { e.poolSize = n }
}

// WithScratchSize sets the per-actor buffer used for file region
// transfers.
func WithScratchSize(n int) Option {
	return func(e *Engine) { e.scratchSize = n }
}

// WithExceptionHandler sets the default session exception handler.
func WithExceptionHandler(h ExceptionHandler) Option {
	return func(e *Engine) { e.onException = h }
}

// WithClock replaces time.Now for timeout bookkeeping.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithoutSweeper disables the sweeper goroutine. The caller must then
// drive [Engine.Timers] itself, as reactor.Loop does.
func WithoutSweeper() Option {
	return func(e *Engine) { e.sweeper = false }
}

// WithDefaultTimeout sets the timeout of acts that do not pass
// [WithTimeout]. Zero means no timeout.
func WithDefaultTimeout(d time.Duration) Option {
	return func(e *Engine) { e.defaultTimeout = d }
}

// SessionOption configures a [Session].
type SessionOption func(*Session)

// WithSessionLogger overrides the engine logger for one session.
func WithSessionLogger(l *logiface.Logger[logiface.Event]) SessionOption {
	return func(s *Session) { s.logger = l }
}

// WithSessionExceptionHandler overrides the engine exception handler for
// one session.
func WithSessionExceptionHandler(h ExceptionHandler) SessionOption {
	return func(s *Session) { s.onException = h }
}

// WithWaker installs the waker told when a direction gains work.
func WithWaker(w Waker) SessionOption {
	return func(s *Session) { s.waker = w }
}

// ActOption configures a single act.
type ActOption func(*actParams)

type actParams struct {
	timeout  time.Duration
	strategy Strategy
}

// WithTimeout bounds how long the act may stay current. Zero or less
// means no timeout.
func WithTimeout(d time.Duration) ActOption {
	return func(p *actParams) { p.timeout = d }
}

// WithStrategy attaches a read strategy. Writes ignore it.
func WithStrategy(s Strategy) ActOption {
	return func(p *actParams) { p.strategy = s }
}
