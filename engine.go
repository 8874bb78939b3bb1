// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package acts

import (
	"context"
	"sync"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/lfq"
	"github.com/joeycumines/logiface"

	"code.hybscloud.com/acts/timer"
)

const (
	defaultPoolSize    = 256
	defaultScratchSize = 16 << 10
)

// Engine owns the state sessions share: the timer set that enforces act
// timeouts, the request free-lists and the logger.
type Engine struct {
	timers *timer.Set
	pools  [2]pool
	epochs atomix.Uint64
	stats  stats

	poolSize       int
	scratchSize    int
	defaultTimeout time.Duration
	sweeper        bool
	now            func() time.Time
	logger         *logiface.Logger[logiface.Event]
	onException    ExceptionHandler

	notify   atomix.Pointer[func()]
	sessions sync.Map
	closed   atomix.Bool
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewEngine returns a running engine. Unless [WithoutSweeper] is given, a
// goroutine sweeps the timer set until [Engine.Close].
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		poolSize:    defaultPoolSize,
		scratchSize: defaultScratchSize,
		sweeper:     true,
		now:         time.Now,
	}
	for _, o := range opts {
		if o != nil {
			o(e)
		}
	}
	if e.scratchSize <= 0 {
		e.scratchSize = defaultScratchSize
	}
	e.timers = timer.NewSet(
		timer.WithClock(e.now),
		timer.WithNotify(e.timersChanged),
		timer.WithPanicHandler(func(_ *timer.Entry, err error) {
			e.logger.Err().Err(err).Log("timer task panicked")
		}),
	)
	for dir := range e.pools {
		e.pools[dir].init(e, Direction(dir), e.poolSize)
	}
	if e.sweeper {
		ctx, cancel := context.WithCancel(context.Background())
		e.cancel = cancel
		e.done = make(chan struct{})
		go func() {
			defer close(e.done)
			_ = e.timers.Run(ctx)
		}()
	}
	return e
}

// Timers returns the timer set enforcing act timeouts. Event loops that
// run without the sweeper call its Expire and NextDelay.
func (e *Engine) Timers() *timer.Set { return e.timers }

// Logger returns the engine logger, which may be nil.
func (e *Engine) Logger() *logiface.Logger[logiface.Event] { return e.logger }

// OnTimerChange installs fn to be called whenever a schedule moves the
// earliest timer deadline forward. Passing nil removes it.
func (e *Engine) OnTimerChange(fn func()) {
	if fn == nil {
		e.notify.StoreRelease(nil)
		return
	}
	e.notify.StoreRelease(&fn)
}

func (e *Engine) timersChanged() {
	if fn := e.notify.LoadAcquire(); fn != nil {
		(*fn)()
	}
}

// Close closes every open session with ErrEngineClosed and stops the
// sweeper.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	e.sessions.Range(func(_, v any) bool {
		_ = v.(*Session).Close(ErrEngineClosed)
		return true
	})
	if e.cancel != nil {
		e.cancel()
		<-e.done
	}
	e.logger.Debug().Log("engine closed")
	return nil
}

func (e *Engine) acquire(dir Direction) *Request {
	return e.pools[dir].get()
}

// release cancels r's timer, invalidates every handle to it and returns
// it to its free-list.
func (e *Engine) release(r *Request) {
	e.timers.Cancel(&r.timer, 0)
	r.epoch.StoreRelease(0)
	gen, _ := r.state.load()
	r.entry = Entry{}
	r.strategy = nil
	r.callback = nil
	r.err = nil
	r.actor.StoreRelease(nil)
	r.state.v.StoreRelease(pack(gen+1, StateFresh))
	e.stats.released.Add(1)
	e.pools[r.dir].put(r)
}

// pool is a bounded free-list of requests for one direction.
type pool struct {
	engine *Engine
	dir    Direction
	free   lfq.Queue[*Request]
}

func (p *pool) init(e *Engine, dir Direction, n int) {
	p.engine = e
	p.dir = dir
	if n > 0 {
		p.free = lfq.NewMPMC[*Request](max(n, 2))
	}
}

func (p *pool) get() *Request {
	if p.free != nil {
		if r, err := p.free.Dequeue(); err == nil {
			return r
		}
	}
	p.engine.stats.poolMisses.Add(1)
	return newRequest(p.engine, p.dir)
}

func (p *pool) put(r *Request) {
	if p.free != nil && p.free.Enqueue(&r) == nil {
		return
	}
	p.engine.timers.Unregister(&r.timer)
	p.engine.logger.Trace().Str("dir", p.dir.String()).Log("request pool full, dropping request")
}

// Stats is a snapshot of engine counters.
type Stats struct {
	Sessions     uint64
	Submitted    uint64
	Accomplished uint64
	TimedOut     uint64
	Failed       uint64
	Cancelled    uint64
	Released     uint64
	PoolMisses   uint64
	Drives       uint64
}

type stats struct {
	sessions     atomix.Uint64
	submitted    atomix.Uint64
	accomplished atomix.Uint64
	timedOut     atomix.Uint64
	failed       atomix.Uint64
	cancelled    atomix.Uint64
	released     atomix.Uint64
	poolMisses   atomix.Uint64
	drives       atomix.Uint64
}

// Stats returns the engine counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Sessions:     e.stats.sessions.Load(),
		Submitted:    e.stats.submitted.Load(),
		Accomplished: e.stats.accomplished.Load(),
		TimedOut:     e.stats.timedOut.Load(),
		Failed:       e.stats.failed.Load(),
		Cancelled:    e.stats.cancelled.Load(),
		Released:     e.stats.released.Load(),
		PoolMisses:   e.stats.poolMisses.Load(),
		Drives:       e.stats.drives.Load(),
	}
}

func (e *Engine) count(s State) {
	switch s {
	case StateAccomplished:
		e.stats.accomplished.Add(1)
	case StateTimedOut:
		e.stats.timedOut.Add(1)
	case StateFailed:
		e.stats.failed.Add(1)
	case StateCancelled:
		e.stats.cancelled.Add(1)
	}
}
