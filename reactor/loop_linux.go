// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package reactor

import (
	"context"
	"encoding/binary"
	"errors"
	"os"
	"sync"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"github.com/joeycumines/logiface"
	"golang.org/x/sys/unix"

	"code.hybscloud.com/acts"
	"code.hybscloud.com/acts/timer"
)

const (
	defaultEventBuffer = 128
	maxPollWait        = time.Minute
)

// Option configures a [Loop].
type Option func(*Loop)

// WithEventBuffer sets how many epoll events one wait may return.
func WithEventBuffer(n int) Option {
	return func(l *Loop) {
		if n > 0 {
			l.events = make([]unix.EpollEvent, n)
		}
	}
}

// Loop is a level-triggered epoll loop driving the sessions of one
// engine. Run must be called from a single goroutine; every other method
// is safe for concurrent use.
type Loop struct {
	engine *acts.Engine
	logger *logiface.Logger[logiface.Event]
	epfd   int
	wakefd int
	events []unix.EpollEvent

	mu       sync.Mutex
	bindings map[int32]*binding
	sessions map[*acts.Session]*binding
	kicks    []kick
	spare    []kick

	wakePending atomix.Bool
	running     atomix.Bool
	closed      atomix.Bool
}

type binding struct {
	fd       *FD
	session  *acts.Session
	interest uint32
}

type kick struct {
	s   *acts.Session
	dir acts.Direction
}

// New creates a loop for eng. Run it with [Loop.Run]; engines driven by
// a loop usually disable their own sweeper.
func New(eng *acts.Engine, opts ...Option) (*Loop, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, os.NewSyscallError("epoll_create1", err)
	}
	wakefd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		unix.Close(epfd)
		return nil, os.NewSyscallError("eventfd", err)
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakefd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, &ev); err != nil {
		unix.Close(wakefd)
		unix.Close(epfd)
		return nil, os.NewSyscallError("epoll_ctl", err)
	}
	l := &Loop{
		engine:   eng,
		logger:   eng.Logger(),
		epfd:     epfd,
		wakefd:   wakefd,
		bindings: make(map[int32]*binding),
		sessions: make(map[*acts.Session]*binding),
	}
	for _, o := range opts {
		if o != nil {
			o(l)
		}
	}
	if l.events == nil {
		l.events = make([]unix.EpollEvent, defaultEventBuffer)
	}
	eng.OnTimerChange(l.wakeup)
	return l, nil
}

// Register binds fd to a new session whose waker is l. fd serves as the
// session's readable, writable and datagram channel.
func (l *Loop) Register(fd *FD, opts ...acts.SessionOption) (*acts.Session, error) {
	if l.closed.LoadAcquire() {
		return nil, ErrClosed
	}
	key := int32(fd.Fd())
	b := &binding{fd: fd}
	l.mu.Lock()
	if _, dup := l.bindings[key]; dup {
		l.mu.Unlock()
		return nil, ErrRegistered
	}
	l.bindings[key] = b
	l.mu.Unlock()

	opts = append(opts[:len(opts):len(opts)], acts.WithWaker(l))
	s, err := l.engine.NewSession(acts.Channels{Readable: fd, Writable: fd, Datagram: fd}, opts...)
	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		delete(l.bindings, key)
		return nil, err
	}
	b.session = s
	l.sessions[s] = b
	return s, nil
}

// Unregister removes s from the loop without closing it. Acts still
// queued on s are no longer driven.
func (l *Loop) Unregister(s *acts.Session) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.sessions[s]
	if !ok {
		return ErrNotRegistered
	}
	delete(l.sessions, s)
	delete(l.bindings, int32(b.fd.Fd()))
	if b.interest != 0 && !b.fd.closed.LoadAcquire() {
		b.interest = 0
		if err := unix.EpollCtl(l.epfd, unix.EPOLL_CTL_DEL, b.fd.Fd(), nil); err != nil {
			return os.NewSyscallError("epoll_ctl", err)
		}
	}
	return nil
}

// Wake implements acts.Waker. The direction is driven on the loop
// goroutine, which then updates the descriptor's interest.
func (l *Loop) Wake(s *acts.Session, dir acts.Direction) {
	l.mu.Lock()
	_, ok := l.sessions[s]
	if ok {
		l.kicks = append(l.kicks, kick{s: s, dir: dir})
	}
	l.mu.Unlock()
	if !ok {
		s.HandleSessionReady(dir)
		return
	}
	l.wakeup()
}

// Run polls until ctx is done or l is closed.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer l.running.StoreRelease(false)
	stop := context.AfterFunc(ctx, l.wakeup)
	defer stop()

	timers := l.engine.Timers()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if l.closed.LoadAcquire() {
			return ErrClosed
		}
		n, err := unix.EpollWait(l.epfd, l.events, pollTimeout(timers))
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			l.logger.Err().Err(err).Log("epoll wait failed")
			return os.NewSyscallError("epoll_wait", err)
		}
		for i := range n {
			l.dispatch(&l.events[i])
		}
		l.runKicks()
		timers.Expire(timers.Now())
	}
}

// Close stops a running loop, waits for Run to return, and releases the
// epoll instance. Registered descriptors stay open.
func (l *Loop) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	l.engine.OnTimerChange(nil)
	l.signal()
	var bo iox.Backoff
	for l.running.LoadAcquire() {
		bo.Wait()
	}
	l.mu.Lock()
	clear(l.bindings)
	clear(l.sessions)
	l.kicks = nil
	l.mu.Unlock()
	err := errors.Join(unix.Close(l.wakefd), unix.Close(l.epfd))
	if err != nil {
		return os.NewSyscallError("close", err)
	}
	return nil
}

func (l *Loop) dispatch(ev *unix.EpollEvent) {
	if ev.Fd == int32(l.wakefd) {
		l.drainWakeup()
		return
	}
	l.mu.Lock()
	b := l.bindings[ev.Fd]
	l.mu.Unlock()
	if b == nil || b.session == nil {
		return
	}
	s := b.session
	if ev.Events&(unix.EPOLLIN|unix.EPOLLRDHUP|unix.EPOLLHUP|unix.EPOLLERR) != 0 {
		s.HandleSessionReady(acts.Input)
	}
	if ev.Events&(unix.EPOLLOUT|unix.EPOLLHUP|unix.EPOLLERR) != 0 {
		s.HandleSessionReady(acts.Output)
	}
	l.mu.Lock()
	l.update(b)
	l.mu.Unlock()
}

func (l *Loop) runKicks() {
	l.mu.Lock()
	kicks := l.kicks
	l.kicks = l.spare[:0]
	l.mu.Unlock()
	if len(kicks) == 0 {
		l.mu.Lock()
		l.spare = kicks
		l.mu.Unlock()
		return
	}
	for _, k := range kicks {
		k.s.HandleSessionReady(k.dir)
	}
	l.mu.Lock()
	for _, k := range kicks {
		if b := l.sessions[k.s]; b != nil {
			l.update(b)
		}
	}
	clear(kicks)
	l.spare = kicks[:0]
	l.mu.Unlock()
}

// update matches the epoll interest of b to what its session wants.
// Descriptors nobody waits on are removed from the epoll set so hangups
// do not spin the loop. Called with l.mu held.
func (l *Loop) update(b *binding) {
	if b.fd.closed.LoadAcquire() {
		return
	}
	var want uint32
	if b.session.Wants(acts.Input) {
		want |= unix.EPOLLIN | unix.EPOLLRDHUP
	}
	if b.session.Wants(acts.Output) {
		want |= unix.EPOLLOUT
	}
	if want == b.interest {
		return
	}
	fd := b.fd.Fd()
	ev := unix.EpollEvent{Events: want, Fd: int32(fd)}
	var err error
	switch {
	case b.interest == 0:
		err = unix.EpollCtl(l.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
	case want == 0:
		err = unix.EpollCtl(l.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	default:
		err = unix.EpollCtl(l.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
	}
	if err != nil {
		l.logger.Warning().Int("fd", fd).Err(err).Log("epoll interest update failed")
		return
	}
	b.interest = want
}

func (l *Loop) wakeup() {
	if l.wakePending.CompareAndSwap(false, true) {
		l.signal()
	}
}

func (l *Loop) signal() {
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	if _, err := unix.Write(l.wakefd, buf[:]); err != nil && err != unix.EAGAIN {
		l.logger.Debug().Err(err).Log("wakeup write failed")
	}
}

func (l *Loop) drainWakeup() {
	l.wakePending.StoreRelease(false)
	var buf [8]byte
	_, _ = unix.Read(l.wakefd, buf[:])
}

// pollTimeout bounds an epoll wait by the earliest act timeout.
func pollTimeout(t *timer.Set) int {
	d, ok := t.NextDelay()
	if !ok {
		return -1
	}
	if d <= 0 {
		return 0
	}
	d = min(d, maxPollWait)
	return int((d + time.Millisecond - 1) / time.Millisecond)
}
