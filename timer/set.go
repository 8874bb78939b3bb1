// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package timer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrRegistered is returned when registering an entry that already
	// belongs to another Set.
	ErrRegistered = errors.New("timer: entry registered with another set")
)

// idleDelay bounds the sweeper wait when no entry is scheduled.
const idleDelay = time.Minute

// Option configures a [Set].
type Option func(*Set)

// WithClock replaces time.Now as the Set's clock.
func WithClock(now func() time.Time) Option {
	return func(s *Set) { s.now = now }
}

// WithNotify installs a hook called, outside the lock, whenever a schedule
// makes its entry the earliest one. Event loops use it to shorten their
// current wait.
func WithNotify(notify func()) Option {
	return func(s *Set) { s.notify = notify }
}

// WithPanicHandler installs the handler told about panics raised by tasks
// that do not implement [PanicNotifier].
func WithPanicHandler(h func(e *Entry, err error)) Option {
	return func(s *Set) { s.onPanic = h }
}

// Set is an ordered collection of timeout entries.
type Set struct {
	mu      sync.Mutex
	tree    tree
	cursors []*Iterator
	seq     uint64
	now     func() time.Time
	notify  func()
	onPanic func(e *Entry, err error)
	wake    chan struct{}
}

// NewSet returns an empty Set.
func NewSet(opts ...Option) *Set {
	s := &Set{
		now:  time.Now,
		wake: make(chan struct{}, 1),
	}
	for _, o := range opts {
		if o != nil {
			o(s)
		}
	}
	s.tree.init()
	return s
}

// Now returns the Set's current time.
func (s *Set) Now() time.Time { return s.now() }

// Len returns the number of scheduled entries.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.size
}

// Register binds e to s. Registering again with the same Set is a no-op.
func (s *Set) Register(e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur := e.set.LoadAcquire(); cur != nil && cur != s {
		return ErrRegistered
	}
	e.set.StoreRelease(s)
	return nil
}

// Unregister cancels e and detaches it from s permanently.
func (s *Set) Unregister(e *Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.set.LoadAcquire() != s {
		return
	}
	if e.scheduled {
		s.remove(e)
	}
	e.set.StoreRelease(nil)
	e.node = nil
	e.expected, e.stamp = 0, 0
}

// Expect publishes the epoch e's owner currently expects. A scheduled
// entry stamped with another epoch is dropped.
func (s *Set) Expect(e *Entry, epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.set.LoadAcquire() != s {
		return
	}
	e.expected = epoch
	if e.scheduled && e.stale() {
		s.remove(e)
	}
}

// Schedule inserts e to fire after its timeout. It returns false when e is
// not registered with s, is already scheduled, carries a non-positive
// timeout without zero scheduling enabled, or when epoch is stale.
func (s *Set) Schedule(e *Entry, epoch uint64) bool {
	s.mu.Lock()
	if e.set.LoadAcquire() != s || e.scheduled || (epoch != 0 && epoch != e.expected) {
		s.mu.Unlock()
		return false
	}
	d := e.timeout
	if d <= 0 {
		if !e.allowZero {
			s.mu.Unlock()
			return false
		}
		d = 0
	}
	e.trigger = s.now().Add(d)
	e.stamp = epoch
	s.seq++
	e.seq = s.seq
	n := e.node
	if n == nil {
		n = &node{}
		e.node = n
	}
	n.entry = e
	s.tree.insert(n)
	e.scheduled = true
	earliest := s.tree.first() == n
	s.mu.Unlock()

	if earliest {
		s.signal()
	}
	return true
}

// Cancel removes e if it is scheduled and epoch matches its stamp.
func (s *Set) Cancel(e *Entry, epoch uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.set.LoadAcquire() != s || !e.scheduled {
		return false
	}
	if epoch != 0 && epoch != e.stamp {
		return false
	}
	s.remove(e)
	return true
}

// remove deletes e's node, moving any cursor parked on it forward.
func (s *Set) remove(e *Entry) {
	n := e.node
	if len(s.cursors) != 0 {
		succ := s.tree.successor(n)
		for _, c := range s.cursors {
			if c.next == n {
				c.next = succ
			}
		}
	}
	s.tree.delete(n)
	e.scheduled = false
}

// Poll pops the earliest entry due at now and returns it with the epoch it
// was scheduled under. Stale entries are discarded silently.
func (s *Set) Poll(now time.Time) (*Entry, uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		n := s.tree.first()
		if n == nil || n.entry.trigger.After(now) {
			return nil, 0, false
		}
		e := n.entry
		s.remove(e)
		if e.stale() {
			continue
		}
		return e, e.stamp, true
	}
}

// Due reports whether an entry is due at now, without removing it.
func (s *Set) Due(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.tree.first()
	return n != nil && !n.entry.trigger.After(now)
}

// NextDelay returns the delay until the earliest trigger, zero when one is
// already due, and false when nothing is scheduled.
func (s *Set) NextDelay() (time.Duration, bool) {
	s.mu.Lock()
	n := s.tree.first()
	if n == nil {
		s.mu.Unlock()
		return 0, false
	}
	trigger := n.entry.trigger
	s.mu.Unlock()
	d := trigger.Sub(s.now())
	if d < 0 {
		d = 0
	}
	return d, true
}

// Expire pops every entry due at now and runs its task outside the lock.
// A panicking task is discarded and reported; the sweep continues.
func (s *Set) Expire(now time.Time) int {
	n := 0
	for {
		e, epoch, ok := s.Poll(now)
		if !ok {
			return n
		}
		n++
		s.run(e, epoch)
	}
}

func (s *Set) run(e *Entry, epoch uint64) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("timer: task panic: %v", r)
			if pn, ok := e.task.(PanicNotifier); ok {
				pn.NotifyPanic(err)
			} else if s.onPanic != nil {
				s.onPanic(e, err)
			}
		}
	}()
	if e.task != nil {
		e.task.Expire(epoch)
	}
}

func (s *Set) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
	if s.notify != nil {
		s.notify()
	}
}

// Run sweeps s until ctx is done, sleeping until the earliest trigger and
// waking early when a sooner entry is scheduled.
func (s *Set) Run(ctx context.Context) error {
	t := time.NewTimer(idleDelay)
	defer t.Stop()
	for {
		s.Expire(s.now())
		d, ok := s.NextDelay()
		if !ok {
			d = idleDelay
		}
		t.Reset(d)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		case <-s.wake:
		}
	}
}

// Iterator walks scheduled entries in trigger order. It stays valid while
// entries are cancelled or fired concurrently; Close releases it.
type Iterator struct {
	s    *Set
	next *node
	done bool
}

// Iterator returns a cursor positioned at the earliest entry.
func (s *Set) Iterator() *Iterator {
	s.mu.Lock()
	defer s.mu.Unlock()
	it := &Iterator{s: s, next: s.tree.first()}
	s.cursors = append(s.cursors, it)
	return it
}

// Next returns the next scheduled entry.
func (it *Iterator) Next() (*Entry, bool) {
	it.s.mu.Lock()
	defer it.s.mu.Unlock()
	if it.done || it.next == nil {
		return nil, false
	}
	n := it.next
	it.next = it.s.tree.successor(n)
	return n.entry, true
}

// Close detaches the cursor from its Set.
func (it *Iterator) Close() {
	it.s.mu.Lock()
	defer it.s.mu.Unlock()
	if it.done {
		return
	}
	it.done = true
	for i, c := range it.s.cursors {
		if c == it {
			it.s.cursors = append(it.s.cursors[:i], it.s.cursors[i+1:]...)
			break
		}
	}
}
