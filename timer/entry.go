// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package timer

import (
	"time"

	"code.hybscloud.com/atomix"
)

// Task is run when an entry expires. epoch is the stamp the entry was
// scheduled with; 0 means the schedule was unconditional.
type Task interface {
	Expire(epoch uint64)
}

// TaskFunc adapts a function to [Task].
type TaskFunc func(epoch uint64)

// Expire calls f(epoch).
func (f TaskFunc) Expire(epoch uint64) { f(epoch) }

// PanicNotifier is optionally implemented by a [Task] that wants to learn
// about a panic raised by its own Expire.
type PanicNotifier interface {
	NotifyPanic(err error)
}

// Entry is a timeout registered with one [Set]. set is published
// atomically so accessors can find the Set's mutex; every other field is
// guarded by that mutex.
type Entry struct {
	task      Task
	set       atomix.Pointer[Set]
	node      *node
	timeout   time.Duration
	trigger   time.Time
	seq       uint64
	expected  uint64
	stamp     uint64
	scheduled bool
	allowZero bool
}

// Init prepares e to run task on expiry. allowZero lets e be scheduled
// with a zero or negative timeout, firing on the next sweep; otherwise
// such schedules are ignored (infinite wait).
func (e *Entry) Init(task Task, allowZero bool) {
	e.task = task
	e.allowZero = allowZero
}

// Set returns the Set e is registered with, or nil.
func (e *Entry) Set() *Set { return e.set.LoadAcquire() }

// SetTimeout changes the delay used by the next schedule.
func (e *Entry) SetTimeout(d time.Duration) {
	if s := e.set.LoadAcquire(); s != nil {
		s.mu.Lock()
		e.timeout = d
		s.mu.Unlock()
		return
	}
	e.timeout = d
}

// Timeout returns the configured delay.
func (e *Entry) Timeout() time.Duration {
	if s := e.set.LoadAcquire(); s != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return e.timeout
}

// Scheduled reports whether e is waiting in its Set.
func (e *Entry) Scheduled() bool {
	s := e.set.LoadAcquire()
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return e.scheduled
}

// Trigger returns the absolute time e fires at, valid while scheduled.
func (e *Entry) Trigger() time.Time {
	s := e.set.LoadAcquire()
	if s == nil {
		return time.Time{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return e.trigger
}

func (e *Entry) stale() bool {
	return e.stamp != 0 && e.stamp != e.expected
}
