// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package timer_test

import (
	"context"
	"sort"
	"sync"
	"testing"
	"testing/quick"
	"time"

	"code.hybscloud.com/atomix"
	"github.com/stretchr/testify/require"

	"code.hybscloud.com/acts/timer"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: time.Unix(1000, 0)} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

type recorder struct {
	mu     sync.Mutex
	epochs []uint64
}

func (r *recorder) Expire(epoch uint64) {
	r.mu.Lock()
	r.epochs = append(r.epochs, epoch)
	r.mu.Unlock()
}

func (r *recorder) fired() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint64(nil), r.epochs...)
}

func newEntry(t *testing.T, s *timer.Set, task timer.Task, d time.Duration) *timer.Entry {
	t.Helper()
	e := &timer.Entry{}
	e.Init(task, false)
	require.NoError(t, s.Register(e))
	e.SetTimeout(d)
	return e
}

func TestSetScheduleIdempotent(t *testing.T) {
	clk := newFakeClock()
	s := timer.NewSet(timer.WithClock(clk.Now))
	e := newEntry(t, s, &recorder{}, time.Second)

	require.True(t, s.Schedule(e, 0))
	require.False(t, s.Schedule(e, 0), "already scheduled")
	require.Equal(t, 1, s.Len())
	require.True(t, e.Scheduled())
	require.Equal(t, clk.Now().Add(time.Second), e.Trigger())
}

func TestSetZeroTimeout(t *testing.T) {
	clk := newFakeClock()
	s := timer.NewSet(timer.WithClock(clk.Now))
	rec := &recorder{}
	e := newEntry(t, s, rec, 0)
	require.False(t, s.Schedule(e, 0), "zero timeout means no timeout")

	z := &timer.Entry{}
	z.Init(rec, true)
	require.NoError(t, s.Register(z))
	require.True(t, s.Schedule(z, 0))
	require.True(t, s.Due(clk.Now()))
	require.Equal(t, 1, s.Expire(clk.Now()))
	require.Equal(t, []uint64{0}, rec.fired())
}

func TestSetRegisterForeign(t *testing.T) {
	a := timer.NewSet()
	b := timer.NewSet()
	e := &timer.Entry{}
	require.NoError(t, a.Register(e))
	require.NoError(t, a.Register(e))
	require.ErrorIs(t, b.Register(e), timer.ErrRegistered)
	e.SetTimeout(time.Second)
	require.False(t, b.Schedule(e, 0))

	require.True(t, a.Schedule(e, 0))
	a.Unregister(e)
	require.Equal(t, 0, a.Len())
	require.NoError(t, b.Register(e))
}

func TestSetEpochGuard(t *testing.T) {
	clk := newFakeClock()
	s := timer.NewSet(timer.WithClock(clk.Now))
	rec := &recorder{}
	e := newEntry(t, s, rec, 50*time.Millisecond)

	s.Expect(e, 1)
	require.True(t, s.Schedule(e, 1))

	// re-promotion: a new epoch supersedes the scheduled one
	s.Expect(e, 2)
	require.False(t, e.Scheduled(), "stale schedule dropped on expect")
	require.False(t, s.Schedule(e, 1), "stale epoch rejected")
	require.True(t, s.Schedule(e, 2))
	require.False(t, s.Cancel(e, 1), "stale cancel ignored")

	require.Equal(t, 0, s.Expire(clk.Advance(49*time.Millisecond)))
	require.Equal(t, 1, s.Expire(clk.Advance(time.Millisecond)))
	require.Equal(t, []uint64{2}, rec.fired())
}

func TestSetStaleEntryNeverFires(t *testing.T) {
	clk := newFakeClock()
	s := timer.NewSet(timer.WithClock(clk.Now))
	rec := &recorder{}
	e := newEntry(t, s, rec, time.Millisecond)
	s.Expect(e, 7)
	require.True(t, s.Schedule(e, 7))
	e2 := newEntry(t, s, rec, time.Millisecond)
	require.True(t, s.Schedule(e2, 0))

	s.Expect(e, 8)
	clk.Advance(time.Hour)
	require.Equal(t, 1, s.Expire(clk.Now()))
	require.Equal(t, []uint64{0}, rec.fired())
}

func TestSetCancel(t *testing.T) {
	clk := newFakeClock()
	s := timer.NewSet(timer.WithClock(clk.Now))
	rec := &recorder{}
	e := newEntry(t, s, rec, time.Second)
	s.Expect(e, 3)
	require.True(t, s.Schedule(e, 3))
	require.False(t, s.Cancel(e, 4))
	require.True(t, s.Cancel(e, 0), "epoch 0 always matches")
	require.False(t, s.Cancel(e, 0))
	require.False(t, e.Scheduled())
	clk.Advance(time.Hour)
	require.Equal(t, 0, s.Expire(clk.Now()))

	// the cached node is reused by the next schedule
	require.True(t, s.Schedule(e, 3))
	require.Equal(t, 1, s.Expire(clk.Advance(time.Second)))
}

func TestSetPollOrder(t *testing.T) {
	clk := newFakeClock()
	start := clk.Now()
	s := timer.NewSet(timer.WithClock(clk.Now))

	property := func(delays []uint16) bool {
		entries := make([]*timer.Entry, len(delays))
		for i, d := range delays {
			e := &timer.Entry{}
			e.Init(&recorder{}, true)
			if err := s.Register(e); err != nil {
				return false
			}
			e.SetTimeout(time.Duration(d) * time.Microsecond)
			s.Schedule(e, 0)
			entries[i] = e
		}
		limit := start.Add(time.Duration(1<<15) * time.Microsecond)
		var triggers []time.Time
		for {
			e, _, ok := s.Poll(limit)
			if !ok {
				break
			}
			if e.Trigger().After(limit) {
				return false
			}
			triggers = append(triggers, start.Add(e.Timeout()))
		}
		// whatever remains is not yet due
		for _, e := range entries {
			if e.Scheduled() {
				if !e.Trigger().After(limit) {
					return false
				}
				s.Cancel(e, 0)
			}
		}
		return sort.SliceIsSorted(triggers, func(i, j int) bool { return triggers[i].Before(triggers[j]) })
	}
	require.NoError(t, quick.Check(property, nil))
}

func TestSetNextDelay(t *testing.T) {
	clk := newFakeClock()
	s := timer.NewSet(timer.WithClock(clk.Now))
	_, ok := s.NextDelay()
	require.False(t, ok)

	a := newEntry(t, s, &recorder{}, 300*time.Millisecond)
	b := newEntry(t, s, &recorder{}, 100*time.Millisecond)
	s.Schedule(a, 0)
	s.Schedule(b, 0)

	d, ok := s.NextDelay()
	require.True(t, ok)
	require.Equal(t, 100*time.Millisecond, d)

	clk.Advance(time.Second)
	d, ok = s.NextDelay()
	require.True(t, ok)
	require.Zero(t, d)
	require.True(t, s.Due(clk.Now()))
}

type panicky struct {
	notified atomix.Pointer[error]
}

func (p *panicky) Expire(uint64) { panic("boom") }

func (p *panicky) NotifyPanic(err error) { p.notified.Store(&err) }

func TestSetExpirePanicDoesNotStallSweep(t *testing.T) {
	clk := newFakeClock()
	var handled atomix.Int32
	s := timer.NewSet(timer.WithClock(clk.Now), timer.WithPanicHandler(func(*timer.Entry, error) {
		handled.Add(1)
	}))
	p := &panicky{}
	bad := newEntry(t, s, p, time.Millisecond)
	anon := newEntry(t, s, timer.TaskFunc(func(uint64) { panic("anon") }), 2*time.Millisecond)
	rec := &recorder{}
	good := newEntry(t, s, rec, 3*time.Millisecond)
	s.Schedule(bad, 0)
	s.Schedule(anon, 0)
	s.Schedule(good, 0)

	require.Equal(t, 3, s.Expire(clk.Advance(time.Second)))
	require.NotNil(t, p.notified.Load())
	require.ErrorContains(t, *p.notified.Load(), "boom")
	require.EqualValues(t, 1, handled.Load())
	require.Len(t, rec.fired(), 1)
	require.Equal(t, 0, s.Len())
}

func TestSetIteratorSurvivesCancel(t *testing.T) {
	clk := newFakeClock()
	s := timer.NewSet(timer.WithClock(clk.Now))
	es := make([]*timer.Entry, 4)
	for i := range es {
		es[i] = newEntry(t, s, &recorder{}, time.Duration(i+1)*time.Second)
		s.Schedule(es[i], 0)
	}
	it := s.Iterator()
	defer it.Close()
	e, ok := it.Next()
	require.True(t, ok)
	require.Same(t, es[0], e)

	// cancel the entry the cursor is about to visit
	require.True(t, s.Cancel(es[1], 0))
	e, ok = it.Next()
	require.True(t, ok)
	require.Same(t, es[2], e)
	e, ok = it.Next()
	require.True(t, ok)
	require.Same(t, es[3], e)
	_, ok = it.Next()
	require.False(t, ok)
}

func TestSetRunFiresAfterDelay(t *testing.T) {
	s := timer.NewSet()
	fired := make(chan time.Time, 1)
	e := &timer.Entry{}
	e.Init(timer.TaskFunc(func(uint64) { fired <- time.Now() }), false)
	require.NoError(t, s.Register(e))
	e.SetTimeout(30 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	start := time.Now()
	require.True(t, s.Schedule(e, 0))
	select {
	case at := <-fired:
		require.GreaterOrEqual(t, at.Sub(start), 30*time.Millisecond)
	case <-time.After(5 * time.Second):
		t.Fatal("entry did not fire")
	}
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestSetNotifyOnEarliest(t *testing.T) {
	var calls atomix.Int32
	s := timer.NewSet(timer.WithNotify(func() { calls.Add(1) }))
	late := newEntry(t, s, &recorder{}, time.Hour)
	early := newEntry(t, s, &recorder{}, time.Minute)
	later := newEntry(t, s, &recorder{}, 2*time.Hour)
	s.Schedule(late, 0)
	s.Schedule(early, 0)
	s.Schedule(later, 0)
	require.EqualValues(t, 2, calls.Load())
}

func TestEntryAccessorsDuringUnregister(t *testing.T) {
	skipRace(t)
	s := timer.NewSet()
	e := newEntry(t, s, &recorder{}, time.Hour)
	require.True(t, s.Schedule(e, 0))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 1000 {
			_ = e.Timeout()
			_ = e.Scheduled()
			_ = e.Trigger()
			e.SetTimeout(time.Hour)
		}
	}()
	s.Unregister(e)
	<-done

	require.Nil(t, e.Set())
	require.False(t, e.Scheduled())
	require.Equal(t, 0, s.Len())
	require.Equal(t, time.Hour, e.Timeout())
}
