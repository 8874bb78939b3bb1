// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package queue

import (
	"errors"
	"iter"

	"code.hybscloud.com/atomix"
)

// ErrForeignQueue is returned by [Queue.Offer] when the element is
// already linked on another queue.
var ErrForeignQueue = errors.New("queue: element belongs to another queue")

const (
	nodeDead uint32 = iota
	nodeLive
)

// Link is the hook an element embeds to be placed on a [Queue].
// The zero value is an unlinked hook.
type Link[E any] struct {
	node atomix.Pointer[node[E]]
}

// Queued reports whether the element owning l is currently linked.
func (l *Link[E]) Queued() bool {
	return l.node.LoadAcquire() != nil
}

// Linked is the constraint satisfied by queue elements, usually a pointer
// to a struct embedding a [Link].
type Linked[E any] interface {
	comparable
	QueueLink() *Link[E]
}

// node carries one element through the queue. A node is published once and
// never reused; its value is immutable after publication. A fresh node per
// Offer keeps every head, tail and next CAS free of ABA: a pointer seen by
// one CAS can never name a recycled node, because the collector frees a
// node only once nothing references it.
type node[E any] struct {
	value E
	next  atomix.Pointer[node[E]]
	state atomix.Uint32
	owner *anchor[E]
}

// anchor holds the queue's head and tail, and doubles as the queue identity
// stored in each node.
type anchor[E any] struct {
	head atomix.Pointer[node[E]]
	tail atomix.Pointer[node[E]]
}

// Queue is an intrusive lock-free FIFO queue. Call [Queue.Init] before use
// or create one with [New].
type Queue[E Linked[E]] struct {
	anchor[E]
}

// New returns an initialized empty queue.
func New[E Linked[E]]() *Queue[E] {
	q := &Queue[E]{}
	q.Init()
	return q
}

// Init resets q to an empty queue. It must not be called concurrently with
// any other method.
func (q *Queue[E]) Init() {
	sentinel := &node[E]{}
	q.head.StoreRelease(sentinel)
	q.tail.StoreRelease(sentinel)
}

// Offer appends e to the tail of q.
//
// It returns true when e was linked, false when e was already on q, and
// ErrForeignQueue when e is on another queue.
func (q *Queue[E]) Offer(e E) (bool, error) {
	l := e.QueueLink()
	for {
		if cur := l.node.LoadAcquire(); cur != nil {
			if cur.state.LoadAcquire() == nodeDead {
				// removal in progress, finish detaching
				l.node.CompareAndSwap(cur, nil)
				continue
			}
			if cur.owner == &q.anchor {
				return false, nil
			}
			return false, ErrForeignQueue
		}
		n := &node[E]{value: e, owner: &q.anchor}
		n.state.StoreRelease(nodeLive)
		if !l.node.CompareAndSwap(nil, n) {
			continue
		}
		q.append(n)
		return true, nil
	}
}

func (q *Queue[E]) append(n *node[E]) {
	for {
		t := q.tail.LoadAcquire()
		next := t.next.LoadAcquire()
		if t != q.tail.LoadAcquire() {
			continue
		}
		if next != nil {
			q.tail.CompareAndSwap(t, next)
			continue
		}
		if t.next.CompareAndSwap(nil, n) {
			q.tail.CompareAndSwap(t, n)
			return
		}
	}
}

// Poll removes and returns the element at the head of q.
func (q *Queue[E]) Poll() (e E, ok bool) {
	for {
		h := q.head.LoadAcquire()
		t := q.tail.LoadAcquire()
		next := h.next.LoadAcquire()
		if h != q.head.LoadAcquire() {
			continue
		}
		if next == nil {
			return e, false
		}
		if h == t {
			q.tail.CompareAndSwap(t, next)
			continue
		}
		if !q.head.CompareAndSwap(h, next) {
			continue
		}
		if q.claim(next) {
			return next.value, true
		}
	}
}

// Peek returns the element at the head of q without removing it.
func (q *Queue[E]) Peek() (e E, ok bool) {
	for n := q.head.LoadAcquire().next.LoadAcquire(); n != nil; n = n.next.LoadAcquire() {
		if n.state.LoadAcquire() == nodeLive {
			return n.value, true
		}
	}
	return e, false
}

// Empty reports whether q holds no live element.
func (q *Queue[E]) Empty() bool {
	_, ok := q.Peek()
	return !ok
}

// Contains reports whether e is currently linked on q.
func (q *Queue[E]) Contains(e E) bool {
	n := e.QueueLink().node.LoadAcquire()
	return n != nil && n.owner == &q.anchor && n.state.LoadAcquire() == nodeLive
}

// Remove unlinks e from q wherever it is. It reports whether this call
// removed it; when Remove races with Poll or another Remove, exactly one
// of them wins.
func (q *Queue[E]) Remove(e E) bool {
	n := e.QueueLink().node.LoadAcquire()
	if n == nil || n.owner != &q.anchor {
		return false
	}
	if !q.claim(n) {
		return false
	}
	q.sweep()
	return true
}

// claim marks n dead and detaches it from its element. Only one caller
// can claim a node.
func (q *Queue[E]) claim(n *node[E]) bool {
	if !n.state.CompareAndSwap(nodeLive, nodeDead) {
		return false
	}
	n.value.QueueLink().node.CompareAndSwap(n, nil)
	return true
}

// sweep advances the head past dead nodes, physically unlinking them.
func (q *Queue[E]) sweep() {
	for {
		h := q.head.LoadAcquire()
		next := h.next.LoadAcquire()
		if next == nil || next.state.LoadAcquire() == nodeLive {
			return
		}
		if t := q.tail.LoadAcquire(); h == t {
			q.tail.CompareAndSwap(t, next)
		}
		q.head.CompareAndSwap(h, next)
	}
}

// Iterator is a weakly consistent cursor over a [Queue].
type Iterator[E Linked[E]] struct {
	q      *Queue[E]
	cursor *node[E]
	last   *node[E]
}

// Iterator returns a cursor positioned before the first live element.
func (q *Queue[E]) Iterator() *Iterator[E] {
	return &Iterator[E]{q: q, cursor: q.head.LoadAcquire()}
}

// Next advances to the next live element.
func (it *Iterator[E]) Next() (e E, ok bool) {
	it.last = nil
	if it.cursor == nil {
		return e, false
	}
	// nodes behind the head keep their next pointers, so a cursor
	// overtaken by the head still walks into the live part
	for n := it.cursor.next.LoadAcquire(); n != nil; n = n.next.LoadAcquire() {
		it.cursor = n
		if n.state.LoadAcquire() == nodeLive {
			it.last = n
			return n.value, true
		}
	}
	return e, false
}

// Remove unlinks the element most recently returned by Next. It reports
// false if that element was already removed by someone else.
func (it *Iterator[E]) Remove() bool {
	n := it.last
	if n == nil {
		return false
	}
	it.last = nil
	if !it.q.claim(n) {
		return false
	}
	it.q.sweep()
	return true
}

// All returns an iterator over the live elements of q.
func (q *Queue[E]) All() iter.Seq[E] {
	return func(yield func(E) bool) {
		it := q.Iterator()
		for {
			e, ok := it.Next()
			if !ok || !yield(e) {
				return
			}
		}
	}
}
