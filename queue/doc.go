// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package queue provides an intrusive, unbounded, multi-producer
// multi-consumer FIFO queue.
//
// Elements embed a [Link] and expose it through [Linked]. An element is on
// at most one queue at a time: offering it to the queue it is already on is
// a no-op, offering it to a different queue fails with [ErrForeignQueue].
//
// The algorithm is the compare-and-swap linked queue with a dummy head,
// lazy tail advancement and helping. [Queue.Remove] deletes an element from
// anywhere in the queue by marking its node dead in place; dead nodes are
// physically unlinked later, when the head sweeps past them.
//
// Iteration is weakly consistent: an [Iterator] never yields an element
// that was removed before the yield, but may miss elements appended after
// it started. Use it for best-effort cleanup, not for correctness-critical
// reads.
//
// Unlike the bounded rings of [code.hybscloud.com/lfq], Queue never reports
// backpressure; Poll on an empty queue simply returns false.
package queue
