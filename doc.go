// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package acts is an asynchronous I/O engine for non-blocking stream and
// datagram channels. Callers submit acts, single reads or writes over a
// buffer, a file region or a datagram, and learn their outcome through a
// [Future] and a callback.
//
// # Architecture
//
//   - Sessions: a [Session] binds [Channels] to an input and an output actor.
//     Each actor keeps a lock-free FIFO of pending acts ([code.hybscloud.com/acts/queue])
//     and drives one current act at a time.
//   - Timeouts: every act carries a timer entry in its [Engine]'s epoch
//     guarded timer set ([code.hybscloud.com/acts/timer]). An epoch is
//     minted each time an act becomes current, so a timer fired for an
//     earlier occupancy is dropped.
//   - Outcomes: completion, timeout, failure and cancellation race on one
//     compare-and-swap; exactly one wins and the callback runs once.
//   - Readiness: acts never block. Channels return
//     [code.hybscloud.com/iox.ErrWouldBlock] and the session is driven again
//     through [Session.HandleSessionReady], either by an event loop
//     (see [code.hybscloud.com/acts/reactor]) or by an in-memory [PipeEnd].
//
// # Effects
//
// Acts are also exposed as [code.hybscloud.com/kont] effects: [Read],
// [Write] and [Shutdown], with fused forms such as [ReadBind] and
// [WriteThen]. [Exec] and [ExecError] run a protocol on a session,
// [Step] and [Advance] drive it one act at a time, and [Run] connects two
// protocols through a pipe.
//
// # Example
//
//	eng := acts.NewEngine()
//	defer eng.Close()
//	a, b, _ := eng.NewPipe()
//	var w acts.Waiter
//	buf := acts.NewBuffer(5)
//	b.Read(acts.BufferEntry(buf, 5), w.Callback, acts.WithTimeout(time.Second))
//	a.Write(acts.BufferEntry(acts.WrapBuffer([]byte("hello")), acts.Unbounded), nil)
//	res, _ := w.Wait(ctx)
//	fmt.Println(res.State, string(buf.Data())) // accomplished hello
package acts
