// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package reactor drives acts sessions over non-blocking file descriptors
// with a Linux epoll readiness loop.
//
// A [Loop] owns an epoll instance and an eventfd for wakeups. Each
// registered [FD] is bound to an acts session whose waker is the loop:
// submitting an act queues a drive on the loop goroutine, and epoll
// interest follows [acts.Session.Wants] so idle descriptors are not
// polled. The loop also sweeps the engine's act timeouts, bounding each
// wait by the earliest trigger.
//
//	eng := acts.NewEngine(acts.WithoutSweeper())
//	loop, _ := reactor.New(eng)
//	fd, _ := reactor.NewFD(sock)
//	s, _ := loop.Register(fd)
//	go loop.Run(ctx)
//	s.Read(acts.BufferEntry(buf, 512), onRead, acts.WithTimeout(time.Second))
package reactor
