// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package acts

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/kont"
)

// sessionDispatcher is implemented by the effect operations of this
// package. DispatchSession is non-blocking: it returns iox.ErrWouldBlock
// while the act it submitted is still in flight.
type sessionDispatcher interface {
	DispatchSession(s *Session) (kont.Resumed, error)
}

// effectSlot tracks the one act an effect protocol has in flight on a
// direction. Only the goroutine stepping the protocol touches busy.
type effectSlot struct {
	busy bool
	done atomix.Bool
	res  Result
}

func (e *effectSlot) complete(res Result) {
	e.res = res
	e.done.StoreRelease(true)
}

func (e *effectSlot) dispatch(submit func(Callback) error) (kont.Resumed, error) {
	if !e.busy {
		e.done.StoreRelease(false)
		e.busy = true
		if err := submit(e.complete); err != nil {
			e.busy = false
			return Result{State: StateFailed, Err: err}, nil
		}
	}
	if !e.done.LoadAcquire() {
		return nil, iox.ErrWouldBlock
	}
	e.busy = false
	res := e.res
	e.res = Result{}
	return res, nil
}

// Read is the effect operation reading into Entry.
// Perform(Read{Entry: e}) resumes with the act's [Result].
type Read struct {
	kont.Phantom[Result]
	Entry   Entry
	Options []ActOption
}

// DispatchSession submits the read on first dispatch and resumes once it
// completes. A rejected region resumes immediately with a failed result.
func (o Read) DispatchSession(s *Session) (kont.Resumed, error) {
	return s.effects[Input].dispatch(func(cb Callback) error {
		_, err := s.Read(o.Entry, cb, o.Options...)
		return err
	})
}

// Write is the effect operation writing from Entry.
// Perform(Write{Entry: e}) resumes with the act's [Result].
type Write struct {
	kont.Phantom[Result]
	Entry   Entry
	Options []ActOption
}

// DispatchSession submits the write on first dispatch and resumes once it
// completes.
func (o Write) DispatchSession(s *Session) (kont.Resumed, error) {
	return s.effects[Output].dispatch(func(cb Callback) error {
		_, err := s.Write(o.Entry, cb, o.Options...)
		return err
	})
}

// Shutdown is the effect operation closing the session's output half.
// The peer reads EOF once earlier writes are consumed. Never blocks.
type Shutdown struct {
	kont.Phantom[struct{}]
}

// DispatchSession shuts the output half down.
func (Shutdown) DispatchSession(s *Session) (kont.Resumed, error) {
	s.ShutdownOutput(nil)
	return struct{}{}, nil
}
