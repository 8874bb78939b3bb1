// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package acts

import (
	"code.hybscloud.com/iox"
	"code.hybscloud.com/kont"
)

// sessionHandler implements kont.Handler for the operations of this
// package, waiting past iox.ErrWouldBlock.
type sessionHandler[R any] struct {
	s *Session
}

// Dispatch implements kont.Handler.
func (h sessionHandler[R]) Dispatch(op kont.Operation) (kont.Resumed, bool) {
	sop, ok := op.(sessionDispatcher)
	if !ok {
		panic("acts: unhandled effect in sessionHandler")
	}
	return dispatchWait(h.s, sop), true
}

// dispatchWait retries DispatchSession with adaptive backoff until the
// act it submitted completes.
func dispatchWait(s *Session, sop sessionDispatcher) kont.Resumed {
	var bo iox.Backoff
	for {
		v, err := sop.DispatchSession(s)
		if err == nil {
			return v
		}
		bo.Wait()
	}
}

// Exec runs a Cont-world protocol on s, blocking with adaptive backoff
// while acts are in flight. Acts are driven by s's channels and waker;
// Exec itself only waits.
func Exec[R any](s *Session, protocol kont.Eff[R]) R {
	return kont.Handle(protocol, sessionHandler[R]{s: s})
}

// ExecExpr runs an Expr-world protocol on s. See [Exec].
func ExecExpr[R any](s *Session, protocol kont.Expr[R]) R {
	return kont.HandleExpr(protocol, sessionHandler[R]{s: s})
}
