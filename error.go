// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package acts

import (
	"code.hybscloud.com/iox"
	"code.hybscloud.com/kont"
)

// errorDispatcher is the structural interface of kont error operations.
type errorDispatcher[E any] interface {
	DispatchError(ctx *kont.ErrorContext[E]) (kont.Resumed, bool)
}

// sessionErrorHandler handles act operations and error effects. Acts wait
// on iox.ErrWouldBlock; Throw short-circuits.
type sessionErrorHandler[E, A any] struct {
	s      *Session
	errCtx *kont.ErrorContext[E]
}

// Dispatch implements kont.Handler. Acts are tried before errors.
func (h sessionErrorHandler[E, A]) Dispatch(op kont.Operation) (kont.Resumed, bool) {
	if sop, ok := op.(sessionDispatcher); ok {
		return dispatchWait(h.s, sop), true
	}
	if eop, ok := op.(errorDispatcher[E]); ok {
		v, _ := eop.DispatchError(h.errCtx)
		if h.errCtx.HasErr {
			return kont.Left[E, A](h.errCtx.Err), false
		}
		return v, true
	}
	panic("acts: unhandled effect in sessionErrorHandler")
}

// ExecError runs a protocol with error effects on s.
// Returns Right on success, Left on Throw.
func ExecError[E, R any](s *Session, protocol kont.Eff[R]) kont.Either[E, R] {
	wrapped := kont.Map[kont.Resumed, R, kont.Either[E, R]](protocol, func(r R) kont.Either[E, R] {
		return kont.Right[E, R](r)
	})
	var errCtx kont.ErrorContext[E]
	return kont.Handle(wrapped, sessionErrorHandler[E, R]{s: s, errCtx: &errCtx})
}

// ExecErrorExpr is the Expr-world form of [ExecError].
func ExecErrorExpr[E, R any](s *Session, protocol kont.Expr[R]) kont.Either[E, R] {
	wrapped := kont.ExprMap(protocol, func(r R) kont.Either[E, R] {
		return kont.Right[E, R](r)
	})
	var errCtx kont.ErrorContext[E]
	return kont.HandleExpr(wrapped, sessionErrorHandler[E, R]{s: s, errCtx: &errCtx})
}

// StepError evaluates a protocol with error support until its first
// suspension.
func StepError[E, R any](protocol kont.Expr[R]) (kont.Either[E, R], *kont.Suspension[kont.Either[E, R]]) {
	wrapped := kont.ExprMap(protocol, func(r R) kont.Either[E, R] {
		return kont.Right[E, R](r)
	})
	return kont.StepExpr(wrapped)
}

// AdvanceError dispatches the suspended operation on s. Acts are
// non-blocking; a Throw discards the suspension and returns Left.
func AdvanceError[E, R any](s *Session, susp *kont.Suspension[kont.Either[E, R]]) (kont.Either[E, R], *kont.Suspension[kont.Either[E, R]], error) {
	switch op := susp.Op().(type) {
	case sessionDispatcher:
		v, err := op.DispatchSession(s)
		if err != nil {
			var zero kont.Either[E, R]
			return zero, susp, err
		}
		result, next := susp.Resume(v)
		return result, next, nil
	case errorDispatcher[E]:
		var ctx kont.ErrorContext[E]
		v, _ := op.DispatchError(&ctx)
		if ctx.HasErr {
			susp.Discard()
			return kont.Left[E, R](ctx.Err), nil, nil
		}
		result, next := susp.Resume(v)
		return result, next, nil
	}
	panic("acts: unhandled effect in AdvanceError")
}

// RunError runs a against b over an in-memory pipe, with error effects,
// interleaving both on the calling goroutine.
func RunError[E, A, B any](a kont.Eff[A], b kont.Eff[B]) (kont.Either[E, A], kont.Either[E, B]) {
	return RunErrorExpr[E](Reify(a), Reify(b))
}

// RunErrorExpr is the Expr-world form of [RunError].
func RunErrorExpr[E, A, B any](a kont.Expr[A], b kont.Expr[B]) (kont.Either[E, A], kont.Either[E, B]) {
	eng, sa, sb := runPair()
	defer eng.Close()
	resultA, suspA := StepError[E, A](a)
	resultB, suspB := StepError[E, B](b)
	var bo iox.Backoff
	for suspA != nil || suspB != nil {
		progress := false
		if suspA != nil {
			var err error
			if resultA, suspA, err = AdvanceError[E](sa, suspA); err == nil {
				progress = true
			}
		}
		if suspB != nil {
			var err error
			if resultB, suspB, err = AdvanceError[E](sb, suspB); err == nil {
				progress = true
			}
		}
		if progress {
			bo.Reset()
			continue
		}
		eng.timers.Expire(eng.now())
		bo.Wait()
	}
	return resultA, resultB
}
