// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package acts

import (
	"code.hybscloud.com/kont"
)

// Step evaluates a protocol until its first act.
// Returns (result, nil) on completion, or (zero, suspension) if pending.
func Step[R any](protocol kont.Expr[R]) (R, *kont.Suspension[R]) {
	return kont.StepExpr(protocol)
}

// Advance dispatches the suspended operation on s. The first dispatch of
// a Read or Write submits the act; later ones return iox.ErrWouldBlock,
// leaving the suspension unconsumed, until the act completes. An event
// loop can call Advance after every readiness pass.
func Advance[R any](s *Session, susp *kont.Suspension[R]) (R, *kont.Suspension[R], error) {
	sop, ok := susp.Op().(sessionDispatcher)
	if !ok {
		panic("acts: unhandled effect in Advance")
	}
	v, err := sop.DispatchSession(s)
	if err != nil {
		var zero R
		return zero, susp, err
	}
	result, next := susp.Resume(v)
	return result, next, nil
}
