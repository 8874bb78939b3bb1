// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package acts

import (
	"code.hybscloud.com/iox"
	"code.hybscloud.com/kont"
)

// runPair returns a private engine without a sweeper and two sessions
// joined by a pipe. The caller sweeps the engine's timers.
func runPair() (*Engine, *Session, *Session) {
	eng := NewEngine(WithoutSweeper(), WithPoolSize(8))
	sa, sb, err := eng.NewPipe()
	if err != nil {
		// a fresh engine is never closed
		panic(err)
	}
	return eng, sa, sb
}

// Run runs a against b over an in-memory pipe and returns both results.
// Both sides are interleaved on the calling goroutine with adaptive
// backoff when neither can make progress; expired act timeouts are swept
// between attempts.
func Run[A, B any](a kont.Eff[A], b kont.Eff[B]) (A, B) {
	return RunExpr(Reify(a), Reify(b))
}

// RunExpr is the Expr-world form of [Run].
func RunExpr[A, B any](a kont.Expr[A], b kont.Expr[B]) (A, B) {
	eng, sa, sb := runPair()
	defer eng.Close()
	resultA, suspA := Step[A](a)
	resultB, suspB := Step[B](b)
	var bo iox.Backoff
	for suspA != nil || suspB != nil {
		progress := false
		if suspA != nil {
			var err error
			if resultA, suspA, err = Advance(sa, suspA); err == nil {
				progress = true
			}
		}
		if suspB != nil {
			var err error
			if resultB, suspB, err = Advance(sb, suspB); err == nil {
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
