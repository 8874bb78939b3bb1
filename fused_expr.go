// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package acts

import (
	"code.hybscloud.com/kont"
)

var (
	exprReturnFrame kont.Frame  = kont.ReturnFrame{}
	exprShutdown    kont.Erased = Shutdown{}
)

func identityResume(v kont.Erased) kont.Erased { return v }

// resultBindUnwind feeds an act's Result to the bound continuation.
func resultBindUnwind[B any](data, _, _ kont.Erased, current kont.Erased) (kont.Erased, kont.Frame) {
	f := data.(func(Result) kont.Expr[B])
	next := f(current.(Result))
	return kont.Erased(next.Value), next.Frame
}

func exprBind[B any](op kont.Erased, f func(Result) kont.Expr[B]) kont.Expr[B] {
	bf := kont.AcquireUnwindFrame()
	bf.Data1 = f
	bf.Unwind = resultBindUnwind[B]
	ef := kont.AcquireEffectFrame()
	ef.Operation = op
	ef.Resume = identityResume
	ef.Next = bf
	return kont.ExprSuspend[B](ef)
}

func exprThen[B any](op kont.Erased, next kont.Expr[B]) kont.Expr[B] {
	tf := kont.AcquireThenFrame()
	tf.Second = kont.Expr[kont.Erased]{Value: kont.Erased(next.Value), Frame: next.Frame}
	tf.Next = exprReturnFrame
	ef := kont.AcquireEffectFrame()
	ef.Operation = op
	ef.Resume = identityResume
	ef.Next = tf
	return kont.ExprSuspend[B](ef)
}

// ExprReadBind reads into e and passes the result to f.
// Fuses ExprPerform(Read{...}) + ExprBind.
func ExprReadBind[B any](e Entry, f func(Result) kont.Expr[B], opts ...ActOption) kont.Expr[B] {
	return exprBind(Read{Entry: e, Options: opts}, f)
}

// ExprWriteBind writes from e and passes the result to f.
func ExprWriteBind[B any](e Entry, f func(Result) kont.Expr[B], opts ...ActOption) kont.Expr[B] {
	return exprBind(Write{Entry: e, Options: opts}, f)
}

// ExprWriteThen writes from e and continues with next.
// Fuses ExprPerform(Write{...}) + ExprThen.
func ExprWriteThen[B any](e Entry, next kont.Expr[B], opts ...ActOption) kont.Expr[B] {
	return exprThen(Write{Entry: e, Options: opts}, next)
}

// ExprShutdownDone shuts the output half down and returns a.
func ExprShutdownDone[A any](a A) kont.Expr[A] {
	return exprThen(exprShutdown, kont.ExprReturn(a))
}
