// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package acts

import (
	"code.hybscloud.com/kont"
)

// Reify turns a Cont-world protocol into an Expr that [Step] and
// [Advance] can drive.
func Reify[A any](m kont.Eff[A]) kont.Expr[A] {
	return kont.Reify(m)
}

// Reflect turns an Expr protocol back into Cont-world for [Exec].
func Reflect[A any](m kont.Expr[A]) kont.Eff[A] {
	return kont.Reflect(m)
}
