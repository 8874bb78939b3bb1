// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package acts

import (
	"code.hybscloud.com/kont"
)

// ReadBind reads into e and passes the result to f.
// Fuses Perform(Read{...}) + Bind.
func ReadBind[B any](e Entry, f func(Result) kont.Eff[B], opts ...ActOption) kont.Eff[B] {
	return kont.Bind(kont.Perform(Read{Entry: e, Options: opts}), f)
}

// WriteBind writes from e and passes the result to f.
// Fuses Perform(Write{...}) + Bind.
func WriteBind[B any](e Entry, f func(Result) kont.Eff[B], opts ...ActOption) kont.Eff[B] {
	return kont.Bind(kont.Perform(Write{Entry: e, Options: opts}), f)
}

// WriteThen writes from e and continues with next whatever the outcome.
// Fuses Perform(Write{...}) + Then.
func WriteThen[B any](e Entry, next kont.Eff[B], opts ...ActOption) kont.Eff[B] {
	return kont.Then(kont.Perform(Write{Entry: e, Options: opts}), next)
}

// ShutdownDone shuts the output half down and returns a.
// Fuses Perform(Shutdown{}) + Then + Pure.
func ShutdownDone[A any](a A) kont.Eff[A] {
	return kont.Then(kont.Perform(Shutdown{}), kont.Pure(a))
}

// ReadOrThrow reads into e and throws the result's error, if any, as an
// error effect. Run it with [ExecError] or [RunError].
func ReadOrThrow(e Entry, opts ...ActOption) kont.Eff[Result] {
	return ReadBind(e, orThrow, opts...)
}

// WriteOrThrow is the write counterpart of [ReadOrThrow].
func WriteOrThrow(e Entry, opts ...ActOption) kont.Eff[Result] {
	return WriteBind(e, orThrow, opts...)
}

func orThrow(r Result) kont.Eff[Result] {
	if r.Err != nil {
		return kont.ThrowError[error, Result](r.Err)
	}
	return kont.Pure(r)
}
