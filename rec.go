// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package acts

import (
	"code.hybscloud.com/kont"
)

// Loop runs a recursive protocol.
// step returns Left(nextState) to continue or Right(result) to finish.
func Loop[S, A any](initial S, step func(S) kont.Eff[kont.Either[S, A]]) kont.Eff[A] {
	return kont.Bind(step(initial), func(e kont.Either[S, A]) kont.Eff[A] {
		if next, ok := e.GetLeft(); ok {
			return Loop(next, step)
		}
		result, _ := e.GetRight()
		return kont.Pure(result)
	})
}

const defaultReadChunk = 4096

// Drained is the outcome of [ReadAll].
type Drained struct {
	Data []byte
	Err  error
}

// ReadAll reads chunk bytes at a time until end of input and returns
// everything read. A failed read ends the loop with the bytes read so far
// and the failure.
func ReadAll(chunk int, opts ...ActOption) kont.Eff[Drained] {
	if chunk <= 0 {
		chunk = defaultReadChunk
	}
	return Loop([]byte(nil), func(acc []byte) kont.Eff[kont.Either[[]byte, Drained]] {
		buf := NewBuffer(chunk)
		return ReadBind(BufferEntry(buf, Unbounded), func(r Result) kont.Eff[kont.Either[[]byte, Drained]] {
			acc = append(acc, buf.Data()[:r.Count]...)
			if r.Err != nil {
				return kont.Pure(kont.Right[[]byte](Drained{Data: acc, Err: r.Err}))
			}
			if r.EOF {
				return kont.Pure(kont.Right[[]byte](Drained{Data: acc}))
			}
			return kont.Pure(kont.Left[[]byte, Drained](acc))
		}, opts...)
	})
}
