// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package acts_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/kont"

	"code.hybscloud.com/acts"
)

func text(s string) acts.Entry {
	return acts.BufferEntry(acts.WrapBuffer([]byte(s)), int64(len(s)))
}

func TestRunEcho(t *testing.T) {
	skipRace(t)
	client := acts.WriteThen(text("ping"),
		acts.ReadBind(acts.BufferEntry(acts.NewBuffer(4), 4), func(r acts.Result) kont.Eff[string] {
			return acts.ShutdownDone(string(r.Entry.Buffer.Data()))
		}),
	)
	server := acts.ReadBind(acts.BufferEntry(acts.NewBuffer(4), 4), func(r acts.Result) kont.Eff[string] {
		msg := string(r.Entry.Buffer.Data())
		return acts.WriteThen(text(strings.ToUpper(msg)), acts.ShutdownDone(msg))
	})

	clientResult, serverResult := acts.Run[string, string](client, server)
	if clientResult != "PING" {
		t.Fatalf("client got %q, want %q", clientResult, "PING")
	}
	if serverResult != "ping" {
		t.Fatalf("server got %q, want %q", serverResult, "ping")
	}
}

func TestRunExprEcho(t *testing.T) {
	skipRace(t)
	client := acts.ExprWriteThen(text("ping"),
		acts.ExprReadBind(acts.BufferEntry(acts.NewBuffer(4), 4), func(r acts.Result) kont.Expr[string] {
			return acts.ExprShutdownDone(string(r.Entry.Buffer.Data()))
		}),
	)
	server := acts.ExprReadBind(acts.BufferEntry(acts.NewBuffer(4), 4), func(r acts.Result) kont.Expr[int64] {
		return acts.ExprWriteBind(text("pong"), func(w acts.Result) kont.Expr[int64] {
			return acts.ExprShutdownDone(r.Count + w.Count)
		})
	})

	clientResult, serverResult := acts.RunExpr[string, int64](client, server)
	if clientResult != "pong" {
		t.Fatalf("client got %q, want %q", clientResult, "pong")
	}
	if serverResult != 8 {
		t.Fatalf("server got %d, want 8", serverResult)
	}
}

func TestReadAllUntilEOF(t *testing.T) {
	skipRace(t)
	client := acts.WriteThen(text("hello world"), acts.ShutdownDone(struct{}{}))
	server := acts.ReadAll(4)

	_, drained := acts.Run[struct{}, acts.Drained](client, server)
	if drained.Err != nil {
		t.Fatalf("ReadAll err: %v", drained.Err)
	}
	if got := string(drained.Data); got != "hello world" {
		t.Fatalf("ReadAll got %q", got)
	}
}

func TestLoopCountsMessages(t *testing.T) {
	skipRace(t)
	client := acts.WriteThen(text("aabbcc"), acts.ShutdownDone(struct{}{}))
	server := acts.Loop(0, func(n int) kont.Eff[kont.Either[int, int]] {
		return acts.ReadBind(acts.BufferEntry(acts.NewBuffer(2), 2), func(r acts.Result) kont.Eff[kont.Either[int, int]] {
			if r.Count == 0 {
				return kont.Pure(kont.Right[int](n))
			}
			return kont.Pure(kont.Left[int, int](n + 1))
		})
	})

	_, count := acts.Run[struct{}, int](client, server)
	if count != 3 {
		t.Fatalf("messages got %d, want 3", count)
	}
}

func TestExecWaitsForTimeout(t *testing.T) {
	eng := newEngine(t)
	s := newSession(t, eng, acts.Channels{Readable: &stubReader{}})

	res := acts.Exec(s, kont.Perform(acts.Read{
		Entry:   acts.BufferEntry(acts.NewBuffer(4), 4),
		Options: []acts.ActOption{acts.WithTimeout(10 * time.Millisecond)},
	}))
	if res.State != acts.StateTimedOut {
		t.Fatalf("state got %v, want %v", res.State, acts.StateTimedOut)
	}
}

func TestExecRejectedRegionResumesFailed(t *testing.T) {
	eng := newEngine(t)
	s := newSession(t, eng, acts.Channels{Readable: &stubReader{}})

	res := acts.ExecExpr(s, acts.ExprReadBind(acts.BufferEntry(nil, 4), func(r acts.Result) kont.Expr[acts.Result] {
		return kont.ExprReturn(r)
	}))
	if res.State != acts.StateFailed || !errors.Is(res.Err, acts.ErrInvalidRegion) {
		t.Fatalf("result got %v/%v", res.State, res.Err)
	}
}

func TestExecErrorReadOrThrow(t *testing.T) {
	eng := newEngine(t)

	src := &stubReader{}
	src.feed([]byte("ok"))
	s := newSession(t, eng, acts.Channels{Readable: src})
	either := acts.ExecError[error](s, acts.ReadOrThrow(acts.BufferEntry(acts.NewBuffer(2), 2)))
	res, ok := either.GetRight()
	if !ok || res.Count != 2 {
		t.Fatalf("expected Right with 2 bytes, got %+v", either)
	}

	bad := &stubReader{}
	bad.fail(errBoom)
	s = newSession(t, eng, acts.Channels{Readable: bad})
	either = acts.ExecError[error](s, acts.ReadOrThrow(acts.BufferEntry(acts.NewBuffer(2), 2)))
	err, ok := either.GetLeft()
	if !ok || !errors.Is(err, errBoom) {
		t.Fatalf("expected Left(boom), got %+v", either)
	}
}

func TestExecErrorExprWriteOrThrow(t *testing.T) {
	eng := newEngine(t)
	dst := &stubWriter{}
	s := newSession(t, eng, acts.Channels{Writable: dst})
	s.ShutdownOutput(errBoom)

	either := acts.ExecErrorExpr[error](s, acts.Reify(acts.WriteOrThrow(text("x"))))
	if err, ok := either.GetLeft(); !ok || !errors.Is(err, errBoom) {
		t.Fatalf("expected Left(boom), got %+v", either)
	}
}

func TestRunErrorThrow(t *testing.T) {
	skipRace(t)
	client := acts.WriteThen(text("partial"),
		kont.Then(kont.Perform(acts.Shutdown{}), kont.ThrowError[error, string](errBoom)))
	server := kont.Map(acts.ReadAll(16), func(d acts.Drained) string { return string(d.Data) })

	clientResult, serverResult := acts.RunError[error, string, string](client, server)
	if err, ok := clientResult.GetLeft(); !ok || !errors.Is(err, errBoom) {
		t.Fatalf("client expected Left(boom), got %+v", clientResult)
	}
	if got, ok := serverResult.GetRight(); !ok || got != "partial" {
		t.Fatalf("server got %+v", serverResult)
	}
}

func TestStepAdvanceWouldBlock(t *testing.T) {
	eng := newEngine(t)
	src := &stubReader{}
	s := newSession(t, eng, acts.Channels{Readable: src})

	protocol := acts.ExprReadBind(acts.BufferEntry(acts.NewBuffer(3), 3), func(r acts.Result) kont.Expr[string] {
		return kont.ExprReturn(string(r.Entry.Buffer.Data()))
	})
	_, susp := acts.Step[string](protocol)
	if susp == nil {
		t.Fatal("expected suspension for Read")
	}
	if _, ok := susp.Op().(acts.Read); !ok {
		t.Fatalf("expected Read, got %T", susp.Op())
	}

	_, retry, err := acts.Advance(s, susp)
	if !iox.IsWouldBlock(err) {
		t.Fatalf("expected ErrWouldBlock, got %v", err)
	}
	if retry != susp {
		t.Fatal("suspension should be returned unconsumed on error")
	}
	if !s.Wants(acts.Input) {
		t.Fatal("in-flight read reports no interest")
	}

	src.feed([]byte("abc"))
	s.HandleSessionReady(acts.Input)
	result, next, err := acts.Advance(s, susp)
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if next != nil {
		t.Fatal("expected completion")
	}
	if result != "abc" {
		t.Fatalf("result got %q, want %q", result, "abc")
	}
}

func TestStepShutdown(t *testing.T) {
	eng := newEngine(t)
	dst := &stubWriter{}
	s := newSession(t, eng, acts.Channels{Writable: dst})

	_, susp := acts.Step[string](acts.ExprShutdownDone("closed"))
	if _, ok := susp.Op().(acts.Shutdown); !ok {
		t.Fatalf("expected Shutdown, got %T", susp.Op())
	}
	result, next, err := acts.Advance(s, susp)
	if err != nil || next != nil || result != "closed" {
		t.Fatalf("Advance got %q/%v/%v", result, next, err)
	}
	if !dst.isClosed() {
		t.Fatal("output not half-closed")
	}
}

func TestAdvanceErrorStepping(t *testing.T) {
	eng := newEngine(t)
	bad := &stubReader{}
	bad.fail(errBoom)
	s := newSession(t, eng, acts.Channels{Readable: bad})

	result, susp := acts.StepError[error, acts.Result](acts.Reify(acts.ReadOrThrow(acts.BufferEntry(acts.NewBuffer(1), 1))))
	for susp != nil {
		var err error
		result, susp, err = acts.AdvanceError[error](s, susp)
		if err != nil && !iox.IsWouldBlock(err) {
			t.Fatalf("AdvanceError: %v", err)
		}
	}
	if err, ok := result.GetLeft(); !ok || !errors.Is(err, errBoom) {
		t.Fatalf("expected Left(boom), got %+v", result)
	}
}

func TestAdvanceUnhandledPanics(t *testing.T) {
	type bogus struct{ kont.Phantom[int] }

	_, susp := acts.Step[int](kont.ExprPerform(bogus{}))
	if susp == nil {
		t.Fatal("expected suspension")
	}
	eng := newEngine(t)
	s := newSession(t, eng, acts.Channels{})
	defer func() {
		r := recover()
		if msg, ok := r.(string); !ok || msg != "acts: unhandled effect in Advance" {
			t.Fatalf("unexpected panic: %v", r)
		}
	}()
	acts.Advance(s, susp)
}
