// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package acts_test

import (
	"context"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"

	"code.hybscloud.com/acts"
)

// stubReader serves fed bytes and otherwise reports iox.ErrWouldBlock,
// or err once set.
type stubReader struct {
	mu   sync.Mutex
	data []byte
	err  error
}

func (r *stubReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.data) > 0 {
		n := copy(p, r.data)
		r.data = r.data[n:]
		return n, nil
	}
	if r.err != nil {
		return 0, r.err
	}
	return 0, iox.ErrWouldBlock
}

func (r *stubReader) feed(p []byte) {
	r.mu.Lock()
	r.data = append(r.data, p...)
	r.mu.Unlock()
}

func (r *stubReader) fail(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

// panicReader reports iox.ErrWouldBlock until armed, then panics once.
type panicReader struct {
	armed atomix.Bool
}

func (r *panicReader) Read([]byte) (int, error) {
	if r.armed.Swap(false) {
		panic("wire torn")
	}
	return 0, iox.ErrWouldBlock
}

// stubWriter records writes. It reports iox.ErrWouldBlock while blocked,
// or err once set.
type stubWriter struct {
	mu      sync.Mutex
	written []byte
	blocked bool
	err     error
	closed  bool
}

func (w *stubWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return 0, w.err
	}
	if w.blocked {
		return 0, iox.ErrWouldBlock
	}
	w.written = append(w.written, p...)
	return len(p), nil
}

func (w *stubWriter) block(b bool) {
	w.mu.Lock()
	w.blocked = b
	w.mu.Unlock()
}

func (w *stubWriter) fail(err error) {
	w.mu.Lock()
	w.err = err
	w.mu.Unlock()
}

func (w *stubWriter) CloseWrite() error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	return nil
}

func (w *stubWriter) isClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

func (w *stubWriter) bytes() []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]byte(nil), w.written...)
}

// memFile is an in-memory File with a Size.
type memFile struct {
	mu   sync.Mutex
	data []byte
}

func (f *memFile) ReadAt(p []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if off >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (f *memFile) WriteAt(p []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if end := int(off) + len(p); end > len(f.data) {
		f.data = append(f.data, make([]byte, end-len(f.data))...)
	}
	return copy(f.data[off:], p), nil
}

func (f *memFile) Size() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.data))
}

// stubDatagram delivers queued messages one per ReadFrom.
type stubDatagram struct {
	mu   sync.Mutex
	in   [][]byte
	from net.Addr
	sent [][]byte
	to   []net.Addr
}

func (d *stubDatagram) ReadFrom(p []byte) (int, net.Addr, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.in) == 0 {
		return 0, nil, iox.ErrWouldBlock
	}
	msg := d.in[0]
	d.in = d.in[1:]
	return copy(p, msg), d.from, nil
}

func (d *stubDatagram) WriteTo(p []byte, addr net.Addr) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, append([]byte(nil), p...))
	d.to = append(d.to, addr)
	return len(p), nil
}

func newEngine(t *testing.T, opts ...acts.Option) *acts.Engine {
	t.Helper()
	skipRace(t)
	eng := acts.NewEngine(opts...)
	t.Cleanup(func() { eng.Close() })
	return eng
}

func newSession(t *testing.T, eng *acts.Engine, ch acts.Channels, opts ...acts.SessionOption) *acts.Session {
	t.Helper()
	s, err := eng.NewSession(ch, opts...)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s
}

func wait(t *testing.T, w *acts.Waiter) acts.Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := w.Wait(ctx)
	if err != nil {
		t.Fatalf("no result: %v", err)
	}
	return res
}

// eventually polls cond until it holds or a deadline passes.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}
