// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package acts

import (
	"bytes"
	"io"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/lfq"
)

// pipeCapacity is the number of chunks in flight per direction.
const pipeCapacity = 16

// pipeHalf is one direction of a pipe: a bounded SPSC ring of chunks and
// a close counter raised by the writer.
type pipeHalf struct {
	ring       lfq.SPSC[[]byte]
	closed     atomix.Uint32
	onReadable atomix.Pointer[func()]
	onWritable atomix.Pointer[func()]
}

func (h *pipeHalf) readable() {
	if fn := h.onReadable.LoadAcquire(); fn != nil {
		(*fn)()
	}
}

func (h *pipeHalf) writable() {
	if fn := h.onWritable.LoadAcquire(); fn != nil {
		(*fn)()
	}
}

// PipeEnd is one end of an in-memory, non-blocking duplex stream. Read
// and Write return iox.ErrWouldBlock instead of waiting. At most one
// goroutine may read and one may write at a time.
type PipeEnd struct {
	in      *pipeHalf
	out     *pipeHalf
	partial []byte
	serial  Serial
}

// pipePair holds both ends and both directions in one allocation.
type pipePair struct {
	a, b PipeEnd
	ab   pipeHalf
	ba   pipeHalf
}

// NewPipe returns the two connected ends of an in-memory stream.
func NewPipe() (*PipeEnd, *PipeEnd) {
	s := nextSerial()
	p := &pipePair{}
	p.ab.ring.Init(pipeCapacity)
	p.ba.ring.Init(pipeCapacity)
	p.a = PipeEnd{in: &p.ba, out: &p.ab, serial: s}
	p.b = PipeEnd{in: &p.ab, out: &p.ba, serial: s}
	return &p.a, &p.b
}

// Serial returns the serial shared by both ends.
func (p *PipeEnd) Serial() Serial { return p.serial }

// Notify installs readiness hooks: readable runs when data or EOF
// arrives for this end, writable when the peer frees room for writes.
func (p *PipeEnd) Notify(readable, writable func()) {
	p.in.onReadable.StoreRelease(&readable)
	p.out.onWritable.StoreRelease(&writable)
}

// Read copies buffered bytes into b. It returns io.EOF once the peer has
// closed its writing side and everything sent has been read.
func (p *PipeEnd) Read(b []byte) (int, error) {
	n := 0
	for n < len(b) {
		if len(p.partial) == 0 {
			chunk, err := p.in.ring.Dequeue()
			if err != nil {
				break
			}
			p.partial = chunk
			p.in.writable()
		}
		c := copy(b[n:], p.partial)
		p.partial = p.partial[c:]
		n += c
	}
	if n > 0 || len(b) == 0 {
		return n, nil
	}
	if p.in.closed.LoadAcquire() != 0 {
		// the last chunks may have landed before the close was seen
		if chunk, err := p.in.ring.Dequeue(); err == nil {
			n = copy(b, chunk)
			p.partial = chunk[n:]
			return n, nil
		}
		return 0, io.EOF
	}
	return 0, iox.ErrWouldBlock
}

// Write queues a copy of b for the peer.
func (p *PipeEnd) Write(b []byte) (int, error) {
	if p.out.closed.LoadAcquire() != 0 {
		return 0, io.ErrClosedPipe
	}
	if len(b) == 0 {
		return 0, nil
	}
	chunk := bytes.Clone(b)
	if err := p.out.ring.Enqueue(&chunk); err != nil {
		return 0, iox.ErrWouldBlock
	}
	p.out.readable()
	return len(b), nil
}

// CloseWrite closes the writing side; the peer reads io.EOF after the
// bytes already sent.
func (p *PipeEnd) CloseWrite() error {
	if p.out.closed.Add(1) == 1 {
		p.out.readable()
	}
	return nil
}

// Close closes the writing side. Bytes already queued toward this end
// stay readable.
func (p *PipeEnd) Close() error {
	return p.CloseWrite()
}

// NewPipe returns two sessions connected by an in-memory stream, each
// driven inline whenever the other produces data or frees room.
func (e *Engine) NewPipe(opts ...SessionOption) (*Session, *Session, error) {
	pa, pb := NewPipe()
	sa, err := e.NewSession(Channels{Readable: pa, Writable: pa}, opts...)
	if err != nil {
		return nil, nil, err
	}
	sb, err := e.NewSession(Channels{Readable: pb, Writable: pb}, opts...)
	if err != nil {
		_ = sa.Close(err)
		return nil, nil, err
	}
	pa.Notify(func() { sa.HandleSessionReady(Input) }, func() { sa.HandleSessionReady(Output) })
	pb.Notify(func() { sb.HandleSessionReady(Input) }, func() { sb.HandleSessionReady(Output) })
	return sa, sb, nil
}
