// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package acts

import (
	"io"
	"net"
)

// Direction selects the input or output half of a session.
type Direction uint8

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	if d == Input {
		return "input"
	}
	return "output"
}

// DatagramChannel is a non-blocking message channel.
// Both methods return iox.ErrWouldBlock when no progress can be made.
type DatagramChannel interface {
	ReadFrom(p []byte) (n int, addr net.Addr, err error)
	WriteTo(p []byte, addr net.Addr) (n int, err error)
}

// Channels are the transport channels a session drives. Stream channels
// are non-blocking: Read and Write return iox.ErrWouldBlock when they
// cannot make progress, and Read returns io.EOF once the peer has shut
// down its output.
//
// A Writable that implements CloseWrite() error has it called when the
// output half shuts down.
type Channels struct {
	Readable io.Reader
	Writable io.Writer
	Datagram DatagramChannel
}

// Progress is the outcome of one readiness pass over an act.
type Progress uint8

const (
	// Continue means more bytes may fit in this pass.
	Continue Progress = iota
	// NeedMore means the channel has nothing now; wait for readiness.
	NeedMore
	// EndOfInput means the peer half-closed.
	EndOfInput
	// Terminate means the region is full or the strategy stopped the act.
	Terminate
	// NoChannel means no channel serves the act's entry kind.
	NoChannel
	// NullChannel means the session has no channel for the direction.
	NullChannel
)

func (p Progress) String() string {
	switch p {
	case Continue:
		return "continue"
	case NeedMore:
		return "need-more"
	case EndOfInput:
		return "end-of-input"
	case Terminate:
		return "terminate"
	case NoChannel:
		return "no-channel"
	case NullChannel:
		return "null-channel"
	}
	return "unknown"
}
