// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package acts

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"

	"code.hybscloud.com/iox"
)

var (
	// ErrClosed is the cause reported to acts still queued when a session
	// is closed without an explicit cause.
	ErrClosed = errors.New("acts: session closed")
	// ErrShutdown is returned for acts submitted to a shut-down direction.
	ErrShutdown = errors.New("acts: direction shut down")
	// ErrInvalidRegion rejects a negative or overflowing position or count.
	ErrInvalidRegion = errors.New("acts: invalid region")
	// ErrNoChannel means the session has no channel able to serve the
	// entry kind.
	ErrNoChannel = errors.New("acts: no channel for entry kind")
	// ErrNullChannel means the session has no channel for the direction.
	ErrNullChannel = errors.New("acts: null channel")
	// ErrTimeout is the error carried by a timed-out result.
	ErrTimeout = errors.New("acts: timed out")
	// ErrCancelled is the error carried by a cancelled result.
	ErrCancelled = errors.New("acts: cancelled")
	// ErrEngineClosed is returned when creating sessions on a closed engine.
	ErrEngineClosed = errors.New("acts: engine closed")
)

// PanicError wraps a value recovered from a user callback, a strategy, a
// channel or a timer task. Where names which.
type PanicError struct {
	Where string
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("acts: panic in %s: %v", e.Where, e.Value)
}

// Unwrap returns the recovered value when it is an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// isChannelFault reports whether err is a recoverable channel condition:
// the peer went away or the channel was closed underneath us.
func isChannelFault(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, os.ErrClosed) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}

// isProgress reports whether err still counts as a successful transfer.
func isProgress(err error) bool {
	return err == nil || errors.Is(err, iox.ErrMore)
}
