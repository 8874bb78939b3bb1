// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package reactor

import "errors"

var (
	ErrClosed          = errors.New("reactor: loop closed")
	ErrRunning         = errors.New("reactor: loop already running")
	ErrRegistered      = errors.New("reactor: fd already registered")
	ErrNotRegistered   = errors.New("reactor: session not registered")
	ErrUnsupportedAddr = errors.New("reactor: unsupported address type")
)
