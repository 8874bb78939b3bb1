// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package acts

// Buffer is a byte buffer with a position and a limit. Acts transfer the
// bytes in [Position, Limit) and advance the position as they go.
type Buffer struct {
	data  []byte
	pos   int
	limit int
}

// NewBuffer returns an empty buffer with capacity n and limit n.
func NewBuffer(n int) *Buffer {
	return &Buffer{data: make([]byte, n), limit: n}
}

// WrapBuffer returns a buffer over p with the position at 0 and the
// limit at len(p).
func WrapBuffer(p []byte) *Buffer {
	return &Buffer{data: p[:cap(p)], limit: len(p)}
}

// Position returns the index of the next byte to transfer.
func (b *Buffer) Position() int { return b.pos }

// Limit returns the index one past the last byte to transfer.
func (b *Buffer) Limit() int { return b.limit }

// Cap returns the capacity of the backing array.
func (b *Buffer) Cap() int { return len(b.data) }

// Remaining returns Limit - Position.
func (b *Buffer) Remaining() int { return b.limit - b.pos }

// Bytes returns the remaining bytes, [Position, Limit).
func (b *Buffer) Bytes() []byte { return b.data[b.pos:b.limit] }

// Data returns the bytes before the limit, [0, Limit).
func (b *Buffer) Data() []byte { return b.data[:b.limit] }

// SetPosition moves the position. It reports false if p is out of
// [0, Limit].
func (b *Buffer) SetPosition(p int) bool {
	if p < 0 || p > b.limit {
		return false
	}
	b.pos = p
	return true
}

// SetLimit moves the limit, growing the buffer if needed. It reports
// false if l is below the position.
func (b *Buffer) SetLimit(l int) bool {
	if l < b.pos {
		return false
	}
	b.Grow(l)
	b.limit = l
	return true
}

// Flip sets the limit to the position and the position to zero.
func (b *Buffer) Flip() {
	b.limit = b.pos
	b.pos = 0
}

// Reset sets the position to zero and the limit to the capacity.
func (b *Buffer) Reset() {
	b.pos = 0
	b.limit = len(b.data)
}

// Grow ensures the capacity is at least n. The capacity grows by half
// at a time, rounded up to a multiple of four; bytes before the limit
// are preserved.
func (b *Buffer) Grow(n int) {
	if n <= len(b.data) {
		return
	}
	c := len(b.data)
	for c < n {
		c += c / 2
		if c < 4 {
			c = 4
		}
		c = (c + 3) &^ 3
	}
	data := make([]byte, c)
	copy(data, b.data[:b.limit])
	b.data = data
}

// extend moves the limit n bytes further, growing as needed.
func (b *Buffer) extend(n int) {
	b.Grow(b.limit + n)
	b.limit += n
}
