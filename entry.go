// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package acts

import (
	"io"
	"math"
	"net"
	"os"
)

// Kind selects which payload of an [Entry] an act transfers.
type Kind uint8

const (
	// KindBuffer transfers between a stream channel and a [Buffer].
	KindBuffer Kind = iota
	// KindFile transfers between a stream channel and a region of a [File].
	KindFile
	// KindDatagram transfers one datagram between a datagram channel and
	// a [Buffer].
	KindDatagram
)

func (k Kind) String() string {
	switch k {
	case KindBuffer:
		return "buffer"
	case KindFile:
		return "file"
	case KindDatagram:
		return "datagram"
	}
	return "unknown"
}

// File is the random-access target or source of a file region act.
// A File that also has a Size() int64 or Stat() method lets an
// unbounded count resolve to the end of the file.
type File interface {
	io.ReaderAt
	io.WriterAt
}

// Unbounded is the count meaning "until the source or sink is exhausted".
const Unbounded int64 = -1

// Entry describes the region an act reads into or writes from.
type Entry struct {
	Kind   Kind
	Buffer *Buffer
	File   File
	// Position is the file offset of a file region. Buffer entries start
	// at the buffer's own position.
	Position int64
	// Count is the number of bytes requested, or Unbounded.
	Count int64
	// Addr is the datagram destination on write and is filled with the
	// source on read.
	Addr net.Addr
}

// BufferEntry returns an entry transferring count bytes at b's position.
func BufferEntry(b *Buffer, count int64) Entry {
	return Entry{Kind: KindBuffer, Buffer: b, Count: count}
}

// FileEntry returns an entry transferring count bytes at offset pos of f.
func FileEntry(f File, pos, count int64) Entry {
	return Entry{Kind: KindFile, File: f, Position: pos, Count: count}
}

// DatagramEntry returns an entry transferring one datagram through b.
// addr is the destination for writes and may be nil on connected
// channels.
func DatagramEntry(b *Buffer, addr net.Addr) Entry {
	return Entry{Kind: KindDatagram, Buffer: b, Count: Unbounded, Addr: addr}
}

// resolve validates e and turns an unbounded count into a concrete one
// where the target's extent is known. Buffer limits are adjusted so that
// [Position, Limit) is the requested span.
func (e *Entry) resolve(dir Direction) error {
	if e.Count < Unbounded {
		return ErrInvalidRegion
	}
	switch e.Kind {
	case KindBuffer, KindDatagram:
		b := e.Buffer
		if b == nil {
			return ErrInvalidRegion
		}
		rem := int64(b.Remaining())
		if e.Kind == KindDatagram || e.Count == Unbounded {
			e.Count = rem
			return nil
		}
		if e.Count > rem {
			if dir == Output {
				return ErrInvalidRegion
			}
			if e.Count > int64(math.MaxInt)-int64(b.pos) {
				return ErrInvalidRegion
			}
		}
		b.SetLimit(b.pos + int(e.Count))
		return nil
	case KindFile:
		if e.File == nil || e.Position < 0 {
			return ErrInvalidRegion
		}
		if e.Count == Unbounded {
			if size, ok := fileSize(e.File); ok {
				if size < e.Position {
					return ErrInvalidRegion
				}
				e.Count = size - e.Position
			}
			return nil
		}
		if e.Count > math.MaxInt64-e.Position {
			return ErrInvalidRegion
		}
		return nil
	}
	return ErrInvalidRegion
}

func fileSize(f File) (int64, bool) {
	switch v := f.(type) {
	case interface{ Size() int64 }:
		return v.Size(), true
	case interface{ Stat() (os.FileInfo, error) }:
		fi, err := v.Stat()
		if err != nil {
			return 0, false
		}
		return fi.Size(), true
	}
	return 0, false
}
