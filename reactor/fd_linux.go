// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package reactor

import (
	"errors"
	"io"
	"net"
	"os"
	"strconv"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"golang.org/x/sys/unix"
)

// FD is a non-blocking file descriptor usable as an acts stream and
// datagram channel. Reads and writes return iox.ErrWouldBlock instead of
// blocking.
type FD struct {
	fd     int
	closed atomix.Bool
}

// NewFD puts fd in non-blocking mode and wraps it. The FD owns fd from
// then on.
func NewFD(fd int) (*FD, error) {
	if err := unix.SetNonblock(fd, true); err != nil {
		return nil, os.NewSyscallError("setnonblock", err)
	}
	return &FD{fd: fd}, nil
}

// Fd returns the descriptor number.
func (f *FD) Fd() int { return f.fd }

// Read reads into p. A zero-byte read of a non-empty p is io.EOF.
func (f *FD) Read(p []byte) (int, error) {
	if f.closed.LoadAcquire() {
		return 0, os.ErrClosed
	}
	for {
		n, err := unix.Read(f.fd, p)
		switch {
		case err == unix.EINTR:
			continue
		case err == unix.EAGAIN:
			return 0, iox.ErrWouldBlock
		case err != nil:
			return 0, os.NewSyscallError("read", err)
		case n == 0 && len(p) > 0:
			return 0, io.EOF
		}
		return n, nil
	}
}

// Write writes from p. A short write is not an error; the caller keeps
// the remainder for the next readiness pass.
func (f *FD) Write(p []byte) (int, error) {
	if f.closed.LoadAcquire() {
		return 0, os.ErrClosed
	}
	for {
		n, err := unix.Write(f.fd, p)
		switch {
		case err == unix.EINTR:
			continue
		case err == unix.EAGAIN:
			return 0, iox.ErrWouldBlock
		case err != nil:
			return max(n, 0), os.NewSyscallError("write", err)
		}
		return n, nil
	}
}

// ReadFrom receives one datagram into p.
func (f *FD) ReadFrom(p []byte) (int, net.Addr, error) {
	if f.closed.LoadAcquire() {
		return 0, nil, os.ErrClosed
	}
	for {
		n, from, err := unix.Recvfrom(f.fd, p, 0)
		switch {
		case err == unix.EINTR:
			continue
		case err == unix.EAGAIN:
			return 0, nil, iox.ErrWouldBlock
		case err != nil:
			return 0, nil, os.NewSyscallError("recvfrom", err)
		}
		return n, sockaddrToAddr(from), nil
	}
}

// WriteTo sends p as one datagram to addr, or to the connected peer when
// addr is nil.
func (f *FD) WriteTo(p []byte, addr net.Addr) (int, error) {
	if f.closed.LoadAcquire() {
		return 0, os.ErrClosed
	}
	to, err := addrToSockaddr(addr)
	if err != nil {
		return 0, err
	}
	for {
		err := unix.Sendto(f.fd, p, 0, to)
		switch {
		case err == unix.EINTR:
			continue
		case err == unix.EAGAIN:
			return 0, iox.ErrWouldBlock
		case err != nil:
			return 0, os.NewSyscallError("sendto", err)
		}
		return len(p), nil
	}
}

// CloseWrite shuts down the sending side of a socket.
func (f *FD) CloseWrite() error {
	if f.closed.LoadAcquire() {
		return os.ErrClosed
	}
	if err := unix.Shutdown(f.fd, unix.SHUT_WR); err != nil && !errors.Is(err, unix.ENOTCONN) {
		return os.NewSyscallError("shutdown", err)
	}
	return nil
}

// Close closes the descriptor. Later calls return nil.
func (f *FD) Close() error {
	if !f.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := unix.Close(f.fd); err != nil {
		return os.NewSyscallError("close", err)
	}
	return nil
}

func sockaddrToAddr(sa unix.Sockaddr) net.Addr {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		ip := make(net.IP, net.IPv4len)
		copy(ip, a.Addr[:])
		return &net.UDPAddr{IP: ip, Port: a.Port}
	case *unix.SockaddrInet6:
		ip := make(net.IP, net.IPv6len)
		copy(ip, a.Addr[:])
		addr := &net.UDPAddr{IP: ip, Port: a.Port}
		if a.ZoneId != 0 {
			addr.Zone = strconv.FormatUint(uint64(a.ZoneId), 10)
		}
		return addr
	case *unix.SockaddrUnix:
		return &net.UnixAddr{Name: a.Name, Net: "unixgram"}
	}
	return nil
}

func addrToSockaddr(addr net.Addr) (unix.Sockaddr, error) {
	switch a := addr.(type) {
	case nil:
		return nil, nil
	case *net.UDPAddr:
		if a == nil {
			return nil, nil
		}
		if ip4 := a.IP.To4(); ip4 != nil {
			sa := &unix.SockaddrInet4{Port: a.Port}
			copy(sa.Addr[:], ip4)
			return sa, nil
		}
		sa := &unix.SockaddrInet6{Port: a.Port}
		copy(sa.Addr[:], a.IP.To16())
		if a.Zone != "" {
			if id, err := strconv.ParseUint(a.Zone, 10, 32); err == nil {
				sa.ZoneId = uint32(id)
			} else if ifi, err := net.InterfaceByName(a.Zone); err == nil {
				sa.ZoneId = uint32(ifi.Index)
			}
		}
		return sa, nil
	case *net.UnixAddr:
		if a == nil {
			return nil, nil
		}
		return &unix.SockaddrUnix{Name: a.Name}, nil
	}
	return nil, ErrUnsupportedAddr
}
