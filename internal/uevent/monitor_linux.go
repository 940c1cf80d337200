//go:build linux

package uevent

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pilebones/go-udev/netlink"
	"golang.org/x/sys/unix"
)

// socketBufferSize absorbs bursts such as a hub with many ports appearing.
const socketBufferSize = 1 << 20

// Monitor receives kernel uevents. Poll must not be called concurrently with
// itself or with Close.
type Monitor struct {
	mu     sync.Mutex
	conn   *netlink.UEventConn
	match  *Matcher
	closed bool
}

// Listen subscribes to kernel uevents passing any of filters.
func Listen(filters ...Filter) (*Monitor, error) {
	match, err := NewMatcher(filters...)
	if err != nil {
		return nil, err
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.KernelEvent); err != nil {
		return nil, fmt.Errorf("connect netlink socket: %w", err)
	}
	// Best effort; the default buffer still works for light traffic.
	_ = unix.SetsockoptInt(conn.Fd, unix.SOL_SOCKET, unix.SO_RCVBUF, socketBufferSize)

	return &Monitor{conn: conn, match: match}, nil
}

// Poll waits up to timeout for the next matching event. It returns (nil, nil)
// when the timeout expires. Events that do not match the filters are skipped.
// A notification that cannot be decoded is returned as an error wrapping
// ErrMalformed; the monitor stays usable.
func (m *Monitor) Poll(timeout time.Duration) (*Event, error) {
	deadline := time.Now().Add(timeout)
	fds := []unix.PollFd{{Fd: int32(m.conn.Fd), Events: unix.POLLIN}}

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil
		}

		n, err := unix.Poll(fds, int(remaining.Milliseconds()))
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("poll netlink socket: %w", err)
		}
		if n == 0 {
			return nil, nil
		}

		msg, err := m.conn.ReadMsg()
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("receive uevent: %w", err)
		}

		ev, err := Parse(msg)
		if err != nil {
			return nil, err
		}
		if m.match.Match(ev) {
			return ev, nil
		}
	}
}

// Close releases the socket.
func (m *Monitor) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	return m.conn.Close()
}
