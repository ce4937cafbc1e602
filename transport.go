package wirepath

import (
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// Transport is a blocking-with-poll TCP or UDP endpoint, optionally wrapped
// in TLS. connect/send/receive operate against a single underlying
// net.Conn, readiness is queried with a single poll(2) call per Query
// invocation, and close() performs a graceful TCP shutdown (half-close,
// drain, release) or a bare release for UDP.
//
// The Transport's mutex guards its fields, not whole Send/Receive/Close
// calls. wsclient's state mutex guards only its pointer to the Transport;
// its read watcher (Query), its poller (Receive, through the frame reader)
// and its frame writes (through Socket) run on separate goroutines.
type Transport struct {
	mu sync.Mutex

	hostname   string
	port       int
	useTLS     bool
	useUDP     bool
	verifyPeer bool

	// timeoutMs: -1 blocks until ready, 0 polls without waiting, >0 bounds
	// the wait in milliseconds. See SetTimeoutMs.
	timeoutMs int

	connected bool
	conn      net.Conn

	guardOnce sync.Once
	guarded   bool
}

// NewTransport constructs an idle Transport for hostname:port, with TLS
// enabled and UDP disabled by default.
func NewTransport(hostname string, port int, opts ...Option) *Transport {
	t := &Transport{
		hostname:   hostname,
		port:       port,
		useTLS:     true,
		verifyPeer: true,
		timeoutMs:  -1,
	}
	for _, opt := range opts {
		opt(t)
	}
	acquireSignalGuard()
	t.guarded = true
	return t
}

func (t *Transport) SetHostname(h string) { t.mu.Lock(); t.hostname = h; t.mu.Unlock() }
func (t *Transport) SetPort(p int)        { t.mu.Lock(); t.port = p; t.mu.Unlock() }
func (t *Transport) SetUseTLS(v bool)     { t.mu.Lock(); t.useTLS = v; t.mu.Unlock() }
func (t *Transport) SetUseUDP(v bool)     { t.mu.Lock(); t.useUDP = v; t.mu.Unlock() }
func (t *Transport) SetVerifyPeer(v bool) { t.mu.Lock(); t.verifyPeer = v; t.mu.Unlock() }

// SetTimeoutMs sets the poll/IO timeout: -1 blocks until ready, 0 polls
// without waiting, >0 bounds the wait in milliseconds.
func (t *Transport) SetTimeoutMs(ms int) { t.mu.Lock(); t.timeoutMs = ms; t.mu.Unlock() }

// SetBlocking is sugar over SetTimeoutMs used by the disconnect-discovery
// idiom: SetBlocking(false); Receive(0); SetBlocking(true).
func (t *Transport) SetBlocking(blocking bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if blocking {
		t.timeoutMs = -1
	} else {
		t.timeoutMs = 0
	}
}

func (t *Transport) Hostname() string { t.mu.Lock(); defer t.mu.Unlock(); return t.hostname }
func (t *Transport) Port() int        { t.mu.Lock(); defer t.mu.Unlock(); return t.port }

// Connected reports whether the transport currently believes itself
// connected. It is flipped to false by Close and by Receive (including
// Receive(0)'s disconnect discovery) observing the peer go away.
func (t *Transport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

// Socket returns the underlying net.Conn, or nil if not connected. Exposed
// so an embedding client (httpclient, wsclient) can reclaim the same
// connection for a different protocol layer.
func (t *Transport) Socket() net.Conn {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn
}

// Connect resolves hostname:port, opens a TCP or UDP socket, and performs
// the TLS handshake if use_tls is set. It returns false without error if
// hostname or port are unset, and a *TransportError on any system or TLS
// failure.
func (t *Transport) Connect() (bool, error) {
	t.mu.Lock()
	hostname, port, useTLS, useUDP, verifyPeer, timeoutMs := t.hostname, t.port, t.useTLS, t.useUDP, t.verifyPeer, t.timeoutMs
	t.mu.Unlock()

	if hostname == "" || port == 0 {
		return false, nil
	}

	addr := fmt.Sprintf("%s:%d", hostname, port)
	network := "tcp4"
	if useUDP {
		network = "udp4"
	}

	dialTimeout := time.Duration(0)
	if timeoutMs > 0 {
		dialTimeout = time.Duration(timeoutMs) * time.Millisecond
	}

	conn, err := net.DialTimeout(network, addr, dialTimeout)
	if err != nil {
		return false, newTransportError("connect", addr, err)
	}

	if useTLS {
		tlsConn := tls.Client(conn, &tls.Config{
			ServerName:         hostname,
			InsecureSkipVerify: !verifyPeer,
		})
		if timeoutMs > 0 {
			_ = tlsConn.SetDeadline(time.Now().Add(time.Duration(timeoutMs) * time.Millisecond))
		}
		if err := tlsConn.Handshake(); err != nil {
			conn.Close()
			return false, newTransportError("tls handshake", addr, err)
		}
		_ = tlsConn.SetDeadline(time.Time{})
		conn = tlsConn
	}

	t.mu.Lock()
	t.conn = conn
	t.connected = true
	t.mu.Unlock()

	return true, nil
}

// rawConn returns the syscall.RawConn of the underlying connection,
// unwrapping a *tls.Conn to its NetConn, so Query/Send/Receive can operate
// on the real file descriptor regardless of the TLS layer.
func (t *Transport) rawConn() (syscall.RawConn, error) {
	conn := t.conn
	if tlsConn, ok := conn.(*tls.Conn); ok {
		conn = tlsConn.NetConn()
	}
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return nil, fmt.Errorf("transport: connection does not expose a raw fd")
	}
	return sc.SyscallConn()
}

func (t *Transport) pollTimeoutMs() int {
	if t.timeoutMs < 0 {
		return -1
	}
	return t.timeoutMs
}

// Query calls poll(2) once with the configured timeout and returns true
// only when exactly the requested readiness bits are set and no error bits
// (POLLERR|POLLHUP|POLLNVAL) are present.
func (t *Transport) Query(read, write bool) (bool, error) {
	t.mu.Lock()
	if !t.connected {
		t.mu.Unlock()
		return false, ErrNotConnected
	}
	rc, err := t.rawConn()
	timeoutMs := t.pollTimeoutMs()
	t.mu.Unlock()
	if err != nil {
		return false, newTransportError("query", "", err)
	}

	var wantEvents int16
	if read {
		wantEvents |= unix.POLLIN
	}
	if write {
		wantEvents |= unix.POLLOUT
	}

	var (
		ready   bool
		pollErr error
	)
	ctrlErr := rc.Control(func(fd uintptr) {
		fds := []unix.PollFd{{Fd: int32(fd), Events: wantEvents}}
		n, e := unix.Poll(fds, timeoutMs)
		if e != nil {
			pollErr = e
			return
		}
		if n == 0 {
			ready = false
			return
		}
		revents := fds[0].Revents
		if revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
			ready = false
			return
		}
		ready = revents&wantEvents == wantEvents
	})
	if ctrlErr != nil {
		return false, newTransportError("query", "", ctrlErr)
	}
	if pollErr != nil {
		return false, newTransportError("query", "", fmt.Errorf("%w: %v", ErrPollFailed, pollErr))
	}
	return ready, nil
}

// Send writes bytes to the transport, returning the number actually
// written. It returns 0, nil if the socket is not writable within the
// current timeout.
func (t *Transport) Send(b []byte) (int, error) {
	if !t.Connected() {
		return 0, ErrNotConnected
	}

	ready, err := t.Query(false, true)
	if err != nil {
		return 0, err
	}
	if !ready {
		return 0, nil
	}

	t.mu.Lock()
	rc, err := t.rawConn()
	t.mu.Unlock()
	if err != nil {
		return 0, newTransportError("send", "", err)
	}

	var (
		n       int
		sendErr error
	)
	ctrlErr := rc.Write(func(fd uintptr) bool {
		written, e := unix.Write(int(fd), b)
		if e == unix.EAGAIN || e == unix.EWOULDBLOCK {
			return false
		}
		n, sendErr = written, e
		return true
	})
	if ctrlErr != nil {
		return 0, newTransportError("send", "", ctrlErr)
	}
	if sendErr != nil {
		return n, newTransportError("send", "", sendErr)
	}
	return n, nil
}

// Receive reads up to n bytes. It returns 0 bytes, nil both when the
// transport was not ready to read within the timeout and when the peer
// closed the connection; Connected() distinguishes the two cases. n==0
// performs disconnect discovery: a non-blocking peek that detects peer
// closure without consuming any buffered data.
func (t *Transport) Receive(n int) ([]byte, error) {
	if !t.Connected() {
		return nil, ErrNotConnected
	}

	if n == 0 {
		t.probeDisconnect()
		return nil, nil
	}

	ready, err := t.Query(true, false)
	if err != nil {
		return nil, err
	}
	if !ready {
		return nil, nil
	}

	t.mu.Lock()
	rc, err := t.rawConn()
	t.mu.Unlock()
	if err != nil {
		return nil, newTransportError("receive", "", err)
	}

	buf := make([]byte, n)
	var (
		read    int
		recvErr error
		closed  bool
	)
	ctrlErr := rc.Read(func(fd uintptr) bool {
		got, e := unix.Read(int(fd), buf)
		if e == unix.EAGAIN || e == unix.EWOULDBLOCK {
			return false
		}
		if e != nil {
			recvErr = e
			return true
		}
		if got == 0 {
			closed = true
			return true
		}
		read = got
		return true
	})
	if ctrlErr != nil {
		return nil, newTransportError("receive", "", ctrlErr)
	}
	if recvErr != nil {
		return nil, newTransportError("receive", "", recvErr)
	}
	if closed {
		t.mu.Lock()
		t.connected = false
		t.mu.Unlock()
		return nil, nil
	}
	return buf[:read], nil
}

// probeDisconnect performs a zero-length non-blocking read: a non-consuming
// peek that flips connected to false if the peer has closed the
// connection, without requiring the caller to toggle blocking mode
// manually (SetBlocking(false); Receive(0); SetBlocking(true) remains
// available as an explicit equivalent).
func (t *Transport) probeDisconnect() {
	t.mu.Lock()
	rc, err := t.rawConn()
	t.mu.Unlock()
	if err != nil {
		return
	}

	var (
		n      int
		idle   bool
		peekEr error
	)
	one := make([]byte, 1)
	ctrlErr := rc.Read(func(fd uintptr) bool {
		got, _, e := unix.Recvfrom(int(fd), one, unix.MSG_PEEK|unix.MSG_DONTWAIT)
		if e == unix.EAGAIN || e == unix.EWOULDBLOCK {
			// nothing buffered and the peer has not closed: do not wait
			idle = true
			return true
		}
		if e != nil {
			peekEr = e
			return true
		}
		n = got
		return true
	})
	if ctrlErr != nil || peekEr != nil || idle {
		return
	}
	if n == 0 {
		t.mu.Lock()
		t.connected = false
		t.mu.Unlock()
	}
}

// Close performs a graceful shutdown: for TCP, half-close the write side
// then drain reads until the peer closes (bounded as drainUntilClosed
// describes), before releasing OS and TLS resources. UDP skips the drain.
// Close is idempotent.
func (t *Transport) Close() error {
	t.mu.Lock()
	conn := t.conn
	useUDP := t.useUDP
	wasConnected := t.connected
	t.connected = false
	t.conn = nil
	t.mu.Unlock()

	if conn == nil {
		if t.guarded {
			releaseSignalGuard()
			t.guarded = false
		}
		if !wasConnected {
			return nil
		}
		return nil
	}

	if !useUDP {
		if tcpLike, ok := unwrapTCP(conn); ok {
			_ = tcpLike.CloseWrite()
			t.drainUntilClosed(conn)
		}
	}

	err := conn.Close()
	if t.guarded {
		releaseSignalGuard()
		t.guarded = false
	}
	if err != nil {
		return newTransportError("close", "", err)
	}
	return nil
}

type halfCloser interface {
	CloseWrite() error
}

func unwrapTCP(conn net.Conn) (halfCloser, bool) {
	if tlsConn, ok := conn.(*tls.Conn); ok {
		conn = tlsConn.NetConn()
	}
	hc, ok := conn.(halfCloser)
	return hc, ok
}

// drainUntilClosed reads until the peer closes, a read fails, or 64 reads
// have returned data. The reads are not non-blocking: each one waits for
// the socket to become readable, and a 2-second read deadline bounds the
// whole drain, so Close never hangs on a peer that never acknowledges the
// half-close.
func (t *Transport) drainUntilClosed(conn net.Conn) {
	sc, ok := conn.(syscall.Conn)
	if tlsConn, isTLS := conn.(*tls.Conn); isTLS {
		sc, ok = tlsConn.NetConn().(syscall.Conn)
	}
	if !ok {
		return
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	defer conn.SetReadDeadline(time.Time{})

	rc, err := sc.SyscallConn()
	if err != nil {
		return
	}

	buf := make([]byte, 4096)
	const maxDrainAttempts = 64
	for i := 0; i < maxDrainAttempts; i++ {
		var (
			n         int
			wouldWait bool
			rerr      error
		)
		ctrlErr := rc.Read(func(fd uintptr) bool {
			got, e := unix.Read(int(fd), buf)
			if e == unix.EAGAIN || e == unix.EWOULDBLOCK {
				wouldWait = true
				return false
			}
			if e != nil {
				rerr = e
				return true
			}
			n = got
			return true
		})
		if ctrlErr != nil || rerr != nil {
			return
		}
		if n == 0 && !wouldWait {
			return
		}
		if wouldWait {
			time.Sleep(time.Millisecond)
		}
	}
}
