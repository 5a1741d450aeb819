package transport

import (
	"fmt"
	"io"
	"net"
	"sync"
	"time"
)

// closerInterruptor fires an io.Closer exactly once. Both the TCP listener
// and each TCP connection use it: closing the listening socket (or the
// connected socket) from another goroutine causes whatever call is
// currently blocked on it (Accept, Read) to fail, which is the only way to
// preempt a goroutine already inside a blocking syscall — per spec's
// design notes, a flag alone cannot do this.
type closerInterruptor struct {
	once sync.Once
	c    io.Closer
	err  error
}

func (i *closerInterruptor) Fire() error {
	i.once.Do(func() { i.err = i.c.Close() })
	return i.err
}

// DefaultReadTimeout is the periodic read-deadline TCP connections are
// opened with when the caller has no other preference, so a reader
// goroutine wakes on the same cadence a serial connection would (spec
// §4.3's 250ms constant).
const DefaultReadTimeout = 250 * time.Millisecond

// TCPListener binds host:port and accepts OACSP connections over TCP, per
// spec §4.1.
type TCPListener struct {
	ln          *net.TCPListener
	interruptor *closerInterruptor
	readTimeout time.Duration
}

// ListenTCP binds addr (host:port). Every accepted connection's reader
// blocks for at most readTimeout before returning the net.Error timeout
// (one IsTimeout recognizes); module
// wiring passes config.DomainConfig.ReadTimeout here.
func ListenTCP(addr string, readTimeout time.Duration) (*TCPListener, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: resolve %s: %w", addr, err)
	}
	ln, err := net.ListenTCP("tcp", tcpAddr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen %s: %w", addr, err)
	}
	return &TCPListener{
		ln:          ln,
		interruptor: &closerInterruptor{c: ln},
		readTimeout: readTimeout,
	}, nil
}

func (l *TCPListener) Interruptor() Interruptor { return l.interruptor }

// Addr returns the bound local address, useful when ListenTCP was given
// port 0 and the caller needs to discover the assigned port.
func (l *TCPListener) Addr() string { return l.ln.Addr().String() }

func (l *TCPListener) Close() error { return l.interruptor.Fire() }

// Listen accepts the next connection, returning its read/write halves and
// peer address. On interruption (the listener's own Fire, which closes the
// listening socket and causes in-flight Accept to fail) it returns
// ErrAborted.
func (l *TCPListener) Listen() (Conn, error) {
	c, err := l.ln.AcceptTCP()
	if err != nil {
		return Conn{}, normalizeErrno(err)
	}
	interruptor := &closerInterruptor{c: c}
	return Conn{
		Input:       &tcpReader{conn: c, interruptor: interruptor, timeout: l.readTimeout},
		Output:      &tcpWriter{conn: c},
		PeerAddr:    c.RemoteAddr().String(),
		Interruptor: interruptor,
	}, nil
}

// tcpReader is the input half of an accepted TCP connection. Its own
// Close (as well as the shared Interruptor) closes the underlying socket
// entirely — safe because by the time anything closes the input half the
// writer has already half-closed its own direction, per spec §4.3's
// writer-first shutdown order.
type tcpReader struct {
	conn        *net.TCPConn
	interruptor *closerInterruptor
	timeout     time.Duration
}

func (r *tcpReader) Read(p []byte) (int, error) {
	if err := r.conn.SetReadDeadline(time.Now().Add(r.timeout)); err != nil {
		return 0, err
	}
	n, err := r.conn.Read(p)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return n, err
		}
		return n, normalizeErrno(err)
	}
	return n, nil
}

func (r *tcpReader) Close() error {
	return r.interruptor.Fire()
}

// tcpWriter is the output half. Close half-closes the write direction
// (shutdown(SHUT_WR)) rather than closing the whole socket, since the
// reader goroutine may still be draining trailing bytes.
type tcpWriter struct {
	conn *net.TCPConn
}

func (w *tcpWriter) Write(p []byte) (int, error) {
	n, err := w.conn.Write(p)
	return n, normalizeErrno(err)
}

func (w *tcpWriter) Close() error {
	return w.conn.CloseWrite()
}
