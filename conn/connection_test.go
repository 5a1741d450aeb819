package conn

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apoloval/flightvars/transport"
	"github.com/apoloval/flightvars/types"
)

// onceCloser adapts a net.Conn into a transport.Interruptor for tests; the
// real transports use an equivalent unexported type in package transport.
type onceCloser struct {
	mu sync.Mutex
	c  net.Conn
}

func (o *onceCloser) Fire() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.c.Close()
}

// newPipeConn builds a transport.Conn over an in-memory net.Pipe, with the
// server half playing both Input and Output (mirroring how TCP uses one
// socket for both directions) and returns the client half for the test to
// drive.
func newPipeConn() (transport.Conn, net.Conn) {
	server, client := net.Pipe()
	return transport.Conn{
		Input:       server,
		Output:      server,
		PeerAddr:    "pipe-peer",
		Interruptor: &onceCloser{c: server},
	}, client
}

type recordingDispatch struct {
	mu   sync.Mutex
	cmds []types.Command
}

func (r *recordingDispatch) handle(cmd types.Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmds = append(r.cmds, cmd)
}

func (r *recordingDispatch) snapshot() []types.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.Command, len(r.cmds))
	copy(out, r.cmds)
	return out
}

func TestConnectionForwardsParsedCommand(t *testing.T) {
	tc, client := newPipeConn()
	rec := &recordingDispatch{}
	c := New(tc, rec.handle, logrus.NewEntry(logrus.New()), nil)
	c.Start()

	go func() {
		_, _ = client.Write([]byte("BEGIN 1 client-a\nWRITE_LVAR foo 42\n"))
	}()

	require.Eventually(t, func() bool {
		return len(rec.snapshot()) >= 1
	}, time.Second, 5*time.Millisecond)

	write, ok := rec.snapshot()[0].(types.Write)
	require.True(t, ok)
	assert.Equal(t, types.LVar("foo"), write.Target)
	assert.Equal(t, types.Int(42), write.Value)

	_ = c.Shutdown()
	_ = client.Close()
}

func TestConnectionSynthesizesCloseWithPeerAddrWhenHandshakeNeverCompletes(t *testing.T) {
	tc, client := newPipeConn()
	rec := &recordingDispatch{}
	c := New(tc, rec.handle, logrus.NewEntry(logrus.New()), nil)
	c.Start()

	go func() {
		_, _ = client.Write([]byte("WRITE_LVAR foo 1\n"))
		_ = client.Close()
	}()

	require.Eventually(t, func() bool {
		return len(rec.snapshot()) >= 1
	}, time.Second, 5*time.Millisecond)

	closeCmd, ok := rec.snapshot()[0].(types.Close)
	require.True(t, ok)
	assert.Equal(t, "pipe-peer", closeCmd.ClientName)
}

func TestConnectionShutdownCompletesPromptly(t *testing.T) {
	tc, client := newPipeConn()
	defer client.Close()
	rec := &recordingDispatch{}
	c := New(tc, rec.handle, logrus.NewEntry(logrus.New()), nil)
	c.Start()

	done := make(chan struct{})
	go func() {
		_ = c.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("shutdown did not complete promptly")
	}
}

// TestConnectionTearsDownOnItsOwnWhenClientDisconnects is the regression
// case for the leaked goroutine/fd a client disconnect used to cause: with
// no Shutdown call at all, closing only the client's side of the pipe must
// still make the reader exit, the writer exit behind it, the transport's
// Interruptor fire, and onClose run.
func TestConnectionTearsDownOnItsOwnWhenClientDisconnects(t *testing.T) {
	tc, client := newPipeConn()
	rec := &recordingDispatch{}

	closed := make(chan *Connection, 1)
	c := New(tc, rec.handle, logrus.NewEntry(logrus.New()), func(done *Connection) {
		closed <- done
	})
	c.Start()

	_ = client.Close()

	select {
	case done := <-closed:
		assert.Same(t, c, done)
	case <-time.After(time.Second):
		t.Fatal("connection did not tear itself down after the client disconnected")
	}

	select {
	case <-c.writerDone:
	case <-time.After(time.Second):
		t.Fatal("writer goroutine did not exit after the client disconnected")
	}

	cmds := rec.snapshot()
	closeCmd, ok := cmds[len(cmds)-1].(types.Close)
	require.True(t, ok)
	assert.Equal(t, "pipe-peer", closeCmd.ClientName)
}

// TestConnectionShutdownIsIdempotentAfterSelfTeardown covers the other
// ordering: Shutdown called after the connection has already torn itself
// down (e.g. a racing global Stop) must not block or double-fire onClose.
func TestConnectionShutdownIsIdempotentAfterSelfTeardown(t *testing.T) {
	tc, client := newPipeConn()
	rec := &recordingDispatch{}

	var closedCount int
	var mu sync.Mutex
	c := New(tc, rec.handle, logrus.NewEntry(logrus.New()), func(*Connection) {
		mu.Lock()
		closedCount++
		mu.Unlock()
	})
	c.Start()

	_ = client.Close()
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return closedCount == 1
	}, time.Second, 5*time.Millisecond)

	done := make(chan struct{})
	go func() {
		_ = c.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Shutdown did not return promptly after self-teardown")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, closedCount)
}
