package conn

import (
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/apoloval/flightvars/protocol/oacsp"
	"github.com/apoloval/flightvars/transport"
	"github.com/apoloval/flightvars/types"
)

// CommandHandler is how a Connection forwards a parsed Command to the
// domain side. module wiring passes the router's dispatch function here so
// this package never needs to import domain.
type CommandHandler func(types.Command)

// Connection is the reader/writer thread pair spec §4.3 describes for each
// accepted stream. New only constructs the pair; Start spawns both
// goroutines. They run until the stream closes, an unrecoverable protocol
// error occurs, or Shutdown is called.
type Connection struct {
	peerAddr string
	transp   transport.Conn
	events   *EventQueue
	reader   *oacsp.Reader
	dispatch CommandHandler
	onClose  func(*Connection)
	log      *logrus.Entry

	stop atomic.Bool

	teardownOnce sync.Once
	writerDone   chan struct{}
	readerDone   chan struct{}
}

// New constructs a Connection over an accepted transport.Conn. onClose, if
// non-nil, is called exactly once after the connection has fully torn
// itself down — whether that teardown was reached because the stream ended
// on its own or because Shutdown unblocked it — so an owning listener.Port
// can drop it from whatever collection it retains connections in. Call
// Start only once the Connection is safely recorded wherever the caller
// needs to find it later: onClose can fire before Start even returns.
func New(c transport.Conn, dispatch CommandHandler, log *logrus.Entry, onClose func(*Connection)) *Connection {
	events := NewEventQueue(DefaultEventQueueCapacity)
	return &Connection{
		peerAddr:   c.PeerAddr,
		transp:     c,
		events:     events,
		reader:     oacsp.NewReader(c.Input, events),
		dispatch:   dispatch,
		onClose:    onClose,
		log:        log.WithField("peer", c.PeerAddr),
		writerDone: make(chan struct{}),
		readerDone: make(chan struct{}),
	}
}

// Start spawns the reader and writer goroutines.
func (c *Connection) Start() {
	go c.runWriter()
	go c.runReader()
}

// PeerAddr identifies the connection for logging and as the Close
// command's client_name fallback when the handshake never completed.
func (c *Connection) PeerAddr() string { return c.peerAddr }

// Events is the writer's bounded input queue — the Sink a Client built from
// this connection's handshake carries.
func (c *Connection) Events() *EventQueue { return c.events }

func (c *Connection) runReader() {
	defer close(c.readerDone)
	for !c.stop.Load() {
		cmd, err := c.reader.ReadCommand()
		if err != nil {
			if transport.IsTimeout(err) {
				continue
			}
			c.log.WithError(err).Debug("connection reader exiting")
			break
		}
		if cmd == nil {
			// handshake line consumed internally (BEGIN); loop again.
			continue
		}
		c.dispatch(cmd)
	}
	c.teardown()
}

func (c *Connection) runWriter() {
	defer close(c.writerDone)
	defer c.transp.Output.Close()
	for {
		ev, err := c.events.Recv()
		if err != nil {
			return
		}
		if _, ok := ev.(types.CloseEvent); ok {
			return
		}
		line, ok, err := oacsp.EncodeEvent(ev)
		if err != nil {
			c.log.WithError(err).Warn("failed to encode event")
			continue
		}
		if !ok {
			continue
		}
		if _, err := c.transp.Output.Write(line); err != nil {
			c.log.WithError(err).Debug("connection writer exiting on write error")
			return
		}
	}
}

// teardown is the writer-first-then-reader shutdown spec §4.3 mandates, run
// exactly once regardless of whether it's reached via the reader's own
// end-of-stream/protocol-error exit (the ordinary per-client disconnect) or
// via an external Shutdown call unblocking a still-reading goroutine: stop
// the writer first — sending the CloseEvent poison pill and closing the
// queue right behind it, so the writer exits even if the queue happened to
// be full when the pill was sent — so the domain has no dangling output
// channel left by the time the synthesized Close reaches it. Only then is
// the transport released and onClose (if set) called, whichever path led
// here.
func (c *Connection) teardown() {
	c.teardownOnce.Do(func() {
		_ = c.events.Send(types.CloseEvent{})
		c.events.Close()
		<-c.writerDone

		name := c.reader.ClientName()
		if name == "" {
			name = c.peerAddr
		}
		c.dispatch(types.Close{ClientName: name})

		c.stop.Store(true)
		_ = c.transp.Interruptor.Fire()

		if c.onClose != nil {
			c.onClose(c)
		}
	})
}

// Shutdown unblocks the reader (firing the transport's Interruptor, which
// closes the underlying socket/port) and waits for it to exit, which drives
// teardown to completion. Safe to call even if the connection has already
// torn itself down on its own.
func (c *Connection) Shutdown() error {
	c.stop.Store(true)
	err := c.transp.Interruptor.Fire()
	<-c.readerDone
	return err
}
