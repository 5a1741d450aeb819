// Package listener implements the accept-loop worker of spec §4.2: given a
// transport.Listener, it spawns a conn.Connection per accepted stream and
// tears every retained connection down, in insertion order, once the
// accept loop itself stops.
package listener

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/apoloval/flightvars/conn"
	"github.com/apoloval/flightvars/transport"
)

// Port owns one transport.Listener's accept loop.
type Port struct {
	ln       transport.Listener
	dispatch conn.CommandHandler
	log      *logrus.Entry

	mu    sync.Mutex
	conns []*conn.Connection

	done chan struct{}
}

// NewPort builds a Port over ln and spawns its accept-loop goroutine.
// dispatch is forwarded to every spawned Connection as its CommandHandler.
func NewPort(ln transport.Listener, dispatch conn.CommandHandler, log *logrus.Entry) *Port {
	p := &Port{
		ln:       ln,
		dispatch: dispatch,
		log:      log,
		done:     make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *Port) run() {
	defer close(p.done)
	for {
		c, err := p.ln.Listen()
		if err != nil {
			if !errors.Is(err, transport.ErrAborted) {
				p.log.WithError(err).Warn("listener accept failed, shutting down")
			}
			break
		}
		connection := conn.New(c, p.dispatch, p.log, p.remove)
		p.mu.Lock()
		p.conns = append(p.conns, connection)
		p.mu.Unlock()
		// Start only after the connection is recorded above: its reader
		// can race straight to a self-initiated teardown and call p.remove
		// before this goroutine gets back around to appending it, which
		// would otherwise orphan the slice entry forever.
		connection.Start()
	}
	p.shutdownConnections()
}

// remove drops c from the retained connection list once it has torn itself
// down on its own — an ordinary client disconnect, not a global Stop — so a
// long-lived Port doesn't accumulate a dead entry (and the goroutines and
// fd behind it) per client that ever connected and left.
func (p *Port) remove(c *conn.Connection) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, existing := range p.conns {
		if existing == c {
			p.conns = append(p.conns[:i], p.conns[i+1:]...)
			return
		}
	}
}

// shutdownConnections tears down every retained connection in insertion
// order, per spec §4.2.
func (p *Port) shutdownConnections() {
	p.mu.Lock()
	conns := p.conns
	p.conns = nil
	p.mu.Unlock()

	for _, c := range conns {
		if err := c.Shutdown(); err != nil {
			p.log.WithError(err).Debug("error shutting down connection")
		}
	}
}

// Stop fires the listener's own interruptor handle and blocks until the
// accept loop and every connection it retained have finished shutting
// down, per spec §4.2's "stored separately so the owning Port can signal
// termination and then join the thread".
func (p *Port) Stop() error {
	err := p.ln.Interruptor().Fire()
	<-p.done
	return err
}
