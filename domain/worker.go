// Package domain implements the single-threaded worker event loop spec
// §4.5 describes, the two concrete handlers (FSUIPC offsets, LVars) and
// the router that dispatches a Command to the worker owning its Var.
package domain

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/apoloval/flightvars/notify"
	"github.com/apoloval/flightvars/types"
)

// Handler is the contract a domain worker drives, per spec §4.5.3.
// Command must not block; Poll is called once per tick when no message
// arrived within that tick's timeout.
type Handler interface {
	Description() string
	Command(cmd types.Command)
	Poll()
}

// DefaultPollTick is the worker loop's recv_timeout, per spec §4.5.
const DefaultPollTick = 20 * time.Millisecond

type message struct {
	cmd      types.Command
	shutdown bool
}

// Worker runs handler's event loop on its own goroutine: recv_timeout(tick)
// dispatches a Cmd to the handler, a Shutdown message stops the loop, and a
// timeout with no message calls handler.Poll().
type Worker struct {
	handler Handler
	ch      *notify.Channel[message]
	tick    time.Duration
	log     *logrus.Entry
	done    chan struct{}
}

// NewWorker builds and starts a worker over handler.
func NewWorker(handler Handler, tick time.Duration, log *logrus.Entry) *Worker {
	w := &Worker{
		handler: handler,
		ch:      notify.New[message](),
		tick:    tick,
		log:     log.WithField("handler", handler.Description()),
		done:    make(chan struct{}),
	}
	go w.run()
	return w
}

// Send forwards cmd to the worker. It never blocks.
func (w *Worker) Send(cmd types.Command) {
	w.ch.Send(message{cmd: cmd})
}

// Shutdown sends the Shutdown message and blocks until the worker's
// goroutine has exited.
func (w *Worker) Shutdown() {
	w.ch.Send(message{shutdown: true})
	<-w.done
}

func (w *Worker) run() {
	defer close(w.done)
	for {
		msg, ok, err := w.ch.RecvTimeout(w.tick)
		if err != nil {
			return
		}
		if !ok {
			w.handler.Poll()
			continue
		}
		if msg.shutdown {
			return
		}
		w.handler.Command(msg.cmd)
	}
}
