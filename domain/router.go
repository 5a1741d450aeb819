package domain

import (
	"github.com/sirupsen/logrus"

	"github.com/apoloval/flightvars/types"
)

// Router is the pure dispatch described in spec §4.6: it inspects a
// Command's Var and forwards to the worker that owns it. Close is
// forwarded to both workers since either could hold subscriptions for the
// closing client.
type Router struct {
	lvar   *Worker
	fsuipc *Worker
	log    *logrus.Entry
}

// NewRouter builds a Router over the two domain workers.
func NewRouter(lvar, fsuipc *Worker, log *logrus.Entry) *Router {
	return &Router{lvar: lvar, fsuipc: fsuipc, log: log.WithField("component", "router")}
}

// Dispatch forwards cmd to the worker(s) that own it. This is the
// CommandHandler a conn.Connection's reader goroutine calls.
func (r *Router) Dispatch(cmd types.Command) {
	switch c := cmd.(type) {
	case types.Close:
		r.lvar.Send(c)
		r.fsuipc.Send(c)
	case types.Observe:
		r.forward(c.Target, c)
	case types.Write:
		r.forward(c.Target, c)
	default:
		r.log.Warnf("no route for command %T", cmd)
	}
}

func (r *Router) forward(v types.Var, cmd types.Command) {
	switch v.(type) {
	case types.LVar:
		r.lvar.Send(cmd)
	case types.FsuipcOffset:
		r.fsuipc.Send(cmd)
	default:
		r.log.Warnf("no route for var %T", v)
	}
}
