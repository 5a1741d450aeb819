package domain

import (
	"github.com/sirupsen/logrus"

	"github.com/apoloval/flightvars/simulator"
	"github.com/apoloval/flightvars/types"
)

// LVarHandler is the domain handler for LVar Vars, per spec §4.5.2.
type LVarHandler struct {
	store simulator.LVarStore
	log   *logrus.Entry
	subs  []*types.Subscription
}

// NewLVarHandler builds a handler backed by store (real or fake).
func NewLVarHandler(store simulator.LVarStore, log *logrus.Entry) *LVarHandler {
	return &LVarHandler{store: store, log: log.WithField("component", "lvar")}
}

func (h *LVarHandler) Description() string { return "lvar" }

func (h *LVarHandler) Command(cmd types.Command) {
	switch c := cmd.(type) {
	case types.Write:
		lvar, ok := c.Target.(types.LVar)
		if !ok {
			return
		}
		id, ok := h.store.Resolve(string(lvar))
		if !ok {
			h.log.WithField("lvar", string(lvar)).Warn("write to unknown lvar, ignoring")
			return
		}
		if err := h.store.SetValue(id, valueToFloat64(c.Value)); err != nil {
			h.log.WithError(err).Warn("failed to set lvar value")
		}
	case types.Observe:
		lvar, ok := c.Target.(types.LVar)
		if !ok {
			return
		}
		h.subs = append(h.subs, &types.Subscription{Client: c.Client, Target: lvar})
	case types.Close:
		h.subs = removeByClientName(h.subs, c.ClientName)
	}
}

// Poll resolves each subscription's id, reads the current value, truncates
// it to an Int per spec §4.5.2, and emits an Update if it changed.
func (h *LVarHandler) Poll() {
	for _, sub := range h.subs {
		lvar := sub.Target.(types.LVar)
		id, ok := h.store.Resolve(string(lvar))
		if !ok {
			continue
		}
		value := types.Float(h.store.GetValue(id))
		truncated := types.Int(value.AsInt64())
		if sub.ShouldEmit(truncated) {
			if err := sub.Client.Sink.Send(types.Update{Target: sub.Target, Value: truncated}); err != nil {
				h.log.WithError(err).Debug("failed to deliver update")
			} else {
				sub.MarkReported(truncated)
			}
		}
	}
}
