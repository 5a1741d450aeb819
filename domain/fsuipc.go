package domain

import (
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/apoloval/flightvars/simulator"
	"github.com/apoloval/flightvars/types"
)

// DefaultPendingWriteCapacity is the FSUIPC write FIFO's minimum bound per
// spec §4.5.1.
const DefaultPendingWriteCapacity = 1024

type writeOp struct {
	addr   uint16
	length types.Length
	value  types.Value
}

// FsuipcHandler is the domain handler for FsuipcOffset Vars, per
// spec §4.5.1: a subscription list plus a bounded FIFO of pending writes,
// both owned exclusively by the worker goroutine driving this handler.
type FsuipcHandler struct {
	fs  simulator.Fsuipc
	log *logrus.Entry

	subs       []*types.Subscription
	pending    []writeOp
	pendingCap int
}

// NewFsuipcHandler builds a handler backed by fs (real or fake).
func NewFsuipcHandler(fs simulator.Fsuipc, log *logrus.Entry) *FsuipcHandler {
	return &FsuipcHandler{
		fs:         fs,
		log:        log.WithField("component", "fsuipc"),
		pendingCap: DefaultPendingWriteCapacity,
	}
}

func (h *FsuipcHandler) Description() string { return "fsuipc" }

func (h *FsuipcHandler) Command(cmd types.Command) {
	switch c := cmd.(type) {
	case types.Write:
		offset, ok := c.Target.(types.FsuipcOffset)
		if !ok {
			return
		}
		if len(h.pending) >= h.pendingCap {
			h.log.Warn("pending write FIFO full, dropping write")
			return
		}
		h.pending = append(h.pending, writeOp{addr: offset.Addr, length: offset.Length, value: c.Value})
	case types.Observe:
		offset, ok := c.Target.(types.FsuipcOffset)
		if !ok {
			return
		}
		h.subs = append(h.subs, &types.Subscription{Client: c.Client, Target: offset})
	case types.Close:
		h.subs = removeByClientName(h.subs, c.ClientName)
	}
}

func (h *FsuipcHandler) Poll() {
	h.drainWrites()
	h.pollSubscriptions()
}

// drainWrites processes the pending FIFO front-to-back: open a session,
// write, process. A TimedOut process leaves the operation at the front of
// the FIFO (it's never popped) and aborts the drain for this tick, so
// order is preserved across ticks. Any other error also aborts the drain;
// the operation is dropped since it's presumed malformed or unrecoverable.
func (h *FsuipcHandler) drainWrites() {
	for len(h.pending) > 0 {
		op := h.pending[0]
		session, err := h.fs.Open()
		if err != nil {
			h.log.WithError(err).Error("fsuipc unavailable, aborting write drain")
			return
		}
		offset := types.Offset{Addr: op.addr, Length: op.length}
		data, err := offset.Encode(op.value)
		if err != nil {
			h.log.WithError(err).Warn("failed to encode pending write, dropping")
			h.pending = h.pending[1:]
			continue
		}
		if err := session.Write(op.addr, data); err != nil {
			h.log.WithError(err).Warn("fsuipc write enqueue failed, dropping")
			h.pending = h.pending[1:]
			continue
		}
		if err := session.Process(); err != nil {
			if errors.Is(err, simulator.ErrTimedOut) {
				return
			}
			h.log.WithError(err).Error("fsuipc process failed, dropping write and aborting drain")
			h.pending = h.pending[1:]
			return
		}
		h.pending = h.pending[1:]
	}
}

// pollSubscriptions issues one read per subscription into its own 4-byte
// scratch buffer, processes the session once, then decodes and compares
// each subscription in turn — at most one Update per subscription.
func (h *FsuipcHandler) pollSubscriptions() {
	if len(h.subs) == 0 {
		return
	}
	session, err := h.fs.Open()
	if err != nil {
		h.log.WithError(err).Error("fsuipc unavailable, skipping poll")
		return
	}

	bufs := make([][4]byte, len(h.subs))
	for i, sub := range h.subs {
		offset := sub.Target.(types.FsuipcOffset)
		n := types.Offset(offset).Length.Size()
		if err := session.ReadBytes(offset.Addr, bufs[i][:n]); err != nil {
			h.log.WithError(err).Warn("failed to queue offset read")
		}
	}
	if err := session.Process(); err != nil {
		h.log.WithError(err).Warn("fsuipc poll process failed")
		return
	}

	for i, sub := range h.subs {
		offset := sub.Target.(types.FsuipcOffset)
		n := types.Offset(offset).Length.Size()
		value, err := types.Offset(offset).Decode(bufs[i][:n])
		if err != nil {
			h.log.WithError(err).Warn("failed to decode offset value")
			continue
		}
		if sub.ShouldEmit(value) {
			if err := sub.Client.Sink.Send(types.Update{Target: sub.Target, Value: value}); err != nil {
				h.log.WithError(err).Debug("failed to deliver update")
			} else {
				sub.MarkReported(value)
			}
		}
	}
}
