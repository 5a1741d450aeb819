package domain

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apoloval/flightvars/types"
)

type countingHandler struct {
	mu       sync.Mutex
	commands []types.Command
	polls    int
}

func (h *countingHandler) Description() string { return "counting" }

func (h *countingHandler) Command(cmd types.Command) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.commands = append(h.commands, cmd)
}

func (h *countingHandler) Poll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.polls++
}

func (h *countingHandler) snapshot() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.commands), h.polls
}

func TestWorkerDispatchesCommandsAndPollsOnIdleTick(t *testing.T) {
	h := &countingHandler{}
	w := NewWorker(h, 5*time.Millisecond, testLog())

	w.Send(types.Close{ClientName: "x"})

	require.Eventually(t, func() bool {
		cmds, _ := h.snapshot()
		return cmds == 1
	}, time.Second, time.Millisecond)

	require.Eventually(t, func() bool {
		_, polls := h.snapshot()
		return polls > 0
	}, time.Second, time.Millisecond)

	w.Shutdown()
}

func TestWorkerShutdownStopsFurtherPolling(t *testing.T) {
	h := &countingHandler{}
	w := NewWorker(h, 2*time.Millisecond, testLog())
	w.Shutdown()

	_, pollsAtShutdown := h.snapshot()
	time.Sleep(20 * time.Millisecond)
	_, pollsAfter := h.snapshot()
	assert.Equal(t, pollsAtShutdown, pollsAfter)
}
