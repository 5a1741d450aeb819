package module

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apoloval/flightvars/config"
	"github.com/apoloval/flightvars/simulator/fake"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func TestModuleStartStopWithNoActiveConnections(t *testing.T) {
	cfg := config.Defaults()
	cfg.OACSPTCP.Bind = "127.0.0.1:0"
	cfg.Domain.PollTickMS = 5

	m := New(cfg, testLogger(), fake.NewMemory(), fake.NewLVars())
	require.NoError(t, m.Start())

	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("module did not shut down within the bounded time")
	}
}

func TestModuleStopShutsDownActiveConnections(t *testing.T) {
	cfg := config.Defaults()
	cfg.OACSPTCP.Bind = "127.0.0.1:0"
	cfg.Domain.PollTickMS = 5

	m := New(cfg, testLogger(), fake.NewMemory(), fake.NewLVars())
	require.NoError(t, m.Start())

	conn, err := net.Dial("tcp", m.TCPAddr())
	require.NoError(t, err)
	_, err = conn.Write([]byte("BEGIN 1 client-a\n"))
	require.NoError(t, err)
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("module did not shut down within the bounded time with an active connection")
	}
}

// TestModuleRoundTripsObservedOffsetOverTCP drives a real TCP client through
// the full wire path spec §8's concrete scenarios describe: BEGIN, then
// OBS_OFFSET, must eventually produce an EVENT_OFFSET line carrying the
// value the simulator holds at that address.
func TestModuleRoundTripsObservedOffsetOverTCP(t *testing.T) {
	cfg := config.Defaults()
	cfg.OACSPTCP.Bind = "127.0.0.1:0"
	cfg.Domain.PollTickMS = 5

	mem := fake.NewMemory()
	mem.SetUint16(0x0330, 7)

	m := New(cfg, testLogger(), mem, fake.NewLVars())
	require.NoError(t, m.Start())
	defer m.Stop()

	c, err := net.Dial("tcp", m.TCPAddr())
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Write([]byte("BEGIN 1 client-a\nOBS_OFFSET 330:UW\n"))
	require.NoError(t, err)

	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	line, err := bufio.NewReader(c).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "EVENT_OFFSET 330 7\n", line)
}
