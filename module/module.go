// Package module wires the listener ports, domain workers and router into
// the single lifecycle spec §6 exposes: Start (non-blocking) and Stop
// (blocks until every worker has joined), per spec §4.10.
package module

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/apoloval/flightvars/config"
	"github.com/apoloval/flightvars/domain"
	"github.com/apoloval/flightvars/listener"
	"github.com/apoloval/flightvars/logging"
	"github.com/apoloval/flightvars/simulator"
	"github.com/apoloval/flightvars/transport"
)

// Module composes one TCP listener.Port, an optional serial-scanner
// listener.Port, the two domain workers and the router that connects them.
type Module struct {
	cfg   config.Config
	log   *logrus.Logger
	fs    simulator.Fsuipc
	lvars simulator.LVarStore

	mu           sync.Mutex
	lvarWorker   *domain.Worker
	fsuipcWorker *domain.Worker
	tcpPort      *listener.Port
	tcpAddr      string
	serialPort   *listener.Port
}

// TCPAddr returns the bound TCP address once Start has run — useful when
// the configured bind address used port 0 and the caller needs to
// discover the assigned port (tests, ephemeral harness runs).
func (m *Module) TCPAddr() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tcpAddr
}

// New builds a Module from cfg. fs and lvars are the simulator FFI seams
// (real bindings or simulator/fake test doubles); Start has not yet run.
func New(cfg config.Config, log *logrus.Logger, fs simulator.Fsuipc, lvars simulator.LVarStore) *Module {
	return &Module{cfg: cfg, log: log, fs: fs, lvars: lvars}
}

// Start spawns every worker and listener goroutine and returns immediately,
// matching spec §6's start_module() contract.
func (m *Module) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	fsuipcHandler := domain.NewFsuipcHandler(m.fs, logging.For(m.log, "fsuipc"))
	lvarHandler := domain.NewLVarHandler(m.lvars, logging.For(m.log, "lvar"))
	m.fsuipcWorker = domain.NewWorker(fsuipcHandler, m.cfg.Domain.PollTick(), logging.For(m.log, "domain"))
	m.lvarWorker = domain.NewWorker(lvarHandler, m.cfg.Domain.PollTick(), logging.For(m.log, "domain"))
	router := domain.NewRouter(m.lvarWorker, m.fsuipcWorker, logging.For(m.log, "domain"))

	tcpLn, err := transport.ListenTCP(m.cfg.OACSPTCP.Bind, m.cfg.Domain.ReadTimeout())
	if err != nil {
		m.lvarWorker.Shutdown()
		m.fsuipcWorker.Shutdown()
		return fmt.Errorf("module: listen tcp: %w", err)
	}
	m.tcpAddr = tcpLn.Addr()
	m.tcpPort = listener.NewPort(tcpLn, router.Dispatch, logging.For(m.log, "listener"))

	if len(m.cfg.OACSPSerial.Ports) > 0 {
		scanner := transport.NewSerialScanner(m.cfg.OACSPSerial.Ports, m.cfg.Domain.SerialScanInterval())
		m.serialPort = listener.NewPort(scanner, router.Dispatch, logging.For(m.log, "listener"))
	}
	return nil
}

// Stop carries out the global shutdown order from spec §5: every listener
// port (and every connection it retains, writer-then-reader) first, then
// the domain workers. Each stage's error is aggregated with multierr so a
// failure in one stage never skips the next; the combined error is logged
// here and also returned for a caller that wants to inspect it.
func (m *Module) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	if m.tcpPort != nil {
		err = multierr.Append(err, m.tcpPort.Stop())
	}
	if m.serialPort != nil {
		err = multierr.Append(err, m.serialPort.Stop())
	}
	if m.lvarWorker != nil {
		m.lvarWorker.Shutdown()
	}
	if m.fsuipcWorker != nil {
		m.fsuipcWorker.Shutdown()
	}
	if err != nil {
		m.log.WithError(err).Warn("module stop completed with errors")
	}
	return err
}
