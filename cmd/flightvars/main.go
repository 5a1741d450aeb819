// Command flightvars is a standalone harness around module.Module: the
// host DLL entry points spec §1 places out of scope, but something has to
// call Start/Stop to make this a runnable, testable binary.
package main

import (
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/apoloval/flightvars/config"
	"github.com/apoloval/flightvars/logging"
	"github.com/apoloval/flightvars/module"
	"github.com/apoloval/flightvars/simulator/fake"
)

var configPath = flag.String("config", "Modules/flightvars.toml", "path to the TOML configuration file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	log := logging.New(cfg.Logging)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.WithError(err).Fatalf("could not load %s", *configPath)
		}
		log.WithError(err).Warnf("could not load %s, running with defaults", *configPath)
	}

	// The real simulator FFI binding is out of scope (spec §1); this
	// harness runs against the in-memory fakes so the binary is runnable
	// standalone. A real build would swap these two lines behind a build
	// tag for the host's actual DLL binding.
	fs := fake.NewMemory()
	lvars := fake.NewLVars()

	m := module.New(cfg, log, fs, lvars)
	if err := m.Start(); err != nil {
		log.WithError(err).Fatal("failed to start flightvars")
	}
	log.WithField("bind", cfg.OACSPTCP.Bind).Info("flightvars started")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info("shutting down")
	if err := m.Stop(); err != nil {
		log.WithError(err).Warn("flightvars stopped with errors")
	}
}
