// Package config loads the plugin's TOML configuration file and fills in
// documented defaults for anything missing, per spec §6.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"
)

// LoggingConfig controls the logging backend (§4.9).
type LoggingConfig struct {
	Level   string `toml:"level"`
	Pattern string `toml:"pattern"`
	File    string `toml:"file"`
}

// SerialConfig lists the serial ports the port scanner cycles through.
type SerialConfig struct {
	Ports []string `toml:"ports"`
}

// TCPConfig configures the TCP OACSP endpoint.
type TCPConfig struct {
	Bind string `toml:"bind"`
}

// DomainConfig exposes the polling/timeout constants spec §9 calls out as
// "should be configuration knobs even though the source hard-codes them".
type DomainConfig struct {
	PollTickMS           int `toml:"poll-tick-ms"`
	ReadTimeoutMS        int `toml:"read-timeout-ms"`
	SerialScanIntervalMS int `toml:"serial-scan-interval-ms"`
}

// Config is the root of Modules/flightvars.toml.
type Config struct {
	Logging      LoggingConfig `toml:"logging"`
	OACSPSerial  SerialConfig  `toml:"oacsp-serial"`
	OACSPTCP     TCPConfig     `toml:"oacsp-tcp"`
	Domain       DomainConfig  `toml:"domain"`
}

// Defaults returns a Config with every documented default applied.
func Defaults() Config {
	return Config{
		Logging: LoggingConfig{
			Level:   "Info",
			Pattern: "%timestamp% [%level%] %message%",
			File:    "Modules/flightvars.log",
		},
		OACSPSerial: SerialConfig{Ports: nil},
		OACSPTCP:    TCPConfig{Bind: "0.0.0.0:1801"},
		Domain: DomainConfig{
			PollTickMS:           20,
			ReadTimeoutMS:        250,
			SerialScanIntervalMS: 1000,
		},
	}
}

func (d DomainConfig) PollTick() time.Duration {
	return time.Duration(d.PollTickMS) * time.Millisecond
}

func (d DomainConfig) ReadTimeout() time.Duration {
	return time.Duration(d.ReadTimeoutMS) * time.Millisecond
}

func (d DomainConfig) SerialScanInterval() time.Duration {
	return time.Duration(d.SerialScanIntervalMS) * time.Millisecond
}

// Load reads and parses the TOML file at path, overlaying it on Defaults().
// Malformed TOML is a fatal error (the file exists but cannot be parsed at
// all); a section present but internally invalid (e.g. an unparseable log
// level) is handled by the caller falling back to that section's default —
// Load itself only fails on syntax errors and missing-file errors the
// caller chooses to treat as fatal.
func Load(path string) (Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.Domain.PollTickMS <= 0 {
		cfg.Domain.PollTickMS = Defaults().Domain.PollTickMS
	}
	if cfg.Domain.ReadTimeoutMS <= 0 {
		cfg.Domain.ReadTimeoutMS = Defaults().Domain.ReadTimeoutMS
	}
	if cfg.Domain.SerialScanIntervalMS <= 0 {
		cfg.Domain.SerialScanIntervalMS = Defaults().Domain.SerialScanIntervalMS
	}
	if cfg.OACSPTCP.Bind == "" {
		cfg.OACSPTCP.Bind = Defaults().OACSPTCP.Bind
	}
	return cfg, nil
}

// ParseLevel parses cfg's level name case-insensitively, falling back to
// logrus.InfoLevel (and logging loudly via the given logger) when the
// section is malformed, per the "fall back to defaults for the section"
// recovery rule in spec §7.
func ParseLevel(level string, fallback *logrus.Logger) logrus.Level {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		if fallback != nil {
			fallback.WithError(err).Warnf("invalid logging.level %q, falling back to info", level)
		}
		return logrus.InfoLevel
	}
	return lvl
}
