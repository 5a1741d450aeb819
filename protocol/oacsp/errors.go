package oacsp

import "errors"

// ErrInvalidInput covers every malformed-line, unknown-verb, arity-mismatch
// and number-parse failure mode in spec §4.4's failure table. OACSP has no
// recovery framing: any of these is connection-fatal.
var ErrInvalidInput = errors.New("oacsp: invalid input")

// ErrHandshakeViolation is a missing or duplicate BEGIN, per spec §4.4's
// state machine. Also connection-fatal.
var ErrHandshakeViolation = errors.New("oacsp: handshake violation")
