package transport

import (
	"sync"
	"time"

	"github.com/apoloval/flightvars/serial"
)

// DefaultScanInterval is the delay between passes over the configured port
// list when the caller has no other preference.
const DefaultScanInterval = time.Second

// scannerInterruptor signals the scanner's Listen loop to give up on its
// next wait, per spec §4.1: "the scanner sink receives a termination
// message and subsequent passes abort with ConnectionAborted" — a dedicated
// shutdown message rather than a closed fd, since no port may be open when
// the scanner itself is told to stop.
type scannerInterruptor struct {
	once    sync.Once
	stopped chan struct{}
}

func (s *scannerInterruptor) Fire() error {
	s.once.Do(func() { close(s.stopped) })
	return nil
}

// SerialScanner cycles over a fixed list of port names (e.g. COM3..COM6),
// opening each at the Arduino profile as it becomes available, per
// spec §4.1.
type SerialScanner struct {
	ports        []string
	scanInterval time.Duration
	interruptor  *scannerInterruptor

	mu    sync.Mutex
	inUse map[string]bool
}

// NewSerialScanner builds a scanner over the given port names, waiting
// scanInterval between passes; module wiring passes
// config.DomainConfig.SerialScanInterval here.
func NewSerialScanner(ports []string, scanInterval time.Duration) *SerialScanner {
	return &SerialScanner{
		ports:        append([]string(nil), ports...),
		scanInterval: scanInterval,
		interruptor:  &scannerInterruptor{stopped: make(chan struct{})},
		inUse:        make(map[string]bool),
	}
}

func (s *SerialScanner) Interruptor() Interruptor { return s.interruptor }

func (s *SerialScanner) Close() error { return s.interruptor.Fire() }

func (s *SerialScanner) markInUse(name string, v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v {
		s.inUse[name] = true
	} else {
		delete(s.inUse, name)
	}
}

func (s *SerialScanner) isInUse(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inUse[name]
}

func (s *SerialScanner) aborted() bool {
	select {
	case <-s.interruptor.stopped:
		return true
	default:
		return false
	}
}

// Listen loops over the port list, waiting the scanner's scan interval
// between passes (DefaultScanInterval is 1 second), opening the
// first available port at the fixed Arduino profile (9600 8-N-1, DTR
// asserted, queues purged) and marking it InUse. It returns ErrAborted
// once the scanner's Interruptor fires.
func (s *SerialScanner) Listen() (Conn, error) {
	for {
		if s.aborted() {
			return Conn{}, ErrAborted
		}
		for _, name := range s.ports {
			if s.isInUse(name) {
				continue
			}
			port, err := serial.OpenArduino(name)
			if err != nil {
				continue
			}
			s.markInUse(name, true)
			interruptor := &closerInterruptor{c: port}
			return Conn{
				Input:       &serialReader{port: port},
				Output:      &serialWriter{scanner: s, name: name, port: port},
				PeerAddr:    name,
				Interruptor: interruptor,
			}, nil
		}
		select {
		case <-s.interruptor.stopped:
			return Conn{}, ErrAborted
		case <-time.After(s.scanInterval):
		}
	}
}

type serialReader struct {
	port *serial.Port
}

func (r *serialReader) Read(p []byte) (int, error) {
	n, err := r.port.Read(p)
	if err != nil {
		if IsTimeout(err) {
			return n, TimeoutError{Err: err}
		}
		return n, normalizeSerialErr(err)
	}
	return n, nil
}

func (r *serialReader) Close() error {
	return r.port.Close()
}

type serialWriter struct {
	scanner *SerialScanner
	name    string
	port    *serial.Port
}

func (w *serialWriter) Write(p []byte) (int, error) {
	n, err := w.port.Write(p)
	if err != nil {
		return n, normalizeSerialErr(err)
	}
	return n, nil
}

func (w *serialWriter) Close() error {
	err := w.port.Close()
	w.scanner.markInUse(w.name, false)
	return err
}

// normalizeSerialErr maps the teacher's own wrapped errno (its Error type
// unwraps to the syscall.Errno) onto ErrAborted via the same errno check
// the TCP transport uses.
func normalizeSerialErr(err error) error {
	return normalizeErrno(err)
}
