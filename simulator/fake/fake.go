// Package fake implements in-memory stand-ins for simulator.Fsuipc and
// simulator.LVarStore, used to drive the domain worker's tests without a
// real flight simulator attached.
package fake

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/apoloval/flightvars/simulator"
)

// Memory is a fake FSUIPC-backed offset space: a flat byte array plus a
// queue of pending writes, mirroring the real session/process batching
// model so tests can exercise the "drain the FIFO, process, retry on
// TimedOut" behavior spec §4.5.1 describes.
type Memory struct {
	mu      sync.Mutex
	bytes   [0x10000]byte
	failNext bool
}

// NewMemory returns an empty 64KiB offset space.
func NewMemory() *Memory {
	return &Memory{}
}

// SetUint16 is a test helper that pokes a little-endian word directly into
// the fake offset space, simulating the simulator changing state out from
// under the domain worker between polls.
func (m *Memory) SetUint16(addr uint16, v uint16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	binary.LittleEndian.PutUint16(m.bytes[addr:], v)
}

// SetByte is the one-byte analogue of SetUint16.
func (m *Memory) SetByte(addr uint16, v byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bytes[addr] = v
}

// FailNextProcess makes the next Process call on any session opened from
// this Memory return simulator.ErrTimedOut once.
func (m *Memory) FailNextProcess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = true
}

// Open implements simulator.Fsuipc.
func (m *Memory) Open() (simulator.OffsetSession, error) {
	return &session{mem: m}, nil
}

type pendingRead struct {
	addr uint16
	buf  []byte
}

type pendingWrite struct {
	addr uint16
	data []byte
}

type session struct {
	mem    *Memory
	reads  []pendingRead
	writes []pendingWrite
}

func (s *session) ReadBytes(addr uint16, buf []byte) error {
	s.reads = append(s.reads, pendingRead{addr: addr, buf: buf})
	return nil
}

func (s *session) Write(addr uint16, data []byte) error {
	s.writes = append(s.writes, pendingWrite{addr: addr, data: append([]byte(nil), data...)})
	return nil
}

func (s *session) Process() error {
	s.mem.mu.Lock()
	if s.mem.failNext {
		s.mem.failNext = false
		s.mem.mu.Unlock()
		return simulator.ErrTimedOut
	}
	for _, w := range s.writes {
		copy(s.mem.bytes[w.addr:], w.data)
	}
	for _, r := range s.reads {
		copy(r.buf, s.mem.bytes[r.addr:int(r.addr)+len(r.buf)])
	}
	s.mem.mu.Unlock()
	s.writes = nil
	s.reads = nil
	return nil
}

// LVars is a fake named-variable store keyed by name.
type LVars struct {
	mu     sync.Mutex
	ids    map[string]simulator.VarID
	values map[simulator.VarID]float64
	next   simulator.VarID
}

// NewLVars returns an empty variable store.
func NewLVars() *LVars {
	return &LVars{
		ids:    make(map[string]simulator.VarID),
		values: make(map[simulator.VarID]float64),
	}
}

// Define registers name with an initial value, returning its assigned id.
// Tests use this instead of relying on auto-resolution, mirroring how a
// real simulator only knows variables the aircraft panel has declared.
func (l *LVars) Define(name string, initial float64) simulator.VarID {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next++
	id := l.next
	l.ids[name] = id
	l.values[id] = initial
	return id
}

// Set updates the value of an already-defined variable by name, simulating
// the panel changing state between polls.
func (l *LVars) Set(name string, value float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id, ok := l.ids[name]
	if !ok {
		panic(fmt.Sprintf("fake.LVars: %q not defined", name))
	}
	l.values[id] = value
}

func (l *LVars) Resolve(name string) (simulator.VarID, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id, ok := l.ids[name]
	return id, ok
}

func (l *LVars) GetValue(id simulator.VarID) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.values[id]
}

func (l *LVars) SetValue(id simulator.VarID, value float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.values[id]; !ok {
		return fmt.Errorf("fake.LVars: unknown id %d", id)
	}
	l.values[id] = value
	return nil
}
