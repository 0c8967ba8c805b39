package vm

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Runtime provides the quantum and I/O services a lowered program calls.
type Runtime interface {
	// Init receives main's argc; argv is not modelled.
	Init(argc int64) error
	Finalize() error
	// SetQreg hands an externally owned register to the program.
	SetQreg(reg Handle, size int64) error
	Alloc(n int64) (Handle, error)
	Release(reg Handle) error
	Gate(name string, params []float64, qubits []Qubit) error
	Measure(q Qubit) (int64, error)
	Reset(q Qubit) error
	Print(values []Value) error
}

// EventKind classifies recorded runtime calls.
type EventKind uint8

const (
	EvInit EventKind = iota
	EvFinalize
	EvSetQreg
	EvAlloc
	EvRelease
	EvGate
	EvMeasure
	EvReset
	EvPrint
)

var eventNames = [...]string{
	EvInit:     "init",
	EvFinalize: "finalize",
	EvSetQreg:  "set_qreg",
	EvAlloc:    "alloc",
	EvRelease:  "release",
	EvGate:     "gate",
	EvMeasure:  "measure",
	EvReset:    "reset",
	EvPrint:    "print",
}

func (k EventKind) String() string {
	if int(k) < len(eventNames) {
		return eventNames[k]
	}
	return "?"
}

// Event is one recorded runtime call.
type Event struct {
	Kind   EventKind
	Name   string // gate name
	Reg    Handle
	Size   int64
	Params []float64
	Qubits []Qubit
	Result int64 // measurement outcome
	Text   string
}

func (e Event) String() string {
	switch e.Kind {
	case EvInit:
		return fmt.Sprintf("init argc=%d", e.Size)
	case EvSetQreg, EvAlloc:
		return fmt.Sprintf("%s r%d size=%d", e.Kind, e.Reg, e.Size)
	case EvRelease:
		return fmt.Sprintf("release r%d", e.Reg)
	case EvGate:
		var sb strings.Builder
		sb.WriteString("gate " + e.Name)
		if len(e.Params) > 0 {
			sb.WriteString("(")
			for i, p := range e.Params {
				if i > 0 {
					sb.WriteString(", ")
				}
				fmt.Fprintf(&sb, "%g", p)
			}
			sb.WriteString(")")
		}
		for i, q := range e.Qubits {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString(" " + q.String())
		}
		return sb.String()
	case EvMeasure:
		return fmt.Sprintf("measure %s -> %d", e.Qubits[0], e.Result)
	case EvReset:
		return fmt.Sprintf("reset %s", e.Qubits[0])
	case EvPrint:
		return "print " + e.Text
	}
	return e.Kind.String()
}

// Recorder is a Runtime that records every call. Measurements return the
// scripted outcomes in order, then 0. It checks register lifetimes so
// tests can assert that every allocation is released exactly once.
// Safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	events   []Event
	outcomes []int64
	next     Handle
	live     map[Handle]int64
	out      io.Writer
}

// NewRecorder returns a recorder; outcomes script the measurement results.
func NewRecorder(outcomes ...int64) *Recorder {
	return &Recorder{outcomes: outcomes, next: 1, live: make(map[Handle]int64)}
}

// WithOutput mirrors print events to w.
func (r *Recorder) WithOutput(w io.Writer) *Recorder {
	r.out = w
	return r
}

func (r *Recorder) record(ev Event) {
	r.events = append(r.events, ev)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Live returns the number of registers allocated and not yet released.
func (r *Recorder) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

func (r *Recorder) Init(argc int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Event{Kind: EvInit, Size: argc})
	return nil
}

func (r *Recorder) Finalize() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Event{Kind: EvFinalize})
	return nil
}

func (r *Recorder) SetQreg(reg Handle, size int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Event{Kind: EvSetQreg, Reg: reg, Size: size})
	return nil
}

func (r *Recorder) Alloc(n int64) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := r.next
	r.next++
	r.live[h] = n
	r.record(Event{Kind: EvAlloc, Reg: h, Size: n})
	return h, nil
}

func (r *Recorder) Release(reg Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.live[reg]; !ok {
		return fmt.Errorf("register r%d is not allocated", reg)
	}
	delete(r.live, reg)
	r.record(Event{Kind: EvRelease, Reg: reg})
	return nil
}

func (r *Recorder) checkLive(qs ...Qubit) error {
	for _, q := range qs {
		size, ok := r.live[q.Reg]
		if !ok {
			continue // externally owned register (SetQreg)
		}
		if q.Index < 0 || q.Index >= size {
			return fmt.Errorf("qubit %s out of range", q)
		}
	}
	return nil
}

func (r *Recorder) Gate(name string, params []float64, qubits []Qubit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkLive(qubits...); err != nil {
		return err
	}
	r.record(Event{
		Kind:   EvGate,
		Name:   name,
		Params: append([]float64(nil), params...),
		Qubits: append([]Qubit(nil), qubits...),
	})
	return nil
}

func (r *Recorder) Measure(q Qubit) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkLive(q); err != nil {
		return 0, err
	}
	var bit int64
	if len(r.outcomes) > 0 {
		bit = r.outcomes[0]
		r.outcomes = r.outcomes[1:]
	}
	r.record(Event{Kind: EvMeasure, Qubits: []Qubit{q}, Result: bit})
	return bit, nil
}

func (r *Recorder) Reset(q Qubit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkLive(q); err != nil {
		return err
	}
	r.record(Event{Kind: EvReset, Qubits: []Qubit{q}})
	return nil
}

func (r *Recorder) Print(values []Value) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = v.String()
	}
	text := strings.Join(parts, " ")
	r.record(Event{Kind: EvPrint, Text: text})
	if r.out != nil {
		if _, err := fmt.Fprintln(r.out, text); err != nil {
			return err
		}
	}
	return nil
}
