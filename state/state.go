package state

import (
	"fmt"

	"github.com/pkg/errors"
)

// State is an exchange ordinal; tables start at 1
type State uint32

const (
	STATE_IDLE State = 0
	// COMPLETE terminates every exchange table
	COMPLETE State = 0xffffffff

	// initiator and responder alternate, so each side skips the peer's state
	NEXT_STATE_INC = 2
)

func (s State) String() string {
	switch s {
	case STATE_IDLE:
		return "IDLE"
	case COMPLETE:
		return "COMPLETE"
	default:
		return fmt.Sprintf("%d", uint32(s))
	}
}

var (
	ErrComplete  = errors.New("exchange is complete")
	ErrNoState   = errors.New("no handler for state")
	ErrBackwards = errors.New("state may not move backwards")
)

// Handler runs one step of an exchange against a negotiation
type Handler[T any] func(T) error

// Table is the fixed ordered list of handlers for one exchange mode
type Table[T any] struct {
	name     string
	handlers []Handler[T]
}

func NewTable[T any](name string, handlers ...Handler[T]) *Table[T] {
	return &Table[T]{name: name, handlers: handlers}
}

func (t *Table[T]) Name() string { return t.name }
func (t *Table[T]) Len() int     { return len(t.handlers) }

// Lookup returns the handler of state s, at index s-1
func (t *Table[T]) Lookup(s State) (Handler[T], error) {
	if s == COMPLETE {
		return nil, ErrComplete
	}
	if s == STATE_IDLE || int(s) > len(t.handlers) {
		return nil, errors.Wrapf(ErrNoState, "%s state %s", t.name, s)
	}
	return t.handlers[s-1], nil
}

// Machine is the position of one negotiation in its table
type Machine struct {
	state State
}

func NewMachine() Machine {
	return Machine{state: 1}
}

// NewMachineAt starts a machine at s, used by responders entering at state 2
func NewMachineAt(s State) Machine {
	return Machine{state: s}
}

func (m *Machine) State() State { return m.state }

func (m *Machine) IsComplete() bool { return m.state == COMPLETE }

// Advance moves to the next state
func (m *Machine) Advance() error {
	return m.MoveTo(m.state + 1)
}

// Next moves to the following state of the same side
func (m *Machine) Next() error {
	return m.MoveTo(m.state + NEXT_STATE_INC)
}

// MoveTo moves forward to s; a complete machine never moves
func (m *Machine) MoveTo(s State) error {
	if m.state == COMPLETE {
		return ErrComplete
	}
	if s <= m.state {
		return errors.Wrapf(ErrBackwards, "%s -> %s", m.state, s)
	}
	m.state = s
	return nil
}

func (m *Machine) Complete() {
	m.state = COMPLETE
}
