package state

import (
	"errors"
	"testing"

	pkgerrors "github.com/pkg/errors"
)

type step struct{ calls []int }

func TestTableLookup(t *testing.T) {
	tbl := NewTable[*step]("test",
		func(s *step) error { s.calls = append(s.calls, 1); return nil },
		func(s *step) error { s.calls = append(s.calls, 2); return errors.New("fail") },
	)
	s := &step{}
	h, err := tbl.Lookup(1)
	if err != nil {
		t.Fatal(err)
	}
	if err := h(s); err != nil {
		t.Error(err)
	}
	h, _ = tbl.Lookup(2)
	if err := h(s); err == nil {
		t.Error("expected failure")
	}
	if len(s.calls) != 2 || s.calls[1] != 2 {
		t.Errorf("calls: %v", s.calls)
	}
	if _, err := tbl.Lookup(3); pkgerrors.Cause(err) != ErrNoState {
		t.Errorf("state 3: %v", err)
	}
	if _, err := tbl.Lookup(STATE_IDLE); pkgerrors.Cause(err) != ErrNoState {
		t.Errorf("idle: %v", err)
	}
	if _, err := tbl.Lookup(COMPLETE); err != ErrComplete {
		t.Errorf("complete: %v", err)
	}
}

func TestMachineMonotonic(t *testing.T) {
	m := NewMachine()
	if m.State() != 1 {
		t.Fatal(m.State())
	}
	if err := m.Advance(); err != nil || m.State() != 2 {
		t.Fatal(err, m.State())
	}
	if err := m.MoveTo(1); pkgerrors.Cause(err) != ErrBackwards {
		t.Errorf("moved backwards: %v", err)
	}
	if err := m.MoveTo(2); pkgerrors.Cause(err) != ErrBackwards {
		t.Errorf("moved in place: %v", err)
	}
	if err := m.Next(); err != nil || m.State() != 4 {
		t.Fatal(err, m.State())
	}
	r := NewMachineAt(2)
	if err := r.Next(); err != nil || r.State() != 4 {
		t.Error(err, r.State())
	}
	m.Complete()
	if !m.IsComplete() {
		t.Error("not complete")
	}
	if err := m.Advance(); err != ErrComplete {
		t.Errorf("advanced from complete: %v", err)
	}
}
