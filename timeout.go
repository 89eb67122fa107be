package ike

import (
	"fmt"
	"time"

	"github.com/msgboxio/ikev1/protocol"
	"github.com/msgboxio/ikev1/state"
)

// Stopper cancels a scheduled function
type Stopper interface {
	Stop() bool
}

// Scheduler runs f once after d
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Stopper
}

type clockScheduler struct{}

func (clockScheduler) AfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

// TimerKey names a timer by identifiers only; the initiator cookie names
// the isakmp SA and Aux the message id of a quick mode, 0 for phase 1
type TimerKey struct {
	Event   state.Event
	Subject protocol.Cookie
	Aux     uint32
}

func (k TimerKey) String() string {
	return fmt.Sprintf("%s[%x/%d]", k.Event, k.Subject[:], k.Aux)
}

type timerEntry struct {
	gen  uint64
	stop Stopper
}

// Timers keeps at most one pending timer per key; it is used under the IKE lock
type Timers struct {
	sched   Scheduler
	fire    func(TimerKey, uint64)
	pending map[TimerKey]timerEntry
	gen     uint64
}

func newTimers(sched Scheduler, fire func(TimerKey, uint64)) *Timers {
	return &Timers{
		sched:   sched,
		fire:    fire,
		pending: make(map[TimerKey]timerEntry),
	}
}

// Set arms key after d, replacing any pending timer with the same key
func (t *Timers) Set(key TimerKey, d time.Duration) {
	t.Unset(key)
	t.gen++
	gen := t.gen
	stop := t.sched.AfterFunc(d, func() { t.fire(key, gen) })
	t.pending[key] = timerEntry{gen: gen, stop: stop}
}

func (t *Timers) Unset(key TimerKey) bool {
	e, ok := t.pending[key]
	if !ok {
		return false
	}
	e.stop.Stop()
	delete(t.pending, key)
	return true
}

// UnsetMatching cancels every timer of an SA
func (t *Timers) UnsetMatching(subject protocol.Cookie) (n int) {
	for key := range t.pending {
		if key.Subject == subject {
			t.Unset(key)
			n++
		}
	}
	return
}

func (t *Timers) IsSet(key TimerKey) bool {
	_, ok := t.pending[key]
	return ok
}

func (t *Timers) Len() int {
	return len(t.pending)
}

// claim consumes a fired timer; stale fires of cancelled or replaced timers are refused
func (t *Timers) claim(key TimerKey, gen uint64) bool {
	e, ok := t.pending[key]
	if !ok || e.gen != gen {
		return false
	}
	delete(t.pending, key)
	return true
}
