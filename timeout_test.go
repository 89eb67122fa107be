package ike

import (
	"testing"
	"time"

	"github.com/msgboxio/ikev1/protocol"
	"github.com/msgboxio/ikev1/state"
	"github.com/stretchr/testify/assert"
)

type firedTimer struct {
	key TimerKey
	gen uint64
}

func TestTimersReplaceAndClaim(t *testing.T) {
	sched := &fakeScheduler{}
	var fired []firedTimer
	timers := newTimers(sched, func(k TimerKey, gen uint64) { fired = append(fired, firedTimer{k, gen}) })
	cky := protocol.Cookie{1}
	key := TimerKey{Event: state.MESSAGE_REPLY, Subject: cky}

	timers.Set(key, time.Second)
	first := timers.pending[key].gen
	timers.Set(key, 2*time.Second)
	assert.Equal(t, 1, timers.Len(), "one timer per key")
	assert.Equal(t, 2*time.Second, sched.lastDelay())

	// the replaced timer's fire is stale
	assert.False(t, timers.claim(key, first))
	assert.True(t, timers.IsSet(key))
	assert.True(t, timers.claim(key, timers.pending[key].gen))
	assert.False(t, timers.IsSet(key))
	assert.Empty(t, fired)
}

func TestTimersUnset(t *testing.T) {
	timers := newTimers(&fakeScheduler{}, func(TimerKey, uint64) {})
	key := TimerKey{Event: state.PHASE1_TIMEOUT, Subject: protocol.Cookie{1}}
	assert.False(t, timers.Unset(key))
	timers.Set(key, time.Second)
	gen := timers.pending[key].gen
	assert.True(t, timers.Unset(key))
	assert.False(t, timers.claim(key, gen), "cancelled timers are refused")
}

func TestTimersUnsetMatching(t *testing.T) {
	timers := newTimers(&fakeScheduler{}, func(TimerKey, uint64) {})
	a, b := protocol.Cookie{1}, protocol.Cookie{2}
	timers.Set(TimerKey{Event: state.MESSAGE_REPLY, Subject: a}, time.Second)
	timers.Set(TimerKey{Event: state.PHASE1_TIMEOUT, Subject: a}, time.Second)
	timers.Set(TimerKey{Event: state.MESSAGE_REPLY, Subject: a, Aux: 7}, time.Second)
	timers.Set(TimerKey{Event: state.MESSAGE_REPLY, Subject: b}, time.Second)
	assert.Equal(t, 3, timers.UnsetMatching(a))
	assert.Equal(t, 1, timers.Len())
	assert.True(t, timers.IsSet(TimerKey{Event: state.MESSAGE_REPLY, Subject: b}))
}

func TestTimerKeyString(t *testing.T) {
	key := TimerKey{Event: state.REMOVE_PHASE2, Subject: protocol.Cookie{0xab}, Aux: 3}
	assert.Equal(t, "REMOVE_PHASE2[ab00000000000000/3]", key.String())
}

func TestSoftLifetime(t *testing.T) {
	for i := 0; i < 100; i++ {
		soft := softLifetime(time.Hour)
		assert.True(t, soft <= time.Hour-SOFT_LIFETIME_OFFSET)
		assert.True(t, soft >= time.Hour-SOFT_LIFETIME_OFFSET*3/2)
	}
	assert.Zero(t, softLifetime(SOFT_LIFETIME_OFFSET))
	assert.Equal(t, time.Second, jitter(time.Second, 0))
}
