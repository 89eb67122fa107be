package ike

import (
	"context"
	"crypto/rand"
	"io"
	"net"
	"sync"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/google/uuid"
	"github.com/msgboxio/ikev1/protocol"
	"github.com/msgboxio/ikev1/state"
	"github.com/pkg/errors"
)

// Engine runs every isakmp negotiation of one socket under a single lock
type Engine struct {
	// the IKE lock
	mtx sync.Mutex

	cfg  *Config
	conn Conn
	cb   Callback

	dir *Directory
	// phase 1 negotiations whose SA is not admitted yet, by initiator cookie
	locals map[protocol.Cookie]*Phase1

	timers   *Timers
	waiters  map[uuid.UUID]chan error
	deferred []deferredEvent

	rand   io.Reader
	closed bool
	logger log.Logger
}

// deferredEvent is work queued by a failing handler, run after its lock scope
type deferredEvent struct {
	event state.Event
	key   SaKey
	msgId uint32
	cause error
}

func NewEngine(cfg *Config, conn Conn, cb Callback, logger log.Logger) (*Engine, error) {
	return newEngine(cfg, conn, cb, clockScheduler{}, logger)
}

func newEngine(cfg *Config, conn Conn, cb Callback, sched Scheduler, logger log.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config")
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	e := &Engine{
		cfg:     cfg,
		conn:    conn,
		cb:      cb,
		dir:     NewDirectory(),
		locals:  make(map[protocol.Cookie]*Phase1),
		waiters: make(map[uuid.UUID]chan error),
		rand:    rand.Reader,
		logger:  logger,
	}
	e.timers = newTimers(sched, e.fireTimer)
	return e, nil
}

// do runs fn under the IKE lock, then the events it deferred, each in its own lock scope
func (e *Engine) do(fn func() error) error {
	e.mtx.Lock()
	err := fn()
	e.mtx.Unlock()
	e.drain()
	return err
}

func (e *Engine) drain() {
	for {
		e.mtx.Lock()
		if len(e.deferred) == 0 {
			e.mtx.Unlock()
			return
		}
		ev := e.deferred[0]
		e.deferred = e.deferred[1:]
		e.runDeferred(ev)
		e.mtx.Unlock()
	}
}

func (e *Engine) enqueue(ev deferredEvent) {
	e.deferred = append(e.deferred, ev)
}

func (e *Engine) runDeferred(ev deferredEvent) {
	switch ev.event {
	case state.REMOVE_SA:
		e.removeSa(ev.key, ev.cause)
	case state.REMOVE_PHASE2:
		e.removePhase2(ev.key, ev.msgId, ev.cause)
	default:
		level.Warn(e.logger).Log("msg", "unknown deferred event", "event", ev.event)
	}
}

// HandleMessage processes one received message
func (e *Engine) HandleMessage(msg *Message) error {
	return e.do(func() error {
		if e.closed {
			return ErrEngineClosed
		}
		err := e.dispatch(msg)
		if err != nil {
			level.Warn(e.logger).Log("msg", "message dropped", "from", msg.RemoteAddr,
				"exchange", msg.Header.ExchangeType, "err", err)
		}
		return err
	})
}

// Run reads and processes messages until ctx is done or the connection fails.
// Cancelling ctx shuts the engine down and closes the connection
func (e *Engine) Run(ctx context.Context) error {
	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-ctx.Done():
			e.Shutdown()
			if err := e.conn.Close(); err != nil {
				level.Debug(e.logger).Log("msg", "close", "err", err)
			}
		case <-stopped:
		}
	}()
	for {
		msg, err := ReadMessage(e.conn, e.logger)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrap(err, "read")
		}
		e.HandleMessage(msg)
	}
}

// Initiate starts a negotiation with remote and blocks until the requested
// phase completes or fails. Phase 2 reuses an established isakmp SA
func (e *Engine) Initiate(ctx context.Context, remote net.Addr, phase int) error {
	var id uuid.UUID
	var done chan error
	err := e.do(func() error {
		if e.closed {
			return ErrEngineClosed
		}
		id, done = e.addWaiter()
		var err error
		switch phase {
		case 1:
			var p *Phase1
			if p, err = e.startPhase1(remote, nil); err == nil {
				p.waiters = append(p.waiters, id)
			}
		case 2:
			err = e.requestPhase2(remote, id)
		default:
			err = errors.Errorf("no phase %d", phase)
		}
		if err != nil {
			delete(e.waiters, id)
		}
		return err
	})
	if err != nil {
		return err
	}
	select {
	case err = <-done:
		return err
	case <-ctx.Done():
		e.do(func() error {
			delete(e.waiters, id)
			return nil
		})
		return ctx.Err()
	}
}

// Shutdown deletes every established isakmp SA, informing the peers
func (e *Engine) Shutdown() {
	e.do(func() error {
		if e.closed {
			return nil
		}
		e.closed = true
		e.dir.ForEach(func(sa *SA) {
			if sa.Established && !sa.IsDeleted() {
				e.sendDelete(sa)
			}
			e.enqueue(deferredEvent{event: state.REMOVE_SA, key: sa.Key(), cause: ErrEngineClosed})
		})
		for cky, p := range e.locals {
			e.notifyPhase1(p, ErrEngineClosed)
			e.timers.UnsetMatching(cky)
			delete(e.locals, cky)
			p.deleted = true
			p.release()
		}
		return nil
	})
}

func (e *Engine) addWaiter() (uuid.UUID, chan error) {
	id := uuid.New()
	ch := make(chan error, 1)
	e.waiters[id] = ch
	return id, ch
}

// notify completes a waiter; a waiter that gave up is ignored
func (e *Engine) notify(id uuid.UUID, err error) {
	if ch, ok := e.waiters[id]; ok {
		ch <- err
		delete(e.waiters, id)
	}
}

func (e *Engine) nonce() ([]byte, error) {
	n := make([]byte, e.cfg.NonceLen)
	if _, err := io.ReadFull(e.rand, n); err != nil {
		return nil, errors.Wrap(err, "nonce")
	}
	return n, nil
}

// findSa returns an established isakmp SA with remote
func (e *Engine) findSa(remote net.Addr) (found *SA) {
	e.dir.ForEach(func(sa *SA) {
		if found == nil && sa.Established && !sa.IsDeleted() && sameAddr(sa.Remote, remote) {
			found = sa
		}
	})
	return
}

func sameAddr(a, b net.Addr) bool {
	if a == nil || b == nil {
		return false
	}
	return a.String() == b.String()
}

// Directory exposes the admitted SAs
func (e *Engine) Directory() *Directory {
	return e.dir
}

// SetConfig replaces the policy; negotiations in progress see the new
// values from their next step on
func (e *Engine) SetConfig(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "config")
	}
	return e.do(func() error {
		e.cfg = cfg
		return nil
	})
}
