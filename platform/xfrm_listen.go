//go:build linux

package platform

import (
	"context"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/pkg/errors"
	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netlink/nl"
)

// Expire reports a kernel esp SA reaching its lifetime
type Expire struct {
	Spi  uint32
	Hard bool
}

// ListenForEvents delivers xfrm expire messages to cb until ctx is done
func ListenForEvents(ctx context.Context, cb func(*Expire), logger log.Logger) error {
	ch := make(chan netlink.XfrmMsg)
	errs := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	if err := netlink.XfrmMonitor(ch, done, errs, nl.XFRM_MSG_EXPIRE); err != nil {
		return errors.Wrap(err, "xfrm monitor")
	}
	level.Info(logger).Log("msg", "listening for xfrm messages from kernel")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errs:
			return errors.Wrap(err, "xfrm monitor")
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			exp, ok := msg.(*netlink.XfrmMsgExpire)
			if !ok || exp.XfrmState == nil {
				level.Debug(logger).Log("msg", "xfrm message", "type", msg.Type())
				continue
			}
			level.Debug(logger).Log("msg", "xfrm expire", "spi", exp.XfrmState.Spi, "hard", exp.Hard)
			if cb != nil {
				cb(&Expire{Spi: uint32(exp.XfrmState.Spi), Hard: exp.Hard})
			}
		}
	}
}
