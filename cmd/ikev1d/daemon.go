package main

import (
	"context"
	"io"
	"net"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	ike "github.com/msgboxio/ikev1"
	"github.com/msgboxio/ikev1/capture"
	"github.com/msgboxio/ikev1/platform"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

// daemon owns the socket and the engine of one ikev1d instance
type daemon struct {
	engine  *ike.Engine
	conn    ike.Conn
	closers []io.Closer
	logger  log.Logger
}

func listenNetwork(address string) string {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return "udp"
	}
	if ip := net.ParseIP(host); ip != nil && ip.To4() == nil {
		return "udp6"
	}
	return "udp4"
}

func newDaemon(s *settings, cfg *ike.Config, logger log.Logger) (*daemon, error) {
	conn, err := ike.Listen(listenNetwork(s.Listen), s.Listen, logger)
	if err != nil {
		return nil, err
	}
	d := &daemon{conn: conn, logger: logger}
	d.closers = append(d.closers, conn)
	if s.Pcap != "" {
		f, err := os.Create(s.Pcap)
		if err != nil {
			d.close()
			return nil, errors.Wrap(err, "pcap")
		}
		d.closers = append(d.closers, f)
		if d.conn, err = capture.NewConn(conn, f, logger); err != nil {
			d.close()
			return nil, err
		}
		level.Info(logger).Log("msg", "capturing", "file", s.Pcap)
	}
	d.engine, err = ike.NewEngine(cfg, d.conn, &ike.PlatformCallback{Logger: logger}, logger)
	if err != nil {
		d.close()
		return nil, err
	}
	return d, nil
}

func (d *daemon) close() {
	for _, c := range d.closers {
		c.Close()
	}
}

// serve runs the engine and the kernel event listener until ctx is done,
// then each peer in peers is negotiated with
func (d *daemon) serve(ctx context.Context, peers []net.Addr) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return d.engine.Run(ctx)
	})
	g.Go(func() error {
		err := platform.ListenForEvents(ctx, d.engine.HandleExpire, d.logger)
		if err != nil && ctx.Err() == nil {
			level.Warn(d.logger).Log("msg", "no kernel sa events", "err", err)
			return nil
		}
		return err
	})
	for _, peer := range peers {
		peer := peer
		g.Go(func() error {
			err := d.engine.Initiate(ctx, peer, 2)
			if err != nil && ctx.Err() == nil {
				level.Error(d.logger).Log("msg", "negotiation failed", "peer", peer, "err", err)
			}
			return nil
		})
	}
	err := g.Wait()
	if errors.Cause(err) == context.Canceled {
		return nil
	}
	return err
}

// reload applies a changed config file; a bad file keeps the running policy
func (d *daemon) reload(v *viper.Viper, e fsnotify.Event) {
	if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
		return
	}
	logger := log.With(d.logger, "file", e.Name)
	s, err := readSettings(v)
	if err == nil {
		var cfg *ike.Config
		if cfg, err = s.engineConfig(); err == nil {
			err = d.engine.SetConfig(cfg)
		}
	}
	if err != nil {
		level.Error(logger).Log("msg", "config not reloaded", "err", err)
		return
	}
	level.Info(logger).Log("msg", "config reloaded")
}
