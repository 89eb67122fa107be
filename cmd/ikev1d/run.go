package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-kit/kit/log/level"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Answer and start negotiations until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		s, err := readSettings(viper.GetViper())
		if err != nil {
			return err
		}
		cfg, err := s.engineConfig()
		if err != nil {
			return err
		}
		peers, err := s.peerAddrs()
		if err != nil {
			return err
		}
		d, err := newDaemon(s, cfg, logger)
		if err != nil {
			return err
		}
		defer d.close()

		if viper.ConfigFileUsed() != "" {
			viper.OnConfigChange(func(e fsnotify.Event) {
				d.reload(viper.GetViper(), e)
			})
			viper.WatchConfig()
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		err = d.serve(ctx, peers)
		level.Info(logger).Log("msg", "stopped", "err", err)
		return err
	},
}

var initiatePhase int

var initiateCmd = &cobra.Command{
	Use:   "initiate <peer>",
	Short: "Negotiate once with a peer and exit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		s, err := readSettings(viper.GetViper())
		if err != nil {
			return err
		}
		cfg, err := s.engineConfig()
		if err != nil {
			return err
		}
		s.Peers = args
		peers, err := s.peerAddrs()
		if err != nil {
			return err
		}
		d, err := newDaemon(s, cfg, logger)
		if err != nil {
			return err
		}
		defer d.close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		go d.engine.Run(ctx)
		timeout := cfg.Phase1Timeout + cfg.Phase2Timeout
		ictx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		start := time.Now()
		if err := d.engine.Initiate(ictx, peers[0], initiatePhase); err != nil {
			return errors.Wrapf(err, "phase %d with %s", initiatePhase, peers[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "phase %d with %s established in %s\n",
			initiatePhase, peers[0], time.Since(start).Round(time.Millisecond))
		d.engine.Shutdown()
		return nil
	},
}

func init() {
	initiateCmd.Flags().IntVar(&initiatePhase, "phase", 2, "1 for an isakmp SA only, 2 to add esp SAs")
	initiateCmd.Flags().String("listen", "", "local address, overrides the config")
	viper.BindPFlag("listen", initiateCmd.Flags().Lookup("listen"))
}
