//go:build !linux

package platform

import (
	"context"
	"net"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/pkg/errors"
)

// Expire reports a kernel esp SA reaching its lifetime
type Expire struct {
	Spi  uint32
	Hard bool
}

var errNotSupported = errors.New("ipsec sa installation is only supported on linux")

func GetLocalAddress(remote net.IP) (net.IP, error) {
	return nil, errNotSupported
}

// InstallChildSa only checks the transform; keys stay in user space
func InstallChildSa(sa *SaParams, logger log.Logger) error {
	if _, _, _, err := espAlgorithms(sa.EspTransform); err != nil {
		return err
	}
	level.Warn(logger).Log("msg", "esp sa not installed", "sa", sa, "err", errNotSupported)
	return nil
}

func RemoveChildSa(sa *SaParams, logger log.Logger) error {
	return nil
}

func SetSocketBypass(conn net.PacketConn) error {
	return nil
}

func ListenForEvents(ctx context.Context, cb func(*Expire), logger log.Logger) error {
	<-ctx.Done()
	return ctx.Err()
}
