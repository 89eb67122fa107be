package platform

import (
	"net"
	"syscall"

	"github.com/davecgh/go-spew/spew"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/pkg/errors"
	"github.com/vishvananda/netlink"
)

func GetLocalAddress(remote net.IP) (local net.IP, err error) {
	routes, err := netlink.RouteGet(remote)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if len(routes) == 0 {
		return nil, errors.Errorf("no route to %s", remote)
	}
	return routes[0].Src, nil
}

// InstallChildSa adds the xfrm states and policies of an esp SA pair
func InstallChildSa(sa *SaParams, logger log.Logger) error {
	states, err := makeSaStates(sa)
	if err != nil {
		return err
	}
	for _, policy := range makeSaPolicies(sa) {
		level.Debug(logger).Log("msg", "adding policy", "policy", spew.Sprintf("%+v", policy))
		if err := netlink.XfrmPolicyAdd(policy); err != nil {
			if err == syscall.EEXIST {
				return errors.Errorf("policy %v already exists", policy)
			}
			return errors.Wrapf(err, "add policy %v", policy)
		}
	}
	for _, state := range states {
		level.Debug(logger).Log("msg", "adding state", "spi", state.Spi, "src", state.Src, "dst", state.Dst)
		if err := netlink.XfrmStateAdd(state); err != nil {
			if err == syscall.EEXIST {
				return errors.Errorf("state with spi %x already exists", state.Spi)
			}
			return errors.Wrapf(err, "add state spi %x", state.Spi)
		}
	}
	level.Info(logger).Log("msg", "installed esp sa", "sa", sa)
	return nil
}

// RemoveChildSa removes everything InstallChildSa added, reporting the first failure
func RemoveChildSa(sa *SaParams, logger log.Logger) (err error) {
	states, err := makeSaStates(sa)
	if err != nil {
		return err
	}
	for _, policy := range makeSaPolicies(sa) {
		if perr := netlink.XfrmPolicyDel(policy); perr != nil {
			level.Warn(logger).Log("msg", "remove policy", "err", perr)
			if err == nil {
				err = errors.Wrapf(perr, "remove policy %v", policy)
			}
		}
	}
	for _, state := range states {
		if serr := netlink.XfrmStateDel(state); serr != nil {
			level.Warn(logger).Log("msg", "remove state", "spi", state.Spi, "err", serr)
			if err == nil {
				err = errors.Wrapf(serr, "remove state spi %x", state.Spi)
			}
		}
	}
	level.Info(logger).Log("msg", "removed esp sa", "sa", sa)
	return
}
