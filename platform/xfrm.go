//go:build linux

package platform

import (
	"net"

	"github.com/vishvananda/netlink"
)

// src & dst are tunnel endpoints; ignored for transport mode
func makeTemplate(src, dst net.IP, reqId int, isTransportMode bool) netlink.XfrmPolicyTmpl {
	mode := netlink.XFRM_MODE_TUNNEL
	if isTransportMode {
		mode = netlink.XFRM_MODE_TRANSPORT
		src = nil
		dst = nil
	}
	return netlink.XfrmPolicyTmpl{
		Src:   src,
		Dst:   dst,
		Proto: netlink.XFRM_PROTO_ESP,
		Mode:  mode,
		Reqid: reqId,
	}
}

// makeSaPolicies returns the initiator to responder policy first
func makeSaPolicies(sa *SaParams) (policies []*netlink.XfrmPolicy) {
	reqId := sa.reqId()
	ini := &netlink.XfrmPolicy{
		Src:      sa.IniNet,
		Dst:      sa.ResNet,
		Proto:    netlink.Proto(sa.IpProtocolId),
		SrcPort:  sa.IniPort,
		DstPort:  sa.ResPort,
		Dir:      netlink.XFRM_DIR_OUT,
		Priority: 10,
	}
	if !sa.IsInitiator {
		ini.Dir = netlink.XFRM_DIR_IN
	}
	ini.Tmpls = append(ini.Tmpls, makeTemplate(sa.Ini, sa.Res, reqId, sa.IsTransportMode))
	policies = append(policies, ini)

	res := &netlink.XfrmPolicy{
		Src:      sa.ResNet,
		Dst:      sa.IniNet,
		Proto:    netlink.Proto(sa.IpProtocolId),
		SrcPort:  sa.ResPort,
		DstPort:  sa.IniPort,
		Dir:      netlink.XFRM_DIR_IN,
		Priority: 10,
	}
	if !sa.IsInitiator {
		res.Dir = netlink.XFRM_DIR_OUT
	}
	res.Tmpls = append(res.Tmpls, makeTemplate(sa.Res, sa.Ini, reqId, sa.IsTransportMode))
	policies = append(policies, res)

	if !sa.IsTransportMode {
		// forwarded traffic arriving from the peer's network
		fwd := &netlink.XfrmPolicy{
			Src:      res.Src,
			Dst:      res.Dst,
			Proto:    res.Proto,
			Dir:      netlink.XFRM_DIR_FWD,
			Priority: 10,
			Tmpls:    res.Tmpls,
		}
		if !sa.IsInitiator {
			fwd.Src, fwd.Dst, fwd.Tmpls = ini.Src, ini.Dst, ini.Tmpls
		}
		policies = append(policies, fwd)
	}
	return policies
}

func makeSaStates(sa *SaParams) (states []*netlink.XfrmState, err error) {
	crypt, auth, trunc, err := espAlgorithms(sa.EspTransform)
	if err != nil {
		return nil, err
	}
	mode := netlink.XFRM_MODE_TUNNEL
	if sa.IsTransportMode {
		mode = netlink.XFRM_MODE_TRANSPORT
	}
	state := func(src, dst net.IP, spi uint32, encKey, authKey []byte) *netlink.XfrmState {
		st := &netlink.XfrmState{
			Src:          src,
			Dst:          dst,
			Proto:        netlink.XFRM_PROTO_ESP,
			Mode:         mode,
			Spi:          int(spi),
			Reqid:        sa.reqId(),
			ReplayWindow: 32,
			Crypt: &netlink.XfrmStateAlgo{
				Name: crypt,
				Key:  encKey,
			},
		}
		if auth != "" {
			st.Auth = &netlink.XfrmStateAlgo{
				Name:        auth,
				Key:         authKey,
				TruncateLen: trunc,
			}
		}
		return st
	}
	// initiator to responder
	states = append(states, state(sa.Ini, sa.Res, sa.SpiR, sa.EspEi, sa.EspAi))
	// responder to initiator
	states = append(states, state(sa.Res, sa.Ini, sa.SpiI, sa.EspEr, sa.EspAr))
	return
}
