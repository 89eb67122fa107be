package ike

import (
	"net"
	"time"

	"github.com/msgboxio/ikev1/crypto"
	"github.com/msgboxio/ikev1/protocol"
	"github.com/pkg/errors"
)

const (
	RESEND_INTERVAL      = 2 * time.Second
	RESEND_COUNT         = 5
	PHASE1_TIMEOUT       = 60 * time.Second
	PHASE2_TIMEOUT       = 45 * time.Second
	NONCE_LEN            = 20
	SOFT_LIFETIME_OFFSET = 10 * time.Second
)

// Config is the policy applied to one peer
type Config struct {
	// phase 1 exchange: EXCHANGE_MAIN or EXCHANGE_AGGRESSIVE
	Mode protocol.ExchangeType

	ProposalIke []protocol.Phase1Transform
	ProposalEsp []protocol.Phase2Transform

	LocalID, RemoteID Identity

	// local and remote protected networks
	LocalNet, RemoteNet *net.IPNet
	IpProtocolId        uint8
	IsTransportMode     bool

	InbandCertXchg      bool
	SendCertProactively bool
	InitialContact      bool
	// ask the responder to acknowledge quick mode installation
	Commit bool

	NonceLen       int
	ResendInterval time.Duration
	ResendCount    int
	Phase1Timeout  time.Duration
	Phase2Timeout  time.Duration
	MaxPacketLen   int
}

func DefaultConfig() *Config {
	return &Config{
		Mode: protocol.EXCHANGE_MAIN,
		ProposalIke: []protocol.Phase1Transform{
			protocol.IKE_AES128_SHA1_MODP1024,
		},
		ProposalEsp: []protocol.Phase2Transform{
			protocol.ESP_AES128_SHA1,
		},
		NonceLen:       NONCE_LEN,
		ResendInterval: RESEND_INTERVAL,
		ResendCount:    RESEND_COUNT,
		Phase1Timeout:  PHASE1_TIMEOUT,
		Phase2Timeout:  PHASE2_TIMEOUT,
		MaxPacketLen:   protocol.MAX_PACKET_LEN,
	}
}

// AddSelector sets the networks protected by quick mode SAs
func (cfg *Config) AddSelector(local, remote *net.IPNet) {
	cfg.LocalNet = local
	cfg.RemoteNet = remote
}

// Policy returns the phase 2 selectors with this end as initiator
func (cfg *Config) Policy(local, remote net.Addr) *protocol.PolicyParams {
	pol := &protocol.PolicyParams{
		Ini:             AddrToIp(local),
		Res:             AddrToIp(remote),
		IniNet:          cfg.LocalNet,
		ResNet:          cfg.RemoteNet,
		IpProtocolId:    cfg.IpProtocolId,
		IsTransportMode: cfg.IsTransportMode,
	}
	if pol.IniNet == nil || pol.IsTransportMode {
		pol.IniNet = hostNet(pol.Ini)
	}
	if pol.ResNet == nil || pol.IsTransportMode {
		pol.ResNet = hostNet(pol.Res)
	}
	return pol
}

func hostNet(ip net.IP) *net.IPNet {
	if ip4 := ip.To4(); ip4 != nil {
		return &net.IPNet{IP: ip4, Mask: net.CIDRMask(32, 32)}
	}
	return &net.IPNet{IP: ip, Mask: net.CIDRMask(128, 128)}
}

func (cfg *Config) Validate() error {
	switch cfg.Mode {
	case protocol.EXCHANGE_MAIN, protocol.EXCHANGE_AGGRESSIVE:
	default:
		return errors.Errorf("unsupported phase 1 mode %s", cfg.Mode)
	}
	if len(cfg.ProposalIke) == 0 || len(cfg.ProposalIke) > protocol.MAX_TRANSFORMS {
		return errors.Errorf("need 1 to %d phase 1 transforms, have %d", protocol.MAX_TRANSFORMS, len(cfg.ProposalIke))
	}
	if len(cfg.ProposalEsp) == 0 || len(cfg.ProposalEsp) > protocol.MAX_TRANSFORMS {
		return errors.Errorf("need 1 to %d phase 2 transforms, have %d", protocol.MAX_TRANSFORMS, len(cfg.ProposalEsp))
	}
	for _, t := range cfg.ProposalIke {
		if _, err := crypto.NewCipherSuite(t); err != nil {
			return err
		}
		// the aggressive mode KE is sent before a group is agreed
		if cfg.Mode == protocol.EXCHANGE_AGGRESSIVE && t.Group != cfg.ProposalIke[0].Group {
			return errors.New("aggressive mode transforms must share one dh group")
		}
	}
	for _, t := range cfg.ProposalEsp {
		if err := crypto.Phase2Supported(t); err != nil {
			return err
		}
		if t.Group != cfg.ProposalEsp[0].Group {
			return errors.New("esp transforms must share one pfs group")
		}
	}
	if cfg.LocalID == nil || cfg.RemoteID == nil {
		return errors.New("local and remote identities are required")
	}
	if cfg.ProposalIke[0].Auth != cfg.LocalID.AuthMethod() {
		return errors.Errorf("transform auth %s does not match identity %s", cfg.ProposalIke[0].Auth, cfg.LocalID.AuthMethod())
	}
	if cfg.NonceLen < protocol.MIN_NONCE_LEN || cfg.NonceLen > protocol.MAX_NONCE_LEN {
		return errors.Errorf("nonce length %d out of range", cfg.NonceLen)
	}
	if cfg.ResendCount < 0 || cfg.ResendInterval <= 0 {
		return errors.New("bad resend settings")
	}
	if cfg.MaxPacketLen < protocol.ISAKMP_HEADER_LEN {
		return errors.Errorf("max packet length %d too small", cfg.MaxPacketLen)
	}
	return nil
}

// pfsGroup is the quick mode dh group, MODP_NONE without pfs
func (cfg *Config) pfsGroup() protocol.GroupDescription {
	return cfg.ProposalEsp[0].Group
}
