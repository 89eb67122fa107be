package main

import (
	"net"
	"strings"
	"time"

	ike "github.com/msgboxio/ikev1"
	"github.com/msgboxio/ikev1/protocol"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type pskEntry struct {
	Id  string
	Key string
}

// settings is the daemon configuration as read by viper
type settings struct {
	Listen string
	Mode   string
	Ike    []string
	Esp    []string
	// quick mode dh group, empty for no pfs
	Pfs string

	LocalId  string     `mapstructure:"local_id"`
	IdType   string     `mapstructure:"id_type"`
	Psk      []pskEntry `mapstructure:"psk"`
	Cert     string
	Key      string
	Ca       string
	PeerName string `mapstructure:"peer_name"`

	LocalNet       string `mapstructure:"local_net"`
	RemoteNet      string `mapstructure:"remote_net"`
	TransportMode  bool   `mapstructure:"transport_mode"`
	InitialContact bool   `mapstructure:"initial_contact"`
	Commit         bool
	InbandCert     bool `mapstructure:"inband_cert"`
	SendCert       bool `mapstructure:"send_cert"`

	ResendInterval time.Duration `mapstructure:"resend_interval"`
	ResendCount    int           `mapstructure:"resend_count"`
	Phase1Timeout  time.Duration `mapstructure:"phase1_timeout"`
	Phase2Timeout  time.Duration `mapstructure:"phase2_timeout"`

	// peers to negotiate with at startup
	Peers []string
	Pcap  string
}

func setDefaults(v *viper.Viper) {
	def := ike.DefaultConfig()
	v.SetDefault("listen", "0.0.0.0:500")
	v.SetDefault("mode", "main")
	v.SetDefault("ike", []string{"aes128-sha1-modp1024"})
	v.SetDefault("esp", []string{"esp-aes128-sha1"})
	v.SetDefault("resend_interval", def.ResendInterval)
	v.SetDefault("resend_count", def.ResendCount)
	v.SetDefault("phase1_timeout", def.Phase1Timeout)
	v.SetDefault("phase2_timeout", def.Phase2Timeout)
}

var groups = map[string]protocol.GroupDescription{
	"":         protocol.MODP_NONE,
	"none":     protocol.MODP_NONE,
	"modp768":  protocol.MODP_768,
	"modp1024": protocol.MODP_1024,
	"modp1536": protocol.MODP_1536,
	"modp2048": protocol.MODP_2048,
	"ecp256":   protocol.ECP_256,
	"ecp384":   protocol.ECP_384,
}

var idTypes = map[string]protocol.IdType{
	"":          protocol.ID_FQDN,
	"fqdn":      protocol.ID_FQDN,
	"user_fqdn": protocol.ID_USER_FQDN,
	"ipv4":      protocol.ID_IPV4_ADDR,
	"ipv6":      protocol.ID_IPV6_ADDR,
}

func readSettings(v *viper.Viper) (*settings, error) {
	s := &settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, errors.Wrap(err, "config")
	}
	return s, nil
}

// engineConfig turns settings into a validated engine policy
func (s *settings) engineConfig() (*ike.Config, error) {
	cfg := ike.DefaultConfig()
	switch strings.ToLower(s.Mode) {
	case "main", "":
		cfg.Mode = protocol.EXCHANGE_MAIN
	case "aggressive":
		cfg.Mode = protocol.EXCHANGE_AGGRESSIVE
	default:
		return nil, errors.Errorf("unknown mode %q", s.Mode)
	}
	pfs, ok := groups[strings.ToLower(s.Pfs)]
	if !ok {
		return nil, errors.Errorf("unknown pfs group %q", s.Pfs)
	}

	local, remote, err := s.identities()
	if err != nil {
		return nil, err
	}
	cfg.LocalID, cfg.RemoteID = local, remote

	cfg.ProposalIke = nil
	for _, name := range s.Ike {
		t, ok := protocol.Phase1Presets[strings.ToLower(name)]
		if !ok {
			return nil, errors.Errorf("unknown ike transform %q", name)
		}
		t.Auth = local.AuthMethod()
		cfg.ProposalIke = append(cfg.ProposalIke, t)
	}
	cfg.ProposalEsp = nil
	for _, name := range s.Esp {
		t, ok := protocol.Phase2Presets[strings.ToLower(name)]
		if !ok {
			return nil, errors.Errorf("unknown esp transform %q", name)
		}
		t.Group = pfs
		if s.TransportMode {
			t.Mode = protocol.ENCAPSULATION_TRANSPORT
		}
		cfg.ProposalEsp = append(cfg.ProposalEsp, t)
	}

	if s.LocalNet != "" || s.RemoteNet != "" {
		ln, err := ike.ParseSelector(s.LocalNet)
		if err != nil {
			return nil, err
		}
		rn, err := ike.ParseSelector(s.RemoteNet)
		if err != nil {
			return nil, err
		}
		cfg.AddSelector(ln, rn)
	}
	cfg.IsTransportMode = s.TransportMode
	cfg.InitialContact = s.InitialContact
	cfg.Commit = s.Commit
	cfg.InbandCertXchg = s.InbandCert
	cfg.SendCertProactively = s.SendCert
	cfg.ResendInterval = s.ResendInterval
	cfg.ResendCount = s.ResendCount
	cfg.Phase1Timeout = s.Phase1Timeout
	cfg.Phase2Timeout = s.Phase2Timeout
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// identities builds certificate identities when a certificate is configured,
// pre-shared key tables otherwise
func (s *settings) identities() (local, remote ike.Identity, err error) {
	if s.Cert != "" {
		cert, err := ike.LoadPEMCert(s.Cert)
		if err != nil {
			return nil, nil, err
		}
		key, err := ike.LoadKey(s.Key)
		if err != nil {
			return nil, nil, err
		}
		roots, err := ike.LoadRoot(s.Ca)
		if err != nil {
			return nil, nil, err
		}
		return &ike.CertIdentity{Certificate: cert, PrivateKey: key},
			&ike.CertIdentity{Roots: roots, Name: s.PeerName}, nil
	}
	idType, ok := idTypes[strings.ToLower(s.IdType)]
	if !ok {
		return nil, nil, errors.Errorf("unknown id type %q", s.IdType)
	}
	if s.LocalId == "" || len(s.Psk) == 0 {
		return nil, nil, errors.New("local_id and psk entries are required without a certificate")
	}
	ids := &ike.PskIdentities{
		Primary: s.LocalId,
		Type:    idType,
		Ids:     make(map[string][]byte),
	}
	for _, e := range s.Psk {
		ids.Ids[e.Id] = []byte(e.Key)
	}
	return ids, ids, nil
}

func (s *settings) peerAddrs() ([]net.Addr, error) {
	var addrs []net.Addr
	for _, p := range s.Peers {
		addr, err := net.ResolveUDPAddr("udp", defaultPort(p))
		if err != nil {
			return nil, errors.Wrapf(err, "peer %s", p)
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}

// defaultPort appends the isakmp port to a bare host
func defaultPort(peer string) string {
	if _, _, err := net.SplitHostPort(peer); err == nil {
		return peer
	}
	return net.JoinHostPort(peer, "500")
}
