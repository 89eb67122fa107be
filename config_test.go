package ike

import (
	"net"
	"testing"

	"github.com/msgboxio/ikev1/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	require.NoError(t, pskConfig(protocol.EXCHANGE_MAIN).Validate())
	require.NoError(t, pskConfig(protocol.EXCHANGE_AGGRESSIVE).Validate())

	bad := map[string]func(*Config){
		"mode":      func(c *Config) { c.Mode = protocol.EXCHANGE_QUICK },
		"no ike":    func(c *Config) { c.ProposalIke = nil },
		"no esp":    func(c *Config) { c.ProposalEsp = nil },
		"no ids":    func(c *Config) { c.RemoteID = nil },
		"nonce":     func(c *Config) { c.NonceLen = 4 },
		"resend":    func(c *Config) { c.ResendInterval = 0 },
		"packet":    func(c *Config) { c.MaxPacketLen = 10 },
		"auth":      func(c *Config) { c.LocalID = &CertIdentity{} },
		"pfs mixed": func(c *Config) {
			pfs := protocol.ESP_AES128_SHA1
			pfs.Group = protocol.MODP_1024
			c.ProposalEsp = append(c.ProposalEsp, pfs)
		},
		"aggressive groups": func(c *Config) {
			c.Mode = protocol.EXCHANGE_AGGRESSIVE
			c.ProposalIke = append(c.ProposalIke, protocol.IKE_AES256_SHA256_MODP2048)
		},
	}
	for name, mod := range bad {
		cfg := pskConfig(protocol.EXCHANGE_MAIN)
		mod(cfg)
		assert.Error(t, cfg.Validate(), name)
	}

	// main mode may offer several groups
	cfg := pskConfig(protocol.EXCHANGE_MAIN)
	cfg.ProposalIke = append(cfg.ProposalIke, protocol.IKE_AES256_SHA256_MODP2048)
	assert.NoError(t, cfg.Validate())
}

func TestConfigPolicy(t *testing.T) {
	cfg := DefaultConfig()
	local := &net.UDPAddr{IP: net.ParseIP("10.0.0.1"), Port: 500}
	remote := &net.UDPAddr{IP: net.ParseIP("10.0.0.2"), Port: 500}

	pol := cfg.Policy(local, remote)
	assert.Equal(t, "10.0.0.1/32", pol.IniNet.String())
	assert.Equal(t, "10.0.0.2/32", pol.ResNet.String())

	_, ln, _ := net.ParseCIDR("192.168.1.0/24")
	_, rn, _ := net.ParseCIDR("192.168.2.0/24")
	cfg.AddSelector(ln, rn)
	pol = cfg.Policy(local, remote)
	assert.Equal(t, ln, pol.IniNet)
	assert.Equal(t, rn, pol.ResNet)

	// transport mode always protects the hosts
	cfg.IsTransportMode = true
	pol = cfg.Policy(local, remote)
	assert.Equal(t, "10.0.0.1/32", pol.IniNet.String())
}

func TestEngineSetConfig(t *testing.T) {
	p := newTestPeer(t, pskConfig(protocol.EXCHANGE_MAIN), newPipeConn(addrI))
	bad := pskConfig(protocol.EXCHANGE_MAIN)
	bad.ProposalIke = nil
	assert.Error(t, p.e.SetConfig(bad))

	require.NoError(t, p.e.SetConfig(pskConfig(protocol.EXCHANGE_AGGRESSIVE)))
	p1, _ := startInitiator(t, p)
	assert.Equal(t, protocol.EXCHANGE_AGGRESSIVE, p1.mode)
}
