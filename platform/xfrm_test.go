//go:build linux

package platform

import (
	"testing"

	"github.com/msgboxio/ikev1/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vishvananda/netlink"
)

func TestMakeSaStates(t *testing.T) {
	sa := testSa(protocol.ESP_AES128_SHA1, true)
	states, err := makeSaStates(sa)
	require.NoError(t, err)
	require.Len(t, states, 2)

	out, in := states[0], states[1]
	assert.True(t, out.Src.Equal(sa.Ini))
	assert.Equal(t, int(sa.SpiR), out.Spi)
	assert.Equal(t, sa.EspEi, out.Crypt.Key)
	assert.Equal(t, sa.EspAi, out.Auth.Key)
	assert.Equal(t, 96, out.Auth.TruncateLen)

	assert.True(t, in.Src.Equal(sa.Res))
	assert.Equal(t, int(sa.SpiI), in.Spi)
	assert.Equal(t, sa.EspEr, in.Crypt.Key)
	assert.Equal(t, out.Reqid, in.Reqid)
	assert.Equal(t, netlink.XFRM_MODE_TUNNEL, out.Mode)
}

func TestMakeSaPolicies(t *testing.T) {
	sa := testSa(protocol.ESP_AES128_SHA1, true)
	policies := makeSaPolicies(sa)
	require.Len(t, policies, 3)
	assert.Equal(t, netlink.XFRM_DIR_OUT, policies[0].Dir)
	assert.Equal(t, netlink.XFRM_DIR_IN, policies[1].Dir)
	assert.Equal(t, netlink.XFRM_DIR_FWD, policies[2].Dir)

	// the responder installs the same selectors in the opposite directions
	sa.IsInitiator = false
	sa.IsTransportMode = true
	policies = makeSaPolicies(sa)
	require.Len(t, policies, 2)
	assert.Equal(t, netlink.XFRM_DIR_IN, policies[0].Dir)
	assert.Equal(t, netlink.XFRM_DIR_OUT, policies[1].Dir)
	assert.Nil(t, policies[0].Tmpls[0].Src)
}
