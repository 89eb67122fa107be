package platform

import (
	"crypto/rand"
	"encoding/binary"
	"net"
	"testing"

	"github.com/msgboxio/ikev1/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeSpi() uint32 {
	var b [4]byte
	rand.Read(b[:])
	return binary.BigEndian.Uint32(b[:]) | 0x100
}

func key(len int) []byte {
	value := make([]byte, len)
	rand.Read(value)
	return value
}

func testSa(t protocol.Phase2Transform, isInitiator bool) *SaParams {
	local, localNet, _ := net.ParseCIDR("192.168.20.1/24")
	remote, remoteNet, _ := net.ParseCIDR("192.168.40.1/24")
	return &SaParams{
		PolicyParams: &protocol.PolicyParams{
			Ini:    local.To4(),
			Res:    remote.To4(),
			IniNet: localNet,
			ResNet: remoteNet,
		},
		EspTransform: t,
		EspEi:        key(16),
		EspAi:        key(20),
		EspEr:        key(16),
		EspAr:        key(20),
		SpiI:         makeSpi(),
		SpiR:         makeSpi(),
		IsInitiator:  isInitiator,
	}
}

func TestEspAlgorithms(t *testing.T) {
	crypt, auth, trunc, err := espAlgorithms(protocol.ESP_AES128_SHA1)
	require.NoError(t, err)
	assert.Equal(t, "cbc(aes)", crypt)
	assert.Equal(t, "hmac(sha1)", auth)
	assert.Equal(t, 96, trunc)

	_, auth, trunc, err = espAlgorithms(protocol.ESP_AES256_SHA256)
	require.NoError(t, err)
	assert.Equal(t, "hmac(sha256)", auth)
	assert.Equal(t, 128, trunc)

	crypt, _, _, err = espAlgorithms(protocol.ESP_3DES_MD5)
	require.NoError(t, err)
	assert.Equal(t, "cbc(des3_ede)", crypt)

	_, _, _, err = espAlgorithms(protocol.Phase2Transform{EspId: 99})
	assert.Error(t, err)
}

func TestSaParamsString(t *testing.T) {
	sa := testSa(protocol.ESP_AES128_SHA1, true)
	sa.SpiI, sa.SpiR = 0x1234, 0xabcd
	assert.Contains(t, sa.String(), "00001234/0000abcd")
	assert.Contains(t, sa.String(), "192.168.20.0/24")
}
