package crypto

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"testing"

	"github.com/msgboxio/ikev1/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var suites = []protocol.Phase1Transform{
	protocol.IKE_AES128_SHA1_MODP1024,
	protocol.IKE_AES256_SHA256_MODP2048,
	protocol.IKE_3DES_SHA1_MODP1024,
	protocol.IKE_CAMELLIA128_SHA256_ECP256,
	{Encr: protocol.OAKLEY_BLOWFISH_CBC, Hash: protocol.OAKLEY_MD5, Auth: protocol.AUTH_PRE_SHARED_KEY, Group: protocol.MODP_768},
	{Encr: protocol.OAKLEY_CAST_CBC, Hash: protocol.OAKLEY_SHA2_384, Auth: protocol.AUTH_PRE_SHARED_KEY, Group: protocol.MODP_1536},
	{Encr: protocol.OAKLEY_DES_CBC, Hash: protocol.OAKLEY_SHA2_512, Auth: protocol.AUTH_RSA_SIG, Group: protocol.ECP_384},
	{Encr: protocol.OAKLEY_AES_CBC, KeyLength: 256, Hash: protocol.OAKLEY_MD5, Auth: protocol.AUTH_PRE_SHARED_KEY, Group: protocol.MODP_1024},
}

func TestCipherSuite(t *testing.T) {
	for _, tr := range suites {
		cs, err := NewCipherSuite(tr)
		if err != nil {
			t.Error(err)
			continue
		}
		t.Log(cs)
		key := make([]byte, cs.KeyLen)
		rand.Read(key)
		iv := make([]byte, cs.BlockLen)
		rand.Read(iv)
		data := make([]byte, protocol.ISAKMP_HEADER_LEN+61)
		rand.Read(data)
		orig := append([]byte{}, data...)

		enc := NewIvPair(iv)
		b, err := cs.Encrypt(data, protocol.ISAKMP_HEADER_LEN, key, enc)
		require.NoError(t, err)
		assert.Equal(t, 0, (len(b)-protocol.ISAKMP_HEADER_LEN)%cs.BlockLen)
		assert.Equal(t, orig[:protocol.ISAKMP_HEADER_LEN], b[:protocol.ISAKMP_HEADER_LEN])
		assert.Equal(t, b[len(b)-cs.BlockLen:], enc.Enc)

		dec := NewIvPair(iv)
		require.NoError(t, cs.Decrypt(b, protocol.ISAKMP_HEADER_LEN, key, dec))
		if !bytes.Equal(orig, b[:len(orig)]) {
			t.Errorf("different data:\norig:\n%sdec:\n%s", hex.Dump(orig), hex.Dump(b))
		}
		// both ends chain off the same block
		assert.Equal(t, enc.Enc, dec.Dec)
	}
}

func TestUnsupportedSuite(t *testing.T) {
	_, err := NewCipherSuite(protocol.Phase1Transform{
		Encr: protocol.OAKLEY_IDEA_CBC, Hash: protocol.OAKLEY_SHA,
		Auth: protocol.AUTH_PRE_SHARED_KEY, Group: protocol.MODP_1024,
	})
	assert.Error(t, err)
	_, err = NewCipherSuite(protocol.Phase1Transform{
		Encr: protocol.OAKLEY_AES_CBC, KeyLength: 100, Hash: protocol.OAKLEY_SHA,
		Auth: protocol.AUTH_PRE_SHARED_KEY, Group: protocol.MODP_1024,
	})
	assert.Error(t, err)
	_, err = NewCipherSuite(protocol.Phase1Transform{
		Encr: protocol.OAKLEY_AES_CBC, Hash: protocol.OAKLEY_SHA,
		Auth: protocol.AUTH_RSA_ENC, Group: protocol.MODP_1024,
	})
	assert.Error(t, err)
}

func TestDecryptBadLength(t *testing.T) {
	cs, err := NewCipherSuite(protocol.IKE_AES128_SHA1_MODP1024)
	require.NoError(t, err)
	b := make([]byte, protocol.ISAKMP_HEADER_LEN+17)
	err = cs.Decrypt(b, protocol.ISAKMP_HEADER_LEN, make([]byte, 16), NewIvPair(make([]byte, 16)))
	assert.Error(t, err)
}

func TestIvSync(t *testing.T) {
	p := NewIvPair([]byte{1, 2})
	p.Enc = []byte{3, 4}
	p.SyncFromEnc()
	assert.Equal(t, []byte{3, 4}, p.Dec)
	p.Dec = []byte{5, 6}
	p.SyncFromDec()
	assert.Equal(t, []byte{5, 6}, p.Enc)
	c := p.Clone()
	c.Enc[0] = 9
	assert.Equal(t, byte(5), p.Enc[0])
}
