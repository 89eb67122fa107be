package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"

	"github.com/dgryski/go-camellia"
	"github.com/msgboxio/ikev1/protocol"
	"golang.org/x/crypto/blowfish"
	"golang.org/x/crypto/cast5"
)

// cbc modes only; isakmp encryption is always cipher block chained
type cipherFunc func(key, iv []byte, isRead bool) (cipher.BlockMode, error)

// cipherTransform returns block size, key length in bytes and the mode constructor;
// keyBits is the negotiated key length attribute, 0 if absent
func cipherTransform(id protocol.EncrAlgorithm, keyBits uint16) (blockLen, keyLen int, fn cipherFunc, ok bool) {
	switch id {
	case protocol.OAKLEY_DES_CBC:
		return des.BlockSize, 8, cipherDES, keyBits == 0
	case protocol.OAKLEY_3DES_CBC:
		return des.BlockSize, 24, cipher3DES, keyBits == 0
	case protocol.OAKLEY_BLOWFISH_CBC:
		keyLen = 16
		if keyBits != 0 {
			keyLen = int(keyBits) / 8
		}
		return blowfish.BlockSize, keyLen, cipherBlowfish, keyBits%8 == 0 && keyLen >= 5 && keyLen <= 56
	case protocol.OAKLEY_CAST_CBC:
		return cast5.BlockSize, cast5.KeySize, cipherCast, keyBits == 0 || keyBits == 128
	case protocol.OAKLEY_AES_CBC:
		keyLen = 16
		if keyBits != 0 {
			keyLen = int(keyBits) / 8
		}
		return aes.BlockSize, keyLen, cipherAES, keyLen == 16 || keyLen == 24 || keyLen == 32
	case protocol.OAKLEY_CAMELLIA_CBC:
		keyLen = 16
		if keyBits != 0 {
			keyLen = int(keyBits) / 8
		}
		return camellia.BlockSize, keyLen, cipherCamellia, keyLen == 16 || keyLen == 24 || keyLen == 32
	default:
		return 0, 0, nil, false
	}
}

func cbc(block cipher.Block, iv []byte, isRead bool) cipher.BlockMode {
	if isRead {
		return cipher.NewCBCDecrypter(block, iv)
	}
	return cipher.NewCBCEncrypter(block, iv)
}

func cipherDES(key, iv []byte, isRead bool) (cipher.BlockMode, error) {
	block, err := des.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cbc(block, iv, isRead), nil
}

func cipher3DES(key, iv []byte, isRead bool) (cipher.BlockMode, error) {
	block, err := des.NewTripleDESCipher(key)
	if err != nil {
		return nil, err
	}
	return cbc(block, iv, isRead), nil
}

func cipherBlowfish(key, iv []byte, isRead bool) (cipher.BlockMode, error) {
	block, err := blowfish.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cbc(block, iv, isRead), nil
}

func cipherCast(key, iv []byte, isRead bool) (cipher.BlockMode, error) {
	block, err := cast5.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cbc(block, iv, isRead), nil
}

func cipherAES(key, iv []byte, isRead bool) (cipher.BlockMode, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cbc(block, iv, isRead), nil
}

func cipherCamellia(key, iv []byte, isRead bool) (cipher.BlockMode, error) {
	block, err := camellia.New(key)
	if err != nil {
		return nil, err
	}
	return cbc(block, iv, isRead), nil
}
