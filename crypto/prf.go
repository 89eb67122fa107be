package crypto

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"hash"

	"github.com/msgboxio/ikev1/protocol"
)

type prfFunc func(key, data []byte) []byte

func macPrf(h func() hash.Hash) prfFunc {
	return func(key, data []byte) []byte {
		mac := hmac.New(h, key)
		mac.Write(data)
		return mac.Sum(nil)
	}
}

// the oakley prf is the hmac of the negotiated hash
func hashTransform(id protocol.HashAlgorithm) (h func() hash.Hash, size int, ok bool) {
	switch id {
	case protocol.OAKLEY_MD5:
		return md5.New, md5.Size, true
	case protocol.OAKLEY_SHA:
		return sha1.New, sha1.Size, true
	case protocol.OAKLEY_SHA2_256:
		return sha256.New, sha256.Size, true
	case protocol.OAKLEY_SHA2_384:
		return sha512.New384, sha512.Size384, true
	case protocol.OAKLEY_SHA2_512:
		return sha512.New, sha512.Size, true
	default:
		return nil, 0, false
	}
}

// concat avoids aliasing the callers slices
func concat(parts ...[]byte) []byte {
	var n int
	for _, p := range parts {
		n += len(p)
	}
	b := make([]byte, 0, n)
	for _, p := range parts {
		b = append(b, p...)
	}
	return b
}

// Equal compares digests in constant time
func Equal(a, b []byte) bool {
	return hmac.Equal(a, b)
}
