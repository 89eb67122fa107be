package crypto

import (
	"io"
	"math/big"
	"strings"

	"github.com/msgboxio/ikev1/protocol"
	"github.com/pkg/errors"
)

var errKeyExchange = errors.New("invalid KeyExchange data")

type dhGroup interface {
	Group() protocol.GroupDescription
	// length of an encoded public value
	PublicLen() int
	SecretLen() int
	DiffieHellman(theirPublic, myPrivate *big.Int) (*big.Int, error)
	Generate(randSource io.Reader) (private, public *big.Int, err error)
}

var kexAlgoMap map[protocol.GroupDescription]dhGroup

func init() {
	kexAlgoMap = make(map[protocol.GroupDescription]dhGroup)
	addModpGroups(kexAlgoMap)
	addEcpGroups(kexAlgoMap)
}

func trim(grp string) string {
	mm := func(r rune) rune {
		if r == ' ' || r == '\n' || r == '\t' {
			return -1
		}
		return r
	}
	return strings.Map(mm, grp)
}

// padded returns i as a big endian value of exactly l bytes
func padded(i *big.Int, l int) []byte {
	b := i.Bytes()
	if len(b) >= l {
		return b
	}
	out := make([]byte, l)
	copy(out[l-len(b):], b)
	return out
}
