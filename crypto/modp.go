package crypto

import (
	"crypto/rand"
	"io"
	"math/big"

	"github.com/msgboxio/ikev1/protocol"
	"github.com/pkg/errors"
)

const (
	modp768 = `
	FFFFFFFF FFFFFFFF C90FDAA2 2168C234 C4C6628B 80DC1CD1
	29024E08 8A67CC74 020BBEA6 3B139B22 514A0879 8E3404DD
	EF9519B3 CD3A431B 302B0A6D F25F1437 4FE1356D 6D51C245
	E485B576 625E7EC6 F44C42E9 A63A3620 FFFFFFFF FFFFFFFF`

	modp1024 = `
	FFFFFFFF FFFFFFFF C90FDAA2 2168C234 C4C6628B 80DC1CD1
	29024E08 8A67CC74 020BBEA6 3B139B22 514A0879 8E3404DD
	EF9519B3 CD3A431B 302B0A6D F25F1437 4FE1356D 6D51C245
	E485B576 625E7EC6 F44C42E9 A637ED6B 0BFF5CB6 F406B7ED
	EE386BFB 5A899FA5 AE9F2411 7C4B1FE6 49286651 ECE65381
	FFFFFFFF FFFFFFFF`

	modp1536 = `
	FFFFFFFF FFFFFFFF C90FDAA2 2168C234 C4C6628B 80DC1CD1
	29024E08 8A67CC74 020BBEA6 3B139B22 514A0879 8E3404DD
	EF9519B3 CD3A431B 302B0A6D F25F1437 4FE1356D 6D51C245
	E485B576 625E7EC6 F44C42E9 A637ED6B 0BFF5CB6 F406B7ED
	EE386BFB 5A899FA5 AE9F2411 7C4B1FE6 49286651 ECE45B3D
	C2007CB8 A163BF05 98DA4836 1C55D39A 69163FA8 FD24CF5F
	83655D23 DCA3AD96 1C62F356 208552BB 9ED52907 7096966D
	670C354E 4ABC9804 F1746C08 CA237327 FFFFFFFF FFFFFFFF`

	modp2048 = `
	FFFFFFFF FFFFFFFF C90FDAA2 2168C234 C4C6628B 80DC1CD1
	29024E08 8A67CC74 020BBEA6 3B139B22 514A0879 8E3404DD
	EF9519B3 CD3A431B 302B0A6D F25F1437 4FE1356D 6D51C245
	E485B576 625E7EC6 F44C42E9 A637ED6B 0BFF5CB6 F406B7ED
	EE386BFB 5A899FA5 AE9F2411 7C4B1FE6 49286651 ECE45B3D
	C2007CB8 A163BF05 98DA4836 1C55D39A 69163FA8 FD24CF5F
	83655D23 DCA3AD96 1C62F356 208552BB 9ED52907 7096966D
	670C354E 4ABC9804 F1746C08 CA18217C 32905E46 2E36CE3B
	E39E772C 180E8603 9B2783A2 EC07A28F B5C55DF0 6F4C52C9
	DE2BCBF6 95581718 3995497C EA956AE5 15D22618 98FA0510
	15728E5A 8AACAA68 FFFFFFFF FFFFFFFF`
)

func addModpGroups(kexAlgoMap map[protocol.GroupDescription]dhGroup) {
	for grp, prime := range map[protocol.GroupDescription]string{
		protocol.MODP_768:  modp768,
		protocol.MODP_1024: modp1024,
		protocol.MODP_1536: modp1536,
		protocol.MODP_2048: modp2048,
	} {
		p, _ := new(big.Int).SetString(trim(prime), 16)
		kexAlgoMap[grp] = &modpGroup{
			p:                p,
			g:                big.NewInt(2),
			GroupDescription: grp,
		}
	}
}

// implements dhGroup interface
type modpGroup struct {
	p, g *big.Int
	protocol.GroupDescription
}

func (group *modpGroup) Group() protocol.GroupDescription {
	return group.GroupDescription
}

func (group *modpGroup) PublicLen() int {
	return (group.p.BitLen() + 7) / 8
}

func (group *modpGroup) SecretLen() int {
	return group.PublicLen()
}

func (group *modpGroup) DiffieHellman(theirPublic, myPrivate *big.Int) (*big.Int, error) {
	one := big.NewInt(1)
	pMinus1 := new(big.Int).Sub(group.p, one)
	if theirPublic.Cmp(one) <= 0 || theirPublic.Cmp(pMinus1) >= 0 {
		return nil, errors.Wrap(errKeyExchange, "DH parameter out of bounds")
	}
	return new(big.Int).Exp(theirPublic, myPrivate, group.p), nil
}

func (group *modpGroup) Generate(randSource io.Reader) (private, public *big.Int, err error) {
	if randSource == nil {
		randSource = rand.Reader
	}
	for {
		if private, err = rand.Int(randSource, group.p); err != nil {
			return
		}
		if private.Sign() > 0 {
			break
		}
	}
	public = new(big.Int).Exp(group.g, private, group.p)
	return
}
