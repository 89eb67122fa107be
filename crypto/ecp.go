package crypto

import (
	"crypto/elliptic"
	"crypto/rand"
	"io"
	"math/big"

	"github.com/msgboxio/ikev1/protocol"
	"github.com/pkg/errors"
)

func addEcpGroups(kexAlgoMap map[protocol.GroupDescription]dhGroup) {
	kexAlgoMap[protocol.ECP_256] = &ecpGroup{
		curve:            elliptic.P256(),
		GroupDescription: protocol.ECP_256,
	}
	kexAlgoMap[protocol.ECP_384] = &ecpGroup{
		curve:            elliptic.P384(),
		GroupDescription: protocol.ECP_384,
	}
}

// implements dhGroup interface
type ecpGroup struct {
	curve elliptic.Curve
	protocol.GroupDescription
}

func (group *ecpGroup) Group() protocol.GroupDescription {
	return group.GroupDescription
}

func (group *ecpGroup) byteLen() int {
	return (group.curve.Params().BitSize + 7) >> 3
}

func (group *ecpGroup) PublicLen() int {
	return 2 * group.byteLen()
}

func (group *ecpGroup) SecretLen() int {
	return group.byteLen()
}

func (group *ecpGroup) DiffieHellman(theirPublic, myPrivate *big.Int) (*big.Int, error) {
	// The Diffie-Hellman shared secret value consists of the x value of the
	// Diffie-Hellman common value.
	// stdlib marshal expects b[0] = 4
	x, y := elliptic.Unmarshal(group.curve, append([]byte{4}, padded(theirPublic, group.PublicLen())...))
	if x == nil {
		return nil, errors.Wrap(errKeyExchange, "bad curve point")
	}
	if !group.curve.IsOnCurve(x, y) {
		return nil, errors.Wrap(errKeyExchange, "curve mismatch")
	}
	x, _ = group.curve.ScalarMult(x, y, myPrivate.Bytes())
	return x, nil
}

func (group *ecpGroup) Generate(randSource io.Reader) (private, public *big.Int, err error) {
	if randSource == nil {
		randSource = rand.Reader
	}
	// The Diffie-Hellman public value is obtained by concatenating the x
	// and y values.
	privateKey, x, y, err := elliptic.GenerateKey(group.curve, randSource)
	if err != nil {
		return
	}
	private = new(big.Int).SetBytes(privateKey)
	publicKey := elliptic.Marshal(group.curve, x, y)
	// stdlib marshal puts b[0] = 4
	public = new(big.Int).SetBytes(publicKey[1:])
	return
}
