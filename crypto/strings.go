package crypto

import (
	"fmt"
)

func (cs *CipherSuite) String() string {
	return fmt.Sprintf("%s/%d %s %s %s", cs.Encr, cs.KeyLen*8, cs.Hash, cs.Group, cs.Auth)
}
