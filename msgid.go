package ike

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// newMsgId returns a random non zero message id
func (e *Engine) newMsgId() (uint32, error) {
	var b [4]byte
	for {
		if _, err := io.ReadFull(e.rand, b[:]); err != nil {
			return 0, errors.Wrap(err, "message id")
		}
		if id := binary.BigEndian.Uint32(b[:]); id != 0 {
			return id, nil
		}
	}
}

// newMsgIdFor returns a message id not used by any quick mode on sa
func (e *Engine) newMsgIdFor(sa *SA) (uint32, error) {
	for {
		id, err := e.newMsgId()
		if err != nil {
			return 0, err
		}
		if _, busy := sa.getPhase2(id); !busy {
			return id, nil
		}
	}
}
