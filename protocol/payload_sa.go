package protocol

import "github.com/msgboxio/packets"

// SA payload

func (s *SaPayload) Type() PayloadType {
	return PayloadTypeSA
}

func (s *SaPayload) Validate() error {
	if len(s.Proposals) == 0 {
		return ErrF(ERR_PAYLOAD_MALFORMED, "sa payload has no proposals")
	}
	if len(s.Proposals) > MAX_PROPOSALS {
		return ErrF(ERR_PAYLOAD_MALFORMED, "too many proposals: %d", len(s.Proposals))
	}
	for _, prop := range s.Proposals {
		if len(prop.Transforms) == 0 || len(prop.Transforms) > MAX_TRANSFORMS {
			return ErrF(ERR_PAYLOAD_MALFORMED, "proposal %d has %d transforms", prop.Number, len(prop.Transforms))
		}
	}
	return nil
}

func (s *SaPayload) Encode() (b []byte) {
	b = make([]byte, MIN_LEN_SA)
	packets.WriteB32(b, 0, s.Doi)
	packets.WriteB32(b, 4, s.Situation)
	for idx, prop := range s.Proposals {
		isLast := idx == len(s.Proposals)-1
		b = append(b, prop.encode(isLast)...)
	}
	return
}

func (s *SaPayload) Decode(b []byte) (err error) {
	// Header has already been decoded
	if len(b) < MIN_LEN_SA {
		return ErrF(ERR_INVALID_SYNTAX, "sa payload too small: %d", len(b))
	}
	s.Doi, _ = packets.ReadB32(b, 0)
	s.Situation, _ = packets.ReadB32(b, 4)
	if s.Doi != DOI_IPSEC {
		return ErrF(ERR_UNSUPPORTED, "doi %d", s.Doi)
	}
	if s.Situation != SIT_IDENTITY_ONLY {
		return ErrF(ERR_UNSUPPORTED, "situation %d", s.Situation)
	}
	b = b[MIN_LEN_SA:]
	for len(b) > 0 {
		if len(s.Proposals) == MAX_PROPOSALS {
			return ErrF(ERR_PAYLOAD_MALFORMED, "more than %d proposals", MAX_PROPOSALS)
		}
		prop, used, errP := decodeProposal(b)
		if errP != nil {
			return errP
		}
		s.Proposals = append(s.Proposals, prop)
		b = b[used:]
		if prop.IsLast {
			if len(b) > 0 {
				return ErrF(ERR_INVALID_SYNTAX, "extra bytes after last proposal: %d", len(b))
			}
			break
		}
	}
	if len(s.Proposals) == 0 {
		return ErrF(ERR_PAYLOAD_MALFORMED, "sa payload has no proposals")
	}
	return
}
