package ike

import (
	"fmt"

	"github.com/msgboxio/ikev1/crypto"
	"github.com/msgboxio/ikev1/protocol"
	"github.com/msgboxio/ikev1/state"
	"github.com/pkg/errors"
)

// ErrorKind classifies the outcome of a failed exchange step
type ErrorKind int

const (
	KindNone ErrorKind = iota
	// malformed input
	Structural
	// no acceptable proposal or unsupported attributes
	Policy
	// peer could not be authenticated
	Auth
	// message not acceptable in the current exchange state
	Sequencing
	// transport, buffer or timer failures
	Resource
)

func (k ErrorKind) String() string {
	switch k {
	case Structural:
		return "structural"
	case Policy:
		return "policy"
	case Auth:
		return "auth"
	case Sequencing:
		return "sequencing"
	case Resource:
		return "resource"
	}
	return "none"
}

// IkeError is an engine failure; Notify is sent to the peer when non zero
type IkeError struct {
	Kind   ErrorKind
	Notify protocol.NotificationType
	msg    string
}

func (e *IkeError) Error() string {
	if e.Notify != 0 {
		return fmt.Sprintf("%s (%s)", e.msg, e.Notify)
	}
	return e.msg
}

var (
	ErrMissingPayload    = &IkeError{Structural, protocol.PAYLOAD_MALFORMED, "missing payload"}
	ErrUnexpectedPayload = &IkeError{Structural, protocol.INVALID_PAYLOAD_TYPE, "unexpected payload"}
	ErrBadKeyExchange    = &IkeError{Structural, protocol.INVALID_KEY_INFORMATION, "invalid key exchange data"}

	ErrNoProposalChosen = &IkeError{Policy, protocol.NO_PROPOSAL_CHOSEN, "no proposal chosen"}
	ErrProposalTampered = &IkeError{Policy, protocol.BAD_PROPOSAL_SYNTAX, "proposal tampered"}
	ErrAttrNotSupported = &IkeError{Policy, protocol.ATTRIBUTES_NOT_SUPPORTED, "attributes not supported"}
	ErrInvalidIdentity  = &IkeError{Policy, protocol.INVALID_ID_INFORMATION, "invalid id information"}
	ErrInvalidExchange  = &IkeError{Policy, protocol.INVALID_EXCHANGE_TYPE, "invalid exchange type"}
	ErrCertUnsupported  = &IkeError{Policy, protocol.CERT_TYPE_UNSUPPORTED, "certificate type unsupported"}

	ErrPskNotFound    = &IkeError{Auth, protocol.AUTHENTICATION_FAILED, "no pre-shared key for peer"}
	ErrAuthFailed     = &IkeError{Auth, protocol.AUTHENTICATION_FAILED, "authentication failed"}
	ErrInvalidHash    = &IkeError{Auth, protocol.INVALID_HASH_INFORMATION, "invalid hash"}
	ErrInvalidSig     = &IkeError{Auth, protocol.INVALID_SIGNATURE, "invalid signature"}
	ErrCertificateBad = &IkeError{Auth, protocol.INVALID_CERTIFICATE, "invalid certificate"}

	ErrInvalidCookie     = &IkeError{Sequencing, protocol.INVALID_COOKIE, "invalid cookie"}
	ErrInvalidFlags      = &IkeError{Sequencing, protocol.INVALID_FLAGS, "invalid flags"}
	ErrInvalidMessageId  = &IkeError{Sequencing, protocol.INVALID_MESSAGE_ID, "invalid message id"}
	ErrUnexpectedMessage = &IkeError{Sequencing, 0, "unexpected message"}
	ErrSaDeleted         = &IkeError{Sequencing, 0, "sa is being deleted"}

	ErrNoHandle        = &IkeError{Resource, 0, "no negotiation handle"}
	ErrNoSa            = &IkeError{Resource, 0, "no security association"}
	ErrNotBuffered     = &IkeError{Resource, 0, "no message buffered for resend"}
	ErrResendExhausted = &IkeError{Resource, 0, "resend budget exhausted"}
	ErrTransport       = &IkeError{Resource, 0, "transport failure"}
	ErrTimeout         = &IkeError{Resource, 0, "negotiation timed out"}
	ErrDuplicateSa     = &IkeError{Resource, 0, "sa already present"}
	ErrEngineClosed    = &IkeError{Resource, 0, "engine closed"}
)

// KindOf classifies err; codec failures are structural
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	switch cause := errors.Cause(err); cause {
	case protocol.ERR_INVALID_SYNTAX, protocol.ERR_PAYLOAD_MALFORMED:
		return Structural
	case protocol.ERR_UNSUPPORTED, crypto.ErrUnsupported:
		return Policy
	case protocol.ERR_BUFFER_TOO_SMALL:
		return Resource
	case state.ErrComplete:
		return Sequencing
	default:
		if ie, ok := cause.(*IkeError); ok {
			return ie.Kind
		}
	}
	return Resource
}

// NotifyOf returns the notify type to report for err, 0 for none
func NotifyOf(err error) protocol.NotificationType {
	switch cause := errors.Cause(err); cause {
	case protocol.ERR_INVALID_SYNTAX, protocol.ERR_PAYLOAD_MALFORMED:
		return protocol.PAYLOAD_MALFORMED
	case protocol.ERR_UNSUPPORTED, crypto.ErrUnsupported:
		return protocol.ATTRIBUTES_NOT_SUPPORTED
	default:
		if ie, ok := cause.(*IkeError); ok {
			return ie.Notify
		}
	}
	return 0
}
