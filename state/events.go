package state

import "fmt"

// Event identifies a timer driven engine event
type Event uint32

const (
	// resend the buffered message of a negotiation
	MESSAGE_REPLY Event = iota + 1
	// negotiation wall clock bounds
	PHASE1_TIMEOUT
	PHASE2_TIMEOUT
	// established isakmp SA lifetime
	SA_SOFT_TIMEOUT
	SA_TIMEOUT
	// deferred teardown
	REMOVE_SA
	REMOVE_PHASE2
)

func (e Event) String() string {
	switch e {
	case MESSAGE_REPLY:
		return "MESSAGE_REPLY"
	case PHASE1_TIMEOUT:
		return "PHASE1_TIMEOUT"
	case PHASE2_TIMEOUT:
		return "PHASE2_TIMEOUT"
	case SA_SOFT_TIMEOUT:
		return "SA_SOFT_TIMEOUT"
	case SA_TIMEOUT:
		return "SA_TIMEOUT"
	case REMOVE_SA:
		return "REMOVE_SA"
	case REMOVE_PHASE2:
		return "REMOVE_PHASE2"
	default:
		return fmt.Sprintf("Event(%d)", uint32(e))
	}
}
