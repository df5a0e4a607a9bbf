// Package presence decides whether the agent has to dial the callee or the
// telephony leg is already in the room.
package presence

import (
	"strings"

	"github.com/rapidxai/outbound-caller/internal/telephony"
)

// Decision is the outcome of Detect for one room.
type Decision int

const (
	// DialOut means the agent has to place the call.
	DialOut Decision = iota
	// AlreadyPresent means a telephony leg is already in the room.
	AlreadyPresent
	// NoNumber means there is nothing to dial.
	NoNumber
)

func (d Decision) String() string {
	switch d {
	case DialOut:
		return "dial_out"
	case AlreadyPresent:
		return "already_present"
	case NoNumber:
		return "no_number"
	default:
		return "unknown"
	}
}

// Detect decides whether the callee must be dialed. Any non-agent participant
// carrying the telephony marker counts as the callee, so a leg that joined
// under a differently formatted number is not dialed twice.
func Detect(participants []telephony.Participant, phone string) Decision {
	if strings.TrimSpace(phone) == "" {
		return NoNumber
	}
	want := telephony.ParticipantIdentity(phone)
	for _, p := range participants {
		if telephony.IsAgent(p.Identity) {
			continue
		}
		if strings.Contains(p.Identity, want) || telephony.IsTelephonyLeg(p.Identity) {
			return AlreadyPresent
		}
	}
	return DialOut
}
