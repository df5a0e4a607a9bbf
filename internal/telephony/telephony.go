// Package telephony holds the identity rules shared by dial-out, presence
// detection and transfer.
package telephony

import "strings"

const (
	// IdentityPrefix marks the participant that carries the SIP leg.
	IdentityPrefix = "sip_"
	// AgentPrefix marks agent participants, which are never telephony legs.
	AgentPrefix = "agent-"
)

// Participant is a remote participant of the room.
type Participant struct {
	Identity string
}

// ParticipantIdentity derives the telephony-leg identity for a dialed number.
func ParticipantIdentity(number string) string {
	return IdentityPrefix + number
}

func IsAgent(identity string) bool {
	return strings.HasPrefix(identity, AgentPrefix)
}

// IsTelephonyLeg reports whether identity carries the telephony marker.
func IsTelephonyLeg(identity string) bool {
	return !IsAgent(identity) && strings.Contains(identity, IdentityPrefix)
}
