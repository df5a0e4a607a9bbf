package livekitclient

import (
	"github.com/livekit/protocol/livekit"

	"github.com/rapidxai/outbound-caller/internal/telephony"
)

// Webhook event names that end a call.
const (
	EventRoomFinished    = "room_finished"
	EventParticipantLeft = "participant_left"
)

// CallEnded reports whether ev ends the call of a room, and why.
func CallEnded(ev *livekit.WebhookEvent) (room, reason string, ok bool) {
	if ev == nil || ev.GetRoom() == nil {
		return "", "", false
	}
	room = ev.GetRoom().GetName()
	switch ev.GetEvent() {
	case EventRoomFinished:
		return room, "room finished", true
	case EventParticipantLeft:
		if telephony.IsTelephonyLeg(ev.GetParticipant().GetIdentity()) {
			return room, "caller hung up", true
		}
	}
	return room, "", false
}
