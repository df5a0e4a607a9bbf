package livekitclient

import (
	"context"

	"github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go/v2"

	"github.com/rapidxai/outbound-caller/internal/dialout"
	"github.com/rapidxai/outbound-caller/internal/transfer"
)

// SIPGateway places and transfers telephony legs through the LiveKit SIP API.
type SIPGateway struct {
	client *lksdk.SIPClient
}

func NewSIPGateway(url, apiKey, apiSecret string) *SIPGateway {
	return &SIPGateway{client: lksdk.NewSIPClient(url, apiKey, apiSecret)}
}

// CreateOutboundLeg dials leg and, when asked to, blocks until it is answered.
func (g *SIPGateway) CreateOutboundLeg(ctx context.Context, leg dialout.OutboundLeg) error {
	_, err := g.client.CreateSIPParticipant(ctx, createRequest(leg))
	return err
}

func (g *SIPGateway) TransferParticipant(ctx context.Context, req transfer.Request) error {
	_, err := g.client.TransferSIPParticipant(ctx, transferRequest(req))
	return err
}

func createRequest(leg dialout.OutboundLeg) *livekit.CreateSIPParticipantRequest {
	return &livekit.CreateSIPParticipantRequest{
		RoomName:            leg.Room,
		SipTrunkId:          leg.TrunkID,
		SipCallTo:           leg.Number,
		ParticipantIdentity: leg.Identity,
		WaitUntilAnswered:   leg.WaitUntilAnswered,
	}
}

func transferRequest(req transfer.Request) *livekit.TransferSIPParticipantRequest {
	return &livekit.TransferSIPParticipantRequest{
		RoomName:            req.Room,
		ParticipantIdentity: req.Identity,
		TransferTo:          req.Destination,
		PlayDialtone:        req.PlayDialtone,
	}
}
