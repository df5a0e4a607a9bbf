package livekitclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/livekit/protocol/auth"
	"github.com/livekit/protocol/livekit"
	"github.com/livekit/protocol/webhook"
	lksdk "github.com/livekit/server-sdk-go/v2"
)

// Rooms creates and tears down call rooms and reads their webhooks.
type Rooms struct {
	client   *lksdk.RoomServiceClient
	provider auth.KeyProvider
}

func NewRooms(url, apiKey, apiSecret string) *Rooms {
	return &Rooms{
		client:   lksdk.NewRoomServiceClient(url, apiKey, apiSecret),
		provider: auth.NewSimpleKeyProvider(apiKey, apiSecret),
	}
}

// Create makes room with metadata marshaled as JSON.
func (r *Rooms) Create(ctx context.Context, room string, metadata map[string]any) error {
	md, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal room metadata: %w", err)
	}
	_, err = r.client.CreateRoom(ctx, &livekit.CreateRoomRequest{
		Name:         room,
		Metadata:     string(md),
		EmptyTimeout: 300,
	})
	if err != nil {
		return fmt.Errorf("create room %s: %w", room, err)
	}
	return nil
}

func (r *Rooms) Delete(ctx context.Context, room string) error {
	if _, err := r.client.DeleteRoom(ctx, &livekit.DeleteRoomRequest{Room: room}); err != nil {
		return fmt.Errorf("delete room %s: %w", room, err)
	}
	return nil
}

// ReceiveWebhook verifies and decodes a LiveKit webhook request.
func (r *Rooms) ReceiveWebhook(req *http.Request) (*livekit.WebhookEvent, error) {
	return webhook.ReceiveWebhookEvent(req, r.provider)
}
