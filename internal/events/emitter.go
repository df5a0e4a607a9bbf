package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Event names published under <prefix>/call/<room>/<event>.
const (
	EventDispatched  = "dispatched"
	EventTransferred = "transferred"
	EventTransferErr = "transfer_failed"
	EventEnded       = "ended"
)

// Payload is the JSON body of every call event.
type Payload struct {
	Event       string `json:"event"`
	Room        string `json:"room"`
	Phone       string `json:"phone,omitempty"`
	Identity    string `json:"identity,omitempty"`
	Destination string `json:"destination,omitempty"`
	Error       string `json:"error,omitempty"`
	Timestamp   string `json:"timestamp"`
}

// Emitter turns call happenings into MQTT messages.
type Emitter struct {
	pub    Publisher
	prefix string
	now    func() time.Time
}

func NewEmitter(pub Publisher, prefix string) *Emitter {
	if pub == nil {
		pub = Nop{}
	}
	return &Emitter{pub: pub, prefix: prefix, now: time.Now}
}

// Topic returns the topic an event about room is published to.
func (e *Emitter) Topic(room, event string) string {
	return fmt.Sprintf("%s/call/%s/%s", e.prefix, room, event)
}

// Emit publishes p, filling in the timestamp.
func (e *Emitter) Emit(ctx context.Context, p Payload) error {
	p.Timestamp = e.now().UTC().Format(time.RFC3339)
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}
	return e.pub.Publish(ctx, e.Topic(p.Room, p.Event), data)
}
