package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestEmitTopicAndPayload(t *testing.T) {
	mock := NewMockPublisher()
	e := NewEmitter(mock, "outbound-caller")
	e.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	err := e.Emit(context.Background(), Payload{Event: "answered", Room: "call-1-ab", Phone: "+15550100"})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}

	msgs := mock.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].Topic != "outbound-caller/call/call-1-ab/answered" {
		t.Errorf("unexpected topic %q", msgs[0].Topic)
	}
	var p Payload
	if err := json.Unmarshal(msgs[0].Payload, &p); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if p.Phone != "+15550100" || p.Timestamp != "2026-01-02T03:04:05Z" {
		t.Errorf("unexpected payload %+v", p)
	}
}

func TestEmitPropagatesPublishError(t *testing.T) {
	mock := NewMockPublisher()
	brokerDown := errors.New("broker down")
	mock.SetError(brokerDown)

	err := NewEmitter(mock, "p").Emit(context.Background(), Payload{Event: EventEnded, Room: "r"})
	if !errors.Is(err, brokerDown) {
		t.Fatalf("expected %v, got %v", brokerDown, err)
	}
}

func TestNilPublisherIsNop(t *testing.T) {
	if err := NewEmitter(nil, "p").Emit(context.Background(), Payload{Event: EventEnded, Room: "r"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
