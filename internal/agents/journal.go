package agents

import (
	"context"
	"time"

	"github.com/livekit/protocol/logger"

	"github.com/rapidxai/outbound-caller/internal/dialout"
	"github.com/rapidxai/outbound-caller/internal/events"
	"github.com/rapidxai/outbound-caller/internal/transfer"
	"github.com/rapidxai/outbound-caller/libs/store"
)

// Journal records what happens to a call in the store and on the event bus.
// Both sinks are optional and their failures are only logged.
type Journal struct {
	store  *store.Store
	events *events.Emitter
	log    logger.Logger
}

func NewJournal(st *store.Store, em *events.Emitter, log logger.Logger) *Journal {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Journal{store: st, events: em, log: log}
}

// CallDispatched records a new call for room.
func (j *Journal) CallDispatched(ctx context.Context, room, phone string) {
	if j == nil {
		return
	}
	if j.store != nil {
		if err := j.store.CreateCall(room, phone, events.EventDispatched); err != nil {
			j.log.Warnw("journal call", err, "room", room)
		}
	}
	j.emit(ctx, events.Payload{Event: events.EventDispatched, Room: room, Phone: phone})
}

// CallEnded marks the call of room as finished.
func (j *Journal) CallEnded(ctx context.Context, room, reason string) {
	if j == nil {
		return
	}
	j.setState(room, events.EventEnded)
	j.emit(ctx, events.Payload{Event: events.EventEnded, Room: room, Error: reason})
}

// OnTransition implements dialout.Observer.
func (j *Journal) OnTransition(room string, _, to dialout.State) {
	if j == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	j.setState(room, to.String())
	j.emit(ctx, events.Payload{Event: to.String(), Room: room})
}

// TransferAttempted implements transfer.Recorder.
func (j *Journal) TransferAttempted(ctx context.Context, req transfer.Request, err error) {
	if j == nil {
		return
	}
	result, event, errText := "ok", events.EventTransferred, ""
	if err != nil {
		result, event, errText = err.Error(), events.EventTransferErr, err.Error()
	}
	if j.store != nil {
		if _, serr := j.store.RecordTransfer(req.Room, req.Identity, req.Destination, result); serr != nil {
			j.log.Warnw("journal transfer", serr, "room", req.Room)
		}
	}
	j.emit(ctx, events.Payload{
		Event:       event,
		Room:        req.Room,
		Identity:    req.Identity,
		Destination: req.Destination,
		Error:       errText,
	})
}

func (j *Journal) setState(room, state string) {
	if j.store == nil {
		return
	}
	if err := j.store.UpdateCallState(room, state); err != nil {
		j.log.Debugw("journal state", "room", room, "state", state, "error", err)
	}
}

func (j *Journal) emit(ctx context.Context, p events.Payload) {
	if j.events == nil {
		return
	}
	if err := j.events.Emit(ctx, p); err != nil {
		j.log.Warnw("publish call event", err, "room", p.Room, "event", p.Event)
	}
}
