package agents

import (
	"context"
	"errors"
	"fmt"

	"github.com/livekit/protocol/logger"

	"github.com/rapidxai/outbound-caller/internal/dialout"
)

// ConnectedRoom is a joined room that can be left.
type ConnectedRoom interface {
	Room
	// Done is closed when the room goes away or the caller hangs up.
	Done() <-chan struct{}
	Disconnect()
}

// RoomConnector joins a room as the agent participant.
type RoomConnector interface {
	Connect(ctx context.Context, roomName, identity string) (ConnectedRoom, error)
}

// Worker runs a whole call job: join the room, run the entrypoint, stay
// until the job is shut down or the room closes.
type Worker struct {
	Entry    *Entrypoint
	Rooms    RoomConnector
	Identity string
	Log      logger.Logger
}

func (w *Worker) Run(ctx context.Context, job Job, shutdown func(reason string)) error {
	log := w.Log
	if log == nil {
		log = logger.GetLogger()
	}

	room, err := w.Rooms.Connect(ctx, job.Room, w.Identity)
	if err != nil {
		return fmt.Errorf("connect to room %s: %w", job.Room, err)
	}
	defer room.Disconnect()
	log.Infow("connected to room", "room", job.Room, "identity", w.Identity)

	session, err := w.Entry.Run(ctx, job, room, shutdown)
	if err != nil {
		var dialErr *dialout.DialError
		if session == nil || errors.As(err, &dialErr) {
			return err
		}
		log.Warnw("call continues after greeting failure", err, "room", job.Room)
	}

	select {
	case <-ctx.Done():
	case <-room.Done():
		shutdown("room closed")
	}
	return nil
}
