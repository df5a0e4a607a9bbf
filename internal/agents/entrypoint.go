package agents

import (
	"context"
	"fmt"

	"github.com/livekit/protocol/logger"

	"github.com/rapidxai/outbound-caller/internal/callconfig"
	"github.com/rapidxai/outbound-caller/internal/dialout"
	"github.com/rapidxai/outbound-caller/internal/presence"
	"github.com/rapidxai/outbound-caller/internal/providers"
	"github.com/rapidxai/outbound-caller/internal/transfer"
	"github.com/rapidxai/outbound-caller/libs/config"
	"github.com/rapidxai/outbound-caller/libs/interfaces"
)

// Job is one dispatched call.
type Job struct {
	ID       string
	Room     string
	Metadata string
}

// Room is the agent's view of the room it joined.
type Room interface {
	interfaces.AudioSink
	transfer.ParticipantLister
	Name() string
	Metadata() string
	// OnAudio registers the consumer of caller audio.
	OnAudio(handler func(ctx context.Context, audio []byte))
}

// SIPGateway places and transfers telephony legs.
type SIPGateway interface {
	dialout.Gateway
	transfer.Gateway
}

// Entrypoint wires one call: configuration, providers, session, dial-out.
type Entrypoint struct {
	Config    *config.Config
	SIP       SIPGateway
	Endpoints providers.Endpoints
	Journal   *Journal
	Directory UserDirectory
	Log       logger.Logger
}

// Run starts the session for job in room and dials the callee if needed.
// shutdown ends the job; it is called when the dial fails.
func (e *Entrypoint) Run(ctx context.Context, job Job, room Room, shutdown func(reason string)) (*CallSession, error) {
	log := e.Log
	if log == nil {
		log = logger.GetLogger()
	}
	log = log.WithValues("room", room.Name(), "job", job.ID)

	// room metadata is read once; later updates are not picked up
	cfg := callconfig.Resolve(job.Metadata, room.Metadata(), log)
	if cfg.Empty() {
		log.Infow("no call configuration in metadata, using defaults")
	} else {
		log.Debugw("call configuration resolved", "values", cfg.Values())
	}
	phone := cfg.PhoneNumber()

	sel, err := providers.Select(cfg, e.Config.Providers, e.Config.ProviderFallback)
	if err != nil {
		shutdown(err.Error())
		return nil, fmt.Errorf("select providers: %w", err)
	}
	for _, fb := range sel.Fallbacks {
		log.Warnw("unknown provider, using default", fb, "capability", fb.Capability)
	}
	set, err := providers.Build(sel, e.Config.Credentials, e.Endpoints)
	if err != nil {
		shutdown(err.Error())
		return nil, fmt.Errorf("build providers: %w", err)
	}
	log.Infow("providers selected",
		"stt", set.STT.Name(), "llm", set.LLM.Name(), "tts", set.TTS.Name(),
		"llmModel", sel.LLM.Model, "ttsVoice", sel.TTS.Voice)

	transferOpts := []transfer.Option{transfer.WithLogger(log)}
	dialOpts := []dialout.Option{dialout.WithLogger(log)}
	if e.Journal != nil {
		transferOpts = append(transferOpts, transfer.WithRecorder(e.Journal))
		dialOpts = append(dialOpts, dialout.WithObserver(e.Journal))
	}

	transferTool := transfer.New(transfer.Config{
		Room:               room.Name(),
		PhoneNumber:        phone,
		DefaultDestination: e.Config.SIP.DefaultTransferNumber,
		SIPDomain:          e.Config.SIP.Domain,
	}, e.SIP, room, transferOpts...)

	session := NewSession(room.Name(), set, room, NewTools(transferTool, e.Directory),
		SystemPrompt(e.Config.Persona.SystemPrompt, cfg.UserPrompt()),
		WithSessionLogger(log))
	room.OnAudio(func(ctx context.Context, audio []byte) {
		if err := session.HandleAudio(ctx, audio); err != nil {
			log.Warnw("turn failed", err)
		}
	})

	ctrl := dialout.New(dialout.Config{
		Room:             room.Name(),
		TrunkID:          e.Config.SIP.TrunkID,
		InitialGreeting:  e.Config.Persona.InitialGreeting,
		FallbackGreeting: e.Config.Persona.FallbackGreeting,
	}, e.SIP, session, shutdown, dialOpts...)
	if err := ctrl.SessionStarted(); err != nil {
		return nil, err
	}

	decision := presence.Detect(room.RemoteParticipants(), phone)
	log.Infow("presence decided", "decision", decision.String(), "phone", phone)

	return session, ctrl.Run(ctx, decision, phone)
}
