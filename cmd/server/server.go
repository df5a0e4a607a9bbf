package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/livekit/protocol/livekit"
	"github.com/livekit/protocol/logger"

	"github.com/rapidxai/outbound-caller/internal/agents"
	"github.com/rapidxai/outbound-caller/internal/callconfig"
	"github.com/rapidxai/outbound-caller/internal/livekitclient"
)

type roomCreator interface {
	Create(ctx context.Context, room string, metadata map[string]any) error
	Delete(ctx context.Context, room string) error
}

type jobManager interface {
	Spawn(parent context.Context, job agents.Job) (string, error)
	Stop(room, reason string) error
	Active() []string
}

type webhookReceiver func(r *http.Request) (*livekit.WebhookEvent, error)

type server struct {
	rooms   roomCreator
	jobs    jobManager
	journal *agents.Journal
	webhook webhookReceiver
	log     logger.Logger

	// jobCtx parents every spawned job.
	jobCtx context.Context
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /calls", s.dispatchCall)
	mux.HandleFunc("POST /webhook/livekit", s.livekitWebhook)
	mux.HandleFunc("GET /healthz", s.healthz)
	return mux
}

type dispatchRequest struct {
	PhoneNumber   string `json:"phone_number"`
	UserPrompt    string `json:"user_prompt,omitempty"`
	ModelProvider string `json:"model_provider,omitempty"`
	VoiceID       string `json:"voice_id,omitempty"`
}

type dispatchResponse struct {
	Room  string `json:"room"`
	JobID string `json:"job_id"`
}

// dispatchCall creates a room for the callee and starts the agent job in it.
func (s *server) dispatchCall(w http.ResponseWriter, r *http.Request) {
	var body dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	body.PhoneNumber = strings.TrimSpace(body.PhoneNumber)
	if body.PhoneNumber == "" {
		http.Error(w, "phone_number required", http.StatusBadRequest)
		return
	}

	metadata := map[string]any{callconfig.KeyPhoneNumber: body.PhoneNumber}
	if body.UserPrompt != "" {
		metadata[callconfig.KeyUserPrompt] = body.UserPrompt
	}
	if body.ModelProvider != "" {
		metadata[callconfig.KeyModelProvider] = body.ModelProvider
	}
	if body.VoiceID != "" {
		metadata[callconfig.KeyVoiceID] = body.VoiceID
	}
	md, err := json.Marshal(metadata)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	room := roomName(body.PhoneNumber)
	if err := s.rooms.Create(r.Context(), room, metadata); err != nil {
		s.log.Errorw("create room", err, "room", room)
		http.Error(w, "failed to create room", http.StatusBadGateway)
		return
	}
	s.journal.CallDispatched(r.Context(), room, body.PhoneNumber)

	id, err := s.jobs.Spawn(s.jobCtx, agents.Job{Room: room, Metadata: string(md)})
	if err != nil {
		s.log.Errorw("spawn agent", err, "room", room)
		if derr := s.rooms.Delete(context.WithoutCancel(r.Context()), room); derr != nil {
			s.log.Warnw("delete room", derr, "room", room)
		}
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	s.log.Infow("call dispatched", "room", room, "job", id, "phone", body.PhoneNumber)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(dispatchResponse{Room: room, JobID: id})
}

// livekitWebhook stops the job of a room that finished or whose caller left.
func (s *server) livekitWebhook(w http.ResponseWriter, r *http.Request) {
	ev, err := s.webhook(r)
	if err != nil {
		s.log.Warnw("rejected webhook", err)
		http.Error(w, "invalid webhook", http.StatusUnauthorized)
		return
	}
	if room, reason, ok := livekitclient.CallEnded(ev); ok {
		if err := s.jobs.Stop(room, reason); err != nil {
			s.log.Debugw("no job to stop", "room", room, "event", ev.GetEvent())
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok", "active_calls": len(s.jobs.Active())})
}

// roomName builds call-<digits>-<rand> for a callee number.
func roomName(phone string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
	return "call-" + digits + "-" + uuid.NewString()[:8]
}
