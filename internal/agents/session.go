package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/livekit/protocol/logger"

	"github.com/rapidxai/outbound-caller/internal/providers"
	"github.com/rapidxai/outbound-caller/libs/interfaces"
)

// DefaultMaxToolRounds bounds how many tool-call round trips one turn may take.
const DefaultMaxToolRounds = 4

var ErrToolLoop = errors.New("too many tool rounds in one turn")

// CallSession is the conversation bound to one room. It owns the provider set
// for the lifetime of the call and serializes turns.
type CallSession struct {
	room          string
	providers     providers.Set
	sink          interfaces.AudioSink
	tools         *Tools
	systemPrompt  string
	maxToolRounds int
	log           logger.Logger

	mu      sync.Mutex
	history []interfaces.Message
}

type SessionOption func(*CallSession)

func WithMaxToolRounds(n int) SessionOption {
	return func(s *CallSession) {
		if n > 0 {
			s.maxToolRounds = n
		}
	}
}

func WithSessionLogger(l logger.Logger) SessionOption {
	return func(s *CallSession) {
		if l != nil {
			s.log = l
		}
	}
}

// NewSession builds a session that speaks into sink. tools may be nil.
func NewSession(room string, set providers.Set, sink interfaces.AudioSink, tools *Tools, systemPrompt string, opts ...SessionOption) *CallSession {
	s := &CallSession{
		room:          room,
		providers:     set,
		sink:          sink,
		tools:         tools,
		systemPrompt:  systemPrompt,
		maxToolRounds: DefaultMaxToolRounds,
		log:           logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SystemPrompt joins the persona prompt with the per-call user prompt.
func SystemPrompt(persona, userPrompt string) string {
	persona = strings.TrimSpace(persona)
	userPrompt = strings.TrimSpace(userPrompt)
	if userPrompt == "" {
		return persona
	}
	if persona == "" {
		return userPrompt
	}
	return persona + "\n\n" + userPrompt
}

// GenerateReply has the agent speak following instructions. The instructions
// steer this one turn and are not kept in the history.
func (s *CallSession) GenerateReply(ctx context.Context, instructions string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var extra []interfaces.Message
	if instructions != "" {
		extra = append(extra, interfaces.Message{Role: interfaces.RoleSystem, Content: instructions})
	}
	reply, err := s.turn(ctx, extra)
	if err != nil {
		return err
	}
	return s.speak(ctx, reply)
}

// HandleTranscript answers one user utterance.
func (s *CallSession) HandleTranscript(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log.Infow("user said", "room", s.room, "text", text)
	s.history = append(s.history, interfaces.Message{Role: interfaces.RoleUser, Content: text})
	reply, err := s.turn(ctx, nil)
	if err != nil {
		return err
	}
	return s.speak(ctx, reply)
}

// HandleAudio transcribes caller audio and answers it.
func (s *CallSession) HandleAudio(ctx context.Context, audio []byte) error {
	if len(audio) == 0 {
		return nil
	}
	transcript, conf, err := s.providers.STT.Recognize(ctx, audio)
	if err != nil {
		return fmt.Errorf("stt recognize: %w", err)
	}
	if transcript == "" {
		return nil
	}
	s.log.Debugw("transcribed", "room", s.room, "confidence", conf)
	return s.HandleTranscript(ctx, transcript)
}

// turn runs the LLM, executing tool calls until it answers with text.
// A failed turn leaves the history as it was before the call.
// Must be called with s.mu held.
func (s *CallSession) turn(ctx context.Context, extra []interfaces.Message) (string, error) {
	start := len(s.history)
	var specs []interfaces.ToolSpec
	if s.tools != nil {
		specs = s.tools.Specs()
	}

	for round := 0; round <= s.maxToolRounds; round++ {
		msgs := make([]interfaces.Message, 0, len(s.history)+len(extra)+1)
		if s.systemPrompt != "" {
			msgs = append(msgs, interfaces.Message{Role: interfaces.RoleSystem, Content: s.systemPrompt})
		}
		msgs = append(msgs, s.history...)
		msgs = append(msgs, extra...)

		reply, err := s.providers.LLM.Chat(ctx, msgs, specs)
		if err != nil {
			s.history = s.history[:start]
			return "", fmt.Errorf("llm chat: %w", err)
		}
		s.history = append(s.history, reply)
		if len(reply.ToolCalls) == 0 {
			return reply.Content, nil
		}

		for _, call := range reply.ToolCalls {
			result := s.tools.Call(ctx, call.Name, call.Arguments)
			s.log.Infow("tool called", "room", s.room, "tool", call.Name, "result", result)
			s.history = append(s.history, interfaces.Message{
				Role:       interfaces.RoleTool,
				ToolCallID: call.ID,
				Content:    result,
			})
		}
	}
	s.log.Warnw("tool loop abandoned", ErrToolLoop, "room", s.room, "rounds", s.maxToolRounds+1)
	s.history = s.history[:start]
	return "", ErrToolLoop
}

func (s *CallSession) speak(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	s.log.Infow("agent response", "room", s.room, "text", text)
	audio, err := s.providers.TTS.Speak(ctx, text)
	if err != nil {
		return fmt.Errorf("tts speak: %w", err)
	}
	if s.sink == nil {
		return nil
	}
	if err := s.sink.WriteAudio(ctx, audio); err != nil {
		return fmt.Errorf("publish audio: %w", err)
	}
	return nil
}
