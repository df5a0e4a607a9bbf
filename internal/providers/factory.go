package providers

import (
	"fmt"

	"github.com/rapidxai/outbound-caller/libs/config"
	"github.com/rapidxai/outbound-caller/libs/interfaces"
	"github.com/rapidxai/outbound-caller/libs/vendors/cartesia"
	"github.com/rapidxai/outbound-caller/libs/vendors/deepgram"
	"github.com/rapidxai/outbound-caller/libs/vendors/openai"
	"github.com/rapidxai/outbound-caller/libs/vendors/sarvam"
)

// Set is the provider triple owned by one call session.
type Set struct {
	STT interfaces.STT
	LLM interfaces.LLM
	TTS interfaces.TTS

	Selection Selection
}

// Endpoints overrides vendor endpoints. Empty fields keep the public APIs.
type Endpoints struct {
	OpenAI   string
	Deepgram string
	Cartesia string
	Sarvam   string
}

// Build constructs the vendor clients named by sel.
func Build(sel Selection, creds config.Credentials, ep Endpoints) (Set, error) {
	stt, err := newSTT(sel.STT, creds, ep)
	if err != nil {
		return Set{}, err
	}
	llm, err := newLLM(sel.LLM, creds, ep)
	if err != nil {
		return Set{}, err
	}
	tts, err := newTTS(sel.TTS, creds, ep)
	if err != nil {
		return Set{}, err
	}
	return Set{STT: stt, LLM: llm, TTS: tts, Selection: sel}, nil
}

func newSTT(c STTChoice, creds config.Credentials, ep Endpoints) (interfaces.STT, error) {
	switch c.Kind {
	case STTDeepgram:
		return deepgram.New(creds.DeepgramKey, c.Model, c.Language, deepgram.WithEndpoint(ep.Deepgram)), nil
	default:
		return nil, fmt.Errorf("unknown stt provider %q", c.Kind)
	}
}

func newLLM(c LLMChoice, creds config.Credentials, ep Endpoints) (interfaces.LLM, error) {
	switch c.Kind {
	case LLMOpenAI:
		opts := []openai.LLMOption{}
		if ep.OpenAI != "" {
			opts = append(opts, openai.WithBaseURL(ep.OpenAI))
		}
		if c.Temperature != nil {
			opts = append(opts, openai.WithTemperature(*c.Temperature))
		}
		return openai.NewLLM(creds.OpenAIKey, c.Model, opts...), nil
	case LLMGroq:
		opts := []openai.LLMOption{openai.WithName(string(LLMGroq)), openai.WithBaseURL(c.BaseURL)}
		if c.Temperature != nil {
			opts = append(opts, openai.WithTemperature(*c.Temperature))
		}
		return openai.NewLLM(creds.GroqKey, c.Model, opts...), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", c.Kind)
	}
}

func newTTS(c TTSChoice, creds config.Credentials, ep Endpoints) (interfaces.TTS, error) {
	switch c.Kind {
	case TTSOpenAI:
		return openai.NewTTS(creds.OpenAIKey, c.Model, c.Voice, ep.OpenAI), nil
	case TTSCartesia:
		return cartesia.NewWithEndpoint(ep.Cartesia, creds.CartesiaKey, c.Model, c.Voice), nil
	case TTSSarvam:
		return sarvam.NewWithEndpoint(ep.Sarvam, creds.SarvamKey, c.Model, c.Voice, c.Language), nil
	default:
		return nil, fmt.Errorf("unknown tts provider %q", c.Kind)
	}
}
