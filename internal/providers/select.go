// Package providers chooses and builds the STT, LLM and TTS handles of a
// call. Select is pure; Build turns a Selection into live vendor clients.
package providers

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/rapidxai/outbound-caller/internal/callconfig"
	"github.com/rapidxai/outbound-caller/libs/config"
)

type STTKind string

const STTDeepgram STTKind = "deepgram"

type LLMKind string

const (
	LLMOpenAI LLMKind = "openai"
	LLMGroq   LLMKind = "groq"
)

type TTSKind string

const (
	TTSOpenAI   TTSKind = "openai"
	TTSCartesia TTSKind = "cartesia"
	TTSSarvam   TTSKind = "sarvam"
)

type Capability string

const (
	CapabilityLLM Capability = "llm"
	CapabilityTTS Capability = "tts"
)

type STTChoice struct {
	Kind     STTKind
	Model    string
	Language string
}

type LLMChoice struct {
	Kind    LLMKind
	Model   string
	BaseURL string
	// Temperature is nil when the vendor default applies.
	Temperature *float64
}

type TTSChoice struct {
	Kind  TTSKind
	Model string
	// Voice is the OpenAI voice, the Cartesia voice id or the Sarvam speaker.
	Voice    string
	Language string
}

// Selection is the resolved provider plan for one call.
type Selection struct {
	STT STTChoice
	LLM LLMChoice
	TTS TTSChoice
	// Fallbacks lists the unknown provider names that were replaced by the
	// default under the fallback policy.
	Fallbacks []*UnsupportedProviderError
}

// UnsupportedProviderError reports a provider name no branch knows about.
type UnsupportedProviderError struct {
	Capability Capability
	Name       string
}

func (e *UnsupportedProviderError) Error() string {
	return fmt.Sprintf("unsupported %s provider %q", e.Capability, e.Name)
}

// regionalVoices are Sarvam speakers. Asking for one of them selects Sarvam
// whatever the nominal provider is.
var regionalVoices = map[string]bool{
	"anushka": true,
	"aravind": true,
	"amartya": true,
	"dhruv":   true,
}

// IsRegionalVoice reports whether voice names a Sarvam speaker.
func IsRegionalVoice(voice string) bool {
	return regionalVoices[strings.ToLower(strings.TrimSpace(voice))]
}

// knownNames are provider names valid for some capability. Such a name used
// for the other capability falls back without being reported.
var knownNames = map[string]bool{
	string(STTDeepgram): true,
	string(LLMOpenAI):   true,
	string(LLMGroq):     true,
	string(TTSCartesia): true,
	string(TTSSarvam):   true,
}

// Select resolves the providers of a call. Every value follows the same
// precedence: per-call configuration, then the environment tier folded into
// defaults, then the hard-coded default. policy is config.FallbackPolicyDefault
// or config.FallbackPolicyReject and decides what an unknown provider name does.
func Select(cfg callconfig.CallConfiguration, defaults config.ProviderDefaults, policy string) (Selection, error) {
	var sel Selection

	sel.STT = STTChoice{
		Kind:     STTDeepgram,
		Model:    first(defaults.STTModel, config.DefaultSTTModel),
		Language: first(defaults.STTLanguage, config.DefaultSTTLanguage),
	}

	llmName := strings.ToLower(first(cfg.ModelProvider(), defaults.LLMProvider, config.DefaultLLMProvider))
	llm, unsupported := selectLLM(llmName, defaults)
	if err := sel.record(unsupported, CapabilityLLM, llmName, policy); err != nil {
		return Selection{}, err
	}
	sel.LLM = llm

	ttsName := strings.ToLower(first(cfg.ModelProvider(), defaults.TTSProvider, config.DefaultTTSProvider))
	if IsRegionalVoice(cfg.VoiceID()) {
		ttsName = string(TTSSarvam)
	}
	tts, unsupported := selectTTS(ttsName, cfg, defaults)
	if err := sel.record(unsupported, CapabilityTTS, ttsName, policy); err != nil {
		return Selection{}, err
	}
	sel.TTS = tts

	return sel, nil
}

func (s *Selection) record(unsupported bool, capability Capability, name, policy string) error {
	if !unsupported || knownNames[name] {
		return nil
	}
	err := &UnsupportedProviderError{Capability: capability, Name: name}
	if policy == config.FallbackPolicyReject {
		return err
	}
	s.Fallbacks = append(s.Fallbacks, err)
	return nil
}

// selectLLM returns the choice for name and whether name was not an LLM.
func selectLLM(name string, d config.ProviderDefaults) (LLMChoice, bool) {
	switch LLMKind(name) {
	case LLMGroq:
		temp := d.GroqTemperature
		return LLMChoice{
			Kind:        LLMGroq,
			Model:       first(d.GroqModel, config.DefaultGroqModel),
			BaseURL:     first(d.GroqBaseURL, config.DefaultGroqBaseURL),
			Temperature: &temp,
		}, false
	case LLMOpenAI:
		return LLMChoice{Kind: LLMOpenAI, Model: first(d.OpenAILLMModel, config.DefaultOpenAILLMModel)}, false
	default:
		return LLMChoice{Kind: LLMOpenAI, Model: first(d.OpenAILLMModel, config.DefaultOpenAILLMModel)}, true
	}
}

func selectTTS(name string, cfg callconfig.CallConfiguration, d config.ProviderDefaults) (TTSChoice, bool) {
	voice := cfg.VoiceID()
	switch TTSKind(name) {
	case TTSCartesia:
		// Cartesia voices are UUIDs; anything else belongs to another vendor
		if _, err := uuid.Parse(voice); err != nil {
			voice = ""
		}
		return TTSChoice{
			Kind:  TTSCartesia,
			Model: first(cfg.TTSModel(), d.CartesiaModel, config.DefaultCartesiaModel),
			Voice: first(voice, d.CartesiaVoice, config.DefaultCartesiaVoice),
		}, false
	case TTSSarvam:
		return TTSChoice{
			Kind:     TTSSarvam,
			Model:    first(cfg.TTSModel(), d.SarvamModel, config.DefaultSarvamModel),
			Voice:    strings.ToLower(first(voice, d.SarvamVoice, config.DefaultSarvamVoice)),
			Language: first(cfg.TTSLanguage(), d.SarvamLanguage, config.DefaultSarvamLanguage),
		}, false
	case TTSOpenAI:
		return openAITTS(cfg, d), false
	default:
		return openAITTS(cfg, d), true
	}
}

func openAITTS(cfg callconfig.CallConfiguration, d config.ProviderDefaults) TTSChoice {
	return TTSChoice{
		Kind:  TTSOpenAI,
		Model: first(cfg.TTSModel(), d.OpenAITTSModel, config.DefaultOpenAITTSModel),
		Voice: first(cfg.VoiceID(), d.OpenAITTSVoice, config.DefaultOpenAITTSVoice),
	}
}

func first(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
