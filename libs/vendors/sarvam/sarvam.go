package sarvam

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rapidxai/outbound-caller/libs/audio"
	"github.com/rapidxai/outbound-caller/libs/interfaces"
)

const DefaultEndpoint = "https://api.sarvam.ai/text-to-speech"

// sarvamTTS is the regional speech vendor used for Indian-language voices.
type sarvamTTS struct {
	apiKey   string
	endpoint string
	model    string
	speaker  string
	language string
	client   *http.Client
}

func New(apiKey, model, speaker, language string) interfaces.TTS {
	return NewWithEndpoint(DefaultEndpoint, apiKey, model, speaker, language)
}

func NewWithEndpoint(endpoint, apiKey, model, speaker, language string) interfaces.TTS {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &sarvamTTS{
		apiKey:   apiKey,
		endpoint: endpoint,
		model:    model,
		speaker:  speaker,
		language: language,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

func (s *sarvamTTS) Name() string { return "sarvam" }

type ttsRequest struct {
	Text               string `json:"text"`
	TargetLanguageCode string `json:"target_language_code"`
	Speaker            string `json:"speaker"`
	Model              string `json:"model"`
	SpeechSampleRate   int    `json:"speech_sample_rate"`
}

type ttsResponse struct {
	Audios []string `json:"audios"`
}

func (s *sarvamTTS) Speak(ctx context.Context, text string) ([]byte, error) {
	body, err := json.Marshal(ttsRequest{
		Text:               text,
		TargetLanguageCode: s.language,
		Speaker:            s.speaker,
		Model:              s.model,
		SpeechSampleRate:   audio.TelephonyRate,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal sarvam request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new sarvam request: %w", err)
	}
	req.Header.Set("api-subscription-key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post to sarvam tts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("sarvam tts bad status %d: %s", resp.StatusCode, string(b))
	}

	var out ttsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode sarvam response: %w", err)
	}
	if len(out.Audios) == 0 {
		return nil, errors.New("sarvam tts returned no audio")
	}

	// each entry is a base64 WAV; long inputs come back split
	var mulaw []byte
	for i, a := range out.Audios {
		raw, err := base64.StdEncoding.DecodeString(a)
		if err != nil {
			return nil, fmt.Errorf("decode sarvam audio %d: %w", i, err)
		}
		pcm, rate, err := audio.ParseWAV(raw)
		if err != nil {
			return nil, fmt.Errorf("parse sarvam audio %d: %w", i, err)
		}
		mulaw = append(mulaw, audio.ToTelephony(pcm, rate)...)
	}
	return mulaw, nil
}
