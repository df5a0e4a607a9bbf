package cartesia

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rapidxai/outbound-caller/libs/interfaces"
)

const (
	DefaultEndpoint = "https://api.cartesia.ai/tts/bytes"
	APIVersion      = "2024-06-10"
)

// cartesiaTTS asks Cartesia for raw 8kHz mu-law, which the telephony leg
// plays without conversion.
type cartesiaTTS struct {
	apiKey   string
	endpoint string
	model    string
	voiceID  string
	client   *http.Client
}

// New returns a Cartesia TTS implementation with the public endpoint.
func New(apiKey, model, voiceID string) interfaces.TTS {
	return NewWithEndpoint(DefaultEndpoint, apiKey, model, voiceID)
}

// NewWithEndpoint allows overriding the Cartesia bytes endpoint.
func NewWithEndpoint(endpoint, apiKey, model, voiceID string) interfaces.TTS {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &cartesiaTTS{
		apiKey:   apiKey,
		endpoint: endpoint,
		model:    model,
		voiceID:  voiceID,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *cartesiaTTS) Name() string { return "cartesia" }

type ttsRequest struct {
	ModelID      string       `json:"model_id"`
	Transcript   string       `json:"transcript"`
	Voice        voiceSpec    `json:"voice"`
	OutputFormat outputFormat `json:"output_format"`
}

type voiceSpec struct {
	Mode string `json:"mode"`
	ID   string `json:"id"`
}

type outputFormat struct {
	Container  string `json:"container"`
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sample_rate"`
}

func (c *cartesiaTTS) Speak(ctx context.Context, text string) ([]byte, error) {
	body, err := json.Marshal(ttsRequest{
		ModelID:    c.model,
		Transcript: text,
		Voice:      voiceSpec{Mode: "id", ID: c.voiceID},
		OutputFormat: outputFormat{
			Container:  "raw",
			Encoding:   "pcm_mulaw",
			SampleRate: 8000,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal cartesia request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new cartesia request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Cartesia-Version", APIVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post to cartesia tts: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read tts response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("cartesia tts bad status %d: %s", resp.StatusCode, string(data))
	}
	return data, nil
}
