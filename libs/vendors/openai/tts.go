package openai

import (
	"context"
	"fmt"
	"io"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/rapidxai/outbound-caller/libs/audio"
	"github.com/rapidxai/outbound-caller/libs/interfaces"
)

// pcmRate is the fixed sample rate of the "pcm" response format.
const pcmRate = 24000

type openaiTTS struct {
	model  string
	voice  string
	client openai.Client
}

// NewTTS returns an OpenAI speech synthesizer. Audio comes back as 8kHz
// mu-law ready for the telephony leg. An empty baseURL means api.openai.com.
func NewTTS(apiKey, model, voice, baseURL string) interfaces.TTS {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(2),
	}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	return &openaiTTS{
		model:  model,
		voice:  voice,
		client: openai.NewClient(reqOpts...),
	}
}

func (o *openaiTTS) Name() string { return "openai" }

func (o *openaiTTS) Speak(ctx context.Context, text string) ([]byte, error) {
	resp, err := o.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(o.model),
		Voice:          openai.AudioSpeechNewParamsVoice(o.voice),
		Input:          text,
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatPCM,
	})
	if err != nil {
		return nil, fmt.Errorf("openai speech: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read speech response: %w", err)
	}
	return audio.ToTelephony(data, pcmRate), nil
}
