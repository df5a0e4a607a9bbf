package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rapidxai/outbound-caller/libs/interfaces"
)

const DefaultEndpoint = "wss://api.deepgram.com/v1/listen"

// chunkSize is 200ms of 8kHz mu-law audio.
const chunkSize = 1600

// deepgramSTT streams audio to Deepgram's live transcription websocket and
// collects the final transcripts.
type deepgramSTT struct {
	apiKey     string
	endpoint   string
	model      string
	language   string
	encoding   string
	sampleRate int
	dialer     *websocket.Dialer
}

type Option func(*deepgramSTT)

// WithEndpoint overrides the websocket endpoint.
func WithEndpoint(endpoint string) Option {
	return func(d *deepgramSTT) {
		if endpoint != "" {
			d.endpoint = endpoint
		}
	}
}

// WithEncoding sets the audio encoding and sample rate sent to Deepgram.
func WithEncoding(encoding string, sampleRate int) Option {
	return func(d *deepgramSTT) {
		d.encoding = encoding
		d.sampleRate = sampleRate
	}
}

// New constructs a Deepgram STT adapter for the given model and language.
func New(apiKey, model, language string, opts ...Option) interfaces.STT {
	d := &deepgramSTT{
		apiKey:     apiKey,
		endpoint:   DefaultEndpoint,
		model:      model,
		language:   language,
		encoding:   "mulaw",
		sampleRate: 8000,
		dialer:     &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *deepgramSTT) Name() string { return "deepgram" }

type resultMsg struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float32 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

func (d *deepgramSTT) listenURL() (string, error) {
	u, err := url.Parse(d.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse deepgram endpoint: %w", err)
	}
	q := u.Query()
	q.Set("model", d.model)
	q.Set("language", d.language)
	q.Set("encoding", d.encoding)
	q.Set("sample_rate", fmt.Sprint(d.sampleRate))
	q.Set("channels", "1")
	q.Set("punctuate", "true")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (d *deepgramSTT) Recognize(ctx context.Context, audio []byte) (string, float32, error) {
	if len(audio) == 0 {
		return "", 0, nil
	}
	target, err := d.listenURL()
	if err != nil {
		return "", 0, err
	}

	hdr := http.Header{}
	hdr.Set("Authorization", "Token "+d.apiKey)
	conn, resp, err := d.dialer.DialContext(ctx, target, hdr)
	if err != nil {
		if resp != nil {
			return "", 0, fmt.Errorf("dial deepgram: status %d: %w", resp.StatusCode, err)
		}
		return "", 0, fmt.Errorf("dial deepgram: %w", err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	sendErr := make(chan error, 1)
	go func() { sendErr <- sendAudio(conn, audio) }()

	var (
		parts []string
		conf  float32
	)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return "", 0, ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				break
			}
			return "", 0, fmt.Errorf("read deepgram result: %w", err)
		}

		var r resultMsg
		if err := json.Unmarshal(msg, &r); err != nil {
			return "", 0, fmt.Errorf("unmarshal deepgram result: %w", err)
		}
		if r.Type == "Metadata" {
			break
		}
		if r.Type != "Results" || !r.IsFinal || len(r.Channel.Alternatives) == 0 {
			continue
		}
		alt := r.Channel.Alternatives[0]
		if alt.Transcript == "" {
			continue
		}
		parts = append(parts, alt.Transcript)
		conf += alt.Confidence
	}

	if err := <-sendErr; err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		return "", 0, err
	}
	if len(parts) == 0 {
		return "", 0, nil
	}
	return strings.Join(parts, " "), conf / float32(len(parts)), nil
}

func sendAudio(conn *websocket.Conn, audio []byte) error {
	for i := 0; i < len(audio); i += chunkSize {
		end := min(i+chunkSize, len(audio))
		if err := conn.WriteMessage(websocket.BinaryMessage, audio[i:end]); err != nil {
			return fmt.Errorf("write audio to deepgram: %w", err)
		}
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`)); err != nil {
		return fmt.Errorf("close deepgram stream: %w", err)
	}
	return nil
}
