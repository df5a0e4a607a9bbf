package deepgram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
)

// fakeDeepgram mimics the live transcription websocket: it drains binary
// audio until CloseStream, then answers with the given results.
func fakeDeepgram(t *testing.T, results []map[string]any) (*httptest.Server, <-chan *http.Request) {
	t.Helper()
	seen := make(chan *http.Request, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen <- r.Clone(context.Background())
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			typ, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if typ == websocket.TextMessage && strings.Contains(string(msg), "CloseStream") {
				break
			}
		}
		for _, res := range results {
			b, _ := json.Marshal(res)
			_ = conn.WriteMessage(websocket.TextMessage, b)
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Metadata"}`))
	}))
	return srv, seen
}

func final(text string, conf float32) map[string]any {
	return map[string]any{
		"type":     "Results",
		"is_final": true,
		"channel": map[string]any{
			"alternatives": []map[string]any{{"transcript": text, "confidence": conf}},
		},
	}
}

func TestRecognizeCollectsFinalTranscripts(t *testing.T) {
	interim := final("hel", 0.1)
	interim["is_final"] = false
	srv, requests := fakeDeepgram(t, []map[string]any{interim, final("hello there", 0.8), final("how are you", 0.6)})
	defer srv.Close()

	stt := New("dg-key", "nova-2", "en", WithEndpoint("ws"+strings.TrimPrefix(srv.URL, "http")))
	text, conf, err := stt.Recognize(context.Background(), make([]byte, 4000))
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if text != "hello there how are you" {
		t.Errorf("unexpected transcript %q", text)
	}
	if conf < 0.69 || conf > 0.71 {
		t.Errorf("expected averaged confidence 0.7, got %v", conf)
	}
	seen := <-requests
	if got := seen.Header.Get("Authorization"); got != "Token dg-key" {
		t.Errorf("unexpected auth header %q", got)
	}
	q := seen.URL.Query()
	if q.Get("model") != "nova-2" || q.Get("language") != "en" || q.Get("encoding") != "mulaw" {
		t.Errorf("unexpected query %v", q)
	}
}

func TestRecognizeEmptyAudioSkipsDial(t *testing.T) {
	stt := New("k", "nova-2", "en", WithEndpoint("ws://127.0.0.1:1"))
	text, _, err := stt.Recognize(context.Background(), nil)
	if err != nil || text != "" {
		t.Fatalf("expected empty result without error, got %q %v", text, err)
	}
}

func TestRecognizeRejectedHandshake(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	stt := New("bad", "nova-2", "en", WithEndpoint("ws"+strings.TrimPrefix(srv.URL, "http")))
	if _, _, err := stt.Recognize(context.Background(), []byte{1, 2, 3}); err == nil {
		t.Fatal("expected handshake error")
	}
}
