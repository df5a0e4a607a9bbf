package cartesia

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSpeak(t *testing.T) {
	var got ttsRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "ck" || r.Header.Get("Cartesia-Version") == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = io.WriteString(w, "MULAW")
	}))
	defer srv.Close()

	tts := NewWithEndpoint(srv.URL, "ck", "sonic-2", "f786b574-daa5-4673-aa0c-cbe3e8534c02")
	out, err := tts.Speak(context.Background(), "namaste")
	if err != nil {
		t.Fatalf("Speak failed: %v", err)
	}
	if string(out) != "MULAW" {
		t.Errorf("unexpected audio %q", out)
	}
	if got.ModelID != "sonic-2" || got.Transcript != "namaste" || got.Voice.ID != "f786b574-daa5-4673-aa0c-cbe3e8534c02" {
		t.Errorf("unexpected request %+v", got)
	}
	if got.OutputFormat.Encoding != "pcm_mulaw" || got.OutputFormat.SampleRate != 8000 {
		t.Errorf("unexpected output format %+v", got.OutputFormat)
	}
}

func TestSpeakBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "voice not found", http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := NewWithEndpoint(srv.URL, "ck", "sonic-2", "x").Speak(context.Background(), "hi"); err == nil {
		t.Fatal("expected error")
	}
}
