package sarvam

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// silentWAV builds a 16-bit mono 8kHz WAV holding n zero samples.
func silentWAV(n int) []byte {
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+n*2))
	buf.WriteString("WAVEfmt ")
	for _, v := range []any{uint32(16), uint16(1), uint16(1), uint32(8000), uint32(16000), uint16(2), uint16(16)} {
		_ = binary.Write(&buf, binary.LittleEndian, v)
	}
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(n*2))
	buf.Write(make([]byte, n*2))
	return buf.Bytes()
}

func TestSpeak(t *testing.T) {
	var got ttsRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("api-subscription-key") != "sk" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(ttsResponse{Audios: []string{
			base64.StdEncoding.EncodeToString(silentWAV(3)),
			base64.StdEncoding.EncodeToString(silentWAV(2)),
		}})
	}))
	defer srv.Close()

	tts := NewWithEndpoint(srv.URL, "sk", "bulbul:v2", "anushka", "hi-IN")
	out, err := tts.Speak(context.Background(), "namaste")
	if err != nil {
		t.Fatalf("Speak failed: %v", err)
	}
	if !bytes.Equal(out, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF}) {
		t.Errorf("unexpected audio %x", out)
	}
	if got.Speaker != "anushka" || got.TargetLanguageCode != "hi-IN" || got.Model != "bulbul:v2" || got.SpeechSampleRate != 8000 {
		t.Errorf("unexpected request %+v", got)
	}
}

func TestSpeakEmptyAudios(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"audios":[]}`))
	}))
	defer srv.Close()

	if _, err := NewWithEndpoint(srv.URL, "sk", "bulbul:v2", "anushka", "en-IN").Speak(context.Background(), "hi"); err == nil {
		t.Fatal("expected error for empty audios")
	}
}
