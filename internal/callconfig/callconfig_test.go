package callconfig

import (
	"encoding/json"
	"fmt"
	"testing"
)

func meta(t *testing.T, m map[string]any) string {
	t.Helper()
	if m == nil {
		return ""
	}
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestResolvePhonePrecedence(t *testing.T) {
	jobs := []map[string]any{
		nil,
		{},
		{"phone_number": "+15550100"},
		{"phone_number": ""},
		{"phone_number": "+15550100", "voice_id": "alloy"},
	}
	rooms := []map[string]any{
		nil,
		{},
		{"phone_number": ""},
		{"phone_number": "+919999999999"},
		{"model_provider": "groq"},
	}

	for i, job := range jobs {
		for j, room := range rooms {
			t.Run(fmt.Sprintf("job%d_room%d", i, j), func(t *testing.T) {
				cfg := Resolve(meta(t, job), meta(t, room), nil)
				roomPhone, _ := room["phone_number"].(string)
				jobPhone, _ := job["phone_number"].(string)
				want := jobPhone
				if roomPhone != "" {
					want = roomPhone
				}
				if got := cfg.PhoneNumber(); got != want {
					t.Errorf("phone = %q, want %q", got, want)
				}
			})
		}
	}
}

func TestResolveRoomWinsOnCollision(t *testing.T) {
	cfg := Resolve(
		`{"model_provider":"openai","voice_id":"alloy","user_prompt":"be formal"}`,
		`{"model_provider":"groq","tts_language":"hi-IN"}`,
		nil,
	)
	if cfg.ModelProvider() != "groq" {
		t.Errorf("expected room provider, got %q", cfg.ModelProvider())
	}
	if cfg.VoiceID() != "alloy" || cfg.UserPrompt() != "be formal" {
		t.Errorf("job-only keys lost: %v", cfg.Values())
	}
	if cfg.TTSLanguage() != "hi-IN" {
		t.Errorf("room-only key lost: %v", cfg.Values())
	}
}

func TestResolveMalformedMetadata(t *testing.T) {
	cfg := Resolve(`{not json`, `[1,2,3]`, nil)
	if !cfg.Empty() {
		t.Fatalf("expected empty configuration, got %v", cfg.Values())
	}

	cfg = Resolve(`{"phone_number":"+15550100"}`, `garbage`, nil)
	if cfg.PhoneNumber() != "+15550100" {
		t.Errorf("job phone should survive bad room metadata, got %q", cfg.PhoneNumber())
	}
}

func TestResolveNumericPhone(t *testing.T) {
	cfg := Resolve(`{"phone_number":919999999999}`, "", nil)
	if cfg.PhoneNumber() != "919999999999" {
		t.Errorf("unexpected phone %q", cfg.PhoneNumber())
	}
}

func TestValuesIsACopy(t *testing.T) {
	cfg := Resolve(`{"voice_id":"alloy"}`, "", nil)
	v := cfg.Values()
	v["voice_id"] = "echo"
	if cfg.VoiceID() != "alloy" {
		t.Fatal("configuration mutated through Values()")
	}
}
