package config

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func withEnv(t *testing.T, env map[string]string) {
	t.Helper()
	orig := lookupEnv
	lookupEnv = func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
	t.Cleanup(func() { lookupEnv = orig })
}

func TestLoadFromEnvDefaults(t *testing.T) {
	withEnv(t, map[string]string{})

	cfg := LoadFromEnv()
	p := cfg.Providers
	if p.TTSProvider != DefaultTTSProvider || p.LLMProvider != DefaultLLMProvider {
		t.Fatalf("unexpected providers: tts=%s llm=%s", p.TTSProvider, p.LLMProvider)
	}
	if p.STTModel != "nova-2" || p.STTLanguage != "en" {
		t.Errorf("unexpected stt defaults: %s/%s", p.STTModel, p.STTLanguage)
	}
	if p.GroqTemperature != 0.7 {
		t.Errorf("expected groq temperature 0.7, got %v", p.GroqTemperature)
	}
	if cfg.ProviderFallback != FallbackPolicyDefault {
		t.Errorf("expected fallback policy, got %s", cfg.ProviderFallback)
	}
	if cfg.SIP.DefaultTransferNumber != "" {
		t.Errorf("expected no default transfer number, got %s", cfg.SIP.DefaultTransferNumber)
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	withEnv(t, map[string]string{
		"TTS_PROVIDER":       "Cartesia",
		"LLM_PROVIDER":       "groq",
		"GROQ_TEMPERATURE":   "0.2",
		"VOBIZ_SIP_TRUNK_ID": "ST_vobiz",
		"SIP_DOMAIN":         "sip.example.com",
		"PROVIDER_FALLBACK":  "REJECT",
	})

	cfg := LoadFromEnv()
	if cfg.Providers.TTSProvider != "cartesia" {
		t.Errorf("expected lower-cased cartesia, got %s", cfg.Providers.TTSProvider)
	}
	if cfg.Providers.LLMProvider != "groq" {
		t.Errorf("expected groq, got %s", cfg.Providers.LLMProvider)
	}
	if cfg.Providers.GroqTemperature != 0.2 {
		t.Errorf("expected 0.2, got %v", cfg.Providers.GroqTemperature)
	}
	if cfg.SIP.TrunkID != "ST_vobiz" {
		t.Errorf("expected vobiz trunk fallback, got %s", cfg.SIP.TrunkID)
	}
	if cfg.ProviderFallback != FallbackPolicyReject {
		t.Errorf("expected reject policy, got %s", cfg.ProviderFallback)
	}
}

func TestLoadFromEnvBadFloatKeepsDefault(t *testing.T) {
	withEnv(t, map[string]string{"GROQ_TEMPERATURE": "warm"})
	if got := LoadFromEnv().Providers.GroqTemperature; got != DefaultGroqTemperature {
		t.Errorf("expected default temperature, got %v", got)
	}
}

func TestParseDotEnv(t *testing.T) {
	m := parseDotEnv(`
# comment
LIVEKIT_URL="wss://example.livekit.cloud"
export SIP_DOMAIN='sip.example.com'
BROKEN
=novalue
`)
	if m["LIVEKIT_URL"] != "wss://example.livekit.cloud" {
		t.Errorf("unexpected LIVEKIT_URL %q", m["LIVEKIT_URL"])
	}
	if m["SIP_DOMAIN"] != "sip.example.com" {
		t.Errorf("unexpected SIP_DOMAIN %q", m["SIP_DOMAIN"])
	}
	if len(m) != 2 {
		t.Errorf("expected 2 entries, got %d", len(m))
	}
}

func writePersona(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "persona.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadPersonaOverlay(t *testing.T) {
	path := writePersona(t, `
system_prompt: You are the school receptionist.
`)
	p, err := LoadPersona(path, DefaultPersona())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.SystemPrompt != "You are the school receptionist." {
		t.Errorf("unexpected system prompt %q", p.SystemPrompt)
	}
	if p.InitialGreeting != DefaultPersona().InitialGreeting {
		t.Errorf("initial greeting should keep default, got %q", p.InitialGreeting)
	}
}

func TestLoadPersonaErrors(t *testing.T) {
	if _, err := LoadPersona("/nonexistent/persona.yaml", DefaultPersona()); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := LoadPersona(writePersona(t, `{{{invalid`), DefaultPersona()); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
	_, err := LoadPersona(writePersona(t, `fallback_greeting: ""`), DefaultPersona())
	if err == nil || err.Error() != "fallback_greeting is required" {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestFetchSettingsOverlay(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/settings" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"SYSTEM_PROMPT":  "dashboard prompt",
			"SIP_TRUNK_ID":   "ST_dashboard",
			"OPENAI_API_KEY": "sk-dashboard",
		})
	}))
	defer srv.Close()

	settings, err := FetchSettings(context.Background(), srv.Client(), srv.URL+"/")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	withEnv(t, map[string]string{"SIP_TRUNK_ID": "ST_env"})
	base := LoadFromEnv()
	cfg := base.WithSettings(settings)

	if cfg.SIP.TrunkID != "ST_dashboard" || cfg.Persona.SystemPrompt != "dashboard prompt" {
		t.Errorf("settings not applied: %+v", cfg.SIP)
	}
	if cfg.Credentials.OpenAIKey != "sk-dashboard" {
		t.Errorf("expected dashboard key in snapshot")
	}
	if base.SIP.TrunkID != "ST_env" {
		t.Errorf("base snapshot mutated: %s", base.SIP.TrunkID)
	}
	if _, set := os.LookupEnv("OPENAI_API_KEY"); set && os.Getenv("OPENAI_API_KEY") == "sk-dashboard" {
		t.Errorf("process environment must not be written")
	}
}

func TestFetchSettingsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := FetchSettings(context.Background(), srv.Client(), srv.URL); err == nil {
		t.Fatal("expected error on 503")
	}
}

func TestLoadKeepsEnvWhenDashboardFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	withEnv(t, map[string]string{
		"CONFIG_FETCH":  "1",
		"DASHBOARD_URL": srv.URL,
		"SIP_TRUNK_ID":  "ST_env",
	})
	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SIP.TrunkID != "ST_env" {
		t.Errorf("expected environment trunk, got %q", cfg.SIP.TrunkID)
	}
}
