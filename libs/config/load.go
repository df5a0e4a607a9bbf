package config

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/livekit/protocol/logger"
)

// Load builds the startup snapshot: environment, then the optional persona
// file, then the optional one-shot dashboard settings overlay. An unreachable
// dashboard leaves the environment values in place. The returned Config is
// final; a later dashboard change needs a restart.
func Load(ctx context.Context) (*Config, error) {
	cfg := LoadFromEnv()

	if cfg.PersonaFile != "" {
		p, err := LoadPersona(cfg.PersonaFile, cfg.Persona)
		if err != nil {
			return nil, err
		}
		cfg.Persona = p
	}

	if cfg.FetchDashboard {
		settings, err := FetchSettings(ctx, http.DefaultClient, cfg.DashboardURL)
		if err != nil {
			logger.GetLogger().Warnw("dashboard settings unavailable, using environment", err, "url", cfg.DashboardURL)
		} else {
			cfg = cfg.WithSettings(settings)
		}
	}
	return cfg, nil
}

// FetchSettings reads the key/value settings map served by the dashboard at
// <base>/api/settings.
func FetchSettings(ctx context.Context, client *http.Client, base string) (map[string]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	url := strings.TrimRight(base, "/") + "/api/settings"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("new settings request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch settings: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch settings: status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	settings := make(map[string]string)
	if err := json.NewDecoder(resp.Body).Decode(&settings); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return settings, nil
}

// WithSettings returns a copy of c with dashboard settings applied. Secrets
// land in the copy only; the process environment is left alone.
func (c *Config) WithSettings(settings map[string]string) *Config {
	out := *c
	set := func(dst *string, key string) {
		if v := settings[key]; v != "" {
			*dst = v
		}
	}
	set(&out.Persona.SystemPrompt, "SYSTEM_PROMPT")
	set(&out.SIP.TrunkID, "SIP_TRUNK_ID")
	set(&out.SIP.Domain, "SIP_DOMAIN")
	set(&out.SIP.DefaultTransferNumber, "DEFAULT_TRANSFER_NUMBER")
	set(&out.LiveKit.URL, "LIVEKIT_URL")
	set(&out.LiveKit.APIKey, "LIVEKIT_API_KEY")
	set(&out.LiveKit.APISecret, "LIVEKIT_API_SECRET")
	set(&out.Credentials.OpenAIKey, "OPENAI_API_KEY")
	set(&out.Credentials.GroqKey, "GROQ_API_KEY")
	set(&out.Credentials.DeepgramKey, "DEEPGRAM_API_KEY")
	set(&out.Credentials.CartesiaKey, "CARTESIA_API_KEY")
	set(&out.Credentials.SarvamKey, "SARVAM_API_KEY")
	return &out
}
