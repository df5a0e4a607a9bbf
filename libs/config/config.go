package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// Hard-coded defaults. Environment variables override them at startup and
// per-call metadata overrides the result during provider selection.
const (
	DefaultSTTProvider = "deepgram"
	DefaultSTTModel    = "nova-2"
	DefaultSTTLanguage = "en"

	DefaultLLMProvider     = "openai"
	DefaultOpenAILLMModel  = "gpt-4o-mini"
	DefaultGroqBaseURL     = "https://api.groq.com/openai/v1"
	DefaultGroqModel       = "llama3-8b-8192"
	DefaultGroqTemperature = 0.7

	DefaultTTSProvider    = "openai"
	DefaultOpenAITTSModel = "tts-1"
	DefaultOpenAITTSVoice = "alloy"
	DefaultCartesiaModel  = "sonic-2"
	DefaultCartesiaVoice  = "f786b574-daa5-4673-aa0c-cbe3e8534c02"
	DefaultSarvamModel    = "bulbul:v2"
	DefaultSarvamVoice    = "anushka"
	DefaultSarvamLanguage = "en-IN"

	DefaultAgentIdentity = "agent-outbound-caller"
	DefaultHTTPAddr      = ":8080"
	DefaultMQTTClientID  = "outbound-caller"
	DefaultMQTTPrefix    = "outbound-caller"

	FallbackPolicyDefault = "fallback"
	FallbackPolicyReject  = "reject"
)

// Config is the process-wide configuration snapshot. It is built once at
// startup and passed by pointer; nothing writes to it afterwards.
type Config struct {
	LiveKit     LiveKitConfig
	SIP         SIPConfig
	Providers   ProviderDefaults
	Credentials Credentials
	Persona     Persona
	MQTT        MQTTConfig

	// ProviderFallback is FallbackPolicyDefault or FallbackPolicyReject.
	ProviderFallback string
	AgentIdentity    string
	DatabasePath     string
	HTTPAddr         string
	LogLevel         string
	LogJSON          bool
	PersonaFile      string
	DashboardURL     string
	FetchDashboard   bool
}

type LiveKitConfig struct {
	URL       string
	APIKey    string
	APISecret string
}

type SIPConfig struct {
	TrunkID               string
	Domain                string
	DefaultTransferNumber string
}

// ProviderDefaults holds the environment tier of provider selection, with
// hard-coded defaults already applied.
type ProviderDefaults struct {
	STTModel    string
	STTLanguage string

	LLMProvider     string
	OpenAILLMModel  string
	GroqBaseURL     string
	GroqModel       string
	GroqTemperature float64

	TTSProvider    string
	OpenAITTSModel string
	OpenAITTSVoice string
	CartesiaModel  string
	CartesiaVoice  string
	SarvamModel    string
	SarvamVoice    string
	SarvamLanguage string
}

type Credentials struct {
	OpenAIKey   string
	GroqKey     string
	DeepgramKey string
	CartesiaKey string
	SarvamKey   string
}

type MQTTConfig struct {
	Broker      string
	ClientID    string
	TopicPrefix string
}

// LoadFromEnv constructs a Config reading from environment variables, with a
// .env file in the working directory as a fallback source.
func LoadFromEnv() *Config {
	cfg := &Config{
		LiveKit: LiveKitConfig{
			URL:       getEnv("LIVEKIT_URL", ""),
			APIKey:    getEnv("LIVEKIT_API_KEY", ""),
			APISecret: getEnv("LIVEKIT_API_SECRET", ""),
		},
		SIP: SIPConfig{
			TrunkID:               getEnv("SIP_TRUNK_ID", getEnv("VOBIZ_SIP_TRUNK_ID", "")),
			Domain:                getEnv("SIP_DOMAIN", getEnv("VOBIZ_SIP_DOMAIN", "")),
			DefaultTransferNumber: getEnv("DEFAULT_TRANSFER_NUMBER", ""),
		},
		Providers: providersFromEnv(DefaultProviders()),
		Credentials: Credentials{
			OpenAIKey:   getEnv("OPENAI_API_KEY", ""),
			GroqKey:     getEnv("GROQ_API_KEY", ""),
			DeepgramKey: getEnv("DEEPGRAM_API_KEY", ""),
			CartesiaKey: getEnv("CARTESIA_API_KEY", ""),
			SarvamKey:   getEnv("SARVAM_API_KEY", ""),
		},
		Persona: DefaultPersona(),
		MQTT: MQTTConfig{
			Broker:      getEnv("MQTT_BROKER", ""),
			ClientID:    getEnv("MQTT_CLIENT_ID", DefaultMQTTClientID),
			TopicPrefix: getEnv("MQTT_TOPIC_PREFIX", DefaultMQTTPrefix),
		},
		ProviderFallback: strings.ToLower(getEnv("PROVIDER_FALLBACK", FallbackPolicyDefault)),
		AgentIdentity:    getEnv("AGENT_IDENTITY", DefaultAgentIdentity),
		DatabasePath:     getEnv("DATABASE_PATH", ""),
		HTTPAddr:         getEnv("HTTP_ADDR", DefaultHTTPAddr),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogJSON:          getEnvBool("LOG_JSON", false),
		PersonaFile:      getEnv("PERSONA_FILE", ""),
		DashboardURL:     getEnv("DASHBOARD_URL", "http://localhost:3000"),
		FetchDashboard:   getEnvBool("CONFIG_FETCH", false),
	}
	if cfg.ProviderFallback != FallbackPolicyReject {
		cfg.ProviderFallback = FallbackPolicyDefault
	}
	return cfg
}

// DefaultProviders returns the hard-coded provider tier.
func DefaultProviders() ProviderDefaults {
	return ProviderDefaults{
		STTModel:        DefaultSTTModel,
		STTLanguage:     DefaultSTTLanguage,
		LLMProvider:     DefaultLLMProvider,
		OpenAILLMModel:  DefaultOpenAILLMModel,
		GroqBaseURL:     DefaultGroqBaseURL,
		GroqModel:       DefaultGroqModel,
		GroqTemperature: DefaultGroqTemperature,
		TTSProvider:     DefaultTTSProvider,
		OpenAITTSModel:  DefaultOpenAITTSModel,
		OpenAITTSVoice:  DefaultOpenAITTSVoice,
		CartesiaModel:   DefaultCartesiaModel,
		CartesiaVoice:   DefaultCartesiaVoice,
		SarvamModel:     DefaultSarvamModel,
		SarvamVoice:     DefaultSarvamVoice,
		SarvamLanguage:  DefaultSarvamLanguage,
	}
}

// providersFromEnv layers the environment over d. STT is not configurable.
func providersFromEnv(d ProviderDefaults) ProviderDefaults {
	d.LLMProvider = strings.ToLower(getEnv("LLM_PROVIDER", d.LLMProvider))
	d.OpenAILLMModel = getEnv("OPENAI_LLM_MODEL", d.OpenAILLMModel)
	d.GroqBaseURL = getEnv("GROQ_BASE_URL", d.GroqBaseURL)
	d.GroqModel = getEnv("GROQ_MODEL", d.GroqModel)
	d.GroqTemperature = getEnvFloat("GROQ_TEMPERATURE", d.GroqTemperature)
	d.TTSProvider = strings.ToLower(getEnv("TTS_PROVIDER", d.TTSProvider))
	d.OpenAITTSModel = getEnv("OPENAI_TTS_MODEL", d.OpenAITTSModel)
	d.OpenAITTSVoice = getEnv("OPENAI_TTS_VOICE", d.OpenAITTSVoice)
	d.CartesiaModel = getEnv("CARTESIA_TTS_MODEL", d.CartesiaModel)
	d.CartesiaVoice = getEnv("CARTESIA_TTS_VOICE", d.CartesiaVoice)
	d.SarvamModel = getEnv("SARVAM_TTS_MODEL", d.SarvamModel)
	d.SarvamVoice = getEnv("SARVAM_VOICE", d.SarvamVoice)
	d.SarvamLanguage = getEnv("SARVAM_LANGUAGE", d.SarvamLanguage)
	return d
}

func getEnv(key, def string) string {
	v := ""
	if val, ok := lookupEnv(key); ok {
		v = val
	} else {
		// fallback to .env file if present
		loadDotEnvOnce.Do(loadDotEnv)
		if dotEnv != nil {
			if val2, ok := dotEnv[key]; ok && val2 != "" {
				v = val2
			}
		}
	}
	if v == "" {
		return def
	}
	return v
}

func getEnvFloat(key string, def float64) float64 {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getEnvBool(key string, def bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// lookupEnv is a thin wrapper over os.LookupEnv so tests can replace it if needed.
var lookupEnv = func(key string) (string, bool) { return os.LookupEnv(key) }

var (
	dotEnv         map[string]string
	loadDotEnvOnce sync.Once
)

// loadDotEnv loads a .env file from the current working directory and
// populates the dotEnv map. It ignores lines starting with '#' and empty lines.
func loadDotEnv() {
	cwd, err := os.Getwd()
	if err != nil {
		return
	}
	data, err := os.ReadFile(filepath.Join(cwd, ".env"))
	if err != nil {
		return
	}
	dotEnv = parseDotEnv(string(data))
}

func parseDotEnv(data string) map[string]string {
	m := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		// split at first '='
		idx := strings.Index(line, "=")
		if idx <= 0 {
			continue
		}
		k := strings.TrimSpace(line[:idx])
		v := strings.TrimSpace(line[idx+1:])
		if len(v) >= 2 {
			if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
				v = v[1 : len(v)-1]
			}
		}
		m[k] = v
	}
	return m
}
