package providers

import (
	"testing"

	"github.com/rapidxai/outbound-caller/internal/callconfig"
	"github.com/rapidxai/outbound-caller/libs/config"
)

func TestBuild(t *testing.T) {
	cases := []struct {
		job      string
		llm, tts string
	}{
		{``, "openai", "openai"},
		{`{"model_provider":"groq"}`, "groq", "openai"},
		{`{"model_provider":"cartesia"}`, "openai", "cartesia"},
		{`{"voice_id":"dhruv"}`, "openai", "sarvam"},
	}
	for _, tc := range cases {
		sel, err := Select(callconfig.Resolve(tc.job, "", nil), config.DefaultProviders(), "")
		if err != nil {
			t.Fatalf("Select(%s): %v", tc.job, err)
		}
		set, err := Build(sel, config.Credentials{}, Endpoints{})
		if err != nil {
			t.Fatalf("Build(%s): %v", tc.job, err)
		}
		if set.STT.Name() != "deepgram" || set.LLM.Name() != tc.llm || set.TTS.Name() != tc.tts {
			t.Errorf("%s: got stt=%s llm=%s tts=%s", tc.job, set.STT.Name(), set.LLM.Name(), set.TTS.Name())
		}
	}
}

func TestBuildUnknownKind(t *testing.T) {
	sel := Selection{STT: STTChoice{Kind: STTDeepgram}, LLM: LLMChoice{Kind: LLMOpenAI}, TTS: TTSChoice{Kind: "piper"}}
	if _, err := Build(sel, config.Credentials{}, Endpoints{}); err == nil {
		t.Fatal("expected error for unknown tts kind")
	}
}
