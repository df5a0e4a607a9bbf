package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Persona holds the instructions the agent runs with. Prompt wording is
// deployment content; the defaults are deliberately plain.
type Persona struct {
	SystemPrompt     string `yaml:"system_prompt"`
	InitialGreeting  string `yaml:"initial_greeting"`
	FallbackGreeting string `yaml:"fallback_greeting"`
}

func DefaultPersona() Persona {
	return Persona{
		SystemPrompt: "You are a helpful and polite phone assistant. Keep answers short. " +
			"Only use transfer_call if the caller explicitly asks for a human.",
		InitialGreeting:  "The user has picked up the call. Introduce yourself immediately.",
		FallbackGreeting: "Greet the user immediately.",
	}
}

// LoadPersona reads a YAML persona file. Fields missing from the file keep the
// values of base.
func LoadPersona(path string, base Persona) (Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Persona{}, fmt.Errorf("reading persona: %w", err)
	}

	p := base
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Persona{}, fmt.Errorf("parsing persona: %w", err)
	}
	if err := p.validate(); err != nil {
		return Persona{}, err
	}
	return p, nil
}

func (p Persona) validate() error {
	if p.SystemPrompt == "" {
		return fmt.Errorf("system_prompt is required")
	}
	if p.InitialGreeting == "" {
		return fmt.Errorf("initial_greeting is required")
	}
	if p.FallbackGreeting == "" {
		return fmt.Errorf("fallback_greeting is required")
	}
	return nil
}
