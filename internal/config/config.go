// Package config loads service configuration from an optional YAML file and
// VOYAGENT_-prefixed environment variables.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/voyagent/voyagent/internal/session"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	OpenAI    OpenAIConfig    `koanf:"openai"`
	Storage   StorageConfig   `koanf:"storage"`
	Assistant AssistantConfig `koanf:"assistant"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
}

type OpenAIConfig struct {
	APIKey  string `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`
}

type StorageConfig struct {
	// Driver selects the record store: "sqlite" or "memory".
	Driver string `koanf:"driver"`
	Path   string `koanf:"path"`
}

type AssistantConfig struct {
	// MaxUserTurns caps question-answer turns per session.
	MaxUserTurns int `koanf:"max_user_turns"`

	// PromptTokenBudget bounds transcript history in generation prompts.
	PromptTokenBudget int `koanf:"prompt_token_budget"`

	// SystemPrompt and FallbackMessage are opaque to the engine.
	SystemPrompt    string `koanf:"system_prompt"`
	FallbackMessage string `koanf:"fallback_message"`

	// Vocabulary configures intent detection. Empty lists fall back to
	// the engine defaults.
	Vocabulary session.Vocabulary `koanf:"vocabulary"`
}

// Load reads path (ignored when empty or missing) and then the environment.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load config file %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider("VOYAGENT_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "VOYAGENT_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	applyDefaults(k)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if vocabularyEmpty(cfg.Assistant.Vocabulary) {
		cfg.Assistant.Vocabulary = session.DefaultVocabulary()
	}
	return &cfg, nil
}

func applyDefaults(k *koanf.Koanf) {
	defaults := map[string]any{
		"server.port":                   8080,
		"openai.model":                  "gpt-5-mini",
		"storage.driver":                "sqlite",
		"storage.path":                  "./data/voyagent.db",
		"assistant.max_user_turns":      8,
		"assistant.prompt_token_budget": 6000,
	}
	for key, val := range defaults {
		if !k.Exists(key) {
			k.Set(key, val)
		}
	}
}

func vocabularyEmpty(v session.Vocabulary) bool {
	return len(v.NavigationPhrases) == 0 &&
		len(v.PlanningReadyPhrases) == 0 &&
		len(v.ConfirmPhrases) == 0 &&
		len(v.AffirmativeTokens) == 0
}
