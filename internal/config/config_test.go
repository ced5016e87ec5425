package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.OpenAI.Model != "gpt-5-mini" {
		t.Errorf("OpenAI.Model = %q", cfg.OpenAI.Model)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("Storage.Driver = %q", cfg.Storage.Driver)
	}
	if cfg.Assistant.MaxUserTurns != 8 {
		t.Errorf("Assistant.MaxUserTurns = %d, want 8", cfg.Assistant.MaxUserTurns)
	}
	if len(cfg.Assistant.Vocabulary.ConfirmPhrases) == 0 {
		t.Error("default vocabulary not applied")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
server:
  port: 9090
openai:
  model: gpt-5
storage:
  driver: memory
assistant:
  max_user_turns: 4
  vocabulary:
    navigation_phrases: ["vamos"]
    planning_ready_phrases: ["pronto"]
    confirm_phrases: ["guardar"]
    affirmative_tokens: ["sim"]
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Assistant.MaxUserTurns != 4 {
		t.Errorf("MaxUserTurns = %d, want 4", cfg.Assistant.MaxUserTurns)
	}
	if got := cfg.Assistant.Vocabulary.NavigationPhrases; len(got) != 1 || got[0] != "vamos" {
		t.Errorf("NavigationPhrases = %v", got)
	}
	// Unset keys keep their defaults.
	if cfg.Assistant.PromptTokenBudget != 6000 {
		t.Errorf("PromptTokenBudget = %d, want 6000", cfg.Assistant.PromptTokenBudget)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("VOYAGENT_SERVER_PORT", "7001")
	t.Setenv("VOYAGENT_OPENAI_MODEL", "gpt-5-nano")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 7001 {
		t.Errorf("Server.Port = %d, want 7001", cfg.Server.Port)
	}
	if cfg.OpenAI.Model != "gpt-5-nano" {
		t.Errorf("OpenAI.Model = %q, want gpt-5-nano", cfg.OpenAI.Model)
	}
}

func TestLoadMissingFileIsIgnored(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want default 8080", cfg.Server.Port)
	}
}
