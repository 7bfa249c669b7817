package config

import (
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := defaults()
	if cfg.ChatModel != "gpt-4o" {
		t.Errorf("chat model = %q", cfg.ChatModel)
	}
	if cfg.MaxFileSizeMB != 25 {
		t.Errorf("max file size = %d", cfg.MaxFileSizeMB)
	}
	if cfg.SummaryMaxRetries != 2 {
		t.Errorf("summary retries = %d", cfg.SummaryMaxRetries)
	}
	if len(cfg.AllowedExtensions) != 4 {
		t.Errorf("allowed extensions = %v", cfg.AllowedExtensions)
	}
}

func TestFillDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := &Config{ChatModel: "custom-model", MaxFileSizeMB: 5}
	cfg.fillDefaults()
	if cfg.ChatModel != "custom-model" {
		t.Errorf("explicit chat model overwritten: %q", cfg.ChatModel)
	}
	if cfg.MaxFileSizeMB != 5 {
		t.Errorf("explicit size cap overwritten: %d", cfg.MaxFileSizeMB)
	}
	if cfg.BaseURL == "" || cfg.EngineSlots != 1 {
		t.Errorf("zero fields not defaulted: %+v", cfg)
	}
}

// Environment variables win over file values.
func TestApplyEnvPrecedence(t *testing.T) {
	t.Setenv("API_KEY", "sk-from-env")
	t.Setenv("SUMMARY_PROVIDER", "mock")
	t.Setenv("MAX_FILE_SIZE_MB", "50")
	t.Setenv("ALLOWED_EXTENSIONS", ".MP3, ogg")
	t.Setenv("ENGINE_SLOTS", "3")
	t.Setenv("SUMMARY_MAX_RETRIES", "4")
	t.Setenv("MAX_TRANSCRIPT_CHARS", "9000")

	cfg := defaults()
	cfg.APIKey = "sk-from-file"
	cfg.applyEnv()

	if cfg.APIKey != "sk-from-env" {
		t.Errorf("api key = %q", cfg.APIKey)
	}
	if cfg.SummaryProvider != "mock" {
		t.Errorf("summary provider = %q", cfg.SummaryProvider)
	}
	if cfg.MaxFileSizeMB != 50 {
		t.Errorf("max file size = %d", cfg.MaxFileSizeMB)
	}
	if cfg.EngineSlots != 3 {
		t.Errorf("engine slots = %d", cfg.EngineSlots)
	}
	if cfg.SummaryMaxRetries != 4 {
		t.Errorf("summary retries = %d", cfg.SummaryMaxRetries)
	}
	if cfg.MaxTranscriptChars != 9000 {
		t.Errorf("max transcript chars = %d", cfg.MaxTranscriptChars)
	}
	if len(cfg.AllowedExtensions) != 2 || cfg.AllowedExtensions[0] != "mp3" || cfg.AllowedExtensions[1] != "ogg" {
		t.Errorf("allowed extensions = %v", cfg.AllowedExtensions)
	}
}

func TestApplyEnvIgnoresInvalidNumbers(t *testing.T) {
	t.Setenv("MAX_FILE_SIZE_MB", "many")
	t.Setenv("ENGINE_SLOTS", "-2")

	cfg := defaults()
	cfg.applyEnv()
	if cfg.MaxFileSizeMB != 25 || cfg.EngineSlots != 1 {
		t.Errorf("invalid env values applied: size=%d slots=%d", cfg.MaxFileSizeMB, cfg.EngineSlots)
	}
}

func TestValidate(t *testing.T) {
	cfg := defaults()
	if err := cfg.Validate(); err == nil {
		t.Error("openai provider without api key passed validation")
	}

	cfg.SummaryProvider = "mock"
	cfg.WhisperProvider = "local"
	if err := cfg.Validate(); err != nil {
		t.Errorf("local/mock config failed validation: %v", err)
	}

	cfg.APIKey = "sk-test"
	cfg.SummaryProvider = "openai"
	cfg.WhisperProvider = "openai"
	if err := cfg.Validate(); err != nil {
		t.Errorf("keyed config failed validation: %v", err)
	}
}

func TestExtensionAllowed(t *testing.T) {
	cfg := defaults()
	for _, ok := range []string{"mp3", ".mp3", ".MP3", "wav"} {
		if !cfg.ExtensionAllowed(ok) {
			t.Errorf("extension %q rejected", ok)
		}
	}
	for _, bad := range []string{"txt", ".exe", ""} {
		if cfg.ExtensionAllowed(bad) {
			t.Errorf("extension %q accepted", bad)
		}
	}
}

func TestMaxFileSizeBytes(t *testing.T) {
	cfg := &Config{MaxFileSizeMB: 2}
	if got := cfg.MaxFileSizeBytes(); got != 2*1024*1024 {
		t.Errorf("bytes = %d", got)
	}
}
