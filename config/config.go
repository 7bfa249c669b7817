package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config carries all runtime settings. Values come from config.json when
// present, with environment variables taking precedence per field.
type Config struct {
	APIKey         string `json:"api_key"`
	BaseURL        string `json:"base_url"`
	ChatModel      string `json:"chat_model"`
	EmbeddingModel string `json:"embedding_model"`
	PostgresURL    string `json:"postgres_url"`

	// Transcription engine settings.
	WhisperProvider    string `json:"whisper_provider"` // "local" or "openai"
	WhisperDevice      string `json:"whisper_device"`
	WhisperComputeType string `json:"whisper_compute_type"`
	EngineSlots        int    `json:"engine_slots"`

	// Summarization settings.
	SummaryProvider     string `json:"summary_provider"` // "openai" or "mock"
	SummaryMaxRetries   int    `json:"summary_max_retries"`
	MaxTranscriptChars  int    `json:"max_transcript_chars"`

	// Upload validation.
	MaxFileSizeMB     int      `json:"max_file_size_mb"`
	AllowedExtensions []string `json:"allowed_extensions"`
}

var globalConfig *Config

// LoadConfig loads and caches the process-wide configuration.
func LoadConfig() (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	cfg := defaults()
	if data, err := os.ReadFile("config.json"); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config.json: %v", err)
		}
		cfg.fillDefaults()
	}
	cfg.applyEnv()

	globalConfig = cfg
	return globalConfig, nil
}

func defaults() *Config {
	return &Config{
		BaseURL:            "https://api.openai.com/v1",
		ChatModel:          "gpt-4o",
		EmbeddingModel:     "text-embedding-3-small",
		WhisperProvider:    "local",
		WhisperDevice:      "cpu",
		WhisperComputeType: "int8",
		EngineSlots:        1,
		SummaryProvider:    "openai",
		SummaryMaxRetries:  2,
		MaxTranscriptChars: 400000,
		MaxFileSizeMB:      25,
		AllowedExtensions:  []string{"mp3", "wav", "m4a", "webm"},
	}
}

// fillDefaults restores defaults for fields a partial config.json left zero.
func (c *Config) fillDefaults() {
	d := defaults()
	if c.BaseURL == "" {
		c.BaseURL = d.BaseURL
	}
	if c.ChatModel == "" {
		c.ChatModel = d.ChatModel
	}
	if c.EmbeddingModel == "" {
		c.EmbeddingModel = d.EmbeddingModel
	}
	if c.WhisperProvider == "" {
		c.WhisperProvider = d.WhisperProvider
	}
	if c.WhisperDevice == "" {
		c.WhisperDevice = d.WhisperDevice
	}
	if c.WhisperComputeType == "" {
		c.WhisperComputeType = d.WhisperComputeType
	}
	if c.EngineSlots <= 0 {
		c.EngineSlots = d.EngineSlots
	}
	if c.SummaryProvider == "" {
		c.SummaryProvider = d.SummaryProvider
	}
	if c.SummaryMaxRetries <= 0 {
		c.SummaryMaxRetries = d.SummaryMaxRetries
	}
	if c.MaxTranscriptChars <= 0 {
		c.MaxTranscriptChars = d.MaxTranscriptChars
	}
	if c.MaxFileSizeMB <= 0 {
		c.MaxFileSizeMB = d.MaxFileSizeMB
	}
	if len(c.AllowedExtensions) == 0 {
		c.AllowedExtensions = d.AllowedExtensions
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("CHAT_MODEL"); v != "" {
		c.ChatModel = v
	}
	if v := os.Getenv("EMBEDDING_MODEL"); v != "" {
		c.EmbeddingModel = v
	}
	if v := os.Getenv("POSTGRES_URL"); v != "" {
		c.PostgresURL = v
	}
	if v := os.Getenv("WHISPER_PROVIDER"); v != "" {
		c.WhisperProvider = v
	}
	if v := os.Getenv("WHISPER_DEVICE"); v != "" {
		c.WhisperDevice = v
	}
	if v := os.Getenv("WHISPER_COMPUTE_TYPE"); v != "" {
		c.WhisperComputeType = v
	}
	if v := os.Getenv("ENGINE_SLOTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.EngineSlots = n
		}
	}
	if v := os.Getenv("SUMMARY_PROVIDER"); v != "" {
		c.SummaryProvider = v
	}
	if v := os.Getenv("SUMMARY_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.SummaryMaxRetries = n
		}
	}
	if v := os.Getenv("MAX_TRANSCRIPT_CHARS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.MaxTranscriptChars = n
		}
	}
	if v := os.Getenv("MAX_FILE_SIZE_MB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.MaxFileSizeMB = n
		}
	}
	if v := os.Getenv("ALLOWED_EXTENSIONS"); v != "" {
		parts := strings.Split(v, ",")
		exts := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(strings.TrimPrefix(p, "."))
			if p != "" {
				exts = append(exts, strings.ToLower(p))
			}
		}
		if len(exts) > 0 {
			c.AllowedExtensions = exts
		}
	}
}

// Validate checks the fields required for the configured providers.
func (c *Config) Validate() error {
	var errs []string
	if c.SummaryProvider == "openai" && strings.TrimSpace(c.APIKey) == "" {
		errs = append(errs, "API key is required for the openai summary provider")
	}
	if c.WhisperProvider == "openai" && strings.TrimSpace(c.APIKey) == "" {
		errs = append(errs, "API key is required for the openai whisper provider")
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		errs = append(errs, "base URL is required")
	}
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// HasValidAPI reports whether the OpenAI-backed features can be used.
func (c *Config) HasValidAPI() bool {
	return strings.TrimSpace(c.APIKey) != "" && strings.TrimSpace(c.BaseURL) != ""
}

// MaxFileSizeBytes is the upload size cap in bytes.
func (c *Config) MaxFileSizeBytes() int64 {
	return int64(c.MaxFileSizeMB) * 1024 * 1024
}

// ExtensionAllowed reports whether a file extension (without dot) is accepted.
func (c *Config) ExtensionAllowed(ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, e := range c.AllowedExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// PrintConfigInstructions explains how to configure API access.
func PrintConfigInstructions() {
	fmt.Println("\n=== Configuration ===")
	fmt.Println("Fill in config.json (or set the matching environment variables):")
	fmt.Println("1. api_key: your OpenAI-compatible API key (env API_KEY)")
	fmt.Println("2. base_url: API base URL (env BASE_URL, default https://api.openai.com/v1)")
	fmt.Println("3. chat_model: summarization model (env CHAT_MODEL, default gpt-4o)")
	fmt.Println("4. embedding_model: search embedding model (env EMBEDDING_MODEL)")
	fmt.Println("5. postgres_url: PostgreSQL URL for the transcript store (env POSTGRES_URL)")
	fmt.Println("6. whisper_provider: local or openai (env WHISPER_PROVIDER)")
	fmt.Println("\nRestart the service after configuring.")
	fmt.Println("=====================")
}
