package processors

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "embed"

	openai "github.com/sashabaranov/go-openai"

	"meetingSummarize/config"
	"meetingSummarize/core"
)

// AvailableModels are the selectable transcription tiers, fastest to most
// accurate.
var AvailableModels = []string{"base", "small", "large-v3"}

// IsValidModel reports whether name is a known transcription tier.
func IsValidModel(name string) bool {
	for _, m := range AvailableModels {
		if m == name {
			return true
		}
	}
	return false
}

// TranscriptionEngine is a pluggable speech-to-text engine. Implementations
// return the full transcript text; an all-silence recording yields an empty
// string, not an error.
type TranscriptionEngine interface {
	Transcribe(ctx context.Context, audioPath, model string) (string, error)
}

// Transcriber wraps an engine with input checks, a process-wide concurrency
// gate, and bounded retries for engine failures. Bad input never retries.
type Transcriber struct {
	engine      TranscriptionEngine
	slots       chan struct{}
	maxAttempts int
	retryDelay  time.Duration
}

// NewTranscriber builds the transcriber configured by cfg.
func NewTranscriber(cfg *config.Config) *Transcriber {
	var engine TranscriptionEngine
	switch cfg.WhisperProvider {
	case "openai":
		clientConfig := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientConfig.BaseURL = cfg.BaseURL
		}
		engine = &openaiEngine{cli: openai.NewClientWithConfig(clientConfig)}
	default:
		engine = &whisperEngine{
			device:      cfg.WhisperDevice,
			computeType: cfg.WhisperComputeType,
		}
	}
	return newTranscriber(engine, cfg.EngineSlots, 2)
}

func newTranscriber(engine TranscriptionEngine, slots, maxAttempts int) *Transcriber {
	if slots <= 0 {
		slots = 1
	}
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &Transcriber{
		engine:      engine,
		slots:       make(chan struct{}, slots),
		maxAttempts: maxAttempts,
		retryDelay:  2 * time.Second,
	}
}

// Transcribe converts the audio file into transcript text using the given
// model tier. Errors are core.StageError values distinguishing bad input
// from engine failures.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath, model string) (string, error) {
	if !IsValidModel(model) {
		return "", core.NewStageError(core.StageTranscription, core.ErrKindBadInput,
			"invalid model %q, available: %s", model, strings.Join(AvailableModels, ", "))
	}
	if fi, err := os.Stat(audioPath); err != nil || fi.IsDir() {
		return "", core.NewStageError(core.StageTranscription, core.ErrKindBadInput,
			"audio file not found: %s", audioPath)
	}

	// One execution slot per engine concurrency unit.
	select {
	case t.slots <- struct{}{}:
		defer func() { <-t.slots }()
	case <-ctx.Done():
		return "", core.NewStageError(core.StageTranscription, core.ErrKindCanceled,
			"canceled while waiting for an engine slot: %v", ctx.Err())
	}

	var lastErr *core.StageError
	for attempt := 1; attempt <= t.maxAttempts; attempt++ {
		text, err := t.engine.Transcribe(ctx, audioPath, model)
		if err == nil {
			return strings.TrimSpace(text), nil
		}

		serr := classifyTranscriptionError(err)
		if serr.Kind != core.ErrKindEngineFailure {
			return "", serr
		}
		lastErr = serr
		log.Printf("transcription attempt %d/%d failed: %v", attempt, t.maxAttempts, serr)

		if attempt < t.maxAttempts {
			select {
			case <-time.After(t.retryDelay):
			case <-ctx.Done():
				return "", core.NewStageError(core.StageTranscription, core.ErrKindCanceled,
					"canceled during retry wait: %v", ctx.Err())
			}
		}
	}
	return "", lastErr
}

func classifyTranscriptionError(err error) *core.StageError {
	if serr, ok := err.(*core.StageError); ok {
		return serr
	}
	return core.NewStageError(core.StageTranscription, core.ErrKindEngineFailure, "%v", err)
}

// ---------------- local faster-whisper engine ----------------

//go:embed assets/faster_whisper.py
var whisperHelperScript []byte

// whisperEngine runs the bundled faster-whisper helper as a subprocess. The
// python side caches loaded models per process invocation; tiers map to
// whisper model sizes.
type whisperEngine struct {
	device      string
	computeType string
}

type whisperHelperOutput struct {
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Text     string  `json:"text"`
}

// Helper exit codes: 3 means the audio could not be decoded (bad input),
// anything else non-zero is an engine failure.
const whisperExitBadAudio = 3

var (
	whisperScriptOnce sync.Once
	whisperScriptPath string
	whisperScriptErr  error
)

// whisperScript materializes the embedded helper exactly once per process.
// Concurrent engine slots share the same file, so it must never be
// rewritten while a subprocess may be reading it.
func whisperScript() (string, error) {
	whisperScriptOnce.Do(func() {
		path := filepath.Join(os.TempDir(), "meeting_summarize_whisper.py")
		if err := os.WriteFile(path, whisperHelperScript, 0o755); err != nil {
			whisperScriptErr = fmt.Errorf("write helper script: %w", err)
			return
		}
		whisperScriptPath = path
	})
	return whisperScriptPath, whisperScriptErr
}

func (e *whisperEngine) Transcribe(ctx context.Context, audioPath, model string) (string, error) {
	scriptPath, err := whisperScript()
	if err != nil {
		return "", err
	}

	py := os.Getenv("WHISPER_PYTHON")
	if py == "" {
		py = "python3"
	}
	cmd := exec.CommandContext(ctx, py, scriptPath,
		"--audio", audioPath,
		"--model", model,
		"--device", e.device,
		"--compute-type", e.computeType,
	)
	cmd.Env = os.Environ()

	out, err := cmd.Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok {
			detail := strings.TrimSpace(string(ee.Stderr))
			if detail == "" {
				detail = ee.Error()
			}
			if ee.ExitCode() == whisperExitBadAudio {
				return "", core.NewStageError(core.StageTranscription, core.ErrKindBadInput,
					"unsupported or corrupt audio: %s", detail)
			}
			return "", core.NewStageError(core.StageTranscription, core.ErrKindEngineFailure,
				"whisper helper failed: %s", detail)
		}
		return "", fmt.Errorf("run whisper helper: %w", err)
	}

	var parsed whisperHelperOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return "", core.NewStageError(core.StageTranscription, core.ErrKindEngineFailure,
			"parse whisper helper output: %v", err)
	}
	return parsed.Text, nil
}

// ---------------- OpenAI audio API engine ----------------

type audioClient interface {
	CreateTranscription(ctx context.Context, request openai.AudioRequest) (openai.AudioResponse, error)
}

// openaiEngine sends audio to the hosted transcription endpoint. All tiers
// map onto the single hosted whisper model; the tier still selects local
// accuracy when the local provider is configured.
type openaiEngine struct {
	cli audioClient
}

func (e *openaiEngine) Transcribe(ctx context.Context, audioPath, model string) (string, error) {
	resp, err := e.cli.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: audioPath,
	})
	if err != nil {
		if apiErr, ok := err.(*openai.APIError); ok && apiErr.HTTPStatusCode >= 400 && apiErr.HTTPStatusCode < 500 && apiErr.HTTPStatusCode != 429 {
			return "", core.NewStageError(core.StageTranscription, core.ErrKindBadInput,
				"transcription API rejected input (HTTP %d): %s", apiErr.HTTPStatusCode, apiErr.Message)
		}
		return "", core.NewStageError(core.StageTranscription, core.ErrKindEngineFailure,
			"transcription API call failed: %v", err)
	}
	return resp.Text, nil
}
