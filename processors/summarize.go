package processors

import (
	"context"
	"errors"
	"log"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"meetingSummarize/config"
	"meetingSummarize/core"
)

// Summarizer extracts a structured meeting summary from transcript text.
// A returned summary is always schema-valid; callers never re-validate. The
// Transcript field is left empty for the caller to attach.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (*core.MeetingSummary, error)
}

// NewSummarizer builds the summarizer configured by cfg.
func NewSummarizer(cfg *config.Config) Summarizer {
	switch cfg.SummaryProvider {
	case "mock":
		return &MockSummarizer{}
	default:
		clientConfig := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientConfig.BaseURL = cfg.BaseURL
		}
		return &MeetingSummarizer{
			cli:                openai.NewClientWithConfig(clientConfig),
			model:              cfg.ChatModel,
			maxRetries:         cfg.SummaryMaxRetries,
			maxTranscriptChars: cfg.MaxTranscriptChars,
		}
	}
}

type chatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// MeetingSummarizer calls a chat-completion backend with a strict schema
// response format. The backend is probabilistic and may violate its own
// contract, so every response is validated and violations are retried a
// bounded number of times.
type MeetingSummarizer struct {
	cli                chatClient
	model              string
	maxRetries         int
	maxTranscriptChars int
}

func (m *MeetingSummarizer) Summarize(ctx context.Context, transcript string) (*core.MeetingSummary, error) {
	if m.maxTranscriptChars > 0 && len(transcript) > m.maxTranscriptChars {
		return nil, core.NewStageError(core.StageSummarization, core.ErrKindInputTooLarge,
			"transcript of %d chars exceeds the %d char context limit", len(transcript), m.maxTranscriptChars)
	}

	attempts := m.maxRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastViolation error
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := m.cli.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: m.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: meetingSummaryPrompt},
				{Role: openai.ChatMessageRoleUser, Content: transcript},
			},
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
				JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
					Name:   "meeting_summary",
					Schema: meetingSummarySchema,
					Strict: true,
				},
			},
		})
		if err != nil {
			return nil, classifySummarizationError(err)
		}
		if len(resp.Choices) == 0 {
			lastViolation = errors.New("backend returned no choices")
			continue
		}

		summary, verr := core.ValidateSummaryPayload([]byte(resp.Choices[0].Message.Content))
		if verr == nil {
			return summary, nil
		}
		lastViolation = verr
		log.Printf("summary schema violation on attempt %d/%d: %v", attempt, attempts, verr)
	}

	return nil, core.NewStageError(core.StageSummarization, core.ErrKindSchemaViolation,
		"backend violated the summary schema after %d attempts: %v", attempts, lastViolation)
}

func classifySummarizationError(err error) *core.StageError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 400 && strings.Contains(strings.ToLower(apiErr.Message), "maximum context length") {
			return core.NewStageError(core.StageSummarization, core.ErrKindInputTooLarge,
				"transcript exceeds the backend context limit: %s", apiErr.Message)
		}
	}
	return core.NewStageError(core.StageSummarization, core.ErrKindBackendUnavailable,
		"summarization backend call failed: %v", err)
}

// MockSummarizer produces a deterministic schema-valid summary from the
// transcript head. Used for local development without API access and in tests.
type MockSummarizer struct{}

func (m *MockSummarizer) Summarize(ctx context.Context, transcript string) (*core.MeetingSummary, error) {
	words := strings.Fields(transcript)
	head := words
	if len(head) > 40 {
		head = head[:40]
	}
	s := &core.MeetingSummary{
		Title:   "Meeting Summary",
		Summary: strings.Join(head, " "),
	}
	if len(words) > 0 {
		s.KeyPoints = []string{strings.Join(head, " ")}
	}
	s.Normalize()
	return s, nil
}
