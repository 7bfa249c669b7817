package core

import (
	"fmt"
	"time"
)

// JobState tracks the pipeline lifecycle of a single job. States form a
// strict forward path; done and failed are terminal.
type JobState string

const (
	JobStateQueued       JobState = "queued"
	JobStateTranscribing JobState = "transcribing"
	JobStateSummarizing  JobState = "summarizing"
	JobStateDone         JobState = "done"
	JobStateFailed       JobState = "failed"
)

// Terminal reports whether no further transitions are permitted.
func (s JobState) Terminal() bool {
	return s == JobStateDone || s == JobStateFailed
}

// Job is one execution of the transcribe -> summarize pipeline. It is
// transient operational state; TranscriptRecord is the durable artifact.
type Job struct {
	ID           string          `json:"id"`
	State        JobState        `json:"state"`
	AudioPath    string          `json:"-"`
	Model        string          `json:"model"`
	Summarize    bool            `json:"summarize"`
	TranscriptID string          `json:"transcript_id"`
	Result       *MeetingSummary `json:"result,omitempty"`
	Error        *StageError     `json:"error,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Stage names the pipeline stage an error was captured in.
type Stage string

const (
	StageTranscription Stage = "transcription"
	StageSummarization Stage = "summarization"
	StageStorage       Stage = "storage"
)

// ErrorKind classifies stage failures so the runner can decide between
// failing fast and retrying.
type ErrorKind string

const (
	// Transcription kinds.
	ErrKindBadInput      ErrorKind = "bad_input"
	ErrKindEngineFailure ErrorKind = "engine_failure"

	// Summarization kinds.
	ErrKindBackendUnavailable ErrorKind = "backend_unavailable"
	ErrKindSchemaViolation    ErrorKind = "schema_violation"
	ErrKindInputTooLarge      ErrorKind = "input_too_large"

	// Shared kinds.
	ErrKindStorageFailure ErrorKind = "storage_failure"
	ErrKindCanceled       ErrorKind = "canceled"
)

// StageError is the captured error descriptor stored on a failed job. The
// detail is surfaced to clients unmodified.
type StageError struct {
	Stage  Stage     `json:"stage"`
	Kind   ErrorKind `json:"kind"`
	Detail string    `json:"detail"`
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed (%s): %s", e.Stage, e.Kind, e.Detail)
}

// NewStageError builds a StageError with a formatted detail message.
func NewStageError(stage Stage, kind ErrorKind, format string, args ...any) *StageError {
	return &StageError{Stage: stage, Kind: kind, Detail: fmt.Sprintf(format, args...)}
}
