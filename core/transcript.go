package core

import "time"

// TranscriptStatus is the lifecycle of the durable transcript artifact.
type TranscriptStatus string

const (
	TranscriptProcessing TranscriptStatus = "processing"
	TranscriptCompleted  TranscriptStatus = "completed"
	TranscriptError      TranscriptStatus = "error"
)

// TranscriptRecord is the persisted, browsable transcript entity. Once set,
// Transcript is append-only and SummaryJSON is only ever written as a whole,
// schema-valid document (or left null).
type TranscriptRecord struct {
	ID               string           `json:"id"`
	CreatedAt        time.Time        `json:"created_at"`
	OriginalFilename string           `json:"original_filename"`
	DisplayName      string           `json:"display_name"`
	Model            string           `json:"model"`
	Status           TranscriptStatus `json:"status"`
	Transcript       string           `json:"transcript"`
	SummaryJSON      *string          `json:"summary_json"`
	Error            string           `json:"error,omitempty"`
}

// TranscriptListItem is the listing projection without the heavy fields.
type TranscriptListItem struct {
	ID               string           `json:"id"`
	CreatedAt        time.Time        `json:"created_at"`
	OriginalFilename string           `json:"original_filename"`
	DisplayName      string           `json:"display_name"`
	Model            string           `json:"model"`
	Status           TranscriptStatus `json:"status"`
	Error            string           `json:"error,omitempty"`
}

// ListItem projects a record into its listing shape.
func (r *TranscriptRecord) ListItem() TranscriptListItem {
	return TranscriptListItem{
		ID:               r.ID,
		CreatedAt:        r.CreatedAt,
		OriginalFilename: r.OriginalFilename,
		DisplayName:      r.DisplayName,
		Model:            r.Model,
		Status:           r.Status,
		Error:            r.Error,
	}
}
