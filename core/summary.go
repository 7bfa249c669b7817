package core

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Participant is one attendee extracted from the transcript.
type Participant struct {
	Name string  `json:"name"`
	Role *string `json:"role"`
}

// Decision is a decision statement plus optional reasoning.
type Decision struct {
	Description string  `json:"description"`
	Context     *string `json:"context"`
}

// ActionItem is a task assigned during the meeting.
type ActionItem struct {
	Task     string  `json:"task"`
	Assignee *string `json:"assignee"`
	Deadline *string `json:"deadline"`
}

// MeetingSummary is the structured extraction contract. Every key is always
// present when marshaled; unknown values are explicit nulls, never omitted.
// Transcript is attached by the pipeline, not produced by the model.
type MeetingSummary struct {
	Title        string        `json:"title"`
	Date         *string       `json:"date"`
	Duration     *string       `json:"duration"`
	Participants []Participant `json:"participants"`
	Summary      string        `json:"summary"`
	KeyPoints    []string      `json:"key_points"`
	Decisions    []Decision    `json:"decisions"`
	ActionItems  []ActionItem  `json:"action_items"`
	Transcript   string        `json:"transcript"`
}

// summaryKeys are the keys the model must emit, even when null.
var summaryKeys = []string{
	"title", "date", "duration", "participants",
	"summary", "key_points", "decisions", "action_items",
}

// Normalize replaces nil sequences with empty slices so consumers never
// branch on null arrays.
func (s *MeetingSummary) Normalize() {
	if s.Participants == nil {
		s.Participants = []Participant{}
	}
	if s.KeyPoints == nil {
		s.KeyPoints = []string{}
	}
	if s.Decisions == nil {
		s.Decisions = []Decision{}
	}
	if s.ActionItems == nil {
		s.ActionItems = []ActionItem{}
	}
}

// TranscriptionOnlySummary wraps a bare transcript in a schema-valid summary,
// used for jobs that did not request summarization.
func TranscriptionOnlySummary(transcript string) *MeetingSummary {
	s := &MeetingSummary{
		Title:      "Transcription",
		Summary:    "",
		Transcript: transcript,
	}
	s.Normalize()
	return s
}

// ValidateSummaryPayload checks a raw model or client payload against the
// closed extraction schema and returns the normalized summary. The model
// backend is untrusted input, so this runs on every response: all declared
// keys must be present (null allowed where the schema permits it), no
// unknown keys, required strings non-null.
func ValidateSummaryPayload(raw []byte) (*MeetingSummary, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return nil, fmt.Errorf("summary is not a JSON object: %v", err)
	}
	for _, k := range summaryKeys {
		if _, ok := keys[k]; !ok {
			return nil, fmt.Errorf("summary is missing required key %q", k)
		}
	}

	// Shadow struct with pointer fields so null and missing are
	// distinguishable from empty values.
	var p struct {
		Title        *string `json:"title"`
		Date         *string `json:"date"`
		Duration     *string `json:"duration"`
		Participants []struct {
			Name *string `json:"name"`
			Role *string `json:"role"`
		} `json:"participants"`
		Summary   *string   `json:"summary"`
		KeyPoints []*string `json:"key_points"`
		Decisions []struct {
			Description *string `json:"description"`
			Context     *string `json:"context"`
		} `json:"decisions"`
		ActionItems []struct {
			Task     *string `json:"task"`
			Assignee *string `json:"assignee"`
			Deadline *string `json:"deadline"`
		} `json:"action_items"`
		Transcript *string `json:"transcript"`
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("summary does not match schema: %v", err)
	}

	if p.Title == nil || *p.Title == "" {
		return nil, fmt.Errorf("summary key %q must be a non-empty string", "title")
	}
	if p.Summary == nil {
		return nil, fmt.Errorf("summary key %q must not be null", "summary")
	}

	out := &MeetingSummary{
		Title:    *p.Title,
		Date:     p.Date,
		Duration: p.Duration,
		Summary:  *p.Summary,
	}
	for i, pp := range p.Participants {
		if pp.Name == nil {
			return nil, fmt.Errorf("participants[%d].name must not be null", i)
		}
		out.Participants = append(out.Participants, Participant{Name: *pp.Name, Role: pp.Role})
	}
	for i, kp := range p.KeyPoints {
		if kp == nil {
			return nil, fmt.Errorf("key_points[%d] must not be null", i)
		}
		out.KeyPoints = append(out.KeyPoints, *kp)
	}
	for i, d := range p.Decisions {
		if d.Description == nil {
			return nil, fmt.Errorf("decisions[%d].description must not be null", i)
		}
		out.Decisions = append(out.Decisions, Decision{Description: *d.Description, Context: d.Context})
	}
	for i, a := range p.ActionItems {
		if a.Task == nil {
			return nil, fmt.Errorf("action_items[%d].task must not be null", i)
		}
		out.ActionItems = append(out.ActionItems, ActionItem{Task: *a.Task, Assignee: a.Assignee, Deadline: a.Deadline})
	}
	if p.Transcript != nil {
		out.Transcript = *p.Transcript
	}
	out.Normalize()
	return out, nil
}
