package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"

	"meetingSummarize/core"
	"meetingSummarize/processors"
	"meetingSummarize/storage"
)

// Transcriber converts an uploaded audio file into transcript text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, model string) (string, error)
}

// ErrTranscriptNotReady is returned by GenerateSummary when the record has
// no completed transcript to summarize.
var ErrTranscriptNotReady = errors.New("transcript is not completed")

// Runner executes the pipeline stages for a job, updating job state as it
// progresses. All collaborators are injected; the runner owns no globals.
type Runner struct {
	store       *Store
	transcripts storage.TranscriptStore
	transcriber Transcriber
	summarizer  processors.Summarizer
}

func NewRunner(store *Store, transcripts storage.TranscriptStore, transcriber Transcriber, summarizer processors.Summarizer) *Runner {
	return &Runner{
		store:       store,
		transcripts: transcripts,
		transcriber: transcriber,
		summarizer:  summarizer,
	}
}

// Submit creates the durable transcript record and the job tracking its
// pipeline execution. The caller starts execution with Run, typically in a
// background goroutine.
func (r *Runner) Submit(ctx context.Context, audioPath, originalFilename, model string, summarize bool) (*core.Job, error) {
	rec, err := r.transcripts.Create(ctx, originalFilename, model)
	if err != nil {
		return nil, err
	}
	return r.store.Create(audioPath, model, summarize, rec.ID), nil
}

// Run drives a job to a terminal state. Idempotent with respect to the
// store's transition guard: a second concurrent Run for the same job loses
// the opening compare-and-set and returns without side effects. A failure in
// stage N never rolls back artifacts committed in stage N-1; in particular a
// transcript persisted before a summarization failure stays completed.
func (r *Runner) Run(ctx context.Context, jobID string) {
	job, err := r.store.Transition(jobID, core.JobStateQueued, core.JobStateTranscribing, nil)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			log.Printf("job %s is owned by another runner, skipping", jobID)
		} else {
			log.Printf("job %s: cannot start: %v", jobID, err)
		}
		return
	}
	// The job owns the uploaded payload; release it once terminal.
	defer r.cleanupAudio(job.ID, job.AudioPath)

	log.Printf("job %s: transcribing %s with model %s", job.ID, job.AudioPath, job.Model)
	transcript, terr := r.transcriber.Transcribe(ctx, job.AudioPath, job.Model)
	if terr != nil {
		serr := asStageError(core.StageTranscription, core.ErrKindEngineFailure, terr)
		r.fail(job.ID, core.JobStateTranscribing, serr)
		if err := r.transcripts.SetError(ctx, job.TranscriptID, serr.Error()); err != nil {
			log.Printf("job %s: marking transcript record failed: %v", job.ID, err)
		}
		return
	}

	// Persist before anything else: this artifact must survive a later
	// summarization failure.
	if err := r.transcripts.SetTranscript(ctx, job.TranscriptID, transcript); err != nil {
		r.fail(job.ID, core.JobStateTranscribing,
			core.NewStageError(core.StageStorage, core.ErrKindStorageFailure, "persist transcript: %v", err))
		return
	}

	if !job.Summarize {
		result := core.TranscriptionOnlySummary(transcript)
		if _, err := r.store.Transition(job.ID, core.JobStateTranscribing, core.JobStateDone,
			func(j *core.Job) { j.Result = result }); err != nil {
			log.Printf("job %s: finishing transcription-only job: %v", job.ID, err)
		}
		return
	}

	if _, err := r.store.Transition(job.ID, core.JobStateTranscribing, core.JobStateSummarizing, nil); err != nil {
		log.Printf("job %s: entering summarizing state: %v", job.ID, err)
		return
	}
	if ctx.Err() != nil {
		r.fail(job.ID, core.JobStateSummarizing,
			core.NewStageError(core.StageSummarization, core.ErrKindCanceled, "canceled before summarization: %v", ctx.Err()))
		return
	}

	log.Printf("job %s: summarizing %d chars of transcript", job.ID, len(transcript))
	summary, serr := r.summarizer.Summarize(ctx, transcript)
	if serr != nil {
		// Partial success: the transcript record stays completed with a
		// null summary.
		r.fail(job.ID, core.JobStateSummarizing, asStageError(core.StageSummarization, core.ErrKindBackendUnavailable, serr))
		return
	}
	summary.Transcript = transcript

	payload, err := json.Marshal(summary)
	if err != nil {
		r.fail(job.ID, core.JobStateSummarizing,
			core.NewStageError(core.StageStorage, core.ErrKindStorageFailure, "encode summary: %v", err))
		return
	}
	if err := r.transcripts.SetSummary(ctx, job.TranscriptID, string(payload)); err != nil {
		r.fail(job.ID, core.JobStateSummarizing,
			core.NewStageError(core.StageStorage, core.ErrKindStorageFailure, "persist summary: %v", err))
		return
	}

	if _, err := r.store.Transition(job.ID, core.JobStateSummarizing, core.JobStateDone,
		func(j *core.Job) { j.Result = summary }); err != nil {
		log.Printf("job %s: finishing job: %v", job.ID, err)
		return
	}
	log.Printf("job %s: done", job.ID)
}

// GenerateSummary runs the summarization adapter against an existing
// completed transcript and persists the result. The same adapter and
// validation policy as the pipeline stage. The stored summary is overwritten
// only on success; on failure the prior summary_json is left untouched.
func (r *Runner) GenerateSummary(ctx context.Context, transcriptID string) (*core.MeetingSummary, error) {
	rec, err := r.transcripts.Get(ctx, transcriptID)
	if err != nil {
		return nil, err
	}
	if rec.Status != core.TranscriptCompleted {
		return nil, ErrTranscriptNotReady
	}

	summary, err := r.summarizer.Summarize(ctx, rec.Transcript)
	if err != nil {
		return nil, err
	}
	summary.Transcript = rec.Transcript

	payload, err := json.Marshal(summary)
	if err != nil {
		return nil, core.NewStageError(core.StageStorage, core.ErrKindStorageFailure, "encode summary: %v", err)
	}
	if err := r.transcripts.SetSummary(ctx, transcriptID, string(payload)); err != nil {
		return nil, core.NewStageError(core.StageStorage, core.ErrKindStorageFailure, "persist summary: %v", err)
	}
	return summary, nil
}

// fail records a terminal failure. A conflict here means another path
// already finished the job; that is logged and otherwise ignored.
func (r *Runner) fail(jobID string, from core.JobState, serr *core.StageError) {
	log.Printf("job %s: %v", jobID, serr)
	if _, err := r.store.Transition(jobID, from, core.JobStateFailed,
		func(j *core.Job) { j.Error = serr }); err != nil {
		log.Printf("job %s: recording failure: %v", jobID, err)
	}
}

func (r *Runner) cleanupAudio(jobID, path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("job %s: removing uploaded audio %s: %v", jobID, path, err)
	}
}

func asStageError(stage core.Stage, fallback core.ErrorKind, err error) *core.StageError {
	var serr *core.StageError
	if errors.As(err, &serr) {
		return serr
	}
	return core.NewStageError(stage, fallback, "%v", err)
}
