package server

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"meetingSummarize/core"
	"meetingSummarize/jobs"
	"meetingSummarize/processors"
)

const defaultModel = "base"

func (s *Server) modelsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"models":  processors.AvailableModels,
		"default": defaultModel,
	})
}

// submitTranscriptionHandler accepts an audio upload and queues a pipeline
// job. All request validation happens here; nothing enters the job store for
// a rejected upload.
func (s *Server) submitTranscriptionHandler(w http.ResponseWriter, r *http.Request) {
	up, status, msg := s.saveUpload(r)
	if msg != "" {
		writeError(w, status, msg)
		return
	}

	job, err := s.runner.Submit(r.Context(), up.path, up.originalFilename, up.model, up.summarize)
	if err != nil {
		os.Remove(up.path)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to create job: %v", err))
		return
	}
	go s.runner.Run(s.runCtx, job.ID)

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status": "accepted",
		"job_id": job.ID,
	})
}

// pollTranscriptionHandler reports job progress. Non-terminal states all
// read as processing; clients never see internal stage names as statuses.
func (s *Server) pollTranscriptionHandler(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Get(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	switch job.State {
	case core.JobStateDone:
		rec, err := s.transcripts.Get(r.Context(), job.TranscriptID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":        "success",
			"transcript_id": job.TranscriptID,
			"data":          rec,
		})
	case core.JobStateFailed:
		writeJSON(w, http.StatusOK, map[string]any{
			"status":        "error",
			"transcript_id": job.TranscriptID,
			"error":         job.Error,
		})
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "processing",
			"state":  job.State,
		})
	}
}

// processHandler runs the full pipeline synchronously and returns the final
// result in one response. Large uploads should prefer the async endpoint.
func (s *Server) processHandler(w http.ResponseWriter, r *http.Request) {
	up, status, msg := s.saveUpload(r)
	if msg != "" {
		writeError(w, status, msg)
		return
	}

	job, err := s.runner.Submit(r.Context(), up.path, up.originalFilename, up.model, up.summarize)
	if err != nil {
		os.Remove(up.path)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to create job: %v", err))
		return
	}
	s.runner.Run(r.Context(), job.ID)

	job, err = s.jobs.Get(job.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if job.State == core.JobStateFailed {
		writeJSON(w, stageErrorStatus(job.Error), map[string]any{
			"status":        "error",
			"transcript_id": job.TranscriptID,
			"error":         job.Error,
		})
		return
	}
	rec, err := s.transcripts.Get(r.Context(), job.TranscriptID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "success",
		"transcript_id": job.TranscriptID,
		"data":          rec,
	})
}

type upload struct {
	path             string
	originalFilename string
	model            string
	summarize        bool
}

// saveUpload validates the multipart request and spools the audio payload to
// the uploads directory. A non-empty message means the request was rejected
// and nothing was written.
func (s *Server) saveUpload(r *http.Request) (upload, int, string) {
	maxBytes := s.cfg.MaxFileSizeBytes()
	r.Body = http.MaxBytesReader(nil, r.Body, maxBytes+(1<<20))
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return upload{}, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("file exceeds the %dMB limit", s.cfg.MaxFileSizeMB)
		}
		return upload{}, http.StatusBadRequest, fmt.Sprintf("invalid multipart request: %v", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return upload{}, http.StatusBadRequest, "missing file field"
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !s.cfg.ExtensionAllowed(ext) {
		return upload{}, http.StatusBadRequest,
			fmt.Sprintf("unsupported file type %q, allowed: %s", ext, strings.Join(s.cfg.AllowedExtensions, ", "))
	}
	if header.Size > maxBytes {
		return upload{}, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("file exceeds the %dMB limit", s.cfg.MaxFileSizeMB)
	}

	model := strings.TrimSpace(r.FormValue("model"))
	if model == "" {
		model = defaultModel
	}
	if !processors.IsValidModel(model) {
		return upload{}, http.StatusBadRequest,
			fmt.Sprintf("invalid model %q, available: %s", model, strings.Join(processors.AvailableModels, ", "))
	}

	summarize := true
	switch strings.ToLower(strings.TrimSpace(r.FormValue("summarize"))) {
	case "false", "0", "no":
		summarize = false
	}

	uploadDir := filepath.Join(core.DataRoot(), "uploads")
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return upload{}, http.StatusInternalServerError, fmt.Sprintf("failed to prepare upload dir: %v", err)
	}
	dst, err := os.CreateTemp(uploadDir, "upload-*"+ext)
	if err != nil {
		return upload{}, http.StatusInternalServerError, fmt.Sprintf("failed to store upload: %v", err)
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return upload{}, http.StatusInternalServerError, fmt.Sprintf("failed to store upload: %v", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return upload{}, http.StatusInternalServerError, fmt.Sprintf("failed to store upload: %v", err)
	}
	log.Printf("saved upload %s (%d bytes) as %s", header.Filename, header.Size, dst.Name())

	return upload{
		path:             dst.Name(),
		originalFilename: header.Filename,
		model:            model,
		summarize:        summarize,
	}, 0, ""
}

// stageErrorStatus maps a pipeline failure to the HTTP status of the
// synchronous endpoint.
func stageErrorStatus(serr *core.StageError) int {
	if serr == nil {
		return http.StatusInternalServerError
	}
	switch serr.Kind {
	case core.ErrKindBadInput:
		return http.StatusBadRequest
	case core.ErrKindInputTooLarge:
		return http.StatusRequestEntityTooLarge
	case core.ErrKindBackendUnavailable, core.ErrKindEngineFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
