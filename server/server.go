package server

import (
	"context"
	"net/http"

	"meetingSummarize/config"
	"meetingSummarize/core"
	"meetingSummarize/jobs"
	"meetingSummarize/storage"
)

// Server wires the HTTP boundary to the job runner and the transcript store.
// It holds no request state of its own.
type Server struct {
	cfg         *config.Config
	transcripts storage.TranscriptStore
	jobs        *jobs.Store
	runner      *jobs.Runner

	// runCtx is the lifetime of background pipeline runs; canceling it on
	// shutdown stops in-flight jobs between stages.
	runCtx context.Context
}

func NewServer(runCtx context.Context, cfg *config.Config, transcripts storage.TranscriptStore, jobStore *jobs.Store, runner *jobs.Runner) *Server {
	return &Server{
		cfg:         cfg,
		transcripts: transcripts,
		jobs:        jobStore,
		runner:      runner,
		runCtx:      runCtx,
	}
}

// Routes builds the request mux. Method and path-parameter matching uses the
// net/http pattern syntax.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.healthHandler)
	mux.HandleFunc("GET /api/models", s.modelsHandler)

	mux.HandleFunc("POST /api/process", s.processHandler)
	mux.HandleFunc("POST /api/transcriptions", s.submitTranscriptionHandler)
	mux.HandleFunc("GET /api/transcriptions/{id}", s.pollTranscriptionHandler)

	mux.HandleFunc("GET /api/transcripts", s.listTranscriptsHandler)
	mux.HandleFunc("GET /api/transcripts/search", s.searchTranscriptsHandler)
	mux.HandleFunc("GET /api/transcripts/{id}", s.getTranscriptHandler)
	mux.HandleFunc("PATCH /api/transcripts/{id}", s.renameTranscriptHandler)
	mux.HandleFunc("DELETE /api/transcripts/{id}", s.deleteTranscriptHandler)
	mux.HandleFunc("POST /api/transcripts/{id}/summarize", s.summarizeTranscriptHandler)

	mux.HandleFunc("POST /api/export", s.exportHandler)

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	core.WriteJSON(w, status, v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"status": "error", "error": msg})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}
