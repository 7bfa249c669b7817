package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"meetingSummarize/core"
	"meetingSummarize/jobs"
	"meetingSummarize/storage"
)

func (s *Server) listTranscriptsHandler(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	items, total, err := s.transcripts.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list transcripts: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"total":  total,
		"items":  items,
	})
}

func (s *Server) getTranscriptHandler(w http.ResponseWriter, r *http.Request) {
	rec, err := s.transcripts.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "data": rec})
}

// renameTranscriptHandler updates the display name. The record is otherwise
// immutable through this endpoint.
func (s *Server) renameTranscriptHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		writeError(w, http.StatusBadRequest, "display_name must not be empty")
		return
	}

	if err := s.transcripts.Rename(r.Context(), r.PathValue("id"), name); err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "display_name": name})
}

func (s *Server) deleteTranscriptHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.transcripts.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success"})
}

// summarizeTranscriptHandler re-runs summarization on a stored transcript.
// The stored summary changes only when the new one validates; a failed run
// leaves the previous summary in place.
func (s *Server) summarizeTranscriptHandler(w http.ResponseWriter, r *http.Request) {
	summary, err := s.runner.GenerateSummary(r.Context(), r.PathValue("id"))
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			writeError(w, http.StatusNotFound, "transcript not found")
		case errors.Is(err, jobs.ErrTranscriptNotReady):
			writeError(w, http.StatusConflict, "transcript is not completed")
		default:
			var serr *core.StageError
			if errors.As(err, &serr) {
				writeJSON(w, stageErrorStatus(serr), map[string]any{"status": "error", "error": serr})
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "data": summary})
}

func (s *Server) searchTranscriptsHandler(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}
	topK, _ := strconv.Atoi(r.URL.Query().Get("top_k"))

	hits, err := s.transcripts.Search(r.Context(), query, topK)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("search failed: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"query":   query,
		"results": hits,
	})
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "transcript not found")
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
