package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"meetingSummarize/core"
	"meetingSummarize/processors"
)

// exportHandler renders a posted summary document. The payload is validated
// against the summary schema first; rendering itself never fails on valid
// input, so every error here is a client error.
func (s *Server) exportHandler(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "docx"
	}
	if format != "docx" && format != "markdown" {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported format %q, expected docx or markdown", format))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 32<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to read request body: %v", err))
		return
	}
	summary, err := core.ValidateSummaryPayload(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid summary payload: %v", err))
		return
	}

	filename := exportFilename(summary.Title, format)
	if format == "markdown" {
		w.Header().Set("Content-Type", processors.MarkdownContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, processors.RenderMarkdown(summary))
		return
	}

	doc, err := processors.RenderDocx(summary)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render document: %v", err))
		return
	}
	w.Header().Set("Content-Type", processors.DocxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

// exportFilename derives a safe attachment name from the meeting title.
func exportFilename(title, format string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == ' ', r == '-', r == '_':
			return '-'
		default:
			return -1
		}
	}, strings.TrimSpace(title))
	cleaned = strings.Trim(cleaned, "-")
	if cleaned == "" {
		cleaned = "meeting-summary"
	}
	if format == "markdown" {
		return cleaned + ".md"
	}
	return cleaned + ".docx"
}
