package core

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// DataRoot is the directory holding uploaded audio payloads.
func DataRoot() string {
	if v := os.Getenv("DATA_ROOT"); v != "" {
		return v
	}
	return filepath.Join(".", "data")
}

// NewID generates an opaque unique identifier (hex form, no dashes).
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "write json error: %v", err)
	}
}
