package api

import (
	"net/http"
)

// EnrichedResponseWriter remembers the status code written to it.
type EnrichedResponseWriter struct {
	http.ResponseWriter
	Status int
}

// NewEnrichedResponseWriter wraps w.
func NewEnrichedResponseWriter(w http.ResponseWriter) *EnrichedResponseWriter {
	return &EnrichedResponseWriter{
		ResponseWriter: w,
		Status:         http.StatusOK,
	}
}

// WriteHeader records code and writes the header.
func (ew *EnrichedResponseWriter) WriteHeader(code int) {
	ew.Status = code
	ew.ResponseWriter.WriteHeader(code)
}
