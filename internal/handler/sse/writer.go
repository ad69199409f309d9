// Package sse implements server-sent-event responses for streaming
// chat turns.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Writer streams SSE events over an HTTP response. Every event is
// flushed immediately; buffering proxies are told not to interfere.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewWriter prepares the response for event streaming. Returns an
// error if the underlying writer cannot flush, in which case no
// headers have been written and the caller may still respond normally.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flushing")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	return &Writer{w: w, flusher: flusher}, nil
}

// Event writes a named event with a JSON payload and flushes it.
func (s *Writer) Event(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event, err)
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return fmt.Errorf("write %s event: %w", event, err)
	}
	s.flusher.Flush()
	return nil
}

// Comment writes an SSE comment line. Clients ignore comments; they
// exist to keep idle connections open through proxies.
func (s *Writer) Comment(text string) error {
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", text); err != nil {
		return fmt.Errorf("write comment: %w", err)
	}
	s.flusher.Flush()
	return nil
}
