package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// EventWriter writes newline-delimited "data: <JSON>" events to an HTTP
// response, flushing after each event so clients see frames as they arrive.
type EventWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewEventWriter prepares w for event streaming and returns a writer.
// It returns an error if the underlying writer does not support flushing.
func NewEventWriter(w http.ResponseWriter) (*EventWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	return &EventWriter{w: w, flusher: flusher}, nil
}

// Send marshals v and writes it as one event frame.
func (e *EventWriter) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshalling event: %w", err)
	}
	if _, err := fmt.Fprintf(e.w, "data: %s\n", data); err != nil {
		return err
	}
	e.flusher.Flush()
	return nil
}
