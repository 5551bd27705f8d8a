package stream

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Sink receives stream events in emission order
type Sink interface {
	Emit(Event) error
}

// Writer frames events onto an HTTP response using SSE framing:
// each event is written as "data: <json>\n\n" and flushed immediately
// so deltas reach the client without buffering.
type Writer struct {
	w http.ResponseWriter
	f http.Flusher
}

// NewWriter prepares an SSE response. It fails if the underlying
// ResponseWriter cannot flush, since streaming without flushing would
// buffer the whole response.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flushing")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache, no-transform")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	return &Writer{w: w, f: f}, nil
}

// Emit writes one framed event and flushes it
func (sw *Writer) Emit(ev Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	if _, err := fmt.Fprintf(sw.w, "data: %s\n\n", b); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}

	sw.f.Flush()
	return nil
}
