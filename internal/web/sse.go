package web

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// sseWriter emits newline-delimited text-event frames (the EventSource wire
// format) and flushes after every frame so the client sees pushes
// immediately.
type sseWriter struct {
	w http.ResponseWriter
	f http.Flusher
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	f.Flush()
	return &sseWriter{w: w, f: f}, nil
}

// Event writes one frame. id is the resumption identifier and may be empty.
func (s *sseWriter) Event(id, data string) error {
	if id != "" {
		if _, err := fmt.Fprintf(s.w, "id: %s\n", id); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	s.f.Flush()
	return nil
}

// JSON writes one frame with a JSON payload.
func (s *sseWriter) JSON(id string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Event(id, string(b))
}

// Error writes the terminal error frame. The stream must close right after.
func (s *sseWriter) Error(msg string) {
	_ = s.JSON("", map[string]string{"error": msg})
}
