package api

import (
	"encoding/json"

	"github.com/labstack/echo/v4"

	"scribeflow/backend/pkg/models"
)

// ndjsonSink implements services.ExecutionSink over a long-lived HTTP
// response: one JSON object per line, flushed after every event so the
// client sees tokens as they arrive.
type ndjsonSink struct {
	resp     *echo.Response
	enc      *json.Encoder
	terminal bool // a done or error event has been written
}

func newNDJSONSink(resp *echo.Response) *ndjsonSink {
	return &ndjsonSink{resp: resp, enc: json.NewEncoder(resp)}
}

func (s *ndjsonSink) send(event any) error {
	if err := s.enc.Encode(event); err != nil {
		return err
	}
	s.resp.Flush()
	return nil
}

func (s *ndjsonSink) Content(chunk string) error {
	return s.send(map[string]any{"content": chunk})
}

func (s *ndjsonSink) Step(index int) error {
	return s.send(map[string]any{"stepIndex": index})
}

func (s *ndjsonSink) Done(doc *models.Document) error {
	s.terminal = true
	return s.send(map[string]any{"done": true, "document": doc})
}

func (s *ndjsonSink) Fail(message string) error {
	s.terminal = true
	return s.send(map[string]any{"error": message})
}
