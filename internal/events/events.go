// Package events is the in-process pub/sub behind the SSE endpoint.
package events

import (
	"encoding/json"
	"time"
)

// Event types.
const (
	RunStarted    = "run.started"
	RunFinished   = "run.finished"
	RunFailed     = "run.failed"
	IngestCurated = "ingest.curated"
	BackfillDone  = "backfill.done"
)

type Event struct {
	Type      string          `json:"type"`
	Version   int             `json:"v"`
	At        time.Time       `json:"at"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// MakeEvent renders one event as the JSON line sent to SSE clients.
func MakeEvent(reqID, typ string, v int, data any) string {
	var raw json.RawMessage
	if data != nil {
		b, _ := json.Marshal(data)
		raw = b
	}
	e := Event{
		Type:      typ,
		Version:   v,
		At:        time.Now().UTC(),
		RequestID: reqID,
		Data:      raw,
	}
	b, _ := json.Marshal(e)
	return string(b)
}
