package event

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// StreamEvent is a single message on a progress stream. Data is JSON-encoded
// on the wire unless it is already a string.
type StreamEvent struct {
	Data  any
	Event string
	ID    string
	Retry int
}

// JobUpdate is the payload published for every job state change.
type JobUpdate struct {
	JobID     string  `json:"job_id"`
	Status    string  `json:"status"`
	Progress  float64 `json:"progress"`
	Message   string  `json:"message"`
	Timestamp string  `json:"timestamp"`
}

// Connected returns the synthetic event delivered first to every new subscriber.
func Connected() StreamEvent {
	return StreamEvent{
		Event: "connect",
		Data: map[string]string{
			"status":    "connected",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	}
}

// Encode serializes the event in Server-Sent Events wire format: optional
// id/event/retry header lines, one data line per payload line, terminated
// by a blank line.
func (e StreamEvent) Encode() string {
	var b strings.Builder

	if e.ID != "" {
		b.WriteString("id: " + e.ID + "\n")
	}
	if e.Event != "" {
		b.WriteString("event: " + e.Event + "\n")
	}
	if e.Retry > 0 {
		b.WriteString("retry: " + strconv.Itoa(e.Retry) + "\n")
	}

	data, ok := e.Data.(string)
	if !ok {
		raw, err := json.Marshal(e.Data)
		if err != nil {
			raw = []byte(`{}`)
		}
		data = string(raw)
	}
	for _, line := range strings.Split(data, "\n") {
		b.WriteString("data: " + line + "\n")
	}

	b.WriteString("\n")
	return b.String()
}
