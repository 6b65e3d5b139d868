package realtime

import (
	"encoding/json"
	"time"
)

type EventType string

const (
	EventCSVListUpdated EventType = "csv_list_updated"
)

type Action string

const (
	ActionUpload Action = "upload"
	ActionDelete Action = "delete"
)

// Event is an immutable state-change notification. Fields are flattened next to
// "type" and "action" on the wire.
type Event struct {
	Type   EventType
	Action Action
	fields map[string]any
}

// FileSummary is the "file" object carried by upload events.
type FileSummary struct {
	ID         uint   `json:"id"`
	Filename   string `json:"filename"`
	Size       int64  `json:"size"`
	UploadDate string `json:"upload_date"`
}

func NewEvent(typ EventType, action Action, fields map[string]any) Event {
	copied := make(map[string]any, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	return Event{Type: typ, Action: action, fields: copied}
}

func NewFileSummary(id uint, filename string, size int64, uploaded time.Time) FileSummary {
	return FileSummary{
		ID:         id,
		Filename:   filename,
		Size:       size,
		UploadDate: uploaded.UTC().Format(time.RFC3339),
	}
}

func NewUploadEvent(file FileSummary) Event {
	return NewEvent(EventCSVListUpdated, ActionUpload, map[string]any{"file": file})
}

func NewDeleteEvent(id uint) Event {
	return NewEvent(EventCSVListUpdated, ActionDelete, map[string]any{
		"file_id": id,
	})
}

// Field returns an event-specific field.
func (e Event) Field(key string) (any, bool) {
	v, ok := e.fields[key]
	return v, ok
}

func (e Event) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.fields)+2)
	for k, v := range e.fields {
		out[k] = v
	}
	out["type"] = e.Type
	out["action"] = e.Action
	return json.Marshal(out)
}
