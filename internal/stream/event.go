package stream

import (
	"encoding/json"
	"fmt"

	"repolens/internal/models"
)

// EventType identifies the variant of a stream event
type EventType string

const (
	EventMetadata EventType = "metadata"
	EventContent  EventType = "content"
	EventError    EventType = "error"
	EventDone     EventType = "done"
)

// MetadataPayload carries the repository snapshot emitted before any
// analysis text
type MetadataPayload struct {
	Metadata  *models.RepoMetadata `json:"metadata"`
	FileTree  []*models.FileNode   `json:"fileTree"`
	FileStats models.FileStats     `json:"fileStats"`
}

// Event is a tagged union with exactly four variants. Meta is set iff
// Type is EventMetadata, Delta iff EventContent, Message iff EventError.
// Events are immutable once constructed.
type Event struct {
	Type    EventType
	Meta    *MetadataPayload
	Delta   string
	Message string
}

// Metadata constructs the initial metadata event
func Metadata(meta *models.RepoMetadata, tree []*models.FileNode, stats models.FileStats) Event {
	return Event{
		Type: EventMetadata,
		Meta: &MetadataPayload{
			Metadata:  meta,
			FileTree:  tree,
			FileStats: stats,
		},
	}
}

// Content constructs a text delta event
func Content(delta string) Event {
	return Event{Type: EventContent, Delta: delta}
}

// Error constructs an in-band error event
func Error(message string) Event {
	return Event{Type: EventError, Message: message}
}

// Done constructs the terminal success event
func Done() Event {
	return Event{Type: EventDone}
}

// Terminal reports whether the event closes the stream
func (e Event) Terminal() bool {
	return e.Type == EventError || e.Type == EventDone
}

// wireEvent is the JSON shape of an event on the wire
type wireEvent struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// MarshalJSON serializes the event to its wire shape
func (e Event) MarshalJSON() ([]byte, error) {
	we := wireEvent{Type: e.Type}

	switch e.Type {
	case EventMetadata:
		data, err := json.Marshal(e.Meta)
		if err != nil {
			return nil, err
		}
		we.Data = data
	case EventContent:
		data, err := json.Marshal(e.Delta)
		if err != nil {
			return nil, err
		}
		we.Data = data
	case EventError:
		data, err := json.Marshal(e.Message)
		if err != nil {
			return nil, err
		}
		we.Data = data
	case EventDone:
		// no payload
	default:
		return nil, fmt.Errorf("unknown event type: %q", e.Type)
	}

	return json.Marshal(we)
}

// UnmarshalJSON parses an event from its wire shape
func (e *Event) UnmarshalJSON(b []byte) error {
	var we wireEvent
	if err := json.Unmarshal(b, &we); err != nil {
		return err
	}

	*e = Event{Type: we.Type}

	switch we.Type {
	case EventMetadata:
		meta := &MetadataPayload{}
		if err := json.Unmarshal(we.Data, meta); err != nil {
			return fmt.Errorf("decoding metadata payload: %w", err)
		}
		e.Meta = meta
	case EventContent:
		if err := json.Unmarshal(we.Data, &e.Delta); err != nil {
			return fmt.Errorf("decoding content delta: %w", err)
		}
	case EventError:
		if err := json.Unmarshal(we.Data, &e.Message); err != nil {
			return fmt.Errorf("decoding error message: %w", err)
		}
	case EventDone:
		// no payload
	default:
		return fmt.Errorf("unknown event type: %q", we.Type)
	}

	return nil
}
