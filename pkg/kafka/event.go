package kafka

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is stamped on every event envelope.
const SchemaVersion = 1

// Subject names the record an event is about. Its ID is the message key, so
// all events of one review or booking land on the same partition in order.
type Subject struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// Event is the JSON envelope of every published message.
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Subject       Subject         `json:"subject"`
	Source        string          `json:"source"`
	SchemaVersion int             `json:"schema_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Actor         string          `json:"actor,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEvent wraps payload in an envelope with a fresh id.
func NewEvent(eventType string, subject Subject, source string, payload any) (*Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		Subject:       subject,
		Source:        source,
		SchemaVersion: SchemaVersion,
		OccurredAt:    time.Now().UTC(),
		Payload:       raw,
	}, nil
}

// Key returns the partition key.
func (e *Event) Key() []byte {
	return []byte(e.Subject.ID)
}

// DecodeEvent parses an envelope read from a topic.
func DecodeEvent(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return &e, nil
}

// DecodePayload unmarshals the payload into target.
func (e *Event) DecodePayload(target any) error {
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

// Topic joins name segments with dots, e.g. Topic("salon", "reviews").
func Topic(parts ...string) string {
	return strings.Join(parts, ".")
}
