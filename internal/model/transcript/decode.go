package transcript

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidSender is returned for a role that is neither user nor agent.
	ErrInvalidSender = errors.New("invalid sender")
	// ErrMissingField is returned when a turn lacks its role, timestamp or text.
	ErrMissingField = errors.New("missing field")
	// ErrInvalidTimestamp is returned for a timestamp in no accepted layout.
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	// ErrUnsupportedShape is returned when the document is not a known export layout.
	ErrUnsupportedShape = errors.New("unsupported transcript shape")
)

// Record is the wire form of one turn before validation. Exports disagree on
// the role key (sender vs user) and on nesting the turn under "message";
// encoding/json matches keys case-insensitively, which covers "Message" too.
type Record struct {
	Sender    *string         `json:"sender,omitempty"`
	User      *string         `json:"user,omitempty"`
	Timestamp json.RawMessage `json:"timestamp,omitempty"`
	Text      *string         `json:"text,omitempty"`
	Message   *Record         `json:"message,omitempty"`
}

// ToMessage validates the record and converts it into a Message.
func (r Record) ToMessage() (Message, error) {
	if r.Message != nil {
		return r.Message.ToMessage()
	}

	role := r.Sender
	if role == nil {
		role = r.User
	}
	if role == nil {
		return Message{}, fmt.Errorf("%w: sender", ErrMissingField)
	}
	sender, ok := ParseSender(*role)
	if !ok {
		return Message{}, fmt.Errorf("%w: %q", ErrInvalidSender, *role)
	}

	if r.Text == nil {
		return Message{}, fmt.Errorf("%w: text", ErrMissingField)
	}

	ts, err := parseTimestampValue(r.Timestamp)
	if err != nil {
		return Message{}, err
	}

	return Message{Sender: sender, Timestamp: ts, Text: *r.Text}, nil
}

type envelope struct {
	Messages     []Record  `json:"messages"`
	Conversation *envelope `json:"conversation"`
	Simulation   *struct {
		Conversations []envelope `json:"conversations"`
	} `json:"simulation"`
}

func (e *envelope) records() ([]Record, error) {
	switch {
	case e.Messages != nil:
		return e.Messages, nil
	case e.Conversation != nil:
		return e.Conversation.records()
	case e.Simulation != nil:
		if len(e.Simulation.Conversations) == 0 {
			return nil, fmt.Errorf("%w: simulation has no conversations", ErrUnsupportedShape)
		}
		return e.Simulation.Conversations[0].records()
	default:
		return nil, fmt.Errorf("%w: no messages found", ErrUnsupportedShape)
	}
}

// Decode reads a serialized conversation and normalizes it into a Transcript.
// Accepted layouts: a bare array of turns, {"messages": [...]},
// {"Conversation": {"Messages": [...]}} and
// {"Simulation": {"Conversations": [...]}}, of which the first conversation is used.
func Decode(r io.Reader) (Transcript, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	return Unmarshal(data)
}

// Unmarshal is Decode for an in-memory document.
func Unmarshal(data []byte) (Transcript, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrUnsupportedShape)
	}

	var records []Record
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("decode transcript: %w", err)
		}
	case '{':
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("decode transcript: %w", err)
		}
		found, err := env.records()
		if err != nil {
			return nil, err
		}
		records = found
	default:
		return nil, fmt.Errorf("%w: expected object or array", ErrUnsupportedShape)
	}

	return FromRecords(records)
}

// FromRecords validates every record, keeping their order.
func FromRecords(records []Record) (Transcript, error) {
	out := make(Transcript, 0, len(records))
	for i, rec := range records {
		msg, err := rec.ToMessage()
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		out = append(out, msg)
	}
	return out, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp parses the ISO-8601 variants found in transcript exports.
// Values without a zone are read as UTC.
func ParseTimestamp(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: timestamp", ErrMissingField)
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, value)
}

// parseTimestampValue accepts a JSON string or a number of epoch milliseconds.
func parseTimestampValue(raw json.RawMessage) (time.Time, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return time.Time{}, fmt.Errorf("%w: timestamp", ErrMissingField)
	}

	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidTimestamp, err)
		}
		return ParseTimestamp(s)
	}

	text := string(trimmed)
	if ms, err := strconv.ParseInt(text, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return time.UnixMilli(int64(f)).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w: %s", ErrInvalidTimestamp, text)
}
