package transcript

import (
	"strings"
	"time"
)

// Sender identifies who authored a turn.
type Sender string

const (
	User  Sender = "User"
	Agent Sender = "Agent"
)

// ParseSender normalizes the role spellings seen across transcript exports
// ("User", "USER", "agent", "AGENT", "assistant").
func ParseSender(raw string) (Sender, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "user":
		return User, true
	case "agent", "assistant":
		return Agent, true
	default:
		return "", false
	}
}

// Message is a single validated turn of a conversation.
type Message struct {
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
}

// Millis returns the timestamp at the millisecond resolution used for matching.
func (m Message) Millis() int64 {
	return m.Timestamp.UnixMilli()
}

// Transcript is an ordered conversation in ingestion order. Timestamps are not
// guaranteed to be monotonic.
type Transcript []Message

// Texts returns the text of every turn written by sender, in transcript order.
func (t Transcript) Texts(sender Sender) []string {
	texts := make([]string, 0, len(t))
	for _, m := range t {
		if m.Sender == sender {
			texts = append(texts, m.Text)
		}
	}
	return texts
}

// AgentUtterances is shorthand for Texts(Agent).
func (t Transcript) AgentUtterances() []string {
	return t.Texts(Agent)
}

// Clone returns a copy that does not share backing storage with t.
func (t Transcript) Clone() Transcript {
	if t == nil {
		return nil
	}
	copied := make(Transcript, len(t))
	copy(copied, t)
	return copied
}
