package timing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/zhouzirui/convo-eval/internal/model/transcript"
)

func TestAverageResponseTime(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	conv := transcript.Transcript{
		{Sender: transcript.Agent, Timestamp: t0, Text: "welcome"},
		{Sender: transcript.User, Timestamp: t0.Add(5 * time.Second), Text: "hi"},
		{Sender: transcript.Agent, Timestamp: t0.Add(7 * time.Second), Text: "hello"},
		{Sender: transcript.User, Timestamp: t0.Add(20 * time.Second), Text: "book it"},
		{Sender: transcript.Agent, Timestamp: t0.Add(24 * time.Second), Text: "done"},
		{Sender: transcript.Agent, Timestamp: t0.Add(30 * time.Second), Text: "anything else?"},
	}

	// gaps: 2s, 4s, 6s
	assert.Equal(t, 4*time.Second, AverageResponseTime(conv))
	assert.Equal(t, 6, MessageCount(conv))
}

func TestAverageResponseTimeDegenerate(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Duration(0), AverageResponseTime(nil))
	assert.Equal(t, time.Duration(0), AverageResponseTime(transcript.Transcript{
		{Sender: transcript.Agent, Timestamp: t0},
	}))
	assert.Equal(t, time.Duration(0), AverageResponseTime(transcript.Transcript{
		{Sender: transcript.Agent, Timestamp: t0},
		{Sender: transcript.User, Timestamp: t0.Add(time.Second)},
	}))
}
