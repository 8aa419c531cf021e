package recovery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/zhouzirui/convo-eval/internal/model/transcript"
)

var t0 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func msg(sender transcript.Sender, offset time.Duration, text string) transcript.Message {
	return transcript.Message{Sender: sender, Timestamp: t0.Add(offset), Text: text}
}

func TestRateEmptyTranscript(t *testing.T) {
	assert.Equal(t, Counts{}, Count(nil, DefaultWindow))
	assert.Equal(t, 1.0, Rate(nil, DefaultWindow))
}

func TestRateAgentOnly(t *testing.T) {
	conv := transcript.Transcript{
		msg(transcript.Agent, 0, "welcome"),
		msg(transcript.Agent, time.Hour, "still there?"),
	}
	assert.Equal(t, 1.0, Rate(conv, DefaultWindow))
}

func TestRateAnsweredPromptly(t *testing.T) {
	conv := transcript.Transcript{
		msg(transcript.User, 0, "hi"),
		msg(transcript.Agent, time.Second, "hello"),
	}

	counts := Count(conv, 300000*time.Millisecond)
	assert.Equal(t, 0, counts.Timeouts)
	assert.Equal(t, 1.0, counts.Rate())
}

func TestRateNeverAnswered(t *testing.T) {
	conv := transcript.Transcript{msg(transcript.User, 0, "hi")}

	counts := Count(conv, 300000*time.Millisecond)
	assert.Equal(t, Counts{Timeouts: 1, Recoveries: 0}, counts)
	assert.Equal(t, 0.0, counts.Rate())
}

func TestRateEveryUserTurnAnswered(t *testing.T) {
	conv := transcript.Transcript{
		msg(transcript.User, 0, "a"),
		msg(transcript.Agent, 10*time.Second, "b"),
		msg(transcript.User, time.Minute, "c"),
		msg(transcript.Agent, 2*time.Minute, "d"),
		msg(transcript.User, 3*time.Minute, "e"),
		msg(transcript.Agent, 7*time.Minute, "f"),
	}
	assert.Equal(t, 1.0, Rate(conv, DefaultWindow))
}

func TestWindowBoundaries(t *testing.T) {
	window := 300000 * time.Millisecond

	tests := []struct {
		name     string
		reply    time.Duration
		timeouts int
	}{
		{name: "same instant does not count", reply: 0, timeouts: 1},
		{name: "one millisecond later counts", reply: time.Millisecond, timeouts: 0},
		{name: "exactly at window end counts", reply: window, timeouts: 0},
		{name: "one millisecond past window", reply: window + time.Millisecond, timeouts: 1},
		{name: "reply earlier than prompt", reply: -time.Second, timeouts: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv := transcript.Transcript{
				msg(transcript.User, 0, "ping"),
				msg(transcript.Agent, tt.reply, "pong"),
			}
			assert.Equal(t, tt.timeouts, Count(conv, window).Timeouts)
		})
	}
}

func TestConsecutiveTimeoutsFormOneEpisode(t *testing.T) {
	conv := transcript.Transcript{
		msg(transcript.User, 0, "hello?"),
		msg(transcript.User, 10*time.Minute, "anyone?"),
		msg(transcript.User, 20*time.Minute, "..."),
		msg(transcript.Agent, 40*time.Minute, "sorry for the wait"),
	}

	counts := Count(conv, DefaultWindow)
	assert.Equal(t, Counts{Timeouts: 3, Recoveries: 1}, counts)
	assert.InDelta(t, 1.0/3.0, counts.Rate(), 1e-12)
}

func TestAnsweredUserTurnEndsEpisode(t *testing.T) {
	conv := transcript.Transcript{
		msg(transcript.User, 0, "first"),
		msg(transcript.User, 20*time.Minute, "second"),
		msg(transcript.Agent, 21*time.Minute, "reply"),
		msg(transcript.User, 60*time.Minute, "third"),
	}

	// "second" is answered, so it closes the episode opened by "first";
	// "third" opens a new one that never closes.
	assert.Equal(t, Counts{Timeouts: 2, Recoveries: 1}, Count(conv, DefaultWindow))
}

func TestOutOfOrderReplyAnswersEarlierTurn(t *testing.T) {
	// The agent reply sits before the user turn in the sequence but carries a
	// later timestamp; it still answers.
	conv := transcript.Transcript{
		msg(transcript.Agent, 30*time.Second, "answer"),
		msg(transcript.User, 0, "question"),
	}
	assert.Equal(t, Counts{}, Count(conv, DefaultWindow))
}

func TestRecoveriesNeverExceedTimeouts(t *testing.T) {
	conv := transcript.Transcript{
		msg(transcript.User, 0, "a"),
		msg(transcript.Agent, time.Hour, "b"),
		msg(transcript.Agent, 2*time.Hour, "c"),
		msg(transcript.User, 3*time.Hour, "d"),
		msg(transcript.Agent, 4*time.Hour, "e"),
	}

	counts := Count(conv, DefaultWindow)
	assert.Equal(t, Counts{Timeouts: 2, Recoveries: 2}, counts)
	assert.LessOrEqual(t, counts.Recoveries, counts.Timeouts)
}
