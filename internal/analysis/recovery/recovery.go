// Package recovery measures how reliably an agent gets a conversation back on
// track after leaving the user without a timely reply.
package recovery

import (
	"slices"
	"sort"
	"time"

	"github.com/zhouzirui/convo-eval/internal/model/transcript"
)

// DefaultWindow is the response budget used when none is configured.
const DefaultWindow = 5 * time.Minute

// Counts holds the raw tallies of a recovery scan.
type Counts struct {
	Timeouts   int `json:"timeouts"`
	Recoveries int `json:"recoveries"`
}

// Rate returns recoveries per timeout, or 1 when nothing timed out.
func (c Counts) Rate() float64 {
	if c.Timeouts == 0 {
		return 1.0
	}
	return float64(c.Recoveries) / float64(c.Timeouts)
}

// Rate scans t and returns its recovery rate for the given response window.
func Rate(t transcript.Transcript, window time.Duration) float64 {
	return Count(t, window).Rate()
}

// Count walks t in order. An unanswered user turn opens (or extends) a timeout
// episode; the next turn that is not an unanswered user turn closes it as a
// recovery.
func Count(t transcript.Transcript, window time.Duration) Counts {
	replies := agentReplyTimes(t)
	budget := window.Milliseconds()

	var counts Counts
	inTimeoutEpisode := false
	for _, m := range t {
		if m.Sender == transcript.User && !answered(replies, m.Millis(), budget) {
			counts.Timeouts++
			inTimeoutEpisode = true
			continue
		}
		if inTimeoutEpisode {
			counts.Recoveries++
			inTimeoutEpisode = false
		}
	}
	return counts
}

// agentReplyTimes returns every agent timestamp, sorted ascending. The lookup
// deliberately spans the whole transcript, not just the turns after the user
// message.
func agentReplyTimes(t transcript.Transcript) []int64 {
	times := make([]int64, 0, len(t))
	for _, m := range t {
		if m.Sender == transcript.Agent {
			times = append(times, m.Millis())
		}
	}
	slices.Sort(times)
	return times
}

// answered reports whether any reply falls in (sent, sent+budget].
func answered(replies []int64, sent, budget int64) bool {
	i := sort.Search(len(replies), func(i int) bool { return replies[i] > sent })
	return i < len(replies) && replies[i] <= sent+budget
}
