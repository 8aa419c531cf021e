// Package timing derives pacing statistics from a transcript.
package timing

import (
	"time"

	"github.com/zhouzirui/convo-eval/internal/model/transcript"
)

// AverageResponseTime is the mean gap between each agent turn and the turn
// right before it, in transcript order. It is zero when fewer than two turns
// exist or no agent turn follows another turn.
func AverageResponseTime(t transcript.Transcript) time.Duration {
	if len(t) < 2 {
		return 0
	}

	var total time.Duration
	replies := 0
	for i := 1; i < len(t); i++ {
		if t[i].Sender != transcript.Agent {
			continue
		}
		total += t[i].Timestamp.Sub(t[i-1].Timestamp)
		replies++
	}

	if replies == 0 {
		return 0
	}
	return total / time.Duration(replies)
}

// MessageCount returns the number of turns in t.
func MessageCount(t transcript.Transcript) int {
	return len(t)
}
