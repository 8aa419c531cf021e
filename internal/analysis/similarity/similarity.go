// Package similarity scores how lexically repetitive a speaker is across turns
// using the mean pairwise Jaccard similarity of word n-gram sets.
package similarity

import (
	"errors"
	"strings"

	"github.com/zhouzirui/convo-eval/internal/model/transcript"
)

// DefaultOrder is the n-gram order used when none is configured.
const DefaultOrder = 1

// ErrInvalidOrder is returned for an n-gram order below 1.
var ErrInvalidOrder = errors.New("n-gram order must be at least 1")

// Set is a set of n-grams, each stored as its tokens joined by a single space.
type Set map[string]struct{}

// NGrams returns the distinct contiguous n-token windows of text, splitting on
// whitespace. Texts shorter than n tokens yield an empty set.
func NGrams(text string, n int) Set {
	tokens := strings.Fields(text)
	if n < 1 || len(tokens) < n {
		return Set{}
	}

	grams := make(Set, len(tokens)-n+1)
	for i := 0; i+n <= len(tokens); i++ {
		grams[strings.Join(tokens[i:i+n], " ")] = struct{}{}
	}
	return grams
}

// Jaccard returns |a∩b| / |a∪b|. ok is false when both sets are empty, where
// the ratio is undefined.
func Jaccard(a, b Set) (score float64, ok bool) {
	if len(a) == 0 && len(b) == 0 {
		return 0, false
	}
	if len(a) > len(b) {
		a, b = b, a
	}

	shared := 0
	for gram := range a {
		if _, found := b[gram]; found {
			shared++
		}
	}
	union := len(a) + len(b) - shared
	return float64(shared) / float64(union), true
}

// Average returns the mean Jaccard similarity over every unordered pair of
// utterances. Pairs where neither side has an n-gram are left out; with no
// comparable pair (including fewer than two utterances) the result is 0.
func Average(utterances []string, n int) (float64, error) {
	if n < 1 {
		return 0, ErrInvalidOrder
	}
	if len(utterances) < 2 {
		return 0, nil
	}

	sets := make([]Set, len(utterances))
	for i, text := range utterances {
		sets[i] = NGrams(text, n)
	}

	var total float64
	compared := 0
	for i := 0; i < len(sets); i++ {
		for j := i + 1; j < len(sets); j++ {
			score, ok := Jaccard(sets[i], sets[j])
			if !ok {
				continue
			}
			total += score
			compared++
		}
	}

	if compared == 0 {
		return 0, nil
	}
	return total / float64(compared), nil
}

// FromTranscript scores the agent turns of t.
func FromTranscript(t transcript.Transcript, n int) (float64, error) {
	return Average(t.AgentUtterances(), n)
}
