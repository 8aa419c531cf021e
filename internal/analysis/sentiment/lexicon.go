package sentiment

import (
	"context"
	"math"
	"sort"
	"strings"
	"unicode"
)

// Polarity groups lexicon entries by the direction they push the score.
type Polarity int

const (
	Negative Polarity = -1
	Positive Polarity = 1
)

var keywordBuckets = map[Polarity][]string{
	Positive: {
		"good", "great", "excellent", "amazing", "awesome", "wonderful", "fantastic", "perfect",
		"glad", "happy", "pleased", "delighted", "love", "lovely", "nice", "welcome", "thanks",
		"thank", "appreciate", "helpful", "easy", "best", "sure", "certainly", "absolutely",
		"resolved", "confirmed", "success", "successful", "enjoy", "fine", "correct", "safe",
	},
	Negative: {
		"bad", "terrible", "awful", "horrible", "poor", "wrong", "unfortunately", "sorry",
		"problem", "issue", "error", "fail", "failed", "failure", "unable", "impossible",
		"annoyed", "angry", "upset", "sad", "disappointed", "frustrated", "frustrating",
		"hate", "worst", "difficult", "delay", "delayed", "cancelled", "canceled", "denied",
	},
}

// phraseBuckets hold multi-word entries, matched as token runs, and entries in
// scripts written without spaces, matched inside tokens.
var phraseBuckets = map[Polarity][]string{
	Positive: {
		"thank you", "happy to help", "glad to help", "my pleasure", "you're welcome",
		"开心", "高兴", "满意", "喜欢", "太好了", "谢谢",
	},
	Negative: {
		"not able to", "can't help", "cannot help", "went wrong", "no longer available",
		"难过", "失望", "生气", "糟糕", "抱歉",
	},
}

var intensifiers = map[string]float64{
	"very":       1.3,
	"really":     1.3,
	"extremely":  1.5,
	"so":         1.2,
	"truly":      1.3,
	"incredibly": 1.5,
}

var negators = map[string]struct{}{
	"not": {}, "no": {}, "never": {}, "don't": {}, "doesn't": {}, "didn't": {}, "isn't": {},
	"wasn't": {}, "aren't": {}, "can't": {}, "cannot": {}, "won't": {}, "nothing": {}, "without": {},
}

// negationReach is how many preceding tokens a negator can influence.
const negationReach = 3

// Lexicon is a deterministic keyword polarity scorer. It needs no model and is
// safe for concurrent use.
type Lexicon struct {
	words map[string]Polarity
	// phrases are multi-word entries, longest first.
	phrases []phrase
	// fragments are matched inside tokens, for scripts written without spaces.
	fragments map[string]Polarity
}

type phrase struct {
	tokens   []string
	polarity Polarity
}

// NewLexicon builds a Lexicon from the built-in keyword buckets.
func NewLexicon() *Lexicon {
	l := &Lexicon{
		words:     make(map[string]Polarity),
		fragments: make(map[string]Polarity),
	}
	for polarity, words := range keywordBuckets {
		for _, w := range words {
			l.words[strings.ToLower(w)] = polarity
		}
	}
	for polarity, entries := range phraseBuckets {
		for _, entry := range entries {
			tokens := tokenize(strings.ToLower(entry))
			if len(tokens) > 1 {
				l.phrases = append(l.phrases, phrase{tokens: tokens, polarity: polarity})
			} else if len(tokens) == 1 {
				l.fragments[tokens[0]] = polarity
			}
		}
	}
	sort.Slice(l.phrases, func(i, j int) bool {
		a, b := l.phrases[i].tokens, l.phrases[j].tokens
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return strings.Join(a, " ") < strings.Join(b, " ")
	})
	return l
}

// Polarity averages the weight of every sentiment-bearing word and phrase in
// text and returns a value in [-1, 1]. Text without any hit scores 0. Words
// inside a matched phrase only count through the phrase.
func (l *Lexicon) Polarity(_ context.Context, text string) (float64, error) {
	normalized := strings.TrimSpace(strings.ToLower(text))
	if normalized == "" {
		return 0, nil
	}

	tokens := tokenize(normalized)
	covered := make([]bool, len(tokens))

	var sum float64
	hits := 0

	for _, p := range l.phrases {
		for i := 0; i+len(p.tokens) <= len(tokens); i++ {
			if !matchAt(tokens, covered, i, p.tokens) {
				continue
			}
			for k := range p.tokens {
				covered[i+k] = true
			}
			sum += weigh(tokens, i, p.polarity)
			hits++
		}
	}

	for i, tok := range tokens {
		if covered[i] {
			continue
		}
		if polarity, ok := l.words[tok]; ok {
			sum += weigh(tokens, i, polarity)
			hits++
			continue
		}
		for fragment, polarity := range l.fragments {
			if n := strings.Count(tok, fragment); n > 0 {
				sum += float64(polarity) * float64(n)
				hits += n
			}
		}
	}

	if hits == 0 {
		return 0, nil
	}

	score := sum / float64(hits)
	// 感叹号放大已有的情绪倾向
	if exclamations := strings.Count(text, "!") + strings.Count(text, "！"); exclamations > 0 {
		score *= 1 + 0.1*math.Min(float64(exclamations), 3)
	}
	return clamp(score), nil
}

// matchAt reports whether want starts at tokens[i] without overlapping an
// earlier phrase.
func matchAt(tokens []string, covered []bool, i int, want []string) bool {
	for k, w := range want {
		if covered[i+k] || tokens[i+k] != w {
			return false
		}
	}
	return true
}

// weigh applies the intensifier right before position i and any negator
// within negationReach tokens before it.
func weigh(tokens []string, i int, polarity Polarity) float64 {
	weight := float64(polarity)
	if i > 0 {
		if boost, ok := intensifiers[tokens[i-1]]; ok {
			weight *= boost
		}
	}
	if negated(tokens, i) {
		weight *= -0.5
	}
	return weight
}

func negated(tokens []string, i int) bool {
	start := i - negationReach
	if start < 0 {
		start = 0
	}
	for _, tok := range tokens[start:i] {
		if _, ok := negators[tok]; ok {
			return true
		}
	}
	return false
}

func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

func clamp(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
