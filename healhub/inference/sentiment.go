package inference

import (
	"context"
	"strings"

	inferenceports "github.com/Jayayjay/HealHubChat/healhub/inference/ports"
	"github.com/rs/zerolog"
)

// maxSentimentChars bounds classifier input length. Longer messages are
// truncated so they fit the classifier's sequence limit.
const DefaultMaxSentimentChars = 512

const neutralLabel = "NEUTRAL"

// Sentiment is a signed sentiment result. Score is positive for positive
// sentiment and negative otherwise, in [-1, 1].
type Sentiment struct {
	Label string
	Score float64
}

// NeutralSentiment is the degraded-mode result when no classifier is
// available or classification fails.
func NeutralSentiment() Sentiment {
	return Sentiment{Label: neutralLabel, Score: 0.0}
}

// SentimentAnalyzer scores message sentiment, degrading to neutral when the
// underlying classifier is missing or fails.
type SentimentAnalyzer struct {
	classifier inferenceports.SentimentClassifier
	maxChars   int
	logger     zerolog.Logger
}

// NewSentimentAnalyzer wraps a classifier. A nil classifier yields a
// permanently degraded analyzer that always reports neutral.
func NewSentimentAnalyzer(classifier inferenceports.SentimentClassifier, maxChars int, logger zerolog.Logger) *SentimentAnalyzer {
	if maxChars <= 0 {
		maxChars = DefaultMaxSentimentChars
	}
	return &SentimentAnalyzer{
		classifier: classifier,
		maxChars:   maxChars,
		logger:     logger,
	}
}

// Degraded reports whether the analyzer has no classifier and only returns
// neutral results.
func (a *SentimentAnalyzer) Degraded() bool {
	return a.classifier == nil
}

// Analyze classifies the text's sentiment. Classifier failures are logged
// and mapped to neutral rather than propagated, so a broken sentiment model
// never blocks the conversation.
func (a *SentimentAnalyzer) Analyze(ctx context.Context, text string) Sentiment {
	if a.classifier == nil {
		return NeutralSentiment()
	}

	truncated := truncateRunes(text, a.maxChars)

	result, err := a.classifier.Classify(ctx, truncated)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Sentiment classification failed, returning neutral")
		return NeutralSentiment()
	}

	score := result.Score
	if !strings.EqualFold(result.Label, "POSITIVE") {
		score = -score
	}

	return Sentiment{Label: result.Label, Score: score}
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
