package inferenceports

import "context"

// GenerateOptions controls sampling and output limits for a single completion.
type GenerateOptions struct {
	MaxNewTokens int
	Temperature  float32
	TopP         float32
}

// ChatModel is the abstraction for the loaded generation model. The prompt is
// already fully rendered; implementations only run text continuation.
type ChatModel interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
	Close() error
}

// Classification is a single label/score pair emitted by the sentiment model.
type Classification struct {
	Label string
	Score float64
}

// SentimentClassifier wraps the optional sentiment classification model.
// A nil classifier means the service operates in degraded (always neutral) mode.
type SentimentClassifier interface {
	Classify(ctx context.Context, text string) (Classification, error)
	Close() error
}
