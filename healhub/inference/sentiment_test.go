package inference

import (
	"context"
	"errors"
	"strings"
	"testing"

	inferenceports "github.com/Jayayjay/HealHubChat/healhub/inference/ports"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type stubClassifier struct {
	result   inferenceports.Classification
	err      error
	lastText string
}

func (s *stubClassifier) Classify(ctx context.Context, text string) (inferenceports.Classification, error) {
	s.lastText = text
	return s.result, s.err
}

func (s *stubClassifier) Close() error { return nil }

func TestSentimentAnalyzerSignsScore(t *testing.T) {
	tests := []struct {
		name  string
		label string
		score float64
		want  float64
	}{
		{"positive label keeps sign", "POSITIVE", 0.92, 0.92},
		{"negative label flips sign", "NEGATIVE", 0.85, -0.85},
		{"lowercase positive keeps sign", "positive", 0.6, 0.6},
		{"unknown label flips sign", "LABEL_1", 0.4, -0.4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubClassifier{result: inferenceports.Classification{Label: tt.label, Score: tt.score}}
			analyzer := NewSentimentAnalyzer(stub, 0, zerolog.Nop())

			got := analyzer.Analyze(context.Background(), "some message")

			assert.Equal(t, tt.label, got.Label)
			assert.InDelta(t, tt.want, got.Score, 1e-9)
		})
	}
}

func TestSentimentAnalyzerTruncatesInput(t *testing.T) {
	stub := &stubClassifier{result: inferenceports.Classification{Label: "POSITIVE", Score: 0.5}}
	analyzer := NewSentimentAnalyzer(stub, 512, zerolog.Nop())

	long := strings.Repeat("a", 600)
	analyzer.Analyze(context.Background(), long)

	assert.Len(t, []rune(stub.lastText), 512)
}

func TestSentimentAnalyzerDegradesOnError(t *testing.T) {
	stub := &stubClassifier{err: errors.New("onnx runtime exploded")}
	analyzer := NewSentimentAnalyzer(stub, 0, zerolog.Nop())

	got := analyzer.Analyze(context.Background(), "hello")

	assert.Equal(t, NeutralSentiment(), got)
}

func TestSentimentAnalyzerNilClassifierIsDegraded(t *testing.T) {
	analyzer := NewSentimentAnalyzer(nil, 0, zerolog.Nop())

	assert.True(t, analyzer.Degraded())
	assert.Equal(t, NeutralSentiment(), analyzer.Analyze(context.Background(), "hello"))
}
