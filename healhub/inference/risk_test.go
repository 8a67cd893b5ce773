package inference

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRiskScore(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		sentiment float64
		want      float64
	}{
		{
			name:      "high risk phrases with very negative sentiment",
			text:      "I feel hopeless and I want to die",
			sentiment: -0.9,
			want:      0.8, // 0.3 + 0.3 + 0.2
		},
		{
			name:      "single medium keyword with mild sentiment",
			text:      "I have been pretty anxious lately",
			sentiment: 0.1,
			want:      0.1,
		},
		{
			name:      "moderately negative sentiment bump",
			text:      "work has been rough",
			sentiment: -0.4,
			want:      0.1,
		},
		{
			name:      "neutral text and sentiment",
			text:      "I went for a walk today",
			sentiment: 0.2,
			want:      0.0,
		},
		{
			name:      "score clamps at one",
			text:      "suicide, I want to die, no point, hopeless, better off dead",
			sentiment: -0.95,
			want:      1.0,
		},
		{
			name:      "matching is case insensitive",
			text:      "Everything feels HOPELESS",
			sentiment: 0.0,
			want:      0.3,
		},
		{
			name:      "apostrophe variant of cant go on",
			text:      "I can't go on like this",
			sentiment: 0.0,
			want:      0.3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RiskScore(tt.text, tt.sentiment)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestRiskScoreEmptyText(t *testing.T) {
	assert.Equal(t, 0.0, RiskScore("", 0.0))
}
