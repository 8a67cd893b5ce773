package inference

import "strings"

// Keyword lists for crisis risk scoring. These are deliberately simple
// substring matches so the scorer stays deterministic and auditable.
var (
	highRiskKeywords = []string{
		"suicide", "kill myself", "end it all", "no point", "hopeless",
		"want to die", "better off dead", "cant go on", "can't go on",
	}

	mediumRiskKeywords = []string{
		"depressed", "anxious", "panic", "scared", "alone",
		"worthless", "helpless", "empty", "numb", "desperate", "overwhelmed",
	}
)

const (
	highRiskWeight   = 0.3
	mediumRiskWeight = 0.1
)

// RiskScore computes a crisis risk score in [0, 1] from message text and
// the already-computed sentiment score. Each matched high-risk phrase adds
// 0.3, each medium-risk phrase adds 0.1, and strongly negative sentiment
// adds a further bump. The sum is clamped at 1.0.
func RiskScore(text string, sentimentScore float64) float64 {
	lower := strings.ToLower(text)

	score := 0.0
	for _, kw := range highRiskKeywords {
		if strings.Contains(lower, kw) {
			score += highRiskWeight
		}
	}
	for _, kw := range mediumRiskKeywords {
		if strings.Contains(lower, kw) {
			score += mediumRiskWeight
		}
	}

	switch {
	case sentimentScore < -0.5:
		score += 0.2
	case sentimentScore < -0.3:
		score += 0.1
	}

	if score > 1.0 {
		return 1.0
	}
	return score
}
