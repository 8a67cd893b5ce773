package analytics

import (
	"context"
	"strings"
	"testing"
	"time"

	inferenceports "github.com/Jayayjay/HealHubChat/healhub/inference/ports"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	inferenceports.ConversationStore
	turns []inferenceports.Turn
}

func (f *fakeStore) ListUserTurnsSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]inferenceports.Turn, error) {
	var out []inferenceports.Turn
	for _, turn := range f.turns {
		if !turn.CreatedAt.Before(since) {
			out = append(out, turn)
		}
	}
	return out, nil
}

func floatPtr(v float64) *float64 { return &v }

func userTurn(content string, sentiment, risk float64, at time.Time) inferenceports.Turn {
	return inferenceports.Turn{
		ID:             uuid.New(),
		ConversationID: uuid.New(),
		Role:           inferenceports.RoleUser,
		Content:        content,
		SentimentScore: floatPtr(sentiment),
		RiskScore:      floatPtr(risk),
		CreatedAt:      at,
	}
}

func TestLevelForScore(t *testing.T) {
	assert.Equal(t, RiskCritical, LevelForScore(0.8))
	assert.Equal(t, RiskHigh, LevelForScore(0.65))
	assert.Equal(t, RiskMedium, LevelForScore(0.4))
	assert.Equal(t, RiskLow, LevelForScore(0.39))
}

func TestDashboardAggregatesPerDay(t *testing.T) {
	today := time.Now().UTC().Truncate(24 * time.Hour).Add(6 * time.Hour)
	yesterday := today.Add(-24 * time.Hour)

	store := &fakeStore{turns: []inferenceports.Turn{
		userTurn("a", -0.2, 0.1, today),
		userTurn("b", -0.6, 0.4, today),
		userTurn("c", 0.4, 0.0, yesterday),
	}}
	svc := New(store, zerolog.Nop())

	stats, err := svc.Dashboard(context.Background(), uuid.New(), 7)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	// Newest day first.
	assert.Equal(t, today.Format("2006-01-02"), stats[0].Date)
	assert.InDelta(t, -0.4, stats[0].AvgSentiment, 1e-9)
	assert.InDelta(t, 0.4, stats[0].MaxRisk, 1e-9)
	assert.Equal(t, 2, stats[0].MessageCount)

	assert.Equal(t, yesterday.Format("2006-01-02"), stats[1].Date)
	assert.InDelta(t, 0.4, stats[1].AvgSentiment, 1e-9)
	assert.Equal(t, 1, stats[1].MessageCount)
}

func TestDashboardCountsUnscoredTurns(t *testing.T) {
	now := time.Now().UTC()
	unscored := inferenceports.Turn{
		ID:        uuid.New(),
		Role:      inferenceports.RoleUser,
		Content:   "degraded",
		CreatedAt: now,
	}
	store := &fakeStore{turns: []inferenceports.Turn{
		userTurn("scored", 0.5, 0.1, now),
		unscored,
	}}
	svc := New(store, zerolog.Nop())

	stats, err := svc.Dashboard(context.Background(), uuid.New(), 7)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 2, stats[0].MessageCount)
	assert.InDelta(t, 0.5, stats[0].AvgSentiment, 1e-9, "unscored turns do not drag the average")
}

func TestRiskAlerts(t *testing.T) {
	now := time.Now().UTC()
	store := &fakeStore{turns: []inferenceports.Turn{
		userTurn("newest critical", -0.9, 0.9, now),
		userTurn("high", -0.6, 0.6, now.Add(-time.Hour)),
		userTurn("below threshold", -0.1, 0.2, now.Add(-2*time.Hour)),
		userTurn(strings.Repeat("x", 300), -0.7, 0.7, now.Add(-3*time.Hour)),
	}}
	svc := New(store, zerolog.Nop())

	alerts, err := svc.RiskAlerts(context.Background(), uuid.New(), 0.5, 10)
	require.NoError(t, err)
	require.Len(t, alerts, 3)

	assert.Equal(t, RiskCritical, alerts[0].Level)
	assert.Equal(t, "newest critical", alerts[0].Excerpt)
	assert.Equal(t, RiskHigh, alerts[1].Level)
	assert.Len(t, []rune(alerts[2].Excerpt), 200, "excerpts are capped")
}

func TestRiskAlertsCoverFullHistory(t *testing.T) {
	now := time.Now().UTC()
	store := &fakeStore{turns: []inferenceports.Turn{
		userTurn("recent", -0.6, 0.6, now),
		userTurn("two months back", -0.9, 0.9, now.AddDate(0, 0, -60)),
	}}
	svc := New(store, zerolog.Nop())

	alerts, err := svc.RiskAlerts(context.Background(), uuid.New(), 0.5, 10)
	require.NoError(t, err)
	require.Len(t, alerts, 2, "old alerts are not windowed out")
	assert.Equal(t, "two months back", alerts[1].Excerpt)
}

func TestRiskAlertsLimit(t *testing.T) {
	now := time.Now().UTC()
	var turns []inferenceports.Turn
	for i := 0; i < 15; i++ {
		turns = append(turns, userTurn("risky", -0.8, 0.8, now.Add(-time.Duration(i)*time.Minute)))
	}
	svc := New(&fakeStore{turns: turns}, zerolog.Nop())

	alerts, err := svc.RiskAlerts(context.Background(), uuid.New(), 0.5, 10)
	require.NoError(t, err)
	assert.Len(t, alerts, 10)
}
