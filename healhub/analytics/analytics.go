// Package analytics aggregates per-user wellbeing trends from persisted
// conversation turns.
package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	inferenceports "github.com/Jayayjay/HealHubChat/healhub/inference/ports"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// RiskLevel buckets a risk score for alerting.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// LevelForScore maps a risk score to its alert level.
func LevelForScore(score float64) RiskLevel {
	switch {
	case score >= 0.8:
		return RiskCritical
	case score >= 0.6:
		return RiskHigh
	case score >= 0.4:
		return RiskMedium
	default:
		return RiskLow
	}
}

// DailyStat summarizes one day of a user's messages.
type DailyStat struct {
	Date         string // YYYY-MM-DD, UTC
	AvgSentiment float64
	MaxRisk      float64
	MessageCount int
}

// RiskAlert flags a single high-risk message.
type RiskAlert struct {
	ConversationID uuid.UUID
	Level          RiskLevel
	Score          float64
	Excerpt        string // message content, capped
	Timestamp      time.Time
}

const excerptLimit = 200

// Service computes analytics over the conversation store.
type Service struct {
	store  inferenceports.ConversationStore
	logger zerolog.Logger
}

func New(store inferenceports.ConversationStore, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.With().Str("component", "analytics").Logger(),
	}
}

// Dashboard aggregates the user's turns from the last `days` days into
// per-day sentiment and risk summaries, newest day first. Turns without
// scores (degraded analysis) are counted but excluded from the aggregates.
func (s *Service) Dashboard(ctx context.Context, userID uuid.UUID, days int) ([]DailyStat, error) {
	if days <= 0 {
		days = 7
	}
	since := time.Now().UTC().AddDate(0, 0, -days)

	turns, err := s.store.ListUserTurnsSince(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load turns for dashboard: %w", err)
	}

	type bucket struct {
		sentiments []float64
		risks      []float64
		count      int
	}
	buckets := make(map[string]*bucket)
	for _, turn := range turns {
		day := turn.CreatedAt.UTC().Format("2006-01-02")
		b := buckets[day]
		if b == nil {
			b = &bucket{}
			buckets[day] = b
		}
		b.count++
		if turn.SentimentScore != nil {
			b.sentiments = append(b.sentiments, *turn.SentimentScore)
		}
		if turn.RiskScore != nil {
			b.risks = append(b.risks, *turn.RiskScore)
		}
	}

	stats := make([]DailyStat, 0, len(buckets))
	for day, b := range buckets {
		ds := DailyStat{Date: day, MessageCount: b.count}
		if len(b.sentiments) > 0 {
			ds.AvgSentiment = stat.Mean(b.sentiments, nil)
		}
		if len(b.risks) > 0 {
			ds.MaxRisk = floats.Max(b.risks)
		}
		stats = append(stats, ds)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Date > stats[j].Date })

	return stats, nil
}

// RiskAlerts returns the user's most recent messages at or above threshold,
// newest first, capped at limit.
func (s *Service) RiskAlerts(ctx context.Context, userID uuid.UUID, threshold float64, limit int) ([]RiskAlert, error) {
	if limit <= 0 {
		limit = 10
	}
	if threshold <= 0 {
		threshold = 0.5
	}

	// Alerts scan the user's full history, the cap keeps the result small.
	turns, err := s.store.ListUserTurnsSince(ctx, userID, time.Unix(0, 0).UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to load turns for alerts: %w", err)
	}

	var alerts []RiskAlert
	for _, turn := range turns {
		if turn.RiskScore == nil || *turn.RiskScore < threshold {
			continue
		}
		alerts = append(alerts, RiskAlert{
			ConversationID: turn.ConversationID,
			Level:          LevelForScore(*turn.RiskScore),
			Score:          *turn.RiskScore,
			Excerpt:        truncate(turn.Content, excerptLimit),
			Timestamp:      turn.CreatedAt,
		})
		if len(alerts) == limit {
			break
		}
	}
	return alerts, nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
