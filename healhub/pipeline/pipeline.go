// Package pipeline orchestrates a conversation turn: analyze the user's
// message, persist it, generate the assistant reply, and persist that too.
// Analysis and generation degrade independently so a model failure never
// loses a user's message.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/Jayayjay/HealHubChat/healhub/inference"
	inferenceports "github.com/Jayayjay/HealHubChat/healhub/inference/ports"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/panics"
)

// fallbackReply is persisted when generation fails outright, keeping the
// conversation record consistent instead of surfacing an error turn-less.
const fallbackReply = "I'm sorry, I'm having trouble responding right now. Please try again in a moment."

// Pipeline wires the conversation store to the inference service.
type Pipeline struct {
	store     inferenceports.ConversationStore
	inference InferenceService
	logger    zerolog.Logger
	history   int
}

// InferenceService is the inference surface the pipeline consumes.
type InferenceService interface {
	AnalyzeSentiment(ctx context.Context, text string) (inference.Sentiment, error)
	ComputeRiskScore(text string, sentimentScore float64) float64
	GenerateReply(ctx context.Context, history []inferenceports.Turn) (string, error)
}

// New creates a pipeline. historyLimit caps turns fetched per reply; zero
// means no cap.
func New(store inferenceports.ConversationStore, svc InferenceService, historyLimit int, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		store:     store,
		inference: svc,
		logger:    logger.With().Str("component", "pipeline").Logger(),
		history:   historyLimit,
	}
}

// TurnResult carries both persisted turns of a completed exchange.
type TurnResult struct {
	UserTurn      *inferenceports.Turn
	AssistantTurn *inferenceports.Turn
	// Degraded reports that analysis or generation fell back to defaults.
	Degraded bool
}

// HandleMessage runs one full exchange. Authorization and persistence
// failures are hard errors; analysis and generation failures degrade to
// neutral scores and a fallback reply respectively.
func (p *Pipeline) HandleMessage(ctx context.Context, userID, conversationID uuid.UUID, content string) (*TurnResult, error) {
	if content == "" {
		return nil, fmt.Errorf("message content cannot be empty")
	}

	// Ownership check doubles as existence check.
	if _, err := p.store.GetConversation(ctx, conversationID, userID); err != nil {
		return nil, err
	}

	sentiment, risk, degraded := p.analyzeOrDefault(ctx, content)

	userTurn := &inferenceports.Turn{
		ConversationID: conversationID,
		Role:           inferenceports.RoleUser,
		Content:        content,
		SentimentScore: &sentiment.Score,
		RiskScore:      &risk,
		Emotions:       map[string]string{"primary": sentiment.Label},
	}
	if err := p.store.PersistTurn(ctx, userTurn); err != nil {
		return nil, fmt.Errorf("failed to persist user turn: %w", err)
	}

	reply, replyDegraded := p.generateOrFallback(ctx, conversationID)
	degraded = degraded || replyDegraded

	assistantTurn := &inferenceports.Turn{
		ConversationID: conversationID,
		Role:           inferenceports.RoleAssistant,
		Content:        reply,
	}
	if err := p.store.PersistTurn(ctx, assistantTurn); err != nil {
		return nil, fmt.Errorf("failed to persist assistant turn: %w", err)
	}

	// Timestamp bump is best effort, the exchange is already durable.
	if err := p.store.TouchConversation(ctx, conversationID, time.Now().UTC()); err != nil {
		p.logger.Warn().Err(err).
			Str("conversation_id", conversationID.String()).
			Msg("Failed to touch conversation timestamp")
	}

	return &TurnResult{
		UserTurn:      userTurn,
		AssistantTurn: assistantTurn,
		Degraded:      degraded,
	}, nil
}

// analyzeOrDefault scores the message, containing panics from the native
// classifier runtime. Any failure yields neutral sentiment; risk is still
// computed from keywords so crisis phrases are never silently dropped.
func (p *Pipeline) analyzeOrDefault(ctx context.Context, content string) (inference.Sentiment, float64, bool) {
	sentiment := inference.NeutralSentiment()
	degraded := false

	var caught panics.Catcher
	caught.Try(func() {
		got, err := p.inference.AnalyzeSentiment(ctx, content)
		if err != nil {
			degraded = true
			return
		}
		sentiment = got
	})
	if r := caught.Recovered(); r != nil {
		p.logger.Error().Str("panic", r.String()).Msg("Sentiment analysis panicked")
		sentiment = inference.NeutralSentiment()
		degraded = true
	}

	risk := p.inference.ComputeRiskScore(content, sentiment.Score)
	return sentiment, risk, degraded
}

// generateOrFallback fetches history and generates the reply, containing
// panics from the generation backend. Any failure yields the fallback reply.
func (p *Pipeline) generateOrFallback(ctx context.Context, conversationID uuid.UUID) (string, bool) {
	history, err := p.store.FetchHistory(ctx, conversationID)
	if err != nil {
		p.logger.Error().Err(err).
			Str("conversation_id", conversationID.String()).
			Msg("Failed to fetch history, using fallback reply")
		return fallbackReply, true
	}
	if p.history > 0 && len(history) > p.history {
		history = history[len(history)-p.history:]
	}

	reply := fallbackReply
	degraded := true

	var caught panics.Catcher
	caught.Try(func() {
		got, err := p.inference.GenerateReply(ctx, history)
		if err != nil {
			p.logger.Error().Err(err).Msg("Generation failed, using fallback reply")
			return
		}
		reply = got
		degraded = false
	})
	if r := caught.Recovered(); r != nil {
		p.logger.Error().Str("panic", r.String()).Msg("Generation panicked, using fallback reply")
		reply = fallbackReply
		degraded = true
	}

	return reply, degraded
}
