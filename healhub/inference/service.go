package inference

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Jayayjay/HealHubChat/healhub/config"
	"github.com/Jayayjay/HealHubChat/healhub/inference/adapters"
	"github.com/Jayayjay/HealHubChat/healhub/inference/loader"
	"github.com/Jayayjay/HealHubChat/healhub/inference/models"
	inferenceports "github.com/Jayayjay/HealHubChat/healhub/inference/ports"
	"github.com/rs/zerolog"
)

// State tracks the service lifecycle. FAILED is terminal: a service that
// failed to load never serves inference and must be rebuilt to retry.
type State int32

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "UNINITIALIZED"
	case StateLoading:
		return "LOADING"
	case StateReady:
		return "READY"
	case StateFailed:
		return "FAILED"
	case StateClosed:
		return "CLOSED"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// ChatModelFactory builds the generation backend from a detected bundle.
type ChatModelFactory func(cfg *models.ChatConfig) (inferenceports.ChatModel, error)

// ClassifierFactory builds the sentiment backend from a model directory.
type ClassifierFactory func(modelPath string) (inferenceports.SentimentClassifier, error)

// Service is the conversational inference façade. It owns model loading,
// prompt construction, reply generation, sentiment analysis, and risk
// scoring, and degrades gracefully when the sentiment model is missing.
type Service struct {
	cfg    *config.Config
	logger zerolog.Logger
	tracer inferenceports.Tracer

	chatFactory       ChatModelFactory
	classifierFactory ClassifierFactory
	prompt            *PromptBuilder

	mu       sync.Mutex
	state    State
	initErr  error
	initDone chan struct{}

	chat      inferenceports.ChatModel
	sentiment *SentimentAnalyzer
	bundle    *loader.ModelBundle
}

// NewService wires a service against the real backends.
func NewService(cfg *config.Config, logger zerolog.Logger) *Service {
	svc := NewServiceWithBackends(cfg, logger,
		func(mc *models.ChatConfig) (inferenceports.ChatModel, error) {
			return models.NewLlamaProvider(mc)
		},
		func(modelPath string) (inferenceports.SentimentClassifier, error) {
			return adapters.NewHugotClassifier(modelPath, logger)
		},
	)
	svc.tracer = adapters.NewZerologTracer(logger)
	return svc
}

// NewServiceWithBackends allows injecting the model factories. Tests use
// this to count loads and stub generation; spans are discarded unless a
// tracer is wired as in NewService.
func NewServiceWithBackends(cfg *config.Config, logger zerolog.Logger, chatFactory ChatModelFactory, classifierFactory ClassifierFactory) *Service {
	return &Service{
		cfg:               cfg,
		logger:            logger.With().Str("component", "inference").Logger(),
		tracer:            adapters.NoopTracer{},
		chatFactory:       chatFactory,
		classifierFactory: classifierFactory,
		prompt:            NewPromptBuilder(),
		state:             StateUninitialized,
	}
}

// State returns the current lifecycle state.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Initialize loads the chat and sentiment models. Concurrent callers share
// a single load: exactly one goroutine performs the work and the rest block
// until it settles. After a failure the service stays FAILED and every
// later call returns the original error.
func (s *Service) Initialize(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateReady:
		s.mu.Unlock()
		return nil
	case StateFailed:
		err := s.initErr
		s.mu.Unlock()
		return err
	case StateClosed:
		s.mu.Unlock()
		return ErrServiceClosed
	case StateLoading:
		done := s.initDone
		s.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
		s.mu.Lock()
		err := s.initErr
		s.mu.Unlock()
		return err
	}

	s.state = StateLoading
	s.initDone = make(chan struct{})
	done := s.initDone
	s.mu.Unlock()

	err := s.load(ctx)

	s.mu.Lock()
	switch {
	case s.state == StateClosed:
		// Close raced the load and already released whatever load stored.
		s.initErr = ErrServiceClosed
	case err != nil:
		s.state = StateFailed
		s.initErr = fmt.Errorf("%w: %v", ErrServiceFailed, err)
	default:
		s.state = StateReady
	}
	result := s.initErr
	s.mu.Unlock()
	close(done)

	return result
}

func (s *Service) load(ctx context.Context) error {
	ctx, finish := s.tracer.StartSpan(ctx, "inference.load", map[string]any{
		"model_path": s.cfg.Inference.ModelPath,
	})

	start := time.Now()
	ldr, err := loader.New(s.logger)
	if err != nil {
		finish(err)
		return err
	}

	bundle, err := ldr.Load(s.cfg.Inference.ModelPath, s.cfg.Inference.BaseModelPath, s.cfg.Sentiment.ModelPath)
	if err != nil {
		finish(err)
		return err
	}

	chatCfg := models.ConfigFromBundle(bundle)
	chatCfg.ContextSize = s.cfg.Inference.ContextSize
	chatCfg.Threads = s.cfg.Inference.Threads
	chatCfg.GPULayers = s.cfg.Inference.GPULayers
	chatCfg.MaxTokens = s.cfg.Inference.MaxNewTokens
	chatCfg.Temperature = s.cfg.Inference.Temperature
	chatCfg.TopP = s.cfg.Inference.TopP
	chatCfg.PoolSize = s.cfg.Inference.PoolSize
	if err := models.ValidateConfig(chatCfg); err != nil {
		finish(err)
		return err
	}

	chat, err := s.chatFactory(chatCfg)
	if err != nil {
		finish(err)
		return fmt.Errorf("chat model load failed: %w", err)
	}

	// Sentiment is optional. A missing or broken sentiment model degrades
	// analysis to neutral instead of failing the whole service.
	var classifier inferenceports.SentimentClassifier
	if !bundle.SentimentDegraded {
		classifier, err = s.classifierFactory(bundle.SentimentPath)
		if err != nil {
			s.logger.Warn().Err(err).
				Str("sentiment_path", bundle.SentimentPath).
				Msg("Sentiment model load failed, running degraded")
			classifier = nil
		}
	}

	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		if cerr := chat.Close(); cerr != nil {
			s.logger.Warn().Err(cerr).Msg("Chat model close failed after shutdown")
		}
		if classifier != nil {
			if cerr := classifier.Close(); cerr != nil {
				s.logger.Warn().Err(cerr).Msg("Sentiment model close failed after shutdown")
			}
		}
		finish(ErrServiceClosed)
		return ErrServiceClosed
	}
	s.chat = chat
	s.sentiment = NewSentimentAnalyzer(classifier, s.cfg.Sentiment.MaxChars, s.logger)
	s.bundle = bundle
	s.mu.Unlock()

	s.tracer.Event(ctx, "inference.loaded", map[string]any{
		"bundle_kind":        string(bundle.Kind),
		"sentiment_degraded": classifier == nil,
		"duration_ms":        time.Since(start).Milliseconds(),
	})
	finish(nil)
	return nil
}

func (s *Service) ready() (inferenceports.ChatModel, *SentimentAnalyzer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateReady:
		return s.chat, s.sentiment, nil
	case StateFailed:
		return nil, nil, s.initErr
	case StateClosed:
		return nil, nil, ErrServiceClosed
	default:
		return nil, nil, ErrServiceNotReady
	}
}

// GenerateReply renders the conversation into a prompt, runs generation,
// and extracts the assistant reply. History must be in ascending order, the
// final turn being the user's latest message.
func (s *Service) GenerateReply(ctx context.Context, history []inferenceports.Turn) (string, error) {
	chat, _, err := s.ready()
	if err != nil {
		return "", err
	}

	prompt, err := s.prompt.Build(history)
	if err != nil {
		return "", fmt.Errorf("prompt build failed: %w", err)
	}

	if s.cfg.Pipeline.GenerateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Pipeline.GenerateTimeout)
		defer cancel()
	}

	ctx, finish := s.tracer.StartSpan(ctx, "inference.generate", map[string]any{
		"history_turns": len(history),
	})

	raw, err := chat.Generate(ctx, prompt, inferenceports.GenerateOptions{
		MaxNewTokens: s.cfg.Inference.MaxNewTokens,
		Temperature:  s.cfg.Inference.Temperature,
		TopP:         s.cfg.Inference.TopP,
	})
	if err != nil {
		finish(err)
		return "", fmt.Errorf("generation failed: %w", err)
	}
	finish(nil)

	return ExtractReply(raw, prompt), nil
}

// AnalyzeSentiment scores the text's sentiment. Sentiment is advisory: a
// service that is not ready, degraded, or failing internally yields neutral
// rather than an error.
func (s *Service) AnalyzeSentiment(ctx context.Context, text string) (Sentiment, error) {
	_, sentiment, err := s.ready()
	if err != nil {
		s.logger.Warn().Err(err).Msg("Sentiment requested while not ready, returning neutral")
		return NeutralSentiment(), nil
	}
	return sentiment.Analyze(ctx, text), nil
}

// ComputeRiskScore derives a crisis risk score from text and its sentiment.
// It is pure and available regardless of service state.
func (s *Service) ComputeRiskScore(text string, sentimentScore float64) float64 {
	return RiskScore(text, sentimentScore)
}

// SentimentDegraded reports whether sentiment analysis is running in
// degraded mode. Only meaningful after Initialize.
func (s *Service) SentimentDegraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sentiment == nil || s.sentiment.Degraded()
}

// Bundle returns the loaded model bundle, or nil before Initialize.
func (s *Service) Bundle() *loader.ModelBundle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bundle
}

// Close releases model resources. Inference calls after Close return
// ErrServiceClosed.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return nil
	}
	chat := s.chat
	sentiment := s.sentiment
	s.chat = nil
	s.sentiment = nil
	s.state = StateClosed
	s.mu.Unlock()

	var firstErr error
	if chat != nil {
		if err := chat.Close(); err != nil {
			firstErr = err
		}
	}
	if sentiment != nil && sentiment.classifier != nil {
		if err := sentiment.classifier.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
