//go:build llama && !no_llama

package models

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-skynet/go-llama.cpp"

	inferenceports "github.com/Jayayjay/HealHubChat/healhub/inference/ports"
)

// LlamaProvider runs text continuation over llama.cpp with instance pooling
// and a circuit breaker.
type LlamaProvider struct {
	config *ChatConfig
	health *ModelHealth
	mu     sync.RWMutex

	// Pooling
	pool   chan *llama.LLama
	poolMu sync.Mutex

	// Circuit breaker
	failureCount    int64
	lastFailureTime time.Time
	breakerMu       sync.Mutex

	logger *slog.Logger
}

// NewLlamaProvider creates a provider and loads PoolSize model instances.
func NewLlamaProvider(config *ChatConfig) (*LlamaProvider, error) {
	if err := ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := slog.Default().With("component", "LlamaProvider", "weights", config.WeightsPath)

	provider := &LlamaProvider{
		config: config,
		health: &ModelHealth{
			IsHealthy:     true,
			SuccessRate:   1.0,
			ErrorMessages: make([]string, 0),
		},
		pool:   make(chan *llama.LLama, config.PoolSize),
		logger: logger,
	}

	if err := provider.initializePool(); err != nil {
		return nil, fmt.Errorf("failed to initialize model pool: %w", err)
	}

	provider.logger.Info("LlamaProvider initialized", "pool_size", config.PoolSize, "lora", config.LoraAdapter != "")
	return provider, nil
}

// loadModel loads one llama.cpp instance, attaching the LoRA adapter when the
// bundle is adapter-packaged.
func (p *LlamaProvider) loadModel() (*llama.LLama, error) {
	options := []llama.ModelOption{
		llama.SetContext(p.config.ContextSize),
		llama.SetGPULayers(p.config.GPULayers),
	}
	if p.config.LoraAdapter != "" {
		options = append(options,
			llama.SetLoraAdapter(p.config.LoraAdapter),
			llama.SetLoraBase(p.config.LoraBase),
		)
	}

	model, err := llama.New(p.config.WeightsPath, options...)
	if err != nil {
		return nil, fmt.Errorf("llama.New failed: %w", err)
	}
	return model, nil
}

func (p *LlamaProvider) initializePool() error {
	for i := 0; i < p.config.PoolSize; i++ {
		model, err := p.loadModel()
		if err != nil {
			p.logger.Error("Failed to load model instance", "instance", i, "error", err)
			return fmt.Errorf("failed to load model instance %d: %w", i, err)
		}
		p.pool <- model
		p.logger.Debug("Loaded model instance", "instance", i, "pool_size", len(p.pool))
	}
	return nil
}

// borrow retrieves a model instance from the pool with timeout.
func (p *LlamaProvider) borrow(ctx context.Context) (*llama.LLama, error) {
	p.poolMu.Lock()
	defer p.poolMu.Unlock()

	if p.isBreakerOpen() {
		return nil, fmt.Errorf("circuit breaker is open")
	}

	borrowCtx, cancel := context.WithTimeout(ctx, p.config.BorrowTimeout)
	defer cancel()

	select {
	case model := <-p.pool:
		return model, nil
	case <-borrowCtx.Done():
		return nil, fmt.Errorf("borrow timeout after %v", p.config.BorrowTimeout)
	}
}

func (p *LlamaProvider) giveBack(model *llama.LLama) {
	p.poolMu.Lock()
	defer p.poolMu.Unlock()

	select {
	case p.pool <- model:
	default:
		p.logger.Warn("Pool channel full, freeing model")
		model.Free()
	}
}

func (p *LlamaProvider) isBreakerOpen() bool {
	p.breakerMu.Lock()
	defer p.breakerMu.Unlock()

	failures := atomic.LoadInt64(&p.failureCount)
	if failures >= int64(p.config.BreakerThreshold) {
		cooldownElapsed := time.Since(p.lastFailureTime) > p.config.BreakerCooldown
		if !cooldownElapsed {
			return true
		}
		atomic.StoreInt64(&p.failureCount, 0)
		p.logger.Info("Circuit breaker reset after cooldown")
	}
	return false
}

// Generate runs text continuation for an already rendered prompt.
func (p *LlamaProvider) Generate(ctx context.Context, prompt string, opts inferenceports.GenerateOptions) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	reqCtx, cancel := context.WithTimeout(ctx, p.config.RequestTimeout)
	defer cancel()

	model, err := p.borrow(reqCtx)
	if err != nil {
		p.recordFailure(fmt.Sprintf("borrow failed: %v", err))
		return "", fmt.Errorf("failed to borrow model: %w", err)
	}
	defer p.giveBack(model)

	maxTokens := opts.MaxNewTokens
	if maxTokens <= 0 {
		maxTokens = p.config.MaxTokens
	}
	temperature := opts.Temperature
	if temperature <= 0 {
		temperature = p.config.Temperature
	}
	topP := opts.TopP
	if topP <= 0 {
		topP = p.config.TopP
	}

	start := time.Now()
	p.logger.Debug("Starting text generation", "prompt_length", len(prompt))

	result, err := model.Predict(prompt,
		llama.SetTemperature(temperature),
		llama.SetTopP(topP),
		llama.SetTokens(maxTokens),
		llama.SetThreads(p.config.Threads),
		llama.SetRepeat(1),
	)
	if err != nil {
		p.recordFailure(fmt.Sprintf("prediction failed: %v", err))
		return "", fmt.Errorf("prediction failed: %w", err)
	}

	duration := time.Since(start)
	p.recordSuccess(duration)
	p.logger.Debug("Text generation completed", "duration_ms", duration.Milliseconds(), "output_length", len(result))

	return result, nil
}

// GetHealth returns a copy of the current health status.
func (p *LlamaProvider) GetHealth() *ModelHealth {
	p.mu.RLock()
	defer p.mu.RUnlock()

	health := *p.health
	return &health
}

// Close frees all pooled model instances.
func (p *LlamaProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.poolMu.Lock()
	for len(p.pool) > 0 {
		model := <-p.pool
		model.Free()
	}
	close(p.pool)
	p.poolMu.Unlock()

	p.health.IsHealthy = false
	p.logger.Info("LlamaProvider closed")
	return nil
}

func (p *LlamaProvider) recordSuccess(duration time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.health.TotalCalls++
	p.health.SuccessCalls++
	p.health.LastUsed = time.Now()

	if p.health.AverageLatency == 0 {
		p.health.AverageLatency = duration
	} else {
		alpha := 0.1
		p.health.AverageLatency = time.Duration(float64(p.health.AverageLatency)*(1-alpha) + float64(duration)*alpha)
	}

	p.health.IsHealthy = true
	if p.health.TotalCalls > 0 {
		p.health.SuccessRate = float64(p.health.SuccessCalls) / float64(p.health.TotalCalls)
	}
}

func (p *LlamaProvider) recordFailure(errorMsg string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.health.TotalCalls++
	p.health.FailureCalls++
	p.health.LastUsed = time.Now()
	p.health.IsHealthy = false

	if len(p.health.ErrorMessages) >= 10 {
		p.health.ErrorMessages = p.health.ErrorMessages[1:]
	}
	p.health.ErrorMessages = append(p.health.ErrorMessages, errorMsg)

	if p.health.TotalCalls > 0 {
		p.health.SuccessRate = float64(p.health.SuccessCalls) / float64(p.health.TotalCalls)
	}

	p.breakerMu.Lock()
	atomic.AddInt64(&p.failureCount, 1)
	p.lastFailureTime = time.Now()
	p.breakerMu.Unlock()

	p.logger.Warn("Operation failed", "error", errorMsg, "failure_count", atomic.LoadInt64(&p.failureCount))
}

// Ensure LlamaProvider implements the ChatModel port.
var _ inferenceports.ChatModel = (*LlamaProvider)(nil)
