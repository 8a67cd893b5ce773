// Package models wraps the llama.cpp chat backend behind the ChatModel port.
// The CGO-backed implementation is selected with the `llama` build tag; the
// default build carries a stub so the rest of the pipeline stays testable.
package models

import (
	"fmt"
	"time"

	"github.com/Jayayjay/HealHubChat/healhub/inference/loader"
)

// ChatConfig holds configuration for chat model loading.
type ChatConfig struct {
	WeightsPath string // full weights, or base weights for adapter bundles
	LoraAdapter string // adapter weights file, adapter bundles only
	LoraBase    string // base weights for adapter attachment
	ContextSize int
	GPULayers   int
	Threads     int

	MaxTokens   int
	Temperature float32
	TopP        float32

	// Pooling and resilience settings. The llama.cpp context is not reentrant,
	// so concurrent generation is serialized through the instance pool.
	PoolSize         int
	BorrowTimeout    time.Duration
	RequestTimeout   time.Duration
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// ConfigFromBundle derives a chat config from a resolved model bundle.
func ConfigFromBundle(bundle *loader.ModelBundle) *ChatConfig {
	cfg := &ChatConfig{
		ContextSize:      1024,
		GPULayers:        0,
		Threads:          4,
		MaxTokens:        256,
		Temperature:      0.7,
		TopP:             0.9,
		PoolSize:         1,
		BorrowTimeout:    5 * time.Second,
		RequestTimeout:   60 * time.Second,
		BreakerThreshold: 5,
		BreakerCooldown:  60 * time.Second,
	}
	switch bundle.Kind {
	case loader.KindAdapter:
		cfg.WeightsPath = bundle.BasePath
		cfg.LoraBase = bundle.BasePath
		cfg.LoraAdapter = bundle.AdapterPath
	default:
		cfg.WeightsPath = bundle.WeightsFile
	}
	return cfg
}

// ValidateConfig validates the chat model configuration.
func ValidateConfig(config *ChatConfig) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if config.WeightsPath == "" {
		return fmt.Errorf("weights path cannot be empty")
	}
	if config.ContextSize <= 0 {
		return fmt.Errorf("context size must be positive, got %d", config.ContextSize)
	}
	if config.GPULayers < 0 {
		return fmt.Errorf("GPU layers cannot be negative, got %d", config.GPULayers)
	}
	if config.Threads <= 0 {
		return fmt.Errorf("threads must be positive, got %d", config.Threads)
	}
	if config.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", config.MaxTokens)
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %f", config.Temperature)
	}
	if config.TopP < 0 || config.TopP > 1 {
		return fmt.Errorf("top_p must be between 0 and 1, got %f", config.TopP)
	}
	if config.PoolSize <= 0 {
		return fmt.Errorf("pool size must be positive, got %d", config.PoolSize)
	}
	if config.BorrowTimeout <= 0 {
		return fmt.Errorf("borrow timeout must be positive, got %v", config.BorrowTimeout)
	}
	if config.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %v", config.RequestTimeout)
	}
	if config.BreakerThreshold <= 0 {
		return fmt.Errorf("breaker threshold must be positive, got %d", config.BreakerThreshold)
	}
	if config.BreakerCooldown <= 0 {
		return fmt.Errorf("breaker cooldown must be positive, got %v", config.BreakerCooldown)
	}
	return nil
}

// ModelHealth tracks the health status of the loaded model.
type ModelHealth struct {
	IsHealthy      bool
	SuccessRate    float64
	AverageLatency time.Duration
	TotalCalls     int64
	SuccessCalls   int64
	FailureCalls   int64
	LastUsed       time.Time
	ErrorMessages  []string
}
