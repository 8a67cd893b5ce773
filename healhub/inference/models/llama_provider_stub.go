//go:build !llama || no_llama

package models

import (
	"context"
	"fmt"
	"log/slog"

	inferenceports "github.com/Jayayjay/HealHubChat/healhub/inference/ports"
)

var llamaNotAvailable = fmt.Errorf("llama.cpp not available in this build")

// LlamaProvider placeholder for non-CGO builds. Construction succeeds so the
// service lifecycle is exercisable; generation reports the backend as absent
// and the pipeline substitutes its fallback reply.
type LlamaProvider struct {
	config *ChatConfig
	logger *slog.Logger
}

// NewLlamaProvider creates the no-op provider.
func NewLlamaProvider(config *ChatConfig) (*LlamaProvider, error) {
	if err := ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := slog.Default().With("component", "LlamaProvider", "weights", config.WeightsPath)
	logger.Info("LlamaProvider initialized (no-op)")

	return &LlamaProvider{config: config, logger: logger}, nil
}

func (p *LlamaProvider) Generate(ctx context.Context, prompt string, opts inferenceports.GenerateOptions) (string, error) {
	return "", llamaNotAvailable
}

// GetHealth reports permanently unhealthy in no-op builds.
func (p *LlamaProvider) GetHealth() *ModelHealth {
	return &ModelHealth{IsHealthy: false, ErrorMessages: []string{llamaNotAvailable.Error()}}
}

func (p *LlamaProvider) Close() error { return nil }

// Ensure LlamaProvider implements the ChatModel port.
var _ inferenceports.ChatModel = (*LlamaProvider)(nil)
