package adapters

import (
	"context"
	"fmt"

	inferenceports "github.com/Jayayjay/HealHubChat/healhub/inference/ports"
	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
	"github.com/rs/zerolog"
)

// HugotClassifier runs an ONNX text-classification pipeline for sentiment scoring.
type HugotClassifier struct {
	session  *hugot.Session
	pipeline *pipelines.TextClassificationPipeline
	logger   zerolog.Logger
}

// NewHugotClassifier loads the sentiment model at modelPath into a hugot Go session.
func NewHugotClassifier(modelPath string, logger zerolog.Logger) (*HugotClassifier, error) {
	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.TextClassificationConfig{
		ModelPath: modelPath,
		Name:      "sentimentClassification",
	}

	pipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		// Session owns native resources even before a pipeline exists.
		if destroyErr := session.Destroy(); destroyErr != nil {
			logger.Warn().Err(destroyErr).Msg("Failed to destroy hugot session after pipeline error")
		}
		return nil, fmt.Errorf("failed to create sentiment pipeline for %s: %w", modelPath, err)
	}

	logger.Info().Str("model_path", modelPath).Msg("Sentiment classifier loaded")

	return &HugotClassifier{
		session:  session,
		pipeline: pipeline,
		logger:   logger,
	}, nil
}

// Classify returns the top label and score for the given text.
func (c *HugotClassifier) Classify(ctx context.Context, text string) (inferenceports.Classification, error) {
	if err := ctx.Err(); err != nil {
		return inferenceports.Classification{}, err
	}

	output, err := c.pipeline.RunPipeline([]string{text})
	if err != nil {
		return inferenceports.Classification{}, fmt.Errorf("sentiment pipeline failed: %w", err)
	}

	if len(output.ClassificationOutputs) == 0 || len(output.ClassificationOutputs[0]) == 0 {
		return inferenceports.Classification{}, fmt.Errorf("sentiment pipeline returned no classifications")
	}

	top := output.ClassificationOutputs[0][0]
	return inferenceports.Classification{
		Label: top.Label,
		Score: float64(top.Score),
	}, nil
}

// Close destroys the underlying hugot session and its pipelines.
func (c *HugotClassifier) Close() error {
	if c.session == nil {
		return nil
	}
	err := c.session.Destroy()
	c.session = nil
	return err
}

var _ inferenceports.SentimentClassifier = (*HugotClassifier)(nil)
