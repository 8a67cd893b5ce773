// Package loader resolves the chat model bundle from disk: packaging-kind
// detection, artifact verification, tokenizer resolution, and sentiment model
// discovery. It never loads weights itself; the resolved ModelBundle is handed
// to the inference backend.
package loader

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"
)

// adapterConfigSchema pins down the fields the backend needs from
// adapter_config.json before it commits to loading multi-gigabyte base weights.
const adapterConfigSchema = `{
	"type": "object",
	"properties": {
		"base_model_name_or_path": {"type": "string", "minLength": 1},
		"peft_type": {"type": "string"}
	},
	"required": ["base_model_name_or_path"]
}`

// Loader resolves model bundles. Safe for a single initialization call;
// bundles it produces are immutable.
type Loader struct {
	logger zerolog.Logger
	schema *gojsonschema.Schema
}

// New creates a Loader.
func New(logger zerolog.Logger) (*Loader, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(adapterConfigSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile adapter config schema: %w", err)
	}
	return &Loader{
		logger: logger.With().Str("component", "loader").Logger(),
		schema: schema,
	}, nil
}

// Load resolves the chat model at modelPath into a ModelBundle.
//
// basePathHint names the base weights consulted only for adapter bundles,
// where it may refer to a remote repository (LocalOnly is relaxed for the base
// model only). sentimentPath is best-effort: an absent sentiment model yields
// a degraded bundle, never a failure.
func (l *Loader) Load(modelPath, basePathHint, sentimentPath string) (*ModelBundle, error) {
	entries, err := os.ReadDir(modelPath)
	if err != nil {
		return nil, &LoadError{Kind: ErrPathNotFound, Path: modelPath, Err: err}
	}

	listing := make([]string, 0, len(entries))
	for _, e := range entries {
		listing = append(listing, e.Name())
	}

	det, err := DetectKind(listing)
	if err != nil {
		if le, ok := err.(*LoadError); ok {
			le.Path = modelPath
		}
		return nil, err
	}

	bundle := &ModelBundle{
		Kind:          det.Kind,
		ModelPath:     modelPath,
		SentimentPath: sentimentPath,
	}

	switch det.Kind {
	case KindAdapter:
		if err := l.validateAdapterConfig(filepath.Join(modelPath, artifactAdapterConfig)); err != nil {
			return nil, err
		}
		if basePathHint == "" {
			return nil, &LoadError{
				Kind:   ErrMissingArtifact,
				Path:   modelPath,
				Reason: "adapter bundle requires a base model path",
			}
		}
		bundle.BasePath = basePathHint
		bundle.AdapterPath = filepath.Join(modelPath, det.WeightsFile)
		// The base model may be fetched remotely; the adapter itself is local.
		bundle.LocalOnly = false
	case KindFull:
		bundle.WeightsFile = filepath.Join(modelPath, det.WeightsFile)
		bundle.LocalOnly = true
	}

	if err := l.resolveBundleTokenizer(bundle, basePathHint); err != nil {
		return nil, err
	}

	if sentimentPath != "" {
		if _, err := os.Stat(sentimentPath); err != nil {
			bundle.SentimentPath = ""
			bundle.SentimentDegraded = true
		}
	} else {
		bundle.SentimentDegraded = true
	}

	l.logger.Info().
		Str("kind", string(bundle.Kind)).
		Str("model_path", bundle.ModelPath).
		Str("base_path", bundle.BasePath).
		Str("tokenizer_source", bundle.Tokenizer.Source).
		Bool("pad_aliased", bundle.Tokenizer.PadAliased).
		Bool("local_only", bundle.LocalOnly).
		Bool("sentiment_degraded", bundle.SentimentDegraded).
		Msg("model bundle resolved")

	return bundle, nil
}

// resolveBundleTokenizer tries modelPath first and falls back to the base
// model for adapter bundles; full bundles must carry their own tokenizer.
func (l *Loader) resolveBundleTokenizer(bundle *ModelBundle, basePathHint string) error {
	info, err := resolveTokenizer(bundle.ModelPath)
	if err == nil {
		bundle.Tokenizer = info
		return nil
	}

	if bundle.Kind == KindAdapter && basePathHint != "" {
		l.logger.Warn().Err(err).Str("fallback", basePathHint).
			Msg("tokenizer missing from adapter directory, trying base model")
		if info, baseErr := resolveTokenizer(basePathHint); baseErr == nil {
			bundle.Tokenizer = info
			return nil
		}
	}

	return &LoadError{Kind: ErrTokenizerUnavailable, Path: bundle.ModelPath, Err: err}
}

func (l *Loader) validateAdapterConfig(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &LoadError{Kind: ErrMissingArtifact, Path: path, Artifact: artifactAdapterConfig, Err: err}
	}

	result, err := l.schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return &LoadError{Kind: ErrMissingArtifact, Path: path, Artifact: artifactAdapterConfig,
			Reason: "adapter config is not valid JSON", Err: err}
	}
	if !result.Valid() {
		return &LoadError{Kind: ErrMissingArtifact, Path: path, Artifact: artifactAdapterConfig,
			Reason: fmt.Sprintf("adapter config invalid: %v", result.Errors())}
	}
	return nil
}
