package loader

// BundleKind distinguishes the two supported model packaging layouts.
type BundleKind string

const (
	// KindFull is a self-contained fine-tuned model: full weights plus config.
	KindFull BundleKind = "full"
	// KindAdapter is a LoRA-style adapter applied over separate base weights.
	KindAdapter BundleKind = "adapter"
)

// Recognized artifact filenames, per the Hugging Face packaging conventions
// the fine-tuning job exports.
const (
	artifactModelConfig     = "config.json"
	artifactTokenizerConfig = "tokenizer_config.json"
	artifactTokenizer       = "tokenizer.json"
	artifactAdapterConfig   = "adapter_config.json"
)

var fullWeightArtifacts = []string{"model.safetensors", "pytorch_model.bin"}

var adapterWeightArtifacts = []string{"adapter_model.safetensors", "adapter_model.bin"}

// ModelBundle describes everything resolved at load time. Created once at
// service initialization and immutable for the process lifetime.
type ModelBundle struct {
	Kind        BundleKind
	ModelPath   string // directory containing the detected packaging
	BasePath    string // base weights, adapter bundles only
	AdapterPath string // adapter weights file, adapter bundles only
	WeightsFile string // full weights file, full bundles only

	// LocalOnly is kind-specific: full bundles must load strictly from local
	// files, adapter base weights may be fetched remotely.
	LocalOnly bool

	Tokenizer TokenizerInfo

	// SentimentPath is empty when the sentiment model is absent and the
	// service runs sentiment analysis in degraded (always neutral) mode.
	SentimentPath     string
	SentimentDegraded bool
}

// Detection is the outcome of pure packaging-kind detection over an artifact
// listing, before anything touches the filesystem beyond the listing itself.
type Detection struct {
	Kind        BundleKind
	WeightsFile string // full weights or adapter weights, depending on Kind
}

// DetectKind classifies a model directory from its artifact listing. It fails
// with a MissingArtifact LoadError naming the first artifact that ruled the
// layout out.
func DetectKind(listing []string) (Detection, error) {
	present := make(map[string]bool, len(listing))
	for _, name := range listing {
		present[name] = true
	}

	if present[artifactAdapterConfig] {
		for _, w := range adapterWeightArtifacts {
			if present[w] {
				return Detection{Kind: KindAdapter, WeightsFile: w}, nil
			}
		}
		return Detection{}, &LoadError{
			Kind:     ErrMissingArtifact,
			Artifact: adapterWeightArtifacts[0],
			Reason:   "adapter config present but adapter weights missing",
		}
	}

	var weights string
	for _, w := range fullWeightArtifacts {
		if present[w] {
			weights = w
			break
		}
	}
	if weights == "" {
		return Detection{}, &LoadError{
			Kind:     ErrMissingArtifact,
			Artifact: fullWeightArtifacts[0],
			Reason:   "no full weights found (expected model.safetensors or pytorch_model.bin)",
		}
	}
	if !present[artifactModelConfig] {
		return Detection{}, &LoadError{
			Kind:     ErrMissingArtifact,
			Artifact: artifactModelConfig,
			Reason:   "full weights present but model config missing",
		}
	}

	return Detection{Kind: KindFull, WeightsFile: weights}, nil
}
