package loader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
}

func newLoader(t *testing.T) *Loader {
	t.Helper()
	l, err := New(zerolog.Nop())
	require.NoError(t, err)
	return l
}

func assertLoadErrKind(t *testing.T, err error, kind ErrKind) {
	t.Helper()
	require.Error(t, err)
	var le *LoadError
	require.True(t, errors.As(err, &le), "expected a LoadError, got %v", err)
	assert.Equal(t, kind, le.Kind)
}

func TestLoadFullBundle(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"config.json":           "{}",
		"model.safetensors":     "weights",
		"tokenizer_config.json": `{"eos_token": "</s>", "pad_token": "<pad>"}`,
	})

	bundle, err := newLoader(t).Load(dir, "", "")
	require.NoError(t, err)

	assert.Equal(t, KindFull, bundle.Kind)
	assert.Equal(t, filepath.Join(dir, "model.safetensors"), bundle.WeightsFile)
	assert.True(t, bundle.LocalOnly, "full bundles never fetch remotely")
	assert.Equal(t, "<pad>", bundle.Tokenizer.PadToken)
	assert.False(t, bundle.Tokenizer.PadAliased)
	assert.True(t, bundle.SentimentDegraded)
}

func TestLoadAdapterBundle(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"adapter_config.json":       `{"base_model_name_or_path": "TinyLlama/TinyLlama-1.1B-Chat-v1.0", "peft_type": "LORA"}`,
		"adapter_model.safetensors": "weights",
		"tokenizer_config.json":     `{"eos_token": "</s>"}`,
	})

	bundle, err := newLoader(t).Load(dir, "TinyLlama/TinyLlama-1.1B-Chat-v1.0", "")
	require.NoError(t, err)

	assert.Equal(t, KindAdapter, bundle.Kind)
	assert.Equal(t, "TinyLlama/TinyLlama-1.1B-Chat-v1.0", bundle.BasePath)
	assert.Equal(t, filepath.Join(dir, "adapter_model.safetensors"), bundle.AdapterPath)
	assert.False(t, bundle.LocalOnly, "adapter base weights may be fetched")
	// pad_token missing from tokenizer config, aliased to EOS.
	assert.True(t, bundle.Tokenizer.PadAliased)
	assert.Equal(t, "</s>", bundle.Tokenizer.PadToken)
}

func TestLoadAdapterRequiresBasePath(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"adapter_config.json":       `{"base_model_name_or_path": "TinyLlama/TinyLlama-1.1B-Chat-v1.0"}`,
		"adapter_model.safetensors": "weights",
		"tokenizer.json":            "{}",
	})

	_, err := newLoader(t).Load(dir, "", "")
	assertLoadErrKind(t, err, ErrMissingArtifact)
}

func TestLoadAdapterConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		config string
	}{
		{"not json", "not json at all"},
		{"missing base model", `{"peft_type": "LORA"}`},
		{"empty base model", `{"base_model_name_or_path": ""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFiles(t, dir, map[string]string{
				"adapter_config.json":       tt.config,
				"adapter_model.safetensors": "weights",
				"tokenizer.json":            "{}",
			})

			_, err := newLoader(t).Load(dir, "some/base", "")
			assertLoadErrKind(t, err, ErrMissingArtifact)
		})
	}
}

func TestLoadTokenizerFallbackToBase(t *testing.T) {
	adapterDir := t.TempDir()
	writeFiles(t, adapterDir, map[string]string{
		"adapter_config.json":       `{"base_model_name_or_path": "base"}`,
		"adapter_model.safetensors": "weights",
	})

	baseDir := t.TempDir()
	writeFiles(t, baseDir, map[string]string{
		"tokenizer_config.json": `{"eos_token": "</s>", "pad_token": "<pad>"}`,
	})

	bundle, err := newLoader(t).Load(adapterDir, baseDir, "")
	require.NoError(t, err)
	assert.Equal(t, baseDir, bundle.Tokenizer.Source)
	assert.Equal(t, "<pad>", bundle.Tokenizer.PadToken)
}

func TestLoadFullBundleTokenizerRequired(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"config.json":       "{}",
		"model.safetensors": "weights",
	})

	// Full bundles get no tokenizer fallback.
	_, err := newLoader(t).Load(dir, "some/base", "")
	assertLoadErrKind(t, err, ErrTokenizerUnavailable)
}

func TestLoadTokenizerObjectTokens(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"config.json":           "{}",
		"model.safetensors":     "weights",
		"tokenizer_config.json": `{"eos_token": {"content": "</s>"}, "pad_token": {"content": "[PAD]"}}`,
	})

	bundle, err := newLoader(t).Load(dir, "", "")
	require.NoError(t, err)
	assert.Equal(t, "</s>", bundle.Tokenizer.EOSToken)
	assert.Equal(t, "[PAD]", bundle.Tokenizer.PadToken)
}

func TestLoadMissingPath(t *testing.T) {
	_, err := newLoader(t).Load(filepath.Join(t.TempDir(), "nope"), "", "")
	assertLoadErrKind(t, err, ErrPathNotFound)
}

func TestLoadSentimentPresence(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"config.json":       "{}",
		"model.safetensors": "weights",
		"tokenizer.json":    "{}",
	})

	sentimentDir := t.TempDir()
	bundle, err := newLoader(t).Load(dir, "", sentimentDir)
	require.NoError(t, err)
	assert.False(t, bundle.SentimentDegraded)
	assert.Equal(t, sentimentDir, bundle.SentimentPath)

	// Absent sentiment model degrades, never fails.
	bundle, err = newLoader(t).Load(dir, "", filepath.Join(sentimentDir, "missing"))
	require.NoError(t, err)
	assert.True(t, bundle.SentimentDegraded)
	assert.Empty(t, bundle.SentimentPath)
}
