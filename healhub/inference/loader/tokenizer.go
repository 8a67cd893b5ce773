package loader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// TokenizerInfo captures the resolved tokenizer source and its special tokens.
type TokenizerInfo struct {
	Source   string // directory the tokenizer was resolved from
	PadToken string
	EOSToken string
	// PadAliased records that the pad token was missing and aliased to EOS,
	// required for batched generation correctness.
	PadAliased bool
}

// tokenizer_config.json encodes special tokens either as plain strings or as
// added-token objects with a "content" field.
type specialToken struct {
	value string
}

func (t *specialToken) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		t.value = s
		return nil
	}
	var obj struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	t.value = obj.Content
	return nil
}

type tokenizerConfig struct {
	PadToken *specialToken `json:"pad_token"`
	EOSToken *specialToken `json:"eos_token"`
}

// resolveTokenizer reads the tokenizer configuration from dir. It requires at
// least one of tokenizer_config.json or tokenizer.json to be present.
func resolveTokenizer(dir string) (TokenizerInfo, error) {
	cfgPath := filepath.Join(dir, artifactTokenizerConfig)
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		// tokenizer.json alone is acceptable; special tokens then default below.
		if _, statErr := os.Stat(filepath.Join(dir, artifactTokenizer)); statErr != nil {
			return TokenizerInfo{}, fmt.Errorf("no tokenizer artifacts in %s: %w", dir, err)
		}
		data = []byte("{}")
	}

	var cfg tokenizerConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return TokenizerInfo{}, fmt.Errorf("malformed %s: %w", artifactTokenizerConfig, err)
	}

	info := TokenizerInfo{Source: dir}
	if cfg.EOSToken != nil {
		info.EOSToken = cfg.EOSToken.value
	}
	if info.EOSToken == "" {
		info.EOSToken = "</s>"
	}
	if cfg.PadToken != nil {
		info.PadToken = cfg.PadToken.value
	}
	if info.PadToken == "" {
		info.PadToken = info.EOSToken
		info.PadAliased = true
	}

	return info, nil
}
