package config

import (
	"fmt"
	"strings"
	"time"

	internal "github.com/Jayayjay/HealHubChat/healhub"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	App       AppSettings     `mapstructure:"app"`
	Inference InferenceConfig `mapstructure:"inference"`
	Sentiment SentimentConfig `mapstructure:"sentiment"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
}

// AppSettings stores application-level settings.
type AppSettings struct {
	Environment string         `mapstructure:"environment"`
	Debug       bool           `mapstructure:"debug"`
	Database    DatabaseConfig `mapstructure:"database"`
}

// DatabaseConfig stores the embedded libsql database location.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// InferenceConfig stores chat-model configurations.
type InferenceConfig struct {
	ModelPath     string  `mapstructure:"model_path"`      // fine-tuned model directory
	BaseModelPath string  `mapstructure:"base_model_path"` // base weights, adapter bundles only
	MaxNewTokens  int     `mapstructure:"max_new_tokens"`
	Temperature   float32 `mapstructure:"temperature"`
	TopP          float32 `mapstructure:"top_p"`
	ContextSize   int     `mapstructure:"context_size"`
	Threads       int     `mapstructure:"threads"`
	GPULayers     int     `mapstructure:"gpu_layers"`
	PoolSize      int     `mapstructure:"pool_size"`
}

// SentimentConfig stores the sentiment classifier configuration.
type SentimentConfig struct {
	ModelPath string `mapstructure:"model_path"`
	MaxChars  int    `mapstructure:"max_chars"` // classifier context limit
}

// PipelineConfig stores conversation pipeline settings.
type PipelineConfig struct {
	GenerateTimeout time.Duration `mapstructure:"generate_timeout"`
	HistoryLimit    int           `mapstructure:"history_limit"` // max turns fetched per reply
}

var AppConfig Config

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("..")
		viper.AddConfigPath("/etc/" + internal.DefaultAppName)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetDefault("app.environment", "production")
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.database.path", internal.DefaultDatabasePath)

	// Chat model defaults (TinyLlama 1.1B fine-tune)
	viper.SetDefault("inference.model_path", internal.DefaultModelPath)
	viper.SetDefault("inference.base_model_path", internal.DefaultBaseModelPath)
	viper.SetDefault("inference.max_new_tokens", 256)
	viper.SetDefault("inference.temperature", 0.7)
	viper.SetDefault("inference.top_p", 0.9)
	viper.SetDefault("inference.context_size", 1024)
	viper.SetDefault("inference.threads", 4)
	viper.SetDefault("inference.gpu_layers", 0)
	viper.SetDefault("inference.pool_size", 1)

	// Sentiment defaults
	viper.SetDefault("sentiment.model_path", internal.DefaultSentimentModelPath)
	viper.SetDefault("sentiment.max_chars", 512)

	// Pipeline defaults
	viper.SetDefault("pipeline.generate_timeout", "60s")
	viper.SetDefault("pipeline.history_limit", 200)

	viper.AutomaticEnv()
	// Replace dots with underscores in env var names e.g. inference.model_path becomes INFERENCE_MODEL_PATH
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; defaults will be used.
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	err := viper.Unmarshal(&AppConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	return &AppConfig, nil
}
