// Package config loads runtime configuration for the dialogue core.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds every tunable the core depends on (spec.md §6).
type Config struct {
	Endpoint              string        `mapstructure:"LLM_ENDPOINT"`
	APIKey                string        `mapstructure:"LLM_API_KEY"`
	KBDir                 string        `mapstructure:"KB_DIR"`
	CacheDir              string        `mapstructure:"CACHE_DIR"`
	EmbeddingsDeployment  string        `mapstructure:"EMBEDDINGS_DEPLOYMENT"`
	ChatDeployment        string        `mapstructure:"CHAT_DEPLOYMENT"`
	RequestTimeoutS       time.Duration `mapstructure:"REQUEST_TIMEOUT_S"`
	MaxRetries            int           `mapstructure:"MAX_RETRIES"`
	BackoffBaseS          time.Duration `mapstructure:"BACKOFF_BASE_S"`
	TopK                  int           `mapstructure:"TOP_K"`
	MaxContextChars       int           `mapstructure:"MAX_CONTEXT_CHARS"`
	MaxHistoryChars       int           `mapstructure:"MAX_HISTORY_CHARS"`
	EmbeddingBatchSize    int           `mapstructure:"EMBEDDING_BATCH_SIZE"`
	HMOMismatchBias       float64       `mapstructure:"HMO_MISMATCH_BIAS"`
	TierMatchBias         float64       `mapstructure:"TIER_MATCH_BIAS"`
	CacheSchemaVersion    string        `mapstructure:"CACHE_SCHEMA_VERSION"`
	QueryEmbedCacheSize   int           `mapstructure:"QUERY_EMBED_CACHE_SIZE"`
	BlurbSplitCharMin     int           `mapstructure:"BLURB_SPLIT_CHAR_MIN"`
	PostgresDSN           string        `mapstructure:"POSTGRES_DSN"`
	PostgresCacheEnabled  bool          `mapstructure:"POSTGRES_CACHE_ENABLED"`
}

// Load reads configuration from environment variables (and an optional
// config.yaml on the usual search paths), falling back to defaults.
func Load(logger *zap.Logger) *Config {
	var cfg Config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	viper.SetDefault("LLM_ENDPOINT", "http://localhost:8081/v1")
	viper.SetDefault("LLM_API_KEY", "")
	viper.SetDefault("KB_DIR", "kb")
	viper.SetDefault("CACHE_DIR", ".kb_cache")
	viper.SetDefault("EMBEDDINGS_DEPLOYMENT", "text-embedding-3-small")
	viper.SetDefault("CHAT_DEPLOYMENT", "gpt-4o-mini")
	viper.SetDefault("REQUEST_TIMEOUT_S", 30)
	viper.SetDefault("MAX_RETRIES", 3)
	viper.SetDefault("BACKOFF_BASE_S", 1)
	viper.SetDefault("TOP_K", 6)
	viper.SetDefault("MAX_CONTEXT_CHARS", 12000)
	viper.SetDefault("MAX_HISTORY_CHARS", 42000)
	viper.SetDefault("EMBEDDING_BATCH_SIZE", 64)
	viper.SetDefault("HMO_MISMATCH_BIAS", 0.75)
	viper.SetDefault("TIER_MATCH_BIAS", 1.08)
	viper.SetDefault("CACHE_SCHEMA_VERSION", "1")
	viper.SetDefault("QUERY_EMBED_CACHE_SIZE", 256)
	viper.SetDefault("BLURB_SPLIT_CHAR_MIN", 480)
	viper.SetDefault("POSTGRES_DSN", "")
	viper.SetDefault("POSTGRES_CACHE_ENABLED", false)

	if err := viper.ReadInConfig(); err != nil {
		if logger != nil {
			logger.Warn("could not read config file, using defaults/env vars", zap.Error(err))
		}
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		if logger != nil {
			logger.Fatal("unable to decode config into struct", zap.Error(err))
		} else {
			fmt.Fprintf(os.Stderr, "FATAL: unable to decode config into struct: %v\n", err)
			os.Exit(1)
		}
	}

	cfg.RequestTimeoutS = cfg.RequestTimeoutS * time.Second
	cfg.BackoffBaseS = cfg.BackoffBaseS * time.Second

	return &cfg
}
