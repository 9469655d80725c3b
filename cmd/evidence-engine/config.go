// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/evidence-engine/internal/llm"
	"github.com/pdiddy/evidence-engine/internal/store"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// pipelineConfig assembles the full configuration from the config file,
// environment, and command flags. Flags win over config values; the model
// API key additionally falls back to the anthropic-api-key secret file.
func pipelineConfig(cmd *cobra.Command) types.PipelineConfig {
	cfg := types.PipelineConfig{
		Storage: types.StorageConfig{
			Backend:   types.StorageBackend(viper.GetString("storage.backend")),
			Root:      viper.GetString("storage.root"),
			Endpoint:  viper.GetString("storage.endpoint"),
			Bucket:    viper.GetString("storage.bucket"),
			AccessKey: viper.GetString("storage.access_key"),
			SecretKey: viper.GetString("storage.secret_key"),
			UseSSL:    viper.GetBool("storage.use_ssl"),
			Region:    viper.GetString("storage.region"),
		},
		Extraction: types.ExtractionConfig{
			AIConfig: types.AIConfig{
				Model:          viper.GetString("extraction.model"),
				MaxAttempts:    viper.GetInt("extraction.max_attempts"),
				MaxTokens:      viper.GetInt("extraction.max_tokens"),
				ThinkingBudget: viper.GetInt("extraction.thinking_budget"),
			},
			Shape:         viper.GetString("extraction.shape"),
			MaxPaperChars: viper.GetInt("extraction.max_paper_chars"),
			Concurrency:   viper.GetInt("extraction.concurrency"),
		},
		Aggregation: types.AggregationConfig{
			AIConfig: types.AIConfig{
				Model:          viper.GetString("aggregation.model"),
				MaxAttempts:    viper.GetInt("aggregation.max_attempts"),
				MaxTokens:      viper.GetInt("aggregation.max_tokens"),
				ThinkingBudget: viper.GetInt("aggregation.thinking_budget"),
			},
			Shape: viper.GetString("aggregation.shape"),
		},
		Annotation: types.AnnotationConfig{
			HighlightColor: viper.GetString("annotation.highlight_color"),
		},
		Catalog: types.CatalogConfig{
			Path: viper.GetString("catalog.path"),
		},
	}

	if cfg.Storage.Root == "" {
		cfg.Storage.Root = "evidence"
	}

	if v, _ := cmd.Flags().GetString("model"); v != "" {
		cfg.Extraction.Model = v
		cfg.Aggregation.Model = v
	}
	if v, _ := cmd.Flags().GetString("shape"); v != "" {
		cfg.Extraction.Shape = v
		cfg.Aggregation.Shape = v
	}
	if v, _ := cmd.Flags().GetString("storage-root"); v != "" {
		cfg.Storage.Root = v
	}
	if v, _ := cmd.Flags().GetString("catalog"); v != "" {
		cfg.Catalog.Path = v
	}

	apiKey, _ := cmd.Flags().GetString("api-key")
	if apiKey == "" {
		apiKey = viper.GetString("api_key")
	}
	apiKey = secretDefault("anthropic-api-key", apiKey)
	cfg.Extraction.APIKey = apiKey
	cfg.Aggregation.APIKey = apiKey

	return cfg
}

// newLogger builds the process logger. --verbose switches to development
// output with debug level.
func newLogger(cmd *cobra.Command) (*zap.Logger, error) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// newStore builds the configured object store.
func newStore(cfg types.PipelineConfig, log *zap.Logger) (store.Store, error) {
	return store.New(cfg.Storage, log)
}

// newCompleter builds the model backend for one stage's AI settings.
func newCompleter(ai types.AIConfig) (llm.Completer, error) {
	if ai.Model == "" {
		return nil, fmt.Errorf("model not configured: set extraction.model/aggregation.model or pass --model")
	}
	if ai.APIKey == "" {
		return nil, fmt.Errorf("API key not configured: set EVIDENCE_ENGINE_API_KEY, pass --api-key, or add .secrets/anthropic-api-key")
	}
	return &llm.Anthropic{
		APIKey:  ai.APIKey,
		Model:   ai.Model,
		Timeout: ai.Timeout,
	}, nil
}
