// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// StorageBackend identifies the object-store implementation.
type StorageBackend string

const (
	BackendFS StorageBackend = "fs"
	BackendS3 StorageBackend = "s3"
)

// StorageConfig holds settings for the resumable object store.
type StorageConfig struct {
	// Backend selects the store implementation: fs or s3.
	Backend StorageBackend `json:"backend" yaml:"backend"`

	// Root is the base directory for the fs backend.
	Root string `json:"root,omitempty" yaml:"root,omitempty"`

	// Endpoint is the S3/MinIO endpoint (host:port) for the s3 backend.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`

	// Bucket is the S3 bucket holding all pipeline artifacts.
	Bucket string `json:"bucket,omitempty" yaml:"bucket,omitempty"`

	// AccessKey and SecretKey authenticate against the s3 backend.
	AccessKey string `json:"access_key,omitempty" yaml:"access_key,omitempty"`
	SecretKey string `json:"secret_key,omitempty" yaml:"secret_key,omitempty"`

	// UseSSL enables TLS for the s3 backend.
	UseSSL bool `json:"use_ssl,omitempty" yaml:"use_ssl,omitempty"`

	// Region is the S3 region (default us-east-1).
	Region string `json:"region,omitempty" yaml:"region,omitempty"`
}

// AIConfig holds shared settings for stages that call the completion capability.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxAttempts bounds the citation-correction retry loop per LLM call
	// (default 3). Distinct from any outer orchestration retry.
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`

	// MaxTokens is the completion token budget per call.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// ThinkingBudget is a provider-specific reasoning budget in tokens,
	// passed through opaquely. Zero disables extended thinking.
	ThinkingBudget int `json:"thinking_budget,omitempty" yaml:"thinking_budget,omitempty"`

	// Timeout is the per-attempt HTTP timeout.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// ExtractionConfig holds settings for per-paper evidence extraction.
type ExtractionConfig struct {
	AIConfig `yaml:",inline"`

	// Shape names the registered result shape and prompt set (default "generic").
	Shape string `json:"shape" yaml:"shape"`

	// MaxPaperChars caps the rendered document length sent to the model.
	// Default 240000 (4-chars-per-token heuristic against a 60k token budget).
	MaxPaperChars int `json:"max_paper_chars" yaml:"max_paper_chars"`

	// Concurrency bounds parallel per-paper extraction in batch mode (default 4).
	Concurrency int `json:"concurrency" yaml:"concurrency"`
}

// AggregationConfig holds settings for cross-paper aggregation.
type AggregationConfig struct {
	AIConfig `yaml:",inline"`

	// Shape names the registered result shape and prompt set (default "generic").
	Shape string `json:"shape" yaml:"shape"`
}

// AnnotationConfig holds settings for PDF highlight annotation.
type AnnotationConfig struct {
	// HighlightColor is the highlight fill color as an RRGGBB hex string
	// (default "ffeb3b").
	HighlightColor string `json:"highlight_color" yaml:"highlight_color"`
}

// CatalogConfig holds settings for the local variant catalog.
type CatalogConfig struct {
	// Path is the sqlite database file (default "evidence.db").
	Path string `json:"path" yaml:"path"`
}

// PipelineConfig groups all stage configurations. It is built once at process
// start and threaded through every component call.
type PipelineConfig struct {
	Storage     StorageConfig     `json:"storage" yaml:"storage"`
	Extraction  ExtractionConfig  `json:"extraction" yaml:"extraction"`
	Aggregation AggregationConfig `json:"aggregation" yaml:"aggregation"`
	Annotation  AnnotationConfig  `json:"annotation" yaml:"annotation"`
	Catalog     CatalogConfig     `json:"catalog" yaml:"catalog"`
}
