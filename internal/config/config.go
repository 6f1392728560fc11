// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	// Server configuration (serve command)
	Host string `envconfig:"DOCENT_HOST" yaml:"host"`
	Port int    `envconfig:"DOCENT_PORT" yaml:"port"`

	// Qdrant configuration
	Qdrant QdrantConfig `yaml:"qdrant"`

	// ML endpoint configuration
	ML MLConfig `yaml:"ml"`

	// Evaluation configuration
	Eval EvalConfig `yaml:"eval"`

	// Chunking configuration
	Chunk ChunkConfig `yaml:"chunk"`

	// Cache configuration
	Cache CacheConfig `yaml:"cache"`

	// Bus configuration
	Bus BusConfig `yaml:"bus"`

	// Logging configuration
	Log LogConfig `yaml:"log"`
}

// QdrantConfig holds Qdrant connection settings.
type QdrantConfig struct {
	Host             string `envconfig:"DOCENT_QDRANT_HOST" yaml:"host"`
	Port             int    `envconfig:"DOCENT_QDRANT_PORT" yaml:"port"`
	APIKey           string `envconfig:"DOCENT_QDRANT_API_KEY" yaml:"api_key"`
	UseTLS           bool   `envconfig:"DOCENT_QDRANT_TLS" yaml:"use_tls"`
	Collection       string `envconfig:"DOCENT_QDRANT_COLLECTION" yaml:"collection"`
	CollectionPrefix string `envconfig:"DOCENT_QDRANT_COLLECTION_PREFIX" yaml:"collection_prefix"`
}

// MLConfig holds embedding and reranker endpoint settings.
type MLConfig struct {
	EmbedURL       string  `envconfig:"DOCENT_EMBED_URL" yaml:"embed_url"`
	EmbedModel     string  `envconfig:"DOCENT_EMBED_MODEL" yaml:"embed_model"`
	EmbedDim       int     `envconfig:"DOCENT_EMBED_DIM" yaml:"embed_dim"`
	EmbedBatchSize int     `envconfig:"DOCENT_EMBED_BATCH_SIZE" yaml:"embed_batch_size"`
	RerankURL      string  `envconfig:"DOCENT_RERANK_URL" yaml:"rerank_url"`
	RerankModel    string  `envconfig:"DOCENT_RERANK_MODEL" yaml:"rerank_model"`
	TimeoutSec     int     `envconfig:"DOCENT_ML_TIMEOUT" yaml:"timeout_sec"`
	RequestsPerSec float64 `envconfig:"DOCENT_ML_RPS" yaml:"requests_per_sec"`
}

// EvalConfig holds evaluation defaults.
type EvalConfig struct {
	RetrieveK   int    `envconfig:"DOCENT_RETRIEVE_K" yaml:"retrieve_k"`
	RerankK     int    `envconfig:"DOCENT_RERANK_K" yaml:"rerank_k"`
	TopK        int    `envconfig:"DOCENT_TOP_K" yaml:"top_k"`
	Concurrency int    `envconfig:"DOCENT_EVAL_CONCURRENCY" yaml:"concurrency"`
	OutputDir   string `envconfig:"DOCENT_EVAL_OUTPUT_DIR" yaml:"output_dir"`
}

// ChunkConfig holds rechunking settings.
type ChunkConfig struct {
	TargetTokens int `envconfig:"DOCENT_CHUNK_TARGET_TOKENS" yaml:"target_tokens"`
	MaxTokens    int `envconfig:"DOCENT_CHUNK_MAX_TOKENS" yaml:"max_tokens"`
}

// CacheConfig holds embedding cache settings.
type CacheConfig struct {
	Type     string `envconfig:"DOCENT_CACHE_TYPE" yaml:"type"`
	Size     int    `envconfig:"DOCENT_CACHE_SIZE" yaml:"size"`
	TTLSec   int    `envconfig:"DOCENT_CACHE_TTL" yaml:"ttl_sec"` // 0 = no expiry
	RedisURL string `envconfig:"DOCENT_REDIS_URL" yaml:"redis_url"`
}

// BusConfig holds run-event bus settings.
type BusConfig struct {
	Type         string `envconfig:"DOCENT_BUS_TYPE" yaml:"type"`
	KafkaBrokers string `envconfig:"DOCENT_KAFKA_BROKERS" yaml:"kafka_brokers"`
	KafkaTopic   string `envconfig:"DOCENT_KAFKA_TOPIC" yaml:"kafka_topic"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `envconfig:"DOCENT_LOG_LEVEL" yaml:"level"`
	Format string `envconfig:"DOCENT_LOG_FORMAT" yaml:"format"`
}

// Load loads configuration from environment variables and optional config file.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	// Set defaults first
	setDefaults(cfg)

	// Load from YAML file if provided (overrides defaults)
	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	// Override with environment variables (highest priority)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("processing env config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only.
func LoadFromEnv() (*Config, error) {
	return Load("")
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func setDefaults(cfg *Config) {
	cfg.Host = "0.0.0.0"
	cfg.Port = 8080

	cfg.Qdrant = QdrantConfig{
		Host:             "localhost",
		Port:             6334,
		Collection:       "history_chunks",
		CollectionPrefix: "docent_",
	}

	cfg.ML = MLConfig{
		EmbedURL:       "http://localhost:9000",
		EmbedModel:     "ko-sroberta-finetuned",
		EmbedDim:       768,
		EmbedBatchSize: 32,
		RerankURL:      "http://localhost:9001",
		RerankModel:    "bge-reranker-base-finetuned",
		TimeoutSec:     30,
		RequestsPerSec: 0, // 0 = unlimited
	}

	cfg.Eval = EvalConfig{
		RetrieveK:   50,
		RerankK:     10,
		TopK:        10,
		Concurrency: 1,
		OutputDir:   "eval/output",
	}

	cfg.Chunk = ChunkConfig{
		TargetTokens: 380,
		MaxTokens:    512,
	}

	cfg.Cache = CacheConfig{
		Type:     "memory",
		Size:     10000,
		TTLSec:   0,
		RedisURL: "redis://localhost:6379",
	}

	cfg.Bus = BusConfig{
		Type:       "memory",
		KafkaTopic: "docent.eval.events",
	}

	cfg.Log = LogConfig{
		Level:  "info",
		Format: "text",
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, "port must be between 1 and 65535")
	}

	if c.Qdrant.Collection == "" {
		errs = append(errs, "qdrant collection must not be empty")
	}

	if c.ML.EmbedDim < 1 {
		errs = append(errs, "embed_dim must be positive")
	}

	if c.ML.EmbedBatchSize < 1 {
		errs = append(errs, "embed_batch_size must be positive")
	}

	if c.Eval.RetrieveK < 1 {
		errs = append(errs, "retrieve_k must be positive")
	}

	if c.Eval.RerankK < 1 {
		errs = append(errs, "rerank_k must be positive")
	}

	if c.Eval.RerankK > c.Eval.RetrieveK {
		errs = append(errs, "rerank_k must not exceed retrieve_k")
	}

	if c.Eval.TopK < 1 {
		errs = append(errs, "top_k must be positive")
	}

	if c.Eval.Concurrency < 1 {
		errs = append(errs, "concurrency must be positive")
	}

	if c.Chunk.TargetTokens < 1 {
		errs = append(errs, "target_tokens must be positive")
	}

	if c.Chunk.TargetTokens > c.Chunk.MaxTokens {
		errs = append(errs, "target_tokens must not exceed max_tokens")
	}

	validCacheTypes := map[string]bool{"memory": true, "redis": true, "none": true}
	if !validCacheTypes[c.Cache.Type] {
		errs = append(errs, fmt.Sprintf("invalid cache type: %s (must be memory, redis, or none)", c.Cache.Type))
	}

	validBusTypes := map[string]bool{"memory": true, "kafka": true, "none": true}
	if !validBusTypes[c.Bus.Type] {
		errs = append(errs, fmt.Sprintf("invalid bus type: %s (must be memory, kafka, or none)", c.Bus.Type))
	}

	if c.Bus.Type == "kafka" && c.Bus.KafkaBrokers == "" {
		errs = append(errs, "kafka_brokers must be set when bus type is kafka")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be text or json)", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// Address returns the server address.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// KafkaBrokerList splits the comma-separated broker string.
func (c *BusConfig) KafkaBrokerList() []string {
	if c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
