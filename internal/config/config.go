package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/ragchat/internal/domain"
)

// Provider names accepted by the retrieval section.
const (
	ProviderPinecone  = "pinecone"
	ProviderRedis     = "redis"
	ProviderOpenAI    = "openai"
	ProviderRerankAPI = "rerank_api"
)

// Config holds the ragchat server configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Logging   LoggingConfig   `yaml:"logging"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Pinecone  PineconeConfig  `yaml:"pinecone"`
	Redis     RedisConfig     `yaml:"redis"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	RerankAPI RerankAPIConfig `yaml:"rerank_api"`
	Chat      ChatConfig      `yaml:"chat"`
	Retry     RetryConfig     `yaml:"retry"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	ReadTimeoutSec  int    `yaml:"read_timeout_sec"`
	WriteTimeoutSec int    `yaml:"write_timeout_sec"` // 0 disables the write deadline
	ShutdownSec     int    `yaml:"shutdown_timeout_sec"`
}

// RetrievalConfig selects providers and request defaults.
type RetrievalConfig struct {
	IndexProvider     string `yaml:"index_provider"`     // pinecone, redis
	EmbeddingProvider string `yaml:"embedding_provider"` // pinecone, openai
	RerankProvider    string `yaml:"rerank_provider"`    // pinecone, rerank_api
	Namespace         string `yaml:"namespace"`
	SearchTopK        int    `yaml:"search_top_k"`
	ChatTopK          int    `yaml:"chat_top_k"`
}

// PineconeConfig holds Pinecone index and inference settings.
type PineconeConfig struct {
	APIKey         string `yaml:"api_key"`
	ControlURL     string `yaml:"control_url"`
	IndexName      string `yaml:"index_name"`
	IndexHost      string `yaml:"index_host"` // optional, resolved via describe_index when empty
	EmbeddingModel string `yaml:"embedding_model"`
	RerankModel    string `yaml:"rerank_model"`
	TimeoutSec     int    `yaml:"timeout_sec"`
}

// RedisConfig holds the Redis vector index settings.
type RedisConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	IndexName        string   `yaml:"index_name"`
	KeyPrefix        string   `yaml:"key_prefix"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// OpenAIConfig holds OpenAI-compatible API settings for embeddings and chat.
type OpenAIConfig struct {
	APIKey              string `yaml:"api_key"`
	BaseURL             string `yaml:"base_url"`
	EmbeddingModel      string `yaml:"embedding_model"`
	EmbeddingDimensions int    `yaml:"embedding_dimensions"`
	User                string `yaml:"user"`
}

// RerankAPIConfig holds settings for a Cohere/Jina-compatible rerank endpoint.
type RerankAPIConfig struct {
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// ChatConfig holds chat completion settings.
type ChatConfig struct {
	Model       string   `yaml:"model"`
	Temperature *float32 `yaml:"temperature"` // nil means 0.7
	MaxTokens   int      `yaml:"max_tokens"`
}

// RetryConfig holds the remote call backoff step. The attempt count is fixed at 3.
type RetryConfig struct {
	DelayMs int `yaml:"delay_ms"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// .env.local and .env are loaded first; variables already set in the process win.
func Load(env string) (Config, error) {
	return LoadFrom(findConfigPath(env))
}

// LoadFrom reads configuration from an explicit YAML path.
func LoadFrom(configPath string) (Config, error) {
	if err := loadDotEnv(".env.local", ".env"); err != nil {
		return Config{}, err
	}

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Host == "" {
		c.HTTP.Host = "127.0.0.1"
	}
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 5328
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Retrieval.IndexProvider == "" {
		c.Retrieval.IndexProvider = ProviderPinecone
	}
	if c.Retrieval.EmbeddingProvider == "" {
		c.Retrieval.EmbeddingProvider = ProviderPinecone
	}
	if c.Retrieval.RerankProvider == "" {
		c.Retrieval.RerankProvider = ProviderPinecone
	}
	if c.Retrieval.SearchTopK <= 0 {
		c.Retrieval.SearchTopK = 10
	}
	if c.Retrieval.ChatTopK <= 0 {
		c.Retrieval.ChatTopK = 5
	}

	if c.Pinecone.TimeoutSec <= 0 {
		c.Pinecone.TimeoutSec = 30
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "doc:"
	}
	if c.Redis.ReadinessTimeout <= 0 {
		c.Redis.ReadinessTimeout = 10
	}
	if c.RerankAPI.TimeoutSec <= 0 {
		c.RerankAPI.TimeoutSec = 30
	}

	if c.Chat.Model == "" {
		c.Chat.Model = "gpt-4o-mini"
	}
	if c.Chat.Temperature == nil {
		t := float32(0.7)
		c.Chat.Temperature = &t
	}
	if c.Chat.MaxTokens <= 0 {
		c.Chat.MaxTokens = 500
	}

	if c.Retry.DelayMs <= 0 {
		c.Retry.DelayMs = 1000
	}
}

// Validate checks the configuration for correctness. Missing required settings
// for the selected providers wrap domain.ErrConfiguration.
func (c *Config) Validate() error {
	var errs []error
	require := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format+": %w", append(args, domain.ErrConfiguration)...))
		}
	}

	require(c.HTTP.Port > 0 && c.HTTP.Port <= 65535, "http.port must be between 1 and 65535, got %d", c.HTTP.Port)

	usesPinecone := false
	switch c.Retrieval.IndexProvider {
	case ProviderPinecone:
		usesPinecone = true
		require(c.Pinecone.IndexName != "", "pinecone.index_name is required")
	case ProviderRedis:
		require(len(c.Redis.Addrs) > 0, "redis.addrs is required")
		require(c.Redis.IndexName != "", "redis.index_name is required")
	default:
		require(false, "retrieval.index_provider must be %q or %q, got %q",
			ProviderPinecone, ProviderRedis, c.Retrieval.IndexProvider)
	}

	switch c.Retrieval.EmbeddingProvider {
	case ProviderPinecone:
		usesPinecone = true
		require(c.Pinecone.EmbeddingModel != "", "pinecone.embedding_model is required")
	case ProviderOpenAI:
		require(c.OpenAI.EmbeddingModel != "", "openai.embedding_model is required")
	default:
		require(false, "retrieval.embedding_provider must be %q or %q, got %q",
			ProviderPinecone, ProviderOpenAI, c.Retrieval.EmbeddingProvider)
	}

	switch c.Retrieval.RerankProvider {
	case ProviderPinecone:
		usesPinecone = true
		require(c.Pinecone.RerankModel != "", "pinecone.rerank_model is required")
	case ProviderRerankAPI:
		require(c.RerankAPI.BaseURL != "", "rerank_api.base_url is required")
		require(c.RerankAPI.Model != "", "rerank_api.model is required")
	default:
		require(false, "retrieval.rerank_provider must be %q or %q, got %q",
			ProviderPinecone, ProviderRerankAPI, c.Retrieval.RerankProvider)
	}

	if usesPinecone {
		require(c.Pinecone.APIKey != "", "pinecone.api_key is required")
	}
	require(c.OpenAI.APIKey != "", "openai.api_key is required")

	return errors.Join(errs...)
}

// loadDotEnv loads dotenv files into the process environment.
// Missing files are skipped; variables already set are not overridden.
func loadDotEnv(files ...string) error {
	for _, f := range files {
		if !fileExists(f) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
