package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

type CorpusConfig struct {
	Path   string   `yaml:"path" toml:"path"`
	Source string   `yaml:"source" toml:"source"`
	URLs   []string `yaml:"urls" toml:"urls"`
}

type ProcessorConfig struct {
	ChunkSize    int `yaml:"chunk_size" toml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap" toml:"chunk_overlap"`
}

type EmbedderConfig struct {
	Provider      string `yaml:"provider" toml:"provider"`
	BaseURL       string `yaml:"base_url" toml:"base_url"`
	Model         string `yaml:"model" toml:"model"`
	APIKey        string `yaml:"api_key" toml:"api_key"`
	BatchSize     int    `yaml:"batch_size" toml:"batch_size"`
	Dimension     int    `yaml:"dimension" toml:"dimension"`
	MaxInputChars int    `yaml:"max_input_chars" toml:"max_input_chars"`
}

type LLMConfig struct {
	Provider    string  `yaml:"provider" toml:"provider"`
	BaseURL     string  `yaml:"base_url" toml:"base_url"`
	Model       string  `yaml:"model" toml:"model"`
	APIKey      string  `yaml:"api_key" toml:"api_key"`
	MaxTokens   int     `yaml:"max_tokens" toml:"max_tokens"`
	Temperature float64 `yaml:"temperature" toml:"temperature"`
	TimeoutSecs int     `yaml:"timeout_secs" toml:"timeout_secs"`
}

type IndexConfig struct {
	Backend string `yaml:"backend" toml:"backend"`
	Dir     string `yaml:"dir" toml:"dir"`
	Name    string `yaml:"name" toml:"name"`
}

type DatabaseConfig struct {
	URL       string `yaml:"url" toml:"url"`
	TableName string `yaml:"table_name" toml:"table_name"`
}

type RetryConfig struct {
	MaxAttempts int `yaml:"max_attempts" toml:"max_attempts"`
	BaseDelayMs int `yaml:"base_delay_ms" toml:"base_delay_ms"`
	MaxDelayMs  int `yaml:"max_delay_ms" toml:"max_delay_ms"`
}

type ScraperConfig struct {
	MaxDepth          int      `yaml:"max_depth" toml:"max_depth"`
	RateLimit         float64  `yaml:"rate_limit" toml:"rate_limit"`
	TimeoutSecs       int      `yaml:"timeout_secs" toml:"timeout_secs"`
	UserAgent         string   `yaml:"user_agent" toml:"user_agent"`
	Source            string   `yaml:"source" toml:"source"`
	IgnorePatterns    []string `yaml:"ignore_patterns" toml:"ignore_patterns"`
	AllowedExtensions []string `yaml:"allowed_extensions" toml:"allowed_extensions"`
}

type ServerConfig struct {
	Addr        string `yaml:"addr" toml:"addr"`
	DefaultTopK int    `yaml:"default_top_k" toml:"default_top_k"`
	MaxTopK     int    `yaml:"max_top_k" toml:"max_top_k"`
}

type Config struct {
	Corpus    CorpusConfig    `yaml:"corpus" toml:"corpus"`
	Processor ProcessorConfig `yaml:"processor" toml:"processor"`
	Embedder  EmbedderConfig  `yaml:"embedder" toml:"embedder"`
	LLM       LLMConfig       `yaml:"llm" toml:"llm"`
	Index     IndexConfig     `yaml:"index" toml:"index"`
	Database  DatabaseConfig  `yaml:"database" toml:"database"`
	Retry     RetryConfig     `yaml:"retry" toml:"retry"`
	Scraper   ScraperConfig   `yaml:"scraper" toml:"scraper"`
	Server    ServerConfig    `yaml:"server" toml:"server"`
}

// VectorPath is the location of the persisted vector array.
func (c IndexConfig) VectorPath() string {
	return filepath.Join(c.Dir, c.Name+"_embeddings.npy")
}

// MetadataPath is the location of the persisted metadata array.
func (c IndexConfig) MetadataPath() string {
	return filepath.Join(c.Dir, c.Name+"_metadata.json")
}

func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

func (c ScraperConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

func (c RetryConfig) BaseDelay() time.Duration {
	return time.Duration(c.BaseDelayMs) * time.Millisecond
}

func (c RetryConfig) MaxDelay() time.Duration {
	return time.Duration(c.MaxDelayMs) * time.Millisecond
}

// LoadConfig reads a YAML or TOML config file. Keys missing from the file
// keep their default values.
func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			"config.toml",
			filepath.Join(os.Getenv("HOME"), ".config/contractqa/config.yaml"),
			"/etc/contractqa/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	config := defaultConfig()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, config)
	} else {
		err = yaml.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// Apply defaults for values the file left empty
	applyDefaults(config)

	// Merge with environment variables
	mergeWithEnv(config)

	return config, nil
}

func getDefaultConfig() (*Config, error) {
	config := defaultConfig()
	applyDefaults(config)
	mergeWithEnv(config)
	return config, nil
}

// defaultConfig holds the numeric defaults, including those where zero is a
// meaningful setting and applyDefaults cannot tell it from unset.
func defaultConfig() *Config {
	config := &Config{
		Processor: ProcessorConfig{ChunkSize: 800, ChunkOverlap: 200},
		LLM:       LLMConfig{MaxTokens: 256, Temperature: 0},
		Retry:     RetryConfig{MaxAttempts: 1, BaseDelayMs: 200, MaxDelayMs: 5000},
		Server:    ServerConfig{DefaultTopK: 4, MaxTopK: 50},
	}
	return config
}

func applyDefaults(config *Config) {
	if config.Corpus.Path == "" {
		config.Corpus.Path = "data/raw_docs/CUADv1.json"
	}
	if config.Corpus.Source == "" {
		config.Corpus.Source = "CUAD"
	}

	if config.Embedder.Provider == "" {
		config.Embedder.Provider = "ollama"
	}
	if config.Embedder.BaseURL == "" && config.Embedder.Provider == "ollama" {
		config.Embedder.BaseURL = "http://localhost:11434"
	}
	if config.Embedder.Model == "" {
		config.Embedder.Model = "nomic-embed-text:latest"
	}
	if config.Embedder.BatchSize == 0 {
		config.Embedder.BatchSize = 32
	}

	if config.LLM.Provider == "" {
		config.LLM.Provider = "ollama"
	}
	if config.LLM.BaseURL == "" && config.LLM.Provider == "ollama" {
		config.LLM.BaseURL = "http://localhost:11434"
	}
	if config.LLM.Model == "" {
		config.LLM.Model = "mistral"
	}
	if config.LLM.TimeoutSecs == 0 {
		config.LLM.TimeoutSecs = 120
	}

	if config.Index.Backend == "" {
		config.Index.Backend = "file"
	}
	if config.Index.Dir == "" {
		config.Index.Dir = "data/embeddings"
	}
	if config.Index.Name == "" {
		config.Index.Name = "cuad"
	}
	if config.Database.TableName == "" {
		config.Database.TableName = "contract_chunks"
	}

	if config.Scraper.RateLimit == 0 {
		config.Scraper.RateLimit = 5.0
	}
	if config.Scraper.TimeoutSecs == 0 {
		config.Scraper.TimeoutSecs = 30
	}
	if config.Scraper.UserAgent == "" {
		config.Scraper.UserAgent = "contractqa/1.0 (contact@example.com)"
	}
	if config.Scraper.Source == "" {
		config.Scraper.Source = "EDGAR"
	}
	if len(config.Scraper.AllowedExtensions) == 0 {
		config.Scraper.AllowedExtensions = []string{".htm", ".html", ".txt", "/"}
	}

	if config.Server.Addr == "" {
		config.Server.Addr = ":8000"
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		if config.Embedder.Provider == "ollama" {
			config.Embedder.BaseURL = baseURL
		}
		if config.LLM.Provider == "ollama" {
			config.LLM.BaseURL = baseURL
		}
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		if config.Embedder.APIKey == "" {
			config.Embedder.APIKey = key
		}
		if config.LLM.APIKey == "" {
			config.LLM.APIKey = key
		}
	}
	if corpus := os.Getenv("CONTRACTQA_CORPUS"); corpus != "" {
		config.Corpus.Path = corpus
	}
}
