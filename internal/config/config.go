package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server"`
	VectorDB  VectorDBConfig  `json:"vector_db" yaml:"vector_db"`
	OpenAI    OpenAIConfig    `json:"openai" yaml:"openai"`
	Search    SearchConfig    `json:"search" yaml:"search"`
	Chunking  ChunkingConfig  `json:"chunking" yaml:"chunking"`
	Session   SessionConfig   `json:"session" yaml:"session"`
	Cache     CacheConfig     `json:"cache" yaml:"cache"`
	RateLimit RateLimitConfig `json:"rate_limit" yaml:"rate_limit"`
	Data      DataConfig      `json:"data" yaml:"data"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string `json:"host" yaml:"host"`
	Port         int    `json:"port" yaml:"port"`
	ReadTimeout  int    `json:"read_timeout_seconds" yaml:"read_timeout_seconds"`
	WriteTimeout int    `json:"write_timeout_seconds" yaml:"write_timeout_seconds"`
	CORSOrigins  string `json:"cors_origins" yaml:"cors_origins"`
	APIKey       string `json:"-" yaml:"-"` // Never serialize credentials
}

// VectorDBConfig selects and configures the vector database adapter
type VectorDBConfig struct {
	Type             string       `json:"type" yaml:"type"`
	PersistDirectory string       `json:"persist_directory" yaml:"persist_directory"`
	Qdrant           QdrantConfig `json:"qdrant" yaml:"qdrant"`
}

// QdrantConfig represents Qdrant vector database configuration
type QdrantConfig struct {
	Host           string `json:"host" yaml:"host"`
	Port           int    `json:"port" yaml:"port"`
	APIKey         string `json:"-" yaml:"-"` // Never serialize API key
	UseTLS         bool   `json:"use_tls" yaml:"use_tls"`
	Collection     string `json:"collection" yaml:"collection"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// OpenAIConfig represents embedding and LLM provider configuration
type OpenAIConfig struct {
	APIKey            string  `json:"-" yaml:"-"` // Never serialize API key
	LLMModel          string  `json:"llm_model" yaml:"llm_model"`
	EmbeddingModel    string  `json:"embedding_model" yaml:"embedding_model"`
	Temperature       float64 `json:"temperature" yaml:"temperature"`
	EmbeddingTimeout  int     `json:"embedding_timeout_seconds" yaml:"embedding_timeout_seconds"`
	LLMTimeout        int     `json:"llm_timeout_seconds" yaml:"llm_timeout_seconds"`
	RateLimitRPM      int     `json:"rate_limit_rpm" yaml:"rate_limit_rpm"`
	EmbeddingCacheLen int     `json:"embedding_cache_size" yaml:"embedding_cache_size"`
}

// SearchConfig represents retrieval knobs
type SearchConfig struct {
	DefaultTopK      int `json:"default_top_k" yaml:"default_top_k"`
	RerankTopK       int `json:"rerank_top_k" yaml:"rerank_top_k"`
	MaxResults       int `json:"max_results" yaml:"max_results"`
	DefaultResults   int `json:"default_results" yaml:"default_results"`
	MaxSources       int `json:"max_sources" yaml:"max_sources"`
	ContextMaxLength int `json:"context_max_length" yaml:"context_max_length"`
	TimeoutSeconds   int `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// ChunkingConfig represents document chunking configuration
type ChunkingConfig struct {
	ChunkSize           int  `json:"chunk_size" yaml:"chunk_size"`
	ChunkOverlap        int  `json:"chunk_overlap" yaml:"chunk_overlap"`
	SplitStatuteByItems bool `json:"split_statute_by_items" yaml:"split_statute_by_items"`
}

// SessionConfig represents conversation session configuration
type SessionConfig struct {
	MaxSessions    int    `json:"max_sessions" yaml:"max_sessions"`
	TimeoutMinutes int    `json:"timeout_minutes" yaml:"timeout_minutes"`
	MaxTurns       int    `json:"max_turns" yaml:"max_turns"`
	RedisURL       string `json:"-" yaml:"redis_url"` // May embed credentials
}

// CacheConfig represents query cache configuration
type CacheConfig struct {
	Enabled    bool `json:"enabled" yaml:"enabled"`
	MaxSize    int  `json:"max_size" yaml:"max_size"`
	TTLSeconds int  `json:"ttl_seconds" yaml:"ttl_seconds"`
}

// RateLimitConfig represents per-path request limits (requests per minute)
type RateLimitConfig struct {
	Default  int `json:"default" yaml:"default"`
	Search   int `json:"search" yaml:"search"`
	Ask      int `json:"ask" yaml:"ask"`
	Generate int `json:"generate" yaml:"generate"`
	Admin    int `json:"admin" yaml:"admin"`
}

// DataConfig represents on-disk state locations
type DataConfig struct {
	Dir            string `json:"dir" yaml:"dir"`
	IndexStateFile string `json:"index_state_file" yaml:"index_state_file"`
	QueryLogFile   string `json:"query_log_file" yaml:"query_log_file"`
	ErrorLogFile   string `json:"error_log_file" yaml:"error_log_file"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level string `json:"level" yaml:"level"`
	File  string `json:"file,omitempty" yaml:"file"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8000,
			ReadTimeout:  30,
			WriteTimeout: 180,
			CORSOrigins:  "*",
		},
		VectorDB: VectorDBConfig{
			Type:             "qdrant",
			PersistDirectory: "./data/vector_db",
			Qdrant: QdrantConfig{
				Host:           "localhost",
				Port:           6334,
				UseTLS:         false,
				Collection:     "legal_documents",
				TimeoutSeconds: 10,
			},
		},
		OpenAI: OpenAIConfig{
			LLMModel:          "gpt-4-turbo-preview",
			EmbeddingModel:    "text-embedding-3-large",
			Temperature:       0.3,
			EmbeddingTimeout:  30,
			LLMTimeout:        60,
			RateLimitRPM:      60,
			EmbeddingCacheLen: 1000,
		},
		Search: SearchConfig{
			DefaultTopK:      10,
			RerankTopK:       5,
			MaxResults:       20,
			DefaultResults:   5,
			MaxSources:       3,
			ContextMaxLength: 12000,
			TimeoutSeconds:   10,
		},
		Chunking: ChunkingConfig{
			ChunkSize:           1000,
			ChunkOverlap:        200,
			SplitStatuteByItems: false,
		},
		Session: SessionConfig{
			MaxSessions:    1000,
			TimeoutMinutes: 30,
			MaxTurns:       3,
		},
		Cache: CacheConfig{
			Enabled:    true,
			MaxSize:    1000,
			TTLSeconds: 3600,
		},
		RateLimit: RateLimitConfig{
			Default:  60,
			Search:   30,
			Ask:      20,
			Generate: 10,
			Admin:    10,
		},
		Data: DataConfig{
			Dir:            "./data",
			IndexStateFile: "./data/index_state.json",
			QueryLogFile:   "./data/logs/queries.jsonl",
			ErrorLogFile:   "./data/logs/errors.jsonl",
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
	}
}

// LoadConfig loads configuration from defaults, an optional YAML file and
// environment variables, in increasing order of precedence.
func LoadConfig(configFile string) (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := DefaultConfig()

	if configFile != "" {
		if err := loadFromFile(config, configFile); err != nil {
			return nil, err
		}
	}

	loadFromEnv(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// loadFromFile overlays settings from a YAML file onto the config
func loadFromFile(config *Config, path string) error {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the operator
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// loadFromEnv loads configuration from environment variables
func loadFromEnv(config *Config) {
	loadServerConfig(config)
	loadVectorDBConfig(config)
	loadOpenAIConfig(config)
	loadSearchConfig(config)
	loadChunkingConfig(config)
	loadSessionConfig(config)
	loadCacheConfig(config)
	loadRateLimitConfig(config)
	loadDataConfig(config)
	loadLoggingConfig(config)
}

func loadServerConfig(config *Config) {
	if host := os.Getenv("API_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("API_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if readTimeout := os.Getenv("API_READ_TIMEOUT_SECONDS"); readTimeout != "" {
		if rt, err := strconv.Atoi(readTimeout); err == nil {
			config.Server.ReadTimeout = rt
		}
	}
	if writeTimeout := os.Getenv("API_WRITE_TIMEOUT_SECONDS"); writeTimeout != "" {
		if wt, err := strconv.Atoi(writeTimeout); err == nil {
			config.Server.WriteTimeout = wt
		}
	}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		config.Server.CORSOrigins = origins
	}
	if apiKey := os.Getenv("API_KEY"); apiKey != "" {
		config.Server.APIKey = apiKey
	}
}

func loadVectorDBConfig(config *Config) {
	if dbType := os.Getenv("VECTOR_DB_TYPE"); dbType != "" {
		config.VectorDB.Type = dbType
	}
	if dir := os.Getenv("CHROMA_PERSIST_DIRECTORY"); dir != "" {
		config.VectorDB.PersistDirectory = dir
	}
	if host := os.Getenv("QDRANT_HOST"); host != "" {
		config.VectorDB.Qdrant.Host = host
	}
	if port := os.Getenv("QDRANT_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.VectorDB.Qdrant.Port = p
		}
	}
	if apiKey := os.Getenv("QDRANT_API_KEY"); apiKey != "" {
		config.VectorDB.Qdrant.APIKey = apiKey
	}
	if useTLS := os.Getenv("QDRANT_USE_TLS"); useTLS != "" {
		if tls, err := strconv.ParseBool(useTLS); err == nil {
			config.VectorDB.Qdrant.UseTLS = tls
		}
	}
	if collection := os.Getenv("QDRANT_COLLECTION"); collection != "" {
		config.VectorDB.Qdrant.Collection = collection
	}
	if timeout := os.Getenv("QDRANT_TIMEOUT_SECONDS"); timeout != "" {
		if ts, err := strconv.Atoi(timeout); err == nil {
			config.VectorDB.Qdrant.TimeoutSeconds = ts
		}
	}
}

func loadOpenAIConfig(config *Config) {
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey
	}
	if model := os.Getenv("LLM_MODEL"); model != "" {
		config.OpenAI.LLMModel = model
	}
	if model := os.Getenv("EMBEDDING_MODEL"); model != "" {
		config.OpenAI.EmbeddingModel = model
	}
	if temperature := os.Getenv("LLM_TEMPERATURE"); temperature != "" {
		if temp, err := strconv.ParseFloat(temperature, 64); err == nil {
			config.OpenAI.Temperature = temp
		}
	}
	if timeout := os.Getenv("EMBEDDING_TIMEOUT_SECONDS"); timeout != "" {
		if ts, err := strconv.Atoi(timeout); err == nil {
			config.OpenAI.EmbeddingTimeout = ts
		}
	}
	if timeout := os.Getenv("LLM_TIMEOUT_SECONDS"); timeout != "" {
		if ts, err := strconv.Atoi(timeout); err == nil {
			config.OpenAI.LLMTimeout = ts
		}
	}
	if rpm := os.Getenv("EMBEDDING_RATE_LIMIT_RPM"); rpm != "" {
		if rl, err := strconv.Atoi(rpm); err == nil {
			config.OpenAI.RateLimitRPM = rl
		}
	}
	if size := os.Getenv("EMBEDDING_CACHE_SIZE"); size != "" {
		if s, err := strconv.Atoi(size); err == nil {
			config.OpenAI.EmbeddingCacheLen = s
		}
	}
}

func loadSearchConfig(config *Config) {
	if topK := os.Getenv("SEARCH_DEFAULT_TOP_K"); topK != "" {
		if k, err := strconv.Atoi(topK); err == nil {
			config.Search.DefaultTopK = k
		}
	}
	if rerank := os.Getenv("SEARCH_RERANK_TOP_K"); rerank != "" {
		if k, err := strconv.Atoi(rerank); err == nil {
			config.Search.RerankTopK = k
		}
	}
	if maxResults := os.Getenv("SEARCH_MAX_RESULTS"); maxResults != "" {
		if m, err := strconv.Atoi(maxResults); err == nil {
			config.Search.MaxResults = m
		}
	}
	if defaultResults := os.Getenv("SEARCH_DEFAULT_RESULTS"); defaultResults != "" {
		if d, err := strconv.Atoi(defaultResults); err == nil {
			config.Search.DefaultResults = d
		}
	}
	if maxSources := os.Getenv("SEARCH_MAX_SOURCES"); maxSources != "" {
		if m, err := strconv.Atoi(maxSources); err == nil {
			config.Search.MaxSources = m
		}
	}
	if maxLen := os.Getenv("CONTEXT_MAX_LENGTH"); maxLen != "" {
		if m, err := strconv.Atoi(maxLen); err == nil {
			config.Search.ContextMaxLength = m
		}
	}
	if timeout := os.Getenv("SEARCH_TIMEOUT_SECONDS"); timeout != "" {
		if ts, err := strconv.Atoi(timeout); err == nil {
			config.Search.TimeoutSeconds = ts
		}
	}
}

func loadChunkingConfig(config *Config) {
	if size := os.Getenv("CHUNK_SIZE"); size != "" {
		if s, err := strconv.Atoi(size); err == nil {
			config.Chunking.ChunkSize = s
		}
	}
	if overlap := os.Getenv("CHUNK_OVERLAP"); overlap != "" {
		if o, err := strconv.Atoi(overlap); err == nil {
			config.Chunking.ChunkOverlap = o
		}
	}
	if split := os.Getenv("SPLIT_STATUTE_BY_ITEMS"); split != "" {
		if b, err := strconv.ParseBool(split); err == nil {
			config.Chunking.SplitStatuteByItems = b
		}
	}
}

func loadSessionConfig(config *Config) {
	if maxSessions := os.Getenv("SESSION_MAX_SESSIONS"); maxSessions != "" {
		if m, err := strconv.Atoi(maxSessions); err == nil {
			config.Session.MaxSessions = m
		}
	}
	if timeout := os.Getenv("SESSION_TIMEOUT_MINUTES"); timeout != "" {
		if t, err := strconv.Atoi(timeout); err == nil {
			config.Session.TimeoutMinutes = t
		}
	}
	if maxTurns := os.Getenv("SESSION_MAX_TURNS"); maxTurns != "" {
		if m, err := strconv.Atoi(maxTurns); err == nil {
			config.Session.MaxTurns = m
		}
	}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		config.Session.RedisURL = redisURL
	}
}

func loadCacheConfig(config *Config) {
	if enabled := os.Getenv("CACHE_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Cache.Enabled = e
		}
	}
	if maxSize := os.Getenv("CACHE_MAX_SIZE"); maxSize != "" {
		if m, err := strconv.Atoi(maxSize); err == nil {
			config.Cache.MaxSize = m
		}
	}
	if ttl := os.Getenv("CACHE_TTL"); ttl != "" {
		if t, err := strconv.Atoi(ttl); err == nil {
			config.Cache.TTLSeconds = t
		}
	}
}

func loadRateLimitConfig(config *Config) {
	if limit := os.Getenv("RATE_LIMIT_DEFAULT"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil {
			config.RateLimit.Default = l
		}
	}
	if limit := os.Getenv("RATE_LIMIT_SEARCH"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil {
			config.RateLimit.Search = l
		}
	}
	if limit := os.Getenv("RATE_LIMIT_ASK"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil {
			config.RateLimit.Ask = l
		}
	}
	if limit := os.Getenv("RATE_LIMIT_GENERATE"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil {
			config.RateLimit.Generate = l
		}
	}
	if limit := os.Getenv("RATE_LIMIT_ADMIN"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil {
			config.RateLimit.Admin = l
		}
	}
}

func loadDataConfig(config *Config) {
	if dir := os.Getenv("DATA_DIR"); dir != "" {
		config.Data.Dir = dir
	}
	if stateFile := os.Getenv("INDEX_STATE_FILE"); stateFile != "" {
		config.Data.IndexStateFile = stateFile
	}
	if queryLog := os.Getenv("QUERY_LOG_FILE"); queryLog != "" {
		config.Data.QueryLogFile = queryLog
	}
	if errorLog := os.Getenv("ERROR_LOG_FILE"); errorLog != "" {
		config.Data.ErrorLogFile = errorLog
	}
}

func loadLoggingConfig(config *Config) {
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if file := os.Getenv("LOG_FILE"); file != "" {
		config.Logging.File = file
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}

	switch strings.ToLower(c.VectorDB.Type) {
	case "qdrant":
	case "chroma":
		return fmt.Errorf("vector_db_type %q is not available in this build; use qdrant", c.VectorDB.Type)
	default:
		return fmt.Errorf("unknown vector_db_type: %s", c.VectorDB.Type)
	}
	if c.VectorDB.Qdrant.Host == "" {
		return fmt.Errorf("qdrant host cannot be empty")
	}
	if c.VectorDB.Qdrant.Port <= 0 {
		return fmt.Errorf("qdrant port must be greater than 0")
	}
	if c.VectorDB.Qdrant.Collection == "" {
		return fmt.Errorf("qdrant collection cannot be empty")
	}

	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("OpenAI API key is required")
	}
	if c.OpenAI.EmbeddingModel == "" {
		return fmt.Errorf("embedding model cannot be empty")
	}
	if c.OpenAI.LLMModel == "" {
		return fmt.Errorf("LLM model cannot be empty")
	}

	if c.Search.DefaultTopK <= 0 {
		return fmt.Errorf("search default top_k must be positive")
	}
	if c.Search.RerankTopK <= 0 {
		return fmt.Errorf("search rerank top_k must be positive")
	}
	if c.Search.MaxResults < c.Search.DefaultResults {
		return fmt.Errorf("search max results must be at least default results")
	}

	if c.Chunking.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive")
	}
	if c.Chunking.ChunkOverlap < 0 || c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("chunk overlap must be in [0, chunk_size)")
	}

	if c.Session.MaxSessions <= 0 {
		return fmt.Errorf("session max sessions must be positive")
	}
	if c.Session.TimeoutMinutes <= 0 {
		return fmt.Errorf("session timeout must be positive")
	}

	if c.Cache.MaxSize <= 0 {
		return fmt.Errorf("cache max size must be positive")
	}
	if c.Cache.TTLSeconds <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}

	if c.RateLimit.Default <= 0 {
		return fmt.Errorf("default rate limit must be positive")
	}

	return nil
}

// CORSOriginList parses the configured CORS origins into a slice;
// "*" yields a single wildcard entry.
func (c *Config) CORSOriginList() []string {
	raw := strings.TrimSpace(c.Server.CORSOrigins)
	if raw == "" || raw == "*" {
		return []string{"*"}
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// GetDataDir returns the data directory path, creating it if necessary
func (c *Config) GetDataDir() (string, error) {
	dataDir := c.Data.Dir
	if dataDir == "" {
		dataDir = "./data"
	}

	absPath, err := filepath.Abs(dataDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path for data directory: %w", err)
	}

	if err := os.MkdirAll(absPath, 0o750); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	return absPath, nil
}
