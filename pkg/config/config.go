package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AzureOpenAIConfig holds the Azure OpenAI connection settings
type AzureOpenAIConfig struct {
	Endpoint          string `yaml:"endpoint"`
	APIKey            string `yaml:"api_key"`
	APIVersion        string `yaml:"api_version"`
	ChatDeployment    string `yaml:"chat_deployment"`
	CodegenDeployment string `yaml:"codegen_deployment"`
	EmbedDeployment   string `yaml:"embed_deployment"`
}

// ServerConfig holds the HTTP server settings
type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	WorkDir        string        `yaml:"work_dir"`
	ShutdownGrace  time.Duration `yaml:"shutdown_grace"`
}

// VectorStoreConfig holds the vector store settings
type VectorStoreConfig struct {
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	Host        string `yaml:"host"`
	Scheme      string `yaml:"scheme"`
	APIKey      string `yaml:"api_key"`
	ClassPrefix string `yaml:"class_prefix"`
}

// MemoryConfig holds the conversation memory settings
type MemoryConfig struct {
	Backend  string `yaml:"backend"`
	RedisURL string `yaml:"redis_url"`
	MaxSize  int    `yaml:"max_size"`
}

// RetrievalConfig holds the chunking and search settings
type RetrievalConfig struct {
	ChunkSize    int     `yaml:"chunk_size"`
	ChunkOverlap int     `yaml:"chunk_overlap"`
	TopK         int     `yaml:"top_k"`
	MinScore     float32 `yaml:"min_score"`
}

// SandboxConfig holds the code execution settings
type SandboxConfig struct {
	Interpreter string        `yaml:"interpreter"`
	Timeout     time.Duration `yaml:"timeout"`
	WorkDir     string        `yaml:"work_dir"`
}

// TracingConfig holds the tracing exporter settings
type TracingConfig struct {
	Enabled      bool   `yaml:"enabled"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name"`

	// Langfuse generation tracing. API keys come from the standard
	// LANGFUSE_* environment variables.
	LangfuseEnabled     bool   `yaml:"langfuse_enabled"`
	LangfuseEnvironment string `yaml:"langfuse_environment"`
}

// DatabaseConfig holds the job store settings
type DatabaseConfig struct {
	Backend string `yaml:"backend"`
	DSN     string `yaml:"dsn"`
}

// Config is the top level configuration for the application
type Config struct {
	AzureOpenAI AzureOpenAIConfig `yaml:"azure_openai"`
	Server      ServerConfig      `yaml:"server"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Memory      MemoryConfig      `yaml:"memory"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Sandbox     SandboxConfig     `yaml:"sandbox"`
	Tracing     TracingConfig     `yaml:"tracing"`
	Database    DatabaseConfig    `yaml:"database"`
	LogLevel    string            `yaml:"log_level"`
}

// Default returns the configuration defaults
func Default() *Config {
	return &Config{
		AzureOpenAI: AzureOpenAIConfig{
			APIVersion:        "2024-12-01-preview",
			ChatDeployment:    "gpt-4o",
			CodegenDeployment: "o3-mini",
			EmbedDeployment:   "text-embedding-3-small",
		},
		Server: ServerConfig{
			Addr:           ":8080",
			MaxUploadBytes: 1 << 30,
			WorkDir:        "data",
			ShutdownGrace:  10 * time.Second,
		},
		VectorStore: VectorStoreConfig{
			Backend:     "flat",
			Path:        "data/index",
			Scheme:      "http",
			ClassPrefix: "Codescribe",
		},
		Memory: MemoryConfig{
			Backend: "buffer",
			MaxSize: 100,
		},
		Retrieval: RetrievalConfig{
			ChunkSize:    1000,
			ChunkOverlap: 100,
			TopK:         5,
		},
		Sandbox: SandboxConfig{
			Interpreter: "python3",
			Timeout:     60 * time.Second,
		},
		Tracing: TracingConfig{
			ServiceName: "codescribe",
		},
		Database: DatabaseConfig{
			Backend: "memory",
		},
		LogLevel: "info",
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// environment variables, in that order of precedence. A .env file in the
// working directory is loaded first if present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.AzureOpenAI.Endpoint, "AZURE_OPENAI_ENDPOINT")
	setString(&c.AzureOpenAI.APIKey, "AZURE_OPENAI_API_KEY")
	setString(&c.AzureOpenAI.APIVersion, "AZURE_OPENAI_API_VERSION")
	setString(&c.AzureOpenAI.ChatDeployment, "AZURE_OPENAI_CHAT_DEPLOYMENT")
	setString(&c.AzureOpenAI.CodegenDeployment, "AZURE_OPENAI_CODEGEN_DEPLOYMENT")
	setString(&c.AzureOpenAI.EmbedDeployment, "AZURE_OPENAI_EMBED_DEPLOYMENT")

	setString(&c.Server.Addr, "SERVER_ADDR")
	setInt64(&c.Server.MaxUploadBytes, "SERVER_MAX_UPLOAD_BYTES")
	setString(&c.Server.WorkDir, "SERVER_WORK_DIR")

	setString(&c.VectorStore.Backend, "VECTORSTORE_BACKEND")
	setString(&c.VectorStore.Path, "VECTORSTORE_PATH")
	setString(&c.VectorStore.Host, "WEAVIATE_HOST")
	setString(&c.VectorStore.Scheme, "WEAVIATE_SCHEME")
	setString(&c.VectorStore.APIKey, "WEAVIATE_API_KEY")

	setString(&c.Memory.Backend, "MEMORY_BACKEND")
	setString(&c.Memory.RedisURL, "REDIS_URL")
	setInt(&c.Memory.MaxSize, "MEMORY_MAX_SIZE")

	setInt(&c.Retrieval.ChunkSize, "RETRIEVAL_CHUNK_SIZE")
	setInt(&c.Retrieval.ChunkOverlap, "RETRIEVAL_CHUNK_OVERLAP")
	setInt(&c.Retrieval.TopK, "RETRIEVAL_TOP_K")

	setString(&c.Sandbox.Interpreter, "SANDBOX_INTERPRETER")
	setDuration(&c.Sandbox.Timeout, "SANDBOX_TIMEOUT")
	setString(&c.Sandbox.WorkDir, "SANDBOX_WORK_DIR")

	setBool(&c.Tracing.Enabled, "TRACING_ENABLED")
	setString(&c.Tracing.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&c.Tracing.ServiceName, "OTEL_SERVICE_NAME")
	setBool(&c.Tracing.LangfuseEnabled, "LANGFUSE_TRACING_ENABLED")
	setString(&c.Tracing.LangfuseEnvironment, "LANGFUSE_ENVIRONMENT")

	setString(&c.Database.Backend, "DATABASE_BACKEND")
	setString(&c.Database.DSN, "DATABASE_DSN")

	setString(&c.LogLevel, "LOG_LEVEL")
}

// Validate checks the configuration for inconsistencies
func (c *Config) Validate() error {
	if c.Retrieval.ChunkSize <= 0 {
		return fmt.Errorf("retrieval chunk size must be positive, got %d", c.Retrieval.ChunkSize)
	}
	if c.Retrieval.ChunkOverlap < 0 || c.Retrieval.ChunkOverlap >= c.Retrieval.ChunkSize {
		return fmt.Errorf("retrieval chunk overlap must be in [0, chunk size), got %d", c.Retrieval.ChunkOverlap)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval top k must be positive, got %d", c.Retrieval.TopK)
	}
	if c.Sandbox.Timeout <= 0 {
		return fmt.Errorf("sandbox timeout must be positive, got %s", c.Sandbox.Timeout)
	}
	switch c.VectorStore.Backend {
	case "flat", "weaviate":
	default:
		return fmt.Errorf("unknown vector store backend %q", c.VectorStore.Backend)
	}
	switch c.Memory.Backend {
	case "buffer", "redis":
	default:
		return fmt.Errorf("unknown memory backend %q", c.Memory.Backend)
	}
	switch c.Database.Backend {
	case "memory", "postgres":
	default:
		return fmt.Errorf("unknown database backend %q", c.Database.Backend)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
