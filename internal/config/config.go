// Package config loads application settings from YAML and the environment.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Conf holds the settings loaded by Init.
var Conf Config

// Config mirrors the layout of configs/config.yaml.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	Google        GoogleConfig        `mapstructure:"google"`
	Log           LogConfig           `mapstructure:"log"`
	CORS          CORSConfig          `mapstructure:"cors"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Tika          TikaConfig          `mapstructure:"tika"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Embedding     EmbeddingConfig     `mapstructure:"embedding"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Chat          ChatConfig          `mapstructure:"chat"`
	Upload        UploadConfig        `mapstructure:"upload"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig selects the SQL driver and connection string.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // mysql | postgres
	DSN    string `mapstructure:"dsn"`
}

// RedisConfig holds the Redis connection settings.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig holds token settings.
type JWTConfig struct {
	Secret                   string `mapstructure:"secret"`
	AccessTokenExpireMinutes int    `mapstructure:"access_token_expire_minutes"`
	RefreshTokenExpireDays   int    `mapstructure:"refresh_token_expire_days"`
	CleanupCron              string `mapstructure:"cleanup_cron"`
}

// GoogleConfig configures Google sign-in.
type GoogleConfig struct {
	ClientID      string `mapstructure:"client_id"`
	SkipTokenAuth bool   `mapstructure:"skip_token_auth"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// CORSConfig lists allowed origins; "*" allows all.
type CORSConfig struct {
	Origin string `mapstructure:"origin"`
}

// KafkaConfig configures the ingestion queue.
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

// TikaConfig points at an Apache Tika server.
type TikaConfig struct {
	ServerURL string `mapstructure:"server_url"`
}

// ElasticsearchConfig configures the vector index.
type ElasticsearchConfig struct {
	Addresses string `mapstructure:"addresses"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	IndexName string `mapstructure:"index_name"`
	Dimension int    `mapstructure:"dimension"`
}

// MinIOConfig configures the MinIO storage backend.
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// StorageConfig selects where uploaded binaries live.
type StorageConfig struct {
	Backend   string `mapstructure:"backend"` // local | minio
	LocalRoot string `mapstructure:"local_root"`
}

// EmbeddingConfig configures the embedding endpoint and its retry policy.
type EmbeddingConfig struct {
	Provider       string `mapstructure:"provider"` // openai | huggingface
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	Model          string `mapstructure:"model"`
	Dimensions     int    `mapstructure:"dimensions"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxRetries     int    `mapstructure:"max_retries"`
	BaseDelayMs    int    `mapstructure:"base_delay_ms"`
}

// LLMConfig configures the chat completion endpoint.
type LLMConfig struct {
	APIKey     string              `mapstructure:"api_key"`
	BaseURL    string              `mapstructure:"base_url"`
	Model      string              `mapstructure:"model"`
	Generation LLMGenerationConfig `mapstructure:"generation"`
}

// LLMGenerationConfig holds optional sampling parameters.
type LLMGenerationConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	TopP        float64 `mapstructure:"top_p"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// ChatConfig tunes the conversational pipeline.
type ChatConfig struct {
	TopK                  int    `mapstructure:"top_k"`
	Language              string `mapstructure:"language"`
	Greeting              string `mapstructure:"greeting"`
	SummaryThreshold      int    `mapstructure:"summary_threshold"`
	HistoryWindow         int    `mapstructure:"history_window"`
	KeepAliveSeconds      int    `mapstructure:"keep_alive_seconds"`
	StreamErrorPolicy     string `mapstructure:"stream_error_policy"` // discard | persist_partial
	MinutesWithLLM        bool   `mapstructure:"minutes_with_llm"`
	SummaryQueueSize      int    `mapstructure:"summary_queue_size"`
	SummaryTimeoutSeconds int    `mapstructure:"summary_timeout_seconds"`
}

// UploadConfig tunes file ingestion.
type UploadConfig struct {
	MaxSizeMB       int    `mapstructure:"max_size_mb"`
	ChunkSize       int    `mapstructure:"chunk_size"`
	ChunkOverlap    int    `mapstructure:"chunk_overlap"`
	UpsertBatchSize int    `mapstructure:"upsert_batch_size"`
	EmbedWorkers    int    `mapstructure:"embed_workers"`
	IngestionMode   string `mapstructure:"ingestion_mode"` // sync | kafka
}

// Init loads configPath into Conf and panics when it cannot.
func Init(configPath string) {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	Conf = *cfg
}

// Load reads .env (if present), the YAML file and COPRO_* environment overrides.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("copro")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8888")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("jwt.access_token_expire_minutes", 60)
	v.SetDefault("jwt.refresh_token_expire_days", 7)
	v.SetDefault("jwt.cleanup_cron", "0 0 * * *")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("cors.origin", "*")
	v.SetDefault("kafka.topic", "document-ingestion")
	v.SetDefault("kafka.group_id", "copro-smart-go-ingestion")
	v.SetDefault("elasticsearch.index_name", "copro_documents")
	v.SetDefault("elasticsearch.dimension", 384)
	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.local_root", "uploads")
	v.SetDefault("embedding.provider", "openai")
	v.SetDefault("embedding.timeout_seconds", 10)
	v.SetDefault("embedding.max_retries", 3)
	v.SetDefault("embedding.base_delay_ms", 2000)
	v.SetDefault("chat.top_k", 5)
	v.SetDefault("chat.language", "French")
	v.SetDefault("chat.greeting", "Bonjour, comment puis-je vous aider aujourd'hui ?")
	v.SetDefault("chat.summary_threshold", 10)
	v.SetDefault("chat.history_window", 6)
	v.SetDefault("chat.keep_alive_seconds", 20)
	v.SetDefault("chat.stream_error_policy", "discard")
	v.SetDefault("chat.summary_queue_size", 64)
	v.SetDefault("chat.summary_timeout_seconds", 60)
	v.SetDefault("upload.max_size_mb", 10)
	v.SetDefault("upload.chunk_size", 500)
	v.SetDefault("upload.chunk_overlap", 0)
	v.SetDefault("upload.upsert_batch_size", 10)
	v.SetDefault("upload.embed_workers", 4)
	v.SetDefault("upload.ingestion_mode", "sync")
}
