// Package config loads the service configuration from environment
// variables. Callers load .env files (godotenv) before calling Load.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config aggregates the configuration of every subsystem.
type Config struct {
	Server    ServerConfig
	AWS       AWSConfig
	Vector    VectorConfig
	Ingestion IngestionConfig
	Session   SessionConfig
	Telegram  TelegramConfig
	DebugMode bool
}

// Load reads the full configuration from the environment.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	vector, err := loadVectorConfig()
	if err != nil {
		return nil, err
	}

	ingest, err := loadIngestionConfig()
	if err != nil {
		return nil, err
	}

	debug, err := parseBoolEnv("DEBUG_MODE", false)
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:    server,
		AWS:       loadAWSConfig(),
		Vector:    vector,
		Ingestion: ingest,
		Session:   loadSessionConfig(),
		Telegram:  loadTelegramConfig(),
		DebugMode: debug,
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	// Accept ":8080" or "127.0.0.1:8080" as-is.
	if strings.Contains(port, ":") {
		return ServerConfig{Addr: port}, nil
	}
	if _, err := strconv.Atoi(port); err != nil {
		return ServerConfig{}, fmt.Errorf("invalid PORT value %q: %w", port, err)
	}
	return ServerConfig{Addr: ":" + port}, nil
}

// AWSConfig describes the Bedrock and S3 clients.
type AWSConfig struct {
	Region           string
	Bucket           string
	ModelID          string
	EmbeddingModelID string
}

func loadAWSConfig() AWSConfig {
	return AWSConfig{
		Region:           getEnvOrDefault("BEDROCK_REGION", "us-east-1"),
		Bucket:           strings.TrimSpace(os.Getenv("S3_BUCKET_NAME")),
		ModelID:          getEnvOrDefault("MODEL_ID", "amazon.nova-micro-v1:0"),
		EmbeddingModelID: getEnvOrDefault("EMBEDDING_MODEL_ID", "amazon.titan-embed-text-v2:0"),
	}
}

// VectorConfig describes the vector store. When URL is set, the Chroma
// server backend is used; otherwise the embedded store at LocalPath.
type VectorConfig struct {
	URL            string
	LocalPath      string
	Collection     string
	MaxContextDocs int
}

func loadVectorConfig() (VectorConfig, error) {
	maxDocs, err := parseIntEnv("MAX_CONTEXT_DOCS", 5)
	if err != nil {
		return VectorConfig{}, err
	}
	if maxDocs < 1 {
		return VectorConfig{}, fmt.Errorf("MAX_CONTEXT_DOCS must be at least 1, got %d", maxDocs)
	}

	return VectorConfig{
		URL:            strings.TrimSpace(os.Getenv("CHROMA_URL")),
		LocalPath:      getEnvOrDefault("CHROMA_LOCAL_PATH", "bd/chroma_db"),
		Collection:     getEnvOrDefault("CHROMA_COLLECTION", "documentos_processados"),
		MaxContextDocs: maxDocs,
	}, nil
}

// IngestionConfig describes document chunking.
type IngestionConfig struct {
	ChunkSize    int
	ChunkOverlap int
}

func loadIngestionConfig() (IngestionConfig, error) {
	size, err := parseIntEnv("CHUNK_SIZE", 1000)
	if err != nil {
		return IngestionConfig{}, err
	}
	overlap, err := parseIntEnv("CHUNK_OVERLAP", 100)
	if err != nil {
		return IngestionConfig{}, err
	}
	if size < 1 {
		return IngestionConfig{}, fmt.Errorf("CHUNK_SIZE must be at least 1, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return IngestionConfig{}, fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", overlap)
	}
	return IngestionConfig{ChunkSize: size, ChunkOverlap: overlap}, nil
}

// SessionConfig describes conversation persistence. An empty DBPath keeps
// histories in memory.
type SessionConfig struct {
	DBPath string
}

func loadSessionConfig() SessionConfig {
	return SessionConfig{DBPath: strings.TrimSpace(os.Getenv("SESSION_DB_PATH"))}
}

// TelegramConfig describes the Telegram relay bot.
type TelegramConfig struct {
	BotToken string
	APIURL   string
}

func loadTelegramConfig() TelegramConfig {
	return TelegramConfig{
		BotToken: strings.TrimSpace(os.Getenv("BOT_TOKEN")),
		APIURL:   getEnvOrDefault("API_URL", "http://localhost:8080"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}
