package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"alfredoptarigan/interview-panel/internal/interview"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Qdrant    QdrantConfig
	Gemini    GeminiConfig
	Storage   StorageConfig
	Worker    WorkerConfig
	Interview InterviewConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type QdrantConfig struct {
	URL    string
	APIKey string
	// Alias is what searches query; each rebuild creates <Alias>_<unix>.
	Alias      string
	VectorSize uint64
}

type GeminiConfig struct {
	APIKey          string
	TechnicalModel  string
	HRModel         string
	BusinessModel   string
	ComparisonModel string
	EmbeddingModel  string
}

type StorageConfig struct {
	UploadPath  string
	MaxFileSize int64
}

type WorkerConfig struct {
	Concurrency      int
	PollInterval     time.Duration
	EmbedConcurrency int
}

type InterviewConfig struct {
	Rotation        string
	PhasesFile      string
	DegradedRetries int
	StreamTimeout   time.Duration
}

const defaultModel = "gemini-2.5-flash"

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using default values.")
	}

	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "3000"),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "interview_panel"),
		},
		Qdrant: QdrantConfig{
			URL:        getEnv("QDRANT_URL", "http://localhost:6334"),
			APIKey:     getEnv("QDRANT_API_KEY", ""),
			Alias:      getEnv("QDRANT_ALIAS", "interview_knowledge"),
			VectorSize: uint64(getEnvAsInt("QDRANT_VECTOR_SIZE", 768)),
		},
		Gemini: GeminiConfig{
			APIKey:          getEnv("GEMINI_API_KEY", ""),
			TechnicalModel:  getEnv("GEMINI_MODEL_TECHNICAL", defaultModel),
			HRModel:         getEnv("GEMINI_MODEL_HR", defaultModel),
			BusinessModel:   getEnv("GEMINI_MODEL_BUSINESS", defaultModel),
			ComparisonModel: getEnv("GEMINI_MODEL_COMPARISON", defaultModel),
			EmbeddingModel:  getEnv("GEMINI_EMBEDDING_MODEL", "text-embedding-004"),
		},
		Storage: StorageConfig{
			UploadPath:  getEnv("UPLOAD_PATH", "./uploads"),
			MaxFileSize: getEnvAsInt64("MAX_FILE_SIZE", 10485760),
		},
		Worker: WorkerConfig{
			Concurrency:      getEnvAsInt("WORKER_CONCURRENCY", 1),
			PollInterval:     getEnvAsDuration("WORKER_POLL_INTERVAL", "10s"),
			EmbedConcurrency: getEnvAsInt("EMBED_CONCURRENCY", 4),
		},
		Interview: InterviewConfig{
			Rotation:        getEnv("ROTATION_POLICY", "phase_based"),
			PhasesFile:      getEnv("PHASES_FILE", ""),
			DegradedRetries: getEnvAsInt("DEGRADED_ANALYSIS_RETRIES", 1),
			StreamTimeout:   getEnvAsDuration("STREAM_TIMEOUT", "2m"),
		},
	}
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// PersonaModels maps each interviewer role to its configured model.
func (c *Config) PersonaModels() map[interview.Role]string {
	return map[interview.Role]string{
		interview.RoleTechnical: c.Gemini.TechnicalModel,
		interview.RoleHR:        c.Gemini.HRModel,
		interview.RoleBusiness:  c.Gemini.BusinessModel,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
