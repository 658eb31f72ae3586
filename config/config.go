package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	AWS       AWSConfig
	Transcode TranscodeConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is (e.g. postgres://localhost:5432/vidvault?sslmode=disable)
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// JWTConfig holds JWT validation settings.
type JWTConfig struct {
	Secret string
}

// AWSConfig holds AWS credentials, the S3 videos bucket and the DynamoDB history table.
type AWSConfig struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	VideosBucket         string
	HistoryTable         string
	UploadExpireMinutes  int // presigned PUT validity for client uploads
	PresignExpireMinutes int // presigned GET validity for downloads
}

// TranscodeConfig holds ffmpeg invocation settings.
type TranscodeConfig struct {
	FFmpegPath string // empty = look up "ffmpeg" on PATH
	TmpDir     string // directory for transcode temp files; empty = os.TempDir()
	TimeoutSec int    // hard deadline for one encode; the process is killed on expiry
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	readTimeout, _ := strconv.Atoi(getEnv("READ_TIMEOUT_SEC", "30"))
	// Transcode responses block until the pipeline finishes, so the write
	// timeout must cover the encode deadline.
	writeTimeout, _ := strconv.Atoi(getEnv("WRITE_TIMEOUT_SEC", "1860"))

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        readTimeout,
			WriteTimeout:       writeTimeout,
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", "postgres://localhost:5432/vidvault?sslmode=disable"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "vidvault"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "change-me-in-production"),
		},
		AWS: AWSConfig{
			Region:               getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			VideosBucket:         getEnv("AWS_S3_VIDEOS_BUCKET", "vidvault-videos"),
			HistoryTable:         getEnv("AWS_DYNAMODB_HISTORY_TABLE", "vidvault-video-history"),
			UploadExpireMinutes:  getEnvInt("AWS_UPLOAD_EXPIRE_MINUTES", 60),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 60),
		},
		Transcode: TranscodeConfig{
			FFmpegPath: getEnv("FFMPEG_PATH", ""),
			TmpDir:     getEnv("TRANSCODE_TMP_DIR", ""),
			TimeoutSec: getEnvInt("TRANSCODE_TIMEOUT_SEC", 1800),
		},
	}
	return cfg, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
