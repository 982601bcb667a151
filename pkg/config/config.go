package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Gemini   GeminiConfig
	Logger   LoggerConfig
}

type LoggerConfig struct {
	Level string
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type JWTConfig struct {
	SecretKey  string
	Expiration time.Duration
	RefreshExp time.Duration
}

type GeminiConfig struct {
	APIKey string
	Model  string
	// Per-call deadlines for the external model. Applied per request via
	// context.WithTimeout so a timeout on one call never aborts a sibling.
	SelectTimeout    time.Duration
	FormatTimeout    time.Duration
	SummarizeTimeout time.Duration
}

func Load() (*Config, error) {
	// Try to load .env file from current directory or project root
	envFiles := []string{".env", "../.env", "../../.env"}
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}
	// No .env file is fine: plain environment variables work for Docker/K8s.

	readTimeout, _ := strconv.Atoi(getEnv("SERVER_READ_TIMEOUT", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("SERVER_WRITE_TIMEOUT", "30"))
	jwtExp, _ := strconv.Atoi(getEnv("JWT_EXPIRATION_HOURS", "24"))
	refreshExp, _ := strconv.Atoi(getEnv("JWT_REFRESH_EXPIRATION_HOURS", "168"))
	selectTimeout, _ := strconv.Atoi(getEnv("GEMINI_SELECT_TIMEOUT_SECONDS", "15"))
	formatTimeout, _ := strconv.Atoi(getEnv("GEMINI_FORMAT_TIMEOUT_SECONDS", "15"))
	summarizeTimeout, _ := strconv.Atoi(getEnv("GEMINI_SUMMARIZE_TIMEOUT_SECONDS", "20"))

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  time.Duration(readTimeout) * time.Second,
			WriteTimeout: time.Duration(writeTimeout) * time.Second,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "insightlens"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			SecretKey:  getEnv("JWT_SECRET_KEY", "your-secret-key-change-in-production"),
			Expiration: time.Duration(jwtExp) * time.Hour,
			RefreshExp: time.Duration(refreshExp) * time.Hour,
		},
		Gemini: GeminiConfig{
			APIKey:           getEnv("GEMINI_API_KEY", ""),
			Model:            getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			SelectTimeout:    time.Duration(selectTimeout) * time.Second,
			FormatTimeout:    time.Duration(formatTimeout) * time.Second,
			SummarizeTimeout: time.Duration(summarizeTimeout) * time.Second,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
