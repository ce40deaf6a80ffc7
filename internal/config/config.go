package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURI string
	ListenAddr  string
	JWTSecret   string
	AIAPIKey    string
	AIBaseURL   string
	AIModel     string
}

func Load() (*Config, error) {
	// .env file is optional in production.
	_ = godotenv.Load()

	return &Config{
		DatabaseURI: os.Getenv("DATABASE_URI"),
		ListenAddr:  getEnvOrDefault("LISTEN_ADDR", ":8080"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		AIAPIKey:    os.Getenv("AI_API_KEY"),
		AIBaseURL:   getEnvOrDefault("AI_BASE_URL", "https://openrouter.ai/api/v1"),
		AIModel:     getEnvOrDefault("AI_MODEL", "google/gemini-2.5-flash"),
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
