package models

import (
	"os"

	"github.com/joho/godotenv"
)

type EnvConfig struct {
	DatabaseURL string
	Port        string
	Debug       bool
}

func ReadEnvConfig() EnvConfig {
	// A missing .env is fine, the environment may be set by other means.
	_ = godotenv.Load()

	port := os.Getenv("DEVFLOW_PORT")
	if port == "" {
		port = "8080"
	}
	return EnvConfig{
		DatabaseURL: os.Getenv("DEVFLOW_DATABASE_URL"),
		Port:        port,
		Debug:       os.Getenv("DEVFLOW_DEBUG") == "true",
	}
}
