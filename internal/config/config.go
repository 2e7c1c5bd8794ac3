package config

import (
	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	DatabaseConfig
	SecurityConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetBaseURL() string
	GetEnv() string
	GetAdminEmail() string
}

type DatabaseConfig interface {
	GetDatabaseURL() string
}

type mainConfig struct {
	EnvVars
	Security
}

// New loads .env (if present) and returns the environment-backed config.
func New() Config {
	_ = godotenv.Load()
	return mainConfig{}
}
