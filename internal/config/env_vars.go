package config

import (
	"fmt"
	"os"
)

const (
	portEnvVar     = "PORT"
	appNameVar     = "APP_NAME"
	baseURLVar     = "BASE_URL"
	databaseURLVar = "DATABASE_URL"
	adminEmailVar  = "ADMIN_EMAIL"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}
var _ DatabaseConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Login Global")
}

// GetBaseURL returns the externally visible base URL, used in activation
// links.
func (EnvVars) GetBaseURL() string {
	return GetEnv(baseURLVar, "http://localhost:8080")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

// GetDatabaseURL returns the Postgres DSN. Empty means run on in-memory
// stores (DEV only).
func (EnvVars) GetDatabaseURL() string {
	return GetEnv(databaseURLVar, "")
}

// GetAdminEmail is the bootstrap SYSTEM_ADMIN account. Empty skips admin
// bootstrap.
func (EnvVars) GetAdminEmail() string {
	return GetEnv(adminEmailVar, "")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
