package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	portEnvVar     = "PORT"
	appNameVar     = "APP_NAME"
	envVar         = "ENV"
	logLevelEnvVar = "LOG_LEVEL"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Storefront Relay")
}

func (EnvVars) GetEnv() string {
	return strings.ToUpper(GetEnv(envVar, "DEV"))
}

func (EnvVars) GetLogLevel() string {
	return strings.ToLower(GetEnv(logLevelEnvVar, "info"))
}

// IsLocal reports whether the process runs in a local/development context.
// Cookies are only marked Secure outside of it.
func (e EnvVars) IsLocal() bool {
	switch e.GetEnv() {
	case "DEV", "LOCAL", "DEVELOPMENT", "TEST":
		return true
	}
	return false
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetEnvDuration parses a Go duration ("30s", "2m") falling back to the
// default when unset or malformed.
func GetEnvDuration(envVar string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
