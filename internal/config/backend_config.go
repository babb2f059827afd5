package config

import (
	"strings"
	"time"
)

const (
	backendURLEnvVar     = "BACKEND_URL"
	backendTimeoutEnvVar = "BACKEND_TIMEOUT"
)

type Backend struct{}

var _ BackendConfig = Backend{}

// GetBackendURL returns the base URL of the inventory backend without a trailing slash
func (Backend) GetBackendURL() string {
	return strings.TrimSuffix(GetEnv(backendURLEnvVar, "http://localhost:4000"), "/")
}

// GetBackendTimeout is zero unless configured, leaving deadlines to the request context
func (Backend) GetBackendTimeout() time.Duration {
	return GetEnvDuration(backendTimeoutEnvVar, 0)
}
