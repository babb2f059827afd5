package config

import "time"

type Config interface {
	EnvConfig
	CorsConfig
	BackendConfig
	SessionConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	IsLocal() bool
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type BackendConfig interface {
	GetBackendURL() string
	GetBackendTimeout() time.Duration
}

type SessionConfig interface {
	GetSecureCookies() bool
	GetRefreshReuseTTL() time.Duration
	GetRedisAddr() string
	GetRedisPassword() string
}

type mainConfig struct {
	EnvVars
	Cors
	Backend
	Session
}

func New() Config {
	return mainConfig{}
}
