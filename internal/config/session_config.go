package config

import "time"

const (
	refreshReuseTTLEnvVar = "REFRESH_REUSE_TTL"
	redisAddrEnvVar       = "REDIS_ADDR"
	redisPasswordEnvVar   = "REDIS_PASSWORD"
)

type Session struct{}

var _ SessionConfig = Session{}

func (Session) GetSecureCookies() bool {
	return !EnvVars{}.IsLocal()
}

// GetRefreshReuseTTL is how long a rotated token pair stays reusable for
// requests still carrying the previous refresh token
func (Session) GetRefreshReuseTTL() time.Duration {
	return GetEnvDuration(refreshReuseTTLEnvVar, 10*time.Second)
}

func (Session) GetRedisAddr() string {
	return GetEnv(redisAddrEnvVar, "")
}

func (Session) GetRedisPassword() string {
	return GetEnv(redisPasswordEnvVar, "")
}
