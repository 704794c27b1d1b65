package config

import "time"

type Config interface {
	EnvConfig
	IdentityConfig
	SecurityConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetBaseURL() string
	GetBackendURL() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRoutePolicyFile() string
}

type IdentityConfig interface {
	GetGoogleClientID() string
	GetGoogleClientSecret() string
	GetGoogleRedirectURL() string
	GoogleConfigured() bool
}

type SecurityConfig interface {
	GetBrowserIdleTimeout() time.Duration
	GetSweepInterval() time.Duration
	GetAuthFlowTimeout() time.Duration
	GetBrowserCookieMaxAge() time.Duration
}

type mainConfig struct {
	EnvVars
	Identity
	Security
}

func New() Config {
	return mainConfig{}
}
