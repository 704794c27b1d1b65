package config

import (
	"fmt"
	"os"
	"strings"
)

const (
	portEnvVar        = "PORT"
	appNameVar        = "APP_NAME"
	baseURLVar        = "BASE_URL"
	backendURLVar     = "BACKEND_URL"
	redisAddrVar      = "REDIS_ADDR"
	redisPasswordVar  = "REDIS_PASSWORD"
	routePolicyVar    = "ROUTE_POLICY_FILE"
	defaultBackendURL = "http://localhost:4000/api"
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
	return GetEnv(appNameVar, "Lingo Exchange")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

// GetBaseURL returns the public URL of this web client (e.g., "https://app.example.com").
// Used to build the Google sign-in callback URL.
func (EnvVars) GetBaseURL() string {
	return strings.TrimSuffix(GetEnv(baseURLVar, "http://localhost:8080"), "/")
}

// GetBackendURL returns the root of the REST backend, including any /api prefix.
func (EnvVars) GetBackendURL() string {
	return strings.TrimSuffix(GetEnv(backendURLVar, defaultBackendURL), "/")
}

// GetRedisAddr is empty when browser storage should stay in memory.
func (EnvVars) GetRedisAddr() string {
	return GetEnv(redisAddrVar, "")
}

func (EnvVars) GetRedisPassword() string {
	return GetEnv(redisPasswordVar, "")
}

func (EnvVars) GetRoutePolicyFile() string {
	return GetEnv(routePolicyVar, "")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
