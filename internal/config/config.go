package config

import "time"

type Config interface {
	EnvConfig
	HTTPConfig
	SessionConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
}

type HTTPConfig interface {
	GetAPIBaseURL() string
	GetHTTPTimeout() time.Duration
	GetUserAgent() string
}

type SessionConfig interface {
	GetSessionFile() string
	GetSessionPassphrase() string
	GetRefreshSkew() time.Duration
}

type mainConfig struct {
	EnvVars
}

func New() Config {
	return mainConfig{}
}
