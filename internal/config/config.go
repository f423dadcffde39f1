package config

import "time"

type Config interface {
	EnvConfig
	OAuthConfig
	SecurityConfig
	StorageConfig
}

type EnvConfig interface {
	GetAppName() string
	GetAPIBaseURL() string
	GetDataFolder() string
	GetEnv() string
	GetLogLevel() string
	GetLogFormat() string
	GetHTTPTimeout() time.Duration
	GetLenientLists() bool
}

type mainConfig struct {
	EnvVars
	OAuth
	Security
	Storage
}

func New() Config {
	return mainConfig{}
}
