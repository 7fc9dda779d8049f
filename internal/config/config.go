package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config interface {
	EnvConfig
	SessionConfig
	RefreshConfig
	StorageConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetAPIBaseURL() string
	GetUserInfoURL() string
	GetHTTPTimeout() time.Duration
	GetLogLevel() string
}

type mainConfig struct {
	EnvVars
	Session
	Refresh
	Storage
}

// New reads configuration from the environment. Call LoadDotEnv first to pick up a .env file.
func New() Config {
	return FromViper(newViper())
}

// FromViper builds a Config over an existing viper instance, defaults are applied to it.
func FromViper(v *viper.Viper) Config {
	setDefaults(v)
	return mainConfig{
		EnvVars: EnvVars{v: v},
		Session: Session{v: v},
		Refresh: Refresh{v: v},
		Storage: Storage{v: v},
	}
}
