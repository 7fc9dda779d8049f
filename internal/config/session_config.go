package config

import (
	"time"

	"github.com/spf13/viper"
)

const (
	sessionTimeoutVar = "SESSION_TIMEOUT"
	sessionSecretVar  = "SESSION_SECRET"
)

type SessionConfig interface {
	GetSessionTimeout() time.Duration
	GetSessionSecret() string
}

type Session struct {
	v *viper.Viper
}

var _ SessionConfig = Session{}

// GetSessionTimeout is the lifetime of a local sign-in session
func (s Session) GetSessionTimeout() time.Duration {
	return s.v.GetDuration(sessionTimeoutVar)
}

func (s Session) GetSessionSecret() string {
	return s.v.GetString(sessionSecretVar)
}
