package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	envVar         = "ENV"
	appNameVar     = "APP_NAME"
	apiBaseURLVar  = "API_BASE_URL"
	userInfoURLVar = "USERINFO_URL"
	httpTimeoutVar = "HTTP_TIMEOUT"
	logLevelVar    = "LOG_LEVEL"
)

const (
	DefaultAPIBaseURL  = "http://localhost:5000/tracker"
	DefaultUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
)

type EnvVars struct {
	v *viper.Viper
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return e.v.GetString(appNameVar)
}

func (e EnvVars) GetEnv() string {
	return strings.ToUpper(e.v.GetString(envVar))
}

// GetAPIBaseURL returns the tracker API root including the /tracker base path
func (e EnvVars) GetAPIBaseURL() string {
	return strings.TrimRight(e.v.GetString(apiBaseURLVar), "/")
}

func (e EnvVars) GetUserInfoURL() string {
	return e.v.GetString(userInfoURLVar)
}

func (e EnvVars) GetHTTPTimeout() time.Duration {
	return e.v.GetDuration(httpTimeoutVar)
}

func (e EnvVars) GetLogLevel() string {
	return e.v.GetString(logLevelVar)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(envVar, "DEV")
	v.SetDefault(appNameVar, "Syllabus Tracker")
	v.SetDefault(apiBaseURLVar, DefaultAPIBaseURL)
	v.SetDefault(userInfoURLVar, DefaultUserInfoURL)
	v.SetDefault(httpTimeoutVar, 30*time.Second)
	v.SetDefault(logLevelVar, "info")

	v.SetDefault(sessionTimeoutVar, time.Hour)
	v.SetDefault(sessionSecretVar, "change-me-local-session-secret")

	v.SetDefault(autoRefreshIntervalVar, 5*time.Minute)
	v.SetDefault(searchDebounceVar, 300*time.Millisecond)

	v.SetDefault(storeBackendVar, StoreBackendFile)
	v.SetDefault(dataFolderVar, "./data")
	v.SetDefault(redisURLVar, "redis://localhost:6379/0")
}

// LoadDotEnv loads a .env file into the process environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "[LoadDotEnv] stat %s", path)
	}
	if err := godotenv.Load(path); err != nil {
		return errors.Wrapf(err, "[LoadDotEnv] load %s", path)
	}
	return nil
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
