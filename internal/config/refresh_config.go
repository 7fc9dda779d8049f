package config

import (
	"time"

	"github.com/spf13/viper"
)

const (
	autoRefreshIntervalVar = "AUTO_REFRESH_INTERVAL"
	searchDebounceVar      = "SEARCH_DEBOUNCE"
)

type RefreshConfig interface {
	GetAutoRefreshInterval() time.Duration
	GetSearchDebounce() time.Duration
}

type Refresh struct {
	v *viper.Viper
}

var _ RefreshConfig = Refresh{}

func (r Refresh) GetAutoRefreshInterval() time.Duration {
	return r.v.GetDuration(autoRefreshIntervalVar)
}

func (r Refresh) GetSearchDebounce() time.Duration {
	return r.v.GetDuration(searchDebounceVar)
}
