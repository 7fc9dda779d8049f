package config

import (
	"strings"

	"github.com/spf13/viper"
)

const (
	storeBackendVar = "STORE_BACKEND"
	dataFolderVar   = "DATA_FOLDER"
	redisURLVar     = "REDIS_URL"
)

const (
	StoreBackendMemory = "memory"
	StoreBackendFile   = "file"
	StoreBackendRedis  = "redis"
)

type StorageConfig interface {
	GetStoreBackend() string
	GetDataFolder() string
	GetRedisURL() string
}

type Storage struct {
	v *viper.Viper
}

var _ StorageConfig = Storage{}

func (s Storage) GetStoreBackend() string {
	return strings.ToLower(s.v.GetString(storeBackendVar))
}

func (s Storage) GetDataFolder() string {
	return s.v.GetString(dataFolderVar)
}

func (s Storage) GetRedisURL() string {
	return s.v.GetString(redisURLVar)
}
