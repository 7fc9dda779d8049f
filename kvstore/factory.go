package kvstore

import (
	"github.com/jrsteele09/syllabus-tracker/internal/config"
	"github.com/pkg/errors"
)

// New opens the repo selected by STORE_BACKEND. profile separates the student and teacher apps.
func New(cfg config.StorageConfig, profile string) (Repo, error) {
	switch cfg.GetStoreBackend() {
	case config.StoreBackendMemory:
		return NewInMemoryRepo(), nil
	case config.StoreBackendFile, "":
		return NewFileRepo(cfg.GetDataFolder(), profile)
	case config.StoreBackendRedis:
		client, err := NewRedisClient(cfg.GetRedisURL())
		if err != nil {
			return nil, err
		}
		return NewRedisRepo(client, profile), nil
	}
	return nil, errors.Errorf("[kvstore.New] unknown store backend %q", cfg.GetStoreBackend())
}
