package kvstore

import (
	"context"

	"github.com/pkg/errors"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("key not found")

// Repo is a best-effort local key-value store for client state such as the
// signed session blob and the last selected syllabus. Values are never authoritative.
type Repo interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// GetOr returns the stored value for key, or fallback when it is missing or unreadable.
func GetOr(ctx context.Context, repo Repo, key, fallback string) string {
	value, err := repo.Get(ctx, key)
	if err != nil || value == "" {
		return fallback
	}
	return value
}
