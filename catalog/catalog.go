package catalog

import (
	"context"
	"sync"

	apperrors "github.com/jrsteele09/syllabus-tracker/internal/errors"
	"github.com/jrsteele09/syllabus-tracker/kvstore"
	"github.com/jrsteele09/syllabus-tracker/trackerapi"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// SelectedSyllabusKey is where the student's last selected syllabus is persisted.
const SelectedSyllabusKey = "student_selected_syllabus_id"

// Messages kept for display after a failed load
const (
	MsgSyllabusesFailed = "Failed to load assigned syllabuses. Please try again."
	MsgContentFailed    = "Failed to load syllabus data. Please try again."
)

// API is the part of the tracker backend the catalog reads from.
type API interface {
	StudentSyllabuses(ctx context.Context, email string) ([]trackerapi.SyllabusInfo, error)
	Syllabus(ctx context.Context, id string) (*trackerapi.Syllabus, error)
	AllSyllabuses(ctx context.Context) ([]trackerapi.SyllabusInfo, error)
}

var _ API = (*trackerapi.Client)(nil)

// Cache holds syllabus reference data. It is loaded on demand and never mutated locally.
type Cache struct {
	api         API
	store       kvstore.Repo
	selectedKey string
	logger      zerolog.Logger

	mu         sync.RWMutex
	syllabuses []trackerapi.SyllabusInfo
	catalog    []trackerapi.SyllabusInfo
	content    *trackerapi.Syllabus
	selected   string
	restored   bool
	loading    bool
	err        error
}

// CacheOption defines a function type to modify the Cache instance.
type CacheOption func(*Cache)

func WithLogger(logger zerolog.Logger) CacheOption {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithSelectionKey persists the selection under key instead of SelectedSyllabusKey.
func WithSelectionKey(key string) CacheOption {
	return func(c *Cache) {
		c.selectedKey = key
	}
}

func New(api API, store kvstore.Repo, options ...CacheOption) (*Cache, error) {
	if api == nil {
		return nil, errors.New("[catalog.New] api is required")
	}
	if store == nil {
		return nil, errors.New("[catalog.New] store is required")
	}
	c := &Cache{
		api:         api,
		store:       store,
		selectedKey: SelectedSyllabusKey,
		logger:      zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// LoadSyllabuses fetches the syllabuses assigned to email. With at least one result the first
// becomes the selection unless a selection from that list already exists. An empty result or a
// failure selects the contact syllabus; a failure is also returned marked as ErrLoad.
func (c *Cache) LoadSyllabuses(ctx context.Context, email string) ([]trackerapi.SyllabusInfo, error) {
	c.restoreSelection(ctx)
	c.setLoading(true)
	defer c.setLoading(false)

	list, err := c.api.StudentSyllabuses(ctx, email)

	c.mu.Lock()
	if err != nil {
		c.syllabuses = nil
		c.err = errors.New(MsgSyllabusesFailed)
	} else {
		c.syllabuses = list
		c.err = nil
	}
	selection := c.selected
	switch {
	case err != nil || len(list) == 0:
		selection = trackerapi.ContactSyllabusID
	case !containsID(list, selection):
		selection = list[0].ID
	}
	out := append([]trackerapi.SyllabusInfo(nil), c.syllabuses...)
	c.mu.Unlock()

	if selErr := c.Select(ctx, selection); selErr != nil {
		c.logger.Warn().Err(selErr).Msg("persisting syllabus selection")
	}
	if err != nil {
		c.logger.Error().Err(err).Str("email", email).Msg("loading assigned syllabuses")
		return out, apperrors.Mark(errors.Wrap(err, "[Cache.LoadSyllabuses]"), apperrors.ErrLoad)
	}
	return out, nil
}

// LoadSyllabusContent fetches the topic tree of id. On failure the cached tree is cleared so
// no stale content is shown, and the error is returned marked as ErrLoad.
func (c *Cache) LoadSyllabusContent(ctx context.Context, id string) (*trackerapi.Syllabus, error) {
	if id == "" {
		return nil, nil
	}
	c.setLoading(true)
	defer c.setLoading(false)

	s, err := c.api.Syllabus(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.content = nil
		c.err = errors.New(MsgContentFailed)
		c.logger.Error().Err(err).Str("syllabus_id", id).Msg("loading syllabus content")
		return nil, apperrors.Mark(errors.Wrapf(err, "[Cache.LoadSyllabusContent] %s", id), apperrors.ErrLoad)
	}
	c.content = s
	c.err = nil
	return s, nil
}

// LoadCatalog fetches the full syllabus catalog used by the teacher dashboard.
func (c *Cache) LoadCatalog(ctx context.Context) ([]trackerapi.SyllabusInfo, error) {
	list, err := c.api.AllSyllabuses(ctx)
	if err != nil {
		return nil, apperrors.Mark(errors.Wrap(err, "[Cache.LoadCatalog]"), apperrors.ErrLoad)
	}
	c.mu.Lock()
	c.catalog = list
	c.mu.Unlock()
	return append([]trackerapi.SyllabusInfo(nil), list...), nil
}

// ResetCatalog drops the teacher catalog.
func (c *Cache) ResetCatalog() {
	c.mu.Lock()
	c.catalog = nil
	c.mu.Unlock()
}

// Lookup resolves a syllabus id to its catalog entry. The contact syllabus always resolves.
func (c *Cache) Lookup(id string) (trackerapi.SyllabusInfo, bool) {
	if id == trackerapi.ContactSyllabusID {
		return trackerapi.SyllabusInfo{ID: id, Name: trackerapi.ContactSyllabusName}, true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, list := range [][]trackerapi.SyllabusInfo{c.catalog, c.syllabuses} {
		for _, s := range list {
			if s.ID == id {
				return s, true
			}
		}
	}
	return trackerapi.SyllabusInfo{}, false
}

// Select makes id the current syllabus and persists it. An empty id clears the selection.
func (c *Cache) Select(ctx context.Context, id string) error {
	c.mu.Lock()
	c.selected = id
	c.restored = true
	c.mu.Unlock()

	if id == "" {
		return c.store.Delete(ctx, c.selectedKey)
	}
	return c.store.Set(ctx, c.selectedKey, id)
}

func (c *Cache) ClearSelection(ctx context.Context) error {
	return c.Select(ctx, "")
}

// Selected returns the current selection, reading the persisted one on first use.
func (c *Cache) Selected(ctx context.Context) string {
	c.restoreSelection(ctx)
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selected
}

func (c *Cache) Syllabuses() []trackerapi.SyllabusInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]trackerapi.SyllabusInfo(nil), c.syllabuses...)
}

func (c *Cache) Catalog() []trackerapi.SyllabusInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]trackerapi.SyllabusInfo(nil), c.catalog...)
}

// Content returns the cached topic tree, nil when none is loaded.
func (c *Cache) Content() *trackerapi.Syllabus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.content
}

func (c *Cache) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

// Err returns the display error of the last load, nil after a successful one.
func (c *Cache) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

func (c *Cache) restoreSelection(ctx context.Context) {
	c.mu.RLock()
	done := c.restored
	c.mu.RUnlock()
	if done {
		return
	}

	saved := kvstore.GetOr(ctx, c.store, c.selectedKey, "")

	c.mu.Lock()
	if !c.restored {
		c.selected = saved
		c.restored = true
	}
	c.mu.Unlock()
}

func (c *Cache) setLoading(loading bool) {
	c.mu.Lock()
	c.loading = loading
	c.mu.Unlock()
}

func containsID(list []trackerapi.SyllabusInfo, id string) bool {
	if id == "" {
		return false
	}
	for _, s := range list {
		if s.ID == id {
			return true
		}
	}
	return false
}
