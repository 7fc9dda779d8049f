package dashboard

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jrsteele09/syllabus-tracker/clock"
	apperrors "github.com/jrsteele09/syllabus-tracker/internal/errors"
	"github.com/jrsteele09/syllabus-tracker/kvstore"
	"github.com/jrsteele09/syllabus-tracker/refresh"
	"github.com/jrsteele09/syllabus-tracker/roster"
	"github.com/jrsteele09/syllabus-tracker/trackerapi"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Persisted view preferences
const (
	SelectedSyllabusKey = "teacher_selected_syllabus_id"
	SearchTermKey       = "teacher_search_term"
	ProgressFilterKey   = "teacher_progress_filter"
	ActiveTabKey        = "teacher_active_tab"
)

// Dashboard tabs
const (
	TabDashboard = "dashboard"
	TabStudents  = "students"
	TabAnalytics = "analytics"
	TabBackups   = "backups"
)

var Tabs = []string{TabDashboard, TabStudents, TabAnalytics, TabBackups}

const (
	MsgBackendUnreachable = "Cannot connect to backend server. Please ensure the server is running."
	MsgBackendError       = "Backend error: "
	MsgExported           = "Data exported successfully!"
	MsgExportFailed       = "Failed to export data."
)

// API is the part of the tracker backend the dashboard uses.
type API interface {
	AllProgress(ctx context.Context) ([]trackerapi.RosterEntry, error)
	AssignSyllabus(ctx context.Context, a trackerapi.Assignment) (string, error)
	RemoveSyllabus(ctx context.Context, a trackerapi.Assignment) (string, error)
	Backups(ctx context.Context) ([]trackerapi.Backup, error)
	CreateBackup(ctx context.Context, name string) (string, error)
	RestoreBackup(ctx context.Context, name string) (string, error)
	DeleteBackup(ctx context.Context, name string) (string, error)
}

var _ API = (*trackerapi.Client)(nil)

// Catalog is the syllabus catalog the dashboard reads. Only the catalog mutates itself.
type Catalog interface {
	roster.Resolver
	LoadCatalog(ctx context.Context) ([]trackerapi.SyllabusInfo, error)
	Catalog() []trackerapi.SyllabusInfo
	ResetCatalog()
}

// Status is the message line shown at the top of the dashboard.
type Status struct {
	Level   refresh.Level
	Message string
}

// Store is the teacher dashboard: the roster, the filtered view and its statistics.
type Store struct {
	api      API
	catalog  Catalog
	prefs    kvstore.Repo
	validate *validator.Validate
	search   *roster.Debouncer
	logger   zerolog.Logger

	mu        sync.RWMutex
	entries   []roster.Entry
	filter    roster.Filter
	displayed []roster.Entry
	stats     roster.Stats
	status    Status
	tab       string
	loading   bool
}

var _ refresh.Notifier = (*Store)(nil)

// StoreOption defines a function type to modify the Store instance.
type StoreOption func(*Store)

func WithLogger(logger zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithSearchDebounce delays SearchInput by window on clock c.
func WithSearchDebounce(c clock.Clock, window time.Duration) StoreOption {
	return func(s *Store) {
		s.search = roster.NewDebouncer(c, window)
	}
}

// New creates the dashboard and reads the persisted preferences from prefs.
func New(ctx context.Context, api API, cat Catalog, prefs kvstore.Repo, options ...StoreOption) (*Store, error) {
	if api == nil {
		return nil, errors.New("[dashboard.New] api is required")
	}
	if cat == nil {
		return nil, errors.New("[dashboard.New] catalog is required")
	}
	if prefs == nil {
		return nil, errors.New("[dashboard.New] prefs store is required")
	}

	s := &Store{
		api:      api,
		catalog:  cat,
		prefs:    prefs,
		validate: newValidator(),
		logger:   zerolog.Nop(),
		filter: roster.Filter{
			SyllabusID: kvstore.GetOr(ctx, prefs, SelectedSyllabusKey, roster.SyllabusAll),
			Search:     kvstore.GetOr(ctx, prefs, SearchTermKey, ""),
			Bucket:     kvstore.GetOr(ctx, prefs, ProgressFilterKey, roster.BucketAll),
		},
		tab: kvstore.GetOr(ctx, prefs, ActiveTabKey, TabDashboard),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.search == nil {
		s.search = roster.NewDebouncer(clock.Real(), 0)
	}
	return s, nil
}

// Reload fetches the catalog and the roster concurrently. On failure all data is cleared and
// the status line explains why.
func (s *Store) Reload(ctx context.Context) error {
	s.setLoading(true)
	defer s.setLoading(false)

	var entries []roster.Entry
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.catalog.LoadCatalog(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		entries, err = s.api.AllProgress(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).Msg("loading dashboard data")
		s.catalog.ResetCatalog()
		s.mu.Lock()
		s.entries = nil
		s.deriveLocked()
		s.status = Status{Level: refresh.LevelError, Message: backendMessage(err)}
		s.mu.Unlock()
		return apperrors.Mark(errors.Wrap(err, "[Store.Reload]"), apperrors.ErrLoad)
	}

	s.mu.Lock()
	s.entries = entries
	s.deriveLocked()
	s.mu.Unlock()
	return nil
}

func backendMessage(err error) string {
	if apperrors.FriendlyMessage(err) == apperrors.MsgConnection {
		return MsgBackendUnreachable
	}
	return MsgBackendError + err.Error()
}

// SearchInput records typed search text; the filter follows after the debounce window.
func (s *Store) SearchInput(ctx context.Context, term string) {
	s.search.Trigger(func() {
		s.SetSearch(context.WithoutCancel(ctx), term)
	})
}

func (s *Store) SetSearch(ctx context.Context, term string) {
	s.updateFilter(ctx, SearchTermKey, term, func(f *roster.Filter) { f.Search = term })
}

func (s *Store) SetBucket(ctx context.Context, bucket string) {
	s.updateFilter(ctx, ProgressFilterKey, bucket, func(f *roster.Filter) { f.Bucket = bucket })
}

func (s *Store) SetSyllabus(ctx context.Context, id string) {
	s.updateFilter(ctx, SelectedSyllabusKey, id, func(f *roster.Filter) { f.SyllabusID = id })
}

func (s *Store) SetTab(ctx context.Context, tab string) {
	s.mu.Lock()
	s.tab = tab
	s.mu.Unlock()
	s.persist(ctx, ActiveTabKey, tab)
}

func (s *Store) updateFilter(ctx context.Context, key, value string, apply func(*roster.Filter)) {
	s.mu.Lock()
	apply(&s.filter)
	s.deriveLocked()
	s.mu.Unlock()
	s.persist(ctx, key, value)
}

func (s *Store) persist(ctx context.Context, key, value string) {
	if err := s.prefs.Set(ctx, key, value); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("persisting preference")
	}
}

func (s *Store) deriveLocked() {
	s.displayed = roster.Apply(s.entries, s.filter, s.catalog)
	s.stats = roster.ComputeStats(s.displayed)
}

// Notify sets the status line. It lets the store act as the refresh notifier.
func (s *Store) Notify(level refresh.Level, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = Status{Level: level, Message: message}
}

// Export writes the displayed entries as CSV.
func (s *Store) Export(w io.Writer) error {
	if err := roster.WriteCSV(w, s.Displayed()); err != nil {
		s.logger.Error().Err(err).Msg("exporting roster")
		s.Notify(refresh.LevelError, MsgExportFailed)
		return err
	}
	s.Notify(refresh.LevelSuccess, MsgExported)
	return nil
}

func (s *Store) Filter() roster.Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

// Entries returns the full roster as last loaded.
func (s *Store) Entries() []roster.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]roster.Entry(nil), s.entries...)
}

// Displayed returns the roster entries passing the current filter.
func (s *Store) Displayed() []roster.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]roster.Entry(nil), s.displayed...)
}

func (s *Store) Stats() roster.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Store) Tab() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tab
}

func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Syllabuses returns the catalog without the contact placeholder, as offered for assignment.
func (s *Store) Syllabuses() []trackerapi.SyllabusInfo {
	var out []trackerapi.SyllabusInfo
	for _, syl := range s.catalog.Catalog() {
		if syl.ID != trackerapi.ContactSyllabusID {
			out = append(out, syl)
		}
	}
	return out
}

func (s *Store) Close() {
	s.search.Stop()
}

func (s *Store) setLoading(loading bool) {
	s.mu.Lock()
	s.loading = loading
	s.mu.Unlock()
}
