package refresh

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jrsteele09/syllabus-tracker/clock"
	"github.com/jrsteele09/syllabus-tracker/internal/config"
	"github.com/jrsteele09/syllabus-tracker/kvstore"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// LastRefreshKey is where the completion time of the last successful refresh is persisted.
const LastRefreshKey = "teacher_last_data_refresh"

// Notification messages of a manual refresh
const (
	MsgRefreshed     = "Data refreshed successfully!"
	MsgRefreshFailed = "Failed to refresh data. Please try again."
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notifier shows a user-visible message.
type Notifier interface {
	Notify(level Level, message string)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(level Level, message string)

func (f NotifierFunc) Notify(level Level, message string) {
	f(level, message)
}

// ReloadFunc performs one full reload of the data being refreshed.
type ReloadFunc func(ctx context.Context) error

// Coordinator runs reloads one at a time. Requests made while a reload is running are
// dropped, not queued, whether they come from Manual or from the auto timer.
type Coordinator struct {
	reload   ReloadFunc
	store    kvstore.Repo
	clock    clock.Clock
	interval time.Duration
	notifier Notifier
	logger   zerolog.Logger

	refreshing atomic.Bool

	mu      sync.Mutex
	auto    bool
	timer   clock.Timer
	gen     uint64
	last    time.Time
	stopped bool
}

// CoordinatorOption defines a function type to modify the Coordinator instance.
type CoordinatorOption func(*Coordinator)

func WithClock(c clock.Clock) CoordinatorOption {
	return func(co *Coordinator) {
		co.clock = c
	}
}

func WithLogger(logger zerolog.Logger) CoordinatorOption {
	return func(co *Coordinator) {
		co.logger = logger
	}
}

func WithNotifier(n Notifier) CoordinatorOption {
	return func(co *Coordinator) {
		co.notifier = n
	}
}

// NewCoordinator creates a coordinator with auto refresh disabled. The last refresh time is
// read back from store.
func NewCoordinator(ctx context.Context, reload ReloadFunc, store kvstore.Repo, cfg config.RefreshConfig, options ...CoordinatorOption) (*Coordinator, error) {
	if reload == nil {
		return nil, errors.New("[NewCoordinator] reload is required")
	}
	if store == nil {
		return nil, errors.New("[NewCoordinator] store is required")
	}
	if cfg == nil || cfg.GetAutoRefreshInterval() <= 0 {
		return nil, errors.New("[NewCoordinator] a positive refresh interval is required")
	}

	c := &Coordinator{
		reload:   reload,
		store:    store,
		clock:    clock.Real(),
		interval: cfg.GetAutoRefreshInterval(),
		notifier: NotifierFunc(func(Level, string) {}),
		logger:   zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}

	if saved, err := store.Get(ctx, LastRefreshKey); err == nil {
		if t, err := time.Parse(time.RFC3339Nano, saved); err == nil {
			c.last = t
		}
	}
	return c, nil
}

// Manual runs a reload now and notifies the outcome. It returns false without doing
// anything when a reload is already running.
func (c *Coordinator) Manual(ctx context.Context) (bool, error) {
	ran, err := c.run(ctx)
	if !ran {
		return false, nil
	}
	if err != nil {
		c.logger.Error().Err(err).Msg("manual refresh failed")
		c.notifier.Notify(LevelError, MsgRefreshFailed)
		return true, err
	}
	c.notifier.Notify(LevelSuccess, MsgRefreshed)
	return true, nil
}

// SetAuto enables or disables the periodic reload. Enabling restarts the interval.
func (c *Coordinator) SetAuto(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.auto = enabled
	c.stopTimerLocked()
	if enabled {
		c.scheduleLocked()
	}
}

func (c *Coordinator) Auto() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.auto
}

func (c *Coordinator) Refreshing() bool {
	return c.refreshing.Load()
}

// LastRefresh returns the completion time of the last successful reload, zero if none.
func (c *Coordinator) LastRefresh() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Stop cancels the auto timer. Later ticks and Manual calls do nothing.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	c.auto = false
	c.stopTimerLocked()
}

func (c *Coordinator) run(ctx context.Context) (bool, error) {
	c.mu.Lock()
	stopped := c.stopped
	c.mu.Unlock()
	if stopped || !c.refreshing.CompareAndSwap(false, true) {
		return false, nil
	}
	defer c.refreshing.Store(false)

	if err := c.reload(ctx); err != nil {
		return true, err
	}

	now := c.clock.Now()
	c.mu.Lock()
	c.last = now
	c.mu.Unlock()
	if err := c.store.Set(ctx, LastRefreshKey, now.UTC().Format(time.RFC3339Nano)); err != nil {
		c.logger.Warn().Err(err).Msg("persisting last refresh time")
	}
	return true, nil
}

func (c *Coordinator) tick(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || !c.auto || c.stopped {
		c.mu.Unlock()
		return
	}
	c.scheduleLocked()
	c.mu.Unlock()

	ran, err := c.run(context.Background())
	switch {
	case !ran:
		c.logger.Debug().Msg("auto refresh skipped, refresh in progress")
	case err != nil:
		c.logger.Error().Err(err).Msg("auto refresh failed")
	}
}

func (c *Coordinator) scheduleLocked() {
	c.gen++
	gen := c.gen
	c.timer = c.clock.AfterFunc(c.interval, func() {
		c.tick(gen)
	})
}

func (c *Coordinator) stopTimerLocked() {
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
