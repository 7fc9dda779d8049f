package progress

import (
	"context"
	"maps"
	"sync"

	apperrors "github.com/jrsteele09/syllabus-tracker/internal/errors"
	"github.com/jrsteele09/syllabus-tracker/trackerapi"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// API is the part of the tracker backend the progress store talks to.
type API interface {
	StudentProgress(ctx context.Context, email, syllabusID string) (*trackerapi.ProgressSnapshot, error)
	UpdateTopic(ctx context.Context, update trackerapi.TopicUpdate) (*trackerapi.ProgressSnapshot, error)
}

var _ API = (*trackerapi.Client)(nil)

// Snapshot is a copy of the completion state of one student on one syllabus.
type Snapshot struct {
	Topics  map[string]bool
	Overall trackerapi.OverallProgress
}

// Completed reports whether topic id is marked complete.
func (s Snapshot) Completed(id string) bool {
	return s.Topics[id]
}

// Derive computes the aggregate of a topic map: the number of true values over the number of keys.
func Derive(topics map[string]bool) trackerapi.OverallProgress {
	out := trackerapi.OverallProgress{Total: len(topics)}
	for _, done := range topics {
		if done {
			out.Completed++
		}
	}
	if out.Total > 0 {
		out.Percentage = float64(out.Completed) / float64(out.Total) * 100
	}
	return out
}

// Store owns the topic completion map of the signed-in student and the selected syllabus.
// Every mutation happens under one lock, so Snapshot never observes a partial update.
type Store struct {
	api    API
	logger zerolog.Logger

	mu       sync.Mutex
	topics   map[string]bool
	overall  trackerapi.OverallProgress
	inflight int
	err      error
	epoch    uint64 // bumped whenever the state is replaced wholesale, late results from older epochs are dropped
	closed   bool
}

// StoreOption defines a function type to modify the Store instance.
type StoreOption func(*Store)

func WithLogger(logger zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

func NewStore(api API, options ...StoreOption) (*Store, error) {
	if api == nil {
		return nil, errors.New("[progress.NewStore] api is required")
	}
	s := &Store{
		api:    api,
		logger: zerolog.Nop(),
		topics: map[string]bool{},
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Load replaces the state with the backend snapshot for email and syllabusID. Any failure,
// including "no progress yet", leaves the all-incomplete default. Absence of progress is not an error.
func (s *Store) Load(ctx context.Context, email, syllabusID string) {
	if email == "" || syllabusID == "" {
		return
	}
	epoch := s.beginLoad()
	snapshot, err := s.api.StudentProgress(ctx, email, syllabusID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if s.closed || epoch != s.epoch {
		return
	}
	s.topics = map[string]bool{}
	s.overall = trackerapi.OverallProgress{}
	if err != nil {
		s.logger.Debug().Err(err).Str("syllabus_id", syllabusID).Msg("no progress loaded, using defaults")
		return
	}
	s.mergeLocked(snapshot)
}

// Toggle sets the completion flag of update.TopicID. The change is applied locally first and
// is visible through Snapshot while the write is in flight. On success the server-confirmed
// state replaces it; on failure the topic reverts to its previous value and an ErrWrite error
// is returned. Toggles are not serialized: with two in flight, the response that arrives last wins.
func (s *Store) Toggle(ctx context.Context, update trackerapi.TopicUpdate) error {
	prev, epoch := s.applyLocal(update.TopicID, update.IsCompleted)
	confirmed, err := s.api.UpdateTopic(ctx, update)
	return s.reconcile(epoch, update, prev, confirmed, err)
}

type priorValue struct {
	done    bool
	present bool
}

func (s *Store) applyLocal(topicID string, done bool) (priorValue, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, present := s.topics[topicID]
	s.topics[topicID] = done
	s.overall = Derive(s.topics)
	s.inflight++
	return priorValue{done: prev, present: present}, s.epoch
}

// reconcile is the single exit of a toggle, for both the confirmed and the failed write.
func (s *Store) reconcile(epoch uint64, update trackerapi.TopicUpdate, prev priorValue, confirmed *trackerapi.ProgressSnapshot, writeErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	stale := s.closed || epoch != s.epoch

	if writeErr == nil {
		if !stale {
			s.mergeLocked(confirmed)
			s.err = nil
		}
		return nil
	}

	s.logger.Error().Err(writeErr).Str("topic_id", update.TopicID).Bool("is_completed", update.IsCompleted).Msg("topic update failed")
	if !stale {
		if prev.present {
			s.topics[update.TopicID] = prev.done
		} else {
			delete(s.topics, update.TopicID)
		}
		s.overall = Derive(s.topics)
		s.err = errors.New(apperrors.MsgUpdateFailed)
	}
	return apperrors.Mark(errors.Wrapf(writeErr, "[Store.Toggle] %s", update.TopicID), apperrors.ErrWrite)
}

// mergeLocked folds server topics into the map and adopts the server aggregate when one is sent.
func (s *Store) mergeLocked(snapshot *trackerapi.ProgressSnapshot) {
	if snapshot == nil {
		s.overall = Derive(s.topics)
		return
	}
	for _, t := range snapshot.Topics {
		s.topics[t.ID] = t.Completed
	}
	if snapshot.OverallProgress != nil {
		s.overall = *snapshot.OverallProgress
	} else {
		s.overall = Derive(s.topics)
	}
}

func (s *Store) beginLoad() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.err = nil
	s.inflight++
	return s.epoch
}

// Reset returns to the all-incomplete default and drops results of requests still in flight.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.topics = map[string]bool{}
	s.overall = trackerapi.OverallProgress{}
	s.err = nil
}

// Close tears the store down. Results arriving afterwards are ignored.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{Topics: maps.Clone(s.topics), Overall: s.overall}
}

// Loading reports whether a load or a topic write is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight > 0
}

// Err returns the display error of the last failed toggle, cleared by the next success or load.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
