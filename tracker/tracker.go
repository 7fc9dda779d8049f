package tracker

import (
	"context"

	"github.com/jrsteele09/syllabus-tracker/catalog"
	apperrors "github.com/jrsteele09/syllabus-tracker/internal/errors"
	"github.com/jrsteele09/syllabus-tracker/progress"
	"github.com/jrsteele09/syllabus-tracker/sessions"
	"github.com/jrsteele09/syllabus-tracker/trackerapi"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// Registrar upserts a topic, which creates the student on the backend when unknown.
type Registrar interface {
	UpdateTopic(ctx context.Context, update trackerapi.TopicUpdate) (*trackerapi.ProgressSnapshot, error)
}

// RegistrationHook registers the signed-in student with the backend by writing the
// placeholder topic of the contact syllabus. Failures are only logged.
func RegistrationHook(api Registrar, logger zerolog.Logger) sessions.LoginHook {
	return func(ctx context.Context, s sessions.Session) {
		_, err := api.UpdateTopic(ctx, trackerapi.TopicUpdate{
			StudentEmail: s.User.Email,
			StudentName:  s.User.Name,
			SyllabusID:   trackerapi.ContactSyllabusID,
			TopicID:      trackerapi.ContactRegisterID,
			IsCompleted:  false,
		})
		if err != nil {
			logger.Error().Err(err).Str("email", s.User.Email).Msg("registering student")
			return
		}
		logger.Debug().Str("email", s.User.Email).Msg("student registered")
	}
}

// Services holds the stores the student tracker drives
type Services struct {
	Sessions *sessions.Manager
	Catalog  *catalog.Cache
	Progress *progress.Store
}

// View is what the student tracker renders.
type View struct {
	Session     *sessions.Session
	Syllabuses  []trackerapi.SyllabusInfo
	Selected    string
	Content     *trackerapi.Syllabus
	Progress    progress.Snapshot
	CatalogErr  error
	ProgressErr error
}

// App chains session, catalog and progress for the signed-in student.
type App struct {
	svc    Services
	logger zerolog.Logger
}

// AppOption defines a function type to modify the App instance.
type AppOption func(*App)

func WithLogger(logger zerolog.Logger) AppOption {
	return func(a *App) {
		a.logger = logger
	}
}

func New(svc Services, options ...AppOption) (*App, error) {
	if svc.Sessions == nil {
		return nil, errors.New("[tracker.New] Sessions is required")
	}
	if svc.Catalog == nil {
		return nil, errors.New("[tracker.New] Catalog is required")
	}
	if svc.Progress == nil {
		return nil, errors.New("[tracker.New] Progress is required")
	}
	a := &App{svc: svc, logger: zerolog.Nop()}
	for _, opt := range options {
		opt(a)
	}
	return a, nil
}

// Start restores a persisted session and, when there is one, loads the student's data.
// It returns nil when nobody is signed in.
func (a *App) Start(ctx context.Context) (*sessions.Session, error) {
	s := a.svc.Sessions.Restore(ctx)
	if s == nil {
		a.svc.Progress.Reset()
		return nil, nil
	}
	return s, a.load(ctx, *s)
}

// SignIn creates a session from the identity provider response and loads the student's data.
func (a *App) SignIn(ctx context.Context, token *oauth2.Token) (sessions.Session, error) {
	s, err := a.svc.Sessions.Login(ctx, token)
	if err != nil {
		return sessions.Session{}, err
	}
	return s, a.load(ctx, s)
}

// Foreground re-validates the session when the app is used again after a pause.
func (a *App) Foreground(ctx context.Context) *sessions.Session {
	s := a.svc.Sessions.Foreground(ctx)
	if s == nil {
		a.svc.Progress.Reset()
	}
	return s
}

// Select switches to another syllabus and loads its content and progress.
func (a *App) Select(ctx context.Context, syllabusID string) error {
	s, err := a.session()
	if err != nil {
		return err
	}
	if err := a.svc.Catalog.Select(ctx, syllabusID); err != nil {
		a.logger.Warn().Err(err).Msg("persisting syllabus selection")
	}
	a.svc.Progress.Reset()
	return a.loadSelection(ctx, s)
}

// Toggle marks a topic of the selected syllabus complete or incomplete.
func (a *App) Toggle(ctx context.Context, topicID string, done bool) error {
	s, err := a.session()
	if err != nil {
		return err
	}
	syllabusID := a.svc.Catalog.Selected(ctx)
	if syllabusID == "" || topicID == "" {
		return apperrors.Mark(errors.New("[App.Toggle] no syllabus or topic selected"), apperrors.ErrInvalidInput)
	}
	return a.svc.Progress.Toggle(ctx, trackerapi.TopicUpdate{
		StudentEmail: s.User.Email,
		StudentName:  s.User.Name,
		SyllabusID:   syllabusID,
		TopicID:      topicID,
		IsCompleted:  done,
	})
}

// SignOut asks for confirmation and ends the session. The selection stays persisted.
func (a *App) SignOut(ctx context.Context) (bool, error) {
	done, err := a.svc.Sessions.Logout(ctx)
	if err != nil || !done {
		return false, err
	}
	a.svc.Progress.Reset()
	return true, nil
}

func (a *App) View(ctx context.Context) View {
	return View{
		Session:     a.svc.Sessions.Current(),
		Syllabuses:  a.svc.Catalog.Syllabuses(),
		Selected:    a.svc.Catalog.Selected(ctx),
		Content:     a.svc.Catalog.Content(),
		Progress:    a.svc.Progress.Snapshot(),
		CatalogErr:  a.svc.Catalog.Err(),
		ProgressErr: a.svc.Progress.Err(),
	}
}

// Close stops the session timer and tears the progress store down.
func (a *App) Close() {
	a.svc.Sessions.Stop()
	a.svc.Progress.Close()
}

func (a *App) session() (sessions.Session, error) {
	s := a.svc.Sessions.Current()
	if s == nil {
		a.svc.Progress.Reset()
		return sessions.Session{}, apperrors.ErrSessionExpired
	}
	return *s, nil
}

// load runs the read chain. Read failures degrade to defaults; the first one is returned
// for display after the whole chain has run.
func (a *App) load(ctx context.Context, s sessions.Session) error {
	_, listErr := a.svc.Catalog.LoadSyllabuses(ctx, s.User.Email)
	if err := a.loadSelection(ctx, s); err != nil && listErr == nil {
		return err
	}
	return listErr
}

func (a *App) loadSelection(ctx context.Context, s sessions.Session) error {
	selected := a.svc.Catalog.Selected(ctx)
	_, err := a.svc.Catalog.LoadSyllabusContent(ctx, selected)
	a.svc.Progress.Load(ctx, s.User.Email, selected)
	return err
}
