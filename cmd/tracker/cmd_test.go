package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/syllabus-tracker/clock/clockfake"
	"github.com/jrsteele09/syllabus-tracker/dashboard"
	"github.com/jrsteele09/syllabus-tracker/identity"
	"github.com/jrsteele09/syllabus-tracker/internal/config"
	apperrors "github.com/jrsteele09/syllabus-tracker/internal/errors"
	"github.com/jrsteele09/syllabus-tracker/internal/utils"
	"github.com/jrsteele09/syllabus-tracker/kvstore"
	"github.com/jrsteele09/syllabus-tracker/roster"
	"github.com/jrsteele09/syllabus-tracker/trackerapi"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

var users = map[string]identity.Identity{
	"student-token": {ID: "1099", Name: "Ada Lovelace", Email: "ada@example.com"},
	"teacher-token": {ID: "2001", Name: "Grace Hopper", Email: "grace@example.com"},
}

// backend serves the student and teacher endpoints of the /tracker API.
type backend struct {
	mu      sync.Mutex
	topics  map[string]bool
	updates []trackerapi.TopicUpdate
	writes  []string
}

func (b *backend) received() ([]trackerapi.TopicUpdate, []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]trackerapi.TopicUpdate(nil), b.updates...), append([]string(nil), b.writes...)
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch path := r.URL.Path; {
	case path == "/tracker/student-syllabuses":
		writeJSON(w, map[string]any{"success": true, "syllabuses": []trackerapi.SyllabusInfo{{ID: "9709", Name: "Mathematics"}}})
	case strings.HasPrefix(path, "/tracker/syllabus/"):
		writeJSON(w, map[string]any{"status": "success", "data": trackerapi.Syllabus{
			ID:          "9709",
			Name:        "Mathematics",
			Description: utils.Ptr("Cambridge International AS & A Level"),
			Variants: []trackerapi.Variant{{Name: "Paper 1", Topics: []trackerapi.Topic{
				{ID: "p1_1", ChapterName: "Algebra", TopicName: "Quadratics"},
				{ID: "p1_2", ChapterName: "Algebra", TopicName: "Functions"},
			}}},
		}})
	case path == "/tracker/student-progress":
		writeJSON(w, map[string]any{"success": true, "progress": trackerapi.ProgressSnapshot{Topics: b.states()}})
	case path == "/tracker/update-topic":
		var update trackerapi.TopicUpdate
		_ = json.NewDecoder(r.Body).Decode(&update)
		b.updates = append(b.updates, update)
		if update.SyllabusID == "9709" {
			b.topics[update.TopicID] = update.IsCompleted
		}
		writeJSON(w, map[string]any{"success": true, "topics": b.states()})
	case path == "/tracker/all-syllabuses":
		writeJSON(w, map[string]any{"status": "success", "data": []trackerapi.SyllabusInfo{{ID: "9709", Name: "Mathematics"}}})
	case path == "/tracker/all-progress":
		writeJSON(w, map[string]any{"status": "success", "data": []trackerapi.RosterEntry{
			{Email: "ada@example.com", Name: "Ada Lovelace", SyllabusName: "Mathematics", ProgressPercentage: 50, CompletedCount: 1, TotalTopics: 2},
			{Email: "alan@example.com", Name: "Alan Turing", SyllabusName: "Mathematics", ProgressPercentage: 10, CompletedCount: 0, TotalTopics: 2},
		}})
	case path == "/tracker/backups":
		writeJSON(w, map[string]any{"success": true, "backups": []trackerapi.Backup{{Name: "progress_2024-09-01.json", Size: 2048}}})
	case path == "/tracker/assign-syllabus", path == "/tracker/remove-syllabus", strings.HasPrefix(path, "/tracker/backups/"):
		b.writes = append(b.writes, path)
		writeJSON(w, map[string]any{"success": true, "message": "Done: " + path})
	default:
		http.NotFound(w, r)
	}
}

func (b *backend) states() []trackerapi.TopicState {
	var out []trackerapi.TopicState
	for id, done := range b.topics {
		out = append(out, trackerapi.TopicState{ID: id, Completed: done})
	}
	return out
}

func writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

type cliFixture struct {
	cli     *commandLine
	out     *bytes.Buffer
	backend *backend
	clock   *clockfake.FakeClock
}

// setup builds a CLI over an in-process backend. input answers confirmation prompts; an empty
// input behaves like a non-interactive shell.
func setup(t *testing.T, input string) *cliFixture {
	t.Helper()
	b := &backend{topics: map[string]bool{"p1_1": true}}
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	api, err := trackerapi.New(srv.URL + "/tracker")
	require.NoError(t, err)

	stores := map[string]kvstore.Repo{
		studentProfile: kvstore.NewInMemoryRepo(),
		teacherProfile: kvstore.NewInMemoryRepo(),
	}
	out := &bytes.Buffer{}
	fakeClock := clockfake.NewFakeClock(time.Date(2024, 9, 2, 8, 0, 0, 0, time.UTC))
	auth := identity.AuthenticatorFunc(func(ctx context.Context, token *oauth2.Token) (identity.Identity, error) {
		user, ok := users[token.AccessToken]
		if !ok {
			return identity.Identity{}, apperrors.ErrAuth
		}
		return user, nil
	})

	return &cliFixture{
		cli: &commandLine{
			cfg:       config.FromViper(viper.New()),
			api:       api,
			auth:      auth,
			openStore: func(profile string) (kvstore.Repo, error) { return stores[profile], nil },
			clock:     fakeClock,
			out:       out,
			confirmer: newPromptConfirmer(strings.NewReader(input), out, input != ""),
			logger:    zerolog.Nop(),
		},
		out:     out,
		backend: b,
		clock:   fakeClock,
	}
}

func (f *cliFixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	f.out.Reset()
	err := f.cli.run(context.Background(), append([]string{"tracker"}, args...))
	return f.out.String(), err
}

type cliTest struct {
	name    string
	args    []string // without program name
	wantErr error
}

func Test_commandLine_usage(t *testing.T) {
	f := setup(t, "")
	tests := []cliTest{
		{name: "no command", args: nil, wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "login without token", args: []string{"login"}, wantErr: errHelp},
		{name: "toggle without topic", args: []string{"toggle"}, wantErr: errHelp},
		{name: "select without syllabus", args: []string{"select"}, wantErr: errHelp},
		{name: "status signed out", args: []string{"status"}, wantErr: apperrors.ErrSessionExpired},
		{name: "dashboard signed out", args: []string{"dashboard"}, wantErr: apperrors.ErrSessionExpired},
		{name: "dashboard unknown bucket", args: []string{"dashboard", "-bucket", "10-20"}, wantErr: errHelp},
		{name: "dashboard unknown tab", args: []string{"dashboard", "-tab", "grades"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.run(t, tt.args...)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func Test_commandLine_student(t *testing.T) {
	f := setup(t, "")

	out, err := f.run(t, "login", "-token", "bogus")
	require.ErrorIs(t, err, apperrors.ErrAuth)
	require.Empty(t, out)

	out, err = f.run(t, "login", "-token", "student-token")
	require.NoError(t, err)
	require.Contains(t, out, "Ada Lovelace <ada@example.com>")
	require.Contains(t, out, "Cambridge International AS & A Level")
	require.Contains(t, out, "Progress: 1/1 topics")
	require.Contains(t, out, "[x]  p1_1")

	updates, _ := f.backend.received()
	require.Len(t, updates, 1)
	require.Equal(t, trackerapi.ContactRegisterID, updates[0].TopicID)

	out, err = f.run(t, "toggle", "-topic", "p1_2")
	require.NoError(t, err)
	require.Contains(t, out, "[x]  p1_2")
	require.Contains(t, out, "Progress: 2/2 topics (100%)")

	updates, _ = f.backend.received()
	require.Equal(t, trackerapi.TopicUpdate{
		StudentEmail: "ada@example.com",
		StudentName:  "Ada Lovelace",
		SyllabusID:   "9709",
		TopicID:      "p1_2",
		IsCompleted:  true,
	}, updates[len(updates)-1])

	_, err = f.run(t, "logout")
	require.ErrorIs(t, err, errNotInteractive)
	_, err = f.run(t, "status")
	require.NoError(t, err)

	out, err = f.run(t, "logout", "-yes")
	require.NoError(t, err)
	require.Contains(t, out, "Signed out.")
	_, err = f.run(t, "status")
	require.ErrorIs(t, err, apperrors.ErrSessionExpired)
}

func Test_commandLine_logoutDeclined(t *testing.T) {
	f := setup(t, "n\n")
	_, err := f.run(t, "login", "-token", "student-token")
	require.NoError(t, err)

	out, err := f.run(t, "logout")
	require.NoError(t, err)
	require.Contains(t, out, "Still signed in.")
	_, err = f.run(t, "status")
	require.NoError(t, err)
}

func Test_commandLine_teacher(t *testing.T) {
	f := setup(t, "")

	out, err := f.run(t, "login", "-teacher", "-token", "teacher-token")
	require.NoError(t, err)
	require.Contains(t, out, "Grace Hopper")

	t.Run("dashboard filters persist", func(t *testing.T) {
		out, err := f.run(t, "dashboard", "-search", "ada")
		require.NoError(t, err)
		require.Contains(t, out, "Ada Lovelace")
		require.NotContains(t, out, "Alan Turing")
		require.Contains(t, out, "Students: 1")

		out, err = f.run(t, "dashboard")
		require.NoError(t, err)
		require.Contains(t, out, `search="ada"`)
		require.NotContains(t, out, "Alan Turing")

		out, err = f.run(t, "dashboard", "-search", "", "-tab", dashboard.TabAnalytics)
		require.NoError(t, err)
		require.Contains(t, out, "Top performers (over 75%)")
		require.Contains(t, out, "Need attention (below 25%)")
		require.Contains(t, out, "Alan Turing")
	})

	t.Run("assign validates before sending", func(t *testing.T) {
		_, err := f.run(t, "assign", "-email", "not-an-email", "-syllabus", "9709")
		require.ErrorIs(t, err, apperrors.ErrInvalidInput)
		require.EqualError(t, err, dashboard.MsgEmailInvalid)
		_, writes := f.backend.received()
		require.Empty(t, writes)
	})

	t.Run("assign and remove", func(t *testing.T) {
		out, err := f.run(t, "assign", "-email", "alan@example.com", "-syllabus", "9709")
		require.NoError(t, err)
		require.Contains(t, out, "Done: /tracker/assign-syllabus")

		out, err = f.run(t, "remove", "-email", "alan@example.com", "-syllabus", "9709")
		require.NoError(t, err)
		require.Contains(t, out, "Done: /tracker/remove-syllabus")
	})

	t.Run("export", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "roster.csv")
		_, err := f.run(t, "dashboard", "-search", "")
		require.NoError(t, err)

		out, err := f.run(t, "export", "-o", path)
		require.NoError(t, err)
		require.Contains(t, out, "2 rows written")

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(string(raw), strings.Join(roster.CSVHeader, ",")))
	})

	t.Run("backups", func(t *testing.T) {
		out, err := f.run(t, "backups")
		require.NoError(t, err)
		require.Contains(t, out, "progress_2024-09-01.json")

		_, err = f.run(t, "backups", "-restore", "progress_2024-09-01.json")
		require.ErrorIs(t, err, errNotInteractive)

		out, err = f.run(t, "backups", "-restore", "progress_2024-09-01.json", "-yes")
		require.NoError(t, err)
		require.Contains(t, out, "Done: /tracker/backups/restore")
	})

	t.Run("teacher session expires", func(t *testing.T) {
		f.clock.Advance(2 * time.Hour)
		_, err := f.run(t, "dashboard")
		require.ErrorIs(t, err, apperrors.ErrSessionExpired)
	})
}
