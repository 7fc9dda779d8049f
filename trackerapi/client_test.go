package trackerapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "github.com/jrsteele09/syllabus-tracker/internal/errors"
	"github.com/jrsteele09/syllabus-tracker/trackerapi"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *trackerapi.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := trackerapi.New(srv.URL + "/tracker")
	require.NoError(t, err)
	return client
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestNew(t *testing.T) {
	_, err := trackerapi.New("")
	require.Error(t, err)
}

func TestStudentEndpoints(t *testing.T) {
	ctx := context.Background()

	t.Run("student syllabuses", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/tracker/student-syllabuses", r.URL.Path)
			require.Equal(t, "ada@example.com", r.URL.Query().Get("student_email"))
			require.NotEmpty(t, r.Header.Get(trackerapi.RequestIDHeader))
			writeJSON(w, http.StatusOK, map[string]any{
				"success":    true,
				"syllabuses": []map[string]string{{"id": "9709", "name": "Mathematics"}},
			})
		})

		list, err := client.StudentSyllabuses(ctx, "ada@example.com")
		require.NoError(t, err)
		require.Equal(t, []trackerapi.SyllabusInfo{{ID: "9709", Name: "Mathematics"}}, list)
	})

	t.Run("syllabus without variants is malformed", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"status": "success", "data": map[string]any{"name": "x"}})
		})

		_, err := client.Syllabus(ctx, "9709")
		require.ErrorIs(t, err, trackerapi.ErrMalformed)
	})

	t.Run("syllabus tree", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/tracker/syllabus/9709", r.URL.Path)
			writeJSON(w, http.StatusOK, map[string]any{
				"status": "success",
				"data": map[string]any{
					"name": "Mathematics",
					"variants": []map[string]any{{
						"name": "Pure 1",
						"topics": []map[string]string{
							{"id": "p1_1", "chapter_name": "Quadratics", "topic_name": "Completing the square"},
							{"id": "p1_2", "chapter_name": "Functions", "topic_name": "Inverses"},
						},
					}},
				},
			})
		})

		syllabus, err := client.Syllabus(ctx, "9709")
		require.NoError(t, err)
		require.Equal(t, "9709", syllabus.ID)
		require.Equal(t, []string{"p1_1", "p1_2"}, syllabus.TopicIDs())
	})

	t.Run("update topic posts payload", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "application/json", r.Header.Get("Content-Type"))
			var got trackerapi.TopicUpdate
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			require.Equal(t, trackerapi.TopicUpdate{
				StudentEmail: "ada@example.com",
				StudentName:  "Ada",
				SyllabusID:   "9709",
				TopicID:      "p1_1",
				IsCompleted:  true,
			}, got)
			writeJSON(w, http.StatusOK, map[string]any{
				"success":          true,
				"topics":           []map[string]any{{"id": "p1_1", "completed": true}},
				"overall_progress": map[string]any{"percentage": 50, "completed": 1, "total": 2},
			})
		})

		snap, err := client.UpdateTopic(ctx, trackerapi.TopicUpdate{
			StudentEmail: "ada@example.com",
			StudentName:  "Ada",
			SyllabusID:   "9709",
			TopicID:      "p1_1",
			IsCompleted:  true,
		})
		require.NoError(t, err)
		require.Equal(t, []trackerapi.TopicState{{ID: "p1_1", Completed: true}}, snap.Topics)
		require.Equal(t, &trackerapi.OverallProgress{Percentage: 50, Completed: 1, Total: 2}, snap.OverallProgress)
	})

	t.Run("update topic rejected", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"success": false})
		})

		_, err := client.UpdateTopic(ctx, trackerapi.TopicUpdate{TopicID: "x"})
		var rejected *trackerapi.RejectedError
		require.ErrorAs(t, err, &rejected)
		require.Equal(t, "Update failed", rejected.Message)
	})
}

func TestStatusErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("server error keeps body", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "database locked", http.StatusInternalServerError)
		})

		_, err := client.AllProgress(ctx)
		var statusErr *trackerapi.StatusError
		require.ErrorAs(t, err, &statusErr)
		require.Equal(t, http.StatusInternalServerError, statusErr.Code)
		require.Equal(t, "HTTP 500: database locked", statusErr.Error())
		require.Equal(t, apperrors.MsgServerError, apperrors.FriendlyMessage(err))
	})

	t.Run("429 is marked rate limited", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusTooManyRequests, map[string]any{"success": false})
		})

		_, err := client.AssignSyllabus(ctx, trackerapi.Assignment{StudentEmail: "a@x.com", SyllabusID: "9709"})
		require.ErrorIs(t, err, apperrors.ErrRateLimited)
		require.Equal(t, apperrors.MsgRateLimited, apperrors.FriendlyMessage(err))
	})

	t.Run("transport failure is a network error", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()
		client, err := trackerapi.New(srv.URL + "/tracker")
		require.NoError(t, err)

		_, err = client.AllSyllabuses(ctx)
		require.ErrorIs(t, err, apperrors.ErrNetwork)
		require.Equal(t, apperrors.MsgConnection, apperrors.FriendlyMessage(err))
	})
}

func TestTeacherEndpoints(t *testing.T) {
	ctx := context.Background()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tracker/all-syllabuses":
			writeJSON(w, http.StatusOK, map[string]any{"status": "success", "data": []map[string]string{{"id": "9709", "name": "Mathematics"}}})
		case "/tracker/all-progress":
			writeJSON(w, http.StatusOK, map[string]any{"status": "success", "data": []map[string]any{
				{"email": "a@x.com", "name": "Ann", "syllabus_name": "Mathematics", "progress_percentage": 42.5, "completed_count": 17, "total_topics": 40},
			}})
		case "/tracker/remove-syllabus":
			var a trackerapi.Assignment
			require.NoError(t, json.NewDecoder(r.Body).Decode(&a))
			require.Equal(t, "a@x.com", a.StudentEmail)
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "removed"})
		case "/tracker/backups":
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "backups": []map[string]any{{"name": "nightly.db", "size": 2048}}})
		case "/tracker/backups/restore":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, "nightly.db", body["filename"])
			writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": "locked"})
		default:
			http.NotFound(w, r)
		}
	})

	catalog, err := client.AllSyllabuses(ctx)
	require.NoError(t, err)
	require.Len(t, catalog, 1)

	roster, err := client.AllProgress(ctx)
	require.NoError(t, err)
	require.Equal(t, 42.5, roster[0].ProgressPercentage)
	require.Equal(t, 40, roster[0].TotalTopics)

	msg, err := client.RemoveSyllabus(ctx, trackerapi.Assignment{StudentEmail: "a@x.com", SyllabusID: "9709"})
	require.NoError(t, err)
	require.Equal(t, "removed", msg)

	backups, err := client.Backups(ctx)
	require.NoError(t, err)
	require.Equal(t, []trackerapi.Backup{{Name: "nightly.db", Size: 2048}}, backups)

	_, err = client.RestoreBackup(ctx, "nightly.db")
	require.EqualError(t, err, "locked")
}
