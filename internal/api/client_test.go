package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"drift/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 2*time.Second, 0, 0, nil)
}

func writeEnvelope(w http.ResponseWriter, status int, success bool, data any, errMsg string) {
	env := map[string]any{"success": success}
	if data != nil {
		env["data"] = data
	}
	if errMsg != "" {
		env["error"] = map[string]string{"message": errMsg}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func TestResourceCreate(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody models.TaskDraft

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		writeEnvelope(w, http.StatusCreated, true, models.Task{ID: "42", Title: gotBody.Title}, "")
	})

	task, err := Tasks(client).Create(context.Background(), models.TaskDraft{Title: "buy milk"})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/api/v1/tasks", gotPath)
	assert.Equal(t, "buy milk", gotBody.Title)
	assert.Equal(t, "42", task.ID)
}

func TestResourceList(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, true, []models.Task{{ID: "1"}, {ID: "2"}}, "")
	})

	tasks, err := Tasks(client).List(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "1", tasks[0].ID)
}

func TestResourceUpdatePathEscaping(t *testing.T) {
	var gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		writeEnvelope(w, http.StatusOK, true, models.Project{ID: "a b"}, "")
	})

	_, err := Projects(client).Update(context.Background(), "a b", models.ProjectPatch{})
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/projects/a%20b", gotPath)
}

func TestServerRejection(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusUnprocessableEntity, false, nil, "title is required")
	})

	_, err := Tasks(client).Create(context.Background(), models.TaskDraft{})
	require.Error(t, err)

	var serverErr *ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, http.StatusUnprocessableEntity, serverErr.Status)
	assert.Contains(t, serverErr.Message, "title is required")
	assert.False(t, IsNetworkUnavailable(err))
}

func TestEnvelopeFailureWithoutHTTPError(t *testing.T) {
	// success=false in a 200 response is still a rejection.
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, false, nil, "quota exceeded")
	})

	err := Tasks(client).Delete(context.Background(), "1")
	var serverErr *ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, "quota exceeded", serverErr.Message)
}

func TestNetworkUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	client := NewClient(srv.URL, time.Second, 0, 0, nil)
	_, err := Tasks(client).List(context.Background())
	require.Error(t, err)
	assert.True(t, IsNetworkUnavailable(err))
}

func TestNonJSONErrorBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	})

	_, err := Tasks(client).List(context.Background())
	var serverErr *ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, http.StatusBadGateway, serverErr.Status)
}
