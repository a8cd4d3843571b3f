package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"todoctl/internal/config"
	"todoctl/internal/logging"
	"todoctl/internal/service"
	"todoctl/internal/testutil"
)

func newTestClient(t *testing.T) (*Client, *testutil.FakeServer) {
	t.Helper()
	srv := testutil.NewFakeServer(testutil.NewFakeService())
	t.Cleanup(srv.Close)

	c, err := NewWithHTTPClient(srv.URL, srv.Client())
	require.NoError(t, err)
	return c, srv
}

func TestClient_ListPaginatesAndFilters(t *testing.T) {
	c, srv := newTestClient(t)
	srv.Svc.AddTasks(25)
	srv.Svc.AddDoneTask("finished thing")

	res, err := c.List(context.Background(), service.ListParams{
		Filter: service.FilterTodo,
		Limit:  10,
		Offset: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, 25, res.Total)
	assert.Equal(t, 20, res.Offset)
	require.Len(t, res.Items, 5)
	assert.Equal(t, "task 5", res.Items[0].Title)
	assert.False(t, res.Items[0].CreatedAt.IsZero())

	call := srv.Svc.ListCalls[0]
	assert.Equal(t, service.FilterTodo, call.Filter)
	assert.Equal(t, 10, call.Limit)
	assert.Equal(t, 20, call.Offset)
}

func TestClient_ListSearch(t *testing.T) {
	c, srv := newTestClient(t)
	srv.Svc.AddTask("Buy milk")
	srv.Svc.AddTask("Walk dog")

	res, err := c.List(context.Background(), service.ListParams{Search: "MILK", Limit: 10})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Buy milk", res.Items[0].Title)
	assert.Equal(t, service.FilterAll, srv.Svc.ListCalls[0].Filter)
}

func TestClient_CreateUpdateToggleDelete(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()

	desc := "two litres"
	finish := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)
	created, err := c.Create(ctx, service.CreateParams{Title: "Buy milk", Description: &desc, FinishDate: &finish})
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", created.Title)
	assert.Equal(t, "two litres", created.DescriptionText())
	require.NotNil(t, created.FinishDate)
	assert.True(t, created.FinishDate.Equal(finish))

	title := "Buy oat milk"
	updated, err := c.Update(ctx, created.ID, service.UpdateParams{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Buy oat milk", updated.Title)
	assert.Equal(t, "two litres", updated.DescriptionText())

	empty := ""
	cleared, err := c.Update(ctx, created.ID, service.UpdateParams{Description: &empty})
	require.NoError(t, err)
	assert.Nil(t, cleared.Description)

	toggled, err := c.ToggleDone(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Done())

	require.NoError(t, c.Delete(ctx, created.ID))
	assert.Empty(t, srv.Svc.Tasks())
}

func TestClient_ErrorClassification(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()

	err := c.Delete(ctx, 99)
	assert.ErrorIs(t, err, service.ErrNotFound)
	assert.Equal(t, "Task not found", err.Error())

	_, err = c.Create(ctx, service.CreateParams{Title: "  "})
	assert.ErrorIs(t, err, service.ErrValidation)

	srv.Svc.ListErr = errors.New("database is down")
	_, err = c.List(ctx, service.ListParams{})
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.NotErrorIs(t, err, service.ErrNotFound)
	assert.Contains(t, err.Error(), "database is down")
}

func TestClient_AuthError(t *testing.T) {
	c, srv := newTestClient(t)
	srv.Token = "secret"

	_, err := c.List(context.Background(), service.ListParams{})
	assert.ErrorIs(t, err, service.ErrAuth)
	assert.Contains(t, err.Error(), "todoctl login")
}

func TestClient_RequestIDs(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()

	_, err := c.List(ctx, service.ListParams{})
	require.NoError(t, err)
	_, err = c.List(ctx, service.ListParams{})
	require.NoError(t, err)

	ids := srv.RequestIDs()
	require.Len(t, ids, 2)
	for _, id := range ids {
		_, err := uuid.Parse(id)
		assert.NoError(t, err)
	}
	assert.NotEqual(t, ids[0], ids[1])
}

func TestClient_UpdateSendsEmptyDescription(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":4,"title":"x","description":"","status":1,"is_done":false}`))
	}))
	t.Cleanup(srv.Close)

	c, err := NewWithHTTPClient(srv.URL, srv.Client())
	require.NoError(t, err)

	empty := ""
	task, err := c.Update(context.Background(), 4, service.UpdateParams{Description: &empty})
	require.NoError(t, err)

	// The store ignores null, so clearing must send an empty string.
	require.Contains(t, body, "description")
	assert.Equal(t, "", body["description"])
	assert.Nil(t, task.Description)
}

func TestClient_NullDescriptionLeavesItUnchanged(t *testing.T) {
	_, srv := newTestClient(t)
	id := srv.Svc.AddTask("Buy milk")
	desc := "2 litres"
	_, err := srv.Svc.Update(context.Background(), id, service.UpdateParams{Description: &desc})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPatch, srv.URL+"/v1/tasks/"+strconv.FormatInt(id, 10),
		strings.NewReader(`{"description":null}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	got, ok := srv.Svc.Task(id)
	require.True(t, ok)
	require.NotNil(t, got.Description)
	assert.Equal(t, "2 litres", *got.Description)
}

func TestClient_DebugLinesCarryOperationID(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logging.Setup(&buf, "debug", "json")

	c, _ := newTestClient(t)
	ctx := logging.WithOperation(context.Background(), "export")
	_, err := c.List(ctx, service.ListParams{})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"msg":"store request"`)
	assert.Contains(t, out, `"op_id":"export-`)
}

func TestClient_Timeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(slow.Close)

	c, err := NewWithHTTPClient(slow.URL, slow.Client(), WithTimeout(50*time.Millisecond))
	require.NoError(t, err)

	_, err = c.List(context.Background(), service.ListParams{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "request timed out")
}

func TestClient_NaiveTimestamps(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{"id":3,"user_id":null,"cat_id":2,"title":"x","description":null,
			"status":1,"finish_date":"2025-04-05T06:07:08","is_done":false,
			"created_at":"2025-04-01T10:00:00.123456","updated_at":"garbage"}],"total":1,"limit":10,"offset":0}`))
	}))
	t.Cleanup(srv.Close)

	c, err := NewWithHTTPClient(srv.URL, srv.Client())
	require.NoError(t, err)

	res, err := c.List(context.Background(), service.ListParams{Limit: 10})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)

	task := res.Items[0]
	assert.Zero(t, task.UserID)
	assert.Equal(t, int64(2), task.CatID)
	assert.True(t, task.Done())
	require.NotNil(t, task.FinishDate)
	assert.Equal(t, time.Date(2025, 4, 5, 6, 7, 8, 0, time.UTC), *task.FinishDate)
	assert.Equal(t, 2025, task.CreatedAt.Year())
	assert.True(t, task.UpdatedAt.IsZero())
}

func TestParseDetail(t *testing.T) {
	assert.Equal(t, "Task not found", parseDetail(`{"detail":"Task not found"}`))
	assert.Equal(t, "title: field required; limit: too big",
		parseDetail(`{"detail":[{"loc":["body","title"],"msg":"field required"},{"loc":["query","limit"],"msg":"too big"}]}`))
	assert.Equal(t, "", parseDetail(`not json`))
	assert.Equal(t, "", parseDetail(`{"error":"x"}`))
}

func TestNew_UsesStoredToken(t *testing.T) {
	srv := testutil.NewFakeServer(testutil.NewFakeService())
	srv.Token = "stored-token"
	t.Cleanup(srv.Close)

	cfg, err := config.New(t.TempDir())
	require.NoError(t, err)
	cfg.BaseURL = srv.URL

	c, err := New(context.Background(), cfg)
	require.NoError(t, err)
	_, err = c.List(context.Background(), service.ListParams{})
	assert.ErrorIs(t, err, service.ErrAuth)

	require.NoError(t, cfg.SaveToken(&oauth2.Token{AccessToken: "stored-token", TokenType: "Bearer"}))
	c, err = New(context.Background(), cfg)
	require.NoError(t, err)
	_, err = c.List(context.Background(), service.ListParams{})
	assert.NoError(t, err)
}

func TestNewWithHTTPClient_BadURL(t *testing.T) {
	_, err := NewWithHTTPClient("not a url", nil)
	assert.Error(t, err)
}
