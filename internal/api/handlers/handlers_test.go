package handlers

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sepheus7/dataforge-studio/internal/core/event"
	"github.com/Sepheus7/dataforge-studio/internal/core/job"
	"github.com/Sepheus7/dataforge-studio/internal/generate"
)

func newJobAPI(t *testing.T) (humatest.TestAPI, *job.Store) {
	t.Helper()
	_, api := humatest.New(t, huma.DefaultConfig("Test API", "1.0.0"))

	store := job.NewStore(event.NewBus())
	h := &GenerationHandler{store: store}

	huma.Register(api, huma.Operation{
		OperationID: "generation-get",
		Method:      http.MethodGet,
		Path:        "/generation/{id}",
	}, h.Get)
	huma.Register(api, huma.Operation{
		OperationID: "generation-cancel",
		Method:      http.MethodDelete,
		Path:        "/generation/{id}",
	}, h.Cancel)

	return api, store
}

func TestGetJobStatus(t *testing.T) {
	api, store := newJobAPI(t)
	id := store.Create()
	store.Start(id)
	store.UpdateProgress(id, 0.4, "drafting")

	resp := api.Get("/generation/" + id)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"status":"running"`)
	assert.Contains(t, resp.Body.String(), `"progress":0.4`)
	assert.Contains(t, resp.Body.String(), `"message":"drafting"`)
}

func TestGetUnknownJobIs404(t *testing.T) {
	api, _ := newJobAPI(t)
	resp := api.Get("/generation/job_missing00000")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestCancelTransitions(t *testing.T) {
	api, store := newJobAPI(t)
	id := store.Create()
	store.Start(id)

	resp := api.Delete("/generation/" + id)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"cancelled":true`)

	// Already terminal: conflict, not a second cancellation.
	resp = api.Delete("/generation/" + id)
	assert.Equal(t, http.StatusConflict, resp.Code)

	resp = api.Delete("/generation/job_missing00000")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestCleanupEndpoint(t *testing.T) {
	_, api := humatest.New(t, huma.DefaultConfig("Test API", "1.0.0"))
	store := job.NewStore(event.NewBus())
	h := NewJobsHandler(store, time.Nanosecond)
	huma.Register(api, huma.Operation{
		OperationID: "jobs-cleanup",
		Method:      http.MethodPost,
		Path:        "/jobs/cleanup",
	}, h.Cleanup)

	done := store.Create()
	store.Complete(done, nil)
	running := store.Create()
	store.Start(running)

	time.Sleep(5 * time.Millisecond)
	resp := api.Post("/jobs/cleanup", map[string]any{})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"removed":1`)

	_, ok := store.Get(done)
	assert.False(t, ok)
	_, ok = store.Get(running)
	assert.True(t, ok)
}

func TestStreamOnClosedJobEndsAfterConnect(t *testing.T) {
	bus := event.NewBus()
	store := job.NewStore(bus)
	id := store.Create()
	store.Complete(id, nil)

	e := echo.New()
	e.GET("/v1/generation/:id/stream", NewStreamHandler(bus, store).Stream)

	req := httptest.NewRequest(http.MethodGet, "/v1/generation/"+id+"/stream", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "event: connect")
	assert.Contains(t, body, `"status":"connected"`)
	// The terminal progress event was published before we subscribed: no replay.
	assert.NotContains(t, body, "succeeded")
}

func TestStreamUnknownJobIs404(t *testing.T) {
	bus := event.NewBus()
	store := job.NewStore(bus)

	e := echo.New()
	e.GET("/v1/generation/:id/stream", NewStreamHandler(bus, store).Stream)

	req := httptest.NewRequest(http.MethodGet, "/v1/generation/job_missing00000/stream", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownloadServesArtifact(t *testing.T) {
	dir := t.TempDir()
	store := job.NewStore(event.NewBus())
	gen := generate.NewGenerator(dir, 1000, store)

	id := store.Create()
	store.Complete(id, nil)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, id), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, id, "users.csv"), []byte("a,b\n1,2\n"), 0o644))

	e := echo.New()
	e.GET("/v1/generation/:id/download", NewDownloadHandler(store, gen).Download)

	req := httptest.NewRequest(http.MethodGet, "/v1/generation/"+id+"/download?table=users", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a,b\n1,2\n", rec.Body.String())

	// Missing table artifact.
	req = httptest.NewRequest(http.MethodGet, "/v1/generation/"+id+"/download?table=ghost", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Unfinished jobs expose nothing.
	pending := store.Create()
	req = httptest.NewRequest(http.MethodGet, "/v1/generation/"+pending+"/download?table=users", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}
