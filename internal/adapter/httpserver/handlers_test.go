package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rrronit/flash/internal/adapter/store/redisstore"
	"github.com/rrronit/flash/internal/config"
	"github.com/rrronit/flash/internal/domain"
	"github.com/rrronit/flash/internal/usecase"
)

func newTestServer(t *testing.T) (*Server, *redisstore.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	store := redisstore.NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = store.Close() })
	svc := usecase.NewJobService(store, "jobs")
	srv := NewServer(config.Config{}, svc, domain.BuiltinLanguages(), store.Ping)
	return srv, store
}

func testRouter(srv *Server) http.Handler {
	r := chi.NewRouter()
	r.Post("/create", srv.SubmitHandler())
	r.Get("/check/{id}", srv.CheckHandler())
	r.Get("/health", srv.HealthHandler())
	r.Get("/readyz", srv.ReadyzHandler())
	return r
}

func TestSubmitHandler_Created(t *testing.T) {
	srv, store := newTestServer(t)
	body := `{"code":"print(input())","language":"python","input":"hello\n","expected":"hello"}`
	rec := httptest.NewRecorder()
	testRouter(srv).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/create", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		Status string `json:"status"`
		ID     string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "created", resp.Status)
	require.NotEmpty(t, resp.ID)

	// record is stored and queued
	job, ok, err := store.GetJob(context.Background(), resp.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "print(input())", job.SourceCode)
	assert.Equal(t, "hello\n", job.Stdin)
	assert.Equal(t, domain.StatusQueued, job.Status)
	assert.Equal(t, 2.0, job.Settings.CPUTimeLimit)
}

func TestSubmitHandler_LimitOverrides(t *testing.T) {
	srv, store := newTestServer(t)
	body := `{"code":"x","language":"python","time_limit":1.5,"memory_limit":256000,"stack_limit":32000}`
	rec := httptest.NewRecorder()
	testRouter(srv).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/create", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	job, ok, err := store.GetJob(context.Background(), resp.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1.5, job.Settings.CPUTimeLimit)
	assert.Equal(t, uint64(256000), job.Settings.MemoryLimit)
	assert.Equal(t, uint64(32000), job.Settings.StackLimit)
	// untouched fields keep defaults
	assert.Equal(t, uint32(60), job.Settings.MaxProcesses)
}

func TestSubmitHandler_Invalid(t *testing.T) {
	srv, _ := newTestServer(t)
	cases := map[string]string{
		"bad json":         `{"code":`,
		"missing code":     `{"language":"python"}`,
		"missing language": `{"code":"x"}`,
		"unknown language": `{"code":"x","language":"cobol"}`,
		"huge time limit":  `{"code":"x","language":"python","time_limit":100}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			testRouter(srv).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/create", strings.NewReader(body)))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "INVALID_ARGUMENT")
		})
	}
}

func TestCheckHandler_RoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)
	router := testRouter(srv)

	body := `{"code":"print(1)","language":"python"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/create", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/check/"+created.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var view usecase.JobView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, created.ID, view.Token)
	assert.Equal(t, 1, view.Status.ID)
	assert.Equal(t, "In Queue", view.Status.Description)
	assert.Nil(t, view.Stdout)
}

func TestCheckHandler_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	testRouter(srv).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/check/987654321", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")
}

func TestCheckHandler_MalformedID(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	testRouter(srv).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/check/abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthHandler(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	testRouter(srv).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestReadyzHandler(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	testRouter(srv).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	srv.RedisCheck = func(context.Context) error { return context.DeadlineExceeded }
	rec = httptest.NewRecorder()
	testRouter(srv).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
