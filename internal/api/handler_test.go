package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/tmdbproxy/internal/core/config"
	"github.com/vietddude/tmdbproxy/internal/core/domain"
	"github.com/vietddude/tmdbproxy/internal/infra/upstream"
	"github.com/vietddude/tmdbproxy/internal/proxy"
)

const testSecret = "s3cret"

type fakeProxy struct {
	mu       sync.Mutex
	calls    int
	trending []domain.TrendingParams
	details  []domain.DetailsParams
	search   []domain.SearchParams
	body     []byte
	err      error
}

func (f *fakeProxy) Trending(_ context.Context, p domain.TrendingParams) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.trending = append(f.trending, p)
	return f.body, f.err
}

func (f *fakeProxy) Details(_ context.Context, p domain.DetailsParams) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.details = append(f.details, p)
	return f.body, f.err
}

func (f *fakeProxy) Search(_ context.Context, p domain.SearchParams) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.search = append(f.search, p)
	return f.body, f.err
}

type dispatched struct {
	url     string
	payload any
}

type fakeDispatcher struct {
	mu   sync.Mutex
	sent []dispatched
}

func (f *fakeDispatcher) Dispatch(url string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, dispatched{url: url, payload: payload})
}

type fixedStats upstream.MonitorStats

func (s fixedStats) Stats() upstream.MonitorStats { return upstream.MonitorStats(s) }

func newTestRouter(p Proxy, d Dispatcher, source config.SecretSource) http.Handler {
	h := NewHandler(p, NewSecretChecker(testSecret, source), d, fixedStats{Status: upstream.StatusHealthy})
	h.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return NewRouter(h, []string{"*"})
}

func post(t *testing.T, h http.Handler, path, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) APIError {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestTrending_PassesBodyThrough(t *testing.T) {
	p := &fakeProxy{body: []byte(`{"results":[{"id":1}]}`)}
	router := newTestRouter(p, nil, config.SecretFromBody)

	rec := post(t, router, "/tmdb/trending", `{"secret":"s3cret","media_type":"tv","time_window":"week"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"results":[{"id":1}]}`, rec.Body.String())
	require.Len(t, p.trending, 1)
	assert.Equal(t, domain.TrendingParams{MediaType: domain.MediaTV, TimeWindow: domain.WindowWeek}, p.trending[0])
}

func TestTrending_Defaults(t *testing.T) {
	p := &fakeProxy{body: []byte(`{}`)}
	router := newTestRouter(p, nil, config.SecretFromBody)

	rec := post(t, router, "/tmdb/trending", `{"secret":"s3cret"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, p.trending, 1)
	assert.Equal(t, domain.MediaMovie, p.trending[0].MediaType)
	assert.Equal(t, domain.WindowDay, p.trending[0].TimeWindow)
}

func TestInvalidMediaType_RejectedBeforeUpstream(t *testing.T) {
	tests := []struct {
		path string
		body string
	}{
		{"/tmdb/trending", `{"secret":"s3cret","media_type":"xyz"}`},
		{"/tmdb/trending", `{"secret":"s3cret","time_window":"month"}`},
		{"/tmdb/details", `{"secret":"s3cret","id":550,"media_type":"xyz"}`},
		{"/tmdb/details", `{"secret":"s3cret","id":0}`},
		{"/tmdb/search", `{"secret":"s3cret","query":"dune","media_type":"xyz"}`},
		{"/tmdb/search", `{"secret":"s3cret","query":""}`},
		{"/tmdb/search", `{"secret":"s3cret","query":"dune","page":1001}`},
	}

	for _, tt := range tests {
		t.Run(tt.path+" "+tt.body, func(t *testing.T) {
			p := &fakeProxy{body: []byte(`{}`)}
			router := newTestRouter(p, nil, config.SecretFromBody)

			rec := post(t, router, tt.path, tt.body, nil)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, KindInvalidArgument, decodeError(t, rec).Kind)
			assert.Zero(t, p.calls)
		})
	}
}

func TestWrongSecret_Unauthorized(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
	}{
		{"wrong secret valid params", "/tmdb/trending", `{"secret":"nope","media_type":"movie"}`},
		{"wrong secret invalid params", "/tmdb/trending", `{"secret":"nope","media_type":"xyz"}`},
		{"missing secret", "/tmdb/details", `{"id":550}`},
		{"blank secret", "/tmdb/search", `{"secret":"   ","query":"dune"}`},
		{"not json", "/tmdb/search", `query=dune`},
		{"build", "/build", `{"secret":"nope","email":"a@b.c","task":"t","nonce":"n"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProxy{body: []byte(`{}`)}
			d := &fakeDispatcher{}
			router := newTestRouter(p, d, config.SecretFromBody)

			rec := post(t, router, tt.path, tt.body, nil)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, KindUnauthorized, decodeError(t, rec).Kind)
			assert.Zero(t, p.calls)
			assert.Empty(t, d.sent)
		})
	}
}

func TestHeaderSecretSource(t *testing.T) {
	p := &fakeProxy{body: []byte(`{"id":550}`)}
	router := newTestRouter(p, nil, config.SecretFromHeader)

	// A body secret is ignored when the header source is configured.
	rec := post(t, router, "/tmdb/details", `{"secret":"s3cret","id":550}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = post(t, router, "/tmdb/details", `{"id":550}`, http.Header{SecretHeader: {testSecret}})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, p.details, 1)
	assert.Equal(t, domain.DetailsParams{ID: 550, MediaType: domain.MediaMovie}, p.details[0])
}

func TestSearch_Params(t *testing.T) {
	p := &fakeProxy{body: []byte(`{"results":[]}`)}
	router := newTestRouter(p, nil, config.SecretFromBody)

	rec := post(t, router, "/tmdb/search", `{"secret":"s3cret","query":"dune","media_type":"movie","year":2021}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, p.search, 1)
	assert.Equal(t, domain.SearchParams{Query: "dune", MediaType: domain.MediaMovie, Year: 2021, Page: 1}, p.search[0])
}

func TestProxyErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
	}{
		{"not found", proxy.ErrNotFound, http.StatusNotFound, KindNotFound},
		{"unavailable", proxy.ErrUnavailable, http.StatusServiceUnavailable, KindUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProxy{err: tt.err}
			router := newTestRouter(p, nil, config.SecretFromBody)

			rec := post(t, router, "/tmdb/details", `{"secret":"s3cret","id":999999999}`, nil)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantKind, decodeError(t, rec).Kind)
		})
	}
}

func TestBuild_DispatchesNotification(t *testing.T) {
	d := &fakeDispatcher{}
	router := newTestRouter(&fakeProxy{}, d, config.SecretFromBody)

	rec := post(t, router, "/build", `{
		"secret":"s3cret","email":"a@b.c","task":"movie-app","round":2,"nonce":"n-1",
		"evaluation_url":"http://eval.example.com/notify"
	}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"accepted","task":"movie-app","round":2}`, rec.Body.String())

	require.Len(t, d.sent, 1)
	assert.Equal(t, "http://eval.example.com/notify", d.sent[0].url)
	n, ok := d.sent[0].payload.(BuildNotification)
	require.True(t, ok)
	assert.Equal(t, "a@b.c", n.Email)
	assert.Equal(t, "movie-app", n.Task)
	assert.Equal(t, 2, n.Round)
	assert.Equal(t, "n-1", n.Nonce)
	assert.Equal(t, "accepted", n.Status)
	assert.NotEmpty(t, n.RequestID)
}

func TestBuild_WithoutEvaluationURL(t *testing.T) {
	d := &fakeDispatcher{}
	router := newTestRouter(&fakeProxy{}, d, config.SecretFromBody)

	rec := post(t, router, "/build", `{"secret":"s3cret","email":"a@b.c","task":"t","nonce":"n"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, d.sent)
}

func TestBuild_Invalid(t *testing.T) {
	d := &fakeDispatcher{}
	router := newTestRouter(&fakeProxy{}, d, config.SecretFromBody)

	rec := post(t, router, "/build", `{"secret":"s3cret","email":"a@b.c","task":"t","nonce":"n","evaluation_url":"not a url"}`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, d.sent)
}

func TestHealth(t *testing.T) {
	router := newTestRouter(&fakeProxy{}, nil, config.SecretFromBody)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","timestamp":"2026-01-02T03:04:05Z"}`, rec.Body.String())
}

func TestHealthDetailed(t *testing.T) {
	h := NewHandler(&fakeProxy{}, NewSecretChecker(testSecret, ""), nil, fixedStats{Status: upstream.StatusThrottled, ThrottleCount429: 3})
	router := NewRouter(h, []string{"*"})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/detailed", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var report struct {
		Status   string                `json:"status"`
		Upstream upstream.MonitorStats `json:"upstream"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "degraded", report.Status)
	assert.Equal(t, upstream.StatusThrottled, report.Upstream.Status)
	assert.Equal(t, 3, report.Upstream.ThrottleCount429)
}

func TestCORSPreflight(t *testing.T) {
	router := newTestRouter(&fakeProxy{}, nil, config.SecretFromBody)

	req := httptest.NewRequest(http.MethodOptions, "/tmdb/trending", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
