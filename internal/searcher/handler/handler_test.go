package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/internal/searcher/filter"
	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/internal/searcher/service"
	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/pkg/config"
)

type recorder struct {
	mu     sync.Mutex
	events []any
}

func (r *recorder) Track(event any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

type mapBackend struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *mapBackend) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *mapBackend) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = string(value.([]byte))
	return nil
}

func (m *mapBackend) FlushByPattern(ctx context.Context, pattern string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.data))
	m.data = make(map[string]string)
	return n, nil
}

type fakeDB struct {
	err error
}

func (f fakeDB) Driver() string { return "sqlite3" }

func (f fakeDB) ServerVersion(ctx context.Context) (string, error) {
	return "3.45.1", f.err
}

func newSearchService(t *testing.T) *service.Service {
	t.Helper()
	store := catalog.NewMemoryStore(
		[]catalog.College{
			{ID: "1", Name: "Tech College", State: "Maharashtra", Location: "Pune", CourseLevel: catalog.Undergraduate, Branch: "CS", Fees: 100000, AdmissionScoreMin: 100, AdmissionScoreMax: 200},
			{ID: "2", Name: "Tech College", State: "Maharashtra", Location: "Pune", CourseLevel: catalog.Undergraduate, Branch: "Mech", Fees: 100000, AdmissionScoreMin: 100, AdmissionScoreMax: 200},
			{ID: "3", Name: "Science College", State: "Karnataka", Location: "Bangalore", CourseLevel: catalog.Undergraduate, Fees: 60000, AdmissionScoreMin: 300, AdmissionScoreMax: 400},
		},
		[]catalog.Review{
			{CollegeName: "Tech College", ReviewText: "Great", Rating: 4},
			{CollegeName: "Tech College", ReviewText: "Excellent", Rating: 5},
		},
	)
	svc, err := service.New(store, service.Config{Filter: filter.DefaultOptions(), SampleReviews: 2}, nil)
	require.NoError(t, err)
	return svc
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) service.Response {
	t.Helper()
	var resp service.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestSearchQueryString(t *testing.T) {
	events := &recorder{}
	h := New(newSearchService(t), Options{Tracker: events})

	rec := httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest(http.MethodGet, "/api/v1/search?course_level=UG&state=maha", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode(t, rec)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, []string{"CS", "Mech"}, resp.Results[0].Branches)
	assert.Equal(t, 4.5, resp.Results[0].AverageRating)
	assert.Equal(t, []string{"Maharashtra"}, resp.Suggestions.State)

	require.Len(t, events.events, 1)
	ev := events.events[0].(analytics.SearchEvent)
	assert.Equal(t, analytics.EventSearch, ev.Type)
	assert.Equal(t, 1, ev.Returned)
}

func TestSearchFormAndJSON(t *testing.T) {
	h := New(newSearchService(t), Options{})

	form := url.Values{"course_level": {"Undergraduate"}, "max_fees": {"70000"}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.Search(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "Science College", resp.Results[0].Name)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/search",
		strings.NewReader(`{"course_level":"Undergraduate","target_score":150,"max_fees":{"bad":true}}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	h.Search(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode(t, rec)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "Tech College", resp.Results[0].Name)
}

func TestSearchZeroResultKeepsSuggestions(t *testing.T) {
	events := &recorder{}
	h := New(newSearchService(t), Options{Tracker: events})

	rec := httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest(http.MethodGet, "/api/v1/search?course_level=Undergraduate&college_name=zzz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"results":[]`)

	resp := decode(t, rec)
	assert.Equal(t, []string{"Science College", "Tech College"}, resp.Suggestions.CollegeName)
	assert.NotEmpty(t, resp.Message)
	assert.Equal(t, analytics.EventZeroResult, events.events[0].(analytics.SearchEvent).Type)
}

func TestSearchValidationErrors(t *testing.T) {
	events := &recorder{}
	h := New(newSearchService(t), Options{Tracker: events})

	for path, code := range map[string]string{
		"/api/v1/search?state=Kerala":       service.CodeMissingCourseLevel,
		"/api/v1/search?course_level=PhD":   service.CodeInvalidCourseLevel,
		"/api/v1/search?course_level=%20%20": service.CodeMissingCourseLevel,
	} {
		rec := httptest.NewRecorder()
		h.Search(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, code, body["code"], path)
		assert.Equal(t, "course_level", body["field"], path)
	}
	assert.Len(t, events.events, 3)
}

func TestSearchUsesCache(t *testing.T) {
	qc := cache.New(&mapBackend{data: make(map[string]string)}, config.RedisConfig{CacheTTL: time.Minute}, nil)
	events := &recorder{}
	h := New(newSearchService(t), Options{Cache: qc, Tracker: events})

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.Search(rec, httptest.NewRequest(http.MethodGet, "/api/v1/search?course_level=Undergraduate", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	hits, misses := qc.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
	assert.True(t, events.events[1].(analytics.SearchEvent).CacheHit)

	rec := httptest.NewRecorder()
	h.CacheStats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cache/stats", nil))
	assert.Contains(t, rec.Body.String(), `"hit_rate":"50.0%"`)

	rec = httptest.NewRecorder()
	h.CacheInvalidate(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cache/invalidate", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCacheEndpointsWhenDisabled(t *testing.T) {
	h := New(newSearchService(t), Options{})

	rec := httptest.NewRecorder()
	h.CacheStats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cache/stats", nil))
	assert.Contains(t, rec.Body.String(), "disabled")

	rec = httptest.NewRecorder()
	h.CacheInvalidate(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cache/invalidate", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSuggestions(t *testing.T) {
	h := New(newSearchService(t), Options{})

	rec := httptest.NewRecorder()
	h.Suggestions(rec, httptest.NewRequest(http.MethodGet, "/api/v1/suggestions?field=location&q=PU", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Field       string   `json:"field"`
		Suggestions []string `json:"suggestions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "location", body.Field)
	assert.Equal(t, []string{"Pune"}, body.Suggestions)

	rec = httptest.NewRecorder()
	h.Suggestions(rec, httptest.NewRequest(http.MethodGet, "/api/v1/suggestions?field=fees", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVersion(t *testing.T) {
	h := New(newSearchService(t), Options{DB: fakeDB{}, Version: "1.2.0"})
	rec := httptest.NewRecorder()
	h.Version(rec, httptest.NewRequest(http.MethodGet, "/api/v1/version", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{"version": "1.2.0", "database_driver": "sqlite3", "database_version": "3.45.1"}, body)

	h = New(newSearchService(t), Options{DB: fakeDB{err: errors.New("closed")}})
	rec = httptest.NewRecorder()
	h.Version(rec, httptest.NewRequest(http.MethodGet, "/api/v1/version", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
