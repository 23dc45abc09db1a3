package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/internal/searcher/service"
	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/internal/searcher/suggest"
	apperrors "github.com/Adithya-Monish-Kumar-K/College-Search-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/pkg/metrics"
)

const maxBodyBytes = 64 << 10

type Searcher interface {
	Search(ctx context.Context, req service.Request) (*service.Response, error)
	Suggest(ctx context.Context, field suggest.Field, partial string) ([]string, error)
}

// VersionSource reports the catalog database engine.
type VersionSource interface {
	Driver() string
	ServerVersion(ctx context.Context) (string, error)
}

type Handler struct {
	searcher Searcher
	cache    *cache.QueryCache
	tracker  analytics.Tracker
	metrics  *metrics.Metrics
	db       VersionSource
	version  string
	logger   *slog.Logger
}

type Options struct {
	Cache   *cache.QueryCache
	Tracker analytics.Tracker
	Metrics *metrics.Metrics
	DB      VersionSource
	Version string
}

func New(searcher Searcher, opts Options) *Handler {
	return &Handler{
		searcher: searcher,
		cache:    opts.Cache,
		tracker:  opts.Tracker,
		metrics:  opts.Metrics,
		db:       opts.DB,
		version:  opts.Version,
		logger:   slog.Default().With("component", "search-handler"),
	}
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	req, err := decodeRequest(w, r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var resp *service.Response
	cacheHit := false
	if h.cache != nil {
		resp, cacheHit, err = h.cache.GetOrCompute(ctx, req, func(ctx context.Context) (*service.Response, error) {
			return h.searcher.Search(ctx, req)
		})
	} else {
		resp, err = h.searcher.Search(ctx, req)
	}
	latency := time.Since(start)

	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			h.track(ctx, analytics.EventInvalidRequest, req, nil, cacheHit, latency)
			h.writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": verr.Message,
				"code":  verr.Code,
				"field": verr.Field,
			})
			return
		}
		status := apperrors.HTTPStatusCode(err)
		log.Error("search failed", "error", err, "status_code", status)
		h.writeError(w, status, "search failed")
		return
	}

	cacheStatus := "miss"
	if cacheHit {
		cacheStatus = "hit"
	}
	if h.metrics != nil {
		h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(latency.Seconds())
	}
	log.Info("search completed",
		"course_level", req.CourseLevel,
		"returned", len(resp.Results),
		"cache_hit", cacheHit,
		"latency_ms", latency.Milliseconds(),
	)
	eventType := analytics.EventSearch
	if len(resp.Results) == 0 {
		eventType = analytics.EventZeroResult
	}
	h.track(ctx, eventType, req, resp, cacheHit, latency)
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Suggestions(w http.ResponseWriter, r *http.Request) {
	field, err := suggest.ParseField(r.URL.Query().Get("field"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "field must be one of college_name, location, state, branch")
		return
	}
	values, err := h.searcher.Suggest(r.Context(), field, r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, apperrors.HTTPStatusCode(err), apperrors.Message(err))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"field":       field,
		"suggestions": values,
	})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) Version(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{"version": h.version}
	if h.db != nil {
		body["database_driver"] = h.db.Driver()
		v, err := h.db.ServerVersion(r.Context())
		if err != nil {
			h.logger.Error("reading database version failed", "error", err)
			h.writeError(w, http.StatusServiceUnavailable, "database version unavailable")
			return
		}
		body["database_version"] = v
	}
	h.writeJSON(w, http.StatusOK, body)
}

func (h *Handler) track(ctx context.Context, eventType analytics.EventType, req service.Request, resp *service.Response, cacheHit bool, latency time.Duration) {
	if h.tracker == nil {
		return
	}
	event := analytics.SearchEvent{
		Type:        eventType,
		CourseLevel: req.CourseLevel,
		State:       req.State,
		Location:    req.Location,
		CollegeName: req.CollegeName,
		Branch:      req.Branch,
		MaxFees:     req.MaxFees,
		TargetScore: req.TargetScore,
		LatencyMs:   latency.Milliseconds(),
		CacheHit:    cacheHit,
		Timestamp:   time.Now().UTC(),
		RequestID:   logger.RequestID(ctx),
	}
	if resp != nil {
		event.Returned = len(resp.Results)
		event.Message = resp.Message
	}
	h.tracker.Track(event)
}

// decodeRequest accepts a JSON body or query/form fields.
func decodeRequest(w http.ResponseWriter, r *http.Request) (service.Request, error) {
	var req service.Request
	if r.Body != nil {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if r.Method == http.MethodPost && mediaType == "application/json" {
		var body jsonRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return req, errors.New("invalid JSON body")
		}
		return service.Request{
			CourseLevel: body.CourseLevel,
			State:       body.State,
			Location:    body.Location,
			CollegeName: body.CollegeName,
			Branch:      body.Branch,
			MaxFees:     rawText(body.MaxFees),
			TargetScore: rawText(body.TargetScore),
		}, nil
	}
	if err := r.ParseForm(); err != nil {
		return req, errors.New("invalid form body")
	}
	req = service.Request{
		CourseLevel: r.FormValue("course_level"),
		State:       r.FormValue("state"),
		Location:    r.FormValue("location"),
		CollegeName: r.FormValue("college_name"),
		Branch:      r.FormValue("branch"),
		MaxFees:     r.FormValue("max_fees"),
		TargetScore: r.FormValue("target_score"),
	}
	return req, nil
}

// jsonRequest keeps the numeric fields raw so a JSON number and a JSON string
// are both accepted.
type jsonRequest struct {
	CourseLevel string          `json:"course_level"`
	State       string          `json:"state"`
	Location    string          `json:"location"`
	CollegeName string          `json:"college_name"`
	Branch      string          `json:"branch"`
	MaxFees     json.RawMessage `json:"max_fees"`
	TargetScore json.RawMessage `json:"target_score"`
}

// rawText renders a JSON string or number as text. Any other JSON value is
// passed through verbatim and later ignored as unparseable.
func rawText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return string(raw)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
