package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/internal/searcher/filter"
	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/internal/searcher/suggest"
	apperrors "github.com/Adithya-Monish-Kumar-K/College-Search-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/pkg/tracing"
)

const (
	unavailableMessage = "college catalog is temporarily unavailable"
	noMatchMessage     = "no colleges match the selected filters"
)

// errCallerGone marks a catalog load abandoned because the request's own
// context ended. Such loads say nothing about the store's health.
var errCallerGone = errors.New("caller abandoned catalog load")

func countsAgainstCatalog(err error) bool {
	return !errors.Is(err, errCallerGone)
}

type Config struct {
	Filter         filter.Options
	SampleReviews  int
	CatalogTimeout time.Duration
	CatalogRetries int
	Tracing        bool
	Breaker        resilience.CircuitBreakerConfig
	// OnTransition, when set, observes every state change of a search.
	OnTransition func(from, to State)
}

type Service struct {
	store   catalog.Store
	engine  *filter.Engine
	cfg     Config
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New builds a Service over store. m may be nil.
func New(store catalog.Store, cfg Config, m *metrics.Metrics) (*Service, error) {
	engine, err := filter.New(cfg.Filter)
	if err != nil {
		return nil, fmt.Errorf("configuring filter: %w", err)
	}
	if cfg.SampleReviews < 0 {
		cfg.SampleReviews = 0
	}
	breakerCfg := cfg.Breaker
	breakerCfg.IsFailure = countsAgainstCatalog
	if m != nil {
		m.CircuitBreakerState.WithLabelValues("catalog").Set(float64(resilience.StateClosed))
		next := breakerCfg.OnStateChange
		breakerCfg.OnStateChange = func(name string, from, to resilience.State) {
			m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			if next != nil {
				next(name, from, to)
			}
		}
	}
	return &Service{
		store:   store,
		engine:  engine,
		cfg:     cfg,
		breaker: resilience.NewCircuitBreaker("catalog", breakerCfg),
		metrics: m,
		logger:  slog.Default().With("component", "search-service"),
	}, nil
}

type run struct {
	svc   *Service
	state State
}

func (r *run) to(next State) {
	if r.svc.cfg.OnTransition != nil {
		r.svc.cfg.OnTransition(r.state, next)
	}
	r.state = next
}

// Search runs one request through validation, filtering, ranking and
// suggestion. The only error a well-formed caller sees is a
// *ValidationError; a cancelled context surfaces as an ErrTimeout.
func (s *Service) Search(ctx context.Context, req Request) (*Response, error) {
	log := logger.FromContext(ctx).With("component", "search-service")
	r := &run{svc: s, state: StateIdle}

	ctx, root, ownsRoot := s.startTrace(ctx)
	defer func() {
		if ownsRoot {
			root.SetAttr("final_state", r.state.String())
			root.End()
			if s.cfg.Tracing {
				root.Log(log)
			}
		}
	}()

	r.to(StateValidating)
	level, verr := validate(req)
	if verr != nil {
		r.to(StateFailed)
		s.countOutcome("invalid")
		log.Debug("search rejected", "code", verr.Code, "course_level", req.CourseLevel)
		return nil, verr
	}

	if err := s.stage(ctx, r, StateFiltering); err != nil {
		return nil, err
	}
	snap, err := s.snapshot(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			r.to(StateFailed)
			s.countOutcome("cancelled")
			return nil, cancelled(ctxErr)
		}
		log.Warn("catalog unavailable, returning empty result", "error", err)
		s.countOutcome("catalog_unavailable")
		r.to(StateResponding)
		return &Response{
			Results:     []ranker.RankedCollege{},
			Suggestions: emptySuggestions(),
			Message:     unavailableMessage,
			Degraded:    true,
		}, nil
	}

	colleges := snap.Colleges()
	_, span := tracing.StartChildSpan(ctx, "filter")
	outcome := s.engine.Apply(colleges, filter.Criteria{
		CourseLevel: level,
		State:       req.State,
		Location:    req.Location,
		CollegeName: req.CollegeName,
		Branch:      req.Branch,
		MaxFees:     req.MaxFees,
		TargetScore: req.TargetScore,
	})
	span.SetAttr("candidates", len(outcome.Candidates))
	span.End()
	for _, field := range outcome.Ignored {
		log.Debug("ignoring unparseable numeric parameter", "field", field, "value", rawField(req, field))
		if s.metrics != nil {
			s.metrics.IgnoredParamsTotal.WithLabelValues(field).Inc()
		}
	}

	if err := s.stage(ctx, r, StateRanking); err != nil {
		return nil, err
	}
	_, span = tracing.StartChildSpan(ctx, "rank")
	results := ranker.Rank(outcome.Candidates, snap, s.cfg.SampleReviews)
	span.End()

	if err := s.stage(ctx, r, StateSuggesting); err != nil {
		return nil, err
	}
	_, span = tracing.StartChildSpan(ctx, "suggest")
	suggestions := suggest.Build(colleges, suggest.Partials{
		CollegeName: req.CollegeName,
		Location:    req.Location,
		State:       req.State,
		Branch:      req.Branch,
	})
	span.End()

	if err := s.stage(ctx, r, StateResponding); err != nil {
		return nil, err
	}
	resp := &Response{Results: results, Suggestions: suggestions}
	if len(results) == 0 {
		resp.Message = s.advisory(colleges, req)
		s.countOutcome("zero_result")
	} else {
		s.countOutcome("ok")
	}
	if s.metrics != nil {
		s.metrics.SearchResultsCount.Observe(float64(len(results)))
	}
	return resp, nil
}

// Suggest returns autocomplete values for one field over the full catalog.
func (s *Service) Suggest(ctx context.Context, field suggest.Field, partial string) ([]string, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, cancelled(ctxErr)
		}
		return nil, apperrors.New(apperrors.ErrCatalogUnavailable, http.StatusServiceUnavailable, unavailableMessage)
	}
	return suggest.Suggest(snap.Colleges(), partial, field), nil
}

func (s *Service) BreakerState() resilience.State {
	return s.breaker.GetState()
}

func (s *Service) stage(ctx context.Context, r *run, next State) error {
	if err := ctx.Err(); err != nil {
		r.to(StateFailed)
		s.countOutcome("cancelled")
		return cancelled(err)
	}
	r.to(next)
	return nil
}

func (s *Service) startTrace(ctx context.Context) (context.Context, *tracing.Span, bool) {
	if span := tracing.SpanFromContext(ctx); span != nil {
		ctx, child := tracing.StartChildSpan(ctx, "college-search")
		return ctx, child, false
	}
	ctx, root := tracing.StartSpan(ctx, "college-search", logger.RequestID(ctx))
	return ctx, root, true
}

// snapshot loads the catalog through the circuit breaker, retrying with
// backoff and bounding each attempt by the catalog timeout.
func (s *Service) snapshot(ctx context.Context) (*catalog.Snapshot, error) {
	ctx, span := tracing.StartChildSpan(ctx, "catalog-load")
	defer span.End()

	var snap *catalog.Snapshot
	err := s.breaker.Execute(func() error {
		err := resilience.Retry(ctx, "catalog-load", resilience.RetryConfig{
			MaxAttempts:  s.cfg.CatalogRetries + 1,
			InitialDelay: 50 * time.Millisecond,
			MaxDelay:     time.Second,
			Retryable: func(error) bool {
				return ctx.Err() == nil
			},
			OnRetry: func(attempt int, err error) {
				if s.metrics != nil {
					s.metrics.CatalogLoadsTotal.WithLabelValues("retry").Inc()
				}
			},
		}, func() error {
			var attempt *catalog.Snapshot
			err := resilience.WithTimeout(ctx, s.cfg.CatalogTimeout, "catalog-load", func(ctx context.Context) error {
				loaded, err := catalog.TakeSnapshot(ctx, s.store)
				if err != nil {
					return err
				}
				attempt = loaded
				return nil
			})
			if err != nil {
				return err
			}
			snap = attempt
			return nil
		})
		if err != nil && ctx.Err() != nil {
			return fmt.Errorf("%w: %w", errCallerGone, err)
		}
		return err
	})
	if err != nil {
		span.SetAttr("error", err.Error())
		if s.metrics != nil {
			status := "error"
			if !countsAgainstCatalog(err) {
				status = "cancelled"
			}
			s.metrics.CatalogLoadsTotal.WithLabelValues(status).Inc()
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrCatalogUnavailable, err)
	}
	span.SetAttr("colleges", len(snap.Colleges()))
	if s.metrics != nil {
		s.metrics.CatalogLoadsTotal.WithLabelValues("ok").Inc()
		s.metrics.CatalogRecords.Set(float64(len(snap.Colleges())))
	}
	return snap, nil
}

func (s *Service) countOutcome(outcome string) {
	if s.metrics != nil {
		s.metrics.SearchRequestsTotal.WithLabelValues(outcome).Inc()
	}
}

// advisory names the first requested text value that matches nothing
// anywhere in the catalog, regardless of course level.
func (s *Service) advisory(colleges []catalog.College, req Request) string {
	checks := []struct {
		field  string
		wanted string
		value  func(catalog.College) string
	}{
		{"state", req.State, func(c catalog.College) string { return c.State }},
		{"location", req.Location, func(c catalog.College) string { return c.Location }},
		{"college_name", req.CollegeName, func(c catalog.College) string { return c.Name }},
		{"branch", req.Branch, func(c catalog.College) string { return c.Branch }},
	}
	for _, check := range checks {
		wanted := strings.TrimSpace(check.wanted)
		if wanted == "" {
			continue
		}
		found := false
		for _, c := range colleges {
			if s.engine.Matches(check.value(c), wanted) {
				found = true
				break
			}
		}
		if !found {
			return fmt.Sprintf("no colleges match %s %q", check.field, wanted)
		}
	}
	return noMatchMessage
}

func validate(req Request) (catalog.CourseLevel, *ValidationError) {
	raw := strings.TrimSpace(req.CourseLevel)
	if raw == "" {
		return "", &ValidationError{
			Code:    CodeMissingCourseLevel,
			Field:   "course_level",
			Message: "course_level is required",
		}
	}
	level, ok := catalog.ParseCourseLevel(raw)
	if !ok {
		return "", &ValidationError{
			Code:    CodeInvalidCourseLevel,
			Field:   "course_level",
			Message: fmt.Sprintf("course_level %q is not one of Undergraduate, Postgraduate, Diploma", raw),
		}
	}
	return level, nil
}

func cancelled(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: search abandoned: %v", apperrors.ErrTimeout, err)
	}
	return fmt.Errorf("search abandoned: %w", err)
}

func rawField(req Request, field string) string {
	if field == "max_fees" {
		return req.MaxFees
	}
	return req.TargetScore
}

func emptySuggestions() suggest.Suggestions {
	return suggest.Suggestions{
		CollegeName: []string{},
		Location:    []string{},
		State:       []string{},
		Branch:      []string{},
	}
}
