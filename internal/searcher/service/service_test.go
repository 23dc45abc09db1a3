package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/internal/searcher/filter"
	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/internal/searcher/suggest"
	apperrors "github.com/Adithya-Monish-Kumar-K/College-Search-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/pkg/resilience"
)

func testCatalog() *catalog.MemoryStore {
	return catalog.NewMemoryStore(
		[]catalog.College{
			{ID: "1", Name: "Tech College", State: "Maharashtra", Location: "Pune", CourseLevel: catalog.Undergraduate, Branch: "CS", Fees: 100000, AdmissionScoreMin: 100, AdmissionScoreMax: 200},
			{ID: "2", Name: "Tech College", State: "Maharashtra", Location: "Pune", CourseLevel: catalog.Undergraduate, Branch: "Mech", Fees: 100000, AdmissionScoreMin: 100, AdmissionScoreMax: 200},
			{ID: "3", Name: "Science College", State: "Karnataka", Location: "Bangalore", CourseLevel: catalog.Undergraduate, Branch: "Physics", Fees: 60000, AdmissionScoreMin: 300, AdmissionScoreMax: 400},
			{ID: "4", Name: "Arts Academy", State: "Karnataka", Location: "Mysore", CourseLevel: catalog.Postgraduate, Fees: 40000, AdmissionScoreMin: 0, AdmissionScoreMax: 50},
		},
		[]catalog.Review{
			{CollegeName: "Tech College", ReviewText: "Great faculty", Rating: 4},
			{CollegeName: "Tech College", ReviewText: "Excellent labs", Rating: 5},
			{CollegeName: "Science College", ReviewText: "Decent", Rating: 3},
			{CollegeName: "Closed College", ReviewText: "orphan", Rating: 1},
		},
	)
}

func newService(t *testing.T, store catalog.Store, mutate ...func(*Config)) *Service {
	t.Helper()
	cfg := Config{Filter: filter.DefaultOptions(), SampleReviews: 2, CatalogTimeout: time.Second}
	for _, fn := range mutate {
		fn(&cfg)
	}
	svc, err := New(store, cfg, nil)
	require.NoError(t, err)
	return svc
}

func TestSearchTechCollegeScenario(t *testing.T) {
	svc := newService(t, testCatalog())
	resp, err := svc.Search(context.Background(), Request{CourseLevel: "Undergraduate", State: "Maharashtra"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)

	got := resp.Results[0]
	assert.Equal(t, "Tech College", got.Name)
	assert.Equal(t, []string{"CS", "Mech"}, got.Branches)
	assert.Equal(t, 4.5, got.AverageRating)
	assert.Len(t, got.SampleReviews, 2)
	assert.Empty(t, resp.Message)
}

func TestSearchNoMatchStillSuggests(t *testing.T) {
	svc := newService(t, testCatalog())
	resp, err := svc.Search(context.Background(), Request{CourseLevel: "Undergraduate", CollegeName: "zzz"})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
	assert.NotNil(t, resp.Results)
	assert.Equal(t, []string{"Arts Academy", "Science College", "Tech College"}, resp.Suggestions.CollegeName)
	assert.Equal(t, `no colleges match college_name "zzz"`, resp.Message)
}

func TestSearchGenericAdvisory(t *testing.T) {
	svc := newService(t, testCatalog())
	resp, err := svc.Search(context.Background(), Request{CourseLevel: "Diploma", State: "Karnataka"})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
	assert.Equal(t, noMatchMessage, resp.Message)
}

func TestSearchValidation(t *testing.T) {
	svc := newService(t, testCatalog())

	_, err := svc.Search(context.Background(), Request{State: "Karnataka"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, CodeMissingCourseLevel, verr.Code)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	assert.Equal(t, 400, apperrors.HTTPStatusCode(err))

	_, err = svc.Search(context.Background(), Request{CourseLevel: "PhD"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, CodeInvalidCourseLevel, verr.Code)
	assert.Equal(t, "course_level", verr.Field)
}

func TestSearchAcceptsCourseLevelAliases(t *testing.T) {
	svc := newService(t, testCatalog())
	for _, label := range []string{"UG", "btech", " undergraduate "} {
		resp, err := svc.Search(context.Background(), Request{CourseLevel: label})
		require.NoError(t, err, label)
		assert.Len(t, resp.Results, 2, label)
	}
}

func TestSearchIsIdempotent(t *testing.T) {
	svc := newService(t, testCatalog())
	req := Request{CourseLevel: "Undergraduate", MaxFees: "150000"}
	first, err := svc.Search(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.Search(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSearchRanksByRatingThenFees(t *testing.T) {
	svc := newService(t, testCatalog())
	resp, err := svc.Search(context.Background(), Request{CourseLevel: "Undergraduate"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "Tech College", resp.Results[0].Name)
	assert.Equal(t, "Science College", resp.Results[1].Name)
}

func TestSearchLeniencyIsCounted(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	svc, err := New(testCatalog(), Config{Filter: filter.DefaultOptions(), SampleReviews: 2}, m)
	require.NoError(t, err)

	lenient, err := svc.Search(context.Background(), Request{CourseLevel: "Undergraduate", MaxFees: "abc"})
	require.NoError(t, err)
	plain, err := svc.Search(context.Background(), Request{CourseLevel: "Undergraduate"})
	require.NoError(t, err)

	assert.Equal(t, plain.Results, lenient.Results)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IgnoredParamsTotal.WithLabelValues("max_fees")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SearchRequestsTotal.WithLabelValues("ok")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.CatalogRecords))
}

func TestSearchScoreContainment(t *testing.T) {
	svc := newService(t, testCatalog())
	resp, err := svc.Search(context.Background(), Request{CourseLevel: "Undergraduate", TargetScore: "150"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "Tech College", resp.Results[0].Name)

	resp, err = svc.Search(context.Background(), Request{CourseLevel: "Undergraduate", TargetScore: "250"})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}

func TestSearchStateSequence(t *testing.T) {
	var seen []State
	svc := newService(t, testCatalog(), func(c *Config) {
		c.OnTransition = func(_, to State) { seen = append(seen, to) }
	})

	_, err := svc.Search(context.Background(), Request{CourseLevel: "Postgraduate"})
	require.NoError(t, err)
	assert.Equal(t, []State{StateValidating, StateFiltering, StateRanking, StateSuggesting, StateResponding}, seen)

	seen = nil
	_, err = svc.Search(context.Background(), Request{})
	require.Error(t, err)
	assert.Equal(t, []State{StateValidating, StateFailed}, seen)
}

func TestSearchCancelledContext(t *testing.T) {
	svc := newService(t, testCatalog())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Search(ctx, Request{CourseLevel: "Undergraduate"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

type failingStore struct {
	calls atomic.Int32
}

func (f *failingStore) AllColleges(ctx context.Context) ([]catalog.College, error) {
	f.calls.Add(1)
	return nil, errors.New("database is locked")
}

func (f *failingStore) ReviewsFor(ctx context.Context, name string) ([]catalog.Review, error) {
	return nil, nil
}

func TestSearchDegradesWhenCatalogFails(t *testing.T) {
	store := &failingStore{}
	svc := newService(t, store, func(c *Config) {
		c.CatalogRetries = 1
		c.Breaker = resilience.CircuitBreakerConfig{FailureThreshold: 2, ResetTimeout: time.Hour}
	})

	for i := 0; i < 3; i++ {
		resp, err := svc.Search(context.Background(), Request{CourseLevel: "Undergraduate"})
		require.NoError(t, err)
		assert.Empty(t, resp.Results)
		assert.True(t, resp.Degraded)
		assert.Equal(t, unavailableMessage, resp.Message)
		assert.NotNil(t, resp.Suggestions.CollegeName)
	}
	assert.Equal(t, int32(4), store.calls.Load(), "two retried loads, then the breaker opens")
	assert.Equal(t, resilience.StateOpen, svc.BreakerState())

	_, err := svc.Suggest(context.Background(), suggest.FieldState, "")
	assert.ErrorIs(t, err, apperrors.ErrCatalogUnavailable)
	assert.Equal(t, 503, apperrors.HTTPStatusCode(err))
}

// stallingStore hangs until the caller gives up while stalled is set.
type stallingStore struct {
	catalog.Store
	stalled atomic.Bool
}

func (s *stallingStore) AllColleges(ctx context.Context) ([]catalog.College, error) {
	if s.stalled.Load() {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.Store.AllColleges(ctx)
}

func TestAbandonedSearchesDoNotOpenBreaker(t *testing.T) {
	store := &stallingStore{Store: testCatalog()}
	store.stalled.Store(true)
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)
	svc, err := New(store, Config{
		Filter:         filter.DefaultOptions(),
		SampleReviews:  2,
		CatalogTimeout: time.Second,
		CatalogRetries: 2,
		Breaker:        resilience.CircuitBreakerConfig{FailureThreshold: 2, ResetTimeout: time.Hour},
	}, m)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
		_, err := svc.Search(ctx, Request{CourseLevel: "Undergraduate"})
		cancel()
		assert.ErrorIs(t, err, apperrors.ErrTimeout)
	}
	assert.Equal(t, resilience.StateClosed, svc.BreakerState())
	assert.Positive(t, testutil.ToFloat64(m.CatalogLoadsTotal.WithLabelValues("cancelled")))
	assert.Zero(t, testutil.ToFloat64(m.CatalogLoadsTotal.WithLabelValues("error")))
	assert.Zero(t, testutil.ToFloat64(m.CatalogLoadsTotal.WithLabelValues("retry")))

	store.stalled.Store(false)
	resp, err := svc.Search(context.Background(), Request{CourseLevel: "Undergraduate", State: "Maharashtra"})
	require.NoError(t, err)
	assert.False(t, resp.Degraded)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "Tech College", resp.Results[0].Name)
}

func TestSuggestSingleField(t *testing.T) {
	svc := newService(t, testCatalog())
	got, err := svc.Suggest(context.Background(), suggest.FieldLocation, "PU")
	require.NoError(t, err)
	assert.Equal(t, []string{"Pune"}, got)
}

func TestNewRejectsBadFilterOptions(t *testing.T) {
	_, err := New(testCatalog(), Config{Filter: filter.Options{MatchMode: "regex"}}, nil)
	assert.Error(t, err)
}
