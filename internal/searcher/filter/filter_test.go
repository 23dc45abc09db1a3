package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/internal/catalog"
)

func sampleColleges() []catalog.College {
	return []catalog.College{
		{ID: "1", Name: "Tech College", State: "Maharashtra", Location: "Pune", CourseLevel: catalog.Undergraduate, Branch: "Mech", Fees: 120000, AdmissionScoreMin: 100, AdmissionScoreMax: 200},
		{ID: "2", Name: "Tech College", State: "Maharashtra", Location: "Pune", CourseLevel: catalog.Undergraduate, Branch: "CS", Fees: 130000, AdmissionScoreMin: 100, AdmissionScoreMax: 200},
		{ID: "3", Name: "Science College", State: "Karnataka", Location: "Bangalore", CourseLevel: catalog.Undergraduate, Fees: 80000, AdmissionScoreMin: 300, AdmissionScoreMax: 400},
		{ID: "4", Name: "Arts Academy", State: "Karnataka", Location: "Mysore", CourseLevel: catalog.Postgraduate, Branch: "Fine Arts", Fees: 50000, AdmissionScoreMin: 0, AdmissionScoreMax: 50},
	}
}

func newEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	e, err := New(opts)
	require.NoError(t, err)
	return e
}

func names(out Outcome) []string {
	got := make([]string, 0, len(out.Candidates))
	for _, c := range out.Candidates {
		got = append(got, c.College.Name)
	}
	return got
}

func TestApplyCourseLevelIsExact(t *testing.T) {
	e := newEngine(t, DefaultOptions())
	out := e.Apply(sampleColleges(), Criteria{CourseLevel: catalog.Postgraduate})
	assert.Equal(t, []string{"Arts Academy"}, names(out))
}

func TestApplyDedupCollapsesBranches(t *testing.T) {
	e := newEngine(t, DefaultOptions())
	out := e.Apply(sampleColleges(), Criteria{CourseLevel: catalog.Undergraduate, CollegeName: "tech"})
	require.Len(t, out.Candidates, 1)
	assert.Equal(t, "1", out.Candidates[0].College.ID, "first occurrence wins")
	assert.Equal(t, []string{"CS", "Mech"}, out.Candidates[0].Branches)
}

func TestApplyDedupKeysAreUnique(t *testing.T) {
	e := newEngine(t, DefaultOptions())
	rows := append(sampleColleges(), sampleColleges()...)
	out := e.Apply(rows, Criteria{CourseLevel: catalog.Undergraduate})
	seen := make(map[catalog.Key]bool)
	for _, c := range out.Candidates {
		assert.False(t, seen[c.College.Key()], "duplicate key %+v", c.College.Key())
		seen[c.College.Key()] = true
	}
	assert.Equal(t, []string{"Tech College", "Science College"}, names(out))
}

func TestApplyMatchModes(t *testing.T) {
	rows := sampleColleges()
	tests := []struct {
		mode  MatchMode
		state string
		want  []string
	}{
		{MatchContains, "ARASH", []string{"Tech College"}},
		{MatchPrefix, "ARASH", nil},
		{MatchPrefix, "maha", []string{"Tech College"}},
		{MatchExact, "maha", nil},
		{MatchExact, "maharashtra", []string{"Tech College"}},
	}
	for _, tt := range tests {
		opts := DefaultOptions()
		opts.MatchMode = tt.mode
		out := newEngine(t, opts).Apply(rows, Criteria{CourseLevel: catalog.Undergraduate, State: tt.state})
		if tt.want == nil {
			assert.Empty(t, out.Candidates, "mode %s state %q", tt.mode, tt.state)
			continue
		}
		assert.Equal(t, tt.want, names(out), "mode %s state %q", tt.mode, tt.state)
	}
}

func TestApplyBranchFilterStillCollapses(t *testing.T) {
	e := newEngine(t, DefaultOptions())
	out := e.Apply(sampleColleges(), Criteria{CourseLevel: catalog.Undergraduate, Branch: "cs"})
	require.Len(t, out.Candidates, 1)
	assert.Equal(t, []string{"CS"}, out.Candidates[0].Branches)
}

func TestApplyMaxFees(t *testing.T) {
	e := newEngine(t, DefaultOptions())
	out := e.Apply(sampleColleges(), Criteria{CourseLevel: catalog.Undergraduate, MaxFees: " 125000 "})
	require.Len(t, out.Candidates, 2)
	assert.Equal(t, []string{"Mech"}, out.Candidates[0].Branches)
	assert.Empty(t, out.Ignored)
}

func TestApplyScoreContainment(t *testing.T) {
	e := newEngine(t, DefaultOptions())
	rows := sampleColleges()

	out := e.Apply(rows, Criteria{CourseLevel: catalog.Undergraduate, TargetScore: "150"})
	assert.Equal(t, []string{"Tech College"}, names(out))

	out = e.Apply(rows, Criteria{CourseLevel: catalog.Undergraduate, TargetScore: "250"})
	assert.Empty(t, out.Candidates)

	out = e.Apply(rows, Criteria{CourseLevel: catalog.Undergraduate, TargetScore: "200"})
	assert.Equal(t, []string{"Tech College"}, names(out), "bounds are inclusive")
}

func TestApplyScoreWindow(t *testing.T) {
	opts := DefaultOptions()
	opts.ScoreMode = ScoreWindow
	opts.WindowBucket = 100
	opts.WindowSpan = 100
	e := newEngine(t, opts)

	// 250 falls in [200, 300], which touches Tech (100..200) and Science (300..400).
	out := e.Apply(sampleColleges(), Criteria{CourseLevel: catalog.Undergraduate, TargetScore: "250"})
	assert.Equal(t, []string{"Tech College", "Science College"}, names(out))
}

func TestApplyLeniency(t *testing.T) {
	e := newEngine(t, DefaultOptions())
	rows := sampleColleges()
	base := e.Apply(rows, Criteria{CourseLevel: catalog.Undergraduate})

	for _, raw := range []string{"abc", "-5", "NaN", "Inf", "1e999"} {
		out := e.Apply(rows, Criteria{CourseLevel: catalog.Undergraduate, MaxFees: raw, TargetScore: raw})
		assert.Equal(t, base.Candidates, out.Candidates, "raw %q", raw)
		assert.Equal(t, []string{"max_fees", "target_score"}, out.Ignored, "raw %q", raw)
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	e := newEngine(t, DefaultOptions())
	rows := sampleColleges()
	c := Criteria{CourseLevel: catalog.Undergraduate, State: "a", MaxFees: "200000"}
	assert.Equal(t, e.Apply(rows, c), e.Apply(rows, c))
}

func TestNewRejectsUnknownModes(t *testing.T) {
	_, err := New(Options{MatchMode: "fuzzy"})
	assert.Error(t, err)
	_, err = New(Options{ScoreMode: "bucket"})
	assert.Error(t, err)
	_, err = New(Options{ScoreMode: ScoreWindow})
	assert.Error(t, err)

	e, err := New(Options{})
	require.NoError(t, err)
	assert.Equal(t, MatchContains, e.Options().MatchMode)
	assert.Equal(t, ScoreInterval, e.Options().ScoreMode)
}

func TestSortFold(t *testing.T) {
	values := []string{"b", "A", "a", "C"}
	SortFold(values)
	assert.Equal(t, []string{"A", "a", "b", "C"}, values)
}
