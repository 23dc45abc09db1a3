package filter

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/internal/catalog"
)

type MatchMode string

const (
	MatchExact    MatchMode = "exact"
	MatchPrefix   MatchMode = "prefix"
	MatchContains MatchMode = "contains"
)

type ScoreMode string

const (
	// ScoreInterval keeps records whose [min, max] admission range contains
	// the target score.
	ScoreInterval ScoreMode = "interval"
	// ScoreWindow rounds the target down to a bucket boundary and keeps
	// records whose range overlaps [boundary, boundary+span].
	ScoreWindow ScoreMode = "window"
)

type Options struct {
	MatchMode    MatchMode
	ScoreMode    ScoreMode
	WindowBucket float64
	WindowSpan   float64
}

func DefaultOptions() Options {
	return Options{
		MatchMode:    MatchContains,
		ScoreMode:    ScoreInterval,
		WindowBucket: 1000,
		WindowSpan:   1000,
	}
}

// Criteria is a search request after course-level validation. MaxFees and
// TargetScore stay raw; Apply decides whether they are usable.
type Criteria struct {
	CourseLevel catalog.CourseLevel
	State       string
	Location    string
	CollegeName string
	Branch      string
	MaxFees     string
	TargetScore string
}

type Candidate struct {
	College  catalog.College
	Branches []string
}

// Outcome is the filtered, de-duplicated candidate list in discovery order.
// Ignored names the numeric fields that were present but unusable.
type Outcome struct {
	Candidates []Candidate
	Ignored    []string
}

type Engine struct {
	opts Options
}

func New(opts Options) (*Engine, error) {
	switch opts.MatchMode {
	case MatchExact, MatchPrefix, MatchContains:
	case "":
		opts.MatchMode = MatchContains
	default:
		return nil, fmt.Errorf("unknown match mode %q", opts.MatchMode)
	}
	switch opts.ScoreMode {
	case ScoreInterval:
	case "":
		opts.ScoreMode = ScoreInterval
	case ScoreWindow:
		if opts.WindowBucket <= 0 || opts.WindowSpan <= 0 {
			return nil, fmt.Errorf("window score mode needs positive bucket and span")
		}
	default:
		return nil, fmt.Errorf("unknown score mode %q", opts.ScoreMode)
	}
	return &Engine{opts: opts}, nil
}

func (e *Engine) Options() Options {
	return e.opts
}

func (e *Engine) Apply(colleges []catalog.College, c Criteria) Outcome {
	var out Outcome

	maxFees, feesOK := ParseAmount(c.MaxFees)
	if !feesOK && strings.TrimSpace(c.MaxFees) != "" {
		out.Ignored = append(out.Ignored, "max_fees")
	}
	target, targetOK := ParseAmount(c.TargetScore)
	if !targetOK && strings.TrimSpace(c.TargetScore) != "" {
		out.Ignored = append(out.Ignored, "target_score")
	}
	scoreLo, scoreHi := target, target
	if targetOK && e.opts.ScoreMode == ScoreWindow {
		scoreLo = math.Floor(target/e.opts.WindowBucket) * e.opts.WindowBucket
		scoreHi = scoreLo + e.opts.WindowSpan
	}

	index := make(map[catalog.Key]int)
	branchSets := make([]map[string]struct{}, 0)
	for _, college := range colleges {
		if college.CourseLevel != c.CourseLevel {
			continue
		}
		if !e.Matches(college.State, c.State) ||
			!e.Matches(college.Location, c.Location) ||
			!e.Matches(college.Name, c.CollegeName) ||
			!e.Matches(college.Branch, c.Branch) {
			continue
		}
		if feesOK && college.Fees > maxFees {
			continue
		}
		if targetOK && (college.AdmissionScoreMin > scoreHi || college.AdmissionScoreMax < scoreLo) {
			continue
		}

		key := college.Key()
		pos, seen := index[key]
		if !seen {
			pos = len(out.Candidates)
			index[key] = pos
			out.Candidates = append(out.Candidates, Candidate{College: college})
			branchSets = append(branchSets, make(map[string]struct{}))
		}
		if b := strings.TrimSpace(college.Branch); b != "" {
			branchSets[pos][b] = struct{}{}
		}
	}

	for i := range out.Candidates {
		out.Candidates[i].Branches = sortedSet(branchSets[i])
	}
	return out
}

// Matches reports whether value satisfies a text filter under the configured
// match mode. An empty filter matches everything.
func (e *Engine) Matches(value, wanted string) bool {
	wanted = strings.TrimSpace(wanted)
	if wanted == "" {
		return true
	}
	v, w := strings.ToLower(value), strings.ToLower(wanted)
	switch e.opts.MatchMode {
	case MatchExact:
		return strings.TrimSpace(v) == w
	case MatchPrefix:
		return strings.HasPrefix(strings.TrimSpace(v), w)
	default:
		return strings.Contains(v, w)
	}
}

// ParseAmount reads a non-negative finite number. Anything else, including
// an empty string, reports false and is treated as an absent filter.
func ParseAmount(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return v, true
}

// SortFold orders strings case-insensitively, breaking ties on the raw value
// so the order is total.
func SortFold(values []string) {
	sort.Slice(values, func(i, j int) bool {
		li, lj := strings.ToLower(values[i]), strings.ToLower(values[j])
		if li != lj {
			return li < lj
		}
		return values[i] < values[j]
	})
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	SortFold(out)
	return out
}
