package service

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/internal/searcher/suggest"
	apperrors "github.com/Adithya-Monish-Kumar-K/College-Search-Platform/pkg/errors"
)

// Request carries the raw search form. Every field is a string; numeric
// fields that do not parse are ignored rather than rejected.
type Request struct {
	CourseLevel string `json:"course_level"`
	State       string `json:"state,omitempty"`
	Location    string `json:"location,omitempty"`
	CollegeName string `json:"college_name,omitempty"`
	Branch      string `json:"branch,omitempty"`
	MaxFees     string `json:"max_fees,omitempty"`
	TargetScore string `json:"target_score,omitempty"`
}

type Response struct {
	Results     []ranker.RankedCollege `json:"results"`
	Suggestions suggest.Suggestions    `json:"suggestions"`
	Message     string                 `json:"message,omitempty"`
	// Degraded marks a response built without catalog access. It is never
	// cached.
	Degraded bool `json:"-"`
}

const (
	CodeMissingCourseLevel = "missing_course_level"
	CodeInvalidCourseLevel = "invalid_course_level"
)

type ValidationError struct {
	Code    string `json:"code"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return apperrors.ErrInvalidInput
}

type State int

const (
	StateIdle State = iota
	StateValidating
	StateFiltering
	StateRanking
	StateSuggesting
	StateResponding
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateFiltering:
		return "filtering"
	case StateRanking:
		return "ranking"
	case StateSuggesting:
		return "suggesting"
	case StateResponding:
		return "responding"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
