package analytics

import "time"

type EventType string

const (
	EventSearch          EventType = "search"
	EventZeroResult      EventType = "zero_result"
	EventInvalidRequest  EventType = "invalid_request"
	EventReviewSubmitted EventType = "review_submitted"
)

// SearchEvent describes one search request as seen by the searcher. Raw
// request fields are kept so zero-result queries can be reported verbatim.
type SearchEvent struct {
	Type        EventType `json:"type"`
	CourseLevel string    `json:"course_level"`
	State       string    `json:"state,omitempty"`
	Location    string    `json:"location,omitempty"`
	CollegeName string    `json:"college_name,omitempty"`
	Branch      string    `json:"branch,omitempty"`
	MaxFees     string    `json:"max_fees,omitempty"`
	TargetScore string    `json:"target_score,omitempty"`
	Returned    int       `json:"returned"`
	Message     string    `json:"message,omitempty"`
	LatencyMs   int64     `json:"latency_ms"`
	CacheHit    bool      `json:"cache_hit"`
	Timestamp   time.Time `json:"timestamp"`
	RequestID   string    `json:"request_id"`
}

type ReviewEvent struct {
	Type        EventType `json:"type"`
	CollegeName string    `json:"college_name"`
	Rating      float64   `json:"rating"`
	Timestamp   time.Time `json:"timestamp"`
	RequestID   string    `json:"request_id"`
}
