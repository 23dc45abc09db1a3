package catalog

import "time"

const ChangeReviewAdded = "review_added"

// Change announces a catalog write on the catalog-changes topic. Searchers
// drop their cached responses when they see one.
type Change struct {
	Type        string    `json:"type"`
	CollegeName string    `json:"college_name"`
	OccurredAt  time.Time `json:"occurred_at"`
	Origin      string    `json:"origin,omitempty"`
}
