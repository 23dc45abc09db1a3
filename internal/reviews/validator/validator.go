// Package validator checks review submissions before they reach the store.
package validator

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/internal/reviews"
	apperrors "github.com/Adithya-Monish-Kumar-K/College-Search-Platform/pkg/errors"
)

const maxReviewLength = 5000

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return apperrors.ErrInvalidInput
}

// ValidateSubmission returns the review to store, or a *ValidationError.
func ValidateSubmission(req *reviews.SubmitRequest) (catalog.Review, error) {
	errs := make(map[string]string)

	name := strings.TrimSpace(req.CollegeName)
	if name == "" {
		errs["college_name"] = "college_name is required"
	}
	text := strings.TrimSpace(req.ReviewText)
	if text == "" {
		errs["review_text"] = "review_text is required"
	} else if len(text) > maxReviewLength {
		errs["review_text"] = fmt.Sprintf("review_text must be at most %d characters", maxReviewLength)
	}

	var rating float64
	raw := strings.TrimSpace(string(req.Rating))
	if raw == "" {
		errs["rating"] = "rating is required"
	} else {
		parsed, err := reviews.FlexString(raw).Float()
		switch {
		case err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0):
			errs["rating"] = "invalid rating format"
		case parsed < catalog.MinRating || parsed > catalog.MaxRating:
			errs["rating"] = fmt.Sprintf("rating must be between %g and %g", catalog.MinRating, catalog.MaxRating)
		default:
			rating = parsed
		}
	}

	if len(errs) > 0 {
		return catalog.Review{}, &ValidationError{Fields: errs}
	}
	return catalog.Review{CollegeName: name, ReviewText: text, Rating: rating}, nil
}
