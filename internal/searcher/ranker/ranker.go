package ranker

import (
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/internal/searcher/filter"
)

type SampleReview struct {
	ReviewText string  `json:"review_text"`
	Rating     float64 `json:"rating"`
}

type RankedCollege struct {
	Name              string              `json:"name"`
	State             string              `json:"state"`
	Location          string              `json:"location"`
	CourseLevel       catalog.CourseLevel `json:"course_level"`
	Branches          []string            `json:"branches"`
	Fees              float64             `json:"fees"`
	AdmissionScoreMin float64             `json:"admission_score_min"`
	AdmissionScoreMax float64             `json:"admission_score_max"`
	AverageRating     float64             `json:"average_rating"`
	SampleReviews     []SampleReview      `json:"sample_reviews"`
}

type ReviewSource interface {
	Reviews(collegeName string) []catalog.Review
}

// Rank decorates candidates with review data and orders them by average
// rating descending, then fees ascending. Ties keep discovery order.
func Rank(candidates []filter.Candidate, reviews ReviewSource, sampleSize int) []RankedCollege {
	result := make([]RankedCollege, 0, len(candidates))
	for _, cand := range candidates {
		c := cand.College
		rs := reviews.Reviews(c.Name)
		branches := cand.Branches
		if branches == nil {
			branches = []string{}
		}
		result = append(result, RankedCollege{
			Name:              c.Name,
			State:             c.State,
			Location:          c.Location,
			CourseLevel:       c.CourseLevel,
			Branches:          branches,
			Fees:              c.Fees,
			AdmissionScoreMin: c.AdmissionScoreMin,
			AdmissionScoreMax: c.AdmissionScoreMax,
			AverageRating:     AverageRating(rs),
			SampleReviews:     samples(rs, sampleSize),
		})
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].AverageRating != result[j].AverageRating {
			return result[i].AverageRating > result[j].AverageRating
		}
		return result[i].Fees < result[j].Fees
	})
	return result
}

// AverageRating is the mean rating rounded to four places, or 0 with no
// reviews.
func AverageRating(reviews []catalog.Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	var sum float64
	for _, r := range reviews {
		sum += r.Rating
	}
	return math.Round(sum/float64(len(reviews))*10000) / 10000
}

func samples(reviews []catalog.Review, n int) []SampleReview {
	if n > len(reviews) {
		n = len(reviews)
	}
	if n < 0 {
		n = 0
	}
	out := make([]SampleReview, 0, n)
	for _, r := range reviews[:n] {
		out = append(out, SampleReview{ReviewText: r.ReviewText, Rating: r.Rating})
	}
	return out
}
