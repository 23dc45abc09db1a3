package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/pkg/database"
)

// SQLStore reads the catalog from the colleges and reviews tables through
// sqlx, so the same queries serve PostgreSQL and SQLite.
//
// It expects the following tables (created by the ingestion tooling):
//
//	CREATE TABLE colleges (
//	    id           INTEGER PRIMARY KEY,
//	    name         TEXT NOT NULL,
//	    state        TEXT,
//	    location     TEXT,
//	    course_level TEXT,
//	    branch       TEXT,
//	    fees         REAL,
//	    cutoff_min   REAL,
//	    cutoff_max   REAL
//	);
//	CREATE TABLE reviews (
//	    id           INTEGER PRIMARY KEY,
//	    college_name TEXT NOT NULL,
//	    review_text  TEXT,
//	    rating       REAL
//	);
type SQLStore struct {
	db     *database.Client
	logger *slog.Logger
}

// NewSQLStore creates a store backed by the given database client.
func NewSQLStore(db *database.Client) *SQLStore {
	return &SQLStore{
		db:     db,
		logger: slog.Default().With("component", "catalog-store"),
	}
}

type collegeRow struct {
	ID          string  `db:"id"`
	Name        string  `db:"name"`
	State       string  `db:"state"`
	Location    string  `db:"location"`
	CourseLevel string  `db:"course_level"`
	Branch      string  `db:"branch"`
	Fees        float64 `db:"fees"`
	CutoffMin   float64 `db:"cutoff_min"`
	CutoffMax   float64 `db:"cutoff_max"`
}

type reviewRow struct {
	CollegeName string  `db:"college_name"`
	ReviewText  string  `db:"review_text"`
	Rating      float64 `db:"rating"`
}

const selectColleges = `
SELECT CAST(id AS TEXT) AS id,
       name,
       COALESCE(state, '') AS state,
       COALESCE(location, '') AS location,
       COALESCE(course_level, '') AS course_level,
       COALESCE(branch, '') AS branch,
       COALESCE(fees, 0) AS fees,
       COALESCE(cutoff_min, 0) AS cutoff_min,
       COALESCE(cutoff_max, 0) AS cutoff_max
FROM colleges`

const selectReviews = `
SELECT college_name,
       COALESCE(review_text, '') AS review_text,
       COALESCE(rating, 0) AS rating
FROM reviews`

// AllColleges loads every row, translating course-level labels to the
// canonical enumeration. Rows that violate the record invariants are skipped.
func (s *SQLStore) AllColleges(ctx context.Context) ([]College, error) {
	var rows []collegeRow
	if err := s.db.DB.SelectContext(ctx, &rows, selectColleges+` ORDER BY colleges.id`); err != nil {
		return nil, fmt.Errorf("querying colleges: %w", err)
	}
	colleges := make([]College, 0, len(rows))
	for _, row := range rows {
		college, err := row.toCollege()
		if err != nil {
			s.logger.Warn("skipping college row", "id", row.ID, "error", err)
			continue
		}
		colleges = append(colleges, college)
	}
	return colleges, nil
}

func (r collegeRow) toCollege() (College, error) {
	level, ok := ParseCourseLevel(r.CourseLevel)
	if !ok {
		return College{}, fmt.Errorf("unknown course level %q", r.CourseLevel)
	}
	c := College{
		ID:                r.ID,
		Name:              strings.TrimSpace(r.Name),
		State:             strings.TrimSpace(r.State),
		Location:          strings.TrimSpace(r.Location),
		CourseLevel:       level,
		Branch:            strings.TrimSpace(r.Branch),
		Fees:              r.Fees,
		AdmissionScoreMin: r.CutoffMin,
		AdmissionScoreMax: r.CutoffMax,
	}
	if err := c.Validate(); err != nil {
		return College{}, err
	}
	return c, nil
}

func (s *SQLStore) ReviewsFor(ctx context.Context, collegeName string) ([]Review, error) {
	query := s.db.DB.Rebind(selectReviews + ` WHERE TRIM(college_name) = ? ORDER BY reviews.id`)
	var rows []reviewRow
	if err := s.db.DB.SelectContext(ctx, &rows, query, strings.TrimSpace(collegeName)); err != nil {
		return nil, fmt.Errorf("querying reviews for %q: %w", collegeName, err)
	}
	return toReviews(rows), nil
}

func (s *SQLStore) AllReviews(ctx context.Context) ([]Review, error) {
	var rows []reviewRow
	if err := s.db.DB.SelectContext(ctx, &rows, selectReviews+` ORDER BY reviews.id`); err != nil {
		return nil, fmt.Errorf("querying reviews: %w", err)
	}
	return toReviews(rows), nil
}

func toReviews(rows []reviewRow) []Review {
	reviews := make([]Review, 0, len(rows))
	for _, row := range rows {
		reviews = append(reviews, Review{
			CollegeName: strings.TrimSpace(row.CollegeName),
			ReviewText:  row.ReviewText,
			Rating:      row.Rating,
		})
	}
	return reviews
}

// CollegeExists reports whether name belongs to a row AllColleges would
// return, so reviews are only accepted for searchable colleges.
func (s *SQLStore) CollegeExists(ctx context.Context, name string) (bool, error) {
	query := s.db.DB.Rebind(selectColleges + ` WHERE TRIM(name) = ?`)
	var rows []collegeRow
	if err := s.db.DB.SelectContext(ctx, &rows, query, strings.TrimSpace(name)); err != nil {
		return false, fmt.Errorf("checking college %q: %w", name, err)
	}
	for _, row := range rows {
		if _, err := row.toCollege(); err == nil {
			return true, nil
		}
	}
	return false, nil
}

func (s *SQLStore) AddReview(ctx context.Context, review Review) error {
	row := reviewRow{
		CollegeName: strings.TrimSpace(review.CollegeName),
		ReviewText:  review.ReviewText,
		Rating:      review.Rating,
	}
	return s.db.InTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx,
			`INSERT INTO reviews (college_name, review_text, rating) VALUES (:college_name, :review_text, :rating)`,
			row,
		)
		if err != nil {
			return fmt.Errorf("inserting review for %q: %w", review.CollegeName, err)
		}
		return nil
	})
}
