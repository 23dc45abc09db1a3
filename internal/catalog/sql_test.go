package catalog

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/pkg/database"
)

const testSchema = `
CREATE TABLE colleges (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    state TEXT,
    location TEXT,
    course_level TEXT,
    branch TEXT,
    fees REAL,
    cutoff_min REAL,
    cutoff_max REAL
);
CREATE TABLE reviews (
    id INTEGER PRIMARY KEY,
    college_name TEXT NOT NULL,
    review_text TEXT,
    rating REAL
);
INSERT INTO colleges (name, state, location, course_level, branch, fees, cutoff_min, cutoff_max) VALUES
    ('Tech College', 'Maharashtra', 'Pune', 'BTech', 'Computer Science', 120000, 600, 800),
    ('Tech College', 'Maharashtra', 'Pune', 'UG', 'Mechanical Engineering', 120000, 600, 800),
    ('Science College', 'Karnataka', 'Bangalore', 'Degree', NULL, 80000, 500, 700),
    ('Broken Range', 'Delhi', 'New Delhi', 'Diploma', NULL, 60000, 900, 100),
    ('Unknown Level', 'Delhi', 'New Delhi', 'PhD', NULL, 60000, 1, 2);
INSERT INTO reviews (college_name, review_text, rating) VALUES
    ('Tech College', 'Great faculty and campus!', 4.5),
    ('Science College', 'Excellent research facilities.', 4.0),
    ('  Science College ', 'Padded name from a spreadsheet.', 3.0);
`

func newSQLiteStore(t *testing.T) *SQLStore {
	t.Helper()
	db, err := sqlx.Open(config.DriverSQLite, ":memory:")
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(testSchema)
	require.NoError(t, err)
	return NewSQLStore(database.Wrap(db, config.DatabaseConfig{Driver: config.DriverSQLite}))
}

func TestSQLStoreAllColleges(t *testing.T) {
	store := newSQLiteStore(t)
	colleges, err := store.AllColleges(context.Background())
	require.NoError(t, err)
	require.Len(t, colleges, 3, "invalid rows are skipped")

	assert.Equal(t, "1", colleges[0].ID)
	assert.Equal(t, Undergraduate, colleges[0].CourseLevel)
	assert.Equal(t, "Computer Science", colleges[0].Branch)
	assert.Equal(t, Undergraduate, colleges[1].CourseLevel)
	assert.Equal(t, Postgraduate, colleges[2].CourseLevel)
	assert.Equal(t, "", colleges[2].Branch)
	assert.InDelta(t, 500.0, colleges[2].AdmissionScoreMin, 1e-9)
}

func TestSQLStoreReviews(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	reviews, err := store.ReviewsFor(ctx, "Tech College")
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.InDelta(t, 4.5, reviews[0].Rating, 1e-9)

	require.NoError(t, store.AddReview(ctx, Review{CollegeName: "Tech College", ReviewText: "Good labs", Rating: 5}))
	all, err := store.AllReviews(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	exists, err := store.CollegeExists(ctx, "Science College")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = store.CollegeExists(ctx, "Nowhere")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSQLStoreTrimsReviewNames(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	reviews, err := store.ReviewsFor(ctx, "Science College")
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	for _, r := range reviews {
		assert.Equal(t, "Science College", r.CollegeName)
	}

	snap, err := TakeSnapshot(ctx, store)
	require.NoError(t, err)
	got, err := snap.ReviewsFor(ctx, "Science College")
	require.NoError(t, err)
	assert.Len(t, got, 2, "padded review names still count toward the college")
}

func TestSQLStoreCollegeExistsOnlyForSearchableRows(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	for name, want := range map[string]bool{
		"Tech College":   true,
		" Tech College ": true,
		"Broken Range":   false,
		"Unknown Level":  false,
		"Nowhere":        false,
	} {
		exists, err := store.CollegeExists(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, want, exists, name)
	}
}

func TestSQLStoreServerVersion(t *testing.T) {
	store := newSQLiteStore(t)
	version, err := store.db.ServerVersion(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, version)
}
