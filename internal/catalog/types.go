// Package catalog defines the college and review records the search core
// reads, the canonical course-level enumeration, and the stores that serve
// them (in-memory and SQL).
package catalog

import (
	"fmt"
	"strings"
)

// CourseLevel is the canonical credential tier of a program.
type CourseLevel string

const (
	Undergraduate CourseLevel = "Undergraduate"
	Postgraduate  CourseLevel = "Postgraduate"
	Diploma       CourseLevel = "Diploma"
)

// CourseLevels lists the canonical enumeration in display order.
var CourseLevels = []CourseLevel{Undergraduate, Postgraduate, Diploma}

// courseLevelAliases maps lower-cased source labels onto the canonical
// enumeration. The short UG/PG codes and the BTech/Degree/Diploma labels come
// from different ingestion sources.
var courseLevelAliases = map[string]CourseLevel{
	"undergraduate": Undergraduate,
	"ug":            Undergraduate,
	"btech":         Undergraduate,
	"b.tech":        Undergraduate,
	"postgraduate":  Postgraduate,
	"pg":            Postgraduate,
	"degree":        Postgraduate,
	"diploma":       Diploma,
}

// ParseCourseLevel translates a source or request label into the canonical
// enumeration. The second result is false for unknown labels.
func ParseCourseLevel(label string) (CourseLevel, bool) {
	level, ok := courseLevelAliases[strings.ToLower(strings.TrimSpace(label))]
	return level, ok
}

func (l CourseLevel) String() string { return string(l) }

// College is one catalog row. A college offering several branches appears
// once per branch.
type College struct {
	ID                string      `json:"id"`
	Name              string      `json:"name"`
	State             string      `json:"state"`
	Location          string      `json:"location"`
	CourseLevel       CourseLevel `json:"course_level"`
	Branch            string      `json:"branch,omitempty"`
	Fees              float64     `json:"fees"`
	AdmissionScoreMin float64     `json:"admission_score_min"`
	AdmissionScoreMax float64     `json:"admission_score_max"`
}

// Key is the natural de-duplication key of a college.
type Key struct {
	Name        string
	State       string
	Location    string
	CourseLevel CourseLevel
}

func (c College) Key() Key {
	return Key{Name: c.Name, State: c.State, Location: c.Location, CourseLevel: c.CourseLevel}
}

// Validate checks the record invariants enforced at the store boundary.
func (c College) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("college name is empty")
	}
	if c.Fees < 0 || c.AdmissionScoreMin < 0 || c.AdmissionScoreMax < 0 {
		return fmt.Errorf("college %q: negative fees or admission score", c.Name)
	}
	if c.AdmissionScoreMin > c.AdmissionScoreMax {
		return fmt.Errorf("college %q: admission score min %.2f exceeds max %.2f",
			c.Name, c.AdmissionScoreMin, c.AdmissionScoreMax)
	}
	return nil
}

// Review references a college by name only.
type Review struct {
	CollegeName string  `json:"college_name"`
	ReviewText  string  `json:"review_text"`
	Rating      float64 `json:"rating"`
}

// Rating bounds enforced on the write path.
const (
	MinRating = 1.0
	MaxRating = 5.0
)
